package server

import (
	"github.com/Gobusters/ectoinject"
	"github.com/Gobusters/ectologger"

	"github.com/Ramsey-B/clover/config"
	"github.com/Ramsey-B/clover/pkg/approvals"
	"github.com/Ramsey-B/clover/pkg/claims"
	"github.com/Ramsey-B/clover/pkg/lifecycle"
	"github.com/Ramsey-B/clover/pkg/reconciler"
)

// registerDependencies populates the default injection container with the
// services handlers resolve at request time. All registration lives here so
// the wiring surface stays in one place.
func registerDependencies(
	cfg *config.Config,
	logger ectologger.Logger,
	controller *lifecycle.Controller,
	reconcilerSvc *reconciler.Service,
	claimsSvc *claims.Service,
	approvalsSvc *approvals.Service,
) error {
	container, err := ectoinject.NewDIDefaultContainer()
	if err != nil {
		return err
	}

	if err := ectoinject.RegisterInstance[*config.Config](container, cfg); err != nil {
		return err
	}
	if err := ectoinject.RegisterInstance[ectologger.Logger](container, logger); err != nil {
		return err
	}
	if err := ectoinject.RegisterInstance[*lifecycle.Controller](container, controller); err != nil {
		return err
	}
	if err := ectoinject.RegisterInstance[*reconciler.Service](container, reconcilerSvc); err != nil {
		return err
	}
	if err := ectoinject.RegisterInstance[*claims.Service](container, claimsSvc); err != nil {
		return err
	}
	if err := ectoinject.RegisterInstance[*approvals.Service](container, approvalsSvc); err != nil {
		return err
	}

	return nil
}
