// Package startup orders service dependencies at boot. Each dependency
// declares what it needs started first; failed boots are retried with a
// fibonacci backoff before the process gives up.
package startup

import (
	"context"
	"fmt"
	"time"

	"github.com/Gobusters/ectologger"
)

// Dependency is a startable unit of the service
type Dependency interface {
	GetName() string
	DependsOn() []string
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
}

type status int

const (
	statusPending status = iota
	statusStarted
	statusStopped
	statusFailed
)

// Orchestrator starts dependencies in declaration order, resolving
// DependsOn edges first, and stops them in reverse
type Orchestrator struct {
	order       []string
	deps        map[string]Dependency
	statuses    map[string]status
	logger      ectologger.Logger
	maxAttempts int
}

// NewOrchestrator creates a startup orchestrator
func NewOrchestrator(logger ectologger.Logger, maxAttempts int) *Orchestrator {
	if maxAttempts <= 0 {
		maxAttempts = 1
	}
	return &Orchestrator{
		deps:        make(map[string]Dependency),
		statuses:    make(map[string]status),
		logger:      logger,
		maxAttempts: maxAttempts,
	}
}

// Add registers a dependency. Registration order is the tiebreak when no
// DependsOn edge orders two dependencies.
func (o *Orchestrator) Add(dep Dependency) {
	if _, exists := o.deps[dep.GetName()]; !exists {
		o.order = append(o.order, dep.GetName())
	}
	o.deps[dep.GetName()] = dep
}

// Start starts every registered dependency, retrying the whole sequence
// with fibonacci backoff on failure
func (o *Orchestrator) Start(ctx context.Context) error {
	var lastErr error

	a, b := 1, 1
	for attempt := 1; attempt <= o.maxAttempts; attempt++ {
		o.logger.WithField("attempt", attempt).Infof("Beginning startup attempt %d", attempt)

		lastErr = nil
		for _, name := range o.order {
			if err := o.start(ctx, o.deps[name]); err != nil {
				lastErr = err
				break
			}
		}

		if lastErr == nil {
			return nil
		}

		if attempt == o.maxAttempts {
			break
		}

		o.logger.Infof("Retrying startup in %d seconds (attempt %d/%d)", a, attempt, o.maxAttempts)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(time.Duration(a) * time.Second):
		}
		a, b = b, a+b
	}

	return fmt.Errorf("startup failed after %d attempts: %w", o.maxAttempts, lastErr)
}

func (o *Orchestrator) start(ctx context.Context, dep Dependency) error {
	name := dep.GetName()
	if o.statuses[name] == statusStarted {
		return nil
	}

	for _, parent := range dep.DependsOn() {
		parentDep, ok := o.deps[parent]
		if !ok {
			return fmt.Errorf("dependency '%s' requires unregistered dependency '%s'", name, parent)
		}
		if o.statuses[parent] != statusStarted {
			if err := o.start(ctx, parentDep); err != nil {
				return err
			}
		}
	}

	o.logger.WithField("dependency", name).Infof("Starting dependency '%s'", name)
	o.statuses[name] = statusPending
	if err := dep.Start(ctx); err != nil {
		o.statuses[name] = statusFailed
		o.logger.WithError(err).WithField("dependency", name).Errorf("Failed to start dependency '%s'", name)
		return err
	}
	o.statuses[name] = statusStarted
	return nil
}

// Stop stops started dependencies in reverse registration order. Stop
// errors are logged but do not halt the remaining shutdowns.
func (o *Orchestrator) Stop(ctx context.Context) error {
	var lastErr error
	for i := len(o.order) - 1; i >= 0; i-- {
		name := o.order[i]
		if o.statuses[name] != statusStarted {
			continue
		}

		o.logger.WithField("dependency", name).Infof("Stopping dependency '%s'", name)
		if err := o.deps[name].Stop(ctx); err != nil {
			o.logger.WithError(err).WithField("dependency", name).Errorf("Failed to stop dependency '%s'", name)
			lastErr = err
			continue
		}
		o.statuses[name] = statusStopped
	}
	return lastErr
}
