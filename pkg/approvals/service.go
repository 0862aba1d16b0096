// Package approvals implements the generic pending-action sign-off workflow.
// A request moves from pending to exactly one terminal status; side effects
// of an approval run after the flip through a registered idempotent applier.
package approvals

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectologger"

	"github.com/Ramsey-B/clover/pkg/audit"
	"github.com/Ramsey-B/clover/pkg/database"
	"github.com/Ramsey-B/clover/pkg/events"
	"github.com/Ramsey-B/clover/pkg/metrics"
	"github.com/Ramsey-B/clover/pkg/models"
	"github.com/Ramsey-B/clover/pkg/tracing"
	"github.com/Ramsey-B/clover/pkg/utils"
)

// ApprovalStore is the persistence surface for approval requests
type ApprovalStore interface {
	Create(ctx context.Context, request *models.ApprovalRequest) (*models.ApprovalRequest, error)
	Get(ctx context.Context, tenantID string, id string) (*models.ApprovalRequest, error)
	List(ctx context.Context, tenantID string, status models.ApprovalStatus, limit int) ([]models.ApprovalRequest, error)
	Resolve(ctx context.Context, tenantID string, id string, status models.ApprovalStatus, resolverID string, notes string) (bool, error)
	ExpireDue(ctx context.Context, now time.Time) (int64, error)
}

// EffectApplier applies the side effect of an approved request. Appliers
// must be idempotent: a retried application after a partial failure must
// not double-apply.
type EffectApplier func(ctx context.Context, request *models.ApprovalRequest) error

// ResolveResult reports the outcome of a decision, including whether the
// side effect applied cleanly
type ResolveResult struct {
	Request     *models.ApprovalRequest `json:"request"`
	EffectError string                  `json:"effect_error,omitempty"`
}

// Service coordinates the approval workflow
type Service struct {
	store    ApprovalStore
	appliers map[models.ApprovalRequestType]EffectApplier
	emitter  *events.Emitter
	audit    *audit.Sink
	logger   ectologger.Logger
}

// NewService creates a new approvals service
func NewService(store ApprovalStore, emitter *events.Emitter, auditSink *audit.Sink, logger ectologger.Logger) *Service {
	return &Service{
		store:    store,
		appliers: make(map[models.ApprovalRequestType]EffectApplier),
		emitter:  emitter,
		audit:    auditSink,
		logger:   logger,
	}
}

// RegisterApplier registers the side-effect applier for a request type.
// Types without an applier approve cleanly with no side effect.
func (s *Service) RegisterApplier(requestType models.ApprovalRequestType, applier EffectApplier) {
	s.appliers[requestType] = applier
}

// Create opens a new pending approval request
func (s *Service) Create(ctx context.Context, tenantID string, requesterID string, request *models.CreateApprovalRequest) (*models.ApprovalRequest, error) {
	ctx, span := tracing.StartSpan(ctx, "approvals.Service.Create")
	defer span.End()

	if _, err := utils.Validate(request); err != nil {
		return nil, httperror.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if !request.RequestType.IsValid() {
		return nil, httperror.NewHTTPError(http.StatusBadRequest, fmt.Sprintf("unknown request type %q", request.RequestType))
	}
	if request.Priority != "" {
		switch request.Priority {
		case models.ApprovalPriorityLow, models.ApprovalPriorityNormal, models.ApprovalPriorityHigh, models.ApprovalPriorityUrgent:
		default:
			return nil, httperror.NewHTTPError(http.StatusBadRequest, fmt.Sprintf("unknown priority %q", request.Priority))
		}
	}
	if request.ExpiresAt != nil && request.ExpiresAt.Before(time.Now().UTC()) {
		return nil, httperror.NewHTTPError(http.StatusBadRequest, "expires_at must be in the future")
	}

	preview := request.EntityPreview
	if preview == nil {
		preview = map[string]any{}
	}

	created, err := s.store.Create(ctx, &models.ApprovalRequest{
		TenantID:      tenantID,
		RequestType:   request.RequestType,
		EntityType:    request.EntityType,
		EntityID:      request.EntityID,
		VenueID:       request.VenueID,
		RequestedBy:   requesterID,
		Notes:         request.Notes,
		Priority:      request.Priority,
		EntityPreview: database.NewJSONB(preview),
		ExpiresAt:     request.ExpiresAt,
	})
	if err != nil {
		return nil, err
	}

	s.emitter.EmitApprovalEvent(ctx, events.EventTypeApprovalCreated, tenantID, created.ID, string(created.RequestType), created.EntityType, created.EntityID, string(created.Status), "")

	return created, nil
}

// Get retrieves an approval request
func (s *Service) Get(ctx context.Context, tenantID string, requestID string) (*models.ApprovalRequest, error) {
	ctx, span := tracing.StartSpan(ctx, "approvals.Service.Get")
	defer span.End()

	return s.store.Get(ctx, tenantID, requestID)
}

// List retrieves approval requests, urgent first
func (s *Service) List(ctx context.Context, tenantID string, status models.ApprovalStatus, limit int) ([]models.ApprovalRequest, error) {
	ctx, span := tracing.StartSpan(ctx, "approvals.Service.List")
	defer span.End()

	return s.store.List(ctx, tenantID, status, limit)
}

// Approve resolves a pending request as approved and applies its side
// effect. Applier errors do not un-approve the request; they are surfaced
// in the result for the admin to retry or escalate.
func (s *Service) Approve(ctx context.Context, tenantID string, requestID string, resolverID string, notes string) (*ResolveResult, error) {
	ctx, span := tracing.StartSpan(ctx, "approvals.Service.Approve")
	defer span.End()

	request, err := s.resolve(ctx, tenantID, requestID, models.ApprovalStatusApproved, resolverID, notes)
	if err != nil {
		return nil, err
	}

	result := &ResolveResult{Request: request}
	if applier, ok := s.appliers[request.RequestType]; ok {
		if err := applier(ctx, request); err != nil {
			s.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
				"request_id":   requestID,
				"request_type": request.RequestType,
			}).Error("Approval side effect failed")
			result.EffectError = err.Error()
		}
	}

	s.audit.Record(ctx, tenantID, "approval.approve", "approval_request", requestID, resolverID, map[string]any{
		"request_type": string(request.RequestType),
		"entity_id":    request.EntityID,
	})

	return result, nil
}

// Reject resolves a pending request as rejected. A reason is required.
func (s *Service) Reject(ctx context.Context, tenantID string, requestID string, resolverID string, reason string) (*models.ApprovalRequest, error) {
	ctx, span := tracing.StartSpan(ctx, "approvals.Service.Reject")
	defer span.End()

	if reason == "" {
		return nil, httperror.NewHTTPError(http.StatusBadRequest, "a reason is required to reject an approval request")
	}

	request, err := s.resolve(ctx, tenantID, requestID, models.ApprovalStatusRejected, resolverID, reason)
	if err != nil {
		return nil, err
	}

	s.audit.Record(ctx, tenantID, "approval.reject", "approval_request", requestID, resolverID, map[string]any{
		"request_type": string(request.RequestType),
		"reason":       reason,
	})

	return request, nil
}

// Cancel resolves a pending request as cancelled by its requester
func (s *Service) Cancel(ctx context.Context, tenantID string, requestID string, requesterID string) (*models.ApprovalRequest, error) {
	ctx, span := tracing.StartSpan(ctx, "approvals.Service.Cancel")
	defer span.End()

	request, err := s.resolve(ctx, tenantID, requestID, models.ApprovalStatusCancelled, requesterID, "")
	if err != nil {
		return nil, err
	}

	s.audit.Record(ctx, tenantID, "approval.cancel", "approval_request", requestID, requesterID, nil)

	return request, nil
}

// resolve performs the single pending-to-terminal transition and emits the
// resolution event. A request that already left pending reports a conflict
// naming its current status.
func (s *Service) resolve(ctx context.Context, tenantID string, requestID string, status models.ApprovalStatus, resolverID string, notes string) (*models.ApprovalRequest, error) {
	ok, err := s.store.Resolve(ctx, tenantID, requestID, status, resolverID, notes)
	if err != nil {
		return nil, err
	}
	if !ok {
		request, getErr := s.store.Get(ctx, tenantID, requestID)
		if getErr != nil {
			return nil, getErr
		}
		return nil, httperror.NewHTTPError(http.StatusConflict, fmt.Sprintf("approval request is already %s", request.Status))
	}

	request, err := s.store.Get(ctx, tenantID, requestID)
	if err != nil {
		return nil, err
	}

	metrics.RecordApprovalResolution(tenantID, string(status))
	s.emitter.EmitApprovalEvent(ctx, events.EventTypeApprovalResolved, tenantID, request.ID, string(request.RequestType), request.EntityType, request.EntityID, string(status), resolverID)

	return request, nil
}

// ExpireDue flips pending requests past their expiry to expired
func (s *Service) ExpireDue(ctx context.Context, now time.Time) (int64, error) {
	ctx, span := tracing.StartSpan(ctx, "approvals.Service.ExpireDue")
	defer span.End()

	expired, err := s.store.ExpireDue(ctx, now)
	if err != nil {
		return 0, err
	}

	if expired > 0 {
		metrics.ApprovalsExpiredTotal.Add(float64(expired))
		s.logger.WithContext(ctx).WithFields(map[string]any{"count": expired}).Info("Expired stale approval requests")
	}

	return expired, nil
}
