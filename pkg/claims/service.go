// Package claims owns venue ownership transfer: the fast-path claim flow
// and the formal onboarding request flow. Admin decisions are gated through
// conditional updates so two admins cannot both hand over the same venue.
package claims

import (
	"context"
	"net/http"

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

// VenueStore is the persistence surface for venues and claim transitions
type VenueStore interface {
	Get(ctx context.Context, tenantID string, id string) (*models.Venue, error)
	ListByClaimState(ctx context.Context, tenantID string, state models.ClaimState, limit int) ([]models.Venue, error)
	SubmitClaim(ctx context.Context, tenantID string, venueID string, ownerEmail, ownerPin string) error
	ApproveClaim(ctx context.Context, tenantID string, venueID string, ownerID string) (bool, error)
	RejectClaim(ctx context.Context, tenantID string, venueID string) (bool, error)
	RevokeClaim(ctx context.Context, tenantID string, venueID string) (bool, error)
}

// OnboardingStore is the persistence surface for onboarding requests
type OnboardingStore interface {
	Create(ctx context.Context, request *models.OnboardingRequest) (*models.OnboardingRequest, error)
	Get(ctx context.Context, tenantID string, id string) (*models.OnboardingRequest, error)
	ListPending(ctx context.Context, tenantID string, limit int) ([]models.OnboardingRequest, error)
	Approve(ctx context.Context, tenantID string, id string, reviewerID string, adminNotes string) (*models.OnboardingRequest, error)
	Reject(ctx context.Context, tenantID string, id string, reviewerID string, adminNotes string) (*models.OnboardingRequest, error)
}

// UserDirectory resolves account emails to user IDs. Returns an empty ID
// when no account exists for the email.
type UserDirectory interface {
	LookupByEmail(ctx context.Context, email string) (string, error)
}

// MenuStore reads the live menu for a venue
type MenuStore interface {
	ListByVenue(ctx context.Context, tenantID string, venueID string) ([]models.MenuItem, error)
}

// Service coordinates the claim and onboarding workflows
type Service struct {
	venues     VenueStore
	onboarding OnboardingStore
	directory  UserDirectory
	menu       MenuStore
	emitter    *events.Emitter
	audit      *audit.Sink
	logger     ectologger.Logger
}

// NewService creates a new claims service
func NewService(venues VenueStore, onboarding OnboardingStore, directory UserDirectory, menu MenuStore, emitter *events.Emitter, auditSink *audit.Sink, logger ectologger.Logger) *Service {
	return &Service{
		venues:     venues,
		onboarding: onboarding,
		directory:  directory,
		menu:       menu,
		emitter:    emitter,
		audit:      auditSink,
		logger:     logger,
	}
}

// GetVenue retrieves a venue
func (s *Service) GetVenue(ctx context.Context, tenantID string, venueID string) (*models.Venue, error) {
	ctx, span := tracing.StartSpan(ctx, "claims.Service.GetVenue")
	defer span.End()

	return s.venues.Get(ctx, tenantID, venueID)
}

// ListVenues retrieves venues filtered by claim state
func (s *Service) ListVenues(ctx context.Context, tenantID string, state models.ClaimState, limit int) ([]models.Venue, error) {
	ctx, span := tracing.StartSpan(ctx, "claims.Service.ListVenues")
	defer span.End()

	return s.venues.ListByClaimState(ctx, tenantID, state, limit)
}

// GetMenu retrieves the live menu for a venue. The venue is fetched first
// so an unknown venue answers 404 instead of an empty list.
func (s *Service) GetMenu(ctx context.Context, tenantID string, venueID string) ([]models.MenuItem, error) {
	ctx, span := tracing.StartSpan(ctx, "claims.Service.GetMenu")
	defer span.End()

	if _, err := s.venues.Get(ctx, tenantID, venueID); err != nil {
		return nil, err
	}

	return s.menu.ListByVenue(ctx, tenantID, venueID)
}

// SubmitClaim records a pending ownership claim on an unclaimed venue
func (s *Service) SubmitClaim(ctx context.Context, tenantID string, venueID string, request *models.SubmitClaimRequest) error {
	ctx, span := tracing.StartSpan(ctx, "claims.Service.SubmitClaim")
	defer span.End()

	if _, err := utils.Validate(request); err != nil {
		return httperror.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	if err := s.venues.SubmitClaim(ctx, tenantID, venueID, request.OwnerEmail, request.OwnerPin); err != nil {
		return err
	}

	metrics.RecordClaimDecision(tenantID, "submitted")
	s.emitter.EmitClaimEvent(ctx, events.EventTypeClaimSubmitted, tenantID, venueID, string(models.ClaimStatePending), "")
	s.audit.Record(ctx, tenantID, "venue_claim.submit", "venue", venueID, "", map[string]any{
		"owner_email": request.OwnerEmail,
	})

	return nil
}

// ApproveClaim hands the venue to the account behind the pending claim's
// email. Approving a venue that is already claimed is a no-op success so a
// double-clicking admin does not see a spurious failure.
func (s *Service) ApproveClaim(ctx context.Context, tenantID string, venueID string, approverID string) (*models.Venue, error) {
	ctx, span := tracing.StartSpan(ctx, "claims.Service.ApproveClaim")
	defer span.End()

	venue, err := s.venues.Get(ctx, tenantID, venueID)
	if err != nil {
		return nil, err
	}

	switch venue.ClaimState() {
	case models.ClaimStateClaimed:
		return venue, nil
	case models.ClaimStateUnclaimed:
		return nil, httperror.NewHTTPError(http.StatusConflict, "venue has no pending claim")
	}

	ownerID, err := s.directory.LookupByEmail(ctx, *venue.OwnerEmail)
	if err != nil {
		s.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"venue_id": venueID}).Error("Failed to look up claim owner")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to approve venue claim")
	}
	if ownerID == "" {
		return nil, httperror.NewHTTPError(http.StatusBadRequest, "User account not found. Owner must sign up first.")
	}

	ok, err := s.venues.ApproveClaim(ctx, tenantID, venueID, ownerID)
	if err != nil {
		return nil, err
	}
	if !ok {
		// Lost the race. If another admin finished the approval the call
		// still succeeded from this admin's point of view.
		venue, err = s.venues.Get(ctx, tenantID, venueID)
		if err != nil {
			return nil, err
		}
		if venue.Claimed {
			return venue, nil
		}
		return nil, httperror.NewHTTPError(http.StatusConflict, "venue has no pending claim")
	}

	metrics.RecordClaimDecision(tenantID, "approved")
	s.emitter.EmitClaimEvent(ctx, events.EventTypeClaimApproved, tenantID, venueID, string(models.ClaimStateClaimed), ownerID)
	s.audit.Record(ctx, tenantID, "venue_claim.approve", "venue", venueID, approverID, map[string]any{
		"owner_id": ownerID,
	})

	return s.venues.Get(ctx, tenantID, venueID)
}

// RejectClaim clears a pending claim, returning the venue to unclaimed
func (s *Service) RejectClaim(ctx context.Context, tenantID string, venueID string, approverID string) error {
	ctx, span := tracing.StartSpan(ctx, "claims.Service.RejectClaim")
	defer span.End()

	ok, err := s.venues.RejectClaim(ctx, tenantID, venueID)
	if err != nil {
		return err
	}
	if !ok {
		venue, getErr := s.venues.Get(ctx, tenantID, venueID)
		if getErr != nil {
			return getErr
		}
		if venue.Claimed {
			return httperror.NewHTTPError(http.StatusConflict, "venue is already claimed")
		}
		return httperror.NewHTTPError(http.StatusConflict, "venue has no pending claim")
	}

	metrics.RecordClaimDecision(tenantID, "rejected")
	s.emitter.EmitClaimEvent(ctx, events.EventTypeClaimRejected, tenantID, venueID, string(models.ClaimStateUnclaimed), "")
	s.audit.Record(ctx, tenantID, "venue_claim.reject", "venue", venueID, approverID, nil)

	return nil
}

// RevokeClaim strips active ownership from a claimed venue
func (s *Service) RevokeClaim(ctx context.Context, tenantID string, venueID string, approverID string) error {
	ctx, span := tracing.StartSpan(ctx, "claims.Service.RevokeClaim")
	defer span.End()

	ok, err := s.venues.RevokeClaim(ctx, tenantID, venueID)
	if err != nil {
		return err
	}
	if !ok {
		return httperror.NewHTTPError(http.StatusConflict, "venue is not claimed")
	}

	metrics.RecordClaimDecision(tenantID, "revoked")
	s.emitter.EmitClaimEvent(ctx, events.EventTypeClaimRevoked, tenantID, venueID, string(models.ClaimStateUnclaimed), "")
	s.audit.Record(ctx, tenantID, "venue_claim.revoke", "venue", venueID, approverID, nil)

	return nil
}

// SubmitOnboarding files a formal onboarding request for a venue. At most
// one pending request per venue is enforced by the store.
func (s *Service) SubmitOnboarding(ctx context.Context, tenantID string, submitterID string, request *models.CreateOnboardingRequest) (*models.OnboardingRequest, error) {
	ctx, span := tracing.StartSpan(ctx, "claims.Service.SubmitOnboarding")
	defer span.End()

	if _, err := utils.Validate(request); err != nil {
		return nil, httperror.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	venue, err := s.venues.Get(ctx, tenantID, request.VenueID)
	if err != nil {
		return nil, err
	}
	if venue.Claimed {
		return nil, httperror.NewHTTPError(http.StatusConflict, "venue is already claimed")
	}

	proposed := request.ProposedItems
	if proposed == nil {
		proposed = []models.ProposedMenuItem{}
	}

	created, err := s.onboarding.Create(ctx, &models.OnboardingRequest{
		TenantID:      tenantID,
		VenueID:       request.VenueID,
		SubmittedBy:   submitterID,
		ContactEmail:  request.ContactEmail,
		Whatsapp:      request.Whatsapp,
		RevolutLink:   request.RevolutLink,
		MomoCode:      request.MomoCode,
		ProposedItems: database.NewJSONB(proposed),
	})
	if err != nil {
		return nil, err
	}

	s.emitter.EmitOnboardingEvent(ctx, events.EventTypeOnboardingSubmitted, tenantID, created.ID, created.VenueID, string(created.Status), "", len(proposed))
	s.audit.Record(ctx, tenantID, "onboarding.submit", "onboarding_request", created.ID, submitterID, map[string]any{
		"venue_id": created.VenueID,
	})

	return created, nil
}

// GetOnboarding retrieves an onboarding request
func (s *Service) GetOnboarding(ctx context.Context, tenantID string, requestID string) (*models.OnboardingRequest, error) {
	ctx, span := tracing.StartSpan(ctx, "claims.Service.GetOnboarding")
	defer span.End()

	return s.onboarding.Get(ctx, tenantID, requestID)
}

// ListPendingOnboarding retrieves pending onboarding requests for review
func (s *Service) ListPendingOnboarding(ctx context.Context, tenantID string, limit int) ([]models.OnboardingRequest, error) {
	ctx, span := tracing.StartSpan(ctx, "claims.Service.ListPendingOnboarding")
	defer span.End()

	return s.onboarding.ListPending(ctx, tenantID, limit)
}

// ApproveOnboarding approves a pending onboarding request, transferring
// venue ownership and seeding the proposed menu in one transaction
func (s *Service) ApproveOnboarding(ctx context.Context, tenantID string, requestID string, reviewerID string, adminNotes string) (*models.OnboardingRequest, error) {
	ctx, span := tracing.StartSpan(ctx, "claims.Service.ApproveOnboarding")
	defer span.End()

	request, err := s.onboarding.Approve(ctx, tenantID, requestID, reviewerID, adminNotes)
	if err != nil {
		return nil, err
	}

	seeded := len(request.ProposedItems.GetValue())
	metrics.RecordOnboardingDecision(tenantID, "approved")
	s.emitter.EmitOnboardingEvent(ctx, events.EventTypeOnboardingApproved, tenantID, request.ID, request.VenueID, string(models.OnboardingStatusApproved), reviewerID, seeded)
	s.audit.Record(ctx, tenantID, "onboarding.approve", "onboarding_request", request.ID, reviewerID, map[string]any{
		"venue_id":     request.VenueID,
		"seeded_items": seeded,
	})

	return request, nil
}

// RejectOnboarding rejects a pending onboarding request
func (s *Service) RejectOnboarding(ctx context.Context, tenantID string, requestID string, reviewerID string, adminNotes string) (*models.OnboardingRequest, error) {
	ctx, span := tracing.StartSpan(ctx, "claims.Service.RejectOnboarding")
	defer span.End()

	request, err := s.onboarding.Reject(ctx, tenantID, requestID, reviewerID, adminNotes)
	if err != nil {
		return nil, err
	}

	metrics.RecordOnboardingDecision(tenantID, "rejected")
	s.emitter.EmitOnboardingEvent(ctx, events.EventTypeOnboardingRejected, tenantID, request.ID, request.VenueID, string(models.OnboardingStatusRejected), reviewerID, 0)
	s.audit.Record(ctx, tenantID, "onboarding.reject", "onboarding_request", request.ID, reviewerID, map[string]any{
		"venue_id": request.VenueID,
	})

	return request, nil
}
