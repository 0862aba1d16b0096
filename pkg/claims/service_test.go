package claims

import (
	"context"
	"net/http"
	"testing"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ramsey-B/clover/pkg/audit"
	"github.com/Ramsey-B/clover/pkg/events"
	"github.com/Ramsey-B/clover/pkg/logging"
	"github.com/Ramsey-B/clover/pkg/models"
)

type fakeVenueStore struct {
	venues map[string]*models.Venue

	approveOK bool
	rejectOK  bool
	revokeOK  bool

	// claimedAfterRace makes Get report claimed after a failed ApproveClaim,
	// simulating another admin finishing first
	claimedAfterRace bool

	approvedOwnerID string
}

func newFakeVenueStore() *fakeVenueStore {
	return &fakeVenueStore{
		venues:    make(map[string]*models.Venue),
		approveOK: true,
		rejectOK:  true,
		revokeOK:  true,
	}
}

func (f *fakeVenueStore) Get(_ context.Context, _ string, id string) (*models.Venue, error) {
	venue, ok := f.venues[id]
	if !ok {
		return nil, httperror.NewHTTPError(http.StatusNotFound, "venue not found")
	}
	copied := *venue
	return &copied, nil
}

func (f *fakeVenueStore) ListByClaimState(_ context.Context, _ string, _ models.ClaimState, _ int) ([]models.Venue, error) {
	return nil, nil
}

func (f *fakeVenueStore) SubmitClaim(_ context.Context, _ string, venueID string, ownerEmail, ownerPin string) error {
	venue := f.venues[venueID]
	venue.OwnerEmail = &ownerEmail
	venue.OwnerPin = &ownerPin
	return nil
}

func (f *fakeVenueStore) ApproveClaim(_ context.Context, _ string, venueID string, ownerID string) (bool, error) {
	if !f.approveOK {
		if f.claimedAfterRace {
			f.venues[venueID].Claimed = true
		}
		return false, nil
	}
	f.approvedOwnerID = ownerID
	venue := f.venues[venueID]
	venue.Claimed = true
	venue.OwnerID = &ownerID
	venue.OwnerEmail = nil
	return true, nil
}

func (f *fakeVenueStore) RejectClaim(_ context.Context, _ string, venueID string) (bool, error) {
	if !f.rejectOK {
		return false, nil
	}
	f.venues[venueID].OwnerEmail = nil
	return true, nil
}

func (f *fakeVenueStore) RevokeClaim(_ context.Context, _ string, venueID string) (bool, error) {
	if !f.revokeOK {
		return false, nil
	}
	f.venues[venueID].Claimed = false
	return true, nil
}

type fakeOnboardingStore struct {
	created *models.OnboardingRequest
}

func (f *fakeOnboardingStore) Create(_ context.Context, request *models.OnboardingRequest) (*models.OnboardingRequest, error) {
	request.ID = "onboarding-1"
	request.Status = models.OnboardingStatusPending
	f.created = request
	return request, nil
}

func (f *fakeOnboardingStore) Get(_ context.Context, _ string, _ string) (*models.OnboardingRequest, error) {
	return f.created, nil
}

func (f *fakeOnboardingStore) ListPending(_ context.Context, _ string, _ int) ([]models.OnboardingRequest, error) {
	return nil, nil
}

func (f *fakeOnboardingStore) Approve(_ context.Context, _ string, _ string, reviewerID string, _ string) (*models.OnboardingRequest, error) {
	f.created.Status = models.OnboardingStatusApproved
	f.created.ReviewedBy = &reviewerID
	return f.created, nil
}

func (f *fakeOnboardingStore) Reject(_ context.Context, _ string, _ string, reviewerID string, _ string) (*models.OnboardingRequest, error) {
	f.created.Status = models.OnboardingStatusRejected
	f.created.ReviewedBy = &reviewerID
	return f.created, nil
}

type fakeDirectory struct {
	users map[string]string
	err   error
}

func (f *fakeDirectory) LookupByEmail(_ context.Context, email string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	return f.users[email], nil
}

type fakeMenuStore struct {
	items []models.MenuItem
}

func (f *fakeMenuStore) ListByVenue(_ context.Context, _ string, _ string) ([]models.MenuItem, error) {
	return f.items, nil
}

func newTestService(venues *fakeVenueStore, directory *fakeDirectory) (*Service, *fakeOnboardingStore) {
	logger := logging.NewNopLogger()
	onboardingStore := &fakeOnboardingStore{}
	if directory == nil {
		directory = &fakeDirectory{users: map[string]string{}}
	}
	svc := NewService(venues, onboardingStore, directory, &fakeMenuStore{}, events.NewEmitter(nil, logger), audit.NewSink(nil, logger), logger)
	return svc, onboardingStore
}

func pendingVenue(email string) *models.Venue {
	return &models.Venue{ID: "venue-1", TenantID: "tenant-1", Name: "Cafe Sol", OwnerEmail: &email}
}

func TestSubmitClaim(t *testing.T) {
	t.Run("valid claim is recorded", func(t *testing.T) {
		venues := newFakeVenueStore()
		venues.venues["venue-1"] = &models.Venue{ID: "venue-1"}
		svc, _ := newTestService(venues, nil)

		err := svc.SubmitClaim(context.Background(), "tenant-1", "venue-1", &models.SubmitClaimRequest{OwnerEmail: "owner@example.com"})
		require.NoError(t, err)
		assert.Equal(t, models.ClaimStatePending, venues.venues["venue-1"].ClaimState())
	})

	t.Run("invalid email is rejected", func(t *testing.T) {
		svc, _ := newTestService(newFakeVenueStore(), nil)

		err := svc.SubmitClaim(context.Background(), "tenant-1", "venue-1", &models.SubmitClaimRequest{OwnerEmail: "not-an-email"})
		require.Error(t, err)
		assert.Equal(t, http.StatusBadRequest, httperror.GetStatusCode(err))
	})
}

func TestApproveClaim(t *testing.T) {
	t.Run("pending claim approves and links the owner", func(t *testing.T) {
		venues := newFakeVenueStore()
		venues.venues["venue-1"] = pendingVenue("owner@example.com")
		directory := &fakeDirectory{users: map[string]string{"owner@example.com": "user-9"}}
		svc, _ := newTestService(venues, directory)

		venue, err := svc.ApproveClaim(context.Background(), "tenant-1", "venue-1", "admin-1")
		require.NoError(t, err)
		assert.True(t, venue.Claimed)
		assert.Equal(t, "user-9", venues.approvedOwnerID)
	})

	t.Run("already claimed venue is a no-op success", func(t *testing.T) {
		venues := newFakeVenueStore()
		venues.venues["venue-1"] = &models.Venue{ID: "venue-1", Claimed: true}
		svc, _ := newTestService(venues, nil)

		venue, err := svc.ApproveClaim(context.Background(), "tenant-1", "venue-1", "admin-1")
		require.NoError(t, err)
		assert.True(t, venue.Claimed)
		assert.Empty(t, venues.approvedOwnerID)
	})

	t.Run("venue without a claim conflicts", func(t *testing.T) {
		venues := newFakeVenueStore()
		venues.venues["venue-1"] = &models.Venue{ID: "venue-1"}
		svc, _ := newTestService(venues, nil)

		_, err := svc.ApproveClaim(context.Background(), "tenant-1", "venue-1", "admin-1")
		require.Error(t, err)
		assert.Equal(t, http.StatusConflict, httperror.GetStatusCode(err))
	})

	t.Run("unknown owner account is rejected with guidance", func(t *testing.T) {
		venues := newFakeVenueStore()
		venues.venues["venue-1"] = pendingVenue("owner@example.com")
		svc, _ := newTestService(venues, &fakeDirectory{users: map[string]string{}})

		_, err := svc.ApproveClaim(context.Background(), "tenant-1", "venue-1", "admin-1")
		require.Error(t, err)
		assert.Equal(t, http.StatusBadRequest, httperror.GetStatusCode(err))
		assert.Contains(t, err.Error(), "must sign up first")
	})

	t.Run("losing the race to another approval still succeeds", func(t *testing.T) {
		venues := newFakeVenueStore()
		venues.venues["venue-1"] = pendingVenue("owner@example.com")
		venues.approveOK = false
		venues.claimedAfterRace = true
		directory := &fakeDirectory{users: map[string]string{"owner@example.com": "user-9"}}
		svc, _ := newTestService(venues, directory)

		venue, err := svc.ApproveClaim(context.Background(), "tenant-1", "venue-1", "admin-1")
		require.NoError(t, err)
		assert.True(t, venue.Claimed)
	})
}

func TestRejectClaim(t *testing.T) {
	t.Run("pending claim rejects cleanly", func(t *testing.T) {
		venues := newFakeVenueStore()
		venues.venues["venue-1"] = pendingVenue("owner@example.com")
		svc, _ := newTestService(venues, nil)

		err := svc.RejectClaim(context.Background(), "tenant-1", "venue-1", "admin-1")
		require.NoError(t, err)
		assert.Equal(t, models.ClaimStateUnclaimed, venues.venues["venue-1"].ClaimState())
	})

	t.Run("claimed venue conflicts", func(t *testing.T) {
		venues := newFakeVenueStore()
		venues.venues["venue-1"] = &models.Venue{ID: "venue-1", Claimed: true}
		venues.rejectOK = false
		svc, _ := newTestService(venues, nil)

		err := svc.RejectClaim(context.Background(), "tenant-1", "venue-1", "admin-1")
		require.Error(t, err)
		assert.Equal(t, http.StatusConflict, httperror.GetStatusCode(err))
		assert.Contains(t, err.Error(), "already claimed")
	})

	t.Run("venue without a claim conflicts", func(t *testing.T) {
		venues := newFakeVenueStore()
		venues.venues["venue-1"] = &models.Venue{ID: "venue-1"}
		venues.rejectOK = false
		svc, _ := newTestService(venues, nil)

		err := svc.RejectClaim(context.Background(), "tenant-1", "venue-1", "admin-1")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "no pending claim")
	})
}

func TestRevokeClaim(t *testing.T) {
	t.Run("claimed venue revokes", func(t *testing.T) {
		venues := newFakeVenueStore()
		venues.venues["venue-1"] = &models.Venue{ID: "venue-1", Claimed: true}
		svc, _ := newTestService(venues, nil)

		err := svc.RevokeClaim(context.Background(), "tenant-1", "venue-1", "admin-1")
		require.NoError(t, err)
		assert.False(t, venues.venues["venue-1"].Claimed)
	})

	t.Run("unclaimed venue conflicts", func(t *testing.T) {
		venues := newFakeVenueStore()
		venues.venues["venue-1"] = &models.Venue{ID: "venue-1"}
		venues.revokeOK = false
		svc, _ := newTestService(venues, nil)

		err := svc.RevokeClaim(context.Background(), "tenant-1", "venue-1", "admin-1")
		require.Error(t, err)
		assert.Equal(t, http.StatusConflict, httperror.GetStatusCode(err))
	})
}

func TestSubmitOnboarding(t *testing.T) {
	t.Run("valid submission defaults proposed items", func(t *testing.T) {
		venues := newFakeVenueStore()
		venues.venues["venue-1"] = &models.Venue{ID: "venue-1"}
		svc, store := newTestService(venues, nil)

		created, err := svc.SubmitOnboarding(context.Background(), "tenant-1", "user-1", &models.CreateOnboardingRequest{
			VenueID:      "venue-1",
			ContactEmail: "owner@example.com",
		})
		require.NoError(t, err)
		assert.Equal(t, models.OnboardingStatusPending, created.Status)
		assert.NotNil(t, store.created.ProposedItems.GetValue())
		assert.Empty(t, store.created.ProposedItems.GetValue())
	})

	t.Run("claimed venue conflicts", func(t *testing.T) {
		venues := newFakeVenueStore()
		venues.venues["venue-1"] = &models.Venue{ID: "venue-1", Claimed: true}
		svc, _ := newTestService(venues, nil)

		_, err := svc.SubmitOnboarding(context.Background(), "tenant-1", "user-1", &models.CreateOnboardingRequest{
			VenueID:      "venue-1",
			ContactEmail: "owner@example.com",
		})
		require.Error(t, err)
		assert.Equal(t, http.StatusConflict, httperror.GetStatusCode(err))
	})

	t.Run("invalid contact email is rejected", func(t *testing.T) {
		svc, _ := newTestService(newFakeVenueStore(), nil)

		_, err := svc.SubmitOnboarding(context.Background(), "tenant-1", "user-1", &models.CreateOnboardingRequest{
			VenueID:      "venue-1",
			ContactEmail: "nope",
		})
		require.Error(t, err)
		assert.Equal(t, http.StatusBadRequest, httperror.GetStatusCode(err))
	})
}
