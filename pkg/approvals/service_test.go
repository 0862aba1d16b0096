package approvals

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ramsey-B/clover/pkg/audit"
	"github.com/Ramsey-B/clover/pkg/events"
	"github.com/Ramsey-B/clover/pkg/logging"
	"github.com/Ramsey-B/clover/pkg/models"
)

type fakeApprovalStore struct {
	requests map[string]*models.ApprovalRequest
	expired  int64
}

func newFakeApprovalStore() *fakeApprovalStore {
	return &fakeApprovalStore{requests: make(map[string]*models.ApprovalRequest)}
}

func (f *fakeApprovalStore) Create(_ context.Context, request *models.ApprovalRequest) (*models.ApprovalRequest, error) {
	request.ID = "approval-1"
	request.Status = models.ApprovalStatusPending
	f.requests[request.ID] = request
	return request, nil
}

func (f *fakeApprovalStore) Get(_ context.Context, _ string, id string) (*models.ApprovalRequest, error) {
	request, ok := f.requests[id]
	if !ok {
		return nil, httperror.NewHTTPError(http.StatusNotFound, "approval request not found")
	}
	copied := *request
	return &copied, nil
}

func (f *fakeApprovalStore) List(_ context.Context, _ string, _ models.ApprovalStatus, _ int) ([]models.ApprovalRequest, error) {
	return nil, nil
}

func (f *fakeApprovalStore) Resolve(_ context.Context, _ string, id string, status models.ApprovalStatus, resolverID string, notes string) (bool, error) {
	request, ok := f.requests[id]
	if !ok || request.Status.IsTerminal() {
		return false, nil
	}
	request.Status = status
	request.ResolvedBy = &resolverID
	if notes != "" {
		request.ResolutionNotes = &notes
	}
	return true, nil
}

func (f *fakeApprovalStore) ExpireDue(_ context.Context, _ time.Time) (int64, error) {
	return f.expired, nil
}

func newTestService(store *fakeApprovalStore) *Service {
	logger := logging.NewNopLogger()
	return NewService(store, events.NewEmitter(nil, logger), audit.NewSink(nil, logger), logger)
}

func pendingRequest(requestType models.ApprovalRequestType) *models.ApprovalRequest {
	return &models.ApprovalRequest{
		ID:          "approval-1",
		TenantID:    "tenant-1",
		RequestType: requestType,
		EntityType:  "ingest_job",
		EntityID:    "job-1",
		Status:      models.ApprovalStatusPending,
	}
}

func TestCreateApproval(t *testing.T) {
	svc := newTestService(newFakeApprovalStore())

	t.Run("valid request opens pending", func(t *testing.T) {
		created, err := svc.Create(context.Background(), "tenant-1", "user-1", &models.CreateApprovalRequest{
			RequestType: models.ApprovalTypeMenuPublish,
			EntityType:  "ingest_job",
			EntityID:    "job-1",
		})
		require.NoError(t, err)
		assert.Equal(t, models.ApprovalStatusPending, created.Status)
		assert.NotNil(t, created.EntityPreview.GetValue())
	})

	t.Run("unknown request type is rejected", func(t *testing.T) {
		_, err := svc.Create(context.Background(), "tenant-1", "user-1", &models.CreateApprovalRequest{
			RequestType: "menu_unpublish",
			EntityType:  "ingest_job",
			EntityID:    "job-1",
		})
		require.Error(t, err)
		assert.Equal(t, http.StatusBadRequest, httperror.GetStatusCode(err))
	})

	t.Run("unknown priority is rejected", func(t *testing.T) {
		_, err := svc.Create(context.Background(), "tenant-1", "user-1", &models.CreateApprovalRequest{
			RequestType: models.ApprovalTypeMenuPublish,
			EntityType:  "ingest_job",
			EntityID:    "job-1",
			Priority:    "critical",
		})
		require.Error(t, err)
		assert.Equal(t, http.StatusBadRequest, httperror.GetStatusCode(err))
	})

	t.Run("past expiry is rejected", func(t *testing.T) {
		past := time.Now().UTC().Add(-time.Hour)
		_, err := svc.Create(context.Background(), "tenant-1", "user-1", &models.CreateApprovalRequest{
			RequestType: models.ApprovalTypeMenuPublish,
			EntityType:  "ingest_job",
			EntityID:    "job-1",
			ExpiresAt:   &past,
		})
		require.Error(t, err)
		assert.Equal(t, http.StatusBadRequest, httperror.GetStatusCode(err))
	})
}

func TestApprove(t *testing.T) {
	t.Run("approval flips status and runs the applier", func(t *testing.T) {
		store := newFakeApprovalStore()
		store.requests["approval-1"] = pendingRequest(models.ApprovalTypeMenuPublish)
		svc := newTestService(store)

		applied := false
		svc.RegisterApplier(models.ApprovalTypeMenuPublish, func(_ context.Context, request *models.ApprovalRequest) error {
			applied = true
			assert.Equal(t, models.ApprovalStatusApproved, request.Status)
			return nil
		})

		result, err := svc.Approve(context.Background(), "tenant-1", "approval-1", "admin-1", "")
		require.NoError(t, err)
		assert.True(t, applied)
		assert.Empty(t, result.EffectError)
		assert.Equal(t, models.ApprovalStatusApproved, result.Request.Status)
	})

	t.Run("applier failure surfaces but does not un-approve", func(t *testing.T) {
		store := newFakeApprovalStore()
		store.requests["approval-1"] = pendingRequest(models.ApprovalTypeMenuPublish)
		svc := newTestService(store)
		svc.RegisterApplier(models.ApprovalTypeMenuPublish, func(_ context.Context, _ *models.ApprovalRequest) error {
			return errors.New("publish blew up")
		})

		result, err := svc.Approve(context.Background(), "tenant-1", "approval-1", "admin-1", "")
		require.NoError(t, err)
		assert.Equal(t, "publish blew up", result.EffectError)
		assert.Equal(t, models.ApprovalStatusApproved, store.requests["approval-1"].Status)
	})

	t.Run("type without an applier approves cleanly", func(t *testing.T) {
		store := newFakeApprovalStore()
		store.requests["approval-1"] = pendingRequest(models.ApprovalTypeResearchProposal)
		svc := newTestService(store)

		result, err := svc.Approve(context.Background(), "tenant-1", "approval-1", "admin-1", "")
		require.NoError(t, err)
		assert.Empty(t, result.EffectError)
	})

	t.Run("resolved request conflicts with its current status", func(t *testing.T) {
		store := newFakeApprovalStore()
		request := pendingRequest(models.ApprovalTypeMenuPublish)
		request.Status = models.ApprovalStatusRejected
		store.requests["approval-1"] = request
		svc := newTestService(store)

		_, err := svc.Approve(context.Background(), "tenant-1", "approval-1", "admin-1", "")
		require.Error(t, err)
		assert.Equal(t, http.StatusConflict, httperror.GetStatusCode(err))
		assert.Contains(t, err.Error(), "rejected")
	})
}

func TestReject(t *testing.T) {
	t.Run("a reason is required", func(t *testing.T) {
		svc := newTestService(newFakeApprovalStore())

		_, err := svc.Reject(context.Background(), "tenant-1", "approval-1", "admin-1", "")
		require.Error(t, err)
		assert.Equal(t, http.StatusBadRequest, httperror.GetStatusCode(err))
	})

	t.Run("rejection records the reason", func(t *testing.T) {
		store := newFakeApprovalStore()
		store.requests["approval-1"] = pendingRequest(models.ApprovalTypeMenuPublish)
		svc := newTestService(store)

		request, err := svc.Reject(context.Background(), "tenant-1", "approval-1", "admin-1", "prices look wrong")
		require.NoError(t, err)
		assert.Equal(t, models.ApprovalStatusRejected, request.Status)
		require.NotNil(t, request.ResolutionNotes)
		assert.Equal(t, "prices look wrong", *request.ResolutionNotes)
	})
}

func TestCancel(t *testing.T) {
	store := newFakeApprovalStore()
	store.requests["approval-1"] = pendingRequest(models.ApprovalTypeMenuPublish)
	svc := newTestService(store)

	request, err := svc.Cancel(context.Background(), "tenant-1", "approval-1", "user-1")
	require.NoError(t, err)
	assert.Equal(t, models.ApprovalStatusCancelled, request.Status)
}

func TestExpireDue(t *testing.T) {
	store := newFakeApprovalStore()
	store.expired = 4
	svc := newTestService(store)

	expired, err := svc.ExpireDue(context.Background(), time.Now().UTC())
	require.NoError(t, err)
	assert.Equal(t, int64(4), expired)
}
