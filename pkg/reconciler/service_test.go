package reconciler

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

type fakeStagingStore struct {
	items   []models.StagingItem
	actions map[string]models.StagingAction

	publishResult *models.PublishResult
	publishCalls  int
}

func newFakeStagingStore() *fakeStagingStore {
	return &fakeStagingStore{actions: make(map[string]models.StagingAction)}
}

func (f *fakeStagingStore) ReplaceForJob(_ context.Context, _ string, _ string, _ string, items []models.ParsedItem) (int, error) {
	return len(items), nil
}

func (f *fakeStagingStore) ListByJob(_ context.Context, _ string, _ string) ([]models.StagingItem, error) {
	return f.items, nil
}

func (f *fakeStagingStore) UpdateAction(_ context.Context, _ string, itemID string, action models.StagingAction) error {
	f.actions[itemID] = action
	return nil
}

func (f *fakeStagingStore) PublishApproved(_ context.Context, _ string, _ string, _ string, _ string) (*models.PublishResult, error) {
	f.publishCalls++
	return f.publishResult, nil
}

func newTestService(store *fakeStagingStore) *Service {
	logger := logging.NewNopLogger()
	return NewService(store, events.NewEmitter(nil, logger), audit.NewSink(nil, logger), logger)
}

func TestUpdateStagingAction(t *testing.T) {
	store := newFakeStagingStore()
	svc := newTestService(store)

	t.Run("valid action is recorded", func(t *testing.T) {
		err := svc.UpdateStagingAction(context.Background(), "tenant-1", "item-1", &models.UpdateStagingActionRequest{Action: models.StagingActionDrop})
		require.NoError(t, err)
		assert.Equal(t, models.StagingActionDrop, store.actions["item-1"])
	})

	t.Run("unknown action is rejected", func(t *testing.T) {
		err := svc.UpdateStagingAction(context.Background(), "tenant-1", "item-1", &models.UpdateStagingActionRequest{Action: "publish"})
		require.Error(t, err)
		assert.Equal(t, http.StatusBadRequest, httperror.GetStatusCode(err))
	})

	t.Run("missing action is rejected", func(t *testing.T) {
		err := svc.UpdateStagingAction(context.Background(), "tenant-1", "item-1", &models.UpdateStagingActionRequest{})
		require.Error(t, err)
		assert.Equal(t, http.StatusBadRequest, httperror.GetStatusCode(err))
	})
}

func TestPublish(t *testing.T) {
	t.Run("publish reports counts", func(t *testing.T) {
		store := newFakeStagingStore()
		store.publishResult = &models.PublishResult{Published: 5, DefaultedPrices: 2}
		svc := newTestService(store)

		result, err := svc.Publish(context.Background(), "tenant-1", "job-1", &models.PublishRequest{VenueID: "venue-1", Currency: "EUR"})
		require.NoError(t, err)
		assert.Equal(t, 5, result.Published)
		assert.Equal(t, 2, result.DefaultedPrices)
	})

	t.Run("already published is a no-op", func(t *testing.T) {
		store := newFakeStagingStore()
		store.publishResult = &models.PublishResult{AlreadyPublished: true}
		svc := newTestService(store)

		result, err := svc.Publish(context.Background(), "tenant-1", "job-1", &models.PublishRequest{VenueID: "venue-1", Currency: "EUR"})
		require.NoError(t, err)
		assert.True(t, result.AlreadyPublished)
		assert.Zero(t, result.Published)
	})

	t.Run("currency must be three letters", func(t *testing.T) {
		svc := newTestService(newFakeStagingStore())

		_, err := svc.Publish(context.Background(), "tenant-1", "job-1", &models.PublishRequest{VenueID: "venue-1", Currency: "EURO"})
		require.Error(t, err)
		assert.Equal(t, http.StatusBadRequest, httperror.GetStatusCode(err))
	})

	t.Run("venue is required", func(t *testing.T) {
		svc := newTestService(newFakeStagingStore())

		_, err := svc.Publish(context.Background(), "tenant-1", "job-1", &models.PublishRequest{Currency: "EUR"})
		require.Error(t, err)
		assert.Equal(t, http.StatusBadRequest, httperror.GetStatusCode(err))
	})
}
