package lifecycle

import (
	"context"
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

type fakeJobStore struct {
	jobs map[string]*models.IngestJob

	transitionOK bool
	requeueOK    bool
	failOK       bool

	requeuedCode string
	requeuedAt   *time.Time
	failedCode   string
}

func newFakeJobStore() *fakeJobStore {
	return &fakeJobStore{
		jobs:         make(map[string]*models.IngestJob),
		transitionOK: true,
		requeueOK:    true,
		failOK:       true,
	}
}

func (f *fakeJobStore) Create(_ context.Context, job *models.IngestJob) (*models.IngestJob, error) {
	job.ID = "job-1"
	job.Status = models.IngestJobStatusPending
	f.jobs[job.ID] = job
	return job, nil
}

func (f *fakeJobStore) Get(_ context.Context, _ string, id string) (*models.IngestJob, error) {
	job, ok := f.jobs[id]
	if !ok {
		return nil, httperror.NewHTTPError(http.StatusNotFound, "ingest job not found")
	}
	return job, nil
}

func (f *fakeJobStore) ListByVenue(_ context.Context, _ string, _ string, page, pageSize int) (*models.IngestJobListResponse, error) {
	return &models.IngestJobListResponse{Page: page, PageSize: pageSize}, nil
}

func (f *fakeJobStore) TransitionStatus(_ context.Context, _ string, id string, _, to models.IngestJobStatus) (bool, error) {
	if !f.transitionOK {
		return false, nil
	}
	f.jobs[id].Status = to
	return true, nil
}

func (f *fakeJobStore) Requeue(_ context.Context, _ string, id string, errCode, _ string, nextAttemptAt time.Time) (bool, error) {
	if !f.requeueOK {
		return false, nil
	}
	f.requeuedCode = errCode
	f.requeuedAt = &nextAttemptAt
	f.jobs[id].Status = models.IngestJobStatusPending
	f.jobs[id].AttemptCount++
	return true, nil
}

func (f *fakeJobStore) Fail(_ context.Context, _ string, id string, errCode, _ string) (bool, error) {
	if !f.failOK {
		return false, nil
	}
	f.failedCode = errCode
	f.jobs[id].Status = models.IngestJobStatusFailed
	return true, nil
}

func (f *fakeJobStore) ClaimDue(_ context.Context, _ int) ([]models.IngestJob, error) {
	return nil, nil
}

func newTestController(store *fakeJobStore) *Controller {
	logger := logging.NewNopLogger()
	return NewController(store, events.NewEmitter(nil, logger), audit.NewSink(nil, logger), Config{
		MaxAttempts:    3,
		RetryBaseDelay: 30 * time.Second,
	}, logger)
}

func TestCreateJob(t *testing.T) {
	store := newFakeJobStore()
	controller := newTestController(store)

	t.Run("valid request creates a pending job", func(t *testing.T) {
		job, err := controller.CreateJob(context.Background(), "tenant-1", &models.CreateIngestJobRequest{
			VenueID:  "venue-1",
			FilePath: "menus/venue-1/photo.jpg",
		})
		require.NoError(t, err)
		assert.Equal(t, models.IngestJobStatusPending, job.Status)
		assert.Equal(t, "venue-1", job.VenueID)
	})

	t.Run("missing fields are rejected", func(t *testing.T) {
		_, err := controller.CreateJob(context.Background(), "tenant-1", &models.CreateIngestJobRequest{VenueID: "venue-1"})
		require.Error(t, err)
		assert.Equal(t, http.StatusBadRequest, httperror.GetStatusCode(err))
	})
}

func TestTransition(t *testing.T) {
	t.Run("legal transition succeeds", func(t *testing.T) {
		store := newFakeJobStore()
		store.jobs["job-1"] = &models.IngestJob{ID: "job-1", Status: models.IngestJobStatusPending}
		controller := newTestController(store)

		job, err := controller.Transition(context.Background(), "tenant-1", "job-1", models.IngestJobStatusRunning)
		require.NoError(t, err)
		assert.Equal(t, models.IngestJobStatusRunning, job.Status)
	})

	t.Run("unknown status is rejected", func(t *testing.T) {
		store := newFakeJobStore()
		controller := newTestController(store)

		_, err := controller.Transition(context.Background(), "tenant-1", "job-1", models.IngestJobStatus("archived"))
		require.Error(t, err)
		assert.Equal(t, http.StatusBadRequest, httperror.GetStatusCode(err))
	})

	t.Run("illegal transition conflicts", func(t *testing.T) {
		store := newFakeJobStore()
		store.jobs["job-1"] = &models.IngestJob{ID: "job-1", Status: models.IngestJobStatusPending}
		controller := newTestController(store)

		_, err := controller.Transition(context.Background(), "tenant-1", "job-1", models.IngestJobStatusPublished)
		require.Error(t, err)
		assert.Equal(t, http.StatusConflict, httperror.GetStatusCode(err))
	})

	t.Run("lost race conflicts", func(t *testing.T) {
		store := newFakeJobStore()
		store.jobs["job-1"] = &models.IngestJob{ID: "job-1", Status: models.IngestJobStatusPending}
		store.transitionOK = false
		controller := newTestController(store)

		_, err := controller.Transition(context.Background(), "tenant-1", "job-1", models.IngestJobStatusRunning)
		require.Error(t, err)
		assert.Equal(t, http.StatusConflict, httperror.GetStatusCode(err))
	})
}

func TestHandleParserFailure(t *testing.T) {
	t.Run("retryable error with attempts remaining requeues", func(t *testing.T) {
		store := newFakeJobStore()
		store.jobs["job-1"] = &models.IngestJob{ID: "job-1", TenantID: "tenant-1", Status: models.IngestJobStatusRunning, AttemptCount: 0}
		controller := newTestController(store)

		before := time.Now().UTC()
		err := controller.HandleParserFailure(context.Background(), store.jobs["job-1"], models.IngestErrorOCRFailed, "upstream timeout")
		require.NoError(t, err)

		assert.Equal(t, models.IngestErrorOCRFailed, store.requeuedCode)
		require.NotNil(t, store.requeuedAt)
		// First retry waits the base delay
		assert.WithinDuration(t, before.Add(30*time.Second), *store.requeuedAt, 2*time.Second)
	})

	t.Run("backoff doubles per attempt already made", func(t *testing.T) {
		store := newFakeJobStore()
		store.jobs["job-1"] = &models.IngestJob{ID: "job-1", TenantID: "tenant-1", Status: models.IngestJobStatusRunning, AttemptCount: 1}
		controller := newTestController(store)

		before := time.Now().UTC()
		err := controller.HandleParserFailure(context.Background(), store.jobs["job-1"], models.IngestErrorDBError, "deadlock")
		require.NoError(t, err)
		require.NotNil(t, store.requeuedAt)
		assert.WithinDuration(t, before.Add(60*time.Second), *store.requeuedAt, 2*time.Second)
	})

	t.Run("missing file fails immediately", func(t *testing.T) {
		store := newFakeJobStore()
		store.jobs["job-1"] = &models.IngestJob{ID: "job-1", TenantID: "tenant-1", Status: models.IngestJobStatusRunning, AttemptCount: 0}
		controller := newTestController(store)

		err := controller.HandleParserFailure(context.Background(), store.jobs["job-1"], models.IngestErrorFileNotFound, "object missing")
		require.NoError(t, err)
		assert.Equal(t, models.IngestErrorFileNotFound, store.failedCode)
		assert.Empty(t, store.requeuedCode)
	})

	t.Run("exhausted attempts fail terminally", func(t *testing.T) {
		store := newFakeJobStore()
		store.jobs["job-1"] = &models.IngestJob{ID: "job-1", TenantID: "tenant-1", Status: models.IngestJobStatusRunning, AttemptCount: 2}
		controller := newTestController(store)

		err := controller.HandleParserFailure(context.Background(), store.jobs["job-1"], models.IngestErrorOCRFailed, "upstream timeout")
		require.NoError(t, err)
		assert.Equal(t, models.IngestErrorOCRFailed, store.failedCode)
		assert.Empty(t, store.requeuedCode)
	})

	t.Run("requeue race conflicts", func(t *testing.T) {
		store := newFakeJobStore()
		store.jobs["job-1"] = &models.IngestJob{ID: "job-1", TenantID: "tenant-1", Status: models.IngestJobStatusRunning}
		store.requeueOK = false
		controller := newTestController(store)

		err := controller.HandleParserFailure(context.Background(), store.jobs["job-1"], models.IngestErrorOCRFailed, "upstream timeout")
		require.Error(t, err)
		assert.Equal(t, http.StatusConflict, httperror.GetStatusCode(err))
	})
}

func TestRetryDelay(t *testing.T) {
	controller := newTestController(newFakeJobStore())

	assert.Equal(t, 30*time.Second, controller.RetryDelay(0))
	assert.Equal(t, 60*time.Second, controller.RetryDelay(1))
	assert.Equal(t, 120*time.Second, controller.RetryDelay(2))
}
