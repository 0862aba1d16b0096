package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIngestJobStatusCanTransition(t *testing.T) {
	cases := []struct {
		from    IngestJobStatus
		to      IngestJobStatus
		allowed bool
	}{
		{IngestJobStatusPending, IngestJobStatusRunning, true},
		{IngestJobStatusPending, IngestJobStatusFailed, true},
		{IngestJobStatusPending, IngestJobStatusNeedsReview, false},
		{IngestJobStatusPending, IngestJobStatusPublished, false},
		{IngestJobStatusRunning, IngestJobStatusNeedsReview, true},
		{IngestJobStatusRunning, IngestJobStatusPending, true},
		{IngestJobStatusRunning, IngestJobStatusFailed, true},
		{IngestJobStatusRunning, IngestJobStatusPublished, false},
		{IngestJobStatusNeedsReview, IngestJobStatusPublished, true},
		{IngestJobStatusNeedsReview, IngestJobStatusFailed, true},
		{IngestJobStatusNeedsReview, IngestJobStatusRunning, false},
		{IngestJobStatusPublished, IngestJobStatusFailed, false},
		{IngestJobStatusPublished, IngestJobStatusPending, false},
		{IngestJobStatusFailed, IngestJobStatusPending, false},
		{IngestJobStatusFailed, IngestJobStatusRunning, false},
	}

	for _, tc := range cases {
		assert.Equal(t, tc.allowed, tc.from.CanTransition(tc.to), "%s -> %s", tc.from, tc.to)
	}
}

func TestIngestJobStatusIsTerminal(t *testing.T) {
	assert.True(t, IngestJobStatusPublished.IsTerminal())
	assert.True(t, IngestJobStatusFailed.IsTerminal())
	assert.False(t, IngestJobStatusPending.IsTerminal())
	assert.False(t, IngestJobStatusRunning.IsTerminal())
	assert.False(t, IngestJobStatusNeedsReview.IsTerminal())
}

func TestIngestJobStatusIsValid(t *testing.T) {
	assert.True(t, IngestJobStatusPending.IsValid())
	assert.True(t, IngestJobStatusNeedsReview.IsValid())
	assert.False(t, IngestJobStatus("archived").IsValid())
	assert.False(t, IngestJobStatus("").IsValid())
}

func TestIsRetryableIngestError(t *testing.T) {
	assert.True(t, IsRetryableIngestError(IngestErrorOCRFailed))
	assert.True(t, IsRetryableIngestError(IngestErrorInvalidJSON))
	assert.True(t, IsRetryableIngestError(IngestErrorDBError))

	// A missing file never resolves itself
	assert.False(t, IsRetryableIngestError(IngestErrorFileNotFound))
	assert.False(t, IsRetryableIngestError("SOMETHING_ELSE"))
	assert.False(t, IsRetryableIngestError(""))
}
