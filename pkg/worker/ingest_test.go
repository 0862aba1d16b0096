package worker

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ramsey-B/clover/pkg/logging"
	"github.com/Ramsey-B/clover/pkg/models"
)

func floatPtr(f float64) *float64 { return &f }

func newCleanWorker(minConfidence float64) *IngestWorker {
	return NewIngestWorker(nil, nil, nil, nil, nil, IngestConfig{MinConfidence: minConfidence}, logging.NewNopLogger())
}

func TestCleanItems(t *testing.T) {
	w := newCleanWorker(0.5)

	t.Run("nameless rows are dropped", func(t *testing.T) {
		cleaned := w.cleanItems([]models.ParsedItem{
			{Name: ""},
			{Name: "Mint Tea", Price: floatPtr(2.5)},
		})
		require.Len(t, cleaned, 1)
		assert.Equal(t, "Mint Tea", cleaned[0].Name)
	})

	t.Run("confidence is clamped into range", func(t *testing.T) {
		cleaned := w.cleanItems([]models.ParsedItem{
			{Name: "A", Price: floatPtr(1), Confidence: floatPtr(1.7)},
			{Name: "B", Price: floatPtr(1), Confidence: floatPtr(-0.2)},
		})
		require.Len(t, cleaned, 2)
		assert.Equal(t, 1.0, *cleaned[0].Confidence)
		assert.Equal(t, 0.0, *cleaned[1].Confidence)
	})

	t.Run("low confidence rows carry a warning", func(t *testing.T) {
		cleaned := w.cleanItems([]models.ParsedItem{
			{Name: "A", Price: floatPtr(1), Confidence: floatPtr(0.3)},
			{Name: "B", Price: floatPtr(1), Confidence: floatPtr(0.9)},
		})
		require.Len(t, cleaned, 2)
		assert.Contains(t, cleaned[0].Warnings, "low confidence")
		assert.NotContains(t, cleaned[1].Warnings, "low confidence")
	})

	t.Run("missing price carries a warning", func(t *testing.T) {
		cleaned := w.cleanItems([]models.ParsedItem{
			{Name: "A"},
			{Name: "B", Price: floatPtr(3.0)},
		})
		require.Len(t, cleaned, 2)
		assert.Contains(t, cleaned[0].Warnings, "no price detected")
		assert.Empty(t, cleaned[1].Warnings)
	})
}
