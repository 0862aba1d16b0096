package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStagingActionIsValid(t *testing.T) {
	assert.True(t, StagingActionKeep.IsValid())
	assert.True(t, StagingActionEdit.IsValid())
	assert.True(t, StagingActionDrop.IsValid())
	assert.False(t, StagingAction("publish").IsValid())
	assert.False(t, StagingAction("").IsValid())
}

func TestToMenuItem(t *testing.T) {
	t.Run("full item maps without defaulting", func(t *testing.T) {
		category := "Mains"
		description := "Slow-cooked lamb"
		price := 14.50

		staged := &StagingItem{
			TenantID:    "tenant-1",
			RawCategory: &category,
			Name:        "Lamb Tagine",
			Description: &description,
			Price:       &price,
		}

		item, defaulted := staged.ToMenuItem("venue-1", "EUR")
		assert.False(t, defaulted)
		assert.Equal(t, "venue-1", item.VenueID)
		assert.Equal(t, "Mains", item.Category)
		assert.Equal(t, "Lamb Tagine", item.Name)
		assert.Equal(t, 14.50, item.Price)
		assert.Equal(t, "EUR", item.Currency)
		assert.True(t, item.IsAvailable)
	})

	t.Run("missing price defaults to zero", func(t *testing.T) {
		staged := &StagingItem{TenantID: "tenant-1", Name: "Mint Tea"}

		item, defaulted := staged.ToMenuItem("venue-1", "EUR")
		assert.True(t, defaulted)
		assert.Equal(t, 0.0, item.Price)
	})

	t.Run("missing category falls back to uncategorized", func(t *testing.T) {
		staged := &StagingItem{TenantID: "tenant-1", Name: "Mint Tea"}
		item, _ := staged.ToMenuItem("venue-1", "EUR")
		assert.Equal(t, DefaultCategory, item.Category)

		empty := ""
		staged.RawCategory = &empty
		item, _ = staged.ToMenuItem("venue-1", "EUR")
		assert.Equal(t, DefaultCategory, item.Category)
	})
}
