package models

import (
	"time"

	"github.com/Ramsey-B/clover/pkg/database"
)

// StagingAction is the reviewer's decision for a staged menu line
type StagingAction string

const (
	StagingActionKeep StagingAction = "keep"
	StagingActionEdit StagingAction = "edit"
	StagingActionDrop StagingAction = "drop"
)

// IsValid reports whether the action is a known reviewer decision
func (a StagingAction) IsValid() bool {
	switch a {
	case StagingActionKeep, StagingActionEdit, StagingActionDrop:
		return true
	}
	return false
}

// DefaultConfidence is assigned when the parser reports no confidence score
const DefaultConfidence = 0.5

// StagingItem is one candidate menu line extracted from an ingest job
type StagingItem struct {
	ID              string                   `db:"id" json:"id"`
	TenantID        string                   `db:"tenant_id" json:"tenant_id"`
	JobID           string                   `db:"job_id" json:"job_id"`
	VenueID         string                   `db:"venue_id" json:"venue_id"`
	RawCategory     *string                  `db:"raw_category" json:"raw_category,omitempty"`
	Name            string                   `db:"name" json:"name"`
	Description     *string                  `db:"description" json:"description,omitempty"`
	Price           *float64                 `db:"price" json:"price,omitempty"`
	Currency        *string                  `db:"currency" json:"currency,omitempty"`
	Confidence      float64                  `db:"confidence" json:"confidence"`
	ParseWarnings   database.JSONB[[]string] `db:"parse_warnings" json:"parse_warnings"`
	SuggestedAction StagingAction            `db:"suggested_action" json:"suggested_action"`
	CreatedAt       time.Time                `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time                `db:"updated_at" json:"updated_at"`
}

// DefaultCategory is used when the parser extracted no category heading
const DefaultCategory = "Uncategorized"

// ToMenuItem maps a reviewed staging item onto a live menu item. A missing
// price publishes as 0 rather than failing the batch; the returned bool
// reports whether that defaulting happened.
func (s *StagingItem) ToMenuItem(venueID, currency string) (MenuItem, bool) {
	item := MenuItem{
		TenantID:    s.TenantID,
		VenueID:     venueID,
		Category:    DefaultCategory,
		Name:        s.Name,
		Description: s.Description,
		Currency:    currency,
		IsAvailable: true,
	}
	if s.RawCategory != nil && *s.RawCategory != "" {
		item.Category = *s.RawCategory
	}

	defaulted := true
	if s.Price != nil {
		item.Price = *s.Price
		defaulted = false
	}

	return item, defaulted
}

// ParsedItem is a raw line item as reported by the menu parser
type ParsedItem struct {
	Category    *string  `json:"category,omitempty"`
	Name        string   `json:"name" validate:"required"`
	Description *string  `json:"description,omitempty"`
	Price       *float64 `json:"price,omitempty"`
	Currency    *string  `json:"currency,omitempty"`
	Confidence  *float64 `json:"confidence,omitempty"`
	Warnings    []string `json:"warnings,omitempty"`
}

// UpdateStagingActionRequest is the payload for a reviewer decision
type UpdateStagingActionRequest struct {
	Action StagingAction `json:"action" validate:"required,oneof=keep edit drop"`
}

// PublishResult reports the outcome of publishing a reviewed job
type PublishResult struct {
	Published        int  `json:"published"`
	DefaultedPrices  int  `json:"defaulted_prices"`
	AlreadyPublished bool `json:"already_published"`
}

// PublishRequest is the payload for publishing approved staging items
type PublishRequest struct {
	VenueID  string `json:"venue_id" validate:"required"`
	Currency string `json:"currency" validate:"required,len=3"`
}
