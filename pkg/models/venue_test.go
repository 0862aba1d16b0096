package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestVenueClaimState(t *testing.T) {
	email := "owner@example.com"
	empty := ""

	t.Run("claimed wins regardless of claim columns", func(t *testing.T) {
		venue := &Venue{Claimed: true, OwnerEmail: &email}
		assert.Equal(t, ClaimStateClaimed, venue.ClaimState())
	})

	t.Run("pending when a claim email is recorded", func(t *testing.T) {
		venue := &Venue{Claimed: false, OwnerEmail: &email}
		assert.Equal(t, ClaimStatePending, venue.ClaimState())
	})

	t.Run("unclaimed otherwise", func(t *testing.T) {
		assert.Equal(t, ClaimStateUnclaimed, (&Venue{}).ClaimState())
		assert.Equal(t, ClaimStateUnclaimed, (&Venue{OwnerEmail: &empty}).ClaimState())
	})
}
