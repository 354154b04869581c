// Package testhelpers provides fixtures and containers for testing the
// member demographics packages.
package testhelpers

import (
	"time"

	"github.com/chingu-voyages/member-demographics/pkg/models"
)

func str(s string) *string { return &s }
func num(i int) *int       { return &i }

// SampleMembers returns a small cleaned table covering every attribute,
// including null scalars and empty lists.
func SampleMembers() []models.Member {
	at := func(day int) *time.Time {
		t := time.Date(2024, time.January, day, 15, 30, 0, 0, time.UTC)
		return &t
	}
	return []models.Member{
		{
			ID: 1, Timestamp: at(3),
			Gender: str("FEMALE"), Goal: str("GAIN EXPERIENCE"), Source: str("LinkedIn"),
			Role: str("Developer"), CountryCode: str("US"), CountryName: str("United States"),
			Timezone: str("GMT-5"), GMTOffset: num(-5), SoloProjectTier: num(2),
			VoyageSignupIDs: []int64{44, 45}, VoyageTiers: []string{"Tier 2", "Tier 3"},
		},
		{
			ID: 2, Timestamp: at(10),
			Gender: str("MALE"), Goal: str("OTHER"), GoalOther: str("networking"), Source: str("OTHER"),
			SourceOther: str("a friend"), Role: str("UI/UX"), CountryCode: str("PH"),
			CountryName: str("Philippines"), Timezone: str("GMT+8"), GMTOffset: num(8),
			SoloProjectTier: num(1), VoyageSignupIDs: []int64{45}, VoyageTiers: []string{"Tier 1"},
		},
		{
			ID: 3, Timestamp: at(20),
			Gender: str("FEMALE"), Source: str("LinkedIn"), CountryCode: str("PH"),
			CountryName: str("Philippines"), Timezone: str("GMT+8"), GMTOffset: num(8),
			VoyageSignupIDs: []int64{}, VoyageTiers: []string{},
		},
		{
			ID:              4,
			VoyageSignupIDs: []int64{},
			VoyageTiers:     []string{},
		},
	}
}
