package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOfferableTiersOrderIsFixed(t *testing.T) {
	tiers := OfferableTiers(10000)

	names := make([]string, 0, len(tiers))
	for _, tier := range tiers {
		names = append(names, tier.Name)
	}

	assert.Equal(t, []string{"baixa", "media", "alta", "fullhd", "custom"}, names)
}

func TestOfferableTiersAgainstCeiling(t *testing.T) {
	cases := []struct {
		name      string
		ceiling   int
		offerable map[string]bool
	}{
		{
			name:    "low plan",
			ceiling: 1000,
			offerable: map[string]bool{
				"baixa": true, "media": false, "alta": false, "fullhd": false, "custom": true,
			},
		},
		{
			name:    "mid plan",
			ceiling: 2000,
			offerable: map[string]bool{
				"baixa": true, "media": true, "alta": false, "fullhd": false, "custom": true,
			},
		},
		{
			name:    "fullhd floor",
			ceiling: 3000,
			offerable: map[string]bool{
				"baixa": true, "media": true, "alta": true, "fullhd": true, "custom": true,
			},
		},
		{
			name:    "high plan",
			ceiling: 5000,
			offerable: map[string]bool{
				"baixa": true, "media": true, "alta": true, "fullhd": true, "custom": true,
			},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			for _, tier := range OfferableTiers(tc.ceiling) {
				assert.Equal(t, tc.offerable[tier.Name], tier.Offerable, tier.Name)

				// A named offerable tier never advertises more than the plan allows
				if tier.Name != TierCustom && tier.Offerable {
					assert.LessOrEqual(t, tier.Bitrate, tc.ceiling, tier.Name)
				}
			}
		})
	}
}

func TestOfferableTiersCapsFullHD(t *testing.T) {
	tiers := OfferableTiers(3500)

	for _, tier := range tiers {
		if tier.Name == TierFullHD {
			assert.True(t, tier.Offerable)
			assert.Equal(t, 3500, tier.Bitrate)
		}
	}
}

func TestResolveRequestNamedTiers(t *testing.T) {
	spec, err := ResolveRequest(5000, QualityRequest{Tier: "media"})
	require.NoError(t, err)
	assert.Equal(t, 1500, spec.Bitrate)
	assert.Equal(t, "1280x720", spec.Resolution)
	assert.Equal(t, "media", spec.Label)
}

func TestResolveRequestAltaOverCeiling(t *testing.T) {
	_, err := ResolveRequest(2000, QualityRequest{Tier: "alta"})
	require.Error(t, err)
	assert.Equal(t, ReasonInvalidQuality, ReasonOf(err))
}

func TestResolveRequestFullHDCapped(t *testing.T) {
	spec, err := ResolveRequest(5000, QualityRequest{Tier: "fullhd"})
	require.NoError(t, err)
	assert.Equal(t, 4000, spec.Bitrate)
	assert.Equal(t, "1920x1080", spec.Resolution)

	spec, err = ResolveRequest(3200, QualityRequest{Tier: "fullhd"})
	require.NoError(t, err)
	assert.Equal(t, 3200, spec.Bitrate)
}

func TestResolveRequestFullHDUnderFloor(t *testing.T) {
	_, err := ResolveRequest(2500, QualityRequest{Tier: "fullhd"})
	require.Error(t, err)
	assert.Equal(t, ReasonInvalidQuality, ReasonOf(err))
}

func TestResolveRequestUnknownTier(t *testing.T) {
	_, err := ResolveRequest(5000, QualityRequest{Tier: "ultra"})
	require.Error(t, err)
	assert.Equal(t, ReasonInvalidQuality, ReasonOf(err))
}

func TestResolveRequestCustom(t *testing.T) {
	spec, err := ResolveRequest(5000, QualityRequest{Tier: "custom", Bitrate: 2200, Resolution: "854x480"})
	require.NoError(t, err)
	assert.Equal(t, 2200, spec.Bitrate)
	assert.Equal(t, "854x480", spec.Resolution)
	assert.Equal(t, "custom", spec.Label)
}

func TestResolveRequestCustomOverCeiling(t *testing.T) {
	_, err := ResolveRequest(2000, QualityRequest{Tier: "custom", Bitrate: 2500, Resolution: "1280x720"})
	require.Error(t, err)
	assert.Equal(t, ReasonExceedsCeiling, ReasonOf(err))
}

func TestResolveRequestCustomMissingFields(t *testing.T) {
	_, err := ResolveRequest(5000, QualityRequest{Tier: "custom", Bitrate: 2000})
	require.Error(t, err)
	assert.Equal(t, ReasonInvalidQuality, ReasonOf(err))

	_, err = ResolveRequest(5000, QualityRequest{Tier: "custom", Resolution: "1280x720"})
	require.Error(t, err)
	assert.Equal(t, ReasonInvalidQuality, ReasonOf(err))
}

func TestResolveRequestIsDeterministic(t *testing.T) {
	req := QualityRequest{Tier: "alta"}

	first, err := ResolveRequest(5000, req)
	require.NoError(t, err)

	for range 10 {
		next, err := ResolveRequest(5000, req)
		require.NoError(t, err)
		assert.Equal(t, first, next)
	}
}
