package service

import (
	"fmt"
)

const (
	// fullhd needs at least this much plan headroom to be offered at all
	fullHDMinCeiling = 3000
	fullHDBitrate    = 4000

	TierBaixa  = "baixa"
	TierMedia  = "media"
	TierAlta   = "alta"
	TierFullHD = "fullhd"
	TierCustom = "custom"
)

type Tier struct {
	Name       string `json:"name"`
	Bitrate    int    `json:"bitrate"`
	Resolution string `json:"resolution"`
	Offerable  bool   `json:"offerable"`
}

// Fixed tier ladder. Order matters, it's the tie-break order whenever a
// caller needs a default
var namedTiers = []Tier{
	{Name: TierBaixa, Bitrate: 800, Resolution: "640x360"},
	{Name: TierMedia, Bitrate: 1500, Resolution: "1280x720"},
	{Name: TierAlta, Bitrate: 2500, Resolution: "1280x720"},
	{Name: TierFullHD, Bitrate: fullHDBitrate, Resolution: "1920x1080"},
}

// TargetSpec is what a resolved quality request boils down to. Consumed
// immediately by the conversion orchestrator, never persisted
type TargetSpec struct {
	Bitrate    int
	Resolution string
	Label      string
}

// QualityRequest is the inbound selection: either a named tier, or custom
// with an explicit bitrate and resolution
type QualityRequest struct {
	Tier       string `json:"quality" form:"quality"`
	Bitrate    int    `json:"bitrate" form:"bitrate"`
	Resolution string `json:"resolution" form:"resolution"`
}

// OfferableTiers always returns all five tiers in fixed order with the
// offerable flag computed against the plan ceiling. fullhd advertises its
// bitrate capped at the ceiling
func OfferableTiers(ceilingKbps int) []Tier {
	tiers := make([]Tier, 0, len(namedTiers)+1)

	for _, t := range namedTiers {
		if t.Name == TierFullHD {
			t.Offerable = ceilingKbps >= fullHDMinCeiling
			if t.Bitrate > ceilingKbps {
				t.Bitrate = ceilingKbps
			}
		} else {
			t.Offerable = t.Bitrate <= ceilingKbps
		}
		tiers = append(tiers, t)
	}

	tiers = append(tiers, Tier{
		Name:      TierCustom,
		Offerable: true,
	})

	return tiers
}

// ResolveRequest validates a quality request against the plan ceiling and
// produces the transcode target. Pure and deterministic
func ResolveRequest(ceilingKbps int, req QualityRequest) (*TargetSpec, error) {
	if req.Tier == TierCustom {
		if req.Bitrate <= 0 || req.Resolution == "" {
			return nil, E(ReasonInvalidQuality, "custom quality needs both a bitrate and a resolution", nil)
		}

		if req.Bitrate > ceilingKbps {
			return nil, E(ReasonExceedsCeiling,
				fmt.Sprintf("requested bitrate %d kbps exceeds the plan ceiling of %d kbps", req.Bitrate, ceilingKbps), nil)
		}

		return &TargetSpec{
			Bitrate:    req.Bitrate,
			Resolution: req.Resolution,
			Label:      TierCustom,
		}, nil
	}

	for _, t := range namedTiers {
		if t.Name != req.Tier {
			continue
		}

		if t.Name == TierFullHD {
			if ceilingKbps < fullHDMinCeiling {
				return nil, E(ReasonInvalidQuality,
					fmt.Sprintf("fullhd requires a plan ceiling of at least %d kbps", fullHDMinCeiling), nil)
			}

			bitrate := fullHDBitrate
			if bitrate > ceilingKbps {
				bitrate = ceilingKbps
			}

			return &TargetSpec{
				Bitrate:    bitrate,
				Resolution: t.Resolution,
				Label:      t.Name,
			}, nil
		}

		if t.Bitrate > ceilingKbps {
			return nil, E(ReasonInvalidQuality,
				fmt.Sprintf("tier %s (%d kbps) exceeds the plan ceiling of %d kbps", t.Name, t.Bitrate, ceilingKbps), nil)
		}

		return &TargetSpec{
			Bitrate:    t.Bitrate,
			Resolution: t.Resolution,
			Label:      t.Name,
		}, nil
	}

	return nil, E(ReasonInvalidQuality, "unknown quality tier "+req.Tier, nil)
}
