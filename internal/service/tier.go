package service

import "github.com/tubelens/tubelens-go/internal/model"

// Subscriber-count tier boundaries, inclusive on the lower edge.
const (
	growingFloor     = 10_000
	establishedFloor = 100_000
	majorFloor       = 500_000
	eliteFloor       = 1_000_000
)

// TierConfig sizes ingestion per tier: bigger channels upload more, so they
// get a shorter lookback and a larger video cap.
type TierConfig struct {
	LookbackMonths int
	MaxVideos      int
}

var tierConfigs = map[model.SizeTier]TierConfig{
	model.TierEmerging:    {LookbackMonths: 24, MaxVideos: 50},
	model.TierGrowing:     {LookbackMonths: 18, MaxVideos: 75},
	model.TierEstablished: {LookbackMonths: 12, MaxVideos: 100},
	model.TierMajor:       {LookbackMonths: 9, MaxVideos: 150},
	model.TierElite:       {LookbackMonths: 6, MaxVideos: 200},
}

// ClassifySizeTier maps a subscriber count onto its tier. Thresholds are
// strictly increasing, so tier rank is monotonic in subscriber count.
func ClassifySizeTier(subscriberCount int64) model.SizeTier {
	switch {
	case subscriberCount >= eliteFloor:
		return model.TierElite
	case subscriberCount >= majorFloor:
		return model.TierMajor
	case subscriberCount >= establishedFloor:
		return model.TierEstablished
	case subscriberCount >= growingFloor:
		return model.TierGrowing
	default:
		return model.TierEmerging
	}
}

// TierConfigFor returns the ingestion limits for a tier.
func TierConfigFor(tier model.SizeTier) TierConfig {
	if cfg, ok := tierConfigs[tier]; ok {
		return cfg
	}
	return tierConfigs[model.TierEmerging]
}

// TierRank orders tiers from emerging (0) to elite (4), used for ±1 tier
// peer widening.
func TierRank(tier model.SizeTier) int {
	switch tier {
	case model.TierElite:
		return 4
	case model.TierMajor:
		return 3
	case model.TierEstablished:
		return 2
	case model.TierGrowing:
		return 1
	default:
		return 0
	}
}

// AdjacentTiers returns the tiers within ±1 rank of the given tier,
// including the tier itself, in ascending rank order.
func AdjacentTiers(tier model.SizeTier) []model.SizeTier {
	all := []model.SizeTier{
		model.TierEmerging, model.TierGrowing, model.TierEstablished,
		model.TierMajor, model.TierElite,
	}
	rank := TierRank(tier)
	var out []model.SizeTier
	for _, t := range all {
		if d := TierRank(t) - rank; d >= -1 && d <= 1 {
			out = append(out, t)
		}
	}
	return out
}
