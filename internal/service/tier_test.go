package service

import (
	"testing"

	"github.com/tubelens/tubelens-go/internal/model"
)

func TestClassifySizeTier_Boundaries(t *testing.T) {
	tests := []struct {
		name        string
		subscribers int64
		want        model.SizeTier
	}{
		{"zero subscribers", 0, model.TierEmerging},
		{"just below growing", 9_999, model.TierEmerging},
		{"growing floor", 10_000, model.TierGrowing},
		{"just below established", 99_999, model.TierGrowing},
		{"established floor", 100_000, model.TierEstablished},
		{"just below major", 499_999, model.TierEstablished},
		{"major floor", 500_000, model.TierMajor},
		{"just below elite", 999_999, model.TierMajor},
		{"elite floor", 1_000_000, model.TierElite},
		{"well past elite", 50_000_000, model.TierElite},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ClassifySizeTier(tt.subscribers); got != tt.want {
				t.Errorf("ClassifySizeTier(%d) = %s, want %s", tt.subscribers, got, tt.want)
			}
		})
	}
}

func TestClassifySizeTier_Monotonic(t *testing.T) {
	// Rank must never decrease as subscriber count grows.
	counts := []int64{0, 1, 500, 9_999, 10_000, 50_000, 99_999, 100_000,
		250_000, 499_999, 500_000, 999_999, 1_000_000, 10_000_000}

	prev := -1
	for _, n := range counts {
		rank := TierRank(ClassifySizeTier(n))
		if rank < prev {
			t.Errorf("tier rank decreased at %d subscribers: %d < %d", n, rank, prev)
		}
		prev = rank
	}
}

func TestTierConfigFor_ScalesWithTier(t *testing.T) {
	// Bigger channels get a shorter lookback and a larger video cap.
	emerging := TierConfigFor(model.TierEmerging)
	elite := TierConfigFor(model.TierElite)

	if emerging.LookbackMonths != 24 || emerging.MaxVideos != 50 {
		t.Errorf("emerging config = %+v, want {24 50}", emerging)
	}
	if elite.LookbackMonths != 6 || elite.MaxVideos != 200 {
		t.Errorf("elite config = %+v, want {6 200}", elite)
	}

	tiers := []model.SizeTier{
		model.TierEmerging, model.TierGrowing, model.TierEstablished,
		model.TierMajor, model.TierElite,
	}
	for i := 1; i < len(tiers); i++ {
		lo, hi := TierConfigFor(tiers[i-1]), TierConfigFor(tiers[i])
		if hi.LookbackMonths >= lo.LookbackMonths {
			t.Errorf("%s lookback %d not shorter than %s lookback %d",
				tiers[i], hi.LookbackMonths, tiers[i-1], lo.LookbackMonths)
		}
		if hi.MaxVideos <= lo.MaxVideos {
			t.Errorf("%s video cap %d not larger than %s cap %d",
				tiers[i], hi.MaxVideos, tiers[i-1], lo.MaxVideos)
		}
	}
}

func TestAdjacentTiers(t *testing.T) {
	tests := []struct {
		tier model.SizeTier
		want []model.SizeTier
	}{
		{model.TierEmerging, []model.SizeTier{model.TierEmerging, model.TierGrowing}},
		{model.TierEstablished, []model.SizeTier{model.TierGrowing, model.TierEstablished, model.TierMajor}},
		{model.TierElite, []model.SizeTier{model.TierMajor, model.TierElite}},
	}

	for _, tt := range tests {
		got := AdjacentTiers(tt.tier)
		if len(got) != len(tt.want) {
			t.Errorf("AdjacentTiers(%s) = %v, want %v", tt.tier, got, tt.want)
			continue
		}
		for i := range got {
			if got[i] != tt.want[i] {
				t.Errorf("AdjacentTiers(%s)[%d] = %s, want %s", tt.tier, i, got[i], tt.want[i])
			}
		}
	}
}
