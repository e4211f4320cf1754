package service

import (
	"fmt"

	"github.com/tubelens/tubelens-go/internal/model"
	"github.com/tubelens/tubelens-go/pkg/stats"
)

// Default multipliers applied to the channel's own medians when flagging
// divergent videos.
const (
	DefaultHighReachMultiplier     = 1.5
	DefaultLowEngagementMultiplier = 0.6
)

// CategorizeOptions tunes the reach/engagement thresholds. Zero values fall
// back to the defaults.
type CategorizeOptions struct {
	HighReachMultiplier     float64
	LowEngagementMultiplier float64
}

// Categorization is the engine's full output: per-video annotations plus the
// channel baselines they were measured against.
type Categorization struct {
	Videos           []model.CategorizedVideo
	MedianViews      float64
	MedianEngagement float64
}

// Categorize flags videos whose reach or engagement diverge from the
// channel's own norm. Pure function of its input: no I/O, no randomness,
// identical output on identical input.
//
// Baselines are medians over positive values only, so unreleased or
// zero-view uploads do not drag the norm down. A single-video channel is its
// own baseline: ratios 1.0, no flag can trip on equality.
func Categorize(videos []model.Video, opts CategorizeOptions) Categorization {
	highReach := opts.HighReachMultiplier
	if highReach == 0 {
		highReach = DefaultHighReachMultiplier
	}
	lowEngagement := opts.LowEngagementMultiplier
	if lowEngagement == 0 {
		lowEngagement = DefaultLowEngagementMultiplier
	}

	var viewSamples, engagementSamples []float64
	for _, v := range videos {
		if v.ViewCount > 0 {
			viewSamples = append(viewSamples, float64(v.ViewCount))
		}
		if er := v.EngagementRate(); er > 0 {
			engagementSamples = append(engagementSamples, er)
		}
	}

	medianViews := stats.Median(viewSamples)
	medianEngagement := stats.Median(engagementSamples)

	highReachFloor := medianViews * highReach
	lowEngagementCeiling := medianEngagement * lowEngagement

	out := Categorization{
		Videos:           make([]model.CategorizedVideo, 0, len(videos)),
		MedianViews:      medianViews,
		MedianEngagement: medianEngagement,
	}

	for _, v := range videos {
		cv := model.CategorizedVideo{
			Video:               v,
			EngagementRateValue: v.EngagementRate(),
		}

		cv.IsHighReach = float64(v.ViewCount) > highReachFloor
		cv.IsLowEngagement = cv.EngagementRateValue < lowEngagementCeiling && v.ViewCount > 0

		if medianViews > 0 {
			cv.ViewsRatio = stats.Round2(float64(v.ViewCount) / medianViews)
		}
		if medianEngagement > 0 {
			cv.EngagementRatio = stats.Round2(cv.EngagementRateValue / medianEngagement)
		}

		switch {
		case cv.IsHighReach && !cv.IsLowEngagement:
			cv.Quadrant = model.QuadrantBreakout
		case !cv.IsHighReach && !cv.IsLowEngagement:
			cv.Quadrant = model.QuadrantHiddenGem
		case cv.IsHighReach && cv.IsLowEngagement:
			cv.Quadrant = model.QuadrantInvestigate
			cv.Diagnostic = investigateNote(cv.ViewsRatio, cv.EngagementRatio)
		default:
			cv.Quadrant = model.QuadrantUnderperformer
		}

		out.Videos = append(out.Videos, cv)
	}

	return out
}

// investigateNote explains a reach/engagement mismatch: the video found an
// audience but did not hold it.
func investigateNote(viewsRatio, engagementRatio float64) string {
	return fmt.Sprintf(
		"Reached %.2fx the channel's median views but engagement ran %.0f%% below the channel norm; packaging attracted viewers the content did not retain.",
		viewsRatio, (1-engagementRatio)*100)
}
