package service

import (
	"fmt"

	"github.com/tubelens/tubelens-go/internal/model"
	"github.com/tubelens/tubelens-go/pkg/stats"
)

// Opportunity rule thresholds.
const (
	underperformerShareFloor = 0.30
	investigateCountFloor    = 2
	seriesLiftFloor          = 1.25
)

// OpportunityService derives improvement levers from the categorization
// quadrants, the series summary, and the benchmark gaps. Deterministic rules;
// no I/O. A channel with nothing actionable yields an empty list, which is a
// valid stage result, not a failure.
type OpportunityService struct{}

func NewOpportunityService() *OpportunityService {
	return &OpportunityService{}
}

// Derive runs every rule over the stage inputs. Benchmark and series inputs
// may be nil or empty when their stages degraded; the rules that need them
// simply do not fire.
func (s *OpportunityService) Derive(cat Categorization, series *model.SeriesSummary, bench *model.BenchmarkData) []model.Opportunity {
	opportunities := []model.Opportunity{}

	opportunities = append(opportunities, quadrantOpportunities(cat)...)
	opportunities = append(opportunities, seriesOpportunities(cat, series)...)
	opportunities = append(opportunities, benchmarkOpportunities(bench)...)

	return opportunities
}

func quadrantOpportunities(cat Categorization) []model.Opportunity {
	var breakouts, investigates, underperformers int
	for _, v := range cat.Videos {
		switch v.Quadrant {
		case model.QuadrantBreakout:
			breakouts++
		case model.QuadrantInvestigate:
			investigates++
		case model.QuadrantUnderperformer:
			underperformers++
		}
	}

	var out []model.Opportunity

	if breakouts > 0 {
		out = append(out, model.Opportunity{
			Kind:  "double_down",
			Title: "Repeat what the breakout videos did",
			Description: fmt.Sprintf("%d videos beat the channel's reach and engagement norms at once. Their formats are proven with this audience.",
				breakouts),
			Impact: "high",
		})
	}

	if investigates >= investigateCountFloor {
		out = append(out, model.Opportunity{
			Kind:  "retention_gap",
			Title: "High-reach videos are leaking engagement",
			Description: fmt.Sprintf("%d videos found an above-median audience but engaged it below the channel norm — review their hooks and pacing.",
				investigates),
			Impact: "medium",
		})
	}

	if total := len(cat.Videos); total > 0 {
		share := float64(underperformers) / float64(total)
		if share > underperformerShareFloor {
			out = append(out, model.Opportunity{
				Kind:  "pruning",
				Title: "A large share of uploads underperform on both axes",
				Description: fmt.Sprintf("%.0f%% of recent videos fall below the channel's median reach and engagement. Cutting or reworking these formats frees production capacity.",
					share*100),
				Impact: "medium",
				Metric: "underperformer_share",
				Delta:  stats.Round2(share),
			})
		}
	}

	return out
}

func seriesOpportunities(cat Categorization, series *model.SeriesSummary) []model.Opportunity {
	if series == nil || cat.MedianViews == 0 {
		return nil
	}

	var out []model.Opportunity
	for _, sr := range series.Series {
		lift := sr.AvgViews / cat.MedianViews
		if lift >= seriesLiftFloor {
			out = append(out, model.Opportunity{
				Kind:  "series_expansion",
				Title: fmt.Sprintf("Expand the %q series", sr.Name),
				Description: fmt.Sprintf("Its %d episodes average %.2fx the channel's median views — a cadence increase compounds an already-working format.",
					sr.EpisodeCount, lift),
				Impact: "high",
				Metric: "series_view_lift",
				Delta:  stats.Round2(lift),
			})
		}
	}
	return out
}

func benchmarkOpportunities(bench *model.BenchmarkData) []model.Opportunity {
	if bench == nil || !bench.HasBenchmarks {
		return nil
	}

	var out []model.Opportunity
	for _, r := range bench.Results {
		if r.Status != model.BenchmarkBelow {
			continue
		}

		switch r.Metric {
		case MetricUploadFrequency:
			out = append(out, model.Opportunity{
				Kind:  "cadence_gap",
				Title: "Upload cadence trails the peer set",
				Description: fmt.Sprintf("Peers in this tier publish %.1f videos/month at the median; this channel runs at %.1f.",
					r.Peer.Median, r.ChannelValue),
				Impact: "medium",
				Metric: r.Metric,
				Delta:  r.Ratio,
			})
		case MetricShortsRatio:
			out = append(out, model.Opportunity{
				Kind:  "format_mix_gap",
				Title: "Shorts mix is lighter than peers'",
				Description: fmt.Sprintf("Peers run %.0f%% Shorts at the median versus this channel's %.0f%% — an untested discovery surface.",
					r.Peer.Median*100, r.ChannelValue*100),
				Impact: "low",
				Metric: r.Metric,
				Delta:  r.Ratio,
			})
		case MetricViewsPerVideo:
			out = append(out, model.Opportunity{
				Kind:  "reach_gap",
				Title: "Per-video reach is below peer median",
				Description: fmt.Sprintf("Recent uploads average %.0f views against a peer median of %.0f.",
					r.ChannelValue, r.Peer.Median),
				Impact: "high",
				Metric: r.Metric,
				Delta:  r.Ratio,
			})
		case MetricEngagementRate:
			out = append(out, model.Opportunity{
				Kind:  "engagement_gap",
				Title: "Engagement rate is below peer median",
				Description: fmt.Sprintf("Recent uploads engage at %.2f%% against a peer median of %.2f%%.",
					r.ChannelValue*100, r.Peer.Median*100),
				Impact: "medium",
				Metric: r.Metric,
				Delta:  r.Ratio,
			})
		}
	}
	return out
}
