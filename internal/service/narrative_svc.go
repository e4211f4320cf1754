package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/tubelens/tubelens-go/internal/llm"
	"github.com/tubelens/tubelens-go/internal/model"
)

// NarrativeService fills the two prose slots of the pipeline from the typed
// stage outputs. The text content is the model's business; this service owns
// only the prompt assembly, the degradation path, and the usage accounting.
type NarrativeService struct {
	client llm.Client
}

// NewNarrativeService accepts a nil client: both slots then produce empty,
// well-formed narratives and the pipeline proceeds.
func NewNarrativeService(client llm.Client) *NarrativeService {
	return &NarrativeService{client: client}
}

// Recommendations produces the recommendations prose from the derived
// opportunities.
func (s *NarrativeService) Recommendations(ctx context.Context, audit *model.Audit, opportunities []model.Opportunity) (*model.Narrative, error) {
	if s.client == nil {
		return &model.Narrative{}, nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Write prioritized recommendations for the YouTube channel %q (%s tier).\n",
		snapshotTitle(audit), snapshotTier(audit))
	if bc := audit.Config.BrandContext; bc != nil && bc.BrandName != "" {
		fmt.Fprintf(&b, "Client brand: %s. Voice: %s. Goals: %s.\n", bc.BrandName, bc.Voice, bc.Goals)
	}
	fmt.Fprintf(&b, "Opportunities identified:\n")
	for _, o := range opportunities {
		fmt.Fprintf(&b, "- [%s] %s: %s\n", o.Impact, o.Title, o.Description)
	}
	if len(opportunities) == 0 {
		fmt.Fprintf(&b, "- none detected; acknowledge the channel's consistency instead\n")
	}

	return s.complete(ctx, llm.Request{
		System:    "You are a YouTube strategy consultant writing for a channel owner.",
		Prompt:    b.String(),
		MaxTokens: 1200,
	})
}

// ExecutiveSummary produces the closing prose over the whole audit.
func (s *NarrativeService) ExecutiveSummary(ctx context.Context, audit *model.Audit) (*model.Narrative, error) {
	if s.client == nil {
		return &model.Narrative{}, nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Write an executive summary of a channel audit for %q.\n", snapshotTitle(audit))
	if snap := audit.Results.ChannelSnapshot; snap != nil {
		fmt.Fprintf(&b, "Subscribers: %d. Recent videos (90d): %d averaging %.0f views.\n",
			snap.SubscriberCount, snap.RecentVideoCount, snap.AvgRecentViews)
	}
	if bench := audit.Results.BenchmarkData; bench != nil && bench.HasBenchmarks {
		fmt.Fprintf(&b, "Peer benchmark: %s (overall score %.2f across %d peers).\n",
			bench.Classification, bench.OverallScore, bench.PeerCount)
	}
	if series := audit.Results.SeriesSummary; series != nil && series.SeriesCount > 0 {
		fmt.Fprintf(&b, "Detected %d recurring series covering %d videos.\n",
			series.SeriesCount, series.VideosInSeries)
	}
	fmt.Fprintf(&b, "Opportunities: %d.\n", len(audit.Results.Opportunities))

	return s.complete(ctx, llm.Request{
		System:    "You are a YouTube strategy consultant writing for an agency decision-maker.",
		Prompt:    b.String(),
		MaxTokens: 800,
	})
}

func (s *NarrativeService) complete(ctx context.Context, req llm.Request) (*model.Narrative, error) {
	resp, err := s.client.Complete(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("llm completion: %w", err)
	}
	return &model.Narrative{
		Text:      resp.Text,
		Model:     resp.Model,
		LLMTokens: resp.InputTokens + resp.OutputTokens,
		LLMCost:   resp.Cost,
	}, nil
}

func snapshotTitle(audit *model.Audit) string {
	if snap := audit.Results.ChannelSnapshot; snap != nil && snap.Title != "" {
		return snap.Title
	}
	return audit.ChannelReference
}

func snapshotTier(audit *model.Audit) model.SizeTier {
	if snap := audit.Results.ChannelSnapshot; snap != nil {
		return snap.SizeTier
	}
	return model.TierEmerging
}
