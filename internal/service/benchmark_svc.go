package service

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/tubelens/tubelens-go/internal/model"
	"github.com/tubelens/tubelens-go/pkg/stats"
)

// Per-metric comparison thresholds: ratio ≥ 1.2 is above peers, ≤ 0.8 below.
const (
	benchmarkAboveRatio = 1.2
	benchmarkBelowRatio = 0.8
)

// peerSampleWindow is the trailing window each peer contributes videos from.
const peerSampleWindow = 90 * 24 * time.Hour

// Benchmark metric names, stable across API responses.
const (
	MetricViewsPerVideo   = "views_per_video"
	MetricEngagementRate  = "engagement_rate"
	MetricUploadFrequency = "uploads_per_month"
	MetricShortsRatio     = "shorts_ratio"
)

// PeerSource is the slice of the channel repository the benchmark engine
// reads peers from. Satisfied by *repository.ChannelRepo.
type PeerSource interface {
	ListPeerChannels(ctx context.Context, tiers []model.SizeTier, scope model.PeerScope, excludeChannelID string, limit int) ([]model.Channel, error)
	GetVideosSince(ctx context.Context, channelID string, since time.Time) ([]model.Video, error)
}

// BenchmarkOptions is confirmed-at-wiring configuration: the minimum peer
// cohort and whether to widen to adjacent tiers when the strict tier is
// under-populated.
type BenchmarkOptions struct {
	MinPeers   int
	WidenTiers bool
	MaxPeers   int
}

// BenchmarkService compares a channel's recent metrics against a peer cohort
// in the same (or adjacent) size tier.
type BenchmarkService struct {
	peers PeerSource
	opts  BenchmarkOptions
	now   func() time.Time
}

func NewBenchmarkService(peers PeerSource, opts BenchmarkOptions) *BenchmarkService {
	if opts.MinPeers <= 0 {
		opts.MinPeers = 5
	}
	if opts.MaxPeers <= 0 {
		opts.MaxPeers = 25
	}
	return &BenchmarkService{peers: peers, opts: opts, now: time.Now}
}

// SelectPeers picks the comparison cohort: strict tier first, widened to ±1
// tier only when the strict tier cannot meet the minimum. The category scope
// applies at every step and is never dropped.
func (s *BenchmarkService) SelectPeers(ctx context.Context, snapshot *model.ChannelSnapshot, scope model.PeerScope) ([]model.Channel, error) {
	strict, err := s.peers.ListPeerChannels(ctx, []model.SizeTier{snapshot.SizeTier}, scope, snapshot.ChannelID, s.opts.MaxPeers)
	if err != nil {
		return nil, fmt.Errorf("list peers: %w", err)
	}
	if len(strict) >= s.opts.MinPeers || !s.opts.WidenTiers {
		return strict, nil
	}

	widened, err := s.peers.ListPeerChannels(ctx, AdjacentTiers(snapshot.SizeTier), scope, snapshot.ChannelID, s.opts.MaxPeers)
	if err != nil {
		return nil, fmt.Errorf("list widened peers: %w", err)
	}
	log.Printf("benchmark: widened %s cohort from %d to %d peers", snapshot.SizeTier, len(strict), len(widened))
	return widened, nil
}

// Compare benchmarks the channel snapshot against the pooled peer sample.
// An under-powered cohort returns hasBenchmarks=false with a reason rather
// than statistics nobody should trust. Deterministic for a given input.
func (s *BenchmarkService) Compare(ctx context.Context, snapshot *model.ChannelSnapshot, peers []model.Channel) (*model.BenchmarkData, error) {
	if len(peers) < s.opts.MinPeers {
		return &model.BenchmarkData{
			HasBenchmarks: false,
			PeerCount:     len(peers),
			Reason: fmt.Sprintf("only %d peer channels matched (minimum %d); benchmarks from an under-powered sample would mislead",
				len(peers), s.opts.MinPeers),
		}, nil
	}

	sample, err := s.pooledSample(ctx, peers)
	if err != nil {
		return nil, err
	}

	data := &model.BenchmarkData{
		HasBenchmarks:  true,
		PeerCount:      len(peers),
		PeerSampleSize: sample.videoCount,
	}

	comparisons := []struct {
		metric       string
		channelValue float64
		peerValues   []float64
	}{
		{MetricViewsPerVideo, snapshot.AvgRecentViews, sample.viewsPerVideo},
		{MetricEngagementRate, snapshot.AvgEngagementRate, sample.engagementRates},
		{MetricUploadFrequency, snapshot.UploadsPerMonth, sample.uploadsPerMonth},
		{MetricShortsRatio, snapshot.ShortsRatio, sample.shortsRatios},
	}

	var definedRatios []float64
	for _, c := range comparisons {
		peerMedian := stats.Median(c.peerValues)
		if peerMedian == 0 {
			// Ratio is undefined against a zero median; omit the metric
			// rather than fabricate a comparison.
			continue
		}

		ratio := stats.Round2(c.channelValue / peerMedian)
		result := model.BenchmarkResult{
			Metric:       c.metric,
			ChannelValue: stats.Round2(c.channelValue),
			Peer: model.PeerStats{
				P25:    stats.Round2(stats.Percentile(c.peerValues, 25)),
				Median: stats.Round2(peerMedian),
				P75:    stats.Round2(stats.Percentile(c.peerValues, 75)),
			},
			Ratio:  ratio,
			Status: classifyRatio(ratio),
		}
		data.Results = append(data.Results, result)
		definedRatios = append(definedRatios, ratio)
	}

	if len(definedRatios) > 0 {
		data.OverallScore = stats.Round2(stats.Mean(definedRatios))
		data.Classification = classifyOverall(data.OverallScore)
	}

	return data, nil
}

func classifyRatio(ratio float64) model.BenchmarkStatus {
	switch {
	case ratio >= benchmarkAboveRatio:
		return model.BenchmarkAbove
	case ratio <= benchmarkBelowRatio:
		return model.BenchmarkBelow
	default:
		return model.BenchmarkInline
	}
}

func classifyOverall(score float64) string {
	switch {
	case score >= benchmarkAboveRatio:
		return "outperforming"
	case score < benchmarkBelowRatio:
		return "below peer average"
	default:
		return "on par"
	}
}

type peerSample struct {
	videoCount      int
	viewsPerVideo   []float64
	engagementRates []float64
	uploadsPerMonth []float64
	shortsRatios    []float64
}

// pooledSample collects each peer's trailing-window videos. Views and
// engagement pool per video; cadence and shorts share are per-channel values.
func (s *BenchmarkService) pooledSample(ctx context.Context, peers []model.Channel) (*peerSample, error) {
	cutoff := s.now().Add(-peerSampleWindow)
	sample := &peerSample{}

	for _, peer := range peers {
		videos, err := s.peers.GetVideosSince(ctx, peer.ChannelID, cutoff)
		if err != nil {
			return nil, fmt.Errorf("peer sample for %s: %w", peer.ChannelID, err)
		}
		if len(videos) == 0 {
			continue
		}

		shorts := 0
		for _, v := range videos {
			sample.viewsPerVideo = append(sample.viewsPerVideo, float64(v.ViewCount))
			sample.engagementRates = append(sample.engagementRates, v.EngagementRate())
			if v.Type == model.VideoTypeShort {
				shorts++
			}
		}
		sample.videoCount += len(videos)
		sample.uploadsPerMonth = append(sample.uploadsPerMonth, float64(len(videos))/3.0)
		sample.shortsRatios = append(sample.shortsRatios, float64(shorts)/float64(len(videos)))
	}

	return sample, nil
}
