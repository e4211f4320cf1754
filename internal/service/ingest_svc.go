package service

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/tubelens/tubelens-go/internal/model"
	"github.com/tubelens/tubelens-go/internal/youtube"
)

// FreshnessWindow is how long cached channel/video data is reusable without
// a re-fetch.
const FreshnessWindow = 24 * time.Hour

// snapshotWindow is the trailing window the channel snapshot summarizes.
const snapshotWindow = 90 * 24 * time.Hour

// ChannelCache is the slice of the channel repository the ingestion service
// depends on. Satisfied by *repository.ChannelRepo; tests inject fakes.
type ChannelCache interface {
	FindByChannelID(ctx context.Context, channelID string) (*model.Channel, error)
	UpsertChannel(ctx context.Context, ch *model.Channel) error
	UpdateSizeTier(ctx context.Context, channelID string, tier model.SizeTier) error
	UpsertVideos(ctx context.Context, videos []model.Video) error
	GetVideos(ctx context.Context, channelID string, limit int) ([]model.Video, error)
}

// IngestResult is everything the ingestion stage hands back to the pipeline.
type IngestResult struct {
	Channel    *model.Channel
	Videos     []model.Video
	Snapshot   *model.ChannelSnapshot
	TierConfig TierConfig
	APICalls   int
	FromCache  bool
}

// IngestService decides reuse vs. refresh of channel/video data and builds
// the channel snapshot.
type IngestService struct {
	cache ChannelCache
	yt    youtube.Client
	now   func() time.Time

	// Serializes cache writes per channel id; two concurrent audits of the
	// same channel must not interleave a sync.
	locks *channelLocks
}

func NewIngestService(cache ChannelCache, yt youtube.Client) *IngestService {
	return &IngestService{
		cache: cache,
		yt:    yt,
		now:   time.Now,
		locks: newChannelLocks(),
	}
}

// IsFresh reports whether the cached channel row is inside the freshness
// window.
func (s *IngestService) IsFresh(ch *model.Channel) bool {
	return s.now().Sub(ch.LastSyncedAt) < FreshnessWindow
}

// Ingest resolves nothing — the caller passes an already-canonical channel
// id. On a fresh cache hit with forceRefresh false it performs zero external
// API calls; otherwise it fetches channel details plus up to the tier's video
// cap and upserts both. The size tier is recomputed on every run, cache hit
// or not.
func (s *IngestService) Ingest(ctx context.Context, channelID string, forceRefresh bool) (*IngestResult, error) {
	s.locks.acquire(channelID)
	defer s.locks.release(channelID)

	cached, err := s.cache.FindByChannelID(ctx, channelID)
	if err != nil {
		return nil, fmt.Errorf("read channel cache: %w", err)
	}

	if cached != nil && !forceRefresh && s.IsFresh(cached) {
		return s.fromCache(ctx, cached)
	}

	return s.refresh(ctx, channelID)
}

func (s *IngestService) fromCache(ctx context.Context, cached *model.Channel) (*IngestResult, error) {
	tier := ClassifySizeTier(cached.SubscriberCount)
	if tier != cached.SizeTier {
		// Tier drift without a re-sync can only come from a manual edit, but
		// it is cheap to repair.
		if err := s.cache.UpdateSizeTier(ctx, cached.ChannelID, tier); err != nil {
			return nil, fmt.Errorf("update size tier: %w", err)
		}
		cached.SizeTier = tier
	}

	cfg := TierConfigFor(tier)
	videos, err := s.cache.GetVideos(ctx, cached.ChannelID, cfg.MaxVideos)
	if err != nil {
		return nil, fmt.Errorf("read video cache: %w", err)
	}

	log.Printf("ingest: cache hit for %s (%d videos, synced %s ago)",
		cached.ChannelID, len(videos), s.now().Sub(cached.LastSyncedAt).Round(time.Minute))

	snapshot := s.buildSnapshot(cached, videos, true)
	return &IngestResult{
		Channel:    cached,
		Videos:     videos,
		Snapshot:   snapshot,
		TierConfig: cfg,
		APICalls:   0,
		FromCache:  true,
	}, nil
}

func (s *IngestService) refresh(ctx context.Context, channelID string) (*IngestResult, error) {
	apiCalls := 0

	details, err := s.yt.FetchChannelDetails(ctx, channelID)
	if err != nil {
		return nil, fmt.Errorf("fetch channel details: %w", err)
	}
	apiCalls++

	tier := ClassifySizeTier(details.SubscriberCount)
	cfg := TierConfigFor(tier)

	fetched, err := s.yt.FetchChannelVideos(ctx, details.UploadsSource, cfg.MaxVideos)
	if err != nil {
		return nil, fmt.Errorf("fetch channel videos: %w", err)
	}
	apiCalls++

	ch := &model.Channel{
		ChannelID:       details.ChannelID,
		Title:           details.Title,
		ThumbnailURL:    details.ThumbnailURL,
		UploadsSource:   details.UploadsSource,
		SubscriberCount: details.SubscriberCount,
		TotalViewCount:  details.TotalViewCount,
		VideoCount:      details.VideoCount,
		Category:        details.Category,
		SizeTier:        tier,
		LastSyncedAt:    s.now(),
	}

	videos := make([]model.Video, 0, len(fetched))
	for _, fv := range fetched {
		vt := model.VideoTypeLong
		if fv.IsShort {
			vt = model.VideoTypeShort
		}
		videos = append(videos, model.Video{
			VideoID:      fv.VideoID,
			ChannelID:    details.ChannelID,
			Title:        fv.Title,
			ViewCount:    fv.ViewCount,
			LikeCount:    fv.LikeCount,
			CommentCount: fv.CommentCount,
			Duration:     fv.Duration,
			Type:         vt,
			PublishedAt:  fv.PublishedAt,
		})
	}

	if err := s.cache.UpsertChannel(ctx, ch); err != nil {
		return nil, fmt.Errorf("upsert channel: %w", err)
	}
	if err := s.cache.UpsertVideos(ctx, videos); err != nil {
		return nil, fmt.Errorf("upsert videos: %w", err)
	}

	log.Printf("ingest: synced %s (%d videos, tier=%s)", channelID, len(videos), tier)

	snapshot := s.buildSnapshot(ch, videos, false)
	return &IngestResult{
		Channel:    ch,
		Videos:     videos,
		Snapshot:   snapshot,
		TierConfig: cfg,
		APICalls:   apiCalls,
		FromCache:  false,
	}, nil
}

// buildSnapshot summarizes the trailing 90 days: recent video count, average
// views, average engagement rate, upload cadence, and shorts share.
func (s *IngestService) buildSnapshot(ch *model.Channel, videos []model.Video, fromCache bool) *model.ChannelSnapshot {
	cutoff := s.now().Add(-snapshotWindow)

	var recent []model.Video
	shorts := 0
	for _, v := range videos {
		if v.PublishedAt.Before(cutoff) {
			continue
		}
		recent = append(recent, v)
		if v.Type == model.VideoTypeShort {
			shorts++
		}
	}

	var totalViews, totalEngagement float64
	for _, v := range recent {
		totalViews += float64(v.ViewCount)
		totalEngagement += v.EngagementRate()
	}

	snap := &model.ChannelSnapshot{
		ChannelID:        ch.ChannelID,
		Title:            ch.Title,
		SubscriberCount:  ch.SubscriberCount,
		TotalViewCount:   ch.TotalViewCount,
		VideoCount:       ch.VideoCount,
		SizeTier:         ch.SizeTier,
		RecentVideoCount: len(recent),
		FromCache:        fromCache,
	}

	if len(recent) > 0 {
		snap.AvgRecentViews = totalViews / float64(len(recent))
		snap.AvgEngagementRate = totalEngagement / float64(len(recent))
		snap.UploadsPerMonth = float64(len(recent)) / 3.0
		snap.ShortsRatio = float64(shorts) / float64(len(recent))
	}

	return snap
}

// channelLocks is a refcounted keyed mutex. Entries are created on first
// acquire and evicted once the last holder releases, so the map stays
// proportional to in-flight syncs rather than every channel ever audited.
type channelLocks struct {
	mu      sync.Mutex
	entries map[string]*channelLockEntry
}

type channelLockEntry struct {
	mu   sync.Mutex
	refs int
}

func newChannelLocks() *channelLocks {
	return &channelLocks{entries: make(map[string]*channelLockEntry)}
}

func (l *channelLocks) acquire(key string) {
	l.mu.Lock()
	e, ok := l.entries[key]
	if !ok {
		e = &channelLockEntry{}
		l.entries[key] = e
	}
	e.refs++
	l.mu.Unlock()

	e.mu.Lock()
}

func (l *channelLocks) release(key string) {
	l.mu.Lock()
	e := l.entries[key]
	e.refs--
	if e.refs == 0 {
		delete(l.entries, key)
	}
	l.mu.Unlock()

	e.mu.Unlock()
}
