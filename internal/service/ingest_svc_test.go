package service

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/tubelens/tubelens-go/internal/model"
	"github.com/tubelens/tubelens-go/internal/youtube"
)

// fakeChannelCache is an in-memory ChannelCache.
type fakeChannelCache struct {
	channels map[string]*model.Channel
	videos   map[string][]model.Video
}

func newFakeChannelCache() *fakeChannelCache {
	return &fakeChannelCache{
		channels: make(map[string]*model.Channel),
		videos:   make(map[string][]model.Video),
	}
}

func (f *fakeChannelCache) FindByChannelID(ctx context.Context, channelID string) (*model.Channel, error) {
	ch, ok := f.channels[channelID]
	if !ok {
		return nil, nil
	}
	cp := *ch
	return &cp, nil
}

func (f *fakeChannelCache) UpsertChannel(ctx context.Context, ch *model.Channel) error {
	cp := *ch
	f.channels[ch.ChannelID] = &cp
	return nil
}

func (f *fakeChannelCache) UpdateSizeTier(ctx context.Context, channelID string, tier model.SizeTier) error {
	if ch, ok := f.channels[channelID]; ok {
		ch.SizeTier = tier
	}
	return nil
}

func (f *fakeChannelCache) UpsertVideos(ctx context.Context, videos []model.Video) error {
	for _, v := range videos {
		f.videos[v.ChannelID] = append(f.videos[v.ChannelID], v)
	}
	return nil
}

func (f *fakeChannelCache) GetVideos(ctx context.Context, channelID string, limit int) ([]model.Video, error) {
	vids := f.videos[channelID]
	if len(vids) > limit {
		vids = vids[:limit]
	}
	return vids, nil
}

// fakeYouTube counts API calls and serves one canned channel.
type fakeYouTube struct {
	details   youtube.ChannelDetails
	videos    []youtube.VideoDetails
	apiCalls  int
	resolveTo string
}

func (f *fakeYouTube) ResolveChannel(ctx context.Context, reference string) (string, error) {
	if f.resolveTo == "" {
		return "", youtube.ErrChannelNotFound
	}
	return f.resolveTo, nil
}

func (f *fakeYouTube) FetchChannelDetails(ctx context.Context, channelID string) (*youtube.ChannelDetails, error) {
	f.apiCalls++
	d := f.details
	return &d, nil
}

func (f *fakeYouTube) FetchChannelVideos(ctx context.Context, uploadsSource string, maxCount int) ([]youtube.VideoDetails, error) {
	f.apiCalls++
	if len(f.videos) > maxCount {
		return f.videos[:maxCount], nil
	}
	return f.videos, nil
}

func newFakeYouTube(subscribers int64, videoCount int) *fakeYouTube {
	yt := &fakeYouTube{
		resolveTo: "UCfake",
		details: youtube.ChannelDetails{
			ChannelID:       "UCfake",
			Title:           "Fake Channel",
			SubscriberCount: subscribers,
			TotalViewCount:  1_000_000,
			VideoCount:      videoCount,
			UploadsSource:   "UUfake",
		},
	}
	for i := 0; i < videoCount; i++ {
		yt.videos = append(yt.videos, youtube.VideoDetails{
			VideoID:     string(rune('a'+i%26)) + "vid",
			Title:       "Upload",
			ViewCount:   1000,
			LikeCount:   50,
			PublishedAt: time.Now().Add(-time.Duration(i) * 24 * time.Hour),
		})
	}
	return yt
}

func TestIngest_FreshCacheSkipsAPI(t *testing.T) {
	cache := newFakeChannelCache()
	yt := newFakeYouTube(50_000, 10)
	svc := NewIngestService(cache, yt)

	// First run populates the cache.
	first, err := svc.Ingest(context.Background(), "UCfake", false)
	if err != nil {
		t.Fatalf("first ingest: %v", err)
	}
	if first.FromCache {
		t.Error("first ingest reported a cache hit on an empty cache")
	}
	if first.APICalls != 2 {
		t.Errorf("first ingest made %d API calls, want 2", first.APICalls)
	}

	// Second run inside the freshness window reuses everything.
	callsBefore := yt.apiCalls
	second, err := svc.Ingest(context.Background(), "UCfake", false)
	if err != nil {
		t.Fatalf("second ingest: %v", err)
	}
	if !second.FromCache {
		t.Error("second ingest should hit the cache")
	}
	if second.APICalls != 0 {
		t.Errorf("cache hit reported %d API calls, want 0", second.APICalls)
	}
	if yt.apiCalls != callsBefore {
		t.Errorf("cache hit still called the platform API (%d calls)", yt.apiCalls-callsBefore)
	}
	if len(second.Videos) != len(first.Videos) {
		t.Errorf("cache hit returned %d videos, want %d", len(second.Videos), len(first.Videos))
	}
}

func TestIngest_ForceRefreshBypassesFreshCache(t *testing.T) {
	cache := newFakeChannelCache()
	yt := newFakeYouTube(50_000, 5)
	svc := NewIngestService(cache, yt)

	if _, err := svc.Ingest(context.Background(), "UCfake", false); err != nil {
		t.Fatalf("first ingest: %v", err)
	}

	result, err := svc.Ingest(context.Background(), "UCfake", true)
	if err != nil {
		t.Fatalf("forced ingest: %v", err)
	}
	if result.FromCache {
		t.Error("forced refresh must not report a cache hit")
	}
	if result.APICalls != 2 {
		t.Errorf("forced refresh made %d API calls, want 2", result.APICalls)
	}
}

func TestIngest_StaleCacheRefreshes(t *testing.T) {
	cache := newFakeChannelCache()
	yt := newFakeYouTube(50_000, 5)
	svc := NewIngestService(cache, yt)

	// Seed a row synced 25 hours ago.
	cache.channels["UCfake"] = &model.Channel{
		ChannelID:       "UCfake",
		SubscriberCount: 50_000,
		SizeTier:        model.TierGrowing,
		LastSyncedAt:    time.Now().Add(-25 * time.Hour),
	}

	result, err := svc.Ingest(context.Background(), "UCfake", false)
	if err != nil {
		t.Fatalf("ingest: %v", err)
	}
	if result.FromCache {
		t.Error("stale cache row must trigger a refresh")
	}
	if yt.apiCalls != 2 {
		t.Errorf("refresh made %d API calls, want 2", yt.apiCalls)
	}
}

func TestIngest_CacheHitRepairsTierDrift(t *testing.T) {
	cache := newFakeChannelCache()
	yt := newFakeYouTube(50_000, 5)
	svc := NewIngestService(cache, yt)

	// Fresh row whose stored tier disagrees with its subscriber count.
	cache.channels["UCfake"] = &model.Channel{
		ChannelID:       "UCfake",
		SubscriberCount: 250_000,
		SizeTier:        model.TierGrowing,
		LastSyncedAt:    time.Now(),
	}

	result, err := svc.Ingest(context.Background(), "UCfake", false)
	if err != nil {
		t.Fatalf("ingest: %v", err)
	}
	if !result.FromCache {
		t.Error("fresh row should stay a cache hit")
	}
	if result.Channel.SizeTier != model.TierEstablished {
		t.Errorf("returned tier = %s, want %s", result.Channel.SizeTier, model.TierEstablished)
	}
	if cache.channels["UCfake"].SizeTier != model.TierEstablished {
		t.Errorf("stored tier = %s, want %s", cache.channels["UCfake"].SizeTier, model.TierEstablished)
	}
}

func TestIngest_VideoCapFollowsTier(t *testing.T) {
	cache := newFakeChannelCache()
	// Elite channel with more uploads than the elite cap.
	yt := newFakeYouTube(2_000_000, 0)
	for i := 0; i < 250; i++ {
		yt.videos = append(yt.videos, youtube.VideoDetails{
			VideoID:     fmt.Sprintf("vid%03d", i),
			ViewCount:   1000,
			PublishedAt: time.Now(),
		})
	}
	svc := NewIngestService(cache, yt)

	result, err := svc.Ingest(context.Background(), "UCfake", false)
	if err != nil {
		t.Fatalf("ingest: %v", err)
	}
	if result.TierConfig.MaxVideos != 200 {
		t.Errorf("elite video cap = %d, want 200", result.TierConfig.MaxVideos)
	}
	if len(result.Videos) != 200 {
		t.Errorf("ingested %d videos, want 200", len(result.Videos))
	}
}

func TestIngest_StoresPlatformCategory(t *testing.T) {
	cache := newFakeChannelCache()
	yt := newFakeYouTube(50_000, 3)
	yt.details.Category = "video_game_culture"
	svc := NewIngestService(cache, yt)

	result, err := svc.Ingest(context.Background(), "UCfake", false)
	if err != nil {
		t.Fatalf("ingest: %v", err)
	}
	if result.Channel.Category != "video_game_culture" {
		t.Errorf("returned category = %q, want video_game_culture", result.Channel.Category)
	}

	// The stored row carries the category too; category-scoped peer queries
	// match against this column.
	stored := cache.channels["UCfake"]
	if stored == nil || stored.Category != "video_game_culture" {
		t.Errorf("stored category = %q, want video_game_culture", stored.Category)
	}
}

func TestChannelLocks_EvictsIdleEntries(t *testing.T) {
	locks := newChannelLocks()

	var wg sync.WaitGroup
	holders := 0
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			locks.acquire("UCfake")
			holders++
			if holders != 1 {
				t.Errorf("lock held by %d goroutines at once", holders)
			}
			holders--
			locks.release("UCfake")
		}()
	}
	wg.Wait()

	if n := len(locks.entries); n != 0 {
		t.Errorf("%d lock entries retained after all holders released", n)
	}
}

func TestBuildSnapshot_TrailingWindow(t *testing.T) {
	cache := newFakeChannelCache()
	yt := newFakeYouTube(50_000, 0)
	svc := NewIngestService(cache, yt)

	ch := &model.Channel{ChannelID: "UCfake", SizeTier: model.TierGrowing}
	videos := []model.Video{
		{VideoID: "recent1", ChannelID: "UCfake", ViewCount: 1000, LikeCount: 50,
			Type: model.VideoTypeLong, PublishedAt: time.Now().Add(-10 * 24 * time.Hour)},
		{VideoID: "recent2", ChannelID: "UCfake", ViewCount: 3000, LikeCount: 30,
			Type: model.VideoTypeShort, PublishedAt: time.Now().Add(-40 * 24 * time.Hour)},
		{VideoID: "old", ChannelID: "UCfake", ViewCount: 99_999, LikeCount: 9,
			Type: model.VideoTypeLong, PublishedAt: time.Now().Add(-120 * 24 * time.Hour)},
	}

	snap := svc.buildSnapshot(ch, videos, false)

	if snap.RecentVideoCount != 2 {
		t.Fatalf("recent video count = %d, want 2 (120-day-old video excluded)", snap.RecentVideoCount)
	}
	// (1000 + 3000) / 2 = 2000
	if snap.AvgRecentViews != 2000 {
		t.Errorf("avg recent views = %.0f, want 2000", snap.AvgRecentViews)
	}
	// 2 videos over 3 months
	if snap.UploadsPerMonth < 0.66 || snap.UploadsPerMonth > 0.67 {
		t.Errorf("uploads per month = %.2f, want ~0.67", snap.UploadsPerMonth)
	}
	if snap.ShortsRatio != 0.5 {
		t.Errorf("shorts ratio = %.2f, want 0.50", snap.ShortsRatio)
	}
}
