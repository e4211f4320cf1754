package service

import (
	"context"
	"fmt"

	"github.com/tubelens/tubelens-go/internal/model"
)

// ChannelView is the API response for channel lookups: the cached row plus a
// snapshot over the cached videos.
type ChannelView struct {
	Channel  *model.Channel         `json:"channel"`
	Snapshot *model.ChannelSnapshot `json:"snapshot"`
}

// ChannelCacheReader serves read-only channel lookups from the shared cache.
// It never triggers an external sync — that is the ingestion stage's job.
type ChannelCacheReader struct {
	cache  ChannelCache
	ingest *IngestService
}

func NewChannelCacheReader(cache ChannelCache, ingest *IngestService) *ChannelCacheReader {
	return &ChannelCacheReader{cache: cache, ingest: ingest}
}

// Lookup returns the cached channel and a snapshot built from its cached
// videos, or nil when the channel has never been synced.
func (r *ChannelCacheReader) Lookup(ctx context.Context, channelID string) (*ChannelView, error) {
	ch, err := r.cache.FindByChannelID(ctx, channelID)
	if err != nil {
		return nil, fmt.Errorf("read channel cache: %w", err)
	}
	if ch == nil {
		return nil, nil
	}

	cfg := TierConfigFor(ch.SizeTier)
	videos, err := r.cache.GetVideos(ctx, ch.ChannelID, cfg.MaxVideos)
	if err != nil {
		return nil, fmt.Errorf("read video cache: %w", err)
	}

	return &ChannelView{
		Channel:  ch,
		Snapshot: r.ingest.buildSnapshot(ch, videos, true),
	}, nil
}
