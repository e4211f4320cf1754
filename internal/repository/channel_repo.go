package repository

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/tubelens/tubelens-go/internal/model"
)

// ChannelRepo is the shared channel/video cache. Rows are keyed by platform
// id and upserted, so two concurrent audits syncing the same channel resolve
// to last-writer-wins on last_synced_at (re-sync is idempotent).
type ChannelRepo struct {
	pool *pgxpool.Pool
}

func NewChannelRepo(pool *pgxpool.Pool) *ChannelRepo {
	return &ChannelRepo{pool: pool}
}

// FindByChannelID returns the cached channel, or nil when it has never been
// synced.
func (r *ChannelRepo) FindByChannelID(ctx context.Context, channelID string) (*model.Channel, error) {
	query := `
		SELECT channel_id, title, thumbnail_url, uploads_source,
		       subscriber_count, total_view_count, video_count,
		       category, size_tier, last_synced_at
		FROM channels
		WHERE channel_id = $1`

	var ch model.Channel
	err := r.pool.QueryRow(ctx, query, channelID).Scan(
		&ch.ChannelID, &ch.Title, &ch.ThumbnailURL, &ch.UploadsSource,
		&ch.SubscriberCount, &ch.TotalViewCount, &ch.VideoCount,
		&ch.Category, &ch.SizeTier, &ch.LastSyncedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &ch, nil
}

// UpsertChannel inserts or refreshes a channel row keyed by platform id.
func (r *ChannelRepo) UpsertChannel(ctx context.Context, ch *model.Channel) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO channels (channel_id, title, thumbnail_url, uploads_source,
		                      subscriber_count, total_view_count, video_count,
		                      category, size_tier, last_synced_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (channel_id) DO UPDATE
		SET title = EXCLUDED.title,
		    thumbnail_url = EXCLUDED.thumbnail_url,
		    uploads_source = EXCLUDED.uploads_source,
		    subscriber_count = EXCLUDED.subscriber_count,
		    total_view_count = EXCLUDED.total_view_count,
		    video_count = EXCLUDED.video_count,
		    category = EXCLUDED.category,
		    size_tier = EXCLUDED.size_tier,
		    last_synced_at = EXCLUDED.last_synced_at`,
		ch.ChannelID, ch.Title, ch.ThumbnailURL, ch.UploadsSource,
		ch.SubscriberCount, ch.TotalViewCount, ch.VideoCount,
		ch.Category, ch.SizeTier, ch.LastSyncedAt)
	return err
}

// UpdateSizeTier persists a recomputed tier without touching sync metadata.
func (r *ChannelRepo) UpdateSizeTier(ctx context.Context, channelID string, tier model.SizeTier) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE channels SET size_tier = $1 WHERE channel_id = $2`,
		tier, channelID)
	return err
}

// UpsertVideos refreshes the cached video rows for a channel, metrics
// included, keyed by platform video id.
func (r *ChannelRepo) UpsertVideos(ctx context.Context, videos []model.Video) error {
	if len(videos) == 0 {
		return nil
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	for _, v := range videos {
		_, err = tx.Exec(ctx, `
			INSERT INTO videos (video_id, channel_id, title, view_count, like_count,
			                    comment_count, duration_seconds, video_type, published_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
			ON CONFLICT (video_id) DO UPDATE
			SET view_count = EXCLUDED.view_count,
			    like_count = EXCLUDED.like_count,
			    comment_count = EXCLUDED.comment_count,
			    title = EXCLUDED.title`,
			v.VideoID, v.ChannelID, v.Title, v.ViewCount, v.LikeCount,
			v.CommentCount, v.Duration, v.Type, v.PublishedAt)
		if err != nil {
			return err
		}
	}

	return tx.Commit(ctx)
}

// GetVideos returns a channel's cached videos, most recent first.
func (r *ChannelRepo) GetVideos(ctx context.Context, channelID string, limit int) ([]model.Video, error) {
	query := `
		SELECT video_id, channel_id, title, view_count, like_count,
		       comment_count, duration_seconds, video_type, published_at
		FROM videos
		WHERE channel_id = $1
		ORDER BY published_at DESC
		LIMIT $2`

	rows, err := r.pool.Query(ctx, query, channelID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanVideos(rows)
}

// ListPeerChannels returns synced channels in the given tiers, excluding the
// audited channel itself, optionally restricted to a category set.
func (r *ChannelRepo) ListPeerChannels(ctx context.Context, tiers []model.SizeTier, scope model.PeerScope, excludeChannelID string, limit int) ([]model.Channel, error) {
	tierStrings := make([]string, len(tiers))
	for i, t := range tiers {
		tierStrings[i] = string(t)
	}

	query := `
		SELECT channel_id, title, thumbnail_url, uploads_source,
		       subscriber_count, total_view_count, video_count,
		       category, size_tier, last_synced_at
		FROM channels
		WHERE size_tier = ANY($1)
		  AND channel_id <> $2
		  AND ($3::text[] IS NULL OR category = ANY($3))
		ORDER BY subscriber_count DESC
		LIMIT $4`

	var categories []string
	if cats, scoped := scope.Scoped(); scoped {
		categories = cats
	}

	rows, err := r.pool.Query(ctx, query, tierStrings, excludeChannelID, categories, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var channels []model.Channel
	for rows.Next() {
		var ch model.Channel
		err := rows.Scan(
			&ch.ChannelID, &ch.Title, &ch.ThumbnailURL, &ch.UploadsSource,
			&ch.SubscriberCount, &ch.TotalViewCount, &ch.VideoCount,
			&ch.Category, &ch.SizeTier, &ch.LastSyncedAt,
		)
		if err != nil {
			return nil, err
		}
		channels = append(channels, ch)
	}
	return channels, rows.Err()
}

// GetVideosSince returns a channel's cached videos published on or after the
// cutoff, most recent first.
func (r *ChannelRepo) GetVideosSince(ctx context.Context, channelID string, since time.Time) ([]model.Video, error) {
	query := `
		SELECT video_id, channel_id, title, view_count, like_count,
		       comment_count, duration_seconds, video_type, published_at
		FROM videos
		WHERE channel_id = $1 AND published_at >= $2
		ORDER BY published_at DESC`

	rows, err := r.pool.Query(ctx, query, channelID, since)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanVideos(rows)
}

// CountChannels returns the number of cached channels.
func (r *ChannelRepo) CountChannels(ctx context.Context) (int, error) {
	var n int
	err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM channels`).Scan(&n)
	return n, err
}

func scanVideos(rows pgx.Rows) ([]model.Video, error) {
	var videos []model.Video
	for rows.Next() {
		var v model.Video
		err := rows.Scan(
			&v.VideoID, &v.ChannelID, &v.Title, &v.ViewCount, &v.LikeCount,
			&v.CommentCount, &v.Duration, &v.Type, &v.PublishedAt,
		)
		if err != nil {
			return nil, err
		}
		videos = append(videos, v)
	}
	return videos, rows.Err()
}
