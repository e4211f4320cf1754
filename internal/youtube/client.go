// Package youtube defines the boundary contract with the YouTube Data API.
// The audit core consumes typed outputs only; a concrete client (Data API v3,
// yt-dlp, or a test fake) is injected at wiring time.
package youtube

import (
	"context"
	"errors"
	"time"
)

// ErrChannelNotFound is returned when a channel reference cannot be resolved
// to a canonical channel id, or resolves ambiguously.
var ErrChannelNotFound = errors.New("youtube: channel not found")

// ChannelDetails is the typed result of a channel details fetch.
type ChannelDetails struct {
	ChannelID       string
	Title           string
	SubscriberCount int64
	TotalViewCount  int64
	VideoCount      int
	ThumbnailURL    string
	Category        string
	// UploadsSource identifies where to list the channel's uploads from
	// (for the Data API this is the uploads playlist id).
	UploadsSource string
}

// VideoDetails is one video as returned by the platform, most recent first.
type VideoDetails struct {
	VideoID      string
	Title        string
	ViewCount    int64
	LikeCount    int64
	CommentCount int64
	Duration     float64
	IsShort      bool
	PublishedAt  time.Time
}

// Client is the external platform client the ingestion stage talks to.
// Implementations report their own retry/backoff behavior internally; the
// pipeline treats any returned error as fatal to the current stage.
type Client interface {
	// ResolveChannel turns a free-form reference (URL, @handle, or channel
	// id) into a canonical channel id. Returns ErrChannelNotFound for bad or
	// ambiguous input; it never silently defaults.
	ResolveChannel(ctx context.Context, reference string) (string, error)

	// FetchChannelDetails returns current channel statistics and metadata.
	FetchChannelDetails(ctx context.Context, channelID string) (*ChannelDetails, error)

	// FetchChannelVideos lists up to maxCount videos from the uploads
	// source, most recent first.
	FetchChannelVideos(ctx context.Context, uploadsSource string, maxCount int) ([]VideoDetails, error)
}
