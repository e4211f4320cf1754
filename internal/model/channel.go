package model

import "time"

// SizeTier buckets channels by subscriber count for peer comparison and for
// sizing ingestion limits.
type SizeTier string

const (
	TierEmerging    SizeTier = "emerging"    // [0, 10K)
	TierGrowing     SizeTier = "growing"     // [10K, 100K)
	TierEstablished SizeTier = "established" // [100K, 500K)
	TierMajor       SizeTier = "major"       // [500K, 1M)
	TierElite       SizeTier = "elite"       // [1M, ∞)
)

// Channel is a cached YouTube channel row, shared across audits.
type Channel struct {
	ChannelID       string    `json:"channelId"`
	Title           string    `json:"title"`
	ThumbnailURL    string    `json:"thumbnailUrl,omitempty"`
	UploadsSource   string    `json:"-"`
	SubscriberCount int64     `json:"subscriberCount"`
	TotalViewCount  int64     `json:"totalViewCount"`
	VideoCount      int       `json:"videoCount"`
	Category        string    `json:"category,omitempty"`
	SizeTier        SizeTier  `json:"sizeTier"`
	LastSyncedAt    time.Time `json:"lastSyncedAt"`
}

// ChannelSnapshot is the ingestion stage's summary of a channel's recent
// performance over the trailing 90 days.
type ChannelSnapshot struct {
	ChannelID         string   `json:"channelId"`
	Title             string   `json:"title"`
	SubscriberCount   int64    `json:"subscriberCount"`
	TotalViewCount    int64    `json:"totalViewCount"`
	VideoCount        int      `json:"videoCount"`
	SizeTier          SizeTier `json:"sizeTier"`
	RecentVideoCount  int      `json:"recentVideoCount"`
	AvgRecentViews    float64  `json:"avgRecentViews"`
	AvgEngagementRate float64  `json:"avgEngagementRate"`
	UploadsPerMonth   float64  `json:"uploadsPerMonth"`
	ShortsRatio       float64  `json:"shortsRatio"`
	FromCache         bool     `json:"fromCache"`
}
