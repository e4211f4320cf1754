package model

import "time"

// VideoType distinguishes Shorts from long-form uploads.
type VideoType string

const (
	VideoTypeShort VideoType = "short"
	VideoTypeLong  VideoType = "long"
)

// Video is a cached video row belonging to exactly one channel. Metrics are
// refreshed on re-sync; everything else is immutable once stored.
type Video struct {
	VideoID      string    `json:"videoId"`
	ChannelID    string    `json:"channelId"`
	Title        string    `json:"title"`
	ViewCount    int64     `json:"viewCount"`
	LikeCount    int64     `json:"likeCount"`
	CommentCount int64     `json:"commentCount"`
	Duration     float64   `json:"durationSeconds"`
	Type         VideoType `json:"type"`
	PublishedAt  time.Time `json:"publishedAt"`
}

// EngagementRate returns (likes + comments) / max(views, 1).
func (v Video) EngagementRate() float64 {
	views := v.ViewCount
	if views < 1 {
		views = 1
	}
	return float64(v.LikeCount+v.CommentCount) / float64(views)
}

// PerformanceQuadrant is the reach/engagement category a video falls into
// relative to its channel's own medians.
type PerformanceQuadrant string

const (
	QuadrantBreakout       PerformanceQuadrant = "breakout"
	QuadrantHiddenGem      PerformanceQuadrant = "hidden_gem"
	QuadrantInvestigate    PerformanceQuadrant = "investigate"
	QuadrantUnderperformer PerformanceQuadrant = "underperformer"
)

// CategorizedVideo annotates a video with channel-relative performance
// ratios and flags. Derived per audit run, never persisted on its own.
type CategorizedVideo struct {
	Video
	EngagementRateValue float64             `json:"engagementRate"`
	ViewsRatio          float64             `json:"viewsRatio"`
	EngagementRatio     float64             `json:"engagementRatio"`
	IsHighReach         bool                `json:"isHighReach"`
	IsLowEngagement     bool                `json:"isLowEngagement"`
	Quadrant            PerformanceQuadrant `json:"quadrant"`
	Diagnostic          string              `json:"diagnostic,omitempty"`
}
