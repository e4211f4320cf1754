package model

// Series is one detected recurring content format on a channel.
type Series struct {
	Name         string  `json:"name"`
	EpisodeCount int     `json:"episodeCount"`
	AvgViews     float64 `json:"avgViews"`
	VideoIDs     []string `json:"videoIds"`
}

// SeriesSummary is the series-detection stage's output. A channel with no
// detectable series yields an empty but well-formed summary.
type SeriesSummary struct {
	Series          []Series `json:"series"`
	SeriesCount     int      `json:"seriesCount"`
	VideosInSeries  int      `json:"videosInSeries"`
	StandaloneCount int      `json:"standaloneCount"`
}
