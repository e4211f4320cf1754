package model

// BenchmarkStatus classifies a single metric comparison against peers.
type BenchmarkStatus string

const (
	BenchmarkAbove  BenchmarkStatus = "above"
	BenchmarkBelow  BenchmarkStatus = "below"
	BenchmarkInline BenchmarkStatus = "inline"
)

// PeerStats are percentile statistics for one metric over the pooled peer
// sample.
type PeerStats struct {
	P25    float64 `json:"p25"`
	Median float64 `json:"median"`
	P75    float64 `json:"p75"`
}

// BenchmarkResult compares one channel metric against the peer median.
type BenchmarkResult struct {
	Metric       string          `json:"metric"`
	ChannelValue float64         `json:"channelValue"`
	Peer         PeerStats       `json:"peer"`
	Ratio        float64         `json:"ratio"`
	Status       BenchmarkStatus `json:"status"`
}

// BenchmarkData is the benchmarking stage's output. When the peer cohort is
// below the minimum threshold, HasBenchmarks is false, Reason explains why,
// and no results or overall score are present.
type BenchmarkData struct {
	HasBenchmarks  bool              `json:"hasBenchmarks"`
	Reason         string            `json:"reason,omitempty"`
	PeerCount      int               `json:"peerCount"`
	PeerSampleSize int               `json:"peerSampleSize,omitempty"`
	Results        []BenchmarkResult `json:"results,omitempty"`
	OverallScore   float64           `json:"overallScore,omitempty"`
	Classification string            `json:"classification,omitempty"`
}
