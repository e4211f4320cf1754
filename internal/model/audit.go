package model

import "time"

// AuditStatus represents the lifecycle state of an audit run.
type AuditStatus string

const (
	AuditStatusCreated   AuditStatus = "created"
	AuditStatusRunning   AuditStatus = "running"
	AuditStatusCompleted AuditStatus = "completed"
	AuditStatusFailed    AuditStatus = "failed"
)

// AuditType distinguishes a sales-prospect audit from a client baseline audit.
type AuditType string

const (
	AuditTypeProspect       AuditType = "prospect"
	AuditTypeClientBaseline AuditType = "client_baseline"
)

// SectionKey identifies one stage of the audit pipeline. Sections always
// execute in the order returned by SectionKeys.
type SectionKey string

const (
	SectionIngestion           SectionKey = "ingestion"
	SectionSeriesDetection     SectionKey = "series_detection"
	SectionCompetitorMatching  SectionKey = "competitor_matching"
	SectionBenchmarking        SectionKey = "benchmarking"
	SectionOpportunityAnalysis SectionKey = "opportunity_analysis"
	SectionRecommendations     SectionKey = "recommendations"
	SectionExecutiveSummary    SectionKey = "executive_summary"
)

// SectionKeys returns the pipeline stages in execution order.
func SectionKeys() []SectionKey {
	return []SectionKey{
		SectionIngestion,
		SectionSeriesDetection,
		SectionCompetitorMatching,
		SectionBenchmarking,
		SectionOpportunityAnalysis,
		SectionRecommendations,
		SectionExecutiveSummary,
	}
}

// SectionStatus represents the state of a single pipeline stage.
type SectionStatus string

const (
	SectionStatusPending   SectionStatus = "pending"
	SectionStatusRunning   SectionStatus = "running"
	SectionStatusCompleted SectionStatus = "completed"
	SectionStatusFailed    SectionStatus = "failed"
)

// Section is one pipeline stage's execution record.
type Section struct {
	AuditID      string         `json:"auditId"`
	Key          SectionKey     `json:"key"`
	Status       SectionStatus  `json:"status"`
	StartedAt    *time.Time     `json:"startedAt,omitempty"`
	CompletedAt  *time.Time     `json:"completedAt,omitempty"`
	ErrorMessage string         `json:"errorMessage,omitempty"`
	ResultData   map[string]any `json:"resultData,omitempty"`
}

// Progress is the caller-visible progress marker. Pct never decreases while
// an audit is running.
type Progress struct {
	CurrentStep string `json:"currentStep"`
	Pct         int    `json:"pct"`
	Message     string `json:"message"`
}

// Cost accumulates external spend for an audit. All fields are additive and
// never decrease.
type Cost struct {
	LLMCost   float64 `json:"llmCost"`
	LLMTokens int     `json:"llmTokens"`
	APICalls  int     `json:"apiCalls"`
}

// CostDelta is a single increment applied to an audit's cost totals.
type CostDelta struct {
	LLMCost   float64
	LLMTokens int
	APICalls  int
}

// PeerScope selects which peer channels benchmark comparisons draw from.
// The zero value means "all peers"; a scoped value carries an explicit
// category set so that "no scope chosen" and "empty scope" cannot be confused.
type PeerScope struct {
	scoped     bool
	categories []string
}

// AllPeers returns an unscoped peer selection.
func AllPeers() PeerScope {
	return PeerScope{}
}

// ScopedPeers restricts peer selection to the given category ids.
func ScopedPeers(categories []string) PeerScope {
	return PeerScope{scoped: true, categories: categories}
}

// Scoped reports whether a category restriction applies and, if so, which
// categories it covers.
func (s PeerScope) Scoped() ([]string, bool) {
	return s.categories, s.scoped
}

// BrandContext carries optional client branding hints for the prose stages.
type BrandContext struct {
	BrandName string `json:"brandName,omitempty"`
	Voice     string `json:"voice,omitempty"`
	Goals     string `json:"goals,omitempty"`
}

// AuditConfig is the per-run configuration supplied at creation.
type AuditConfig struct {
	ForceRefresh bool          `json:"forceRefresh"`
	PeerScope    PeerScope     `json:"-"`
	BrandContext *BrandContext `json:"brandContext,omitempty"`
}

// AuditResults holds the typed per-stage outputs, populated incrementally as
// stages complete. Once an audit reaches completed, every field is present.
type AuditResults struct {
	ChannelSnapshot  *ChannelSnapshot   `json:"channelSnapshot,omitempty"`
	SeriesSummary    *SeriesSummary     `json:"seriesSummary,omitempty"`
	BenchmarkData    *BenchmarkData     `json:"benchmarkData,omitempty"`
	Opportunities    []Opportunity      `json:"opportunities,omitempty"`
	Recommendations  *Narrative         `json:"recommendations,omitempty"`
	ExecutiveSummary *Narrative         `json:"executiveSummary,omitempty"`
	Videos           []CategorizedVideo `json:"videos,omitempty"`
}

// Audit is one audit run. It is created by the orchestrator, mutated only by
// its single orchestrating invocation, and immutable once terminal.
type Audit struct {
	ID               string       `json:"auditId"`
	ChannelReference string       `json:"channelReference"`
	ChannelID        string       `json:"channelId"`
	AuditType        AuditType    `json:"auditType"`
	Status           AuditStatus  `json:"status"`
	Progress         Progress     `json:"progress"`
	Cost             Cost         `json:"cost"`
	Config           AuditConfig  `json:"config"`
	Results          AuditResults `json:"results"`
	CreatedAt        time.Time    `json:"createdAt"`
	UpdatedAt        time.Time    `json:"updatedAt"`
}

// IsTerminal reports whether the audit reached a final state.
func (a *Audit) IsTerminal() bool {
	return a.Status == AuditStatusCompleted || a.Status == AuditStatusFailed
}

// SectionUpdate describes one section state transition. Nil fields are left
// untouched by the store.
type SectionUpdate struct {
	Status       SectionStatus
	StartedAt    *time.Time
	CompletedAt  *time.Time
	ErrorMessage string
	ResultData   map[string]any
}

// ResultPatch applies one or more stage outputs to an audit. Only non-nil
// fields are written, so a stage can never clobber another stage's result.
type ResultPatch struct {
	ChannelSnapshot  *ChannelSnapshot
	SeriesSummary    *SeriesSummary
	BenchmarkData    *BenchmarkData
	Opportunities    []Opportunity
	Recommendations  *Narrative
	ExecutiveSummary *Narrative
	Videos           []CategorizedVideo
}

// Narrative is an LLM-produced prose block plus the usage it cost. The text
// content is opaque to the pipeline; only its slot and cost are modeled.
type Narrative struct {
	Text      string  `json:"text"`
	Model     string  `json:"model,omitempty"`
	LLMTokens int     `json:"llmTokens"`
	LLMCost   float64 `json:"llmCost"`
}

// Opportunity is one derived improvement lever for the audited channel.
type Opportunity struct {
	Kind        string  `json:"kind"`
	Title       string  `json:"title"`
	Description string  `json:"description"`
	Impact      string  `json:"impact"`
	Metric      string  `json:"metric,omitempty"`
	Delta       float64 `json:"delta,omitempty"`
}
