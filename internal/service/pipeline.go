package service

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/tubelens/tubelens-go/internal/model"
	"github.com/tubelens/tubelens-go/internal/youtube"
)

// AuditStore is the record store the orchestrator drives. Satisfied by
// *repository.AuditRepo; tests inject an in-memory fake. Progress writes are
// set-to-at-least-current and cost writes are additive, so repeating a call
// never regresses state.
type AuditStore interface {
	CreateAudit(ctx context.Context, audit *model.Audit) error
	UpdateAuditStatus(ctx context.Context, auditID string, status model.AuditStatus) error
	UpdateAuditProgress(ctx context.Context, auditID string, p model.Progress) error
	UpdateAuditSection(ctx context.Context, auditID string, key model.SectionKey, u model.SectionUpdate) error
	AddAuditCost(ctx context.Context, auditID string, delta model.CostDelta) error
	SaveAuditResults(ctx context.Context, auditID string, patch model.ResultPatch) error
	GetAudit(ctx context.Context, auditID string) (*model.Audit, error)
	GetAuditSections(ctx context.Context, auditID string) ([]model.Section, error)
	ListAudits(ctx context.Context, limit int) ([]model.Audit, error)
	DeleteAudit(ctx context.Context, auditID string) error
}

// Progress milestones per stage. Monotonically increasing; the final stage
// lands on 100.
var stageMilestones = map[model.SectionKey]int{
	model.SectionIngestion:           15,
	model.SectionSeriesDetection:     30,
	model.SectionCompetitorMatching:  45,
	model.SectionBenchmarking:        60,
	model.SectionOpportunityAnalysis: 75,
	model.SectionRecommendations:     90,
	model.SectionExecutiveSummary:    100,
}

// PipelineObserver receives pipeline lifecycle events, typically for
// metrics. All methods must be cheap and non-blocking.
type PipelineObserver interface {
	StageFinished(key model.SectionKey, d time.Duration, failed bool)
	AuditFinished(status model.AuditStatus)
	CostAdded(delta model.CostDelta)
}

// Pipeline sequences the seven audit stages and owns the audit state
// machine. All collaborators are injected; the pipeline itself performs no
// I/O beyond the store and what its collaborators do.
type Pipeline struct {
	store     AuditStore
	yt        youtube.Client
	ingest    *IngestService
	series    *SeriesService
	bench     *BenchmarkService
	opps      *OpportunityService
	narrative *NarrativeService
	observer  PipelineObserver
}

func NewPipeline(store AuditStore, yt youtube.Client, ingest *IngestService, series *SeriesService, bench *BenchmarkService, opps *OpportunityService, narrative *NarrativeService) *Pipeline {
	return &Pipeline{
		store:     store,
		yt:        yt,
		ingest:    ingest,
		series:    series,
		bench:     bench,
		opps:      opps,
		narrative: narrative,
	}
}

// auditRun carries intermediate stage outputs through one invocation so
// later stages consume typed values instead of re-reading the store.
type auditRun struct {
	audit    *model.Audit
	videos   []model.Video
	snapshot *model.ChannelSnapshot
	cat      Categorization
	peers    []model.Channel
}

type stage struct {
	key model.SectionKey
	run func(ctx context.Context, run *auditRun) (map[string]any, error)
}

// CreateAudit resolves the channel reference and creates the audit record
// with all sections pending. A resolution failure rejects the request before
// any record exists.
func (p *Pipeline) CreateAudit(ctx context.Context, channelReference string, auditType model.AuditType, cfg model.AuditConfig) (*model.Audit, error) {
	channelID, err := p.yt.ResolveChannel(ctx, channelReference)
	if err != nil {
		return nil, fmt.Errorf("resolve channel reference %q: %w", channelReference, err)
	}

	audit := &model.Audit{
		ID:               uuid.NewString(),
		ChannelReference: channelReference,
		ChannelID:        channelID,
		AuditType:        auditType,
		Status:           model.AuditStatusCreated,
		Progress:         model.Progress{CurrentStep: "created", Pct: 0, Message: "audit created"},
		Config:           cfg,
		CreatedAt:        time.Now(),
		UpdatedAt:        time.Now(),
	}

	if err := p.store.CreateAudit(ctx, audit); err != nil {
		return nil, fmt.Errorf("create audit record: %w", err)
	}
	return audit, nil
}

// Run drives one audit through every stage in order. It must be called
// exactly once per audit; concurrent invocations for the same audit id are
// not supported. Cancellation is observed only between stages — an in-flight
// stage always finishes before the failure is recorded.
func (p *Pipeline) Run(ctx context.Context, audit *model.Audit) error {
	if audit.IsTerminal() {
		return fmt.Errorf("audit %s already %s", audit.ID, audit.Status)
	}

	if err := p.store.UpdateAuditStatus(ctx, audit.ID, model.AuditStatusRunning); err != nil {
		// A created audit is invisible to the stuck-audit sweep, so even a
		// failed start transition must leave a terminal record behind.
		err = fmt.Errorf("transition audit to running: %w", err)
		p.failAudit(audit)
		log.Printf("pipeline: audit %s failed before start: %v", audit.ID, err)
		return err
	}
	audit.Status = model.AuditStatusRunning

	run := &auditRun{audit: audit}
	started := time.Now()

	for _, st := range p.stages() {
		if err := ctx.Err(); err != nil {
			return p.failStage(audit, st.key, fmt.Errorf("audit cancelled: %w", err))
		}

		if err := p.beginStage(ctx, audit, st.key); err != nil {
			return p.failStage(audit, st.key, err)
		}

		stageStart := time.Now()
		resultData, err := st.run(ctx, run)
		if p.observer != nil {
			p.observer.StageFinished(st.key, time.Since(stageStart), err != nil)
		}
		if err != nil {
			return p.failStage(audit, st.key, err)
		}

		if err := p.completeStage(ctx, audit, st.key, resultData); err != nil {
			return p.failStage(audit, st.key, err)
		}
	}

	if err := p.store.UpdateAuditStatus(ctx, audit.ID, model.AuditStatusCompleted); err != nil {
		return fmt.Errorf("transition audit to completed: %w", err)
	}
	audit.Status = model.AuditStatusCompleted
	if p.observer != nil {
		p.observer.AuditFinished(model.AuditStatusCompleted)
	}

	log.Printf("pipeline: audit %s completed in %s (channel=%s)",
		audit.ID, time.Since(started).Round(time.Millisecond), audit.ChannelID)
	return nil
}

func (p *Pipeline) stages() []stage {
	return []stage{
		{model.SectionIngestion, p.runIngestion},
		{model.SectionSeriesDetection, p.runSeriesDetection},
		{model.SectionCompetitorMatching, p.runCompetitorMatching},
		{model.SectionBenchmarking, p.runBenchmarking},
		{model.SectionOpportunityAnalysis, p.runOpportunityAnalysis},
		{model.SectionRecommendations, p.runRecommendations},
		{model.SectionExecutiveSummary, p.runExecutiveSummary},
	}
}

func (p *Pipeline) beginStage(ctx context.Context, audit *model.Audit, key model.SectionKey) error {
	now := time.Now()
	if err := p.store.UpdateAuditSection(ctx, audit.ID, key, model.SectionUpdate{
		Status:    model.SectionStatusRunning,
		StartedAt: &now,
	}); err != nil {
		return fmt.Errorf("mark section %s running: %w", key, err)
	}

	return p.store.UpdateAuditProgress(ctx, audit.ID, model.Progress{
		CurrentStep: string(key),
		Pct:         audit.Progress.Pct,
		Message:     fmt.Sprintf("running %s", key),
	})
}

func (p *Pipeline) completeStage(ctx context.Context, audit *model.Audit, key model.SectionKey, resultData map[string]any) error {
	now := time.Now()
	if err := p.store.UpdateAuditSection(ctx, audit.ID, key, model.SectionUpdate{
		Status:      model.SectionStatusCompleted,
		CompletedAt: &now,
		ResultData:  resultData,
	}); err != nil {
		return fmt.Errorf("mark section %s completed: %w", key, err)
	}

	progress := model.Progress{
		CurrentStep: string(key),
		Pct:         stageMilestones[key],
		Message:     fmt.Sprintf("%s completed", key),
	}
	if err := p.store.UpdateAuditProgress(ctx, audit.ID, progress); err != nil {
		return fmt.Errorf("advance progress after %s: %w", key, err)
	}
	audit.Progress = progress
	return nil
}

// failStage records the stage failure and marks the whole audit failed.
// Results from already-completed stages stay in place for diagnosis. Store
// errors during failure recording are logged, not returned — the stage error
// is the one the caller needs.
func (p *Pipeline) failStage(audit *model.Audit, key model.SectionKey, stageErr error) error {
	// The run's context may already be cancelled; failure recording must
	// still reach the store.
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	now := time.Now()
	if err := p.store.UpdateAuditSection(ctx, audit.ID, key, model.SectionUpdate{
		Status:       model.SectionStatusFailed,
		CompletedAt:  &now,
		ErrorMessage: stageErr.Error(),
	}); err != nil {
		log.Printf("pipeline: record section failure for %s/%s: %v", audit.ID, key, err)
	}

	p.failAudit(audit)

	log.Printf("pipeline: audit %s failed at %s: %v", audit.ID, key, stageErr)
	return fmt.Errorf("stage %s: %w", key, stageErr)
}

// failAudit best-effort marks the audit failed on a fresh context. Store
// errors are logged, not returned.
func (p *Pipeline) failAudit(audit *model.Audit) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := p.store.UpdateAuditStatus(ctx, audit.ID, model.AuditStatusFailed); err != nil {
		log.Printf("pipeline: record audit failure for %s: %v", audit.ID, err)
	}
	audit.Status = model.AuditStatusFailed
	if p.observer != nil {
		p.observer.AuditFinished(model.AuditStatusFailed)
	}
}

// WithObserver attaches a lifecycle observer. Call before Run.
func (p *Pipeline) WithObserver(o PipelineObserver) *Pipeline {
	p.observer = o
	return p
}

// --- stage implementations ---

func (p *Pipeline) runIngestion(ctx context.Context, run *auditRun) (map[string]any, error) {
	result, err := p.ingest.Ingest(ctx, run.audit.ChannelID, run.audit.Config.ForceRefresh)
	if err != nil {
		return nil, err
	}

	if result.APICalls > 0 {
		delta := model.CostDelta{APICalls: result.APICalls}
		if err := p.store.AddAuditCost(ctx, run.audit.ID, delta); err != nil {
			return nil, fmt.Errorf("record api cost: %w", err)
		}
		if p.observer != nil {
			p.observer.CostAdded(delta)
		}
	}

	run.videos = result.Videos
	run.snapshot = result.Snapshot
	run.audit.Results.ChannelSnapshot = result.Snapshot

	if err := p.store.SaveAuditResults(ctx, run.audit.ID, model.ResultPatch{ChannelSnapshot: result.Snapshot}); err != nil {
		return nil, fmt.Errorf("save channel snapshot: %w", err)
	}

	return map[string]any{
		"videoCount": len(result.Videos),
		"fromCache":  result.FromCache,
		"sizeTier":   string(result.Snapshot.SizeTier),
	}, nil
}

func (p *Pipeline) runSeriesDetection(ctx context.Context, run *auditRun) (map[string]any, error) {
	summary := p.series.Detect(run.videos)
	run.audit.Results.SeriesSummary = summary

	if err := p.store.SaveAuditResults(ctx, run.audit.ID, model.ResultPatch{SeriesSummary: summary}); err != nil {
		return nil, fmt.Errorf("save series summary: %w", err)
	}

	return map[string]any{
		"seriesCount":    summary.SeriesCount,
		"videosInSeries": summary.VideosInSeries,
	}, nil
}

func (p *Pipeline) runCompetitorMatching(ctx context.Context, run *auditRun) (map[string]any, error) {
	peers, err := p.bench.SelectPeers(ctx, run.snapshot, run.audit.Config.PeerScope)
	if err != nil {
		return nil, err
	}
	run.peers = peers

	return map[string]any{"peerCount": len(peers)}, nil
}

func (p *Pipeline) runBenchmarking(ctx context.Context, run *auditRun) (map[string]any, error) {
	data, err := p.bench.Compare(ctx, run.snapshot, run.peers)
	if err != nil {
		return nil, err
	}
	run.audit.Results.BenchmarkData = data

	if err := p.store.SaveAuditResults(ctx, run.audit.ID, model.ResultPatch{BenchmarkData: data}); err != nil {
		return nil, fmt.Errorf("save benchmark data: %w", err)
	}

	return map[string]any{
		"hasBenchmarks": data.HasBenchmarks,
		"peerCount":     data.PeerCount,
	}, nil
}

func (p *Pipeline) runOpportunityAnalysis(ctx context.Context, run *auditRun) (map[string]any, error) {
	run.cat = Categorize(run.videos, CategorizeOptions{})
	opportunities := p.opps.Derive(run.cat, run.audit.Results.SeriesSummary, run.audit.Results.BenchmarkData)

	run.audit.Results.Opportunities = opportunities
	run.audit.Results.Videos = run.cat.Videos

	if err := p.store.SaveAuditResults(ctx, run.audit.ID, model.ResultPatch{
		Opportunities: opportunities,
		Videos:        run.cat.Videos,
	}); err != nil {
		return nil, fmt.Errorf("save opportunities: %w", err)
	}

	return map[string]any{
		"opportunityCount": len(opportunities),
		"videosAnalyzed":   len(run.cat.Videos),
	}, nil
}

func (p *Pipeline) runRecommendations(ctx context.Context, run *auditRun) (map[string]any, error) {
	narrative, err := p.narrative.Recommendations(ctx, run.audit, run.audit.Results.Opportunities)
	if err != nil {
		return nil, err
	}

	if err := p.addNarrativeCost(ctx, run.audit.ID, narrative); err != nil {
		return nil, err
	}

	run.audit.Results.Recommendations = narrative
	if err := p.store.SaveAuditResults(ctx, run.audit.ID, model.ResultPatch{Recommendations: narrative}); err != nil {
		return nil, fmt.Errorf("save recommendations: %w", err)
	}

	return map[string]any{"llmTokens": narrative.LLMTokens}, nil
}

func (p *Pipeline) runExecutiveSummary(ctx context.Context, run *auditRun) (map[string]any, error) {
	narrative, err := p.narrative.ExecutiveSummary(ctx, run.audit)
	if err != nil {
		return nil, err
	}

	if err := p.addNarrativeCost(ctx, run.audit.ID, narrative); err != nil {
		return nil, err
	}

	run.audit.Results.ExecutiveSummary = narrative
	if err := p.store.SaveAuditResults(ctx, run.audit.ID, model.ResultPatch{ExecutiveSummary: narrative}); err != nil {
		return nil, fmt.Errorf("save executive summary: %w", err)
	}

	return map[string]any{"llmTokens": narrative.LLMTokens}, nil
}

func (p *Pipeline) addNarrativeCost(ctx context.Context, auditID string, n *model.Narrative) error {
	if n.LLMTokens == 0 && n.LLMCost == 0 {
		return nil
	}
	delta := model.CostDelta{
		LLMCost:   n.LLMCost,
		LLMTokens: n.LLMTokens,
	}
	if err := p.store.AddAuditCost(ctx, auditID, delta); err != nil {
		return fmt.Errorf("record llm cost: %w", err)
	}
	if p.observer != nil {
		p.observer.CostAdded(delta)
	}
	return nil
}
