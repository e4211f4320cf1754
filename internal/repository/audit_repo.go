package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/tubelens/tubelens-go/internal/model"
)

// AuditRepo persists audits and their pipeline sections.
type AuditRepo struct {
	pool *pgxpool.Pool
}

func NewAuditRepo(pool *pgxpool.Pool) *AuditRepo {
	return &AuditRepo{pool: pool}
}

// CreateAudit inserts the audit row plus one pending section per pipeline
// stage, in a single transaction.
func (r *AuditRepo) CreateAudit(ctx context.Context, audit *model.Audit) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	var peerCategories []string
	if cats, scoped := audit.Config.PeerScope.Scoped(); scoped {
		peerCategories = cats
	}

	brandJSON, err := json.Marshal(audit.Config.BrandContext)
	if err != nil {
		return fmt.Errorf("marshal brand context: %w", err)
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO audits (audit_id, channel_reference, channel_id, audit_type, status,
		                    progress_step, progress_pct, progress_message,
		                    force_refresh, peer_categories, brand_context,
		                    created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, NOW(), NOW())`,
		audit.ID, audit.ChannelReference, audit.ChannelID, audit.AuditType, audit.Status,
		audit.Progress.CurrentStep, audit.Progress.Pct, audit.Progress.Message,
		audit.Config.ForceRefresh, peerCategories, brandJSON,
	)
	if err != nil {
		return err
	}

	for i, key := range model.SectionKeys() {
		_, err = tx.Exec(ctx, `
			INSERT INTO audit_sections (audit_id, section_key, position, status)
			VALUES ($1, $2, $3, $4)`,
			audit.ID, key, i, model.SectionStatusPending,
		)
		if err != nil {
			return err
		}
	}

	return tx.Commit(ctx)
}

// UpdateAuditStatus transitions the audit's lifecycle status.
func (r *AuditRepo) UpdateAuditStatus(ctx context.Context, auditID string, status model.AuditStatus) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE audits SET status = $1, updated_at = NOW() WHERE audit_id = $2`,
		status, auditID)
	return err
}

// UpdateAuditProgress sets the progress marker. Pct is clamped to never
// decrease, so repeated or out-of-order writes stay monotonic.
func (r *AuditRepo) UpdateAuditProgress(ctx context.Context, auditID string, p model.Progress) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE audits
		SET progress_step = $1,
		    progress_pct = GREATEST(progress_pct, $2),
		    progress_message = $3,
		    updated_at = NOW()
		WHERE audit_id = $4`,
		p.CurrentStep, p.Pct, p.Message, auditID)
	return err
}

// UpdateAuditSection applies a section state transition.
func (r *AuditRepo) UpdateAuditSection(ctx context.Context, auditID string, key model.SectionKey, u model.SectionUpdate) error {
	resultJSON, err := json.Marshal(u.ResultData)
	if err != nil {
		return fmt.Errorf("marshal section result: %w", err)
	}

	_, err = r.pool.Exec(ctx, `
		UPDATE audit_sections
		SET status = $1,
		    started_at = COALESCE($2, started_at),
		    completed_at = COALESCE($3, completed_at),
		    error_message = CASE WHEN $4 = '' THEN error_message ELSE $4 END,
		    result_data = CASE WHEN $5::jsonb = 'null'::jsonb THEN result_data ELSE $5::jsonb END
		WHERE audit_id = $6 AND section_key = $7`,
		u.Status, u.StartedAt, u.CompletedAt, u.ErrorMessage, resultJSON, auditID, key)
	return err
}

// AddAuditCost adds the delta to the running cost totals. Additive on the
// database side, so concurrent and repeated calls accumulate correctly.
func (r *AuditRepo) AddAuditCost(ctx context.Context, auditID string, delta model.CostDelta) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE audits
		SET cost_llm = cost_llm + $1,
		    cost_llm_tokens = cost_llm_tokens + $2,
		    cost_api_calls = cost_api_calls + $3,
		    updated_at = NOW()
		WHERE audit_id = $4`,
		delta.LLMCost, delta.LLMTokens, delta.APICalls, auditID)
	return err
}

// SaveAuditResults writes only the non-nil fields of the patch.
func (r *AuditRepo) SaveAuditResults(ctx context.Context, auditID string, patch model.ResultPatch) error {
	columns := []struct {
		column string
		value  any
	}{
		{"channel_snapshot", patch.ChannelSnapshot},
		{"series_summary", patch.SeriesSummary},
		{"benchmark_data", patch.BenchmarkData},
		{"opportunities", anySlice(patch.Opportunities)},
		{"recommendations", patch.Recommendations},
		{"executive_summary", patch.ExecutiveSummary},
		{"videos", anySlice(patch.Videos)},
	}

	for _, c := range columns {
		if c.value == nil {
			continue
		}
		data, err := json.Marshal(c.value)
		if err != nil {
			return fmt.Errorf("marshal %s: %w", c.column, err)
		}
		query := fmt.Sprintf(`UPDATE audits SET %s = $1, updated_at = NOW() WHERE audit_id = $2`, c.column)
		if _, err := r.pool.Exec(ctx, query, data, auditID); err != nil {
			return err
		}
	}
	return nil
}

// anySlice converts a typed slice into a non-nil any only when data exists,
// so empty stages do not overwrite prior results with null.
func anySlice[T any](s []T) any {
	if s == nil {
		return nil
	}
	return s
}

// GetAudit returns a single audit with its typed results unmarshaled.
func (r *AuditRepo) GetAudit(ctx context.Context, auditID string) (*model.Audit, error) {
	query := `
		SELECT audit_id, channel_reference, channel_id, audit_type, status,
		       progress_step, progress_pct, progress_message,
		       cost_llm, cost_llm_tokens, cost_api_calls,
		       force_refresh, peer_categories, brand_context,
		       channel_snapshot, series_summary, benchmark_data,
		       opportunities, recommendations, executive_summary, videos,
		       created_at, updated_at
		FROM audits
		WHERE audit_id = $1`

	var a model.Audit
	var peerCategories []string
	var brandJSON, snapshotJSON, seriesJSON, benchJSON,
		oppsJSON, recsJSON, summaryJSON, videosJSON []byte

	err := r.pool.QueryRow(ctx, query, auditID).Scan(
		&a.ID, &a.ChannelReference, &a.ChannelID, &a.AuditType, &a.Status,
		&a.Progress.CurrentStep, &a.Progress.Pct, &a.Progress.Message,
		&a.Cost.LLMCost, &a.Cost.LLMTokens, &a.Cost.APICalls,
		&a.Config.ForceRefresh, &peerCategories, &brandJSON,
		&snapshotJSON, &seriesJSON, &benchJSON,
		&oppsJSON, &recsJSON, &summaryJSON, &videosJSON,
		&a.CreatedAt, &a.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if peerCategories != nil {
		a.Config.PeerScope = model.ScopedPeers(peerCategories)
	}
	unmarshalInto(brandJSON, &a.Config.BrandContext)
	unmarshalInto(snapshotJSON, &a.Results.ChannelSnapshot)
	unmarshalInto(seriesJSON, &a.Results.SeriesSummary)
	unmarshalInto(benchJSON, &a.Results.BenchmarkData)
	unmarshalInto(oppsJSON, &a.Results.Opportunities)
	unmarshalInto(recsJSON, &a.Results.Recommendations)
	unmarshalInto(summaryJSON, &a.Results.ExecutiveSummary)
	unmarshalInto(videosJSON, &a.Results.Videos)

	return &a, nil
}

func unmarshalInto[T any](data []byte, target *T) {
	if len(data) == 0 {
		return
	}
	// Result columns are written by this process; a corrupt blob means a bug,
	// not recoverable input, so decode errors leave the field zero.
	_ = json.Unmarshal(data, target)
}

// GetAuditSections returns the audit's sections in pipeline order.
func (r *AuditRepo) GetAuditSections(ctx context.Context, auditID string) ([]model.Section, error) {
	query := `
		SELECT audit_id, section_key, status, started_at, completed_at,
		       error_message, result_data
		FROM audit_sections
		WHERE audit_id = $1
		ORDER BY position ASC`

	rows, err := r.pool.Query(ctx, query, auditID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sections []model.Section
	for rows.Next() {
		var s model.Section
		var errMsg *string
		var resultJSON []byte
		if err := rows.Scan(&s.AuditID, &s.Key, &s.Status, &s.StartedAt, &s.CompletedAt, &errMsg, &resultJSON); err != nil {
			return nil, err
		}
		if errMsg != nil {
			s.ErrorMessage = *errMsg
		}
		unmarshalInto(resultJSON, &s.ResultData)
		sections = append(sections, s)
	}
	return sections, rows.Err()
}

// ListAudits returns the most recent audits without their result blobs.
func (r *AuditRepo) ListAudits(ctx context.Context, limit int) ([]model.Audit, error) {
	query := `
		SELECT audit_id, channel_reference, channel_id, audit_type, status,
		       progress_step, progress_pct, progress_message,
		       cost_llm, cost_llm_tokens, cost_api_calls,
		       created_at, updated_at
		FROM audits
		ORDER BY created_at DESC
		LIMIT $1`

	rows, err := r.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var audits []model.Audit
	for rows.Next() {
		var a model.Audit
		err := rows.Scan(
			&a.ID, &a.ChannelReference, &a.ChannelID, &a.AuditType, &a.Status,
			&a.Progress.CurrentStep, &a.Progress.Pct, &a.Progress.Message,
			&a.Cost.LLMCost, &a.Cost.LLMTokens, &a.Cost.APICalls,
			&a.CreatedAt, &a.UpdatedAt,
		)
		if err != nil {
			return nil, err
		}
		audits = append(audits, a)
	}
	return audits, rows.Err()
}

// CountAuditsByStatus returns how many audits sit in each lifecycle state.
func (r *AuditRepo) CountAuditsByStatus(ctx context.Context) (map[model.AuditStatus]int, error) {
	rows, err := r.pool.Query(ctx, `SELECT status, COUNT(*) FROM audits GROUP BY status`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[model.AuditStatus]int)
	for rows.Next() {
		var status model.AuditStatus
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, err
		}
		counts[status] = n
	}
	return counts, rows.Err()
}

// DeleteAudit removes an audit and its sections.
func (r *AuditRepo) DeleteAudit(ctx context.Context, auditID string) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM audit_sections WHERE audit_id = $1`, auditID); err != nil {
		return err
	}
	if _, err := tx.Exec(ctx, `DELETE FROM audits WHERE audit_id = $1`, auditID); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

// FailStuckAudits marks audits that have been running longer than maxAge as
// failed. Returns the number of audits transitioned.
func (r *AuditRepo) FailStuckAudits(ctx context.Context, maxAge time.Duration) (int, error) {
	tag, err := r.pool.Exec(ctx, `
		UPDATE audits
		SET status = $1, progress_message = 'audit abandoned: orchestrator did not finish', updated_at = NOW()
		WHERE status = $2 AND updated_at < NOW() - make_interval(secs => $3)`,
		model.AuditStatusFailed, model.AuditStatusRunning, maxAge.Seconds())
	if err != nil {
		return 0, err
	}
	return int(tag.RowsAffected()), nil
}

// DeleteExpiredAudits prunes terminal audits older than the retention window.
func (r *AuditRepo) DeleteExpiredAudits(ctx context.Context, retention time.Duration) (int, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx, `
		DELETE FROM audit_sections
		WHERE audit_id IN (
			SELECT audit_id FROM audits
			WHERE status IN ($1, $2) AND created_at < NOW() - make_interval(secs => $3)
		)`,
		model.AuditStatusCompleted, model.AuditStatusFailed, retention.Seconds())
	if err != nil {
		return 0, err
	}

	tag, err := tx.Exec(ctx, `
		DELETE FROM audits
		WHERE status IN ($1, $2) AND created_at < NOW() - make_interval(secs => $3)`,
		model.AuditStatusCompleted, model.AuditStatusFailed, retention.Seconds())
	if err != nil {
		return 0, err
	}
	if err := tx.Commit(ctx); err != nil {
		return 0, err
	}
	return int(tag.RowsAffected()), nil
}
