package service

import (
	"context"

	"github.com/tubelens/tubelens-go/internal/model"
)

type auditCounter interface {
	CountAuditsByStatus(ctx context.Context) (map[model.AuditStatus]int, error)
}

type channelCounter interface {
	CountChannels(ctx context.Context) (int, error)
}

// ServiceStats is the aggregate view served at /api/stats.
type ServiceStats struct {
	AuditsTotal     int `json:"auditsTotal"`
	AuditsRunning   int `json:"auditsRunning"`
	AuditsCompleted int `json:"auditsCompleted"`
	AuditsFailed    int `json:"auditsFailed"`
	ChannelsCached  int `json:"channelsCached"`
}

// StatsService aggregates service-level counters for the dashboard.
type StatsService struct {
	audits   auditCounter
	channels channelCounter
}

func NewStatsService(audits auditCounter, channels channelCounter) *StatsService {
	return &StatsService{audits: audits, channels: channels}
}

func (s *StatsService) GetStats(ctx context.Context) (*ServiceStats, error) {
	counts, err := s.audits.CountAuditsByStatus(ctx)
	if err != nil {
		return nil, err
	}

	channels, err := s.channels.CountChannels(ctx)
	if err != nil {
		return nil, err
	}

	stats := &ServiceStats{
		AuditsRunning:   counts[model.AuditStatusRunning],
		AuditsCompleted: counts[model.AuditStatusCompleted],
		AuditsFailed:    counts[model.AuditStatusFailed],
		ChannelsCached:  channels,
	}
	for _, n := range counts {
		stats.AuditsTotal += n
	}
	return stats, nil
}
