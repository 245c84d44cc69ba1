package service

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/tsar0705/Global-Cyber-Attack-Detection-Grid/internal/logger"
	"github.com/tsar0705/Global-Cyber-Attack-Detection-Grid/pkg/logs"
)

// MaxRecentLimit caps the page size of Recent.
const MaxRecentLimit = 1000

// LogStore is the read side used for browsing records.
type LogStore interface {
	Recent(ctx context.Context, limit int) ([]logs.Record, error)
	CountBy(ctx context.Context, column string) ([]logs.Bucket, error)
}

// RegionCount is the number of records per geo region.
type RegionCount struct {
	Region string `json:"region"`
	Count  int64  `json:"count"`
}

// AttackTypeCount is the number of records per attack type.
type AttackTypeCount struct {
	AttackType string `json:"attack_type"`
	Count      int64  `json:"count"`
}

// Stats summarises the stored records.
type Stats struct {
	RegionCounts     []RegionCount     `json:"region_counts"`
	AttackTypeCounts []AttackTypeCount `json:"attack_type_counts"`
}

// LogsService serves recent records and aggregate counts.
type LogsService struct {
	store        LogStore
	defaultLimit int
	logger       *zap.Logger
}

// NewLogsService creates the service. defaultLimit applies when callers pass no limit.
func NewLogsService(store LogStore, defaultLimit int, l *zap.Logger) *LogsService {
	if defaultLimit <= 0 {
		defaultLimit = 10
	}
	return &LogsService{store: store, defaultLimit: defaultLimit, logger: logger.OrNop(l)}
}

// Recent returns the newest records, newest first.
func (s *LogsService) Recent(ctx context.Context, limit int) ([]logs.Display, error) {
	if limit <= 0 {
		limit = s.defaultLimit
	}
	limit = min(limit, MaxRecentLimit)

	records, err := s.store.Recent(ctx, limit)
	if err != nil {
		s.logger.Error("recent logs query failed", zap.Error(err))
		return nil, fmt.Errorf("%w: %w", ErrDataUnavailable, err)
	}

	out := make([]logs.Display, len(records))
	for i, r := range records {
		out[i] = logs.ToDisplay(r)
	}
	return out, nil
}

// Stats counts records by region and by attack type. Both queries run concurrently.
func (s *LogsService) Stats(ctx context.Context) (*Stats, error) {
	var regions, attacks []logs.Bucket

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		regions, err = s.store.CountBy(gctx, logs.FieldGeoLocation)
		return err
	})
	g.Go(func() error {
		var err error
		attacks, err = s.store.CountBy(gctx, logs.FieldAttackType)
		return err
	})
	if err := g.Wait(); err != nil {
		s.logger.Error("stats query failed", zap.Error(err))
		return nil, fmt.Errorf("%w: %w", ErrDataUnavailable, err)
	}

	stats := &Stats{
		RegionCounts:     make([]RegionCount, len(regions)),
		AttackTypeCounts: make([]AttackTypeCount, len(attacks)),
	}
	for i, b := range regions {
		stats.RegionCounts[i] = RegionCount{Region: b.Label, Count: b.Count}
	}
	for i, b := range attacks {
		stats.AttackTypeCounts[i] = AttackTypeCount{AttackType: b.Label, Count: b.Count}
	}
	return stats, nil
}
