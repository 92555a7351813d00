package crowd

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"
)

// ScoreStore is the reliability slice of the report repository.
type ScoreStore interface {
	// AverageReliability returns the reporter's mean score, or the default for
	// a first-time reporter.
	AverageReliability(ctx context.Context, reporterID string, defaultScore float64) (float64, error)
	// RewriteReliability sets the score on every row of the reporter.
	RewriteReliability(ctx context.Context, reporterID string, score float64) error
}

// ReliabilityScorer maintains per-reporter trust scores. Adjustments are
// read-modify-write over the reporter's whole history, so each reporter's
// updates are serialized under their own lock.
type ReliabilityScorer struct {
	store        ScoreStore
	defaultScore float64
	reward       float64
	penalty      float64
	logger       *zap.Logger

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func NewReliabilityScorer(store ScoreStore, defaultScore, reward, penalty float64, logger *zap.Logger) *ReliabilityScorer {
	return &ReliabilityScorer{
		store:        store,
		defaultScore: defaultScore,
		reward:       reward,
		penalty:      penalty,
		logger:       logger,
		locks:        make(map[string]*sync.Mutex),
	}
}

func (s *ReliabilityScorer) reporterLock(reporterID string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()

	l, ok := s.locks[reporterID]
	if !ok {
		l = &sync.Mutex{}
		s.locks[reporterID] = l
	}
	return l
}

// Locked runs fn holding the reporter's lock. Report creation uses this to
// make snapshot-insert-reward atomic per reporter.
func (s *ReliabilityScorer) Locked(reporterID string, fn func() error) error {
	l := s.reporterLock(reporterID)
	l.Lock()
	defer l.Unlock()
	return fn()
}

// Snapshot returns the reporter's current score: the mean over their history,
// or the default for a newcomer. Caller must hold the reporter's lock.
func (s *ReliabilityScorer) Snapshot(ctx context.Context, reporterID string) (float64, error) {
	return s.store.AverageReliability(ctx, reporterID, s.defaultScore)
}

// Reward bumps the reporter's score after a sensor corroborated their report
// and rewrites it onto every row. Caller must hold the reporter's lock.
func (s *ReliabilityScorer) Reward(ctx context.Context, reporterID string) (float64, error) {
	return s.adjust(ctx, reporterID, s.reward)
}

// Penalize docks the reporter's score after moderation rejected their report.
func (s *ReliabilityScorer) Penalize(ctx context.Context, reporterID string) (float64, error) {
	var score float64
	err := s.Locked(reporterID, func() error {
		var err error
		score, err = s.adjust(ctx, reporterID, -s.penalty)
		return err
	})
	return score, err
}

func (s *ReliabilityScorer) adjust(ctx context.Context, reporterID string, delta float64) (float64, error) {
	avg, err := s.store.AverageReliability(ctx, reporterID, s.defaultScore)
	if err != nil {
		return 0, fmt.Errorf("failed to read reliability: %w", err)
	}

	score := clampScore(avg + delta)
	if err := s.store.RewriteReliability(ctx, reporterID, score); err != nil {
		return 0, fmt.Errorf("failed to write reliability: %w", err)
	}

	s.logger.Info("Reliability score adjusted",
		zap.String("reporter_id", reporterID),
		zap.Float64("delta", delta),
		zap.Float64("score", score),
	)

	return score, nil
}

func clampScore(score float64) float64 {
	if score < 0 {
		return 0
	}
	if score > 100 {
		return 100
	}
	return score
}
