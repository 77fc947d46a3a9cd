package image

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/abduss/homelist/internal/metrics"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const sweepConcurrency = 4

// ReferenceSource reports the image filenames still referenced by listings.
type ReferenceSource interface {
	ReferencedImages(ctx context.Context) (map[string]struct{}, error)
}

// tempCleaner is implemented by stores that can leave interrupted writes behind.
type tempCleaner interface {
	RemoveStaleTemp(ctx context.Context, cutoff time.Time) (int, error)
}

// SweepResult summarises one sweep.
type SweepResult struct {
	Scanned     int           `json:"scanned"`
	Removed     int           `json:"removed"`
	TempRemoved int           `json:"tempRemoved"`
	Failed      int           `json:"failed"`
	Duration    time.Duration `json:"duration"`
}

// Sweeper removes image files that no listing references. Files younger than
// the grace period are kept so uploads whose listing is still being committed survive.
type Sweeper struct {
	store    Store
	refs     ReferenceSource
	grace    time.Duration
	interval time.Duration
	log      *zap.Logger
	nowFunc  func() time.Time

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// NewSweeper constructs a Sweeper. An interval of zero disables the background loop;
// RunOnce can still be called directly.
func NewSweeper(store Store, refs ReferenceSource, interval, grace time.Duration, log *zap.Logger) *Sweeper {
	if log == nil {
		log = zap.NewNop()
	}
	return &Sweeper{
		store:    store,
		refs:     refs,
		grace:    grace,
		interval: interval,
		log:      log.With(zap.String("component", "sweeper")),
		nowFunc:  time.Now,
	}
}

// Start launches the periodic sweep loop.
func (s *Sweeper) Start(ctx context.Context) {
	if s.interval <= 0 {
		return
	}
	loopCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.done = make(chan struct{})

	go s.run(loopCtx)
	s.log.Info("sweeper started", zap.Duration("interval", s.interval), zap.Duration("grace", s.grace))
}

// Stop ends the loop and waits for an in-flight sweep to finish.
func (s *Sweeper) Stop() {
	if s.cancel == nil {
		return
	}
	s.cancel()
	<-s.done
	s.log.Info("sweeper stopped")
}

func (s *Sweeper) run(ctx context.Context) {
	defer close(s.done)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := s.RunOnce(ctx); err != nil {
				s.log.Error("sweep failed", zap.Error(err))
			}
		}
	}
}

// RunOnce performs a single sweep. Concurrent calls are serialized.
// If the set of references cannot be loaded nothing is removed.
func (s *Sweeper) RunOnce(ctx context.Context) (SweepResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	start := s.nowFunc()
	var result SweepResult

	refs, err := s.refs.ReferencedImages(ctx)
	if err != nil {
		return result, fmt.Errorf("load image references: %w", err)
	}

	objects, err := s.store.List(ctx)
	if err != nil {
		return result, fmt.Errorf("list images: %w", err)
	}
	result.Scanned = len(objects)

	cutoff := start.Add(-s.grace)
	var removed, failed atomic.Int64

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(sweepConcurrency)
	for _, obj := range objects {
		if _, ok := refs[obj.Name]; ok {
			continue
		}
		if obj.ModTime.After(cutoff) {
			continue
		}
		name := obj.Name
		g.Go(func() error {
			if err := s.store.Remove(gctx, name); err != nil {
				failed.Add(1)
				s.log.Warn("remove orphan image", zap.String("filename", name), zap.Error(err))
				return nil
			}
			removed.Add(1)
			return nil
		})
	}
	_ = g.Wait()

	if tc, ok := s.store.(tempCleaner); ok {
		n, err := tc.RemoveStaleTemp(ctx, cutoff)
		if err != nil {
			failed.Add(1)
			s.log.Warn("remove stale temp files", zap.Error(err))
		}
		result.TempRemoved = n
	}

	result.Removed = int(removed.Load())
	result.Failed = int(failed.Load())
	result.Duration = s.nowFunc().Sub(start)

	metrics.SweeperRemoved.Add(float64(result.Removed))
	s.log.Info("sweep finished",
		zap.Int("scanned", result.Scanned),
		zap.Int("removed", result.Removed),
		zap.Int("temp_removed", result.TempRemoved),
		zap.Int("failed", result.Failed),
		zap.Duration("duration", result.Duration),
	)
	return result, nil
}
