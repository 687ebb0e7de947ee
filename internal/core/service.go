package core

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"

	"github.com/JonMunkholm/catalog/internal/catalog"
	"github.com/JonMunkholm/catalog/internal/feed"
	"github.com/JonMunkholm/catalog/internal/logging"
)

// listenerBuffer is the channel capacity of each subscriber.
const listenerBuffer = 10

// Config configures a Service.
type Config struct {
	Schema   catalog.Schema
	Timeout  time.Duration // per fetch, 0 for none
	Observer Observer      // optional
}

// Service owns the current catalog snapshot and refreshes it from a Fetcher.
// At most one fetch runs at a time; concurrent Refresh calls share it.
type Service struct {
	fetcher Fetcher
	cfg     Config
	group   singleflight.Group

	// base outlives individual callers so a shared fetch is not cancelled
	// when the request that started it goes away. Close cancels it.
	base   context.Context
	cancel context.CancelFunc

	mu   sync.RWMutex
	snap Snapshot

	listenerMu sync.Mutex
	listeners  map[chan Snapshot]struct{}
}

// NewService creates a Service in the idle phase.
func NewService(fetcher Fetcher, cfg Config) *Service {
	base, cancel := context.WithCancel(context.Background())
	return &Service{
		fetcher:   fetcher,
		cfg:       cfg,
		base:      base,
		cancel:    cancel,
		snap:      Snapshot{Phase: PhaseIdle},
		listeners: make(map[chan Snapshot]struct{}),
	}
}

// Schema returns the field names the service builds records with.
func (s *Service) Schema() catalog.Schema { return s.cfg.Schema }

// Snapshot returns the current state.
func (s *Service) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snap
}

// Close cancels any fetch in flight and closes every subscriber channel.
func (s *Service) Close() {
	s.cancel()

	s.listenerMu.Lock()
	defer s.listenerMu.Unlock()
	for ch := range s.listeners {
		close(ch)
		delete(s.listeners, ch)
	}
}

// Refresh fetches and parses the feed and swaps in the new snapshot. If a
// fetch is already running the caller waits for it instead of starting
// another. Cancelling ctx stops the wait, not the shared fetch.
func (s *Service) Refresh(ctx context.Context) (Snapshot, error) {
	trigger := TriggerFromContext(ctx)
	ip := IPAddressFromContext(ctx)

	ch := s.group.DoChan("refresh", func() (any, error) {
		return s.refresh(trigger, ip)
	})

	select {
	case <-ctx.Done():
		return s.Snapshot(), ctx.Err()
	case res := <-ch:
		snap, _ := res.Val.(Snapshot)
		if res.Shared {
			logging.FromContext(ctx).Debug("joined fetch in flight", "fetch_id", snap.FetchID)
		}
		return snap, res.Err
	}
}

func (s *Service) refresh(trigger, ip string) (Snapshot, error) {
	fetchID := uuid.NewString()
	ctx := logging.WithFetch(s.base, fetchID)
	logger := logging.WithFields(ctx, "trigger", trigger)

	if s.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.Timeout)
		defer cancel()
	}

	logger.Info("feed refresh started", "ip", ip)
	start := time.Now()

	s.update(func(snap *Snapshot) {
		snap.FetchID = fetchID
		snap.Phase = PhaseLoading
		snap.Error = nil
		snap.err = nil
		snap.BytesRead = 0
		snap.BytesTotal = 0
	})

	var bytesRead int64
	text, err := s.fetcher.Fetch(ctx, func(read, total int64) {
		bytesRead = read
		s.update(func(snap *Snapshot) {
			snap.BytesRead = read
			snap.BytesTotal = total
		})
	})

	var res feed.Result
	if err == nil {
		res, err = feed.BuildRecords(text, s.cfg.Schema)
	}

	report := FetchReport{
		FetchID:        fetchID,
		Trigger:        trigger,
		Duration:       time.Since(start),
		Bytes:          bytesRead,
		Records:        len(res.Records),
		RowsSkipped:    res.RowsSkipped,
		RecordsDropped: res.RecordsDropped,
		Err:            err,
		Kind:           Classify(err),
	}
	if s.cfg.Observer != nil {
		s.cfg.Observer.ObserveFetch(report)
	}

	if err != nil {
		s.logFailure(logger, report)
		msg := MapError(err)
		snap := s.update(func(snap *Snapshot) {
			*snap = Snapshot{
				FetchID:   fetchID,
				Phase:     PhaseFailed,
				Error:     &msg,
				FetchedAt: time.Now(),
				Duration:  report.Duration,
				BytesRead: bytesRead,
				err:       err,
			}
		})
		return snap, err
	}

	logger.Info("feed refresh completed",
		"records", len(res.Records),
		"header_row", res.HeaderRow,
		"rows_parsed", res.RowsParsed,
		"rows_skipped", res.RowsSkipped,
		"records_dropped", res.RecordsDropped,
		"delimiter", string(res.Delimiter),
		"bytes", bytesRead,
		"duration_ms", report.Duration.Milliseconds(),
	)

	snap := s.update(func(snap *Snapshot) {
		*snap = Snapshot{
			FetchID:        fetchID,
			Phase:          PhaseReady,
			Records:        res.Records,
			Header:         res.Header,
			FetchedAt:      time.Now(),
			Duration:       report.Duration,
			BytesRead:      bytesRead,
			BytesTotal:     snap.BytesTotal,
			Delimiter:      string(res.Delimiter),
			RowsSkipped:    res.RowsSkipped,
			RecordsDropped: res.RecordsDropped,
		}
	})
	return snap, nil
}

func (s *Service) logFailure(logger *slog.Logger, r FetchReport) {
	attrs := []any{
		"kind", r.Kind.String(),
		"error", r.Err,
		"duration_ms", r.Duration.Milliseconds(),
	}
	var hnf *feed.HeaderNotFoundError
	if errors.As(r.Err, &hnf) {
		attrs = append(attrs, "anchors", hnf.Anchors, "preview", hnf.Preview)
	}
	logger.Error("feed refresh failed", attrs...)
}

// update applies fn to the snapshot under the lock and notifies listeners.
func (s *Service) update(fn func(*Snapshot)) Snapshot {
	s.mu.Lock()
	fn(&s.snap)
	snap := s.snap
	s.mu.Unlock()

	s.notify(snap)
	return snap
}

// Subscribe returns a channel that receives every snapshot change, starting
// with the current one. Slow subscribers miss intermediate updates. Call the
// returned func to unsubscribe.
func (s *Service) Subscribe() (<-chan Snapshot, func()) {
	ch := make(chan Snapshot, listenerBuffer)

	s.listenerMu.Lock()
	s.listeners[ch] = struct{}{}
	// Send current state immediately
	ch <- s.Snapshot()
	s.listenerMu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			s.listenerMu.Lock()
			defer s.listenerMu.Unlock()
			if _, ok := s.listeners[ch]; ok {
				delete(s.listeners, ch)
				close(ch)
			}
		})
	}
}

// notify sends snap to all listeners without blocking.
func (s *Service) notify(snap Snapshot) {
	s.listenerMu.Lock()
	defer s.listenerMu.Unlock()

	for ch := range s.listeners {
		select {
		case ch <- snap:
		default:
			// Listener is slow, skip this update
		}
	}
}
