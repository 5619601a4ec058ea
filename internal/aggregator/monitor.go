package aggregator

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/nkarpov/newsflow/internal/model"
)

// MonitorOptions configure one continuous monitor session.
type MonitorOptions struct {
	Interval      time.Duration
	Aggregation   Options
	OnNewArticles func([]model.Article)
	OnError       func(error)
	WebhookURLs   []string
	MaxTracked    int
}

// MonitorStats are one session's counters.
type MonitorStats struct {
	StartTime       time.Time `json:"start_time"`
	ChecksPerformed int       `json:"checks_performed"`
	ArticlesFound   int       `json:"articles_found"`
	Errors          int       `json:"errors"`
}

// MonitorStatus is a snapshot of one running session.
type MonitorStatus struct {
	ID          string        `json:"id"`
	Query       string        `json:"query,omitempty"`
	Category    string        `json:"category,omitempty"`
	Interval    time.Duration `json:"interval"`
	Uptime      time.Duration `json:"uptime"`
	Tracked     int           `json:"tracked"`
	WebhookURLs []string      `json:"webhook_urls,omitempty"`
	Stats       MonitorStats  `json:"stats"`
}

// StopResult reports the outcome of a stop request.
type StopResult struct {
	Success bool `json:"success"`
	Stopped int  `json:"stopped"`
}

// session is a live interval-driven aggregation task. Tick execution is
// guarded so a slow pass never overlaps the next one within the same
// session; separate sessions stay fully independent.
type session struct {
	id     string
	opts   MonitorOptions
	cancel context.CancelFunc
	done   chan struct{}

	ticking atomic.Bool

	mu           sync.Mutex
	tracked      map[string]struct{}
	trackedOrder []string
	stats        MonitorStats
}

// StartMonitoring creates and starts a monitor session, returning its id.
func (a *Aggregator) StartMonitoring(opts MonitorOptions) (string, error) {
	if opts.Interval <= 0 {
		opts.Interval = a.monitorCfg.Interval
	}
	if opts.MaxTracked <= 0 {
		opts.MaxTracked = a.monitorCfg.MaxTrackedArticles
	}

	ctx, cancel := context.WithCancel(context.Background())

	a.monitorMu.Lock()
	a.monitorSeq++
	id := fmt.Sprintf("monitor-%d", a.monitorSeq)
	s := &session{
		id:      id,
		opts:    opts,
		cancel:  cancel,
		done:    make(chan struct{}),
		tracked: make(map[string]struct{}),
		stats:   MonitorStats{StartTime: a.now()},
	}
	a.monitors[id] = s
	a.monitorMu.Unlock()

	go a.runSession(ctx, s)

	a.logger.Debug("monitor started", "id", id, "interval", opts.Interval)
	return id, nil
}

// runSession drives the session's timer loop. Cancellation is checked
// before every tick; an in-flight tick may finish but is never restarted.
func (a *Aggregator) runSession(ctx context.Context, s *session) {
	defer close(s.done)

	ticker := time.NewTicker(s.opts.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if ctx.Err() != nil {
				return
			}
			if !s.ticking.CompareAndSwap(false, true) {
				// Previous tick still running; skip rather than stack.
				a.logger.Debug("monitor tick overrun, skipping", "id", s.id)
				continue
			}
			go func() {
				defer s.ticking.Store(false)
				a.tick(ctx, s)
			}()
		}
	}
}

// tick runs one aggregation pass and dispatches callbacks for unseen
// articles.
func (a *Aggregator) tick(ctx context.Context, s *session) {
	opts := s.opts.Aggregation
	opts.UseCache = false // monitoring wants fresh results every pass

	result, err := a.Aggregate(ctx, opts)

	s.mu.Lock()
	s.stats.ChecksPerformed++
	if err != nil {
		s.stats.Errors++
		s.mu.Unlock()
		a.dispatch(s, func() {
			if s.opts.OnError != nil {
				s.opts.OnError(err)
			}
		})
		return
	}

	var fresh []model.Article
	for i := range result.Articles {
		fp := result.Articles[i].Fingerprint
		if _, seen := s.tracked[fp]; seen {
			continue
		}
		s.tracked[fp] = struct{}{}
		s.trackedOrder = append(s.trackedOrder, fp)
		fresh = append(fresh, result.Articles[i])
	}

	// Bound the tracked set: forget the oldest fingerprints first.
	for len(s.trackedOrder) > s.opts.MaxTracked {
		delete(s.tracked, s.trackedOrder[0])
		s.trackedOrder = s.trackedOrder[1:]
	}

	s.stats.ArticlesFound += len(fresh)
	s.mu.Unlock()

	if len(fresh) > 0 {
		a.dispatch(s, func() {
			if s.opts.OnNewArticles != nil {
				s.opts.OnNewArticles(fresh)
			}
		})
	}
}

// dispatch runs a callback asynchronously; a panicking callback is logged
// and never takes the session down.
func (a *Aggregator) dispatch(s *session, fn func()) {
	go func() {
		defer func() {
			if r := recover(); r != nil {
				a.logger.Warn("monitor callback panicked", "id", s.id, "panic", r)
			}
		}()
		fn()
	}()
}

// StopMonitoring stops one session and releases its tracked-fingerprint
// memory. Stopping an unknown id reports failure instead of an error.
func (a *Aggregator) StopMonitoring(id string) StopResult {
	a.monitorMu.Lock()
	s, ok := a.monitors[id]
	if ok {
		delete(a.monitors, id)
	}
	a.monitorMu.Unlock()

	if !ok {
		return StopResult{Success: false}
	}

	s.cancel()
	a.logger.Debug("monitor stopped", "id", id)
	return StopResult{Success: true, Stopped: 1}
}

// StopAllMonitors stops every session.
func (a *Aggregator) StopAllMonitors() StopResult {
	a.monitorMu.Lock()
	sessions := make([]*session, 0, len(a.monitors))
	for id, s := range a.monitors {
		sessions = append(sessions, s)
		delete(a.monitors, id)
	}
	a.monitorMu.Unlock()

	for _, s := range sessions {
		s.cancel()
	}
	return StopResult{Success: true, Stopped: len(sessions)}
}

// MonitorStatus lists every running session with uptime and counters.
func (a *Aggregator) MonitorStatus() []MonitorStatus {
	a.monitorMu.Lock()
	sessions := make([]*session, 0, len(a.monitors))
	for _, s := range a.monitors {
		sessions = append(sessions, s)
	}
	a.monitorMu.Unlock()

	now := a.now()
	statuses := make([]MonitorStatus, 0, len(sessions))
	for _, s := range sessions {
		s.mu.Lock()
		statuses = append(statuses, MonitorStatus{
			ID:          s.id,
			Query:       s.opts.Aggregation.Query,
			Category:    s.opts.Aggregation.Category,
			Interval:    s.opts.Interval,
			Uptime:      now.Sub(s.stats.StartTime),
			Tracked:     len(s.tracked),
			WebhookURLs: s.opts.WebhookURLs,
			Stats:       s.stats,
		})
		s.mu.Unlock()
	}

	sort.Slice(statuses, func(i, j int) bool { return statuses[i].ID < statuses[j].ID })
	return statuses
}
