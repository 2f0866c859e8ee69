package backend

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"
)

// DefaultPollInterval is how often a Poller checks for new rows.
const DefaultPollInterval = 3 * time.Second

// Poller is a Feed for backends without a push channel. It re-queries the
// watched table on an interval for rows whose timestamp column is at or
// after the newest row already delivered.
type Poller struct {
	b        Backend
	interval time.Duration
	column   string
	now      func() time.Time
}

// NewPoller returns a Feed that polls b every interval using created_at.
func NewPoller(b Backend, interval time.Duration) *Poller {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	return &Poller{b: b, interval: interval, column: "created_at", now: time.Now}
}

// Subscribe starts polling for rows matching w that were inserted after now.
func (p *Poller) Subscribe(ctx context.Context, w Watch, fn func(Row)) (Subscription, error) {
	if !ValidIdent(w.Table) {
		return nil, errors.New("subscribe: invalid table name")
	}
	if w.Column != "" && !ValidIdent(w.Column) {
		return nil, errors.New("subscribe: invalid column name")
	}

	ctx, cancel := context.WithCancel(ctx)
	s := &pollSubscription{cancel: cancel, done: make(chan struct{})}
	go s.run(ctx, p, w, fn, p.now().UTC())
	return s, nil
}

type pollSubscription struct {
	cancel context.CancelFunc
	done   chan struct{}
	once   sync.Once
}

func (s *pollSubscription) run(ctx context.Context, p *Poller, w Watch, fn func(Row), since time.Time) {
	defer close(s.done)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	// ids already delivered at the current since timestamp
	seen := make(map[string]bool)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		q := From(w.Table).Where(Gte(p.column, since)).Order(p.column, true)
		if w.Column != "" {
			q.Eq(w.Column, w.Value)
		}
		rows, err := p.b.Select(ctx, q)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			slog.Warn("change feed poll failed", "table", w.Table, "error", err)
			continue
		}

		for _, row := range rows {
			id := row.String("id")
			if seen[id] {
				continue
			}
			fn(row)
			if ts, ok := row.Time(p.column); ok && ts.After(since) {
				since = ts
				seen = make(map[string]bool)
			}
			seen[id] = true
		}
	}
}

// Close stops polling and waits for the in-flight poll to finish.
func (s *pollSubscription) Close() error {
	s.once.Do(s.cancel)
	<-s.done
	return nil
}
