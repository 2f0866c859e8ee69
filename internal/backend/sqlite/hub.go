package sqlite

import (
	"context"
	"log/slog"
	"sync"

	"github.com/evcraddock/smartrent/internal/backend"
)

// subscriberBuffer is how many undelivered events a subscriber may lag
// behind before new events are dropped.
const subscriberBuffer = 64

// hub fans inserted rows out to matching subscribers.
type hub struct {
	mu   sync.Mutex
	subs map[*subscriber]struct{}
}

func newHub() *hub {
	return &hub{subs: make(map[*subscriber]struct{})}
}

type subscriber struct {
	h     *hub
	watch backend.Watch
	fn    func(backend.Row)
	ch    chan backend.Row
	stop  chan struct{}
	done  chan struct{}
	once  sync.Once
}

func (h *hub) subscribe(ctx context.Context, w backend.Watch, fn func(backend.Row)) *subscriber {
	s := &subscriber{
		h:     h,
		watch: w,
		fn:    fn,
		ch:    make(chan backend.Row, subscriberBuffer),
		stop:  make(chan struct{}),
		done:  make(chan struct{}),
	}

	h.mu.Lock()
	h.subs[s] = struct{}{}
	h.mu.Unlock()

	go s.run(ctx)
	return s
}

func (h *hub) publish(table string, row backend.Row) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for s := range h.subs {
		if !s.watch.Matches(table, row) {
			continue
		}
		event := make(backend.Row, len(row))
		for k, v := range row {
			event[k] = v
		}
		select {
		case s.ch <- event:
		default:
			slog.Warn("change feed subscriber lagging, dropping event", "table", table, "id", row.String("id"))
		}
	}
}

func (h *hub) remove(s *subscriber) {
	h.mu.Lock()
	delete(h.subs, s)
	h.mu.Unlock()
}

func (h *hub) closeAll() {
	h.mu.Lock()
	subs := make([]*subscriber, 0, len(h.subs))
	for s := range h.subs {
		subs = append(subs, s)
	}
	h.mu.Unlock()

	for _, s := range subs {
		_ = s.Close()
	}
}

func (s *subscriber) run(ctx context.Context) {
	defer close(s.done)
	defer s.h.remove(s)

	for {
		select {
		case <-ctx.Done():
			return
		case <-s.stop:
			return
		case row := <-s.ch:
			s.fn(row)
		}
	}
}

// Close unregisters the subscriber and waits for its handler to return.
func (s *subscriber) Close() error {
	s.once.Do(func() { close(s.stop) })
	<-s.done
	return nil
}
