package notify

import "sync"

// Entry is one recorded message.
type Entry struct {
	Message string
	Kind    Kind
}

// Recorder keeps every message and alert it receives. It is safe for
// concurrent use and is mainly useful in tests.
type Recorder struct {
	mu      sync.Mutex
	entries []Entry
	alerts  []Alert
}

// Notify records the message.
func (r *Recorder) Notify(message string, kind Kind) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, Entry{Message: message, Kind: kind})
}

// Alert records the alert.
func (r *Recorder) Alert(a Alert) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.alerts = append(r.alerts, a)
}

// Entries returns a copy of the recorded messages.
func (r *Recorder) Entries() []Entry {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Entry(nil), r.entries...)
}

// Alerts returns a copy of the recorded alerts.
func (r *Recorder) Alerts() []Alert {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Alert(nil), r.alerts...)
}

// Has reports whether a message with the given text and kind was recorded.
func (r *Recorder) Has(message string, kind Kind) bool {
	for _, e := range r.Entries() {
		if e.Message == message && e.Kind == kind {
			return true
		}
	}
	return false
}

// Last returns the most recent message, or a zero Entry.
func (r *Recorder) Last() Entry {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.entries) == 0 {
		return Entry{}
	}
	return r.entries[len(r.entries)-1]
}
