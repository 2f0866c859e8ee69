// Package search holds a user's property search session: the current
// filters and the full result set, revealed one page at a time.
package search

import (
	"context"
	"log/slog"
	"strings"
	"sync"

	"github.com/evcraddock/smartrent/internal/notify"
	"github.com/evcraddock/smartrent/internal/property"
)

// PerPage is the size of one results page.
const PerPage = 12

// Source runs a filtered property query. *property.Service satisfies it.
type Source interface {
	Search(ctx context.Context, f property.Filters) ([]property.Property, error)
}

// Service is a search session. It is safe for concurrent use.
type Service struct {
	src     Source
	history History
	sink    notify.Sink
	log     *slog.Logger

	mu      sync.Mutex
	filters property.Filters
	results []property.Property
	page    int
}

// NewService starts a session with cleared filters. history may be nil,
// which disables saved searches.
func NewService(src Source, history History, sink notify.Sink, log *slog.Logger) *Service {
	if sink == nil {
		sink = notify.Discard
	}
	if log == nil {
		log = slog.Default()
	}
	return &Service{
		src:     src,
		history: history,
		sink:    sink,
		log:     log,
		filters: DefaultFilters(),
		page:    1,
	}
}

// DefaultFilters matches everything, newest first.
func DefaultFilters() property.Filters {
	return property.Filters{SortBy: property.SortNewest}
}

// Merge returns base with every non-zero field of patch applied.
func Merge(base, patch property.Filters) property.Filters {
	if patch.Location != "" {
		base.Location = patch.Location
	}
	if patch.PropertyType != "" {
		base.PropertyType = patch.PropertyType
	}
	if patch.MinPrice != 0 {
		base.MinPrice = patch.MinPrice
	}
	if patch.MaxPrice != 0 {
		base.MaxPrice = patch.MaxPrice
	}
	if patch.Bedrooms != 0 {
		base.Bedrooms = patch.Bedrooms
	}
	if patch.Bathrooms != 0 {
		base.Bathrooms = patch.Bathrooms
	}
	if patch.Amenities != nil {
		base.Amenities = append([]string(nil), patch.Amenities...)
	}
	if patch.SortBy != "" {
		base.SortBy = patch.SortBy
	}
	return base
}

// Search merges f into the current filters, runs the query, buffers every
// result and returns the first page. A failed query raises a toast and
// leaves an empty result set.
func (s *Service) Search(ctx context.Context, f property.Filters) []property.Property {
	s.mu.Lock()
	s.filters = Merge(s.filters, f)
	s.page = 1
	filters := s.filters
	s.mu.Unlock()

	results, err := s.src.Search(ctx, filters)
	if err != nil {
		s.log.Error("searching properties", "error", err)
		s.sink.Notify("Error performing search", notify.Error)
		results = nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.results = results
	return s.window()
}

// LoadMore reveals the next page and returns everything revealed so far.
// Past the end it keeps returning the full result set.
func (s *Service) LoadMore() []property.Property {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.page*PerPage < len(s.results) {
		s.page++
	}
	return s.window()
}

// window must be called with mu held.
func (s *Service) window() []property.Property {
	end := min(s.page*PerPage, len(s.results))
	out := make([]property.Property, end)
	copy(out, s.results[:end])
	return out
}

// HasMore reports whether results remain beyond the revealed pages.
func (s *Service) HasMore() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.results) > s.page*PerPage
}

// Total returns the size of the buffered result set.
func (s *Service) Total() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.results)
}

// Filters returns a copy of the current filters.
func (s *Service) Filters() property.Filters {
	s.mu.Lock()
	defer s.mu.Unlock()
	f := s.filters
	f.Amenities = append([]string(nil), f.Amenities...)
	return f
}

// UpdateFilters merges f into the current filters without searching.
func (s *Service) UpdateFilters(f property.Filters) {
	s.mu.Lock()
	s.filters = Merge(s.filters, f)
	s.mu.Unlock()
}

// ClearFilters resets the filters to DefaultFilters. Buffered results are
// kept until the next Search.
func (s *Service) ClearFilters() {
	s.mu.Lock()
	s.filters = DefaultFilters()
	s.mu.Unlock()
}

// SaveSearch records the current filters in the history. Failures are
// logged only.
func (s *Service) SaveSearch(ctx context.Context) {
	if s.history == nil {
		return
	}
	if err := s.history.Save(ctx, s.Filters()); err != nil {
		s.log.Warn("saving search", "error", err)
	}
}

// History returns the saved searches, newest first. Failures yield an
// empty list.
func (s *Service) History(ctx context.Context) []Entry {
	if s.history == nil {
		return []Entry{}
	}
	entries, err := s.history.List(ctx)
	if err != nil {
		s.log.Warn("loading search history", "error", err)
		return []Entry{}
	}
	return entries
}

// ClearHistory forgets every saved search.
func (s *Service) ClearHistory(ctx context.Context) error {
	if s.history == nil {
		return nil
	}
	return s.history.Clear(ctx)
}

// CommonLocations are offered as suggestions while typing a location.
var CommonLocations = []string{
	"Lagos", "Abuja", "Port Harcourt", "Ibadan", "Kano",
	"Lekki", "Victoria Island", "Ikoyi", "Surulere", "Gbagada",
}

// Suggestions returns the common locations containing q, ignoring case.
// Queries shorter than two characters get no suggestions.
func Suggestions(q string) []string {
	q = strings.ToLower(strings.TrimSpace(q))
	out := []string{}
	if len(q) < 2 {
		return out
	}
	for _, loc := range CommonLocations {
		if strings.Contains(strings.ToLower(loc), q) {
			out = append(out, loc)
		}
	}
	return out
}

// Popular is a frequently searched phrase.
type Popular struct {
	Term  string `json:"term"`
	Count int    `json:"count"`
}

// PopularSearches returns the curated list of popular searches.
func PopularSearches() []Popular {
	return []Popular{
		{"2 bedroom apartment in Lagos", 1245},
		{"3 bedroom flat in Abuja", 892},
		{"Studio apartment in VI", 756},
		{"Duplex in Lekki", 543},
		{"Self contain in Surulere", 432},
	}
}
