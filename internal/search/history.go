package search

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"github.com/evcraddock/smartrent/internal/property"
)

// HistoryLimit is how many saved searches are kept.
const HistoryLimit = 10

// Entry is one saved search.
type Entry struct {
	ID        string           `json:"id" yaml:"id"`
	Filters   property.Filters `json:"filters" yaml:"filters"`
	Timestamp time.Time        `json:"timestamp" yaml:"timestamp"`
}

// History stores a user's most recent searches, newest first, keeping at
// most HistoryLimit.
type History interface {
	Save(ctx context.Context, f property.Filters) error
	List(ctx context.Context) ([]Entry, error)
	Clear(ctx context.Context) error
}

func newEntry(f property.Filters, now time.Time) Entry {
	return Entry{ID: uuid.NewString(), Filters: f, Timestamp: now.UTC()}
}

// FileHistory keeps history in a YAML file.
type FileHistory struct {
	path string
	now  func() time.Time
	mu   sync.Mutex
}

// NewFileHistory stores history at path.
func NewFileHistory(path string) *FileHistory {
	return &FileHistory{path: path, now: time.Now}
}

// DefaultHistoryPath places the history file next to the config file.
func DefaultHistoryPath(configPath string) string {
	return filepath.Join(filepath.Dir(configPath), "search_history.yaml")
}

type historyFile struct {
	Searches []Entry `yaml:"searches"`
}

// Save prepends f to the history.
func (h *FileHistory) Save(_ context.Context, f property.Filters) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	entries, err := h.read()
	if err != nil {
		return err
	}
	entries = append([]Entry{newEntry(f, h.now())}, entries...)
	if len(entries) > HistoryLimit {
		entries = entries[:HistoryLimit]
	}
	return h.write(entries)
}

// List returns the saved searches. A missing or unreadable file is an
// empty history.
func (h *FileHistory) List(context.Context) ([]Entry, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	entries, err := h.read()
	if err != nil {
		return []Entry{}, nil
	}
	return entries, nil
}

// Clear removes the history file.
func (h *FileHistory) Clear(context.Context) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if err := os.Remove(h.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("clearing search history: %w", err)
	}
	return nil
}

func (h *FileHistory) read() ([]Entry, error) {
	data, err := os.ReadFile(h.path)
	if errors.Is(err, fs.ErrNotExist) {
		return []Entry{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading search history: %w", err)
	}
	var hf historyFile
	if err := yaml.Unmarshal(data, &hf); err != nil {
		return nil, fmt.Errorf("parsing search history: %w", err)
	}
	if hf.Searches == nil {
		hf.Searches = []Entry{}
	}
	return hf.Searches, nil
}

func (h *FileHistory) write(entries []Entry) error {
	if err := os.MkdirAll(filepath.Dir(h.path), 0o700); err != nil {
		return fmt.Errorf("creating history directory: %w", err)
	}
	data, err := yaml.Marshal(historyFile{Searches: entries})
	if err != nil {
		return fmt.Errorf("marshaling search history: %w", err)
	}
	if err := os.WriteFile(h.path, data, 0o600); err != nil {
		return fmt.Errorf("writing search history: %w", err)
	}
	return nil
}

// RedisHistory keeps one user's history in a Redis list.
type RedisHistory struct {
	rdb *redis.Client
	key string
	now func() time.Time
}

// NewRedisClient connects to addr, which is either a redis:// URL or a
// bare host:port.
func NewRedisClient(addr string) (*redis.Client, error) {
	if addr == "" {
		return nil, errors.New("redis address is required")
	}
	if strings.Contains(addr, "://") {
		opts, err := redis.ParseURL(addr)
		if err != nil {
			return nil, fmt.Errorf("parsing redis url: %w", err)
		}
		return redis.NewClient(opts), nil
	}
	return redis.NewClient(&redis.Options{Addr: addr}), nil
}

// NewRedisHistory stores userID's history in rdb.
func NewRedisHistory(rdb *redis.Client, userID string) *RedisHistory {
	return &RedisHistory{rdb: rdb, key: HistoryKey(userID), now: time.Now}
}

// HistoryKey is the Redis list holding a user's history.
func HistoryKey(userID string) string {
	if userID == "" {
		userID = "anonymous"
	}
	return "smartrent:search_history:" + userID
}

// Save pushes f onto the list and trims it to HistoryLimit.
func (h *RedisHistory) Save(ctx context.Context, f property.Filters) error {
	data, err := json.Marshal(newEntry(f, h.now()))
	if err != nil {
		return fmt.Errorf("encoding search: %w", err)
	}
	_, err = h.rdb.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.LPush(ctx, h.key, data)
		p.LTrim(ctx, h.key, 0, HistoryLimit-1)
		return nil
	})
	if err != nil {
		return fmt.Errorf("saving search: %w", err)
	}
	return nil
}

// List returns the saved searches. Entries that fail to decode are skipped.
func (h *RedisHistory) List(ctx context.Context) ([]Entry, error) {
	raw, err := h.rdb.LRange(ctx, h.key, 0, HistoryLimit-1).Result()
	if err != nil {
		return nil, fmt.Errorf("listing searches: %w", err)
	}
	entries := make([]Entry, 0, len(raw))
	for _, r := range raw {
		var e Entry
		if err := json.Unmarshal([]byte(r), &e); err != nil {
			continue
		}
		entries = append(entries, e)
	}
	return entries, nil
}

// Clear deletes the list.
func (h *RedisHistory) Clear(ctx context.Context) error {
	if err := h.rdb.Del(ctx, h.key).Err(); err != nil {
		return fmt.Errorf("clearing searches: %w", err)
	}
	return nil
}
