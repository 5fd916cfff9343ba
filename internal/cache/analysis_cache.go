// Package cache provides the analysis cache: an in-process map with optional
// size and age limits, backed by an optional shared Redis layer.
package cache

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/donorkit/styleforge/internal/domain"
)

// Config holds cache configuration. Zero MaxEntries and TTL mean unbounded
// and never expiring.
type Config struct {
	MaxEntries int
	TTL        time.Duration

	// RemoteTTL is the expiry of entries written to the remote layer
	RemoteTTL time.Duration
}

// Remote is a shared cache layer, normally Redis. A miss is (nil, nil).
type Remote interface {
	GetAnalysis(ctx context.Context, url string) (*domain.StyleAnalysis, error)
	SetAnalysis(ctx context.Context, url string, analysis *domain.StyleAnalysis, ttl time.Duration) error
}

// Stats tracks cache statistics
type Stats struct {
	MemoryHits   int64 `json:"memory_hits"`
	MemoryMisses int64 `json:"memory_misses"`
	RemoteHits   int64 `json:"remote_hits"`
	RemoteMisses int64 `json:"remote_misses"`
	Evictions    int64 `json:"evictions"`
	Entries      int   `json:"entries"`
}

type entry struct {
	analysis  *domain.StyleAnalysis
	createdAt time.Time
}

// AnalysisCache is safe for concurrent use
type AnalysisCache struct {
	config Config
	remote Remote
	logger *zap.Logger
	now    func() time.Time

	mu      sync.RWMutex
	entries map[string]*entry
	order   []string // insertion order, oldest first
	stats   Stats
}

// New creates an analysis cache. remote may be nil.
func New(config Config, remote Remote, logger *zap.Logger) *AnalysisCache {
	return &AnalysisCache{
		config:  config,
		remote:  remote,
		logger:  logger,
		now:     time.Now,
		entries: make(map[string]*entry),
	}
}

// Get returns the cached analysis for a normalized URL. Remote hits are
// promoted into memory.
func (c *AnalysisCache) Get(ctx context.Context, key string) (*domain.StyleAnalysis, bool) {
	c.mu.Lock()
	if e, ok := c.entries[key]; ok {
		if !c.expired(e) {
			c.stats.MemoryHits++
			c.mu.Unlock()
			return e.analysis, true
		}
		c.removeLocked(key)
	}
	c.stats.MemoryMisses++
	c.mu.Unlock()

	if c.remote == nil {
		return nil, false
	}

	analysis, err := c.remote.GetAnalysis(ctx, key)
	if err != nil {
		c.logger.Warn("remote cache read failed", zap.String("url", key), zap.Error(err))
	}
	if err != nil || analysis == nil {
		c.mu.Lock()
		c.stats.RemoteMisses++
		c.mu.Unlock()
		return nil, false
	}

	c.mu.Lock()
	c.stats.RemoteHits++
	c.putLocked(key, analysis)
	c.mu.Unlock()
	return analysis, true
}

// Put stores an analysis in memory and, when configured, the remote layer.
// Remote write failures are logged.
func (c *AnalysisCache) Put(ctx context.Context, key string, analysis *domain.StyleAnalysis) {
	if analysis == nil {
		return
	}

	c.mu.Lock()
	c.putLocked(key, analysis)
	c.mu.Unlock()

	if c.remote != nil {
		if err := c.remote.SetAnalysis(ctx, key, analysis, c.config.RemoteTTL); err != nil {
			c.logger.Warn("remote cache write failed", zap.String("url", key), zap.Error(err))
		}
	}
}

// Evict removes a key from the memory layer
func (c *AnalysisCache) Evict(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.removeLocked(key)
}

// Len returns the number of entries held in memory
func (c *AnalysisCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// GetStats returns cache statistics
func (c *AnalysisCache) GetStats() Stats {
	c.mu.RLock()
	defer c.mu.RUnlock()
	s := c.stats
	s.Entries = len(c.entries)
	return s
}

// Prune drops expired entries and returns how many were removed
func (c *AnalysisCache) Prune() int {
	if c.config.TTL <= 0 {
		return 0
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	kept := c.order[:0]
	removed := 0
	for _, key := range c.order {
		e, ok := c.entries[key]
		if !ok {
			continue
		}
		if c.expired(e) {
			delete(c.entries, key)
			removed++
			continue
		}
		kept = append(kept, key)
	}
	c.order = kept
	return removed
}

func (c *AnalysisCache) expired(e *entry) bool {
	return c.config.TTL > 0 && c.now().Sub(e.createdAt) >= c.config.TTL
}

// putLocked inserts or refreshes key, evicting the oldest entries when the
// cache is full. Caller holds mu.
func (c *AnalysisCache) putLocked(key string, analysis *domain.StyleAnalysis) {
	c.removeLocked(key)

	for c.config.MaxEntries > 0 && len(c.entries) >= c.config.MaxEntries && len(c.order) > 0 {
		oldest := c.order[0]
		c.order = c.order[1:]
		delete(c.entries, oldest)
		c.stats.Evictions++
	}

	c.entries[key] = &entry{analysis: analysis, createdAt: c.now()}
	c.order = append(c.order, key)
}

func (c *AnalysisCache) removeLocked(key string) {
	if _, ok := c.entries[key]; !ok {
		return
	}
	delete(c.entries, key)
	c.removeFromOrder(key)
}

func (c *AnalysisCache) removeFromOrder(key string) {
	for i, k := range c.order {
		if k == key {
			c.order = append(c.order[:i], c.order[i+1:]...)
			return
		}
	}
}
