// Package memory provides an in-memory draft.Saver.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/flowgraph/creditflow/internal/core/draft"
	"github.com/flowgraph/creditflow/internal/infrastructure/logging"
	"github.com/flowgraph/creditflow/internal/infrastructure/metrics"
	"github.com/flowgraph/creditflow/pkg/serialization"
)

// DraftSaver implements draft.Saver over a mutex-guarded map of serialized
// drafts. Entries expire after a TTL and the least recently used entries
// are evicted when the memory cap would be exceeded.
type DraftSaver struct {
	mu          sync.Mutex
	entries     map[string]*draftEntry
	currentSize int64

	defaultTTL time.Duration
	maxBytes   int64
	serializer *serialization.Serializer
	now        func() time.Time
	logger     *zap.Logger
	metrics    *metrics.Recorder

	cleanupTicker *time.Ticker
	stopCleanup   chan struct{}
	cleanupOnce   sync.Once
}

// DraftSaverConfig holds configuration for DraftSaver.
type DraftSaverConfig struct {
	DefaultTTL      time.Duration             // Default TTL for drafts
	MaxMemoryMB     int64                     // Maximum memory usage in MB
	CleanupInterval time.Duration             // Cleanup interval for expired items
	Serializer      *serialization.Serializer // Custom serializer (optional)
	Logger          *zap.Logger
	Metrics         *metrics.Recorder
	// Now overrides the clock used for TTL and LRU bookkeeping.
	Now func() time.Time
}

// draftEntry holds the serialized draft plus what List filters on.
type draftEntry struct {
	header     draft.Draft // Document left empty
	data       []byte
	size       int64
	expiresAt  time.Time
	accessedAt time.Time
}

// NewDraftSaver creates a saver, filling unset config with defaults: one
// day TTL, 64MB, five-minute cleanup, MessagePack with zstd.
func NewDraftSaver(config DraftSaverConfig) *DraftSaver {
	if config.DefaultTTL == 0 {
		config.DefaultTTL = 24 * time.Hour
	}
	if config.MaxMemoryMB == 0 {
		config.MaxMemoryMB = 64
	}
	if config.CleanupInterval == 0 {
		config.CleanupInterval = 5 * time.Minute
	}
	if config.Serializer == nil {
		config.Serializer = serialization.DefaultSerializer()
	}
	if config.Now == nil {
		config.Now = time.Now
	}

	s := &DraftSaver{
		entries:     make(map[string]*draftEntry),
		defaultTTL:  config.DefaultTTL,
		maxBytes:    config.MaxMemoryMB * 1024 * 1024,
		serializer:  config.Serializer,
		now:         config.Now,
		logger:      logging.OrNop(config.Logger).With(zap.String("component", "draft_saver")),
		metrics:     config.Metrics,
		stopCleanup: make(chan struct{}),
	}
	s.startCleanup(config.CleanupInterval)
	return s
}

// Save serializes and stores a draft. A draft with the same ID is replaced.
func (s *DraftSaver) Save(_ context.Context, d *draft.Draft) error {
	if err := d.Validate(); err != nil {
		return fmt.Errorf("draft validation failed: %w", err)
	}

	data, err := s.serializer.Serialize(d)
	if err != nil {
		return fmt.Errorf("draft serialization failed: %w", err)
	}
	size := int64(len(data))
	if size > s.maxBytes {
		return fmt.Errorf("%w: draft is %d bytes, limit is %d", draft.ErrMemoryLimit, size, s.maxBytes)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if old, ok := s.entries[d.ID]; ok {
		s.removeLocked(d.ID, old)
	}
	s.reserveLocked(size)

	now := s.now()
	header := *d
	header.Document = ""
	header.Metadata.Tags = append([]string(nil), d.Metadata.Tags...)
	s.entries[d.ID] = &draftEntry{
		header:     header,
		data:       data,
		size:       size,
		expiresAt:  now.Add(s.defaultTTL),
		accessedAt: now,
	}
	s.currentSize += size

	s.metrics.Draft("save")
	s.metrics.DraftBytes(s.currentSize)
	s.logger.Debug("draft saved",
		zap.String("id", d.ID),
		zap.String("name", d.Name),
		zap.Int64("bytes", size),
	)
	return nil
}

// Load retrieves and deserializes a draft.
func (s *DraftSaver) Load(_ context.Context, id string) (*draft.Draft, error) {
	s.mu.Lock()
	entry, ok := s.entries[id]
	if ok && s.expiredLocked(entry) {
		s.removeLocked(id, entry)
		s.metrics.DraftsEvicted(1)
		ok = false
	}
	if !ok {
		s.mu.Unlock()
		return nil, draft.ErrDraftNotFound
	}
	entry.accessedAt = s.now()
	data := entry.data
	s.mu.Unlock()

	var d draft.Draft
	if err := s.serializer.Deserialize(data, &d); err != nil {
		return nil, fmt.Errorf("draft deserialization failed: %w", err)
	}
	s.metrics.Draft("load")
	return &d, nil
}

// List returns the drafts matching filter, newest first. Expired drafts are
// dropped as they are found.
func (s *DraftSaver) List(_ context.Context, filter draft.Filter) ([]*draft.Draft, error) {
	if err := filter.Validate(); err != nil {
		return nil, fmt.Errorf("filter validation failed: %w", err)
	}

	s.mu.Lock()
	var matched []*draftEntry
	expired := 0
	for id, entry := range s.entries {
		if s.expiredLocked(entry) {
			s.removeLocked(id, entry)
			expired++
			continue
		}
		if filter.Matches(&entry.header) {
			matched = append(matched, entry)
		}
	}
	s.mu.Unlock()
	s.metrics.DraftsEvicted(expired)

	sort.Slice(matched, func(i, j int) bool {
		a, b := matched[i].header, matched[j].header
		if !a.Timestamp.Equal(b.Timestamp) {
			return a.Timestamp.After(b.Timestamp)
		}
		return a.ID < b.ID
	})

	if filter.Offset >= len(matched) {
		matched = nil
	} else {
		matched = matched[filter.Offset:]
	}
	if filter.Limit > 0 && len(matched) > filter.Limit {
		matched = matched[:filter.Limit]
	}

	results := make([]*draft.Draft, 0, len(matched))
	for _, entry := range matched {
		var d draft.Draft
		if err := s.serializer.Deserialize(entry.data, &d); err != nil {
			return nil, fmt.Errorf("draft deserialization failed: %w", err)
		}
		results = append(results, &d)
	}
	s.metrics.Draft("list")
	return results, nil
}

// Delete removes a draft.
func (s *DraftSaver) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.entries[id]
	if !ok {
		return draft.ErrDraftNotFound
	}
	s.removeLocked(id, entry)
	s.metrics.Draft("delete")
	return nil
}

// MemoryStats reports memory usage.
type MemoryStats struct {
	Count              int64   `json:"count"`
	SizeBytes          int64   `json:"size_bytes"`
	MaxSizeMB          int64   `json:"max_size_mb"`
	UtilizationPercent float64 `json:"utilization_percent"`
}

// Stats returns memory usage statistics.
func (s *DraftSaver) Stats() MemoryStats {
	s.mu.Lock()
	defer s.mu.Unlock()

	var utilization float64
	if s.maxBytes > 0 {
		utilization = float64(s.currentSize) / float64(s.maxBytes) * 100
	}
	return MemoryStats{
		Count:              int64(len(s.entries)),
		SizeBytes:          s.currentSize,
		MaxSizeMB:          s.maxBytes / (1024 * 1024),
		UtilizationPercent: utilization,
	}
}

// Close stops the cleanup goroutine and releases resources
func (s *DraftSaver) Close() error {
	s.cleanupOnce.Do(func() {
		close(s.stopCleanup)
		s.cleanupTicker.Stop()
	})
	return nil
}

func (s *DraftSaver) startCleanup(interval time.Duration) {
	s.cleanupTicker = time.NewTicker(interval)

	go func() {
		for {
			select {
			case <-s.cleanupTicker.C:
				s.cleanupExpired()
			case <-s.stopCleanup:
				return
			}
		}
	}()
}

// cleanupExpired removes expired drafts
func (s *DraftSaver) cleanupExpired() {
	s.mu.Lock()
	defer s.mu.Unlock()

	expired := 0
	for id, entry := range s.entries {
		if s.expiredLocked(entry) {
			s.removeLocked(id, entry)
			expired++
		}
	}
	if expired > 0 {
		s.metrics.DraftsEvicted(expired)
		s.logger.Debug("expired drafts removed", zap.Int("count", expired))
	}
}

func (s *DraftSaver) expiredLocked(e *draftEntry) bool {
	return s.now().After(e.expiresAt)
}

func (s *DraftSaver) removeLocked(id string, e *draftEntry) {
	delete(s.entries, id)
	s.currentSize -= e.size
	s.metrics.DraftBytes(s.currentSize)
}

// reserveLocked makes room for size bytes, evicting least recently used
// drafts when needed. size never exceeds maxBytes.
func (s *DraftSaver) reserveLocked(size int64) {
	if s.currentSize+size <= s.maxBytes {
		return
	}

	ids := make([]string, 0, len(s.entries))
	for id := range s.entries {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool {
		return s.entries[ids[i]].accessedAt.Before(s.entries[ids[j]].accessedAt)
	})

	evicted := 0
	for _, id := range ids {
		if s.currentSize+size <= s.maxBytes {
			break
		}
		s.removeLocked(id, s.entries[id])
		evicted++
	}
	s.metrics.DraftsEvicted(evicted)
	s.logger.Info("drafts evicted for memory", zap.Int("count", evicted))
}
