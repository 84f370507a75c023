package cache

import (
	"container/list"
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"
)

// MemoryCache implements an in-memory LRU cache with TTL support
type MemoryCache struct {
	maxSize    int
	defaultTTL time.Duration
	items      map[string]*list.Element
	lru        *list.List
	mu         sync.Mutex
	now        func() time.Time
}

// MemoryCacheItem represents an item in the memory cache
type MemoryCacheItem struct {
	Key        string
	Value      []byte
	ExpiresAt  time.Time
	AccessedAt time.Time
}

// NewMemoryCache creates a new memory cache
func NewMemoryCache(maxSize int, defaultTTL time.Duration) *MemoryCache {
	if defaultTTL <= 0 {
		defaultTTL = 10 * time.Minute
	}
	return &MemoryCache{
		maxSize:    maxSize,
		defaultTTL: defaultTTL,
		items:      make(map[string]*list.Element),
		lru:        list.New(),
		now:        time.Now,
	}
}

// Get decodes the cached value for key into dest
func (m *MemoryCache) Get(ctx context.Context, key string, dest interface{}) error {
	m.mu.Lock()
	element, exists := m.items[key]
	if !exists {
		m.mu.Unlock()
		return ErrCacheMiss
	}

	item := element.Value.(*MemoryCacheItem)
	now := m.now()

	// Check if expired
	if now.After(item.ExpiresAt) {
		m.removeElement(element)
		m.mu.Unlock()
		return ErrCacheMiss
	}

	// Update access time and move to front (most recently used)
	item.AccessedAt = now
	m.lru.MoveToFront(element)
	data := item.Value
	m.mu.Unlock()

	if err := json.Unmarshal(data, dest); err != nil {
		return fmt.Errorf("unmarshal cache entry: %w", err)
	}
	return nil
}

// Set stores an item in the memory cache
func (m *MemoryCache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("marshal cache entry: %w", err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if ttl <= 0 {
		ttl = m.defaultTTL
	}

	now := m.now()
	item := &MemoryCacheItem{
		Key:        key,
		Value:      data,
		ExpiresAt:  now.Add(ttl),
		AccessedAt: now,
	}

	// Check if item already exists
	if element, exists := m.items[key]; exists {
		element.Value = item
		m.lru.MoveToFront(element)
	} else {
		element := m.lru.PushFront(item)
		m.items[key] = element
		m.evictIfNecessary()
	}

	return nil
}

// Delete removes items from the memory cache
func (m *MemoryCache) Delete(ctx context.Context, keys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, key := range keys {
		if element, exists := m.items[key]; exists {
			m.removeElement(element)
		}
	}

	return nil
}

// Clear removes all items from the memory cache
func (m *MemoryCache) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.items = make(map[string]*list.Element)
	m.lru.Init()
}

// Clean removes expired items from the memory cache
func (m *MemoryCache) Clean() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	var toRemove []*list.Element

	for element := m.lru.Back(); element != nil; element = element.Prev() {
		item := element.Value.(*MemoryCacheItem)
		if now.After(item.ExpiresAt) {
			toRemove = append(toRemove, element)
		}
	}

	for _, element := range toRemove {
		m.removeElement(element)
	}

	return nil
}

// Size returns the current number of items in cache
func (m *MemoryCache) Size() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.items)
}

// Stats returns cache statistics
func (m *MemoryCache) Stats() MemoryCacheStats {
	m.mu.Lock()
	defer m.mu.Unlock()

	var totalSize int64
	var expiredCount int
	now := m.now()

	for _, element := range m.items {
		item := element.Value.(*MemoryCacheItem)
		totalSize += int64(len(item.Value))
		if now.After(item.ExpiresAt) {
			expiredCount++
		}
	}

	stats := MemoryCacheStats{
		TotalItems:   len(m.items),
		TotalSize:    totalSize,
		MaxSize:      m.maxSize,
		ExpiredItems: expiredCount,
	}
	if m.maxSize > 0 {
		stats.UtilizationPct = float64(len(m.items)) / float64(m.maxSize) * 100
	}
	return stats
}

func (m *MemoryCache) removeElement(element *list.Element) {
	item := element.Value.(*MemoryCacheItem)
	delete(m.items, item.Key)
	m.lru.Remove(element)
}

func (m *MemoryCache) evictIfNecessary() {
	for len(m.items) > m.maxSize {
		oldest := m.lru.Back()
		if oldest == nil {
			return
		}
		m.removeElement(oldest)
	}
}

// MemoryCacheStats contains memory cache statistics
type MemoryCacheStats struct {
	TotalItems     int     `json:"total_items"`
	TotalSize      int64   `json:"total_size"`
	MaxSize        int     `json:"max_size"`
	ExpiredItems   int     `json:"expired_items"`
	UtilizationPct float64 `json:"utilization_pct"`
}
