package bucket

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"
)

// Memory is an in-process bucket. Its cursor is the offset of the next key.
type Memory struct {
	mu      sync.RWMutex
	objects map[string]string
}

func NewMemory() *Memory {
	return &Memory{objects: make(map[string]string)}
}

func (m *Memory) Put(key, body string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[key] = body
}

func (m *Memory) List(ctx context.Context, prefix, cursor string, limit int) (Page, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var keys []string
	for k := range m.objects {
		if strings.HasPrefix(k, prefix) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)

	start := 0
	if cursor != "" {
		n, err := strconv.Atoi(cursor)
		if err != nil || n < 0 {
			return Page{}, fmt.Errorf("invalid cursor %q", cursor)
		}
		start = min(n, len(keys))
	}
	if limit <= 0 {
		limit = len(keys)
	}
	end := min(start+limit, len(keys))

	page := Page{}
	for _, k := range keys[start:end] {
		page.Objects = append(page.Objects, Object{Key: k, Size: int64(len(m.objects[k]))})
	}
	if end < len(keys) {
		page.Truncated = true
		page.Cursor = strconv.Itoa(end)
	}
	return page, nil
}

func (m *Memory) Get(ctx context.Context, key string) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	body, ok := m.objects[key]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrObjectNotFound, key)
	}
	return body, nil
}
