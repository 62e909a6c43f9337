package cache

import (
	"context"
	"fmt"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"
)

// LRU is a fixed-size in-process backend.
type LRU struct {
	entries *lru.Cache[string, *Entry]
}

func NewLRU(size int) (*LRU, error) {
	entries, err := lru.New[string, *Entry](size)
	if err != nil {
		return nil, fmt.Errorf("creating lru cache: %w", err)
	}
	return &LRU{entries: entries}, nil
}

func (l *LRU) Get(_ context.Context, key string) (*Entry, bool) {
	return l.entries.Get(key)
}

func (l *LRU) Set(_ context.Context, key string, entry *Entry) {
	l.entries.Add(key, entry)
}

func (l *LRU) Purge(_ context.Context, scope string) (int64, error) {
	if scope == "" {
		n := l.entries.Len()
		l.entries.Purge()
		return int64(n), nil
	}
	prefix := scopePrefix(scope)
	var n int64
	for _, key := range l.entries.Keys() {
		if strings.HasPrefix(key, prefix) && l.entries.Remove(key) {
			n++
		}
	}
	return n, nil
}

func (l *LRU) Len() int {
	return l.entries.Len()
}

func (l *LRU) Name() string { return "lru" }
