// Package pipeline drives the item-resolution and download-orchestration
// flow: lines are ingested into grouped identifier sets, then drained and
// downloaded one item at a time.
package pipeline

import (
	"sort"
	"sync"

	"github.com/okabe3/trackbox/internal/domain/item"
)

// GroupingStore accumulates discovered identifiers into named groups with
// set semantics, so overlapping sources deduplicate within a group.
type GroupingStore struct {
	mu     sync.Mutex
	groups map[string]map[item.ID]struct{}
}

// NewGroupingStore creates an empty store.
func NewGroupingStore() *GroupingStore {
	return &GroupingStore{groups: make(map[string]map[item.ID]struct{})}
}

// Ingest merges members into the set stored under key.
func (s *GroupingStore) Ingest(key string, members []item.ID) {
	if len(members) == 0 {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	set, ok := s.groups[key]
	if !ok {
		set = make(map[item.ID]struct{})
		s.groups[key] = set
	}
	for _, m := range members {
		set[m] = struct{}{}
	}
}

// Drain atomically empties the store and returns its prior contents.
// Members are returned in a stable order; group order is unspecified.
func (s *GroupingStore) Drain() map[string][]item.ID {
	s.mu.Lock()
	groups := s.groups
	s.groups = make(map[string]map[item.ID]struct{})
	s.mu.Unlock()

	drained := make(map[string][]item.ID, len(groups))
	for key, set := range groups {
		members := make([]item.ID, 0, len(set))
		for id := range set {
			members = append(members, id)
		}
		sort.Slice(members, func(i, j int) bool {
			if members[i].Kind != members[j].Kind {
				return members[i].Kind < members[j].Kind
			}
			return members[i].Value < members[j].Value
		})
		drained[key] = members
	}
	return drained
}

// Empty reports whether nothing has been ingested since the last drain.
func (s *GroupingStore) Empty() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.groups) == 0
}
