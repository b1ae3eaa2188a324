package pipeline

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/okabe3/trackbox/internal/domain/item"
)

func track(v string) item.ID {
	return item.ID{Kind: item.KindTrack, Value: v}
}

func episode(v string) item.ID {
	return item.ID{Kind: item.KindEpisode, Value: v}
}

func TestIngestDeduplicatesWithinGroup(t *testing.T) {
	s := NewGroupingStore()

	// The same track arrives via two overlapping sources.
	s.Ingest("playlists/Mix", []item.ID{track("T1"), track("T2")})
	s.Ingest("playlists/Mix", []item.ID{track("T1"), track("T3")})

	groups := s.Drain()
	require.Len(t, groups, 1)
	assert.ElementsMatch(t, []item.ID{track("T1"), track("T2"), track("T3")}, groups["playlists/Mix"])
}

func TestIngestSeparatesGroups(t *testing.T) {
	s := NewGroupingStore()

	s.Ingest("tracks", []item.ID{track("T1")})
	s.Ingest("episodes", []item.ID{episode("E1")})

	groups := s.Drain()
	require.Len(t, groups, 2)
	assert.Equal(t, []item.ID{track("T1")}, groups["tracks"])
	assert.Equal(t, []item.ID{episode("E1")}, groups["episodes"])
}

func TestCrossGroupDuplicationIsAllowed(t *testing.T) {
	s := NewGroupingStore()

	s.Ingest("tracks", []item.ID{track("T1")})
	s.Ingest("albums/Record", []item.ID{track("T1"), track("T2")})

	groups := s.Drain()
	assert.Equal(t, []item.ID{track("T1")}, groups["tracks"])
	assert.ElementsMatch(t, []item.ID{track("T1"), track("T2")}, groups["albums/Record"])
}

func TestDrainEmptiesStore(t *testing.T) {
	s := NewGroupingStore()
	s.Ingest("tracks", []item.ID{track("T1")})

	first := s.Drain()
	require.Len(t, first, 1)
	assert.True(t, s.Empty())

	second := s.Drain()
	assert.Empty(t, second, "second drain must observe an empty store")
}

func TestDrainStableMemberOrder(t *testing.T) {
	s := NewGroupingStore()
	s.Ingest("tracks", []item.ID{track("T3"), track("T1"), track("T2")})

	groups := s.Drain()
	assert.Equal(t, []item.ID{track("T1"), track("T2"), track("T3")}, groups["tracks"])
}

func TestIngestEmptyMembersIsNoop(t *testing.T) {
	s := NewGroupingStore()
	s.Ingest("tracks", nil)
	assert.True(t, s.Empty())
}
