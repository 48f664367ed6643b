package draw

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestChunk_DropsTrailingIncompleteGroup(t *testing.T) {
	// shuffled order [C,A,E,D,B] with size 2 keeps two full groups and drops B
	got := Chunk([]string{"C", "A", "E", "D", "B"}, 2)
	require.Equal(t, [][]string{{"C", "A"}, {"E", "D"}}, got)
}

func TestChunk(t *testing.T) {
	cases := []struct {
		name    string
		ordered []string
		size    int
		want    [][]string
	}{
		{name: "exact fit", ordered: []string{"a", "b", "c", "d"}, size: 2, want: [][]string{{"a", "b"}, {"c", "d"}}},
		{name: "fewer than one group", ordered: []string{"a", "b"}, size: 3, want: [][]string{}},
		{name: "squads", ordered: []string{"a", "b", "c", "d", "e", "f", "g", "h", "i"}, size: 4, want: [][]string{{"a", "b", "c", "d"}, {"e", "f", "g", "h"}}},
		{name: "empty roster", ordered: nil, size: 2, want: [][]string{}},
		{name: "bad size", ordered: []string{"a"}, size: 0, want: nil},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.want, Chunk(tc.ordered, tc.size))
		})
	}
}

func TestPair_DropsOddLeftover(t *testing.T) {
	got := Pair([]string{"t1", "t2", "t3", "t4", "t5"})
	require.Equal(t, []Pairing{{Home: "t1", Away: "t2"}, {Home: "t3", Away: "t4"}}, got)
	require.Empty(t, Pair([]string{"solo"}))
}

func TestGroups_FollowsSeededShuffle(t *testing.T) {
	roster := []string{"A", "B", "C", "D", "E"}

	order := Shuffle(roster, rand.New(rand.NewSource(42)))
	got := Groups(roster, 2, rand.New(rand.NewSource(42)))

	require.Equal(t, Chunk(order, 2), got)
	require.Len(t, got, 2)
	require.Equal(t, []string{"A", "B", "C", "D", "E"}, roster, "input must not be reordered")
}

func TestBracket_FollowsSeededShuffle(t *testing.T) {
	teams := []string{"t1", "t2", "t3", "t4", "t5", "t6"}

	order := Shuffle(teams, rand.New(rand.NewSource(7)))
	got := Bracket(teams, rand.New(rand.NewSource(7)))

	require.Equal(t, Pair(order), got)
	require.Len(t, got, 3)
}

func TestShuffle_IsPermutation(t *testing.T) {
	in := []string{"a", "b", "c", "d", "e", "f"}
	out := Shuffle(in, rand.New(rand.NewSource(1)))
	require.ElementsMatch(t, in, out)
}
