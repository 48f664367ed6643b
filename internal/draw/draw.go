// Package draw splits a roster into random groups or bracket pairings.
//
// Both operations shuffle first and then cut the shuffled order. Entries that do not
// fill a complete group (or pairing) are dropped: there are no byes and no short teams.
package draw

import "math/rand"

// Pairing is one bracket match. Home is the earlier entry in shuffled order.
type Pairing struct {
	Home string
	Away string
}

// Shuffle returns a uniformly random permutation of entries. The input is not modified.
func Shuffle(entries []string, rng *rand.Rand) []string {
	out := make([]string, len(entries))
	copy(out, entries)
	rng.Shuffle(len(out), func(i, j int) {
		out[i], out[j] = out[j], out[i]
	})
	return out
}

// Chunk cuts ordered into contiguous groups of size, dropping a trailing incomplete group.
func Chunk(ordered []string, size int) [][]string {
	if size <= 0 {
		return nil
	}
	groups := make([][]string, 0, len(ordered)/size)
	for i := 0; i+size <= len(ordered); i += size {
		group := make([]string, size)
		copy(group, ordered[i:i+size])
		groups = append(groups, group)
	}
	return groups
}

// Pair matches consecutive entries of ordered. An odd leftover is dropped.
func Pair(ordered []string) []Pairing {
	pairings := make([]Pairing, 0, len(ordered)/2)
	for i := 0; i+1 < len(ordered); i += 2 {
		pairings = append(pairings, Pairing{Home: ordered[i], Away: ordered[i+1]})
	}
	return pairings
}

func Groups(roster []string, size int, rng *rand.Rand) [][]string {
	return Chunk(Shuffle(roster, rng), size)
}

func Bracket(teams []string, rng *rand.Rand) []Pairing {
	return Pair(Shuffle(teams, rng))
}
