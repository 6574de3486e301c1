package partition

import "github.com/matzehuels/panpart/pkg/pangenome"

// tallyEntry counts the votes a family received.
type tallyEntry struct {
	counts map[pangenome.Partition]int
	subs   map[string]int
}

// Tally accumulates chunk votes. Adding and combining only count votes, so
// the final labels do not depend on the order chunks complete in.
type Tally struct {
	entries map[string]*tallyEntry
	qs      map[int]int
}

// NewTally returns an empty tally.
func NewTally() *Tally {
	return &Tally{
		entries: make(map[string]*tallyEntry),
		qs:      make(map[int]int),
	}
}

// Add records the votes of one chunk.
func (t *Tally) Add(c *ChunkResult) {
	t.qs[c.Q]++
	for id, v := range c.Votes {
		t.vote(id, v, 1)
	}
}

func (t *Tally) vote(id string, v Vote, n int) {
	e, ok := t.entries[id]
	if !ok {
		e = &tallyEntry{counts: make(map[pangenome.Partition]int), subs: make(map[string]int)}
		t.entries[id] = e
	}
	e.counts[v.Partition] += n
	e.subs[v.Subpartition] += n
}

// Combine adds all votes of other into t.
func (t *Tally) Combine(other *Tally) {
	for q, n := range other.qs {
		t.qs[q] += n
	}
	for id, e := range other.entries {
		mine, ok := t.entries[id]
		if !ok {
			mine = &tallyEntry{counts: make(map[pangenome.Partition]int), subs: make(map[string]int)}
			t.entries[id] = mine
		}
		for p, n := range e.counts {
			mine.counts[p] += n
		}
		for s, n := range e.subs {
			mine.subs[s] += n
		}
	}
}

// Len returns the number of families with at least one vote.
func (t *Tally) Len() int { return len(t.entries) }

// Q returns the number of components chosen by the most chunks; ties go
// to the smaller Q.
func (t *Tally) Q() int {
	best, bestN := 0, 0
	for q, n := range t.qs {
		if n > bestN || (n == bestN && q < best) {
			best, bestN = q, n
		}
	}
	return best
}

// Resolve returns the reconciled vote of one family. A label wins with at
// least half of the votes, ties going to the first in persistent, shell,
// cloud, undefined order. Without such a label the family is undefined.
func (t *Tally) Resolve(id string) Vote {
	e, ok := t.entries[id]
	if !ok {
		return Vote{Partition: pangenome.Undefined, Subpartition: "U"}
	}
	total := 0
	for _, n := range e.counts {
		total += n
	}
	var winner pangenome.Partition
	best := 0
	for _, p := range pangenome.Partitions {
		if n := e.counts[p]; n > best {
			winner, best = p, n
		}
	}
	if best == 0 || 2*best < total {
		return Vote{Partition: pangenome.Undefined, Subpartition: "U"}
	}
	return Vote{Partition: winner, Subpartition: subpartition(winner, e.subs)}
}

func subpartition(p pangenome.Partition, subs map[string]int) string {
	if p != pangenome.Shell {
		return p.Letter()
	}
	shells := 0
	only := ""
	for s, n := range subs {
		if len(s) > 1 && s[0] == 'S' && n > 0 {
			shells++
			only = s
		}
	}
	if shells == 1 {
		return only
	}
	return "S"
}

// Labels resolves every family in the tally.
func (t *Tally) Labels() map[string]Vote {
	out := make(map[string]Vote, len(t.entries))
	for id := range t.entries {
		out[id] = t.Resolve(id)
	}
	return out
}

// Assemble resolves the tally into full family labels and the stats
// record. present maps each considered family to the number of selected
// organisms carrying it and total is the number of selected organisms.
func (t *Tally) Assemble(present map[string]int, total int, softCoreThreshold float64) (map[string]pangenome.Label, Stats, error) {
	labels := make(map[string]pangenome.Label, len(present))
	for id, n := range present {
		v := t.Resolve(id)
		exact, soft := pangenome.ClassifyCoreAccessory(n, total, softCoreThreshold)
		labels[id] = pangenome.Label{
			Partition:       v.Partition,
			FormerPartition: exact,
			SoftPartition:   soft,
			Subpartition:    v.Subpartition,
		}
	}
	stats, err := NewStats(labels, t.Q())
	return labels, stats, err
}
