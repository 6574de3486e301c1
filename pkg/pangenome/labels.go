package pangenome

import "fmt"

// Partition is the model-based conservation class of a family.
type Partition string

// Partition values. Undefined marks families whose chunk could not be
// clustered; it never aliases one of the three real classes.
const (
	Persistent Partition = "persistent"
	Shell      Partition = "shell"
	Cloud      Partition = "cloud"
	Undefined  Partition = "undefined"
)

// Partitions lists the partition values in canonical order.
var Partitions = []Partition{Persistent, Shell, Cloud, Undefined}

// ParsePartition parses a partition name. Single letter abbreviations
// (P, S, C, U) are accepted.
func ParsePartition(s string) (Partition, error) {
	switch s {
	case "persistent", "P":
		return Persistent, nil
	case "shell", "S":
		return Shell, nil
	case "cloud", "C":
		return Cloud, nil
	case "undefined", "U", "":
		return Undefined, nil
	}
	return Undefined, fmt.Errorf("unknown partition %q", s)
}

// Letter returns the one letter abbreviation of p.
func (p Partition) Letter() string {
	switch p {
	case Persistent:
		return "P"
	case Shell:
		return "S"
	case Cloud:
		return "C"
	}
	return "U"
}

// FormerPartition is the exact presence class of a family.
type FormerPartition string

// FormerPartition values.
const (
	ExactCore      FormerPartition = "exact_core"
	ExactAccessory FormerPartition = "exact_accessory"
)

// SoftPartition is the threshold presence class of a family.
type SoftPartition string

// SoftPartition values.
const (
	SoftCore      SoftPartition = "soft_core"
	SoftAccessory SoftPartition = "soft_accessory"
)

// DefaultSoftCoreThreshold is the presence ratio at or above which a family
// is soft core.
const DefaultSoftCoreThreshold = 0.95

// ClassifyCoreAccessory derives the exact and soft presence classes from the
// number of organisms carrying a family out of total. A family is exact core
// iff it is present in every organism, and soft core iff its presence ratio
// is at least threshold (inclusive).
func ClassifyCoreAccessory(present, total int, threshold float64) (FormerPartition, SoftPartition) {
	if total <= 0 || present <= 0 {
		return ExactAccessory, SoftAccessory
	}
	exact := ExactAccessory
	if present >= total {
		exact = ExactCore
	}
	soft := SoftAccessory
	if float64(present)/float64(total) >= threshold {
		soft = SoftCore
	}
	return exact, soft
}

// Label is the full set of labels assigned to one family by a run.
type Label struct {
	Partition       Partition
	FormerPartition FormerPartition
	SoftPartition   SoftPartition
	Subpartition    string
}

// ApplyLabels overwrites the labels of every family. Families missing from
// labels are reset to undefined / exact_accessory / soft_accessory and are
// no longer [Family.Labeled].
// The graph records q and is marked as partitioned.
func (g *Graph) ApplyLabels(labels map[string]Label, q int) {
	for _, f := range g.families {
		l, ok := labels[f.ID]
		f.labeled = ok
		if !ok {
			l = Label{Partition: Undefined, FormerPartition: ExactAccessory, SoftPartition: SoftAccessory}
		}
		f.Partition = l.Partition
		f.FormerPartition = l.FormerPartition
		f.SoftPartition = l.SoftPartition
		f.Subpartition = l.Subpartition
		if f.Subpartition == "" {
			f.Subpartition = l.Partition.Letter()
		}
	}
	g.q = q
	g.partitioned = true
}

// FamiliesIn returns the families carrying partition p, in insertion order.
func (g *Graph) FamiliesIn(p Partition) []*Family {
	var out []*Family
	for _, f := range g.families {
		if f.Partition == p {
			out = append(out, f)
		}
	}
	return out
}
