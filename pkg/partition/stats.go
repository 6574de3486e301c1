package partition

import (
	"fmt"

	"github.com/matzehuels/panpart/pkg/pangenome"
)

// Stats is the summary of one partition call.
type Stats struct {
	Persistent     int `json:"persistent" toml:"persistent" yaml:"persistent"`
	Shell          int `json:"shell" toml:"shell" yaml:"shell"`
	Cloud          int `json:"cloud" toml:"cloud" yaml:"cloud"`
	Undefined      int `json:"undefined" toml:"undefined" yaml:"undefined"`
	ExactCore      int `json:"exact_core" toml:"exact_core" yaml:"exact_core"`
	ExactAccessory int `json:"exact_accessory" toml:"exact_accessory" yaml:"exact_accessory"`
	SoftCore       int `json:"soft_core" toml:"soft_core" yaml:"soft_core"`
	SoftAccessory  int `json:"soft_accessory" toml:"soft_accessory" yaml:"soft_accessory"`
	Q              int `json:"Q" toml:"Q" yaml:"Q"`
}

// NewStats counts labels into a validated Stats record.
func NewStats(labels map[string]pangenome.Label, q int) (Stats, error) {
	var s Stats
	for _, l := range labels {
		switch l.Partition {
		case pangenome.Persistent:
			s.Persistent++
		case pangenome.Shell:
			s.Shell++
		case pangenome.Cloud:
			s.Cloud++
		default:
			s.Undefined++
		}
		if l.FormerPartition == pangenome.ExactCore {
			s.ExactCore++
		} else {
			s.ExactAccessory++
		}
		if l.SoftPartition == pangenome.SoftCore {
			s.SoftCore++
		} else {
			s.SoftAccessory++
		}
	}
	s.Q = q
	return s, s.Validate()
}

// Pangenome returns the number of families considered.
func (s Stats) Pangenome() int { return s.ExactCore + s.ExactAccessory }

// Validate checks that the three classifications count the same families.
func (s Stats) Validate() error {
	for _, v := range []int{s.Persistent, s.Shell, s.Cloud, s.Undefined,
		s.ExactCore, s.ExactAccessory, s.SoftCore, s.SoftAccessory, s.Q} {
		if v < 0 {
			return fmt.Errorf("stats: negative count in %+v", s)
		}
	}
	model := s.Persistent + s.Shell + s.Cloud + s.Undefined
	if model != s.Pangenome() || s.SoftCore+s.SoftAccessory != s.Pangenome() {
		return fmt.Errorf("stats: class totals disagree (model %d, exact %d, soft %d)",
			model, s.Pangenome(), s.SoftCore+s.SoftAccessory)
	}
	return nil
}

// Count returns the value of a named class, as used in result files.
func (s Stats) Count(class string) (int, bool) {
	switch class {
	case "persistent":
		return s.Persistent, true
	case "shell":
		return s.Shell, true
	case "cloud":
		return s.Cloud, true
	case "undefined":
		return s.Undefined, true
	case "exact_core":
		return s.ExactCore, true
	case "exact_accessory":
		return s.ExactAccessory, true
	case "soft_core":
		return s.SoftCore, true
	case "soft_accessory":
		return s.SoftAccessory, true
	case "pangenome":
		return s.Pangenome(), true
	case "Q":
		return s.Q, true
	}
	return 0, false
}

// Classes lists the class names reported for every partition call.
var Classes = []string{
	"persistent", "shell", "cloud", "undefined",
	"exact_core", "exact_accessory", "soft_core", "soft_accessory",
	"pangenome",
}
