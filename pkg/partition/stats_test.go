package partition

import (
	"testing"

	"github.com/matzehuels/panpart/pkg/pangenome"
)

func TestNewStats(t *testing.T) {
	labels := map[string]pangenome.Label{
		"a": {Partition: pangenome.Persistent, FormerPartition: pangenome.ExactCore, SoftPartition: pangenome.SoftCore},
		"b": {Partition: pangenome.Undefined, FormerPartition: pangenome.ExactAccessory, SoftPartition: pangenome.SoftAccessory},
	}
	s, err := NewStats(labels, 3)
	if err != nil {
		t.Fatal(err)
	}
	if s.Persistent != 1 || s.Undefined != 1 || s.Pangenome() != 2 || s.Q != 3 {
		t.Errorf("stats = %+v", s)
	}
}

func TestStatsValidate(t *testing.T) {
	tests := []struct {
		name    string
		stats   Stats
		wantErr bool
	}{
		{"consistent", Stats{Persistent: 2, Cloud: 1, ExactCore: 2, ExactAccessory: 1, SoftCore: 2, SoftAccessory: 1, Q: 3}, false},
		{"empty", Stats{}, false},
		{"model mismatch", Stats{Persistent: 1, ExactCore: 2, SoftCore: 2}, true},
		{"soft mismatch", Stats{Persistent: 2, ExactCore: 2, SoftCore: 1}, true},
		{"negative", Stats{Persistent: -1, Shell: 1}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.stats.Validate(); (err != nil) != tt.wantErr {
				t.Errorf("Validate() = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestStatsCount(t *testing.T) {
	s := Stats{Shell: 4, ExactCore: 1, ExactAccessory: 3, Q: 5}
	for class, want := range map[string]int{"shell": 4, "pangenome": 4, "Q": 5} {
		if got, ok := s.Count(class); !ok || got != want {
			t.Errorf("Count(%s) = %d, %v; want %d", class, got, ok, want)
		}
	}
	if _, ok := s.Count("core"); ok {
		t.Error("unknown class accepted")
	}
}
