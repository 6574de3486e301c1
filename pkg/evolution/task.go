package evolution

import (
	"fmt"

	"github.com/matzehuels/panpart/pkg/errors"
	"github.com/matzehuels/panpart/pkg/pangenome"
	"github.com/matzehuels/panpart/pkg/partition"
)

// Task is one resampling job. Tasks are immutable values handed to the
// workers; nothing else is shared between them.
type Task struct {
	Index     int
	Organisms []string
	Q         int // 0 selects Q in [Qmin, Qmax]
	Qmin      int
	Qmax      int
	Seed      uint64
	Workdir   string
}

// Size is the number of organisms of the task.
func (t Task) Size() int { return len(t.Organisms) }

// Sample is one row of the evolution log.
type Sample struct {
	// N is the number of organisms partitioned.
	N int
	// Stats are the class counts of the partition.
	Stats partition.Stats
	// Full marks the row of the complete pangenome.
	Full bool
}

// Value returns the count of a class, or false when it is not available.
// Model classes are unavailable when some families were left undefined.
func (s Sample) Value(class string) (float64, bool) {
	switch class {
	case "persistent", "shell", "cloud":
		if s.Stats.Undefined > 0 {
			return 0, false
		}
	}
	v, ok := s.Stats.Count(class)
	return float64(v), ok
}

// TaskFailure records a task that returned an error or panicked.
type TaskFailure struct {
	Task Task
	Err  error
}

func (f *TaskFailure) Error() string {
	return fmt.Sprintf("sample %d (%d organisms): %v", f.Task.Index, f.Task.Size(), f.Err)
}

// Unwrap exposes the failure as a TASK_FAILURE coded error.
func (f *TaskFailure) Unwrap() error {
	return errors.Wrap(errors.ErrCodeTaskFailure, f.Err, "sample %d failed", f.Task.Index)
}

// QPolicy returns the Q, Qmin and Qmax of every sample of a run. q, qmin
// and qmax are the requested values (q = 0 for automatic selection); g
// supplies the full pangenome's Q when it is partitioned.
func QPolicy(mode QMode, g *pangenome.Graph, q, qmin, qmax int) (int, int, int) {
	switch mode {
	case QFixed:
		switch {
		case g.Partitioned() && g.Q() >= partition.MinQ:
			q = g.Q()
		case q == 0:
			q = partition.MinQ
		}
		return q, qmin, qmax
	case QBounded:
		switch {
		case g.Partitioned() && g.Q() >= partition.MinQ:
			qmax = g.Q()
		case q > 0:
			qmax = q
		}
		return 0, qmin, max(qmax, qmin)
	}
	return 0, qmin, qmax
}
