package render

import "github.com/matzehuels/panpart/pkg/pangenome"

// Partition colors.
const (
	PersistentColor = "#F7A507"
	ShellColor      = "#00D860"
	CloudColor      = "#79DEFF"
	UndefinedColor  = "#828282"
)

// Color returns the fill color of a partition.
func Color(p pangenome.Partition) string {
	switch p {
	case pangenome.Persistent:
		return PersistentColor
	case pangenome.Shell:
		return ShellColor
	case pangenome.Cloud:
		return CloudColor
	}
	return UndefinedColor
}
