package nodelink_test

import (
	"fmt"
	"strings"

	"github.com/matzehuels/panpart/pkg/pangenome"
	"github.com/matzehuels/panpart/pkg/render/nodelink"
)

func ExampleToDOT() {
	g := pangenome.New()
	_, _ = g.AddOrganism("ecoli")
	_, _ = g.AddContig("ecoli", "chr", false)
	_ = g.AddGene("ecoli", "chr", "b0001", "thrL")
	_ = g.AddGene("ecoli", "chr", "b0002", "thrA")
	g.Finalize()

	dot := nodelink.ToDOT(g, nodelink.Options{})
	for _, line := range strings.Split(dot, "\n") {
		if strings.Contains(line, "--") {
			fmt.Println(strings.TrimSpace(line))
		}
	}
	// Output:
	// "thrL" -- "thrA" [penwidth=1.00];
}
