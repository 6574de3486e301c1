package pangenome_test

import (
	"fmt"

	"github.com/matzehuels/panpart/pkg/pangenome"
)

func ExampleGraph_basic() {
	g := pangenome.New()
	for _, org := range []string{"ecoli", "shigella"} {
		_, _ = g.AddOrganism(org)
		_, _ = g.AddContig(org, "chr", false)
	}
	_ = g.AddGene("ecoli", "chr", "e1", "thrL")
	_ = g.AddGene("ecoli", "chr", "e2", "thrA")
	_ = g.AddGene("shigella", "chr", "s1", "thrL")
	_ = g.AddGene("shigella", "chr", "s2", "thrA")
	g.Finalize()

	fmt.Println("Organisms:", g.NumOrganisms())
	fmt.Println("Families:", g.NumFamilies())
	fmt.Println("Weight thrL-thrA:", g.Weight("thrL", "thrA"))
	// Output:
	// Organisms: 2
	// Families: 2
	// Weight thrL-thrA: 2
}

func ExampleClassifyCoreAccessory() {
	exact, soft := pangenome.ClassifyCoreAccessory(19, 20, pangenome.DefaultSoftCoreThreshold)
	fmt.Println(exact, soft)
	// Output:
	// exact_accessory soft_core
}
