// Package render provides visualizations of partitioned pangenomes.
//
// # Overview
//
// This package contains the shared pieces of the rendering pipeline:
//
//   - Partition colors used by every renderer ([Color])
//   - Generic format conversion (SVG to PDF/PNG)
//   - Node-link diagrams of the family graph (in [nodelink] subpackage)
//   - Statistical plots (in [plot] subpackage)
//
// # Format Conversion
//
// The [ToPDF] and [ToPNG] functions convert any SVG to other formats using
// the external rsvg-convert tool (from librsvg).
//
//	svg := plot.UShape(g)
//	pdf, err := render.ToPDF(svg)
//	png, err := render.ToPNG(svg, 2.0)  // 2x scale
//
// # Node-Link Diagrams
//
// The [nodelink] subpackage renders the co-occurrence graph with Graphviz,
// one node per family filled with its partition color.
//
//	dot := nodelink.ToDOT(g, nodelink.Options{})
//	svg, err := nodelink.RenderSVG(dot)
//
// [nodelink]: github.com/matzehuels/panpart/pkg/render/nodelink
// [plot]: github.com/matzehuels/panpart/pkg/render/plot
package render
