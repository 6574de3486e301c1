// Package nodelink renders the family co-occurrence graph as a node-link
// diagram.
//
// # Overview
//
// Every gene family becomes a node filled with the color of its partition.
// Every co-occurrence edge becomes an undirected link whose width grows with
// its weight, the number of organisms in which the two families are
// neighbors. Large pangenomes produce unreadable drawings, so [Options] can
// drop light edges and the families they leave isolated.
//
// # Usage
//
//	dot := nodelink.ToDOT(g, nodelink.Options{MinWeight: 2})
//	svg, err := nodelink.RenderSVG(dot)
//
// For PDF or PNG output:
//
//	pdf, err := nodelink.RenderPDF(dot)
//	png, err := nodelink.RenderPNG(dot, 2.0)  // 2x scale
//
// # Dependencies
//
// This package uses [github.com/goccy/go-graphviz] for in-process SVG
// rendering. PDF and PNG conversion requires librsvg (rsvg-convert).
package nodelink
