// Package render turns a finished piecing run into printable output.
//
// Two renderers live here:
//
//   - [Preview] draws an annotated raster overview of the whole drawing
//     in its original coordinates: patches filled in their group colors
//     with piece labels at the centroids.
//   - [PDF] paginates the packed layout into a print-ready document, one
//     page per layout page, with dashed cut lines along the seam
//     allowance, solid seam lines, and piece labels.
//
// Both renderers consume geometry produced upstream and never modify
// it.
package render
