// Package report renders measurement results.
//
// Three formats are available:
//   - SimpleWriter: the resource tree as indented text lines plus totals
//   - JSONWriter: the full result for tool integration
//   - MarkdownWriter: tables and a size breakdown chart for sharing
//
// Every writer walks the tree depth-first, pre-order, so a frame document is
// immediately followed by its own resources.
package report
