// Package scan holds the value types produced by a single scan: script
// references discovered on a page, pattern matches found inside them and the
// aggregated result handed to the presentation layer.
//
// All values are created fresh per scan and never shared between scans.
package scan
