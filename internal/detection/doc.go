// Package detection scores script bodies against wallet-drainer patterns.
//
// PatternSet is the injected list of case-insensitive substrings, Scanner
// turns script references into PatternMatch values and diagnostic reasons,
// and Classifier maps the match count onto a score, a risk tier and a display
// percentage. Nothing here touches the network.
package detection
