// Package checker implements the network side of a wallet-drainer scan.
//
// Architecture overview:
//
//   - ValidateTarget / NormalizeTarget accept a URL or bare domain without
//     touching the network.
//   - LivenessChecker resolves the host (DNSChecker) and sends a HEAD probe
//     through HTTPClient; either failure makes the target inactive.
//   - Fetcher downloads the root document and walks it with golang.org/x/net/html
//     to enumerate inline and external scripts.
//   - Retriever downloads external scripts on an errgroup bounded to
//     Concurrency workers, each writing its own slot.
//
// Every outbound call carries its own timeout and is never retried. Pattern
// matching and scoring live in internal/detection.
package checker
