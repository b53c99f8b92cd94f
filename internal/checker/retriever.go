package checker

import (
	"context"
	"net/http"
	"net/url"
	"strings"

	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/khanhnv2901/walletscan/internal/domain/scan"
	consts "github.com/khanhnv2901/walletscan/internal/shared/constants"
)

// ProgressFunc is called once per settled external retrieval. It runs on the
// worker goroutine and must be safe for concurrent use.
type ProgressFunc func(ref scan.ScriptReference, ok bool)

// Retriever downloads external script bodies on a bounded fan-out.
type Retriever struct {
	Client      Getter
	Concurrency int           // Maximum number of in-flight downloads
	Limiter     *rate.Limiter // Optional global request rate limit
}

// Retrieve returns refs with every external reference either carrying its
// lower-cased body or marked as not fetched. Inline references pass through
// untouched. The returned slice has the same order as refs; completion order
// of the downloads has no effect on it.
func (r *Retriever) Retrieve(ctx context.Context, refs []scan.ScriptReference, progress ProgressFunc) []scan.ScriptReference {
	out := make([]scan.ScriptReference, len(refs))
	copy(out, refs)

	concurrency := r.Concurrency
	if concurrency <= 0 {
		concurrency = consts.DefaultScriptConcurrency
	}

	var g errgroup.Group
	g.SetLimit(concurrency)

	for i, ref := range refs {
		if ref.Kind != scan.ScriptExternal {
			continue
		}
		g.Go(func() error {
			body, ok := r.retrieveOne(ctx, ref.URL)
			if ok {
				out[i] = ref.WithBody(body)
			}
			if progress != nil {
				progress(out[i], ok)
			}
			// Failures stay local to their slot so siblings keep running.
			return nil
		})
	}

	_ = g.Wait()
	return out
}

func (r *Retriever) retrieveOne(ctx context.Context, scriptURL string) (string, bool) {
	if !isFetchableURL(scriptURL) {
		return "", false
	}
	if r.Limiter != nil {
		if err := r.Limiter.Wait(ctx); err != nil {
			return "", false
		}
	}

	status, body, err := r.Client.Get(ctx, scriptURL)
	if err != nil || status != http.StatusOK {
		return "", false
	}
	return strings.ToLower(body), true
}

func isFetchableURL(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return false
	}
	return u.Scheme == "http" || u.Scheme == "https"
}
