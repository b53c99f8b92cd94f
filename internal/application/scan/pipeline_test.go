package scan

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"reflect"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/zap/zaptest"

	"github.com/khanhnv2901/walletscan/internal/checker"
	model "github.com/khanhnv2901/walletscan/internal/domain/scan"
	scanerrors "github.com/khanhnv2901/walletscan/internal/shared/errors"
)

func newTestPipeline(t *testing.T) *Pipeline {
	t.Helper()
	stages := checker.NewStages(checker.Options{Timeout: 2 * time.Second})
	return NewPipeline(stages.Liveness, stages.Fetcher, stages.Retriever, nil, nil, zaptest.NewLogger(t))
}

// newSite serves page at "/" and the given scripts; HEAD always succeeds.
func newSite(t *testing.T, page string, scripts map[string]string) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodHead {
			w.WriteHeader(http.StatusOK)
			return
		}
		if r.URL.Path == "/" {
			w.Header().Set("Content-Type", "text/html")
			fmt.Fprint(w, page)
			return
		}
		body, ok := scripts[r.URL.Path]
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.Header().Set("Content-Type", "application/javascript")
		fmt.Fprint(w, body)
	}))
	t.Cleanup(server.Close)
	return server
}

func TestPipeline_NoScripts(t *testing.T) {
	site := newSite(t, "<html><body><h1>Welcome</h1></body></html>", nil)

	result, err := newTestPipeline(t).Run(context.Background(), site.URL)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(result.Matches) != 0 || result.Score != 0 || result.Percentage != 0 {
		t.Fatalf("expected empty result, got %+v", result)
	}
	if result.Tier != model.TierSafe {
		t.Fatalf("expected SAFE, got %s", result.Tier)
	}
	if len(result.Reasons) != 0 {
		t.Fatalf("expected no reasons, got %v", result.Reasons)
	}
}

func TestPipeline_InlineWalletConnect(t *testing.T) {
	site := newSite(t, `<html><script>window.ethereum.request({})</script></html>`, nil)

	result, err := newTestPipeline(t).Run(context.Background(), site.URL)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(result.Matches) != 1 || result.Matches[0].Pattern != "window.ethereum" {
		t.Fatalf("expected single window.ethereum match, got %+v", result.Matches)
	}
	if result.Score != 5 || result.Tier != model.TierSuspicious || result.Percentage != 25 {
		t.Fatalf("unexpected assessment %+v", result.Assessment)
	}
	if result.Reasons[0] != "Inline Script #1: Suspicious pattern 'window.ethereum' detected" {
		t.Fatalf("unexpected reason %q", result.Reasons[0])
	}
}

func TestPipeline_TwoDrainerScripts(t *testing.T) {
	drainer := "token.approve(spender, amount); token.transferFrom(victim, attacker, amount);"
	site := newSite(t,
		`<html><head><script src="/a.js"></script><script src="/b.js"></script></head></html>`,
		map[string]string{"/a.js": drainer, "/b.js": drainer},
	)

	result, err := newTestPipeline(t).Run(context.Background(), site.URL)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(result.Matches) != 4 {
		t.Fatalf("expected 4 matches, got %d: %+v", len(result.Matches), result.Matches)
	}
	if result.Score != 20 || result.Tier != model.TierScam || result.Percentage != 100 {
		t.Fatalf("unexpected assessment %+v", result.Assessment)
	}
	if result.Label != "High Risk" {
		t.Fatalf("expected High Risk label, got %s", result.Label)
	}
	if result.ExternalScripts != 2 || result.FetchedScripts != 2 {
		t.Fatalf("unexpected script counters %+v", result)
	}
}

func TestPipeline_MissingExternalScript(t *testing.T) {
	site := newSite(t,
		`<html><script src="/missing.js"></script><script>approve()</script></html>`,
		nil,
	)

	result, err := newTestPipeline(t).Run(context.Background(), site.URL)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []string{
		"Inline Script #2: Suspicious pattern 'approve' detected",
		"Could not fetch external script: " + site.URL + "/missing.js",
	}
	if !reflect.DeepEqual(result.Reasons, want) {
		t.Fatalf("reasons = %v, want %v", result.Reasons, want)
	}
	if result.Score != 5 {
		t.Fatalf("expected score from the inline script only, got %d", result.Score)
	}
	if result.FailedScripts != 1 {
		t.Fatalf("expected 1 failed script, got %d", result.FailedScripts)
	}
}

func TestPipeline_RootDocumentError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodHead {
			w.WriteHeader(http.StatusOK)
			return
		}
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	result, err := newTestPipeline(t).Run(context.Background(), server.URL)
	if err != nil {
		t.Fatalf("root fetch errors must not abort the scan, got %v", err)
	}
	if result.Score != 0 || result.Tier != model.TierSafe {
		t.Fatalf("expected zero-score result, got %+v", result.Assessment)
	}
	if len(result.Reasons) != 1 || result.Reasons[0] != "Website returned status code 500" {
		t.Fatalf("unexpected reasons %v", result.Reasons)
	}
}

type countingFetcher struct {
	calls int32
	doc   *checker.Document
}

func (f *countingFetcher) Fetch(ctx context.Context, target string) (*checker.Document, string, error) {
	atomic.AddInt32(&f.calls, 1)
	if f.doc == nil {
		return &checker.Document{URL: target, Status: http.StatusOK}, "", nil
	}
	return f.doc, "", nil
}

type failingResolver struct{}

func (failingResolver) LookupHost(ctx context.Context, host string) ([]string, error) {
	return nil, errors.New("no such host")
}

type countingLiveness struct {
	calls int32
}

func (l *countingLiveness) Check(ctx context.Context, target string) error {
	atomic.AddInt32(&l.calls, 1)
	return nil
}

func TestPipeline_UnresolvableDomain(t *testing.T) {
	fetcher := &countingFetcher{}
	liveness := &checker.LivenessChecker{
		DNS:    &checker.DNSChecker{Resolver: failingResolver{}},
		Prober: checker.NewHTTPClient(checker.HTTPClientOptions{}),
	}
	pipeline := NewPipeline(liveness, fetcher, &checker.Retriever{}, nil, nil, zaptest.NewLogger(t))

	result, err := pipeline.Run(context.Background(), "does-not-exist.example")
	if !errors.Is(err, scanerrors.ErrTargetInactive) {
		t.Fatalf("expected ErrTargetInactive, got %v", err)
	}
	if result != nil {
		t.Fatalf("expected no result, got %+v", result)
	}
	if atomic.LoadInt32(&fetcher.calls) != 0 {
		t.Fatal("fetcher must not run for an inactive domain")
	}
}

func TestPipeline_InvalidInput(t *testing.T) {
	liveness := &countingLiveness{}
	fetcher := &countingFetcher{}
	pipeline := NewPipeline(liveness, fetcher, &checker.Retriever{}, nil, nil, nil)

	_, err := pipeline.Run(context.Background(), "not a domain")
	if !errors.Is(err, scanerrors.ErrInvalidTarget) {
		t.Fatalf("expected ErrInvalidTarget, got %v", err)
	}
	if liveness.calls != 0 || fetcher.calls != 0 {
		t.Fatal("no network stage may run for invalid input")
	}
}

func TestPipeline_Idempotent(t *testing.T) {
	site := newSite(t,
		`<html><script src="/a.js"></script><script src="/b.js"></script><script src="/c.js"></script><script>sign()</script></html>`,
		map[string]string{"/a.js": "privateKey", "/c.js": "seedPhrase; eth_sendTransaction"},
	)
	pipeline := newTestPipeline(t)

	first, err := pipeline.Run(context.Background(), site.URL)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	second, err := pipeline.Run(context.Background(), site.URL)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !reflect.DeepEqual(first, second) {
		t.Fatalf("expected identical results:\n%+v\n%+v", first, second)
	}
	if first.Score != 5*len(first.Matches) {
		t.Fatalf("score %d does not match %d matches", first.Score, len(first.Matches))
	}
	if len(first.Matches) != 4 {
		t.Fatalf("expected 4 matches, got %+v", first.Matches)
	}
}

func TestPipeline_Hooks(t *testing.T) {
	site := newSite(t,
		`<html><script src="/a.js"></script><script src="/b.js"></script><script>x()</script></html>`,
		map[string]string{"/a.js": "ok"},
	)

	var inlineSeen, externalSeen int
	var settled, failed int32
	_, err := newTestPipeline(t).RunWithHooks(context.Background(), site.URL, Hooks{
		OnScripts: func(inline, external int) {
			inlineSeen, externalSeen = inline, external
		},
		OnScript: func(ref model.ScriptReference, ok bool) {
			atomic.AddInt32(&settled, 1)
			if !ok {
				atomic.AddInt32(&failed, 1)
			}
		},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if inlineSeen != 1 || externalSeen != 2 {
		t.Fatalf("expected 1 inline and 2 external, got %d/%d", inlineSeen, externalSeen)
	}
	if settled != 2 || failed != 1 {
		t.Fatalf("expected 2 settled (1 failed), got %d (%d failed)", settled, failed)
	}
}

type panickingFetcher struct{}

func (panickingFetcher) Fetch(ctx context.Context, target string) (*checker.Document, string, error) {
	panic("boom")
}

func TestPipeline_RecoversPanics(t *testing.T) {
	pipeline := NewPipeline(&countingLiveness{}, panickingFetcher{}, &checker.Retriever{}, nil, nil, zaptest.NewLogger(t))

	result, err := pipeline.Run(context.Background(), "example.com")
	if !errors.Is(err, scanerrors.ErrUnexpected) {
		t.Fatalf("expected ErrUnexpected, got %v", err)
	}
	if result != nil {
		t.Fatalf("expected nil result, got %+v", result)
	}
}
