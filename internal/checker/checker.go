package checker

import (
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	consts "github.com/khanhnv2901/walletscan/internal/shared/constants"
)

// Options configures the network stages of a scan.
type Options struct {
	Timeout     time.Duration // Per-call timeout for DNS, HEAD and GET
	UserAgent   string
	Nameservers []string // Optional custom nameservers (host:port)
	Concurrency int      // Maximum number of concurrent script downloads
	RateLimit   int      // Script requests per second (0 = unlimited)
	Logger      *zap.Logger
}

// Stages bundles the liveness checker, fetcher and retriever that share one
// HTTP client.
type Stages struct {
	Liveness  *LivenessChecker
	Fetcher   *Fetcher
	Retriever *Retriever
}

// NewStages wires the network stages from opts.
func NewStages(opts Options) *Stages {
	if opts.Timeout <= 0 {
		opts.Timeout = consts.DefaultRequestTimeout
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = consts.DefaultScriptConcurrency
	}

	client := NewHTTPClient(HTTPClientOptions{
		Timeout:   opts.Timeout,
		UserAgent: opts.UserAgent,
		Logger:    opts.Logger,
	})

	var limiter *rate.Limiter
	if opts.RateLimit > 0 {
		limiter = rate.NewLimiter(rate.Limit(opts.RateLimit), opts.RateLimit)
	}

	return &Stages{
		Liveness: &LivenessChecker{
			DNS: &DNSChecker{
				Timeout:    opts.Timeout,
				NameServer: opts.Nameservers,
			},
			Prober: client,
		},
		Fetcher: &Fetcher{Client: client},
		Retriever: &Retriever{
			Client:      client,
			Concurrency: opts.Concurrency,
			Limiter:     limiter,
		},
	}
}
