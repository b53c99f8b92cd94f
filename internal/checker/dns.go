package checker

import (
	"context"
	"fmt"
	"net"
	"time"

	consts "github.com/khanhnv2901/walletscan/internal/shared/constants"
	scanerrors "github.com/khanhnv2901/walletscan/internal/shared/errors"
)

// HostResolver is the subset of net.Resolver used for liveness checks.
type HostResolver interface {
	LookupHost(ctx context.Context, host string) ([]string, error)
}

// DNSChecker performs DNS resolution checks
type DNSChecker struct {
	Timeout    time.Duration
	NameServer []string // Optional custom nameservers

	// Resolver overrides the resolver built from NameServer. Used in tests.
	Resolver HostResolver
}

// Resolve looks up the bare hostname of target and returns its addresses.
func (d *DNSChecker) Resolve(ctx context.Context, target string) ([]string, error) {
	host := ExtractHost(target)
	if host == "" {
		return nil, fmt.Errorf("%w: empty host", scanerrors.ErrDNSResolution)
	}

	timeout := d.Timeout
	if timeout <= 0 {
		timeout = consts.DefaultRequestTimeout
	}

	lookupCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	addrs, err := d.resolver(timeout).LookupHost(lookupCtx, host)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", scanerrors.ErrDNSResolution, host, err)
	}
	if len(addrs) == 0 {
		return nil, fmt.Errorf("%w: %s: no addresses found", scanerrors.ErrDNSResolution, host)
	}
	return addrs, nil
}

func (d *DNSChecker) resolver(timeout time.Duration) HostResolver {
	if d.Resolver != nil {
		return d.Resolver
	}

	resolver := &net.Resolver{
		PreferGo: true,
	}

	if len(d.NameServer) > 0 {
		dialer := &net.Dialer{
			Timeout: timeout,
		}
		resolver.Dial = func(ctx context.Context, network, address string) (net.Conn, error) {
			// Use first nameserver for now
			return dialer.DialContext(ctx, network, d.NameServer[0])
		}
	}

	return resolver
}

// Name returns the name of this checker
func (d *DNSChecker) Name() string {
	return "check dns"
}
