// Package dns resolves the relay host, falling back to public resolvers when
// the system resolver fails (captive DNS, broken VPN split-horizon).
package dns

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"time"
)

// PublicServers are raced when the system resolver fails.
var PublicServers = []string{
	"1.1.1.1",                // Cloudflare
	"1.0.0.1",                // Cloudflare
	"[2606:4700:4700::1111]", // Cloudflare
	"8.8.8.8",                // Google
	"8.8.4.4",                // Google
	"[2001:4860:4860::8888]", // Google
	"9.9.9.9",                // Quad9
	"149.112.112.112",        // Quad9
	"208.67.222.222",         // Cisco OpenDNS
	"208.67.220.220",         // Cisco OpenDNS
}

var ErrNoAddress = errors.New("no addresses found")

// LookupFunc resolves host with one particular resolver.
type LookupFunc func(ctx context.Context, host string) ([]string, error)

// Resolver looks a host up with the system resolver first and then races
// the fallback servers.
type Resolver struct {
	LocalTimeout  time.Duration
	RemoteTimeout time.Duration

	system    LookupFunc
	fallbacks []LookupFunc
	log       *slog.Logger
}

func NewResolver() *Resolver {
	r := &Resolver{
		LocalTimeout:  1 * time.Second,
		RemoteTimeout: 2 * time.Second,
		system:        (&net.Resolver{}).LookupHost,
		log:           slog.Default(),
	}
	for _, server := range PublicServers {
		r.fallbacks = append(r.fallbacks, serverLookup(server))
	}
	return r
}

// WithLookups replaces the system and fallback lookups.
func (r *Resolver) WithLookups(system LookupFunc, fallbacks ...LookupFunc) *Resolver {
	r.system = system
	r.fallbacks = fallbacks
	return r
}

// Lookup resolves host to a single address, preferring IPv4. IP literals are
// returned unchanged.
func (r *Resolver) Lookup(ctx context.Context, host string) (string, error) {
	if ip := net.ParseIP(host); ip != nil {
		return host, nil
	}

	local, cancel := context.WithTimeout(ctx, r.LocalTimeout)
	ips, err := r.system(local, host)
	cancel()
	if ip, perr := pick(ips, err); perr == nil {
		return ip, nil
	}

	r.log.Debug("system DNS failed, racing public resolvers", "host", host, "error", err)
	return r.race(ctx, host)
}

func (r *Resolver) race(ctx context.Context, host string) (string, error) {
	if len(r.fallbacks) == 0 {
		return "", fmt.Errorf("resolve %s: %w", host, ErrNoAddress)
	}

	type result struct {
		ip  string
		err error
	}

	ctx, cancel := context.WithTimeout(ctx, r.RemoteTimeout)
	defer cancel()

	results := make(chan result, len(r.fallbacks))
	for _, lookup := range r.fallbacks {
		go func(lookup LookupFunc) {
			ip, err := pick(lookup(ctx, host))
			results <- result{ip: ip, err: err}
		}(lookup)
	}

	failures := 0
	for range r.fallbacks {
		select {
		case res := <-results:
			if res.err == nil {
				return res.ip, nil
			}
			failures++
		case <-ctx.Done():
			return "", fmt.Errorf("resolve %s: public DNS race: %w", host, ctx.Err())
		}
	}
	return "", fmt.Errorf("resolve %s: all %d public resolvers failed: %w", host, failures, ErrNoAddress)
}

// DialContext resolves the host part of addr and dials the result. It fits
// websocket.Dialer.NetDialContext.
func (r *Resolver) DialContext(ctx context.Context, network, addr string) (net.Conn, error) {
	host, port, err := net.SplitHostPort(addr)
	if err != nil {
		return nil, err
	}
	ip, err := r.Lookup(ctx, host)
	if err != nil {
		return nil, fmt.Errorf("dns lookup failed: %w", err)
	}
	var d net.Dialer
	return d.DialContext(ctx, network, net.JoinHostPort(ip, port))
}

func serverLookup(server string) LookupFunc {
	res := &net.Resolver{
		PreferGo: true,
		Dial: func(ctx context.Context, network, _ string) (net.Conn, error) {
			var d net.Dialer
			return d.DialContext(ctx, network, net.JoinHostPort(trimBrackets(server), "53"))
		},
	}
	return res.LookupHost
}

func trimBrackets(s string) string {
	if len(s) > 1 && s[0] == '[' && s[len(s)-1] == ']' {
		return s[1 : len(s)-1]
	}
	return s
}

func pick(ips []string, err error) (string, error) {
	if err != nil {
		return "", err
	}
	if len(ips) == 0 {
		return "", ErrNoAddress
	}
	for _, ip := range ips {
		if parsed := net.ParseIP(ip); parsed != nil && parsed.To4() != nil {
			return ip, nil
		}
	}
	return ips[0], nil
}
