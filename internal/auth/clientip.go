// Govportal - Government Information Portal and Content Management
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/govportal

package auth

import (
	"fmt"
	"net"
	"net/http"
	"net/netip"
	"strings"
)

// ClientIPResolver extracts the client address from a request.
//
// Forwarding headers are honoured only when the direct peer is a trusted
// proxy; otherwise any client could pick its own rate limit key. Behind a
// trusted proxy the X-Forwarded-For chain is read right to left, skipping
// trusted hops, so a client prepending forged entries still resolves to the
// address the outermost trusted proxy saw.
type ClientIPResolver struct {
	trusted []netip.Prefix
}

// NewClientIPResolver parses trusted proxies given as addresses or CIDRs.
func NewClientIPResolver(trustedProxies []string) (*ClientIPResolver, error) {
	r := &ClientIPResolver{}
	for _, entry := range trustedProxies {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		if strings.Contains(entry, "/") {
			p, err := netip.ParsePrefix(entry)
			if err != nil {
				return nil, fmt.Errorf("invalid trusted proxy %q: %w", entry, err)
			}
			r.trusted = append(r.trusted, p.Masked())
			continue
		}
		addr, err := netip.ParseAddr(entry)
		if err != nil {
			return nil, fmt.Errorf("invalid trusted proxy %q: %w", entry, err)
		}
		addr = addr.Unmap()
		r.trusted = append(r.trusted, netip.PrefixFrom(addr, addr.BitLen()))
	}
	return r, nil
}

// Resolve returns the client IP for r, or UnknownIP.
func (c *ClientIPResolver) Resolve(r *http.Request) string {
	remote, ok := parseHostAddr(r.RemoteAddr)
	if !ok {
		return UnknownIP
	}
	if !c.isTrusted(remote) {
		return remote.String()
	}

	if addr, ok := c.fromForwardedFor(r.Header.Values("X-Forwarded-For")); ok {
		if !addr.IsValid() {
			return remote.String()
		}
		return addr.String()
	}
	if xri := strings.TrimSpace(r.Header.Get("X-Real-IP")); xri != "" {
		if addr, err := netip.ParseAddr(xri); err == nil {
			return addr.Unmap().String()
		}
	}
	return remote.String()
}

// Middleware stores the resolved address in the request context.
func (c *ClientIPResolver) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip := c.Resolve(r)
		next.ServeHTTP(w, r.WithContext(WithClientIP(r.Context(), ip)))
	})
}

// fromForwardedFor walks the X-Forwarded-For chain from the nearest hop
// outwards and returns the first address that is not a trusted proxy.
// Entries left of that address were written by the client and are ignored.
// ok is false when the header is absent or the walk hits an unparsable
// entry. A chain made only of trusted proxies returns ok with the zero Addr.
func (c *ClientIPResolver) fromForwardedFor(headers []string) (netip.Addr, bool) {
	var hops []string
	for _, h := range headers {
		hops = append(hops, strings.Split(h, ",")...)
	}
	if len(hops) == 0 {
		return netip.Addr{}, false
	}

	for i := len(hops) - 1; i >= 0; i-- {
		addr, err := netip.ParseAddr(strings.TrimSpace(hops[i]))
		if err != nil {
			return netip.Addr{}, false
		}
		addr = addr.Unmap()
		if !c.isTrusted(addr) {
			return addr, true
		}
	}
	return netip.Addr{}, true
}

func (c *ClientIPResolver) isTrusted(addr netip.Addr) bool {
	for _, p := range c.trusted {
		if p.Contains(addr) {
			return true
		}
	}
	return false
}

func parseHostAddr(remoteAddr string) (netip.Addr, bool) {
	host := remoteAddr
	if h, _, err := net.SplitHostPort(remoteAddr); err == nil {
		host = h
	}
	addr, err := netip.ParseAddr(host)
	if err != nil {
		return netip.Addr{}, false
	}
	return addr.Unmap(), true
}
