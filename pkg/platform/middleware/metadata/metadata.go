package metadata

import (
	"net"
	"net/http"
	"net/netip"
	"strings"

	"escuela/pkg/requestcontext"
)

// Resolver derives the client IP of a request. Forwarding headers are only
// honored when the direct peer is one of the trusted proxies; otherwise any
// client could pick its own address.
type Resolver struct {
	trusted []netip.Prefix
}

// NewResolver builds a Resolver trusting the given proxy networks. With no
// prefixes the peer address is always used.
func NewResolver(trusted []netip.Prefix) *Resolver {
	return &Resolver{trusted: trusted}
}

// ClientMetadata extracts client IP address and User-Agent from the request
// and stores them in the request context. Apply early in the chain; the
// login lockout keys on the IP.
func (res *Resolver) ClientMetadata(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := requestcontext.WithClientMetadata(r.Context(), res.ClientIP(r), r.Header.Get("User-Agent"))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// ClientIP returns the peer address, or when the peer is a trusted proxy the
// right-most X-Forwarded-For entry that is not itself a trusted proxy.
func (res *Resolver) ClientIP(r *http.Request) string {
	peer := remoteHost(r.RemoteAddr)
	if !res.isTrusted(peer) {
		return peer
	}

	// X-Forwarded-For: client, proxy1, proxy2
	if xff := r.Header.Values("X-Forwarded-For"); len(xff) > 0 {
		hops := strings.Split(strings.Join(xff, ","), ",")
		for i := len(hops) - 1; i >= 0; i-- {
			hop := strings.TrimSpace(hops[i])
			if hop == "" {
				continue
			}
			if !res.isTrusted(hop) {
				return hop
			}
		}
		if first := strings.TrimSpace(hops[0]); first != "" {
			return first
		}
	}

	if xri := strings.TrimSpace(r.Header.Get("X-Real-IP")); xri != "" {
		return xri
	}
	return peer
}

func (res *Resolver) isTrusted(ip string) bool {
	if len(res.trusted) == 0 {
		return false
	}
	addr, err := netip.ParseAddr(ip)
	if err != nil {
		return false
	}
	addr = addr.Unmap()
	for _, p := range res.trusted {
		if p.Contains(addr) {
			return true
		}
	}
	return false
}

func remoteHost(remoteAddr string) string {
	if host, _, err := net.SplitHostPort(remoteAddr); err == nil {
		return host
	}
	return remoteAddr
}

// ParseTrustedProxies turns addresses or CIDR ranges into prefixes. A bare
// address becomes a single-host prefix.
func ParseTrustedProxies(values []string) ([]netip.Prefix, error) {
	var prefixes []netip.Prefix
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		if strings.Contains(v, "/") {
			p, err := netip.ParsePrefix(v)
			if err != nil {
				return nil, err
			}
			prefixes = append(prefixes, p.Masked())
			continue
		}
		addr, err := netip.ParseAddr(v)
		if err != nil {
			return nil, err
		}
		addr = addr.Unmap()
		prefixes = append(prefixes, netip.PrefixFrom(addr, addr.BitLen()))
	}
	return prefixes, nil
}
