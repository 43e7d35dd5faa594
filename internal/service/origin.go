package service

import (
	"net/url"
	"strings"

	"golang.org/x/net/publicsuffix"
)

// OriginPolicy decides which browser origins may call the API with
// credentials and which hosts a login may redirect back to.
type OriginPolicy struct {
	domains []string
}

// NewOriginPolicy builds a policy from bare domain names such as "xnome.xyz".
// A host matches when it equals a domain or is a subdomain of one.
func NewOriginPolicy(domains []string) *OriginPolicy {
	p := &OriginPolicy{}
	for _, d := range domains {
		d = strings.Trim(strings.ToLower(strings.TrimSpace(d)), ".")
		if d != "" {
			p.domains = append(p.domains, d)
		}
	}
	return p
}

// Domains returns the normalized configured domains.
func (p *OriginPolicy) Domains() []string {
	return append([]string(nil), p.domains...)
}

// AllowsHost reports whether host (without port) is covered by the policy.
func (p *OriginPolicy) AllowsHost(host string) bool {
	host = strings.TrimSuffix(strings.ToLower(host), ".")
	if host == "" {
		return false
	}
	for _, d := range p.domains {
		if host == d || strings.HasSuffix(host, "."+d) {
			return true
		}
	}
	return false
}

// AllowsOrigin reports whether an Origin header value is allowed.
func (p *OriginPolicy) AllowsOrigin(origin string) bool {
	u, err := url.Parse(origin)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
		return false
	}
	return p.AllowsHost(u.Hostname())
}

// PublicSuffixDomains returns configured domains that are themselves public
// suffixes, where any tenant of the suffix would be trusted.
func (p *OriginPolicy) PublicSuffixDomains() []string {
	var out []string
	for _, d := range p.domains {
		if ps, _ := publicsuffix.PublicSuffix(d); ps == d {
			out = append(out, d)
		}
	}
	return out
}

// SafeReturnTo returns raw when it is an absolute http(s) URL on an allowed
// host, otherwise fallback.
func (p *OriginPolicy) SafeReturnTo(raw, fallback string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return fallback
	}
	u, err := url.Parse(raw)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.User != nil {
		return fallback
	}
	if !p.AllowsHost(u.Hostname()) {
		return fallback
	}
	return raw
}
