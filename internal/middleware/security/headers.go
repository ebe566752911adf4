package security

import (
	"fmt"
	"net/http"
	"time"
)

type HeadersConfig struct {
	CSP                   string
	FrameOptions          string
	ContentTypeOptions    string
	ReferrerPolicy        string
	CrossOriginResource   string
	CacheControl          string // ledger data must not sit in shared caches
	HSTS                  time.Duration
	HSTSIncludeSubdomains bool
}

// DefaultHeadersConfig returns the headers for a JSON-only API.
func DefaultHeadersConfig() HeadersConfig {
	return HeadersConfig{
		CSP:                   "default-src 'none'; frame-ancestors 'none'",
		FrameOptions:          "DENY",
		ContentTypeOptions:    "nosniff",
		ReferrerPolicy:        "no-referrer",
		CrossOriginResource:   "same-origin",
		CacheControl:          "no-store",
		HSTS:                  365 * 24 * time.Hour,
		HSTSIncludeSubdomains: true,
	}
}

// HeadersMiddleware sets a fixed header block on every response, adding
// Strict-Transport-Security on TLS connections.
type HeadersMiddleware struct {
	fixed http.Header
	hsts  string
}

func NewHeadersMiddleware(cfg HeadersConfig) *HeadersMiddleware {
	fixed := http.Header{}
	for key, value := range map[string]string{
		"Content-Security-Policy":      cfg.CSP,
		"X-Frame-Options":              cfg.FrameOptions,
		"X-Content-Type-Options":       cfg.ContentTypeOptions,
		"Referrer-Policy":              cfg.ReferrerPolicy,
		"Cross-Origin-Resource-Policy": cfg.CrossOriginResource,
		"Cache-Control":                cfg.CacheControl,
	} {
		if value != "" {
			fixed.Set(key, value)
		}
	}

	h := &HeadersMiddleware{fixed: fixed}
	if cfg.HSTS > 0 {
		h.hsts = fmt.Sprintf("max-age=%d", int(cfg.HSTS.Seconds()))
		if cfg.HSTSIncludeSubdomains {
			h.hsts += "; includeSubDomains"
		}
	}
	return h
}

func (h *HeadersMiddleware) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		headers := w.Header()
		for key, values := range h.fixed {
			headers.Set(key, values[0])
		}
		if r.TLS != nil && h.hsts != "" {
			headers.Set("Strict-Transport-Security", h.hsts)
		}
		next.ServeHTTP(w, r)
	})
}
