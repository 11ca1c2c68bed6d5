package order

import (
	"net/url"
	"strings"
)

// ResolveRedirect returns target as an internal, rooted path. Targets that
// name a scheme or host, protocol-relative ones included, are replaced by
// fallback, as is an empty target. A fallback that is itself external
// becomes DefaultFallbackPath.
func ResolveRedirect(target, fallback string) string {
	fb := DefaultFallbackPath
	if internal(fallback) {
		fb = normalizePath(fallback)
	}
	if !internal(target) {
		return fb
	}
	return normalizePath(target)
}

func internal(target string) bool {
	t := strings.TrimSpace(target)
	if t == "" {
		return false
	}
	// Browsers read a backslash like a slash, so "/\host" is "//host".
	if strings.HasPrefix(t, "//") || strings.HasPrefix(t, `\`) || strings.HasPrefix(t, `/\`) {
		return false
	}
	u, err := url.Parse(t)
	if err != nil {
		return false
	}
	return u.Scheme == "" && u.Host == "" && u.Opaque == ""
}

func normalizePath(target string) string {
	t := strings.TrimSpace(target)
	if !strings.HasPrefix(t, "/") {
		t = "/" + t
	}
	return t
}
