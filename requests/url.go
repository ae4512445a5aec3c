package requests

import (
	"net/http"
	"net/url"
)

// FullURL rebuilds the URL the client asked for, honoring X-Forwarded-Proto behind a proxy
func FullURL(r *http.Request) string {
	u := url.URL{Scheme: "http", Host: r.Host, Path: r.URL.Path, RawPath: r.URL.RawPath, RawQuery: r.URL.RawQuery}
	switch {
	case r.TLS != nil:
		u.Scheme = "https"
	case r.Header.Get("X-Forwarded-Proto") == "https":
		u.Scheme = "https"
	}
	return u.String()
}
