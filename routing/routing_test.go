package routing

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func tagWrapper(tag string) HandlerWrapper {
	return HandlerWrapperFunc(func(inner http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Add("X-Trace", tag)
			inner.ServeHTTP(w, r)
		})
	})
}

func ok(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusNoContent)
}

func serve(h http.Handler, method, target string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(method, target, nil))
	return rec
}

func TestGroupWrapperOrder(t *testing.T) {
	router := &BaseRouter{ServeMux: http.NewServeMux()}
	router.Group("/api/", func(api *RouteGroup) {
		api.Group("events/", func(events *RouteGroup) {
			events.HandleFunc("GET {eventID}/stats", ok, tagWrapper("route"))
		}, tagWrapper("events"))
	}, tagWrapper("api"))

	rec := serve(router, http.MethodGet, "/api/events/3/stats")
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, []string{"api", "events", "route"}, rec.Header().Values("X-Trace"))

	rec = serve(router, http.MethodPost, "/api/events/3/stats")
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestSiblingGroupsDoNotShareWrappers(t *testing.T) {
	router := &BaseRouter{ServeMux: http.NewServeMux()}
	parent := make([]HandlerWrapper, 1, 4)
	parent[0] = tagWrapper("root")
	router.Group("/", func(root *RouteGroup) {
		root.Group("a/", func(a *RouteGroup) { a.HandleFunc("GET x", ok) }, tagWrapper("a"))
		root.Group("b/", func(b *RouteGroup) { b.HandleFunc("GET x", ok) }, tagWrapper("b"))
	}, parent...)

	assert.Equal(t, []string{"root", "a"}, serve(router, http.MethodGet, "/a/x").Header().Values("X-Trace"))
	assert.Equal(t, []string{"root", "b"}, serve(router, http.MethodGet, "/b/x").Header().Values("X-Trace"))
}

func TestRecoverWrapper(t *testing.T) {
	h := RecoverWrapper.Wrap(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))
	rec := serve(h, http.MethodGet, "/")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), "internal server error"))
}

func TestAccessLogWrapperPassesThrough(t *testing.T) {
	h := AccessLogWrapper.Wrap(http.HandlerFunc(ok))
	assert.Equal(t, http.StatusNoContent, serve(h, http.MethodGet, "/healthz").Code)
}

func TestChainOrder(t *testing.T) {
	h := Chain(http.HandlerFunc(ok), tagWrapper("outer"), tagWrapper("inner"))
	assert.Equal(t, []string{"outer", "inner"}, serve(h, http.MethodGet, "/").Header().Values("X-Trace"))
}

func TestGroupRejectsEmptySegment(t *testing.T) {
	router := NewBaseRouter()
	assert.Panics(t, func() {
		router.Group("/api/", func(g *RouteGroup) { g.HandleFunc("GET /stats", ok) })
	})
}
