package routing

import (
	"fmt"
	"net/http"
	"slices"
	"strings"
)

// RouteGroup registers routes on Router under a shared path prefix.
// Group wrappers run before the route's own wrappers, outermost group first.
//
//	router.Group("/api/events/{eventID}/", func(ev *RouteGroup) {
//		ev.HandleFunc("GET stats", stats)               // GET /api/events/{eventID}/stats
//		ev.Group("templates/", func(tpl *RouteGroup) {
//			tpl.HandleFunc("DELETE {index}", remove) // DELETE /api/events/{eventID}/templates/{index}
//		}, adminOnly)
//	}, rateLimit)
type RouteGroup struct {
	Router
	Prefix          string
	HandlerWrappers []HandlerWrapper
}

var _ Router = (*RouteGroup)(nil)

// fullPattern prefixes the path part of "[METHOD ]path"
func (g *RouteGroup) fullPattern(subpattern string) string {
	method, path, hasMethod := strings.Cut(subpattern, " ")
	if !hasMethod {
		method, path = "", subpattern
	}
	full := g.Prefix + path
	if strings.Contains(full, "//") {
		panic(fmt.Sprintf("routing: empty path segment in %q", full))
	}
	if method == "" {
		return full
	}
	return method + " " + full
}

func (g *RouteGroup) Handle(subpattern string, handler http.Handler, handlerWrappers ...HandlerWrapper) {
	g.Router.Handle(g.fullPattern(subpattern), Chain(Chain(handler, handlerWrappers...), g.HandlerWrappers...))
}

func (g *RouteGroup) HandleFunc(subpattern string, handleFunc func(http.ResponseWriter, *http.Request), handlerWrappers ...HandlerWrapper) {
	g.Handle(subpattern, http.HandlerFunc(handleFunc), handlerWrappers...)
}

// Group makes a subgroup. Its wrapper list is a fresh slice, so sibling groups never share wrappers.
func (g *RouteGroup) Group(subPrefix string, batch func(*RouteGroup), handlerWrappers ...HandlerWrapper) *RouteGroup {
	sub := &RouteGroup{
		Router:          g.Router,
		Prefix:          g.Prefix + subPrefix,
		HandlerWrappers: slices.Concat(g.HandlerWrappers, handlerWrappers),
	}
	batch(sub)
	return sub
}
