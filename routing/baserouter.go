package routing

import "net/http"

// Router is the registration surface shared by BaseRouter and RouteGroup
type Router interface {
	http.Handler
	Handle(pattern string, handler http.Handler, handlerWrappers ...HandlerWrapper)
	HandleFunc(pattern string, handleFunc func(http.ResponseWriter, *http.Request), handlerWrappers ...HandlerWrapper)
}

// BaseRouter is a ServeMux accepting per-route wrappers and route groups
type BaseRouter struct {
	*http.ServeMux
}

var _ Router = (*BaseRouter)(nil)

func NewBaseRouter() *BaseRouter {
	return &BaseRouter{ServeMux: http.NewServeMux()}
}

func (r *BaseRouter) Handle(pattern string, handler http.Handler, handlerWrappers ...HandlerWrapper) {
	r.ServeMux.Handle(pattern, Chain(handler, handlerWrappers...))
}

func (r *BaseRouter) HandleFunc(pattern string, handleFunc func(http.ResponseWriter, *http.Request), handlerWrappers ...HandlerWrapper) {
	r.Handle(pattern, http.HandlerFunc(handleFunc), handlerWrappers...)
}

// Group registers the routes added by batch under prefix, each wrapped by handlerWrappers
func (r *BaseRouter) Group(prefix string, batch func(*RouteGroup), handlerWrappers ...HandlerWrapper) *RouteGroup {
	g := &RouteGroup{Router: r, Prefix: prefix, HandlerWrappers: handlerWrappers}
	batch(g)
	return g
}
