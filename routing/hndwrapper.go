package routing

import "net/http"

// HandlerWrapper is a middleware: Wrap returns a handler running its own logic around inner
type HandlerWrapper interface {
	Wrap(inner http.Handler) http.Handler
}

// HandlerWrapperFunc adapts a plain middleware func to HandlerWrapper
type HandlerWrapperFunc func(http.Handler) http.Handler

func (f HandlerWrapperFunc) Wrap(inner http.Handler) http.Handler {
	return f(inner)
}

// Chain wraps h so that wrappers[0] runs first and h runs last
func Chain(h http.Handler, wrappers ...HandlerWrapper) http.Handler {
	for i := len(wrappers) - 1; i >= 0; i-- {
		h = wrappers[i].Wrap(h)
	}
	return h
}
