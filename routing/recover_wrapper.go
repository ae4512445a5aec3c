package routing

import (
	"errors"
	"log"
	"net/http"
	"runtime/debug"

	"github.com/zeptools/certgw/responses"
)

// RecoverWrapper answers 500 for a panicking handler. http.ErrAbortHandler passes through
var RecoverWrapper HandlerWrapper = HandlerWrapperFunc(recoverPanics)

func recoverPanics(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			v := recover()
			if v == nil {
				return
			}
			if err, ok := v.(error); ok && errors.Is(err, http.ErrAbortHandler) {
				panic(v)
			}
			log.Printf("[PANIC][HTTP] %s %s: %v\n%s", r.Method, r.URL.Path, v, debug.Stack())
			responses.Error(w, http.StatusInternalServerError, "internal server error")
		}()
		next.ServeHTTP(w, r)
	})
}
