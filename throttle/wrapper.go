package throttle

import (
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/zeptools/certgw/requests"
	"github.com/zeptools/certgw/responses"
)

// ByClientIP limits requests of each client IP with the bucket group GroupID.
// It satisfies routing.HandlerWrapper.
type ByClientIP struct {
	Store   *BucketStore[string]
	GroupID string
	Now     func() time.Time // nil -> time.Now
}

func (t ByClientIP) Wrap(inner http.Handler) http.Handler {
	now := t.Now
	if now == nil {
		now = time.Now
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ok, wait := t.Store.Take(t.GroupID, requests.GetClientIP(r), now())
		if !ok {
			secs := max(1, int(math.Ceil(wait.Seconds())))
			w.Header().Set("Retry-After", strconv.Itoa(secs))
			responses.Error(w, http.StatusTooManyRequests, "too many requests")
			return
		}
		inner.ServeHTTP(w, r)
	})
}
