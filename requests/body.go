package requests

import (
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/go-json-experiment/json"
)

var (
	ErrBodyTooLarge = errors.New("request body too large")
	ErrNoBody       = errors.New("request method carries no body")
)

// HasBody reports whether the method of r may carry a body
func HasBody(r *http.Request) bool {
	return r.Method != http.MethodGet && r.Method != http.MethodHead && r.Method != http.MethodOptions
}

// DecodeJSONBody decodes the whole body of r into dst, reading at most limit bytes
func DecodeJSONBody(w http.ResponseWriter, r *http.Request, dst any, limit int64) error {
	if !HasBody(r) || r.Body == nil {
		return ErrNoBody
	}
	body := http.MaxBytesReader(w, r.Body, limit)
	defer func() { _ = body.Close() }()
	data, err := io.ReadAll(body)
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return ErrBodyTooLarge
		}
		return err
	}
	if err = json.Unmarshal(data, dst); err != nil {
		return fmt.Errorf("invalid JSON body: %w", err)
	}
	return nil
}
