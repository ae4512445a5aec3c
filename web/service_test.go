package web

import (
	"context"
	"io"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestServiceServesAndStops(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, "ok")
	})
	s := NewService(context.Background(), "127.0.0.1:0", mux, time.Second)
	require.NoError(t, s.Start())
	assert.Error(t, s.Start())

	res, err := http.Get("http://" + s.Addr() + "/healthz")
	require.NoError(t, err)
	body, _ := io.ReadAll(res.Body)
	_ = res.Body.Close()
	assert.Equal(t, "ok", string(body))

	s.Stop()
	select {
	case err := <-s.Done():
		assert.NoError(t, err)
	case <-time.After(3 * time.Second):
		t.Fatal("web service did not stop")
	}
}

func TestServiceStopsWithParent(t *testing.T) {
	parent, cancel := context.WithCancel(context.Background())
	s := NewService(parent, "127.0.0.1:0", http.NotFoundHandler(), time.Second)
	require.NoError(t, s.Start())
	cancel()
	select {
	case err := <-s.Done():
		assert.NoError(t, err)
	case <-time.After(3 * time.Second):
		t.Fatal("web service did not stop")
	}
}
