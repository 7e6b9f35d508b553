package main

import (
	"context"
	"io"
	"net"
	"net/http"
	"testing"
	"time"

	"camrelay/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestServeWaitsForInFlightRequests(t *testing.T) {
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	entered := make(chan struct{})
	release := make(chan struct{})
	server := &http.Server{Handler: http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		close(entered)
		<-release
		w.WriteHeader(http.StatusNoContent)
	})}

	ctx, cancel := context.WithCancel(context.Background())
	served := make(chan error, 1)
	go func() {
		served <- serve(ctx, server, listener, 5*time.Second, logger.New(io.Discard))
	}()

	responded := make(chan int, 1)
	go func() {
		resp, err := http.Get("http://" + listener.Addr().String())
		if err != nil {
			responded <- 0
			return
		}
		resp.Body.Close()
		responded <- resp.StatusCode
	}()

	<-entered
	cancel()

	select {
	case <-served:
		t.Fatal("serve returned while a request was still in flight")
	case <-time.After(50 * time.Millisecond):
	}

	close(release)
	assert.Equal(t, http.StatusNoContent, <-responded)

	select {
	case err := <-served:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("serve did not return after the request drained")
	}
}

func TestServeReportsListenerFailure(t *testing.T) {
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	listener.Close()

	err = serve(context.Background(), &http.Server{}, listener, time.Second, logger.New(io.Discard))
	assert.Error(t, err)
}
