package http

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http/httptest"
	"testing"

	"github.com/ValentinKolb/tKV/rpc/common"
)

// echoServer answers every request with the shard id followed by the request body
func echoServer(t *testing.T) *httptest.Server {
	t.Helper()
	st := NewHttpServerTransport()
	st.RegisterHandler(func(shardId uint64, req []byte) []byte {
		return append([]byte(fmt.Sprintf("%d:", shardId)), req...)
	})
	ts := httptest.NewServer(st.Handler())
	t.Cleanup(ts.Close)
	return ts
}

func connect(t *testing.T, endpoints ...string) *httpClientTransport {
	t.Helper()
	c := NewHttpClientTransport().(*httpClientTransport)
	if err := c.Connect(common.ClientConfig{Endpoints: endpoints, TimeoutSecond: 5, RetryCount: 2}); err != nil {
		t.Fatalf("Connect failed: %v", err)
	}
	return c
}

func TestSendRoutesToShard(t *testing.T) {
	ts := echoServer(t)
	c := connect(t, ts.URL)
	defer c.Close()

	resp, err := c.Send(context.Background(), 7, []byte("req"))
	if err != nil {
		t.Fatalf("Send failed: %v", err)
	}
	if !bytes.Equal(resp, []byte("7:req")) {
		t.Errorf("Expected 7:req, got %q", resp)
	}
}

func TestSendStopsOnDoneContext(t *testing.T) {
	ts := echoServer(t)
	c := connect(t, ts.URL)
	defer c.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := c.Send(ctx, 1, []byte("req")); !errors.Is(err, context.Canceled) {
		t.Errorf("Expected context.Canceled, got %v", err)
	}
}

func TestSendRetriesNextEndpoint(t *testing.T) {
	ts := echoServer(t)
	down := httptest.NewServer(nil)
	down.Close()

	c := connect(t, down.URL, ts.URL)
	defer c.Close()

	// with two attempts one of them always reaches the running server
	for i := 0; i < 4; i++ {
		if _, err := c.Send(context.Background(), 1, []byte("req")); err != nil {
			t.Errorf("Send %d failed: %v", i, err)
		}
	}
}

func TestSendAfterClose(t *testing.T) {
	ts := echoServer(t)
	c := connect(t, ts.URL)
	if err := c.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if _, err := c.Send(context.Background(), 1, []byte("req")); err == nil {
		t.Errorf("Expected Send to fail after Close")
	}
}

func TestConnectWithoutEndpoints(t *testing.T) {
	if err := NewHttpClientTransport().Connect(common.ClientConfig{}); err == nil {
		t.Errorf("Expected an error without endpoints")
	}
}
