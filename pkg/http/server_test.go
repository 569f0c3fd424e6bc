package http

import (
	"context"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewServerRejectsBadBindAddress(t *testing.T) {
	for _, addr := range []string{"", "300.0.0.1:0", "127.0.0.1:999999"} {
		_, err := NewServer(Opts{
			Handler:     http.NotFoundHandler(),
			BindAddress: addr,
		})
		assert.Error(t, err, "bind address %q", addr)
	}
}

func TestServerServesAndShutsDown(t *testing.T) {
	srv, err := NewServer(Opts{
		Handler: http.HandlerFunc(func(rw http.ResponseWriter, req *http.Request) {
			rw.WriteHeader(http.StatusTeapot)
		}),
		BindAddress: "127.0.0.1:0",
	})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- srv.Start(ctx)
	}()

	addr := srv.(*server).Addr()
	resp, err := http.Get(fmt.Sprintf("http://%s/", addr))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusTeapot, resp.StatusCode)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down")
	}
}

func TestServerGroupStopsTogether(t *testing.T) {
	newTestServer := func() Server {
		srv, err := NewServer(Opts{
			Handler:     http.NotFoundHandler(),
			BindAddress: "127.0.0.1:0",
		})
		require.NoError(t, err)
		return srv
	}

	group := NewServerGroup(newTestServer(), newTestServer())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- group.Start(ctx)
	}()

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server group did not shut down")
	}
}

func TestGetNetworkScheme(t *testing.T) {
	assert.Equal(t, "tcp", getNetworkScheme(":4180"))
	assert.Equal(t, "tcp", getNetworkScheme("http://127.0.0.1:4180"))
	assert.Equal(t, "unix", getNetworkScheme("unix:///var/run/authgate.sock"))
}

func TestGetListenAddress(t *testing.T) {
	assert.Equal(t, ":4180", getListenAddress(":4180"))
	assert.Equal(t, "127.0.0.1:4180", getListenAddress("http://127.0.0.1:4180"))
	assert.Equal(t, "/var/run/authgate.sock", getListenAddress("unix:///var/run/authgate.sock"))
}
