package server

import (
	"context"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"connectrpc.com/connect"

	"github.com/chazu/codel/store"
)

// ---------------------------------------------------------------------------
// Shared test infrastructure for server package tests.
// ---------------------------------------------------------------------------

// pushOutSource pushes 5, prints it and halts: light red (5 codels) to
// red is push, red to dark magenta is out-number.
const pushOutSource = "000006h\n#####hh\n"

// testEnv bundles a running server with an httptest front end.
type testEnv struct {
	Server *CodelServer
	HTTP   *httptest.Server
	Store  *store.Store
}

// newTestEnv starts a server. withStore also opens a temp-dir program
// library. Everything is shut down by t.Cleanup.
func newTestEnv(t *testing.T, withStore bool, opts ...ServerOption) *testEnv {
	t.Helper()
	env := &testEnv{}
	if withStore {
		st, err := store.Open(filepath.Join(t.TempDir(), "codel.db"))
		if err != nil {
			t.Fatalf("store.Open returned error: %v", err)
		}
		env.Store = st
		opts = append(opts, WithStore(st))
	}
	env.Server = New(opts...)
	env.HTTP = httptest.NewServer(env.Server.Handler())

	t.Cleanup(func() {
		env.HTTP.Close()
		env.Server.Stop()
		if env.Store != nil {
			env.Store.Close()
		}
	})
	return env
}

// call performs one unary request against the test server.
func call[Req, Res any](t *testing.T, env *testEnv, procedure string, msg *Req) (*Res, error) {
	t.Helper()
	client := connect.NewClient[Req, Res](
		env.HTTP.Client(),
		env.HTTP.URL+procedure,
		connect.WithCodec(jsonCodec{}),
	)
	resp, err := client.CallUnary(bg(), connect.NewRequest(msg))
	if err != nil {
		return nil, err
	}
	return resp.Msg, nil
}

// mustCall is call that fails the test on error.
func mustCall[Req, Res any](t *testing.T, env *testEnv, procedure string, msg *Req) *Res {
	t.Helper()
	res, err := call[Req, Res](t, env, procedure, msg)
	if err != nil {
		t.Fatalf("%s returned error: %v", procedure, err)
	}
	return res
}

func bg() context.Context {
	return context.Background()
}
