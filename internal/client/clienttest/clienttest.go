// Package clienttest runs the DentalFlow service in-process over bufconn for
// client-side tests.
package clienttest

import (
	"context"
	"net"
	"testing"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/test/bufconn"

	"dentalflow/internal/auth"
	"dentalflow/internal/client"
	"dentalflow/internal/handler"
	"dentalflow/internal/middleware"
	"dentalflow/internal/rpc"
	"dentalflow/internal/store"
)

const Secret = "clienttest-secret"

type Server struct {
	Store *store.Memory
	conn  *grpc.ClientConn
}

// Start serves a memory-backed handler behind the production interceptor
// chain. Everything is torn down with t.
func Start(t testing.TB) *Server {
	t.Helper()
	mem := store.NewMemory()
	h := handler.New(mem, auth.NewProvider(mem, Secret))

	rl := middleware.NewRateLimiter(1000, 1000)
	t.Cleanup(rl.Close)
	srv := grpc.NewServer(grpc.ChainUnaryInterceptor(
		middleware.Observe(nil),
		middleware.RateLimit(rl),
		middleware.Auth(Secret),
	))
	rpc.RegisterDentalFlowServer(srv, h)

	lis := bufconn.Listen(1 << 20)
	go func() { _ = srv.Serve(lis) }()
	t.Cleanup(srv.Stop)

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	if err != nil {
		t.Fatalf("clienttest: dial: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })
	return &Server{Store: mem, conn: conn}
}

// Conn is shared by every Remote created from this server.
func (s *Server) Conn() grpc.ClientConnInterface { return s.conn }

// Remote returns a client with its own session. A nil store keeps the
// session in memory.
func (s *Server) Remote(t testing.TB, sessions client.SessionStore) *client.Remote {
	t.Helper()
	r, err := client.New(s.conn, sessions)
	if err != nil {
		t.Fatalf("clienttest: new remote: %v", err)
	}
	return r
}
