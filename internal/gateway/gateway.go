package gateway

import (
	"context"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	log "github.com/sirupsen/logrus"
	_ "google.golang.org/genproto/googleapis/rpc/errdetails" // detail types for protojson
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/peer"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/encoding/protojson"

	"dentalflow/internal/rpc"
)

const maxBody = 1 << 20

// Gateway serves every DentalFlow method as POST /<service>/<method> with a
// JSON body, running the same handlers and interceptor chain as gRPC.
type Gateway struct {
	srv         rpc.DentalFlowServer
	interceptor grpc.UnaryServerInterceptor
}

func New(srv rpc.DentalFlowServer, interceptor grpc.UnaryServerInterceptor) *Gateway {
	return &Gateway{srv: srv, interceptor: interceptor}
}

func (g *Gateway) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(cors)
	for _, md := range rpc.ServiceDesc.Methods {
		path := "/" + rpc.ServiceName + "/" + md.MethodName
		r.Post(path, g.method(md))
		r.Options(path, preflight)
	}
	return r
}

func cors(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if origin == "" {
			origin = "*"
		}
		w.Header().Set("Access-Control-Allow-Origin", origin)
		w.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		w.Header().Set("Access-Control-Max-Age", "86400")
		next.ServeHTTP(w, r)
	})
}

func preflight(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusNoContent)
}

func (g *Gateway) method(md grpc.MethodDesc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBody))
		if err != nil {
			writeError(w, status.Error(codes.InvalidArgument, "request body too large or unreadable"))
			return
		}
		dec := func(v any) error {
			if len(body) == 0 {
				return nil
			}
			if err := json.Unmarshal(body, v); err != nil {
				return status.Error(codes.InvalidArgument, "malformed json body")
			}
			return nil
		}

		resp, err := md.Handler(g.srv, incoming(r), dec, g.interceptor)
		if err != nil {
			writeError(w, err)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		if err := json.NewEncoder(w).Encode(resp); err != nil {
			log.WithError(err).Warn("gateway: write response")
		}
	}
}

// incoming carries the HTTP caller into the context the way a gRPC
// transport would: metadata for the bearer token, peer for rate limiting.
func incoming(r *http.Request) context.Context {
	md := metadata.MD{}
	if vals := r.Header.Values("Authorization"); len(vals) > 0 {
		md.Set("authorization", vals...)
	}
	ctx := metadata.NewIncomingContext(r.Context(), md)

	host, port, err := net.SplitHostPort(r.RemoteAddr)
	if err == nil {
		p, _ := strconv.Atoi(port)
		ctx = peer.NewContext(ctx, &peer.Peer{Addr: &net.TCPAddr{IP: net.ParseIP(host), Port: p}})
	}
	return ctx
}

func writeError(w http.ResponseWriter, err error) {
	st, ok := status.FromError(err)
	if !ok {
		log.WithError(err).Error("gateway: non-status error")
		st = status.New(codes.Internal, "internal error")
	}
	body, merr := protojson.Marshal(st.Proto())
	if merr != nil {
		body = []byte(`{"code":13,"message":"internal error"}`)
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(HTTPStatus(st.Code()))
	_, _ = w.Write(body)
}

// HTTPStatus maps a gRPC code to the closest HTTP status.
func HTTPStatus(c codes.Code) int {
	switch c {
	case codes.OK:
		return http.StatusOK
	case codes.InvalidArgument, codes.FailedPrecondition, codes.OutOfRange:
		return http.StatusBadRequest
	case codes.Unauthenticated:
		return http.StatusUnauthorized
	case codes.PermissionDenied:
		return http.StatusForbidden
	case codes.NotFound:
		return http.StatusNotFound
	case codes.AlreadyExists, codes.Aborted:
		return http.StatusConflict
	case codes.ResourceExhausted:
		return http.StatusTooManyRequests
	case codes.Canceled:
		return 499
	case codes.DeadlineExceeded:
		return http.StatusGatewayTimeout
	case codes.Unimplemented:
		return http.StatusNotImplemented
	case codes.Unavailable:
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}
