package rpc

import (
	"crypto/subtle"
	"encoding/json"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"escrowd/core/events"
	"escrowd/escrow"
	"escrowd/observability"
)

const (
	jsonRPCVersion  = "2.0"
	maxRequestBytes = 1 << 20 // 1 MiB
	authTokenEnv    = "ESCROWD_RPC_TOKEN"
)

const (
	codeParseError     = -32700
	codeInvalidRequest = -32600
	codeMethodNotFound = -32601
	codeUnauthorized   = -32001
	codeServerError    = -32000
)

// Server exposes the escrow ledger over JSON-RPC 2.0 together with a
// websocket event stream, a health probe and prometheus metrics.
type Server struct {
	engine      *escrow.Engine
	authToken   string
	broadcaster *Broadcaster
}

// NewServer wraps the engine. Mutating methods require a bearer token when
// the ESCROWD_RPC_TOKEN environment variable is set.
func NewServer(engine *escrow.Engine) *Server {
	return &Server{
		engine:      engine,
		authToken:   strings.TrimSpace(os.Getenv(authTokenEnv)),
		broadcaster: NewBroadcaster(),
	}
}

// Emitter returns the emitter that fans ledger events out to websocket
// subscribers. Callers wire it into the engine alongside other emitters.
func (s *Server) Emitter() events.Emitter { return s.broadcaster }

// Router assembles the HTTP surface of the server.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Get("/ws/events", s.handleEventsWS)
	r.Handle("/metrics", promhttp.Handler())
	r.Post("/", s.handle)
	return r
}

// Start serves the router on the supplied address and blocks.
func (s *Server) Start(addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	return srv.ListenAndServe()
}

type RPCRequest struct {
	JSONRPC string            `json:"jsonrpc"`
	Method  string            `json:"method"`
	Params  []json.RawMessage `json:"params"`
	ID      int               `json:"id"`
}

type RPCResponse struct {
	JSONRPC string      `json:"jsonrpc"`
	ID      interface{} `json:"id"`
	Result  interface{} `json:"result,omitempty"`
	Error   *RPCError   `json:"error,omitempty"`
}

type RPCError struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func (s *Server) handle(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxRequestBytes))
	if err != nil {
		writeError(w, http.StatusBadRequest, nil, codeParseError, "parse_error", err.Error())
		return
	}
	var req RPCRequest
	if err := json.Unmarshal(body, &req); err != nil {
		writeError(w, http.StatusBadRequest, nil, codeParseError, "parse_error", err.Error())
		return
	}
	if req.JSONRPC != "" && req.JSONRPC != jsonRPCVersion {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidRequest, "invalid_request", "jsonrpc must be 2.0")
		return
	}
	start := time.Now()
	rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
	s.dispatch(rec, r, &req)
	observability.RPC().Observe(req.Method, rec.status, time.Since(start))
}

func (s *Server) dispatch(w http.ResponseWriter, r *http.Request, req *RPCRequest) {
	switch req.Method {
	case "escrow_create":
		s.handleEscrowCreate(w, r, req)
	case "escrow_get":
		s.handleEscrowGet(w, r, req)
	case "escrow_userEscrows":
		s.handleUserEscrows(w, r, req)
	case "escrow_confirmDelivery":
		s.handleEscrowTransition(w, r, req, s.engine.ConfirmDelivery)
	case "escrow_confirmReceipt":
		s.handleEscrowTransition(w, r, req, s.engine.ConfirmReceipt)
	case "escrow_raiseDispute":
		s.handleEscrowTransition(w, r, req, s.engine.RaiseDispute)
	case "escrow_cancel":
		s.handleEscrowTransition(w, r, req, s.engine.Cancel)
	case "escrow_resolveDispute":
		s.handleEscrowResolve(w, r, req)
	case "escrow_withdraw":
		s.handleWithdraw(w, r, req)
	case "escrow_pendingWithdrawal":
		s.handlePendingWithdrawal(w, r, req)
	case "escrow_updatePlatformFee":
		s.handleUpdatePlatformFee(w, r, req)
	case "escrow_platformStats":
		s.handlePlatformStats(w, r, req)
	default:
		writeError(w, http.StatusNotFound, req.ID, codeMethodNotFound, "method_not_found", req.Method)
	}
}

type authError struct {
	Code    int
	Message string
	Data    interface{}
}

func (s *Server) requireAuth(r *http.Request) *authError {
	if s.authToken == "" {
		return nil
	}
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	const prefix = "Bearer "
	if !strings.HasPrefix(header, prefix) {
		return &authError{Code: codeUnauthorized, Message: "unauthorized", Data: "bearer token required"}
	}
	token := strings.TrimSpace(strings.TrimPrefix(header, prefix))
	if subtle.ConstantTimeCompare([]byte(token), []byte(s.authToken)) != 1 {
		return &authError{Code: codeUnauthorized, Message: "unauthorized", Data: "invalid token"}
	}
	return nil
}

func writeError(w http.ResponseWriter, status int, id interface{}, code int, message string, data interface{}) {
	if status <= 0 {
		status = http.StatusBadRequest
	}
	if status != http.StatusOK {
		w.WriteHeader(status)
	}
	errObj := &RPCError{Code: code, Message: message}
	if data != nil {
		errObj.Data = data
	}
	resp := RPCResponse{JSONRPC: jsonRPCVersion, ID: id, Error: errObj}
	_ = json.NewEncoder(w).Encode(resp)
}

func writeResult(w http.ResponseWriter, id interface{}, result interface{}) {
	resp := RPCResponse{JSONRPC: jsonRPCVersion, ID: id, Result: result}
	_ = json.NewEncoder(w).Encode(resp)
}
