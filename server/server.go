package server

import (
	"context"
	"encoding/json"
	"math"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

const expiredPath = "expired"

// maxTTL is the largest TTL in seconds representable as a time.Duration.
const maxTTL = float64(math.MaxInt64) / float64(time.Second)

type Server struct {
	tracker *Tracker
	addr    string
	serv    *http.Server
	logger  *zap.Logger
}

// New function creates a new server instance with a
// specified address, serving timeouts of the given tracker.
func New(addr string, tracker *Tracker, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}

	s := &Server{
		tracker: tracker,
		addr:    addr,
		logger:  logger,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/", s.Serve)
	s.serv = &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: time.Second,
	}

	return s
}

// Run is a function that sets up the server to listen
// for specified address and handle requests.
// It blocks until the server is shut down.
func (s *Server) Run(ctx context.Context) error {
	s.serv.BaseContext = func(l net.Listener) context.Context {
		return context.WithoutCancel(ctx)
	}

	s.logger.Info("running http server", zap.String("address", s.addr))
	if err := s.serv.ListenAndServe(); err != http.ErrServerClosed {
		return errors.Wrap(err, "http server failed")
	}

	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down http server")
	return errors.Wrap(s.serv.Shutdown(ctx), "failed to shutdown http server")
}

// Serve function is a handler for incoming requests.
// It calls a proper handler function based on request method
// and writes the status code and response body to the ResponseWriter.
func (s *Server) Serve(response http.ResponseWriter, request *http.Request) {
	var result ServerResponse

	switch request.Method {
	case http.MethodGet:
		result = s.serveGet(request)
	case http.MethodPost:
		result = s.servePost(request)
	case http.MethodDelete:
		result = s.serveDelete(request)
	default:
		result = ServerResponse{Status: http.StatusMethodNotAllowed, Body: []byte("method not allowed")}
	}

	s.logger.Debug("request served",
		zap.String("method", request.Method),
		zap.String("path", request.URL.Path),
		zap.Int("status", result.Status),
	)

	response.WriteHeader(result.Status)
	if _, err := response.Write(result.Body); err != nil {
		s.logger.Warn("failed to write response body", zap.Error(err))
	}
}

// serveGet is a function that process GET /expired requests.
// It returns the keys which expired since the previous request as a JSON array.
func (s *Server) serveGet(r *http.Request) ServerResponse {
	if strings.TrimPrefix(r.URL.Path, "/") != expiredPath {
		return ServerResponse{Status: http.StatusNotFound, Body: []byte("not found")}
	}

	body, err := json.Marshal(s.tracker.Expired())
	if err != nil {
		return ServerResponse{Status: http.StatusInternalServerError, Body: []byte(err.Error())}
	}

	return ServerResponse{Status: http.StatusOK, Body: body}
}

// servePost is a function that process POST /:key requests.
// It reads the TTL from the request body and starts the timeout of `key`,
// if the key is not already pending.
// An empty key is replaced by a random UUID.
// If the key is already pending, HTTP 409 status code is returned.
// If the request body is missing or invalid, HTTP 422 status code is returned.
// TTLs beyond the range of time.Duration never expire.
// On success, the key is returned with HTTP 201 status code.
func (s *Server) servePost(req *http.Request) ServerResponse {
	key := strings.TrimPrefix(req.URL.Path, "/")
	if key == expiredPath {
		return ServerResponse{Status: http.StatusMethodNotAllowed, Body: []byte("method not allowed")}
	}
	if key == "" {
		key = uuid.NewString()
	}

	if req.Body == nil || req.Body == http.NoBody {
		return ServerResponse{Status: http.StatusUnprocessableEntity, Body: []byte("missing request body")}
	}
	defer req.Body.Close()

	var value PostRequest
	if err := json.NewDecoder(req.Body).Decode(&value); err != nil {
		return ServerResponse{Status: http.StatusUnprocessableEntity, Body: []byte(err.Error())}
	}
	if value.TTL < 0 {
		return ServerResponse{Status: http.StatusUnprocessableEntity, Body: []byte("ttl must not be negative")}
	}

	ttl := time.Duration(math.MaxInt64)
	if value.TTL < maxTTL {
		ttl = time.Duration(value.TTL * float64(time.Second))
	}
	if !s.tracker.Insert(key, ttl) {
		return ServerResponse{Status: http.StatusConflict, Body: []byte("key already pending")}
	}

	return ServerResponse{Status: http.StatusCreated, Body: []byte(key)}
}

// serveDelete is a function that process DELETE /:key requests.
// It cancels the timeout of `key` and returns HTTP 204 status code.
// If the key is not pending, HTTP 404 status code is returned.
func (s *Server) serveDelete(r *http.Request) ServerResponse {
	key := strings.TrimPrefix(r.URL.Path, "/")

	if !s.tracker.Remove(key) {
		return ServerResponse{Status: http.StatusNotFound, Body: []byte("key is not pending")}
	}

	return ServerResponse{Status: http.StatusNoContent, Body: []byte{}}
}
