// Package rpc serves the scan task API as line-delimited JSON-RPC 2.0 over
// TCP. One request object per line; responses go back on the same
// connection in arrival order. Each connection gets its own goroutine and
// handles its requests sequentially; the engine is never awaited inside a
// handler — handlers poll task handles and return immediately.
package rpc

import (
	"bufio"
	"encoding/json"
	"net"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/yorha59/surf/internal/task"
)

// Methods served by the dispatcher.
const (
	methodScan       = "Surf.Scan"
	methodStatus     = "Surf.Status"
	methodGetResults = "Surf.GetResults"
	methodCancel     = "Surf.Cancel"
)

// maxLineBytes bounds a single request line.
const maxLineBytes = 1 << 20

// Server dispatches JSON-RPC requests to the task manager and scan engine.
type Server struct {
	mgr *task.Manager
	log *zap.Logger

	mu sync.Mutex
	ln net.Listener
}

// NewServer creates a dispatcher around the given task manager.
func NewServer(mgr *task.Manager, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{mgr: mgr, log: logger}
}

// ListenAndServe binds addr and serves until the listener is closed.
func (s *Server) ListenAndServe(addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	return s.Serve(ln)
}

// Serve accepts connections on ln until it is closed. Terminal tasks past
// their TTL are swept opportunistically on each accept.
func (s *Server) Serve(ln net.Listener) error {
	s.mu.Lock()
	s.ln = ln
	s.mu.Unlock()

	s.log.Info("listening", zap.String("addr", ln.Addr().String()))
	for {
		conn, err := ln.Accept()
		if err != nil {
			if isClosedErr(err) {
				return nil
			}
			return err
		}
		s.mgr.Sweep(timeNow())
		go s.handleConn(conn)
	}
}

// Close shuts the listener down; in-flight connections finish on their own.
func (s *Server) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ln == nil {
		return nil
	}
	return s.ln.Close()
}

// Addr returns the bound listener address, or "" before Serve.
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ln == nil {
		return ""
	}
	return s.ln.Addr().String()
}

func isClosedErr(err error) bool {
	return strings.Contains(err.Error(), "use of closed network connection")
}

// handleConn processes one connection sequentially, preserving request
// order, and closes the connection when the peer stops sending.
func (s *Server) handleConn(conn net.Conn) {
	defer func() { _ = conn.Close() }()
	remote := conn.RemoteAddr().String()
	s.log.Debug("connection opened", zap.String("remote", remote))

	scan := bufio.NewScanner(conn)
	scan.Buffer(make([]byte, 0, 4096), maxLineBytes)
	for scan.Scan() {
		resp, ok := s.HandleLine(scan.Text())
		if !ok {
			continue
		}
		if _, err := conn.Write(append([]byte(resp), '\n')); err != nil {
			s.log.Warn("write failed", zap.String("remote", remote), zap.Error(err))
			return
		}
	}
	s.log.Debug("connection closed", zap.String("remote", remote))
}

// HandleLine runs the validation pipeline on one request line and returns
// the response. The second return is false for lines that get no response
// (empty or whitespace-only input).
func (s *Server) HandleLine(line string) (string, bool) {
	line = strings.TrimSpace(line)
	if line == "" {
		return "", false
	}

	if !json.Valid([]byte(line)) {
		return errorLine(codeParseError, "malformed JSON", nullID), true
	}

	var req request
	if err := json.Unmarshal([]byte(line), &req); err != nil {
		// Valid JSON that is not a request object.
		return errorLine(codeInvalidRequest, "request must be a JSON object", extractID(line)), true
	}
	if req.Jsonrpc != "2.0" {
		return errorLine(codeInvalidRequest, `jsonrpc must be "2.0"`, req.ID), true
	}

	switch req.Method {
	case methodScan, methodStatus, methodGetResults, methodCancel:
	default:
		return errorLine(codeMethodNotFound, "unknown method: "+req.Method, req.ID), true
	}

	if !objectParams(req.Params) {
		return errorLine(codeInvalidParams, "params must be a JSON object for method "+req.Method, req.ID), true
	}

	var resp string
	switch req.Method {
	case methodScan:
		resp = s.handleScan(req.Params, req.ID)
	case methodStatus:
		resp = s.handleStatus(req.Params, req.ID)
	case methodGetResults:
		resp = s.handleGetResults(req.Params, req.ID)
	case methodCancel:
		resp = s.handleCancel(req.Params, req.ID)
	}
	return resp, true
}

// extractID pulls the id field out of a line that failed structural
// decoding, so the error can still echo it when possible.
func extractID(line string) json.RawMessage {
	var probe struct {
		ID json.RawMessage `json:"id"`
	}
	if err := json.Unmarshal([]byte(line), &probe); err != nil || len(probe.ID) == 0 {
		return nullID
	}
	return probe.ID
}
