package server

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/ironsheep/document-rectify-mcp/internal/config"
	"github.com/ironsheep/document-rectify-mcp/internal/imaging"
	"github.com/ironsheep/document-rectify-mcp/internal/logging"
	"github.com/ironsheep/document-rectify-mcp/internal/pipeline"
)

// ServerName and ServerVersion are reported during initialize.
const (
	ServerName    = "document-rectify-mcp"
	ServerVersion = "0.1.0"
)

// JSON-RPC error codes.
const (
	codeMethodNotFound = -32601
	codeInvalidParams  = -32602
	codeToolFailed     = -32000
)

// Server handles MCP protocol communication
type Server struct {
	cfg   *config.Config
	cache *imaging.ImageCache
	coord *pipeline.Coordinator
	log   logrus.FieldLogger

	in io.Reader

	// mu guards out; progress notifications are written while a tool call
	// is still running.
	mu  sync.Mutex
	out *json.Encoder
}

// MCPRequest represents an incoming JSON-RPC request
type MCPRequest struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      interface{}     `json:"id"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
}

// MCPResponse represents an outgoing JSON-RPC response
type MCPResponse struct {
	JSONRPC string      `json:"jsonrpc"`
	ID      interface{} `json:"id"`
	Result  interface{} `json:"result,omitempty"`
	Error   *MCPError   `json:"error,omitempty"`
}

// MCPError represents a JSON-RPC error
type MCPError struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// MCPNotification represents an outgoing notification (no ID)
type MCPNotification struct {
	JSONRPC string      `json:"jsonrpc"`
	Method  string      `json:"method"`
	Params  interface{} `json:"params,omitempty"`
}

// New creates a server that speaks MCP over stdin and stdout.
func New(cfg *config.Config, log logrus.FieldLogger) *Server {
	return NewWithIO(cfg, log, os.Stdin, os.Stdout)
}

// NewWithIO creates a server reading requests from in and writing
// responses to out. A nil cfg selects the defaults.
func NewWithIO(cfg *config.Config, log logrus.FieldLogger, in io.Reader, out io.Writer) *Server {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	log = logging.OrDiscard(log)
	return &Server{
		cfg:   cfg,
		cache: imaging.NewImageCache(cfg.Server.CacheSize),
		coord: pipeline.New(cfg, nil, log),
		log:   log.WithField("component", "server"),
		in:    in,
		out:   json.NewEncoder(out),
	}
}

// Run serves requests until the input is exhausted or ctx is done.
// Requests are handled one at a time, in order. Input is read on a separate
// goroutine so cancellation returns promptly even while stdin is idle; that
// goroutine stays blocked in Read until the input yields or closes.
func (s *Server) Run(ctx context.Context) error {
	lines := make(chan []byte)
	scanErr := make(chan error, 1)

	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(s.in)
		// Increase buffer size for large requests
		buf := make([]byte, 0, 64*1024)
		scanner.Buffer(buf, 1024*1024)

		for scanner.Scan() {
			line := append([]byte(nil), scanner.Bytes()...)
			select {
			case lines <- line:
			case <-ctx.Done():
				return
			}
		}
		scanErr <- scanner.Err()
	}()

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		var line []byte
		select {
		case <-ctx.Done():
			return ctx.Err()
		case l, ok := <-lines:
			if !ok {
				if err := ctx.Err(); err != nil {
					return err
				}
				if err := <-scanErr; err != nil {
					return fmt.Errorf("scanner error: %w", err)
				}
				return nil
			}
			line = l
		}

		if err := ctx.Err(); err != nil {
			return err
		}
		if len(line) == 0 {
			continue
		}

		var req MCPRequest
		if err := json.Unmarshal(line, &req); err != nil {
			s.log.WithError(err).Warn("failed to parse request")
			continue
		}

		if resp := s.handleRequest(ctx, &req); resp != nil {
			s.write(resp)
		}
	}
}

// write encodes v as one line of output.
func (s *Server) write(v interface{}) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.out.Encode(v); err != nil {
		s.log.WithError(err).Error("failed to encode response")
	}
}

// notify sends a notification to the client.
func (s *Server) notify(method string, params interface{}) {
	s.write(&MCPNotification{JSONRPC: "2.0", Method: method, Params: params})
}

// handleRequest routes requests to appropriate handlers
func (s *Server) handleRequest(ctx context.Context, req *MCPRequest) *MCPResponse {
	s.log.WithField("method", req.Method).Debug("request received")

	switch req.Method {
	case "initialize":
		return s.handleInitialize(req)
	case "notifications/initialized":
		// Client acknowledgment, no response needed
		return nil
	case "tools/list":
		return s.handleToolsList(req)
	case "tools/call":
		return s.handleToolsCall(ctx, req)
	case "ping":
		return &MCPResponse{
			JSONRPC: "2.0",
			ID:      req.ID,
			Result:  map[string]interface{}{},
		}
	default:
		return &MCPResponse{
			JSONRPC: "2.0",
			ID:      req.ID,
			Error: &MCPError{
				Code:    codeMethodNotFound,
				Message: fmt.Sprintf("Method not found: %s", req.Method),
			},
		}
	}
}

// handleInitialize responds to the initialize request
func (s *Server) handleInitialize(req *MCPRequest) *MCPResponse {
	return &MCPResponse{
		JSONRPC: "2.0",
		ID:      req.ID,
		Result: map[string]interface{}{
			"protocolVersion": "2024-11-05",
			"capabilities": map[string]interface{}{
				"tools": map[string]interface{}{},
			},
			"serverInfo": map[string]interface{}{
				"name":    ServerName,
				"version": ServerVersion,
			},
		},
	}
}

// handleToolsList returns the tool catalogue.
func (s *Server) handleToolsList(req *MCPRequest) *MCPResponse {
	return &MCPResponse{
		JSONRPC: "2.0",
		ID:      req.ID,
		Result: map[string]interface{}{
			"tools": GetToolDefinitions(),
		},
	}
}
