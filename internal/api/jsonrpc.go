package api

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"

	"github.com/medshare/moderation/pkg/logging"
	"github.com/medshare/moderation/pkg/telemetry"
)

// JSONRPCRequest represents a JSON-RPC 2.0 request
type JSONRPCRequest struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      interface{}     `json:"id"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params"`
}

// JSONRPCResponse represents a JSON-RPC 2.0 response
type JSONRPCResponse struct {
	JSONRPC string        `json:"jsonrpc"`
	ID      interface{}   `json:"id"`
	Result  interface{}   `json:"result,omitempty"`
	Error   *JSONRPCError `json:"error,omitempty"`
}

// JSONRPCError represents a JSON-RPC error
type JSONRPCError struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// MethodHandler is a function that handles a JSON-RPC method
type MethodHandler func(ctx *gin.Context, params json.RawMessage) (interface{}, error)

type method struct {
	handler MethodHandler
	// public methods may be called without a bearer token
	public bool
}

// JSONRPCHandler handles JSON-RPC requests
type JSONRPCHandler struct {
	methods map[string]method
	logger  *zap.Logger
}

// NewJSONRPCHandler creates a new JSON-RPC handler
func NewJSONRPCHandler() *JSONRPCHandler {
	return &JSONRPCHandler{
		methods: make(map[string]method),
		logger:  logging.WithComponent("jsonrpc"),
	}
}

// RegisterMethod registers a method that requires an authenticated caller
func (h *JSONRPCHandler) RegisterMethod(name string, handler MethodHandler) {
	h.methods[name] = method{handler: handler}
}

// RegisterPublicMethod registers a method anonymous callers may use
func (h *JSONRPCHandler) RegisterPublicMethod(name string, handler MethodHandler) {
	h.methods[name] = method{handler: handler, public: true}
}

// Methods returns the number of registered methods
func (h *JSONRPCHandler) Methods() int {
	return len(h.methods)
}

// Handle handles a JSON-RPC request
func (h *JSONRPCHandler) Handle(c *gin.Context) {
	ctx, span := telemetry.StartSpan(c.Request.Context(), "jsonrpc.handle")
	defer span.End()
	c.Request = c.Request.WithContext(ctx)

	var req JSONRPCRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.sendError(c, nil, ErrParseError, "Parse error", err)
		return
	}
	span.SetAttributes(attribute.String("rpc.method", req.Method))

	// Validate JSON-RPC version
	if req.JSONRPC != "2.0" {
		h.sendError(c, req.ID, ErrInvalidRequest, "Invalid Request", fmt.Errorf("invalid jsonrpc version"))
		return
	}

	m, ok := h.methods[req.Method]
	if !ok {
		h.sendError(c, req.ID, ErrMethodNotFound, "Method not found", fmt.Errorf("method %s not found", req.Method))
		return
	}
	if !m.public && ActorID(c) == 0 {
		h.sendError(c, req.ID, ErrUnauthenticated.Code, ErrUnauthenticated.Message, nil)
		return
	}

	result, err := m.handler(c, req.Params)
	if err != nil {
		code, message := toRPCError(err)
		span.RecordError(err)
		span.SetStatus(codes.Error, message)
		h.logFailure(c, req.Method, code, err)
		h.sendError(c, req.ID, code, message, nil)
		return
	}

	// Send response
	h.sendResponse(c, req.ID, result)
}

func (h *JSONRPCHandler) logFailure(c *gin.Context, name string, code int, err error) {
	logger := logging.WithRequestID(h.logger, RequestID(c))
	fields := []zap.Field{
		zap.String("method", name),
		zap.Int("code", code),
		zap.Int64("actor_id", ActorID(c)),
		zap.Error(err),
	}
	if code == ErrCodeServer || code == ErrCodeTransaction {
		logger.Error("JSON-RPC method failed", fields...)
		return
	}
	logger.Debug("JSON-RPC method rejected", fields...)
}

// sendResponse sends a successful JSON-RPC response
func (h *JSONRPCHandler) sendResponse(c *gin.Context, id interface{}, result interface{}) {
	resp := JSONRPCResponse{
		JSONRPC: "2.0",
		ID:      id,
		Result:  result,
	}
	c.JSON(http.StatusOK, resp)
}

// sendError sends an error JSON-RPC response. err, when set, is logged and
// attached as data.
func (h *JSONRPCHandler) sendError(c *gin.Context, id interface{}, code int, message string, err error) {
	rpcErr := &JSONRPCError{
		Code:    code,
		Message: message,
	}
	if err != nil {
		logging.WithRequestID(h.logger, RequestID(c)).Warn("JSON-RPC error",
			zap.String("message", message), zap.Error(err))
		rpcErr.Data = err.Error()
	}

	c.JSON(http.StatusOK, JSONRPCResponse{
		JSONRPC: "2.0",
		ID:      id,
		Error:   rpcErr,
	})
}

// Standard JSON-RPC error codes
const (
	ErrParseError     = -32700
	ErrInvalidRequest = -32600
	ErrMethodNotFound = -32601
	ErrInvalidParams  = -32602
	ErrInternalError  = -32603
)
