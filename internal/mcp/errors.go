// Package mcp serves nearmatch over the Model Context Protocol.
package mcp

import (
	"context"
	"errors"
	"fmt"

	nmerrors "github.com/Aman-CERP/nearmatch/internal/errors"
)

// Custom MCP error codes.
const (
	// ErrCodeNotReady indicates the cache has not been warmed up yet.
	ErrCodeNotReady = -32001

	// ErrCodeStorage indicates the backing store failed.
	ErrCodeStorage = -32002

	// ErrCodeTimeout indicates the request timed out.
	ErrCodeTimeout = -32003

	// Standard JSON-RPC error codes.
	ErrCodeInvalidRequest = -32600
	ErrCodeMethodNotFound = -32601
	ErrCodeInvalidParams  = -32602
	ErrCodeInternalError  = -32603
)

// ErrToolNotFound indicates the requested tool does not exist.
var ErrToolNotFound = errors.New("tool not found")

// MCPError represents an MCP protocol error with code and message.
type MCPError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// Error implements the error interface.
func (e *MCPError) Error() string {
	return fmt.Sprintf("MCP error %d: %s", e.Code, e.Message)
}

// MapError converts internal errors to MCP errors.
func MapError(err error) *MCPError {
	if err == nil {
		return nil
	}

	var mcpErr *MCPError
	if errors.As(err, &mcpErr) {
		return mcpErr
	}

	if ae, ok := nmerrors.AsAppError(err); ok {
		return mapAppError(ae)
	}

	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return &MCPError{Code: ErrCodeTimeout, Message: "Request timed out."}
	case errors.Is(err, context.Canceled):
		return &MCPError{Code: ErrCodeTimeout, Message: "Request was canceled."}
	case errors.Is(err, ErrToolNotFound):
		return &MCPError{Code: ErrCodeMethodNotFound, Message: "Tool not found."}
	default:
		return &MCPError{Code: ErrCodeInternalError, Message: "Internal server error."}
	}
}

// NewInvalidParamsError creates an error for invalid parameters.
func NewInvalidParamsError(msg string) *MCPError {
	return &MCPError{Code: ErrCodeInvalidParams, Message: msg}
}

// NewMethodNotFoundError creates an error for unknown tools.
func NewMethodNotFoundError(name string) *MCPError {
	return &MCPError{
		Code:    ErrCodeMethodNotFound,
		Message: fmt.Sprintf("Tool '%s' not found.", name),
	}
}

// mapAppError converts an AppError to an MCPError, appending its suggestion.
func mapAppError(ae *nmerrors.AppError) *MCPError {
	message := ae.Message
	if ae.Suggestion != "" {
		message = fmt.Sprintf("%s. %s.", ae.Message, ae.Suggestion)
	}

	switch {
	case ae.Category == nmerrors.CategoryValidation:
		return &MCPError{Code: ErrCodeInvalidParams, Message: message}
	case ae.Code == nmerrors.ErrCodeNotReady:
		return &MCPError{Code: ErrCodeNotReady, Message: message}
	case ae.Category == nmerrors.CategoryStorage:
		return &MCPError{Code: ErrCodeStorage, Message: message}
	default:
		return &MCPError{Code: ErrCodeInternalError, Message: message}
	}
}
