package daemon

import (
	"github.com/Aman-CERP/nearmatch/internal/analyze"
	"github.com/Aman-CERP/nearmatch/internal/errors"
)

// JSON-RPC 2.0 method names.
const (
	MethodAnalyze = "analyze"
	MethodStatus  = "status"
	MethodPing    = "ping"
)

// Standard JSON-RPC 2.0 error codes.
const (
	ErrCodeParseError     = -32700
	ErrCodeInvalidRequest = -32600
	ErrCodeMethodNotFound = -32601
	ErrCodeInvalidParams  = -32602
	ErrCodeInternalError  = -32603
)

// Custom error codes for daemon-specific errors.
const (
	ErrCodeNotReady      = -32001
	ErrCodeAnalyzeFailed = -32002
	ErrCodeInvalidText   = -32003
)

// Request represents a JSON-RPC 2.0 request.
type Request struct {
	JSONRPC string `json:"jsonrpc"`
	Method  string `json:"method"`
	Params  any    `json:"params,omitempty"`
	ID      string `json:"id"`
}

// Response represents a JSON-RPC 2.0 response.
type Response struct {
	JSONRPC string `json:"jsonrpc"`
	Result  any    `json:"result,omitempty"`
	Error   *Error `json:"error,omitempty"`
	ID      string `json:"id"`
}

// Error represents a JSON-RPC 2.0 error. Data carries the application
// error code (ERR_XXX) when there is one.
type Error struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

// ErrorData is the structured payload of Error.Data.
type ErrorData struct {
	AppCode    string `json:"app_code,omitempty"`
	Suggestion string `json:"suggestion,omitempty"`
}

// NewSuccessResponse creates a successful response.
func NewSuccessResponse(id string, result any) Response {
	return Response{
		JSONRPC: "2.0",
		Result:  result,
		ID:      id,
	}
}

// NewErrorResponse creates an error response.
func NewErrorResponse(id string, code int, message string) Response {
	return Response{
		JSONRPC: "2.0",
		Error: &Error{
			Code:    code,
			Message: message,
		},
		ID: id,
	}
}

// newAppErrorResponse maps err onto a JSON-RPC error, keeping its ERR_XXX
// code and suggestion in Data.
func newAppErrorResponse(id string, err error) Response {
	code := ErrCodeAnalyzeFailed
	switch {
	case errors.GetCode(err) == errors.ErrCodeInvalidText:
		code = ErrCodeInvalidText
	case errors.IsClientError(err):
		code = ErrCodeInvalidParams
	case errors.GetCode(err) == errors.ErrCodeNotReady:
		code = ErrCodeNotReady
	}

	resp := NewErrorResponse(id, code, err.Error())
	data := ErrorData{AppCode: errors.GetCode(err)}
	if ae, ok := errors.AsAppError(err); ok {
		resp.Error.Message = ae.Message
		data.Suggestion = ae.Suggestion
	}
	if data.AppCode != "" {
		resp.Error.Data = data
	}
	return resp
}

// AnalyzeParams are the parameters for the analyze method.
type AnalyzeParams struct {
	Text string `json:"text"`
}

// AnalyzeResult is the result of the analyze method.
type AnalyzeResult struct {
	NearestByValue   *string `json:"nearestByValue"`
	NearestByLexical *string `json:"nearestByLexical"`
	Text             string  `json:"text"`
	Fingerprint      int     `json:"fingerprint"`
}

func newAnalyzeResult(res analyze.Result) AnalyzeResult {
	return AnalyzeResult{
		NearestByValue:   res.NearestByValue,
		NearestByLexical: res.NearestByLexical,
		Text:             res.Query.Text,
		Fingerprint:      res.Query.Fingerprint,
	}
}

// StatusResult contains daemon status information.
type StatusResult struct {
	Running      bool   `json:"running"`
	Ready        bool   `json:"ready"`
	PID          int    `json:"pid"`
	Uptime       string `json:"uptime"`
	Backend      string `json:"backend"`
	Texts        int    `json:"texts"`
	Fingerprints int    `json:"fingerprints"`
}

// PingResult is the response to a ping request.
type PingResult struct {
	Pong bool `json:"pong"`
}
