package mcp

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/Aman-CERP/nearmatch/internal/analyze"
	"github.com/Aman-CERP/nearmatch/pkg/version"
)

// Tool names.
const (
	ToolAnalyzeText = "analyze_text"
	ToolCacheStatus = "cache_status"
)

// Server bridges MCP clients with the analyze service.
type Server struct {
	mcp      *mcp.Server
	analyzer analyze.Analyzer
	logger   *slog.Logger
}

// ToolInfo contains information about a registered tool.
type ToolInfo struct {
	Name        string
	Description string
}

// AnalyzeInput defines the input schema for the analyze_text tool.
type AnalyzeInput struct {
	Text string `json:"text" jsonschema:"the word to analyze, letters a-z only (case-insensitive)"`
}

// AnalyzeOutput defines the output schema for the analyze_text tool.
type AnalyzeOutput struct {
	NearestByValue   *string `json:"nearest_by_value" jsonschema:"known text whose fingerprint is numerically closest, null if nothing is known yet"`
	NearestByLexical *string `json:"nearest_by_lexical" jsonschema:"known text that is lexically closest, null if nothing is known yet"`
	Fingerprint      int     `json:"fingerprint" jsonschema:"sum of letter positions of the normalized input"`
}

// StatusInput is the (empty) input of the cache_status tool.
type StatusInput struct{}

// StatusOutput defines the output schema for the cache_status tool.
type StatusOutput struct {
	Ready        bool `json:"ready" jsonschema:"true once the cache has loaded the store"`
	Texts        int  `json:"texts" jsonschema:"number of distinct known texts"`
	Fingerprints int  `json:"fingerprints" jsonschema:"number of distinct fingerprints"`
}

var tools = []ToolInfo{
	{
		Name:        ToolAnalyzeText,
		Description: "Find the known texts nearest to a word, by letter-sum fingerprint and by lexical distance, then remember the word.",
	},
	{
		Name:        ToolCacheStatus,
		Description: "Report whether the cache is ready and how many texts and fingerprints it holds.",
	},
}

// NewServer creates an MCP server over a.
func NewServer(a analyze.Analyzer) (*Server, error) {
	if a == nil {
		return nil, errors.New("analyzer is required")
	}

	s := &Server{
		analyzer: a,
		logger:   slog.Default(),
	}
	s.mcp = mcp.NewServer(
		&mcp.Implementation{Name: "nearmatch", Version: version.Version},
		nil,
	)
	s.registerTools()
	return s, nil
}

// MCPServer returns the underlying MCP server instance.
func (s *Server) MCPServer() *mcp.Server {
	return s.mcp
}

// ListTools returns all registered tools.
func (s *Server) ListTools() []ToolInfo {
	return append([]ToolInfo(nil), tools...)
}

// CallTool invokes a tool by name with loosely typed arguments.
func (s *Server) CallTool(ctx context.Context, name string, args map[string]any) (any, error) {
	switch name {
	case ToolAnalyzeText:
		text, ok := args["text"].(string)
		if !ok {
			return nil, NewInvalidParamsError("text parameter is required and must be a string")
		}
		_, out, err := s.analyzeHandler(ctx, nil, AnalyzeInput{Text: text})
		if err != nil {
			return nil, err
		}
		return out, nil
	case ToolCacheStatus:
		_, out, err := s.statusHandler(ctx, nil, StatusInput{})
		if err != nil {
			return nil, err
		}
		return out, nil
	default:
		return nil, NewMethodNotFoundError(name)
	}
}

func (s *Server) registerTools() {
	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        ToolAnalyzeText,
		Description: tools[0].Description,
	}, s.analyzeHandler)

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        ToolCacheStatus,
		Description: tools[1].Description,
	}, s.statusHandler)

	s.logger.Debug("mcp_tools_registered", slog.Int("count", len(tools)))
}

func (s *Server) analyzeHandler(ctx context.Context, _ *mcp.CallToolRequest, input AnalyzeInput) (
	*mcp.CallToolResult,
	AnalyzeOutput,
	error,
) {
	res, err := s.analyzer.Analyze(ctx, input.Text)
	if err != nil {
		return nil, AnalyzeOutput{}, MapError(err)
	}
	return nil, AnalyzeOutput{
		NearestByValue:   res.NearestByValue,
		NearestByLexical: res.NearestByLexical,
		Fingerprint:      res.Query.Fingerprint,
	}, nil
}

func (s *Server) statusHandler(_ context.Context, _ *mcp.CallToolRequest, _ StatusInput) (
	*mcp.CallToolResult,
	StatusOutput,
	error,
) {
	st := s.analyzer.Status()
	return nil, StatusOutput{
		Ready:        st.Ready,
		Texts:        st.Cache.Texts,
		Fingerprints: st.Cache.Fingerprints,
	}, nil
}

// Serve runs the server on the given transport until ctx is cancelled.
// Only "stdio" is supported.
func (s *Server) Serve(ctx context.Context, transport string) error {
	if transport != "stdio" {
		return fmt.Errorf("unknown transport: %s (supported: stdio)", transport)
	}

	s.logger.Info("mcp_server_starting", slog.String("transport", transport))
	err := s.mcp.Run(ctx, &mcp.StdioTransport{})
	if err != nil && !errors.Is(err, context.Canceled) {
		s.logger.Error("mcp_server_failed", slog.String("error", err.Error()))
		return err
	}
	s.logger.Info("mcp_server_stopped")
	return nil
}
