package mcp

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Aman-CERP/nearmatch/internal/analyze"
	"github.com/Aman-CERP/nearmatch/internal/cache"
	"github.com/Aman-CERP/nearmatch/internal/fingerprint"
	"github.com/Aman-CERP/nearmatch/internal/store"
)

func newTestServer(t *testing.T, texts ...string) *Server {
	t.Helper()
	seed := make([]store.TextRecord, 0, len(texts))
	for _, text := range texts {
		rec, err := fingerprint.Encode(text)
		require.NoError(t, err)
		seed = append(seed, rec)
	}
	c := cache.New(store.NewMemoryStore(seed...))
	require.NoError(t, c.WarmUp(context.Background()))

	s, err := NewServer(analyze.New(c))
	require.NoError(t, err)
	return s
}

func TestNewServer_RequiresAnalyzer(t *testing.T) {
	_, err := NewServer(nil)
	assert.Error(t, err)
}

func TestServer_ListTools(t *testing.T) {
	s := newTestServer(t)

	got := s.ListTools()

	require.Len(t, got, 2)
	assert.Equal(t, ToolAnalyzeText, got[0].Name)
	assert.Equal(t, ToolCacheStatus, got[1].Name)
	assert.NotNil(t, s.MCPServer())
}

func TestAnalyzeTool(t *testing.T) {
	// Given: a cache holding only "c"
	s := newTestServer(t, "c")

	// When: calling analyze_text with "ab"
	_, out, err := s.analyzeHandler(context.Background(), nil, AnalyzeInput{Text: "ab"})

	// Then: "c" is nearest on both axes
	require.NoError(t, err)
	require.NotNil(t, out.NearestByValue)
	require.NotNil(t, out.NearestByLexical)
	assert.Equal(t, "c", *out.NearestByValue)
	assert.Equal(t, "c", *out.NearestByLexical)
	assert.Equal(t, 3, out.Fingerprint)
}

func TestAnalyzeTool_EmptyCacheSerializesNulls(t *testing.T) {
	s := newTestServer(t)

	_, out, err := s.analyzeHandler(context.Background(), nil, AnalyzeInput{Text: "word"})
	require.NoError(t, err)

	data, err := json.Marshal(out)
	require.NoError(t, err)
	assert.JSONEq(t, `{"nearest_by_value":null,"nearest_by_lexical":null,"fingerprint":60}`, string(data))
}

func TestAnalyzeTool_InvalidText(t *testing.T) {
	s := newTestServer(t, "c")

	_, _, err := s.analyzeHandler(context.Background(), nil, AnalyzeInput{Text: "a1"})

	require.Error(t, err)
	var mcpErr *MCPError
	require.ErrorAs(t, err, &mcpErr)
	assert.Equal(t, ErrCodeInvalidParams, mcpErr.Code)
}

func TestCacheStatusTool(t *testing.T) {
	s := newTestServer(t, "abd", "bad", "g", "c")

	_, out, err := s.statusHandler(context.Background(), nil, StatusInput{})

	require.NoError(t, err)
	assert.Equal(t, StatusOutput{Ready: true, Texts: 4, Fingerprints: 2}, out)
}

func TestCallTool(t *testing.T) {
	s := newTestServer(t, "c")
	ctx := context.Background()

	t.Run("analyze_text records the text", func(t *testing.T) {
		got, err := s.CallTool(ctx, ToolAnalyzeText, map[string]any{"text": "xyz"})
		require.NoError(t, err)
		assert.Equal(t, 24+25+26, got.(AnalyzeOutput).Fingerprint)

		st, err := s.CallTool(ctx, ToolCacheStatus, nil)
		require.NoError(t, err)
		assert.Equal(t, 2, st.(StatusOutput).Texts)
	})

	t.Run("missing text", func(t *testing.T) {
		_, err := s.CallTool(ctx, ToolAnalyzeText, map[string]any{})
		require.Error(t, err)
		assert.Equal(t, ErrCodeInvalidParams, MapError(err).Code)
	})

	t.Run("unknown tool", func(t *testing.T) {
		_, err := s.CallTool(ctx, "search", nil)
		require.Error(t, err)
		assert.Equal(t, ErrCodeMethodNotFound, MapError(err).Code)
	})
}

func TestServe_UnknownTransport(t *testing.T) {
	s := newTestServer(t)

	err := s.Serve(context.Background(), "sse")

	assert.ErrorContains(t, err, "unknown transport")
}
