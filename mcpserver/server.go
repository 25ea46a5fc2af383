package mcpserver

import (
	"context"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/atai-labs/search-mirror/internal/biz/domain"
	"github.com/atai-labs/search-mirror/internal/biz/repo"
)

// CacheMCPServer exposes the result cache as MCP tools so an operator
// agent can inspect and maintain it without touching the database.
type CacheMCPServer struct {
	server    *mcp.Server
	cacheRepo repo.CacheRepo
}

// NewServer creates a new cache MCP server
func NewServer(cacheRepo repo.CacheRepo) *CacheMCPServer {
	server := mcp.NewServer(&mcp.Implementation{
		Name:    "search-cache-tools",
		Version: "v1.0.0",
	}, nil)

	s := &CacheMCPServer{
		server:    server,
		cacheRepo: cacheRepo,
	}

	s.registerTools()
	return s
}

// registerTools registers all cache-related MCP tools
func (s *CacheMCPServer) registerTools() {
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "cache_lookup",
		Description: "Look up a cached search result page by command, keyword and page number. Returns the page text and its buttons.",
	}, s.handleLookup)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "cache_stats",
		Description: "Get cache table statistics: total, valid and expired entry counts plus the most accessed searches.",
	}, s.handleStats)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "cache_sweep",
		Description: "Delete all expired cache entries. Returns how many rows were removed.",
	}, s.handleSweep)
}

// LookupInput is the input for the cache_lookup tool
type LookupInput struct {
	Command string `json:"command" jsonschema:"description=The search command, e.g. /search"`
	Keyword string `json:"keyword" jsonschema:"description=The search keyword"`
	Page    int    `json:"page,omitempty" jsonschema:"description=Page number (default 1)"`
}

// LookupButton is one button of a cached page
type LookupButton struct {
	Label string `json:"label"`
	URL   string `json:"url,omitempty"`
}

// LookupOutput is the output for the cache_lookup tool
type LookupOutput struct {
	Found       bool           `json:"found"`
	Text        string         `json:"text,omitempty"`
	Buttons     []LookupButton `json:"buttons,omitempty"`
	AccessCount int            `json:"access_count,omitempty"`
	ExpiresAt   string         `json:"expires_at,omitempty"`
	Error       string         `json:"error,omitempty"`
}

func (s *CacheMCPServer) handleLookup(ctx context.Context, req *mcp.CallToolRequest, input LookupInput) (*mcp.CallToolResult, LookupOutput, error) {
	page := input.Page
	if page <= 0 {
		page = 1
	}

	entry, err := s.cacheRepo.Get(ctx, input.Command, input.Keyword, page)
	if err != nil {
		return nil, LookupOutput{Error: err.Error()}, nil
	}
	if entry == nil {
		return nil, LookupOutput{Found: false}, nil
	}

	out := LookupOutput{
		Found:       true,
		Text:        entry.Text,
		AccessCount: entry.AccessCount,
	}
	if !entry.ExpiresAt.IsZero() {
		out.ExpiresAt = entry.ExpiresAt.Format(time.RFC3339)
	}
	for _, b := range entry.Buttons {
		out.Buttons = append(out.Buttons, LookupButton{Label: b.Label, URL: b.URL})
	}
	return nil, out, nil
}

// StatsInput is empty - no input needed
type StatsInput struct{}

// StatsTopEntry is one row of the most-accessed ranking
type StatsTopEntry struct {
	Command     string `json:"command"`
	Keyword     string `json:"keyword"`
	AccessCount int    `json:"access_count"`
}

// StatsOutput is the output for the cache_stats tool
type StatsOutput struct {
	Total   int             `json:"total"`
	Valid   int             `json:"valid"`
	Expired int             `json:"expired"`
	Top     []StatsTopEntry `json:"top,omitempty"`
	Error   string          `json:"error,omitempty"`
}

func (s *CacheMCPServer) handleStats(ctx context.Context, req *mcp.CallToolRequest, input StatsInput) (*mcp.CallToolResult, StatsOutput, error) {
	stats, err := s.cacheRepo.Stats(ctx)
	if err != nil {
		return nil, StatsOutput{Error: err.Error()}, nil
	}
	return nil, statsOutput(stats), nil
}

func statsOutput(stats *domain.CacheStats) StatsOutput {
	out := StatsOutput{
		Total:   stats.Total,
		Valid:   stats.Valid,
		Expired: stats.Expired,
	}
	for _, t := range stats.Top {
		out.Top = append(out.Top, StatsTopEntry{
			Command:     t.Command,
			Keyword:     t.Keyword,
			AccessCount: t.AccessCount,
		})
	}
	return out
}

// SweepInput is empty - no input needed
type SweepInput struct{}

// SweepOutput is the output for the cache_sweep tool
type SweepOutput struct {
	Removed int64  `json:"removed"`
	Error   string `json:"error,omitempty"`
}

func (s *CacheMCPServer) handleSweep(ctx context.Context, req *mcp.CallToolRequest, input SweepInput) (*mcp.CallToolResult, SweepOutput, error) {
	removed, err := s.cacheRepo.SweepExpired(ctx)
	if err != nil {
		return nil, SweepOutput{Error: err.Error()}, nil
	}
	return nil, SweepOutput{Removed: removed}, nil
}

// Run starts the MCP server with stdio transport
func (s *CacheMCPServer) Run(ctx context.Context) error {
	return s.server.Run(ctx, &mcp.StdioTransport{})
}

// GetServer returns the underlying MCP server
func (s *CacheMCPServer) GetServer() *mcp.Server {
	return s.server
}
