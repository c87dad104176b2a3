// Package mcpserver exposes legal retrieval as MCP tools over stdio.
package mcpserver

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"legalrag-backend/models"
	"legalrag-backend/service"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

const defaultSearchK = 5

// Searcher runs hybrid retrieval
type Searcher interface {
	Search(ctx context.Context, query string, k int) ([]models.SearchResult, error)
}

// StatuteLookup resolves a single statute section
type StatuteLookup interface {
	Lookup(ref models.StatuteReference) (string, bool)
}

// Server wraps the MCP server with its retrieval dependencies
type Server struct {
	mcp      *server.MCPServer
	searcher Searcher
	statutes StatuteLookup
	defaultK int
}

// NewServer creates an MCP server and registers its tools
func NewServer(name, version string, searcher Searcher, statutes StatuteLookup, defaultK int) *Server {
	if defaultK <= 0 {
		defaultK = defaultSearchK
	}

	s := &Server{
		mcp:      server.NewMCPServer(name, version, server.WithToolCapabilities(false)),
		searcher: searcher,
		statutes: statutes,
		defaultK: defaultK,
	}

	s.mcp.AddTool(searchLegalContextTool(), s.handleSearch)
	s.mcp.AddTool(lookupStatuteTool(), s.handleLookupStatute)
	return s
}

// Serve blocks serving MCP over stdio
func (s *Server) Serve() error {
	return server.ServeStdio(s.mcp)
}

var readOnlyAnnotation = mcp.ToolAnnotation{
	ReadOnlyHint:    mcp.ToBoolPtr(true),
	DestructiveHint: mcp.ToBoolPtr(false),
	IdempotentHint:  mcp.ToBoolPtr(true),
	OpenWorldHint:   mcp.ToBoolPtr(false),
}

func searchLegalContextTool() mcp.Tool {
	return mcp.NewTool("search_legal_context",
		mcp.WithDescription("Search Indian statutes (IPC/BNS) and case law. Exact statute sections cited in the query come first, followed by semantically similar case-law passages."),
		mcp.WithToolAnnotation(readOnlyAnnotation),
		mcp.WithString("query",
			mcp.Required(),
			mcp.Description("Legal question or keywords, e.g. 'punishment under Section 302 IPC'"),
		),
		mcp.WithNumber("k",
			mcp.Description("Number of case-law passages to retrieve (default 5); up to two extra statute matches may be added"),
		),
	)
}

func lookupStatuteTool() mcp.Tool {
	return mcp.NewTool("lookup_statute",
		mcp.WithDescription("Return the text of a single statute section from the statute book."),
		mcp.WithToolAnnotation(readOnlyAnnotation),
		mcp.WithString("code",
			mcp.Required(),
			mcp.Description("Statute code: IPC or BNS"),
		),
		mcp.WithString("section",
			mcp.Required(),
			mcp.Description("Section number, e.g. '302'"),
		),
	)
}

func (s *Server) handleSearch(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query := strings.TrimSpace(req.GetString("query", ""))
	if query == "" {
		return mcp.NewToolResultError("query is required"), nil
	}
	k := req.GetInt("k", s.defaultK)
	if k <= 0 {
		k = s.defaultK
	}

	results, err := s.searcher.Search(ctx, query, k)
	if err != nil {
		if errors.Is(err, service.ErrNotConfigured) {
			return mcp.NewToolResultError("semantic search is unavailable: embedding model or index not loaded"), nil
		}
		return mcp.NewToolResultError(fmt.Sprintf("search failed: %v", err)), nil
	}

	return mcp.NewToolResultText(formatResults(query, results)), nil
}

func (s *Server) handleLookupStatute(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	code, err := models.ParseStatuteCode(req.GetString("code", ""))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	section := strings.TrimSpace(req.GetString("section", ""))
	if section == "" {
		return mcp.NewToolResultError("section is required"), nil
	}

	ref := models.StatuteReference{Code: code, Section: section}
	text, ok := s.statutes.Lookup(ref)
	if !ok {
		return mcp.NewToolResultError(fmt.Sprintf("%s is not in the statute book", ref.DocumentID())), nil
	}

	return mcp.NewToolResultText(fmt.Sprintf("## %s\n\n%s", ref.DocumentID(), text)), nil
}

func formatResults(query string, results []models.SearchResult) string {
	if len(results) == 0 {
		return fmt.Sprintf("No results found for query: %q", query)
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "## Legal context for %q (%d results)\n\n", query, len(results))

	for i, r := range results {
		fmt.Fprintf(&sb, "### [%d] %s\n\n", i+1, r.DocumentID)
		fmt.Fprintf(&sb, "**Source:** %s  \n**Match:** %s  \n**Score:** %.4f\n\n", r.Source, r.Kind, r.Score)
		fmt.Fprintf(&sb, "%s\n\n", r.Text)
	}

	return sb.String()
}
