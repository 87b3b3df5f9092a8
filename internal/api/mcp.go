package api

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/reasona/reasona/internal/pipeline"
	"github.com/reasona/reasona/internal/retrieval"
	"github.com/reasona/reasona/internal/storage"
)

// MCPRetriever abstracts semantic search for the MCP layer.
type MCPRetriever interface {
	Retrieve(ctx context.Context, query string, topK int) ([]retrieval.ContextChunk, error)
}

// MCPDeps holds dependencies for the MCP server.
type MCPDeps struct {
	Engine    QueryEngine
	Retriever MCPRetriever
	Store     *storage.Store
}

// NewMCPServer creates an MCP server exposing the question pipeline and
// document search as tools.
func NewMCPServer(deps MCPDeps) *server.MCPServer {
	s := server.NewMCPServer(
		"reasona",
		"1.0.0",
		server.WithToolCapabilities(true),
		server.WithInstructions("reasona: question answering over uploaded documents with hypothesis-driven retrieval and a self-correcting knowledge base."),
		server.WithRecovery(),
	)

	s.AddTool(
		mcp.NewTool("ask",
			mcp.WithDescription("Answer a question using the document knowledge base. Runs the full retrieval and verification pipeline."),
			mcp.WithString("question", mcp.Description("The question to answer"), mcp.Required()),
			mcp.WithString("provider", mcp.Description("Model provider override (ollama, openai, google)")),
			mcp.WithString("model", mcp.Description("Model name override")),
		),
		mcpAsk(deps),
	)

	s.AddTool(
		mcp.NewTool("search_documents",
			mcp.WithDescription("Semantically search stored document chunks without generating an answer."),
			mcp.WithString("query", mcp.Description("Search query"), mcp.Required()),
			mcp.WithNumber("limit", mcp.Description("Maximum number of results (default 5)")),
		),
		mcpSearchDocuments(deps),
	)

	s.AddTool(
		mcp.NewTool("list_documents",
			mcp.WithDescription("List uploaded documents, newest first."),
			mcp.WithNumber("limit", mcp.Description("Maximum number of documents (default 20)")),
		),
		mcpListDocuments(deps),
	)

	return s
}

func mcpAsk(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		question, err := req.RequireString("question")
		if err != nil {
			return mcpError("question is required"), nil
		}

		result, err := deps.Engine.Process(ctx, pipeline.Request{
			Question: question,
			Provider: req.GetString("provider", ""),
			Model:    req.GetString("model", ""),
		})
		if err != nil {
			return mcpError(fmt.Sprintf("query failed: %v", err)), nil
		}

		b, err := json.MarshalIndent(result, "", "  ")
		if err != nil {
			return mcpError(fmt.Sprintf("failed to encode result: %v", err)), nil
		}
		return mcpText(string(b)), nil
	}
}

func mcpSearchDocuments(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		query, err := req.RequireString("query")
		if err != nil {
			return mcpError("query is required"), nil
		}

		limit := req.GetInt("limit", 5)
		if limit <= 0 {
			limit = 5
		}
		if limit > 50 {
			limit = 50
		}

		chunks, err := deps.Retriever.Retrieve(ctx, query, limit)
		if err != nil {
			return mcpError(fmt.Sprintf("search failed: %v", err)), nil
		}

		if len(chunks) == 0 {
			return mcpText("[]"), nil
		}

		type chunkResult struct {
			ID         string  `json:"id"`
			SourceID   string  `json:"source_id"`
			SourceType string  `json:"source_type"`
			Text       string  `json:"text"`
			Score      float32 `json:"score"`
		}

		results := make([]chunkResult, len(chunks))
		for i, c := range chunks {
			results[i] = chunkResult{
				ID:         c.ID,
				SourceID:   c.SourceID,
				SourceType: c.SourceType,
				Text:       c.Text,
				Score:      c.Score,
			}
		}

		b, err := json.MarshalIndent(results, "", "  ")
		if err != nil {
			return mcpError(fmt.Sprintf("failed to encode results: %v", err)), nil
		}
		return mcpText(string(b)), nil
	}
}

func mcpListDocuments(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		limit := req.GetInt("limit", 20)
		if limit <= 0 {
			limit = 20
		}
		if limit > 100 {
			limit = 100
		}

		docs, err := deps.Store.ListDocuments(limit, 0)
		if err != nil {
			return mcpError(fmt.Sprintf("listing documents failed: %v", err)), nil
		}
		if docs == nil {
			docs = []storage.Document{}
		}

		b, err := json.MarshalIndent(docs, "", "  ")
		if err != nil {
			return mcpError(fmt.Sprintf("failed to encode documents: %v", err)), nil
		}
		return mcpText(string(b)), nil
	}
}

func mcpText(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{Type: "text", Text: text},
		},
	}
}

func mcpError(msg string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{Type: "text", Text: msg},
		},
		IsError: true,
	}
}
