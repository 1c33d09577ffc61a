package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"

	"docdex/internal/retriever"
	"docdex/internal/store"
)

var mcpStorePath string

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Start an MCP server exposing document search tools",
	RunE:  runMCP,
}

func runMCP(cmd *cobra.Command, args []string) error {
	if err := validateBaseURL(flagBaseURL); err != nil {
		return err
	}

	st, err := store.Open(mcpStorePath)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer st.Close()

	r := retriever.New(newEmbedder(), st)

	s := mcpserver.NewMCPServer("docdex", "1.0.0", mcpserver.WithToolCapabilities(false))
	s.AddTool(queryDocumentsTool(), makeQueryHandler(r))
	s.AddTool(collectionStatsTool(), makeStatsHandler(st))

	return mcpserver.ServeStdio(s)
}

func init() {
	mcpCmd.Flags().StringVar(&mcpStorePath, "store-path", "./vectors", "vector store directory")
	rootCmd.AddCommand(mcpCmd)
}

// --- Tool schema builders ---

var readOnlyAnnotation = mcp.ToolAnnotation{
	ReadOnlyHint:    mcp.ToBoolPtr(true),
	DestructiveHint: mcp.ToBoolPtr(false),
	IdempotentHint:  mcp.ToBoolPtr(true),
	OpenWorldHint:   mcp.ToBoolPtr(false),
}

func queryDocumentsTool() mcp.Tool {
	return mcp.NewTool("query_documents",
		mcp.WithDescription("Semantically search stored documents and chunks. Returns matching text with source metadata and similarity scores."),
		mcp.WithToolAnnotation(readOnlyAnnotation),
		mcp.WithString("query",
			mcp.Required(),
			mcp.Description("Natural language query to search for"),
		),
		mcp.WithString("collection",
			mcp.Description("Collection to search (default: default)"),
		),
		mcp.WithString("mode",
			mcp.Description("Search mode: chunks, documents or both (default both)"),
		),
		mcp.WithNumber("n_results",
			mcp.Description("Maximum number of results to return (default 5)"),
		),
		mcp.WithNumber("threshold",
			mcp.Description("Minimum similarity between 0 and 1 (default 0.75)"),
		),
	)
}

func collectionStatsTool() mcp.Tool {
	return mcp.NewTool("collection_stats",
		mcp.WithDescription("Report every collection in the store with its entry count and a sample of its metadata."),
		mcp.WithToolAnnotation(readOnlyAnnotation),
	)
}

// --- Handler factories ---

func makeQueryHandler(r *retriever.Retriever) mcpserver.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		queryText := req.GetString("query", "")
		if queryText == "" {
			return mcp.NewToolResultError("query is required"), nil
		}
		mode, err := retriever.ParseMode(req.GetString("mode", ""))
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		resp, err := r.Query(queryText, retriever.Options{
			Collection:     req.GetString("collection", store.DefaultCollection),
			Mode:           mode,
			MaxResults:     req.GetInt("n_results", retriever.DefaultMaxResults),
			Threshold:      req.GetFloat("threshold", retriever.DefaultThreshold),
			ChunkWeight:    retriever.DefaultChunkWeight,
			DocumentWeight: retriever.DefaultDocumentWeight,
		})
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("search failed: %v", err)), nil
		}
		return mcp.NewToolResultText(formatQueryResults(queryText, resp)), nil
	}
}

func makeStatsHandler(st *store.Store) mcpserver.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		stats, err := st.Stats()
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("collect stats failed: %v", err)), nil
		}
		payload, err := json.MarshalIndent(stats, "", "  ")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return mcp.NewToolResultText(string(payload)), nil
	}
}

// --- Formatting helpers ---

func formatQueryResults(query string, resp *retriever.Response) string {
	if resp.Count == 0 {
		return fmt.Sprintf("No results found for query: %q", query)
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "## Search results for %q (%d results)\n\n", query, resp.Count)
	if len(resp.DocumentNames) > 0 {
		fmt.Fprintf(&sb, "**Documents:** %s\n\n", strings.Join(resp.DocumentNames, ", "))
	}

	for i, r := range resp.Results {
		kind := "document"
		if r.IsChunk {
			kind = "chunk"
		}
		source, _ := r.Metadata["source"].(string)
		fmt.Fprintf(&sb, "### Result %d (%s, similarity %.3f)\n\n", i+1, kind, r.Similarity)
		if source != "" {
			fmt.Fprintf(&sb, "**Source:** %s", source)
			if lr, ok := r.Metadata["line_range"].(string); ok && lr != "" {
				fmt.Fprintf(&sb, "  \n**Lines:** %s", lr)
			}
			sb.WriteString("\n\n")
		}
		fmt.Fprintf(&sb, "%s\n\n", r.Document)
	}

	return sb.String()
}
