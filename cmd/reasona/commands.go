package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/reasona/reasona/internal/config"
	"github.com/reasona/reasona/internal/pipeline"
)

// --- query ---

var queryCmd = &cobra.Command{
	Use:   "query <question>",
	Short: "Ask a question against the indexed documents",
	Long: `Ask a question against the indexed documents.

Examples:
  reasona query "What is the refund policy?"
  reasona query --provider openai --model gpt-4o "Summarize the architecture"`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		question := strings.Join(args, " ")
		provider, _ := cmd.Flags().GetString("provider")
		model, _ := cmd.Flags().GetString("model")
		verbose, _ := cmd.Flags().GetBool("verbose")

		client, err := newAPIClient()
		if err != nil {
			return err
		}

		req := pipeline.Request{
			Question: question,
			Provider: provider,
			Model:    model,
		}

		resp, err := client.post(cmd.Context(), "/query", req)
		if err != nil {
			return err
		}

		var result pipeline.Result
		if err := decodeJSON(resp, &result); err != nil {
			return err
		}

		fmt.Println(result.Answer)

		if result.WasCorrected {
			if result.SelfEditPerformed {
				printWarning("Answer judged incorrect; knowledge base updated for future queries")
			} else {
				printWarning("Answer judged incorrect")
			}
		}

		if verbose {
			printStatus("Provider", "%s (%s)", result.Meta.Provider, result.Meta.Model)
			printStatus("Hypotheses", "%d", result.Meta.Hypotheses)
			printStatus("Chunks", "%d", result.Meta.ChunksUsed)
			printStatus("Elapsed", "%dms", result.Meta.ElapsedMS)
			if result.Meta.Rationale != "" {
				printStatus("Rationale", "%s", result.Meta.Rationale)
			}
			for i, doc := range result.RetrievedDocs {
				text := doc
				if len(text) > 300 {
					text = text[:300] + "..."
				}
				printStep("Context %d: %s", i+1, text)
			}
		}
		return nil
	},
}

func init() {
	queryCmd.Flags().String("provider", "", "LLM provider override (ollama, openai, google)")
	queryCmd.Flags().String("model", "", "model override for the selected provider")
	queryCmd.Flags().BoolP("verbose", "v", false, "show retrieval details and timing")
}

// --- upload ---

var uploadCmd = &cobra.Command{
	Use:   "upload <file>",
	Short: "Upload a document (PDF, DOCX, or TXT) for indexing",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newAPIClient()
		if err != nil {
			return err
		}

		printStep("Uploading %s...", args[0])
		resp, err := client.postFile(cmd.Context(), "/upload", args[0])
		if err != nil {
			return err
		}

		var result struct {
			DocumentID string `json:"document_id"`
			Chunks     int    `json:"chunks"`
		}
		if err := decodeJSON(resp, &result); err != nil {
			return err
		}

		printSuccess("Uploaded document %s (%d chunks queued for embedding)", result.DocumentID, result.Chunks)
		return nil
	},
}

// --- docs ---

var docsCmd = &cobra.Command{
	Use:   "docs",
	Short: "Manage uploaded documents",
}

var docsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List uploaded documents",
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")

		client, err := newAPIClient()
		if err != nil {
			return err
		}

		resp, err := client.get(cmd.Context(), fmt.Sprintf("/documents?limit=%d", limit))
		if err != nil {
			return err
		}

		var payload struct {
			Documents []struct {
				ID         string `json:"id"`
				Filename   string `json:"filename"`
				ChunkCount int    `json:"chunk_count"`
				CreatedAt  string `json:"created_at"`
			} `json:"documents"`
		}
		if err := decodeJSON(resp, &payload); err != nil {
			return err
		}

		if len(payload.Documents) == 0 {
			fmt.Println("No documents uploaded.")
			return nil
		}

		for _, d := range payload.Documents {
			fmt.Printf("%s  %-40s  %d chunks  %s\n", d.ID[:8], d.Filename, d.ChunkCount, d.CreatedAt)
		}
		return nil
	},
}

var docsDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete a document and its indexed chunks",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newAPIClient()
		if err != nil {
			return err
		}

		resp, err := client.delete(cmd.Context(), "/documents/"+args[0])
		if err != nil {
			return err
		}

		var result struct {
			Deleted       string `json:"deleted"`
			ChunksRemoved int    `json:"chunks_removed"`
		}
		if err := decodeJSON(resp, &result); err != nil {
			return err
		}

		printSuccess("Deleted document %s (%d chunks removed)", result.Deleted, result.ChunksRemoved)
		return nil
	},
}

func init() {
	docsListCmd.Flags().Int("limit", 50, "maximum number of documents to list")
	docsCmd.AddCommand(docsListCmd)
	docsCmd.AddCommand(docsDeleteCmd)
}

// --- config ---

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show or update configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}

		for _, k := range config.ShowAll(cfg) {
			fmt.Printf("  %s = %s\n", labelColor.Sprint(k.Key), k.Value)
		}
		return nil
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a configuration value",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		key, value := args[0], args[1]

		if err := config.SetKey(key, value); err != nil {
			return err
		}

		printSuccess("Set %s = %s", key, value)
		return nil
	},
}

func init() {
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSetCmd)
}
