package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"docdex/internal/pipeline"
)

var flagIncludeText bool

var embedCmd = &cobra.Command{
	Use:   "embed",
	Short: "Embed a document without storing it",
}

var embedDocumentCmd = &cobra.Command{
	Use:   "document <content-file>",
	Short: "Print the document-level embedding payload",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		doc, err := embedFromFile(args[0])
		if err != nil {
			return err
		}
		return printSuccess(doc.DocumentPayload(flagIncludeText))
	},
}

var embedChunksCmd = &cobra.Command{
	Use:   "chunks <content-file>",
	Short: "Print the per-chunk embedding payloads",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		doc, err := embedFromFile(args[0])
		if err != nil {
			return err
		}
		return printSuccess(doc.ChunkPayloads(flagIncludeText))
	},
}

func embedFromFile(contentFile string) (*pipeline.DocumentEmbedding, error) {
	problems := validateChunkFlags()
	if err := validateBaseURL(flagBaseURL); err != nil {
		problems = append(problems, err.Error())
	}
	text, fileProblems := readContentFile(contentFile)
	problems = append(problems, fileProblems...)
	if len(problems) > 0 {
		return nil, reportValidation(problems)
	}

	doc, err := pipeline.EmbedDocument(text, newEmbedder(), pipeline.Config{
		ChunkSize:    flagChunkSize,
		ChunkOverlap: flagChunkOverlap,
		MaxWorkers:   flagMaxWorkers,
	}, newLogSink())
	if err != nil {
		return nil, fmt.Errorf("embedding failed: %w", err)
	}
	return doc, nil
}

func printSuccess(v any) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return err
	}
	fmt.Fprintf(os.Stdout, "SUCCESS:%s\n", payload)
	return nil
}

func init() {
	for _, c := range []*cobra.Command{embedDocumentCmd, embedChunksCmd} {
		addChunkFlags(c)
		c.Flags().BoolVar(&flagIncludeText, "include-text", true, "include source text in the payload")
		embedCmd.AddCommand(c)
	}
	rootCmd.AddCommand(embedCmd)
}
