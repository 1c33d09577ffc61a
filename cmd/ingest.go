package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"docdex/internal/pipeline"
	"docdex/internal/store"
)

var (
	flagChunkSize    int
	flagChunkOverlap int
	flagMaxWorkers   int
)

// ingestResult is the machine-readable success payload.
type ingestResult struct {
	DocumentID  string   `json:"document_id"`
	Source      string   `json:"source"`
	Collections []string `json:"collections"`
	Chunks      int      `json:"chunks"`
	Duration    float64  `json:"duration"`
}

var ingestCmd = &cobra.Command{
	Use:   "ingest <content-file> <collection> <source-path> <document-id> <store-path>",
	Short: "Embed a document and write it into the vector store",
	Args:  cobra.ExactArgs(5),
	RunE: func(cmd *cobra.Command, args []string) error {
		contentFile, collection, sourcePath, documentID, storePath := args[0], args[1], args[2], args[3], args[4]

		problems := validateChunkFlags()
		if err := validateBaseURL(flagBaseURL); err != nil {
			problems = append(problems, err.Error())
		}
		if documentID == "" {
			problems = append(problems, "document id must not be empty")
		}
		text, fileProblems := readContentFile(contentFile)
		problems = append(problems, fileProblems...)
		if len(problems) > 0 {
			return reportValidation(problems)
		}

		sink := newLogSink()
		start := time.Now()
		doc, err := pipeline.EmbedDocument(text, newEmbedder(), pipeline.Config{
			ChunkSize:    flagChunkSize,
			ChunkOverlap: flagChunkOverlap,
			MaxWorkers:   flagMaxWorkers,
		}, sink)
		if err != nil {
			return fmt.Errorf("embedding failed: %w", err)
		}

		st, err := store.Open(storePath)
		if err != nil {
			return fmt.Errorf("open store: %w", err)
		}
		defer st.Close()

		names, err := st.UpsertDocument(toRecord(doc, documentID, sourcePath), collection, sink)
		if err != nil {
			return fmt.Errorf("store document: %w", err)
		}

		payload, err := json.Marshal(ingestResult{
			DocumentID:  documentID,
			Source:      sourcePath,
			Collections: names,
			Chunks:      len(doc.Chunks),
			Duration:    time.Since(start).Seconds(),
		})
		if err != nil {
			return err
		}
		fmt.Fprintf(os.Stdout, "SUCCESS:%s\n", payload)
		return nil
	},
}

// toRecord converts a pipeline result into the store's input form.
func toRecord(doc *pipeline.DocumentEmbedding, documentID, sourcePath string) store.DocumentRecord {
	dp := doc.DocumentPayload(true)
	rec := store.DocumentRecord{
		ID:     documentID,
		Source: sourcePath,
		Text:   doc.Text,
		Embedding: store.Embedded{
			Values:    dp.Embedding,
			Duration:  dp.Duration,
			CreatedAt: dp.CreatedAt,
		},
		Chunks: make([]store.ChunkRecord, len(doc.Chunks)),
	}
	for i, cp := range doc.ChunkPayloads(true) {
		rec.Chunks[i] = store.ChunkRecord{
			Index:     cp.ChunkID,
			StartLine: cp.StartLine,
			EndLine:   cp.EndLine,
			Text:      cp.Text,
			Embedding: store.Embedded{
				Values:    cp.Embedding,
				Duration:  cp.Duration,
				CreatedAt: cp.CreatedAt,
			},
		}
	}
	return rec
}

// validateChunkFlags checks the shared chunking/parallelism flags.
func validateChunkFlags() []string {
	var problems []string
	if flagChunkSize < 1 {
		problems = append(problems, fmt.Sprintf("chunk size must be at least 1, got %d", flagChunkSize))
	}
	if flagChunkOverlap < 0 || flagChunkOverlap >= flagChunkSize {
		problems = append(problems, fmt.Sprintf("chunk overlap must be non-negative and smaller than chunk size, got %d", flagChunkOverlap))
	}
	if flagMaxWorkers < 1 || flagMaxWorkers > pipeline.MaxWorkersLimit {
		problems = append(problems, fmt.Sprintf("max workers must be between 1 and %d, got %d", pipeline.MaxWorkersLimit, flagMaxWorkers))
	}
	return problems
}

func addChunkFlags(cmd *cobra.Command) {
	cmd.Flags().IntVar(&flagChunkSize, "chunk-size", pipeline.DefaultChunkSize, "lines per chunk")
	cmd.Flags().IntVar(&flagChunkOverlap, "chunk-overlap", pipeline.DefaultChunkOverlap, "lines shared between neighboring chunks")
	cmd.Flags().IntVar(&flagMaxWorkers, "max-workers", pipeline.DefaultMaxWorkers, "parallel embedding requests")
}

func init() {
	addChunkFlags(ingestCmd)
	rootCmd.AddCommand(ingestCmd)
}
