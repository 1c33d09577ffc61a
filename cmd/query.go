package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"docdex/internal/retriever"
	"docdex/internal/store"
)

var (
	flagCollection     string
	flagMode           string
	flagNResults       int
	flagThreshold      float64
	flagChunkWeight    float64
	flagDocumentWeight float64
)

var queryCmd = &cobra.Command{
	Use:   "query <query-text> <store-path>",
	Short: "Search the vector store for similar documents and chunks",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		queryText, storePath := args[0], args[1]

		if err := validateBaseURL(flagBaseURL); err != nil {
			return reportValidation([]string{err.Error()})
		}
		mode, err := retriever.ParseMode(flagMode)
		if err != nil {
			return queryError(err)
		}

		st, err := store.Open(storePath)
		if err != nil {
			return queryError(fmt.Errorf("open store: %w", err))
		}
		defer st.Close()

		resp, err := retriever.New(newEmbedder(), st).Query(queryText, retriever.Options{
			Collection:     flagCollection,
			Mode:           mode,
			MaxResults:     flagNResults,
			Threshold:      flagThreshold,
			ChunkWeight:    flagChunkWeight,
			DocumentWeight: flagDocumentWeight,
		})
		if err != nil {
			return queryError(err)
		}

		payload, err := json.Marshal(resp)
		if err != nil {
			return err
		}
		fmt.Fprintln(os.Stdout, string(payload))
		return nil
	},
}

// queryError prints a JSON error object so callers always get parseable output.
func queryError(err error) error {
	payload, _ := json.Marshal(map[string]string{"error": err.Error()})
	fmt.Fprintln(os.Stdout, string(payload))
	return errSilent{err}
}

// errSilent signals a non-zero exit without a second error print.
type errSilent struct{ err error }

func (e errSilent) Error() string { return e.err.Error() }

func init() {
	queryCmd.Flags().StringVar(&flagCollection, "collection", store.DefaultCollection, "collection to search")
	queryCmd.Flags().StringVar(&flagMode, "mode", string(retriever.ModeBoth), "search mode: chunks, documents or both")
	queryCmd.Flags().IntVar(&flagNResults, "n-results", retriever.DefaultMaxResults, "maximum results to return")
	queryCmd.Flags().Float64Var(&flagThreshold, "threshold", retriever.DefaultThreshold, "minimum similarity to include a result")
	queryCmd.Flags().Float64Var(&flagChunkWeight, "chunk-weight", retriever.DefaultChunkWeight, "chunk ranking weight in both mode")
	queryCmd.Flags().Float64Var(&flagDocumentWeight, "document-weight", retriever.DefaultDocumentWeight, "document ranking weight in both mode")
	rootCmd.AddCommand(queryCmd)
}
