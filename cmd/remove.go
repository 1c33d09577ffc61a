package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"docdex/internal/store"
)

var removeCollection string

var removeCmd = &cobra.Command{
	Use:   "remove <source-path> <store-path>",
	Short: "Delete every document and chunk ingested from a source path",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		sourcePath, storePath := args[0], args[1]

		st, err := store.Open(storePath)
		if err != nil {
			return fmt.Errorf("open store: %w", err)
		}
		defer st.Close()

		removed, err := st.DeleteBySource(sourcePath, removeCollection)
		if err != nil {
			return fmt.Errorf("delete by source: %w", err)
		}
		payload, err := json.Marshal(map[string]any{
			"source":  sourcePath,
			"removed": removed,
		})
		if err != nil {
			return err
		}
		fmt.Fprintf(os.Stdout, "SUCCESS:%s\n", payload)
		return nil
	},
}

func init() {
	removeCmd.Flags().StringVar(&removeCollection, "collection", store.DefaultCollection, "collection the source was ingested into")
	rootCmd.AddCommand(removeCmd)
}
