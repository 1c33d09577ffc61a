package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"docdex/internal/store"
)

var initCmd = &cobra.Command{
	Use:   "init <store-path>",
	Short: "Create a vector store with the default collections",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := store.Open(args[0])
		if err != nil {
			return fmt.Errorf("open store: %w", err)
		}
		defer st.Close()

		for _, name := range []string{
			store.DefaultCollection + "_documents",
			store.DefaultCollection + "_chunks",
		} {
			if _, err := st.Collection(name); err != nil {
				return fmt.Errorf("create collection %s: %w", name, err)
			}
		}
		fmt.Fprintf(os.Stdout, "Initialized vector store at %s\n", st.Path())
		return nil
	},
}

func init() {
	rootCmd.AddCommand(initCmd)
}
