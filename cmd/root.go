package cmd

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"docdex/internal/embedder"
	"docdex/internal/logsink"
)

var (
	flagBaseURL string
	flagModel   string
	flagLogPath string
	flagTimeout int
)

var rootCmd = &cobra.Command{
	Use:           "docdex",
	Short:         "Ingest documents into a local vector store and query them semantically",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		// Optional .env for OLLAMA_BASE_URL / DOCDEX_MODEL; flags win.
		_ = godotenv.Load()
		if !cmd.Flags().Changed("base-url") {
			if v := os.Getenv("OLLAMA_BASE_URL"); v != "" {
				flagBaseURL = v
			}
		}
		if !cmd.Flags().Changed("model") {
			if v := os.Getenv("DOCDEX_MODEL"); v != "" {
				flagModel = v
			}
		}
	},
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		// Errors marked silent already produced their own output.
		if _, ok := err.(errSilent); !ok {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagBaseURL, "base-url", "http://localhost:11434", "embedding service base URL")
	rootCmd.PersistentFlags().StringVar(&flagModel, "model", "nomic-embed-text", "embedding model")
	rootCmd.PersistentFlags().StringVar(&flagLogPath, "log-path", "", "append-only operation log file")
	rootCmd.PersistentFlags().IntVar(&flagTimeout, "timeout", 120, "embedding request timeout in seconds")
}

// validateBaseURL enforces an explicit scheme so typos fail before any
// network call.
func validateBaseURL(u string) error {
	if !strings.HasPrefix(u, "http://") && !strings.HasPrefix(u, "https://") {
		return fmt.Errorf("base URL must start with http:// or https://, got %q", u)
	}
	return nil
}

func newEmbedder() *embedder.Client {
	return embedder.New(flagBaseURL, flagModel, time.Duration(flagTimeout)*time.Second, newLogSink())
}

func newLogSink() logsink.Sink {
	return logsink.NewFileSink(flagLogPath)
}

// readContentFile loads a document, rejecting unreadable or empty input
// before anything else runs.
func readContentFile(path string) (string, []string) {
	var problems []string
	data, err := os.ReadFile(path)
	if err != nil {
		return "", append(problems, fmt.Sprintf("failed to read content file: %v", err))
	}
	text := string(data)
	if strings.TrimSpace(text) == "" {
		problems = append(problems, fmt.Sprintf("content file %s is empty", path))
	}
	return text, problems
}

// reportValidation prints each problem to stderr and returns a terse error
// for the non-zero exit.
func reportValidation(problems []string) error {
	for _, p := range problems {
		fmt.Fprintf(os.Stderr, "ERROR:%s\n", p)
	}
	return fmt.Errorf("%d validation error(s)", len(problems))
}
