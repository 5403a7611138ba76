package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/jiwoo-ai/jiwoo/internal/ingest"
	"github.com/jiwoo-ai/jiwoo/internal/llm"
)

var (
	sourceURL string
	chunkSize int
)

var ingestCmd = &cobra.Command{
	Use:   "ingest [file...]",
	Short: "Split text files into chunks, embed them and store them in the index",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := configFrom(cmd)
		if sourceURL != "" && len(args) > 1 {
			return fmt.Errorf("--url applies to a single file, got %d", len(args))
		}

		idx, pool, err := openIndex(cmd)
		if err != nil {
			return err
		}
		defer pool.Close()

		if err := idx.EnsureCollection(cmd.Context()); err != nil {
			return err
		}

		provider, err := llm.NewProvider(cmd.Context(), cfg.LLM, cfg.Index.Dimension)
		if err != nil {
			return err
		}
		if c, ok := provider.(io.Closer); ok {
			defer c.Close()
		}

		loader := ingest.NewLoader(provider, idx, ingest.NewSplitter(chunkSize), cfg.Timeouts.Embed)
		for _, path := range args {
			n, err := loader.LoadFile(cmd.Context(), path, sourceURL)
			if err != nil {
				return fmt.Errorf("ingesting %s after %d chunks: %w", path, n, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: %d chunks\n", path, n)
		}
		return nil
	},
}

func init() {
	RootCmd.AddCommand(ingestCmd)
	ingestCmd.Flags().StringVar(&sourceURL, "url", "", "Source URL recorded for the chunks (defaults to file://<path>)")
	ingestCmd.Flags().IntVar(&chunkSize, "chunk-size", ingest.DefaultChunkSize, "Maximum characters per chunk")
}
