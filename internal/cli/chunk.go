package cli

import (
	"document-qa/internal/chunker"
	"document-qa/internal/helper"
	"document-qa/internal/models"
	"document-qa/internal/parser"

	"github.com/spf13/cobra"
)

type chunkDump struct {
	Documents []string       `json:"documents"`
	Chunks    []models.Chunk `json:"chunks"`
}

// chunkCmd is a dry run: parse and chunk without calling any provider.
func (a *app) chunkCmd() *cobra.Command {
	var (
		files      []string
		pages      pageFlags
		noSplitter bool
	)
	cmd := &cobra.Command{
		Use:   "chunk",
		Short: "Print the chunks extracted from the given files as JSON",
		RunE: func(cmd *cobra.Command, args []string) error {
			docs := make([]models.SourceDocument, 0, len(files))
			for _, f := range files {
				doc, err := parser.ParseFile(f)
				if err != nil {
					return userError(err)
				}
				docs = append(docs, doc)
			}

			opts, err := pages.apply(chunker.FromConfig(&a.cfg.RAG))
			if err != nil {
				return userError(err)
			}
			if noSplitter {
				opts.UseSplitter = false
			}

			chunks, names, err := chunker.GetChunks(docs, opts)
			if err != nil {
				return userError(err)
			}
			helper.PrettyPrint(cmd.OutOrStdout(), chunkDump{Documents: names, Chunks: chunks})
			return nil
		},
	}
	cmd.Flags().StringSliceVarP(&files, "file", "f", nil, "Document to chunk (repeatable)")
	pages.register(cmd)
	cmd.Flags().BoolVar(&noSplitter, "whole-pages", false, "Keep every page as a single chunk")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}
