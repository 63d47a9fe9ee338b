package cli

import (
	"fmt"
	"strings"

	"document-qa/internal/models"
	"document-qa/internal/rag"

	"github.com/spf13/cobra"
)

func (a *app) askCmd() *cobra.Command {
	var (
		files       []string
		pages       pageFlags
		query       string
		mode        string
		temperature float64
	)
	cmd := &cobra.Command{
		Use:   "ask",
		Short: "Answer one question about the given files",
		RunE: func(cmd *cobra.Command, args []string) error {
			if strings.TrimSpace(query) == "" {
				query = a.cfg.RAG.DefaultQuery
			}
			pm, err := models.ParsePromptMode(mode)
			if err != nil {
				return userError(err)
			}
			if err := rag.ValidateTemperature(temperature); err != nil {
				return userError(err)
			}

			s, err := a.loadSession(cmd, files, &pages)
			if err != nil {
				return err
			}
			resp, err := s.Ask(cmd.Context(), query, pm, temperature, a.key())
			if err != nil {
				return userError(err)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Query:\n%s\n\n", resp.Query)
			fmt.Fprintf(out, "Answer:\n%s\n\n", resp.Answer)
			fmt.Fprintln(out, "Sources:")
			for _, src := range resp.Sources {
				fmt.Fprintf(out, "%s\n\n", rag.FormatSource(src))
			}
			return nil
		},
	}
	cmd.Flags().StringSliceVarP(&files, "file", "f", nil, "Document to load (repeatable)")
	cmd.Flags().StringVarP(&query, "query", "q", "", "Question to ask (defaults to the configured prompt)")
	cmd.Flags().StringVar(&mode, "mode", string(models.PromptModeRestricted), "Prompt mode: Restricted or Creative")
	cmd.Flags().Float64Var(&temperature, "temperature", 0, "Sampling temperature between 0.0 and 2.0")
	pages.register(cmd)
	return cmd
}
