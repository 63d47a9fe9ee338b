package cli

import (
	"context"

	"document-qa/internal/models"
	"document-qa/internal/session"
	"document-qa/internal/tui"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
)

type sessionAsker struct {
	session *session.Session
	apiKey  string
}

func (s sessionAsker) Ask(ctx context.Context, question string, mode models.PromptMode, temperature float64) (*models.PromptResponse, error) {
	return s.session.Ask(ctx, question, mode, temperature, s.apiKey)
}

func (a *app) chatCmd() *cobra.Command {
	var (
		files []string
		pages pageFlags
	)
	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Load the given files and ask questions in the terminal",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := a.loadSession(cmd, files, &pages)
			if err != nil {
				return err
			}
			m := tui.New(sessionAsker{session: s, apiKey: a.key()}, s.DocNames(), a.cfg.RAG.DefaultQuery)
			_, err = tea.NewProgram(m).Run()
			return err
		},
	}
	cmd.Flags().StringSliceVarP(&files, "file", "f", nil, "Document to load (repeatable)")
	pages.register(cmd)
	_ = cmd.MarkFlagRequired("file")
	return cmd
}
