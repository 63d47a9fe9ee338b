// Package cli wires the docqa commands.
package cli

import (
	"fmt"
	"os"

	"document-qa/internal/chunker"
	"document-qa/internal/config"
	"document-qa/internal/helper"
	"document-qa/internal/parser"
	"document-qa/internal/session"

	"github.com/spf13/cobra"
)

const defaultConfigPath = "./configs/config.yaml"

type app struct {
	configPath string
	apiKey     string
	cfg        *config.Config
}

// NewRootCmd builds the docqa command tree. Without a subcommand it serves the web UI.
func NewRootCmd() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:   "docqa",
		Short: "Ask questions about your documents",
		Long: `docqa indexes uploaded documents per page and answers questions about them
with a chat model, citing the source pages.

Environment variables:
  DOCQA_API_KEY          default API key for the CLI commands
  DOCQA_PORT             port for the web UI
  DOCQA_OPENAI_BASE_URL  OpenAI compatible endpoint
  DOCQA_SENTRY_DSN       report failures to Sentry`,
		SilenceUsage:      true,
		PersistentPreRunE: a.load,
	}
	root.PersistentFlags().StringVar(&a.configPath, "config", defaultConfigPath, "Path to the YAML config file")
	root.PersistentFlags().StringVar(&a.apiKey, "api-key", "", "API key (overrides DOCQA_API_KEY)")

	serve := a.serveCmd()
	root.RunE = serve.RunE
	root.Flags().AddFlagSet(serve.Flags())

	root.AddCommand(serve, a.askCmd(), a.chunkCmd(), a.chatCmd())
	return root
}

func (a *app) load(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadConfig(a.configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	helper.SetupLogger(cfg.Log.Level, cfg.Log.Pretty)
	a.cfg = cfg
	return nil
}

func (a *app) key() string {
	if a.apiKey != "" {
		return a.apiKey
	}
	return a.cfg.ChatLLM.Key
}

// pageFlags are the page removal flags shared by the commands that read files.
type pageFlags struct {
	front int
	last  int
	trims []string
}

func (p *pageFlags) register(cmd *cobra.Command) {
	cmd.Flags().IntVar(&p.front, "front", 0, "Pages to drop from the start of every document")
	cmd.Flags().IntVar(&p.last, "last", 0, "Pages to drop from the end of every document")
	cmd.Flags().StringArrayVar(&p.trims, "trim", nil,
		"Pages to drop from one document as front:last, matched to --file by position (repeatable)")
}

// apply layers the flags over the configured options. Documents without a --trim entry
// fall back to --front/--last.
func (p *pageFlags) apply(opts chunker.Options) (chunker.Options, error) {
	if p.front > 0 || p.last > 0 {
		opts.RemovePages = true
		opts.FrontPagesToRemove = p.front
		opts.LastPagesToRemove = p.last
	}
	if len(p.trims) == 0 {
		return opts, nil
	}
	trims := make([]chunker.PageTrim, 0, len(p.trims))
	for _, v := range p.trims {
		t, err := chunker.ParseTrim(v)
		if err != nil {
			return opts, err
		}
		trims = append(trims, t)
	}
	opts.RemovePages = true
	opts.Trims = trims
	return opts, nil
}

// loadSession uploads files from disk into a fresh session.
func (a *app) loadSession(cmd *cobra.Command, files []string, pages *pageFlags) (*session.Session, error) {
	if len(files) == 0 {
		return nil, fmt.Errorf("at least one --file is required")
	}
	pipeline := session.NewPipeline(a.cfg)
	opts, err := pages.apply(pipeline.ChunkOptions)
	if err != nil {
		return nil, userError(err)
	}
	pipeline.ChunkOptions = opts

	uploads := make([]parser.Upload, 0, len(files))
	for _, f := range files {
		data, err := os.ReadFile(f)
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", f, err)
		}
		uploads = append(uploads, parser.Upload{FileName: f, Data: data})
	}

	s := session.New("cli", pipeline)
	if err := s.Upload(cmd.Context(), uploads, a.key()); err != nil {
		return nil, userError(err)
	}
	return s, nil
}

// userError keeps the cause for logs but leads with the message a user can act on.
func userError(err error) error {
	return fmt.Errorf("%s: %w", session.UserMessage(err), err)
}
