// Command raincli predicts tomorrow's rain from the terminal with the same
// model, schema and wording as the web form.
package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"raincast/internal/bootstrap"
	"raincast/internal/config"
	"raincast/internal/i18n"
	"raincast/internal/model"
	"raincast/internal/types"
)

func main() {
	if err := newRootCmd().ExecuteContext(context.Background()); err != nil {
		os.Exit(exitCode(err))
	}
}

// Exit codes: 2 for rejected input, 3 when no model could be loaded, 1 for
// anything else.
func exitCode(err error) int {
	code := types.CodeOf(err)
	switch {
	case code == "":
		return 0
	case strings.HasPrefix(string(code), "validation_"):
		return 2
	case code == types.ErrCodeModelUnavailable:
		return 3
	default:
		return 1
	}
}

// rootOptions are the persistent flags shared by every subcommand.
type rootOptions struct {
	lang      string
	modelPath string
	verbose   bool
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	root := &cobra.Command{
		Use:   "raincli",
		Short: "Raincast - rain prediction for Australian weather stations",
		Long: `raincli runs the Raincast model on one set of weather readings and
prints whether rain is expected tomorrow, with the probability, a confidence
bar and an advisory.

Configuration is read from the environment (and .env) like the server.`,
		SilenceUsage: true,
	}

	root.PersistentFlags().StringVar(&opts.lang, "lang", "", "display language (en, uk); defaults to DEFAULT_LANGUAGE")
	root.PersistentFlags().StringVar(&opts.modelPath, "model", "", "local model artifact; overrides MODEL_BACKEND and MODEL_PATH")
	root.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "log loading details to stderr")

	root.AddCommand(newSchemaCmd(opts))
	root.AddCommand(newPredictCmd(opts))
	root.AddCommand(newCheckModelCmd(opts))
	return root
}

// session is the loaded state a subcommand works with.
type session struct {
	cfg    *config.Config
	loc    *i18n.Localizer
	logger *slog.Logger
}

func (o *rootOptions) open(cmd *cobra.Command) (*session, error) {
	cfg, err := config.LoadConfig(nil)
	if err != nil {
		return nil, fmt.Errorf("loading configuration: %w", err)
	}
	if o.modelPath != "" {
		// Relative paths are taken from the working directory.
		cfg.Model.Backend = config.BackendLocal
		cfg.Model.Path = o.modelPath
		cfg.Model.BaseDir = "."
	}

	languages, err := i18n.NewBundle(cfg.I18n.DefaultLanguage)
	if err != nil {
		return nil, fmt.Errorf("loading message catalogs: %w", err)
	}

	return &session{
		cfg:    cfg,
		loc:    languages.Localizer(languages.Negotiate(o.lang, "")),
		logger: o.newLogger(cmd.ErrOrStderr()),
	}, nil
}

func (o *rootOptions) newLogger(w io.Writer) *slog.Logger {
	lvl := slog.LevelError
	if o.verbose {
		lvl = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: lvl}))
}

func (s *session) loadModel(ctx context.Context) *model.Handle {
	h, _ := bootstrap.LoadModel(ctx, s.cfg, s.logger)
	return h
}
