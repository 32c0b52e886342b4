package cmd

import (
	"context"
	"errors"
	"io"
	"io/fs"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/telekom/csv-mailer/pkg/config"
	"github.com/telekom/csv-mailer/pkg/dispatch"
	"github.com/telekom/csv-mailer/pkg/mail"
	"github.com/telekom/csv-mailer/pkg/system"
)

type Config struct {
	// ConfigPath is the YAML file; empty tries config.DefaultConfigPath.
	ConfigPath   string
	EnvFile      string
	OutputWriter io.Writer
	// Logger overrides the stderr logger built from --verbose.
	Logger *zap.Logger
	// NewSender overrides provider selection.
	NewSender func(config.Mail, *zap.SugaredLogger) mail.Sender
	// DispatchOptions are passed to every dispatcher.
	DispatchOptions []dispatch.Option
}

type runtimeState struct {
	configPath      string
	envFile         string
	outputFormat    string
	verbose         bool
	writer          io.Writer
	logger          *zap.Logger
	cfg             *config.Config
	newSender       func(config.Mail, *zap.SugaredLogger) mail.Sender
	dispatchOptions []dispatch.Option
}

type runtimeKey struct{}

func DefaultConfig() Config {
	return Config{
		EnvFile:      ".env",
		OutputWriter: os.Stdout,
		NewSender:    mail.NewSender,
	}
}

func NewRootCommand(cfg Config) *cobra.Command {
	rt := &runtimeState{
		configPath:      cfg.ConfigPath,
		envFile:         cfg.EnvFile,
		writer:          cfg.OutputWriter,
		logger:          cfg.Logger,
		newSender:       cfg.NewSender,
		dispatchOptions: cfg.DispatchOptions,
	}

	root := &cobra.Command{
		Use:           "mailctl",
		Short:         "Extract addresses from CSV files and send bulk email",
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if rt.writer == nil {
				rt.writer = os.Stdout
			}
			if rt.newSender == nil {
				rt.newSender = mail.NewSender
			}
			if rt.outputFormat == "" {
				rt.outputFormat = os.Getenv("MAILCTL_OUTPUT")
			}
			if !rt.verbose {
				rt.verbose = strings.EqualFold(os.Getenv("MAILCTL_VERBOSE"), "true")
			}
			if rt.logger == nil {
				rt.logger = system.NewLogger(rt.verbose)
			}
			// Only send needs provider configuration.
			if cmd.Name() != "send" {
				return nil
			}
			return rt.loadConfig()
		},
	}

	root.PersistentFlags().StringVar(&rt.configPath, "config", rt.configPath, "Path to config file (default ./config.yaml if present)")
	root.PersistentFlags().StringVar(&rt.envFile, "env-file", rt.envFile, "Path to a .env file; missing files are ignored")
	root.PersistentFlags().StringVarP(&rt.outputFormat, "output", "o", "", "Output format: text, json, yaml")
	root.PersistentFlags().BoolVarP(&rt.verbose, "verbose", "v", false, "Enable debug logging")

	root.SetContext(context.WithValue(context.Background(), runtimeKey{}, rt))

	root.AddCommand(
		NewExtractCommand(),
		NewSendCommand(),
		NewCompletionCommand(),
		NewVersionCommand(),
	)

	return root
}

func getRuntime(cmd *cobra.Command) (*runtimeState, error) {
	rt, ok := cmd.Context().Value(runtimeKey{}).(*runtimeState)
	if !ok || rt == nil {
		return nil, errors.New("runtime not initialized")
	}
	return rt, nil
}

func (rt *runtimeState) loadConfig() error {
	if rt.cfg != nil {
		return nil
	}
	if rt.envFile != "" {
		if err := godotenv.Load(rt.envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return err
		}
	}
	cfg, err := config.Load(rt.configPath)
	if err != nil {
		return err
	}
	rt.cfg = &cfg
	return nil
}

func (rt *runtimeState) Writer() io.Writer {
	if rt.writer != nil {
		return rt.writer
	}
	return os.Stdout
}

func (rt *runtimeState) Log() *zap.SugaredLogger {
	if rt.logger == nil {
		return zap.NewNop().Sugar()
	}
	return rt.logger.Sugar()
}
