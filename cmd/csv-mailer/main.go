package main

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/telekom/csv-mailer/pkg/api"
	"github.com/telekom/csv-mailer/pkg/audit"
	"github.com/telekom/csv-mailer/pkg/cli"
	"github.com/telekom/csv-mailer/pkg/config"
	"github.com/telekom/csv-mailer/pkg/mail"
	"github.com/telekom/csv-mailer/pkg/mailer"
	"github.com/telekom/csv-mailer/pkg/system"
	"github.com/telekom/csv-mailer/pkg/version"
)

func main() {
	flags := cli.Parse()

	zl := system.NewLogger(flags.Debug)
	defer func() { _ = zl.Sync() }()
	log := zl.Sugar()
	log.With("version", version.Version, "commit", version.GitCommit).Info("Starting csv-mailer")
	flags.Print(log)

	if err := loadEnvFile(flags.EnvFile); err != nil {
		log.Fatalf("Error loading env file %s: %v", flags.EnvFile, err)
	}

	cfg, err := config.Load(flags.ConfigPath)
	if err != nil {
		log.Fatalf("Error loading config: %v", err)
	}
	flags.Apply(&cfg)

	server, sink, err := buildServer(zl, cfg, flags.Debug)
	if err != nil {
		log.Fatalf("Error building server: %v", err)
	}
	defer func() {
		server.Close()
		if err := sink.Close(); err != nil {
			log.Warnw("Error closing audit sinks", "error", err)
		}
	}()
	server.SetShutdownTimeout(cli.ParseShutdownTimeout(flags.ShutdownTimeout, log))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := server.Listen(ctx); err != nil {
		log.Errorw("Server stopped with error", "error", err)
	}
}

// loadEnvFile loads KEY=value pairs into the environment without overriding
// variables that are already set. A missing file is not an error.
func loadEnvFile(path string) error {
	if path == "" {
		return nil
	}
	if err := godotenv.Load(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}

// buildSink always logs audit events and additionally publishes them to
// Kafka when configured.
func buildSink(zl *zap.Logger, cfg config.Audit) (*audit.MultiSink, error) {
	sinks := []audit.Sink{audit.NewLogSink(zl)}
	if cfg.KafkaEnabled() {
		kafkaSink, err := audit.NewKafkaSink(cfg.Kafka, zl)
		if err != nil {
			return nil, err
		}
		sinks = append(sinks, kafkaSink)
	}
	return audit.NewMultiSink(zl, sinks...), nil
}

func buildServer(zl *zap.Logger, cfg config.Config, debug bool) (*api.Server, *audit.MultiSink, error) {
	log := zl.Sugar()

	if err := mail.Check(cfg.Mail); err != nil {
		log.Warnw("Mail provider is not usable; every send will be reported as failed",
			"provider", cfg.Mail.Provider,
			"error", err)
	}
	sender := mail.NewSender(cfg.Mail, log)

	sink, err := buildSink(zl, cfg.Audit)
	if err != nil {
		return nil, nil, err
	}

	server := api.NewServer(zl, cfg, debug)
	err = server.RegisterAll([]api.APIController{
		mailer.NewSendController(log, func() mail.Sender { return sender }, sink),
		mailer.NewExtractController(log, cfg.Server.MaxUploadBytes),
	})
	if err != nil {
		server.Close()
		_ = sink.Close()
		return nil, nil, err
	}

	log.Infow("Server configured",
		"provider", sender.Name(),
		"listenAddress", cfg.Server.ListenAddress,
		"auditSinks", sink.Sinks())
	return server, sink, nil
}
