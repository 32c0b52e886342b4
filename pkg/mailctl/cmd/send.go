package cmd

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/telekom/csv-mailer/pkg/audit"
	"github.com/telekom/csv-mailer/pkg/dispatch"
	"github.com/telekom/csv-mailer/pkg/extract"
	"github.com/telekom/csv-mailer/pkg/mail"
	"github.com/telekom/csv-mailer/pkg/mailctl/output"
)

// ErrSendFailures is returned when at least one recipient failed, so the
// process exits non-zero.
var ErrSendFailures = errors.New("some emails failed to send")

type sendOptions struct {
	csvPath  string
	subject  string
	body     string
	bodyFile string
	provider string
	dryRun   bool
}

func NewSendCommand() *cobra.Command {
	opts := &sendOptions{}

	cmd := &cobra.Command{
		Use:   "send",
		Short: "Send a message to every address in a CSV file",
		Long: "Extracts the addresses from --csv, validates them and sends the message in batches of " +
			fmt.Sprint(dispatch.DefaultBatchSize) + " with the configured provider.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			rt, err := getRuntime(cmd)
			if err != nil {
				return err
			}
			return runSend(cmd, rt, opts)
		},
	}

	cmd.Flags().StringVar(&opts.csvPath, "csv", "", "CSV file to read addresses from")
	cmd.Flags().StringVar(&opts.subject, "subject", "", "Message subject")
	cmd.Flags().StringVar(&opts.body, "body", "", "Message body (plain text)")
	cmd.Flags().StringVar(&opts.bodyFile, "body-file", "", "Read the message body from a file")
	cmd.Flags().StringVar(&opts.provider, "provider", "", "Override EMAIL_PROVIDER: sendgrid, resend, gmail, smtp, log")
	cmd.Flags().BoolVar(&opts.dryRun, "dry-run", false, "Log messages instead of sending them")
	_ = cmd.MarkFlagRequired("csv")
	_ = cmd.MarkFlagRequired("subject")
	_ = cmd.MarkFlagFilename("csv", "csv", "txt")
	_ = cmd.MarkFlagFilename("body-file")
	cmd.MarkFlagsMutuallyExclusive("body", "body-file")
	cmd.MarkFlagsOneRequired("body", "body-file")

	return cmd
}

func runSend(cmd *cobra.Command, rt *runtimeState, opts *sendOptions) error {
	format, err := output.ParseFormat(rt.outputFormat)
	if err != nil {
		return err
	}
	if err := rt.loadConfig(); err != nil {
		return err
	}
	log := rt.Log()

	body := opts.body
	if opts.bodyFile != "" {
		data, err := os.ReadFile(opts.bodyFile)
		if err != nil {
			return fmt.Errorf("reading body file: %w", err)
		}
		body = string(data)
	}
	if strings.TrimSpace(opts.subject) == "" {
		return errors.New("subject is required")
	}
	if strings.TrimSpace(body) == "" {
		return errors.New("message body is required")
	}

	res, err := readAddresses(opts.csvPath)
	if err != nil {
		return err
	}
	if res.Count() == 0 {
		return fmt.Errorf("no email addresses found in %s", opts.csvPath)
	}
	if invalid := extract.Invalid(res.Emails); len(invalid) > 0 {
		return fmt.Errorf("invalid email addresses: %s", strings.Join(invalid, ", "))
	}

	mailCfg := rt.cfg.Mail
	if opts.provider != "" {
		mailCfg.Provider = strings.ToLower(opts.provider)
	}
	if opts.dryRun {
		mailCfg.Provider = string(mail.ProviderLog)
	}
	sender := rt.newSender(mailCfg, log)

	result := dispatch.New(sender, log, rt.dispatchOptions...).Dispatch(cmd.Context(), res.Emails, opts.subject, body)

	sink := audit.NewMultiSink(rt.logger, auditSinks(rt)...)
	defer func() {
		if err := sink.Close(); err != nil {
			log.Warnw("Error closing audit sinks", "error", err)
		}
	}()
	event := audit.NewEvent(audit.EventDispatchCompleted, audit.SourceCLI)
	event.Provider = sender.Name()
	event.Subject = opts.subject
	event.Recipients = res.Count()
	event.Successful = result.Successful
	event.Failed = result.Failed
	event.Batches = result.Batches
	event.DurationMs = result.Duration.Milliseconds()
	if err := sink.Write(cmd.Context(), event); err != nil {
		log.Warnw("Failed to write audit event", "sink", sink.Name(), "error", err)
	}

	summary := output.SendSummary{
		Provider:         sender.Name(),
		Recipients:       res.Count(),
		Successful:       result.Successful,
		Failed:           result.Failed,
		Batches:          result.Batches,
		DurationMs:       result.Duration.Milliseconds(),
		FailedRecipients: result.FailedRecipients,
	}
	if format == output.FormatText {
		output.WriteSendTable(rt.Writer(), summary)
	} else if err := output.WriteObject(rt.Writer(), format, summary); err != nil {
		return err
	}

	if result.Failed > 0 {
		return fmt.Errorf("%w: %d of %d", ErrSendFailures, result.Failed, res.Count())
	}
	return nil
}

func auditSinks(rt *runtimeState) []audit.Sink {
	sinks := []audit.Sink{audit.NewLogSink(rt.logger)}
	if rt.cfg.Audit.KafkaEnabled() {
		kafkaSink, err := audit.NewKafkaSink(rt.cfg.Audit.Kafka, rt.logger)
		if err != nil {
			rt.Log().Warnw("Kafka audit sink disabled", "error", err)
			return sinks
		}
		sinks = append(sinks, kafkaSink)
	}
	return sinks
}
