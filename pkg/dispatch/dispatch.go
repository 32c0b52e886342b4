package dispatch

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/telekom/csv-mailer/pkg/mail"
	"github.com/telekom/csv-mailer/pkg/metrics"
)

const (
	DefaultBatchSize = 10
	DefaultDelay     = 1000 * time.Millisecond
)

const (
	OutcomeSuccess = "success"
	OutcomePartial = "partial"
	OutcomeFailed  = "failed"
)

// Result is the tally of one run.
type Result struct {
	Successful int
	Failed     int
	Batches    int
	// FailedRecipients keeps input order.
	FailedRecipients []string
	Duration         time.Duration
}

// Total is the number of addresses attempted.
func (r Result) Total() int {
	return r.Successful + r.Failed
}

// Outcome classifies the run for metrics and audit.
func (r Result) Outcome() string {
	switch {
	case r.Failed == 0:
		return OutcomeSuccess
	case r.Successful == 0:
		return OutcomeFailed
	default:
		return OutcomePartial
	}
}

type Option func(*Dispatcher)

// WithBatchSize overrides DefaultBatchSize. Values below 1 are ignored.
func WithBatchSize(n int) Option {
	return func(d *Dispatcher) {
		if n > 0 {
			d.batchSize = n
		}
	}
}

// WithDelay overrides DefaultDelay.
func WithDelay(delay time.Duration) Option {
	return func(d *Dispatcher) {
		d.delay = delay
	}
}

// WithWait replaces the function used to pause between batches.
func WithWait(wait func(time.Duration)) Option {
	return func(d *Dispatcher) {
		if wait != nil {
			d.wait = wait
		}
	}
}

type Dispatcher struct {
	sender    mail.Sender
	log       *zap.SugaredLogger
	batchSize int
	delay     time.Duration
	wait      func(time.Duration)
}

func New(sender mail.Sender, log *zap.SugaredLogger, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		sender:    sender,
		log:       log,
		batchSize: DefaultBatchSize,
		delay:     DefaultDelay,
		wait:      time.Sleep,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Dispatch sends subject/body to every address and returns the tally. The run
// is not cancelable: ctx only contributes its values, so a client hanging up
// mid-run does not cut the remaining batches short.
func (d *Dispatcher) Dispatch(ctx context.Context, emails []string, subject, body string) Result {
	ctx = context.WithoutCancel(ctx)
	start := time.Now()

	var res Result
	for offset := 0; offset < len(emails); offset += d.batchSize {
		if offset > 0 {
			d.wait(d.delay)
		}
		end := min(offset+d.batchSize, len(emails))
		batch := emails[offset:end]
		res.Batches++
		metrics.DispatchBatches.Inc()

		errs := d.sendBatch(ctx, batch, subject, body)
		for i, err := range errs {
			if err != nil {
				res.Failed++
				res.FailedRecipients = append(res.FailedRecipients, batch[i])
				d.log.Warnw("Failed to send email",
					"provider", d.sender.Name(),
					"recipient", batch[i],
					"batch", res.Batches,
					"error", err)
				continue
			}
			res.Successful++
		}
		d.log.Debugw("Batch completed",
			"batch", res.Batches,
			"size", len(batch),
			"successful", res.Successful,
			"failed", res.Failed)
	}

	res.Duration = time.Since(start)
	metrics.DispatchRuns.WithLabelValues(res.Outcome()).Inc()
	metrics.DispatchDuration.Observe(res.Duration.Seconds())
	d.log.Infow("Dispatch completed",
		"provider", d.sender.Name(),
		"recipients", len(emails),
		"successful", res.Successful,
		"failed", res.Failed,
		"batches", res.Batches,
		"duration", res.Duration)
	return res
}

// sendBatch returns one error slot per address. Each goroutine writes only
// its own slot and the slice is read after the join.
func (d *Dispatcher) sendBatch(ctx context.Context, batch []string, subject, body string) []error {
	errs := make([]error, len(batch))
	var g errgroup.Group
	for i, addr := range batch {
		g.Go(func() error {
			defer func() {
				if r := recover(); r != nil {
					errs[i] = fmt.Errorf("panic sending to %s: %v", addr, r)
				}
			}()
			errs[i] = d.sender.Send(ctx, mail.NewMessage(addr, subject, body))
			return nil
		})
	}
	_ = g.Wait()
	return errs
}
