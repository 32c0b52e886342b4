package dispatch

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"

	"github.com/telekom/csv-mailer/pkg/mail"
	"github.com/telekom/csv-mailer/pkg/metrics"
	"github.com/telekom/csv-mailer/pkg/system"
)

func addresses(n int) []string {
	out := make([]string, n)
	for i := range out {
		out[i] = fmt.Sprintf("user%02d@example.com", i)
	}
	return out
}

// recordWait records every pause instead of sleeping.
type recordWait struct {
	calls []time.Duration
}

func (r *recordWait) wait(d time.Duration) {
	r.calls = append(r.calls, d)
}

// gateSender holds every send of a batch until the whole batch has started,
// so sends only complete if a batch really runs concurrently.
type gateSender struct {
	batchSize int
	index     map[string]int
	releases  []chan struct{}

	mu          sync.Mutex
	started     []int
	inFlight    int
	maxInFlight int
	events      []gateEvent
}

type gateEvent struct {
	batch int
	start bool
}

func newGateSender(emails []string, batchSize int) *gateSender {
	g := &gateSender{batchSize: batchSize, index: make(map[string]int, len(emails))}
	for i, e := range emails {
		g.index[e] = i
	}
	batches := (len(emails) + batchSize - 1) / batchSize
	g.releases = make([]chan struct{}, batches)
	for i := range g.releases {
		g.releases[i] = make(chan struct{})
	}
	g.started = make([]int, batches)
	return g
}

func (g *gateSender) batchLen(batch int) int {
	return min(g.batchSize, len(g.index)-batch*g.batchSize)
}

func (g *gateSender) Send(_ context.Context, msg mail.Message) error {
	batch := g.index[msg.To] / g.batchSize

	g.mu.Lock()
	g.inFlight++
	g.maxInFlight = max(g.maxInFlight, g.inFlight)
	g.events = append(g.events, gateEvent{batch: batch, start: true})
	g.started[batch]++
	if g.started[batch] == g.batchLen(batch) {
		close(g.releases[batch])
	}
	g.mu.Unlock()

	var err error
	select {
	case <-g.releases[batch]:
	case <-time.After(2 * time.Second):
		err = errors.New("batch never fully started")
	}

	g.mu.Lock()
	g.inFlight--
	g.events = append(g.events, gateEvent{batch: batch})
	g.mu.Unlock()
	return err
}

func (g *gateSender) Name() string {
	return "gate"
}

func TestDispatch_BatchRunsConcurrentlyAndBatchesAreSequential(t *testing.T) {
	emails := addresses(25)
	sender := newGateSender(emails, DefaultBatchSize)
	d := New(sender, system.NewTestLogger(), WithWait(func(time.Duration) {}))

	res := d.Dispatch(context.Background(), emails, "s", "b")

	require.Zero(t, res.Failed, "sends of one batch did not overlap")
	assert.Equal(t, 25, res.Successful)
	assert.Equal(t, DefaultBatchSize, sender.maxInFlight)

	// Every send of batch k has returned before any send of batch k+1 starts.
	ended := make([]int, len(sender.releases))
	var order strings.Builder
	for _, ev := range sender.events {
		if ev.start {
			for prev := 0; prev < ev.batch; prev++ {
				assert.Equal(t, sender.batchLen(prev), ended[prev], "batch %d started before batch %d finished", ev.batch, prev)
			}
			continue
		}
		ended[ev.batch]++
		fmt.Fprint(&order, ev.batch)
	}
	assert.Equal(t, strings.Repeat("0", 10)+strings.Repeat("1", 10)+strings.Repeat("2", 5), order.String())
}

func TestDispatch_BatchesAndDelays(t *testing.T) {
	cases := []struct {
		n           int
		wantBatches int
	}{
		{n: 0, wantBatches: 0},
		{n: 1, wantBatches: 1},
		{n: 10, wantBatches: 1},
		{n: 11, wantBatches: 2},
		{n: 25, wantBatches: 3},
		{n: 100, wantBatches: 10},
	}

	for _, tc := range cases {
		t.Run(fmt.Sprintf("n=%d", tc.n), func(t *testing.T) {
			sender := &mail.MockSender{}
			rec := &recordWait{}
			d := New(sender, system.NewTestLogger(), WithWait(rec.wait))

			res := d.Dispatch(context.Background(), addresses(tc.n), "s", "b")

			assert.Equal(t, tc.wantBatches, res.Batches)
			assert.Equal(t, tc.n, res.Successful)
			assert.Zero(t, res.Failed)
			assert.Equal(t, tc.n, sender.Attempts())

			wantDelays := max(tc.wantBatches-1, 0)
			require.Len(t, rec.calls, wantDelays)
			for _, got := range rec.calls {
				assert.Equal(t, DefaultDelay, got)
			}
		})
	}
}

func TestDispatch_PartialFailure(t *testing.T) {
	emails := addresses(5)
	sender := &mail.MockSender{FailFor: map[string]bool{emails[1]: true, emails[3]: true}}
	d := New(sender, system.NewTestLogger(), WithWait(func(time.Duration) {}))

	res := d.Dispatch(context.Background(), emails, "s", "b")

	assert.Equal(t, 3, res.Successful)
	assert.Equal(t, 2, res.Failed)
	assert.Equal(t, 5, res.Total())
	assert.Equal(t, []string{emails[1], emails[3]}, res.FailedRecipients)
	assert.Equal(t, OutcomePartial, res.Outcome())
	assert.Equal(t, 5, sender.Attempts(), "a failure must not abort the batch")
}

func TestDispatch_PanicCountsAsFailure(t *testing.T) {
	emails := addresses(12)
	sender := &mail.MockSender{PanicFor: map[string]bool{emails[4]: true}}
	log, logs := system.NewObservedLogger(zapcore.WarnLevel)
	d := New(sender, log, WithWait(func(time.Duration) {}))

	res := d.Dispatch(context.Background(), emails, "s", "b")

	assert.Equal(t, 11, res.Successful)
	assert.Equal(t, 1, res.Failed)
	assert.Equal(t, []string{emails[4]}, res.FailedRecipients)
	require.Equal(t, 1, logs.FilterMessage("Failed to send email").Len())
	entry := logs.FilterMessage("Failed to send email").All()[0]
	assert.Equal(t, emails[4], entry.ContextMap()["recipient"])
}

func TestDispatch_AllFail(t *testing.T) {
	emails := addresses(3)
	fail := map[string]bool{}
	for _, e := range emails {
		fail[e] = true
	}
	d := New(&mail.MockSender{FailFor: fail}, system.NewTestLogger(), WithWait(func(time.Duration) {}))

	res := d.Dispatch(context.Background(), emails, "s", "b")
	assert.Zero(t, res.Successful)
	assert.Equal(t, 3, res.Failed)
	assert.Equal(t, OutcomeFailed, res.Outcome())
}

func TestDispatch_SumInvariant(t *testing.T) {
	for n := 0; n <= 35; n++ {
		emails := addresses(n)
		fail := map[string]bool{}
		for i, e := range emails {
			if i%3 == 0 {
				fail[e] = true
			}
		}
		d := New(&mail.MockSender{FailFor: fail}, system.NewTestLogger(),
			WithBatchSize(4), WithWait(func(time.Duration) {}))
		res := d.Dispatch(context.Background(), emails, "s", "b")
		assert.Equal(t, n, res.Successful+res.Failed, "n=%d", n)
		assert.Equal(t, (n+3)/4, res.Batches, "n=%d", n)
	}
}

func TestDispatch_IgnoresCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	sender := &mail.MockSender{}
	d := New(sender, system.NewTestLogger(), WithWait(func(time.Duration) {}))
	res := d.Dispatch(ctx, addresses(15), "s", "b")

	assert.Equal(t, 15, res.Successful)
	assert.Equal(t, 15, sender.Attempts())
}

func TestDispatch_MessageContent(t *testing.T) {
	sender := &mail.MockSender{}
	d := New(sender, system.NewTestLogger())

	d.Dispatch(context.Background(), []string{"a@x.com"}, "Hello", "one\ntwo")

	msgs := sender.Messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, mail.Message{To: "a@x.com", Subject: "Hello", Text: "one\ntwo", HTML: "one<br>two"}, msgs[0])
}

func TestDispatch_RealDelay(t *testing.T) {
	d := New(&mail.MockSender{}, system.NewTestLogger(), WithBatchSize(2), WithDelay(20*time.Millisecond))

	start := time.Now()
	res := d.Dispatch(context.Background(), addresses(5), "s", "b")

	assert.Equal(t, 3, res.Batches)
	assert.GreaterOrEqual(t, time.Since(start), 40*time.Millisecond)
	assert.GreaterOrEqual(t, res.Duration, 40*time.Millisecond)
}

func TestDispatch_Metrics(t *testing.T) {
	batchesBefore := testutil.ToFloat64(metrics.DispatchBatches)
	partialBefore := testutil.ToFloat64(metrics.DispatchRuns.WithLabelValues(OutcomePartial))

	emails := addresses(21)
	d := New(&mail.MockSender{FailFor: map[string]bool{emails[0]: true}}, system.NewTestLogger(),
		WithWait(func(time.Duration) {}))
	d.Dispatch(context.Background(), emails, "s", "b")

	assert.Equal(t, batchesBefore+3, testutil.ToFloat64(metrics.DispatchBatches))
	assert.Equal(t, partialBefore+1, testutil.ToFloat64(metrics.DispatchRuns.WithLabelValues(OutcomePartial)))
}

func TestWithBatchSize_IgnoresNonPositive(t *testing.T) {
	d := New(&mail.MockSender{}, system.NewTestLogger(), WithBatchSize(0), WithBatchSize(-3))
	assert.Equal(t, DefaultBatchSize, d.batchSize)
}
