package mailer

import (
	"context"
	"fmt"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/telekom/csv-mailer/pkg/apiresponses"
	"github.com/telekom/csv-mailer/pkg/audit"
	"github.com/telekom/csv-mailer/pkg/dispatch"
	"github.com/telekom/csv-mailer/pkg/extract"
	"github.com/telekom/csv-mailer/pkg/mail"
	"github.com/telekom/csv-mailer/pkg/system"
)

// SendRequest is the body of POST /api/send.
type SendRequest struct {
	Emails  []string `json:"emails"`
	Subject string   `json:"subject"`
	Body    string   `json:"body"`
}

// SendResponse is returned with 200 and 207.
type SendResponse struct {
	Message          string   `json:"message"`
	Successful       int      `json:"successful"`
	Failed           int      `json:"failed"`
	FailedRecipients []string `json:"failedRecipients,omitempty"`
}

// SendController serves POST /api/send.
type SendController struct {
	log          *zap.SugaredLogger
	newSender    func() mail.Sender
	sink         audit.Sink
	dispatchOpts []dispatch.Option
}

// NewSendController resolves the sender through newSender on every request.
// sink may be nil. opts are passed to every dispatcher and are meant for
// tests.
func NewSendController(log *zap.SugaredLogger, newSender func() mail.Sender, sink audit.Sink, opts ...dispatch.Option) *SendController {
	return &SendController{
		log:          log,
		newSender:    newSender,
		sink:         sink,
		dispatchOpts: opts,
	}
}

func (sc *SendController) BasePath() string {
	return "send"
}

func (sc *SendController) Handlers() []gin.HandlerFunc {
	return nil
}

func (sc *SendController) Register(rg *gin.RouterGroup) error {
	rg.POST("", instrumentedHandler("handleSend", sc.handleSend))
	return nil
}

// validate returns the client-facing error for req and, for invalid
// addresses, exactly the rejected entries.
func (req SendRequest) validate() (string, []string) {
	if len(req.Emails) == 0 {
		return "No email addresses provided", nil
	}
	if strings.TrimSpace(req.Subject) == "" {
		return "Subject is required", nil
	}
	if strings.TrimSpace(req.Body) == "" {
		return "Message body is required", nil
	}
	if invalid := extract.Invalid(req.Emails); len(invalid) > 0 {
		return "Invalid email addresses: " + strings.Join(invalid, ", "), invalid
	}
	return "", nil
}

func (sc *SendController) handleSend(c *gin.Context) {
	log := system.GetReqLogger(c, sc.log)

	var req SendRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		log.Debugw("Rejected malformed send request", "error", err)
		apiresponses.RespondBadRequestWithDetails(c, "Invalid request body", err.Error())
		return
	}
	if msg, invalid := req.validate(); msg != "" {
		log.Infow("Rejected send request", "reason", msg, "recipients", len(req.Emails))
		if len(invalid) > 0 {
			apiresponses.RespondValidationError(c, msg, invalid)
			return
		}
		apiresponses.RespondBadRequest(c, msg)
		return
	}

	res, err := sc.run(c.Request.Context(), log, system.GetRequestID(c), req)
	if err != nil {
		log.Errorw("Send run aborted", "error", err)
		apiresponses.RespondInternalErrorSimple(c, "Internal server error")
		return
	}

	resp := SendResponse{Successful: res.Successful, Failed: res.Failed}
	if res.Failed > 0 {
		resp.Message = fmt.Sprintf("Emails sent with some failures: %d successful, %d failed", res.Successful, res.Failed)
		resp.FailedRecipients = res.FailedRecipients
		apiresponses.RespondMultiStatus(c, resp)
		return
	}
	resp.Message = fmt.Sprintf("Successfully sent %d emails", res.Successful)
	apiresponses.RespondOK(c, resp)
}

// run resolves the sender, dispatches and records the audit event. A panic
// outside the per-address sends is turned into an error.
func (sc *SendController) run(ctx context.Context, log *zap.SugaredLogger, requestID string, req SendRequest) (res dispatch.Result, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic during send run: %v", r)
		}
	}()

	sender := sc.newSender()
	if sender == nil {
		return res, fmt.Errorf("no mail sender available")
	}
	log.Infow("Starting send run",
		"provider", sender.Name(),
		"recipients", len(req.Emails))

	res = dispatch.New(sender, log, sc.dispatchOpts...).Dispatch(ctx, req.Emails, req.Subject, req.Body)

	if sc.sink != nil {
		event := audit.NewEvent(audit.EventDispatchCompleted, audit.SourceAPI)
		event.Provider = sender.Name()
		event.Subject = req.Subject
		event.Recipients = len(req.Emails)
		event.Successful = res.Successful
		event.Failed = res.Failed
		event.Batches = res.Batches
		event.DurationMs = res.Duration.Milliseconds()
		event.RequestID = requestID
		if werr := sc.sink.Write(context.WithoutCancel(ctx), event); werr != nil {
			log.Warnw("Failed to write audit event", "sink", sc.sink.Name(), "error", werr)
		}
	}
	return res, nil
}
