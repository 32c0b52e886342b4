package mailer

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/telekom/csv-mailer/pkg/apiresponses"
	"github.com/telekom/csv-mailer/pkg/audit"
	"github.com/telekom/csv-mailer/pkg/config"
	"github.com/telekom/csv-mailer/pkg/dispatch"
	"github.com/telekom/csv-mailer/pkg/mail"
	"github.com/telekom/csv-mailer/pkg/system"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type controller interface {
	BasePath() string
	Register(rg *gin.RouterGroup) error
	Handlers() []gin.HandlerFunc
}

func newRouter(t *testing.T, controllers ...controller) *gin.Engine {
	t.Helper()
	r := gin.New()
	r.Use(system.RequestLogger(system.NewTestLogger()))
	api := r.Group("api")
	for _, c := range controllers {
		require.NoError(t, c.Register(api.Group(c.BasePath(), c.Handlers()...)))
	}
	return r
}

func noWait() dispatch.Option {
	return dispatch.WithWait(func(time.Duration) {})
}

func postJSON(r http.Handler, body string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/send", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)
	return w
}

func sendBody(t *testing.T, emails []string, subject, body string) string {
	t.Helper()
	b, err := json.Marshal(SendRequest{Emails: emails, Subject: subject, Body: body})
	require.NoError(t, err)
	return string(b)
}

func addresses(n int) []string {
	out := make([]string, n)
	for i := range out {
		out[i] = fmt.Sprintf("user%02d@example.com", i)
	}
	return out
}

func TestHandleSend_AllSucceed(t *testing.T) {
	sender := &mail.MockSender{}
	rec := &audit.Recorder{}
	sc := NewSendController(system.NewTestLogger(), func() mail.Sender { return sender }, rec, noWait())
	r := newRouter(t, sc)

	w := postJSON(r, sendBody(t, addresses(25), "Hello", "Hi there"))

	require.Equal(t, http.StatusOK, w.Code)
	var resp SendResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, SendResponse{Message: "Successfully sent 25 emails", Successful: 25, Failed: 0}, resp)
	assert.Equal(t, 25, sender.Attempts())

	events := rec.Events()
	require.Len(t, events, 1)
	assert.Equal(t, audit.EventDispatchCompleted, events[0].Type)
	assert.Equal(t, audit.SourceAPI, events[0].Source)
	assert.Equal(t, "mock", events[0].Provider)
	assert.Equal(t, 25, events[0].Recipients)
	assert.Equal(t, 3, events[0].Batches)
	assert.NotEmpty(t, events[0].RequestID)
}

func TestHandleSend_PartialFailure(t *testing.T) {
	emails := addresses(5)
	sender := &mail.MockSender{FailFor: map[string]bool{emails[0]: true, emails[4]: true}}
	sc := NewSendController(system.NewTestLogger(), func() mail.Sender { return sender }, nil, noWait())
	r := newRouter(t, sc)

	w := postJSON(r, sendBody(t, emails, "Hello", "Hi"))

	require.Equal(t, http.StatusMultiStatus, w.Code)
	var resp SendResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "Emails sent with some failures: 3 successful, 2 failed", resp.Message)
	assert.Equal(t, 3, resp.Successful)
	assert.Equal(t, 2, resp.Failed)
	assert.Equal(t, []string{emails[0], emails[4]}, resp.FailedRecipients)
}

func TestHandleSend_MisconfiguredProviderFailsEveryAddress(t *testing.T) {
	cfg := config.Mail{Provider: "sendgrid"}
	sc := NewSendController(system.NewTestLogger(), func() mail.Sender {
		return mail.NewSender(cfg, system.NewTestLogger())
	}, nil, noWait())
	r := newRouter(t, sc)

	w := postJSON(r, sendBody(t, addresses(3), "s", "b"))

	require.Equal(t, http.StatusMultiStatus, w.Code)
	var resp SendResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Zero(t, resp.Successful)
	assert.Equal(t, 3, resp.Failed)
}

func TestHandleSend_InvalidAddresses(t *testing.T) {
	sender := &mail.MockSender{}
	sc := NewSendController(system.NewTestLogger(), func() mail.Sender { return sender }, nil, noWait())
	r := newRouter(t, sc)

	w := postJSON(r, sendBody(t, []string{"ok@x.com", "bad", "also@x.com", "no spaces@x.com"}, "s", "b"))

	require.Equal(t, http.StatusBadRequest, w.Code)
	var apiErr apiresponses.APIError
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &apiErr))
	assert.Equal(t, "Invalid email addresses: bad, no spaces@x.com", apiErr.Error)
	assert.Equal(t, []string{"bad", "no spaces@x.com"}, apiErr.Fields)
	assert.Zero(t, sender.Attempts(), "no sends when validation fails")
}

func TestHandleSend_BadRequests(t *testing.T) {
	cases := []struct {
		name    string
		body    string
		wantErr string
	}{
		{name: "malformed json", body: `{"emails": [`, wantErr: "Invalid request body"},
		{name: "emails wrong type", body: `{"emails": "a@x.com", "subject": "s", "body": "b"}`, wantErr: "Invalid request body"},
		{name: "missing emails", body: `{"subject": "s", "body": "b"}`, wantErr: "No email addresses provided"},
		{name: "empty emails", body: `{"emails": [], "subject": "s", "body": "b"}`, wantErr: "No email addresses provided"},
		{name: "missing subject", body: `{"emails": ["a@x.com"], "body": "b"}`, wantErr: "Subject is required"},
		{name: "whitespace subject", body: `{"emails": ["a@x.com"], "subject": "  \t", "body": "b"}`, wantErr: "Subject is required"},
		{name: "whitespace body", body: `{"emails": ["a@x.com"], "subject": "s", "body": "\n  "}`, wantErr: "Message body is required"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			sender := &mail.MockSender{}
			sc := NewSendController(system.NewTestLogger(), func() mail.Sender { return sender }, nil, noWait())
			r := newRouter(t, sc)

			w := postJSON(r, tc.body)

			require.Equal(t, http.StatusBadRequest, w.Code)
			var apiErr apiresponses.APIError
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &apiErr))
			assert.Equal(t, tc.wantErr, apiErr.Error)
			assert.Zero(t, sender.Attempts())
		})
	}
}

func TestHandleSend_PanicDuringRunReturns500(t *testing.T) {
	sc := NewSendController(system.NewTestLogger(), func() mail.Sender { panic("provider factory exploded") }, nil, noWait())
	r := newRouter(t, sc)

	w := postJSON(r, sendBody(t, addresses(2), "s", "b"))

	require.Equal(t, http.StatusInternalServerError, w.Code)
	var apiErr apiresponses.APIError
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &apiErr))
	assert.Equal(t, "Internal server error", apiErr.Error)
}

func TestHandleSend_NilSenderReturns500(t *testing.T) {
	sc := NewSendController(system.NewTestLogger(), func() mail.Sender { return nil }, nil, noWait())
	r := newRouter(t, sc)

	w := postJSON(r, sendBody(t, addresses(1), "s", "b"))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestHandleSend_PanickingProviderCountsAsFailure(t *testing.T) {
	emails := addresses(4)
	sender := &mail.MockSender{PanicFor: map[string]bool{emails[2]: true}}
	sc := NewSendController(system.NewTestLogger(), func() mail.Sender { return sender }, nil, noWait())
	r := newRouter(t, sc)

	w := postJSON(r, sendBody(t, emails, "s", "b"))

	require.Equal(t, http.StatusMultiStatus, w.Code)
	var resp SendResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, 3, resp.Successful)
	assert.Equal(t, 1, resp.Failed)
}

func TestHandleSend_RendersHTMLBody(t *testing.T) {
	sender := &mail.MockSender{}
	sc := NewSendController(system.NewTestLogger(), func() mail.Sender { return sender }, nil, noWait())
	r := newRouter(t, sc)

	var buf bytes.Buffer
	require.NoError(t, json.NewEncoder(&buf).Encode(SendRequest{
		Emails:  []string{"a@x.com"},
		Subject: "Hello",
		Body:    "Dear all,\nwelcome.",
	}))
	w := postJSON(r, buf.String())

	require.Equal(t, http.StatusOK, w.Code)
	msgs := sender.Messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, "Dear all,<br>welcome.", msgs[0].HTML)
	assert.Equal(t, "Dear all,\nwelcome.", msgs[0].Text)
}
