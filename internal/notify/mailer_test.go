package notify

import (
	"context"
	"testing"
	"time"

	"github.com/rotisserie/eris"
	"github.com/sendgrid/rest"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/lead-intake/internal/config"
	"github.com/sells-group/lead-intake/internal/model"
	"github.com/sells-group/lead-intake/internal/ratelimit"
)

// stubSender records every message and returns a canned response.
type stubSender struct {
	sent       []*mail.SGMailV3
	statusCode int
	err        error
}

func (s *stubSender) Send(email *mail.SGMailV3) (*rest.Response, error) {
	s.sent = append(s.sent, email)
	if s.err != nil {
		return nil, s.err
	}
	code := s.statusCode
	if code == 0 {
		code = 202
	}
	return &rest.Response{StatusCode: code}, nil
}

func testSendGridCfg() config.SendGridConfig {
	return config.SendGridConfig{
		Key:          "SG.test",
		FromName:     "Sells Advisors",
		FromEmail:    "noreply@sellsadvisors.com",
		OperatorName: "Intake",
		OperatorTo:   "briefs@sellsadvisors.com",
	}
}

func testInput() model.BriefInput {
	return model.BriefInput{
		Name:        "Jane Doe",
		Email:       "jane@example.com",
		Description: "demand forecasting",
		BudgetRange: "10k-25k",
	}
}

func TestDispatchSendsBoth(t *testing.T) {
	sender := &stubSender{}
	d := newTestDispatcher(testSendGridCfg(), ratelimit.New(10, time.Minute), sender)

	d.Dispatch(context.Background(), testInput(), model.Analysis{ComplexityScore: 4})

	require.Len(t, sender.sent, 2)
	recipients := make(map[string]bool)
	for _, msg := range sender.sent {
		require.Len(t, msg.Personalizations, 1)
		require.Len(t, msg.Personalizations[0].To, 1)
		recipients[msg.Personalizations[0].To[0].Address] = true
		assert.Equal(t, "noreply@sellsadvisors.com", msg.From.Address)
	}
	assert.True(t, recipients["briefs@sellsadvisors.com"])
	assert.True(t, recipients["jane@example.com"])
}

func TestDispatchNilClientNoop(t *testing.T) {
	d := NewDispatcher(config.SendGridConfig{}, ratelimit.New(10, time.Minute))
	d.Dispatch(context.Background(), testInput(), model.Analysis{})
}

func TestDispatchSendFailureSwallowed(t *testing.T) {
	sender := &stubSender{err: eris.New("sendgrid down")}
	d := newTestDispatcher(testSendGridCfg(), ratelimit.New(10, time.Minute), sender)

	d.Dispatch(context.Background(), testInput(), model.Analysis{})
	assert.Len(t, sender.sent, 2)
}

func TestDispatchErrorStatusSwallowed(t *testing.T) {
	sender := &stubSender{statusCode: 401}
	d := newTestDispatcher(testSendGridCfg(), ratelimit.New(10, time.Minute), sender)

	d.Dispatch(context.Background(), testInput(), model.Analysis{})
	assert.Len(t, sender.sent, 2)
}

func TestDispatchRateLimited(t *testing.T) {
	sender := &stubSender{}
	limiter := ratelimit.New(1, time.Minute)
	d := newTestDispatcher(testSendGridCfg(), limiter, sender)

	d.Dispatch(context.Background(), testInput(), model.Analysis{})
	require.Len(t, sender.sent, 2)

	// Second dispatch inside the window: both channels are exhausted, nothing
	// goes out.
	d.Dispatch(context.Background(), testInput(), model.Analysis{})
	assert.Len(t, sender.sent, 2)
}

func TestDispatchRateLimitKeysIndependent(t *testing.T) {
	sender := &stubSender{}
	limiter := ratelimit.New(1, time.Minute)
	d := newTestDispatcher(testSendGridCfg(), limiter, sender)

	d.Dispatch(context.Background(), testInput(), model.Analysis{})
	require.Len(t, sender.sent, 2)

	// A different submitter shares the operator key but not the client key.
	other := testInput()
	other.Email = "sam@example.com"
	d.Dispatch(context.Background(), other, model.Analysis{})
	assert.Len(t, sender.sent, 3)
}

func TestOperatorMessageContent(t *testing.T) {
	sender := &stubSender{}
	d := newTestDispatcher(testSendGridCfg(), ratelimit.New(10, time.Minute), sender)

	require.NoError(t, d.sendOperatorNotification(testInput(), model.Analysis{
		ComplexityScore: 4,
		EstimatedHours:  60,
		RecommendedRate: 225,
		Suitability:     model.SuitabilityGood,
	}))

	require.Len(t, sender.sent, 1)
	msg := sender.sent[0]
	assert.Equal(t, "New project brief: Jane Doe", msg.Subject)
	require.Len(t, msg.Content, 2)
	assert.Equal(t, "text/plain", msg.Content[0].Type)
	assert.Equal(t, "text/html", msg.Content[1].Type)
	assert.Contains(t, msg.Content[1].Value, "jane@example.com")
}

func TestRenderOperatorHTMLEscapes(t *testing.T) {
	input := testInput()
	input.Description = `<script>alert("x")</script>`

	html, err := renderOperatorHTML(input, model.Analysis{})
	require.NoError(t, err)
	assert.NotContains(t, html, "<script>")
	assert.Contains(t, html, "&lt;script&gt;")
}

func TestRenderClientHTML(t *testing.T) {
	html, err := renderClientHTML(testInput())
	require.NoError(t, err)
	assert.Contains(t, html, "Jane Doe")
	assert.Contains(t, html, "48 hours")
}
