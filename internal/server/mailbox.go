package server

import (
	"context"
	"time"

	"github.com/teemow/gmail-ai-agent/internal/gmail"
	"github.com/teemow/gmail-ai-agent/internal/instrumentation"
)

// instrumentedMailbox records a span and a google_api_operations_total
// sample around every mailbox call.
type instrumentedMailbox struct {
	next    gmail.MessageService
	metrics *instrumentation.Metrics
}

var _ gmail.MessageService = (*instrumentedMailbox)(nil)

func (m *instrumentedMailbox) observe(ctx context.Context, service, operation string, attrs *instrumentation.SpanAttributeBuilder, fn func(context.Context) error) error {
	ctx, span := instrumentation.StartGoogleAPISpan(ctx, service, operation, attrs.Build()...)
	defer span.End()

	start := time.Now()
	err := fn(ctx)

	status := instrumentation.StatusSuccess
	if err != nil {
		status = instrumentation.StatusError
		instrumentation.SetSpanError(span, err)
	} else {
		instrumentation.SetSpanSuccess(span)
	}
	m.metrics.RecordGoogleAPIOperation(ctx, service, operation, status, time.Since(start))
	return err
}

func (m *instrumentedMailbox) Fetch(ctx context.Context, maxResults int64) ([]gmail.Email, error) {
	var emails []gmail.Email
	err := m.observe(ctx, instrumentation.ServiceGmail, "list", instrumentation.NewSpanAttributeBuilder(), func(ctx context.Context) error {
		var err error
		emails, err = m.next.Fetch(ctx, maxResults)
		return err
	})
	return emails, err
}

func (m *instrumentedMailbox) GetEmail(ctx context.Context, id string) (gmail.Email, error) {
	var email gmail.Email
	err := m.observe(ctx, instrumentation.ServiceGmail, "get", instrumentation.NewSpanAttributeBuilder().WithEmailID(id), func(ctx context.Context) error {
		var err error
		email, err = m.next.GetEmail(ctx, id)
		return err
	})
	return email, err
}

func (m *instrumentedMailbox) GetThread(ctx context.Context, threadID string) ([]gmail.Email, error) {
	var emails []gmail.Email
	err := m.observe(ctx, instrumentation.ServiceGmail, "thread", instrumentation.NewSpanAttributeBuilder(), func(ctx context.Context) error {
		var err error
		emails, err = m.next.GetThread(ctx, threadID)
		return err
	})
	return emails, err
}

func (m *instrumentedMailbox) Profile(ctx context.Context) (gmail.Profile, error) {
	var profile gmail.Profile
	err := m.observe(ctx, instrumentation.ServiceGmail, "profile", instrumentation.NewSpanAttributeBuilder(), func(ctx context.Context) error {
		var err error
		profile, err = m.next.Profile(ctx)
		return err
	})
	return profile, err
}

func (m *instrumentedMailbox) MarkRead(ctx context.Context, id string) error {
	return m.observe(ctx, instrumentation.ServiceGmail, "modify", instrumentation.NewSpanAttributeBuilder().WithEmailID(id), func(ctx context.Context) error {
		return m.next.MarkRead(ctx, id)
	})
}
