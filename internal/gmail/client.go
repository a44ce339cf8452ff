package gmail

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	gmail "google.golang.org/api/gmail/v1"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	"google.golang.org/api/people/v1"

	"github.com/teemow/gmail-ai-agent/internal/apperr"
)

const userID = "me"

// MessageService is the mailbox surface consumed by the HTTP layer.
type MessageService interface {
	Fetch(ctx context.Context, maxResults int64) ([]Email, error)
	GetEmail(ctx context.Context, id string) (Email, error)
	GetThread(ctx context.Context, threadID string) ([]Email, error)
	Profile(ctx context.Context) (Profile, error)
	MarkRead(ctx context.Context, id string) error
}

var _ MessageService = (*Client)(nil)

// Client wraps the Gmail Users service and People service
type Client struct {
	svc       *gmail.UsersService
	peopleSvc *people.Service
}

// NewClient creates a Gmail client. Callers normally pass
// option.WithHTTPClient with an OAuth2 authenticated client.
func NewClient(ctx context.Context, opts ...option.ClientOption) (*Client, error) {
	svc, err := gmail.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create Gmail service: %w", err)
	}

	peopleSvc, err := people.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create People service: %w", err)
	}

	return &Client{
		svc:       svc.Users,
		peopleSvc: peopleSvc,
	}, nil
}

// Fetch lists up to maxResults inbox messages and retrieves each one in
// full, preserving the order reported by Gmail.
func (c *Client) Fetch(ctx context.Context, maxResults int64) ([]Email, error) {
	res, err := c.svc.Messages.List(userID).
		LabelIds(LabelInbox).
		MaxResults(maxResults).
		Context(ctx).
		Do()
	if err != nil {
		return nil, apperr.Upstream("failed to list messages", err)
	}

	emails := make([]Email, 0, len(res.Messages))
	for _, m := range res.Messages {
		msg, err := c.svc.Messages.Get(userID, m.Id).Format("full").Context(ctx).Do()
		if err != nil {
			return nil, apperr.Upstream(fmt.Sprintf("failed to get message %s", m.Id), err)
		}
		emails = append(emails, ParseMessage(msg))
	}

	return emails, nil
}

// GetEmail retrieves a single message by id.
func (c *Client) GetEmail(ctx context.Context, id string) (Email, error) {
	msg, err := c.svc.Messages.Get(userID, id).Format("full").Context(ctx).Do()
	if err != nil {
		return Email{}, providerError(fmt.Sprintf("failed to get message %s", id), err)
	}
	return ParseMessage(msg), nil
}

// GetThread retrieves every message of a thread in thread order.
func (c *Client) GetThread(ctx context.Context, threadID string) ([]Email, error) {
	thread, err := c.svc.Threads.Get(userID, threadID).Format("full").Context(ctx).Do()
	if err != nil {
		return nil, providerError(fmt.Sprintf("failed to get thread %s", threadID), err)
	}

	emails := make([]Email, 0, len(thread.Messages))
	for _, msg := range thread.Messages {
		emails = append(emails, ParseMessage(msg))
	}
	return emails, nil
}

// MarkRead removes the UNREAD label from a message.
func (c *Client) MarkRead(ctx context.Context, id string) error {
	_, err := c.svc.Messages.Modify(userID, id, &gmail.ModifyMessageRequest{
		RemoveLabelIds: []string{LabelUnread},
	}).Context(ctx).Do()
	if err != nil {
		return providerError(fmt.Sprintf("failed to mark message %s as read", id), err)
	}
	return nil
}

// Profile returns the mailbox profile. The display name comes from the
// People API and is left empty when that lookup fails.
func (c *Client) Profile(ctx context.Context) (Profile, error) {
	p, err := c.svc.GetProfile(userID).Context(ctx).Do()
	if err != nil {
		return Profile{}, apperr.Upstream("failed to get profile", err)
	}

	return Profile{
		Email:         p.EmailAddress,
		Name:          c.displayName(ctx),
		MessagesTotal: p.MessagesTotal,
		ThreadsTotal:  p.ThreadsTotal,
	}, nil
}

func (c *Client) displayName(ctx context.Context) string {
	if c.peopleSvc == nil {
		return ""
	}
	person, err := c.peopleSvc.People.Get("people/me").PersonFields("names").Context(ctx).Do()
	if err != nil {
		return ""
	}
	for _, name := range person.Names {
		if name.Metadata != nil && name.Metadata.Primary {
			return name.DisplayName
		}
	}
	if len(person.Names) > 0 {
		return person.Names[0].DisplayName
	}
	return ""
}

// providerError maps a Gmail API 404 to the NotFound kind; everything else
// is an upstream failure.
func providerError(msg string, err error) error {
	var gerr *googleapi.Error
	if errors.As(err, &gerr) && gerr.Code == http.StatusNotFound {
		return apperr.Wrap(apperr.KindNotFound, msg, err)
	}
	return apperr.Upstream(msg, err)
}
