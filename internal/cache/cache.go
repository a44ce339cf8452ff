package cache

import (
	"context"
	"fmt"

	"github.com/teemow/gmail-ai-agent/internal/apperr"
	"github.com/teemow/gmail-ai-agent/internal/gmail"
)

// Store persists a batch of emails.
type Store interface {
	// Save replaces the stored batch.
	Save(ctx context.Context, emails []gmail.Email) error
	// Load returns the stored batch, or an empty batch when nothing was saved.
	Load(ctx context.Context) ([]gmail.Email, error)
	// Get returns the email with id from the stored batch.
	Get(ctx context.Context, id string) (gmail.Email, error)
}

// find looks id up in a loaded batch.
func find(emails []gmail.Email, id string) (gmail.Email, error) {
	for _, e := range emails {
		if e.ID == id {
			return e, nil
		}
	}
	return gmail.Email{}, apperr.NotFound(fmt.Sprintf("email %s not found", id))
}

// derive recomputes label flags for every email in a loaded batch.
func derive(emails []gmail.Email) []gmail.Email {
	for i := range emails {
		emails[i].Derive()
	}
	return emails
}

// Update loads the batch, applies fn to the email with id and saves the
// batch again. It returns NotFound when the email is not cached.
func Update(ctx context.Context, s Store, id string, fn func(*gmail.Email)) (gmail.Email, error) {
	emails, err := s.Load(ctx)
	if err != nil {
		return gmail.Email{}, err
	}
	for i := range emails {
		if emails[i].ID == id {
			fn(&emails[i])
			emails[i].Derive()
			if err := s.Save(ctx, emails); err != nil {
				return gmail.Email{}, err
			}
			return emails[i], nil
		}
	}
	return gmail.Email{}, apperr.NotFound(fmt.Sprintf("email %s not found", id))
}
