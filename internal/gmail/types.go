package gmail

import "slices"

// Well-known Gmail system labels.
const (
	LabelInbox      = "INBOX"
	LabelUnread     = "UNREAD"
	LabelImportant  = "IMPORTANT"
	LabelAttachment = "ATTACHMENT"
)

// Defaults used when a header is missing.
const (
	DefaultSubject = "Sem assunto"
	DefaultSender  = "Desconhecido"
)

// Email is a normalized Gmail message.
type Email struct {
	ID             string   `json:"id"`
	ThreadID       string   `json:"threadId"`
	Subject        string   `json:"subject"`
	Sender         string   `json:"sender"`
	Date           string   `json:"date"`
	Body           string   `json:"body"`
	Labels         []string `json:"labels"`
	Snippet        string   `json:"snippet"`
	IsRead         bool     `json:"isRead"`
	IsImportant    bool     `json:"isImportant"`
	HasAttachments bool     `json:"hasAttachments"`
}

// Derive recomputes the label-derived flags.
func (e *Email) Derive() {
	e.IsRead = !slices.Contains(e.Labels, LabelUnread)
	e.IsImportant = slices.Contains(e.Labels, LabelImportant)
	e.HasAttachments = slices.Contains(e.Labels, LabelAttachment)
}

// RemoveLabel drops label from the email and re-derives the flags.
func (e *Email) RemoveLabel(label string) {
	labels := make([]string, 0, len(e.Labels))
	for _, l := range e.Labels {
		if l != label {
			labels = append(labels, l)
		}
	}
	e.Labels = labels
	e.Derive()
}

// Profile describes the authenticated mailbox.
type Profile struct {
	Email         string `json:"email"`
	Name          string `json:"name"`
	MessagesTotal int64  `json:"messagesTotal"`
	ThreadsTotal  int64  `json:"threadsTotal"`
}
