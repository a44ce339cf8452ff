package retrieval

import (
	"strings"

	"github.com/teemow/gmail-ai-agent/internal/gmail"
)

// Metadata keys stored alongside each chunk.
const (
	MetaEmailID = "email_id"
	MetaSubject = "subject"
	MetaSender  = "sender"
	MetaDate    = "date"
	MetaLabels  = "labels"
)

// Metadata identifies the email a chunk came from.
type Metadata struct {
	EmailID string   `json:"email_id"`
	Subject string   `json:"subject"`
	Sender  string   `json:"sender"`
	Date    string   `json:"date"`
	Labels  []string `json:"labels"`
}

// Chunk is a bounded fragment of an email document.
type Chunk struct {
	Content  string   `json:"content"`
	Metadata Metadata `json:"metadata"`
}

// FormatDocument renders an email as the text that gets chunked and embedded.
func FormatDocument(e gmail.Email) string {
	return strings.Join([]string{
		"Assunto: " + e.Subject,
		"Remetente: " + e.Sender,
		"Data: " + e.Date,
		"Conteúdo: " + e.Body,
		"Snippet: " + e.Snippet,
		"Labels: " + strings.Join(e.Labels, ", "),
	}, "\n")
}

// MetadataFor returns the chunk metadata of an email.
func MetadataFor(e gmail.Email) Metadata {
	return Metadata{
		EmailID: e.ID,
		Subject: e.Subject,
		Sender:  e.Sender,
		Date:    e.Date,
		Labels:  append([]string{}, e.Labels...),
	}
}

// labelSep joins labels in flat metadata maps; Gmail label ids never
// contain a comma.
const labelSep = ","

func (m Metadata) toMap() map[string]string {
	return map[string]string{
		MetaEmailID: m.EmailID,
		MetaSubject: m.Subject,
		MetaSender:  m.Sender,
		MetaDate:    m.Date,
		MetaLabels:  strings.Join(m.Labels, labelSep),
	}
}

func metadataFromMap(m map[string]string) Metadata {
	md := Metadata{
		EmailID: m[MetaEmailID],
		Subject: m[MetaSubject],
		Sender:  m[MetaSender],
		Date:    m[MetaDate],
		Labels:  []string{},
	}
	if l := m[MetaLabels]; l != "" {
		md.Labels = strings.Split(l, labelSep)
	}
	return md
}
