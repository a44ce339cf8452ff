package gmail

import (
	"encoding/base64"
	"strings"

	gmail "google.golang.org/api/gmail/v1"
)

// HeaderValue returns the value of the first header named exactly header.
func HeaderValue(m *gmail.Message, header string) string {
	v, _ := headerLookup(m, header)
	return v
}

func headerLookup(m *gmail.Message, header string) (string, bool) {
	if m == nil || m.Payload == nil {
		return "", false
	}
	for _, mph := range m.Payload.Headers {
		if mph.Name == header {
			return mph.Value, true
		}
	}
	return "", false
}

// ParseMessage converts a raw Gmail message into an Email.
//
// The body is the top-level payload body when present, otherwise the first
// text/plain part of the payload. Nested multiparts are not descended into,
// so HTML-only or deeply nested messages yield an empty body.
func ParseMessage(m *gmail.Message) Email {
	subject, ok := headerLookup(m, "Subject")
	if !ok {
		subject = DefaultSubject
	}
	sender, ok := headerLookup(m, "From")
	if !ok {
		sender = DefaultSender
	}

	e := Email{
		ID:       m.Id,
		ThreadID: m.ThreadId,
		Subject:  subject,
		Sender:   sender,
		Date:     HeaderValue(m, "Date"),
		Body:     messageBody(m.Payload),
		Labels:   append([]string{}, m.LabelIds...),
		Snippet:  m.Snippet,
	}
	e.Derive()
	return e
}

func messageBody(payload *gmail.MessagePart) string {
	if payload == nil {
		return ""
	}
	if payload.Body != nil && payload.Body.Data != "" {
		return decodeBody(payload.Body.Data)
	}
	for _, part := range payload.Parts {
		if part.MimeType == "text/plain" && part.Body != nil && part.Body.Data != "" {
			return decodeBody(part.Body.Data)
		}
	}
	return ""
}

// decodeBody decodes base64url body data. Gmail pads inconsistently, so
// padding is stripped first; standard base64 is tried as a fallback.
// Undecodable data yields an empty body.
func decodeBody(data string) string {
	decoded, err := base64.RawURLEncoding.DecodeString(strings.TrimRight(data, "="))
	if err != nil {
		decoded, err = base64.StdEncoding.DecodeString(data)
		if err != nil {
			return ""
		}
	}
	return strings.ToValidUTF8(string(decoded), "�")
}
