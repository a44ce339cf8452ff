package server

import (
	"cmp"
	"errors"
	"net/http"
	"slices"

	"github.com/labstack/echo/v4"

	"github.com/teemow/gmail-ai-agent/internal/analysis"
	"github.com/teemow/gmail-ai-agent/internal/apperr"
	"github.com/teemow/gmail-ai-agent/internal/cache"
	"github.com/teemow/gmail-ai-agent/internal/gmail"
	"github.com/teemow/gmail-ai-agent/internal/logging"
	"github.com/teemow/gmail-ai-agent/internal/retrieval"
)

// Query limits for the email routes.
const (
	DefaultMaxResults  = 50
	DefaultSemanticK   = 5
	TopSendersInStats  = 5
	markedReadResponse = "Email marcado como lido"
)

func bindQuery(c echo.Context, dst any) error {
	if err := (&echo.DefaultBinder{}).BindQueryParams(c, dst); err != nil {
		return err
	}
	return c.Validate(dst)
}

type listEmailsQuery struct {
	MaxResults int64 `query:"max_results" validate:"min=1,max=500"`
}

// listEmails fetches the inbox, replaces the cached batch and indexes it
// for semantic search. Indexing failures are logged only.
func (s *HTTPServer) listEmails(c echo.Context) error {
	ctx := c.Request().Context()

	q := listEmailsQuery{MaxResults: DefaultMaxResults}
	if err := bindQuery(c, &q); err != nil {
		return err
	}

	mb, err := s.mailbox(c)
	if err != nil {
		return fail("Erro ao buscar emails", err)
	}
	emails, err := mb.Fetch(ctx, q.MaxResults)
	if err != nil {
		return fail("Erro ao buscar emails", err)
	}
	if emails == nil {
		emails = []gmail.Email{}
	}

	if err := s.sc.cache.Save(ctx, emails); err != nil {
		return fail("Erro ao buscar emails", err)
	}

	if _, err := s.sc.retrieval.Index(ctx, emails); err != nil {
		s.sc.logger.Warn("failed to index emails", logging.Count(len(emails)), logging.Err(err))
	}

	return c.JSON(http.StatusOK, emails)
}

func (s *HTTPServer) getEmail(c echo.Context) error {
	email, err := s.sc.cache.Get(c.Request().Context(), c.Param("email_id"))
	if err != nil {
		if apperr.KindOf(err) == apperr.KindNotFound {
			return apperr.NotFound("Email não encontrado")
		}
		return fail("Erro ao buscar email", err)
	}
	return c.JSON(http.StatusOK, email)
}

// markRead removes UNREAD at the provider, then refreshes the cached record.
func (s *HTTPServer) markRead(c echo.Context) error {
	ctx := c.Request().Context()
	id := c.Param("email_id")

	mb, err := s.mailbox(c)
	if err != nil {
		return fail("Erro ao marcar email como lido", err)
	}
	if err := mb.MarkRead(ctx, id); err != nil {
		return fail("Erro ao marcar email como lido", err)
	}

	_, err = cache.Update(ctx, s.sc.cache, id, func(e *gmail.Email) {
		e.RemoveLabel(gmail.LabelUnread)
	})
	if err != nil && !errors.Is(err, apperr.ErrNotFound) {
		s.sc.logger.Warn("failed to refresh cached email", logging.EmailID(id), logging.Err(err))
	}

	return c.JSON(http.StatusOK, map[string]string{"message": markedReadResponse})
}

func (s *HTTPServer) analyzeEmail(c echo.Context) error {
	ctx := c.Request().Context()

	mb, err := s.mailbox(c)
	if err != nil {
		return fail("Erro na análise", err)
	}
	email, err := mb.GetEmail(ctx, c.Param("email_id"))
	if err != nil {
		if apperr.KindOf(err) == apperr.KindNotFound {
			return apperr.NotFound("Email não encontrado")
		}
		return fail("Erro na análise", err)
	}

	return c.JSON(http.StatusOK, s.sc.analysis.AnalyzeOrDefault(ctx, analysis.SubjectAndBody(email)))
}

type threadResponse struct {
	ThreadID string        `json:"thread_id"`
	Emails   []gmail.Email `json:"emails"`
	Total    int           `json:"total"`
}

func (s *HTTPServer) thread(c echo.Context) error {
	threadID := c.Param("thread_id")

	mb, err := s.mailbox(c)
	if err != nil {
		return fail("Erro ao buscar conversa", err)
	}
	emails, err := mb.GetThread(c.Request().Context(), threadID)
	if err != nil {
		return fail("Erro ao buscar conversa", err)
	}
	if emails == nil {
		emails = []gmail.Email{}
	}

	return c.JSON(http.StatusOK, threadResponse{ThreadID: threadID, Emails: emails, Total: len(emails)})
}

type semanticQuery struct {
	Query string `query:"query" validate:"required"`
	K     int    `query:"k" validate:"min=1,max=50"`
}

type searchResponse struct {
	Query   string            `json:"query"`
	Results []retrieval.Chunk `json:"results"`
	Total   int               `json:"total"`
}

func (s *HTTPServer) semanticSearch(c echo.Context) error {
	q := semanticQuery{K: DefaultSemanticK}
	if err := bindQuery(c, &q); err != nil {
		return err
	}

	chunks, err := s.sc.retrieval.Search(c.Request().Context(), q.Query, q.K)
	if err != nil {
		return fail("Erro na busca semântica", err)
	}

	return c.JSON(http.StatusOK, searchResponse{Query: q.Query, Results: chunks, Total: len(chunks)})
}

// SenderCount is the number of cached emails from one sender.
type SenderCount struct {
	Sender string `json:"sender"`
	Count  int    `json:"count"`
}

// Overview aggregates counts over the cached batch.
type Overview struct {
	TotalEmails     int            `json:"total_emails"`
	UnreadEmails    int            `json:"unread_emails"`
	ImportantEmails int            `json:"important_emails"`
	WithAttachments int            `json:"with_attachments"`
	TopSenders      []SenderCount  `json:"top_senders"`
	Labels          map[string]int `json:"labels"`
}

// ComputeOverview computes the overview. Top senders are ordered by count, then name.
func ComputeOverview(emails []gmail.Email) Overview {
	o := Overview{
		TotalEmails: len(emails),
		TopSenders:  []SenderCount{},
		Labels:      map[string]int{},
	}

	senders := map[string]int{}
	for _, e := range emails {
		if !e.IsRead {
			o.UnreadEmails++
		}
		if e.IsImportant {
			o.ImportantEmails++
		}
		if e.HasAttachments {
			o.WithAttachments++
		}
		senders[e.Sender]++
		for _, l := range e.Labels {
			o.Labels[l]++
		}
	}

	for sender, n := range senders {
		o.TopSenders = append(o.TopSenders, SenderCount{Sender: sender, Count: n})
	}
	slices.SortFunc(o.TopSenders, func(a, b SenderCount) int {
		if c := cmp.Compare(b.Count, a.Count); c != 0 {
			return c
		}
		return cmp.Compare(a.Sender, b.Sender)
	})
	if len(o.TopSenders) > TopSendersInStats {
		o.TopSenders = o.TopSenders[:TopSendersInStats]
	}
	return o
}

func (s *HTTPServer) statsOverview(c echo.Context) error {
	emails, err := s.sc.cache.Load(c.Request().Context())
	if err != nil {
		return fail("Erro ao calcular estatísticas", err)
	}
	return c.JSON(http.StatusOK, ComputeOverview(emails))
}
