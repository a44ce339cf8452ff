package server

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/teemow/gmail-ai-agent/internal/analysis"
	"github.com/teemow/gmail-ai-agent/internal/gmail"
	"github.com/teemow/gmail-ai-agent/internal/logging"
	"github.com/teemow/gmail-ai-agent/internal/retrieval"
)

// Assistant tuning.
const (
	ChatSearchK            = 5
	ChatConfidence         = 0.8
	SourcePreviewLength    = 200
	MaxBatchAnalysis       = 10
	DefaultInsightsEmails  = 50
	DefaultAdvancedSearchK = 10
	RecommendationsFetch   = 50
)

type chatRequest struct {
	Query   string `json:"query" validate:"required"`
	Context string `json:"context"`
}

// Source is a retrieved chunk cited by a chat answer.
type Source struct {
	Subject string `json:"subject"`
	Sender  string `json:"sender"`
	Date    string `json:"date"`
	Content string `json:"content"`
}

type chatResponse struct {
	Response   string   `json:"response"`
	Sources    []Source `json:"sources"`
	Confidence float64  `json:"confidence"`
}

func preview(content string) string {
	r := []rune(content)
	if len(r) > SourcePreviewLength {
		return string(r[:SourcePreviewLength]) + "..."
	}
	return content
}

// chat answers a question grounded on the closest indexed chunks.
func (s *HTTPServer) chat(c echo.Context) error {
	ctx := c.Request().Context()

	var req chatRequest
	if err := c.Bind(&req); err != nil {
		return err
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	chunks, err := s.sc.retrieval.Search(ctx, req.Query, ChatSearchK)
	if err != nil {
		return fail("Erro no chat com IA", err)
	}

	var found string
	sources := make([]Source, 0, len(chunks))
	for _, ch := range chunks {
		found += "\n" + ch.Content + "\n"
		sources = append(sources, Source{
			Subject: ch.Metadata.Subject,
			Sender:  ch.Metadata.Sender,
			Date:    ch.Metadata.Date,
			Content: preview(ch.Content),
		})
	}

	fullContext := req.Context + "\n\nEmails relevantes:\n" + found
	return c.JSON(http.StatusOK, chatResponse{
		Response:   s.sc.analysis.GenerateReplyOrApology(ctx, req.Query, fullContext),
		Sources:    sources,
		Confidence: ChatConfidence,
	})
}

type insightsQuery struct {
	MaxEmails int64 `query:"max_emails" validate:"min=10,max=200"`
}

// summarize degrades a model failure to InsightsUnavailable.
func (s *HTTPServer) summarize(c echo.Context, emails []gmail.Email) analysis.Insights {
	in, err := s.sc.analysis.Summarize(c.Request().Context(), emails)
	if err != nil {
		s.sc.logger.Warn("insights generation failed", logging.Count(len(emails)), logging.Err(err))
		return analysis.EmptyInsights(analysis.InsightsUnavailable)
	}
	return in
}

func (s *HTTPServer) insights(c echo.Context) error {
	q := insightsQuery{MaxEmails: DefaultInsightsEmails}
	if err := bindQuery(c, &q); err != nil {
		return err
	}

	mb, err := s.mailbox(c)
	if err != nil {
		return fail("Erro ao gerar insights", err)
	}
	emails, err := mb.Fetch(c.Request().Context(), q.MaxEmails)
	if err != nil {
		return fail("Erro ao gerar insights", err)
	}
	if len(emails) == 0 {
		return c.JSON(http.StatusOK, analysis.EmptyInsights(analysis.NoEmailsForInsights))
	}

	return c.JSON(http.StatusOK, s.summarize(c, emails))
}

// BatchAnalysis is an analysis tagged with the email it describes.
type BatchAnalysis struct {
	analysis.Result
	EmailID string `json:"email_id"`
	Subject string `json:"subject"`
	Sender  string `json:"sender"`
}

type batchResponse struct {
	TotalAnalyzed int             `json:"total_analyzed"`
	Analyses      []BatchAnalysis `json:"analyses"`
}

// analyzeBatch analyzes the first MaxBatchAnalysis ids, skipping any
// that cannot be fetched.
func (s *HTTPServer) analyzeBatch(c echo.Context) error {
	ctx := c.Request().Context()

	var ids []string
	if err := c.Bind(&ids); err != nil {
		return err
	}
	if len(ids) > MaxBatchAnalysis {
		ids = ids[:MaxBatchAnalysis]
	}

	mb, err := s.mailbox(c)
	if err != nil {
		return fail("Erro na análise em lote", err)
	}

	analyses := make([]BatchAnalysis, 0, len(ids))
	for _, id := range ids {
		email, err := mb.GetEmail(ctx, id)
		if err != nil {
			s.sc.logger.Warn("skipping email in batch analysis", logging.EmailID(id), logging.Err(err))
			continue
		}
		analyses = append(analyses, BatchAnalysis{
			Result:  s.sc.analysis.AnalyzeOrDefault(ctx, analysis.EmailContent(email)),
			EmailID: id,
			Subject: email.Subject,
			Sender:  email.Sender,
		})
	}

	return c.JSON(http.StatusOK, batchResponse{TotalAnalyzed: len(analyses), Analyses: analyses})
}

type advancedQuery struct {
	Query     string `query:"query" validate:"required"`
	Category  string `query:"category"`
	Sentiment string `query:"sentiment"`
	Urgency   string `query:"urgency"`
	K         int    `query:"k" validate:"min=1,max=50"`
}

type searchFilters struct {
	Category  *string `json:"category"`
	Sentiment *string `json:"sentiment"`
	Urgency   *string `json:"urgency"`
}

// AnalyzedChunk is a search hit with its analysis attached.
type AnalyzedChunk struct {
	retrieval.Chunk
	Analysis analysis.Result `json:"analysis"`
}

type advancedResponse struct {
	Query   string          `json:"query"`
	Filters searchFilters   `json:"filters"`
	Results []AnalyzedChunk `json:"results"`
	Total   int             `json:"total"`
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func (q advancedQuery) matches(r analysis.Result) bool {
	return labelMatches(q.Category, r.Category) &&
		labelMatches(q.Sentiment, r.Sentiment) &&
		labelMatches(q.Urgency, r.Urgency)
}

func labelMatches(filter, value string) bool {
	return filter == "" || analysis.NormalizeLabel(filter) == analysis.NormalizeLabel(value)
}

// advancedSearch over-fetches 2k chunks, analyzes each, and keeps the
// first k that pass the category, sentiment and urgency filters.
func (s *HTTPServer) advancedSearch(c echo.Context) error {
	ctx := c.Request().Context()

	q := advancedQuery{K: DefaultAdvancedSearchK}
	if err := bindQuery(c, &q); err != nil {
		return err
	}

	chunks, err := s.sc.retrieval.Search(ctx, q.Query, q.K*2)
	if err != nil {
		return fail("Erro na busca avançada", err)
	}

	results := make([]AnalyzedChunk, 0, q.K)
	for _, ch := range chunks {
		res := s.sc.analysis.AnalyzeOrDefault(ctx, ch.Content)
		if !q.matches(res) {
			continue
		}
		results = append(results, AnalyzedChunk{Chunk: ch, Analysis: res})
		if len(results) >= q.K {
			break
		}
	}

	return c.JSON(http.StatusOK, advancedResponse{
		Query: q.Query,
		Filters: searchFilters{
			Category:  optional(q.Category),
			Sentiment: optional(q.Sentiment),
			Urgency:   optional(q.Urgency),
		},
		Results: results,
		Total:   len(results),
	})
}

type generateQuery struct {
	EmailID string `query:"email_id" validate:"required"`
	Context string `query:"context"`
}

type originalEmail struct {
	Subject string `json:"subject"`
	Sender  string `json:"sender"`
	Content string `json:"content"`
}

type generateResponse struct {
	EmailID           string        `json:"email_id"`
	OriginalEmail     originalEmail `json:"original_email"`
	GeneratedResponse string        `json:"generated_response"`
}

func (s *HTTPServer) generateResponse(c echo.Context) error {
	ctx := c.Request().Context()

	var q generateQuery
	if err := bindQuery(c, &q); err != nil {
		return err
	}

	mb, err := s.mailbox(c)
	if err != nil {
		return fail("Erro ao gerar resposta", err)
	}
	email, err := mb.GetEmail(ctx, q.EmailID)
	if err != nil {
		return fail("Erro ao gerar resposta", err)
	}

	return c.JSON(http.StatusOK, generateResponse{
		EmailID: q.EmailID,
		OriginalEmail: originalEmail{
			Subject: email.Subject,
			Sender:  email.Sender,
			Content: email.Body,
		},
		GeneratedResponse: s.sc.analysis.GenerateReplyOrApology(ctx, analysis.EmailContent(email), q.Context),
	})
}

func (s *HTTPServer) recommendations(c echo.Context) error {
	mb, err := s.mailbox(c)
	if err != nil {
		return fail("Erro ao gerar recomendações", err)
	}
	emails, err := mb.Fetch(c.Request().Context(), RecommendationsFetch)
	if err != nil {
		return fail("Erro ao gerar recomendações", err)
	}

	recs := []analysis.Recommendation{}
	if len(emails) > 0 {
		recs = analysis.Recommendations(s.summarize(c, emails))
	}
	return c.JSON(http.StatusOK, map[string][]analysis.Recommendation{"recommendations": recs})
}
