package analysis

import (
	"context"
	"fmt"
	"strings"

	"github.com/teemow/gmail-ai-agent/internal/apperr"
	"github.com/teemow/gmail-ai-agent/internal/gmail"
	"github.com/teemow/gmail-ai-agent/internal/llm"
	"github.com/teemow/gmail-ai-agent/internal/logging"
)

// Pipeline runs the analysis and generation prompts against a Completer.
type Pipeline struct {
	completer llm.Completer
	logger    logging.Logger
}

// NewPipeline creates a Pipeline. A nil logger logs to slog.Default().
func NewPipeline(completer llm.Completer, logger logging.Logger) *Pipeline {
	if logger == nil {
		logger = logging.NewSlogAdapter(nil)
	}
	return &Pipeline{completer: completer, logger: logger}
}

// Analyze asks the model for a structured analysis of emailText.
//
// When the reply holds no parsable JSON object the error has kind
// MalformedResponse and the returned Result is the fallback carrying the raw
// reply as its summary.
func (p *Pipeline) Analyze(ctx context.Context, emailText string) (Result, error) {
	reply, err := p.completer.Complete(ctx, fmt.Sprintf(analysisPrompt, emailText))
	if err != nil {
		return Result{}, err
	}

	r, ok := ParseAnalysis(reply)
	if !ok {
		fallback := FallbackResult(strings.TrimSpace(reply))
		fallback.RecommendedActions = []string{ManualReviewAction}
		return fallback, apperr.New(apperr.KindMalformedResponse, "analysis reply is not valid JSON")
	}
	return r, nil
}

// AnalyzeOrDefault is Analyze with the fallbacks applied: an unparsable
// reply yields the raw-text fallback and a failed call yields
// FallbackResult(AnalysisFailedSummary).
func (p *Pipeline) AnalyzeOrDefault(ctx context.Context, emailText string) Result {
	r, err := p.Analyze(ctx, emailText)
	switch {
	case err == nil:
		return r
	case apperr.KindOf(err) == apperr.KindMalformedResponse:
		p.logger.Warn("analysis reply could not be parsed", logging.Err(err))
		return r
	default:
		p.logger.Error("analysis failed", logging.Err(err))
		return FallbackResult(AnalysisFailedSummary)
	}
}

// GenerateReply drafts a reply to emailText using extra context.
func (p *Pipeline) GenerateReply(ctx context.Context, emailText, extra string) (string, error) {
	return p.completer.Complete(ctx, fmt.Sprintf(replyPrompt, emailText, extra))
}

// GenerateReplyOrApology is GenerateReply returning ReplyFailedText on failure.
func (p *Pipeline) GenerateReplyOrApology(ctx context.Context, emailText, extra string) string {
	reply, err := p.GenerateReply(ctx, emailText, extra)
	if err != nil {
		p.logger.Error("reply generation failed", logging.Err(err))
		return ReplyFailedText
	}
	return reply
}

// Summarize derives insights from the first MaxEmailsForInsights emails.
// An empty batch yields empty insights without calling the model; an
// unparsable reply yields EmptyInsights(InsightsUnavailable).
func (p *Pipeline) Summarize(ctx context.Context, emails []gmail.Email) (Insights, error) {
	if len(emails) == 0 {
		return EmptyInsights(""), nil
	}

	reply, err := p.completer.Complete(ctx, fmt.Sprintf(insightsPrompt, insightsText(emails)))
	if err != nil {
		return Insights{}, err
	}

	in, ok := ParseInsights(reply)
	if !ok {
		p.logger.Warn("insights reply could not be parsed")
		return EmptyInsights(InsightsUnavailable), nil
	}
	return in, nil
}

// Recommendations turns insights into suggestions: one for frequent
// senders, one for main topics and up to two organization suggestions.
func Recommendations(in Insights) []Recommendation {
	recs := []Recommendation{}

	if len(in.FrequentSenders) > 0 {
		recs = append(recs, Recommendation{
			Type:        "frequent_sender",
			Title:       "Remetentes Frequentes",
			Description: "Você recebe muitos emails de: " + strings.Join(head(in.FrequentSenders, MaxRecommendedSenders), ", "),
			Action:      "Considerar criar filtros ou labels para organizar melhor",
		})
	}

	if len(in.MainTopics) > 0 {
		recs = append(recs, Recommendation{
			Type:        "main_topics",
			Title:       "Temas Principais",
			Description: "Principais temas em seus emails: " + strings.Join(head(in.MainTopics, MaxRecommendedTopics), ", "),
			Action:      "Criar labels específicos para cada tema",
		})
	}

	for _, s := range head(in.OrganizationSuggestions, MaxOrganizationEntries) {
		recs = append(recs, Recommendation{
			Type:        "organization",
			Title:       "Sugestão de Organização",
			Description: s,
			Action:      "Implementar sugestão",
		})
	}

	return recs
}

func head(s []string, n int) []string {
	if len(s) > n {
		return s[:n]
	}
	return s
}
