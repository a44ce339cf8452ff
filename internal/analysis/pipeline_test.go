package analysis

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teemow/gmail-ai-agent/internal/apperr"
	"github.com/teemow/gmail-ai-agent/internal/gmail"
	"github.com/teemow/gmail-ai-agent/internal/logging"
)

type scriptedCompleter struct {
	reply   string
	err     error
	prompts []string
}

func (s *scriptedCompleter) Complete(_ context.Context, prompt string) (string, error) {
	s.prompts = append(s.prompts, prompt)
	return s.reply, s.err
}

func TestPipeline_Analyze(t *testing.T) {
	c := &scriptedCompleter{reply: `some text {"resumo":"x","sentimento":"positivo","urgencia":"baixa","categoria":"trabalho","acoes_recomendadas":[]} trailing`}
	p := NewPipeline(c, logging.Discard())

	r, err := p.Analyze(context.Background(), "Assunto: Oi\n\ncorpo")
	require.NoError(t, err)
	assert.Equal(t, "x", r.Summary)
	assert.Equal(t, SentimentPositive, r.Sentiment)
	require.Len(t, c.prompts, 1)
	assert.Contains(t, c.prompts[0], "Assunto: Oi\n\ncorpo")
	assert.Contains(t, c.prompts[0], `"acoes_recomendadas"`)
}

func TestPipeline_AnalyzeOrDefault(t *testing.T) {
	tests := []struct {
		name        string
		completer   *scriptedCompleter
		wantSummary string
		wantActions []string
	}{
		{
			name:        "unparsable reply",
			completer:   &scriptedCompleter{reply: "  Este email parece importante.  "},
			wantSummary: "Este email parece importante.",
			wantActions: []string{ManualReviewAction},
		},
		{
			name:        "llm failure",
			completer:   &scriptedCompleter{err: apperr.Upstream("llm completion failed", errors.New("timeout"))},
			wantSummary: AnalysisFailedSummary,
			wantActions: []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewPipeline(tt.completer, logging.Discard()).AnalyzeOrDefault(context.Background(), "email")
			assert.Equal(t, tt.wantSummary, r.Summary)
			assert.Equal(t, SentimentNeutral, r.Sentiment)
			assert.Equal(t, UrgencyMedium, r.Urgency)
			assert.Equal(t, CategoryOther, r.Category)
			assert.Equal(t, tt.wantActions, r.RecommendedActions)
		})
	}
}

func TestPipeline_Analyze_MalformedKind(t *testing.T) {
	r, err := NewPipeline(&scriptedCompleter{reply: "texto"}, nil).Analyze(context.Background(), "email")
	require.Error(t, err)
	assert.Equal(t, apperr.KindMalformedResponse, apperr.KindOf(err))
	assert.Equal(t, "texto", r.Summary)
}

func TestPipeline_GenerateReply(t *testing.T) {
	c := &scriptedCompleter{reply: "Prezada Ana, obrigado."}
	p := NewPipeline(c, logging.Discard())

	reply := p.GenerateReplyOrApology(context.Background(), "Assunto: Pedido", "tom formal")
	assert.Equal(t, "Prezada Ana, obrigado.", reply)
	assert.Contains(t, c.prompts[0], "Email original:\nAssunto: Pedido")
	assert.Contains(t, c.prompts[0], "Contexto adicional:\ntom formal")

	failing := NewPipeline(&scriptedCompleter{err: errors.New("down")}, logging.Discard())
	assert.Equal(t, ReplyFailedText, failing.GenerateReplyOrApology(context.Background(), "x", ""))
}

func TestPipeline_Summarize(t *testing.T) {
	emails := make([]gmail.Email, 15)
	for i := range emails {
		emails[i] = gmail.Email{Subject: fmt.Sprintf("assunto-%02d", i), Sender: "s@example.com", Body: "b"}
	}

	t.Run("limits to ten emails", func(t *testing.T) {
		c := &scriptedCompleter{reply: `{"temas_principais":["a"],"remetentes_frequentes":["s@example.com"],"padroes_comunicacao":"p","sugestoes_organizacao":[]}`}
		in, err := NewPipeline(c, logging.Discard()).Summarize(context.Background(), emails)
		require.NoError(t, err)
		assert.Equal(t, []string{"a"}, in.MainTopics)

		prompt := c.prompts[0]
		assert.Contains(t, prompt, "assunto-09")
		assert.NotContains(t, prompt, "assunto-10")
		assert.Equal(t, 10, strings.Count(prompt, "Remetente: s@example.com"))
	})

	t.Run("unparsable reply", func(t *testing.T) {
		in, err := NewPipeline(&scriptedCompleter{reply: "nada"}, logging.Discard()).Summarize(context.Background(), emails)
		require.NoError(t, err)
		assert.Equal(t, EmptyInsights(InsightsUnavailable), in)
	})

	t.Run("empty batch skips model", func(t *testing.T) {
		c := &scriptedCompleter{}
		in, err := NewPipeline(c, logging.Discard()).Summarize(context.Background(), nil)
		require.NoError(t, err)
		assert.Equal(t, EmptyInsights(""), in)
		assert.Empty(t, c.prompts)
	})

	t.Run("llm failure propagates", func(t *testing.T) {
		_, err := NewPipeline(&scriptedCompleter{err: errors.New("down")}, logging.Discard()).Summarize(context.Background(), emails)
		assert.Error(t, err)
	})
}

func TestRecommendations(t *testing.T) {
	in := Insights{
		MainTopics:              []string{"faturas", "viagens", "trabalho", "família"},
		FrequentSenders:         []string{"a@x.com", "b@x.com", "c@x.com", "d@x.com"},
		OrganizationSuggestions: []string{"Criar label Finanças", "Arquivar newsletters", "Silenciar promoções"},
	}

	recs := Recommendations(in)
	require.Len(t, recs, 4)

	assert.Equal(t, "frequent_sender", recs[0].Type)
	assert.Equal(t, "Você recebe muitos emails de: a@x.com, b@x.com, c@x.com", recs[0].Description)
	assert.Equal(t, "main_topics", recs[1].Type)
	assert.Equal(t, "Principais temas em seus emails: faturas, viagens, trabalho", recs[1].Description)
	assert.Equal(t, "organization", recs[2].Type)
	assert.Equal(t, "Criar label Finanças", recs[2].Description)
	assert.Equal(t, "Arquivar newsletters", recs[3].Description)

	assert.Empty(t, Recommendations(EmptyInsights("")))
	assert.NotNil(t, Recommendations(Insights{}))
}

func TestEmailContent(t *testing.T) {
	e := gmail.Email{Subject: "S", Sender: "F", Date: "D", Body: "B"}
	assert.Equal(t, "Assunto: S\nRemetente: F\nData: D\nConteúdo: B", EmailContent(e))
	assert.Equal(t, "Assunto: S\n\nB", SubjectAndBody(e))
}
