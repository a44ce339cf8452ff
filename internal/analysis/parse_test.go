package analysis

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtractJSONObject(t *testing.T) {
	tests := []struct {
		name   string
		text   string
		want   string
		wantOK bool
	}{
		{"bare object", `{"a":1}`, `{"a":1}`, true},
		{"surrounded", `prefix {"a":{"b":2}} suffix`, `{"a":{"b":2}}`, true},
		{"markdown fence", "```json\n{\"a\":1}\n```", `{"a":1}`, true},
		{"trailing placeholder", `{"a":"x"} Obs: substitua {nome} antes de enviar.`, `{"a":"x"}`, true},
		{"two fenced objects", "```json\n{\"a\":1}\n```\n```json\n{\"b\":2}\n```", `{"a":1}`, true},
		{"brace inside string", `{"a":"}{"} e {b}`, `{"a":"}{"}`, true},
		{"placeholder before object", `Prezado {nome}, {"a":1}`, `{"a":1}`, true},
		{"no braces", "nothing here", "", false},
		{"reversed braces", "} then {", "", false},
		{"only open", "{ open", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ExtractJSONObject(tt.text)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseAnalysis(t *testing.T) {
	reply := `some text {"resumo":"x","sentimento":"positivo","urgencia":"baixa","categoria":"trabalho","acoes_recomendadas":[]} trailing`

	r, ok := ParseAnalysis(reply)
	assert.True(t, ok)
	assert.Equal(t, Result{
		Summary:            "x",
		Sentiment:          SentimentPositive,
		Urgency:            UrgencyLow,
		Category:           "trabalho",
		RecommendedActions: []string{},
	}, r)
}

func TestParseAnalysis_TrailingBraces(t *testing.T) {
	reply := `{"resumo":"x","sentimento":"negativo","urgencia":"alta","categoria":"trabalho","acoes_recomendadas":["Responder"]} Obs: substitua {nome} antes de enviar.`

	r, ok := ParseAnalysis(reply)
	assert.True(t, ok)
	assert.Equal(t, SentimentNegative, r.Sentiment)
	assert.Equal(t, UrgencyHigh, r.Urgency)
	assert.Equal(t, []string{"Responder"}, r.RecommendedActions)
}

func TestParseAnalysis_Normalize(t *testing.T) {
	tests := []struct {
		name          string
		reply         string
		wantSentiment string
		wantUrgency   string
		wantCategory  string
	}{
		{"empty object", `{}`, SentimentNeutral, UrgencyMedium, CategoryOther},
		{"out of set values", `{"sentimento":"positive","urgencia":"média"}`, SentimentNeutral, UrgencyMedium, CategoryOther},
		{"case and accents", `{"sentimento":" Positivo ","urgencia":"MÉDIA","categoria":"Trabalho"}`, SentimentPositive, UrgencyMedium, "trabalho"},
		{"unknown urgency", `{"sentimento":"negativo","urgencia":"urgente","categoria":"financeiro"}`, SentimentNegative, UrgencyMedium, "financeiro"},
		{"blank category", `{"sentimento":"neutro","urgencia":"Baixa","categoria":"  "}`, SentimentNeutral, UrgencyLow, CategoryOther},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, ok := ParseAnalysis(tt.reply)
			assert.True(t, ok)
			assert.Equal(t, tt.wantSentiment, r.Sentiment)
			assert.Equal(t, tt.wantUrgency, r.Urgency)
			assert.Equal(t, tt.wantCategory, r.Category)
			assert.NotNil(t, r.RecommendedActions)
		})
	}
}

func TestNormalizeLabel(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"média", "media"},
		{" ALTA ", "alta"},
		{"Reunião", "reuniao"},
		{"", ""},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizeLabel(tt.in))
		})
	}
}

func TestParseAnalysis_Invalid(t *testing.T) {
	for _, reply := range []string{
		"",
		"Não consegui analisar este email.",
		`{"resumo": "sem fechamento"`,
		`{"resumo": 12}`,
		`{not json}`,
	} {
		_, ok := ParseAnalysis(reply)
		assert.False(t, ok, "reply %q", reply)
	}
}

func TestParseAnalysis_MissingActions(t *testing.T) {
	r, ok := ParseAnalysis(`{"resumo":"x","sentimento":"neutro","urgencia":"alta","categoria":"pessoal"}`)
	assert.True(t, ok)
	assert.NotNil(t, r.RecommendedActions)
	assert.Empty(t, r.RecommendedActions)
}

func TestParseInsights(t *testing.T) {
	in, ok := ParseInsights(`Aqui está: {"temas_principais":["faturas"],"remetentes_frequentes":["banco@x.com"],"padroes_comunicacao":"semanal"} Use {categoria} nas regras.`)
	assert.True(t, ok)
	assert.Equal(t, Insights{
		MainTopics:              []string{"faturas"},
		FrequentSenders:         []string{"banco@x.com"},
		CommunicationPatterns:   "semanal",
		OrganizationSuggestions: []string{},
	}, in)

	_, ok = ParseInsights("sem json")
	assert.False(t, ok)
}
