package analysis

// Sentiment values.
const (
	SentimentPositive = "positivo"
	SentimentNegative = "negativo"
	SentimentNeutral  = "neutro"
)

// Urgency values.
const (
	UrgencyHigh   = "alta"
	UrgencyMedium = "media"
	UrgencyLow    = "baixa"
)

// CategoryOther is the category used when the model gives none.
const CategoryOther = "outro"

// Fixed texts used by the fallbacks.
const (
	AnalysisFailedSummary = "Erro na análise"
	ManualReviewAction    = "Revisar manualmente"
	ReplyFailedText       = "Erro ao gerar resposta."
	InsightsUnavailable   = "Análise não disponível"
	NoEmailsForInsights   = "Nenhum email encontrado para análise"
)

// Batch limits.
const (
	MaxEmailsForInsights   = 10
	MaxRecommendedSenders  = 3
	MaxRecommendedTopics   = 3
	MaxOrganizationEntries = 2
)

// Result is the structured analysis of a single email.
type Result struct {
	Summary            string   `json:"resumo"`
	Sentiment          string   `json:"sentimento"`
	Urgency            string   `json:"urgencia"`
	Category           string   `json:"categoria"`
	RecommendedActions []string `json:"acoes_recomendadas"`
}

// FallbackResult is the analysis returned when the model cannot be used.
func FallbackResult(summary string) Result {
	return Result{
		Summary:            summary,
		Sentiment:          SentimentNeutral,
		Urgency:            UrgencyMedium,
		Category:           CategoryOther,
		RecommendedActions: []string{},
	}
}

// Insights summarizes a batch of emails.
type Insights struct {
	MainTopics              []string `json:"temas_principais"`
	FrequentSenders         []string `json:"remetentes_frequentes"`
	CommunicationPatterns   string   `json:"padroes_comunicacao"`
	OrganizationSuggestions []string `json:"sugestoes_organizacao"`
}

// EmptyInsights returns insights with every list empty and the given
// pattern description.
func EmptyInsights(patterns string) Insights {
	return Insights{
		MainTopics:              []string{},
		FrequentSenders:         []string{},
		CommunicationPatterns:   patterns,
		OrganizationSuggestions: []string{},
	}
}

// Recommendation is an actionable suggestion derived from Insights.
type Recommendation struct {
	Type        string `json:"type"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Action      string `json:"action"`
}
