package analysis

import (
	"fmt"
	"strings"

	"github.com/teemow/gmail-ai-agent/internal/gmail"
)

const analysisPrompt = `Analise o seguinte email e forneça:
1. Resumo do conteúdo
2. Sentimento (positivo, negativo, neutro)
3. Urgência (alta, média, baixa)
4. Categorização (trabalho, pessoal, spam, etc.)
5. Ações recomendadas

Email:
%s

Responda em JSON com a seguinte estrutura:
{
    "resumo": "resumo do email",
    "sentimento": "positivo/negativo/neutro",
    "urgencia": "alta/media/baixa",
    "categoria": "trabalho/pessoal/spam/etc",
    "acoes_recomendadas": ["ação1", "ação2"]
}`

const replyPrompt = `Com base no seguinte email, gere uma resposta profissional e apropriada.

Email original:
%s

Contexto adicional:
%s

Responda de forma clara, profissional e direta ao ponto.`

const insightsPrompt = `Analise os seguintes emails e forneça insights:

%s

Forneça:
1. Principais temas/tópicos
2. Remetentes mais frequentes
3. Padrões de comunicação
4. Sugestões de organização

Responda em JSON:
{
    "temas_principais": ["tema1", "tema2"],
    "remetentes_frequentes": ["remetente1", "remetente2"],
    "padroes_comunicacao": "descrição dos padrões",
    "sugestoes_organizacao": ["sugestão1", "sugestão2"]
}`

// SubjectAndBody renders an email for single-email analysis.
func SubjectAndBody(e gmail.Email) string {
	return fmt.Sprintf("Assunto: %s\n\n%s", e.Subject, e.Body)
}

// EmailContent renders an email's headers and body for prompts.
func EmailContent(e gmail.Email) string {
	return strings.Join([]string{
		"Assunto: " + e.Subject,
		"Remetente: " + e.Sender,
		"Data: " + e.Date,
		"Conteúdo: " + e.Body,
	}, "\n")
}

func insightsText(emails []gmail.Email) string {
	if len(emails) > MaxEmailsForInsights {
		emails = emails[:MaxEmailsForInsights]
	}
	texts := make([]string, len(emails))
	for i, e := range emails {
		texts[i] = fmt.Sprintf("Assunto: %s\nRemetente: %s\nConteúdo: %s", e.Subject, e.Sender, e.Body)
	}
	return strings.Join(texts, "\n\n")
}
