package classify

import (
	"strings"

	"github.com/nossamaternidade/nathia/pkg/llm"
)

// detectCrisisKeywords is the routing subset of the crisis list: a match
// forces the safest provider even when the full gate did not block.
var detectCrisisKeywords = []string{
	"suicídio",
	"suicidio",
	"me matar",
	"quero morrer",
	"não quero viver",
	"melhor morta",
	"vou me matar",
	"penso em morrer",
	"acabar com tudo",
	"não aguento mais viver",
	"queria estar morta",
	"machucar o bebê",
	"machucar meu filho",
	"machucar minha filha",
	"fazer mal ao bebê",
	"jogar o bebê",
	"sufocar o bebê",
	"me cortar",
	"me machucar",
	"me ferir",
	"não tenho saída",
	"ninguém se importa",
	"sou um peso",
}

// medicalQuestionKeywords indicate the answer needs live search grounding.
var medicalQuestionKeywords = []string{
	"o que é",
	"como prevenir",
	"sintomas de",
	"tratamento para",
	"pode ser",
	"é normal",
	"pesquisar",
	"informações sobre",
	"dados sobre",
	"estudos sobre",
	// Termos médicos comuns
	"pré-eclâmpsia",
	"eclâmpsia",
	"diabetes gestacional",
	"hipertensão",
	"anemia",
	"infecção urinária",
	"contrações",
	"placenta",
	"líquido amniótico",
}

// DetectCrisis reports whether the message indicates a crisis situation.
// Usable by the UI layer independently of a full send.
func DetectCrisis(message string) bool {
	lower := strings.ToLower(message)
	for _, k := range detectCrisisKeywords {
		if strings.Contains(lower, k) {
			return true
		}
	}
	return false
}

// DetectMedicalQuestion reports whether the message is a medical question
// that benefits from grounding.
func DetectMedicalQuestion(message string) bool {
	lower := strings.ToLower(message)
	for _, k := range medicalQuestionKeywords {
		if strings.Contains(lower, k) {
			return true
		}
	}
	return false
}

// EstimateTokens gives a rough token estimate for a conversation
// (~4 chars per token).
func EstimateTokens(messages []llm.Message) int {
	total := 0
	for _, m := range messages {
		total += len(m.Content)
	}
	return (total + 3) / 4
}
