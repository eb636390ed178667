package classify

import "strings"

// sensitiveTopics are subjects that get a support disclaimer appended to
// the answer. Unlike the blocking gate, the message still reaches the
// model; the disclaimer is added on the way back.
var sensitiveTopics = []string{
	"depressão",
	"ansiedade",
	"suicídio",
	"machucar",
	"sangramento",
	"emergência",
	"aborto",
	"perda",
	"luto",
}

// SensitiveTopicDisclaimer is appended verbatim after answers that touch
// a sensitive topic.
const SensitiveTopicDisclaimer = `⚠️ Percebi que você está passando por um momento difícil.

Quero que saiba que você não está sozinha, e buscar ajuda é um ato de coragem, não de fraqueza.

Se precisar de apoio profissional:
• CVV (Centro de Valorização da Vida): 188
• CAPS (Centro de Atenção Psicossocial) da sua cidade
• Converse com seu médico ou obstetra

Estou aqui pra te ouvir, mas um profissional pode te ajudar de formas que eu não consigo. 💕`

// ContainsSensitiveTopic reports whether text mentions any sensitive
// topic, case-insensitively.
func ContainsSensitiveTopic(text string) bool {
	lower := strings.ToLower(text)
	for _, topic := range sensitiveTopics {
		if strings.Contains(lower, topic) {
			return true
		}
	}
	return false
}
