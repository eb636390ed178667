// Package classify is the local safety gate run before any AI call. It is
// a synchronous, deterministic keyword classifier: no network, no state.
// Matching is substring containment (not word-boundary) on the lower-cased
// text — recall is deliberately favored over precision for safety-critical
// content.
package classify

import "strings"

// BlockType categorizes why a message was blocked.
type BlockType string

const (
	BlockCrisis   BlockType = "crisis"
	BlockMedical  BlockType = "medical"
	BlockIdentity BlockType = "identity"
	BlockNone     BlockType = "none"
)

// Result is the outcome of classifying one user message.
type Result struct {
	ShouldBlock bool
	BlockType   BlockType
	// Template is the fixed local answer returned instead of calling the
	// backend. Empty when ShouldBlock is false.
	Template string
}

// crisisKeywords activate the emergency template. Keywords are only ever
// added, never removed. Kept in sync with the backend's crisis list; the
// local gate blocks before any API call, the backend is the safety net.
var crisisKeywords = []string{
	// Ideação suicida
	"suicídio",
	"suicidio", // sem acento (comum em mobile)
	"quero morrer",
	"me matar",
	"vou me matar",
	"vou me suicidar",
	"não aguento mais",
	"não aguento mais viver",
	"não quero viver",
	"penso em morrer",
	"seria melhor sem mim",
	"meu filho seria melhor sem mim",
	"melhor morta",
	"queria estar morta",
	"acabar com tudo",
	"não tenho saída",
	"ninguém se importa",
	"sou um peso",
	"dirigir pro barranco",
	"pular de",

	// Risco ao bebê
	"machucar o bebê",
	"machucar meu filho",
	"machucar minha filha",
	"fazer mal ao bebê",
	"jogar o bebê",
	"sufocar o bebê",

	// Automutilação
	"me cortar",
	"me machucar",
	"me ferir",
	"sufocar",
	"me bater",

	// Violência doméstica
	"apanhei",
	"bate em mim",
	"meu marido bate",
	"abuso",
	"estupro",
	"ele me bate",

	// Emergência médica
	"sangrando muito",
	"não consigo respirar",
	"bebê não responde",
	"bebê não mexe",
	"dor muito forte",
}

// medicalKeywords trigger a gentle refusal with an offer to help organize
// symptoms for a real consultation.
var medicalKeywords = []string{
	"que remédio",
	"que medicamento",
	"posso tomar",
	"qual dose",
	"isso é depressão",
	"tenho ansiedade",
	"diagnóstico",
	"é normal sangrar",
	"é normal doer",
}

// identityKeywords catch questions about whether the assistant is the real
// Nathália.
var identityKeywords = []string{
	"você é a nath",
	"é a nathália",
}

// CrisisTemplate is the fixed emergency answer. The hotline numbers
// (CVV 188, SAMU 192, Polícia 190) are static content and must never be
// parameterized or localized without explicit review.
const CrisisTemplate = `Você está em um momento muito difícil.
Eu não sou serviço de emergência.

LIGUE AGORA:
• CVV: 188 (24h, grátis, confidencial)
• SAMU: 192 (emergência médica)
• Polícia: 190 (violência)

Enquanto liga, tente respirar devagar.
Conte 1-2-3-4 (inspira), segura, 1-2-3-4 (expira).

Você consegue chamar alguém agora (família/amiga)?`

// MedicalTemplate is the fixed refusal for medical questions.
const MedicalTemplate = `Aí precisa de profissional de saúde.

Eu não posso dar orientação médica, mas posso te ajudar a:
• Organizar sintomas pra contar pro médico
• Preparar perguntas pra consulta

Quer fazer isso?`

// IdentityTemplate clarifies that NathIA is an AI, not Nathália.
const IdentityTemplate = `Não, sou a NathIA, assistente de IA do app Nossa Maternidade.

Sou inspirada no estilo da Nathália — direta, prática, vida real.
Mas ela é pessoa real, eu sou IA.

O que você precisa agora?`

// Classify runs the safety gate over one user message. Pure and total:
// any string input, including the empty string, yields a result. Crisis is
// checked first and wins ties, then medical, then identity.
func Classify(text string) Result {
	lower := strings.ToLower(text)

	for _, keyword := range crisisKeywords {
		if strings.Contains(lower, keyword) {
			return Result{ShouldBlock: true, BlockType: BlockCrisis, Template: CrisisTemplate}
		}
	}

	for _, keyword := range medicalKeywords {
		if strings.Contains(lower, keyword) {
			return Result{ShouldBlock: true, BlockType: BlockMedical, Template: MedicalTemplate}
		}
	}

	for _, keyword := range identityKeywords {
		if strings.Contains(lower, keyword) {
			return Result{ShouldBlock: true, BlockType: BlockIdentity, Template: IdentityTemplate}
		}
	}

	return Result{ShouldBlock: false, BlockType: BlockNone}
}
