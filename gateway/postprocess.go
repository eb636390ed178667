package gateway

import (
	"fmt"
	"strings"

	"github.com/nossamaternidade/nathia/pkg/classify"
	"github.com/nossamaternidade/nathia/pkg/llm"
)

// maxCitations bounds the "Fontes" list appended to grounded answers.
const maxCitations = 3

// postProcess appends plain-text suffixes to the answer: a support
// disclaimer when the user's message touched a sensitive topic, and the
// citation list when the backend grounded the answer. Pure string work,
// applied after both transport paths.
func (g *Gateway) postProcess(messages []llm.Message, resp *llm.Response) {
	if last, ok := llm.LastUserMessage(messages); ok && classify.ContainsSensitiveTopic(last.Content) {
		resp.Content += "\n\n" + classify.SensitiveTopicDisclaimer
	}

	if len(resp.Citations) > 0 {
		var b strings.Builder
		b.WriteString(resp.Content)
		b.WriteString("\n\n📚 Fontes:\n")
		for i, title := range resp.Citations {
			if i >= maxCitations {
				break
			}
			if title == "" {
				title = "Fonte"
			}
			fmt.Fprintf(&b, "%d. %s\n", i+1, title)
		}
		resp.Content = b.String()
	}
}
