// Package intent is the capability seam between the conversational agent
// and the scheduling core: a rule-based parser that recognizes cancellation
// utterances, pulls out the patient name, and interprets the user's
// selection reply. The core never inspects utterances itself; it only sees
// structured requests.
package intent

import (
	"regexp"
	"strconv"
	"strings"
)

// Parser turns free-form utterances into structured cancellation intents.
// An LLM-backed implementation can replace RuleParser without touching the
// scheduling core.
type Parser interface {
	ParseCancel(utterance string) (CancelIntent, bool)
}

// CancelIntent is a recognized request to cancel or delete services.
type CancelIntent struct {
	// PatientName is the extracted target, empty when the utterance names
	// nobody recognizable.
	PatientName string `json:"patient_name"`
}

// RuleParser implements Parser with regular expressions over the Spanish
// phrasings the pharmacy's users actually type.
type RuleParser struct{}

var (
	deleteVerbRe = regexp.MustCompile(`(?i)\b(elimina|eliminar|borra|borrar|cancela|cancelar|anula|anular|quita|quitar|suprime|suprimir|remueve|remover|borre|elimine)\b`)

	quotedNameRe = regexp.MustCompile(`["']([^"']{3,})["']`)

	// "eliminar entregas de Jorge Ramírez"
	afterPrepRe = regexp.MustCompile(`(?i)\b(?:de|del|para)\s+(\p{L}{2,}(?:\s+\p{L}{2,}){0,3})`)

	// "borrar María López" (verb, optional article/noun, then the name)
	afterVerbRe = regexp.MustCompile(`(?i)\b(?:elimina|eliminar|borra|borrar|cancela|cancelar|quita|quitar|anula|anular)\s+(?:las?\s+|los?\s+|el\s+|la\s+|un\s+|una\s+)?(?:entregas?\s+|registros?\s+|servicios?\s+)?(\p{L}{2,}(?:\s+\p{L}{2,}){0,3})`)

	trailingNoiseRe = regexp.MustCompile(`(?i)\s+\b(por completo|completo|por favor|hoy|mañana)\b.*$`)

	numberRe = regexp.MustCompile(`\d+`)
)

// Non-name words that the looser patterns can capture by mistake.
var stopWords = map[string]bool{
	"eliminar": true, "borrar": true, "cancelar": true, "quitar": true,
	"anular": true, "entregas": true, "entrega": true, "registros": true,
	"registro": true, "servicios": true, "servicio": true, "de": true,
	"del": true, "las": true, "los": true, "todas": true, "todos": true,
}

// ParseCancel reports whether the utterance asks to cancel/delete services
// and, when it does, the patient name it targets.
func (RuleParser) ParseCancel(utterance string) (CancelIntent, bool) {
	text := strings.TrimSpace(utterance)
	if text == "" || !deleteVerbRe.MatchString(text) {
		return CancelIntent{}, false
	}
	return CancelIntent{PatientName: extractName(text)}, true
}

func extractName(text string) string {
	if m := quotedNameRe.FindStringSubmatch(text); m != nil {
		if name := cleanCandidate(m[1]); name != "" {
			return name
		}
	}
	if m := afterPrepRe.FindStringSubmatch(text); m != nil {
		if name := cleanCandidate(m[1]); name != "" {
			return name
		}
	}
	if m := afterVerbRe.FindStringSubmatch(text); m != nil {
		if name := cleanCandidate(m[1]); name != "" {
			return name
		}
	}
	return ""
}

func cleanCandidate(s string) string {
	s = trailingNoiseRe.ReplaceAllString(strings.TrimSpace(s), "")
	words := strings.Fields(s)
	// Drop leading filler words the regexes may have swallowed.
	for len(words) > 0 && stopWords[strings.ToLower(words[0])] {
		words = words[1:]
	}
	if len(words) == 0 {
		return ""
	}
	for _, w := range words {
		if stopWords[strings.ToLower(w)] {
			return ""
		}
	}
	out := strings.Join(words, " ")
	if len(out) < 2 {
		return ""
	}
	return out
}

// ParseSelection interprets the user's reply to a candidate list: "1",
// "1,3", or "todas"/"todos"/"all" for everything. Returned indices are
// 1-based, deduplicated, and bounded by max.
func ParseSelection(reply string, max int) []int {
	t := strings.ToLower(strings.TrimSpace(reply))
	if t == "todas" || t == "todos" || t == "all" {
		out := make([]int, max)
		for i := range out {
			out[i] = i + 1
		}
		return out
	}
	var out []int
	seen := make(map[int]bool)
	for _, m := range numberRe.FindAllString(t, -1) {
		n, err := strconv.Atoi(m)
		if err != nil || n < 1 || n > max || seen[n] {
			continue
		}
		out = append(out, n)
		seen[n] = true
	}
	return out
}
