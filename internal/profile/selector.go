// Package profile selects biography passages relevant to a visitor question
// and renders them into the system prompt sent upstream.
package profile

import (
	"sort"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"profile-chat/internal/domain"
)

const (
	// DefaultMaxBlocks bounds how many passages are concatenated into one
	// prompt.
	DefaultMaxBlocks = 6

	systemPromptBase = "You are a professional profile assistant for Miguel Garcia. " +
		"Answer using only the provided context. " +
		"If the answer is not in the context, say you do not have that information " +
		"and invite the user to reach out by his X account or LinkedIn. " +
		"Reply in the same language as the user."

	tagBonus  = 2
	typeBonus = 2
	minToken  = 3
)

// tagKeywords maps catalog tags to the question tokens that signal interest
// in that topic, in both Spanish and English.
var tagKeywords = map[string][]string{
	"trayectoria": {"trayectoria", "camino", "historia", "inicios", "origen", "empezar",
		"empece", "empezo", "journey", "background", "career"},
	"motivacion": {"motivacion", "motiva", "porque", "razon", "razones", "pasion",
		"motivation", "drives", "purpose"},
	"forma-de-trabajar": {"trabajar", "forma", "metodo", "metodologia", "priorizo", "organizo",
		"proceso", "workflow", "work", "working", "style", "prioritize", "ownership",
		"autonomy", "delivery"},
	"equipo": {"equipo", "companero", "colaboracion", "colaborar", "feedback", "comunicacion",
		"liderazgo", "team", "teamwork", "collaboration", "cross", "stakeholder", "stakeholders"},
	"fortalezas": {"fortaleza", "fortalezas", "fuerte", "strength", "strengths"},
	"debilidades": {"debilidad", "debilidades", "defecto", "defectos", "weakness", "weaknesses",
		"improve", "improving", "growth"},
	"valores": {"valores", "principios", "etica", "importante", "prioridad", "values",
		"principles", "quality"},
	"impacto": {"impacto", "logro", "resultado", "metricas", "mejora", "mejorar", "impact",
		"outcome", "outcomes", "result", "results", "metric", "metrics", "kpi", "kpis"},
	"aprendizaje": {"aprendizaje", "aprender", "aprendo", "curiosidad", "learning", "learn",
		"iterate"},
	"cultura": {"cultura", "ambiente", "entorno", "culture", "environment"},
	"proyectos": {"proyecto", "proyectos", "caso", "ejemplo", "situacion", "reto", "project",
		"projects", "example", "challenge"},
	"futuro": {"futuro", "objetivo", "objetivos", "crecer", "future", "goal", "goals", "next",
		"career"},
	"recruiting": {"recruiter", "recruiting", "hire", "hiring", "candidate", "profile",
		"talent", "seleccion"},
	"comunicacion": {"comunicacion", "communication", "present", "presentation", "speaking",
		"demo", "demos"},
	"liderazgo": {"liderazgo", "leadership", "lead", "led", "mentor", "mentoring"},
	"disponibilidad": {"disponibilidad", "availability", "available", "timezone", "remote",
		"hybrid", "onsite", "relocation", "start", "notice"},
	"ownership": {"ownership", "accountability", "accountable", "responsibility", "responsible"},
	"stakeholders": {"stakeholder", "stakeholders"},
}

var typeKeywords = map[domain.SectionType][]string{
	domain.SectionExample: {"ejemplo", "caso", "situacion", "reto", "problema", "example",
		"challenge", "case", "scenario"},
	domain.SectionStory: {"historia", "camino", "trayectoria", "inicios", "origen", "story",
		"journey", "background"},
	domain.SectionAnswer: {"fortaleza", "debilidad", "valoras", "detestas", "prefieres",
		"strength", "weakness", "values", "prefer", "fit", "availability", "motivation"},
}

// Selector ranks a fixed passage catalog against a question.
type Selector struct {
	sections  []domain.ProfileSection
	maxBlocks int
}

// NewSelector creates a Selector over the given catalog. maxBlocks <= 0 uses
// DefaultMaxBlocks.
func NewSelector(sections []domain.ProfileSection, maxBlocks int) *Selector {
	if maxBlocks <= 0 {
		maxBlocks = DefaultMaxBlocks
	}
	return &Selector{sections: sections, maxBlocks: maxBlocks}
}

// SystemPrompt builds the system-role message for a question: the fixed
// assistant instruction plus the top-scoring context passages.
func (s *Selector) SystemPrompt(question string) string {
	return systemPromptBase + "\n\nContext:\n" + s.buildContext(question)
}

// Select returns the passages chosen for question, highest score first. When
// nothing scores above zero the first maxBlocks passages are returned
// unconditionally so the model always has some grounding.
func (s *Selector) Select(question string) []domain.ProfileSection {
	tokens := tokenize(question)
	intentTags := matchKeywordTags(tokens)
	intentTypes := matchKeywordTypes(tokens)

	type scored struct {
		section domain.ProfileSection
		score   int
	}
	ranked := make([]scored, 0, len(s.sections))
	for _, section := range s.sections {
		score := overlapScore(section.Title+" "+section.Content, tokens)
		for _, tag := range section.Tags {
			if _, ok := intentTags[tag]; ok {
				score += tagBonus
			}
		}
		if _, ok := intentTypes[section.Type]; ok {
			score += typeBonus
		}
		ranked = append(ranked, scored{section: section, score: score})
	}
	sort.SliceStable(ranked, func(i, j int) bool { return ranked[i].score > ranked[j].score })

	top := make([]domain.ProfileSection, 0, s.maxBlocks)
	for _, entry := range ranked {
		if entry.score <= 0 || len(top) >= s.maxBlocks {
			break
		}
		top = append(top, entry.section)
	}
	if len(top) > 0 {
		return top
	}

	n := s.maxBlocks
	if n > len(s.sections) {
		n = len(s.sections)
	}
	return s.sections[:n]
}

func (s *Selector) buildContext(question string) string {
	selected := s.Select(question)
	blocks := make([]string, 0, len(selected))
	for _, section := range selected {
		blocks = append(blocks, "# "+section.Title+"\n"+section.Content)
	}
	return strings.Join(blocks, "\n\n")
}

func matchKeywordTags(tokens []string) map[string]struct{} {
	set := tokenSet(tokens)
	tags := make(map[string]struct{})
	for tag, keywords := range tagKeywords {
		for _, kw := range keywords {
			if _, ok := set[kw]; ok {
				tags[tag] = struct{}{}
				break
			}
		}
	}
	return tags
}

func matchKeywordTypes(tokens []string) map[domain.SectionType]struct{} {
	set := tokenSet(tokens)
	types := make(map[domain.SectionType]struct{})
	for typ, keywords := range typeKeywords {
		for _, kw := range keywords {
			if _, ok := set[kw]; ok {
				types[typ] = struct{}{}
				break
			}
		}
	}
	return types
}

func overlapScore(text string, tokens []string) int {
	if len(tokens) == 0 {
		return 0
	}
	set := tokenSet(tokenize(text))
	score := 0
	for _, token := range tokens {
		if _, ok := set[token]; ok {
			score++
		}
	}
	return score
}

func tokenSet(tokens []string) map[string]struct{} {
	set := make(map[string]struct{}, len(tokens))
	for _, t := range tokens {
		set[t] = struct{}{}
	}
	return set
}

// stripDiacritics decomposes to NFD and drops combining marks, so "trayectoría"
// and "trayectoria" tokenize identically.
var stripDiacritics = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

func tokenize(value string) []string {
	folded, _, err := transform.String(stripDiacritics, value)
	if err != nil {
		folded = value
	}
	folded = strings.ToLower(folded)

	var b strings.Builder
	b.Grow(len(folded))
	for _, r := range folded {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		} else {
			b.WriteByte(' ')
		}
	}

	fields := strings.Fields(b.String())
	tokens := fields[:0]
	for _, f := range fields {
		if len(f) >= minToken {
			tokens = append(tokens, f)
		}
	}
	return tokens
}
