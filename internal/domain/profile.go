package domain

// SectionType classifies a profile passage for intent matching.
type SectionType string

const (
	SectionFact    SectionType = "fact"
	SectionStory   SectionType = "story"
	SectionAnswer  SectionType = "answer"
	SectionExample SectionType = "example"
)

// ProfileSection is one biography passage from the static catalog. Sections
// are read-only reference data and never mutated at runtime.
type ProfileSection struct {
	ID      string
	Title   string
	Content string
	Tags    []string
	Type    SectionType
}
