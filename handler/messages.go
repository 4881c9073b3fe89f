package handler

import (
	"encoding/json"
	"strings"

	"profile-chat/internal/domain"
)

// chatRequestBody is the inbound chat payload. Either a bare question or a
// conversation in UI-message form; message content arrives as a plain string
// or as a parts array of text fragments.
type chatRequestBody struct {
	Question string           `json:"question"`
	Messages []inboundMessage `json:"messages"`
}

type inboundMessage struct {
	Role    string          `json:"role"`
	Content json.RawMessage `json:"content"`
	Parts   []inboundPart   `json:"parts"`
}

type inboundPart struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// coerceContent flattens a message's content: a JSON string is used as-is,
// otherwise the text parts are concatenated in order.
func (m inboundMessage) coerceContent() string {
	if len(m.Content) > 0 {
		var s string
		if err := json.Unmarshal(m.Content, &s); err == nil {
			return s
		}
	}
	var b strings.Builder
	for _, part := range m.Parts {
		if part.Type == "text" {
			b.WriteString(part.Text)
		}
	}
	return b.String()
}

func validRole(role string) bool {
	switch role {
	case domain.RoleSystem, domain.RoleUser, domain.RoleAssistant:
		return true
	}
	return false
}

// extractMessages keeps well-formed turns in order: a known role and
// non-empty content after trimming.
func extractMessages(body chatRequestBody) []domain.ChatMessage {
	out := make([]domain.ChatMessage, 0, len(body.Messages))
	for _, m := range body.Messages {
		content := strings.TrimSpace(m.coerceContent())
		if !validRole(m.Role) || content == "" {
			continue
		}
		out = append(out, domain.ChatMessage{Role: m.Role, Content: content})
	}
	return out
}

// extractQuestion prefers the explicit question field, falling back to the
// content of the last user turn.
func extractQuestion(body chatRequestBody, messages []domain.ChatMessage) string {
	if q := strings.TrimSpace(body.Question); q != "" {
		return q
	}
	for i := len(messages) - 1; i >= 0; i-- {
		if messages[i].Role == domain.RoleUser {
			return messages[i].Content
		}
	}
	return ""
}
