package domain

// ChatMessage is the provider-agnostic chat message shape used by the handler
// and the upstream integration.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Chat roles accepted from the inbound request body.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)
