package usecase

import (
	"context"
	"errors"
	"strings"

	"profile-chat/internal/domain"
	"profile-chat/internal/integrations/openrouter"
)

// PromptBuilder supplies the system-role context for a question. Implemented
// by profile.Selector.
type PromptBuilder interface {
	SystemPrompt(question string) string
}

// Streamer issues the upstream chat-completion request. Implemented by
// openrouter.Client.
type Streamer interface {
	StreamChat(ctx context.Context, req openrouter.Request) (*openrouter.Stream, error)
}

// ChatService assembles the outbound conversation and starts the upstream
// stream.
type ChatService struct {
	prompts   PromptBuilder
	llm       Streamer
	model     string
	fallbacks []string
}

// NewChatService wires the context selector and upstream client together.
func NewChatService(prompts PromptBuilder, llm Streamer, model string, fallbacks []string) (*ChatService, error) {
	if prompts == nil {
		return nil, errors.New("usecase: prompt builder must not be nil")
	}
	if llm == nil {
		return nil, errors.New("usecase: streamer must not be nil")
	}
	model = strings.TrimSpace(model)
	if model == "" {
		return nil, errors.New("usecase: model must not be empty")
	}
	return &ChatService{
		prompts:   prompts,
		llm:       llm,
		model:     model,
		fallbacks: fallbacks,
	}, nil
}

// Stream sends the question with its selected context upstream. The inbound
// conversation is forwarded verbatim after the synthesized system message;
// with no inbound turns a single user message carries the question. On
// failure the error is a *openrouter.Failure (or a credential error), which
// Normalize converts into the response payload.
func (s *ChatService) Stream(ctx context.Context, question string, inbound []domain.ChatMessage) (*openrouter.Stream, error) {
	messages := make([]domain.ChatMessage, 0, len(inbound)+2)
	messages = append(messages, domain.ChatMessage{
		Role:    domain.RoleSystem,
		Content: s.prompts.SystemPrompt(question),
	})
	if len(inbound) > 0 {
		messages = append(messages, inbound...)
	} else {
		messages = append(messages, domain.ChatMessage{Role: domain.RoleUser, Content: question})
	}

	// The primary model must not appear again in the fallback list, or the
	// provider would retry the same model twice.
	fallbacks := make([]string, 0, len(s.fallbacks))
	for _, m := range s.fallbacks {
		if m != s.model {
			fallbacks = append(fallbacks, m)
		}
	}

	return s.llm.StreamChat(ctx, openrouter.Request{
		Model:          s.model,
		FallbackModels: fallbacks,
		Messages:       messages,
	})
}
