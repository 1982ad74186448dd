package service

//go:generate go run go.uber.org/mock/mockgen@latest -destination=mocks/mock_generator.go -package=mocks patriotpilot/internal/service Generator
//go:generate go run go.uber.org/mock/mockgen@latest -destination=mocks/mock_chat_service.go -package=mocks -mock_names=ChatService=MockChatService patriotpilot/internal/service ChatService

import (
	"context"
	"strings"

	"patriotpilot/internal/contextutil"
)

// Generator is the opaque generation capability: given a prompt, returns text.
// This interface is defined from the service layer's perspective (consumer-first).
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// ChatRequest represents a direct chat request that bypasses retrieval.
type ChatRequest struct {
	Message string `validate:"required"`
}

// ChatResponse represents a chat response in the domain layer.
type ChatResponse struct {
	Reply string
}

// ChatService sends messages straight to the generation capability, without
// grounding them in retrieved context.
type ChatService interface {
	// ProcessChat processes a chat request and returns a response.
	ProcessChat(ctx context.Context, req ChatRequest) (ChatResponse, error)
}

type chatService struct {
	generator Generator
}

// NewChatService creates a new ChatService.
func NewChatService(generator Generator) ChatService {
	return &chatService{generator: generator}
}

// ProcessChat processes a chat request.
func (s *chatService) ProcessChat(ctx context.Context, req ChatRequest) (ChatResponse, error) {
	logger := contextutil.LoggerFromContext(ctx)

	if strings.TrimSpace(req.Message) == "" {
		logger.WarnContext(ctx, "empty message in chat request")
		return ChatResponse{}, &ValidationError{
			Field:   "message",
			Message: "cannot be empty",
		}
	}

	reply, err := s.generator.Generate(ctx, req.Message)
	if err != nil {
		logger.ErrorContext(ctx, "failed to get LLM response", "error", err)
		return ChatResponse{}, WrapError(Classify(ErrGenerationFailure, err), "failed to get LLM response")
	}

	logger.InfoContext(ctx, "chat request processed", "message_length", len(req.Message), "reply_length", len(reply))
	return ChatResponse{Reply: reply}, nil
}
