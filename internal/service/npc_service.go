package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/virtual-dev/presence-service/internal/domain"
	"github.com/virtual-dev/presence-service/internal/llm"

	"github.com/google/uuid"
)

type NPCStore interface {
	List(ctx context.Context) ([]domain.NPCConfig, error)
	Get(ctx context.Context, id string) (*domain.NPCConfig, error)
	GetConversation(ctx context.Context, npcID, userID string) (*domain.Conversation, error)
	SaveConversation(ctx context.Context, c *domain.Conversation) error
}

// ChatProvider is the LLM boundary. The presence core never calls it.
type ChatProvider interface {
	Configured() bool
	Complete(ctx context.Context, system string, msgs []llm.Message) (string, error)
	Stream(ctx context.Context, system string, msgs []llm.Message, onChunk func(string)) (string, error)
}

type ChatResult struct {
	ConversationID string
	Message        string
	NPCName        string
}

// NPCService runs participant conversations with scripted characters:
// history load, provider call, history save. Independent of the presence
// engine; a slow provider only delays its own request.
type NPCService struct {
	repo     NPCStore
	provider ChatProvider
}

func NewNPCService(repo NPCStore, provider ChatProvider) *NPCService {
	return &NPCService{repo: repo, provider: provider}
}

func (s *NPCService) ListNPCs(ctx context.Context) ([]domain.NPCConfig, error) {
	return s.repo.List(ctx)
}

func (s *NPCService) Chat(ctx context.Context, npcID, userID, message string) (*ChatResult, error) {
	return s.chat(ctx, npcID, userID, message, nil)
}

// StreamChat is Chat with incremental delivery of the assistant reply.
func (s *NPCService) StreamChat(ctx context.Context, npcID, userID, message string, onChunk func(string)) (*ChatResult, error) {
	return s.chat(ctx, npcID, userID, message, onChunk)
}

func (s *NPCService) chat(ctx context.Context, npcID, userID, message string, onChunk func(string)) (*ChatResult, error) {
	if !s.provider.Configured() {
		return nil, llm.ErrNotConfigured
	}

	npc, err := s.repo.Get(ctx, npcID)
	if err != nil {
		return nil, err
	}

	conv, err := s.repo.GetConversation(ctx, npcID, userID)
	switch {
	case err == nil:
	case errors.Is(err, domain.ErrConversationMissing):
		conv = &domain.Conversation{
			ID:     uuid.NewString(),
			NPCID:  npcID,
			UserID: userID,
		}
	default:
		return nil, err
	}

	conv.Messages = append(conv.Messages, domain.ConversationMessage{
		Role:      "user",
		Content:   message,
		Timestamp: time.Now(),
	})

	msgs := make([]llm.Message, 0, len(conv.Messages))
	for _, m := range conv.Messages {
		msgs = append(msgs, llm.Message{Role: m.Role, Content: m.Content})
	}

	var reply string
	if onChunk != nil {
		reply, err = s.provider.Stream(ctx, npc.SystemPrompt, msgs, onChunk)
	} else {
		reply, err = s.provider.Complete(ctx, npc.SystemPrompt, msgs)
	}
	if err != nil {
		return nil, fmt.Errorf("npc %s: %w", npc.Name, err)
	}

	conv.Messages = append(conv.Messages, domain.ConversationMessage{
		Role:      "assistant",
		Content:   reply,
		Timestamp: time.Now(),
	})
	if err := s.repo.SaveConversation(ctx, conv); err != nil {
		return nil, err
	}

	return &ChatResult{
		ConversationID: conv.ID,
		Message:        reply,
		NPCName:        npc.Name,
	}, nil
}
