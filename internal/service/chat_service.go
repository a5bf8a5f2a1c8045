package service

import (
	"context"
	"errors"
	"strings"

	"github.com/virtual-dev/presence-service/internal/domain"

	"github.com/google/uuid"
)

type ChatRepo interface {
	Save(ctx context.Context, m *domain.ChatMessage) error
	History(ctx context.Context, after string, limit int) ([]domain.ChatMessage, string, error)
}

type ChatService struct {
	repo ChatRepo
}

func NewChatService(repo ChatRepo) *ChatService {
	return &ChatService{repo: repo}
}

func (s *ChatService) Save(ctx context.Context, sender domain.Participant, text string) (*domain.ChatMessage, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, errors.New("empty message")
	}
	if len(text) > 4000 {
		return nil, errors.New("message too long")
	}

	m := &domain.ChatMessage{
		ID:       uuid.NewString(),
		UserID:   sender.ID,
		Username: sender.Username,
		Message:  text,
		Position: sender.Position,
	}
	if err := s.repo.Save(ctx, m); err != nil {
		return nil, err
	}
	return m, nil
}

func (s *ChatService) History(ctx context.Context, after string, limit int) ([]domain.ChatMessage, string, error) {
	return s.repo.History(ctx, after, limit)
}
