package service

import (
	"context"
	"errors"
	"fmt"
	"math/rand"

	"github.com/virtual-dev/presence-service/internal/domain"

	"github.com/google/uuid"
)

// SessionStore is the slice of the session repository this service needs.
type SessionStore interface {
	Save(ctx context.Context, p *domain.Participant) error
	Get(ctx context.Context, id string) (*domain.Participant, error)
	Delete(ctx context.Context, id string) error
	List(ctx context.Context) ([]domain.Participant, error)
	Extend(ctx context.Context, id string) error
}

// SessionService owns participant identity: join (new or resumed), position
// updates and teardown. It is the only writer of a participant's record.
type SessionService struct {
	store     SessionStore
	mapWidth  float64
	mapHeight float64
}

func NewSessionService(store SessionStore, mapWidth, mapHeight float64) *SessionService {
	if mapWidth <= 0 {
		mapWidth = domain.DefaultMapWidth
	}
	if mapHeight <= 0 {
		mapHeight = domain.DefaultMapHeight
	}
	return &SessionService{store: store, mapWidth: mapWidth, mapHeight: mapHeight}
}

// Join resumes the session when sessionID still maps to a live record,
// otherwise mints a fresh participant. Returns the participant together with
// the current roster (all other live participants).
func (s *SessionService) Join(ctx context.Context, sessionID, requestedName string) (*domain.Participant, []domain.Participant, error) {
	var p *domain.Participant

	if sessionID != "" {
		existing, err := s.store.Get(ctx, sessionID)
		switch {
		case err == nil:
			p = existing
			if err := s.store.Extend(ctx, p.ID); err != nil && !errors.Is(err, domain.ErrSessionNotFound) {
				return nil, nil, err
			}
		case errors.Is(err, domain.ErrSessionNotFound):
			// expired or never existed: fall through to a fresh identity
		default:
			return nil, nil, err
		}
	}

	if p == nil {
		p = s.mint(requestedName)
	}

	if err := s.store.Save(ctx, p); err != nil {
		return nil, nil, err
	}

	roster, err := s.store.List(ctx)
	if err != nil {
		return nil, nil, err
	}
	others := make([]domain.Participant, 0, len(roster))
	for _, other := range roster {
		if other.ID != p.ID {
			others = append(others, other)
		}
	}

	return p, others, nil
}

// UpdatePosition clamps and persists a move for a live participant.
func (s *SessionService) UpdatePosition(ctx context.Context, id string, pos domain.Position) (*domain.Participant, error) {
	p, err := s.store.Get(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrSessionNotFound) {
			return nil, fmt.Errorf("move for %s: %w", id, domain.ErrUnknownParticipant)
		}
		return nil, err
	}

	p.Position = pos.Clamp(s.mapWidth, s.mapHeight)
	if err := s.store.Save(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

func (s *SessionService) Roster(ctx context.Context) ([]domain.Participant, error) {
	return s.store.List(ctx)
}

func (s *SessionService) Disconnect(ctx context.Context, id string) error {
	return s.store.Delete(ctx, id)
}

// Touch refreshes the session TTL; any successful participant activity
// counts.
func (s *SessionService) Touch(ctx context.Context, id string) error {
	return s.store.Extend(ctx, id)
}

func (s *SessionService) MapBounds() (w, h float64) {
	return s.mapWidth, s.mapHeight
}

func (s *SessionService) mint(requestedName string) *domain.Participant {
	name := requestedName
	if name == "" {
		name = GenerateUsername()
	}
	return &domain.Participant{
		ID:       uuid.NewString(),
		Username: name,
		Color:    GenerateColor(),
		Position: domain.Position{
			X: rand.Float64() * s.mapWidth,
			Y: rand.Float64() * s.mapHeight,
		},
	}
}
