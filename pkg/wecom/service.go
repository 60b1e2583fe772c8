// pkg/wecom/service.go
package wecom

import (
	"context"
	"errors"
	"time"
)

// PushService defines the interface for sending WeCom push messages
type PushService interface {
	IsConfigured() bool
	SendCard(ctx context.Context, toUser string, card Card) error
}

// Card represents a textcard message: a titled body with a target link.
type Card struct {
	Title       string
	Description string
	URL         string
	ButtonText  string
}

// Config holds WeCom client configuration. The channel counts as
// configured only when the full credential triple is present.
type Config struct {
	CorpID  string
	AgentID string
	Secret  string
	BaseURL string
}

// ErrNotConfigured is returned when a send is attempted without the full
// credential triple.
var ErrNotConfigured = errors.New("wecom: push channel not configured")

// MockPushService implements PushService for testing
type MockPushService struct {
	Configured bool
	SendErr    error
	SentCards  []SentCard
}

// SentCard represents a card that was sent via MockPushService
type SentCard struct {
	ToUser string
	Card   Card
	SentAt time.Time
}

// NewMockPushService creates a new mock push service
func NewMockPushService() *MockPushService {
	return &MockPushService{
		Configured: true,
		SentCards:  make([]SentCard, 0),
	}
}

func (m *MockPushService) IsConfigured() bool {
	return m.Configured
}

func (m *MockPushService) SendCard(ctx context.Context, toUser string, card Card) error {
	if m.SendErr != nil {
		return m.SendErr
	}
	m.SentCards = append(m.SentCards, SentCard{
		ToUser: toUser,
		Card:   card,
		SentAt: time.Now(),
	})
	return nil
}

// GetLastSentCard returns the last sent card (for testing)
func (m *MockPushService) GetLastSentCard() *SentCard {
	if len(m.SentCards) == 0 {
		return nil
	}
	return &m.SentCards[len(m.SentCards)-1]
}

// Clear clears all sent cards (for testing)
func (m *MockPushService) Clear() {
	m.SentCards = make([]SentCard, 0)
}
