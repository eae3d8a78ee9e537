package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"

	"github.com/layer-3/walletauth/core"
	"github.com/layer-3/walletauth/ports"
)

const (
	TopicLogin  = "walletauth.login"
	TopicLogout = "walletauth.logout"
)

var _ ports.EventPublisher = (*WatermillPublisher)(nil)

// SessionEvent is the payload of login and logout events
type SessionEvent struct {
	SessionID string         `json:"session_id"`
	UserID    string         `json:"user_id"`
	Address   string         `json:"address"`
	ChainKind core.ChainKind `json:"chain_kind"`
	At        time.Time      `json:"at"`
}

// WatermillPublisher implements the EventPublisher interface using Watermill
type WatermillPublisher struct {
	publisher message.Publisher
	now       func() time.Time
}

// NewWatermillPublisher creates a new Watermill publisher
func NewWatermillPublisher(publisher message.Publisher) *WatermillPublisher {
	return &WatermillPublisher{
		publisher: publisher,
		now:       time.Now,
	}
}

// PublishLogin publishes a login event
func (p *WatermillPublisher) PublishLogin(ctx context.Context, session *core.Session) error {
	return p.publish(ctx, TopicLogin, session)
}

// PublishLogout publishes a logout event
func (p *WatermillPublisher) PublishLogout(ctx context.Context, session *core.Session) error {
	return p.publish(ctx, TopicLogout, session)
}

func (p *WatermillPublisher) publish(ctx context.Context, topic string, session *core.Session) error {
	event := SessionEvent{
		SessionID: session.ID,
		UserID:    session.UserID,
		Address:   session.Address,
		ChainKind: session.ChainKind,
		At:        p.now().UTC(),
	}

	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	msg := message.NewMessage(watermill.NewUUID(), payload)
	msg.Metadata.Set("session_id", session.ID)
	msg.SetContext(ctx)

	if err := p.publisher.Publish(topic, msg); err != nil {
		return fmt.Errorf("failed to publish event: %w", err)
	}

	return nil
}
