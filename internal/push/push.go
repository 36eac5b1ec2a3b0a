package push

import (
	"context"
	"errors"
	"fmt"

	"entrepreneur-connect-backend/internal/config"
	"entrepreneur-connect-backend/internal/metrics"

	"github.com/rs/zerolog/log"
	"github.com/sideshow/apns2"
	"github.com/sideshow/apns2/payload"
	"github.com/sideshow/apns2/token"
)

// ErrNoDevice is returned when a notification has no device token
var ErrNoDevice = errors.New("no device token")

// Notification is a mobile push addressed to one device
type Notification struct {
	DeviceToken string            `json:"device_token"`
	Title       string            `json:"title"`
	Body        string            `json:"body"`
	Badge       *int              `json:"badge,omitempty"`
	Data        map[string]string `json:"data,omitempty"`
}

// Dispatcher delivers or queues push notifications
type Dispatcher interface {
	Dispatch(ctx context.Context, n Notification) error
}

// Noop drops every notification
type Noop struct{}

// Dispatch implements Dispatcher
func (Noop) Dispatch(ctx context.Context, n Notification) error {
	log.Debug().Str("title", n.Title).Msg("Push disabled, dropping notification")
	return nil
}

// APNsSender delivers notifications through Apple Push Notification service
type APNsSender struct {
	client *apns2.Client
	topic  string
}

// NewAPNsSender creates a token-based APNs client from the push config
func NewAPNsSender(cfg config.PushConfig) (*APNsSender, error) {
	authKey, err := token.AuthKeyFromFile(cfg.KeyFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load APNs key: %w", err)
	}

	client := apns2.NewTokenClient(&token.Token{
		AuthKey: authKey,
		KeyID:   cfg.KeyID,
		TeamID:  cfg.TeamID,
	})
	if cfg.Production {
		client = client.Production()
	} else {
		client = client.Development()
	}

	return &APNsSender{client: client, topic: cfg.Topic}, nil
}

// Dispatch sends the notification synchronously
func (s *APNsSender) Dispatch(ctx context.Context, n Notification) error {
	if n.DeviceToken == "" {
		return ErrNoDevice
	}

	res, err := s.client.PushWithContext(ctx, &apns2.Notification{
		DeviceToken: n.DeviceToken,
		Topic:       s.topic,
		Payload:     BuildPayload(n),
	})
	if err != nil {
		metrics.PushDeliveries.WithLabelValues("error").Inc()
		return fmt.Errorf("failed to push notification: %w", err)
	}
	if !res.Sent() {
		metrics.PushDeliveries.WithLabelValues("rejected").Inc()
		return fmt.Errorf("push rejected: %d %s", res.StatusCode, res.Reason)
	}

	metrics.PushDeliveries.WithLabelValues("sent").Inc()
	log.Debug().Str("apns_id", res.ApnsID).Msg("Push notification sent")
	return nil
}

// BuildPayload creates the aps payload of a notification
func BuildPayload(n Notification) *payload.Payload {
	p := payload.NewPayload().
		AlertTitle(n.Title).
		AlertBody(n.Body).
		Sound("default")
	if n.Badge != nil {
		p = p.Badge(*n.Badge)
	}
	for k, v := range n.Data {
		p = p.Custom(k, v)
	}
	return p
}
