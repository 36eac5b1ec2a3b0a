package services

import (
	"context"
	"sort"
	"strings"
	"time"

	"entrepreneur-connect-backend/internal/apperrors"
	"entrepreneur-connect-backend/internal/metrics"
	"entrepreneur-connect-backend/internal/models"
	"entrepreneur-connect-backend/internal/realtime"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// Greeting is the first message sent when a conversation is started from a connection
const Greeting = "Salut ! Je suis ravi de faire ta connaissance 👋"

// maxMessageLength bounds the content of a message
const maxMessageLength = 5000

// MessagingService handles direct messages between users
type MessagingService struct {
	messages  MessageStore
	profiles  ProfileStore
	notifier  notifier
	publisher Publisher
	now       func() time.Time
}

// NewMessagingService creates a new messaging service
func NewMessagingService(messages MessageStore, profiles ProfileStore, notifier notifier, publisher Publisher) *MessagingService {
	return &MessagingService{
		messages:  messages,
		profiles:  profiles,
		notifier:  notifier,
		publisher: publisher,
		now:       time.Now,
	}
}

// Send delivers a message from sender to receiver
func (s *MessagingService) Send(ctx context.Context, senderID, receiverID, content string) (*models.Message, error) {
	content = strings.TrimSpace(content)
	receiverID = strings.TrimSpace(receiverID)

	if content == "" {
		return nil, apperrors.NewValidationError("content", "message cannot be empty")
	}
	if len([]rune(content)) > maxMessageLength {
		return nil, apperrors.NewValidationError("content", "message is too long")
	}
	if receiverID == "" {
		return nil, apperrors.NewValidationError("receiver_id", "receiver_id is required")
	}
	if receiverID == senderID {
		return nil, apperrors.NewValidationError("receiver_id", "cannot send a message to yourself")
	}

	exists, err := s.profiles.Exists(ctx, receiverID)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, apperrors.NewNotFoundError("receiver profile not found")
	}
	if _, err := ensureProfile(ctx, s.profiles, senderID, s.now); err != nil {
		return nil, err
	}

	msg := &models.Message{
		ID:         uuid.New().String(),
		SenderID:   senderID,
		ReceiverID: receiverID,
		Content:    content,
		CreatedAt:  s.now(),
	}
	if err := s.messages.Create(ctx, msg); err != nil {
		return nil, err
	}

	metrics.MessagesSent.Inc()
	log.Info().
		Str("message_id", msg.ID).
		Str("sender_id", senderID).
		Str("receiver_id", receiverID).
		Msg("Message sent")

	if err := s.publisher.Publish(ctx, realtime.NewEvent(realtime.TypeMessage, msg, senderID, receiverID)); err != nil {
		log.Warn().Err(err).Str("message_id", msg.ID).Msg("Failed to publish message")
	}
	s.notifier.PublishBadges(ctx, receiverID)

	return msg, nil
}

// Conversations groups the viewer's messages by counterpart, most recent
// conversation first, optionally filtered on the counterpart's name or company
func (s *MessagingService) Conversations(ctx context.Context, viewerID, search string) ([]models.Conversation, error) {
	msgs, err := s.messages.ListForUser(ctx, viewerID)
	if err != nil {
		return nil, err
	}

	convs := groupConversations(msgs, viewerID)

	ids := make([]string, 0, len(convs))
	for _, c := range convs {
		ids = append(ids, c.OtherUserID)
	}
	summaries, err := s.profiles.Summaries(ctx, ids)
	if err != nil {
		return nil, err
	}

	search = strings.TrimSpace(search)
	out := make([]models.Conversation, 0, len(convs))
	for _, c := range convs {
		if summary, ok := summaries[c.OtherUserID]; ok {
			c.Profile = &summary
		}
		if search != "" && (c.Profile == nil || !c.Profile.Matches(search)) {
			continue
		}
		out = append(out, c)
	}
	return out, nil
}

// groupConversations splits ascending messages by counterpart
func groupConversations(msgs []models.Message, viewerID string) []models.Conversation {
	byOther := make(map[string]*models.Conversation)
	order := make([]string, 0)

	for _, m := range msgs {
		other := m.OtherUserID(viewerID)
		conv, ok := byOther[other]
		if !ok {
			conv = &models.Conversation{OtherUserID: other}
			byOther[other] = conv
			order = append(order, other)
		}
		conv.Messages = append(conv.Messages, m)
		if m.ReceiverID == viewerID && !m.IsRead {
			conv.UnreadCount++
		}
	}

	out := make([]models.Conversation, 0, len(order))
	for _, other := range order {
		conv := byOther[other]
		sort.SliceStable(conv.Messages, func(i, j int) bool {
			return conv.Messages[i].CreatedAt.Before(conv.Messages[j].CreatedAt)
		})
		last := conv.Messages[len(conv.Messages)-1]
		conv.LastMessage = &last
		out = append(out, *conv)
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].LastMessage.CreatedAt.After(out[j].LastMessage.CreatedAt)
	})
	return out
}

// Conversation returns the messages exchanged with another user, oldest first
func (s *MessagingService) Conversation(ctx context.Context, viewerID, otherID string) (*models.Conversation, error) {
	msgs, err := s.messages.ListBetween(ctx, viewerID, otherID)
	if err != nil {
		return nil, err
	}

	conv := &models.Conversation{OtherUserID: otherID, Messages: make([]models.Message, 0, len(msgs))}
	for _, m := range msgs {
		conv.Messages = append(conv.Messages, m)
		if m.ReceiverID == viewerID && !m.IsRead {
			conv.UnreadCount++
		}
	}
	if n := len(conv.Messages); n > 0 {
		last := conv.Messages[n-1]
		conv.LastMessage = &last
	}

	summaries, err := s.profiles.Summaries(ctx, []string{otherID})
	if err != nil {
		return nil, err
	}
	if summary, ok := summaries[otherID]; ok {
		conv.Profile = &summary
	}
	return conv, nil
}

// StartConversation greets a user the viewer has never written to and
// returns the conversation
func (s *MessagingService) StartConversation(ctx context.Context, viewerID, otherID string) (*models.Conversation, error) {
	msgs, err := s.messages.ListBetween(ctx, viewerID, otherID)
	if err != nil {
		return nil, err
	}
	if len(msgs) == 0 {
		if _, err := s.Send(ctx, viewerID, otherID, Greeting); err != nil {
			return nil, err
		}
	}
	return s.Conversation(ctx, viewerID, otherID)
}

// UnreadCount returns the number of unread messages received by the user
func (s *MessagingService) UnreadCount(ctx context.Context, userID string) (int, error) {
	return s.messages.CountUnread(ctx, userID)
}

// MarkConversationRead marks the messages received from otherID as read
func (s *MessagingService) MarkConversationRead(ctx context.Context, viewerID, otherID string) (int64, error) {
	n, err := s.messages.MarkConversationRead(ctx, viewerID, otherID)
	if err != nil {
		return 0, err
	}
	if n > 0 {
		s.notifier.PublishBadges(ctx, viewerID)
	}
	return n, nil
}
