package models

import "time"

// Notification types
const (
	NotificationConnectionRequest  = "connection_request"
	NotificationConnectionAccepted = "connection_accepted"
)

// Notification is a fan-out record owned by its recipient
type Notification struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Type      string    `json:"type"`
	Title     string    `json:"title"`
	Message   string    `json:"message"`
	RelatedID *string   `json:"related_id,omitempty"`
	IsRead    bool      `json:"is_read"`
	CreatedAt time.Time `json:"created_at"`
}

// NotificationPage is one page of a user's notifications
type NotificationPage struct {
	Items    []Notification `json:"items"`
	Total    int            `json:"total"`
	Unread   int            `json:"unread"`
	Page     int            `json:"page"`
	PageSize int            `json:"page_size"`
}

// Message is an immutable direct message
type Message struct {
	ID         string    `json:"id"`
	SenderID   string    `json:"sender_id"`
	ReceiverID string    `json:"receiver_id"`
	Content    string    `json:"content"`
	IsRead     bool      `json:"is_read"`
	CreatedAt  time.Time `json:"created_at"`
}

// OtherUserID returns the counterpart of viewerID in the message
func (m *Message) OtherUserID(viewerID string) string {
	if m.SenderID == viewerID {
		return m.ReceiverID
	}
	return m.SenderID
}

// Conversation groups the messages exchanged with one counterpart
type Conversation struct {
	OtherUserID string          `json:"other_user_id"`
	Profile     *ProfileSummary `json:"profile,omitempty"`
	Messages    []Message       `json:"messages"`
	LastMessage *Message        `json:"last_message,omitempty"`
	UnreadCount int             `json:"unread_count"`
}

// MessageItem is a message with its sender card, used on the dashboard
type MessageItem struct {
	Message
	Sender *ProfileSummary `json:"sender,omitempty"`
}

// DashboardStats are the headline counters of the dashboard
type DashboardStats struct {
	Connections         int `json:"connections"`
	MessagesReceived    int `json:"messages_received"`
	EventsRegistered    int `json:"events_registered"`
	ProfileViews        int `json:"profile_views"`
	UnreadNotifications int `json:"unread_notifications"`
	PendingRequests     int `json:"pending_requests"`
}

// Dashboard is the landing page summary of a user
type Dashboard struct {
	Stats             DashboardStats   `json:"stats"`
	RecentConnections []ConnectionItem `json:"recent_connections"`
	RecentMessages    []MessageItem    `json:"recent_messages"`
	UpcomingEvents    []EventItem      `json:"upcoming_events"`
}
