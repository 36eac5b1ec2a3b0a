package models

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// ConnectionStatus is the lifecycle state of a connection request
type ConnectionStatus string

// Connection statuses
const (
	StatusPending  ConnectionStatus = "pending"
	StatusAccepted ConnectionStatus = "accepted"
	StatusDeclined ConnectionStatus = "declined"
)

// Valid reports whether s is one of the known statuses
func (s ConnectionStatus) Valid() bool {
	switch s {
	case StatusPending, StatusAccepted, StatusDeclined:
		return true
	}
	return false
}

// Connection is a directed request edge from UserID (requester) to
// ConnectedUserID (recipient)
type Connection struct {
	ID              string           `json:"id"`
	UserID          string           `json:"user_id"`
	ConnectedUserID string           `json:"connected_user_id"`
	Status          ConnectionStatus `json:"status"`
	CreatedAt       time.Time        `json:"created_at"`
	UpdatedAt       *time.Time       `json:"updated_at,omitempty"`
}

// OtherUserID returns the counterpart of viewerID on this edge
func (c *Connection) OtherUserID(viewerID string) string {
	if c.UserID == viewerID {
		return c.ConnectedUserID
	}
	return c.UserID
}

// Involves reports whether userID is either end of the edge
func (c *Connection) Involves(userID string) bool {
	return c.UserID == userID || c.ConnectedUserID == userID
}

// SortTime is the update time, or the creation time for untouched rows
func (c *Connection) SortTime() time.Time {
	if c.UpdatedAt != nil {
		return *c.UpdatedAt
	}
	return c.CreatedAt
}

// ConnectionItem is a connection seen from one side, with the counterpart resolved
type ConnectionItem struct {
	Connection
	OtherUserID string          `json:"other_user_id"`
	Profile     *ProfileSummary `json:"profile,omitempty"`
}

// ConnectionLists groups the three views of a user's connections
type ConnectionLists struct {
	Received []ConnectionItem `json:"received"`
	Sent     []ConnectionItem `json:"sent"`
	Accepted []ConnectionItem `json:"accepted"`
}

// Direction tells which end of a connection the viewer sits on
type Direction string

// Directions
const (
	DirectionRequester Direction = "requester"
	DirectionRecipient Direction = "recipient"
)

// RelationStatus is the relation between a viewer and another user. The zero
// value means no connection exists.
type RelationStatus struct {
	Direction Direction
	Status    ConnectionStatus
}

// NoRelation is the relation between users without any connection row
var NoRelation = RelationStatus{}

// RelationFor derives the viewer's relation from a connection edge
func RelationFor(c *Connection, viewerID string) RelationStatus {
	if c == nil || !c.Involves(viewerID) {
		return NoRelation
	}
	dir := DirectionRecipient
	if c.UserID == viewerID {
		dir = DirectionRequester
	}
	return RelationStatus{Direction: dir, Status: c.Status}
}

// IsNone reports whether there is no connection
func (r RelationStatus) IsNone() bool {
	return r.Status == ""
}

// String renders the display form: none, sent_pending, received_accepted...
func (r RelationStatus) String() string {
	if r.IsNone() {
		return "none"
	}
	prefix := "received"
	if r.Direction == DirectionRequester {
		prefix = "sent"
	}
	return prefix + "_" + string(r.Status)
}

// ParseRelationStatus parses the display form produced by String
func ParseRelationStatus(s string) (RelationStatus, error) {
	if s == "none" || s == "" {
		return NoRelation, nil
	}
	prefix, status, ok := strings.Cut(s, "_")
	if !ok || !ConnectionStatus(status).Valid() {
		return NoRelation, fmt.Errorf("invalid relation status %q", s)
	}
	switch prefix {
	case "sent":
		return RelationStatus{Direction: DirectionRequester, Status: ConnectionStatus(status)}, nil
	case "received":
		return RelationStatus{Direction: DirectionRecipient, Status: ConnectionStatus(status)}, nil
	}
	return NoRelation, fmt.Errorf("invalid relation status %q", s)
}

type relationJSON struct {
	Direction Direction        `json:"direction,omitempty"`
	Status    ConnectionStatus `json:"status,omitempty"`
	Label     string           `json:"label"`
}

// MarshalJSON encodes the variant together with its display label
func (r RelationStatus) MarshalJSON() ([]byte, error) {
	return json.Marshal(relationJSON{Direction: r.Direction, Status: r.Status, Label: r.String()})
}

// UnmarshalJSON decodes either the object form or the bare label
func (r *RelationStatus) UnmarshalJSON(data []byte) error {
	var label string
	if err := json.Unmarshal(data, &label); err == nil {
		parsed, err := ParseRelationStatus(label)
		if err != nil {
			return err
		}
		*r = parsed
		return nil
	}

	var raw relationJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if raw.Status == "" {
		*r = NoRelation
		return nil
	}
	*r = RelationStatus{Direction: raw.Direction, Status: raw.Status}
	return nil
}
