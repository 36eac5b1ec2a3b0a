package services

import (
	"context"
	"testing"

	"entrepreneur-connect-backend/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestParisLyonJourney walks two founders from sign-in to their first message
func TestParisLyonJourney(t *testing.T) {
	e := newEnv()
	ctx := context.Background()

	// First authenticated calls create default profiles
	for _, id := range []string{"alice", "bruno"} {
		p, err := e.profileSvc.EnsureExists(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, DefaultFirstName, p.FirstName)
	}

	_, err := e.profileSvc.Update(ctx, "alice", models.ProfileUpdate{FirstName: ptr("Alice"), LastName: ptr("Martin"), City: ptr("Paris")})
	require.NoError(t, err)
	_, err = e.profileSvc.Update(ctx, "bruno", models.ProfileUpdate{FirstName: ptr("Bruno"), LastName: ptr("Durand"), City: ptr("Lyon")})
	require.NoError(t, err)

	view, err := e.profileSvc.View(ctx, "alice", "bruno")
	require.NoError(t, err)
	require.NotNil(t, view.DistanceKM)
	assert.InDelta(t, 392, *view.DistanceKM, 1)
	assert.Equal(t, "400+ km", view.Distance)
	assert.Equal(t, "none", view.Relation.String())

	conn, err := e.relationshipSvc.SendRequest(ctx, "alice", "bruno")
	require.NoError(t, err)
	assert.Equal(t, models.StatusPending, conn.Status)

	relation, err := e.relationshipSvc.RelationBetween(ctx, "bruno", "alice")
	require.NoError(t, err)
	assert.Equal(t, "received_pending", relation.String())

	_, err = e.relationshipSvc.AcceptRequest(ctx, "bruno", conn.ID)
	require.NoError(t, err)

	lists, err := e.relationshipSvc.Lists(ctx, "alice", "")
	require.NoError(t, err)
	require.Len(t, lists.Accepted, 1)
	assert.Equal(t, "bruno", lists.Accepted[0].OtherUserID)

	notes := e.notifications.forUser("alice")
	require.Len(t, notes, 1)
	assert.Equal(t, models.NotificationConnectionAccepted, notes[0].Type)

	_, err = e.messagingSvc.Send(ctx, "alice", "bruno", "hello")
	require.NoError(t, err)

	convs, err := e.messagingSvc.Conversations(ctx, "bruno", "")
	require.NoError(t, err)
	require.Len(t, convs, 1)
	assert.Equal(t, "alice", convs[0].OtherUserID)
	require.Len(t, convs[0].Messages, 1)
	assert.Equal(t, "hello", convs[0].Messages[0].Content)
	assert.Equal(t, 1, convs[0].UnreadCount)
}
