package services

import (
	"context"
	"sync"
	"testing"

	"entrepreneur-connect-backend/internal/apperrors"
	"entrepreneur-connect-backend/internal/models"
	"entrepreneur-connect-backend/internal/realtime"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSendRequestCreatesPendingConnection(t *testing.T) {
	e := newEnv()
	ctx := context.Background()
	e.addProfile("a", "Alice", "A", nil, nil)
	e.addProfile("b", "Bob", "B", nil, nil)

	conn, err := e.relationshipSvc.SendRequest(ctx, "a", "b")
	require.NoError(t, err)
	assert.Equal(t, models.StatusPending, conn.Status)
	assert.Equal(t, "a", conn.UserID)
	assert.Equal(t, "b", conn.ConnectedUserID)

	all, _ := e.connections.ListForUser(ctx, "a")
	assert.Len(t, all, 1)

	notifs := e.notifications.forUser("b")
	require.Len(t, notifs, 1)
	assert.Equal(t, models.NotificationConnectionRequest, notifs[0].Type)
	require.NotNil(t, notifs[0].RelatedID)
	assert.Equal(t, "a", *notifs[0].RelatedID)

	changes := e.publisher.ofType(realtime.TypeConnection)
	require.Len(t, changes, 1)
	assert.ElementsMatch(t, []string{"a", "b"}, changes[0].UserIDs)
}

func TestSendRequestRejections(t *testing.T) {
	e := newEnv()
	ctx := context.Background()
	e.addProfile("a", "Alice", "A", nil, nil)
	e.addProfile("b", "Bob", "B", nil, nil)

	_, err := e.relationshipSvc.SendRequest(ctx, "a", "a")
	assert.ErrorIs(t, err, apperrors.ErrSelfConnection)

	_, err = e.relationshipSvc.SendRequest(ctx, "a", "ghost")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)

	_, err = e.relationshipSvc.SendRequest(ctx, "a", " ")
	assert.ErrorIs(t, err, apperrors.ErrValidation)

	_, err = e.relationshipSvc.SendRequest(ctx, "a", "b")
	require.NoError(t, err)

	_, err = e.relationshipSvc.SendRequest(ctx, "a", "b")
	assert.ErrorIs(t, err, apperrors.ErrConnectionExists)

	// The reverse direction is the same pair
	_, err = e.relationshipSvc.SendRequest(ctx, "b", "a")
	assert.ErrorIs(t, err, apperrors.ErrConnectionExists)
}

func TestConcurrentRequestsCreateOneRow(t *testing.T) {
	e := newEnv()
	ctx := context.Background()
	e.addProfile("a", "Alice", "A", nil, nil)
	e.addProfile("b", "Bob", "B", nil, nil)

	var wg sync.WaitGroup
	errs := make([]error, 10)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			from, to := "a", "b"
			if i%2 == 1 {
				from, to = "b", "a"
			}
			_, errs[i] = e.relationshipSvc.SendRequest(ctx, from, to)
		}(i)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
			continue
		}
		assert.ErrorIs(t, err, apperrors.ErrConnectionExists)
	}
	assert.Equal(t, 1, succeeded)

	all, _ := e.connections.ListForUser(ctx, "a")
	assert.Len(t, all, 1)
}

func TestAcceptRequest(t *testing.T) {
	e := newEnv()
	ctx := context.Background()
	e.addProfile("a", "Alice", "A", nil, nil)
	e.addProfile("b", "Bob", "B", nil, nil)

	conn, err := e.relationshipSvc.SendRequest(ctx, "a", "b")
	require.NoError(t, err)

	_, err = e.relationshipSvc.AcceptRequest(ctx, "a", conn.ID)
	assert.ErrorIs(t, err, apperrors.ErrForbidden, "requester cannot accept")

	accepted, err := e.relationshipSvc.AcceptRequest(ctx, "b", conn.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusAccepted, accepted.Status)
	assert.NotNil(t, accepted.UpdatedAt)

	notifs := e.notifications.forUser("a")
	require.Len(t, notifs, 1)
	assert.Equal(t, models.NotificationConnectionAccepted, notifs[0].Type)
	assert.Equal(t, "Connexion acceptée", notifs[0].Title)
	assert.Equal(t, "Bob a accepté votre demande de connexion", notifs[0].Message)
	require.NotNil(t, notifs[0].RelatedID)
	assert.Equal(t, "b", *notifs[0].RelatedID)

	_, err = e.relationshipSvc.AcceptRequest(ctx, "b", conn.ID)
	assert.ErrorIs(t, err, apperrors.ErrInvalidTransition)

	_, err = e.relationshipSvc.DeclineRequest(ctx, "b", conn.ID)
	assert.ErrorIs(t, err, apperrors.ErrInvalidTransition)

	_, err = e.relationshipSvc.AcceptRequest(ctx, "b", "missing")
	assert.True(t, apperrors.IsNotFound(err))
}

func TestAcceptUsesFallbackName(t *testing.T) {
	e := newEnv()
	ctx := context.Background()
	e.addProfile("a", "Alice", "A", nil, nil)
	e.addProfile("b", "", "", nil, nil)

	conn, err := e.relationshipSvc.SendRequest(ctx, "a", "b")
	require.NoError(t, err)
	_, err = e.relationshipSvc.AcceptRequest(ctx, "b", conn.ID)
	require.NoError(t, err)

	notifs := e.notifications.forUser("a")
	require.Len(t, notifs, 1)
	assert.Equal(t, "Un entrepreneur a accepté votre demande de connexion", notifs[0].Message)
}

func TestDeclineRequest(t *testing.T) {
	e := newEnv()
	ctx := context.Background()
	e.addProfile("a", "Alice", "A", nil, nil)
	e.addProfile("b", "Bob", "B", nil, nil)

	conn, err := e.relationshipSvc.SendRequest(ctx, "a", "b")
	require.NoError(t, err)

	declined, err := e.relationshipSvc.DeclineRequest(ctx, "b", conn.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusDeclined, declined.Status)
	assert.Empty(t, e.notifications.forUser("a"), "declining does not notify")

	_, err = e.relationshipSvc.AcceptRequest(ctx, "b", conn.ID)
	assert.ErrorIs(t, err, apperrors.ErrInvalidTransition)

	relation, err := e.relationshipSvc.RelationBetween(ctx, "a", "b")
	require.NoError(t, err)
	assert.Equal(t, "sent_declined", relation.String())
}

func TestAcceptedListIsSymmetric(t *testing.T) {
	e := newEnv()
	ctx := context.Background()
	for _, id := range []string{"a", "b", "c", "d"} {
		e.addProfile(id, "User", id, nil, nil)
	}

	ab, _ := e.relationshipSvc.SendRequest(ctx, "a", "b")
	ca, _ := e.relationshipSvc.SendRequest(ctx, "c", "a")
	_, _ = e.relationshipSvc.SendRequest(ctx, "a", "d")

	_, err := e.relationshipSvc.AcceptRequest(ctx, "b", ab.ID)
	require.NoError(t, err)
	_, err = e.relationshipSvc.AcceptRequest(ctx, "a", ca.ID)
	require.NoError(t, err)

	lists, err := e.relationshipSvc.Lists(ctx, "a", "")
	require.NoError(t, err)

	others := func(items []models.ConnectionItem) []string {
		out := make([]string, 0, len(items))
		for _, item := range items {
			out = append(out, item.OtherUserID)
		}
		return out
	}

	// Most recently updated first
	assert.Equal(t, []string{"c", "b"}, others(lists.Accepted))
	assert.ElementsMatch(t, []string{"b", "d"}, others(lists.Sent))
	assert.Empty(t, lists.Received)
	require.NotNil(t, lists.Accepted[0].Profile)
	assert.Equal(t, "c", lists.Accepted[0].Profile.ID)

	for _, id := range []string{"b", "c"} {
		lists, err := e.relationshipSvc.Lists(ctx, id, "")
		require.NoError(t, err)
		assert.Equal(t, []string{"a"}, others(lists.Accepted), "accepted list of %s", id)
	}

	lists, err = e.relationshipSvc.Lists(ctx, "d", "")
	require.NoError(t, err)
	assert.Equal(t, []string{"a"}, others(lists.Received))
	assert.Empty(t, lists.Accepted)

	pending, err := e.relationshipSvc.PendingCount(ctx, "d")
	require.NoError(t, err)
	assert.Equal(t, 1, pending)
}

func TestListsSearch(t *testing.T) {
	e := newEnv()
	ctx := context.Background()
	e.addProfile("a", "Alice", "A", nil, nil)
	e.addProfile("b", "Bruno", "Durand", nil, nil)
	e.addProfile("c", "Chloé", "Petit", nil, nil)

	_, _ = e.relationshipSvc.SendRequest(ctx, "a", "b")
	_, _ = e.relationshipSvc.SendRequest(ctx, "a", "c")

	lists, err := e.relationshipSvc.Lists(ctx, "a", "bruno dur")
	require.NoError(t, err)
	require.Len(t, lists.Sent, 1)
	assert.Equal(t, "b", lists.Sent[0].OtherUserID)
}
