package worker

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"entrepreneur-connect-backend/internal/push"

	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingSender struct {
	sent []push.Notification
	err  error
}

func (s *recordingSender) Dispatch(ctx context.Context, n push.Notification) error {
	if s.err != nil {
		return s.err
	}
	s.sent = append(s.sent, n)
	return nil
}

func TestPushTaskRoundTrip(t *testing.T) {
	badge := 3
	n := push.Notification{
		DeviceToken: "device-1",
		Title:       "Nouvelle demande de connexion",
		Body:        "Claire souhaite se connecter avec vous",
		Badge:       &badge,
		Data:        map[string]string{"type": "connection_request"},
	}

	task, err := NewPushTask(n)
	require.NoError(t, err)
	assert.Equal(t, TypePushDeliver, task.Type())

	sender := &recordingSender{}
	require.NoError(t, HandlePushDeliver(sender)(context.Background(), task))
	require.Len(t, sender.sent, 1)
	assert.Equal(t, n, sender.sent[0])
}

func TestHandlePushDeliverSkipsRetryOnBadPayload(t *testing.T) {
	task := asynq.NewTask(TypePushDeliver, []byte("{broken"))
	err := HandlePushDeliver(&recordingSender{})(context.Background(), task)
	require.Error(t, err)
	assert.ErrorIs(t, err, asynq.SkipRetry)
}

func TestHandlePushDeliverMissingDevice(t *testing.T) {
	payload, _ := json.Marshal(push.Notification{Title: "x"})
	task := asynq.NewTask(TypePushDeliver, payload)

	err := HandlePushDeliver(&recordingSender{err: push.ErrNoDevice})(context.Background(), task)
	assert.ErrorIs(t, err, asynq.SkipRetry)
}

func TestHandlePushDeliverReturnsSendError(t *testing.T) {
	payload, _ := json.Marshal(push.Notification{DeviceToken: "d", Title: "x"})
	task := asynq.NewTask(TypePushDeliver, payload)
	boom := errors.New("apns unavailable")

	err := HandlePushDeliver(&recordingSender{err: boom})(context.Background(), task)
	assert.ErrorIs(t, err, boom)
	assert.NotErrorIs(t, err, asynq.SkipRetry)
}

func TestMuxRoutesPushTasks(t *testing.T) {
	sender := &recordingSender{}
	task, err := NewPushTask(push.Notification{DeviceToken: "d", Title: "hello"})
	require.NoError(t, err)

	require.NoError(t, NewMux(sender).ProcessTask(context.Background(), task))
	assert.Len(t, sender.sent, 1)
}
