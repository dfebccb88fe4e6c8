package notification

import (
	"context"
	"errors"
	"testing"

	log "github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoggingNotifier(t *testing.T) {
	logger, hook := test.NewNullLogger()
	logger.SetLevel(log.DebugLevel)
	notifier := NewLoggingNotifier(log.NewEntry(logger))

	require.NoError(t, notifier.SendOrderConfirmation(context.Background(), "amina@example.com", "o-1"))
	entry := hook.LastEntry()
	require.NotNil(t, entry)
	assert.Equal(t, log.InfoLevel, entry.Level)
	assert.Equal(t, "o-1", entry.Data["order_id"])

	require.NoError(t, notifier.SendOrderConfirmation(context.Background(), "", "o-2"))
	assert.Equal(t, log.DebugLevel, hook.LastEntry().Level)
}

func TestRecorder(t *testing.T) {
	recorder := &Recorder{}
	require.NoError(t, recorder.SendOrderConfirmation(context.Background(), "a@b.c", "o-1"))

	recorder.Err = errors.New("smtp down")
	require.Error(t, recorder.SendOrderConfirmation(context.Background(), "", "o-2"))

	sent := recorder.Sent()
	require.Len(t, sent, 2)
	assert.Equal(t, Sent{Email: "a@b.c", OrderID: "o-1"}, sent[0])
}
