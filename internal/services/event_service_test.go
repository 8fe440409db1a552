package services

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEventService(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	notifier := &recordingNotifier{}
	svc := NewEventService(db, notifier)
	svc.now = steppingClock()

	subject := "m-1"
	for i := 0; i < 5; i++ {
		require.NoError(t, svc.CreateEvent(ctx, EventManuscriptSubmit, "info", fmt.Sprintf("event %d", i), &subject))
	}
	require.NoError(t, svc.CreateEvent(ctx, EventDiskAlert, "warn", "disk", nil))

	recent, err := svc.GetRecentEvents(ctx, 3)
	require.NoError(t, err)
	require.Len(t, recent, 3)
	assert.Equal(t, EventDiskAlert, recent[0].Type)
	assert.Nil(t, recent[0].SubjectID)
	assert.Equal(t, "event 4", recent[1].Message)
	require.NotNil(t, recent[1].SubjectID)
	assert.Equal(t, "m-1", *recent[1].SubjectID)

	all, err := svc.GetRecentEvents(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, all, 6)

	assert.Len(t, notifier.actions(), 6)
}

func TestGetRecentEventsLimitBounds(t *testing.T) {
	ctx := context.Background()
	svc := NewEventService(newTestDB(t), nil)
	svc.now = steppingClock()

	for i := 0; i < defaultRecentEventLimit+10; i++ {
		require.NoError(t, svc.CreateEvent(ctx, EventContactSubmit, "info", fmt.Sprintf("event %d", i), nil))
	}

	for _, limit := range []int{0, -3} {
		got, err := svc.GetRecentEvents(ctx, limit)
		require.NoError(t, err)
		assert.Len(t, got, defaultRecentEventLimit, "limit %d", limit)
	}

	got, err := svc.GetRecentEvents(ctx, maxRecentEventLimit+1)
	require.NoError(t, err)
	assert.Len(t, got, defaultRecentEventLimit+10)
}
