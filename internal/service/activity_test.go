package service

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/zeeguu/internal/testutil"
)

func TestUploadActivity(t *testing.T) {
	testutil.SetupDB(t)
	ctx := context.Background()
	s := NewActivityService()
	s.now, _ = clockAt(testNow)
	user := testutil.CreateUser(t, "anna@example.com", "de")

	requireStatus(t, s.UploadActivity(ctx, user, ActivityEvent{Event: " "}), http.StatusBadRequest)
	require.NoError(t, s.UploadActivity(ctx, user, ActivityEvent{Event: "UMR - OPEN ARTICLE", Value: "12"}))
	require.NoError(t, s.UploadActivity(ctx, user, ActivityEvent{Event: "UMR - TRANSLATE TEXT", ExtraData: `{"word":"Haus"}`}))

	events, err := s.Recent(ctx, user, 10)
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, "UMR - TRANSLATE TEXT", events[0].Event)
	assert.Equal(t, testNow, events[0].CreatedAt.UTC())
}
