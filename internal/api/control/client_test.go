package control

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/osa030/slidebox/internal/app/notification"
	"github.com/osa030/slidebox/internal/app/player"
)

func TestClient_Status(t *testing.T) {
	f := newFixture(t, "secret", true)
	f.screens.ShowTrack("Come Together", "The Beatles")
	c := NewClient(f.server.URL+"/", "secret", nil)

	status, err := c.Status(context.Background())
	require.NoError(t, err)

	assert.Equal(t, player.StatePlaying, status.Player.State)
	assert.Equal(t, "A1", status.Player.Status.CurrentTagID)
	assert.Equal(t, LibraryStatus{Loaded: true, Records: 12}, status.Library)
	require.NotNil(t, status.Screen)
	assert.Equal(t, notification.KindTrack, status.Screen.Kind)
}

func TestClient_Commands(t *testing.T) {
	f := newFixture(t, "", true)
	c := NewClient(f.server.URL, "", nil)
	ctx := context.Background()

	require.NoError(t, c.Press(ctx, "next"))
	assert.Equal(t, []player.Button{player.ButtonNext}, f.player.pressed)

	require.NoError(t, c.Place(ctx, "A1"))
	got, _ := f.reader.Poll(ctx)
	assert.Equal(t, "A1", got)

	require.NoError(t, c.Remove(ctx))
	got, _ = f.reader.Poll(ctx)
	assert.Equal(t, "", got)
}

func TestClient_Errors(t *testing.T) {
	f := newFixture(t, "secret", true)
	ctx := context.Background()

	_, err := NewClient(f.server.URL, "wrong", nil).Status(ctx)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid control token")
	assert.Contains(t, err.Error(), "401")

	f.player.err = player.ErrNoSession
	err = NewClient(f.server.URL, "secret", nil).Press(ctx, "toggle")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no active session")
}

func TestClient_Watch(t *testing.T) {
	f := newFixture(t, "", true)
	f.screens.ShowIdle("Slide Player")
	c := NewClient(f.server.URL, "", nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	got := make(chan notification.Screen, 4)
	done := make(chan error, 1)
	go func() {
		done <- c.Watch(ctx, func(s notification.Screen) { got <- s })
	}()

	first := <-got
	assert.Equal(t, notification.KindIdle, first.Kind)

	require.Eventually(t, func() bool {
		return f.screens.SubscriberCount() == 1
	}, time.Second, 10*time.Millisecond)
	f.screens.ShowRawTag("ZZ")

	second := <-got
	assert.Equal(t, notification.KindRawTag, second.Kind)
	assert.Equal(t, []string{"ZZ"}, second.Lines)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("watch did not return after cancel")
	}
}
