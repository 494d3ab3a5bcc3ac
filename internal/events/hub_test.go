package events

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func receive(t *testing.T, ch <-chan []byte) string {
	t.Helper()
	select {
	case data, ok := <-ch:
		require.True(t, ok, "channel closed")
		return string(data)
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for payload")
		return ""
	}
}

func TestHubFansOut(t *testing.T) {
	hub := NewHub()
	a, cancelA := hub.Subscribe(TopicsChanged)
	b, cancelB := hub.Subscribe(TopicsChanged)
	defer cancelA()
	defer cancelB()

	require.NoError(t, hub.Publish(TopicsChanged, []string{"Storytelling"}))
	require.Equal(t, `["Storytelling"]`, receive(t, a))
	require.Equal(t, `["Storytelling"]`, receive(t, b))
	require.Equal(t, 2, hub.Subscribers(TopicsChanged))
}

func TestHubKeepsLatestForSlowSubscriber(t *testing.T) {
	hub := NewHub()
	ch, cancel := hub.Subscribe(TopicsChanged)
	defer cancel()

	require.NoError(t, hub.Publish(TopicsChanged, 1))
	require.NoError(t, hub.Publish(TopicsChanged, 2))
	require.NoError(t, hub.Publish(TopicsChanged, 3))
	require.Equal(t, "3", receive(t, ch))
}

func TestHubCancelClosesChannel(t *testing.T) {
	hub := NewHub()
	ch, cancel := hub.Subscribe(TopicsChanged)
	cancel()
	cancel()
	_, ok := <-ch
	require.False(t, ok)
	require.Equal(t, 0, hub.Subscribers(TopicsChanged))
	require.NoError(t, hub.Publish(TopicsChanged, "ignored"))
}

func TestHubIsolatesTopics(t *testing.T) {
	hub := NewHub()
	ch, cancel := hub.Subscribe("other")
	defer cancel()
	require.NoError(t, hub.Publish(TopicsChanged, "x"))
	select {
	case <-ch:
		t.Fatal("unexpected delivery on unrelated topic")
	default:
	}
}

func TestHubCloseDisconnects(t *testing.T) {
	hub := NewHub()
	ch, cancel := hub.Subscribe(TopicsChanged)
	hub.Close()
	_, ok := <-ch
	require.False(t, ok)
	cancel()

	late, _ := hub.Subscribe(TopicsChanged)
	_, ok = <-late
	require.False(t, ok)
}

func TestPublishRequiresTopic(t *testing.T) {
	require.Error(t, NewHub().Publish(" ", nil))
}
