package bot

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

func TestDispatch_WaitsForHandlersOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	updates := make(chan tgbotapi.Update, 3)
	updates <- tgbotapi.Update{Message: &tgbotapi.Message{Text: "one"}}
	updates <- tgbotapi.Update{}
	updates <- tgbotapi.Update{Message: &tgbotapi.Message{Text: "two"}}

	started := make(chan struct{}, 2)
	release := make(chan struct{})
	var finished atomic.Int32
	handle := func(ctx context.Context, m *tgbotapi.Message) {
		started <- struct{}{}
		<-release
		finished.Add(1)
	}

	done := make(chan struct{})
	go func() {
		dispatch(ctx, updates, handle)
		close(done)
	}()

	<-started
	<-started
	cancel()

	select {
	case <-done:
		t.Fatal("dispatch returned while handlers were still running")
	case <-time.After(50 * time.Millisecond):
	}

	close(release)
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("dispatch did not return after handlers finished")
	}
	if got := finished.Load(); got != 2 {
		t.Errorf("%d handlers finished, want 2", got)
	}
}

func TestDispatch_ReturnsWhenUpdatesClose(t *testing.T) {
	updates := make(chan tgbotapi.Update, 1)
	updates <- tgbotapi.Update{Message: &tgbotapi.Message{Text: "only"}}
	close(updates)

	var handled atomic.Int32
	dispatch(context.Background(), updates, func(context.Context, *tgbotapi.Message) {
		time.Sleep(10 * time.Millisecond)
		handled.Add(1)
	})

	if got := handled.Load(); got != 1 {
		t.Errorf("handled %d messages before returning, want 1", got)
	}
}
