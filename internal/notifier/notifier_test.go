package notifier

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"taskbot/internal/eventbus"
	"taskbot/internal/task"
	kit "taskbot/internal/transport"
	logx "taskbot/pkg/logx"
)

type fakeAdapter struct {
	mu    sync.Mutex
	sent  []string
	tos   []kit.ChatTarget
	fails int
	got   chan struct{}
}

func newFakeAdapter(fails int) *fakeAdapter {
	return &fakeAdapter{fails: fails, got: make(chan struct{}, 16)}
}

func (f *fakeAdapter) Start(context.Context, chan<- kit.Update) error { return nil }
func (f *fakeAdapter) Stop(context.Context) error                     { return nil }

func (f *fakeAdapter) SendText(_ context.Context, to kit.ChatTarget, text string, _ *kit.SendOptions) (kit.MessageRef, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fails > 0 {
		f.fails--
		return kit.MessageRef{}, errors.New("boom")
	}
	f.sent = append(f.sent, text)
	f.tos = append(f.tos, to)
	f.got <- struct{}{}
	return kit.MessageRef{ChatID: to.ChatID}, nil
}

func (f *fakeAdapter) messages() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.sent...)
}

func waitSent(t *testing.T, f *fakeAdapter) {
	t.Helper()
	select {
	case <-f.got:
	case <-time.After(3 * time.Second):
		t.Fatalf("timed out waiting for send")
	}
}

func testConfig() Config {
	return Config{
		Enabled:     true,
		Workers:     1,
		QueueSize:   8,
		RatePerSec:  100,
		RetryMax:    2,
		RetryBase:   time.Millisecond,
		DedupWindow: time.Minute,
	}
}

func TestEmitRecordsInboxAndDelivers(t *testing.T) {
	t.Parallel()
	ad := newFakeAdapter(0)
	s := New(testConfig(), ad, logx.Nop(), eventbus.New())
	s.Start(context.Background())
	defer s.Stop(context.Background())

	s.Emit(context.Background(), task.Task{ID: 7, Text: "Call John", Owner: "telegram:42:5"})
	waitSent(t, ad)

	items := s.List("", false)
	if len(items) != 1 {
		t.Fatalf("expected one inbox item, got %d", len(items))
	}
	it := items[0]
	if it.Type != TypeReminder || it.Title != "Task Reminder" || it.Message != "Reminder: Call John" || it.Priority != PriorityHigh || it.TaskID != 7 {
		t.Fatalf("unexpected item: %+v", it)
	}
	if it.ID == "" || it.Read {
		t.Fatalf("item should have an id and be unread: %+v", it)
	}
	msgs := s.List("telegram:42:5", true)
	if len(msgs) != 1 {
		t.Fatalf("owner filter failed")
	}
	sent := ad.messages()
	if len(sent) != 1 || !strings.Contains(sent[0], "Reminder: Call John") {
		t.Fatalf("unexpected chat text: %v", sent)
	}
	if ad.tos[0] != (kit.ChatTarget{ChatID: 42, ThreadID: 5}) {
		t.Fatalf("unexpected target: %+v", ad.tos[0])
	}
}

func TestEmitWithoutTargetStaysInInbox(t *testing.T) {
	t.Parallel()
	ad := newFakeAdapter(0)
	s := New(testConfig(), ad, logx.Nop(), nil)
	s.Start(context.Background())
	defer s.Stop(context.Background())

	if _, err := s.Post(context.Background(), Item{Message: "hi", Owner: "http:alice"}); !errors.Is(err, ErrNoTarget) {
		t.Fatalf("expected ErrNoTarget, got %v", err)
	}
	if got := s.Unread("http:alice"); got != 1 {
		t.Fatalf("expected 1 unread, got %d", got)
	}
}

func TestDefaultChatTarget(t *testing.T) {
	t.Parallel()
	ad := newFakeAdapter(0)
	cfg := testConfig()
	cfg.DefaultChat = kit.ChatTarget{ChatID: 99}
	s := New(cfg, ad, logx.Nop(), nil)
	s.Start(context.Background())
	defer s.Stop(context.Background())

	s.Emit(context.Background(), task.Task{ID: 1, Text: "x", Owner: "http:bob"})
	waitSent(t, ad)
	if ad.tos[0].ChatID != 99 {
		t.Fatalf("expected default chat, got %+v", ad.tos[0])
	}
}

func TestRetryThenSucceed(t *testing.T) {
	t.Parallel()
	ad := newFakeAdapter(2)
	s := New(testConfig(), ad, logx.Nop(), nil)
	s.Start(context.Background())
	defer s.Stop(context.Background())

	s.Emit(context.Background(), task.Task{ID: 1, Text: "retry me", Owner: "telegram:1"})
	waitSent(t, ad)
	if len(ad.messages()) != 1 {
		t.Fatalf("expected exactly one successful send")
	}
}

func TestDedupSuppressesRepeats(t *testing.T) {
	t.Parallel()
	ad := newFakeAdapter(0)
	bus := eventbus.New()
	ch, unsub := bus.Subscribe(16)
	defer unsub()

	s := New(testConfig(), ad, logx.Nop(), bus)
	s.Start(context.Background())
	defer s.Stop(context.Background())

	tk := task.Task{ID: 1, Text: "same", Owner: "telegram:1"}
	s.Emit(context.Background(), tk)
	s.Emit(context.Background(), tk)

	deduped := false
	deadline := time.After(2 * time.Second)
	for !deduped {
		select {
		case ev := <-ch:
			deduped = ev.Type == eventbus.NotifierDeduped
		case <-deadline:
			t.Fatalf("expected a notifier.deduped event")
		}
	}
	if len(s.List("", false)) != 2 {
		t.Fatalf("both reminders belong in the inbox")
	}
}

func TestDisabledKeepsInbox(t *testing.T) {
	t.Parallel()
	cfg := testConfig()
	cfg.Enabled = false
	s := New(cfg, newFakeAdapter(0), logx.Nop(), nil)
	s.Start(context.Background())

	if _, err := s.Post(context.Background(), Item{Message: "m", Owner: "telegram:1"}); !errors.Is(err, ErrDisabled) {
		t.Fatalf("expected ErrDisabled, got %v", err)
	}
	if len(s.List("", false)) != 1 {
		t.Fatalf("inbox should still record the item")
	}
}

func TestCallbacksArePanicIsolated(t *testing.T) {
	t.Parallel()
	s := New(Config{}, nil, logx.Nop(), nil)

	var mu sync.Mutex
	var got []string
	s.OnNotify(TypeReminder, func(context.Context, Item) { panic("bad hook") })
	s.OnNotify(TypeReminder, func(_ context.Context, it Item) {
		mu.Lock()
		got = append(got, "typed:"+it.Message)
		mu.Unlock()
	})
	s.OnNotify("", func(_ context.Context, it Item) {
		mu.Lock()
		got = append(got, "any:"+it.Type)
		mu.Unlock()
	})
	s.OnNotify(TypeDigest, func(context.Context, Item) {
		mu.Lock()
		got = append(got, "digest")
		mu.Unlock()
	})

	s.Emit(context.Background(), task.Task{ID: 1, Text: "x"})

	mu.Lock()
	defer mu.Unlock()
	if len(got) != 2 || got[0] != "typed:Reminder: x" || got[1] != "any:reminder" {
		t.Fatalf("unexpected callback trace: %v", got)
	}
}

func TestInboxOperations(t *testing.T) {
	t.Parallel()
	s := New(Config{InboxSize: 3}, nil, logx.Nop(), nil)
	ctx := context.Background()

	var ids []string
	for _, m := range []string{"a", "b", "c", "d"} {
		it, _ := s.Post(ctx, Item{Message: m, Owner: "o1"})
		ids = append(ids, it.ID)
	}
	_, _ = s.Post(ctx, Item{Message: "other", Owner: "o2"})

	all := s.List("", false)
	if len(all) != 3 || all[0].Message != "other" || all[2].Message != "c" {
		t.Fatalf("expected newest-first bounded inbox, got %+v", all)
	}
	if s.MarkRead(ids[0]) {
		t.Fatalf("evicted item should not be found")
	}
	if !s.MarkRead(ids[3]) {
		t.Fatalf("mark read failed")
	}
	if got := s.List("o1", true); len(got) != 1 || got[0].Message != "c" {
		t.Fatalf("unread filter: %+v", got)
	}
	if !s.Clear(ids[2]) || s.Clear(ids[2]) {
		t.Fatalf("clear should succeed once")
	}
	if n := s.ClearAll("o2"); n != 1 {
		t.Fatalf("expected 1 cleared, got %d", n)
	}
	if n := s.ClearAll(""); n != 1 {
		t.Fatalf("expected 1 left to clear, got %d", n)
	}
}

func TestRetryDelayBounds(t *testing.T) {
	t.Parallel()
	cfg := Config{RetryBase: 100 * time.Millisecond, RetryMaxDelay: time.Second}
	for attempt := 1; attempt <= 8; attempt++ {
		d := retryDelay(cfg, attempt)
		if d <= 0 || d > time.Second {
			t.Fatalf("attempt %d: delay %v out of range", attempt, d)
		}
	}
}
