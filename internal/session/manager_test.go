package session

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/park285/showme-server-go/internal/config"
)

func newTestManager(t *testing.T, maxTopics int) *Manager {
	store, _ := newTestStore(t, 10)
	cfg := &config.Config{
		Session: config.SessionConfig{
			SessionTTLMinutes: 1,
			HistoryMaxPairs:   10,
			MaxTopics:         maxTopics,
			CompressSlides:    true,
		},
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelInfo}))
	return NewManager(store, cfg, logger)
}

func testTopic(id, name string) Topic {
	return Topic{ID: id, Name: name, Icon: "sparkles", CreatedAt: time.Now()}
}

func TestManagerEnsureSession(t *testing.T) {
	manager := newTestManager(t, 3)

	created, err := manager.EnsureSession(context.Background(), "")
	if err != nil {
		t.Fatalf("ensure session: %v", err)
	}
	if created.ID == "" {
		t.Fatalf("expected generated session id")
	}

	again, err := manager.EnsureSession(context.Background(), created.ID)
	if err != nil {
		t.Fatalf("ensure existing session: %v", err)
	}
	if again.ID != created.ID {
		t.Fatalf("expected same session, got %s", again.ID)
	}

	named, err := manager.EnsureSession(context.Background(), "client-chosen")
	if err != nil {
		t.Fatalf("ensure named session: %v", err)
	}
	if named.ID != "client-chosen" {
		t.Fatalf("expected requested id, got %s", named.ID)
	}
}

func TestManagerAddTopicEnforcesCap(t *testing.T) {
	manager := newTestManager(t, 2)

	meta, err := manager.EnsureSession(context.Background(), "s1")
	if err != nil {
		t.Fatalf("ensure session: %v", err)
	}

	for i, id := range []string{"topic_a", "topic_b", "topic_c"} {
		meta, err = manager.AddTopic(context.Background(), meta.ID, testTopic(id, "Topic"), testSlides(id))
		if err != nil {
			t.Fatalf("add topic %d: %v", i, err)
		}
	}

	if meta.TopicCount() != 2 {
		t.Fatalf("expected 2 topics after eviction, got %d", meta.TopicCount())
	}
	if meta.Topics[0].ID != "topic_b" || meta.Topics[1].ID != "topic_c" {
		t.Fatalf("expected oldest topic evicted, got %+v", meta.Topics)
	}
	if meta.ActiveTopicID != "topic_c" {
		t.Fatalf("expected newest topic active, got %s", meta.ActiveTopicID)
	}

	if _, err := manager.Slides(context.Background(), "s1", "topic_a"); !errors.Is(err, ErrTopicNotFound) {
		t.Fatalf("expected evicted slides gone, got: %v", err)
	}
	if slides, err := manager.Slides(context.Background(), "s1", "topic_c"); err != nil || len(slides) != 2 {
		t.Fatalf("expected surviving slides, got %d (%v)", len(slides), err)
	}
}

func TestManagerEvictTopic(t *testing.T) {
	manager := newTestManager(t, 3)

	meta, err := manager.EnsureSession(context.Background(), "s1")
	if err != nil {
		t.Fatalf("ensure session: %v", err)
	}
	if _, err := manager.AddTopic(context.Background(), meta.ID, testTopic("topic_a", "The Heart"), testSlides("topic_a")); err != nil {
		t.Fatalf("add topic: %v", err)
	}
	if _, err := manager.AddTopic(context.Background(), meta.ID, testTopic("topic_b", "Volcanoes"), testSlides("topic_b")); err != nil {
		t.Fatalf("add topic: %v", err)
	}

	if err := manager.EvictTopic(context.Background(), "s1", "topic_a"); err != nil {
		t.Fatalf("evict topic: %v", err)
	}

	snap, err := manager.Load(context.Background(), "s1")
	if err != nil {
		t.Fatalf("load session: %v", err)
	}
	if snap.Meta.TopicCount() != 1 || snap.Meta.Topics[0].ID != "topic_b" {
		t.Fatalf("unexpected topics after eviction: %+v", snap.Meta.Topics)
	}
	if _, err := manager.Slides(context.Background(), "s1", "topic_a"); !errors.Is(err, ErrTopicNotFound) {
		t.Fatalf("expected evicted slides gone, got: %v", err)
	}

	// 이미 없는 주제의 퇴출은 조용히 성공한다.
	if err := manager.EvictTopic(context.Background(), "s1", "topic_a"); err != nil {
		t.Fatalf("expected stale eviction to succeed, got: %v", err)
	}
}

func TestManagerSetActiveTopic(t *testing.T) {
	manager := newTestManager(t, 3)

	meta, err := manager.EnsureSession(context.Background(), "s1")
	if err != nil {
		t.Fatalf("ensure session: %v", err)
	}
	if _, err := manager.AddTopic(context.Background(), meta.ID, testTopic("topic_a", "The Heart"), nil); err != nil {
		t.Fatalf("add topic: %v", err)
	}
	if _, err := manager.AddTopic(context.Background(), meta.ID, testTopic("topic_b", "Volcanoes"), nil); err != nil {
		t.Fatalf("add topic: %v", err)
	}

	if err := manager.SetActiveTopic(context.Background(), "s1", "topic_a"); err != nil {
		t.Fatalf("set active topic: %v", err)
	}
	snap, err := manager.Load(context.Background(), "s1")
	if err != nil {
		t.Fatalf("load session: %v", err)
	}
	if snap.Meta.ActiveTopicID != "topic_a" {
		t.Fatalf("expected topic_a active, got %s", snap.Meta.ActiveTopicID)
	}

	if err := manager.SetActiveTopic(context.Background(), "s1", "topic_c"); !errors.Is(err, ErrTopicNotFound) {
		t.Fatalf("expected ErrTopicNotFound, got: %v", err)
	}
}

func TestManagerRecordExchange(t *testing.T) {
	manager := newTestManager(t, 3)

	if _, err := manager.EnsureSession(context.Background(), "s1"); err != nil {
		t.Fatalf("ensure session: %v", err)
	}

	if err := manager.RecordExchange(context.Background(), "s1", "how does the heart work?", "Let me show you!"); err != nil {
		t.Fatalf("record exchange: %v", err)
	}

	snap, err := manager.Load(context.Background(), "s1")
	if err != nil {
		t.Fatalf("load session: %v", err)
	}
	if snap.Meta.MessageCount != 2 {
		t.Fatalf("expected message count 2, got %d", snap.Meta.MessageCount)
	}
	if len(snap.History) != 2 || snap.History[0].Role != "user" || snap.History[1].Role != "assistant" {
		t.Fatalf("unexpected history: %+v", snap.History)
	}
}

func TestManagerDeleteAndCount(t *testing.T) {
	manager := newTestManager(t, 3)

	if _, err := manager.EnsureSession(context.Background(), "s1"); err != nil {
		t.Fatalf("ensure session: %v", err)
	}
	if _, err := manager.EnsureSession(context.Background(), "s2"); err != nil {
		t.Fatalf("ensure session: %v", err)
	}
	if count := manager.Count(context.Background()); count != 2 {
		t.Fatalf("expected 2 sessions, got %d", count)
	}

	if err := manager.Delete(context.Background(), "s1"); err != nil {
		t.Fatalf("delete session: %v", err)
	}
	if _, err := manager.Load(context.Background(), "s1"); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("expected ErrSessionNotFound, got: %v", err)
	}
}

func TestNewTopicID(t *testing.T) {
	id, err := NewTopicID()
	if err != nil {
		t.Fatalf("new topic id: %v", err)
	}
	if len(id) != len("topic_")+16 || id[:6] != "topic_" {
		t.Fatalf("unexpected topic id: %s", id)
	}
}
