package session

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/valkey-io/valkey-go"

	"github.com/park285/showme-server-go/internal/config"
	"github.com/park285/showme-server-go/internal/llm"
)

func newTestStore(t *testing.T, historyMaxPairs int) (*Store, *miniredis.Miniredis) {
	mini := miniredis.RunT(t)
	cfg := &config.Config{
		SessionStore: config.SessionStoreConfig{URL: "redis://" + mini.Addr(), Enabled: true, DisableCache: true},
		Session: config.SessionConfig{
			SessionTTLMinutes: 1,
			HistoryMaxPairs:   historyMaxPairs,
			CompressSlides:    true,
		},
	}
	store, err := NewStore(cfg)
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	t.Cleanup(func() {
		store.Close()
		mini.Close()
	})
	return store, mini
}

func testSlides(topicID string) []Slide {
	return []Slide{
		{ID: "slide_1", TopicID: topicID, Subtitle: "The heart pumps blood.", Duration: 8, SegmentID: "seg_1", IsTopicHeader: true},
		{ID: "slide_2", TopicID: topicID, Subtitle: "It has four chambers.", Duration: 8, SegmentID: "seg_2"},
	}
}

func TestNewStoreDisabled(t *testing.T) {
	cfg := &config.Config{
		SessionStore: config.SessionStoreConfig{Enabled: false, Required: true},
	}
	if _, err := NewStore(cfg); err == nil {
		t.Fatalf("expected error")
	}
}

func TestNewStoreFallsBackToMemoryWhenRedisDisabled(t *testing.T) {
	cfg := &config.Config{
		SessionStore: config.SessionStoreConfig{Enabled: false, Required: false},
		Session: config.SessionConfig{
			SessionTTLMinutes: 1,
			HistoryMaxPairs:   1,
		},
	}
	store, err := NewStore(cfg)
	if err != nil {
		t.Fatalf("expected memory store, got error: %v", err)
	}

	now := time.Now()
	meta := Meta{ID: "s1", CreatedAt: now, UpdatedAt: now}
	if err := store.CreateSession(context.Background(), meta); err != nil {
		t.Fatalf("create session: %v", err)
	}

	loaded, err := store.GetSession(context.Background(), "s1")
	if err != nil {
		t.Fatalf("get session: %v", err)
	}
	if loaded.ID != "s1" {
		t.Fatalf("unexpected session: %+v", loaded)
	}

	if err := store.AppendHistory(context.Background(), "s1", llm.HistoryEntry{Role: "user", Content: "one"}); err != nil {
		t.Fatalf("append history: %v", err)
	}
	history, err := store.GetHistory(context.Background(), "s1")
	if err != nil {
		t.Fatalf("get history: %v", err)
	}
	if len(history) != 1 {
		t.Fatalf("expected history, got %d", len(history))
	}

	if err := store.SaveSlides(context.Background(), "s1", "topic_a", testSlides("topic_a")); err != nil {
		t.Fatalf("save slides: %v", err)
	}
	slides, err := store.GetSlides(context.Background(), "s1", "topic_a")
	if err != nil {
		t.Fatalf("get slides: %v", err)
	}
	if len(slides) != 2 || slides[0].ID != "slide_1" {
		t.Fatalf("unexpected slides: %+v", slides)
	}

	if err := store.DeleteSession(context.Background(), "s1"); err != nil {
		t.Fatalf("delete session: %v", err)
	}
}

func TestNewStoreMiniredisRequiresDisableCache(t *testing.T) {
	mini := miniredis.RunT(t)
	cfg := &config.Config{
		SessionStore: config.SessionStoreConfig{URL: "redis://" + mini.Addr(), Enabled: true, DisableCache: false},
		Session: config.SessionConfig{
			SessionTTLMinutes: 1,
			HistoryMaxPairs:   1,
		},
	}
	if _, err := NewStore(cfg); err == nil {
		t.Fatalf("expected error")
	} else if !errors.Is(err, valkey.ErrNoCache) {
		t.Fatalf("expected valkey.ErrNoCache, got: %v", err)
	}
}

func TestStoreCRUD(t *testing.T) {
	store, _ := newTestStore(t, 2)

	now := time.Now()
	meta := Meta{
		ID:            "s1",
		Topics:        []Topic{{ID: "topic_a", Name: "The Heart", Icon: "heart", CreatedAt: now}},
		ActiveTopicID: "topic_a",
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := store.CreateSession(context.Background(), meta); err != nil {
		t.Fatalf("create session: %v", err)
	}

	loaded, err := store.GetSession(context.Background(), "s1")
	if err != nil {
		t.Fatalf("get session: %v", err)
	}
	if loaded.ID != "s1" || loaded.ActiveTopicID != "topic_a" || loaded.TopicCount() != 1 {
		t.Fatalf("unexpected session: %+v", loaded)
	}

	loaded.MessageCount = 2
	if err := store.UpdateSession(context.Background(), *loaded); err != nil {
		t.Fatalf("update session: %v", err)
	}

	if err := store.DeleteSession(context.Background(), "s1"); err != nil {
		t.Fatalf("delete session: %v", err)
	}

	if _, err := store.GetSession(context.Background(), "s1"); err == nil {
		t.Fatalf("expected not found")
	}
}

func TestStoreSlidesRoundTrip(t *testing.T) {
	for _, compress := range []bool{true, false} {
		mini := miniredis.RunT(t)
		cfg := &config.Config{
			SessionStore: config.SessionStoreConfig{URL: "redis://" + mini.Addr(), Enabled: true, DisableCache: true},
			Session: config.SessionConfig{
				SessionTTLMinutes: 1,
				HistoryMaxPairs:   1,
				CompressSlides:    compress,
			},
		}
		store, err := NewStore(cfg)
		if err != nil {
			t.Fatalf("failed to create store: %v", err)
		}

		if err := store.CreateSession(context.Background(), Meta{ID: "s1", CreatedAt: time.Now(), UpdatedAt: time.Now()}); err != nil {
			t.Fatalf("create session: %v", err)
		}

		want := testSlides("topic_a")
		if err := store.SaveSlides(context.Background(), "s1", "topic_a", want); err != nil {
			t.Fatalf("save slides (compress=%v): %v", compress, err)
		}

		got, err := store.GetSlides(context.Background(), "s1", "topic_a")
		if err != nil {
			t.Fatalf("get slides (compress=%v): %v", compress, err)
		}
		if len(got) != len(want) {
			t.Fatalf("expected %d slides, got %d", len(want), len(got))
		}
		if got[0].Subtitle != want[0].Subtitle || !got[0].IsTopicHeader || got[1].SegmentID != "seg_2" {
			t.Fatalf("unexpected slides (compress=%v): %+v", compress, got)
		}

		if _, err := store.GetSlides(context.Background(), "s1", "topic_missing"); !errors.Is(err, ErrTopicNotFound) {
			t.Fatalf("expected ErrTopicNotFound, got: %v", err)
		}

		if err := store.DeleteSlides(context.Background(), "s1", "topic_a"); err != nil {
			t.Fatalf("delete slides: %v", err)
		}
		if _, err := store.GetSlides(context.Background(), "s1", "topic_a"); !errors.Is(err, ErrTopicNotFound) {
			t.Fatalf("expected ErrTopicNotFound after delete, got: %v", err)
		}

		store.Close()
		mini.Close()
	}
}

func TestStoreDeleteSessionRemovesSlides(t *testing.T) {
	store, mini := newTestStore(t, 1)

	now := time.Now()
	meta := Meta{
		ID:            "s1",
		Topics:        []Topic{{ID: "topic_a", Name: "Volcanoes", Icon: "volcano", CreatedAt: now}},
		ActiveTopicID: "topic_a",
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := store.CreateSession(context.Background(), meta); err != nil {
		t.Fatalf("create session: %v", err)
	}
	if err := store.SaveSlides(context.Background(), "s1", "topic_a", testSlides("topic_a")); err != nil {
		t.Fatalf("save slides: %v", err)
	}

	if err := store.DeleteSession(context.Background(), "s1"); err != nil {
		t.Fatalf("delete session: %v", err)
	}

	if mini.Exists("session:s1:slides:topic_a") {
		t.Fatalf("expected slide key to be deleted with the session")
	}
}

func TestStoreHistoryTrim(t *testing.T) {
	store, _ := newTestStore(t, 1)

	if err := store.CreateSession(context.Background(), Meta{ID: "s1", CreatedAt: time.Now(), UpdatedAt: time.Now()}); err != nil {
		t.Fatalf("create session: %v", err)
	}

	entries := []llm.HistoryEntry{
		{Role: "user", Content: "one"},
		{Role: "assistant", Content: "two"},
		{Role: "user", Content: "three"},
	}
	if err := store.AppendHistory(context.Background(), "s1", entries...); err != nil {
		t.Fatalf("append history: %v", err)
	}

	history, err := store.GetHistory(context.Background(), "s1")
	if err != nil {
		t.Fatalf("get history: %v", err)
	}
	if len(history) != 2 {
		t.Fatalf("expected trimmed history, got %d", len(history))
	}
	if history[0].Content != "two" || history[1].Content != "three" {
		t.Fatalf("unexpected history order")
	}
}

func TestStoreSessionCountAndPing(t *testing.T) {
	store, _ := newTestStore(t, 1)

	if err := store.CreateSession(context.Background(), Meta{ID: "s1", CreatedAt: time.Now(), UpdatedAt: time.Now()}); err != nil {
		t.Fatalf("create session: %v", err)
	}
	if err := store.CreateSession(context.Background(), Meta{ID: "s2", CreatedAt: time.Now(), UpdatedAt: time.Now()}); err != nil {
		t.Fatalf("create session: %v", err)
	}

	count, err := store.SessionCount(context.Background())
	if err != nil {
		t.Fatalf("count sessions: %v", err)
	}
	if count != 2 {
		t.Fatalf("expected 2 sessions, got %d", count)
	}

	if err := store.Ping(context.Background()); err != nil {
		t.Fatalf("ping failed: %v", err)
	}
}

func TestMetaTopicHelpers(t *testing.T) {
	now := time.Now()
	meta := Meta{
		ID: "s1",
		Topics: []Topic{
			{ID: "topic_a", Name: "The Heart", CreatedAt: now},
			{ID: "topic_b", Name: "Volcanoes", CreatedAt: now.Add(time.Minute)},
		},
		ActiveTopicID: "topic_b",
	}

	if meta.TopicCount() != 2 {
		t.Fatalf("expected 2 topics, got %d", meta.TopicCount())
	}
	if meta.OldestTopicID() != "topic_a" {
		t.Fatalf("expected oldest topic_a, got %s", meta.OldestTopicID())
	}
	if active := meta.ActiveTopic(); active == nil || active.ID != "topic_b" {
		t.Fatalf("unexpected active topic: %+v", active)
	}
	if meta.FindTopic("topic_c") != nil {
		t.Fatalf("expected nil for unknown topic")
	}

	if !meta.RemoveTopic("topic_b") {
		t.Fatalf("expected removal")
	}
	if meta.ActiveTopicID != "" {
		t.Fatalf("expected active topic to be cleared, got %q", meta.ActiveTopicID)
	}
	if meta.RemoveTopic("topic_b") {
		t.Fatalf("expected second removal to be a no-op")
	}
	if meta.TopicCount() != 1 {
		t.Fatalf("expected 1 topic, got %d", meta.TopicCount())
	}
}
