package classify

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"reflect"
	"testing"
	"time"
)

type stubComplexity struct {
	tier  string
	err   error
	calls int
}

func (s *stubComplexity) DetermineComplexity(_ context.Context, _ string, _ string) (string, error) {
	s.calls++
	if s.err != nil {
		return "", s.err
	}
	return s.tier, nil
}

func newTestClassifier(t *testing.T, stub *stubComplexity) *Classifier {
	t.Helper()
	catalog := mustCatalog(t)
	logger := slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelInfo}))
	var classifier ComplexityClassifier
	if stub != nil {
		classifier = stub
	}
	annotator := NewAnnotator(classifier, time.Second, 16, time.Minute, logger)
	return NewClassifier(catalog, annotator, logger)
}

func heartTopic() *ActiveTopic {
	return &ActiveTopic{ID: "topic_1", Name: "The Heart"}
}

func TestClassifyGreetingColdStart(t *testing.T) {
	c := newTestClassifier(t, nil)

	result := c.Classify(context.Background(), Input{Query: "hi"})
	if result.Kind != KindChitchat {
		t.Fatalf("kind = %q, want chitchat", result.Kind)
	}
	if result.IntentID != "greeting" {
		t.Errorf("intent = %q, want greeting", result.IntentID)
	}
	if result.ResponseText == "" {
		t.Errorf("expected canned response text")
	}
	if result.ShouldEvictOldest {
		t.Errorf("chitchat must never recommend eviction")
	}
}

func TestClassifyGreetingWithRequestFallsThrough(t *testing.T) {
	c := newTestClassifier(t, nil)

	result := c.Classify(context.Background(), Input{Query: "hi, can you explain how black holes work"})
	if result.Kind == KindChitchat {
		t.Fatalf("request phrase must suppress the greeting intent, got chitchat")
	}
	if result.Kind != KindNewTopic {
		t.Fatalf("kind = %q, want new_topic on cold start", result.Kind)
	}
	if result.ShouldEvictOldest {
		t.Errorf("cold-start new_topic must not recommend eviction")
	}
}

func TestClassifyGratitudeCompoundIsChitchat(t *testing.T) {
	c := newTestClassifier(t, nil)

	result := c.Classify(context.Background(), Input{
		Query:         "thanks for explaining that",
		ActiveTopicID: "topic_1",
		ActiveTopic:   heartTopic(),
		TopicCount:    1,
	})
	if result.Kind != KindChitchat {
		t.Fatalf("kind = %q, want chitchat", result.Kind)
	}
	if result.IntentID != "thanks" {
		t.Errorf("intent = %q, want thanks", result.IntentID)
	}
}

func TestClassifySlideQuestionHighestPrecedence(t *testing.T) {
	stub := &stubComplexity{tier: ComplexityModerate}
	c := newTestClassifier(t, stub)

	// 스몰토크 구문("thanks")과 주제 키워드("heart")가 함께 있어도 슬라이드 질문이 이긴다.
	result := c.Classify(context.Background(), Input{
		Query:         "thanks, but whats that red part of the heart",
		ActiveTopicID: "topic_1",
		ActiveTopic:   heartTopic(),
		TopicCount:    3,
		OldestTopicID: "topic_0",
		CurrentSlide:  &SlideContext{Subtitle: "The left ventricle pumps blood"},
	})
	if result.Kind != KindSlideQuestion {
		t.Fatalf("kind = %q, want slide_question", result.Kind)
	}
	if result.Complexity != ComplexityModerate {
		t.Errorf("complexity = %q, want moderate", result.Complexity)
	}
	if result.ShouldEvictOldest {
		t.Errorf("slide_question must never recommend eviction")
	}
}

func TestClassifyNoSlideContextNeverSlideQuestion(t *testing.T) {
	c := newTestClassifier(t, &stubComplexity{tier: ComplexitySimple})

	result := c.Classify(context.Background(), Input{
		Query:         "whats that red thing",
		ActiveTopicID: "topic_1",
		ActiveTopic:   heartTopic(),
		TopicCount:    1,
	})
	if result.Kind == KindSlideQuestion {
		t.Fatalf("slide_question must be impossible without slide context")
	}
}

func TestClassifyFollowUpByMarker(t *testing.T) {
	stub := &stubComplexity{tier: ComplexityComplex}
	c := newTestClassifier(t, stub)

	result := c.Classify(context.Background(), Input{
		Query:         "tell me more",
		ActiveTopicID: "topic_1",
		ActiveTopic:   heartTopic(),
		TopicCount:    3,
		OldestTopicID: "topic_0",
	})
	if result.Kind != KindFollowUp {
		t.Fatalf("kind = %q, want follow_up", result.Kind)
	}
	// 주제 상한에 도달했어도 follow_up은 퇴출을 권고하지 않는다.
	if result.ShouldEvictOldest {
		t.Errorf("follow_up must never recommend eviction")
	}
	if result.EvictTopicID != "" {
		t.Errorf("evictTopicId = %q, want empty", result.EvictTopicID)
	}
	if result.Complexity != ComplexityComplex {
		t.Errorf("complexity = %q, want complex", result.Complexity)
	}
}

func TestClassifyFollowUpByActiveTopicKeyword(t *testing.T) {
	c := newTestClassifier(t, &stubComplexity{tier: ComplexitySimple})

	result := c.Classify(context.Background(), Input{
		Query:         "where does the blood go next",
		ActiveTopicID: "topic_1",
		ActiveTopic:   heartTopic(),
		TopicCount:    1,
	})
	if result.Kind != KindFollowUp {
		t.Fatalf("kind = %q, want follow_up, reasoning=%q", result.Kind, result.Reasoning)
	}
}

func TestClassifyNewTopicWithEviction(t *testing.T) {
	c := newTestClassifier(t, nil)

	result := c.Classify(context.Background(), Input{
		Query:         "how do volcanoes form",
		ActiveTopicID: "topic_1",
		ActiveTopic:   heartTopic(),
		TopicCount:    3,
		OldestTopicID: "topic_0",
	})
	if result.Kind != KindNewTopic {
		t.Fatalf("kind = %q, want new_topic", result.Kind)
	}
	if !result.ShouldEvictOldest {
		t.Fatalf("expected eviction recommendation at topic cap")
	}
	if result.EvictTopicID != "topic_0" {
		t.Errorf("evictTopicId = %q, want topic_0", result.EvictTopicID)
	}
	if result.Reasoning == "" {
		t.Errorf("expected reasoning naming the unrelated category")
	}
}

func TestClassifyNewTopicBelowCapNoEviction(t *testing.T) {
	c := newTestClassifier(t, nil)

	result := c.Classify(context.Background(), Input{
		Query:         "how do volcanoes form",
		ActiveTopicID: "topic_1",
		ActiveTopic:   heartTopic(),
		TopicCount:    2,
		OldestTopicID: "topic_0",
	})
	if result.Kind != KindNewTopic {
		t.Fatalf("kind = %q, want new_topic", result.Kind)
	}
	if result.ShouldEvictOldest {
		t.Errorf("eviction must not trigger below the topic cap")
	}
}

func TestClassifyDefaultNewTopic(t *testing.T) {
	c := newTestClassifier(t, nil)

	// 마커도, 활성 주제 키워드도, 다른 카테고리 키워드도 없는 질의.
	result := c.Classify(context.Background(), Input{
		Query:         "mitochondria ribosome",
		ActiveTopicID: "topic_1",
		ActiveTopic:   heartTopic(),
		TopicCount:    1,
	})
	if result.Kind != KindNewTopic {
		t.Fatalf("kind = %q, want new_topic", result.Kind)
	}
}

func TestClassifyComplexityFailureDefaultsToSimple(t *testing.T) {
	stub := &stubComplexity{err: errors.New("provider unavailable")}
	c := newTestClassifier(t, stub)

	result := c.Classify(context.Background(), Input{
		Query:         "tell me more",
		ActiveTopicID: "topic_1",
		ActiveTopic:   heartTopic(),
		TopicCount:    1,
	})
	if result.Kind != KindFollowUp {
		t.Fatalf("kind = %q, want follow_up", result.Kind)
	}
	if result.Complexity != ComplexitySimple {
		t.Errorf("complexity = %q, want simple fallback", result.Complexity)
	}
}

func TestClassifyTotality(t *testing.T) {
	c := newTestClassifier(t, &stubComplexity{tier: ComplexitySimple})
	valid := map[Kind]bool{
		KindChitchat:      true,
		KindSlideQuestion: true,
		KindNewTopic:      true,
		KindFollowUp:      true,
	}

	queries := []string{
		"", "hi", "whats that", "tell me more", "how do volcanoes form",
		"thanks", "bye", "xyzzy plugh", "why is the sky blue", "12345",
	}
	for _, query := range queries {
		for _, slide := range []*SlideContext{nil, {Subtitle: "A diagram"}} {
			result := c.Classify(context.Background(), Input{
				Query:         query,
				ActiveTopicID: "topic_1",
				ActiveTopic:   heartTopic(),
				TopicCount:    1,
				CurrentSlide:  slide,
			})
			if !valid[result.Kind] {
				t.Errorf("Classify(%q) returned invalid kind %q", query, result.Kind)
			}
			if result.Reasoning == "" {
				t.Errorf("Classify(%q) returned empty reasoning", query)
			}
		}
	}
}

func TestClassifyIdempotent(t *testing.T) {
	c := newTestClassifier(t, &stubComplexity{tier: ComplexityModerate})
	in := Input{
		Query:         "what about the valves",
		ActiveTopicID: "topic_1",
		ActiveTopic:   heartTopic(),
		TopicCount:    2,
		OldestTopicID: "topic_0",
	}

	first := c.Classify(context.Background(), in)
	second := c.Classify(context.Background(), in)
	if !reflect.DeepEqual(first, second) {
		t.Fatalf("classification not idempotent: %+v vs %+v", first, second)
	}
}
