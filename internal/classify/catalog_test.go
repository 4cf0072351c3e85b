package classify

import "testing"

func TestNewCatalogLoadsEmbeddedCatalogs(t *testing.T) {
	catalog, err := NewCatalog()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(catalog.Intents()) == 0 {
		t.Fatalf("expected chitchat intents")
	}
	if len(catalog.Categories()) == 0 {
		t.Fatalf("expected topic categories")
	}

	// 위치가 우선순위를 인코딩한다: greeting이 항상 첫 인텐트다.
	if got := catalog.Intents()[0].ID; got != "greeting" {
		t.Errorf("first intent = %q, want greeting", got)
	}

	seen := make(map[string]bool)
	for _, intent := range catalog.Intents() {
		if seen[intent.ID] {
			t.Errorf("duplicate intent id %q", intent.ID)
		}
		seen[intent.ID] = true
		if intent.ResponseText == "" {
			t.Errorf("intent %q has no canned response", intent.ID)
		}
	}

	for _, required := range []string{"greeting", "status", "thanks", "farewell", "capabilities", "acknowledgement"} {
		if !seen[required] {
			t.Errorf("missing intent %q", required)
		}
	}
}

func TestCatalogSlideQuestion(t *testing.T) {
	catalog, err := NewCatalog()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	tests := []struct {
		query    string
		expected bool
	}{
		{"whats that red thing", true},
		{"what is the arrow pointing to", true},
		{"tell me about volcanoes", false},
		{"", false},
	}
	for _, tt := range tests {
		norm := NormalizeQuery(tt.query)
		if got := catalog.IsSlideQuestion(norm); got != tt.expected {
			t.Errorf("IsSlideQuestion(%q) = %v, want %v", tt.query, got, tt.expected)
		}
	}
}

func TestResolveTopicKeywords(t *testing.T) {
	catalog, err := NewCatalog()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// 카탈로그 등재 주제는 큐레이션된 키워드 집합으로 해석된다.
	category, keywords := catalog.ResolveTopicKeywords("The Heart")
	if category != "heart" {
		t.Fatalf("category = %q, want heart", category)
	}
	if len(keywords) == 0 {
		t.Fatalf("expected curated keywords")
	}

	// 미등재 주제는 단어 분해 폴백: 두 글자 이하 단어는 버린다.
	category, keywords = catalog.ResolveTopicKeywords("The Rise of Ancient Rome")
	if category != "" {
		t.Fatalf("category = %q, want empty fallback", category)
	}
	for _, keyword := range keywords {
		if len(keyword) < 3 {
			t.Errorf("fallback keyword %q too short", keyword)
		}
	}
}
