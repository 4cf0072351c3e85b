package prompt

import (
	"testing"
	"testing/fstest"
)

func TestLoadYAMLMapping(t *testing.T) {
	fsys := fstest.MapFS{
		"script.yml": {Data: []byte("system: teach kindly\nuser: explain this\nslide_count: 5\n")},
	}

	mapping, err := LoadYAMLMapping(fsys, "script.yml")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if mapping["system"] != "teach kindly" {
		t.Fatalf("unexpected system: %s", mapping["system"])
	}
	if mapping["slide_count"] != "5" {
		t.Fatalf("expected scalar coerced to string, got %s", mapping["slide_count"])
	}
}

func TestLoadYAMLMappingRejectsTemplatedSystem(t *testing.T) {
	fsys := fstest.MapFS{
		"bad.yml": {Data: []byte("system: \"teach {query} kindly\"\n")},
	}
	if _, err := LoadYAMLMapping(fsys, "bad.yml"); err == nil {
		t.Fatalf("expected error for templated system prompt")
	}
}

func TestLoadYAMLDir(t *testing.T) {
	fsys := fstest.MapFS{
		"prompts/script.yml":      {Data: []byte("system: alpha\n")},
		"prompts/engagement.yaml": {Data: []byte("system: beta\n")},
		"prompts/notes.txt":       {Data: []byte("ignored\n")},
	}

	prompts, err := LoadYAMLDir(fsys, "prompts")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(prompts) != 2 {
		t.Fatalf("expected 2 prompts, got %d", len(prompts))
	}
	if prompts["script"]["system"] != "alpha" {
		t.Fatalf("unexpected prompt value")
	}
	if prompts["engagement"]["system"] != "beta" {
		t.Fatalf("unexpected prompt value")
	}
}
