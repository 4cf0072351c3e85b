package shared

import (
	"testing"
)

type slideScript struct {
	Subtitle    string `json:"subtitle"`
	ImagePrompt string `json:"imagePrompt"`
}

type topicScript struct {
	TopicName string        `json:"topicName"`
	Icon      string        `json:"icon"`
	Slides    []slideScript `json:"slides"`
}

func TestDecodeStrict(t *testing.T) {
	tests := []struct {
		name    string
		input   map[string]any
		want    topicScript
		wantErr bool
	}{
		{
			name: "슬라이드 대본 디코딩",
			input: map[string]any{
				"topicName": "화산",
				"icon":      "volcano",
				"slides": []any{
					map[string]any{"subtitle": "화산은 뜨거워요", "imagePrompt": "a friendly cartoon volcano"},
					map[string]any{"subtitle": "마그마가 솟아요", "imagePrompt": "magma rising inside a mountain"},
				},
			},
			want: topicScript{
				TopicName: "화산",
				Icon:      "volcano",
				Slides: []slideScript{
					{Subtitle: "화산은 뜨거워요", ImagePrompt: "a friendly cartoon volcano"},
					{Subtitle: "마그마가 솟아요", ImagePrompt: "magma rising inside a mountain"},
				},
			},
		},
		{
			name:  "빈 맵",
			input: map[string]any{},
			want:  topicScript{},
		},
		{
			name: "일부 필드만",
			input: map[string]any{
				"topicName": "중력",
			},
			want: topicScript{TopicName: "중력"},
		},
		{
			name: "타입 불일치",
			input: map[string]any{
				"topicName": "화산",
				"slides":    "not-a-list",
			},
			wantErr: true,
		},
		{
			name: "스키마 밖 필드 거부",
			input: map[string]any{
				"topicName": "화산",
				"icon":      "volcano",
				"slides":    []any{},
				"extra":     "model drift",
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got topicScript
			err := DecodeStrict(tt.input, &got)
			if (err != nil) != tt.wantErr {
				t.Fatalf("DecodeStrict() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			if got.TopicName != tt.want.TopicName || got.Icon != tt.want.Icon {
				t.Errorf("topic = %q/%q, want %q/%q", got.TopicName, got.Icon, tt.want.TopicName, tt.want.Icon)
			}
			if len(got.Slides) != len(tt.want.Slides) {
				t.Fatalf("slides len = %d, want %d", len(got.Slides), len(tt.want.Slides))
			}
			for i := range got.Slides {
				if got.Slides[i] != tt.want.Slides[i] {
					t.Errorf("slide %d = %+v, want %+v", i, got.Slides[i], tt.want.Slides[i])
				}
			}
		})
	}
}

func TestDecodeStrictWeakNumbers(t *testing.T) {
	type engagement struct {
		FunFact       string  `json:"funFact"`
		QuestionCount int     `json:"questionCount"`
		Duration      float64 `json:"duration"`
	}

	// 모델 출력은 JSON 숫자라 정수 필드도 float64 로 들어온다.
	input := map[string]any{
		"funFact":       "Octopuses have three hearts",
		"questionCount": 3.0,
		"duration":      4,
	}

	var got engagement
	if err := DecodeStrict(input, &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.QuestionCount != 3 || got.Duration != 4 {
		t.Fatalf("unexpected numbers: %+v", got)
	}
}
