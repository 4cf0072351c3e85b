package gemini

import (
	"context"
	"errors"
	"fmt"
	"time"

	"google.golang.org/genai"

	"github.com/park285/showme-server-go/internal/llm"
)

var (
	// ErrEmptyImage 는 이미지 생성 응답이 비었을 때 반환된다.
	ErrEmptyImage = errors.New("empty image response")
	// ErrEmptyAudio 는 음성 합성 응답이 비었을 때 반환된다.
	ErrEmptyAudio = errors.New("empty audio response")
)

// Image 는 생성된 이미지 바이트와 MIME 타입이다.
type Image struct {
	Data     []byte
	MIMEType string
}

// Audio 는 합성된 음성 바이트와 MIME 타입이다.
type Audio struct {
	Data     []byte
	MIMEType string
}

// GenerateImage 는 슬라이드 일러스트 1장을 생성한다.
func (c *Client) GenerateImage(ctx context.Context, prompt string) (Image, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return Image{}, fmt.Errorf("rate limit wait: %w", err)
	}

	client, err := c.selectClient(ctx)
	if err != nil {
		return Image{}, err
	}

	model := c.cfg.Gemini.ModelForTask("image")
	if model == "" {
		return Image{}, ErrInvalidModel
	}

	start := time.Now()
	response, err := client.Models.GenerateImages(ctx, model, prompt, &genai.GenerateImagesConfig{
		NumberOfImages: 1,
	})
	if err != nil {
		c.metrics.RecordError(time.Since(start))
		return Image{}, fmt.Errorf("generate image: %w", err)
	}
	// 이미지 API는 토큰 사용량을 보고하지 않는다.
	c.metrics.RecordSuccess(time.Since(start), llm.Usage{})

	if len(response.GeneratedImages) == 0 || response.GeneratedImages[0].Image == nil {
		return Image{}, ErrEmptyImage
	}

	generated := response.GeneratedImages[0].Image
	if len(generated.ImageBytes) == 0 {
		return Image{}, ErrEmptyImage
	}

	mimeType := generated.MIMEType
	if mimeType == "" {
		mimeType = "image/png"
	}
	return Image{Data: generated.ImageBytes, MIMEType: mimeType}, nil
}

// Synthesize 는 자막 텍스트를 음성으로 합성한다.
func (c *Client) Synthesize(ctx context.Context, text string) (Audio, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return Audio{}, fmt.Errorf("rate limit wait: %w", err)
	}

	client, err := c.selectClient(ctx)
	if err != nil {
		return Audio{}, err
	}

	model := c.cfg.Gemini.ModelForTask("tts")
	if model == "" {
		return Audio{}, ErrInvalidModel
	}

	config := &genai.GenerateContentConfig{
		ResponseModalities: []string{"AUDIO"},
		SpeechConfig: &genai.SpeechConfig{
			VoiceConfig: &genai.VoiceConfig{
				PrebuiltVoiceConfig: &genai.PrebuiltVoiceConfig{
					VoiceName: c.cfg.Gemini.TTSVoice,
				},
			},
		},
	}

	start := time.Now()
	response, err := client.Models.GenerateContent(
		ctx,
		model,
		[]*genai.Content{genai.NewContentFromText(text, genai.RoleUser)},
		config,
	)
	if err != nil {
		c.metrics.RecordError(time.Since(start))
		return Audio{}, fmt.Errorf("synthesize speech: %w", err)
	}
	c.metrics.RecordSuccess(time.Since(start), extractUsage(response))
	c.recordUsage(ctx, "tts", extractUsage(response))

	audio := extractInlineAudio(response)
	if len(audio.Data) == 0 {
		return Audio{}, ErrEmptyAudio
	}
	return audio, nil
}

func extractInlineAudio(response *genai.GenerateContentResponse) Audio {
	if response == nil || len(response.Candidates) == 0 {
		return Audio{}
	}
	content := response.Candidates[0].Content
	if content == nil {
		return Audio{}
	}
	for _, part := range content.Parts {
		if part == nil || part.InlineData == nil || len(part.InlineData.Data) == 0 {
			continue
		}
		mimeType := part.InlineData.MIMEType
		if mimeType == "" {
			mimeType = "audio/wav"
		}
		return Audio{Data: part.InlineData.Data, MIMEType: mimeType}
	}
	return Audio{}
}
