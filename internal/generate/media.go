package generate

import (
	"context"
	"encoding/base64"
	"fmt"

	"github.com/sourcegraph/conc/pool"

	"github.com/park285/showme-server-go/internal/session"
)

// renderMedia 는 슬라이드별 이미지와 음성을 유한 워커 풀로 동시 생성한다.
// base64 data URL 이라 응답이 크지만, 프런트엔드가 별도 저장소 없이
// 바로 재생할 수 있다. 하나라도 실패하면 생성 전체가 실패다.
func (s *Service) renderMedia(ctx context.Context, slides []session.Slide, imagePrompts []string, notify ProgressFunc) error {
	concurrency := s.cfg.Generation.MediaConcurrency
	if concurrency < 1 {
		concurrency = 1
	}

	p := pool.New().WithErrors().WithContext(ctx).WithMaxGoroutines(concurrency)
	for i := range slides {
		i := i
		p.Go(func(ctx context.Context) error {
			image, err := s.llm.GenerateImage(ctx, imagePrompts[i])
			if err != nil {
				return fmt.Errorf("slide %d image: %w", i, err)
			}
			slides[i].ImageURL = dataURL(image.MIMEType, image.Data)
			notify.notify(ProgressEvent{Stage: StageImage, SlideIndex: i, SlideCount: len(slides), TopicID: slides[i].TopicID})

			audio, err := s.llm.Synthesize(ctx, slides[i].Subtitle)
			if err != nil {
				return fmt.Errorf("slide %d speech: %w", i, err)
			}
			slides[i].AudioURL = dataURL(audio.MIMEType, audio.Data)
			notify.notify(ProgressEvent{Stage: StageSpeech, SlideIndex: i, SlideCount: len(slides), TopicID: slides[i].TopicID})
			return nil
		})
	}
	return p.Wait()
}

func dataURL(mimeType string, data []byte) string {
	return "data:" + mimeType + ";base64," + base64.StdEncoding.EncodeToString(data)
}
