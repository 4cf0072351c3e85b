package shared

import (
	"fmt"

	"github.com/mitchellh/mapstructure"
)

// DecodeStrict 는 구조화 출력 map 을 Go 구조체로 디코딩한다. json 태그를 그대로
// 쓰고, 모델이 정수를 실수로 내보내는 경우가 있어 약한 타입 변환은 허용한다.
// 알 수 없는 필드는 에러다. responseSchema 로 형태를 고정한 생성 결과가
// 스키마를 벗어나면 바로 드러나게 한다.
func DecodeStrict(input map[string]any, result any) error {
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           result,
		TagName:          "json",
		WeaklyTypedInput: true,
		ErrorUnused:      true,
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
		),
	})
	if err != nil {
		return fmt.Errorf("new decoder: %w", err)
	}
	if err := decoder.Decode(input); err != nil {
		return fmt.Errorf("decode: %w", err)
	}
	return nil
}
