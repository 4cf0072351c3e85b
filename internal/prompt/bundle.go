package prompt

import (
	"fmt"
	"io/fs"
)

// Bundle 는 임베드된 YAML 프롬프트 모음이다. 파일 이름이 프롬프트 이름,
// 최상위 키가 필드(system/user 등)가 된다.
type Bundle struct {
	label   string
	prompts map[string]map[string]string
}

// LoadBundle 는 fs 내 dir 디렉터리의 YAML 프롬프트들을 로드한다.
// label 은 오류 메시지에서 어느 도메인의 프롬프트인지 구분하는 데 쓰인다.
func LoadBundle(fsys fs.FS, dir string, label string) (*Bundle, error) {
	loaded, err := LoadYAMLDir(fsys, dir)
	if err != nil {
		return nil, err
	}
	return &Bundle{label: label, prompts: loaded}, nil
}

// Field 는 프롬프트의 단일 필드를 조회한다.
func (b *Bundle) Field(name string, key string) (string, error) {
	if b == nil || b.prompts == nil {
		return "", fmt.Errorf("%s prompts not initialized", b.labelOrDefault())
	}
	data, ok := b.prompts[name]
	if !ok {
		return "", fmt.Errorf("prompt not found: %s", name)
	}
	value, ok := data[key]
	if !ok {
		return "", fmt.Errorf("prompt field missing: %s.%s", name, key)
	}
	return value, nil
}

// Template 는 프롬프트 필드를 템플릿으로 보고 값 치환까지 수행한다.
func (b *Bundle) Template(name string, key string, values map[string]string) (string, error) {
	template, err := b.Field(name, key)
	if err != nil {
		return "", err
	}
	formatted, err := FormatTemplate(template, values)
	if err != nil {
		return "", fmt.Errorf("format %s.%s: %w", name, key, err)
	}
	return formatted, nil
}

func (b *Bundle) labelOrDefault() string {
	if b == nil || b.label == "" {
		return "prompt"
	}
	return b.label
}
