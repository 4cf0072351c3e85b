package classify

import (
	"embed"
	"fmt"
	"io/fs"
	"regexp"
	"strings"

	"github.com/cloudflare/ahocorasick"
	"gopkg.in/yaml.v3"
)

//go:embed catalogs/*.yml
var catalogsFS embed.FS

type rawChitchatFile struct {
	Intents []rawChitchatIntent `yaml:"intents"`
}

type rawChitchatIntent struct {
	ID               string   `yaml:"id"`
	Phrases          []string `yaml:"phrases"`
	Response         string   `yaml:"response"`
	BlockWhenRequest bool     `yaml:"block_when_request"`
	BlockWhenTopic   bool     `yaml:"block_when_topic"`
}

type rawRequestFile struct {
	RequestPhrases   []string `yaml:"request_phrases"`
	GratitudePhrases []string `yaml:"gratitude_phrases"`
}

type rawFollowUpFile struct {
	Markers []string `yaml:"markers"`
}

type rawSlideFile struct {
	Phrases []string `yaml:"phrases"`
}

type rawTopicFile struct {
	Categories []rawTopicCategory `yaml:"categories"`
}

type rawTopicCategory struct {
	Name     string   `yaml:"name"`
	Keywords []string `yaml:"keywords"`
}

// ChitchatIntent 는 스몰토크 인텐트 1건이다. 프로세스 시작 시 1회 컴파일되며 불변이다.
type ChitchatIntent struct {
	ID               string
	Phrases          []string
	ResponseText     string
	BlockWhenRequest bool
	BlockWhenTopic   bool

	pattern *regexp.Regexp
}

// matches: 정규화된 질의가 인텐트 트리거 구문 중 하나를 포함하는지 검사합니다.
func (i *ChitchatIntent) matches(norm string) bool {
	return i.pattern != nil && i.pattern.MatchString(norm)
}

// TopicCategory 는 카테고리 라벨과 선별 키워드 집합이다. 선언 순서가 우선순위다.
type TopicCategory struct {
	Name     string
	Keywords []string
}

type followUpMarker struct {
	phrase  string
	pattern *regexp.Regexp
}

// Catalog 는 분류 파이프라인이 쓰는 모든 구문 카탈로그의 컴파일 결과다.
// 시작 시 1회 로드되고 이후 읽기 전용으로 공유된다. 런타임 변경 API는 없다.
type Catalog struct {
	intents       []ChitchatIntent
	requestSet    *regexp.Regexp
	gratitudeSet  *regexp.Regexp
	markers       []followUpMarker
	slideMatcher  *ahocorasick.Matcher
	slidePhrases  []string
	categories    []TopicCategory
	allKeywordSet *regexp.Regexp
}

// NewCatalog 는 내장 YAML 카탈로그를 로드하고 컴파일한다.
func NewCatalog() (*Catalog, error) {
	return loadCatalog(catalogsFS, "catalogs")
}

func loadCatalog(fsys fs.FS, dir string) (*Catalog, error) {
	catalog := &Catalog{}

	var chitchat rawChitchatFile
	if err := readYAML(fsys, dir+"/chitchat.yml", &chitchat); err != nil {
		return nil, err
	}
	if err := catalog.compileIntents(chitchat.Intents); err != nil {
		return nil, err
	}

	var requests rawRequestFile
	if err := readYAML(fsys, dir+"/requests.yml", &requests); err != nil {
		return nil, err
	}
	if err := catalog.compileRequests(requests); err != nil {
		return nil, err
	}

	var followups rawFollowUpFile
	if err := readYAML(fsys, dir+"/followups.yml", &followups); err != nil {
		return nil, err
	}
	if err := catalog.compileMarkers(followups.Markers); err != nil {
		return nil, err
	}

	var slide rawSlideFile
	if err := readYAML(fsys, dir+"/slide.yml", &slide); err != nil {
		return nil, err
	}
	catalog.compileSlidePhrases(slide.Phrases)

	var topics rawTopicFile
	if err := readYAML(fsys, dir+"/topics.yml", &topics); err != nil {
		return nil, err
	}
	if err := catalog.compileTopics(topics.Categories); err != nil {
		return nil, err
	}

	return catalog, nil
}

func readYAML(fsys fs.FS, path string, out any) error {
	data, err := fs.ReadFile(fsys, path)
	if err != nil {
		return fmt.Errorf("read catalog file: %w", err)
	}
	if err := yaml.Unmarshal(data, out); err != nil {
		return fmt.Errorf("parse catalog %s: %w", path, err)
	}
	return nil
}

func (c *Catalog) compileIntents(raws []rawChitchatIntent) error {
	if len(raws) == 0 {
		return fmt.Errorf("chitchat catalog is empty")
	}
	intents := make([]ChitchatIntent, 0, len(raws))
	for _, raw := range raws {
		if raw.ID == "" || len(raw.Phrases) == 0 {
			return fmt.Errorf("invalid chitchat intent: id=%q", raw.ID)
		}
		pattern, err := compilePhraseSet(normalizePhrases(raw.Phrases))
		if err != nil {
			return fmt.Errorf("compile intent %s: %w", raw.ID, err)
		}
		intents = append(intents, ChitchatIntent{
			ID:               raw.ID,
			Phrases:          normalizePhrases(raw.Phrases),
			ResponseText:     raw.Response,
			BlockWhenRequest: raw.BlockWhenRequest,
			BlockWhenTopic:   raw.BlockWhenTopic,
			pattern:          pattern,
		})
	}
	c.intents = intents
	return nil
}

func (c *Catalog) compileRequests(raw rawRequestFile) error {
	requestSet, err := compilePhraseSet(normalizePhrases(raw.RequestPhrases))
	if err != nil {
		return fmt.Errorf("compile request phrases: %w", err)
	}
	gratitudeSet, err := compilePhraseSet(normalizePhrases(raw.GratitudePhrases))
	if err != nil {
		return fmt.Errorf("compile gratitude phrases: %w", err)
	}
	c.requestSet = requestSet
	c.gratitudeSet = gratitudeSet
	return nil
}

func (c *Catalog) compileMarkers(phrases []string) error {
	markers := make([]followUpMarker, 0, len(phrases))
	for _, phrase := range normalizePhrases(phrases) {
		pattern, err := compilePhrase(phrase)
		if err != nil {
			return fmt.Errorf("compile follow-up marker %q: %w", phrase, err)
		}
		markers = append(markers, followUpMarker{phrase: phrase, pattern: pattern})
	}
	c.markers = markers
	return nil
}

func (c *Catalog) compileSlidePhrases(phrases []string) {
	normalized := normalizePhrases(phrases)
	if len(normalized) == 0 {
		return
	}
	patterns := make([][]byte, 0, len(normalized))
	for _, phrase := range normalized {
		patterns = append(patterns, []byte(phrase))
	}
	c.slidePhrases = normalized
	c.slideMatcher = ahocorasick.NewMatcher(patterns)
}

func (c *Catalog) compileTopics(raws []rawTopicCategory) error {
	if len(raws) == 0 {
		return fmt.Errorf("topic keyword catalog is empty")
	}
	categories := make([]TopicCategory, 0, len(raws))
	allKeywords := make([]string, 0, len(raws)*12)
	for _, raw := range raws {
		if raw.Name == "" || len(raw.Keywords) == 0 {
			return fmt.Errorf("invalid topic category: name=%q", raw.Name)
		}
		keywords := normalizePhrases(raw.Keywords)
		categories = append(categories, TopicCategory{Name: strings.ToLower(raw.Name), Keywords: keywords})
		allKeywords = append(allKeywords, keywords...)
	}
	allKeywordSet, err := compilePhraseSet(allKeywords)
	if err != nil {
		return fmt.Errorf("compile topic keywords: %w", err)
	}
	c.categories = categories
	c.allKeywordSet = allKeywordSet
	return nil
}

// normalizePhrases 는 카탈로그 구문을 질의와 같은 표준 형태로 맞춘다.
// 카탈로그는 이미 정규형으로 작성하는 것이 원칙이지만, 오타 방어로 한 번 더 돌린다.
func normalizePhrases(phrases []string) []string {
	out := make([]string, 0, len(phrases))
	for _, phrase := range phrases {
		normalized := NormalizeQuery(phrase)
		if normalized == "" {
			continue
		}
		out = append(out, normalized)
	}
	return out
}

// Intents: 선언 순서의 인텐트 목록을 반환합니다 (읽기 전용).
func (c *Catalog) Intents() []ChitchatIntent {
	return c.intents
}

// Categories: 선언 순서의 카테고리 목록을 반환합니다 (읽기 전용).
func (c *Catalog) Categories() []TopicCategory {
	return c.categories
}
