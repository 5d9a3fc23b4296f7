package pipeline

import (
	"fmt"

	"lifebook/pkg/domain"
)

// DomainConfig parameterizes the generic pipeline for one document flow.
// The flows share identical control flow and differ only in prompt text,
// style tables, page policy, and persistence prefix.
type DomainConfig struct {
	Kind       domain.DocumentKind
	BlobPrefix string

	// RequiredKeys must be present and non-empty in the answer set before
	// any model call is made.
	RequiredKeys []string

	// SplitSystemPrompt builds the system prompt for the scene-split stage;
	// some flows embed answer context to keep scenes consistent.
	SplitSystemPrompt func(answers domain.AnswerSet) string

	// Style selection: the first non-empty answer among StyleKeys picks a
	// row from StyleTable; unknown or missing choices fall back to
	// DefaultStyle.
	StyleKeys    []string
	StyleTable   map[string]string
	DefaultStyle string

	// Subject selection for the image-prompt stage.
	SubjectKeys    []string
	DefaultSubject string

	// ImagePromptSystem builds the system prompt that derives an English
	// image prompt from one scene.
	ImagePromptSystem func(stylePrompt, subject string) string

	// Page policy.
	EmptySplitPolicy SplitFallback
	FixedPages       int
	MaxPages         int

	ExtractKeywords bool

	Title       func(answers domain.AnswerSet) string
	ExtraFields func(answers domain.AnswerSet, doc *domain.Document)
}

// StylePrompt resolves the image style fragment for the given answers.
func (c DomainConfig) StylePrompt(answers domain.AnswerSet) string {
	choice := answers.First(c.StyleKeys...)
	if prompt, ok := c.StyleTable[choice]; ok {
		return prompt
	}
	return c.StyleTable[c.DefaultStyle]
}

// Subject resolves the image subject descriptor for the given answers.
func (c DomainConfig) Subject(answers domain.AnswerSet) string {
	if subject := answers.First(c.SubjectKeys...); subject != "" {
		return subject
	}
	return c.DefaultSubject
}

const keywordSystemPrompt = `다음 텍스트의 핵심 주제를 나타내는 키워드를 한국어로 3개 추출해줘. 쉼표(,)로 구분된 하나의 문자열로만 답해줘. 예시: "유년 시절, 친구, 그리움"`

var memoirStyleTable = map[string]string{
	"사실적":    "a highly detailed, photorealistic photograph of",
	"스케치":    "a detailed, monochrome pencil sketch of",
	"수채화":    "a soft and gentle watercolor painting of",
	"유채화":    "a classic oil painting with thick, textured brushstrokes of",
	"애니메이션풍": "in the style of modern Japanese anime, a vibrant digital illustration of",
	"디즈니풍":   "in the style of a Disney animated feature film, a colorful and expressive digital painting of",
}

var storybookStyleTable = map[string]string{
	"유아용 동화책":  "a cute and colorful illustration in the style of a children's book, of",
	"마블 애니메이션": "in the style of Marvel animation, a dynamic and vibrant scene of",
	"지브리 애니메이션": "in the style of Studio Ghibli animation, a whimsical and serene illustration of",
	"전래동화풍":    "in the style of a traditional Korean folk tale illustration (Minhwa style), of",
	"안데르센풍":    "in the style of a classic Hans Christian Andersen fairy tale, vintage and whimsical, of",
	"앤서니 브라운풍": "in the surrealist and detailed style of children's book author Anthony Browne, of",
	"이중섭풍":     "in the powerful and expressive oil painting style of Korean artist Lee Jung-seob, of",
	"박수근풍":     "in the unique granite-like textured style of Korean artist Park Soo-keun, of",
}

var mythStyleTable = map[string]string{
	"유아용 동화책":  storybookStyleTable["유아용 동화책"],
	"마블 애니메이션": storybookStyleTable["마블 애니메이션"],
	"지브리 애니메이션": storybookStyleTable["지브리 애니메이션"],
	"전래동화풍":    storybookStyleTable["전래동화풍"],
	"안데르센풍":    storybookStyleTable["안데르센풍"],
	"앤서니 브라운풍": storybookStyleTable["앤서니 브라운풍"],
	"이중섭풍":     storybookStyleTable["이중섭풍"],
	"박수근풍":     storybookStyleTable["박수근풍"],
	"신화풍":      "in an epic, mythical, and legendary art style, of",
}

// MemoirConfig is the cooldown-gated memoir flow: five scenes, keyword
// extraction, consistent-character split prompt built from the answers.
func MemoirConfig() DomainConfig {
	return DomainConfig{
		Kind:       domain.KindMemoir,
		BlobPrefix: "memoir-images",
		SplitSystemPrompt: func(answers domain.AnswerSet) string {
			coreContext := fmt.Sprintf(
				"- 주인공 정보: 필명 %s, 나이 %s, gender %s\n- 회고 시기: %s\n- 주요 등장인물: %s\n- 주요 배경: %s",
				orDefault(answers.Get("penName"), "지정 안함"),
				orDefault(answers.Get("age"), "지정 안함"),
				orDefault(answers.Get("gender"), "지정 안함"),
				orDefault(answers.Get("start"), "알 수 없음"),
				orDefault(answers.Get("ask_character_info"), "주인공 외 없음"),
				orDefault(answers.Get("ask_background_info"), "알 수 없음"),
			)
			return "당신은 주어진 이야기를 5개의 주요 장면으로 나누는 편집자입니다.\n" +
				"장면을 나눌 때, 아래의 [핵심 정보]가 각 장면에 일관되게 유지되도록 내용을 구성해야 합니다.\n" +
				"이는 각 장면을 바탕으로 일관된 그림을 그리기 위함입니다.\n" +
				"각 장면은 ':::' 구분자로 나누어 출력해주세요.\n" +
				"[핵심 정보] : " + coreContext
		},
		StyleKeys:    []string{"ask_style_yes_char", "ask_style_no_char"},
		StyleTable:   memoirStyleTable,
		DefaultStyle: "사실적",
		ImagePromptSystem: func(stylePrompt, _ string) string {
			return fmt.Sprintf("You are an AI that creates an image generation prompt. Based on the following text, create a prompt in English. The characters in the scene MUST be Korean. The style must be '%s'. Do not include quotation marks in the output.", stylePrompt)
		},
		EmptySplitPolicy: FallbackFixedPages,
		FixedPages:       5,
		ExtractKeywords:  true,
		Title: func(answers domain.AnswerSet) string {
			return orDefault(answers.Get("penName"), "나의") + " 회고록"
		},
	}
}

// ToddlerConfig is the children's picture-book flow: four scenes, child
// friendly imagery, whole story as one scene when splitting fails.
func ToddlerConfig() DomainConfig {
	return DomainConfig{
		Kind:         domain.KindToddler,
		BlobPrefix:   "toddler-books",
		RequiredKeys: []string{"ask_style"},
		SplitSystemPrompt: func(domain.AnswerSet) string {
			return "당신은 주어진 동화 이야기를 4개의 주요 장면으로 나누는 편집자입니다.\n" +
				"내용은 절대 수정하지 말고, 장면을 나누는 작업만 수행합니다.\n" +
				"각 장면의 끝에 ':::' 구분자를 넣어주세요."
		},
		StyleKeys:      []string{"ask_style"},
		StyleTable:     storybookStyleTable,
		DefaultStyle:   "유아용 동화책",
		SubjectKeys:    []string{"ask_characters_in_book"},
		DefaultSubject: "주인공",
		ImagePromptSystem: func(stylePrompt, subject string) string {
			return fmt.Sprintf("You are an AI that creates an image generation prompt. Based on the following short story scene, create a concise prompt in English. The main character is '%s', main character is korean. The overall style MUST be '%s'. The image should be simple, bright, and easy for a child to understand. Do not include quotation marks in the output.", subject, stylePrompt)
		},
		EmptySplitPolicy: FallbackSingleScene,
		Title: func(answers domain.AnswerSet) string {
			return orDefault(answers.Get("title"), "나의 그림동화")
		},
	}
}

// MythConfig is the mythic-biography flow: scenes capped at four, epic
// imagery, author fields carried onto the document.
func MythConfig() DomainConfig {
	return DomainConfig{
		Kind:         domain.KindMyth,
		BlobPrefix:   "myth-images",
		RequiredKeys: []string{"title", "ask_style"},
		SplitSystemPrompt: func(domain.AnswerSet) string {
			return "당신은 주어진 신화 이야기를 정확히 4개의 주요 장면으로 나누는 편집자입니다.\n" +
				"내용은 절대 수정하지 말고, 장면을 나누는 작업만 수행합니다.\n" +
				"각 장면의 끝에 ':::' 구분자를 넣어주세요."
		},
		StyleKeys:      []string{"ask_style"},
		StyleTable:     mythStyleTable,
		DefaultStyle:   "신화풍",
		SubjectKeys:    []string{"ask_protagonist_background"},
		DefaultSubject: "이야기의 주인공",
		ImagePromptSystem: func(stylePrompt, subject string) string {
			return fmt.Sprintf("You are an AI that creates an image generation prompt. Based on the following short story scene, create a concise prompt in English. The main subject is '%s', and they are Korean. The overall style MUST be '%s'. The image should be epic and profound. Do not include quotation marks in the output.", subject, stylePrompt)
		},
		EmptySplitPolicy: FallbackSingleScene,
		MaxPages:         4,
		Title: func(answers domain.AnswerSet) string {
			return answers.Get("title")
		},
		ExtraFields: func(answers domain.AnswerSet, doc *domain.Document) {
			doc.Author = answers.Get("ask_author_name")
			doc.AuthorIntro = answers.Get("author_intro")
			doc.FinalMessage = answers.Get("ask_final_message")
		},
	}
}

func orDefault(value, fallback string) string {
	if value == "" {
		return fallback
	}
	return value
}
