package app

import (
	"context"
	"fmt"
	"strings"

	"lifebook/internal/pipeline"
	"lifebook/pkg/ai"
	"lifebook/pkg/domain"
)

// Prompt tables for the memoir draft stage.
var memoirOrderedKeys = []string{
	"start", "ask_has_characters", "ask_character_info", "ask_background_info",
	"ask_meaning_yes_char", "ask_story_yes_char", "ask_message_to_char",
	"ask_recipient_yes_char", "ask_meaning_no_char", "ask_story_no_char",
	"ask_recipient_no_char", "ask_final_message_no_char",
}

var memoirQuestionLabels = map[string]string{
	"start":                     "회고하고 싶은 시기",
	"ask_has_characters":        "등장인물 유무",
	"ask_character_info":        "등장인물 정보",
	"ask_background_info":       "회고 당시 배경",
	"ask_meaning_yes_char":      "회고록의 의미",
	"ask_story_yes_char":        "당시 이야기",
	"ask_message_to_char":       "등장인물에게 전하는 메시지",
	"ask_recipient_yes_char":    "회고록을 전하고 싶은 사람",
	"ask_meaning_no_char":       "회고록의 의미",
	"ask_story_no_char":         "당시 이야기",
	"ask_recipient_no_char":     "회고록을 전하고 싶은 사람",
	"ask_final_message_no_char": "회고록에 남기고 싶은 메시지",
}

var memoirStorySystemPrompt = strings.Join([]string{
	"당신은 1인칭 회고록을 집필하는 작가입니다. 사용자로부터 받은 QnA를 바탕으로, 따뜻하고 서정적인 분위기의 회고 이야기를 작성해주세요.",
	"※ 아래의 작문 규칙을 지켜주세요:",
	"1. **글의 시점**은 반드시 ‘나’로 시작되는 **1인칭 방식**으로 유지합니다. 또한 어투도 1인칭을 사용하여 내가 쓴 회고를 느끼게 합니다.",
	"2. **글의 구조**는 다음을 따릅니다:",
	" - (1) 특정 시기의 회상(나이, 장소, 당시의 감정)",
	" - (2) 그 시절 나와 주변 인물(가족, 친구 등)의 관계 묘사",
	" - (3) 사건이나 일화 중심의 감정 흐름 전개",
	" - (4) 현재 시점에서 느끼는 생각이나 감정으로 마무리",
	"3. **문장 분위기**는 부드럽고 차분하며 감정에 집중되도록 하고, 너무 극적이거나 과장된 표현은 피합니다.",
	"4. 사용자 QnA 속 구체적인 표현(이름, 나이, 복장, 상황 등)은 이야기 속에 자연스럽게 녹여냅니다.",
	"5. 전체 분량은 **1000자 내외**로 구성해주세요.",
	"6. 스토리는 최대한 현실적으로 생성해서 읽는 사람이 어색함을 느끼지 않게 구성합니다.",
	"7. 별도의 제목을 작성하지 않도록 해주세요.",
}, "\n")

var toddlerProfileFields = []pipeline.ProfileField{
	{Key: "ask_reason", Label: "생성 계기"},
	{Key: "ask_theme", Label: "그림책 주제"},
	{Key: "ask_purpose", Label: "그림책 목적, 가치"},
	{Key: "ask_characters_in_book", Label: "주인공"},
	{Key: "ask_background", Label: "배경정보"},
	{Key: "ask_hardship", Label: "(역경,고난,갈등,모험) 포함 여부"},
}

var mythProfileFields = []pipeline.ProfileField{
	{Key: "ask_myth_type", Label: "신화 유형"},
	{Key: "ask_composition_elements", Label: "이야기의 핵심 구성요소"},
	{Key: "ask_pen_name", Label: "필명"},
	{Key: "ask_basic_info", Label: "저자의 기본 정보"},
	{Key: "ask_impact", Label: "이야기가 독자에게 줄 변화"},
	{Key: "ask_helpfulness", Label: "이야기가 독자에게 줄 도움"},
	{Key: "ask_protagonist_background", Label: "주인공과 배경"},
	{Key: "ask_plot_elements", Label: "핵심 플롯"},
	{Key: "ask_values", Label: "전달하고 싶은 가치와 목표"},
	{Key: "ask_transformation", Label: "주인공의 변화"},
	{Key: "ask_final_scene", Label: "마지막 장면과 여운"},
}

const answerPlaceholder = "지정 안함"

// GenerateMemoirStory drafts a first-person memoir from the answer set and
// returns the story with a ~500 character summary.
func (a *App) GenerateMemoirStory(ctx context.Context, answers domain.AnswerSet) (story, summary string, err error) {
	prompt := pipeline.BuildNarrativePrompt(memoirOrderedKeys, memoirQuestionLabels, answers)
	if prompt == "" {
		return "", "", NewError(CodeInvalidInput, "qnaData가 유효하지 않습니다")
	}
	story, err = a.text.GenerateText(ctx, memoirStorySystemPrompt, prompt)
	if err != nil {
		return "", "", fromModelErr("회고 스토리 생성에 실패했습니다", err)
	}
	summary, err = a.text.GenerateText(ctx,
		"다음 회고록 텍스트를 500자 내외의 자연스러운 문단으로 요약해줘.", story)
	if err != nil {
		return "", "", fromModelErr("요약 생성에 실패했습니다", err)
	}
	return story, summary, nil
}

// GenerateToddlerStory drafts a children's story from the answer set.
func (a *App) GenerateToddlerStory(ctx context.Context, answers domain.AnswerSet) (string, error) {
	if len(answers) == 0 {
		return "", NewError(CodeInvalidInput, "qnaData가 비어있습니다")
	}
	system := strings.Join([]string{
		"당신은 아이들을 위한 동화 작가입니다.",
		"사용자가 제공한 아래의 핵심 정보들을 바탕으로, 아이들의 눈높이에 맞는 따뜻하고 교훈적인 단편 동화 스토리 초안을 작성해주세요.",
		"- 전체 분량은 4개의 짧은 문단으로 구성해주세요.",
		"- 아이들이 이해하기 쉬운 단어와 표현을 사용해주세요.",
		"- 긍정적이고 희망적인 분위기로 이야기를 마무리해주세요.",
	}, "\n")
	prompt := pipeline.BuildProfilePrompt(toddlerProfileFields, answers, answerPlaceholder)
	story, err := a.text.GenerateText(ctx, system, prompt, ai.WithMaxTokens(1000))
	if err != nil {
		return "", fromModelErr("동화 스토리 생성에 실패했습니다", err)
	}
	return story, nil
}

// GenerateMythStory drafts a mythic narrative from the answer set.
func (a *App) GenerateMythStory(ctx context.Context, answers domain.AnswerSet) (string, error) {
	if len(answers) == 0 {
		return "", NewError(CodeInvalidInput, "qnaData가 비어있습니다")
	}
	system := strings.Join([]string{
		"당신은 한 개인이나 기업의 서사를 '신화'의 형태로 집필하는 전문 작가입니다.",
		"사용자가 제공한 아래의 핵심 정보들을 바탕으로, 감동과 영감을 주는 서사적인 이야기 초안을 작성해주세요.",
		"- 신화의 유형과 핵심 가치를 이야기에 잘 녹여내세요.",
		"- 주인공의 변화 과정이 명확히 드러나도록 기승전결 구조를 갖춰주세요.",
		"- 전체 분량은 4개의 문단으로 구성해주세요.",
		"- 문체는 서사적이고 진중하게 작성해주세요.",
	}, "\n")
	prompt := pipeline.BuildProfilePrompt(mythProfileFields, answers, answerPlaceholder)
	story, err := a.text.GenerateText(ctx, system, prompt, ai.WithMaxTokens(1500))
	if err != nil {
		return "", fromModelErr("신화 스토리 생성에 실패했습니다", err)
	}
	return story, nil
}

// GenerateBookTitle suggests a single title for a finished story.
func (a *App) GenerateBookTitle(ctx context.Context, fullStory string) (string, error) {
	if strings.TrimSpace(fullStory) == "" {
		return "", NewError(CodeInvalidInput, "fullStory가 비어있습니다")
	}
	system := "다음 동화책 내용 전체를 읽고, 아이들의 흥미를 끌 만한 창의적이고 따뜻한 제목을 한국어로 하나만 추천해줘.\n" +
		"결과는 오직 제목 텍스트만 포함해야 하며, 따옴표나 다른 부가 설명 없이 출력해줘."
	title, err := a.text.GenerateText(ctx, system, fullStory, ai.WithMaxTokens(60))
	if err != nil {
		return "", fromModelErr("제목 생성에 실패했습니다", err)
	}
	return title, nil
}

// GenerateMythTitles suggests exactly four numbered titles for a myth.
func (a *App) GenerateMythTitles(ctx context.Context, fullStory string) ([]string, error) {
	if strings.TrimSpace(fullStory) == "" {
		return nil, NewError(CodeInvalidInput, "fullStory가 비어있습니다")
	}
	system := strings.Join([]string{
		"다음 신화 이야기의 내용 전체를 읽고, 독자의 흥미를 끌 만한 창의적이고 서사적인 제목을 한국어로 정확히 4개 추천해줘.",
		"각 제목은 번호를 매겨서 다음 형식으로 응답해야 합니다:",
		"1. 첫 번째 추천 제목",
		"2. 두 번째 추천 제목",
		"3. 세 번째 추천 제목",
		"4. 네 번째 추천 제목",
		"결과에는 제목 외에 다른 설명이나 따옴표를 절대 포함하지 마세요.",
	}, "\n")
	raw, err := a.text.GenerateText(ctx, system, fullStory, ai.WithMaxTokens(200))
	if err != nil {
		return nil, fromModelErr("제목 생성에 실패했습니다", err)
	}
	return pipeline.ParseNumberedList(raw, 4), nil
}

// GenerateAuthorIntro writes a short author bio from keywords.
func (a *App) GenerateAuthorIntro(ctx context.Context, keywords string) (string, error) {
	if strings.TrimSpace(keywords) == "" {
		return "", NewError(CodeInvalidInput, "keywords가 비어있습니다")
	}
	system := strings.Join([]string{
		"당신은 책의 마지막 페이지에 들어갈 '저자 소개'를 작성하는 전문 편집자입니다.",
		"사용자가 제공한 핵심 키워드를 바탕으로, 독자에게 영감을 주는 따뜻하고 간결한 저자 소개 문구를 한국어로 생성해주세요.",
		"- 전체 분량은 2~3 문장으로 구성해주세요.",
		"- 키워드의 의미를 창의적으로 해석하여 감성적인 문장으로 만들어주세요.",
	}, "\n")
	intro, err := a.text.GenerateText(ctx, system, keywords, ai.WithMaxTokens(200))
	if err != nil {
		return "", fromModelErr("저자 소개 생성에 실패했습니다", err)
	}
	return intro, nil
}

// GenerateEmpathy produces a short empathetic reply to one user answer.
func (a *App) GenerateEmpathy(ctx context.Context, userAnswer string) (string, error) {
	if strings.TrimSpace(userAnswer) == "" {
		return "", NewError(CodeInvalidInput, "userAnswer가 비어있습니다")
	}
	prompt := fmt.Sprintf(`사용자의 다음 문장에 대해, 친구처럼 짧고 따뜻하며 자연스러운 공감의 말을 한국어로 한두 문장으로 생성해줘. 존댓말을 사용할 것: "%s"`, userAnswer)
	reply, err := a.text.GenerateText(ctx, "", prompt, ai.WithMaxTokens(60), ai.WithTemperature(0.7))
	if err != nil {
		return "", fromModelErr("공감 응답 생성에 실패했습니다", err)
	}
	return reply, nil
}

func bridgingPrompt(previousQuestion, userAnswer, nextQuestion string) string {
	return fmt.Sprintf("[이전 질문]: %s\n[사용자 답변]: %s\n[다음 질문]: %s",
		previousQuestion, userAnswer, nextQuestion)
}

// GenerateInterviewResponse produces an empathetic bridge between two
// interview questions.
func (a *App) GenerateInterviewResponse(ctx context.Context, previousQuestion, userAnswer, nextQuestion string) (string, error) {
	if previousQuestion == "" || userAnswer == "" || nextQuestion == "" {
		return "", NewError(CodeInvalidInput, "필수 데이터가 누락되었습니다")
	}
	system := strings.Join([]string{
		"당신은 사용자의 답변에 공감하며 자연스럽게 다음 질문으로 대화를 이어주는 전문 인터뷰어입니다.",
		"주어진 [이전 질문], [사용자 답변], 그리고 다음에 이어질 [다음 질문]의 전체 문맥을 파악하여, 아래 규칙에 따라 '공감 표현'만 생성해주세요.",
		"",
		"1. [사용자 답변]의 핵심 내용을 짧게 짚으며 따뜻하게 공감해주세요.",
		"2. 당신이 생성할 '공감 표현'이, 다음에 나올 [다음 질문]으로 자연스럽게 이어주는 징검다리 역할을 해야 합니다.",
		"3. 당신의 역할은 '공감'까지입니다. **절대로 [다음 질문]을 직접 말해서는 안 됩니다.**",
		"4. 문장은 반드시 한국어 존댓말로, 1~2개의 짧은 문장으로만 구성해주세요.",
		"5. 문장에 \"?\"를 절대 사용하지 마세요.",
		"[예시]",
		"- 당신의 응답(결과물): 정말요! 민원인이 소리를 질렀다니 무척 당황스럽고 힘드셨겠습니다. 그 원인에 대해 조금 더 깊이 이야기 나눠보죠.",
	}, "\n")
	reply, err := a.text.GenerateText(ctx, system, bridgingPrompt(previousQuestion, userAnswer, nextQuestion),
		ai.WithMaxTokens(100), ai.WithTemperature(0.7))
	if err != nil {
		return "", fromModelErr("인터뷰 응답 생성에 실패했습니다", err)
	}
	return reply, nil
}

// GenerateMythResponse produces the myth-flow variant of the bridging reply.
func (a *App) GenerateMythResponse(ctx context.Context, previousQuestion, userAnswer, nextQuestion string) (string, error) {
	if previousQuestion == "" || userAnswer == "" || nextQuestion == "" {
		return "", NewError(CodeInvalidInput, "필수 데이터가 누락되었습니다")
	}
	system := strings.Join([]string{
		"당신은 사용자와 '신화'를 함께 만들어가는 리스너입니다.",
		"주어진 [이전 질문], [사용자 답변], [다음 질문]의 전체 문맥을 파악하여,",
		"[사용자 답변]에 깊이 공감하면서 [다음 질문]으로 자연스럽게 대화를 이어주는 '연결 문장'을 생성해주세요.",
		"",
		"[규칙]",
		"1. 반드시 아래 '공감 어휘 목록' 중 답변의 문맥과 가장 어울리는 단어를 하나 선택하여 문장에 포함시키세요.",
		"2. 당신의 역할은 '연결 문장' 생성까지입니다. 절대로 [다음 질문]의 내용을 직접 언급해서는 안 됩니다.",
		"3. 결과는 한두 문장의 짧은 존댓말 문장이어야 합니다.",
		"",
		"[공감 어휘 목록]",
		"- 설레임, 두근두근, 놀라움, 참신함, 의미있음, 기여하게됨",
	}, "\n")
	reply, err := a.text.GenerateText(ctx, system, bridgingPrompt(previousQuestion, userAnswer, nextQuestion),
		ai.WithMaxTokens(150), ai.WithTemperature(0.7))
	if err != nil {
		return "", fromModelErr("공감 응답 생성에 실패했습니다", err)
	}
	return reply, nil
}

// GenerateSmartFarmResponse produces the smart-farm interview variant.
func (a *App) GenerateSmartFarmResponse(ctx context.Context, previousQuestion, userAnswer, nextQuestion string) (string, error) {
	if previousQuestion == "" || userAnswer == "" || nextQuestion == "" {
		return "", NewError(CodeInvalidInput, "필수 데이터가 누락되었습니다")
	}
	system := strings.Join([]string{
		"당신은 '논산시 청년 스마트팜' 인터뷰를 진행하는 전문 인터뷰어입니다.",
		"주어진 [이전 질문], [사용자 답변], [다음 질문]의 전체 문맥을 파악하여,",
		"[사용자 답변]의 핵심을 요약하며 공감하고, [다음 질문]으로 자연스럽고 흥미롭게하여 지속적인 답변이 가능하게 하는 '연결 문장'을 생성해주세요.",
		"",
		"[규칙]",
		"1. 반드시 아래 '공감 어휘 목록' 중 답변의 문맥과 가장 어울리는 단어를 하나 이상 선택하여 문장에 포함시키세요.",
		"2. 당신의 역할은 '연결 문장' 생성까지입니다. 절대로 [다음 질문]의 내용을 직접 언급해서는 안 됩니다.",
		"3. 결과는 한두 문장의 짧은 존댓말 문장이어야 합니다.",
		"",
		"[공감 어휘 목록]",
		"- 기대감, 설레임, 걱정스러움, 불확실함, 염려스러움, 그럼에도 불구하고, 용기내어, 설득하고, 어떻게 해야할지, 도움 받고 싶은, 잘 해보고 싶은, 성공하고 싶은, 자랑스러운",
	}, "\n")
	reply, err := a.text.GenerateText(ctx, system, bridgingPrompt(previousQuestion, userAnswer, nextQuestion),
		ai.WithMaxTokens(150))
	if err != nil {
		return "", fromModelErr("공감 응답 생성에 실패했습니다", err)
	}
	return reply, nil
}

// SummarizeInterview condenses a full interview transcript into a short
// report draft.
func (a *App) SummarizeInterview(ctx context.Context, userInfo map[string]string, conversation []domain.QA) (string, error) {
	if len(conversation) == 0 {
		return "", NewError(CodeInvalidInput, "필수 데이터가 누락되었습니다")
	}
	var qa strings.Builder
	for _, turn := range conversation {
		fmt.Fprintf(&qa, "질문: %s\n답변: %s\n\n", turn.Question, turn.Answer)
	}
	system := "당신은 '논산시 청년 스마트팜 발전 포럼'의 정책 분석가입니다. 주어진 인터뷰 Q&A 내용을 바탕으로, 핵심 내용을 간결하고 명확하게 요약하여 보고서 초안을 작성해주세요. 각 답변의 핵심 키워드와 의견이 잘 드러나도록 문단을 나누어 정리해주세요. 사용자의 의견을 객관적으로 전달하는 톤을 유지해주세요. 전체 내용은 3~4개의 문단으로 구성하고, 첫인사는 생략하고 바로 요약 내용으로 시작해주세요."
	penName := userInfo["penName"]
	if penName == "" {
		penName = "참여자"
	}
	prompt := fmt.Sprintf("[인터뷰 대상자 필명: %s]\n\n[인터뷰 전체 내용]\n%s", penName, qa.String())
	summary, err := a.text.GenerateText(ctx, system, prompt)
	if err != nil {
		return "", fromModelErr("요약 생성에 실패했습니다", err)
	}
	return summary, nil
}

// GenerateHeadlines suggests exactly four newspaper headlines from an
// interview summary and the user's stated future vision.
func (a *App) GenerateHeadlines(ctx context.Context, summary string, userInfo map[string]string, futureVision string) ([]string, error) {
	if strings.TrimSpace(summary) == "" || strings.TrimSpace(futureVision) == "" {
		return nil, NewError(CodeInvalidInput, "필수 데이터가 누락되었습니다")
	}
	system := fmt.Sprintf("당신은 5년 뒤 성공한 청년 스마트팜 농부 '%s'에 대한 신문 기사 헤드라인을 작성하는 전문 카피라이터입니다. 주어진 [인터뷰 요약]과 사용자가 직접 서술한 [5년 뒤 미래상]을 모두 참고하여, 독자의 시선을 사로잡을 흥미롭고 긍정적인 헤드라인을 한국어로 정확히 4개 생성해주세요. 각 헤드라인은 번호를 매겨 다음 형식으로 응답해야 합니다:\n1. 첫 번째 추천 헤드라인\n2. 두 번째 추천 헤드라인\n3. 세 번째 추천 헤드라인\n4. 네 번째 추천 헤드라인", userInfo["penName"])
	prompt := fmt.Sprintf("[인터뷰 요약]:\n%s\n\n[5년 뒤 미래상]:\n%s", summary, futureVision)
	raw, err := a.text.GenerateText(ctx, system, prompt)
	if err != nil {
		return nil, fromModelErr("헤드라인 생성에 실패했습니다", err)
	}
	return pipeline.ParseNumberedList(raw, 4), nil
}
