package app

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"lifebook/pkg/domain"
)

// Interview kinds stored alongside transcripts.
const (
	InterviewKindGeneral   = "general"
	InterviewKindSmartFarm = "smartfarm"
)

var articleStyleTable = map[string]string{
	"정치면":  "in the serious and formal illustration style of a political section newspaper cartoon",
	"경제면":  "in a clean, data-driven infographic style for an economic newspaper section",
	"사회면":  "in a realistic and impactful photojournalism style, capturing a key moment",
	"오피니언": "in a thoughtful and abstract style for an opinion or editorial section",
	"지역사회": "in a warm and friendly illustration style for a local community news section",
	"광고":   "in a bright, eye-catching style of a full-page newspaper advertisement",
	"만화":   "in the style of a classic black and white newspaper comic strip",
}

const defaultArticleStyle = "사회면"

// ArticleConfig carries the image settings for one newspaper article.
type ArticleConfig struct {
	Headline        string
	Style           string
	IncludeHardship bool
}

// CreateArticle runs the single-image newspaper variant of the pipeline:
// derive one image prompt from headline plus summary, render and upload one
// image, write the article body, persist the record.
func (a *App) CreateArticle(ctx context.Context, userID string, userInfo map[string]string, summary string, cfg ArticleConfig) (domain.Article, error) {
	if len(userInfo) == 0 || strings.TrimSpace(summary) == "" || strings.TrimSpace(cfg.Headline) == "" {
		return domain.Article{}, NewError(CodeInvalidInput, "필수 데이터가 누락되었습니다")
	}

	stylePrompt, ok := articleStyleTable[cfg.Style]
	if !ok {
		stylePrompt = articleStyleTable[defaultArticleStyle]
	}
	hardship := ""
	if cfg.IncludeHardship {
		hardship = "overcoming challenges and adversity, "
	}
	promptSystem := fmt.Sprintf(`Create an English image prompt for a newspaper article. The headline is "%s". The main character is a successful young Korean farmer. The prompt must depict a scene of %ssuccess and hope. The overall style MUST be: '%s'.`,
		cfg.Headline, hardship, stylePrompt)
	imagePrompt, err := a.text.GenerateText(ctx, promptSystem, summary)
	if err != nil {
		return domain.Article{}, fromModelErr("이미지 프롬프트 생성에 실패했습니다", err)
	}

	imageData, err := a.image.GenerateImage(ctx, imagePrompt)
	if err != nil {
		return domain.Article{}, fromModelErr("이미지 생성에 실패했습니다", err)
	}

	key := fmt.Sprintf("newspaper-articles/%s/%d.png", userID, a.now().UnixMilli())
	imageURL, err := a.objects.PutPublic(ctx, key, imageData, "image/png")
	if err != nil {
		return domain.Article{}, WrapError(CodePersistenceFailed, "이미지 업로드에 실패했습니다", err)
	}

	bodySystem := fmt.Sprintf("당신은 '%s' 스마트팜 농부의 성공 스토리를 다루는 신문 기자입니다. [헤드라인]과 [인터뷰 요약]을 바탕으로, 독자에게 감동과 영감을 주는 긍정적인 톤의 신문 기사 본문을 3문단으로 작성해주세요.", userInfo["penName"])
	body, err := a.text.GenerateText(ctx, bodySystem,
		fmt.Sprintf("[헤드라인]: %s\n\n[인터뷰 요약]:\n%s", cfg.Headline, summary))
	if err != nil {
		return domain.Article{}, fromModelErr("기사 본문 생성에 실패했습니다", err)
	}

	article, err := a.store.CreateArticle(domain.Article{
		ID:          uuid.NewString(),
		OwnerID:     userID,
		Headline:    cfg.Headline,
		Body:        body,
		ImageURL:    imageURL,
		Style:       cfg.Style,
		RawSummary:  summary,
		ImagePrompt: imagePrompt,
	})
	if err != nil {
		return domain.Article{}, WrapError(CodePersistenceFailed, "기사 저장에 실패했습니다", err)
	}
	a.logger.Info("article persisted", "article_id", article.ID, "user_id", userID)
	return article, nil
}

// SubmitInterview stores a finished interview transcript. UserID may be
// empty for anonymous submissions.
func (a *App) SubmitInterview(_ context.Context, userID string, userInfo map[string]string, conversation []domain.QA) (domain.Interview, error) {
	if len(userInfo) == 0 || len(conversation) == 0 {
		return domain.Interview{}, NewError(CodeInvalidInput, "필수 데이터(userInfo, conversation)가 누락되었습니다")
	}
	interview, err := a.store.CreateInterview(domain.Interview{
		ID:           uuid.NewString(),
		UserID:       userID,
		Kind:         InterviewKindGeneral,
		UserInfo:     userInfo,
		Conversation: conversation,
	})
	if err != nil {
		return domain.Interview{}, WrapError(CodePersistenceFailed, "인터뷰 저장에 실패했습니다", err)
	}
	return interview, nil
}

// SubmitSmartFarmInterview stores a smart-farm interview with an optional
// summary.
func (a *App) SubmitSmartFarmInterview(_ context.Context, userInfo map[string]string, conversation []domain.QA, summary string) (domain.Interview, error) {
	if len(userInfo) == 0 || len(conversation) == 0 {
		return domain.Interview{}, NewError(CodeInvalidInput, "필수 데이터가 누락되었습니다")
	}
	interview, err := a.store.CreateInterview(domain.Interview{
		ID:           uuid.NewString(),
		Kind:         InterviewKindSmartFarm,
		UserInfo:     userInfo,
		Conversation: conversation,
		Summary:      summary,
	})
	if err != nil {
		return domain.Interview{}, WrapError(CodePersistenceFailed, "인터뷰 저장에 실패했습니다", err)
	}
	return interview, nil
}

// SubmitLead stores a contact request.
func (a *App) SubmitLead(_ context.Context, name, phone, email string) (domain.Lead, error) {
	if strings.TrimSpace(name) == "" || strings.TrimSpace(phone) == "" || strings.TrimSpace(email) == "" {
		return domain.Lead{}, NewError(CodeInvalidInput, "필수 데이터(이름, 전화번호, 이메일)가 누락되었습니다")
	}
	lead, err := a.store.CreateLead(domain.Lead{
		ID:    uuid.NewString(),
		Name:  strings.TrimSpace(name),
		Phone: strings.TrimSpace(phone),
		Email: strings.TrimSpace(email),
	})
	if err != nil {
		return domain.Lead{}, WrapError(CodePersistenceFailed, "정보 저장에 실패했습니다", err)
	}
	return lead, nil
}
