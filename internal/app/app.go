package app

import (
	"context"
	"errors"
	"log/slog"
	"math"
	"strings"
	"time"

	"lifebook/internal/pipeline"
	"lifebook/pkg/ai"
	"lifebook/pkg/domain"
	"lifebook/pkg/storage"
	"lifebook/pkg/store"
)

// CooldownGate is the per-user gate guarding the memoir flow. The Redis
// implementation lives in internal/cooldown; tests stub it.
type CooldownGate interface {
	Remaining(ctx context.Context, userID string) (time.Duration, error)
	RecordSuccess(ctx context.Context, userID string) error
	Window() time.Duration
}

// App wires the generation pipeline, single-call text operations, and
// persistence flows behind one service type.
type App struct {
	store    store.Store
	objects  storage.ObjectStore
	text     ai.TextGenerator
	image    ai.ImageGenerator
	pipe     *pipeline.Pipeline
	cooldown CooldownGate
	logger   *slog.Logger
	now      func() time.Time
}

// New builds the App.
func New(st store.Store, objects storage.ObjectStore, text ai.TextGenerator, image ai.ImageGenerator, pipe *pipeline.Pipeline, cooldown CooldownGate, logger *slog.Logger) *App {
	return &App{
		store:    st,
		objects:  objects,
		text:     text,
		image:    image,
		pipe:     pipe,
		cooldown: cooldown,
		logger:   logger,
		now:      time.Now,
	}
}

// CreateMemoir runs the cooldown-gated memoir pipeline. The cooldown is
// checked up front and recorded only after full success, so a failed run
// never consumes the user's window.
func (a *App) CreateMemoir(ctx context.Context, userID string, answers domain.AnswerSet, fullStory string) (domain.Document, error) {
	remaining, err := a.cooldown.Remaining(ctx, userID)
	if err != nil {
		return domain.Document{}, WrapError(CodeUpstreamUnavailable, "쿨다운 상태를 확인하지 못했습니다", err)
	}
	if remaining > 0 {
		return domain.Document{}, RateLimitedError("10분에 한 번만 작성할 수 있습니다", remaining)
	}

	doc, err := a.pipe.Run(ctx, pipeline.Request{
		Config:    pipeline.MemoirConfig(),
		OwnerID:   userID,
		Answers:   answers,
		FullStory: fullStory,
	})
	if err != nil {
		return domain.Document{}, fromPipelineErr("회고록 생성에 실패했습니다", err)
	}

	if err := a.cooldown.RecordSuccess(ctx, userID); err != nil {
		// The document is already persisted; losing the cooldown marker
		// is preferable to failing the finished run.
		a.logger.Error("cooldown record failed", "user_id", userID, "error", err)
	}
	return doc, nil
}

// CreateToddlerBook runs the picture-book pipeline.
func (a *App) CreateToddlerBook(ctx context.Context, userID string, answers domain.AnswerSet, fullStory string) (domain.Document, error) {
	doc, err := a.pipe.Run(ctx, pipeline.Request{
		Config:    pipeline.ToddlerConfig(),
		OwnerID:   userID,
		Answers:   answers,
		FullStory: fullStory,
	})
	if err != nil {
		return domain.Document{}, fromPipelineErr("그림동화책 생성에 실패했습니다", err)
	}
	return doc, nil
}

// CreateMyth runs the myth pipeline. The narrative travels inside the answer
// set under full_story.
func (a *App) CreateMyth(ctx context.Context, userID string, answers domain.AnswerSet) (domain.Document, error) {
	doc, err := a.pipe.Run(ctx, pipeline.Request{
		Config:    pipeline.MythConfig(),
		OwnerID:   userID,
		Answers:   answers,
		FullStory: answers.Get("full_story"),
	})
	if err != nil {
		return domain.Document{}, fromPipelineErr("신화 생성에 실패했습니다", err)
	}
	return doc, nil
}

// CooldownStatus reports whether userID is still inside the memoir cooldown
// window, with the remaining wait rounded up to whole seconds.
func (a *App) CooldownStatus(ctx context.Context, userID string) (bool, int, error) {
	remaining, err := a.cooldown.Remaining(ctx, userID)
	if err != nil {
		return false, 0, WrapError(CodeUpstreamUnavailable, "쿨다운 상태를 확인하지 못했습니다", err)
	}
	if remaining <= 0 {
		return false, 0, nil
	}
	seconds := int(math.Ceil(remaining.Seconds()))
	return true, seconds, nil
}

// ListDocuments returns the caller's documents, newest first.
func (a *App) ListDocuments(_ context.Context, userID string) ([]domain.Document, error) {
	docs, err := a.store.ListDocumentsByOwner(userID)
	if err != nil {
		return nil, WrapError(CodePersistenceFailed, "문서 목록을 불러오지 못했습니다", err)
	}
	return docs, nil
}

// DeleteDocument removes a document and its page images. Blob deletes are
// best-effort per page: unparsable or missing image URLs are skipped, and
// the record itself is always deleted.
func (a *App) DeleteDocument(ctx context.Context, userID, docID string) error {
	doc, found, err := a.store.GetDocument(docID)
	if err != nil {
		return WrapError(CodePersistenceFailed, "문서를 불러오지 못했습니다", err)
	}
	if !found {
		return NewError(CodeNotFound, "삭제할 문서를 찾을 수 없습니다")
	}
	if doc.OwnerID != userID {
		return NewError(CodePermissionDenied, "문서를 삭제할 권한이 없습니다")
	}

	deleted := 0
	for _, page := range doc.Pages {
		if strings.TrimSpace(page.ImageURL) == "" {
			continue
		}
		key, ok := a.objects.KeyFromURL(page.ImageURL)
		if !ok {
			a.logger.Warn("skipping unparsable image url", "document_id", docID, "url", page.ImageURL)
			continue
		}
		if err := a.objects.Delete(ctx, key); err != nil {
			a.logger.Warn("image delete failed", "document_id", docID, "key", key, "error", err)
			continue
		}
		deleted++
	}
	if err := a.store.DeleteDocument(docID); err != nil {
		return WrapError(CodePersistenceFailed, "문서 삭제에 실패했습니다", err)
	}
	a.logger.Info("document deleted", "document_id", docID, "images_deleted", deleted)
	return nil
}

// fromPipelineErr maps pipeline stage failures onto the caller-visible
// taxonomy.
func fromPipelineErr(message string, err error) *Error {
	switch {
	case errors.Is(err, pipeline.ErrInvalidRequest):
		return WrapError(CodeInvalidInput, "필수 데이터가 누락되었습니다", err)
	case errors.Is(err, pipeline.ErrGeneration):
		return WrapError(CodeGenerationFailed, message, err)
	case errors.Is(err, pipeline.ErrPersistence):
		return WrapError(CodePersistenceFailed, message, err)
	default:
		return WrapError(CodeUpstreamUnavailable, message, err)
	}
}

// fromModelErr maps single-call text generation failures.
func fromModelErr(message string, err error) *Error {
	if errors.Is(err, ai.ErrEmptyCompletion) {
		return WrapError(CodeGenerationFailed, message, err)
	}
	return WrapError(CodeUpstreamUnavailable, message, err)
}
