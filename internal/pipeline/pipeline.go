package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"lifebook/pkg/ai"
	"lifebook/pkg/domain"
	"lifebook/pkg/storage"
	"lifebook/pkg/store"
)

// Stage failure classes. The app layer maps these onto caller-visible error
// codes; the wrapped detail stays in logs.
var (
	// ErrInvalidRequest marks validation failures caught before any model
	// call: no side effects have happened yet.
	ErrInvalidRequest = errors.New("invalid pipeline request")
	// ErrGeneration marks empty or unusable model output.
	ErrGeneration = errors.New("generation failed")
	// ErrUpstream marks a model call that itself errored.
	ErrUpstream = errors.New("upstream unavailable")
	// ErrPersistence marks blob or document store failures after
	// generation succeeded.
	ErrPersistence = errors.New("persistence failed")
)

const (
	defaultMaxConcurrentImages = 4
	defaultImageInterval       = 500 * time.Millisecond
)

// Request is the validated input to one pipeline run.
type Request struct {
	Config    DomainConfig
	OwnerID   string
	Answers   domain.AnswerSet
	FullStory string
}

// Pipeline runs the generic illustrated-document flow: scene split, per-scene
// image fan-out, blob upload, document persistence. All collaborators are
// injected so tests can run against fakes.
type Pipeline struct {
	text    ai.TextGenerator
	image   ai.ImageGenerator
	objects storage.ObjectStore
	store   store.Store
	logger  *slog.Logger

	maxConcurrent int
	imageInterval time.Duration
	now           func() time.Time
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithMaxConcurrentImages caps how many scene images render at once.
func WithMaxConcurrentImages(n int) Option {
	return func(p *Pipeline) {
		if n > 0 {
			p.maxConcurrent = n
		}
	}
}

// WithImageInterval sets the pacing interval between image request starts.
func WithImageInterval(d time.Duration) Option {
	return func(p *Pipeline) {
		if d > 0 {
			p.imageInterval = d
		}
	}
}

// New builds a Pipeline.
func New(text ai.TextGenerator, image ai.ImageGenerator, objects storage.ObjectStore, st store.Store, logger *slog.Logger, opts ...Option) *Pipeline {
	p := &Pipeline{
		text:          text,
		image:         image,
		objects:       objects,
		store:         st,
		logger:        logger,
		maxConcurrent: defaultMaxConcurrentImages,
		imageInterval: defaultImageInterval,
		now:           time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(p)
		}
	}
	return p
}

// Run executes one full pipeline invocation and returns the persisted
// document. Any stage failure aborts the run; no partial document is ever
// written.
func (p *Pipeline) Run(ctx context.Context, req Request) (domain.Document, error) {
	if err := validate(req); err != nil {
		return domain.Document{}, err
	}
	cfg := req.Config

	// Stage 1: split the narrative into scenes.
	splitRaw, err := p.text.GenerateText(ctx, cfg.SplitSystemPrompt(req.Answers), req.FullStory)
	if err != nil {
		return domain.Document{}, wrapModelErr("scene split", err)
	}
	scenes := ApplyFallback(SplitScenes(splitRaw), req.FullStory, cfg.EmptySplitPolicy, cfg.FixedPages, cfg.MaxPages)
	p.logger.Info("scenes split", "kind", cfg.Kind, "count", len(scenes))

	// Stage 2: keyword extraction (memoir only). Empty output degrades to a
	// placeholder instead of failing the run.
	keywords := ""
	if cfg.ExtractKeywords {
		keywords, err = p.text.GenerateText(ctx, keywordSystemPrompt, req.FullStory)
		if errors.Is(err, ai.ErrEmptyCompletion) {
			keywords = "키워드 없음"
		} else if err != nil {
			return domain.Document{}, wrapModelErr("keyword extraction", err)
		}
	}

	// Stage 3: fan out image generation across scenes.
	images, err := p.generateSceneImages(ctx, cfg, req.Answers, scenes)
	if err != nil {
		return domain.Document{}, err
	}

	// Stage 4: upload blobs and persist the document.
	doc, err := p.assembleAndStore(ctx, cfg, req, scenes, images, keywords)
	if err != nil {
		return domain.Document{}, err
	}
	p.logger.Info("document persisted", "kind", cfg.Kind, "document_id", doc.ID, "pages", len(doc.Pages))
	return doc, nil
}

func validate(req Request) error {
	if strings.TrimSpace(req.OwnerID) == "" {
		return fmt.Errorf("%w: owner id required", ErrInvalidRequest)
	}
	if len(req.Answers) == 0 {
		return fmt.Errorf("%w: answers required", ErrInvalidRequest)
	}
	if strings.TrimSpace(req.FullStory) == "" {
		return fmt.Errorf("%w: full story required", ErrInvalidRequest)
	}
	for _, key := range req.Config.RequiredKeys {
		if req.Answers.Get(key) == "" {
			return fmt.Errorf("%w: answer %q required", ErrInvalidRequest, key)
		}
	}
	return nil
}

// generateSceneImages renders one image per non-blank scene, index-aligned
// with scenes. All scenes run concurrently under a concurrency cap and a
// pacing limiter; the first failure cancels the rest (fail-fast, no partial
// result survives).
func (p *Pipeline) generateSceneImages(ctx context.Context, cfg DomainConfig, answers domain.AnswerSet, scenes []string) ([][]byte, error) {
	stylePrompt := cfg.StylePrompt(answers)
	subject := cfg.Subject(answers)
	promptSystem := cfg.ImagePromptSystem(stylePrompt, subject)

	images := make([][]byte, len(scenes))
	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(p.maxConcurrent)
	limiter := rate.NewLimiter(rate.Every(p.imageInterval), 2)

	for i, scene := range scenes {
		// Blank scenes come from the fixed-page fallback and keep an empty
		// image reference.
		if strings.TrimSpace(scene) == "" {
			continue
		}
		i, scene := i, scene
		eg.Go(func() error {
			if err := limiter.Wait(egCtx); err != nil {
				return fmt.Errorf("%w: image pacing: %v", ErrUpstream, err)
			}
			imagePrompt, err := p.text.GenerateText(egCtx, promptSystem, scene)
			if err != nil {
				return wrapModelErr(fmt.Sprintf("image prompt for scene %d", i+1), err)
			}
			data, err := p.image.GenerateImage(egCtx, imagePrompt)
			if err != nil {
				return wrapModelErr(fmt.Sprintf("image for scene %d", i+1), err)
			}
			images[i] = data
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}
	return images, nil
}

func (p *Pipeline) assembleAndStore(ctx context.Context, cfg DomainConfig, req Request, scenes []string, images [][]byte, keywords string) (domain.Document, error) {
	// One timestamp for the whole document keeps every page under the same
	// blob path segment.
	epochMillis := p.now().UnixMilli()
	pages := make([]domain.ScenePage, len(scenes))
	for i, scene := range scenes {
		page := domain.ScenePage{Index: i, Text: scene}
		if len(images[i]) > 0 {
			key := fmt.Sprintf("%s/%s/%d_%d.png", cfg.BlobPrefix, req.OwnerID, epochMillis, i)
			url, err := p.objects.PutPublic(ctx, key, images[i], "image/png")
			if err != nil {
				return domain.Document{}, fmt.Errorf("%w: upload page %d image: %v", ErrPersistence, i+1, err)
			}
			page.ImageURL = url
		}
		pages[i] = page
	}

	doc := domain.Document{
		ID:         uuid.NewString(),
		OwnerID:    req.OwnerID,
		Kind:       cfg.Kind,
		Title:      cfg.Title(req.Answers),
		Keywords:   keywords,
		Pages:      pages,
		RawAnswers: req.Answers,
	}
	if cfg.ExtraFields != nil {
		cfg.ExtraFields(req.Answers, &doc)
	}
	stored, err := p.store.CreateDocument(doc)
	if err != nil {
		return domain.Document{}, fmt.Errorf("%w: create document: %v", ErrPersistence, err)
	}
	return stored, nil
}

func wrapModelErr(stage string, err error) error {
	if errors.Is(err, ai.ErrEmptyCompletion) || errors.Is(err, ai.ErrEmptyImage) {
		return fmt.Errorf("%w: %s: %v", ErrGeneration, stage, err)
	}
	return fmt.Errorf("%w: %s: %v", ErrUpstream, stage, err)
}
