package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
	"lifebook/pkg/domain"
)

const migrateLockID int64 = 84128412

// GormStore implements Store using GORM + Postgres.
type GormStore struct {
	db  *gorm.DB
	now func() time.Time
}

// NewGormStore opens the DB and runs auto-migrations.
func NewGormStore(dsn string) (*GormStore, error) {
	gormLog := gormlogger.New(
		log.New(os.Stdout, "\r\n", log.LstdFlags),
		gormlogger.Config{
			SlowThreshold:             time.Second,
			LogLevel:                  gormlogger.Warn,
			IgnoreRecordNotFoundError: true,
			Colorful:                  false,
		},
	)
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{Logger: gormLog})
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if err := withMigrationLock(db, func(tx *gorm.DB) error {
		if err := tx.AutoMigrate(&DocumentModel{}, &ArticleModel{}, &InterviewModel{}, &LeadModel{}); err != nil {
			return fmt.Errorf("auto migrate: %w", err)
		}
		return nil
	}); err != nil {
		return nil, err
	}
	return &GormStore{db: db, now: func() time.Time { return time.Now().UTC() }}, nil
}

func withMigrationLock(db *gorm.DB, fn func(*gorm.DB) error) error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("get sql db: %w", err)
	}
	conn, err := sqlDB.Conn(ctx)
	if err != nil {
		return fmt.Errorf("open sql conn: %w", err)
	}
	defer conn.Close()
	if err := execAdvisory(ctx, conn, "SELECT pg_advisory_lock($1)", migrateLockID); err != nil {
		return fmt.Errorf("acquire migrate lock: %w", err)
	}
	defer func() {
		_ = execAdvisory(ctx, conn, "SELECT pg_advisory_unlock($1)", migrateLockID)
	}()
	return fn(db)
}

func execAdvisory(ctx context.Context, conn *sql.Conn, query string, lockID int64) error {
	_, err := conn.ExecContext(ctx, query, lockID)
	return err
}

// CreateDocument inserts a finished document. CreatedAt is assigned here so
// every stored record carries a server-side timestamp.
func (s *GormStore) CreateDocument(doc domain.Document) (domain.Document, error) {
	doc.CreatedAt = s.now()
	model, err := documentToModel(doc)
	if err != nil {
		return domain.Document{}, err
	}
	if err := s.db.Create(&model).Error; err != nil {
		return domain.Document{}, err
	}
	return doc, nil
}

// GetDocument retrieves a document by ID.
func (s *GormStore) GetDocument(id string) (domain.Document, bool, error) {
	var model DocumentModel
	if err := s.db.First(&model, "id = ?", id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return domain.Document{}, false, nil
		}
		return domain.Document{}, false, err
	}
	doc, err := documentFromModel(model)
	if err != nil {
		return domain.Document{}, false, err
	}
	return doc, true, nil
}

// ListDocumentsByOwner returns an owner's documents, newest first.
func (s *GormStore) ListDocumentsByOwner(ownerID string) ([]domain.Document, error) {
	var models []DocumentModel
	if err := s.db.Where("owner_id = ?", ownerID).
		Order("created_at DESC").
		Find(&models).Error; err != nil {
		return nil, err
	}
	docs := make([]domain.Document, 0, len(models))
	for _, m := range models {
		doc, err := documentFromModel(m)
		if err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}
	return docs, nil
}

// DeleteDocument removes a document record.
func (s *GormStore) DeleteDocument(id string) error {
	return s.db.Delete(&DocumentModel{}, "id = ?", id).Error
}

// CreateArticle inserts a finished newspaper article.
func (s *GormStore) CreateArticle(article domain.Article) (domain.Article, error) {
	article.CreatedAt = s.now()
	model := articleToModel(article)
	if err := s.db.Create(&model).Error; err != nil {
		return domain.Article{}, err
	}
	return article, nil
}

// CreateInterview inserts an interview transcript.
func (s *GormStore) CreateInterview(interview domain.Interview) (domain.Interview, error) {
	interview.CreatedAt = s.now()
	model, err := interviewToModel(interview)
	if err != nil {
		return domain.Interview{}, err
	}
	if err := s.db.Create(&model).Error; err != nil {
		return domain.Interview{}, err
	}
	return interview, nil
}

// CreateLead inserts a contact request.
func (s *GormStore) CreateLead(lead domain.Lead) (domain.Lead, error) {
	lead.CreatedAt = s.now()
	model := leadToModel(lead)
	if err := s.db.Create(&model).Error; err != nil {
		return domain.Lead{}, err
	}
	return lead, nil
}

func documentToModel(doc domain.Document) (DocumentModel, error) {
	pages, err := json.Marshal(doc.Pages)
	if err != nil {
		return DocumentModel{}, fmt.Errorf("marshal pages: %w", err)
	}
	answers, err := json.Marshal(doc.RawAnswers)
	if err != nil {
		return DocumentModel{}, fmt.Errorf("marshal answers: %w", err)
	}
	return DocumentModel{
		ID:           doc.ID,
		OwnerID:      doc.OwnerID,
		Kind:         string(doc.Kind),
		Title:        doc.Title,
		Author:       doc.Author,
		AuthorIntro:  doc.AuthorIntro,
		FinalMessage: doc.FinalMessage,
		Keywords:     doc.Keywords,
		Pages:        pages,
		RawAnswers:   answers,
		CreatedAt:    doc.CreatedAt,
	}, nil
}

func documentFromModel(m DocumentModel) (domain.Document, error) {
	var pages []domain.ScenePage
	if len(m.Pages) > 0 {
		if err := json.Unmarshal(m.Pages, &pages); err != nil {
			return domain.Document{}, fmt.Errorf("unmarshal pages: %w", err)
		}
	}
	var answers domain.AnswerSet
	if len(m.RawAnswers) > 0 {
		if err := json.Unmarshal(m.RawAnswers, &answers); err != nil {
			return domain.Document{}, fmt.Errorf("unmarshal answers: %w", err)
		}
	}
	return domain.Document{
		ID:           m.ID,
		OwnerID:      m.OwnerID,
		Kind:         domain.DocumentKind(m.Kind),
		Title:        m.Title,
		Author:       m.Author,
		AuthorIntro:  m.AuthorIntro,
		FinalMessage: m.FinalMessage,
		Keywords:     m.Keywords,
		Pages:        pages,
		RawAnswers:   answers,
		CreatedAt:    m.CreatedAt,
	}, nil
}

func articleToModel(a domain.Article) ArticleModel {
	return ArticleModel{
		ID:          a.ID,
		OwnerID:     a.OwnerID,
		Headline:    a.Headline,
		Body:        a.Body,
		ImageURL:    a.ImageURL,
		Style:       a.Style,
		RawSummary:  a.RawSummary,
		ImagePrompt: a.ImagePrompt,
		CreatedAt:   a.CreatedAt,
	}
}

func interviewToModel(iv domain.Interview) (InterviewModel, error) {
	userInfo, err := json.Marshal(iv.UserInfo)
	if err != nil {
		return InterviewModel{}, fmt.Errorf("marshal user info: %w", err)
	}
	conversation, err := json.Marshal(iv.Conversation)
	if err != nil {
		return InterviewModel{}, fmt.Errorf("marshal conversation: %w", err)
	}
	return InterviewModel{
		ID:           iv.ID,
		UserID:       iv.UserID,
		Kind:         iv.Kind,
		UserInfo:     userInfo,
		Conversation: conversation,
		Summary:      iv.Summary,
		CreatedAt:    iv.CreatedAt,
	}, nil
}

func leadToModel(l domain.Lead) LeadModel {
	return LeadModel{
		ID:        l.ID,
		Name:      l.Name,
		Phone:     l.Phone,
		Email:     l.Email,
		CreatedAt: l.CreatedAt,
	}
}
