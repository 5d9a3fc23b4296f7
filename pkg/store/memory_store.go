package store

import (
	"sync"
	"time"

	"lifebook/pkg/domain"
)

// MemoryStore is an in-memory Store used by tests and local development.
type MemoryStore struct {
	mu         sync.RWMutex
	documents  map[string]domain.Document
	articles   map[string]domain.Article
	interviews map[string]domain.Interview
	leads      map[string]domain.Lead
	now        func() time.Time
}

// NewMemoryStore builds an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		documents:  make(map[string]domain.Document),
		articles:   make(map[string]domain.Article),
		interviews: make(map[string]domain.Interview),
		leads:      make(map[string]domain.Lead),
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// SetNow overrides the clock. Tests only.
func (s *MemoryStore) SetNow(now func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
}

func (s *MemoryStore) CreateDocument(doc domain.Document) (domain.Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc.CreatedAt = s.now()
	s.documents[doc.ID] = doc
	return doc, nil
}

func (s *MemoryStore) GetDocument(id string) (domain.Document, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	doc, ok := s.documents[id]
	return doc, ok, nil
}

func (s *MemoryStore) ListDocumentsByOwner(ownerID string) ([]domain.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	docs := make([]domain.Document, 0)
	for _, doc := range s.documents {
		if doc.OwnerID == ownerID {
			docs = append(docs, doc)
		}
	}
	// newest first, matching the SQL implementation
	for i := 0; i < len(docs); i++ {
		for j := i + 1; j < len(docs); j++ {
			if docs[j].CreatedAt.After(docs[i].CreatedAt) {
				docs[i], docs[j] = docs[j], docs[i]
			}
		}
	}
	return docs, nil
}

func (s *MemoryStore) DeleteDocument(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.documents, id)
	return nil
}

func (s *MemoryStore) CreateArticle(article domain.Article) (domain.Article, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	article.CreatedAt = s.now()
	s.articles[article.ID] = article
	return article, nil
}

func (s *MemoryStore) CreateInterview(interview domain.Interview) (domain.Interview, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	interview.CreatedAt = s.now()
	s.interviews[interview.ID] = interview
	return interview, nil
}

func (s *MemoryStore) CreateLead(lead domain.Lead) (domain.Lead, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	lead.CreatedAt = s.now()
	s.leads[lead.ID] = lead
	return lead, nil
}

// DocumentCount reports how many documents are stored. Tests only.
func (s *MemoryStore) DocumentCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.documents)
}
