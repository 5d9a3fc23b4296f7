package store

import "lifebook/pkg/domain"

// Store defines persistence operations for generated documents, articles,
// interviews, and leads. Creation timestamps are assigned by the store, not
// the caller; Create methods return the record as persisted.
type Store interface {
	// documents
	CreateDocument(doc domain.Document) (domain.Document, error)
	GetDocument(id string) (domain.Document, bool, error)
	ListDocumentsByOwner(ownerID string) ([]domain.Document, error)
	DeleteDocument(id string) error

	// articles
	CreateArticle(article domain.Article) (domain.Article, error)

	// interviews
	CreateInterview(interview domain.Interview) (domain.Interview, error)

	// leads
	CreateLead(lead domain.Lead) (domain.Lead, error)
}
