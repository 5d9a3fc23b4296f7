package domain

import (
	"strings"
	"time"
)

// DocumentKind identifies which generation flow produced a document.
type DocumentKind string

const (
	KindMemoir  DocumentKind = "memoir"
	KindToddler DocumentKind = "toddler"
	KindMyth    DocumentKind = "myth"
)

// AnswerSet maps a question key to the caller's free-text answer.
// It is immutable once received; prompt assembly order comes from
// per-domain ordered key lists, not from map iteration.
type AnswerSet map[string]string

// Get returns the trimmed answer for key, or "" when absent.
func (a AnswerSet) Get(key string) string {
	if a == nil {
		return ""
	}
	return strings.TrimSpace(a[key])
}

// First returns the first non-empty answer among keys.
func (a AnswerSet) First(keys ...string) string {
	for _, key := range keys {
		if v := a.Get(key); v != "" {
			return v
		}
	}
	return ""
}

// ScenePage is one unit of a generated document: a narrative scene and
// its illustration. ImageURL is empty only for intentionally blank pages.
type ScenePage struct {
	Index    int    `json:"index"`
	Text     string `json:"text"`
	ImageURL string `json:"imageUrl"`
}

// Document is the persisted artifact of one successful pipeline run.
// Created exactly once; never mutated afterwards.
type Document struct {
	ID           string       `json:"id"`
	OwnerID      string       `json:"ownerId"`
	Kind         DocumentKind `json:"kind"`
	Title        string       `json:"title"`
	Author       string       `json:"author,omitempty"`
	AuthorIntro  string       `json:"authorIntro,omitempty"`
	FinalMessage string       `json:"finalMessage,omitempty"`
	Keywords     string       `json:"keywords,omitempty"`
	Pages        []ScenePage  `json:"pages"`
	RawAnswers   AnswerSet    `json:"rawQnA"`
	CreatedAt    time.Time    `json:"createdAt"`
}

// Article is the persisted newspaper-article artifact (single image).
type Article struct {
	ID          string    `json:"id"`
	OwnerID     string    `json:"ownerId"`
	Headline    string    `json:"headline"`
	Body        string    `json:"body"`
	ImageURL    string    `json:"imageUrl"`
	Style       string    `json:"style"`
	RawSummary  string    `json:"rawSummary"`
	ImagePrompt string    `json:"imagePrompt"`
	CreatedAt   time.Time `json:"createdAt"`
}

// QA is one question/answer turn of an interview transcript.
type QA struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

// Interview is a stored interview transcript. UserID may be empty for
// anonymous submissions.
type Interview struct {
	ID           string            `json:"id"`
	UserID       string            `json:"userId,omitempty"`
	Kind         string            `json:"kind"`
	UserInfo     map[string]string `json:"userInfo"`
	Conversation []QA              `json:"conversation"`
	Summary      string            `json:"summary,omitempty"`
	CreatedAt    time.Time         `json:"createdAt"`
}

// Lead is a stored contact request.
type Lead struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Phone     string    `json:"phone"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"createdAt"`
}
