package server

import (
	"net/http"

	"lifebook/pkg/domain"
)

// Handlers for the single-call text endpoints. All are POST-only and wrapped
// by the per-IP generation limiter in routes().

type qnaRequest struct {
	QnAData domain.AnswerSet `json:"qnaData"`
}

// handleMemoirStory requires an authenticated caller; the other draft
// endpoints are open.
func (s *Server) handleMemoirStory(w http.ResponseWriter, r *http.Request, _ string) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	var req qnaRequest
	if !decodeBody(w, r, &req) {
		return
	}
	story, summary, err := s.app.GenerateMemoirStory(r.Context(), req.QnAData)
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"story":   story,
		"summary": summary,
	})
}

func (s *Server) handleToddlerStory(w http.ResponseWriter, r *http.Request) {
	var req qnaRequest
	if !decodeBody(w, r, &req) {
		return
	}
	story, err := s.app.GenerateToddlerStory(r.Context(), req.QnAData)
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"story": story})
}

func (s *Server) handleMythStory(w http.ResponseWriter, r *http.Request) {
	var req qnaRequest
	if !decodeBody(w, r, &req) {
		return
	}
	story, err := s.app.GenerateMythStory(r.Context(), req.QnAData)
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"story": story})
}

type storyRequest struct {
	FullStory string `json:"fullStory"`
}

func (s *Server) handleBookTitle(w http.ResponseWriter, r *http.Request) {
	var req storyRequest
	if !decodeBody(w, r, &req) {
		return
	}
	title, err := s.app.GenerateBookTitle(r.Context(), req.FullStory)
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"title": title})
}

func (s *Server) handleMythTitles(w http.ResponseWriter, r *http.Request) {
	var req storyRequest
	if !decodeBody(w, r, &req) {
		return
	}
	titles, err := s.app.GenerateMythTitles(r.Context(), req.FullStory)
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"titles": titles})
}

type keywordsRequest struct {
	Keywords string `json:"keywords"`
}

func (s *Server) handleAuthorIntro(w http.ResponseWriter, r *http.Request) {
	var req keywordsRequest
	if !decodeBody(w, r, &req) {
		return
	}
	intro, err := s.app.GenerateAuthorIntro(r.Context(), req.Keywords)
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"intro": intro})
}

type empathyRequest struct {
	UserAnswer string `json:"userAnswer"`
}

func (s *Server) handleEmpathy(w http.ResponseWriter, r *http.Request) {
	var req empathyRequest
	if !decodeBody(w, r, &req) {
		return
	}
	reply, err := s.app.GenerateEmpathy(r.Context(), req.UserAnswer)
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"response": reply})
}

type bridgingRequest struct {
	PreviousQuestion string `json:"previousQuestion"`
	UserAnswer       string `json:"userAnswer"`
	NextQuestion     string `json:"nextQuestion"`
}

func (s *Server) handleInterviewRespond(w http.ResponseWriter, r *http.Request) {
	var req bridgingRequest
	if !decodeBody(w, r, &req) {
		return
	}
	reply, err := s.app.GenerateInterviewResponse(r.Context(), req.PreviousQuestion, req.UserAnswer, req.NextQuestion)
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"response": reply})
}

func (s *Server) handleMythRespond(w http.ResponseWriter, r *http.Request) {
	var req bridgingRequest
	if !decodeBody(w, r, &req) {
		return
	}
	reply, err := s.app.GenerateMythResponse(r.Context(), req.PreviousQuestion, req.UserAnswer, req.NextQuestion)
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"response": reply})
}

func (s *Server) handleSmartFarmRespond(w http.ResponseWriter, r *http.Request) {
	var req bridgingRequest
	if !decodeBody(w, r, &req) {
		return
	}
	reply, err := s.app.GenerateSmartFarmResponse(r.Context(), req.PreviousQuestion, req.UserAnswer, req.NextQuestion)
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"response": reply})
}

func (s *Server) handleInterviewSummary(w http.ResponseWriter, r *http.Request) {
	var req interviewRequest
	if !decodeBody(w, r, &req) {
		return
	}
	summary, err := s.app.SummarizeInterview(r.Context(), req.UserInfo, req.Conversation)
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"summary": summary})
}

type headlinesRequest struct {
	Summary      string            `json:"summary"`
	UserInfo     map[string]string `json:"userInfo"`
	FutureVision string            `json:"futureVision"`
}

func (s *Server) handleHeadlines(w http.ResponseWriter, r *http.Request) {
	var req headlinesRequest
	if !decodeBody(w, r, &req) {
		return
	}
	headlines, err := s.app.GenerateHeadlines(r.Context(), req.Summary, req.UserInfo, req.FutureVision)
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"headlines": headlines})
}
