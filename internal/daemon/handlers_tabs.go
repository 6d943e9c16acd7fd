package daemon

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/NgTruc2025/python-ntt/internal/domain"
	"github.com/NgTruc2025/python-ntt/internal/generation"
	"github.com/NgTruc2025/python-ntt/internal/tab"
)

// tabFor resolves the {id} path value. It writes the error response and
// returns false when the tab is unknown.
func (s *Server) tabFor(w http.ResponseWriter, r *http.Request) (*tab.Tab, bool) {
	t, err := s.tabs.Get(r.PathValue("id"))
	if err != nil {
		s.fail(w, r, "tab not found", err)
		return nil, false
	}
	return t, true
}

func (s *Server) handleCreateTab(w http.ResponseWriter, r *http.Request) {
	t, err := s.tabs.Create()
	if err != nil {
		s.fail(w, r, "failed to open tab", err)
		return
	}
	s.jsonResponse(w, http.StatusCreated, t.Info())
}

func (s *Server) handleListTabs(w http.ResponseWriter, r *http.Request) {
	s.jsonResponse(w, http.StatusOK, map[string]any{"tabs": s.tabs.List()})
}

func (s *Server) handleCloseTab(w http.ResponseWriter, r *http.Request) {
	if err := s.tabs.Close(r.PathValue("id")); err != nil {
		s.fail(w, r, "tab not found", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Function lookup & library explorer

type selectRequest struct {
	Name string `json:"name"`
}

func (s *Server) handleFunctions(w http.ResponseWriter, r *http.Request) {
	t, ok := s.tabFor(w, r)
	if !ok {
		return
	}
	if q := r.URL.Query(); q.Has("q") {
		t.Functions.Search(q.Get("q"))
	}
	s.jsonResponse(w, http.StatusOK, t.Functions.Snapshot())
}

func (s *Server) handleSelectFunction(w http.ResponseWriter, r *http.Request) {
	t, ok := s.tabFor(w, r)
	if !ok {
		return
	}
	var req selectRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.jsonError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}
	if _, err := t.Functions.Select(req.Name); err != nil {
		s.fail(w, r, "function not found", err)
		return
	}
	s.jsonResponse(w, http.StatusOK, t.Functions.Snapshot())
}

func (s *Server) handleLibraries(w http.ResponseWriter, r *http.Request) {
	t, ok := s.tabFor(w, r)
	if !ok {
		return
	}
	if q := r.URL.Query(); q.Has("q") {
		t.Libraries.Search(q.Get("q"))
	}
	s.jsonResponse(w, http.StatusOK, t.Libraries.Snapshot())
}

func (s *Server) handleSelectLibrary(w http.ResponseWriter, r *http.Request) {
	t, ok := s.tabFor(w, r)
	if !ok {
		return
	}
	var req selectRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.jsonError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}
	if _, err := t.Libraries.Select(req.Name); err != nil {
		s.fail(w, r, "library not found", err)
		return
	}
	s.jsonResponse(w, http.StatusOK, t.Libraries.Snapshot())
}

// Knowledge base

func (s *Server) handleKnowledge(w http.ResponseWriter, r *http.Request) {
	t, ok := s.tabFor(w, r)
	if !ok {
		return
	}
	s.jsonResponse(w, http.StatusOK, t.Knowledge.Snapshot())
}

type selectTopicRequest struct {
	TopicID string `json:"topic_id"`
}

func (s *Server) handleSelectTopic(w http.ResponseWriter, r *http.Request) {
	t, ok := s.tabFor(w, r)
	if !ok {
		return
	}
	var req selectTopicRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.jsonError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}
	if _, err := t.Knowledge.SelectTopic(req.TopicID); err != nil {
		s.fail(w, r, "topic not found", err)
		return
	}
	s.jsonResponse(w, http.StatusOK, t.Knowledge.Snapshot())
}

func (s *Server) handleGenerateQuiz(w http.ResponseWriter, r *http.Request) {
	t, ok := s.tabFor(w, r)
	if !ok {
		return
	}
	if _, err := t.Knowledge.GenerateQuiz(r.Context()); err != nil {
		s.fail(w, r, "failed to generate quiz", err)
		return
	}
	s.jsonResponse(w, http.StatusOK, t.Knowledge.Snapshot())
}

type answerRequest struct {
	Index *int `json:"index"`
}

func (s *Server) handleAnswerQuiz(w http.ResponseWriter, r *http.Request) {
	t, ok := s.tabFor(w, r)
	if !ok {
		return
	}
	var req answerRequest
	if err := decodeJSON(w, r, &req); err != nil || req.Index == nil {
		s.jsonError(w, http.StatusBadRequest, "index is required", err)
		return
	}
	outcome, err := t.Knowledge.Answer(*req.Index)
	if err != nil {
		s.fail(w, r, "failed to answer quiz", err)
		return
	}
	s.jsonResponse(w, http.StatusOK, outcome)
}

func (s *Server) handlePracticeTopic(w http.ResponseWriter, r *http.Request) {
	t, ok := s.tabFor(w, r)
	if !ok {
		return
	}
	nav, err := t.Knowledge.PracticeTopic(r.Context())
	if err != nil {
		s.fail(w, r, "failed to generate exercise", err)
		return
	}
	s.jsonResponse(w, http.StatusOK, nav)
}

// Practice arena

func (s *Server) handleMountPractice(w http.ResponseWriter, r *http.Request) {
	t, ok := s.tabFor(w, r)
	if !ok {
		return
	}
	ex, err := t.Practice.Mount(r.Context())
	if err != nil {
		s.fail(w, r, "failed to mount practice arena", err)
		return
	}
	s.jsonResponse(w, http.StatusOK, map[string]any{
		"handed_off": ex,
		"practice":   t.Practice.Snapshot(),
	})
}

func (s *Server) handlePractice(w http.ResponseWriter, r *http.Request) {
	t, ok := s.tabFor(w, r)
	if !ok {
		return
	}
	s.jsonResponse(w, http.StatusOK, t.Practice.Snapshot())
}

func (s *Server) handlePracticeTopics(w http.ResponseWriter, r *http.Request) {
	t, ok := s.tabFor(w, r)
	if !ok {
		return
	}
	s.jsonResponse(w, http.StatusOK, map[string]any{"topics": t.Practice.TopicChoices()})
}

type selectExerciseRequest struct {
	ID string `json:"id"`
}

func (s *Server) handleSelectExercise(w http.ResponseWriter, r *http.Request) {
	t, ok := s.tabFor(w, r)
	if !ok {
		return
	}
	var req selectExerciseRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.jsonError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}
	if _, err := t.Practice.Select(req.ID); err != nil {
		s.fail(w, r, "exercise not found", err)
		return
	}
	s.jsonResponse(w, http.StatusOK, t.Practice.Snapshot())
}

type codeRequest struct {
	Code string `json:"code"`
}

func (s *Server) handleSetCode(w http.ResponseWriter, r *http.Request) {
	t, ok := s.tabFor(w, r)
	if !ok {
		return
	}
	var req codeRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.jsonError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}
	t.Practice.SetCode(req.Code)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleResetCode(w http.ResponseWriter, r *http.Request) {
	t, ok := s.tabFor(w, r)
	if !ok {
		return
	}
	s.jsonResponse(w, http.StatusOK, codeRequest{Code: t.Practice.ResetCode()})
}

func (s *Server) handleToggleHint(w http.ResponseWriter, r *http.Request) {
	t, ok := s.tabFor(w, r)
	if !ok {
		return
	}
	s.jsonResponse(w, http.StatusOK, map[string]bool{"show_hint": t.Practice.ToggleHint()})
}

func (s *Server) handleCheckCode(w http.ResponseWriter, r *http.Request) {
	t, ok := s.tabFor(w, r)
	if !ok {
		return
	}
	result, err := t.Practice.Check(r.Context())
	if err != nil {
		s.fail(w, r, "failed to check code", err)
		return
	}
	s.jsonResponse(w, http.StatusOK, result)
}

type generateRequest struct {
	Topic string `json:"topic"`
}

func (s *Server) handleGenerateExercise(w http.ResponseWriter, r *http.Request) {
	t, ok := s.tabFor(w, r)
	if !ok {
		return
	}
	var req generateRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.jsonError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}
	ex, err := t.Practice.Generate(r.Context(), req.Topic)
	if err != nil {
		s.fail(w, r, "failed to generate exercise", err)
		return
	}
	s.jsonResponse(w, http.StatusCreated, ex)
}

// Tutor chat. Every tutor route needs a registered learner; the session is
// opened with the learner's name.

func (s *Server) learner(w http.ResponseWriter, r *http.Request) (*domain.Learner, bool) {
	l, err := s.profiles.Current(r.Context())
	if err != nil {
		s.fail(w, r, "tutor requires a registered learner", err)
		return nil, false
	}
	return l, true
}

func (s *Server) handleOpenTutor(w http.ResponseWriter, r *http.Request) {
	t, ok := s.tabFor(w, r)
	if !ok {
		return
	}
	l, ok := s.learner(w, r)
	if !ok {
		return
	}
	sess := t.Tutor(l.Name)
	s.jsonResponse(w, http.StatusOK, map[string]any{
		"greeting": sess.Greeting(),
		"history":  sess.History(),
	})
}

func (s *Server) handleGetTutor(w http.ResponseWriter, r *http.Request) {
	t, ok := s.tabFor(w, r)
	if !ok {
		return
	}
	if _, ok := s.learner(w, r); !ok {
		return
	}
	sess, open := t.OpenTutorSession()
	if !open {
		s.jsonError(w, http.StatusNotFound, "tutor not open", nil)
		return
	}
	s.jsonResponse(w, http.StatusOK, map[string]any{
		"greeting": sess.Greeting(),
		"history":  sess.History(),
	})
}

type tutorMessageRequest struct {
	Message string `json:"message"`
}

func (s *Server) handleTutorMessage(w http.ResponseWriter, r *http.Request) {
	t, ok := s.tabFor(w, r)
	if !ok {
		return
	}
	l, ok := s.learner(w, r)
	if !ok {
		return
	}
	var req tutorMessageRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.jsonError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}
	sess := t.Tutor(l.Name)
	if wantsStream(r) {
		s.streamTutorReply(w, r, sess, req.Message)
		return
	}
	reply, err := sess.Send(r.Context(), req.Message)
	if err != nil {
		s.fail(w, r, "tutor failed to reply", err)
		return
	}
	s.jsonResponse(w, http.StatusOK, map[string]any{
		"reply":   reply,
		"history": sess.History(),
	})
}

func wantsStream(r *http.Request) bool {
	return r.URL.Query().Get("stream") == "true" ||
		strings.Contains(r.Header.Get("Accept"), "text/event-stream")
}

// streamTutorReply sends the reply as server-sent events: one content event
// per chunk, then done with the full reply and history. Errors raised before
// the first chunk get a plain JSON error response.
func (s *Server) streamTutorReply(w http.ResponseWriter, r *http.Request, sess *generation.TutorSession, message string) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		s.jsonError(w, http.StatusInternalServerError, "streaming not supported", nil)
		return
	}

	started := false
	begin := func() {
		if started {
			return
		}
		w.Header().Set("Content-Type", "text/event-stream")
		w.Header().Set("Cache-Control", "no-cache")
		w.Header().Set("Connection", "keep-alive")
		w.WriteHeader(http.StatusOK)
		started = true
	}
	send := func(event string, payload any) {
		data, _ := json.Marshal(payload)
		fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event, data)
		flusher.Flush()
	}

	reply, err := sess.SendStream(r.Context(), message, func(chunk string) {
		begin()
		send("content", map[string]string{"text": chunk})
	})
	if err != nil {
		if !started {
			s.fail(w, r, "tutor failed to reply", err)
			return
		}
		slog.Warn("tutor stream failed",
			"correlation_id", GetCorrelationID(r.Context()),
			"error", err,
		)
		send("error", map[string]string{"error": err.Error()})
		return
	}
	begin()
	send("done", map[string]any{
		"reply":   reply,
		"history": sess.History(),
	})
}

func (s *Server) handleCloseTutor(w http.ResponseWriter, r *http.Request) {
	t, ok := s.tabFor(w, r)
	if !ok {
		return
	}
	t.CloseTutor()
	w.WriteHeader(http.StatusNoContent)
}
