package server

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strings"

	intervisageErrors "intervisage/internal/errors"
	"intervisage/internal/interview"
	"intervisage/internal/observability"

	"go.opentelemetry.io/otel/attribute"
)

// writeJSONResponse encodes v as the response body with the given status
func writeJSONResponse(w http.ResponseWriter, v any, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("Failed to encode response: %v", err)
	}
}

// writeSessionError maps a session operation error to an HTTP response
func writeSessionError(w http.ResponseWriter, err error) {
	var appErr *intervisageErrors.AppError
	if !errors.As(err, &appErr) {
		writeErrorResponse(w, "Internal error", err.Error(), http.StatusInternalServerError)
		return
	}

	status := http.StatusInternalServerError
	switch appErr.Code {
	case intervisageErrors.ErrCodeSessionNotFound:
		status = http.StatusNotFound
	case intervisageErrors.ErrCodeStageConflict, intervisageErrors.ErrCodeStaleResult:
		status = http.StatusConflict
	case intervisageErrors.ErrCodeSessionLimit:
		status = http.StatusTooManyRequests
	case intervisageErrors.ErrCodeAIServiceFailed, intervisageErrors.ErrCodeAIResponseInvalid, intervisageErrors.ErrCodeAITimeout:
		status = http.StatusBadGateway
	default:
		if appErr.Type == intervisageErrors.ErrorTypeValidation {
			status = http.StatusBadRequest
		}
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	response := ErrorResponse{
		Error: appErr.Message,
		Code:  appErr.Code,
	}
	if appErr.Cause != nil {
		response.Message = appErr.Cause.Error()
	}
	if err := json.NewEncoder(w).Encode(response); err != nil {
		log.Printf("Failed to encode error response: %v", err)
	}
}

// sessionFromRequest resolves the {id} path value to a live session
func (s *Server) sessionFromRequest(w http.ResponseWriter, r *http.Request) (*interview.Session, bool) {
	session, err := s.Sessions.Get(r.PathValue("id"))
	if err != nil {
		writeSessionError(w, err)
		return nil, false
	}
	return session, true
}

// createSessionHandler creates a fresh interview session
func (s *Server) createSessionHandler(om *observability.ObservabilityManager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		tracer := om.Tracer("intervisage.api")
		ctx, span := tracer.Start(ctx, "api.session.create")
		defer span.End()

		session, err := s.Sessions.Create()
		if err != nil {
			span.RecordError(err)
			om.GetMetrics().RecordBusinessMetric(ctx, "session_started", false, om)
			writeSessionError(w, err)
			return
		}

		om.GetMetrics().RecordBusinessMetric(ctx, "session_started", true, om)
		span.SetAttributes(attribute.String("session.id", session.ID()))

		writeJSONResponse(w, session.Snapshot(), http.StatusCreated)
	}
}

// getSessionHandler returns the current session snapshot
func (s *Server) getSessionHandler(w http.ResponseWriter, r *http.Request) {
	session, ok := s.sessionFromRequest(w, r)
	if !ok {
		return
	}
	writeJSONResponse(w, session.Snapshot(), http.StatusOK)
}

// deleteSessionHandler removes a session
func (s *Server) deleteSessionHandler(w http.ResponseWriter, r *http.Request) {
	if _, err := s.Sessions.Get(r.PathValue("id")); err != nil {
		writeSessionError(w, err)
		return
	}
	s.Sessions.Delete(r.PathValue("id"))
	w.WriteHeader(http.StatusNoContent)
}

// createUploadResumeHandler handles resume submission and parsing
func (s *Server) createUploadResumeHandler(om *observability.ObservabilityManager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		tracer := om.Tracer("intervisage.api")
		ctx, span := tracer.Start(ctx, "api.session.resume")
		defer span.End()

		session, ok := s.sessionFromRequest(w, r)
		if !ok {
			return
		}

		var req UploadResumeRequest
		if err := parseJSONRequest(r, &req); err != nil {
			span.RecordError(err)
			span.SetAttributes(attribute.String("error.type", "validation"))
			writeErrorResponse(w, "Invalid request body", err.Error(), http.StatusBadRequest)
			return
		}

		if strings.TrimSpace(req.ResumeDataURI) == "" {
			span.SetAttributes(attribute.String("error.type", "validation"))
			writeErrorResponse(w, "Missing resume data", "resumeDataUri field is required", http.StatusBadRequest)
			return
		}

		span.SetAttributes(
			attribute.String("session.id", session.ID()),
			attribute.Int("request.resume_length", len(req.ResumeDataURI)),
		)

		profile, err := session.UploadResume(ctx, req.ResumeDataURI)
		if err != nil {
			span.RecordError(err)
			writeSessionError(w, err)
			return
		}

		span.SetAttributes(
			attribute.Bool("success", true),
			attribute.Int("profile.skills", len(profile.Skills)),
		)

		writeJSONResponse(w, session.Snapshot(), http.StatusOK)
	}
}

// createGenerateQuestionsHandler handles question generation for a parsed resume
func (s *Server) createGenerateQuestionsHandler(om *observability.ObservabilityManager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		tracer := om.Tracer("intervisage.api")
		ctx, span := tracer.Start(ctx, "api.session.questions")
		defer span.End()

		session, ok := s.sessionFromRequest(w, r)
		if !ok {
			return
		}

		var req GenerateQuestionsRequest
		if err := parseJSONRequest(r, &req); err != nil {
			span.RecordError(err)
			span.SetAttributes(attribute.String("error.type", "validation"))
			writeErrorResponse(w, "Invalid request body", err.Error(), http.StatusBadRequest)
			return
		}

		span.SetAttributes(
			attribute.String("session.id", session.ID()),
			attribute.Int("request.num_questions", req.NumQuestions),
		)

		metrics := om.GetMetrics()
		questions, err := session.GenerateQuestions(ctx, req.NumQuestions)
		if err != nil {
			span.RecordError(err)
			metrics.RecordBusinessMetric(ctx, "questions_generated", false, om)
			writeSessionError(w, err)
			return
		}

		metrics.RecordBusinessMetric(ctx, "questions_generated", true, om,
			attribute.Int("questions.count", len(questions)))
		span.SetAttributes(
			attribute.Bool("success", true),
			attribute.Int("questions.count", len(questions)),
		)

		writeJSONResponse(w, session.Snapshot(), http.StatusOK)
	}
}

// startInterviewHandler begins the interview once questions are ready
func (s *Server) startInterviewHandler(w http.ResponseWriter, r *http.Request) {
	session, ok := s.sessionFromRequest(w, r)
	if !ok {
		return
	}

	question, err := session.Start()
	if err != nil {
		writeSessionError(w, err)
		return
	}

	writeJSONResponse(w, AdvanceResponse{
		Stage:           session.Stage(),
		CurrentQuestion: &question,
	}, http.StatusOK)
}

// createSubmitAnswerHandler handles a recorded answer: transcription,
// evaluation and video analysis run as one pipeline.
func (s *Server) createSubmitAnswerHandler(om *observability.ObservabilityManager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		tracer := om.Tracer("intervisage.api")
		ctx, span := tracer.Start(ctx, "api.session.answer")
		defer span.End()

		session, ok := s.sessionFromRequest(w, r)
		if !ok {
			return
		}

		var req SubmitAnswerRequest
		if err := parseJSONRequest(r, &req); err != nil {
			span.RecordError(err)
			span.SetAttributes(attribute.String("error.type", "validation"))
			writeErrorResponse(w, "Invalid request body", err.Error(), http.StatusBadRequest)
			return
		}

		if strings.TrimSpace(req.MediaDataURI) == "" {
			span.SetAttributes(attribute.String("error.type", "validation"))
			writeErrorResponse(w, "Missing answer media", "mediaDataUri field is required", http.StatusBadRequest)
			return
		}

		span.SetAttributes(
			attribute.String("session.id", session.ID()),
			attribute.Int("request.media_length", len(req.MediaDataURI)),
			attribute.Int("request.facial_frames", len(req.FacialLog)),
		)

		metrics := om.GetMetrics()
		record, err := session.SubmitAnswer(ctx, req.MediaDataURI, req.FacialLog)
		if err != nil {
			span.RecordError(err)
			metrics.RecordBusinessMetric(ctx, "answer_processed", false, om)
			writeSessionError(w, err)
			return
		}

		metrics.RecordBusinessMetric(ctx, "answer_processed", true, om,
			attribute.Bool("evaluation.present", record.Evaluation != nil),
			attribute.Bool("analysis.present", record.VideoAnalysis != nil))
		span.SetAttributes(attribute.Bool("success", true))

		writeJSONResponse(w, AnswerResponse{
			Stage:  session.Stage(),
			Record: record,
		}, http.StatusOK)
	}
}

// createNextQuestionHandler advances to the next question or completes the interview
func (s *Server) createNextQuestionHandler(om *observability.ObservabilityManager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		session, ok := s.sessionFromRequest(w, r)
		if !ok {
			return
		}

		stage, err := session.NextQuestion()
		if err != nil {
			writeSessionError(w, err)
			return
		}

		if stage == interview.StageInterviewComplete {
			om.GetMetrics().RecordBusinessMetric(r.Context(), "interview_completed", true, om,
				attribute.String("session.id", session.ID()))
		}

		snap := session.Snapshot()
		writeJSONResponse(w, AdvanceResponse{
			Stage:           stage,
			CurrentQuestion: snap.CurrentQuestion,
		}, http.StatusOK)
	}
}

// restartSessionHandler resets a session back to its initial state
func (s *Server) restartSessionHandler(w http.ResponseWriter, r *http.Request) {
	session, ok := s.sessionFromRequest(w, r)
	if !ok {
		return
	}

	session.Restart()
	writeJSONResponse(w, session.Snapshot(), http.StatusOK)
}

// summaryHandler returns the aggregate interview report
func (s *Server) summaryHandler(w http.ResponseWriter, r *http.Request) {
	session, ok := s.sessionFromRequest(w, r)
	if !ok {
		return
	}
	writeJSONResponse(w, session.Summary(), http.StatusOK)
}
