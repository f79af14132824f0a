package server

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"intervisage/internal/config"
	"intervisage/internal/errors"
	"intervisage/internal/interview"
	"intervisage/internal/observability"
	"intervisage/internal/types"
)

// stubFlows is a scriptable interview.FlowClient for handler tests. The zero
// value succeeds on every flow.
type stubFlows struct {
	parseErr error
}

func (f *stubFlows) ParseResume(ctx context.Context, resumeDataURI string) (types.ResumeProfile, error) {
	if f.parseErr != nil {
		return types.ResumeProfile{}, f.parseErr
	}
	return types.ResumeProfile{
		Skills:         []string{"Go", "Kubernetes"},
		WorkExperience: []string{"Backend engineer at Acme"},
		Projects:       []string{"Internal tooling"},
	}, nil
}

func (f *stubFlows) GenerateQuestions(ctx context.Context, resumeData string, count int) ([]types.Question, error) {
	questions := make([]types.Question, count)
	for i := range questions {
		questions[i] = types.Question{
			Question:     fmt.Sprintf("Question %d?", i+1),
			GuidanceLink: "https://www.google.com/search?q=how+to+answer",
		}
	}
	return questions, nil
}

func (f *stubFlows) TranscribeAnswer(ctx context.Context, mediaDataURI string) (string, error) {
	return "transcribed answer", nil
}

func (f *stubFlows) EvaluateAnswer(ctx context.Context, question, answer, resumeData string) (types.Evaluation, error) {
	return types.Evaluation{Evaluation: "Solid answer", Score: 7}, nil
}

func (f *stubFlows) AnalyzeVideoPerformance(ctx context.Context, facialDataJSON string) (types.VideoAnalysis, error) {
	return types.VideoAnalysis{NervousnessAnalysis: "calm", ConfidenceScore: 8}, nil
}

func newTestServer(t *testing.T, apiKeys map[string]bool) (*Server, http.Handler) {
	t.Helper()

	logger := errors.NewLogger(slog.LevelError)
	manager := interview.NewManager(&stubFlows{}, interview.ManagerConfig{
		TTL:             time.Hour,
		CleanupInterval: time.Hour,
		MaxSessions:     10,
		MaxQuestions:    20,
	}, logger)
	t.Cleanup(manager.Stop)

	om, err := observability.NewObservabilityManager(observability.ObservabilityConfig{Enabled: false}, nil)
	if err != nil {
		t.Fatalf("Failed to create observability manager: %v", err)
	}

	s := &Server{
		Host:     "localhost",
		Port:     "8080",
		Version:  "test",
		APIKeys:  apiKeys,
		Sessions: manager,
		Logger:   logger,
	}
	return s, s.setupRoutes(om)
}

func doJSON(t *testing.T, handler http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("Failed to marshal request body: %v", err)
		}
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(rec.Body.Bytes(), &v); err != nil {
		t.Fatalf("Failed to decode response %q: %v", rec.Body.String(), err)
	}
	return v
}

func testResumeBody() UploadResumeRequest {
	return UploadResumeRequest{
		ResumeDataURI: "data:application/pdf;base64," + base64.StdEncoding.EncodeToString([]byte("resume")),
	}
}

func testAnswerBody() SubmitAnswerRequest {
	return SubmitAnswerRequest{
		MediaDataURI: "data:video/webm;base64," + base64.StdEncoding.EncodeToString([]byte("clip")),
		FacialLog: []*types.FacialSnapshot{
			{Timestamp: 0.5, Blendshapes: []types.Blendshape{{CategoryName: "jawOpen", Score: 0.1}}},
		},
	}
}

func TestSessionLifecycleOverHTTP(t *testing.T) {
	_, mux := newTestServer(t, nil)

	rec := doJSON(t, mux, http.MethodPost, "/sessions", nil)
	if rec.Code != http.StatusCreated {
		t.Fatalf("Create session status = %d, body %s", rec.Code, rec.Body.String())
	}
	snap := decodeBody[interview.Snapshot](t, rec)
	if snap.ID == "" {
		t.Fatal("Session ID should not be empty")
	}
	if snap.Stage != interview.StageInitial {
		t.Fatalf("New session stage = %s, want %s", snap.Stage, interview.StageInitial)
	}
	base := "/sessions/" + snap.ID

	rec = doJSON(t, mux, http.MethodPost, base+"/resume", testResumeBody())
	if rec.Code != http.StatusOK {
		t.Fatalf("Upload resume status = %d, body %s", rec.Code, rec.Body.String())
	}
	snap = decodeBody[interview.Snapshot](t, rec)
	if snap.Stage != interview.StageAwaitingNumQuestions {
		t.Fatalf("Stage after resume = %s", snap.Stage)
	}
	if snap.Profile == nil || len(snap.Profile.Skills) == 0 {
		t.Fatal("Expected parsed profile on snapshot")
	}

	rec = doJSON(t, mux, http.MethodPost, base+"/questions", GenerateQuestionsRequest{NumQuestions: 2})
	if rec.Code != http.StatusOK {
		t.Fatalf("Generate questions status = %d, body %s", rec.Code, rec.Body.String())
	}
	snap = decodeBody[interview.Snapshot](t, rec)
	if len(snap.Questions) != 2 {
		t.Fatalf("Expected 2 questions, got %d", len(snap.Questions))
	}

	rec = doJSON(t, mux, http.MethodPost, base+"/start", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("Start interview status = %d, body %s", rec.Code, rec.Body.String())
	}
	advance := decodeBody[AdvanceResponse](t, rec)
	if advance.Stage != interview.StageInterviewing {
		t.Fatalf("Stage after start = %s", advance.Stage)
	}
	if advance.CurrentQuestion == nil || advance.CurrentQuestion.Question == "" {
		t.Fatal("Expected first question in start response")
	}

	for i := 0; i < 2; i++ {
		rec = doJSON(t, mux, http.MethodPost, base+"/answer", testAnswerBody())
		if rec.Code != http.StatusOK {
			t.Fatalf("Submit answer %d status = %d, body %s", i+1, rec.Code, rec.Body.String())
		}
		answer := decodeBody[AnswerResponse](t, rec)
		if answer.Record.Evaluation == nil {
			t.Fatalf("Answer %d missing evaluation", i+1)
		}
		if answer.Record.VideoAnalysis == nil {
			t.Fatalf("Answer %d missing video analysis", i+1)
		}

		rec = doJSON(t, mux, http.MethodPost, base+"/next", nil)
		if rec.Code != http.StatusOK {
			t.Fatalf("Next question %d status = %d, body %s", i+1, rec.Code, rec.Body.String())
		}
		advance = decodeBody[AdvanceResponse](t, rec)
	}

	if advance.Stage != interview.StageInterviewComplete {
		t.Fatalf("Final stage = %s, want %s", advance.Stage, interview.StageInterviewComplete)
	}
	if advance.CurrentQuestion != nil {
		t.Fatalf("Completed interview should not report a current question, got %+v", advance.CurrentQuestion)
	}

	rec = doJSON(t, mux, http.MethodGet, base+"/summary", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("Summary status = %d, body %s", rec.Code, rec.Body.String())
	}

	rec = doJSON(t, mux, http.MethodDelete, base, nil)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("Delete status = %d", rec.Code)
	}
	rec = doJSON(t, mux, http.MethodGet, base, nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("Get after delete status = %d", rec.Code)
	}
}

func TestRestartOverHTTP(t *testing.T) {
	_, mux := newTestServer(t, nil)

	rec := doJSON(t, mux, http.MethodPost, "/sessions", nil)
	snap := decodeBody[interview.Snapshot](t, rec)
	base := "/sessions/" + snap.ID

	doJSON(t, mux, http.MethodPost, base+"/resume", testResumeBody())

	rec = doJSON(t, mux, http.MethodPost, base+"/restart", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("Restart status = %d", rec.Code)
	}
	snap = decodeBody[interview.Snapshot](t, rec)
	if snap.Stage != interview.StageInitial {
		t.Errorf("Stage after restart = %s, want %s", snap.Stage, interview.StageInitial)
	}
	if snap.Profile != nil {
		t.Error("Profile should be cleared after restart")
	}
}

func TestSessionStageConflictMapsTo409(t *testing.T) {
	_, mux := newTestServer(t, nil)

	rec := doJSON(t, mux, http.MethodPost, "/sessions", nil)
	snap := decodeBody[interview.Snapshot](t, rec)

	// Generating questions before a resume was uploaded is a stage conflict.
	rec = doJSON(t, mux, http.MethodPost, "/sessions/"+snap.ID+"/questions", GenerateQuestionsRequest{NumQuestions: 3})
	if rec.Code != http.StatusConflict {
		t.Fatalf("Status = %d, want %d, body %s", rec.Code, http.StatusConflict, rec.Body.String())
	}
	errResp := decodeBody[ErrorResponse](t, rec)
	if errResp.Code != errors.ErrCodeStageConflict {
		t.Errorf("Error code = %s, want %s", errResp.Code, errors.ErrCodeStageConflict)
	}
}

func TestInvalidQuestionCountMapsTo400(t *testing.T) {
	_, mux := newTestServer(t, nil)

	rec := doJSON(t, mux, http.MethodPost, "/sessions", nil)
	snap := decodeBody[interview.Snapshot](t, rec)
	base := "/sessions/" + snap.ID

	doJSON(t, mux, http.MethodPost, base+"/resume", testResumeBody())

	rec = doJSON(t, mux, http.MethodPost, base+"/questions", GenerateQuestionsRequest{NumQuestions: 0})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("Status = %d, want %d, body %s", rec.Code, http.StatusBadRequest, rec.Body.String())
	}
	errResp := decodeBody[ErrorResponse](t, rec)
	if errResp.Code != errors.ErrCodeInvalidCount {
		t.Errorf("Error code = %s, want %s", errResp.Code, errors.ErrCodeInvalidCount)
	}
}

func TestUnknownSessionReturns404(t *testing.T) {
	_, mux := newTestServer(t, nil)

	rec := doJSON(t, mux, http.MethodGet, "/sessions/no-such-session", nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("Status = %d, want %d", rec.Code, http.StatusNotFound)
	}
}

func TestMissingRequestFieldsReturn400(t *testing.T) {
	_, mux := newTestServer(t, nil)

	rec := doJSON(t, mux, http.MethodPost, "/sessions", nil)
	snap := decodeBody[interview.Snapshot](t, rec)
	base := "/sessions/" + snap.ID

	rec = doJSON(t, mux, http.MethodPost, base+"/resume", UploadResumeRequest{})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("Empty resumeDataUri status = %d, want %d", rec.Code, http.StatusBadRequest)
	}

	// Wrong content type is rejected before the session is touched.
	req := httptest.NewRequest(http.MethodPost, base+"/resume", bytes.NewReader([]byte("resumeDataUri=x")))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	recorder := httptest.NewRecorder()
	mux.ServeHTTP(recorder, req)
	if recorder.Code != http.StatusBadRequest {
		t.Errorf("Wrong content type status = %d, want %d", recorder.Code, http.StatusBadRequest)
	}
}

func TestAuthMiddleware(t *testing.T) {
	_, mux := newTestServer(t, map[string]bool{"valid-key-12345": true})

	t.Run("missing key", func(t *testing.T) {
		rec := doJSON(t, mux, http.MethodPost, "/sessions", nil)
		if rec.Code != http.StatusUnauthorized {
			t.Errorf("Status = %d, want %d", rec.Code, http.StatusUnauthorized)
		}
	})

	t.Run("invalid key", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/sessions", nil)
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("X-API-Key", "wrong-key")
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, req)
		if rec.Code != http.StatusUnauthorized {
			t.Errorf("Status = %d, want %d", rec.Code, http.StatusUnauthorized)
		}
	})

	t.Run("valid header key", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/sessions", nil)
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("X-API-Key", "valid-key-12345")
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, req)
		if rec.Code != http.StatusCreated {
			t.Errorf("Status = %d, want %d", rec.Code, http.StatusCreated)
		}
	})

	t.Run("valid bearer token", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/sessions", nil)
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Authorization", "Bearer valid-key-12345")
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, req)
		if rec.Code != http.StatusCreated {
			t.Errorf("Status = %d, want %d", rec.Code, http.StatusCreated)
		}
	})

	t.Run("health endpoint stays open", func(t *testing.T) {
		// Health is probed by infrastructure without credentials.
		req := httptest.NewRequest(http.MethodGet, "/stats", nil)
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, req)
		if rec.Code == http.StatusUnauthorized {
			t.Error("Stats endpoint should not require authentication")
		}
	})
}

func TestHealthHandlerDegraded(t *testing.T) {
	s, _ := newTestServer(t, nil)
	// No provider configured, so every flow model reports unavailable.
	s.AppConfig = &config.Config{}

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	s.healthHandler(rec, req)

	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("Status = %d, want %d", rec.Code, http.StatusServiceUnavailable)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type = %q, want application/json", ct)
	}

	var body map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("Failed to decode health response: %v", err)
	}
	if body["status"] != "degraded" {
		t.Errorf("status = %v, want degraded", body["status"])
	}
}

func TestRateLimitMiddleware(t *testing.T) {
	s, _ := newTestServer(t, nil)
	logger := errors.NewLogger(slog.LevelError)

	s.RateLimit = &config.RateLimitConfig{
		Enabled:        true,
		RequestsPerMin: 60,
		BurstCapacity:  2,
		ByIP:           true,
	}
	s.RateLimiter = NewRateLimiter(60, time.Minute, 2, logger)
	t.Cleanup(s.RateLimiter.Close)

	om, err := observability.NewObservabilityManager(observability.ObservabilityConfig{Enabled: false}, nil)
	if err != nil {
		t.Fatalf("Failed to create observability manager: %v", err)
	}
	mux := s.setupRoutes(om)

	statuses := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		rec := doJSON(t, mux, http.MethodPost, "/sessions", nil)
		statuses = append(statuses, rec.Code)
	}

	if statuses[0] != http.StatusCreated || statuses[1] != http.StatusCreated {
		t.Fatalf("First two requests should pass, got %v", statuses)
	}
	if statuses[2] != http.StatusTooManyRequests {
		t.Errorf("Third request status = %d, want %d", statuses[2], http.StatusTooManyRequests)
	}
}

func TestGetClientIP(t *testing.T) {
	tests := []struct {
		name       string
		remoteAddr string
		headers    map[string]string
		expected   string
	}{
		{
			name:       "remote addr only",
			remoteAddr: "192.0.2.10:54321",
			expected:   "192.0.2.10",
		},
		{
			name:       "x-forwarded-for wins",
			remoteAddr: "10.0.0.1:1234",
			headers:    map[string]string{"X-Forwarded-For": "203.0.113.7, 10.0.0.2"},
			expected:   "203.0.113.7",
		},
		{
			name:       "x-real-ip fallback",
			remoteAddr: "10.0.0.1:1234",
			headers:    map[string]string{"X-Real-IP": "198.51.100.3"},
			expected:   "198.51.100.3",
		},
		{
			name:       "invalid forwarded entries skipped",
			remoteAddr: "10.0.0.1:1234",
			headers:    map[string]string{"X-Forwarded-For": "not-an-ip, 203.0.113.9"},
			expected:   "203.0.113.9",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = tt.remoteAddr
			for k, v := range tt.headers {
				req.Header.Set(k, v)
			}
			if got := getClientIP(req); got != tt.expected {
				t.Errorf("getClientIP() = %s, want %s", got, tt.expected)
			}
		})
	}
}

func TestMaskAPIKey(t *testing.T) {
	if got := maskAPIKey("abcdefghijkl"); got != "abcdefgh****" {
		t.Errorf("maskAPIKey() = %s", got)
	}
	if got := maskAPIKey("short"); got != "****" {
		t.Errorf("maskAPIKey() = %s", got)
	}
}
