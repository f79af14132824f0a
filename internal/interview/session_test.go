package interview

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"sync"
	"testing"

	intervisageErrors "intervisage/internal/errors"
	"intervisage/internal/types"
)

// fakeFlows is a scriptable FlowClient. Each hook defaults to a success
// response when nil.
type fakeFlows struct {
	mu sync.Mutex

	parseErr      error
	generateErr   error
	transcribeErr error
	evaluateErr   error
	analyzeErr    error

	generated      []types.Question
	parseStarted   chan struct{}
	parseRelease   chan struct{}
	transcribeSeen string
	evaluateSeen   string
}

func (f *fakeFlows) ParseResume(ctx context.Context, resumeDataURI string) (types.ResumeProfile, error) {
	if f.parseStarted != nil {
		close(f.parseStarted)
	}
	if f.parseRelease != nil {
		<-f.parseRelease
	}
	if f.parseErr != nil {
		return types.ResumeProfile{}, f.parseErr
	}
	return types.ResumeProfile{
		Skills:         []string{"Go", "SQL"},
		WorkExperience: []string{"Backend engineer at Acme"},
		Projects:       []string{"Search indexer"},
	}, nil
}

func (f *fakeFlows) GenerateQuestions(ctx context.Context, resumeData string, count int) ([]types.Question, error) {
	if f.generateErr != nil {
		return nil, f.generateErr
	}
	if f.generated != nil {
		return f.generated, nil
	}
	questions := make([]types.Question, count)
	for i := range questions {
		questions[i] = types.Question{
			Question:     fmt.Sprintf("Question %d", i+1),
			GuidanceLink: fmt.Sprintf("https://example.com/q%d", i+1),
		}
	}
	return questions, nil
}

func (f *fakeFlows) TranscribeAnswer(ctx context.Context, mediaDataURI string) (string, error) {
	f.mu.Lock()
	f.transcribeSeen = mediaDataURI
	f.mu.Unlock()
	if f.transcribeErr != nil {
		return "", f.transcribeErr
	}
	return "I led the migration to Go services.", nil
}

func (f *fakeFlows) EvaluateAnswer(ctx context.Context, question, answer, resumeData string) (types.Evaluation, error) {
	f.mu.Lock()
	f.evaluateSeen = answer
	f.mu.Unlock()
	if f.evaluateErr != nil {
		return types.Evaluation{}, f.evaluateErr
	}
	return types.Evaluation{
		Evaluation:             "Solid answer with concrete detail.",
		Score:                  8,
		FollowUpQuestion:       "What was the hardest part?",
		ExpectedAnswerElements: "Ownership, outcome, metrics",
	}, nil
}

func (f *fakeFlows) AnalyzeVideoPerformance(ctx context.Context, facialDataJSON string) (types.VideoAnalysis, error) {
	if f.analyzeErr != nil {
		return types.VideoAnalysis{}, f.analyzeErr
	}
	return types.VideoAnalysis{
		NervousnessAnalysis: "Calm overall.",
		ConfidenceScore:     7,
		GazeAnalysis:        "Mostly on camera.",
		CheatingSuspicion:   false,
	}, nil
}

func testResumeURI() string {
	return "data:application/pdf;base64," + base64.StdEncoding.EncodeToString([]byte("resume bytes"))
}

func testAnswerURI() string {
	return "data:video/webm;base64," + base64.StdEncoding.EncodeToString([]byte("clip bytes"))
}

func newTestSession(flows FlowClient) *Session {
	return NewSession("test-session", flows, 20, nil)
}

func runToInterviewing(t *testing.T, s *Session, count int) {
	t.Helper()
	ctx := context.Background()

	if _, err := s.UploadResume(ctx, testResumeURI()); err != nil {
		t.Fatalf("UploadResume: %v", err)
	}
	if _, err := s.GenerateQuestions(ctx, count); err != nil {
		t.Fatalf("GenerateQuestions: %v", err)
	}
	if _, err := s.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
}

func TestSessionHappyPath(t *testing.T) {
	flows := &fakeFlows{}
	s := newTestSession(flows)
	ctx := context.Background()

	if s.Stage() != StageInitial {
		t.Fatalf("new session stage = %s, want INITIAL", s.Stage())
	}

	profile, err := s.UploadResume(ctx, testResumeURI())
	if err != nil {
		t.Fatalf("UploadResume: %v", err)
	}
	if len(profile.Skills) != 2 {
		t.Errorf("profile skills = %v", profile.Skills)
	}
	if s.Stage() != StageAwaitingNumQuestions {
		t.Fatalf("stage after parse = %s, want AWAITING_NUM_QUESTIONS", s.Stage())
	}

	questions, err := s.GenerateQuestions(ctx, 2)
	if err != nil {
		t.Fatalf("GenerateQuestions: %v", err)
	}
	if len(questions) != 2 {
		t.Fatalf("got %d questions, want 2", len(questions))
	}
	if s.Stage() != StageQuestionsReady {
		t.Fatalf("stage after generation = %s, want QUESTIONS_READY", s.Stage())
	}

	first, err := s.Start()
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	if first.Question != "Question 1" {
		t.Errorf("first question = %q", first.Question)
	}

	record, err := s.SubmitAnswer(ctx, testAnswerURI(), nil)
	if err != nil {
		t.Fatalf("SubmitAnswer: %v", err)
	}
	if record.TranscribedAnswer == nil || *record.TranscribedAnswer == "" {
		t.Error("record is missing its transcription")
	}
	if record.Evaluation == nil || record.Evaluation.Score != 8 {
		t.Errorf("record evaluation = %+v", record.Evaluation)
	}
	if record.VideoAnalysis == nil {
		t.Error("record is missing its video analysis")
	}
	if s.Stage() != StageQuestionEvaluated {
		t.Fatalf("stage after answer = %s, want QUESTION_EVALUATED", s.Stage())
	}

	// The evaluation must receive the transcription, not the raw media
	if flows.evaluateSeen != "I led the migration to Go services." {
		t.Errorf("evaluation received %q", flows.evaluateSeen)
	}

	stage, err := s.NextQuestion()
	if err != nil {
		t.Fatalf("NextQuestion: %v", err)
	}
	if stage != StageInterviewing {
		t.Fatalf("stage after advance = %s, want INTERVIEWING", stage)
	}

	if _, err := s.SubmitAnswer(ctx, testAnswerURI(), nil); err != nil {
		t.Fatalf("SubmitAnswer (second): %v", err)
	}
	stage, err = s.NextQuestion()
	if err != nil {
		t.Fatalf("NextQuestion (last): %v", err)
	}
	if stage != StageInterviewComplete {
		t.Fatalf("stage after last question = %s, want INTERVIEW_COMPLETE", stage)
	}

	snap := s.Snapshot()
	if len(snap.Log) != 2 {
		t.Errorf("log has %d records, want 2", len(snap.Log))
	}
	if snap.CurrentQuestion != nil {
		t.Errorf("completed interview still reports question %+v", snap.CurrentQuestion)
	}
}

func TestTransitionPanicsOnIllegalEdge(t *testing.T) {
	s := newTestSession(&fakeFlows{})

	defer func() {
		if recover() == nil {
			t.Fatal("expected panic on INITIAL -> INTERVIEWING")
		}
	}()
	s.mu.Lock()
	defer s.mu.Unlock()
	s.transition(StageInterviewing)
}

func TestUploadResumeRejectsBadURI(t *testing.T) {
	s := newTestSession(&fakeFlows{})

	_, err := s.UploadResume(context.Background(), "data:text/html;base64,PGI+")
	if err == nil {
		t.Fatal("expected error for unsupported resume type")
	}
	if s.Stage() != StageError {
		t.Errorf("stage = %s, want ERROR_STATE", s.Stage())
	}
}

func TestUploadResumeStageConflict(t *testing.T) {
	s := newTestSession(&fakeFlows{})
	runToInterviewing(t, s, 1)

	_, err := s.UploadResume(context.Background(), testResumeURI())
	var appErr *intervisageErrors.AppError
	if !errors.As(err, &appErr) || appErr.Code != intervisageErrors.ErrCodeStageConflict {
		t.Fatalf("expected stage conflict, got %v", err)
	}
	// A rejected event must not disturb the current stage
	if s.Stage() != StageInterviewing {
		t.Errorf("stage = %s, want INTERVIEWING", s.Stage())
	}
}

func TestGenerateQuestionsCountGate(t *testing.T) {
	for _, count := range []int{0, -3, 21, 100} {
		t.Run(fmt.Sprintf("count=%d", count), func(t *testing.T) {
			s := newTestSession(&fakeFlows{})
			if _, err := s.UploadResume(context.Background(), testResumeURI()); err != nil {
				t.Fatalf("UploadResume: %v", err)
			}

			_, err := s.GenerateQuestions(context.Background(), count)
			var appErr *intervisageErrors.AppError
			if !errors.As(err, &appErr) || appErr.Code != intervisageErrors.ErrCodeInvalidCount {
				t.Fatalf("expected invalid count error, got %v", err)
			}
			if s.Stage() != StageError {
				t.Errorf("stage = %s, want ERROR_STATE", s.Stage())
			}
		})
	}
}

func TestGenerateQuestionsFillsMissingGuidanceLinks(t *testing.T) {
	flows := &fakeFlows{
		generated: []types.Question{
			{Question: "Tell me about your Go experience?"},
			{Question: "Second", GuidanceLink: "https://example.com/keep"},
		},
	}
	s := newTestSession(flows)
	if _, err := s.UploadResume(context.Background(), testResumeURI()); err != nil {
		t.Fatalf("UploadResume: %v", err)
	}

	questions, err := s.GenerateQuestions(context.Background(), 2)
	if err != nil {
		t.Fatalf("GenerateQuestions: %v", err)
	}

	want := "https://www.google.com/search?q=how+to+answer+Tell+me+about+your+Go+experience%3F"
	if questions[0].GuidanceLink != want {
		t.Errorf("guidance link = %q, want %q", questions[0].GuidanceLink, want)
	}
	if questions[1].GuidanceLink != "https://example.com/keep" {
		t.Errorf("existing guidance link was overwritten: %q", questions[1].GuidanceLink)
	}
}

func TestSubmitAnswerPartialFailureKeepsAnalysis(t *testing.T) {
	flows := &fakeFlows{transcribeErr: errors.New("decoder crashed")}
	s := newTestSession(flows)
	runToInterviewing(t, s, 1)

	record, err := s.SubmitAnswer(context.Background(), testAnswerURI(), nil)
	if err == nil {
		t.Fatal("expected pipeline error")
	}

	var appErr *intervisageErrors.AppError
	if !errors.As(err, &appErr) || appErr.Code != intervisageErrors.ErrCodeAIServiceFailed {
		t.Fatalf("expected AI service error, got %v", err)
	}

	// Transcription and evaluation are absent, analysis still completed
	if record.TranscribedAnswer != nil {
		t.Error("transcription should be nil after transcribe failure")
	}
	if record.Evaluation != nil {
		t.Error("evaluation should be nil when transcription failed")
	}
	if record.VideoAnalysis == nil {
		t.Error("video analysis should survive a transcription failure")
	}

	if s.Stage() != StageError {
		t.Errorf("stage = %s, want ERROR_STATE", s.Stage())
	}

	// The partial record is still on the log
	snap := s.Snapshot()
	if len(snap.Log) != 1 {
		t.Fatalf("log has %d records, want 1", len(snap.Log))
	}
}

func TestSubmitAnswerAnalysisFailureKeepsEvaluation(t *testing.T) {
	flows := &fakeFlows{analyzeErr: errors.New("model unavailable")}
	s := newTestSession(flows)
	runToInterviewing(t, s, 1)

	record, err := s.SubmitAnswer(context.Background(), testAnswerURI(), nil)
	if err == nil {
		t.Fatal("expected pipeline error")
	}
	if record.TranscribedAnswer == nil || record.Evaluation == nil {
		t.Error("transcription and evaluation should survive an analysis failure")
	}
	if record.VideoAnalysis != nil {
		t.Error("video analysis should be nil after analyze failure")
	}
}

func TestRestartResetsEverything(t *testing.T) {
	s := newTestSession(&fakeFlows{})
	runToInterviewing(t, s, 2)
	if _, err := s.SubmitAnswer(context.Background(), testAnswerURI(), nil); err != nil {
		t.Fatalf("SubmitAnswer: %v", err)
	}

	s.Restart()

	snap := s.Snapshot()
	if snap.Stage != StageInitial {
		t.Errorf("stage = %s, want INITIAL", snap.Stage)
	}
	if snap.Profile != nil || len(snap.Questions) != 0 || len(snap.Log) != 0 {
		t.Error("restart left interview state behind")
	}
	if snap.LastError != "" {
		t.Errorf("restart left lastError = %q", snap.LastError)
	}
}

func TestRestartRecoversFromError(t *testing.T) {
	flows := &fakeFlows{parseErr: errors.New("model rejected input")}
	s := newTestSession(flows)

	if _, err := s.UploadResume(context.Background(), testResumeURI()); err == nil {
		t.Fatal("expected parse failure")
	}
	if s.Stage() != StageError {
		t.Fatalf("stage = %s, want ERROR_STATE", s.Stage())
	}

	s.Restart()
	flows.parseErr = nil

	if _, err := s.UploadResume(context.Background(), testResumeURI()); err != nil {
		t.Fatalf("UploadResume after restart: %v", err)
	}
	if s.Stage() != StageAwaitingNumQuestions {
		t.Errorf("stage = %s, want AWAITING_NUM_QUESTIONS", s.Stage())
	}
}

func TestRestartDiscardsInFlightResult(t *testing.T) {
	flows := &fakeFlows{
		parseStarted: make(chan struct{}),
		parseRelease: make(chan struct{}),
	}
	s := newTestSession(flows)

	type uploadResult struct {
		err error
	}
	done := make(chan uploadResult, 1)
	go func() {
		_, err := s.UploadResume(context.Background(), testResumeURI())
		done <- uploadResult{err: err}
	}()

	// Restart while the parse flow is in flight
	<-flows.parseStarted
	s.Restart()
	close(flows.parseRelease)

	result := <-done
	var appErr *intervisageErrors.AppError
	if !errors.As(result.err, &appErr) || appErr.Code != intervisageErrors.ErrCodeStaleResult {
		t.Fatalf("expected stale result error, got %v", result.err)
	}

	// The stale parse result must not have advanced the restarted session
	snap := s.Snapshot()
	if snap.Stage != StageInitial {
		t.Errorf("stage = %s, want INITIAL", snap.Stage)
	}
	if snap.Profile != nil {
		t.Error("stale profile was applied after restart")
	}
}

func TestNextQuestionRequiresEvaluation(t *testing.T) {
	s := newTestSession(&fakeFlows{})
	runToInterviewing(t, s, 1)

	_, err := s.NextQuestion()
	var appErr *intervisageErrors.AppError
	if !errors.As(err, &appErr) || appErr.Code != intervisageErrors.ErrCodeStageConflict {
		t.Fatalf("expected stage conflict, got %v", err)
	}
}
