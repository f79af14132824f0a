package interview

import (
	"context"
	"fmt"
	"net/url"
	"sync"
	"time"

	"intervisage/internal/errors"
	"intervisage/internal/media"
	"intervisage/internal/types"
)

// Session is one candidate's interview, driven through the stage machine by
// the event methods below. The mutex guards all mutable state; it is released
// while flow calls are in flight so a Restart can always interrupt. Results
// arriving after a Restart are detected by the generation counter and
// discarded.
type Session struct {
	mu sync.Mutex

	id         string
	stage      Stage
	generation uint64

	profile       *types.ResumeProfile
	resumeSummary string
	questions     []types.Question
	currentIndex  int
	log           []types.AnswerRecord

	// Per-answer scratch state. Cleared by NextQuestion and Restart.
	currentMediaURI   string
	currentTranscript *string
	currentEvaluation *types.Evaluation
	currentAnalysis   *types.VideoAnalysis

	lastError string

	flows        FlowClient
	logger       *errors.Logger
	maxQuestions int

	createdAt  time.Time
	lastActive time.Time
}

// NewSession creates a session in the INITIAL stage.
func NewSession(id string, flows FlowClient, maxQuestions int, logger *errors.Logger) *Session {
	now := time.Now()
	return &Session{
		id:           id,
		stage:        StageInitial,
		flows:        flows,
		logger:       logger,
		maxQuestions: maxQuestions,
		createdAt:    now,
		lastActive:   now,
	}
}

// ID returns the session identifier.
func (s *Session) ID() string { return s.id }

// Stage returns the current stage.
func (s *Session) Stage() Stage {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stage
}

// LastActive returns the time of the last event on this session.
func (s *Session) LastActive() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastActive
}

// Snapshot is a point-in-time copy of session state for rendering responses.
type Snapshot struct {
	ID              string                `json:"id"`
	Stage           Stage                 `json:"stage"`
	Profile         *types.ResumeProfile  `json:"profile,omitempty"`
	ResumeSummary   string                `json:"resumeSummary,omitempty"`
	Questions       []types.Question      `json:"questions,omitempty"`
	CurrentIndex    int                   `json:"currentIndex"`
	CurrentQuestion *types.Question       `json:"currentQuestion,omitempty"`
	Log             []types.AnswerRecord  `json:"log"`
	LastError       string                `json:"lastError,omitempty"`
	CreatedAt       time.Time             `json:"createdAt"`
	LastActive      time.Time             `json:"lastActive"`
}

// Snapshot returns a copy of the observable session state.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := Snapshot{
		ID:            s.id,
		Stage:         s.stage,
		ResumeSummary: s.resumeSummary,
		CurrentIndex:  s.currentIndex,
		Questions:     append([]types.Question(nil), s.questions...),
		Log:           append([]types.AnswerRecord(nil), s.log...),
		LastError:     s.lastError,
		CreatedAt:     s.createdAt,
		LastActive:    s.lastActive,
	}
	if s.profile != nil {
		profile := *s.profile
		snap.Profile = &profile
	}
	// Terminal stages have no question pending, even though the index still
	// points at the last one asked.
	if !s.stage.Terminal() && s.currentIndex < len(s.questions) {
		q := s.questions[s.currentIndex]
		snap.CurrentQuestion = &q
	}
	return snap
}

// stageConflict builds the error returned when an event arrives in the wrong
// stage. It never changes session state.
func (s *Session) stageConflict(event string) error {
	return errors.NewSessionError(errors.ErrCodeStageConflict,
		fmt.Sprintf("Cannot %s in stage %s", event, s.stage), nil)
}

// transition moves the session to next after checking the edge against the
// stage table. Event methods gate on the current stage before touching it, so
// an illegal edge here is a bug in this package, not bad caller input.
// Caller must hold the mutex.
func (s *Session) transition(next Stage) {
	if !s.stage.CanTransitionTo(next) {
		panic(fmt.Sprintf("illegal stage transition %s -> %s", s.stage, next))
	}
	s.stage = next
}

// fail moves the session to ERROR_STATE and records the message.
// Caller must hold the mutex.
func (s *Session) fail(message string, cause error) {
	s.transition(StageError)
	s.lastError = message
	s.lastActive = time.Now()
	if s.logger != nil {
		s.logger.LogError(cause, message, "session_id", s.id)
	}
}

// UploadResume parses the resume behind the data URI and advances the session
// to AWAITING_NUM_QUESTIONS. Allowed only in INITIAL.
func (s *Session) UploadResume(ctx context.Context, resumeDataURI string) (types.ResumeProfile, error) {
	s.mu.Lock()
	if s.stage != StageInitial {
		defer s.mu.Unlock()
		return types.ResumeProfile{}, s.stageConflict("upload a resume")
	}
	if _, err := media.ValidateResumeURI(resumeDataURI); err != nil {
		s.fail("Failed to read resume file.", err)
		s.mu.Unlock()
		return types.ResumeProfile{}, err
	}
	s.transition(StageResumeParsing)
	s.lastActive = time.Now()
	gen := s.generation
	s.mu.Unlock()

	profile, err := s.flows.ParseResume(ctx, resumeDataURI)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.generation != gen {
		return types.ResumeProfile{}, staleResultError()
	}
	if err != nil {
		s.fail("Failed to parse resume.", err)
		return types.ResumeProfile{}, err
	}

	s.profile = &profile
	s.resumeSummary = profile.Summary()
	s.transition(StageAwaitingNumQuestions)
	s.lastActive = time.Now()
	return profile, nil
}

// GenerateQuestions generates count interview questions from the parsed
// resume. Allowed only in AWAITING_NUM_QUESTIONS; count must be within
// [1, maxQuestions].
func (s *Session) GenerateQuestions(ctx context.Context, count int) ([]types.Question, error) {
	s.mu.Lock()
	if s.stage != StageAwaitingNumQuestions {
		defer s.mu.Unlock()
		return nil, s.stageConflict("generate questions")
	}
	if count < 1 || count > s.maxQuestions {
		err := errors.NewValidationError(errors.ErrCodeInvalidCount,
			fmt.Sprintf("Please enter a valid number of questions (1-%d).", s.maxQuestions), nil)
		s.fail(err.Message, err)
		s.mu.Unlock()
		return nil, err
	}
	resumeSummary := s.resumeSummary
	s.transition(StageGeneratingQuestions)
	s.lastActive = time.Now()
	gen := s.generation
	s.mu.Unlock()

	questions, err := s.flows.GenerateQuestions(ctx, resumeSummary, count)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.generation != gen {
		return nil, staleResultError()
	}
	if err != nil {
		s.fail("Failed to generate interview questions.", err)
		return nil, err
	}

	for i := range questions {
		if questions[i].GuidanceLink == "" {
			questions[i].GuidanceLink = defaultGuidanceLink(questions[i].Question)
		}
	}

	s.questions = questions
	s.transition(StageQuestionsReady)
	s.lastActive = time.Now()
	return append([]types.Question(nil), questions...), nil
}

// Start begins the interview at the first question. Allowed only in
// QUESTIONS_READY.
func (s *Session) Start() (types.Question, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stage != StageQuestionsReady {
		return types.Question{}, s.stageConflict("start the interview")
	}

	s.currentIndex = 0
	s.log = nil
	s.clearAnswerState()
	s.transition(StageInterviewing)
	s.lastActive = time.Now()
	return s.questions[0], nil
}

// SubmitAnswer processes one recorded answer: transcription and facial
// analysis run concurrently, evaluation follows transcription. On success the
// full record is appended and the session moves to QUESTION_EVALUATED. On any
// branch failure a partial record is still appended and the session moves to
// ERROR_STATE. Allowed only in INTERVIEWING; a second submission while one is
// in flight is a stage conflict.
func (s *Session) SubmitAnswer(ctx context.Context, mediaDataURI string, facialLog []*types.FacialSnapshot) (types.AnswerRecord, error) {
	s.mu.Lock()
	if s.stage != StageInterviewing {
		defer s.mu.Unlock()
		return types.AnswerRecord{}, s.stageConflict("submit an answer")
	}
	if _, err := media.ValidateAnswerURI(mediaDataURI); err != nil {
		s.fail("Failed to process your answer.", err)
		s.mu.Unlock()
		return types.AnswerRecord{}, err
	}

	question := s.questions[s.currentIndex]
	resumeSummary := s.resumeSummary
	s.currentMediaURI = mediaDataURI
	s.transition(StageProcessingAnswer)
	s.lastActive = time.Now()
	gen := s.generation
	s.mu.Unlock()

	facialJSON, encErr := media.EncodeFacialLog(facialLog)

	var result pipelineResult
	if encErr == nil {
		result = runAnswerPipeline(ctx, s.flows, question.Question, resumeSummary, mediaDataURI, facialJSON)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.generation != gen {
		return types.AnswerRecord{}, staleResultError()
	}

	if encErr != nil {
		record := types.AnswerRecord{
			Question:     question.Question,
			GuidanceLink: question.GuidanceLink,
			MediaURI:     mediaDataURI,
		}
		s.log = append(s.log, record)
		s.fail("Failed to process your answer.", encErr)
		return record, encErr
	}

	record := types.AnswerRecord{
		Question:          question.Question,
		GuidanceLink:      question.GuidanceLink,
		MediaURI:          mediaDataURI,
		TranscribedAnswer: result.transcription,
		Evaluation:        result.evaluation,
		VideoAnalysis:     result.analysis,
	}
	s.log = append(s.log, record)

	if err := result.Err(); err != nil {
		s.currentTranscript = result.transcription
		s.currentEvaluation = result.evaluation
		s.currentAnalysis = result.analysis
		s.fail("Failed to process your answer.", err)
		return record, errors.NewAIError(errors.ErrCodeAIServiceFailed,
			"Failed to process your answer.", err)
	}

	s.currentTranscript = result.transcription
	s.currentEvaluation = result.evaluation
	s.currentAnalysis = result.analysis
	s.transition(StageQuestionEvaluated)
	s.lastActive = time.Now()
	return record, nil
}

// NextQuestion advances to the next question, or completes the interview
// after the last one. Allowed only in QUESTION_EVALUATED.
func (s *Session) NextQuestion() (Stage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stage != StageQuestionEvaluated {
		return s.stage, s.stageConflict("advance to the next question")
	}

	s.clearAnswerState()
	s.lastActive = time.Now()
	if s.currentIndex < len(s.questions)-1 {
		s.currentIndex++
		s.transition(StageInterviewing)
	} else {
		s.transition(StageInterviewComplete)
	}
	return s.stage, nil
}

// Restart resets the session to INITIAL from any stage, discarding all
// interview state. The generation bump makes any in-flight flow results
// stale; they are dropped when they arrive.
func (s *Session) Restart() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.generation++
	s.transition(StageInitial)
	s.profile = nil
	s.resumeSummary = ""
	s.questions = nil
	s.currentIndex = 0
	s.log = nil
	s.clearAnswerState()
	s.lastError = ""
	s.lastActive = time.Now()
}

// clearAnswerState resets per-answer scratch fields. Caller must hold the mutex.
func (s *Session) clearAnswerState() {
	s.currentMediaURI = ""
	s.currentTranscript = nil
	s.currentEvaluation = nil
	s.currentAnalysis = nil
}

func staleResultError() error {
	return errors.NewSessionError(errors.ErrCodeStaleResult,
		"Session was restarted while the operation was in flight", nil)
}

// defaultGuidanceLink builds the search URL used when the generation flow
// returns a question without one.
func defaultGuidanceLink(question string) string {
	return "https://www.google.com/search?q=how+to+answer+" + url.QueryEscape(question)
}
