package interview

// Stage is the lifecycle state of an interview session. Every session walks
// this machine from INITIAL to INTERVIEW_COMPLETE; ERROR_STATE is reachable
// from any stage and only Restart leaves it.
type Stage string

const (
	StageInitial              Stage = "INITIAL"
	StageResumeParsing        Stage = "RESUME_PARSING"
	StageAwaitingNumQuestions Stage = "AWAITING_NUM_QUESTIONS"
	StageGeneratingQuestions  Stage = "GENERATING_QUESTIONS"
	StageQuestionsReady       Stage = "QUESTIONS_READY"
	StageInterviewing         Stage = "INTERVIEWING"
	StageProcessingAnswer     Stage = "PROCESSING_ANSWER"
	StageQuestionEvaluated    Stage = "QUESTION_EVALUATED"
	StageInterviewComplete    Stage = "INTERVIEW_COMPLETE"
	StageError                Stage = "ERROR_STATE"
)

// stageTransitions lists the legal forward edges of the machine. Restart and
// error entry are handled separately: ERROR_STATE is reachable from anywhere,
// and Restart returns to INITIAL from anywhere.
var stageTransitions = map[Stage][]Stage{
	StageInitial:              {StageResumeParsing},
	StageResumeParsing:        {StageAwaitingNumQuestions},
	StageAwaitingNumQuestions: {StageGeneratingQuestions},
	StageGeneratingQuestions:  {StageQuestionsReady},
	StageQuestionsReady:       {StageInterviewing},
	StageInterviewing:         {StageProcessingAnswer},
	StageProcessingAnswer:     {StageQuestionEvaluated},
	StageQuestionEvaluated:    {StageInterviewing, StageInterviewComplete},
	StageInterviewComplete:    {},
	StageError:                {},
}

// CanTransitionTo reports whether moving from s to next is a legal edge.
func (s Stage) CanTransitionTo(next Stage) bool {
	if next == StageError || next == StageInitial {
		return true
	}
	for _, allowed := range stageTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// Terminal reports whether the stage accepts no further interview events
// other than Restart.
func (s Stage) Terminal() bool {
	return s == StageInterviewComplete || s == StageError
}
