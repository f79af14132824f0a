package types

import (
	"fmt"
	"strings"
)

// ResumeProfile represents the structured fields extracted from a resume.
// Created once per session by the parse flow and immutable afterwards.
type ResumeProfile struct {
	Skills         []string `json:"skills"`
	WorkExperience []string `json:"workExperience"`
	Projects       []string `json:"projects"`
}

// Summary flattens the profile into the single string consumed by the
// question-generation and evaluation flows.
func (p ResumeProfile) Summary() string {
	join := func(items []string) string {
		if len(items) == 0 {
			return "N/A"
		}
		return strings.Join(items, ", ")
	}
	return fmt.Sprintf("Work Experience: %s. Skills: %s. Projects: %s.",
		join(p.WorkExperience), join(p.Skills), join(p.Projects))
}

// Question is one generated interview question with a guidance link.
type Question struct {
	Question     string `json:"question"`
	GuidanceLink string `json:"guidanceLink"`
}

// Blendshape is a named facial-muscle activation intensity for one frame.
type Blendshape struct {
	CategoryName string  `json:"categoryName"`
	Score        float64 `json:"score"`
}

// FacialSnapshot is one frame of facial detection data. A nil *FacialSnapshot
// in a snapshot log means no face was detected at that instant.
type FacialSnapshot struct {
	Timestamp   float64      `json:"timestamp"`
	Blendshapes []Blendshape `json:"blendshapes"`
}

// SuggestedResource is one resource recommended by the evaluation flow.
type SuggestedResource struct {
	Title string `json:"title"`
	URL   string `json:"url"`
}

// Evaluation is the evaluation flow's assessment of one transcribed answer.
type Evaluation struct {
	Evaluation             string              `json:"evaluation"`
	Score                  float64             `json:"score"`
	FollowUpQuestion       string              `json:"followUpQuestion"`
	ExpectedAnswerElements string              `json:"expectedAnswerElements"`
	SuggestedResources     []SuggestedResource `json:"suggestedResources"`
}

// Validate rejects malformed evaluation payloads at the flow boundary.
func (e Evaluation) Validate() error {
	if e.Score < 0 || e.Score > 10 {
		return fmt.Errorf("evaluation score %.2f outside [0,10]", e.Score)
	}
	if strings.TrimSpace(e.Evaluation) == "" {
		return fmt.Errorf("evaluation text is empty")
	}
	for i, r := range e.SuggestedResources {
		if strings.TrimSpace(r.Title) == "" || strings.TrimSpace(r.URL) == "" {
			return fmt.Errorf("suggested resource %d is missing title or url", i)
		}
	}
	return nil
}

// VideoAnalysis is the analysis flow's assessment of the facial snapshot log.
type VideoAnalysis struct {
	NervousnessAnalysis string  `json:"nervousnessAnalysis"`
	ConfidenceScore     float64 `json:"confidenceScore"`
	GazeAnalysis        string  `json:"gazeAnalysis"`
	CheatingSuspicion   bool    `json:"cheatingSuspicion"`
}

// Validate rejects malformed analysis payloads at the flow boundary.
func (v VideoAnalysis) Validate() error {
	if v.ConfidenceScore < 0 || v.ConfidenceScore > 10 {
		return fmt.Errorf("confidence score %.2f outside [0,10]", v.ConfidenceScore)
	}
	return nil
}

// AnswerRecord is one entry of the session log. Evaluation, VideoAnalysis and
// TranscribedAnswer stay nil when the corresponding pipeline step failed; the
// record itself is always appended so a question's progress is never lost.
type AnswerRecord struct {
	Question          string         `json:"question"`
	GuidanceLink      string         `json:"guidanceLink,omitempty"`
	MediaURI          string         `json:"mediaUri,omitempty"`
	TranscribedAnswer *string        `json:"transcribedAnswer"`
	Evaluation        *Evaluation    `json:"evaluation"`
	VideoAnalysis     *VideoAnalysis `json:"videoAnalysis"`
}

// ParseResumeInput represents the input for the resume-parsing flow
type ParseResumeInput struct {
	ResumeDataURI string `json:"resumeDataUri"`
}

// GenerateQuestionsInput represents the input for the question-generation flow
type GenerateQuestionsInput struct {
	ResumeData        string `json:"resumeData"`
	NumberOfQuestions int    `json:"numberOfQuestions"`
}

// GenerateQuestionsOutput represents the output from the question-generation flow
type GenerateQuestionsOutput struct {
	Questions []Question `json:"questions"`
}

// Validate rejects malformed question sets at the flow boundary.
func (o GenerateQuestionsOutput) Validate() error {
	if len(o.Questions) == 0 {
		return fmt.Errorf("question set is empty")
	}
	for i, q := range o.Questions {
		if strings.TrimSpace(q.Question) == "" {
			return fmt.Errorf("question %d has empty text", i)
		}
	}
	return nil
}

// EvaluateAnswerInput represents the input for the evaluation flow
type EvaluateAnswerInput struct {
	Question   string `json:"question"`
	Answer     string `json:"answer"`
	ResumeData string `json:"resumeData"`
}

// TranscribeAnswerInput represents the input for the transcription flow
type TranscribeAnswerInput struct {
	AudioDataURI string `json:"audioDataUri"`
}

// TranscribeAnswerOutput represents the output from the transcription flow
type TranscribeAnswerOutput struct {
	Transcription string `json:"transcription"`
}

// AnalyzeVideoInput represents the input for the video-performance flow.
// FacialDataJSON is the JSON-serialized snapshot log (nullable entries).
type AnalyzeVideoInput struct {
	FacialDataJSON string `json:"facialDataJson"`
}
