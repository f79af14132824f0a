package interview

import (
	"intervisage/internal/types"
)

// Summary aggregates an interview's log into headline numbers. Averages
// exclude questions whose evaluation or analysis is missing; a nil average
// means no record contributed to it.
type Summary struct {
	Stage              Stage                `json:"stage"`
	TotalQuestions     int                  `json:"totalQuestions"`
	AnsweredQuestions  int                  `json:"answeredQuestions"`
	EvaluatedQuestions int                  `json:"evaluatedQuestions"`
	AverageScore       *float64             `json:"averageScore"`
	AverageConfidence  *float64             `json:"averageConfidence"`
	CheatingFlags      int                  `json:"cheatingFlags"`
	Records            []types.AnswerRecord `json:"records"`
}

// Summary builds the aggregate view of the session's interview log.
func (s *Session) Summary() Summary {
	snap := s.Snapshot()

	summary := Summary{
		Stage:             snap.Stage,
		TotalQuestions:    len(snap.Questions),
		AnsweredQuestions: len(snap.Log),
		Records:           snap.Log,
	}

	var scoreSum float64
	var scoreCount int
	var confidenceSum float64
	var confidenceCount int

	for _, record := range snap.Log {
		if record.Evaluation != nil {
			summary.EvaluatedQuestions++
			scoreSum += record.Evaluation.Score
			scoreCount++
		}
		if record.VideoAnalysis != nil {
			confidenceSum += record.VideoAnalysis.ConfidenceScore
			confidenceCount++
			if record.VideoAnalysis.CheatingSuspicion {
				summary.CheatingFlags++
			}
		}
	}

	if scoreCount > 0 {
		avg := scoreSum / float64(scoreCount)
		summary.AverageScore = &avg
	}
	if confidenceCount > 0 {
		avg := confidenceSum / float64(confidenceCount)
		summary.AverageConfidence = &avg
	}

	return summary
}
