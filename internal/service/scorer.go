package service

import (
	"math"

	"github.com/ereas/ereas-backend/internal/model"
	"github.com/google/uuid"
)

// ScoreSummary is the outcome of scoring one session. Percentage is nil when
// the exam had no assigned questions — never a division result.
type ScoreSummary struct {
	Score      int      `json:"score"`
	Total      int      `json:"total"`
	Percentage *float64 `json:"percentage"`
}

// Score compares saved answers against the correct options. total is the
// number of assigned questions: unanswered questions count toward total but
// never toward score. The returned map holds per-question correctness for
// every saved answer; persistence is entirely the caller's job.
func Score(answers []model.Answer, correctOptions map[uuid.UUID]string, total int) (ScoreSummary, map[uuid.UUID]bool) {
	correctness := make(map[uuid.UUID]bool, len(answers))

	score := 0
	for _, a := range answers {
		ok := correctOptions[a.QuestionID] == a.SelectedOption
		correctness[a.QuestionID] = ok
		if ok {
			score++
		}
	}

	summary := ScoreSummary{Score: score, Total: total}
	if total > 0 {
		pct := math.Round(float64(score)/float64(total)*100*100) / 100
		summary.Percentage = &pct
	}

	return summary, correctness
}
