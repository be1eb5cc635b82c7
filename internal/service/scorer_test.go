package service

import (
	"testing"
	"time"

	"github.com/ereas/ereas-backend/internal/model"
	"github.com/google/uuid"
)

func answer(qid uuid.UUID, option string) model.Answer {
	return model.Answer{
		SessionID:      uuid.New(),
		QuestionID:     qid,
		SelectedOption: option,
		SavedAt:        time.Now(),
	}
}

func TestScoreCountsOnlyMatchingOptions(t *testing.T) {
	q1, q2, q3, q4 := uuid.New(), uuid.New(), uuid.New(), uuid.New()
	key := map[uuid.UUID]string{q1: "A", q2: "B", q3: "C", q4: "D"}

	answers := []model.Answer{
		answer(q1, "A"),
		answer(q2, "B"),
		answer(q3, "C"),
		answer(q4, "A"), // wrong
	}

	summary, correctness := Score(answers, key, 4)
	if summary.Score != 3 || summary.Total != 4 {
		t.Fatalf("got %d/%d, want 3/4", summary.Score, summary.Total)
	}
	if summary.Percentage == nil || *summary.Percentage != 75.0 {
		t.Errorf("got percentage %v, want 75.00", summary.Percentage)
	}
	if !correctness[q1] || !correctness[q2] || !correctness[q3] {
		t.Errorf("correct answers not flagged: %v", correctness)
	}
	if correctness[q4] {
		t.Errorf("wrong answer flagged correct")
	}
}

func TestScoreUnansweredCountTowardTotalOnly(t *testing.T) {
	q1, q2 := uuid.New(), uuid.New()
	key := map[uuid.UUID]string{q1: "A", q2: "B"}

	summary, correctness := Score([]model.Answer{answer(q1, "A")}, key, 2)
	if summary.Score != 1 || summary.Total != 2 {
		t.Fatalf("got %d/%d, want 1/2", summary.Score, summary.Total)
	}
	if summary.Percentage == nil || *summary.Percentage != 50.0 {
		t.Errorf("got percentage %v, want 50.00", summary.Percentage)
	}
	if len(correctness) != 1 {
		t.Errorf("correctness must only cover saved answers, got %d entries", len(correctness))
	}
}

func TestScoreRoundsPercentageToTwoDecimals(t *testing.T) {
	q1 := uuid.New()
	key := map[uuid.UUID]string{q1: "A"}

	summary, _ := Score([]model.Answer{answer(q1, "A")}, key, 3)
	if summary.Percentage == nil || *summary.Percentage != 33.33 {
		t.Errorf("got percentage %v, want 33.33", summary.Percentage)
	}
}

func TestScoreZeroTotalHasNilPercentage(t *testing.T) {
	summary, correctness := Score(nil, nil, 0)
	if summary.Score != 0 || summary.Total != 0 {
		t.Fatalf("got %d/%d, want 0/0", summary.Score, summary.Total)
	}
	if summary.Percentage != nil {
		t.Errorf("zero-total percentage must be nil, got %v", *summary.Percentage)
	}
	if len(correctness) != 0 {
		t.Errorf("expected empty correctness map")
	}
}
