package hunt

import (
	"strconv"
	"time"
)

// Patch is a field-level merge patch (RFC 7386 semantics) against a team
// document. Keys are the document's JSON field names; a nil value removes
// the field. Transitions return a Patch instead of mutating the record so
// each write touches only the fields the transition owns.
type Patch map[string]any

// HintGrant authorizes revealing the next hint in sequence. The engine
// never reveals hint text itself; the requesting surface does.
type HintGrant struct {
	Number   int // 1 or 2
	Cost     int
	NewScore int
}

// Finalized describes the terminal transition applied to a question slot.
type Finalized struct {
	Index         int
	Status        QuestionStatus
	NextIndex     int
	NewScore      int
	GameCompleted bool
}

// Start opens the timed answer window for the team's current question.
// A mismatched index is rejected, not warned past: proceeding on a stale
// index is how a team ends up graded against the wrong question.
func (t Team) Start(index int, now time.Time) (Patch, error) {
	if t.GameCompleted || t.CurrentQuestionIndex >= QuestionsPerTeam {
		return nil, ErrGameCompleted
	}
	if index != t.CurrentQuestionIndex {
		return nil, ErrIndexMismatch
	}
	ts := now.UTC()
	return Patch{
		"questionStarted": true,
		"answerStarted":   true,
		"answerStartedAt": ts,
		"updatedAt":       ts,
	}, nil
}

// UseHint authorizes one more hint on the given question, charging 25 for
// the first and 50 for the second. The third request is rejected with no
// state change. The score may go negative.
func (t Team) UseHint(index int, now time.Time) (HintGrant, Patch, error) {
	if t.GameCompleted {
		return HintGrant{}, nil, ErrGameCompleted
	}
	if index < 0 || index >= QuestionsPerTeam {
		return HintGrant{}, nil, ErrIndexMismatch
	}
	used := t.HintsUsed[index]
	if used >= HintLimit {
		return HintGrant{}, nil, ErrHintLimit
	}
	cost := HintCost(used)
	grant := HintGrant{
		Number:   used + 1,
		Cost:     cost,
		NewScore: t.Score - cost,
	}
	patch := Patch{
		"hintsUsed": map[string]int{strconv.Itoa(index): used + 1},
		"score":     grant.NewScore,
		"updatedAt": now.UTC(),
	}
	return grant, patch, nil
}

// FinalizeAnswer grades the current question as correct or incorrect and
// advances the team by exactly one slot. Correct answers earn time-decayed
// points from the window start; a window that was never opened counts as
// expired and earns nothing. Incorrect answers earn zero — no flat penalty.
func (t Team) FinalizeAnswer(index int, isCorrect bool, answerText string, now time.Time) (Finalized, Patch, error) {
	points := 0
	if isCorrect {
		if t.AnswerStartedAt != nil {
			points = AnswerPoints(now.Sub(*t.AnswerStartedAt))
		}
	}
	outcome := OutcomeIncorrect
	if isCorrect {
		outcome = OutcomeCorrect
	}
	return t.finalize(index, outcome, answerText, points, now)
}

// Skip finalizes the current question as skipped at a flat penalty.
func (t Team) Skip(index int, now time.Time) (Finalized, Patch, error) {
	return t.finalize(index, OutcomeSkipped, "", -SkipPenalty, now)
}

func (t Team) finalize(index int, outcome Outcome, answerText string, points int, now time.Time) (Finalized, Patch, error) {
	if t.GameCompleted || t.CurrentQuestionIndex >= QuestionsPerTeam {
		return Finalized{}, nil, ErrGameCompleted
	}
	if index != t.CurrentQuestionIndex {
		return Finalized{}, nil, ErrIndexMismatch
	}
	if _, done := t.QuestionStatuses[index]; done {
		return Finalized{}, nil, ErrAlreadyFinalized
	}

	ts := now.UTC()
	status := QuestionStatus{
		Status:       outcome,
		Answer:       answerText,
		PointsEarned: points,
		CompletedAt:  ts,
	}
	fin := Finalized{
		Index:         index,
		Status:        status,
		NextIndex:     index + 1,
		NewScore:      t.Score + points,
		GameCompleted: index+1 >= QuestionsPerTeam,
	}

	// The status entry and index advance travel in one patch so a crash
	// can never leave a finalized slot behind a stale index.
	patch := Patch{
		"questionStatuses":     map[string]QuestionStatus{strconv.Itoa(index): status},
		"currentQuestionIndex": fin.NextIndex,
		"questionStarted":      false,
		"answerStarted":        false,
		"answerStartedAt":      nil,
		"score":                fin.NewScore,
		"updatedAt":            ts,
	}
	if fin.GameCompleted {
		patch["gameCompleted"] = true
		patch["gameCompletedAt"] = ts
	}
	return fin, patch, nil
}

// CompletionPatch marks a finished team's completion bookkeeping. Used
// when a late scan finds the team past its last slot without the flag set.
func (t Team) CompletionPatch(now time.Time) Patch {
	if t.GameCompleted || t.CurrentQuestionIndex < QuestionsPerTeam {
		return nil
	}
	ts := now.UTC()
	return Patch{
		"gameCompleted":   true,
		"gameCompletedAt": ts,
		"updatedAt":       ts,
	}
}
