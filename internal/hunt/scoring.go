package hunt

import "time"

// answerDecay maps elapsed time since the answer window opened to the
// points awarded for a correct answer. Past the last step the answer is
// still accepted but earns nothing.
var answerDecay = []struct {
	within time.Duration
	points int
}{
	{70 * time.Second, 100},
	{80 * time.Second, 90},
	{90 * time.Second, 80},
	{100 * time.Second, 70},
	{110 * time.Second, 60},
	{120 * time.Second, 50},
}

// AnswerPoints returns the points awarded for a correct answer submitted
// after the given elapsed time.
func AnswerPoints(elapsed time.Duration) int {
	for _, step := range answerDecay {
		if elapsed <= step.within {
			return step.points
		}
	}
	return 0
}

// HintCost returns the score deduction for taking one more hint when
// `used` hints have already been taken on the question.
func HintCost(used int) int {
	if used == 0 {
		return 25
	}
	return 50
}
