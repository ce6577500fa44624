package engine

type Verdict string

const (
	VerdictCorrect   Verdict = "correct"
	VerdictIncorrect Verdict = "incorrect"
)

type Truth struct {
	ContentRef string
	StyleRef   string
}

// Evaluate compares the pair as an unordered set; pick order is not checked.
func Evaluate(pair [PairSize]string, truth Truth) Verdict {
	if pair[0] == pair[1] {
		return VerdictIncorrect
	}
	for _, id := range pair {
		if id != truth.ContentRef && id != truth.StyleRef {
			return VerdictIncorrect
		}
	}
	return VerdictCorrect
}

const (
	PointsFast   = 100
	PointsSteady = 50
	PointsLate   = 20
)

// ScoreFor awards points for a correct guess made with remainingSec left.
// Tier boundaries sit at two thirds and one third of the budget, which is
// >20s and >10s for the default 30s round.
func ScoreFor(remainingSec, budgetSec int) int {
	switch {
	case remainingSec*3 > budgetSec*2:
		return PointsFast
	case remainingSec*3 > budgetSec:
		return PointsSteady
	default:
		return PointsLate
	}
}
