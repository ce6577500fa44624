package engine

import (
	"math/rand/v2"
	"slices"
	"strings"
	"testing"
)

func TestShuffle_ReturnsPermutation(t *testing.T) {
	input := []string{"content", "style", "decoy1", "decoy2"}
	want := slices.Clone(input)
	slices.Sort(want)

	for seed := uint64(0); seed < 200; seed++ {
		rng := rand.New(rand.NewPCG(seed, seed*31))
		got := Shuffle(rng, input)
		if len(got) != 4 {
			t.Fatalf("seed %d: got %d items, want 4", seed, len(got))
		}
		sorted := slices.Clone(got)
		slices.Sort(sorted)
		if !slices.Equal(sorted, want) {
			t.Fatalf("seed %d: %v is not a permutation of %v", seed, got, input)
		}
	}

	if !slices.Equal(input, []string{"content", "style", "decoy1", "decoy2"}) {
		t.Fatalf("input was mutated: %v", input)
	}
}

func TestShuffle_EveryPermutationEquallyLikely(t *testing.T) {
	rng := rand.New(rand.NewPCG(42, 1337))
	input := []string{"a", "b", "c", "d"}

	const trials = 48000
	counts := map[string]int{}
	for i := 0; i < trials; i++ {
		counts[strings.Join(Shuffle(rng, input), "")]++
	}

	if len(counts) != 24 {
		t.Fatalf("saw %d distinct permutations, want 24", len(counts))
	}
	expected := trials / 24
	for perm, n := range counts {
		if n < expected-300 || n > expected+300 {
			t.Fatalf("permutation %s drawn %d times, want about %d", perm, n, expected)
		}
	}
}

func TestEvaluate(t *testing.T) {
	truth := Truth{ContentRef: "content", StyleRef: "style"}
	cases := []struct {
		name string
		pair [PairSize]string
		want Verdict
	}{
		{name: "content then style", pair: [PairSize]string{"content", "style"}, want: VerdictCorrect},
		{name: "style then content", pair: [PairSize]string{"style", "content"}, want: VerdictCorrect},
		{name: "content and decoy", pair: [PairSize]string{"content", "decoy1"}, want: VerdictIncorrect},
		{name: "decoy and style", pair: [PairSize]string{"decoy2", "style"}, want: VerdictIncorrect},
		{name: "both decoys", pair: [PairSize]string{"decoy1", "decoy2"}, want: VerdictIncorrect},
		{name: "same image twice", pair: [PairSize]string{"content", "content"}, want: VerdictIncorrect},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := Evaluate(tc.pair, truth)
			if got != tc.want {
				t.Fatalf("got %v, want %v", got, tc.want)
			}
			swapped := Evaluate([PairSize]string{tc.pair[1], tc.pair[0]}, truth)
			if swapped != got {
				t.Fatalf("evaluation depends on order: %v vs %v", got, swapped)
			}
		})
	}
}

func TestScoreFor(t *testing.T) {
	cases := []struct {
		remaining int
		budget    int
		want      int
	}{
		{remaining: 30, budget: 30, want: 100},
		{remaining: 25, budget: 30, want: 100},
		{remaining: 21, budget: 30, want: 100},
		{remaining: 20, budget: 30, want: 50},
		{remaining: 15, budget: 30, want: 50},
		{remaining: 11, budget: 30, want: 50},
		{remaining: 10, budget: 30, want: 20},
		{remaining: 5, budget: 30, want: 20},
		{remaining: 1, budget: 30, want: 20},
		// tiers scale with the budget
		{remaining: 41, budget: 60, want: 100},
		{remaining: 40, budget: 60, want: 50},
		{remaining: 21, budget: 60, want: 50},
		{remaining: 20, budget: 60, want: 20},
	}

	for _, tc := range cases {
		if got := ScoreFor(tc.remaining, tc.budget); got != tc.want {
			t.Fatalf("ScoreFor(%d, %d): got %d, want %d", tc.remaining, tc.budget, got, tc.want)
		}
	}
}

func TestCountdown_ExpiresExactlyOnce(t *testing.T) {
	sequences := []struct {
		name string
		ops  string // t = tick, p = pause, r = resume
	}{
		{name: "plain ticks", ops: "tttttttt"},
		{name: "pause mid way", ops: "ttpttttrttttttt"},
		{name: "repeated pause resume", ops: "tprprprtpptrrtttttttt"},
		{name: "resume without pause", ops: "rrtttttttt"},
	}

	for _, tc := range sequences {
		t.Run(tc.name, func(t *testing.T) {
			var c Countdown
			c.Arm(5)
			expiries := 0
			for _, op := range tc.ops {
				switch op {
				case 't':
					if c.Tick() {
						expiries++
					}
				case 'p':
					c.Pause()
				case 'r':
					c.Resume()
				}
				if c.Remaining < 0 {
					t.Fatalf("remaining went negative: %d", c.Remaining)
				}
			}
			if expiries != 1 {
				t.Fatalf("got %d expiries, want 1", expiries)
			}
			if c.State != TimerDisarmed {
				t.Fatalf("want disarmed after expiry, got %s", c.State)
			}
		})
	}
}

func TestCountdown_PausedDoesNotDecrement(t *testing.T) {
	var c Countdown
	c.Arm(3)
	c.Pause()
	for i := 0; i < 10; i++ {
		if c.Tick() {
			t.Fatalf("paused countdown expired")
		}
	}
	if c.Remaining != 3 {
		t.Fatalf("remaining: got %d, want 3", c.Remaining)
	}
}

func TestCountdown_DisarmSuppressesExpiry(t *testing.T) {
	var c Countdown
	c.Arm(1)
	c.Disarm()
	if c.Tick() {
		t.Fatalf("disarmed countdown expired")
	}
	c.Pause()
	c.Resume()
	if c.State != TimerDisarmed {
		t.Fatalf("pause/resume re-armed a disarmed countdown: %s", c.State)
	}
}

func TestCountdown_ZeroBudgetExpiresOnFirstTick(t *testing.T) {
	var c Countdown
	c.Arm(0)
	if !c.Tick() {
		t.Fatalf("want expiry on first tick")
	}
	if c.Tick() {
		t.Fatalf("second expiry")
	}
}

func TestTracker(t *testing.T) {
	var tr Tracker

	if ok, _ := tr.Select("a", false); ok {
		t.Fatalf("ineligible pick was accepted")
	}
	if ok, done := tr.Select("a", true); !ok || done {
		t.Fatalf("first pick: accepted=%v complete=%v", ok, done)
	}
	if ok, _ := tr.Select("a", true); ok {
		t.Fatalf("duplicate pick was accepted")
	}
	if ok, done := tr.Select("b", true); !ok || !done {
		t.Fatalf("second pick: accepted=%v complete=%v", ok, done)
	}
	if ok, done := tr.Select("c", true); ok || done {
		t.Fatalf("third pick: accepted=%v complete=%v", ok, done)
	}

	pair, ok := tr.Pair()
	if !ok || pair != [PairSize]string{"a", "b"} {
		t.Fatalf("pair: got %v %v", pair, ok)
	}

	tr.Reset()
	if len(tr.Selected()) != 0 {
		t.Fatalf("reset left %v", tr.Selected())
	}
	if ok, _ := tr.Select("c", true); !ok {
		t.Fatalf("pick after reset was rejected")
	}
}

func TestTransitions_EveryPhaseHasAWayOut(t *testing.T) {
	phases := []Phase{
		PhaseLoading, PhaseLoadFailed, PhaseActive, PhaseAwaitingEvaluation,
		PhaseResolvedCorrect, PhaseResolvedIncorrect, PhaseResolvedTimeout,
	}
	for _, p := range phases {
		if len(Transitions[p]) == 0 {
			t.Fatalf("phase %s has no outgoing transition", p)
		}
	}
	if CanTransition(PhaseActive, PhaseLoading) {
		t.Fatalf("an active round must not be abandoned for a new one")
	}
}
