package dataset

import (
	"fmt"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func makeRecords(n int, rules ...string) []ResolvedRecord {
	if len(rules) == 0 {
		rules = []string{DefaultRuleName}
	}
	out := make([]ResolvedRecord, n)
	for i := range out {
		out[i] = ResolvedRecord{
			Path:  fmt.Sprintf("/imgs/%04d.png", i),
			Label: fmt.Sprintf("ABC%04d", i),
			Rule:  rules[i%len(rules)],
			Index: i,
		}
	}
	return out
}

func indexSet(rs []ResolvedRecord) map[int]bool {
	m := make(map[int]bool, len(rs))
	for _, r := range rs {
		m[r.Index] = true
	}
	return m
}

func TestSplitter_Sizes(t *testing.T) {
	s := DefaultSplitter()
	tests := []struct {
		n                 int
		train, test, eval int
	}{
		{3, 1, 1, 1},
		{4, 2, 1, 1},
		{10, 8, 1, 1},
		{11, 8, 1, 2},
		{15, 12, 1, 2},
		{100, 80, 10, 10},
		{1000, 800, 100, 100},
		{1001, 800, 100, 101},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprint(tt.n), func(t *testing.T) {
			train, test, eval := s.Sizes(tt.n)
			assert.Equal(t, []int{tt.train, tt.test, tt.eval}, []int{train, test, eval})
			assert.Equal(t, tt.n, train+test+eval)
		})
	}
}

func TestSplitter_EveryRecordExactlyOnce(t *testing.T) {
	for _, n := range []int{3, 7, 10, 99, 500} {
		t.Run(fmt.Sprint(n), func(t *testing.T) {
			recs := makeRecords(n)
			p, err := DefaultSplitter().Split(recs)
			require.NoError(t, err)

			require.Equal(t, n, p.Len())
			seen := map[int]int{}
			for _, set := range [][]ResolvedRecord{p.Train, p.Test, p.Eval} {
				require.NotEmpty(t, set)
				for _, r := range set {
					seen[r.Index]++
				}
			}
			require.Len(t, seen, n)
			for idx, c := range seen {
				require.Equal(t, 1, c, "record %d appears %d times", idx, c)
			}
		})
	}
}

func TestSplitter_Proportions(t *testing.T) {
	n := 1000
	p, err := DefaultSplitter().Split(makeRecords(n))
	require.NoError(t, err)
	assert.InDelta(t, 0.8*float64(n), len(p.Train), 1)
	assert.InDelta(t, 0.1*float64(n), len(p.Test), 1)
	assert.InDelta(t, 0.1*float64(n), len(p.Eval), 1)
}

func TestSplitter_Deterministic(t *testing.T) {
	recs := makeRecords(250)
	a, err := DefaultSplitter().Split(recs)
	require.NoError(t, err)
	b, err := DefaultSplitter().Split(recs)
	require.NoError(t, err)

	if diff := cmp.Diff(a, b); diff != "" {
		t.Errorf("same seed gave different partitions (-first +second):\n%s", diff)
	}
}

func TestSplitter_SeedChangesMembership(t *testing.T) {
	recs := makeRecords(250)
	a, err := Splitter{Seed: 1, HoldoutFraction: 0.2, EvalFraction: 0.5}.Split(recs)
	require.NoError(t, err)
	b, err := Splitter{Seed: 2, HoldoutFraction: 0.2, EvalFraction: 0.5}.Split(recs)
	require.NoError(t, err)
	assert.NotEqual(t, indexSet(a.Eval), indexSet(b.Eval))
}

func TestSplitter_DoesNotMutateInput(t *testing.T) {
	recs := makeRecords(20)
	before := append([]ResolvedRecord(nil), recs...)
	_, err := DefaultSplitter().Split(recs)
	require.NoError(t, err)
	assert.Equal(t, before, recs)
}

func TestSplitter_Shuffles(t *testing.T) {
	p, err := DefaultSplitter().Split(makeRecords(100))
	require.NoError(t, err)
	inOrder := true
	for i, r := range p.Train {
		if r.Index != i {
			inOrder = false
			break
		}
	}
	assert.False(t, inOrder, "train should not be the unshuffled prefix")
}

func TestSplitter_TooSmall(t *testing.T) {
	_, err := DefaultSplitter().Split(nil)
	require.ErrorIs(t, err, ErrNoValidRecords)

	_, err = DefaultSplitter().Split(makeRecords(2))
	require.ErrorIs(t, err, ErrTooFewRecords)
}

func TestSplitter_BadFractions(t *testing.T) {
	_, err := Splitter{HoldoutFraction: 0, EvalFraction: 0.5}.Split(makeRecords(10))
	require.Error(t, err)
	_, err = Splitter{HoldoutFraction: 0.2, EvalFraction: 1}.Split(makeRecords(10))
	require.Error(t, err)
}

func TestSplitter_Stratified(t *testing.T) {
	recs := makeRecords(300, "antigas", "mercosul", DefaultRuleName)
	s := DefaultSplitter()
	s.Stratify = true

	p, err := s.Split(recs)
	require.NoError(t, err)
	require.Equal(t, 300, p.Len())

	count := func(set []ResolvedRecord) map[string]int {
		m := map[string]int{}
		for _, r := range set {
			m[r.Rule]++
		}
		return m
	}
	assert.Equal(t, map[string]int{"antigas": 80, "mercosul": 80, DefaultRuleName: 80}, count(p.Train))
	assert.Equal(t, map[string]int{"antigas": 10, "mercosul": 10, DefaultRuleName: 10}, count(p.Test))
	assert.Equal(t, map[string]int{"antigas": 10, "mercosul": 10, DefaultRuleName: 10}, count(p.Eval))

	again, err := s.Split(recs)
	require.NoError(t, err)
	assert.Empty(t, cmp.Diff(p, again))
}

func TestSplitter_StratifiedSmallGroupsGoToTrain(t *testing.T) {
	recs := makeRecords(20)
	recs[0].Rule = "rare"
	recs[1].Rule = "rare"
	s := DefaultSplitter()
	s.Stratify = true

	p, err := s.Split(recs)
	require.NoError(t, err)
	train := indexSet(p.Train)
	assert.True(t, train[0])
	assert.True(t, train[1])
	assert.Equal(t, 20, p.Len())
}

func TestSplitter_StratifiedFallsBack(t *testing.T) {
	// Every group is too small to stratify; the plain policy still fills
	// all three partitions.
	recs := makeRecords(6, "a", "b", "c")
	s := DefaultSplitter()
	s.Stratify = true

	p, err := s.Split(recs)
	require.NoError(t, err)
	assert.NotEmpty(t, p.Train)
	assert.NotEmpty(t, p.Test)
	assert.NotEmpty(t, p.Eval)
}
