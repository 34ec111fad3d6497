package dataset

import (
	"fmt"
	"math"
	"math/rand/v2"
)

// pcgStream is the fixed second PCG word; only Seed varies between runs.
const pcgStream = 0x9e3779b97f4a7c15

// minSplit is the smallest set that can give each partition one record.
const minSplit = 3

// Splitter partitions filtered records into train, test and eval.
//
// The policy is a Fisher-Yates shuffle of record indices driven by a PCG
// generator seeded with Seed. Of n records, h = ceil(HoldoutFraction*n) are
// held out and the rest become train, in shuffled order. The holdout is
// split again: eval takes ceil(EvalFraction*h) and test the remainder. With
// the defaults (0.2, 0.5) that is 80/10/10.
//
// For n >= 3 every partition gets at least one record, taken from train.
//
// With Stratify, records are grouped by resolver rule and each group is
// split on its own, so every plate family shows up in every partition.
// Groups smaller than three go wholly to train. If that would leave test or
// eval empty, the split falls back to the unstratified policy.
type Splitter struct {
	Seed            uint64
	HoldoutFraction float64
	EvalFraction    float64
	Stratify        bool
}

// DefaultSplitter returns the 80/10/10 splitter with seed 42.
func DefaultSplitter() Splitter {
	return Splitter{Seed: 42, HoldoutFraction: 0.2, EvalFraction: 0.5}
}

// Split partitions records. The input slice is not modified. The same
// Splitter and the same input order always give the same result.
func (s Splitter) Split(records []ResolvedRecord) (Partition, error) {
	n := len(records)
	if n == 0 {
		return Partition{}, fmt.Errorf("%w: nothing to split", ErrNoValidRecords)
	}
	if n < minSplit {
		return Partition{}, fmt.Errorf("%w: have %d, need at least %d", ErrTooFewRecords, n, minSplit)
	}
	if s.HoldoutFraction <= 0 || s.HoldoutFraction >= 1 || s.EvalFraction <= 0 || s.EvalFraction >= 1 {
		return Partition{}, fmt.Errorf("split fractions must be in (0, 1): holdout=%v eval=%v",
			s.HoldoutFraction, s.EvalFraction)
	}

	if s.Stratify {
		if p, ok := s.splitStratified(records); ok {
			return p, nil
		}
	}
	rng := s.newRand()
	return s.splitGroup(rng, records), nil
}

func (s Splitter) newRand() *rand.Rand {
	return rand.New(rand.NewPCG(s.Seed, pcgStream))
}

// Sizes returns (train, test, eval) sizes for n records, n >= 3.
func (s Splitter) Sizes(n int) (train, test, eval int) {
	h := ceilFrac(s.HoldoutFraction, n)
	h = max(h, 2)
	h = min(h, n-1)

	eval = ceilFrac(s.EvalFraction, h)
	eval = max(eval, 1)
	eval = min(eval, h-1)
	return n - h, h - eval, eval
}

func (s Splitter) splitGroup(rng *rand.Rand, records []ResolvedRecord) Partition {
	n := len(records)
	perm := rng.Perm(n)
	nTrain, nTest, _ := s.Sizes(n)

	pick := func(idx []int) []ResolvedRecord {
		out := make([]ResolvedRecord, len(idx))
		for i, j := range idx {
			out[i] = records[j]
		}
		return out
	}
	return Partition{
		Train: pick(perm[:nTrain]),
		Test:  pick(perm[nTrain : nTrain+nTest]),
		Eval:  pick(perm[nTrain+nTest:]),
	}
}

func (s Splitter) splitStratified(records []ResolvedRecord) (Partition, bool) {
	var order []string
	groups := map[string][]ResolvedRecord{}
	for _, r := range records {
		if _, ok := groups[r.Rule]; !ok {
			order = append(order, r.Rule)
		}
		groups[r.Rule] = append(groups[r.Rule], r)
	}

	rng := s.newRand()
	var p Partition
	for _, name := range order {
		g := groups[name]
		if len(g) < minSplit {
			p.Train = append(p.Train, g...)
			continue
		}
		gp := s.splitGroup(rng, g)
		p.Train = append(p.Train, gp.Train...)
		p.Test = append(p.Test, gp.Test...)
		p.Eval = append(p.Eval, gp.Eval...)
	}
	if len(p.Test) == 0 || len(p.Eval) == 0 {
		return Partition{}, false
	}
	return p, true
}

// ceilFrac is ceil(f*n), tolerant of float noise such as 0.2*15 landing a
// hair above 3.
func ceilFrac(f float64, n int) int {
	return int(math.Ceil(f*float64(n) - 1e-9))
}
