package dataset

// LabelRecord is one entry of the labels file.
type LabelRecord struct {
	// Text is the target label, e.g. a plate string.
	Text string `json:"text"`
	// ImagePath is a hint; only its basename and the rule substrings matter.
	ImagePath string `json:"image_path"`
	// Index is the position in the labels array, kept for diagnostics.
	Index int `json:"-"`
}

// ResolvedRecord is a record whose image was found on disk.
type ResolvedRecord struct {
	// Path is absolute and existed when the filter checked it.
	Path  string `json:"path"`
	Label string `json:"label"`
	// Rule names the resolver rule that produced Path ("default" if none).
	Rule  string `json:"rule"`
	Index int    `json:"index"`
}

// Partition is the split of a filtered dataset. The three slices are
// disjoint and together hold every filtered record exactly once.
type Partition struct {
	Train []ResolvedRecord
	Test  []ResolvedRecord
	Eval  []ResolvedRecord
}

// Len returns the total number of records across all three sets.
func (p Partition) Len() int {
	return len(p.Train) + len(p.Test) + len(p.Eval)
}

// Named returns the sets in output order with their file stems.
func (p Partition) Named() []NamedSplit {
	return []NamedSplit{
		{Name: "train", Records: p.Train},
		{Name: "test", Records: p.Test},
		{Name: "eval", Records: p.Eval},
	}
}

// NamedSplit pairs a set with its file stem.
type NamedSplit struct {
	Name    string
	Records []ResolvedRecord
}
