package dataset

import (
	"fmt"
	"path"
	"path/filepath"
	"strings"
)

// DefaultRuleName labels records that matched no rule.
const DefaultRuleName = "default"

// Rule prefixes the basename of any declared path that contains Contains.
type Rule struct {
	Name     string
	Contains string
	Prefix   string
}

// DefaultRules are the two degraded-plate exports the image directory was
// built from.
func DefaultRules() []Rule {
	return []Rule{
		{Name: "antigas", Contains: "antigas", Prefix: "antigas_degrade_"},
		{Name: "mercosul", Contains: "mercosul", Prefix: "mercosul_degrade_"},
	}
}

// Resolver maps declared image paths onto files in one flat directory.
type Resolver struct {
	imageDir string
	rules    []Rule
}

// NewResolver returns a resolver over imageDir. The rules are copied and
// tried in order.
func NewResolver(imageDir string, rules []Rule) *Resolver {
	rs := make([]Rule, len(rules))
	copy(rs, rules)
	for i := range rs {
		if rs[i].Name == "" {
			rs[i].Name = rs[i].Contains
		}
	}
	return &Resolver{imageDir: imageDir, rules: rs}
}

// ImageDir returns the directory candidates are looked up in.
func (r *Resolver) ImageDir() string { return r.imageDir }

// Candidate returns the file name expected in the image directory and the
// name of the rule that produced it. The first rule whose Contains is a
// substring of declared wins; with no match the basename is used as is.
// Both '/' and '\' count as separators. An empty name means declared has no
// basename.
func (r *Resolver) Candidate(declared string) (name, rule string) {
	base := basename(declared)
	if base == "" {
		return "", ""
	}
	for _, rl := range r.rules {
		if strings.Contains(declared, rl.Contains) {
			return rl.Prefix + base, rl.Name
		}
	}
	return base, DefaultRuleName
}

// Resolve returns the absolute candidate path for declared. It does not
// touch the filesystem.
func (r *Resolver) Resolve(declared string) (abs, rule string, err error) {
	name, rule := r.Candidate(declared)
	if name == "" {
		return "", "", fmt.Errorf("image_path %q has no file name", declared)
	}
	abs, err = filepath.Abs(filepath.Join(r.imageDir, name))
	if err != nil {
		return "", "", fmt.Errorf("resolve %q: %w", declared, err)
	}
	return abs, rule, nil
}

func basename(p string) string {
	p = strings.TrimSpace(strings.ReplaceAll(p, `\`, "/"))
	p = strings.TrimRight(p, "/")
	if p == "" {
		return ""
	}
	b := path.Base(p)
	if b == "." || b == ".." || b == "/" {
		return ""
	}
	return b
}
