// Package charset holds the fixed alphabet of Brazilian licence plates.
//
// The alphabet is static. It is never derived from the labels, so every run
// writes the same file and the recognizer's output layer keeps its shape.
package charset

import (
	"strings"
)

// FileName is the alphabet file the recognizer config points at.
const FileName = "caracteres_placas_br.txt"

// plate is A-Z, 0-9 and the hyphen used by pre-Mercosul plates.
const plate = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789-"

// Symbols returns the 37 alphabet symbols in file order.
func Symbols() []string {
	out := make([]string, 0, len(plate))
	for _, r := range plate {
		out = append(out, string(r))
	}
	return out
}

// Whitelist returns the alphabet as one string, the form Tesseract's
// tessedit_char_whitelist expects.
func Whitelist() string { return plate }

// Contains reports whether r is an alphabet symbol.
func Contains(r rune) bool {
	return strings.ContainsRune(plate, r)
}

// Foreign returns the distinct runes of label that are outside the
// alphabet, in order of first appearance.
func Foreign(label string) []rune {
	var out []rune
	for _, r := range label {
		if Contains(r) {
			continue
		}
		seen := false
		for _, o := range out {
			if o == r {
				seen = true
				break
			}
		}
		if !seen {
			out = append(out, r)
		}
	}
	return out
}

// Content renders the alphabet file: one symbol per line.
func Content() []byte {
	var b strings.Builder
	for _, s := range Symbols() {
		b.WriteString(s)
		b.WriteByte('\n')
	}
	return []byte(b.String())
}
