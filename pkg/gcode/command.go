// Package gcode reads and writes the subset of G-code the transform needs.
//
// Only motion and mode commands are interpreted: G0/G1 moves, G90/G91
// positioning, M82/M83 extrusion mode and G92 position resets. Every line
// keeps its original text so that uninterpreted content is written back
// byte for byte.
//
// Slicer annotations drive feature classification: block markers such as
// ";TYPE:External perimeter" and the per-line comments PrusaSlicer writes in
// verbose mode ("; infill", "; travel to first layer point", "; retract").
package gcode

import (
	"strconv"
	"strings"
)

// Word is an optional numeric parameter.
type Word struct {
	Value float64
	Set   bool
}

// W returns a set Word.
func W(v float64) Word { return Word{Value: v, Set: true} }

// Or returns the word's value, or def when unset.
func (w Word) Or(def float64) float64 {
	if w.Set {
		return w.Value
	}
	return def
}

// Command is one parsed line.
type Command struct {
	Line    int    // 1-based source line number
	Raw     string // Original text without the line terminator
	Code    string // Normalised command code ("G1", "M83"); empty for comment-only lines
	X, Y, Z Word
	E, F    Word
	Comment string // Text after ';', trimmed
	// Malformed is set when a move or G92 has an axis word that does not
	// parse. Such lines are passed through untouched.
	Malformed bool
}

// Parse parses one line of G-code. It never fails: lines it cannot
// interpret come back with an empty Code or with Malformed set. A leading
// N line number is skipped.
func Parse(raw string, line int) Command {
	c := Command{Line: line, Raw: raw}
	body := strings.TrimRight(raw, "\r")
	if i := strings.IndexByte(body, ';'); i >= 0 {
		c.Comment = strings.TrimSpace(body[i+1:])
		body = body[:i]
	}

	words := tokenize(body)
	if len(words) > 0 && words[0][0] == 'N' {
		words = words[1:]
	}
	if len(words) == 0 {
		return c
	}
	code, ok := normaliseCode(words[0])
	if !ok {
		return c
	}
	c.Code = code
	strict := c.IsMove() || c.Code == "G92"

	for _, w := range words[1:] {
		v, err := strconv.ParseFloat(w[1:], 64)
		if err != nil {
			if strict && isAxis(w[0]) {
				c.Malformed = true
			}
			continue
		}
		switch w[0] {
		case 'X':
			c.X = W(v)
		case 'Y':
			c.Y = W(v)
		case 'Z':
			c.Z = W(v)
		case 'E':
			c.E = W(v)
		case 'F':
			c.F = W(v)
		}
	}
	return c
}

// IsMove reports whether c is a linear or rapid move.
func (c Command) IsMove() bool {
	return c.Code == "G0" || c.Code == "G1"
}

// HasXYZ reports whether any positional axis is present.
func (c Command) HasXYZ() bool {
	return c.X.Set || c.Y.Set || c.Z.Set
}

// Tagged reports whether the line was written by this tool.
func (c Command) Tagged() bool {
	return strings.HasPrefix(c.Comment, TagPrefix)
}

// tokenize splits a comment-free line into letter-prefixed words. Both
// "G1 X10 E.5" and the compact "G1X10E.5" forms are accepted.
func tokenize(s string) []string {
	var words []string
	i := 0
	for i < len(s) {
		ch := s[i]
		if ch == ' ' || ch == '\t' {
			i++
			continue
		}
		j := i + 1
		for j < len(s) && isNumberByte(s[j]) {
			j++
		}
		words = append(words, strings.ToUpper(s[i:i+1])+s[i+1:j])
		i = j
	}
	return words
}

func isNumberByte(b byte) bool {
	return (b >= '0' && b <= '9') || b == '.' || b == '-' || b == '+'
}

func isAxis(b byte) bool {
	switch b {
	case 'X', 'Y', 'Z', 'E', 'F':
		return true
	}
	return false
}

// normaliseCode maps "g01" to "G1" and "M083" to "M83".
func normaliseCode(w string) (string, bool) {
	if len(w) < 2 {
		return "", false
	}
	letter := w[0]
	if letter < 'A' || letter > 'Z' {
		return "", false
	}
	num := w[1:]
	if i := strings.IndexByte(num, '.'); i >= 0 {
		if strings.Trim(num[i+1:], "0") != "" {
			return w, true
		}
		num = num[:i]
	}
	n, err := strconv.Atoi(num)
	if err != nil || n < 0 {
		return "", false
	}
	return string(letter) + strconv.Itoa(n), true
}
