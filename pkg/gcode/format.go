package gcode

import (
	"strconv"
	"strings"
)

// Format controls how generated lines are written.
type Format struct {
	PrecXYZ int // Decimals for X, Y and Z
	PrecE   int // Decimals for E
}

// DefaultFormat matches common slicer output.
var DefaultFormat = Format{PrecXYZ: 3, PrecE: 5}

// Move writes a G1 line. Unset words are omitted; tag, when non-empty, is
// written as a "; vtp:<tag>" comment.
func (f Format) Move(x, y, z, e, feed Word, tag string) string {
	var b strings.Builder
	b.WriteString("G1")
	f.word(&b, 'X', x, f.PrecXYZ)
	f.word(&b, 'Y', y, f.PrecXYZ)
	f.word(&b, 'Z', z, f.PrecXYZ)
	f.word(&b, 'E', e, f.PrecE)
	f.word(&b, 'F', feed, -1)
	writeTag(&b, tag)
	return b.String()
}

// SetE writes a "G92 E<v>" line.
func (f Format) SetE(v float64, tag string) string {
	var b strings.Builder
	b.WriteString("G92")
	f.word(&b, 'E', W(v), f.PrecE)
	writeTag(&b, tag)
	return b.String()
}

// FormatFloat writes v with prec decimals, or with the fewest digits that
// round-trip (capped at 3 decimals) when prec is negative. Negative zero is
// written as zero.
func FormatFloat(v float64, prec int) string {
	if prec < 0 {
		v = roundTo(v, 3)
	}
	s := strconv.FormatFloat(v, 'f', prec, 64)
	if strings.HasPrefix(s, "-") && strings.Trim(s, "-0.") == "" {
		s = s[1:]
	}
	return s
}

func (f Format) word(b *strings.Builder, letter byte, w Word, prec int) {
	if !w.Set {
		return
	}
	b.WriteByte(' ')
	b.WriteByte(letter)
	b.WriteString(FormatFloat(w.Value, prec))
}

func writeTag(b *strings.Builder, tag string) {
	if tag == "" {
		return
	}
	b.WriteString(" ; ")
	b.WriteString(TagPrefix)
	b.WriteString(tag)
}

func roundTo(v float64, prec int) float64 {
	s := strconv.FormatFloat(v, 'f', prec, 64)
	r, _ := strconv.ParseFloat(s, 64)
	return r
}

func parseFloat(s string) (float64, error) {
	return strconv.ParseFloat(strings.TrimSpace(s), 64)
}
