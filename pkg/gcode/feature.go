package gcode

import "strings"

// Feature names the kind of extrusion a line belongs to, in lower case
// ("external perimeter", "infill", "travel"). The empty Feature means no
// annotation has been seen.
type Feature string

// Features with special meaning to the transform.
const (
	FeatureUnknown  Feature = ""
	FeatureTravel   Feature = "travel"
	FeatureRetract  Feature = "retract"
	FeatureWipe     Feature = "wipe"
	FeaturePreamble Feature = "preamble" // Start code before the first ;TYPE: of an annotated program
)

// TagPrefix starts the comment of every line the transform writes.
const TagPrefix = "vtp:"

// Deposits reports whether moves of this feature lay down material.
func (f Feature) Deposits() bool {
	switch f {
	case FeatureTravel, FeatureRetract, FeatureWipe, FeaturePreamble:
		return false
	}
	return true
}

// Normalise lower-cases and trims a feature name. Cura's upper-case names
// ("WALL-OUTER") map to the same style as PrusaSlicer's.
func Normalise(name string) Feature {
	return Feature(strings.ToLower(strings.TrimSpace(name)))
}

// TypeMarker parses a ";TYPE:<name>" block marker. The comment is the text
// after ';'.
func TypeMarker(comment string) (Feature, bool) {
	name, ok := strings.CutPrefix(comment, "TYPE:")
	if !ok {
		return FeatureUnknown, false
	}
	return Normalise(name), true
}

// Annotated reports whether any of lines is a ;TYPE: block marker.
func Annotated(lines []string) bool {
	for _, l := range lines {
		body, ok := strings.CutPrefix(strings.TrimSpace(l), ";")
		if !ok {
			continue
		}
		if _, ok := TypeMarker(strings.TrimSpace(body)); ok {
			return true
		}
	}
	return false
}

// LayerZ parses a ";Z:<height>" layer marker.
func LayerZ(comment string) (float64, bool) {
	v, ok := strings.CutPrefix(comment, "Z:")
	if !ok {
		return 0, false
	}
	z, err := parseFloat(v)
	return z, err == nil
}

// IsNozzleCheck reports whether a comment marks a nozzle-check line.
func IsNozzleCheck(comment string) bool {
	return strings.Contains(strings.ToLower(comment), "nozzle check")
}

// verbose maps PrusaSlicer verbose-mode comment prefixes to features.
// Longer prefixes come first.
var verbose = []struct {
	prefix  string
	feature Feature
}{
	{"travel", FeatureTravel},
	{"move", FeatureTravel},
	{"lift", FeatureTravel},
	{"restore layer", FeatureTravel},
	{"unretract", FeatureRetract},
	{"retract", FeatureRetract},
	{"wipe", FeatureWipe},
	{"external perimeter", "external perimeter"},
	{"overhang perimeter", "overhang perimeter"},
	{"perimeter", "perimeter"},
	{"solid infill", "solid infill"},
	{"top solid infill", "top solid infill"},
	{"bridge infill", "bridge infill"},
	{"infill", "infill"},
	{"support material interface", "support material interface"},
	{"support", "support material"},
	{"skirt", "skirt"},
	{"brim", "brim"},
	{"gap fill", "gap fill"},
	{"ironing", "ironing"},
}

// LineFeature classifies a line from its own trailing comment, as written
// by slicers in verbose mode. It reports false when the comment names no
// known feature, in which case the current block feature applies.
func LineFeature(comment string) (Feature, bool) {
	c := strings.ToLower(comment)
	if c == "" || strings.HasPrefix(c, TagPrefix) {
		return FeatureUnknown, false
	}
	for _, v := range verbose {
		if strings.HasPrefix(c, v.prefix) {
			return v.feature, true
		}
	}
	return FeatureUnknown, false
}
