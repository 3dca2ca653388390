package gcode

import "strings"

// Split splits a program into lines without their "\n" terminators. A "\r"
// before the newline stays part of the line. The second result reports
// whether the program ended with a newline.
func Split(data []byte) ([]string, bool) {
	if len(data) == 0 {
		return nil, false
	}
	s := string(data)
	trailing := strings.HasSuffix(s, "\n")
	if trailing {
		s = s[:len(s)-1]
	}
	return strings.Split(s, "\n"), trailing
}

// LineEnding returns "\r" when raw carries a CRLF remainder, so generated
// lines can copy the source's convention.
func LineEnding(raw string) string {
	if strings.HasSuffix(raw, "\r") {
		return "\r"
	}
	return ""
}
