package field

import (
	"bufio"
	"io"
	"strings"

	"github.com/vtprint/vtp/pkg/errors"
)

// Pair holds the expression text of a region's two fields.
type Pair struct {
	Multiplier string `json:"multiplier" toml:"multiplier" yaml:"multiplier"`
	Geometry   string `json:"geometry" toml:"geometry" yaml:"geometry"`
}

// Compile compiles both expressions of the pair.
func (p Pair) Compile() (mult, geo *Expr, err error) {
	if mult, err = Compile("multiplier", p.Multiplier); err != nil {
		return nil, nil, err
	}
	if geo, err = Compile("geometry", p.Geometry); err != nil {
		return nil, nil, err
	}
	return mult, geo, nil
}

// ParsePairs reads an equation file: one "multiplier ; geometry" pair per
// line, in region declaration order. Blank lines and lines starting with '#'
// are skipped. Expressions are not compiled here.
//
//	# core        shell
//	1.0 ; 1.0
//	1 + z/100 ; 1.2
func ParsePairs(r io.Reader) ([]Pair, error) {
	var pairs []Pair
	sc := bufio.NewScanner(r)
	lineNum := 0
	for sc.Scan() {
		lineNum++
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		parts := strings.Split(line, ";")
		if len(parts) != 2 {
			return nil, errors.New(errors.ErrCodeConfiguration,
				"equations line %d: want \"multiplier ; geometry\", got %d fields", lineNum, len(parts))
		}
		p := Pair{Multiplier: strings.TrimSpace(parts[0]), Geometry: strings.TrimSpace(parts[1])}
		if p.Multiplier == "" || p.Geometry == "" {
			return nil, errors.New(errors.ErrCodeConfiguration, "equations line %d: empty expression", lineNum)
		}
		pairs = append(pairs, p)
	}
	if err := sc.Err(); err != nil {
		return nil, errors.Wrap(errors.ErrCodeConfiguration, err, "read equations")
	}
	if len(pairs) == 0 {
		return nil, errors.New(errors.ErrCodeConfiguration, "no equation pairs found")
	}
	return pairs, nil
}
