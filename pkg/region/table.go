package region

import (
	"github.com/vtprint/vtp/pkg/errors"
	"github.com/vtprint/vtp/pkg/field"
	"github.com/vtprint/vtp/pkg/geom"
	"github.com/vtprint/vtp/pkg/solid"
)

// Table holds the regions of a project in declaration order.
type Table struct {
	regions []*Region
	byName  map[string]*Region
}

// NewTable compiles one equation pair per solid. Solids and pairs are
// matched by position. It fails with a CONFIGURATION error when the counts
// differ, when an expression does not compile or when a name repeats.
func NewTable(solids []solid.Named, pairs []field.Pair) (*Table, error) {
	if len(solids) == 0 {
		return nil, errors.New(errors.ErrCodeConfiguration, "no regions declared")
	}
	if len(pairs) != len(solids) {
		return nil, errors.New(errors.ErrCodeConfiguration,
			"%d equation pairs for %d solids", len(pairs), len(solids))
	}

	regions := make([]*Region, len(solids))
	for i, s := range solids {
		mult, geo, err := pairs[i].Compile()
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeConfiguration, err, "region %q", s.Name)
		}
		regions[i] = &Region{Name: s.Name, Solid: s.Solid, Multiplier: mult, Geometry: geo}
	}
	return New(regions...)
}

// New builds a table from ready-made regions. Index is assigned from the
// argument order.
func New(regions ...*Region) (*Table, error) {
	if len(regions) == 0 {
		return nil, errors.New(errors.ErrCodeConfiguration, "no regions declared")
	}
	t := &Table{
		regions: make([]*Region, len(regions)),
		byName:  make(map[string]*Region, len(regions)),
	}
	for i, r := range regions {
		if err := errors.ValidateRegionName(r.Name); err != nil {
			return nil, errors.Wrap(errors.ErrCodeConfiguration, err, "region %d", i)
		}
		if _, dup := t.byName[r.Name]; dup {
			return nil, errors.New(errors.ErrCodeConfiguration, "region %q declared twice", r.Name)
		}
		if r.Solid == nil || r.Multiplier == nil || r.Geometry == nil {
			return nil, errors.New(errors.ErrCodeConfiguration, "region %q is incomplete", r.Name)
		}
		cp := *r
		cp.Index = i
		t.regions[i] = &cp
		t.byName[r.Name] = &cp
	}
	return t, nil
}

// Regions returns the regions in declaration order.
func (t *Table) Regions() []*Region {
	out := make([]*Region, len(t.regions))
	copy(out, t.regions)
	return out
}

// Len returns the number of regions.
func (t *Table) Len() int { return len(t.regions) }

// Lookup returns the region with the given name.
func (t *Table) Lookup(name string) (*Region, bool) {
	r, ok := t.byName[name]
	return r, ok
}

// Fields returns the field pair bound to r.
func (t *Table) Fields(r *Region) (mult, geo field.Evaluator) {
	return r.Multiplier, r.Geometry
}

// Evaluate evaluates the field pair of r at p. A nil region is outside
// every region and yields Unity. Regions from another table are rejected.
func (t *Table) Evaluate(r *Region, p geom.Point) (Values, error) {
	if r == nil {
		return Unity, nil
	}
	if r.Index < 0 || r.Index >= len(t.regions) || t.regions[r.Index] != r {
		return Values{}, errors.New(errors.ErrCodeConfiguration, "region %q is not in this table", r.Name)
	}
	return r.Evaluate(p)
}

// Classifier returns a classifier over the table's regions.
func (t *Table) Classifier(policy OutsidePolicy) *Classifier {
	return NewClassifier(t.regions, policy)
}
