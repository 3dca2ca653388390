package solid

import (
	"path/filepath"
	"strings"

	"github.com/mitchellh/mapstructure"

	"github.com/vtprint/vtp/pkg/errors"
	"github.com/vtprint/vtp/pkg/geom"
)

// Spec is the declarative form of a solid as written in a project file.
//
//	[regions.solid]
//	type = "box"
//	center = [100, 100, 5]
//	size = [40, 40, 10]
type Spec struct {
	Type     string           `mapstructure:"type"`
	Center   []float64        `mapstructure:"center"`
	Size     []float64        `mapstructure:"size"`
	Min      []float64        `mapstructure:"min"`
	Max      []float64        `mapstructure:"max"`
	Radius   float64          `mapstructure:"radius"`
	Height   float64          `mapstructure:"height"`
	Round    float64          `mapstructure:"round"`
	Normal   []float64        `mapstructure:"normal"`
	Offset   float64          `mapstructure:"offset"`
	Path     string           `mapstructure:"path"`
	Children []map[string]any `mapstructure:"children"`
}

// Solid types understood by Decode.
const (
	TypeBox          = "box"
	TypeSphere       = "sphere"
	TypeCylinder     = "cylinder"
	TypeMesh         = "mesh"
	TypeUnion        = "union"
	TypeDifference   = "difference"
	TypeIntersection = "intersection"
	TypeHalfSpace    = "halfspace"
	TypeEverywhere   = "everywhere"
)

// Decode builds a solid from a free-form table. Relative mesh paths are
// resolved against baseDir.
func Decode(raw map[string]any, baseDir string) (Solid, error) {
	var spec Spec
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           &spec,
		ErrorUnused:      true,
		WeaklyTypedInput: true,
	})
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInternal, err, "solid decoder")
	}
	if err := dec.Decode(raw); err != nil {
		return nil, errors.Wrap(errors.ErrCodeConfiguration, err, "decode solid")
	}
	return spec.Build(baseDir)
}

// Build constructs the solid described by s.
func (s Spec) Build(baseDir string) (Solid, error) {
	typ := strings.ToLower(strings.TrimSpace(s.Type))
	switch typ {
	case TypeEverywhere:
		return Everywhere{}, nil
	case TypeMesh:
		if err := errors.ValidatePath(s.Path); err != nil {
			return nil, err
		}
		path := s.Path
		if !filepath.IsAbs(path) {
			path = filepath.Join(baseDir, path)
		}
		return LoadSTL(path)
	case TypeHalfSpace:
		n, err := vec("normal", s.Normal)
		if err != nil {
			return nil, err
		}
		l := geom.Distance(geom.Point{}, n)
		if l == 0 {
			return nil, errors.New(errors.ErrCodeConfiguration, "halfspace: zero normal")
		}
		return HalfSpace{Normal: geom.Pt(n.X/l, n.Y/l, n.Z/l), Offset: s.Offset}, nil
	}
	return s.shape(typ, baseDir)
}

func (s Spec) shape(typ, baseDir string) (*Shape, error) {
	switch typ {
	case TypeBox:
		if s.Min != nil || s.Max != nil {
			lo, err := vec("min", s.Min)
			if err != nil {
				return nil, err
			}
			hi, err := vec("max", s.Max)
			if err != nil {
				return nil, err
			}
			if hi.X < lo.X || hi.Y < lo.Y || hi.Z < lo.Z {
				return nil, errors.New(errors.ErrCodeConfiguration, "box: max below min")
			}
			return BoxBetween(lo, hi)
		}
		c, err := optVec("center", s.Center)
		if err != nil {
			return nil, err
		}
		size, err := vec("size", s.Size)
		if err != nil {
			return nil, err
		}
		return Box(c, size, s.Round)
	case TypeSphere:
		c, err := optVec("center", s.Center)
		if err != nil {
			return nil, err
		}
		return Sphere(c, s.Radius)
	case TypeCylinder:
		c, err := optVec("center", s.Center)
		if err != nil {
			return nil, err
		}
		return Cylinder(c, s.Height, s.Radius, s.Round)
	case TypeUnion, TypeDifference, TypeIntersection:
		children, err := s.children(typ, baseDir)
		if err != nil {
			return nil, err
		}
		switch typ {
		case TypeUnion:
			return Union(children...), nil
		case TypeDifference:
			return Difference(children[0], children[1:]...), nil
		default:
			out := children[0]
			for _, c := range children[1:] {
				out = Intersection(out, c)
			}
			return out, nil
		}
	case "":
		return nil, errors.New(errors.ErrCodeConfiguration, "solid type is required")
	default:
		return nil, errors.New(errors.ErrCodeUnsupported, "unknown solid type %q", s.Type)
	}
}

func (s Spec) children(typ, baseDir string) ([]*Shape, error) {
	if len(s.Children) == 0 {
		return nil, errors.New(errors.ErrCodeConfiguration, "%s: no children", typ)
	}
	out := make([]*Shape, 0, len(s.Children))
	for i, raw := range s.Children {
		child, err := Decode(raw, baseDir)
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeConfiguration, err, "%s child %d", typ, i)
		}
		shape, ok := child.(*Shape)
		if !ok {
			return nil, errors.New(errors.ErrCodeUnsupported, "%s child %d: only primitive shapes can be combined", typ, i)
		}
		out = append(out, shape)
	}
	return out, nil
}

func vec(name string, v []float64) (geom.Point, error) {
	if len(v) != 3 {
		return geom.Point{}, errors.New(errors.ErrCodeConfiguration, "%s: want 3 coordinates, got %d", name, len(v))
	}
	return geom.Pt(v[0], v[1], v[2]), nil
}

func optVec(name string, v []float64) (geom.Point, error) {
	if v == nil {
		return geom.Point{}, nil
	}
	return vec(name, v)
}
