package solid

import (
	"io"
	"os"

	"github.com/unixpickle/model3d/model3d"

	"github.com/vtprint/vtp/pkg/errors"
	"github.com/vtprint/vtp/pkg/geom"
)

// Mesh is a solid bounded by a closed triangle mesh.
type Mesh struct {
	inside *model3d.ColliderSolid
	sdf    model3d.SDF
	min    geom.Point
	max    geom.Point
	tris   int
}

var (
	_ Solid     = (*Mesh)(nil)
	_ Distancer = (*Mesh)(nil)
)

// LoadSTL reads a binary or ASCII STL file.
func LoadSTL(path string) (*Mesh, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.Wrap(errors.ErrCodeFileNotFound, err, "mesh %s", path)
		}
		return nil, errors.Wrap(errors.ErrCodeConfiguration, err, "open mesh %s", path)
	}
	defer f.Close()

	m, err := ReadSTL(f)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeConfiguration, err, "mesh %s", path)
	}
	return m, nil
}

// ReadSTL decodes an STL stream. The mesh must be closed and manifold,
// otherwise containment is undefined and an error is returned.
func ReadSTL(r io.Reader) (*Mesh, error) {
	tris, err := model3d.ReadSTL(r)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeConfiguration, err, "decode STL")
	}
	if len(tris) == 0 {
		return nil, errors.New(errors.ErrCodeConfiguration, "STL contains no triangles")
	}
	return NewMesh(model3d.NewMeshTriangles(tris))
}

// NewMesh builds a solid from a model3d mesh.
func NewMesh(m *model3d.Mesh) (*Mesh, error) {
	if m.NeedsRepair() {
		return nil, errors.New(errors.ErrCodeConfiguration, "mesh is not watertight")
	}
	return &Mesh{
		inside: model3d.NewColliderSolid(model3d.MeshToCollider(m)),
		sdf:    model3d.MeshToSDF(m),
		min:    geom.Point(m.Min()),
		max:    geom.Point(m.Max()),
		tris:   len(m.TriangleSlice()),
	}, nil
}

// Contains reports whether p is enclosed by the mesh.
func (m *Mesh) Contains(p geom.Point) bool {
	if p.X < m.min.X || p.Y < m.min.Y || p.Z < m.min.Z ||
		p.X > m.max.X || p.Y > m.max.Y || p.Z > m.max.Z {
		return false
	}
	return m.inside.Contains(model3d.Coord3D(p))
}

// Distance returns the signed distance to the mesh surface, negative inside.
func (m *Mesh) Distance(p geom.Point) float64 {
	// model3d reports positive distances inside.
	return -m.sdf.SDF(model3d.Coord3D(p))
}

// Bounds returns the mesh's axis-aligned bounding box.
func (m *Mesh) Bounds() (lo, hi geom.Point) { return m.min, m.max }

// Triangles returns the number of triangles in the mesh.
func (m *Mesh) Triangles() int { return m.tris }
