// Package scene holds the named surfaces, curves, loops and faces produced
// by evaluating a scene script. A Scene is built once per evaluation and
// not mutated afterwards.
package scene

import (
	"fmt"
	"sort"

	"github.com/chazu/surftree/pkg/brep"
	"github.com/chazu/surftree/pkg/kernel"
	"github.com/google/uuid"
)

// ID identifies an object. Named objects get a name-derived ID, so the
// same script always yields the same IDs for them; anonymous objects get
// a random one.
type ID string

// ZeroID is the empty ID.
const ZeroID ID = ""

// namespace seeds name-derived IDs.
var namespace = uuid.MustParse("6f1c7d0e-2b59-4c36-9a0e-5d3b8f6c21a4")

// NamedID returns the ID for a named object of the given kind.
func NamedID(kind Kind, name string) ID {
	return ID(uuid.NewSHA1(namespace, []byte(kind.String()+"/"+name)).String())
}

// NewID returns a fresh ID for an anonymous object.
func NewID() ID {
	return ID(uuid.New().String())
}

// Short returns the first 8 characters of the ID.
func (id ID) Short() string {
	if len(id) > 8 {
		return string(id[:8])
	}
	return string(id)
}

// Kind enumerates scene object kinds.
type Kind int

const (
	KindSurface Kind = iota
	KindCurve        // 3D curve
	KindTrim         // UV curve
	KindLoop
	KindFace
)

func (k Kind) String() string {
	switch k {
	case KindSurface:
		return "surface"
	case KindCurve:
		return "curve"
	case KindTrim:
		return "trim"
	case KindLoop:
		return "loop"
	case KindFace:
		return "face"
	default:
		return "unknown"
	}
}

// Object is one scene entry.
type Object struct {
	ID   ID
	Kind Kind
	Name string
	Data Data
}

// Data is the kind-specific payload of an Object.
type Data interface {
	objectData()
}

// SurfaceData is a parametric surface and the shape that made it.
type SurfaceData struct {
	Shape   string
	Surface kernel.Surface
}

// CurveData is a curve in space, or in a surface's UV plane when UV is set.
type CurveData struct {
	Curve kernel.Curve
	UV    bool
}

// LoopData is a closed trim loop.
type LoopData struct {
	Loop *brep.Loop
}

// FaceData is a trimmed face.
type FaceData struct {
	Face *brep.Face
}

func (SurfaceData) objectData() {}
func (CurveData) objectData()   {}
func (LoopData) objectData()    {}
func (FaceData) objectData()    {}

// Scene is the result of one script evaluation.
type Scene struct {
	Objects   map[ID]*Object
	Order     []ID
	NameIndex map[string]ID
}

// New creates an empty scene.
func New() *Scene {
	return &Scene{
		Objects:   make(map[ID]*Object),
		NameIndex: make(map[string]ID),
	}
}

// Add stores o, assigning an ID when it has none. Names are unique per
// scene; a second object with a taken name is rejected.
func (s *Scene) Add(o *Object) error {
	if o.Name != "" {
		if _, ok := s.NameIndex[o.Name]; ok {
			return fmt.Errorf("scene: duplicate name %q", o.Name)
		}
	}
	if o.ID == ZeroID {
		if o.Name != "" {
			o.ID = NamedID(o.Kind, o.Name)
		} else {
			o.ID = NewID()
		}
	}
	s.Objects[o.ID] = o
	s.Order = append(s.Order, o.ID)
	if o.Name != "" {
		s.NameIndex[o.Name] = o.ID
	}
	return nil
}

// Lookup returns the object with the given name, or nil.
func (s *Scene) Lookup(name string) *Object {
	id, ok := s.NameIndex[name]
	if !ok {
		return nil
	}
	return s.Objects[id]
}

// Get returns the object with the given ID, or nil.
func (s *Scene) Get(id ID) *Object {
	return s.Objects[id]
}

// Len returns the number of objects.
func (s *Scene) Len() int {
	return len(s.Order)
}

// OfKind returns the objects of kind k in insertion order.
func (s *Scene) OfKind(k Kind) []*Object {
	var out []*Object
	for _, id := range s.Order {
		if o := s.Objects[id]; o.Kind == k {
			out = append(out, o)
		}
	}
	return out
}

// Faces returns every face in index order.
func (s *Scene) Faces() []*brep.Face {
	var faces []*brep.Face
	for _, o := range s.OfKind(KindFace) {
		faces = append(faces, o.Data.(FaceData).Face)
	}
	sort.SliceStable(faces, func(i, j int) bool { return faces[i].Index() < faces[j].Index() })
	return faces
}

// Face returns the face with the given name or index string.
func (s *Scene) Face(ref string) (*brep.Face, error) {
	if o := s.Lookup(ref); o != nil {
		fd, ok := o.Data.(FaceData)
		if !ok {
			return nil, fmt.Errorf("scene: %q is a %s, not a face", ref, o.Kind)
		}
		return fd.Face, nil
	}
	for _, f := range s.Faces() {
		if fmt.Sprint(f.Index()) == ref {
			return f, nil
		}
	}
	return nil, fmt.Errorf("scene: no face %q", ref)
}

// Surface returns the named surface. A face name resolves to its surface.
func (s *Scene) Surface(name string) (kernel.Surface, error) {
	o := s.Lookup(name)
	if o == nil {
		return nil, fmt.Errorf("scene: no surface %q", name)
	}
	switch d := o.Data.(type) {
	case SurfaceData:
		return d.Surface, nil
	case FaceData:
		return d.Face.Surface(), nil
	}
	return nil, fmt.Errorf("scene: %q is a %s, not a surface", name, o.Kind)
}

// Curve returns the named 3D curve.
func (s *Scene) Curve(name string) (kernel.Curve, error) {
	o := s.Lookup(name)
	if o == nil {
		return nil, fmt.Errorf("scene: no curve %q", name)
	}
	d, ok := o.Data.(CurveData)
	if !ok || d.UV {
		return nil, fmt.Errorf("scene: %q is a %s, not a 3D curve", name, o.Kind)
	}
	return d.Curve, nil
}

// Validate runs brep.Validate over every face, keyed by face index.
func (s *Scene) Validate(tol float64) map[int][]brep.ValidationError {
	out := make(map[int][]brep.ValidationError)
	for _, f := range s.Faces() {
		if errs := brep.Validate(f, tol); len(errs) > 0 {
			out[f.Index()] = errs
		}
	}
	return out
}
