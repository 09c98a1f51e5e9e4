package scene

import (
	"testing"

	"github.com/chazu/surftree/pkg/brep"
	"github.com/chazu/surftree/pkg/geom"
	"github.com/chazu/surftree/pkg/kernel/nurbs"
	v3 "github.com/deadsy/sdfx/vec/v3"
)

func unitPlane() *nurbs.Surface {
	return nurbs.NewPlane(v3.Vec{}, v3.Vec{X: 1}, v3.Vec{Y: 1})
}

func TestAddAndLookup(t *testing.T) {
	s := New()
	if err := s.Add(&Object{Kind: KindSurface, Name: "floor", Data: SurfaceData{Shape: "plane", Surface: unitPlane()}}); err != nil {
		t.Fatalf("add: %v", err)
	}
	if err := s.Add(&Object{Kind: KindCurve, Data: CurveData{Curve: nurbs.NewLine(v3.Vec{}, v3.Vec{X: 1})}}); err != nil {
		t.Fatalf("add anonymous: %v", err)
	}

	if s.Len() != 2 {
		t.Fatalf("expected 2 objects, got %d", s.Len())
	}
	o := s.Lookup("floor")
	if o == nil {
		t.Fatal("expected object named 'floor'")
	}
	if o.ID != NamedID(KindSurface, "floor") {
		t.Errorf("named object got ID %s, want name-derived ID", o.ID)
	}
	if s.Get(o.ID) != o {
		t.Error("Get should return the same object as Lookup")
	}
	if _, err := s.Surface("floor"); err != nil {
		t.Errorf("Surface(floor): %v", err)
	}
	if _, err := s.Curve("floor"); err == nil {
		t.Error("Curve(floor) should fail for a surface")
	}
}

func TestNamedIDIsStable(t *testing.T) {
	a := NamedID(KindFace, "top")
	b := NamedID(KindFace, "top")
	if a != b {
		t.Error("same name should produce same ID")
	}
	if a == NamedID(KindSurface, "top") {
		t.Error("different kinds should produce different IDs")
	}
	if NewID() == NewID() {
		t.Error("anonymous IDs should differ")
	}
	if len(a.Short()) != 8 {
		t.Errorf("Short() = %q, want 8 characters", a.Short())
	}
}

func TestDuplicateNameRejected(t *testing.T) {
	s := New()
	o := &Object{Kind: KindSurface, Name: "x", Data: SurfaceData{Surface: unitPlane()}}
	if err := s.Add(o); err != nil {
		t.Fatalf("add: %v", err)
	}
	if err := s.Add(&Object{Kind: KindCurve, Name: "x"}); err == nil {
		t.Fatal("expected duplicate name error")
	}
}

func TestFacesInIndexOrder(t *testing.T) {
	s := New()
	for _, idx := range []int{2, 0, 1} {
		f := brep.NewRectFace(idx, unitPlane())
		if err := s.Add(&Object{Kind: KindFace, Data: FaceData{Face: f}}); err != nil {
			t.Fatalf("add face %d: %v", idx, err)
		}
	}
	faces := s.Faces()
	for i, f := range faces {
		if f.Index() != i {
			t.Errorf("faces[%d].Index() = %d", i, f.Index())
		}
	}
	f, err := s.Face("1")
	if err != nil || f.Index() != 1 {
		t.Errorf("Face(\"1\") = %v, %v", f, err)
	}
	if _, err := s.Face("9"); err == nil {
		t.Error("expected error for missing face")
	}
}

func TestValidateReportsBadFaces(t *testing.T) {
	s := New()
	good := brep.NewRectFace(0, unitPlane())
	bad := brep.NewFace(1, unitPlane(),
		brep.RectLoop(geom.Interval{Min: 0.5, Max: 2}, geom.Interval{Min: 0, Max: 1}, true))
	for _, f := range []*brep.Face{good, bad} {
		if err := s.Add(&Object{Kind: KindFace, Data: FaceData{Face: f}}); err != nil {
			t.Fatalf("add: %v", err)
		}
	}
	got := s.Validate(brep.DefaultClosureTol)
	if _, ok := got[0]; ok {
		t.Errorf("face 0 should be valid, got %v", got[0])
	}
	if !brep.HasErrors(got[1]) {
		t.Errorf("face 1 should report trims outside the domain, got %v", got[1])
	}
}
