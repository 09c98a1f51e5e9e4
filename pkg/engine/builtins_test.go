package engine

import (
	"strings"
	"testing"

	"github.com/chazu/surftree/pkg/kernel"
	"github.com/chazu/surftree/pkg/scene"
)

// ---------------------------------------------------------------------------
// Preprocessing
// ---------------------------------------------------------------------------

func TestPreprocessSource(t *testing.T) {
	tests := []struct {
		name   string
		input  string
		expect string
	}{
		{"simple keyword", `(dome :size 2)`, `(dome "__kw_size" 2)`},
		{"keyword in string preserved", `"thing with :keyword inside"`, `"thing with :keyword inside"`},
		{"escaped quote in string", `"a \" :b"`, `"a \" :b"`},
		{"assignment operator preserved", `(def x := 10)`, `(def x := 10)`},
		{"kebab-case identifier", `(bspline-surface :degree-u 1)`, `(bspline_surface "__kw_degree-u" 1)`},
		{"minus operator preserved", `(- 10 5)`, `(- 10 5)`},
		{"negative number preserved", `(vec3 -1 0 -2)`, `(vec3 -1 0 -2)`},
		{"comment converted", `;; comment with :keyword`, `// comment with :keyword`},
		{"single semicolon comment", `; simple comment`, `// simple comment`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := preprocessSource(tt.input); got != tt.expect {
				t.Errorf("preprocessSource(%q) = %q, want %q", tt.input, got, tt.expect)
			}
		})
	}
}

func evalScene(t *testing.T, source string) *scene.Scene {
	t.Helper()
	sc, evalErrs, err := NewEngine().Evaluate(source)
	if err != nil {
		t.Fatalf("fatal error: %v", err)
	}
	if len(evalErrs) > 0 {
		t.Fatalf("eval errors: %v", evalErrs)
	}
	return sc
}

// ---------------------------------------------------------------------------
// Surfaces and faces
// ---------------------------------------------------------------------------

func TestDefsurfaceAndFace(t *testing.T) {
	sc := evalScene(t, `
(defsurface "hill" (dome :size 2 :height 0.5))
(face "top" (surface "hill"))
`)
	if sc.Len() != 2 {
		t.Fatalf("expected 2 objects, got %d", sc.Len())
	}
	s, err := sc.Surface("hill")
	if err != nil {
		t.Fatalf("Surface(hill): %v", err)
	}
	if d := s.Domain(kernel.DirU); d.Min != 0 || d.Max != 1 {
		t.Errorf("dome U domain = %v, want [0, 1]", d)
	}
	f, err := sc.Face("top")
	if err != nil {
		t.Fatalf("Face(top): %v", err)
	}
	if f.Index() != 0 {
		t.Errorf("expected face index 0, got %d", f.Index())
	}
	if len(f.Loops()) != 1 || !f.Loops()[0].IsOuter() {
		t.Errorf("expected one outer domain loop, got %d loops", len(f.Loops()))
	}
}

func TestTrimmedFace(t *testing.T) {
	sc := evalScene(t, `
(def s (plane :origin (vec3 0 0 0) :u (vec3 2 0 0) :v (vec3 0 2 0)))
(face s
  (loop (line2 0 0 1 0) (line2 1 0 1 1) (line2 1 1 0 1)
        (trim (line2 0 1 0 0) :kind :mated :adjacent 4))
  (loop :role :inner (polyline2 0.4 0.4 0.4 0.6 0.6 0.6 0.6 0.4 0.4 0.4)))
`)
	faces := sc.Faces()
	if len(faces) != 1 {
		t.Fatalf("expected 1 face, got %d", len(faces))
	}
	loops := faces[0].Loops()
	if len(loops) != 2 {
		t.Fatalf("expected 2 loops, got %d", len(loops))
	}
	if !loops[0].IsOuter() || loops[1].IsOuter() {
		t.Error("expected outer loop followed by inner loop")
	}
	last := loops[0].Trims()[3]
	if last.Kind() != kernel.TrimMated || last.AdjacentFace() != 4 {
		t.Errorf("expected mated trim to face 4, got %s to %d", last.Kind(), last.AdjacentFace())
	}
	if errs := sc.Validate(0); len(errs) != 0 {
		t.Errorf("expected a valid face, got %v", errs)
	}
}

func TestCylinderAndBspline(t *testing.T) {
	sc := evalScene(t, `
(defsurface "tube" (cylinder :radius 0.5 :height 3))
(defsurface "patch"
  (bspline-surface :degree-u 1 :degree-v 1
                   :knots-u (list 0 0 1 1) :knots-v (list 0 0 1 1)
                   :cvs (list (list (vec3 0 0 0) (vec3 0 1 0))
                              (list (vec3 1 0 0) (vec3 1 1 1)))))
`)
	tube, err := sc.Surface("tube")
	if err != nil {
		t.Fatalf("Surface(tube): %v", err)
	}
	if p := tube.PointAt(0, 1); p.Z != 3 {
		t.Errorf("expected cylinder top at z=3, got %v", p)
	}
	patch, err := sc.Surface("patch")
	if err != nil {
		t.Fatalf("Surface(patch): %v", err)
	}
	if p := patch.PointAt(1, 1); p.Z != 1 {
		t.Errorf("expected raised corner, got %v", p)
	}
}

func TestDefcurve(t *testing.T) {
	sc := evalScene(t, `
(defcurve "edge" (line3 (vec3 0 0 0) (vec3 1 1 0)))
(defcurve "uv" (line2 0 0 1 1))
`)
	c, err := sc.Curve("edge")
	if err != nil {
		t.Fatalf("Curve(edge): %v", err)
	}
	if l := c.Length(); l < 1.414 || l > 1.415 {
		t.Errorf("expected length sqrt(2), got %g", l)
	}
	if _, err := sc.Curve("uv"); err == nil {
		t.Error("a UV curve should not resolve as a 3D curve")
	}
	if o := sc.Lookup("uv"); o == nil || o.Kind != scene.KindTrim {
		t.Errorf("expected uv to be stored as a trim curve, got %v", o)
	}
}

// ---------------------------------------------------------------------------
// Argument errors
// ---------------------------------------------------------------------------

func TestBuiltinErrors(t *testing.T) {
	tests := []struct {
		name   string
		source string
		want   string
	}{
		{"vec3 arity", `(vec3 1 2)`, "vec3 requires exactly 3"},
		{"parallel plane axes", `(plane :u (vec3 1 0 0) :v (vec3 2 0 0))`, "parallel"},
		{"bad cylinder", `(cylinder :radius 0)`, "cylinder"},
		{"odd polyline", `(polyline2 0 0 1)`, "even number"},
		{"bad trim kind", `(trim (line2 0 0 1 0) :kind :weird)`, "invalid trim kind"},
		{"3D curve in loop", `(loop (line3 (vec3 0 0 0) (vec3 1 0 0)))`, "UV curve"},
		{"bad loop role", `(loop :role :sideways (line2 0 0 1 0))`, "invalid role"},
		{"face without surface", `(face "f")`, "requires a surface"},
		{"duplicate name", `(defsurface "a" (dome)) (defsurface "a" (dome))`, "duplicate"},
		{"missing surface", `(surface "nope")`, "no surface named"},
		{"bspline missing degree", `(bspline-surface :knots-u (list 0 1))`, "degree-u"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sc, evalErrs, err := NewEngine().Evaluate(tt.source)
			if err != nil {
				t.Fatalf("expected non-fatal eval error, got fatal: %v", err)
			}
			if sc != nil {
				t.Fatal("expected nil scene")
			}
			if len(evalErrs) == 0 {
				t.Fatal("expected an eval error")
			}
			if !strings.Contains(evalErrs[0].Message, tt.want) {
				t.Errorf("message = %q, want containing %q", evalErrs[0].Message, tt.want)
			}
		})
	}
}

func TestNamedIDsAreDeterministic(t *testing.T) {
	src := `(face "a" (dome)) (face (dome))`
	a := evalScene(t, src)
	b := evalScene(t, src)
	if a.Lookup("a").ID != b.Lookup("a").ID {
		t.Error("named faces should keep their ID across evaluations")
	}
	anonA, anonB := a.OfKind(scene.KindFace)[1], b.OfKind(scene.KindFace)[1]
	if anonA.ID == anonB.ID {
		t.Error("anonymous faces should get fresh IDs")
	}
}
