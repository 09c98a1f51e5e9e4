package engine

import (
	"fmt"

	"github.com/chazu/surftree/pkg/brep"
	"github.com/chazu/surftree/pkg/geom"
	"github.com/chazu/surftree/pkg/kernel"
	"github.com/chazu/surftree/pkg/kernel/nurbs"
	"github.com/chazu/surftree/pkg/scene"
	v2 "github.com/deadsy/sdfx/vec/v2"
	v3 "github.com/deadsy/sdfx/vec/v3"
	zygo "github.com/glycerine/zygomys/zygo"
)

// ---------------------------------------------------------------------------
// Go values passed between builtins
// ---------------------------------------------------------------------------

type sexpVec3 struct{ vec v3.Vec }

func (v *sexpVec3) SexpString(*zygo.PrintState) string {
	return fmt.Sprintf("(vec3 %g %g %g)", v.vec.X, v.vec.Y, v.vec.Z)
}
func (v *sexpVec3) Type() *zygo.RegisteredType { return nil }

type sexpSurface struct {
	shape string
	surf  kernel.Surface
}

func (s *sexpSurface) SexpString(*zygo.PrintState) string {
	u, v := s.surf.Domain(kernel.DirU), s.surf.Domain(kernel.DirV)
	return fmt.Sprintf("(%s %s x %s)", s.shape, u, v)
}
func (s *sexpSurface) Type() *zygo.RegisteredType { return nil }

// sexpCurve is a 3D curve, or a UV curve when uv is set.
type sexpCurve struct {
	curve kernel.Curve
	uv    bool
}

func (c *sexpCurve) SexpString(*zygo.PrintState) string {
	kind := "curve"
	if c.uv {
		kind = "uv-curve"
	}
	return fmt.Sprintf("(%s %s)", kind, c.curve.Domain())
}
func (c *sexpCurve) Type() *zygo.RegisteredType { return nil }

type sexpTrim struct{ trim *brep.Trim }

func (t *sexpTrim) SexpString(*zygo.PrintState) string {
	return fmt.Sprintf("(trim :kind %s :adjacent %d)", t.trim.Kind(), t.trim.AdjacentFace())
}
func (t *sexpTrim) Type() *zygo.RegisteredType { return nil }

type sexpLoop struct{ loop *brep.Loop }

func (l *sexpLoop) SexpString(*zygo.PrintState) string {
	role := "inner"
	if l.loop.IsOuter() {
		role = "outer"
	}
	return fmt.Sprintf("(loop :role %s, %d trims)", role, len(l.loop.Trims()))
}
func (l *sexpLoop) Type() *zygo.RegisteredType { return nil }

type sexpFace struct {
	id   scene.ID
	face *brep.Face
}

func (f *sexpFace) SexpString(*zygo.PrintState) string {
	return fmt.Sprintf("(face %d %s)", f.face.Index(), f.id.Short())
}
func (f *sexpFace) Type() *zygo.RegisteredType { return nil }

func toVec3(s zygo.Sexp) (v3.Vec, error) {
	if v, ok := s.(*sexpVec3); ok {
		return v.vec, nil
	}
	return v3.Vec{}, fmt.Errorf("expected vec3, got %T (%s)", s, s.SexpString(nil))
}

func toSurface(s zygo.Sexp) (*sexpSurface, error) {
	if v, ok := s.(*sexpSurface); ok {
		return v, nil
	}
	return nil, fmt.Errorf("expected surface, got %T (%s)", s, s.SexpString(nil))
}

func toCurve(s zygo.Sexp) (*sexpCurve, error) {
	if v, ok := s.(*sexpCurve); ok {
		return v, nil
	}
	return nil, fmt.Errorf("expected curve, got %T (%s)", s, s.SexpString(nil))
}

// toTrim accepts a trim or a bare UV curve, which becomes a boundary trim.
func toTrim(s zygo.Sexp) (*brep.Trim, error) {
	switch v := s.(type) {
	case *sexpTrim:
		return v.trim, nil
	case *sexpCurve:
		if !v.uv {
			return nil, fmt.Errorf("expected UV curve, got a 3D curve")
		}
		return brep.NewTrim(v.curve, kernel.TrimBoundary, brep.NoFace), nil
	}
	return nil, fmt.Errorf("expected trim or UV curve, got %T (%s)", s, s.SexpString(nil))
}

func toTrimKind(s zygo.Sexp) (kernel.TrimKind, error) {
	name, err := toKeywordString(s)
	if err != nil {
		return kernel.TrimUnknown, err
	}
	for _, k := range []kernel.TrimKind{kernel.TrimBoundary, kernel.TrimMated, kernel.TrimSeam, kernel.TrimSingular} {
		if k.String() == name {
			return k, nil
		}
	}
	return kernel.TrimUnknown, fmt.Errorf("invalid trim kind %q, expected boundary, mated, seam or singular", name)
}

// vecKW reads an optional vec3 keyword argument.
func vecKW(pa kwArgs, key string, def v3.Vec) (v3.Vec, error) {
	v, ok := pa.kw[key]
	if !ok {
		return def, nil
	}
	return toVec3(v)
}

// floatKW reads an optional numeric keyword argument.
func floatKW(pa kwArgs, key string, def float64) (float64, error) {
	v, ok := pa.kw[key]
	if !ok {
		return def, nil
	}
	return toFloat64(v)
}

// ---------------------------------------------------------------------------
// Builtin registration
// ---------------------------------------------------------------------------

// registerBuiltins installs the scene builtins. They populate sc as the
// script runs. Sources must go through preprocessSource first.
func registerBuiltins(env *zygo.Zlisp, sc *scene.Scene) {

	// (vec3 1 2 3)
	env.AddFunction("vec3", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		if len(args) != 3 {
			return zygo.SexpNull, fmt.Errorf("vec3 requires exactly 3 arguments, got %d", len(args))
		}
		var xyz [3]float64
		for i, a := range args {
			f, err := toFloat64(a)
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("vec3: %c: %w", "xyz"[i], err)
			}
			xyz[i] = f
		}
		return &sexpVec3{vec: v3.Vec{X: xyz[0], Y: xyz[1], Z: xyz[2]}}, nil
	})

	// (plane :origin (vec3 0 0 0) :u (vec3 1 0 0) :v (vec3 0 1 0))
	env.AddFunction("plane", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		pa := parseArgs(args)
		origin, err := vecKW(pa, "origin", v3.Vec{})
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("plane: origin: %w", err)
		}
		u, err := vecKW(pa, "u", v3.Vec{X: 1})
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("plane: u: %w", err)
		}
		v, err := vecKW(pa, "v", v3.Vec{Y: 1})
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("plane: v: %w", err)
		}
		if u.Cross(v).Length() == 0 {
			return zygo.SexpNull, fmt.Errorf("plane: u and v axes are parallel")
		}
		return &sexpSurface{shape: "plane", surf: nurbs.NewPlane(origin, u, v)}, nil
	})

	// (dome :size 1 :height 0.5)
	env.AddFunction("dome", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		pa := parseArgs(args)
		size, err := floatKW(pa, "size", 1)
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("dome: size: %w", err)
		}
		height, err := floatKW(pa, "height", 1)
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("dome: height: %w", err)
		}
		if size <= 0 {
			return zygo.SexpNull, fmt.Errorf("dome: size must be positive, got %g", size)
		}
		return &sexpSurface{shape: "dome", surf: nurbs.NewDome(size, height)}, nil
	})

	// (cylinder :center (vec3 0 0 0) :radius 1 :height 2)
	env.AddFunction("cylinder", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		pa := parseArgs(args)
		center, err := vecKW(pa, "center", v3.Vec{})
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("cylinder: center: %w", err)
		}
		radius, err := floatKW(pa, "radius", 1)
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("cylinder: radius: %w", err)
		}
		height, err := floatKW(pa, "height", 1)
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("cylinder: height: %w", err)
		}
		s, err := nurbs.NewCylinder(center, radius, height)
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("cylinder: %w", err)
		}
		return &sexpSurface{shape: "cylinder", surf: s}, nil
	})

	// (bspline-surface :degree-u 1 :degree-v 1
	//                  :knots-u (list 0 0 1 1) :knots-v (list 0 0 1 1)
	//                  :cvs (list (list p00 p01) (list p10 p11))
	//                  :weights (list (list 1 1) (list 1 1)))
	env.AddFunction("bspline_surface", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		pa := parseArgs(args)
		var degs [2]int
		var knots [2][]float64
		for i, dir := range []string{"u", "v"} {
			v, ok := pa.kw["degree-"+dir]
			if !ok {
				return zygo.SexpNull, fmt.Errorf("bspline-surface: missing :degree-%s", dir)
			}
			d, err := toInt(v)
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("bspline-surface: degree-%s: %w", dir, err)
			}
			degs[i] = d
			v, ok = pa.kw["knots-"+dir]
			if !ok {
				return zygo.SexpNull, fmt.Errorf("bspline-surface: missing :knots-%s", dir)
			}
			if knots[i], err = toFloats(v); err != nil {
				return zygo.SexpNull, fmt.Errorf("bspline-surface: knots-%s: %w", dir, err)
			}
		}

		rowsArg, ok := pa.kw["cvs"]
		if !ok {
			return zygo.SexpNull, fmt.Errorf("bspline-surface: missing :cvs")
		}
		rows, err := sexpListToSlice(rowsArg)
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("bspline-surface: cvs: %w", err)
		}
		cvs := make([][]v3.Vec, len(rows))
		for i, r := range rows {
			items, err := sexpListToSlice(r)
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("bspline-surface: cvs row %d: %w", i, err)
			}
			cvs[i] = make([]v3.Vec, len(items))
			for j, it := range items {
				if cvs[i][j], err = toVec3(it); err != nil {
					return zygo.SexpNull, fmt.Errorf("bspline-surface: cv %d,%d: %w", i, j, err)
				}
			}
		}

		var weights [][]float64
		if wArg, ok := pa.kw["weights"]; ok {
			wRows, err := sexpListToSlice(wArg)
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("bspline-surface: weights: %w", err)
			}
			weights = make([][]float64, len(wRows))
			for i, r := range wRows {
				if weights[i], err = toFloats(r); err != nil {
					return zygo.SexpNull, fmt.Errorf("bspline-surface: weights row %d: %w", i, err)
				}
			}
		}

		s, err := nurbs.NewSurface(degs[0], degs[1], knots[0], knots[1], cvs, weights)
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("bspline-surface: %w", err)
		}
		return &sexpSurface{shape: "bspline-surface", surf: s}, nil
	})

	// (line2 u0 v0 u1 v1)
	env.AddFunction("line2", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		if len(args) != 4 {
			return zygo.SexpNull, fmt.Errorf("line2 requires exactly 4 arguments, got %d", len(args))
		}
		pts, err := uvPoints(args)
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("line2: %w", err)
		}
		return &sexpCurve{curve: nurbs.NewLine(geom.Lift(pts[0]), geom.Lift(pts[1])), uv: true}, nil
	})

	// (polyline2 u0 v0 u1 v1 u2 v2 ...)
	env.AddFunction("polyline2", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		if len(args) < 4 || len(args)%2 != 0 {
			return zygo.SexpNull, fmt.Errorf("polyline2 requires an even number of coordinates, at least 4, got %d", len(args))
		}
		pts, err := uvPoints(args)
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("polyline2: %w", err)
		}
		lifted := make([]v3.Vec, len(pts))
		for i, p := range pts {
			lifted[i] = geom.Lift(p)
		}
		c, err := nurbs.NewPolyline(lifted)
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("polyline2: %w", err)
		}
		return &sexpCurve{curve: c, uv: true}, nil
	})

	// (line3 (vec3 0 0 0) (vec3 1 0 0))
	env.AddFunction("line3", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		if len(args) != 2 {
			return zygo.SexpNull, fmt.Errorf("line3 requires exactly 2 arguments, got %d", len(args))
		}
		a, err := toVec3(args[0])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("line3: start: %w", err)
		}
		b, err := toVec3(args[1])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("line3: end: %w", err)
		}
		return &sexpCurve{curve: nurbs.NewLine(a, b)}, nil
	})

	// (trim (line2 0 0 1 0) :kind :mated :adjacent 3)
	env.AddFunction("trim", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		pa := parseArgs(args)
		if len(pa.positional) != 1 {
			return zygo.SexpNull, fmt.Errorf("trim requires exactly one curve")
		}
		c, err := toCurve(pa.positional[0])
		if err != nil || !c.uv {
			return zygo.SexpNull, fmt.Errorf("trim: curve must be a UV curve")
		}
		kind := kernel.TrimBoundary
		if v, ok := pa.kw["kind"]; ok {
			if kind, err = toTrimKind(v); err != nil {
				return zygo.SexpNull, fmt.Errorf("trim: kind: %w", err)
			}
		}
		adjacent := brep.NoFace
		if v, ok := pa.kw["adjacent"]; ok {
			if adjacent, err = toInt(v); err != nil {
				return zygo.SexpNull, fmt.Errorf("trim: adjacent: %w", err)
			}
		}
		return &sexpTrim{trim: brep.NewTrim(c.curve, kind, adjacent)}, nil
	})

	// (loop :role :inner (line2 ...) (trim ...) ...)
	env.AddFunction("loop", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		pa := parseArgs(args)
		outer := true
		if v, ok := pa.kw["role"]; ok {
			role, err := toKeywordString(v)
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("loop: role: %w", err)
			}
			switch role {
			case "outer":
			case "inner":
				outer = false
			default:
				return zygo.SexpNull, fmt.Errorf("loop: invalid role %q, expected outer or inner", role)
			}
		}
		if len(pa.positional) == 0 {
			return zygo.SexpNull, fmt.Errorf("loop requires at least one trim")
		}
		trims := make([]kernel.Trim, len(pa.positional))
		for i, a := range pa.positional {
			t, err := toTrim(a)
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("loop: trim %d: %w", i, err)
			}
			trims[i] = t
		}
		return &sexpLoop{loop: brep.NewLoop(outer, trims...)}, nil
	})

	// (face "name" surface loop...) or (face surface). Without loops the
	// face is bounded by its surface's domain.
	env.AddFunction("face", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		pa := parseArgs(args)
		pos := pa.positional
		faceName := ""
		if len(pos) > 0 {
			if s, err := toString(pos[0]); err == nil {
				faceName, pos = s, pos[1:]
			}
		}
		if len(pos) == 0 {
			return zygo.SexpNull, fmt.Errorf("face requires a surface")
		}
		s, err := toSurface(pos[0])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("face: %w", err)
		}

		index := len(sc.OfKind(scene.KindFace))
		var f *brep.Face
		if len(pos) == 1 {
			f = brep.NewRectFace(index, s.surf)
		} else {
			f = brep.NewFace(index, s.surf)
			for i, a := range pos[1:] {
				l, ok := a.(*sexpLoop)
				if !ok {
					return zygo.SexpNull, fmt.Errorf("face: loop %d: expected loop, got %T", i, a)
				}
				f.AddLoop(l.loop)
			}
		}

		o := &scene.Object{Kind: scene.KindFace, Name: faceName, Data: scene.FaceData{Face: f}}
		if err := sc.Add(o); err != nil {
			return zygo.SexpNull, fmt.Errorf("face: %w", err)
		}
		return &sexpFace{id: o.ID, face: f}, nil
	})

	// (defsurface "name" (dome ...))
	env.AddFunction("defsurface", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		if len(args) != 2 {
			return zygo.SexpNull, fmt.Errorf("defsurface requires a name and a surface")
		}
		n, err := toString(args[0])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("defsurface: name: %w", err)
		}
		s, err := toSurface(args[1])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("defsurface: %w", err)
		}
		o := &scene.Object{Kind: scene.KindSurface, Name: n, Data: scene.SurfaceData{Shape: s.shape, Surface: s.surf}}
		if err := sc.Add(o); err != nil {
			return zygo.SexpNull, fmt.Errorf("defsurface: %w", err)
		}
		return s, nil
	})

	// (defcurve "name" (line3 ...))
	env.AddFunction("defcurve", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		if len(args) != 2 {
			return zygo.SexpNull, fmt.Errorf("defcurve requires a name and a curve")
		}
		n, err := toString(args[0])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("defcurve: name: %w", err)
		}
		c, err := toCurve(args[1])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("defcurve: %w", err)
		}
		kind := scene.KindCurve
		if c.uv {
			kind = scene.KindTrim
		}
		o := &scene.Object{Kind: kind, Name: n, Data: scene.CurveData{Curve: c.curve, UV: c.uv}}
		if err := sc.Add(o); err != nil {
			return zygo.SexpNull, fmt.Errorf("defcurve: %w", err)
		}
		return c, nil
	})

	// (surface "name")
	env.AddFunction("surface", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		if len(args) != 1 {
			return zygo.SexpNull, fmt.Errorf("surface requires a name argument")
		}
		n, err := toString(args[0])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("surface: name: %w", err)
		}
		o := sc.Lookup(n)
		if o == nil {
			return zygo.SexpNull, fmt.Errorf("surface: no surface named %q", n)
		}
		d, ok := o.Data.(scene.SurfaceData)
		if !ok {
			return zygo.SexpNull, fmt.Errorf("surface: %q is a %s", n, o.Kind)
		}
		return &sexpSurface{shape: d.Shape, surf: d.Surface}, nil
	})
}

func uvPoints(args []zygo.Sexp) ([]v2.Vec, error) {
	pts := make([]v2.Vec, len(args)/2)
	for i := range pts {
		u, err := toFloat64(args[2*i])
		if err != nil {
			return nil, fmt.Errorf("point %d: u: %w", i, err)
		}
		v, err := toFloat64(args[2*i+1])
		if err != nil {
			return nil, fmt.Errorf("point %d: v: %w", i, err)
		}
		pts[i] = geom.UV(u, v)
	}
	return pts, nil
}
