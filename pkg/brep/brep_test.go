package brep

import (
	"testing"

	"github.com/chazu/surftree/pkg/geom"
	"github.com/chazu/surftree/pkg/kernel"
	"github.com/chazu/surftree/pkg/kernel/nurbs"
	v2 "github.com/deadsy/sdfx/vec/v2"
	v3 "github.com/deadsy/sdfx/vec/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func unitPlane() *nurbs.Surface {
	return nurbs.NewPlane(v3.Vec{}, v3.Vec{X: 1}, v3.Vec{Y: 1})
}

func codes(errs []ValidationError) []string {
	out := make([]string, len(errs))
	for i, e := range errs {
		out[i] = e.Code
	}
	return out
}

func TestRectFaceIsValid(t *testing.T) {
	f := NewRectFace(3, unitPlane())
	assert.Equal(t, 3, f.Index())
	require.Len(t, f.Loops(), 1)
	assert.True(t, f.Loops()[0].IsOuter())
	assert.Len(t, f.Loops()[0].Trims(), 4)
	assert.Empty(t, Validate(f, 0))

	box := f.Loops()[0].BoundingBox()
	assert.Equal(t, v3.Vec{X: 0, Y: 0}, box.Min)
	assert.Equal(t, v3.Vec{X: 1, Y: 1}, box.Max)
}

func TestFaceWithHoleIsValid(t *testing.T) {
	f := NewRectFace(0, unitPlane())
	f.AddLoop(RectLoop(geom.Interval{Min: 0.4, Max: 0.6}, geom.Interval{Min: 0.4, Max: 0.6}, false))
	errs := Validate(f, 0)
	assert.Empty(t, errs)
	assert.False(t, HasErrors(errs))
}

func TestValidateFindings(t *testing.T) {
	unit := geom.Interval{Min: 0, Max: 1}
	hole := RectLoop(geom.Interval{Min: 0.2, Max: 0.4}, geom.Interval{Min: 0.2, Max: 0.4}, false)
	open := NewLoop(true,
		NewTrim(nurbs.NewLine(v3.Vec{}, v3.Vec{X: 1}), kernel.TrimBoundary, NoFace),
		NewTrim(nurbs.NewLine(v3.Vec{X: 1}, v3.Vec{X: 1, Y: 1}), kernel.TrimBoundary, NoFace),
	)
	outside := RectLoop(geom.Interval{Min: 0, Max: 2}, unit, true)

	tests := []struct {
		name  string
		loops []kernel.Loop
		want  []string
	}{
		{"no loops", nil, []string{CodeNoLoops}},
		{"hole first", []kernel.Loop{hole, RectLoop(unit, unit, true)}, []string{CodeOuterNotFirst}},
		{"two outer", []kernel.Loop{RectLoop(unit, unit, true), RectLoop(unit, unit, true)}, []string{CodeMultipleOuter}},
		{"empty loop", []kernel.Loop{RectLoop(unit, unit, true), NewLoop(false)}, []string{CodeEmptyLoop}},
		{"open loop", []kernel.Loop{open}, []string{CodeOpenLoop}},
		{"outside domain", []kernel.Loop{outside}, []string{CodeOutsideDomain, CodeOutsideDomain, CodeOutsideDomain}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := NewFace(0, unitPlane(), tt.loops...)
			errs := Validate(f, 0)
			assert.Equal(t, tt.want, codes(errs))
			assert.True(t, HasErrors(errs))
		})
	}
}

func TestDegenerateTrimIsWarning(t *testing.T) {
	loop, err := PolylineLoop([]v2.Vec{
		{X: 0, Y: 0}, {X: 1, Y: 0}, {X: 1, Y: 0}, {X: 1, Y: 1}, {X: 0, Y: 1},
	}, true)
	require.NoError(t, err)
	pin := NewTrim(nurbs.NewLine(v3.Vec{}, v3.Vec{}), kernel.TrimSingular, NoFace)
	withPin := NewLoop(true, append([]kernel.Trim{pin}, loop.Trims()...)...)

	errs := Validate(NewFace(0, unitPlane(), withPin), 0)
	require.Len(t, errs, 1)
	assert.Equal(t, CodeDegenerate, errs[0].Code)
	assert.Equal(t, SeverityWarning, errs[0].Severity)
	assert.False(t, HasErrors(errs))
	assert.Contains(t, errs[0].Error(), "loop 0, trim 0")
}

func TestPolylineLoopCloses(t *testing.T) {
	loop, err := PolylineLoop([]v2.Vec{{X: 0.1, Y: 0.1}, {X: 0.9, Y: 0.1}, {X: 0.5, Y: 0.9}}, true)
	require.NoError(t, err)
	c := loop.Trims()[0].Curve()
	assert.Equal(t, 3.0, c.Domain().Max)
	assert.Equal(t, c.PointAt(0), c.PointAt(3))

	_, err = PolylineLoop([]v2.Vec{{}, {X: 1}}, true)
	assert.Error(t, err)
}
