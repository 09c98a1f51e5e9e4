// Package export writes parameter-space geometry as GeoJSON. UV
// coordinates map to GeoJSON x/y, so pullback curves, intersection
// polylines and index leaf boxes can be inspected in any GeoJSON viewer.
package export

import (
	"fmt"
	"io"

	"github.com/chazu/surftree/pkg/curvetree"
	"github.com/chazu/surftree/pkg/geom"
	"github.com/chazu/surftree/pkg/intersect"
	"github.com/chazu/surftree/pkg/kernel"
	"github.com/chazu/surftree/pkg/surftree"
	v2 "github.com/deadsy/sdfx/vec/v2"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
)

// DefaultSamples is the number of points a curve is sampled at.
const DefaultSamples = 64

// Feature kinds, stored in the "kind" property.
const (
	KindPullback     = "pullback"
	KindIntersection = "intersection"
	KindCurveLeaf    = "curve-leaf"
	KindSurfaceLeaf  = "surface-leaf"
)

func point(p v2.Vec) orb.Point {
	return orb.Point{p.X, p.Y}
}

// LineString samples a UV curve at n evenly spaced parameters.
func LineString(c kernel.Curve, n int) orb.LineString {
	if n < 2 {
		n = DefaultSamples
	}
	d := c.Domain()
	ls := make(orb.LineString, n)
	for i := range ls {
		ls[i] = point(geom.Flatten(c.PointAt(d.ParameterAt(float64(i) / float64(n-1)))))
	}
	return ls
}

// Polyline converts UV points to a line string without resampling.
func Polyline(pts []v2.Vec) orb.LineString {
	ls := make(orb.LineString, len(pts))
	for i, p := range pts {
		ls[i] = point(p)
	}
	return ls
}

// Rect returns the closed polygon of the UV rectangle u x v.
func Rect(u, v geom.Interval) orb.Polygon {
	return orb.Polygon{orb.Ring{
		{u.Min, v.Min}, {u.Max, v.Min}, {u.Max, v.Max}, {u.Min, v.Max}, {u.Min, v.Min},
	}}
}

// Pullback returns the feature of a pulled-back curve on face.
func Pullback(face int, c kernel.Curve, samples int) *geojson.Feature {
	f := geojson.NewFeature(LineString(c, samples))
	f.Properties = geojson.Properties{
		"kind": KindPullback,
		"face": face,
	}
	return f
}

// Intersections returns two features per result, one on each surface's
// domain.
func Intersections(results []intersect.Result) *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()
	for i, r := range results {
		for _, side := range []struct {
			name string
			pts  []v2.Vec
		}{{"a", r.UVA}, {"b", r.UVB}} {
			f := geojson.NewFeature(Polyline(side.pts))
			f.Properties = geojson.Properties{
				"kind":     KindIntersection,
				"polyline": i,
				"side":     side.name,
				"closed":   r.Closed,
				"points":   len(side.pts),
			}
			fc.Append(f)
		}
	}
	return fc
}

// CurveTreeLeaves returns a polygon per curve tree leaf box.
func CurveTreeLeaves(t *curvetree.Tree) *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()
	for _, h := range t.Leaves() {
		n := t.Node(h)
		u := geom.Interval{Min: n.Box.Min.X, Max: n.Box.Max.X}
		v := geom.Interval{Min: n.Box.Min.Y, Max: n.Box.Max.Y}
		f := geojson.NewFeature(Rect(u, v))
		f.Properties = geojson.Properties{
			"kind":     KindCurveLeaf,
			"node":     h,
			"loop":     n.Loop,
			"trim":     n.TrimIndex,
			"trimKind": n.Kind.String(),
			"adjacent": n.AdjacentFace,
			"inner":    n.Inner,
		}
		fc.Append(f)
	}
	return fc
}

// SurfaceTreeLeaves returns a polygon per surface tree leaf domain.
func SurfaceTreeLeaves(t *surftree.Tree) *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()
	for _, h := range t.Leaves() {
		n := t.Node(h)
		f := geojson.NewFeature(Rect(n.U, n.V))
		f.Properties = geojson.Properties{
			"kind":      KindSurfaceLeaf,
			"node":      h,
			"depth":     n.Depth,
			"checkTrim": n.CheckTrim,
			"trimmed":   n.Trimmed,
		}
		fc.Append(f)
	}
	return fc
}

// Write encodes fc to w.
func Write(w io.Writer, fc *geojson.FeatureCollection) error {
	data, err := fc.MarshalJSON()
	if err != nil {
		return fmt.Errorf("export: encode geojson: %w", err)
	}
	if _, err := w.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("export: write geojson: %w", err)
	}
	return nil
}
