package grading

import (
	"encoding/json"
	"fmt"
	"math"
	"strings"
)

type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// UnmarshalJSON accepts {"x":..,"y":..} as well as [x, y].
func (p *Point) UnmarshalJSON(b []byte) error {
	var arr []float64
	if err := json.Unmarshal(b, &arr); err == nil {
		if len(arr) != 2 {
			return fmt.Errorf("point needs 2 coordinates, got %d", len(arr))
		}
		p.X, p.Y = arr[0], arr[1]
		return nil
	}
	type plain Point
	return json.Unmarshal(b, (*plain)(p))
}

// Shape is anything a point can be hit-tested against.
type Shape interface {
	Contains(p Point) bool
}

type Circle struct {
	Center Point
	Radius float64
}

// Contains uses the Euclidean distance, boundary inclusive.
func (c Circle) Contains(p Point) bool {
	return math.Hypot(p.X-c.Center.X, p.Y-c.Center.Y) <= c.Radius
}

// Rect is axis aligned with its origin at the top-left corner.
type Rect struct {
	Min           Point
	Width, Height float64
}

func (r Rect) Contains(p Point) bool {
	return p.X >= r.Min.X && p.X <= r.Min.X+r.Width &&
		p.Y >= r.Min.Y && p.Y <= r.Min.Y+r.Height
}

type Polygon []Point

// Contains casts a horizontal ray from p and counts edge crossings.
// Fewer than three vertices never contain anything.
func (poly Polygon) Contains(p Point) bool {
	n := len(poly)
	if n < 3 {
		return false
	}
	inside := false
	for i, j := 0, n-1; i < n; j, i = i, i+1 {
		a, b := poly[i], poly[j]
		if (a.Y > p.Y) != (b.Y > p.Y) &&
			p.X < (b.X-a.X)*(p.Y-a.Y)/(b.Y-a.Y)+a.X {
			inside = !inside
		}
	}
	return inside
}

// Region is a labelled hotspot area as authored in question metadata.
type Region struct {
	ID     string  `json:"id"`
	Shape  string  `json:"shape"`
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Radius float64 `json:"radius,omitempty"`
	Width  float64 `json:"width,omitempty"`
	Height float64 `json:"height,omitempty"`
	Points []Point `json:"points,omitempty"`
}

// UnmarshalJSON accepts numeric ids ("id": 1) as well as strings.
func (r *Region) UnmarshalJSON(b []byte) error {
	type plain Region
	var raw struct {
		plain
		ID any `json:"id"`
	}
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	*r = Region(raw.plain)
	r.ID = textOf(raw.ID)
	return nil
}

// Geometry resolves the region into a Shape. Unknown shapes resolve to nil.
func (r Region) Geometry() Shape {
	switch strings.ToLower(strings.TrimSpace(r.Shape)) {
	case "circle":
		return Circle{Center: Point{X: r.X, Y: r.Y}, Radius: r.Radius}
	case "rect", "rectangle":
		return Rect{Min: Point{X: r.X, Y: r.Y}, Width: r.Width, Height: r.Height}
	case "polygon", "poly":
		return Polygon(r.Points)
	case "":
		switch {
		case len(r.Points) > 0:
			return Polygon(r.Points)
		case r.Radius > 0:
			return Circle{Center: Point{X: r.X, Y: r.Y}, Radius: r.Radius}
		case r.Width > 0 || r.Height > 0:
			return Rect{Min: Point{X: r.X, Y: r.Y}, Width: r.Width, Height: r.Height}
		}
	}
	return nil
}

// firstHit returns the first region, in declaration order, that contains p.
func firstHit(regions []Region, p Point) (Region, bool) {
	for _, r := range regions {
		s := r.Geometry()
		if s != nil && s.Contains(p) {
			return r, true
		}
	}
	return Region{}, false
}
