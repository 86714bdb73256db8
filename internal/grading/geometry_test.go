package grading

import (
	"encoding/json"
	"testing"
)

func TestShapesContain(t *testing.T) {
	square := Polygon{{0, 0}, {10, 0}, {10, 10}, {0, 10}}
	concave := Polygon{{0, 0}, {10, 0}, {10, 10}, {5, 5}, {0, 10}} // notch at the top
	tests := []struct {
		name  string
		shape Shape
		p     Point
		want  bool
	}{
		{"circle centre", Circle{Center: Point{5, 5}, Radius: 2}, Point{5, 5}, true},
		{"circle boundary", Circle{Center: Point{0, 0}, Radius: 5}, Point{3, 4}, true},
		{"circle outside", Circle{Center: Point{0, 0}, Radius: 5}, Point{4, 4}, false},
		{"rect inside", Rect{Min: Point{1, 1}, Width: 4, Height: 2}, Point{3, 2}, true},
		{"rect edge inclusive", Rect{Min: Point{1, 1}, Width: 4, Height: 2}, Point{5, 3}, true},
		{"rect outside", Rect{Min: Point{1, 1}, Width: 4, Height: 2}, Point{5.01, 3}, false},
		{"square inside", square, Point{5, 5}, true},
		{"square outside", square, Point{15, 5}, false},
		{"concave body", concave, Point{5, 2}, true},
		{"concave notch", concave, Point{5, 8}, false},
		{"degenerate polygon", Polygon{{0, 0}, {10, 10}}, Point{5, 5}, false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.shape.Contains(tc.p); got != tc.want {
				t.Fatalf("Contains(%v) = %v, want %v", tc.p, got, tc.want)
			}
		})
	}
}

func TestRegionPointsAcceptBothForms(t *testing.T) {
	var r Region
	raw := `{"id":"tri","shape":"polygon","points":[[0,0],{"x":10,"y":0},[5,10]]}`
	if err := json.Unmarshal([]byte(raw), &r); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(r.Points) != 3 || r.Points[1] != (Point{10, 0}) {
		t.Fatalf("unexpected points %+v", r.Points)
	}
	if !r.Geometry().Contains(Point{5, 3}) {
		t.Fatalf("triangle should contain (5,3)")
	}
}

func TestHotspot(t *testing.T) {
	regions := []any{
		map[string]any{"id": "A", "shape": "circle", "x": 50, "y": 50, "radius": 20},
		map[string]any{"id": "B", "shape": "rectangle", "x": 40, "y": 40, "width": 100, "height": 100},
		map[string]any{"id": "C", "shape": "polygon", "points": []any{[]any{200, 200}, []any{260, 200}, []any{230, 260}}},
	}
	tests := []struct {
		name    string
		correct string
		answer  any
		full    bool
		hit     any
	}{
		{"overlap credited to first declared", "A", map[string]any{"x": 55, "y": 55}, true, "A"},
		{"overlap not credited to later region", "B", map[string]any{"x": 55, "y": 55}, false, "A"},
		{"only in B", "B", []any{120, 120}, true, "B"},
		{"polygon", "C", map[string]any{"x": 230.0, "y": 220.0}, true, "C"},
		{"miss", "A", map[string]any{"x": 500, "y": 500}, false, nil},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			q := Definition{Type: "hotspot", CorrectAnswer: tc.correct, Meta: map[string]any{"regions": regions}}
			res := grade(t, q, tc.answer)
			if res.IsCorrect != tc.full {
				t.Fatalf("got %+v", res)
			}
			if res.Details["hit_region"] != tc.hit {
				t.Fatalf("hit_region = %v, want %v", res.Details["hit_region"], tc.hit)
			}
		})
	}
}

func TestHotspotEdgeCases(t *testing.T) {
	res := grade(t, Definition{Type: "hotspot", CorrectAnswer: "A"}, map[string]any{"x": 1, "y": 1})
	if !res.IsCorrect {
		t.Fatalf("no regions should be full credit, got %+v", res)
	}
	q := Definition{Type: "hotspot", CorrectAnswer: "A", Meta: map[string]any{"regions": []any{
		map[string]any{"id": "A", "shape": "circle", "x": 0, "y": 0, "radius": 1},
	}}}
	res = grade(t, q, "somewhere")
	if res.Score != 0 || res.Feedback != "Invalid point" {
		t.Fatalf("got %+v", res)
	}
}

func TestHotspotNumericRegionIDs(t *testing.T) {
	var meta map[string]any
	raw := `{"regions":[
		{"id":1,"shape":"circle","x":10,"y":10,"radius":5},
		{"id":2,"shape":"rect","x":0,"y":0,"width":100,"height":100}]}`
	if err := json.Unmarshal([]byte(raw), &meta); err != nil {
		t.Fatal(err)
	}
	q := Definition{Type: "hotspot", CorrectAnswer: 2.0, Meta: meta}
	res := grade(t, q, map[string]any{"x": 50, "y": 50})
	if !res.IsCorrect || res.Details["hit_region"] != "2" {
		t.Fatalf("got %+v", res)
	}
	res = grade(t, q, map[string]any{"x": 10, "y": 11})
	if res.IsCorrect || res.Details["hit_region"] != "1" {
		t.Fatalf("got %+v", res)
	}
}
