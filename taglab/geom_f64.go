package taglab

import (
	"image"
	"math"
)

// Rectangle is an axis-aligned box. X is the left edge, Y is the top edge.
type Rectangle struct {
	X      float64
	Y      float64
	Width  float64
	Height float64
}

// NewRect creates rectangle from TagLab's (top, left, width, height) convention
func NewRect(top, left, width, height float64) Rectangle {
	return Rectangle{
		X:      left,
		Y:      top,
		Width:  width,
		Height: height,
	}
}

func NewRectFrom(rect image.Rectangle) Rectangle {
	return Rectangle{
		X:      float64(rect.Min.X),
		Y:      float64(rect.Min.Y),
		Width:  float64(rect.Dx()),
		Height: float64(rect.Dy()),
	}
}

// Top returns top edge
func (r Rectangle) Top() float64 {
	return r.Y
}

// Left returns left edge
func (r Rectangle) Left() float64 {
	return r.X
}

// Area returns rectangle's area
func (r Rectangle) Area() float64 {
	return r.Width * r.Height
}

// Center returns rectangle's center
func (r Rectangle) Center() Point {
	return Point{
		X: r.X + r.Width/2.0,
		Y: r.Y + r.Height/2.0,
	}
}

// Intersect returns the overlapping part of two rectangles. Zero rectangle when they are disjoint.
func (r Rectangle) Intersect(other Rectangle) Rectangle {
	xA := maxFloat64(r.X, other.X)
	yA := maxFloat64(r.Y, other.Y)
	xB := minFloat64(r.X+r.Width, other.X+other.Width)
	yB := minFloat64(r.Y+r.Height, other.Y+other.Height)
	if xB <= xA || yB <= yA {
		return Rectangle{}
	}
	return Rectangle{X: xA, Y: yA, Width: xB - xA, Height: yB - yA}
}

// Union returns the smallest rectangle containing both rectangles
func (r Rectangle) Union(other Rectangle) Rectangle {
	if r.Width <= 0 || r.Height <= 0 {
		return other
	}
	if other.Width <= 0 || other.Height <= 0 {
		return r
	}
	xA := minFloat64(r.X, other.X)
	yA := minFloat64(r.Y, other.Y)
	xB := maxFloat64(r.X+r.Width, other.X+other.Width)
	yB := maxFloat64(r.Y+r.Height, other.Y+other.Height)
	return Rectangle{X: xA, Y: yA, Width: xB - xA, Height: yB - yA}
}

// Contains reports whether point lies inside rectangle (right and bottom edges excluded)
func (r Rectangle) Contains(p Point) bool {
	return p.X >= r.X && p.X < r.X+r.Width && p.Y >= r.Y && p.Y < r.Y+r.Height
}

// Scale multiplies every component by factor and rounds to integer coordinates
func (r Rectangle) Scale(factor float64) Rectangle {
	return Rectangle{
		X:      math.Round(r.X * factor),
		Y:      math.Round(r.Y * factor),
		Width:  math.Round(r.Width * factor),
		Height: math.Round(r.Height * factor),
	}
}

type Point struct {
	X float64
	Y float64
}

func NewPoint(x, y float64) Point {
	return Point{
		X: x,
		Y: y,
	}
}

func NewPointFrom(point image.Point) Point {
	return Point{
		X: float64(point.X),
		Y: float64(point.Y),
	}
}

func euclideanDistance(p1, p2 Point) float64 {
	return math.Sqrt(math.Pow(float64(p1.X-p2.X), 2) + math.Pow(float64(p1.Y-p2.Y), 2))
}

// scaleContour returns a scaled copy of contour
func scaleContour(contour []Point, factor float64) []Point {
	if contour == nil {
		return nil
	}
	scaled := make([]Point, len(contour))
	for i, pt := range contour {
		scaled[i] = Point{X: pt.X * factor, Y: pt.Y * factor}
	}
	return scaled
}
