package core

import (
	"math"

	"github.com/signalsfoundry/auxetic-sensor/model"
)

// unitEpsilon is the norm below which a vector is treated as zero-length.
const unitEpsilon = 1e-12

// interpEpsilon is the endpoint separation below which interpolation
// collapses to the first endpoint.
const interpEpsilon = 1e-12

// Distance returns the straight-line distance between two points.
func Distance(p, q model.Point) float64 {
	return math.Hypot(q.X-p.X, q.Y-p.Y)
}

// Norm returns the Euclidean norm of v.
func Norm(v model.Point) float64 {
	return math.Hypot(v.X, v.Y)
}

// Add returns p + q.
func Add(p, q model.Point) model.Point {
	return model.Point{X: p.X + q.X, Y: p.Y + q.Y}
}

// Sub returns p - q.
func Sub(p, q model.Point) model.Point {
	return model.Point{X: p.X - q.X, Y: p.Y - q.Y}
}

// Scale returns v multiplied by k.
func Scale(v model.Point, k float64) model.Point {
	return model.Point{X: v.X * k, Y: v.Y * k}
}

// Dot returns the dot product of two vectors.
func Dot(p, q model.Point) float64 {
	return p.X*q.X + p.Y*q.Y
}

// Cross returns the z component of the 3-D cross product of p and q.
func Cross(p, q model.Point) float64 {
	return p.X*q.Y - p.Y*q.X
}

// UnitVector normalises v. A vector whose norm is at or below 1e-12 has no
// direction and yields the zero vector instead of an error.
func UnitVector(v model.Point) model.Point {
	n := Norm(v)
	if n <= unitEpsilon {
		return model.Point{}
	}
	return model.Point{X: v.X / n, Y: v.Y / n}
}

// RotatePoint rotates p counter-clockwise by angleRad radians about center.
func RotatePoint(p model.Point, angleRad float64, center model.Point) model.Point {
	sin, cos := math.Sincos(angleRad)
	dx := p.X - center.X
	dy := p.Y - center.Y
	return model.Point{
		X: center.X + dx*cos - dy*sin,
		Y: center.Y + dx*sin + dy*cos,
	}
}

// PolygonArea returns the unsigned shoelace area of the polygon, so vertex
// orientation does not matter. Fewer than three vertices enclose nothing.
func PolygonArea(vertices []model.Point) float64 {
	n := len(vertices)
	if n < 3 {
		return 0
	}
	var twice float64
	for i := range n {
		j := (i + 1) % n
		twice += vertices[i].X*vertices[j].Y - vertices[j].X*vertices[i].Y
	}
	return math.Abs(twice) / 2
}

// MovingAverage returns the mean of every contiguous window of the given
// size, len(data)-window+1 values in all. An out-of-range window yields an
// empty slice rather than an error.
func MovingAverage(data []float64, window int) []float64 {
	if window <= 0 || window > len(data) {
		return []float64{}
	}

	out := make([]float64, 0, len(data)-window+1)
	var sum float64
	for i, v := range data {
		sum += v
		if i >= window {
			sum -= data[i-window]
		}
		if i >= window-1 {
			out = append(out, sum/float64(window))
		}
	}
	return out
}

// LinearInterpolate evaluates the line through (x1, y1) and (x2, y2) at x,
// extrapolating outside the interval. Coincident endpoints return y1.
func LinearInterpolate(x, x1, y1, x2, y2 float64) float64 {
	if math.Abs(x2-x1) < interpEpsilon {
		return y1
	}
	return y1 + (y2-y1)*(x-x1)/(x2-x1)
}
