// Package series provides bounded, chronologically ordered price windows.
package series

import "time"

// Point is a single price observation.
type Point struct {
	Time  time.Time
	Price float64
}

// Window holds the most recent points in a circular buffer.
// Once full, each Add overwrites the oldest point.
type Window struct {
	points []Point
	size   int
	head   int // Points to the next available slot for writing
	count  int // Number of elements currently in the buffer
}

// NewWindow creates a new Window with the given capacity.
func NewWindow(size int) *Window {
	if size <= 0 {
		panic("series window size must be positive")
	}
	return &Window{
		points: make([]Point, size),
		size:   size,
	}
}

// Add appends a point, evicting the oldest one when the window is full.
func (w *Window) Add(p Point) {
	w.points[w.head] = p
	w.head = (w.head + 1) % w.size
	if w.count < w.size {
		w.count++
	}
}

// Len returns the number of points currently held.
func (w *Window) Len() int { return w.count }

// Cap returns the window capacity.
func (w *Window) Cap() int { return w.size }

// Last returns the newest point and false when the window is empty.
func (w *Window) Last() (Point, bool) {
	if w.count == 0 {
		return Point{}, false
	}
	return w.points[(w.head-1+w.size)%w.size], true
}

// Points returns the points in the order they were added.
func (w *Window) Points() []Point {
	result := make([]Point, w.count)
	if w.count == 0 {
		return result
	}
	if w.count < w.size { // Buffer not yet full
		copy(result, w.points[:w.head])
	} else { // Oldest element is at w.head
		copied := copy(result, w.points[w.head:])
		copy(result[copied:], w.points[:w.head])
	}
	return result
}

// Prices returns only the prices, oldest first.
func (w *Window) Prices() []float64 {
	points := w.Points()
	prices := make([]float64, len(points))
	for i, p := range points {
		prices[i] = p.Price
	}
	return prices
}

// Reset drops every point.
func (w *Window) Reset() {
	w.head = 0
	w.count = 0
}
