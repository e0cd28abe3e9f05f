// Package mosaic packs rectangles of arbitrary aspect ratio into a grid.
package mosaic

import (
	"errors"
	"math"
)

var ErrNoFit = errors.New("mosaic: no layout fits the area")

type (
	Rect struct {
		X float64 `json:"x"`
		Y float64 `json:"y"`
		W float64 `json:"w"`
		H float64 `json:"h"`
	}

	// Size is the natural size of an item. Thumbnails never exceed it.
	Size struct {
		W float64
		H float64
	}

	Options struct {
		// Gap separates adjacent cells.
		Gap float64
		// MaxDistortion bounds how far a thumbnail's aspect ratio may be stretched
		// from its item's aspect ratio to fill a cell. Values below 1 mean 1.
		MaxDistortion float64
	}

	// Layout is a grid shape filled row by row.
	Layout struct {
		Rows int
		Cols int
	}
)

func (r Rect) Overlaps(o Rect) bool {
	return r.X < o.X+o.W && o.X < r.X+r.W && r.Y < o.Y+o.H && o.Y < r.Y+r.H
}

func (r Rect) Area() float64 {
	return r.W * r.H
}

// Distortion returns how far the aspect ratio of r is from the aspect ratio of s.
// It is 1 for an exact match and grows in either direction.
func Distortion(r Rect, s Size) float64 {
	if r.W <= 0 || r.H <= 0 || s.W <= 0 || s.H <= 0 {
		return 1
	}
	d := (r.W / r.H) / (s.W / s.H)
	if d < 1 {
		d = 1 / d
	}
	return d
}

// Grid lays items out in area, choosing the layout that leaves the least unused area.
// Ties go to fewer rows, then fewer columns. Items fill cells in the given order and a
// partial last row is centred.
func Grid(items []Size, area Rect, opts Options) ([]Rect, Layout, error) {
	if len(items) == 0 {
		return nil, Layout{}, nil
	}
	if !(area.W > 0 && area.H > 0) || math.IsInf(area.W, 0) || math.IsInf(area.H, 0) {
		return nil, Layout{}, ErrNoFit
	}
	if opts.MaxDistortion < 1 || math.IsNaN(opts.MaxDistortion) {
		opts.MaxDistortion = 1
	}
	opts.Gap = max(opts.Gap, 0)

	var (
		best       []Rect
		bestLayout Layout
		bestUnused = math.Inf(1)
	)
	for _, layout := range Layouts(len(items)) {
		rects, ok := layout.Place(items, area, opts)
		if !ok {
			continue
		}

		used := 0.0
		for _, r := range rects {
			used += r.Area()
		}
		unused := area.Area() - used

		// Layouts arrive ordered by rows then columns, so only a strictly better fit wins.
		if unused < bestUnused-1e-9 {
			best, bestLayout, bestUnused = rects, layout, unused
		}
	}
	if best == nil {
		return nil, Layout{}, ErrNoFit
	}

	return best, bestLayout, nil
}

// Layouts returns every grid shape for n items without an empty row or column,
// ordered by rows then columns.
func Layouts(n int) []Layout {
	var layouts []Layout
	for rows := 1; rows <= n; rows++ {
		for cols := 1; cols <= n; cols++ {
			if rows*cols < n || (rows-1)*cols >= n {
				continue
			}
			layouts = append(layouts, Layout{Rows: rows, Cols: cols})
		}
	}
	return layouts
}

// Cell returns the cell size of l in area.
func (l Layout) Cell(area Rect, gap float64) Size {
	return Size{
		W: (area.W - gap*float64(l.Cols-1)) / float64(l.Cols),
		H: (area.H - gap*float64(l.Rows-1)) / float64(l.Rows),
	}
}

// Place fits each item into its cell. It reports false if the cells have no room.
func (l Layout) Place(items []Size, area Rect, opts Options) ([]Rect, bool) {
	cell := l.Cell(area, opts.Gap)
	if cell.W <= 0 || cell.H <= 0 {
		return nil, false
	}

	rects := make([]Rect, len(items))
	for i, item := range items {
		row, col := i/l.Cols, i%l.Cols

		inRow := min(l.Cols, len(items)-row*l.Cols)
		offset := float64(l.Cols-inRow) * (cell.W + opts.Gap) / 2

		x := area.X + offset + float64(col)*(cell.W+opts.Gap)
		y := area.Y + float64(row)*(cell.H+opts.Gap)

		thumb := Fit(item, cell, opts.MaxDistortion)
		rects[i] = Rect{
			X: x + (cell.W-thumb.W)/2,
			Y: y + (cell.H-thumb.H)/2,
			W: thumb.W,
			H: thumb.H,
		}
	}

	return rects, true
}

// Fit scales item into cell keeping its aspect ratio, then stretches the slack
// dimension by up to maxDistortion. The result never exceeds item or cell.
func Fit(item, cell Size, maxDistortion float64) Size {
	if item.W <= 0 || item.H <= 0 {
		return Size{}
	}

	s := min(cell.W/item.W, cell.H/item.H, 1)
	w, h := item.W*s, item.H*s

	if maxDistortion > 1 {
		w = min(w*maxDistortion, cell.W, item.W)
		h = min(h*maxDistortion, cell.H, item.H)
		// Stretching both dimensions can compound; pull the larger stretch back in.
		if ratio := (w / h) / (item.W / item.H); ratio > maxDistortion {
			w = h * item.W / item.H * maxDistortion
		} else if ratio < 1/maxDistortion {
			h = w * item.H / item.W * maxDistortion
		}
	}

	return Size{W: w, H: h}
}
