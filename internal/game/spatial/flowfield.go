package spatial

import (
	"math"
)

// FlowField is a shared navigation field toward one goal cell of a NavGrid.
// Every agent heading for the same goal reads the same field instead of
// running its own search.
//
// Origin: Treuille, Cooper, Popović. "Continuum Crowds." SIGGRAPH 2006.
type FlowField struct {
	nav         *NavGrid
	goal        int
	integration []float32 // cost to reach goal from each cell
	flowX       []float32
	flowZ       []float32
	queue       []int
}

var (
	neighborDX   = [8]int{-1, 0, 1, -1, 1, -1, 0, 1}
	neighborDZ   = [8]int{-1, -1, -1, 0, 0, 1, 1, 1}
	neighborCost = [8]float32{1.41421356, 1, 1.41421356, 1, 1, 1.41421356, 1, 1.41421356}
)

const unreachable = float32(math.MaxFloat32)

// NewFlowField allocates a field over nav. Call Generate before Lookup.
func NewFlowField(nav *NavGrid) *FlowField {
	size := nav.cols * nav.rows
	return &FlowField{
		nav:         nav,
		goal:        -1,
		integration: make([]float32, size),
		flowX:       make([]float32, size),
		flowZ:       make([]float32, size),
		queue:       make([]int, 0, size),
	}
}

// step reports whether moving from (col,row) in direction i stays on walkable
// cells. Diagonals may not cut the corner of a blocked cell.
func (f *FlowField) step(col, row, i int) (int, bool) {
	n := f.nav
	nc, nr := col+neighborDX[i], row+neighborDZ[i]
	if nc < 0 || nc >= n.cols || nr < 0 || nr >= n.rows {
		return -1, false
	}
	nidx := nr*n.cols + nc
	if !n.walkable[nidx] {
		return -1, false
	}
	if neighborDX[i] != 0 && neighborDZ[i] != 0 {
		if !n.walkable[row*n.cols+nc] || !n.walkable[nr*n.cols+col] {
			return -1, false
		}
	}
	return nidx, true
}

// Generate computes the field toward the goal cell at (goalX, goalZ).
// Returns false if the goal is out of bounds or not walkable.
func (f *FlowField) Generate(goalX, goalZ float64) bool {
	for i := range f.integration {
		f.integration[i] = unreachable
		f.flowX[i], f.flowZ[i] = 0, 0
	}

	goal, ok := f.nav.Cell(goalX, goalZ)
	if !ok || !f.nav.walkable[goal] {
		f.goal = -1
		return false
	}
	f.goal = goal
	f.integration[goal] = 0

	cols := f.nav.cols
	f.queue = append(f.queue[:0], goal)
	for head := 0; head < len(f.queue); head++ {
		current := f.queue[head]
		col, row := current%cols, current/cols
		for i := 0; i < 8; i++ {
			nidx, ok := f.step(col, row, i)
			if !ok {
				continue
			}
			cost := f.integration[current] + neighborCost[i]
			if cost < f.integration[nidx] {
				f.integration[nidx] = cost
				f.queue = append(f.queue, nidx)
			}
		}
	}

	for idx := range f.integration {
		if f.integration[idx] == unreachable || idx == goal {
			continue
		}
		col, row := idx%cols, idx/cols
		best := f.integration[idx]
		var bx, bz float32
		for i := 0; i < 8; i++ {
			nidx, ok := f.step(col, row, i)
			if !ok {
				continue
			}
			if f.integration[nidx] < best {
				best = f.integration[nidx]
				bx, bz = float32(neighborDX[i]), float32(neighborDZ[i])
			}
		}
		if l := float32(math.Sqrt(float64(bx*bx + bz*bz))); l > 0 {
			f.flowX[idx], f.flowZ[idx] = bx/l, bz/l
		}
	}
	return true
}

// Lookup returns the unit flow direction at (x, z). ok is false when the
// point is off the grid or cannot reach the goal.
func (f *FlowField) Lookup(x, z float64) (vx, vz float32, ok bool) {
	idx, in := f.nav.Cell(x, z)
	if !in || f.integration[idx] == unreachable {
		return 0, 0, false
	}
	return f.flowX[idx], f.flowZ[idx], true
}

// Cost returns the integration cost at (x, z), MaxFloat32 if unreachable.
func (f *FlowField) Cost(x, z float64) float32 {
	idx, in := f.nav.Cell(x, z)
	if !in {
		return unreachable
	}
	return f.integration[idx]
}

// FlowFieldManager caches one field per goal cell.
type FlowFieldManager struct {
	nav       *NavGrid
	maxFields int
	fields    map[int]*FlowField
}

// NewFlowFieldManager creates a cache holding at most maxFields fields.
func NewFlowFieldManager(nav *NavGrid, maxFields int) *FlowFieldManager {
	if maxFields < 1 {
		maxFields = 1
	}
	return &FlowFieldManager{
		nav:       nav,
		maxFields: maxFields,
		fields:    make(map[int]*FlowField),
	}
}

// Toward returns the field for the goal cell containing (goalX, goalZ),
// generating it on first use. Returns nil if the goal is not walkable.
func (m *FlowFieldManager) Toward(goalX, goalZ float64) *FlowField {
	goal, ok := m.nav.Cell(goalX, goalZ)
	if !ok || !m.nav.walkable[goal] {
		return nil
	}
	if field, ok := m.fields[goal]; ok {
		return field
	}
	if len(m.fields) >= m.maxFields {
		m.Clear()
	}

	field := NewFlowField(m.nav)
	field.Generate(goalX, goalZ)
	m.fields[goal] = field
	return field
}

// Len returns the number of cached fields.
func (m *FlowFieldManager) Len() int {
	return len(m.fields)
}

// Clear drops every cached field. Call after the nav grid changes.
func (m *FlowFieldManager) Clear() {
	m.fields = make(map[int]*FlowField)
}
