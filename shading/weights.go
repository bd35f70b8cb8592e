package shading

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
)

// Radii are the blur half-widths of the scale-space, smallest first.
var Radii = [NumScales]int{3, 7, 15, 30, 60}

// NumScales is the number of blur radii.
const NumScales = 5

// Weights are the contributions of each blur radius to the weighted sum.
type Weights struct {
	R3  float32 `json:"r3"`
	R7  float32 `json:"r7"`
	R15 float32 `json:"r15"`
	R30 float32 `json:"r30"`
	R60 float32 `json:"r60"`
}

// Values returns the weights in Radii order.
func (w Weights) Values() [NumScales]float32 {
	return [NumScales]float32{w.R3, w.R7, w.R15, w.R30, w.R60}
}

// WeightsTable maps zoom levels to weights.
type WeightsTable map[int]Weights

// For returns the weights for zoom. Zooms without an entry use the nearest
// defined zoom, the lower one on a tie. An empty table yields zero weights.
func (t WeightsTable) For(zoom int) Weights {
	if w, ok := t[zoom]; ok {
		return w
	}
	best, dist := 0, -1
	for z := range t {
		d := z - zoom
		if d < 0 {
			d = -d
		}
		if dist < 0 || d < dist || (d == dist && z < best) {
			best, dist = z, d
		}
	}
	if dist < 0 {
		return Weights{}
	}
	return t[best]
}

// Zooms returns the defined zoom levels in ascending order.
func (t WeightsTable) Zooms() []int {
	zooms := make([]int, 0, len(t))
	for z := range t {
		zooms = append(zooms, z)
	}
	sort.Ints(zooms)
	return zooms
}

// Merge returns a copy of t with the entries of override replacing its own.
func (t WeightsTable) Merge(override WeightsTable) WeightsTable {
	out := make(WeightsTable, len(t)+len(override))
	for z, w := range t {
		out[z] = w
	}
	for z, w := range override {
		out[z] = w
	}
	return out
}

// LoadWeightsTable reads a JSON object keyed by zoom level:
//
//	{"12": {"r3": 12, "r7": 10, "r15": 3, "r30": 6, "r60": 1.5}}
func LoadWeightsTable(r io.Reader) (WeightsTable, error) {
	var t WeightsTable
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&t); err != nil {
		return nil, fmt.Errorf("shading: weights: %w", err)
	}
	for z := range t {
		if z < 0 {
			return nil, fmt.Errorf("shading: weights: negative zoom %d", z)
		}
	}
	return t, nil
}

// DefaultWeights returns the built-in table for zoom 2 to 22.
func DefaultWeights() WeightsTable {
	t := WeightsTable{
		2:  {R60: 0.08, R30: 0.08, R15: 0.12, R7: 0.05, R3: 0.1},
		3:  {R60: 0.1, R30: 0.1, R15: 0.09, R7: 0.05, R3: 0.1},
		4:  {R60: 0.1, R30: 0.1, R15: 0.07, R7: 0.05, R3: 0.1},
		5:  {R60: 0.1, R30: 0.1, R15: 0.1, R7: 0.1, R3: 0.2},
		6:  {R60: 0.1, R30: 0.2, R15: 0.1, R7: 0.2, R3: 0.3},
		7:  {R60: 0.2, R30: 0.15, R15: 0.2, R7: 0.5, R3: 0.5},
		8:  {R60: 0.5, R30: 0.1, R15: 0.1, R7: 1, R3: 2},
		9:  {R60: 0.3, R30: 0.5, R15: 1, R7: 2, R3: 3},
		10: {R60: 1, R30: 1, R15: 3, R7: 3, R3: 4},
		11: {R60: 0.5, R30: 2, R15: 2, R7: 4, R3: 6},
		12: {R60: 1.5, R30: 6, R15: 3, R7: 10, R3: 12},
		13: {R60: 4, R30: 8, R15: 3, R7: 15, R3: 20},
		14: {R60: 10, R30: 4, R15: 6, R7: 12, R3: 12},
		15: {R60: 15, R30: 8, R15: 10, R7: 18, R3: 20},
	}
	for z := 16; z <= 22; z++ {
		t[z] = Weights{R60: 30, R30: 25, R15: 25, R7: 18, R3: 20}
	}
	return t
}
