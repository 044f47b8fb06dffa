package analysis

import (
	"math"

	"github.com/san-kum/metaballs/internal/field"
	"github.com/san-kum/metaballs/internal/raymarch"
)

// bridgeSpacing is the sample spacing along the segment between two centres.
const bridgeSpacing = 0.05

// Bridged reports whether the field stays above threshold along the whole
// segment between balls i and j.
func Bridged(s *field.Snapshot, i, j int, threshold float64) bool {
	n := s.Len()
	if i < 0 || j < 0 || i >= n || j >= n {
		return false
	}
	a, b := s.Positions[i], s.Positions[j]
	d := b.Sub(a).Len()
	samples := int(math.Ceil(d/bridgeSpacing)) + 1
	for k := 0; k <= samples; k++ {
		t := float64(k) / float64(samples)
		p := a.Add(b.Sub(a).Mul(t))
		if raymarch.Field(s, p) <= threshold {
			return false
		}
	}
	return true
}

// BlobLabels assigns every ball the index of the connected surface it
// belongs to. Labels are dense, starting at 0 in ball order.
func BlobLabels(s *field.Snapshot, threshold float64) []int {
	n := s.Len()
	parent := make([]int, n)
	for i := range parent {
		parent[i] = i
	}
	find := func(x int) int {
		for parent[x] != x {
			parent[x] = parent[parent[x]]
			x = parent[x]
		}
		return x
	}

	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			ri, rj := find(i), find(j)
			if ri == rj {
				continue
			}
			if Bridged(s, i, j, threshold) {
				parent[rj] = ri
			}
		}
	}

	labels := make([]int, n)
	ids := make(map[int]int)
	for i := 0; i < n; i++ {
		root := find(i)
		id, ok := ids[root]
		if !ok {
			id = len(ids)
			ids[root] = id
		}
		labels[i] = id
	}
	return labels
}

// Blobs counts connected surfaces. Two balls share a surface when the field
// along the segment between their centres never drops to the threshold.
func Blobs(s *field.Snapshot, threshold float64) int {
	labels := BlobLabels(s, threshold)
	top := -1
	for _, l := range labels {
		if l > top {
			top = l
		}
	}
	return top + 1
}
