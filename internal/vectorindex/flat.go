// Package vectorindex is an exact, in-memory nearest-neighbor index over
// fixed-dimension vectors. Vectors are identified by insertion ordinal.
package vectorindex

import (
	"fmt"
	"math"
	"slices"

	"patriotpilot/internal/service"
)

// Neighbor is one search result. Distance is Euclidean (L2); Similarity is cosine.
type Neighbor struct {
	Ordinal    int
	Distance   float64
	Similarity float64
}

// Flat stores vectors contiguously and answers queries by scanning all of them.
// A Flat is not safe for concurrent Add; once loaded it may be searched concurrently.
type Flat struct {
	dim  int
	data []float32 // n*dim values, row-major
}

// NewFlat creates an empty index for vectors of dimension dim.
func NewFlat(dim int) (*Flat, error) {
	if dim <= 0 {
		return nil, fmt.Errorf("vectorindex: dimension must be positive, got %d", dim)
	}
	return &Flat{dim: dim}, nil
}

// Dim returns the vector dimension.
func (f *Flat) Dim() int {
	return f.dim
}

// Len returns the number of stored vectors.
func (f *Flat) Len() int {
	if f.dim == 0 {
		return 0
	}
	return len(f.data) / f.dim
}

// Add appends vectors in order. Every vector is checked before any is stored,
// so a failed Add leaves the index unchanged.
func (f *Flat) Add(vectors ...[]float32) error {
	base := f.Len()
	for i, v := range vectors {
		if len(v) != f.dim {
			return &service.DimensionMismatchError{Ordinal: base + i, Want: f.dim, Got: len(v)}
		}
	}
	f.data = slices.Grow(f.data, len(vectors)*f.dim)
	for _, v := range vectors {
		f.data = append(f.data, v...)
	}
	return nil
}

func (f *Flat) row(i int) []float32 {
	return f.data[i*f.dim : (i+1)*f.dim : (i+1)*f.dim]
}

// Reconstruct returns a copy of the vector stored at ordinal i.
func (f *Flat) Reconstruct(i int) ([]float32, error) {
	if i < 0 || i >= f.Len() {
		return nil, fmt.Errorf("vectorindex: ordinal %d out of range [0, %d)", i, f.Len())
	}
	return slices.Clone(f.row(i)), nil
}

// ReconstructAll returns copies of all stored vectors in ordinal order.
func (f *Flat) ReconstructAll() [][]float32 {
	out := make([][]float32, f.Len())
	for i := range out {
		out[i] = slices.Clone(f.row(i))
	}
	return out
}

func (f *Flat) checkQuery(query []float32) error {
	if len(query) != f.dim {
		return fmt.Errorf("vectorindex: query dimension %d != index dimension %d", len(query), f.dim)
	}
	return nil
}

// Search returns the k nearest vectors by Euclidean distance, nearest first.
// Equal distances are ordered by ordinal. k <= 0 returns no results.
func (f *Flat) Search(query []float32, k int) ([]Neighbor, error) {
	if err := f.checkQuery(query); err != nil {
		return nil, err
	}
	n := f.Len()
	if k <= 0 || n == 0 {
		return []Neighbor{}, nil
	}

	qn := Norm(query)
	all := make([]Neighbor, n)
	for i := range n {
		row := f.row(i)
		all[i] = Neighbor{
			Ordinal:    i,
			Distance:   SquaredL2(query, row),
			Similarity: cosine(query, qn, row),
		}
	}
	slices.SortStableFunc(all, func(a, b Neighbor) int {
		if a.Distance != b.Distance {
			if a.Distance < b.Distance {
				return -1
			}
			return 1
		}
		return a.Ordinal - b.Ordinal
	})

	all = all[:min(k, n)]
	for i := range all {
		all[i].Distance = math.Sqrt(all[i].Distance)
	}
	return all, nil
}

// Within returns every vector whose cosine similarity to query is at least
// minSimilarity, most similar first. Equal similarities are ordered by ordinal.
func (f *Flat) Within(query []float32, minSimilarity float64) ([]Neighbor, error) {
	if err := f.checkQuery(query); err != nil {
		return nil, err
	}

	qn := Norm(query)
	out := []Neighbor{}
	for i := range f.Len() {
		row := f.row(i)
		sim := cosine(query, qn, row)
		if sim >= minSimilarity {
			out = append(out, Neighbor{
				Ordinal:    i,
				Distance:   math.Sqrt(SquaredL2(query, row)),
				Similarity: sim,
			})
		}
	}
	slices.SortStableFunc(out, func(a, b Neighbor) int {
		if a.Similarity != b.Similarity {
			if a.Similarity > b.Similarity {
				return -1
			}
			return 1
		}
		return a.Ordinal - b.Ordinal
	})
	return out, nil
}

func cosine(query []float32, queryNorm float64, row []float32) float64 {
	rn := Norm(row)
	if queryNorm == 0 || rn == 0 {
		return 0
	}
	return Dot(query, row) / (queryNorm * rn)
}
