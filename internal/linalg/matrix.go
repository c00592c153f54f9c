// Package linalg holds the small dense complex matrix type shared by the gate
// library, the decomposers and the reference simulator.
package linalg

import (
	"fmt"
	"math"
	"math/cmplx"
	"strings"
)

// Matrix is a square complex matrix stored row-major.
type Matrix struct {
	n    int
	data []complex128
}

// New returns an n×n zero matrix.
func New(n int) *Matrix {
	return &Matrix{n: n, data: make([]complex128, n*n)}
}

// Identity returns the n×n identity.
func Identity(n int) *Matrix {
	m := New(n)
	for i := range n {
		m.data[i*n+i] = 1
	}
	return m
}

// FromRows builds a matrix from row slices. Rows must form a square.
func FromRows(rows [][]complex128) (*Matrix, error) {
	n := len(rows)
	if n == 0 {
		return nil, fmt.Errorf("linalg: empty matrix")
	}
	m := New(n)
	for i, r := range rows {
		if len(r) != n {
			return nil, fmt.Errorf("linalg: row %d has %d entries, want %d", i, len(r), n)
		}
		copy(m.data[i*n:(i+1)*n], r)
	}
	return m, nil
}

// MustFromRows is FromRows for literal tables that are square by construction.
func MustFromRows(rows [][]complex128) *Matrix {
	m, err := FromRows(rows)
	if err != nil {
		panic(err)
	}
	return m
}

// Dim returns the number of rows (and columns).
func (m *Matrix) Dim() int { return m.n }

func (m *Matrix) At(i, j int) complex128 { return m.data[i*m.n+j] }

func (m *Matrix) Set(i, j int, v complex128) { m.data[i*m.n+j] = v }

// Rows copies the matrix out as row slices.
func (m *Matrix) Rows() [][]complex128 {
	out := make([][]complex128, m.n)
	for i := range m.n {
		out[i] = append([]complex128(nil), m.data[i*m.n:(i+1)*m.n]...)
	}
	return out
}

func (m *Matrix) Clone() *Matrix {
	return &Matrix{n: m.n, data: append([]complex128(nil), m.data...)}
}

// Mul returns m·b. Both operands must have the same dimension.
func (m *Matrix) Mul(b *Matrix) *Matrix {
	if m.n != b.n {
		panic(fmt.Sprintf("linalg: dimension mismatch %d vs %d", m.n, b.n))
	}
	n := m.n
	out := New(n)
	for i := range n {
		for k := range n {
			a := m.data[i*n+k]
			if a == 0 {
				continue
			}
			for j := range n {
				out.data[i*n+j] += a * b.data[k*n+j]
			}
		}
	}
	return out
}

// Dagger returns the conjugate transpose.
func (m *Matrix) Dagger() *Matrix {
	out := New(m.n)
	for i := range m.n {
		for j := range m.n {
			out.data[j*m.n+i] = cmplx.Conj(m.data[i*m.n+j])
		}
	}
	return out
}

func (m *Matrix) Transpose() *Matrix {
	out := New(m.n)
	for i := range m.n {
		for j := range m.n {
			out.data[j*m.n+i] = m.data[i*m.n+j]
		}
	}
	return out
}

// Scale returns c·m.
func (m *Matrix) Scale(c complex128) *Matrix {
	out := m.Clone()
	for i := range out.data {
		out.data[i] *= c
	}
	return out
}

func (m *Matrix) Trace() complex128 {
	var t complex128
	for i := range m.n {
		t += m.data[i*m.n+i]
	}
	return t
}

// Kron returns the Kronecker product a⊗b. With little-endian qubit order a
// acts on the high qubit and b on the low one.
func Kron(a, b *Matrix) *Matrix {
	n := a.n * b.n
	out := New(n)
	for i := range a.n {
		for j := range a.n {
			av := a.data[i*a.n+j]
			if av == 0 {
				continue
			}
			for k := range b.n {
				for l := range b.n {
					out.data[(i*b.n+k)*n+j*b.n+l] = av * b.data[k*b.n+l]
				}
			}
		}
	}
	return out
}

// Det computes the determinant by LU elimination with partial pivoting.
func (m *Matrix) Det() complex128 {
	n := m.n
	a := append([]complex128(nil), m.data...)
	det := complex(1, 0)
	for col := range n {
		pivot := col
		for r := col + 1; r < n; r++ {
			if cmplx.Abs(a[r*n+col]) > cmplx.Abs(a[pivot*n+col]) {
				pivot = r
			}
		}
		if a[pivot*n+col] == 0 {
			return 0
		}
		if pivot != col {
			for j := range n {
				a[col*n+j], a[pivot*n+j] = a[pivot*n+j], a[col*n+j]
			}
			det = -det
		}
		p := a[col*n+col]
		det *= p
		for r := col + 1; r < n; r++ {
			f := a[r*n+col] / p
			if f == 0 {
				continue
			}
			for j := col; j < n; j++ {
				a[r*n+j] -= f * a[col*n+j]
			}
		}
	}
	return det
}

// IsUnitary reports whether m·m† is the identity within tol.
func (m *Matrix) IsUnitary(tol float64) bool {
	p := m.Mul(m.Dagger())
	for i := range m.n {
		for j := range m.n {
			want := complex(0, 0)
			if i == j {
				want = 1
			}
			if cmplx.Abs(p.data[i*m.n+j]-want) > tol {
				return false
			}
		}
	}
	return true
}

// MirrorQubits swaps rows 1 and 2 and then columns 1 and 2 of a 4×4 matrix,
// which is SWAP·m·SWAP.
func (m *Matrix) MirrorQubits() *Matrix {
	out := m.Clone()
	n := out.n
	for j := range n {
		out.data[1*n+j], out.data[2*n+j] = out.data[2*n+j], out.data[1*n+j]
	}
	for i := range n {
		out.data[i*n+1], out.data[i*n+2] = out.data[i*n+2], out.data[i*n+1]
	}
	return out
}

// Equal compares entrywise within tol.
func Equal(a, b *Matrix, tol float64) bool {
	if a.n != b.n {
		return false
	}
	for i := range a.data {
		if cmplx.Abs(a.data[i]-b.data[i]) > tol {
			return false
		}
	}
	return true
}

// EqualUpToPhase reports whether b = e^{iφ}·a for some φ, within tol.
func EqualUpToPhase(a, b *Matrix, tol float64) bool {
	if a.n != b.n {
		return false
	}
	best := 0
	for i := range a.data {
		if cmplx.Abs(a.data[i]) > cmplx.Abs(a.data[best]) {
			best = i
		}
	}
	if cmplx.Abs(a.data[best]) < tol {
		return Equal(a, b, tol)
	}
	phase := b.data[best] / a.data[best]
	if math.Abs(cmplx.Abs(phase)-1) > tol {
		return false
	}
	return Equal(a.Scale(phase), b, tol)
}

// NumQubits returns log2(dim) when dim is a power of two no smaller than 2.
func NumQubits(dim int) (int, bool) {
	if dim < 2 || dim&(dim-1) != 0 {
		return 0, false
	}
	n := 0
	for dim > 1 {
		dim >>= 1
		n++
	}
	return n, true
}

func (m *Matrix) String() string {
	var sb strings.Builder
	for i := range m.n {
		sb.WriteString("[")
		for j := range m.n {
			if j > 0 {
				sb.WriteString(", ")
			}
			v := m.data[i*m.n+j]
			fmt.Fprintf(&sb, "%.4f%+.4fi", real(v), imag(v))
		}
		sb.WriteString("]\n")
	}
	return sb.String()
}
