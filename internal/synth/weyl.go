package synth

import (
	"fmt"
	"math"
	"math/cmplx"
	"math/rand"

	"gonum.org/v1/gonum/mat"

	"qtranspile/internal/linalg"
)

// Weyl is a two-qubit unitary in canonical form:
//
//	U = e^{i·Phase} · (K1l⊗K1r) · exp(i(a·XX + b·YY + c·ZZ)) · (K2l⊗K2r)
//
// with π/4 ≥ a ≥ b ≥ |c|. The l factors act on qubit 1, r factors on qubit 0.
type Weyl struct {
	A, B, C            float64
	Phase              float64
	K1l, K1r, K2l, K2r *linalg.Matrix
}

var (
	s2 = complex(1/math.Sqrt2, 0)

	// Columns are the magic basis; local gates become real orthogonal in it
	// and XX, YY, ZZ become diagonal.
	magic = linalg.MustFromRows([][]complex128{
		{s2, 0, 0, 1i * s2},
		{0, 1i * s2, s2, 0},
		{0, 1i * s2, -s2, 0},
		{s2, 0, 0, -1i * s2},
	})
	magicDag = magic.Dagger()

	id2    = linalg.Identity(2)
	pauliX = linalg.MustFromRows([][]complex128{{0, 1}, {1, 0}})
	pauliY = linalg.MustFromRows([][]complex128{{0, -1i}, {1i, 0}})
	pauliZ = linalg.MustFromRows([][]complex128{{1, 0}, {0, -1}})
	sGate  = linalg.MustFromRows([][]complex128{{1, 0}, {0, 1i}})
)

// DecomposeWeyl computes the canonical form of a 4×4 unitary.
func DecomposeWeyl(u *linalg.Matrix) (*Weyl, error) {
	if u.Dim() != 4 {
		return nil, fmt.Errorf("%w: two-qubit decomposer got a %dx%d matrix", ErrInvalidOperand, u.Dim(), u.Dim())
	}
	if !u.IsUnitary(1e-8) {
		return nil, fmt.Errorf("%w: matrix is not unitary", ErrInvalidOperand)
	}
	phase := cmplx.Phase(u.Det()) / 4
	usu := u.Scale(cmplx.Exp(complex(0, -phase)))
	up := magicDag.Mul(usu).Mul(magic)
	m2 := up.Transpose().Mul(up)

	p, d2, err := diagonalizeSymmetricUnitary(m2)
	if err != nil {
		return nil, err
	}

	var lam [4]float64
	for k := range 3 {
		lam[k] = cmplx.Phase(d2[k]) / 2
	}
	lam[3] = -(lam[0] + lam[1] + lam[2])

	dinv := linalg.New(4)
	for k := range 4 {
		dinv.Set(k, k, cmplx.Exp(complex(0, -lam[k])))
	}
	o1 := up.Mul(p).Mul(dinv)
	for i := range 4 {
		for j := range 4 {
			o1.Set(i, j, complex(real(o1.At(i, j)), 0))
		}
	}
	k1 := magic.Mul(o1).Mul(magicDag)
	k2 := magic.Mul(p.Transpose()).Mul(magicDag)

	w := &weylBuilder{
		coords: [3]float64{(lam[0] + lam[1]) / 2, (lam[1] + lam[3]) / 2, (lam[0] + lam[3]) / 2},
		phase:  phase,
		k1:     k1,
		k2:     k2,
	}
	w.canonicalize()
	return w.finish()
}

// diagonalizeSymmetricUnitary finds a real orthogonal P with det 1 such that
// Pᵀ·M·P is diagonal. The real and imaginary parts of M commute, so a generic
// real combination of them shares M's eigenvectors.
func diagonalizeSymmetricUnitary(m *linalg.Matrix) (*linalg.Matrix, [4]complex128, error) {
	rng := rand.New(rand.NewSource(2020))
	var diag [4]complex128
	for range 100 {
		x, y := rng.NormFloat64(), rng.NormFloat64()
		data := make([]float64, 16)
		for i := range 4 {
			for j := range 4 {
				a := x*real(m.At(i, j)) + y*imag(m.At(i, j))
				b := x*real(m.At(j, i)) + y*imag(m.At(j, i))
				data[i*4+j] = (a + b) / 2
			}
		}
		var es mat.EigenSym
		if !es.Factorize(mat.NewSymDense(4, data), true) {
			continue
		}
		var vecs mat.Dense
		es.VectorsTo(&vecs)

		p := linalg.New(4)
		for i := range 4 {
			for j := range 4 {
				p.Set(i, j, complex(vecs.At(i, j), 0))
			}
		}
		if real(p.Det()) < 0 {
			for i := range 4 {
				p.Set(i, 3, -p.At(i, 3))
			}
		}
		d := p.Transpose().Mul(m).Mul(p)
		off := 0.0
		for i := range 4 {
			for j := range 4 {
				if i != j {
					off = math.Max(off, cmplx.Abs(d.At(i, j)))
				}
			}
			diag[i] = d.At(i, i)
		}
		if off < 1e-10 {
			return p, diag, nil
		}
	}
	return nil, diag, fmt.Errorf("%w: could not diagonalise magic-basis product", ErrDecompositionFailed)
}

type weylBuilder struct {
	coords [3]float64
	phase  float64
	k1, k2 *linalg.Matrix
}

var (
	pairPaulis = [3]*linalg.Matrix{
		linalg.Kron(pauliX, pauliX),
		linalg.Kron(pauliY, pauliY),
		linalg.Kron(pauliZ, pauliZ),
	}
	// swapLocals conjugate the i-th interaction term into the j-th.
	swapLocals = map[[2]int]*linalg.Matrix{
		{0, 1}: linalg.Kron(sGate, sGate),
		{0, 2}: linalg.Kron(hMat(), hMat()),
		{1, 2}: linalg.Kron(rxHalfPi(), rxHalfPi()),
	}
	// flipLocals negate two interaction terms and keep the third.
	flipLocals = map[[2]int]*linalg.Matrix{
		{0, 1}: linalg.Kron(pauliZ, id2),
		{1, 2}: linalg.Kron(pauliX, id2),
		{0, 2}: linalg.Kron(pauliY, id2),
	}
)

func hMat() *linalg.Matrix {
	return linalg.MustFromRows([][]complex128{{s2, s2}, {s2, -s2}})
}

func rxHalfPi() *linalg.Matrix {
	return linalg.MustFromRows([][]complex128{{s2, -1i * s2}, {-1i * s2, s2}})
}

// canonicalize moves the coordinates into the Weyl chamber, pushing every
// local correction into k1 or k2.
func (w *weylBuilder) canonicalize() {
	for i := range 3 {
		k := math.Round(w.coords[i] / (math.Pi / 2))
		if k == 0 {
			continue
		}
		// exp(i·kπ/2·P) = i^k·P^k
		w.coords[i] -= k * math.Pi / 2
		w.phase += k * math.Pi / 2
		if int(math.Abs(k))%2 == 1 {
			w.k2 = pairPaulis[i].Mul(w.k2)
		}
	}
	for _, pair := range [][2]int{{0, 1}, {1, 2}, {0, 1}} {
		i, j := pair[0], pair[1]
		if math.Abs(w.coords[i]) < math.Abs(w.coords[j]) {
			w.swap(i, j)
		}
	}
	a, b := w.coords[0], w.coords[1]
	switch {
	case a < 0 && b < 0:
		w.flip(0, 1)
	case a < 0:
		w.flip(0, 2)
	}
	if w.coords[1] < 0 {
		w.flip(1, 2)
	}
}

// swap uses A(..x_i..x_j..) = L†·A(..x_j..x_i..)·L.
func (w *weylBuilder) swap(i, j int) {
	l := swapLocals[[2]int{i, j}]
	w.k1 = w.k1.Mul(l.Dagger())
	w.k2 = l.Mul(w.k2)
	w.coords[i], w.coords[j] = w.coords[j], w.coords[i]
}

// flip uses A(x) = P·A(x with two signs negated)·P for a one-qubit Pauli P.
func (w *weylBuilder) flip(i, j int) {
	p := flipLocals[[2]int{i, j}]
	w.k1 = w.k1.Mul(p)
	w.k2 = p.Mul(w.k2)
	w.coords[i], w.coords[j] = -w.coords[i], -w.coords[j]
}

func (w *weylBuilder) finish() (*Weyl, error) {
	k1l, k1r, ph1, err := decomposeProduct(w.k1)
	if err != nil {
		return nil, err
	}
	k2l, k2r, ph2, err := decomposeProduct(w.k2)
	if err != nil {
		return nil, err
	}
	return &Weyl{
		A: w.coords[0], B: w.coords[1], C: w.coords[2],
		Phase: w.phase + ph1 + ph2,
		K1l:   k1l, K1r: k1r, K2l: k2l, K2r: k2r,
	}, nil
}

// decomposeProduct splits k = e^{i·phase}·(l⊗r) into special unitaries.
func decomposeProduct(k *linalg.Matrix) (l, r *linalg.Matrix, phase float64, err error) {
	block := func(row int) *linalg.Matrix {
		return linalg.MustFromRows([][]complex128{
			{k.At(row, 0), k.At(row, 1)},
			{k.At(row+1, 0), k.At(row+1, 1)},
		})
	}
	r = block(0)
	det := r.Det()
	if cmplx.Abs(det) < 0.1 {
		r = block(2)
		det = r.Det()
	}
	if cmplx.Abs(det) < 0.1 {
		return nil, nil, 0, fmt.Errorf("%w: local factor is not a tensor product", ErrDecompositionFailed)
	}
	r = r.Scale(1 / cmplx.Sqrt(det))

	tmp := k.Mul(linalg.Kron(id2, r.Dagger()))
	l = linalg.MustFromRows([][]complex128{
		{tmp.At(0, 0), tmp.At(0, 2)},
		{tmp.At(2, 0), tmp.At(2, 2)},
	})
	detL := l.Det()
	if cmplx.Abs(detL) < 0.9 {
		return nil, nil, 0, fmt.Errorf("%w: local factor is not a tensor product", ErrDecompositionFailed)
	}
	l = l.Scale(1 / cmplx.Sqrt(detL))
	return l, r, cmplx.Phase(detL) / 2, nil
}

// Interaction returns exp(i(a·XX + b·YY + c·ZZ)).
func Interaction(a, b, c float64) *linalg.Matrix {
	lam := [4]float64{a - b + c, a + b - c, -a - b - c, -a + b + c}
	d := linalg.New(4)
	for k := range 4 {
		d.Set(k, k, cmplx.Exp(complex(0, lam[k])))
	}
	return magic.Mul(d).Mul(magicDag)
}

// Reconstruct multiplies the canonical form back together.
func (w *Weyl) Reconstruct() *linalg.Matrix {
	k1 := linalg.Kron(w.K1l, w.K1r)
	k2 := linalg.Kron(w.K2l, w.K2r)
	return k1.Mul(Interaction(w.A, w.B, w.C)).Mul(k2).Scale(cmplx.Exp(complex(0, w.Phase)))
}
