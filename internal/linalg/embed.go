package linalg

// subIndex gathers the bits of idx at the given qubit positions into a
// compact index; qubits[0] becomes bit 0.
func subIndex(idx int, qubits []int) int {
	s := 0
	for i, q := range qubits {
		if idx&(1<<q) != 0 {
			s |= 1 << i
		}
	}
	return s
}

// Embed lifts a k-qubit gate matrix acting on qubits into the full 2^n space.
// Basis indices are little-endian: qubit q is bit q.
func Embed(g *Matrix, qubits []int, n int) *Matrix {
	dim := 1 << n
	mask := 0
	for _, q := range qubits {
		mask |= 1 << q
	}
	out := New(dim)
	for r := range dim {
		for c := range dim {
			if r&^mask != c&^mask {
				continue
			}
			out.data[r*dim+c] = g.At(subIndex(r, qubits), subIndex(c, qubits))
		}
	}
	return out
}

// Apply multiplies the gate into state in place, touching only the
// amplitudes that differ on the gate's qubits.
func Apply(state []complex128, g *Matrix, qubits []int) {
	k := len(qubits)
	sub := 1 << k
	mask := 0
	for _, q := range qubits {
		mask |= 1 << q
	}
	idx := make([]int, sub)
	amp := make([]complex128, sub)
	for base := range len(state) {
		if base&mask != 0 {
			continue
		}
		for s := range sub {
			i := base
			for b, q := range qubits {
				if s&(1<<b) != 0 {
					i |= 1 << q
				}
			}
			idx[s] = i
			amp[s] = state[i]
		}
		for r := range sub {
			var v complex128
			for c := range sub {
				v += g.At(r, c) * amp[c]
			}
			state[idx[r]] = v
		}
	}
}
