package gates

import "math"

func on(g *Gate, qubits ...int) Instruction {
	return Instruction{Gate: g, Qubits: qubits}
}

// standardRules holds the closed-form expansions of the built-in vocabulary.
// U and CX are the primitives every chain ends in, reached through u3 and cx;
// directives and unitaries have no static rule.
func standardRules(g *Gate) []Rule {
	p := g.params
	pi := math.Pi
	var r Rule
	switch g.kind {
	case KindU3:
		r = Rule{on(U(p[0], p[1], p[2]), 0)}
	case KindU2:
		r = Rule{on(U3(pi/2, p[0], p[1]), 0)}
	case KindU1:
		r = Rule{on(U3(0, 0, p[0]), 0)}
	case KindID:
		r = Rule{on(U3(0, 0, 0), 0)}
	case KindX:
		r = Rule{on(U3(pi, 0, pi), 0)}
	case KindY:
		r = Rule{on(U3(pi, pi/2, pi/2), 0)}
	case KindZ:
		r = Rule{on(U1(pi), 0)}
	case KindH:
		r = Rule{on(U2(0, pi), 0)}
	case KindS:
		r = Rule{on(U1(pi/2), 0)}
	case KindSdg:
		r = Rule{on(U1(-pi/2), 0)}
	case KindT:
		r = Rule{on(U1(pi/4), 0)}
	case KindTdg:
		r = Rule{on(U1(-pi/4), 0)}
	case KindRX:
		r = Rule{on(U3(p[0], -pi/2, pi/2), 0)}
	case KindRY:
		r = Rule{on(U3(p[0], 0, 0), 0)}
	case KindRZ:
		r = Rule{on(U1(p[0]), 0)}
	case KindR:
		r = Rule{on(U3(p[0], p[1]-pi/2, -p[1]+pi/2), 0)}
	case KindCX:
		r = Rule{on(newKind(KindCXBase), 0, 1)}
	case KindCY:
		r = Rule{on(Sdg(), 1), on(CX(), 0, 1), on(S(), 1)}
	case KindCZ:
		r = Rule{on(H(), 1), on(CX(), 0, 1), on(H(), 1)}
	case KindCH:
		r = Rule{
			on(RY(-pi/4), 1),
			on(H(), 1), on(CX(), 0, 1), on(H(), 1),
			on(RY(pi/4), 1),
		}
	case KindSwap:
		r = Rule{on(CX(), 0, 1), on(CX(), 1, 0), on(CX(), 0, 1)}
	case KindASwap:
		r = Rule{on(CX(), 1, 0), on(CX(), 0, 1)}
	case KindCCX:
		r = Rule{
			on(H(), 2), on(CX(), 1, 2), on(Tdg(), 2), on(CX(), 0, 2),
			on(T(), 2), on(CX(), 1, 2), on(Tdg(), 2), on(CX(), 0, 2),
			on(T(), 1), on(T(), 2), on(H(), 2), on(CX(), 0, 1),
			on(T(), 0), on(Tdg(), 1), on(CX(), 0, 1),
		}
	case KindCRX:
		r = Rule{
			on(U1(pi/2), 1), on(CX(), 0, 1),
			on(U3(-p[0]/2, 0, 0), 1), on(CX(), 0, 1),
			on(U3(p[0]/2, -pi/2, 0), 1),
		}
	case KindCRY:
		r = Rule{on(RY(p[0]/2), 1), on(CX(), 0, 1), on(RY(-p[0]/2), 1), on(CX(), 0, 1)}
	case KindCRZ:
		r = Rule{on(U1(p[0]/2), 1), on(CX(), 0, 1), on(U1(-p[0]/2), 1), on(CX(), 0, 1)}
	case KindCU1:
		r = Rule{
			on(U1(p[0]/2), 0), on(CX(), 0, 1),
			on(U1(-p[0]/2), 1), on(CX(), 0, 1),
			on(U1(p[0]/2), 1),
		}
	case KindCU3:
		theta, phi, lam := p[0], p[1], p[2]
		r = Rule{
			on(U1((lam-phi)/2), 1),
			on(CX(), 0, 1),
			on(U3(-theta/2, 0, -(phi+lam)/2), 1),
			on(CX(), 0, 1),
			on(U3(theta/2, phi, 0), 1),
		}
	case KindRZZ:
		r = Rule{on(CX(), 0, 1), on(U1(p[0]), 1), on(CX(), 0, 1)}
	case KindRXX:
		r = Rule{
			on(H(), 0), on(H(), 1), on(CX(), 0, 1),
			on(RZ(p[0]), 1),
			on(CX(), 0, 1), on(H(), 0), on(H(), 1),
		}
	default:
		return nil
	}
	return []Rule{r}
}
