// Package gates defines the closed operation vocabulary, the standard gate
// matrices and the decomposition rule store the passes consume.
package gates

// Kind tags every operation. The vocabulary is closed; user gates use
// KindCustom or KindOpaque.
type Kind int

const (
	KindU Kind = iota
	KindCXBase
	KindU1
	KindU2
	KindU3
	KindID
	KindX
	KindY
	KindZ
	KindH
	KindS
	KindSdg
	KindT
	KindTdg
	KindRX
	KindRY
	KindRZ
	KindR
	KindCX
	KindCY
	KindCZ
	KindCH
	KindSwap
	KindASwap
	KindCCX
	KindCRX
	KindCRY
	KindCRZ
	KindCU1
	KindCU3
	KindRZZ
	KindRXX
	KindMeasure
	KindReset
	KindBarrier
	KindUnitary
	KindCustom
	KindOpaque
)

type kindInfo struct {
	name      string
	numQubits int
	numClbits int
	numParams int
	directive bool // never expanded, has no matrix
}

var kinds = map[Kind]kindInfo{
	KindU:       {name: "U", numQubits: 1, numParams: 3},
	KindCXBase:  {name: "CX", numQubits: 2},
	KindU1:      {name: "u1", numQubits: 1, numParams: 1},
	KindU2:      {name: "u2", numQubits: 1, numParams: 2},
	KindU3:      {name: "u3", numQubits: 1, numParams: 3},
	KindID:      {name: "id", numQubits: 1},
	KindX:       {name: "x", numQubits: 1},
	KindY:       {name: "y", numQubits: 1},
	KindZ:       {name: "z", numQubits: 1},
	KindH:       {name: "h", numQubits: 1},
	KindS:       {name: "s", numQubits: 1},
	KindSdg:     {name: "sdg", numQubits: 1},
	KindT:       {name: "t", numQubits: 1},
	KindTdg:     {name: "tdg", numQubits: 1},
	KindRX:      {name: "rx", numQubits: 1, numParams: 1},
	KindRY:      {name: "ry", numQubits: 1, numParams: 1},
	KindRZ:      {name: "rz", numQubits: 1, numParams: 1},
	KindR:       {name: "r", numQubits: 1, numParams: 2},
	KindCX:      {name: "cx", numQubits: 2},
	KindCY:      {name: "cy", numQubits: 2},
	KindCZ:      {name: "cz", numQubits: 2},
	KindCH:      {name: "ch", numQubits: 2},
	KindSwap:    {name: "swap", numQubits: 2},
	KindASwap:   {name: "aswap", numQubits: 2},
	KindCCX:     {name: "ccx", numQubits: 3},
	KindCRX:     {name: "crx", numQubits: 2, numParams: 1},
	KindCRY:     {name: "cry", numQubits: 2, numParams: 1},
	KindCRZ:     {name: "crz", numQubits: 2, numParams: 1},
	KindCU1:     {name: "cu1", numQubits: 2, numParams: 1},
	KindCU3:     {name: "cu3", numQubits: 2, numParams: 3},
	KindRZZ:     {name: "rzz", numQubits: 2, numParams: 1},
	KindRXX:     {name: "rxx", numQubits: 2, numParams: 1},
	KindMeasure: {name: "measure", numQubits: 1, numClbits: 1, directive: true},
	KindReset:   {name: "reset", numQubits: 1, directive: true},
	KindBarrier: {name: "barrier", directive: true},
	KindUnitary: {name: "unitary"},
}

var kindByName = func() map[string]Kind {
	m := make(map[string]Kind, len(kinds))
	for k, info := range kinds {
		m[info.name] = k
	}
	return m
}()

// Lookup returns the standard kind registered under name.
func Lookup(name string) (Kind, bool) {
	k, ok := kindByName[name]
	return k, ok
}

// Standard reports whether name belongs to the built-in vocabulary.
func Standard(name string) bool {
	_, ok := kindByName[name]
	return ok
}

func (k Kind) String() string {
	if info, ok := kinds[k]; ok {
		return info.name
	}
	switch k {
	case KindCustom:
		return "custom"
	case KindOpaque:
		return "opaque"
	}
	return "unknown"
}
