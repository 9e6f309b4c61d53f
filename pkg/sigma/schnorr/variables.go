package schnorr

import (
	"fmt"
	"io"
	"sort"

	"github.com/sigmalab/sigma/pkg/math/curve"
	"github.com/sigmalab/sigma/pkg/math/sample"
)

// Variable is a symbolic name for a witness or randomness exponent.
type Variable string

// Assignment binds variables to concrete scalars. Keys are unique; an
// assignment is created per announcement/response generation call and
// threaded explicitly through the fragment tree.
type Assignment map[Variable]curve.Scalar

// Get returns the scalar bound to v, or nil if v is unbound.
func (a Assignment) Get(v Variable) curve.Scalar {
	return a[v]
}

// Has reports whether v is bound.
func (a Assignment) Has(v Variable) bool {
	_, ok := a[v]
	return ok
}

// Join returns a new assignment containing both a's and b's bindings, with
// a's winning on conflict.
func (a Assignment) Join(b Assignment) Assignment {
	out := make(Assignment, len(a)+len(b))
	for v, s := range b {
		out[v] = s
	}
	for v, s := range a {
		out[v] = s
	}
	return out
}

// names returns the bound variables in sorted order, for deterministic
// encodings.
func (a Assignment) names() []Variable {
	out := make([]Variable, 0, len(a))
	for v := range a {
		out = append(out, v)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// randomAssignment binds every variable in vars to a fresh uniform scalar.
func randomAssignment(rand io.Reader, group curve.Curve, vars []Variable) Assignment {
	out := make(Assignment, len(vars))
	for _, v := range vars {
		out[v] = sample.Scalar(rand, group)
	}
	return out
}

// dedupVariables returns vars with duplicates removed, preserving first
// occurrence order.
func dedupVariables(vars []Variable) []Variable {
	seen := make(map[Variable]struct{}, len(vars))
	out := make([]Variable, 0, len(vars))
	for _, v := range vars {
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}

type bindingWire struct {
	Name  string `cbor:"1,keyasint"`
	Value []byte `cbor:"2,keyasint"`
}

func encodeAssignment(a Assignment) ([]bindingWire, error) {
	out := make([]bindingWire, 0, len(a))
	for _, v := range a.names() {
		value, err := a[v].MarshalBinary()
		if err != nil {
			return nil, err
		}
		out = append(out, bindingWire{Name: string(v), Value: value})
	}
	return out, nil
}

func decodeAssignment(group curve.Curve, wire []bindingWire) (Assignment, error) {
	out := make(Assignment, len(wire))
	for _, b := range wire {
		if out.Has(Variable(b.Name)) {
			return nil, fmt.Errorf("schnorr: duplicate variable %q in assignment", b.Name)
		}
		s := group.NewScalar()
		if err := s.UnmarshalBinary(b.Value); err != nil {
			return nil, fmt.Errorf("schnorr: variable %q: %w", b.Name, err)
		}
		out[Variable(b.Name)] = s
	}
	return out, nil
}
