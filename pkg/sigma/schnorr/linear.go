package schnorr

import (
	"fmt"
	"io"

	"github.com/sigmalab/sigma/pkg/math/curve"
	"github.com/sigmalab/sigma/pkg/sigma"
)

// Term is one summand base^(x₁·x₂·…) of a group equation. Only terms with
// exactly one variable are linear; anything else is rejected at
// construction time.
type Term struct {
	Base curve.Point
	Vars []Variable
}

// Var builds the linear term base^v.
func Var(v Variable, base curve.Point) Term {
	return Term{Base: base, Vars: []Variable{v}}
}

type groupTerm struct {
	base curve.Point
	v    Variable
}

// LinearGroupFragment proves that a linear group equation
//
//	Σᵢ xᵢ·Aᵢ = T
//
// holds for the witness variables xᵢ, public points Aᵢ and public target T
// (additive notation).
type LinearGroupFragment struct {
	group  curve.Curve
	terms  []groupTerm
	target curve.Point
}

// NewLinearGroupFragment builds a leaf proving Σ terms = target.
//
// Returns ErrInvalidStatement if any term is not linear in a single declared
// witness variable.
func NewLinearGroupFragment(group curve.Curve, terms []Term, target curve.Point) (*LinearGroupFragment, error) {
	if len(terms) == 0 {
		return nil, fmt.Errorf("%w: equation has no witness terms", ErrInvalidStatement)
	}
	if target == nil {
		return nil, fmt.Errorf("%w: missing target", ErrInvalidStatement)
	}
	flat := make([]groupTerm, len(terms))
	for i, t := range terms {
		if len(t.Vars) != 1 {
			return nil, fmt.Errorf("%w: term %d has %d variables", ErrInvalidStatement, i, len(t.Vars))
		}
		if t.Base == nil {
			return nil, fmt.Errorf("%w: term %d has no base", ErrInvalidStatement, i)
		}
		flat[i] = groupTerm{base: t.Base, v: t.Vars[0]}
	}
	return &LinearGroupFragment{group: group, terms: flat, target: target}, nil
}

// NewGroupEquation builds a leaf for the equation constant + Σ terms = target,
// normalized to the linear-with-public-target canonical form.
func NewGroupEquation(group curve.Curve, terms []Term, constant, target curve.Point) (*LinearGroupFragment, error) {
	if target == nil {
		return nil, fmt.Errorf("%w: missing target", ErrInvalidStatement)
	}
	normalized := group.NewPoint().Set(target)
	if constant != nil {
		normalized.Sub(constant)
	}
	return NewLinearGroupFragment(group, terms, normalized)
}

func (f *LinearGroupFragment) Curve() curve.Curve { return f.group }

func (f *LinearGroupFragment) Variables() []Variable {
	vars := make([]Variable, len(f.terms))
	for i, t := range f.terms {
		vars[i] = t.v
	}
	return dedupVariables(vars)
}

// evaluate computes Σ bindings(xᵢ)·Aᵢ.
func (f *LinearGroupFragment) evaluate(bindings Assignment) (curve.Point, error) {
	acc := f.group.NewPoint()
	for _, t := range f.terms {
		s := bindings.Get(t.v)
		if s == nil {
			return nil, fmt.Errorf("schnorr: unbound variable %q", t.v)
		}
		acc.Add(s.Act(t.base))
	}
	return acc, nil
}

func (f *LinearGroupFragment) IsSatisfied(witness Assignment) bool {
	result, err := f.evaluate(witness)
	if err != nil {
		return false
	}
	return result.Equal(f.target)
}

func (f *LinearGroupFragment) GenerateAnnouncementSecret(io.Reader, Assignment) (Secret, error) {
	// All randomness comes through the external bindings.
	return emptySecret{}, nil
}

func (f *LinearGroupFragment) GenerateAnnouncement(_ Assignment, _ Secret, externalRandom Assignment) (sigma.Announcement, error) {
	value, err := f.evaluate(externalRandom)
	if err != nil {
		return nil, err
	}
	return pointAnnouncement{value: value}, nil
}

func (f *LinearGroupFragment) GenerateResponse(Assignment, Secret, curve.Scalar) (sigma.Response, error) {
	return emptyResponse{}, nil
}

func (f *LinearGroupFragment) CheckTranscript(announcement sigma.Announcement, challenge curve.Scalar, _ sigma.Response, externalResponse Assignment) bool {
	ann, ok := announcement.(pointAnnouncement)
	if !ok {
		return false
	}
	lhs, err := f.evaluate(externalResponse)
	if err != nil {
		return false
	}
	// lhs == announcement + c·target
	rhs := f.group.NewPoint().Set(ann.value).Add(challenge.Act(f.target))
	return lhs.Equal(rhs)
}

func (f *LinearGroupFragment) GenerateSimulatedTranscript(_ io.Reader, challenge curve.Scalar, externalResponse Assignment) (sigma.Announcement, sigma.Response, error) {
	// The unique accepting announcement for the given challenge and
	// response bindings.
	evaluated, err := f.evaluate(externalResponse)
	if err != nil {
		return nil, nil, err
	}
	value := evaluated.Sub(challenge.Act(f.target))
	return pointAnnouncement{value: value}, emptyResponse{}, nil
}

func (f *LinearGroupFragment) CompressTranscript(sigma.Announcement, curve.Scalar, sigma.Response, Assignment) ([]byte, error) {
	// The announcement is recomputable from the response bindings.
	return []byte{}, nil
}

func (f *LinearGroupFragment) DecompressTranscript(data []byte, challenge curve.Scalar, externalResponse Assignment) (sigma.Announcement, sigma.Response, error) {
	if len(data) != 0 {
		return nil, nil, fmt.Errorf("%w: compressed leaf transcript must be empty", sigma.ErrEncoding)
	}
	return f.GenerateSimulatedTranscript(nil, challenge, externalResponse)
}

func (f *LinearGroupFragment) RestoreAnnouncement(data []byte) (sigma.Announcement, error) {
	value := f.group.NewPoint()
	if err := value.UnmarshalBinary(data); err != nil {
		return nil, fmt.Errorf("%w: %v", sigma.ErrEncoding, err)
	}
	return pointAnnouncement{value: value}, nil
}

func (f *LinearGroupFragment) RestoreResponse(data []byte) (sigma.Response, error) {
	if len(data) != 0 {
		return nil, fmt.Errorf("%w: leaf response must be empty", sigma.ErrEncoding)
	}
	return emptyResponse{}, nil
}

func (*LinearGroupFragment) isFragment() {}
