package schnorr

import (
	"fmt"
	"io"

	"github.com/sigmalab/sigma/pkg/math/curve"
	"github.com/sigmalab/sigma/pkg/sigma"
)

// ExponentTerm is one summand coeff·x₁·x₂·… of an exponent equation. Only
// terms with exactly one variable are linear.
type ExponentTerm struct {
	Coeff curve.Scalar
	Vars  []Variable
}

// ExpVar builds the linear term coeff·v.
func ExpVar(v Variable, coeff curve.Scalar) ExponentTerm {
	return ExponentTerm{Coeff: coeff, Vars: []Variable{v}}
}

type exponentTerm struct {
	coeff curve.Scalar
	v     Variable
}

// LinearExponentFragment proves that a linear equation over the exponent
// ring
//
//	Σᵢ cᵢ·xᵢ = t
//
// holds for witness variables xᵢ and public cᵢ, t. Use LinearGroupFragment
// for equations over group elements, which is much more common.
type LinearExponentFragment struct {
	group  curve.Curve
	terms  []exponentTerm
	target curve.Scalar
}

// NewLinearExponentFragment builds a leaf proving Σ terms = target.
//
// Returns ErrInvalidStatement if any term is not linear in a single declared
// witness variable.
func NewLinearExponentFragment(group curve.Curve, terms []ExponentTerm, target curve.Scalar) (*LinearExponentFragment, error) {
	if len(terms) == 0 {
		return nil, fmt.Errorf("%w: equation has no witness terms", ErrInvalidStatement)
	}
	if target == nil {
		return nil, fmt.Errorf("%w: missing target", ErrInvalidStatement)
	}
	flat := make([]exponentTerm, len(terms))
	for i, t := range terms {
		if len(t.Vars) != 1 {
			return nil, fmt.Errorf("%w: term %d has %d variables", ErrInvalidStatement, i, len(t.Vars))
		}
		if t.Coeff == nil {
			return nil, fmt.Errorf("%w: term %d has no coefficient", ErrInvalidStatement, i)
		}
		flat[i] = exponentTerm{coeff: t.Coeff, v: t.Vars[0]}
	}
	return &LinearExponentFragment{group: group, terms: flat, target: target}, nil
}

func (f *LinearExponentFragment) Curve() curve.Curve { return f.group }

func (f *LinearExponentFragment) Variables() []Variable {
	vars := make([]Variable, len(f.terms))
	for i, t := range f.terms {
		vars[i] = t.v
	}
	return dedupVariables(vars)
}

// evaluate computes Σ cᵢ·bindings(xᵢ).
func (f *LinearExponentFragment) evaluate(bindings Assignment) (curve.Scalar, error) {
	acc := f.group.NewScalar()
	for _, t := range f.terms {
		s := bindings.Get(t.v)
		if s == nil {
			return nil, fmt.Errorf("schnorr: unbound variable %q", t.v)
		}
		acc.Add(f.group.NewScalar().Set(t.coeff).Mul(s))
	}
	return acc, nil
}

func (f *LinearExponentFragment) IsSatisfied(witness Assignment) bool {
	result, err := f.evaluate(witness)
	if err != nil {
		return false
	}
	return result.Equal(f.target)
}

func (f *LinearExponentFragment) GenerateAnnouncementSecret(io.Reader, Assignment) (Secret, error) {
	return emptySecret{}, nil
}

func (f *LinearExponentFragment) GenerateAnnouncement(_ Assignment, _ Secret, externalRandom Assignment) (sigma.Announcement, error) {
	value, err := f.evaluate(externalRandom)
	if err != nil {
		return nil, err
	}
	return scalarAnnouncement{value: value}, nil
}

func (f *LinearExponentFragment) GenerateResponse(Assignment, Secret, curve.Scalar) (sigma.Response, error) {
	return emptyResponse{}, nil
}

func (f *LinearExponentFragment) CheckTranscript(announcement sigma.Announcement, challenge curve.Scalar, _ sigma.Response, externalResponse Assignment) bool {
	ann, ok := announcement.(scalarAnnouncement)
	if !ok {
		return false
	}
	lhs, err := f.evaluate(externalResponse)
	if err != nil {
		return false
	}
	// lhs == announcement + c·target
	rhs := f.group.NewScalar().Set(challenge).Mul(f.target).Add(ann.value)
	return lhs.Equal(rhs)
}

func (f *LinearExponentFragment) GenerateSimulatedTranscript(_ io.Reader, challenge curve.Scalar, externalResponse Assignment) (sigma.Announcement, sigma.Response, error) {
	evaluated, err := f.evaluate(externalResponse)
	if err != nil {
		return nil, nil, err
	}
	value := evaluated.Sub(f.group.NewScalar().Set(challenge).Mul(f.target))
	return scalarAnnouncement{value: value}, emptyResponse{}, nil
}

func (f *LinearExponentFragment) CompressTranscript(sigma.Announcement, curve.Scalar, sigma.Response, Assignment) ([]byte, error) {
	return []byte{}, nil
}

func (f *LinearExponentFragment) DecompressTranscript(data []byte, challenge curve.Scalar, externalResponse Assignment) (sigma.Announcement, sigma.Response, error) {
	if len(data) != 0 {
		return nil, nil, fmt.Errorf("%w: compressed leaf transcript must be empty", sigma.ErrEncoding)
	}
	return f.GenerateSimulatedTranscript(nil, challenge, externalResponse)
}

func (f *LinearExponentFragment) RestoreAnnouncement(data []byte) (sigma.Announcement, error) {
	value := f.group.NewScalar()
	if err := value.UnmarshalBinary(data); err != nil {
		return nil, fmt.Errorf("%w: %v", sigma.ErrEncoding, err)
	}
	return scalarAnnouncement{value: value}, nil
}

func (f *LinearExponentFragment) RestoreResponse(data []byte) (sigma.Response, error) {
	if len(data) != 0 {
		return nil, fmt.Errorf("%w: leaf response must be empty", sigma.ErrEncoding)
	}
	return emptyResponse{}, nil
}

func (*LinearExponentFragment) isFragment() {}
