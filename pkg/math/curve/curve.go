package curve

import (
	"encoding"

	"github.com/cronokirby/saferith"
	"github.com/sigmalab/sigma/pkg/hash"
)

// Curve represents a cyclic group of prime order, together with its scalar
// field acting as the exponent ring.
type Curve interface {
	// NewPoint returns the identity element.
	NewPoint() Point
	// NewBasePoint returns the canonical generator.
	NewBasePoint() Point
	// NewScalar returns the zero scalar.
	NewScalar() Scalar
	// Name uniquely identifies this group, for domain separation and for
	// checking decoding context.
	Name() string
	// ScalarBytes is the length of a marshaled scalar.
	ScalarBytes() int
	// PointBytes is the length of a marshaled point.
	PointBytes() int
	// Order returns the order of the group.
	Order() *saferith.Modulus
}

// Scalar is an element of the exponent ring ℤ_q of a Curve.
//
// Operations mutate and return the receiver.
type Scalar interface {
	encoding.BinaryMarshaler
	encoding.BinaryUnmarshaler
	hash.WriterToWithDomain
	Curve() Curve
	Add(Scalar) Scalar
	Sub(Scalar) Scalar
	Mul(Scalar) Scalar
	Negate() Scalar
	Invert() Scalar
	Equal(Scalar) bool
	IsZero() bool
	Set(Scalar) Scalar
	SetNat(*saferith.Nat) Scalar
	SetUInt32(uint32) Scalar
	// Act returns the action x·P of this scalar on a point, leaving both
	// operands untouched.
	Act(Point) Point
	// ActOnBase returns x·G for the canonical generator G.
	ActOnBase() Point
}

// Point is a group element of a Curve.
//
// Operations mutate and return the receiver.
type Point interface {
	encoding.BinaryMarshaler
	encoding.BinaryUnmarshaler
	hash.WriterToWithDomain
	Curve() Curve
	Add(Point) Point
	Sub(Point) Point
	Negate() Point
	Equal(Point) bool
	IsIdentity() bool
	Set(Point) Point
}

// MakeInt converts a scalar to an arbitrary-precision integer.
func MakeInt(s Scalar) *saferith.Int {
	bytes, err := s.MarshalBinary()
	if err != nil {
		panic(err)
	}
	return new(saferith.Int).SetBytes(bytes)
}
