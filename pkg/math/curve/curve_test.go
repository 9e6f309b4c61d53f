package curve

import (
	"crypto/rand"
	"testing"

	"github.com/cronokirby/saferith"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var group = Secp256k1{}

func randomScalar(t *testing.T) Scalar {
	t.Helper()
	buf := make([]byte, group.ScalarBytes())
	_, err := rand.Read(buf)
	require.NoError(t, err)
	return group.NewScalar().SetNat(new(saferith.Nat).SetBytes(buf))
}

func TestScalarMarshalRoundTrip(t *testing.T) {
	s := randomScalar(t)
	data, err := s.MarshalBinary()
	require.NoError(t, err)
	assert.Len(t, data, group.ScalarBytes())

	restored := group.NewScalar()
	require.NoError(t, restored.UnmarshalBinary(data))
	assert.True(t, s.Equal(restored))
}

func TestPointMarshalRoundTrip(t *testing.T) {
	p := randomScalar(t).ActOnBase()
	data, err := p.MarshalBinary()
	require.NoError(t, err)
	assert.Len(t, data, group.PointBytes())

	restored := group.NewPoint()
	require.NoError(t, restored.UnmarshalBinary(data))
	assert.True(t, p.Equal(restored))
}

func TestIdentityMarshalRoundTrip(t *testing.T) {
	identity := group.NewPoint()
	require.True(t, identity.IsIdentity())

	data, err := identity.MarshalBinary()
	require.NoError(t, err)
	restored := group.NewPoint()
	require.NoError(t, restored.UnmarshalBinary(data))
	assert.True(t, restored.IsIdentity())
}

func TestPointUnmarshalGarbage(t *testing.T) {
	p := group.NewPoint()
	assert.Error(t, p.UnmarshalBinary(nil))
	assert.Error(t, p.UnmarshalBinary(make([]byte, group.PointBytes()-1)))

	// A prefix byte that is neither a compressed encoding nor the identity.
	bad := make([]byte, group.PointBytes())
	bad[0] = 9
	assert.Error(t, p.UnmarshalBinary(bad))
}

func TestScalarArithmetic(t *testing.T) {
	x := randomScalar(t)
	r := randomScalar(t)
	c := randomScalar(t)

	// z·G == r·G + c·(x·G) for z = r + c·x.
	z := group.NewScalar().Set(c).Mul(x).Add(r)
	lhs := z.ActOnBase()
	rhs := r.ActOnBase().Add(group.NewScalar().Set(c).Mul(x).ActOnBase())
	assert.True(t, lhs.Equal(rhs))
}

func TestScalarNegateInvert(t *testing.T) {
	x := randomScalar(t)

	sum := group.NewScalar().Set(x).Add(group.NewScalar().Set(x).Negate())
	assert.True(t, sum.IsZero())

	if !x.IsZero() {
		product := group.NewScalar().Set(x).Mul(group.NewScalar().Set(x).Invert())
		one := group.NewScalar().SetUInt32(1)
		assert.True(t, product.Equal(one))
	}
}

func TestPointSubNegate(t *testing.T) {
	p := randomScalar(t).ActOnBase()
	q := randomScalar(t).ActOnBase()

	// p - q == p + (-q).
	direct := group.NewPoint().Set(p).Sub(q)
	viaNegate := group.NewPoint().Set(p).Add(group.NewPoint().Set(q).Negate())
	assert.True(t, direct.Equal(viaNegate))

	zero := group.NewPoint().Set(p).Sub(p)
	assert.True(t, zero.IsIdentity())
}

func TestActMatchesActOnBase(t *testing.T) {
	x := randomScalar(t)
	assert.True(t, x.Act(group.NewBasePoint()).Equal(x.ActOnBase()))
}

func TestSetNatReduces(t *testing.T) {
	// Values at or above the group order wrap around.
	order := group.Order().Nat()
	s := group.NewScalar().SetNat(order)
	assert.True(t, s.IsZero())

	plusOne := new(saferith.Nat).Add(order, new(saferith.Nat).SetUint64(1), -1)
	s = group.NewScalar().SetNat(plusOne)
	assert.True(t, s.Equal(group.NewScalar().SetUInt32(1)))
}

func TestMakeInt(t *testing.T) {
	five := group.NewScalar().SetUInt32(5)
	assert.Equal(t, uint64(5), MakeInt(five).Abs().Big().Uint64())
}
