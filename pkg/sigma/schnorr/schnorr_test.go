package schnorr

import (
	"crypto/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sigmalab/sigma/internal/params"
	"github.com/sigmalab/sigma/pkg/math/curve"
	"github.com/sigmalab/sigma/pkg/math/sample"
	"github.com/sigmalab/sigma/pkg/sigma"
)

var testGroup = curve.Secp256k1{}

// dlogStatement builds the statement X = x·G for a fresh random x.
func dlogStatement(t *testing.T) (*LinearGroupFragment, Assignment) {
	t.Helper()
	x, X := sample.ScalarPointPair(rand.Reader, testGroup)
	eq, err := NewLinearGroupFragment(testGroup, []Term{Var("x", testGroup.NewBasePoint())}, X)
	require.NoError(t, err)
	return eq, Assignment{"x": x}
}

// prove runs one honest interactive exchange and returns the transcript.
func prove(t *testing.T, proto sigma.Protocol, secret sigma.SecretInput) *sigma.Transcript {
	t.Helper()
	as, err := proto.GenerateAnnouncementSecret(rand.Reader, secret)
	require.NoError(t, err)
	announcement, err := proto.GenerateAnnouncement(secret, as)
	require.NoError(t, err)
	challenge, err := proto.GenerateChallenge(rand.Reader)
	require.NoError(t, err)
	response, err := proto.GenerateResponse(secret, as, challenge)
	require.NoError(t, err)
	return &sigma.Transcript{
		Announcement: announcement,
		Challenge:    challenge,
		Response:     response,
	}
}

func TestDiscreteLogCompleteness(t *testing.T) {
	eq, witness := dlogStatement(t)
	proto := NewProtocol(eq)

	accepted := 0
	for i := 0; i < 1000; i++ {
		if proto.CheckTranscript(prove(t, proto, witness)) {
			accepted++
		}
	}
	assert.Equal(t, 1000, accepted)
}

func TestDiscreteLogWrongWitness(t *testing.T) {
	eq, witness := dlogStatement(t)
	proto := NewProtocol(eq)

	wrong := Assignment{"x": sample.Scalar(rand.Reader, testGroup)}
	assert.False(t, eq.IsSatisfied(wrong))
	assert.True(t, eq.IsSatisfied(witness))

	assert.False(t, proto.CheckTranscript(prove(t, proto, wrong)))
}

func TestExponentEquationCompleteness(t *testing.T) {
	// 3·x + 5·y = t.
	x := sample.Scalar(rand.Reader, testGroup)
	y := sample.Scalar(rand.Reader, testGroup)
	three := testGroup.NewScalar().SetUInt32(3)
	five := testGroup.NewScalar().SetUInt32(5)
	target := testGroup.NewScalar().Set(three).Mul(x).
		Add(testGroup.NewScalar().Set(five).Mul(y))

	eq, err := NewLinearExponentFragment(testGroup, []ExponentTerm{
		ExpVar("x", three),
		ExpVar("y", five),
	}, target)
	require.NoError(t, err)

	proto := NewProtocol(eq)
	witness := Assignment{"x": x, "y": y}
	assert.True(t, proto.CheckTranscript(prove(t, proto, witness)))
}

func TestAndSharedVariable(t *testing.T) {
	// X₁ = x·G and X₂ = x·H share the witness variable x.
	x := sample.Scalar(rand.Reader, testGroup)
	h := sample.Scalar(rand.Reader, testGroup)
	H := h.ActOnBase()
	X1 := x.ActOnBase()
	X2 := testGroup.NewScalar().Set(x).Act(H)

	eq1, err := NewLinearGroupFragment(testGroup, []Term{Var("x", testGroup.NewBasePoint())}, X1)
	require.NoError(t, err)
	eq2, err := NewLinearGroupFragment(testGroup, []Term{Var("x", H)}, X2)
	require.NoError(t, err)
	and, err := NewAnd(eq1, eq2)
	require.NoError(t, err)

	assert.Equal(t, []Variable{"x"}, and.Variables())

	proto := NewProtocol(and)
	witness := Assignment{"x": x}
	assert.True(t, proto.CheckTranscript(prove(t, proto, witness)))
}

func TestAndUnequalExponents(t *testing.T) {
	// X₁ = x·G, X₂ = y·H with x ≠ y cannot satisfy the shared-variable
	// conjunction for either witness value.
	x := sample.Scalar(rand.Reader, testGroup)
	y := sample.Scalar(rand.Reader, testGroup)
	h := sample.Scalar(rand.Reader, testGroup)
	H := h.ActOnBase()
	X1 := x.ActOnBase()
	X2 := testGroup.NewScalar().Set(y).Act(H)

	eq1, err := NewLinearGroupFragment(testGroup, []Term{Var("x", testGroup.NewBasePoint())}, X1)
	require.NoError(t, err)
	eq2, err := NewLinearGroupFragment(testGroup, []Term{Var("x", H)}, X2)
	require.NoError(t, err)
	and, err := NewAnd(eq1, eq2)
	require.NoError(t, err)

	proto := NewProtocol(and)
	assert.False(t, and.IsSatisfied(Assignment{"x": x}))
	assert.False(t, proto.CheckTranscript(prove(t, proto, Assignment{"x": x})))
	assert.False(t, proto.CheckTranscript(prove(t, proto, Assignment{"x": y})))
}

func TestMixedConjunction(t *testing.T) {
	// A group equation and an exponent equation over the same variable.
	x, X := sample.ScalarPointPair(rand.Reader, testGroup)
	two := testGroup.NewScalar().SetUInt32(2)
	doubled := testGroup.NewScalar().Set(two).Mul(x)

	eq1, err := NewLinearGroupFragment(testGroup, []Term{Var("x", testGroup.NewBasePoint())}, X)
	require.NoError(t, err)
	eq2, err := NewLinearExponentFragment(testGroup, []ExponentTerm{ExpVar("x", two)}, doubled)
	require.NoError(t, err)
	and, err := NewAnd(eq1, eq2)
	require.NoError(t, err)

	proto := NewProtocol(and)
	assert.True(t, proto.CheckTranscript(prove(t, proto, Assignment{"x": x})))
}

func TestSimulatedTranscriptAccepts(t *testing.T) {
	eq, _ := dlogStatement(t)
	proto := NewProtocol(eq)

	for i := 0; i < 32; i++ {
		challenge, err := proto.GenerateChallenge(rand.Reader)
		require.NoError(t, err)
		transcript, err := proto.GenerateSimulatedTranscript(rand.Reader, challenge)
		require.NoError(t, err)
		assert.True(t, proto.CheckTranscript(transcript))
		assert.True(t, challenge.(curve.Scalar).Equal(transcript.Challenge.(curve.Scalar)))
	}
}

func TestSimulationMatchesHonestDistribution(t *testing.T) {
	// For a fixed challenge, an honest transcript is the pair (uniform
	// response bindings, the unique announcement accepting under them). The
	// simulator must realize exactly that: re-deriving the announcement
	// from an honest run's own bindings reproduces it bit for bit.
	eq, witness := dlogStatement(t)
	proto := NewProtocol(eq)
	challenge, err := proto.GenerateChallenge(rand.Reader)
	require.NoError(t, err)
	c := challenge.(curve.Scalar)

	honestBindings := make([]curve.Scalar, 2)
	for run := 0; run < 2; run++ {
		as, err := proto.GenerateAnnouncementSecret(rand.Reader, witness)
		require.NoError(t, err)
		honest, err := proto.GenerateAnnouncement(witness, as)
		require.NoError(t, err)
		resp, err := proto.GenerateResponse(witness, as, challenge)
		require.NoError(t, err)
		bindings := resp.(response).bindings
		honestBindings[run] = bindings["x"]

		simulated, _, err := eq.GenerateSimulatedTranscript(nil, c, bindings)
		require.NoError(t, err)
		want, err := honest.MarshalBinary()
		require.NoError(t, err)
		got, err := simulated.MarshalBinary()
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
	// The bindings themselves are fresh uniform scalars per run.
	assert.False(t, honestBindings[0].Equal(honestBindings[1]))

	// And the simulator's own bindings are fresh as well.
	sim1, err := proto.GenerateSimulatedTranscript(rand.Reader, challenge)
	require.NoError(t, err)
	sim2, err := proto.GenerateSimulatedTranscript(rand.Reader, challenge)
	require.NoError(t, err)
	assert.True(t, proto.CheckTranscript(sim1))
	assert.True(t, proto.CheckTranscript(sim2))
	assert.False(t, sim1.Response.(response).bindings["x"].Equal(sim2.Response.(response).bindings["x"]))
}

func TestInvalidStatement(t *testing.T) {
	G := testGroup.NewBasePoint()
	X := sample.Scalar(rand.Reader, testGroup).ActOnBase()

	_, err := NewLinearGroupFragment(testGroup, nil, X)
	assert.ErrorIs(t, err, ErrInvalidStatement)

	_, err = NewLinearGroupFragment(testGroup, []Term{Var("x", G)}, nil)
	assert.ErrorIs(t, err, ErrInvalidStatement)

	// A quadratic term is out of scope.
	_, err = NewLinearGroupFragment(testGroup, []Term{{Base: G, Vars: []Variable{"x", "y"}}}, X)
	assert.ErrorIs(t, err, ErrInvalidStatement)

	_, err = NewLinearGroupFragment(testGroup, []Term{{Vars: []Variable{"x"}}}, X)
	assert.ErrorIs(t, err, ErrInvalidStatement)

	_, err = NewLinearExponentFragment(testGroup, nil, testGroup.NewScalar())
	assert.ErrorIs(t, err, ErrInvalidStatement)

	_, err = NewLinearExponentFragment(testGroup, []ExponentTerm{
		{Coeff: testGroup.NewScalar().SetUInt32(1), Vars: []Variable{"x", "y"}},
	}, testGroup.NewScalar())
	assert.ErrorIs(t, err, ErrInvalidStatement)

	_, err = NewAnd()
	assert.ErrorIs(t, err, ErrInvalidStatement)

	eq, _ := dlogStatement(t)
	_, err = NewOr(eq)
	assert.ErrorIs(t, err, ErrInvalidStatement)
}

func TestGroupEquationNormalization(t *testing.T) {
	// C + x·G = T is proven as x·G = T - C.
	x := sample.Scalar(rand.Reader, testGroup)
	C := sample.Scalar(rand.Reader, testGroup).ActOnBase()
	T := testGroup.NewPoint().Set(C).Add(x.ActOnBase())

	eq, err := NewGroupEquation(testGroup, []Term{Var("x", testGroup.NewBasePoint())}, C, T)
	require.NoError(t, err)

	witness := Assignment{"x": x}
	assert.True(t, eq.IsSatisfied(witness))

	proto := NewProtocol(eq)
	assert.True(t, proto.CheckTranscript(prove(t, proto, witness)))
}

func TestChallengeFromBytes(t *testing.T) {
	eq, _ := dlogStatement(t)
	proto := NewProtocol(eq)

	assert.Equal(t, params.ChallengeBytes, proto.ChallengeBytes())
	assert.Positive(t, proto.ChallengeSpaceSize().BitLen())

	data := make([]byte, proto.ChallengeBytes())
	_, err := rand.Read(data)
	require.NoError(t, err)
	c1, err := proto.CreateChallengeFromBytes(data)
	require.NoError(t, err)
	c2, err := proto.CreateChallengeFromBytes(data)
	require.NoError(t, err)
	assert.True(t, c1.(curve.Scalar).Equal(c2.(curve.Scalar)))

	_, err = proto.CreateChallengeFromBytes(data[1:])
	assert.ErrorIs(t, err, sigma.ErrEncoding)
	_, err = proto.CreateChallengeFromBytes(append(data, 0))
	assert.ErrorIs(t, err, sigma.ErrEncoding)
}

func TestResponseRoundTrip(t *testing.T) {
	eq, witness := dlogStatement(t)
	proto := NewProtocol(eq)
	transcript := prove(t, proto, witness)

	announcementData, err := transcript.Announcement.MarshalBinary()
	require.NoError(t, err)
	challengeData, err := transcript.Challenge.MarshalBinary()
	require.NoError(t, err)
	responseData, err := transcript.Response.MarshalBinary()
	require.NoError(t, err)

	announcement, err := proto.RestoreAnnouncement(announcementData)
	require.NoError(t, err)
	challenge, err := proto.RestoreChallenge(challengeData)
	require.NoError(t, err)
	response, err := proto.RestoreResponse(announcement, challenge, responseData)
	require.NoError(t, err)

	assert.True(t, proto.CheckTranscript(&sigma.Transcript{
		Announcement: announcement,
		Challenge:    challenge,
		Response:     response,
	}))
}
