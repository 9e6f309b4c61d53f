package sigma_test

import (
	"crypto/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"github.com/sigmalab/sigma/internal/pool"
	"github.com/sigmalab/sigma/pkg/math/curve"
	"github.com/sigmalab/sigma/pkg/math/sample"
	"github.com/sigmalab/sigma/pkg/protocol"
	"github.com/sigmalab/sigma/pkg/sigma"
	"github.com/sigmalab/sigma/pkg/sigma/schnorr"
)

var testGroup = curve.Secp256k1{}

func dlogProtocol(t *testing.T) (sigma.Protocol, sigma.SecretInput) {
	t.Helper()
	x, X := sample.ScalarPointPair(rand.Reader, testGroup)
	eq, err := schnorr.NewLinearGroupFragment(testGroup, []schnorr.Term{
		schnorr.Var("x", testGroup.NewBasePoint()),
	}, X)
	require.NoError(t, err)
	return schnorr.NewProtocol(eq), schnorr.Assignment{"x": x}
}

// exchange moves messages between the two instances until both are done.
func exchange(t *testing.T, a, b protocol.Instance) {
	t.Helper()
	for i := 0; i < 8; i++ {
		if a.State() == protocol.Done && b.State() == protocol.Done {
			return
		}
		from, to := a, b
		if !from.IsMyTurn() {
			from, to = b, a
		}
		require.True(t, from.IsMyTurn(), "deadlock: nobody's turn")
		msg, err := from.ProduceNextMessage()
		require.NoError(t, err)
		require.NoError(t, to.ConsumeMessage(msg))
	}
	t.Fatal("exchange did not terminate")
}

func TestInstanceExchange(t *testing.T) {
	proto, secret := dlogProtocol(t)
	prover := sigma.NewProverInstance(proto, rand.Reader, secret)
	verifier := sigma.NewVerifierInstance(proto, rand.Reader)

	assert.Equal(t, protocol.Prover, prover.Role())
	assert.Equal(t, protocol.Verifier, verifier.Role())
	assert.True(t, prover.IsMyTurn())
	assert.False(t, verifier.IsMyTurn())

	exchange(t, prover, verifier)

	ok, err := verifier.Accepted()
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = prover.Accepted()
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestInstanceRejectsWrongWitness(t *testing.T) {
	proto, _ := dlogProtocol(t)
	wrong := schnorr.Assignment{"x": sample.Scalar(rand.Reader, testGroup)}
	prover := sigma.NewProverInstance(proto, rand.Reader, wrong)
	verifier := sigma.NewVerifierInstance(proto, rand.Reader)

	exchange(t, prover, verifier)

	ok, err := verifier.Accepted()
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestInstanceVerdictBeforeDone(t *testing.T) {
	proto, secret := dlogProtocol(t)
	prover := sigma.NewProverInstance(proto, rand.Reader, secret)
	verifier := sigma.NewVerifierInstance(proto, rand.Reader)

	_, err := prover.Accepted()
	assert.ErrorIs(t, err, protocol.ErrNotDone)
	_, err = verifier.Accepted()
	assert.ErrorIs(t, err, protocol.ErrNotDone)
}

func TestInstanceOutOfOrder(t *testing.T) {
	proto, secret := dlogProtocol(t)
	prover := sigma.NewProverInstance(proto, rand.Reader, secret)
	verifier := sigma.NewVerifierInstance(proto, rand.Reader)

	// The verifier cannot open the exchange.
	_, err := verifier.ProduceNextMessage()
	assert.ErrorIs(t, err, protocol.ErrProtocolViolation)

	announcement, err := prover.ProduceNextMessage()
	require.NoError(t, err)

	// The prover must wait for the challenge before responding.
	_, err = prover.ProduceNextMessage()
	assert.ErrorIs(t, err, protocol.ErrProtocolViolation)

	// The verifier rejects a response before the announcement.
	badRound := *announcement
	badRound.Round = 3
	assert.ErrorIs(t, verifier.ConsumeMessage(&badRound), protocol.ErrProtocolViolation)
	assert.ErrorIs(t, verifier.ConsumeMessage(nil), protocol.ErrProtocolViolation)

	require.NoError(t, verifier.ConsumeMessage(announcement))

	// Replaying the announcement is a violation: the verifier is now
	// expected to speak.
	assert.ErrorIs(t, verifier.ConsumeMessage(announcement), protocol.ErrProtocolViolation)
}

func TestInstanceTerminal(t *testing.T) {
	proto, secret := dlogProtocol(t)
	prover := sigma.NewProverInstance(proto, rand.Reader, secret)
	verifier := sigma.NewVerifierInstance(proto, rand.Reader)

	exchange(t, prover, verifier)

	// Done instances are single-use.
	_, err := prover.ProduceNextMessage()
	assert.ErrorIs(t, err, protocol.ErrTerminalState)
	err = prover.ConsumeMessage(&protocol.Message{From: protocol.Verifier, Round: 2})
	assert.ErrorIs(t, err, protocol.ErrTerminalState)
	_, err = verifier.ProduceNextMessage()
	assert.ErrorIs(t, err, protocol.ErrTerminalState)
	err = verifier.ConsumeMessage(&protocol.Message{From: protocol.Prover, Round: 3})
	assert.ErrorIs(t, err, protocol.ErrTerminalState)
}

func TestHandlerExchange(t *testing.T) {
	proto, secret := dlogProtocol(t)
	ssid := []byte("test session")

	// Both handlers run concurrently off one shared randomness source.
	rng := pool.NewLockedReader(rand.Reader)
	proverH, err := protocol.NewHandler(sigma.NewProverInstance(proto, rng, secret), ssid, proto.ProtocolID())
	require.NoError(t, err)
	verifierH, err := protocol.NewHandler(sigma.NewVerifierInstance(proto, rng), ssid, proto.ProtocolID())
	require.NoError(t, err)

	var group errgroup.Group
	group.Go(func() error {
		for msg := range proverH.Listen() {
			if err := verifierH.Update(msg); err != nil {
				return err
			}
		}
		return nil
	})
	group.Go(func() error {
		for msg := range verifierH.Listen() {
			if err := proverH.Update(msg); err != nil {
				return err
			}
		}
		return nil
	})
	require.NoError(t, group.Wait())

	ok, err := verifierH.Accepted()
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = proverH.Accepted()
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestHandlerUpdateAfterDone(t *testing.T) {
	proto, secret := dlogProtocol(t)
	ssid := []byte("test session")

	proverH, err := protocol.NewHandler(sigma.NewProverInstance(proto, rand.Reader, secret), ssid, proto.ProtocolID())
	require.NoError(t, err)
	verifierH, err := protocol.NewHandler(sigma.NewVerifierInstance(proto, rand.Reader), ssid, proto.ProtocolID())
	require.NoError(t, err)

	announcement := <-proverH.Listen()
	require.NoError(t, verifierH.Update(announcement))
	challenge := <-verifierH.Listen()
	require.NoError(t, proverH.Update(challenge))
	response := <-proverH.Listen()
	require.NoError(t, verifierH.Update(response))

	// Both exchanges finished; the out channels are closed.
	_, open := <-proverH.Listen()
	assert.False(t, open)
	_, open = <-verifierH.Listen()
	assert.False(t, open)

	// A duplicated network delivery of the last message must fail cleanly,
	// not crash on the closed channel.
	assert.ErrorIs(t, proverH.Update(challenge), protocol.ErrTerminalState)
	assert.ErrorIs(t, verifierH.Update(response), protocol.ErrTerminalState)
	assert.ErrorIs(t, verifierH.Update(response), protocol.ErrTerminalState)

	// The verdict survives the replay.
	ok, err := verifierH.Accepted()
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = proverH.Accepted()
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestInstanceRejectsWrongSenderRole(t *testing.T) {
	proto, secret := dlogProtocol(t)
	prover := sigma.NewProverInstance(proto, rand.Reader, secret)
	verifier := sigma.NewVerifierInstance(proto, rand.Reader)

	announcement, err := prover.ProduceNextMessage()
	require.NoError(t, err)

	// Right round, wrong claimed sender.
	spoofed := *announcement
	spoofed.From = protocol.Verifier
	assert.ErrorIs(t, verifier.ConsumeMessage(&spoofed), protocol.ErrProtocolViolation)
	require.NoError(t, verifier.ConsumeMessage(announcement))

	challenge, err := verifier.ProduceNextMessage()
	require.NoError(t, err)
	spoofedChallenge := *challenge
	spoofedChallenge.From = protocol.Prover
	assert.ErrorIs(t, prover.ConsumeMessage(&spoofedChallenge), protocol.ErrProtocolViolation)
	require.NoError(t, prover.ConsumeMessage(challenge))

	responseMsg, err := prover.ProduceNextMessage()
	require.NoError(t, err)
	spoofedResponse := *responseMsg
	spoofedResponse.From = protocol.Verifier
	assert.ErrorIs(t, verifier.ConsumeMessage(&spoofedResponse), protocol.ErrProtocolViolation)
	require.NoError(t, verifier.ConsumeMessage(responseMsg))

	ok, err := verifier.Accepted()
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestHandlerRejectsForeignMessages(t *testing.T) {
	proto, secret := dlogProtocol(t)

	proverH, err := protocol.NewHandler(sigma.NewProverInstance(proto, rand.Reader, secret), []byte("session A"), proto.ProtocolID())
	require.NoError(t, err)
	verifierH, err := protocol.NewHandler(sigma.NewVerifierInstance(proto, rand.Reader), []byte("session B"), proto.ProtocolID())
	require.NoError(t, err)

	msg := <-proverH.Listen()
	require.NotNil(t, msg)
	assert.Error(t, verifierH.Update(msg))

	// The handler stays failed afterwards.
	assert.Error(t, verifierH.Update(msg))
	_, err = verifierH.Accepted()
	assert.Error(t, err)
}

func TestMessageMarshalRoundTrip(t *testing.T) {
	msg := &protocol.Message{
		SSID:     []byte("session"),
		From:     protocol.Prover,
		Protocol: "schnorr-secp256k1",
		Round:    1,
		Data:     []byte{1, 2, 3},
	}
	require.NoError(t, msg.Validate())

	data, err := msg.MarshalBinary()
	require.NoError(t, err)
	var restored protocol.Message
	require.NoError(t, restored.UnmarshalBinary(data))
	assert.Equal(t, *msg, restored)
}
