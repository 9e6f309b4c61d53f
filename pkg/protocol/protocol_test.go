package protocol

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRoleOther(t *testing.T) {
	assert.Equal(t, Verifier, Prover.Other())
	assert.Equal(t, Prover, Verifier.Other())
	assert.Equal(t, "prover", Prover.String())
	assert.Equal(t, "verifier", Verifier.String())
}

func TestMessageValidate(t *testing.T) {
	var nilMsg *Message
	assert.Error(t, nilMsg.Validate())

	assert.Error(t, (&Message{From: Prover, Round: 0}).Validate())
	assert.Error(t, (&Message{From: Role(0), Round: 1}).Validate())
	assert.Error(t, (&Message{From: Role(7), Round: 1}).Validate())
	assert.NoError(t, (&Message{From: Verifier, Round: 2}).Validate())
}

func TestStateString(t *testing.T) {
	for _, s := range []State{NotStarted, AwaitingOwnMessage, AwaitingPeerMessage, Done} {
		assert.NotEqual(t, "invalid", s.String())
	}
	assert.Equal(t, "invalid", State(42).String())
}
