// Package protocol models a two-party interactive argument as a finite
// sequence of message exchanges between a prover and a verifier.
package protocol

import "errors"

// Role distinguishes the two parties of an interactive argument.
type Role uint8

const (
	Prover Role = 1 + iota
	Verifier
)

func (r Role) String() string {
	switch r {
	case Prover:
		return "prover"
	case Verifier:
		return "verifier"
	default:
		return "unknown"
	}
}

// Other returns the peer's role.
func (r Role) Other() Role {
	if r == Prover {
		return Verifier
	}
	return Prover
}

// State is the position of an Instance within the message exchange.
type State uint8

const (
	NotStarted State = iota
	AwaitingOwnMessage
	AwaitingPeerMessage
	Done
)

func (s State) String() string {
	switch s {
	case NotStarted:
		return "not started"
	case AwaitingOwnMessage:
		return "awaiting own message"
	case AwaitingPeerMessage:
		return "awaiting peer message"
	case Done:
		return "done"
	default:
		return "invalid"
	}
}

var (
	// ErrProtocolViolation is returned when a message is produced or
	// consumed out of the expected order. This signals caller misuse and is
	// never retried.
	ErrProtocolViolation = errors.New("protocol: message out of order")
	// ErrTerminalState is returned when an instance that has reached Done is
	// asked to produce or consume further messages. Instances are single-use.
	ErrTerminalState = errors.New("protocol: instance already terminated")
	// ErrNotDone is returned when a verdict is requested before the
	// exchange has completed.
	ErrNotDone = errors.New("protocol: exchange not finished")
)

// Instance is one concrete run of a two-party protocol in one role.
//
// An Instance alternates between producing messages on its own turns and
// consuming the peer's, until it reaches the Done state. Instances hold
// their own inputs and ephemeral state; separate instances share nothing and
// may run concurrently.
type Instance interface {
	// Role returns which side of the protocol this instance plays.
	Role() Role
	// State returns the current position within the exchange.
	State() State
	// IsMyTurn reports whether the next message is ours to produce.
	IsMyTurn() bool
	// ProduceNextMessage synthesizes the next outgoing message. Calling it
	// out of turn returns ErrProtocolViolation; after Done, ErrTerminalState.
	ProduceNextMessage() (*Message, error)
	// ConsumeMessage processes the next incoming message, mirroring the
	// error contract of ProduceNextMessage.
	ConsumeMessage(*Message) error
	// Accepted reports the verdict once the instance is Done; before that it
	// returns ErrNotDone. Provers report whether the run completed.
	Accepted() (bool, error)
}
