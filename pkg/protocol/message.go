package protocol

import (
	"errors"
	"fmt"

	"github.com/fxamacker/cbor/v2"
)

// Message is one protocol message together with the header identifying the
// session it belongs to.
type Message struct {
	// SSID is a byte string which uniquely identifies the session this
	// message belongs to.
	SSID []byte
	// From is the role of the sender.
	From Role
	// Protocol identifies the protocol this message belongs to.
	Protocol string
	// Round is the index of the message within the exchange, starting at 1.
	Round uint16
	// Data is the actual content consumed by the receiving instance.
	Data []byte
}

// String implements fmt.Stringer.
func (m Message) String() string {
	return fmt.Sprintf("message: round %d, from: %s, protocol: %s", m.Round, m.From, m.Protocol)
}

// Validate checks the message header for obvious garbage.
func (m *Message) Validate() error {
	if m == nil {
		return errors.New("protocol: nil message")
	}
	if m.From != Prover && m.From != Verifier {
		return fmt.Errorf("protocol: message with invalid sender role %d", m.From)
	}
	if m.Round == 0 {
		return errors.New("protocol: message with round 0")
	}
	return nil
}

// rawMessage has the same fields as Message but none of its methods, so
// that CBOR encoding does not recurse back into MarshalBinary.
type rawMessage Message

// MarshalBinary implements encoding.BinaryMarshaler.
func (m *Message) MarshalBinary() ([]byte, error) {
	return cbor.Marshal((*rawMessage)(m))
}

// UnmarshalBinary implements encoding.BinaryUnmarshaler.
func (m *Message) UnmarshalBinary(data []byte) error {
	return cbor.Unmarshal(data, (*rawMessage)(m))
}
