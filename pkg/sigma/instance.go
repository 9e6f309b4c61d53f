package sigma

import (
	"fmt"
	"io"

	"github.com/sigmalab/sigma/pkg/protocol"
)

// Message rounds of a Sigma protocol exchange.
const (
	roundAnnouncement uint16 = 1 + iota
	roundChallenge
	roundResponse
)

// ProverInstance drives one prover-side run of a Sigma protocol.
//
// The announcement secret is generated once, cached across the prover's two
// turns, and invalidated as soon as the response has been produced: reusing
// it for a second announcement would leak the witness.
type ProverInstance struct {
	proto  Protocol
	rand   io.Reader
	secret SecretInput

	announcementSecret AnnouncementSecret
	announcement       Announcement
	challenge          Challenge

	state protocol.State
}

// NewProverInstance creates a single-use prover for one proof attempt.
func NewProverInstance(proto Protocol, rand io.Reader, secret SecretInput) *ProverInstance {
	return &ProverInstance{
		proto:  proto,
		rand:   rand,
		secret: secret,
		state:  protocol.NotStarted,
	}
}

func (p *ProverInstance) Role() protocol.Role   { return protocol.Prover }
func (p *ProverInstance) State() protocol.State { return p.state }

func (p *ProverInstance) IsMyTurn() bool {
	return p.state == protocol.NotStarted || p.state == protocol.AwaitingOwnMessage
}

func (p *ProverInstance) ProduceNextMessage() (*protocol.Message, error) {
	switch p.state {
	case protocol.NotStarted:
		announcementSecret, err := p.proto.GenerateAnnouncementSecret(p.rand, p.secret)
		if err != nil {
			return nil, fmt.Errorf("sigma: prover: %w", err)
		}
		announcement, err := p.proto.GenerateAnnouncement(p.secret, announcementSecret)
		if err != nil {
			return nil, fmt.Errorf("sigma: prover: %w", err)
		}
		p.announcementSecret = announcementSecret
		p.announcement = announcement

		data, err := announcement.MarshalBinary()
		if err != nil {
			return nil, fmt.Errorf("sigma: prover: %w", err)
		}
		p.state = protocol.AwaitingPeerMessage
		return &protocol.Message{From: protocol.Prover, Round: roundAnnouncement, Data: data}, nil

	case protocol.AwaitingOwnMessage:
		response, err := p.proto.GenerateResponse(p.secret, p.announcementSecret, p.challenge)
		// One-shot: the secret must not survive past the response, whether
		// or not generation succeeded.
		p.announcementSecret = nil
		if err != nil {
			return nil, fmt.Errorf("sigma: prover: %w", err)
		}
		data, err := response.MarshalBinary()
		if err != nil {
			return nil, fmt.Errorf("sigma: prover: %w", err)
		}
		p.state = protocol.Done
		return &protocol.Message{From: protocol.Prover, Round: roundResponse, Data: data}, nil

	case protocol.Done:
		return nil, protocol.ErrTerminalState
	default:
		return nil, protocol.ErrProtocolViolation
	}
}

func (p *ProverInstance) ConsumeMessage(msg *protocol.Message) error {
	if p.state == protocol.Done {
		return protocol.ErrTerminalState
	}
	if p.state != protocol.AwaitingPeerMessage || msg == nil || msg.From != protocol.Verifier || msg.Round != roundChallenge {
		return protocol.ErrProtocolViolation
	}
	challenge, err := p.proto.RestoreChallenge(msg.Data)
	if err != nil {
		return fmt.Errorf("sigma: prover: restore challenge: %w", err)
	}
	p.challenge = challenge
	p.state = protocol.AwaitingOwnMessage
	return nil
}

// Accepted reports whether the prover completed its part of the exchange.
func (p *ProverInstance) Accepted() (bool, error) {
	if p.state != protocol.Done {
		return false, protocol.ErrNotDone
	}
	return true, nil
}

// VerifierInstance drives one verifier-side run of a Sigma protocol. Once
// the response has been consumed the verdict is frozen.
type VerifierInstance struct {
	proto Protocol
	rand  io.Reader

	announcement Announcement
	challenge    Challenge

	accepted bool
	state    protocol.State
}

// NewVerifierInstance creates a single-use verifier.
func NewVerifierInstance(proto Protocol, rand io.Reader) *VerifierInstance {
	return &VerifierInstance{
		proto: proto,
		rand:  rand,
		state: protocol.NotStarted,
	}
}

func (v *VerifierInstance) Role() protocol.Role   { return protocol.Verifier }
func (v *VerifierInstance) State() protocol.State { return v.state }

func (v *VerifierInstance) IsMyTurn() bool {
	return v.state == protocol.AwaitingOwnMessage
}

func (v *VerifierInstance) ProduceNextMessage() (*protocol.Message, error) {
	if v.state == protocol.Done {
		return nil, protocol.ErrTerminalState
	}
	if v.state != protocol.AwaitingOwnMessage {
		return nil, protocol.ErrProtocolViolation
	}
	challenge, err := v.proto.GenerateChallenge(v.rand)
	if err != nil {
		return nil, fmt.Errorf("sigma: verifier: %w", err)
	}
	v.challenge = challenge

	data, err := challenge.MarshalBinary()
	if err != nil {
		return nil, fmt.Errorf("sigma: verifier: %w", err)
	}
	v.state = protocol.AwaitingPeerMessage
	return &protocol.Message{From: protocol.Verifier, Round: roundChallenge, Data: data}, nil
}

func (v *VerifierInstance) ConsumeMessage(msg *protocol.Message) error {
	switch v.state {
	case protocol.NotStarted:
		if msg == nil || msg.From != protocol.Prover || msg.Round != roundAnnouncement {
			return protocol.ErrProtocolViolation
		}
		announcement, err := v.proto.RestoreAnnouncement(msg.Data)
		if err != nil {
			return fmt.Errorf("sigma: verifier: restore announcement: %w", err)
		}
		v.announcement = announcement
		v.state = protocol.AwaitingOwnMessage
		return nil

	case protocol.AwaitingPeerMessage:
		if msg == nil || msg.From != protocol.Prover || msg.Round != roundResponse {
			return protocol.ErrProtocolViolation
		}
		response, err := v.proto.RestoreResponse(v.announcement, v.challenge, msg.Data)
		if err != nil {
			return fmt.Errorf("sigma: verifier: restore response: %w", err)
		}
		v.accepted = v.proto.CheckTranscript(&Transcript{
			Announcement: v.announcement,
			Challenge:    v.challenge,
			Response:     response,
		})
		v.state = protocol.Done
		return nil

	case protocol.Done:
		return protocol.ErrTerminalState
	default:
		return protocol.ErrProtocolViolation
	}
}

// Accepted reports whether the prover convinced this verifier.
func (v *VerifierInstance) Accepted() (bool, error) {
	if v.state != protocol.Done {
		return false, protocol.ErrNotDone
	}
	return v.accepted, nil
}
