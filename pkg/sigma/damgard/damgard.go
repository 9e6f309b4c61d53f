// Package damgard wraps a Sigma protocol with a commitment to its
// announcement (Damgård's technique), which makes the argument
// straight-line extractable at the cost of one extra element per run.
package damgard

import (
	"fmt"
	"io"
	"math/big"

	"github.com/fxamacker/cbor/v2"
	"github.com/sigmalab/sigma/pkg/hash"
	"github.com/sigmalab/sigma/pkg/sigma"
)

// CommitmentScheme is the narrow interface Damgård's technique needs from an
// external commitment scheme. *hash.Committer implements it.
type CommitmentScheme interface {
	Commit(rand io.Reader, data []byte) (hash.Commitment, hash.Decommitment, error)
	Verify(commitment hash.Commitment, data []byte, decommitment hash.Decommitment) bool
}

// Protocol wraps an inner Sigma protocol: its announcement is the commitment
// to the inner announcement, and the opening travels with the response. A
// commitment that fails to open is a verification failure, not an error.
//
// Completeness and zero-knowledge of the inner protocol carry over
// unchanged; only who can extract the witness differs.
type Protocol struct {
	inner  sigma.Protocol
	scheme CommitmentScheme
}

// Wrap applies Damgård's technique to inner.
func Wrap(inner sigma.Protocol, scheme CommitmentScheme) *Protocol {
	return &Protocol{inner: inner, scheme: scheme}
}

func (p *Protocol) ProtocolID() string {
	return "damgard+" + p.inner.ProtocolID()
}

// announcement is the commitment to the inner announcement.
type announcement struct {
	commitment hash.Commitment
}

func (a announcement) WriteTo(w io.Writer) (int64, error) {
	return a.commitment.WriteTo(w)
}

func (a announcement) Domain() string {
	return "Damgard Announcement"
}

func (a announcement) MarshalBinary() ([]byte, error) {
	return a.commitment, nil
}

// secret is the inner secret together with the committed inner announcement
// and its opening, so that the single-pass announcement/response contract is
// preserved.
type secret struct {
	inner             sigma.AnnouncementSecret
	innerAnnouncement []byte
	commitment        hash.Commitment
	decommitment      hash.Decommitment
}

// response opens the commitment and carries the inner response.
type response struct {
	inner             sigma.Response
	innerAnnouncement []byte
	decommitment      hash.Decommitment
}

type responseWire struct {
	Data         []byte `cbor:"1,keyasint"`
	Announcement []byte `cbor:"2,keyasint"`
	Decommitment []byte `cbor:"3,keyasint"`
}

func (r response) MarshalBinary() ([]byte, error) {
	data, err := r.inner.MarshalBinary()
	if err != nil {
		return nil, err
	}
	return cbor.Marshal(responseWire{
		Data:         data,
		Announcement: r.innerAnnouncement,
		Decommitment: r.decommitment,
	})
}

func (p *Protocol) GenerateAnnouncementSecret(rand io.Reader, secretInput sigma.SecretInput) (sigma.AnnouncementSecret, error) {
	innerSecret, err := p.inner.GenerateAnnouncementSecret(rand, secretInput)
	if err != nil {
		return nil, err
	}
	innerAnnouncement, err := p.inner.GenerateAnnouncement(secretInput, innerSecret)
	if err != nil {
		return nil, err
	}
	data, err := innerAnnouncement.MarshalBinary()
	if err != nil {
		return nil, err
	}
	commitment, decommitment, err := p.scheme.Commit(rand, data)
	if err != nil {
		return nil, fmt.Errorf("damgard: %w", err)
	}
	return secret{
		inner:             innerSecret,
		innerAnnouncement: data,
		commitment:        commitment,
		decommitment:      decommitment,
	}, nil
}

func (p *Protocol) GenerateAnnouncement(_ sigma.SecretInput, as sigma.AnnouncementSecret) (sigma.Announcement, error) {
	s, ok := as.(secret)
	if !ok {
		return nil, fmt.Errorf("damgard: mismatched announcement secret %T", as)
	}
	return announcement{commitment: s.commitment}, nil
}

func (p *Protocol) GenerateChallenge(rand io.Reader) (sigma.Challenge, error) {
	return p.inner.GenerateChallenge(rand)
}

func (p *Protocol) GenerateResponse(secretInput sigma.SecretInput, as sigma.AnnouncementSecret, challenge sigma.Challenge) (sigma.Response, error) {
	s, ok := as.(secret)
	if !ok {
		return nil, fmt.Errorf("damgard: mismatched announcement secret %T", as)
	}
	inner, err := p.inner.GenerateResponse(secretInput, s.inner, challenge)
	if err != nil {
		return nil, err
	}
	return response{
		inner:             inner,
		innerAnnouncement: s.innerAnnouncement,
		decommitment:      s.decommitment,
	}, nil
}

func (p *Protocol) CheckTranscript(t *sigma.Transcript) bool {
	ann, ok := t.Announcement.(announcement)
	if !ok {
		return false
	}
	resp, ok := t.Response.(response)
	if !ok {
		return false
	}
	if !p.scheme.Verify(ann.commitment, resp.innerAnnouncement, resp.decommitment) {
		return false
	}
	innerAnnouncement, err := p.inner.RestoreAnnouncement(resp.innerAnnouncement)
	if err != nil {
		return false
	}
	return p.inner.CheckTranscript(&sigma.Transcript{
		Announcement: innerAnnouncement,
		Challenge:    t.Challenge,
		Response:     resp.inner,
	})
}

func (p *Protocol) GenerateSimulatedTranscript(rand io.Reader, challenge sigma.Challenge) (*sigma.Transcript, error) {
	inner, err := p.inner.GenerateSimulatedTranscript(rand, challenge)
	if err != nil {
		return nil, err
	}
	data, err := inner.Announcement.MarshalBinary()
	if err != nil {
		return nil, err
	}
	commitment, decommitment, err := p.scheme.Commit(rand, data)
	if err != nil {
		return nil, fmt.Errorf("damgard: %w", err)
	}
	return &sigma.Transcript{
		Announcement: announcement{commitment: commitment},
		Challenge:    challenge,
		Response: response{
			inner:             inner.Response,
			innerAnnouncement: data,
			decommitment:      decommitment,
		},
	}, nil
}

func (p *Protocol) CreateChallengeFromBytes(data []byte) (sigma.Challenge, error) {
	return p.inner.CreateChallengeFromBytes(data)
}

func (p *Protocol) ChallengeBytes() int {
	return p.inner.ChallengeBytes()
}

func (p *Protocol) ChallengeSpaceSize() *big.Int {
	return p.inner.ChallengeSpaceSize()
}

type transcriptWire struct {
	Announcement []byte `cbor:"1,keyasint"`
	Challenge    []byte `cbor:"2,keyasint"`
	Response     []byte `cbor:"3,keyasint"`
}

// CompressTranscript does not drop the commitment: it is the binding the
// technique exists for. The compressed form is the full transcript encoding.
func (p *Protocol) CompressTranscript(t *sigma.Transcript) ([]byte, error) {
	ann, err := t.Announcement.MarshalBinary()
	if err != nil {
		return nil, err
	}
	challenge, err := t.Challenge.MarshalBinary()
	if err != nil {
		return nil, err
	}
	resp, err := t.Response.MarshalBinary()
	if err != nil {
		return nil, err
	}
	return cbor.Marshal(transcriptWire{Announcement: ann, Challenge: challenge, Response: resp})
}

func (p *Protocol) DecompressTranscript(data []byte) (*sigma.Transcript, error) {
	var wire transcriptWire
	if err := cbor.Unmarshal(data, &wire); err != nil {
		return nil, fmt.Errorf("%w: %v", sigma.ErrEncoding, err)
	}
	ann, err := p.RestoreAnnouncement(wire.Announcement)
	if err != nil {
		return nil, err
	}
	challenge, err := p.RestoreChallenge(wire.Challenge)
	if err != nil {
		return nil, err
	}
	resp, err := p.RestoreResponse(ann, challenge, wire.Response)
	if err != nil {
		return nil, err
	}
	t := &sigma.Transcript{Announcement: ann, Challenge: challenge, Response: resp}
	if !p.CheckTranscript(t) {
		return nil, sigma.ErrDecompress
	}
	return t, nil
}

func (p *Protocol) RestoreAnnouncement(data []byte) (sigma.Announcement, error) {
	commitment := hash.Commitment(data)
	if err := commitment.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", sigma.ErrEncoding, err)
	}
	return announcement{commitment: commitment}, nil
}

func (p *Protocol) RestoreChallenge(data []byte) (sigma.Challenge, error) {
	return p.inner.RestoreChallenge(data)
}

func (p *Protocol) RestoreResponse(_ sigma.Announcement, challenge sigma.Challenge, data []byte) (sigma.Response, error) {
	var wire responseWire
	if err := cbor.Unmarshal(data, &wire); err != nil {
		return nil, fmt.Errorf("%w: %v", sigma.ErrEncoding, err)
	}
	innerAnnouncement, err := p.inner.RestoreAnnouncement(wire.Announcement)
	if err != nil {
		return nil, err
	}
	inner, err := p.inner.RestoreResponse(innerAnnouncement, challenge, wire.Data)
	if err != nil {
		return nil, err
	}
	return response{
		inner:             inner,
		innerAnnouncement: wire.Announcement,
		decommitment:      hash.Decommitment(wire.Decommitment),
	}, nil
}
