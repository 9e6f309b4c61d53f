// Package fiatshamir compiles an interactive Sigma protocol into a
// non-interactive proof system by deriving the challenge from a hash of the
// common input and the announcement.
package fiatshamir

import (
	"bytes"
	"fmt"
	"io"

	"github.com/fxamacker/cbor/v2"
	"github.com/sigmalab/sigma/pkg/hash"
	"github.com/sigmalab/sigma/pkg/sigma"
)

// Proof is a non-interactive proof: the compressed transcript of one
// protocol run under the hash-derived challenge.
type Proof struct {
	Transcript []byte `cbor:"1,keyasint"`
}

// rawProof has the same fields as Proof but none of its methods, so that
// CBOR encoding does not recurse back into MarshalBinary.
type rawProof Proof

// MarshalBinary implements encoding.BinaryMarshaler.
func (p *Proof) MarshalBinary() ([]byte, error) {
	return cbor.Marshal((*rawProof)(p))
}

// UnmarshalBinary implements encoding.BinaryUnmarshaler.
func (p *Proof) UnmarshalBinary(data []byte) error {
	return cbor.Unmarshal(data, (*rawProof)(p))
}

// ProofSystem turns a Sigma protocol into a non-interactive proof system.
//
// The challenge is CreateChallengeFromBytes(H(protocol ∥ commonInput ∥
// announcement)), with H the domain-separated accumulator. Both sides must
// supply the identical commonInput encoding; the hash output covers the full
// challenge space, so the bytes-to-challenge mapping stays injective almost
// everywhere.
type ProofSystem struct {
	proto sigma.Protocol
}

// NewProofSystem compiles proto.
func NewProofSystem(proto sigma.Protocol) *ProofSystem {
	return &ProofSystem{proto: proto}
}

// challenge derives the deterministic challenge for an announcement.
func (ps *ProofSystem) challenge(commonInput hash.WriterToWithDomain, announcement sigma.Announcement) (sigma.Challenge, error) {
	h := hash.New(hash.BytesWithDomain{
		TheDomain: "Fiat-Shamir Protocol",
		Bytes:     []byte(ps.proto.ProtocolID()),
	})
	if commonInput != nil {
		if err := h.WriteAny(commonInput); err != nil {
			return nil, fmt.Errorf("fiatshamir: hash common input: %w", err)
		}
	}
	if err := h.WriteAny(announcement); err != nil {
		return nil, fmt.Errorf("fiatshamir: hash announcement: %w", err)
	}
	out := make([]byte, ps.proto.ChallengeBytes())
	if _, err := io.ReadFull(h.Digest(), out); err != nil {
		return nil, fmt.Errorf("fiatshamir: %w", err)
	}
	return ps.proto.CreateChallengeFromBytes(out)
}

// Prove produces a non-interactive proof for the protocol's statement.
func (ps *ProofSystem) Prove(rand io.Reader, commonInput hash.WriterToWithDomain, secret sigma.SecretInput) (*Proof, error) {
	announcementSecret, err := ps.proto.GenerateAnnouncementSecret(rand, secret)
	if err != nil {
		return nil, fmt.Errorf("fiatshamir: %w", err)
	}
	announcement, err := ps.proto.GenerateAnnouncement(secret, announcementSecret)
	if err != nil {
		return nil, fmt.Errorf("fiatshamir: %w", err)
	}
	challenge, err := ps.challenge(commonInput, announcement)
	if err != nil {
		return nil, err
	}
	response, err := ps.proto.GenerateResponse(secret, announcementSecret, challenge)
	if err != nil {
		return nil, fmt.Errorf("fiatshamir: %w", err)
	}
	transcript, err := ps.proto.CompressTranscript(&sigma.Transcript{
		Announcement: announcement,
		Challenge:    challenge,
		Response:     response,
	})
	if err != nil {
		return nil, fmt.Errorf("fiatshamir: %w", err)
	}
	return &Proof{Transcript: transcript}, nil
}

// Verify checks a non-interactive proof: the transcript must decompress
// into an accepting one, and its challenge must equal the hash of the
// common input and the recovered announcement.
func (ps *ProofSystem) Verify(commonInput hash.WriterToWithDomain, proof *Proof) bool {
	if proof == nil {
		return false
	}
	transcript, err := ps.proto.DecompressTranscript(proof.Transcript)
	if err != nil {
		return false
	}
	expected, err := ps.challenge(commonInput, transcript.Announcement)
	if err != nil {
		return false
	}
	expectedData, err := expected.MarshalBinary()
	if err != nil {
		return false
	}
	actualData, err := transcript.Challenge.MarshalBinary()
	if err != nil {
		return false
	}
	if !bytes.Equal(expectedData, actualData) {
		return false
	}
	return ps.proto.CheckTranscript(transcript)
}
