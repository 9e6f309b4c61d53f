// Package sigma defines the three-message public-coin interactive argument
// abstraction: a prover sends an announcement, the verifier answers with a
// random challenge, and the prover closes with a response which the verifier
// checks against the announcement and challenge.
//
// Implementations must satisfy the usual Sigma-protocol guarantees:
//
//   - Completeness: honestly generated transcripts are accepting.
//   - Honest-verifier zero-knowledge: transcripts generated by
//     GenerateSimulatedTranscript are distributed identically to honestly
//     generated transcripts containing the same challenge.
//   - (Computational) soundness: two accepting transcripts with the same
//     announcement but different challenges yield an efficient witness
//     extraction procedure.
package sigma

import (
	"encoding"
	"errors"
	"io"
	"math/big"

	"github.com/sigmalab/sigma/pkg/hash"
)

// SecretInput is the prover's witness. Its concrete type is fixed by the
// protocol implementation; it is never transmitted.
type SecretInput interface{}

// AnnouncementSecret is the prover's ephemeral randomness for one proof
// attempt. It must be drawn fresh per attempt and used exactly once:
// reusing it across two announcements breaks soundness.
type AnnouncementSecret interface{}

// Announcement is the first message of the protocol, sent by the prover.
type Announcement interface {
	hash.WriterToWithDomain
	encoding.BinaryMarshaler
}

// Challenge is the second message, drawn by the verifier (or derived from a
// hash in the Fiat-Shamir transform).
type Challenge interface {
	hash.WriterToWithDomain
	encoding.BinaryMarshaler
}

// Response is the third and last message, sent by the prover.
type Response interface {
	encoding.BinaryMarshaler
}

// Transcript is one full (announcement, challenge, response) exchange.
type Transcript struct {
	Announcement Announcement
	Challenge    Challenge
	Response     Response
}

var (
	// ErrDecompress indicates that a compressed transcript could not be
	// expanded into an accepting transcript.
	ErrDecompress = errors.New("sigma: compressed transcript does not decompress into an accepting transcript")
	// ErrEncoding indicates a stored representation that does not match the
	// expected structure for the protocol at hand.
	ErrEncoding = errors.New("sigma: malformed representation")
	// ErrWitness indicates a secret input that does not satisfy the
	// protocol's statement, detected before any message is produced.
	ErrWitness = errors.New("sigma: witness does not satisfy the statement")
)

// Protocol is a Sigma protocol for a fixed statement (the common input is
// bound at construction time).
//
// All methods are pure functions of their inputs, except for the explicit
// randomness argument where present.
type Protocol interface {
	// ProtocolID identifies the protocol and its statement class, for
	// message headers and domain separation.
	ProtocolID() string

	// GenerateAnnouncementSecret draws the prover's ephemeral randomness for
	// one proof attempt.
	GenerateAnnouncementSecret(rand io.Reader, secret SecretInput) (AnnouncementSecret, error)

	// GenerateAnnouncement deterministically derives the first message from
	// the witness and announcement secret.
	GenerateAnnouncement(secret SecretInput, announcementSecret AnnouncementSecret) (Announcement, error)

	// GenerateChallenge draws a challenge uniformly from the challenge space.
	GenerateChallenge(rand io.Reader) (Challenge, error)

	// GenerateResponse derives the final message. For every challenge in the
	// challenge space the resulting transcript must be accepting.
	GenerateResponse(secret SecretInput, announcementSecret AnnouncementSecret, challenge Challenge) (Response, error)

	// CheckTranscript reports whether the transcript is accepting. It is a
	// pure function of the statement and the transcript.
	CheckTranscript(t *Transcript) bool

	// GenerateSimulatedTranscript generates a random accepting transcript
	// containing the given challenge, distributed identically to honest
	// transcripts conditioned on that challenge.
	GenerateSimulatedTranscript(rand io.Reader, challenge Challenge) (*Transcript, error)

	// CreateChallengeFromBytes maps a byte string of length ChallengeBytes
	// to a challenge. The mapping is injective almost everywhere.
	CreateChallengeFromBytes(data []byte) (Challenge, error)

	// ChallengeBytes is the byte-string length expected by
	// CreateChallengeFromBytes, at least ⌈log₂ ChallengeSpaceSize⌉ bits.
	ChallengeBytes() int

	// ChallengeSpaceSize returns the number of possible challenges.
	ChallengeSpaceSize() *big.Int

	// CompressTranscript returns a shorter encoding of an accepting
	// transcript, dropping parts that are uniquely recoverable from the
	// remainder.
	CompressTranscript(t *Transcript) ([]byte, error)

	// DecompressTranscript inverts CompressTranscript. Any transcript it
	// returns is accepting; otherwise ErrDecompress is returned.
	DecompressTranscript(data []byte) (*Transcript, error)

	// RestoreAnnouncement decodes an announcement, with the protocol itself
	// as the decoding context.
	RestoreAnnouncement(data []byte) (Announcement, error)
	// RestoreChallenge decodes a challenge.
	RestoreChallenge(data []byte) (Challenge, error)
	// RestoreResponse decodes a response, given the announcement and
	// challenge it answers.
	RestoreResponse(announcement Announcement, challenge Challenge, data []byte) (Response, error)
}
