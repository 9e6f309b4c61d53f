package schnorr

import (
	"fmt"
	"io"
	"math/big"

	"github.com/cronokirby/saferith"
	"github.com/fxamacker/cbor/v2"
	"github.com/sigmalab/sigma/internal/params"
	"github.com/sigmalab/sigma/pkg/math/curve"
	"github.com/sigmalab/sigma/pkg/math/sample"
	"github.com/sigmalab/sigma/pkg/sigma"
)

// Protocol wraps a root fragment into a Sigma protocol. The challenge space
// is the scalar field of the fragment's group; all fragment operations run
// under an otherwise empty external variable assignment.
//
// The protocol samples one random scalar per root variable as part of the
// announcement secret, and its response carries the per-variable values
// zᵢ = rᵢ + c·xᵢ alongside the fragment's own response.
type Protocol struct {
	group curve.Curve
	root  Fragment
}

// NewProtocol builds the Sigma protocol proving the root fragment's
// statement.
func NewProtocol(root Fragment) *Protocol {
	return &Protocol{group: root.Curve(), root: root}
}

// Root returns the statement tree this protocol proves.
func (p *Protocol) Root() Fragment { return p.root }

func (p *Protocol) ProtocolID() string {
	return "schnorr-" + p.group.Name()
}

// announcementSecret carries the fresh per-variable randomness and the
// fragment tree's own secret for one proof attempt.
type announcementSecret struct {
	random Assignment
	inner  Secret
}

// response carries the per-variable response bindings and the fragment
// tree's own response.
type response struct {
	bindings Assignment
	inner    sigma.Response
}

type responseWire struct {
	Bindings []bindingWire `cbor:"1,keyasint"`
	Data     []byte        `cbor:"2,keyasint"`
}

func (r response) MarshalBinary() ([]byte, error) {
	bindings, err := encodeAssignment(r.bindings)
	if err != nil {
		return nil, err
	}
	data, err := r.inner.MarshalBinary()
	if err != nil {
		return nil, err
	}
	return cbor.Marshal(responseWire{Bindings: bindings, Data: data})
}

func (p *Protocol) witness(secret sigma.SecretInput) (Assignment, error) {
	witness, ok := secret.(Assignment)
	if !ok {
		return nil, fmt.Errorf("schnorr: secret input must be an Assignment, got %T", secret)
	}
	return witness, nil
}

func (p *Protocol) GenerateAnnouncementSecret(rand io.Reader, secret sigma.SecretInput) (sigma.AnnouncementSecret, error) {
	witness, err := p.witness(secret)
	if err != nil {
		return nil, err
	}
	inner, err := p.root.GenerateAnnouncementSecret(rand, witness)
	if err != nil {
		return nil, err
	}
	return announcementSecret{
		random: randomAssignment(rand, p.group, p.root.Variables()),
		inner:  inner,
	}, nil
}

func (p *Protocol) GenerateAnnouncement(secret sigma.SecretInput, as sigma.AnnouncementSecret) (sigma.Announcement, error) {
	witness, err := p.witness(secret)
	if err != nil {
		return nil, err
	}
	s, ok := as.(announcementSecret)
	if !ok {
		return nil, fmt.Errorf("schnorr: mismatched announcement secret %T", as)
	}
	return p.root.GenerateAnnouncement(witness, s.inner, s.random)
}

func (p *Protocol) GenerateChallenge(rand io.Reader) (sigma.Challenge, error) {
	return sample.Scalar(rand, p.group), nil
}

func (p *Protocol) challengeScalar(challenge sigma.Challenge) (curve.Scalar, error) {
	c, ok := challenge.(curve.Scalar)
	if !ok {
		return nil, fmt.Errorf("schnorr: challenge must be a scalar, got %T", challenge)
	}
	return c, nil
}

func (p *Protocol) GenerateResponse(secret sigma.SecretInput, as sigma.AnnouncementSecret, challenge sigma.Challenge) (sigma.Response, error) {
	witness, err := p.witness(secret)
	if err != nil {
		return nil, err
	}
	s, ok := as.(announcementSecret)
	if !ok {
		return nil, fmt.Errorf("schnorr: mismatched announcement secret %T", as)
	}
	c, err := p.challengeScalar(challenge)
	if err != nil {
		return nil, err
	}

	bindings := make(Assignment, len(s.random))
	for v, r := range s.random {
		x := witness.Get(v)
		if x == nil {
			return nil, fmt.Errorf("schnorr: witness missing variable %q", v)
		}
		// z = r + c·x
		bindings[v] = p.group.NewScalar().Set(c).Mul(x).Add(r)
	}
	inner, err := p.root.GenerateResponse(witness, s.inner, c)
	if err != nil {
		return nil, err
	}
	return response{bindings: bindings, inner: inner}, nil
}

func (p *Protocol) CheckTranscript(t *sigma.Transcript) bool {
	resp, ok := t.Response.(response)
	if !ok {
		return false
	}
	c, err := p.challengeScalar(t.Challenge)
	if err != nil {
		return false
	}
	return p.root.CheckTranscript(t.Announcement, c, resp.inner, resp.bindings)
}

func (p *Protocol) GenerateSimulatedTranscript(rand io.Reader, challenge sigma.Challenge) (*sigma.Transcript, error) {
	c, err := p.challengeScalar(challenge)
	if err != nil {
		return nil, err
	}
	// Honest responses zᵢ are uniform, so uniform bindings plus the unique
	// matching announcement reproduce the honest distribution exactly.
	bindings := randomAssignment(rand, p.group, p.root.Variables())
	announcement, inner, err := p.root.GenerateSimulatedTranscript(rand, c, bindings)
	if err != nil {
		return nil, err
	}
	return &sigma.Transcript{
		Announcement: announcement,
		Challenge:    challenge,
		Response:     response{bindings: bindings, inner: inner},
	}, nil
}

func (p *Protocol) CreateChallengeFromBytes(data []byte) (sigma.Challenge, error) {
	if len(data) != p.ChallengeBytes() {
		return nil, fmt.Errorf("%w: challenge bytes must have length %d, got %d", sigma.ErrEncoding, p.ChallengeBytes(), len(data))
	}
	return p.group.NewScalar().SetNat(new(saferith.Nat).SetBytes(data)), nil
}

func (p *Protocol) ChallengeBytes() int {
	return params.ChallengeBytes
}

func (p *Protocol) ChallengeSpaceSize() *big.Int {
	return p.group.Order().Big()
}

type compressedWire struct {
	Challenge []byte        `cbor:"1,keyasint"`
	Bindings  []bindingWire `cbor:"2,keyasint"`
	Data      []byte        `cbor:"3,keyasint"`
}

func (p *Protocol) CompressTranscript(t *sigma.Transcript) ([]byte, error) {
	resp, ok := t.Response.(response)
	if !ok {
		return nil, fmt.Errorf("schnorr: mismatched response %T", t.Response)
	}
	c, err := p.challengeScalar(t.Challenge)
	if err != nil {
		return nil, err
	}
	data, err := p.root.CompressTranscript(t.Announcement, c, resp.inner, resp.bindings)
	if err != nil {
		return nil, err
	}
	challenge, err := c.MarshalBinary()
	if err != nil {
		return nil, err
	}
	bindings, err := encodeAssignment(resp.bindings)
	if err != nil {
		return nil, err
	}
	return cbor.Marshal(compressedWire{Challenge: challenge, Bindings: bindings, Data: data})
}

func (p *Protocol) DecompressTranscript(data []byte) (*sigma.Transcript, error) {
	var wire compressedWire
	if err := cbor.Unmarshal(data, &wire); err != nil {
		return nil, fmt.Errorf("%w: %v", sigma.ErrEncoding, err)
	}
	c := p.group.NewScalar()
	if err := c.UnmarshalBinary(wire.Challenge); err != nil {
		return nil, fmt.Errorf("%w: challenge: %v", sigma.ErrEncoding, err)
	}
	bindings, err := decodeAssignment(p.group, wire.Bindings)
	if err != nil {
		return nil, err
	}
	announcement, inner, err := p.root.DecompressTranscript(wire.Data, c, bindings)
	if err != nil {
		return nil, err
	}
	t := &sigma.Transcript{
		Announcement: announcement,
		Challenge:    c,
		Response:     response{bindings: bindings, inner: inner},
	}
	if !p.CheckTranscript(t) {
		return nil, sigma.ErrDecompress
	}
	return t, nil
}

func (p *Protocol) RestoreAnnouncement(data []byte) (sigma.Announcement, error) {
	return p.root.RestoreAnnouncement(data)
}

func (p *Protocol) RestoreChallenge(data []byte) (sigma.Challenge, error) {
	c := p.group.NewScalar()
	if err := c.UnmarshalBinary(data); err != nil {
		return nil, fmt.Errorf("%w: challenge: %v", sigma.ErrEncoding, err)
	}
	return c, nil
}

func (p *Protocol) RestoreResponse(_ sigma.Announcement, _ sigma.Challenge, data []byte) (sigma.Response, error) {
	var wire responseWire
	if err := cbor.Unmarshal(data, &wire); err != nil {
		return nil, fmt.Errorf("%w: %v", sigma.ErrEncoding, err)
	}
	bindings, err := decodeAssignment(p.group, wire.Bindings)
	if err != nil {
		return nil, err
	}
	inner, err := p.root.RestoreResponse(wire.Data)
	if err != nil {
		return nil, err
	}
	return response{bindings: bindings, inner: inner}, nil
}
