package schnorr

import (
	"fmt"
	"io"

	"github.com/fxamacker/cbor/v2"
	"github.com/sigmalab/sigma/pkg/math/curve"
	"github.com/sigmalab/sigma/pkg/math/sample"
	"github.com/sigmalab/sigma/pkg/sigma"
)

// Or proves at least one of its children's statements without revealing
// which (proof of partial knowledge).
//
// The real branch is the lowest-index child the witness satisfies; every
// other branch is simulated under an independently sampled challenge, and
// the real branch's challenge is the overall challenge minus the sum of the
// simulated ones. The transcript transmits all branch challenges except the
// last, which the verifier recomputes as the difference: the challenge-sum
// invariant therefore holds structurally, and each branch is checked under
// its effective challenge.
//
// Branches manage their variables internally: external bindings are not
// forwarded across an Or boundary, since simulated branches need their own
// synthetic response bindings.
type Or struct {
	group    curve.Curve
	children []Fragment
}

// NewOr composes children into a disjunction.
func NewOr(children ...Fragment) (*Or, error) {
	if len(children) < 2 {
		return nil, fmt.Errorf("%w: disjunction needs at least two children", ErrInvalidStatement)
	}
	group := children[0].Curve()
	for i, child := range children {
		if child.Curve().Name() != group.Name() {
			return nil, fmt.Errorf("%w: child %d uses group %q, expected %q", ErrInvalidStatement, i, child.Curve().Name(), group.Name())
		}
	}
	return &Or{group: group, children: children}, nil
}

func (f *Or) Curve() curve.Curve { return f.group }

// Variables returns nil: branch variables never surface to the enclosing
// protocol.
func (f *Or) Variables() []Variable { return nil }

func (f *Or) IsSatisfied(witness Assignment) bool {
	for _, child := range f.children {
		if child.IsSatisfied(witness) {
			return true
		}
	}
	return false
}

// orBranch is one branch's share of an Or response: the branch's variable
// response bindings plus its inner response.
type orBranch struct {
	bindings Assignment
	response sigma.Response
}

// orResponse carries every branch's response material and the effective
// challenges of all branches but the last.
type orResponse struct {
	branches   []orBranch
	challenges []curve.Scalar
}

type orBranchWire struct {
	Bindings []bindingWire `cbor:"1,keyasint"`
	Data     []byte        `cbor:"2,keyasint"`
}

type orWire struct {
	Branches   []orBranchWire `cbor:"1,keyasint"`
	Challenges [][]byte       `cbor:"2,keyasint"`
}

func (r orResponse) MarshalBinary() ([]byte, error) {
	wire := orWire{
		Branches:   make([]orBranchWire, len(r.branches)),
		Challenges: make([][]byte, len(r.challenges)),
	}
	for i, branch := range r.branches {
		bindings, err := encodeAssignment(branch.bindings)
		if err != nil {
			return nil, err
		}
		data, err := branch.response.MarshalBinary()
		if err != nil {
			return nil, err
		}
		wire.Branches[i] = orBranchWire{Bindings: bindings, Data: data}
	}
	for i, c := range r.challenges {
		data, err := c.MarshalBinary()
		if err != nil {
			return nil, err
		}
		wire.Challenges[i] = data
	}
	return cbor.Marshal(wire)
}

type orSecret struct {
	real       int
	realSecret Secret
	realRandom Assignment
	// Per-branch simulated material; the real branch's slots stay nil.
	challenges    []curve.Scalar
	announcements []sigma.Announcement
	responses     []sigma.Response
	bindings      []Assignment
}

func (f *Or) GenerateAnnouncementSecret(rand io.Reader, witness Assignment) (Secret, error) {
	real := -1
	for i, child := range f.children {
		if child.IsSatisfied(witness) {
			real = i
			break
		}
	}
	if real < 0 {
		return nil, sigma.ErrWitness
	}

	realSecret, err := f.children[real].GenerateAnnouncementSecret(rand, witness)
	if err != nil {
		return nil, err
	}
	secret := orSecret{
		real:          real,
		realSecret:    realSecret,
		realRandom:    randomAssignment(rand, f.group, f.children[real].Variables()),
		challenges:    make([]curve.Scalar, len(f.children)),
		announcements: make([]sigma.Announcement, len(f.children)),
		responses:     make([]sigma.Response, len(f.children)),
		bindings:      make([]Assignment, len(f.children)),
	}
	for i, child := range f.children {
		if i == real {
			continue
		}
		challenge := sample.Scalar(rand, f.group)
		bindings := randomAssignment(rand, f.group, child.Variables())
		announcement, response, err := child.GenerateSimulatedTranscript(rand, challenge, bindings)
		if err != nil {
			return nil, err
		}
		secret.challenges[i] = challenge
		secret.announcements[i] = announcement
		secret.responses[i] = response
		secret.bindings[i] = bindings
	}
	return secret, nil
}

func (f *Or) GenerateAnnouncement(witness Assignment, secret Secret, _ Assignment) (sigma.Announcement, error) {
	s, ok := secret.(orSecret)
	if !ok || len(s.announcements) != len(f.children) {
		return nil, fmt.Errorf("schnorr: Or: mismatched announcement secret")
	}
	children := make([]sigma.Announcement, len(f.children))
	for i := range f.children {
		if i == s.real {
			announcement, err := f.children[i].GenerateAnnouncement(witness, s.realSecret, s.realRandom)
			if err != nil {
				return nil, err
			}
			children[i] = announcement
			continue
		}
		children[i] = s.announcements[i]
	}
	return listAnnouncement{domain: "Or Announcement", children: children}, nil
}

func (f *Or) GenerateResponse(witness Assignment, secret Secret, challenge curve.Scalar) (sigma.Response, error) {
	s, ok := secret.(orSecret)
	if !ok || len(s.responses) != len(f.children) {
		return nil, fmt.Errorf("schnorr: Or: mismatched announcement secret")
	}

	// The real branch absorbs the difference, so that the branch challenges
	// sum to the overall challenge.
	realChallenge := f.group.NewScalar().Set(challenge)
	for i, c := range s.challenges {
		if i != s.real {
			realChallenge.Sub(c)
		}
	}

	realResponse, err := f.children[s.real].GenerateResponse(witness, s.realSecret, realChallenge)
	if err != nil {
		return nil, err
	}
	realBindings := make(Assignment, len(s.realRandom))
	for _, v := range f.children[s.real].Variables() {
		x := witness.Get(v)
		if x == nil {
			return nil, fmt.Errorf("schnorr: Or: witness missing variable %q", v)
		}
		// z = r + c·x
		realBindings[v] = f.group.NewScalar().Set(realChallenge).Mul(x).Add(s.realRandom[v])
	}

	response := orResponse{
		branches:   make([]orBranch, len(f.children)),
		challenges: make([]curve.Scalar, len(f.children)-1),
	}
	for i := range f.children {
		if i == s.real {
			response.branches[i] = orBranch{bindings: realBindings, response: realResponse}
		} else {
			response.branches[i] = orBranch{bindings: s.bindings[i], response: s.responses[i]}
		}
		if i < len(f.children)-1 {
			if i == s.real {
				response.challenges[i] = realChallenge
			} else {
				response.challenges[i] = s.challenges[i]
			}
		}
	}
	return response, nil
}

// effectiveChallenges expands the transmitted branch challenges, recomputing
// the last one as overall minus the sum of the others.
func (f *Or) effectiveChallenges(challenge curve.Scalar, transmitted []curve.Scalar) ([]curve.Scalar, error) {
	if len(transmitted) != len(f.children)-1 {
		return nil, fmt.Errorf("%w: expected %d branch challenges, got %d", sigma.ErrEncoding, len(f.children)-1, len(transmitted))
	}
	last := f.group.NewScalar().Set(challenge)
	out := make([]curve.Scalar, len(f.children))
	for i, c := range transmitted {
		out[i] = c
		last.Sub(c)
	}
	out[len(f.children)-1] = last
	return out, nil
}

func (f *Or) CheckTranscript(announcement sigma.Announcement, challenge curve.Scalar, response sigma.Response, _ Assignment) bool {
	ann, ok := announcement.(listAnnouncement)
	if !ok || len(ann.children) != len(f.children) {
		return false
	}
	resp, ok := response.(orResponse)
	if !ok || len(resp.branches) != len(f.children) {
		return false
	}
	challenges, err := f.effectiveChallenges(challenge, resp.challenges)
	if err != nil {
		return false
	}
	for i, child := range f.children {
		if !child.CheckTranscript(ann.children[i], challenges[i], resp.branches[i].response, resp.branches[i].bindings) {
			return false
		}
	}
	return true
}

func (f *Or) GenerateSimulatedTranscript(rand io.Reader, challenge curve.Scalar, _ Assignment) (sigma.Announcement, sigma.Response, error) {
	// Simulating a disjunction simulates every branch: challenges split
	// uniformly under the sum constraint, exactly like honest transcripts.
	transmitted := make([]curve.Scalar, len(f.children)-1)
	for i := range transmitted {
		transmitted[i] = sample.Scalar(rand, f.group)
	}
	challenges, err := f.effectiveChallenges(challenge, transmitted)
	if err != nil {
		return nil, nil, err
	}
	announcements := make([]sigma.Announcement, len(f.children))
	response := orResponse{
		branches:   make([]orBranch, len(f.children)),
		challenges: transmitted,
	}
	for i, child := range f.children {
		bindings := randomAssignment(rand, f.group, child.Variables())
		announcement, childResponse, err := child.GenerateSimulatedTranscript(rand, challenges[i], bindings)
		if err != nil {
			return nil, nil, err
		}
		announcements[i] = announcement
		response.branches[i] = orBranch{bindings: bindings, response: childResponse}
	}
	return listAnnouncement{domain: "Or Announcement", children: announcements}, response, nil
}

func (f *Or) CompressTranscript(announcement sigma.Announcement, challenge curve.Scalar, response sigma.Response, _ Assignment) ([]byte, error) {
	ann, ok := announcement.(listAnnouncement)
	if !ok || len(ann.children) != len(f.children) {
		return nil, fmt.Errorf("schnorr: Or: mismatched announcement")
	}
	resp, ok := response.(orResponse)
	if !ok || len(resp.branches) != len(f.children) {
		return nil, fmt.Errorf("schnorr: Or: mismatched response")
	}
	challenges, err := f.effectiveChallenges(challenge, resp.challenges)
	if err != nil {
		return nil, err
	}
	wire := orWire{
		Branches:   make([]orBranchWire, len(f.children)),
		Challenges: make([][]byte, len(f.children)-1),
	}
	for i, child := range f.children {
		compressed, err := child.CompressTranscript(ann.children[i], challenges[i], resp.branches[i].response, resp.branches[i].bindings)
		if err != nil {
			return nil, err
		}
		bindings, err := encodeAssignment(resp.branches[i].bindings)
		if err != nil {
			return nil, err
		}
		wire.Branches[i] = orBranchWire{Bindings: bindings, Data: compressed}
	}
	for i, c := range resp.challenges {
		data, err := c.MarshalBinary()
		if err != nil {
			return nil, err
		}
		wire.Challenges[i] = data
	}
	return cbor.Marshal(wire)
}

func (f *Or) DecompressTranscript(data []byte, challenge curve.Scalar, _ Assignment) (sigma.Announcement, sigma.Response, error) {
	var wire orWire
	if err := cbor.Unmarshal(data, &wire); err != nil {
		return nil, nil, fmt.Errorf("%w: %v", sigma.ErrEncoding, err)
	}
	if len(wire.Branches) != len(f.children) {
		return nil, nil, fmt.Errorf("%w: expected %d branches, got %d", sigma.ErrEncoding, len(f.children), len(wire.Branches))
	}
	transmitted, err := f.decodeChallenges(wire.Challenges)
	if err != nil {
		return nil, nil, err
	}
	challenges, err := f.effectiveChallenges(challenge, transmitted)
	if err != nil {
		return nil, nil, err
	}
	announcements := make([]sigma.Announcement, len(f.children))
	response := orResponse{
		branches:   make([]orBranch, len(f.children)),
		challenges: transmitted,
	}
	for i, child := range f.children {
		bindings, err := decodeAssignment(f.group, wire.Branches[i].Bindings)
		if err != nil {
			return nil, nil, err
		}
		announcement, childResponse, err := child.DecompressTranscript(wire.Branches[i].Data, challenges[i], bindings)
		if err != nil {
			return nil, nil, err
		}
		announcements[i] = announcement
		response.branches[i] = orBranch{bindings: bindings, response: childResponse}
	}
	return listAnnouncement{domain: "Or Announcement", children: announcements}, response, nil
}

func (f *Or) RestoreAnnouncement(data []byte) (sigma.Announcement, error) {
	var children [][]byte
	if err := cbor.Unmarshal(data, &children); err != nil {
		return nil, fmt.Errorf("%w: %v", sigma.ErrEncoding, err)
	}
	if len(children) != len(f.children) {
		return nil, fmt.Errorf("%w: expected %d announcements, got %d", sigma.ErrEncoding, len(f.children), len(children))
	}
	out := make([]sigma.Announcement, len(f.children))
	for i, child := range f.children {
		announcement, err := child.RestoreAnnouncement(children[i])
		if err != nil {
			return nil, err
		}
		out[i] = announcement
	}
	return listAnnouncement{domain: "Or Announcement", children: out}, nil
}

func (f *Or) RestoreResponse(data []byte) (sigma.Response, error) {
	var wire orWire
	if err := cbor.Unmarshal(data, &wire); err != nil {
		return nil, fmt.Errorf("%w: %v", sigma.ErrEncoding, err)
	}
	if len(wire.Branches) != len(f.children) {
		return nil, fmt.Errorf("%w: expected %d branches, got %d", sigma.ErrEncoding, len(f.children), len(wire.Branches))
	}
	transmitted, err := f.decodeChallenges(wire.Challenges)
	if err != nil {
		return nil, err
	}
	response := orResponse{
		branches:   make([]orBranch, len(f.children)),
		challenges: transmitted,
	}
	for i, child := range f.children {
		bindings, err := decodeAssignment(f.group, wire.Branches[i].Bindings)
		if err != nil {
			return nil, err
		}
		childResponse, err := child.RestoreResponse(wire.Branches[i].Data)
		if err != nil {
			return nil, err
		}
		response.branches[i] = orBranch{bindings: bindings, response: childResponse}
	}
	return response, nil
}

func (f *Or) decodeChallenges(wire [][]byte) ([]curve.Scalar, error) {
	if len(wire) != len(f.children)-1 {
		return nil, fmt.Errorf("%w: expected %d branch challenges, got %d", sigma.ErrEncoding, len(f.children)-1, len(wire))
	}
	out := make([]curve.Scalar, len(wire))
	for i, data := range wire {
		s := f.group.NewScalar()
		if err := s.UnmarshalBinary(data); err != nil {
			return nil, fmt.Errorf("%w: branch challenge %d: %v", sigma.ErrEncoding, i, err)
		}
		out[i] = s
	}
	return out, nil
}

func (*Or) isFragment() {}
