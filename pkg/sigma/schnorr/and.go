package schnorr

import (
	"fmt"
	"io"

	"github.com/fxamacker/cbor/v2"
	"github.com/sigmalab/sigma/pkg/math/curve"
	"github.com/sigmalab/sigma/pkg/sigma"
)

// And proves all of its children's statements under one shared challenge.
// Children sharing a variable share its witness, randomness and response:
// the conjunction binds them to a single value.
type And struct {
	group    curve.Curve
	children []Fragment
}

// NewAnd composes children into a conjunction.
func NewAnd(children ...Fragment) (*And, error) {
	if len(children) == 0 {
		return nil, fmt.Errorf("%w: empty conjunction", ErrInvalidStatement)
	}
	group := children[0].Curve()
	for i, child := range children {
		if child.Curve().Name() != group.Name() {
			return nil, fmt.Errorf("%w: child %d uses group %q, expected %q", ErrInvalidStatement, i, child.Curve().Name(), group.Name())
		}
	}
	return &And{group: group, children: children}, nil
}

func (f *And) Curve() curve.Curve { return f.group }

func (f *And) Variables() []Variable {
	var vars []Variable
	for _, child := range f.children {
		vars = append(vars, child.Variables()...)
	}
	return dedupVariables(vars)
}

func (f *And) IsSatisfied(witness Assignment) bool {
	for _, child := range f.children {
		if !child.IsSatisfied(witness) {
			return false
		}
	}
	return true
}

type andSecret struct {
	children []Secret
}

func (f *And) GenerateAnnouncementSecret(rand io.Reader, witness Assignment) (Secret, error) {
	children := make([]Secret, len(f.children))
	for i, child := range f.children {
		secret, err := child.GenerateAnnouncementSecret(rand, witness)
		if err != nil {
			return nil, err
		}
		children[i] = secret
	}
	return andSecret{children: children}, nil
}

func (f *And) GenerateAnnouncement(witness Assignment, secret Secret, externalRandom Assignment) (sigma.Announcement, error) {
	s, ok := secret.(andSecret)
	if !ok || len(s.children) != len(f.children) {
		return nil, fmt.Errorf("schnorr: And: mismatched announcement secret")
	}
	children := make([]sigma.Announcement, len(f.children))
	for i, child := range f.children {
		announcement, err := child.GenerateAnnouncement(witness, s.children[i], externalRandom)
		if err != nil {
			return nil, err
		}
		children[i] = announcement
	}
	return listAnnouncement{domain: "And Announcement", children: children}, nil
}

func (f *And) GenerateResponse(witness Assignment, secret Secret, challenge curve.Scalar) (sigma.Response, error) {
	s, ok := secret.(andSecret)
	if !ok || len(s.children) != len(f.children) {
		return nil, fmt.Errorf("schnorr: And: mismatched announcement secret")
	}
	children := make([]sigma.Response, len(f.children))
	for i, child := range f.children {
		response, err := child.GenerateResponse(witness, s.children[i], challenge)
		if err != nil {
			return nil, err
		}
		children[i] = response
	}
	return listResponse{children: children}, nil
}

func (f *And) CheckTranscript(announcement sigma.Announcement, challenge curve.Scalar, response sigma.Response, externalResponse Assignment) bool {
	ann, ok := announcement.(listAnnouncement)
	if !ok || len(ann.children) != len(f.children) {
		return false
	}
	resp, ok := response.(listResponse)
	if !ok || len(resp.children) != len(f.children) {
		return false
	}
	for i, child := range f.children {
		if !child.CheckTranscript(ann.children[i], challenge, resp.children[i], externalResponse) {
			return false
		}
	}
	return true
}

func (f *And) GenerateSimulatedTranscript(rand io.Reader, challenge curve.Scalar, externalResponse Assignment) (sigma.Announcement, sigma.Response, error) {
	announcements := make([]sigma.Announcement, len(f.children))
	responses := make([]sigma.Response, len(f.children))
	for i, child := range f.children {
		announcement, response, err := child.GenerateSimulatedTranscript(rand, challenge, externalResponse)
		if err != nil {
			return nil, nil, err
		}
		announcements[i] = announcement
		responses[i] = response
	}
	return listAnnouncement{domain: "And Announcement", children: announcements},
		listResponse{children: responses}, nil
}

func (f *And) CompressTranscript(announcement sigma.Announcement, challenge curve.Scalar, response sigma.Response, externalResponse Assignment) ([]byte, error) {
	ann, ok := announcement.(listAnnouncement)
	if !ok || len(ann.children) != len(f.children) {
		return nil, fmt.Errorf("schnorr: And: mismatched announcement")
	}
	resp, ok := response.(listResponse)
	if !ok || len(resp.children) != len(f.children) {
		return nil, fmt.Errorf("schnorr: And: mismatched response")
	}
	children := make([][]byte, len(f.children))
	for i, child := range f.children {
		compressed, err := child.CompressTranscript(ann.children[i], challenge, resp.children[i], externalResponse)
		if err != nil {
			return nil, err
		}
		children[i] = compressed
	}
	return cbor.Marshal(children)
}

func (f *And) DecompressTranscript(data []byte, challenge curve.Scalar, externalResponse Assignment) (sigma.Announcement, sigma.Response, error) {
	var children [][]byte
	if err := cbor.Unmarshal(data, &children); err != nil {
		return nil, nil, fmt.Errorf("%w: %v", sigma.ErrEncoding, err)
	}
	if len(children) != len(f.children) {
		return nil, nil, fmt.Errorf("%w: expected %d compressed children, got %d", sigma.ErrEncoding, len(f.children), len(children))
	}
	announcements := make([]sigma.Announcement, len(f.children))
	responses := make([]sigma.Response, len(f.children))
	for i, child := range f.children {
		announcement, response, err := child.DecompressTranscript(children[i], challenge, externalResponse)
		if err != nil {
			return nil, nil, err
		}
		announcements[i] = announcement
		responses[i] = response
	}
	return listAnnouncement{domain: "And Announcement", children: announcements},
		listResponse{children: responses}, nil
}

func (f *And) RestoreAnnouncement(data []byte) (sigma.Announcement, error) {
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
	return listAnnouncement{domain: "And Announcement", children: out}, nil
}

func (f *And) RestoreResponse(data []byte) (sigma.Response, error) {
	var children [][]byte
	if err := cbor.Unmarshal(data, &children); err != nil {
		return nil, fmt.Errorf("%w: %v", sigma.ErrEncoding, err)
	}
	if len(children) != len(f.children) {
		return nil, fmt.Errorf("%w: expected %d responses, got %d", sigma.ErrEncoding, len(f.children), len(children))
	}
	out := make([]sigma.Response, len(f.children))
	for i, child := range f.children {
		response, err := child.RestoreResponse(children[i])
		if err != nil {
			return nil, err
		}
		out[i] = response
	}
	return listResponse{children: out}, nil
}

func (*And) isFragment() {}
