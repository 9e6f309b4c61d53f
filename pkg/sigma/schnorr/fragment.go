// Package schnorr implements the recursive fragment algebra for
// Schnorr-style statements: linear relations over a group and its exponent
// ring, composed with And/Or into proof trees, and wrapped into a Sigma
// protocol.
package schnorr

import (
	"errors"
	"io"

	"github.com/fxamacker/cbor/v2"
	"github.com/sigmalab/sigma/pkg/math/curve"
	"github.com/sigmalab/sigma/pkg/sigma"
)

// ErrInvalidStatement is returned when a relation cannot be brought into the
// linear(witnesses) = constant canonical form. This is detected when the
// fragment is constructed, never at proof time.
var ErrInvalidStatement = errors.New("schnorr: statement is not linear in its witness variables")

// Secret is a fragment's ephemeral randomness for one proof attempt.
type Secret interface{}

// emptySecret is the Secret of fragments that need no local randomness.
type emptySecret struct{}

// Fragment is one node of the statement tree being proven. The fragment
// tree is built once at protocol-definition time and is immutable; all
// per-proof state is passed through the five-operation contract explicitly.
//
// The set of fragments is closed: leaves (LinearGroupFragment,
// LinearExponentFragment) and the And/Or combinators.
type Fragment interface {
	// Curve returns the group this fragment's statement lives in.
	Curve() curve.Curve

	// Variables returns the external variables this fragment constrains.
	// The enclosing protocol supplies random and response bindings for
	// them. Or manages its branches' variables internally and returns nil.
	Variables() []Variable

	// IsSatisfied reports whether the witness satisfies the statement.
	IsSatisfied(witness Assignment) bool

	// GenerateAnnouncementSecret draws this fragment's (and recursively its
	// children's) ephemeral randomness, independently per invocation.
	GenerateAnnouncementSecret(rand io.Reader, witness Assignment) (Secret, error)

	// GenerateAnnouncement is a deterministic function of its inputs; for a
	// linear leaf it evaluates the relation's linear part on the externally
	// supplied random bindings.
	GenerateAnnouncement(witness Assignment, secret Secret, externalRandom Assignment) (sigma.Announcement, error)

	// GenerateResponse produces a response such that CheckTranscript holds
	// for every challenge in the challenge space.
	GenerateResponse(witness Assignment, secret Secret, challenge curve.Scalar) (sigma.Response, error)

	// CheckTranscript re-evaluates the relation on the response bindings and
	// checks it equals announcement + challenge·target. Composite nodes
	// check all children recursively.
	CheckTranscript(announcement sigma.Announcement, challenge curve.Scalar, response sigma.Response, externalResponse Assignment) bool

	// GenerateSimulatedTranscript computes the unique announcement that
	// makes the transcript accepting for the given challenge and response
	// bindings.
	GenerateSimulatedTranscript(rand io.Reader, challenge curve.Scalar, externalResponse Assignment) (sigma.Announcement, sigma.Response, error)

	// CompressTranscript drops the parts of the transcript that are uniquely
	// recoverable from challenge and response.
	CompressTranscript(announcement sigma.Announcement, challenge curve.Scalar, response sigma.Response, externalResponse Assignment) ([]byte, error)

	// DecompressTranscript inverts CompressTranscript, recomputing dropped
	// announcements via simulation.
	DecompressTranscript(data []byte, challenge curve.Scalar, externalResponse Assignment) (sigma.Announcement, sigma.Response, error)

	// RestoreAnnouncement decodes an announcement, with the fragment as
	// explicit decoding context.
	RestoreAnnouncement(data []byte) (sigma.Announcement, error)

	// RestoreResponse decodes a response.
	RestoreResponse(data []byte) (sigma.Response, error)

	// isFragment closes the set of fragments to this package, keeping the
	// five-operation contract exhaustively checkable.
	isFragment()
}

// pointAnnouncement is the announcement of a group-equation leaf.
type pointAnnouncement struct {
	value curve.Point
}

func (a pointAnnouncement) WriteTo(w io.Writer) (int64, error) {
	return a.value.WriteTo(w)
}

func (a pointAnnouncement) Domain() string {
	return "Schnorr Group Announcement"
}

func (a pointAnnouncement) MarshalBinary() ([]byte, error) {
	return a.value.MarshalBinary()
}

// scalarAnnouncement is the announcement of an exponent-equation leaf.
type scalarAnnouncement struct {
	value curve.Scalar
}

func (a scalarAnnouncement) WriteTo(w io.Writer) (int64, error) {
	return a.value.WriteTo(w)
}

func (a scalarAnnouncement) Domain() string {
	return "Schnorr Exponent Announcement"
}

func (a scalarAnnouncement) MarshalBinary() ([]byte, error) {
	return a.value.MarshalBinary()
}

// listAnnouncement is the ordered concatenation of children's announcements.
type listAnnouncement struct {
	domain   string
	children []sigma.Announcement
}

func (a listAnnouncement) WriteTo(w io.Writer) (int64, error) {
	var total int64
	for _, child := range a.children {
		n, err := w.Write([]byte("(" + child.Domain()))
		total += int64(n)
		if err != nil {
			return total, err
		}
		n64, err := child.WriteTo(w)
		total += n64
		if err != nil {
			return total, err
		}
		n, err = w.Write([]byte(")"))
		total += int64(n)
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

func (a listAnnouncement) Domain() string {
	return a.domain
}

func (a listAnnouncement) MarshalBinary() ([]byte, error) {
	children := make([][]byte, len(a.children))
	for i, child := range a.children {
		data, err := child.MarshalBinary()
		if err != nil {
			return nil, err
		}
		children[i] = data
	}
	return cbor.Marshal(children)
}

// emptyResponse is the response of leaves, which respond entirely through
// the external bindings.
type emptyResponse struct{}

func (emptyResponse) MarshalBinary() ([]byte, error) {
	return []byte{}, nil
}

// listResponse is the ordered concatenation of children's responses.
type listResponse struct {
	children []sigma.Response
}

func (r listResponse) MarshalBinary() ([]byte, error) {
	children := make([][]byte, len(r.children))
	for i, child := range r.children {
		data, err := child.MarshalBinary()
		if err != nil {
			return nil, err
		}
		children[i] = data
	}
	return cbor.Marshal(children)
}
