package hash

import (
	"bytes"
	"fmt"
	"io"

	"github.com/sigmalab/sigma/internal/params"
	"golang.org/x/crypto/sha3"
)

type (
	// Commitment is a binding, hiding commitment to some data.
	Commitment []byte
	// Decommitment is the random string opening a Commitment.
	Decommitment []byte
)

// WriteTo implements the io.WriterTo interface for Commitment.
func (c Commitment) WriteTo(w io.Writer) (int64, error) {
	n, err := w.Write(c)
	return int64(n), err
}

// Domain implements WriterToWithDomain, and separates this type within hash.Hash.
func (Commitment) Domain() string {
	return "Commitment"
}

func (c Commitment) Validate() error {
	if l := len(c); l != params.HashBytes {
		return fmt.Errorf("commitment: incorrect length (got %d, expected %d)", l, params.HashBytes)
	}
	return nil
}

// WriteTo implements the io.WriterTo interface for Decommitment.
func (d Decommitment) WriteTo(w io.Writer) (int64, error) {
	n, err := w.Write(d)
	return int64(n), err
}

// Domain implements WriterToWithDomain, and separates this type within hash.Hash.
func (Decommitment) Domain() string {
	return "Decommitment"
}

func (d Decommitment) Validate() error {
	if l := len(d); l != params.SecBytes {
		return fmt.Errorf("decommitment: incorrect length (got %d, expected %d)", l, params.SecBytes)
	}
	return nil
}

// Committer is a hash-based commitment scheme, instantiated with cSHAKE128
// under a caller-chosen customization string.
//
// commitment = cSHAKE128(data ∥ decommitment), with the decommitment drawn
// fresh for every Commit call.
type Committer struct {
	customization []byte
}

// NewCommitter creates a Committer domain-separated by customization.
func NewCommitter(customization string) *Committer {
	return &Committer{customization: []byte(customization)}
}

func (c *Committer) digest(data []byte, d Decommitment) Commitment {
	h := sha3.NewCShake128(nil, c.customization)
	_, _ = h.Write(data)
	_, _ = h.Write(d)
	out := make([]byte, params.HashBytes)
	_, _ = h.Read(out)
	return out
}

// Commit creates a commitment to data, and returns the commitment together
// with the decommitment string opening it.
func (c *Committer) Commit(rand io.Reader, data []byte) (Commitment, Decommitment, error) {
	decommitment := Decommitment(make([]byte, params.SecBytes))
	if _, err := io.ReadFull(rand, decommitment); err != nil {
		return nil, nil, fmt.Errorf("hash.Commit: failed to generate decommitment: %w", err)
	}
	return c.digest(data, decommitment), decommitment, nil
}

// Verify checks that commitment opens to data under decommitment.
func (c *Committer) Verify(commitment Commitment, data []byte, decommitment Decommitment) bool {
	if err := commitment.Validate(); err != nil {
		return false
	}
	if err := decommitment.Validate(); err != nil {
		return false
	}
	return bytes.Equal(c.digest(data, decommitment), commitment)
}
