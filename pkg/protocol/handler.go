package protocol

import (
	"bytes"
	"fmt"
	"sync"

	"github.com/rs/zerolog"
)

// Handler pumps an Instance: it produces the instance's outgoing messages on
// a channel and feeds incoming messages to it, so that callers only move
// bytes between the two parties.
//
// Handler methods may be called concurrently; calls block until previous
// calls have finished.
type Handler struct {
	instance Instance
	ssid     []byte
	protocol string
	err      error
	closed   bool
	out      chan *Message
	mtx      sync.Mutex

	Log zerolog.Logger
}

// NewHandler wraps an instance for the session identified by ssid.
// If the instance opens the exchange, its first message is queued
// immediately.
func NewHandler(instance Instance, ssid []byte, protocolID string) (*Handler, error) {
	h := &Handler{
		instance: instance,
		ssid:     ssid,
		protocol: protocolID,
		out:      make(chan *Message, 2),
	}
	h.Log = zerolog.New(zerolog.NewConsoleWriter()).Level(zerolog.WarnLevel).With().
		Str("protocol", protocolID).
		Stringer("role", instance.Role()).
		Logger()

	if err := h.advance(); err != nil {
		return nil, err
	}
	return h, nil
}

// Listen returns the channel of outgoing messages. It is closed when the
// instance terminates or an error occurs.
func (h *Handler) Listen() <-chan *Message {
	h.mtx.Lock()
	defer h.mtx.Unlock()
	return h.out
}

// Accepted reports the instance's verdict once the exchange has finished.
func (h *Handler) Accepted() (bool, error) {
	h.mtx.Lock()
	defer h.mtx.Unlock()
	if h.err != nil {
		return false, h.err
	}
	return h.instance.Accepted()
}

// Update consumes one incoming message and queues any messages the instance
// produces in reaction.
func (h *Handler) Update(msg *Message) error {
	h.mtx.Lock()
	defer h.mtx.Unlock()
	if h.err != nil {
		return h.err
	}
	if h.instance.State() == Done {
		// A finished exchange keeps its verdict; duplicated deliveries of
		// the final message fail without aborting.
		return ErrTerminalState
	}

	if err := h.validate(msg); err != nil {
		h.Log.Warn().Err(err).Stringer("msg", msg).Msg("failed to validate")
		return h.abort(err)
	}
	h.Log.Debug().Stringer("msg", msg).Msg("got new message")

	if err := h.instance.ConsumeMessage(msg); err != nil {
		h.Log.Error().Err(err).Stringer("msg", msg).Msg("failed to consume")
		return h.abort(err)
	}
	return h.advance()
}

func (h *Handler) validate(msg *Message) error {
	if err := msg.Validate(); err != nil {
		return err
	}
	if !bytes.Equal(msg.SSID, h.ssid) {
		return fmt.Errorf("protocol: message for wrong session")
	}
	if msg.Protocol != h.protocol {
		return fmt.Errorf("protocol: message for protocol %q, expected %q", msg.Protocol, h.protocol)
	}
	if msg.From != h.instance.Role().Other() {
		return fmt.Errorf("protocol: message from %s, expected peer %s", msg.From, h.instance.Role().Other())
	}
	return nil
}

// advance produces messages while it is our turn, then closes the channel if
// the exchange finished. Must be called with the lock held.
func (h *Handler) advance() error {
	for h.instance.State() != Done && h.instance.IsMyTurn() {
		msg, err := h.instance.ProduceNextMessage()
		if err != nil {
			h.Log.Error().Err(err).Msg("failed to produce")
			return h.abort(err)
		}
		msg.SSID = h.ssid
		msg.Protocol = h.protocol
		h.Log.Debug().Stringer("msg", msg).Msg("sending")
		h.out <- msg
	}
	if h.instance.State() == Done {
		h.Log.Info().Msg("done")
		h.closeOut()
	}
	return nil
}

// abort records err, closes the channel and returns err. Must be called with
// the lock held.
func (h *Handler) abort(err error) error {
	if h.err == nil {
		h.err = err
		h.closeOut()
	}
	return h.err
}

// closeOut closes the out channel exactly once. Must be called with the
// lock held.
func (h *Handler) closeOut() {
	if !h.closed {
		h.closed = true
		close(h.out)
	}
}
