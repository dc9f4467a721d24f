// Package codec wraps typed payloads into wire envelopes and back. It is a
// pure transform: no transport or storage side effects.
package codec

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/rallyscore/go-rallysync/wire"
)

var (
	// ErrEncodingFailed means the payload could not be serialized.
	ErrEncodingFailed = errors.New("encoding failed")
	// ErrDecodingFailed means the envelope bytes do not match the declared type.
	ErrDecodingFailed = errors.New("decoding failed")
	// ErrUnsupportedType means the envelope tag is not in the catalog known to
	// this build. Receivers answer with an error envelope, never crash.
	ErrUnsupportedType = errors.New("unsupported message type")
	// ErrUnsupportedVersion means the envelope was produced by a protocol
	// version this build cannot parse.
	ErrUnsupportedVersion = errors.New("unsupported protocol version")
)

var encoderPool = sync.Pool{
	New: func() any {
		b := new(bytes.Buffer)
		b.Grow(256)
		return b
	},
}

func marshalPayload(payload any) ([]byte, error) {
	b := encoderPool.Get().(*bytes.Buffer)
	defer func() {
		b.Reset()
		encoderPool.Put(b)
	}()
	enc := json.NewEncoder(b)
	if err := enc.Encode(payload); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEncodingFailed, err)
	}
	buf := make([]byte, b.Len())
	copy(buf, b.Bytes())
	return buf, nil
}

// Encode wraps payload into a fresh envelope tagged with mtype. Empty-bodied
// tags may pass a nil payload.
func Encode(mtype wire.MessageType, payload any) (wire.Envelope, error) {
	return EncodeSession(mtype, payload, nil)
}

// EncodeSession is Encode with a live-game session correlation id.
func EncodeSession(mtype wire.MessageType, payload any, sessionID *uuid.UUID) (wire.Envelope, error) {
	if !mtype.Valid() {
		return wire.Envelope{}, fmt.Errorf("%w: %q", ErrUnsupportedType, mtype)
	}
	env := wire.Envelope{
		ID:              uuid.New(),
		ProtocolVersion: wire.ProtocolVersion,
		Type:            mtype,
		SentAt:          time.Now().UTC(),
		SessionID:       sessionID,
	}
	if payload == nil {
		if !mtype.Empty() {
			return wire.Envelope{}, fmt.Errorf("%w: nil payload for %q", ErrEncodingFailed, mtype)
		}
		payload = &wire.Empty{}
	}
	buf, err := marshalPayload(payload)
	if err != nil {
		return wire.Envelope{}, fmt.Errorf("encode %q: %w", mtype, err)
	}
	env.Payload = buf
	return env, nil
}

// Decode unwraps the envelope payload into the shape named by its tag.
// Envelopes from any version up to the current one decode; tags unknown to
// this build fail with ErrUnsupportedType.
func Decode(env wire.Envelope) (any, error) {
	if env.ProtocolVersion > wire.ProtocolVersion {
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedVersion, env.ProtocolVersion)
	}
	payload, ok := wire.NewPayload(env.Type)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedType, env.Type)
	}
	if len(env.Payload) == 0 {
		if env.Type.Empty() {
			return payload, nil
		}
		return nil, fmt.Errorf("%w: empty payload for %q", ErrDecodingFailed, env.Type)
	}
	dec := json.NewDecoder(bytes.NewReader(env.Payload))
	if err := dec.Decode(payload); err != nil {
		return nil, fmt.Errorf("%w: %q: %v", ErrDecodingFailed, env.Type, err)
	}
	return payload, nil
}

// EncodeFrame serializes a whole envelope for transports that move raw bytes.
func EncodeFrame(env wire.Envelope) ([]byte, error) {
	buf, err := marshalPayload(&env)
	if err != nil {
		return nil, fmt.Errorf("encode frame: %w", err)
	}
	return buf, nil
}

// DecodeFrame parses a raw frame back into an envelope. Payload bytes stay
// opaque until Decode.
func DecodeFrame(buf []byte) (wire.Envelope, error) {
	var env wire.Envelope
	if err := json.Unmarshal(buf, &env); err != nil {
		return wire.Envelope{}, fmt.Errorf("%w: frame: %v", ErrDecodingFailed, err)
	}
	return env, nil
}
