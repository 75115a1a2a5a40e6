// Package ids provides strongly-typed identifiers for users, agents, and
// sessions. All IDs are designed for efficient storage and lookup: UserId and
// AgentId are fixed 32-byte hashes rendered as lowercase hex, while SessionId,
// IdentityId, and NamespaceId wrap a UUID.
package ids

import (
	"encoding/hex"
	"fmt"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/blake2b"
)

// IdError reports a malformed identifier.
type IdError struct {
	Kind     string
	Expected int
	Got      int
}

func (e *IdError) Error() string {
	switch e.Kind {
	case "invalid_hex":
		return "invalid hex identifier"
	case "invalid_length":
		return fmt.Sprintf("invalid identifier length: expected %d bytes, got %d", e.Expected, e.Got)
	case "invalid_uuid":
		return "invalid uuid identifier"
	default:
		return "invalid identifier"
	}
}

func errInvalidHex() error { return &IdError{Kind: "invalid_hex"} }
func errInvalidLength(expected, got int) error {
	return &IdError{Kind: "invalid_length", Expected: expected, Got: got}
}
func errInvalidUUID() error { return &IdError{Kind: "invalid_uuid"} }

// UserId is a 32-byte opaque user identifier, hex-encoded for display.
//
// User IDs are derived from the upstream identity provider's identity UUID
// (see DeriveUserID) and are never chosen by the user directly.
type UserId [32]byte

// UserIDFromBytes wraps raw bytes as a UserId.
func UserIDFromBytes(b [32]byte) UserId { return UserId(b) }

// UserIDFromHex parses a UserId from a 64-character hex string.
func UserIDFromHex(s string) (UserId, error) {
	b, err := decodeHex32(s)
	if err != nil {
		return UserId{}, err
	}
	return UserId(b), nil
}

// DeriveUserID derives a UserId from a 16-byte identity UUID via blake2b-256.
//
// The original system hashes with blake3; no blake3 library is available in
// this module's dependency set, so blake2b-256 (same hash family, already an
// indirect dependency of this stack) is used instead.
func DeriveUserID(identityID IdentityId) UserId {
	sum := blake2b.Sum256(identityID.AsBytes()[:])
	return UserId(sum)
}

// Bytes returns the underlying 32 bytes.
func (u UserId) Bytes() [32]byte { return u }

// Hex returns the lowercase hex encoding.
func (u UserId) Hex() string { return hex.EncodeToString(u[:]) }

// String implements fmt.Stringer.
func (u UserId) String() string { return u.Hex() }

// MarshalText implements encoding.TextMarshaler for JSON/CBOR map keys.
func (u UserId) MarshalText() ([]byte, error) { return []byte(u.Hex()), nil }

// UnmarshalText implements encoding.TextUnmarshaler.
func (u *UserId) UnmarshalText(text []byte) error {
	v, err := UserIDFromHex(string(text))
	if err != nil {
		return err
	}
	*u = v
	return nil
}

// AgentId is a 32-byte agent identifier, generated as a hash over the owning
// user, the agent's name, and either a timestamp (Generate) or a fixed seed
// (GenerateDeterministic, for reproducible tests).
type AgentId [32]byte

// AgentIDFromBytes wraps raw bytes as an AgentId.
func AgentIDFromBytes(b [32]byte) AgentId { return AgentId(b) }

// AgentIDFromHex parses an AgentId from a 64-character hex string.
func AgentIDFromHex(s string) (AgentId, error) {
	b, err := decodeHex32(s)
	if err != nil {
		return AgentId{}, err
	}
	return AgentId(b), nil
}

// GenerateAgentID derives a new AgentId from the owner, name, and the current
// wall-clock time in nanoseconds since the Unix epoch.
func GenerateAgentID(userID UserId, name string) AgentId {
	ts := uint64(time.Now().UnixNano())
	return hashAgentID(userID, name, ts)
}

// GenerateDeterministicAgentID derives a reproducible AgentId from a fixed
// seed instead of the current time, for use in tests and fixtures.
func GenerateDeterministicAgentID(userID UserId, name string, seed uint64) AgentId {
	return hashAgentID(userID, name, seed)
}

func hashAgentID(userID UserId, name string, seed uint64) AgentId {
	h, _ := blake2b.New256(nil)
	h.Write(userID[:])
	h.Write([]byte(name))
	var seedBytes [8]byte
	for i := 0; i < 8; i++ {
		seedBytes[i] = byte(seed >> (8 * i))
	}
	h.Write(seedBytes[:])
	var out AgentId
	copy(out[:], h.Sum(nil))
	return out
}

// Bytes returns the underlying 32 bytes.
func (a AgentId) Bytes() [32]byte { return a }

// Hex returns the lowercase hex encoding.
func (a AgentId) Hex() string { return hex.EncodeToString(a[:]) }

// String implements fmt.Stringer.
func (a AgentId) String() string { return a.Hex() }

// MarshalText implements encoding.TextMarshaler.
func (a AgentId) MarshalText() ([]byte, error) { return []byte(a.Hex()), nil }

// UnmarshalText implements encoding.TextUnmarshaler.
func (a *AgentId) UnmarshalText(text []byte) error {
	v, err := AgentIDFromHex(string(text))
	if err != nil {
		return err
	}
	*a = v
	return nil
}

func decodeHex32(s string) ([32]byte, error) {
	var out [32]byte
	b, err := hex.DecodeString(s)
	if err != nil {
		return out, errInvalidHex()
	}
	if len(b) != 32 {
		return out, errInvalidLength(32, len(b))
	}
	copy(out[:], b)
	return out, nil
}

// SessionId is a random 128-bit session identifier.
type SessionId struct{ v uuid.UUID }

// GenerateSessionID creates a new random SessionId.
func GenerateSessionID() SessionId { return SessionId{v: uuid.New()} }

// SessionIDFromUUID wraps an existing UUID as a SessionId.
func SessionIDFromUUID(u uuid.UUID) SessionId { return SessionId{v: u} }

// SessionIDFromString parses a SessionId from its canonical UUID string form.
func SessionIDFromString(s string) (SessionId, error) {
	u, err := uuid.Parse(s)
	if err != nil {
		return SessionId{}, errInvalidUUID()
	}
	return SessionId{v: u}, nil
}

// AsBytes returns the 16 raw UUID bytes.
func (s SessionId) AsBytes() [16]byte {
	var b [16]byte
	copy(b[:], s.v[:])
	return b
}

// String implements fmt.Stringer.
func (s SessionId) String() string { return s.v.String() }

// MarshalText implements encoding.TextMarshaler.
func (s SessionId) MarshalText() ([]byte, error) { return []byte(s.v.String()), nil }

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *SessionId) UnmarshalText(text []byte) error {
	v, err := SessionIDFromString(string(text))
	if err != nil {
		return err
	}
	*s = v
	return nil
}

// MarshalBinary implements encoding.BinaryMarshaler; the store's CBOR codec
// uses it to persist the ID as its 16 raw bytes.
func (s SessionId) MarshalBinary() ([]byte, error) { return s.v.MarshalBinary() }

// UnmarshalBinary implements encoding.BinaryUnmarshaler.
func (s *SessionId) UnmarshalBinary(data []byte) error { return s.v.UnmarshalBinary(data) }

// IdentityId is the upstream identity provider's UUID for a user.
type IdentityId struct{ v uuid.UUID }

// IdentityIDFromString parses an IdentityId from a UUID string.
func IdentityIDFromString(s string) (IdentityId, error) {
	u, err := uuid.Parse(s)
	if err != nil {
		return IdentityId{}, errInvalidUUID()
	}
	return IdentityId{v: u}, nil
}

// AsBytes returns the 16 raw UUID bytes.
func (i IdentityId) AsBytes() [16]byte {
	var b [16]byte
	copy(b[:], i.v[:])
	return b
}

// String implements fmt.Stringer.
func (i IdentityId) String() string { return i.v.String() }

// NamespaceId is the upstream identity provider's tenant/namespace UUID.
type NamespaceId struct{ v uuid.UUID }

// NamespaceIDFromString parses a NamespaceId from a UUID string.
func NamespaceIDFromString(s string) (NamespaceId, error) {
	u, err := uuid.Parse(s)
	if err != nil {
		return NamespaceId{}, errInvalidUUID()
	}
	return NamespaceId{v: u}, nil
}

// String implements fmt.Stringer.
func (n NamespaceId) String() string { return n.v.String() }
