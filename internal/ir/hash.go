package ir

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Domain prefixes for hashed identities.
// The version suffix allows migrating the algorithm later.
const (
	DomainEvent = "deliver/event/v1"
	DomainState = "deliver/state/v1"
)

// GenesisDigest is the "previous digest" of the first event of a session.
const GenesisDigest = ""

// hashWithDomain computes SHA-256 with domain separation.
// Format: SHA256(domain + 0x00 + data)
// The null byte separator prevents domain/data boundary ambiguity.
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// StateHash hashes an event's state snapshot.
func StateHash(state []byte) string {
	return hashWithDomain(DomainState, state)
}

// EventDigest computes the chained digest of an event. prev is the digest
// of the session's previous event (GenesisDigest for the first). The
// event's ID and Digest fields are not part of the input, so the digest can
// be computed before the store assigns an id.
func EventDigest(prev string, ev CandidateEvent) (string, error) {
	notes := make(IRArray, len(ev.Notifications))
	for i, n := range ev.Notifications {
		notes[i] = IRObject{
			"level":   IRString(n.Level),
			"source":  IRString(n.Source),
			"message": IRString(n.Message),
		}
	}
	var target int64
	if ev.TargetEventID != nil {
		target = int64(*ev.TargetEventID)
	}

	obj := IRObject{
		"prev":          IRString(prev),
		"session_id":    IRInt(ev.SessionID),
		"category":      IRString(ev.Category),
		"item_type":     IRString(ev.ItemType),
		"test_type":     IRString(ev.TestType),
		"item_key":      IRString(ev.ItemKey),
		"state":         IRString(StateHash(ev.State)),
		"notifications": notes,
		"target":        IRInt(target),
		"created_at":    IRInt(ev.CreatedAt.UnixMilli()),
	}

	canonical, err := MarshalCanonical(obj)
	if err != nil {
		return "", fmt.Errorf("EventDigest: failed to marshal: %w", err)
	}
	return hashWithDomain(DomainEvent, canonical), nil
}

// MustEventDigest is like EventDigest but panics on error.
// Use only in tests or when inputs are known to be valid.
func MustEventDigest(prev string, ev CandidateEvent) string {
	d, err := EventDigest(prev, ev)
	if err != nil {
		panic(err)
	}
	return d
}
