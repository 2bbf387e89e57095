package ir

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Domain prefixes for content-addressed identity.
// The version suffix leaves room for algorithm changes.
const (
	DomainEvent   = "eventsheet/event/v1"
	DomainProgram = "eventsheet/program/v1"
)

// hashWithDomain computes SHA256(domain + 0x00 + data).
// The null byte keeps the domain/data boundary unambiguous.
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// EventHash computes the content hash of a single event subtree.
func EventHash(e Event) (string, error) {
	canonical, err := MarshalCanonical(e.canonicalTree())
	if err != nil {
		return "", fmt.Errorf("EventHash: failed to marshal: %w", err)
	}
	return hashWithDomain(DomainEvent, canonical), nil
}

// ProgramHash computes the identity of a compiled scene: its events plus
// every external event list reached through links, keyed by name.
func ProgramHash(events []Event, links map[string][]Event) (string, error) {
	linked := make(map[string]any, len(links))
	for name, evs := range links {
		linked[name] = EventsTree(evs)
	}
	obj := map[string]any{
		"format": FormatVersion,
		"events": EventsTree(events),
		"links":  linked,
	}
	canonical, err := MarshalCanonical(obj)
	if err != nil {
		return "", fmt.Errorf("ProgramHash: failed to marshal: %w", err)
	}
	return hashWithDomain(DomainProgram, canonical), nil
}

// MustEventHash is like EventHash but panics on error.
// Use only in tests or when inputs are known to be valid.
func MustEventHash(e Event) string {
	h, err := EventHash(e)
	if err != nil {
		panic(err)
	}
	return h
}
