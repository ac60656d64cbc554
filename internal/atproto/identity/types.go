package identity

import "time"

// ResolutionMethod indicates how an identity was resolved
type ResolutionMethod string

const (
	MethodCache   ResolutionMethod = "cache"
	MethodNetwork ResolutionMethod = "network"
)

// Identity represents a fully resolved atProto identity
type Identity struct {
	DID        string           // Decentralized Identifier (e.g., "did:plc:abc123")
	Handle     string           // Human-readable handle (e.g., "alice.bsky.social")
	PDSURL     string           // Personal Data Server URL
	ResolvedAt time.Time        // When this identity was resolved
	Method     ResolutionMethod // How it was resolved
}
