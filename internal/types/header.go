package types

const (
	HeaderRequestID = "X-Request-ID"
	// HeaderOwnerID carries the authenticated owner identity forwarded by
	// the upstream gateway.
	HeaderOwnerID = "X-Owner-ID"
)
