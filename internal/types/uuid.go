package types

import (
	"crypto/rand"

	"github.com/oklog/ulid/v2"
)

const (
	UUID_PREFIX_SUBSCRIPTION = "sub"
	UUID_PREFIX_BILLING_KEY  = "bk"
	UUID_PREFIX_PAYMENT      = "pay"
	UUID_PREFIX_REQUEST      = "req"
)

// GenerateUUID returns a lexicographically sortable unique id.
func GenerateUUID() string {
	return ulid.MustNew(ulid.Now(), ulid.Monotonic(rand.Reader, 0)).String()
}

// GenerateUUIDWithPrefix returns a ULID prefixed with the entity type,
// e.g. sub_01HXXXXXXXXXXXXXXXXXXXXXXX.
func GenerateUUIDWithPrefix(prefix string) string {
	if prefix == "" {
		return GenerateUUID()
	}
	return prefix + "_" + GenerateUUID()
}
