package cache

import (
	"encoding/json"
	"fmt"
	"time"
)

// envelopeVersion is bumped whenever the on-wire shape of envelope changes.
// A version mismatch on read is treated as a cache miss, never a poisoned
// read, so schema evolution never breaks old cached entries.
const envelopeVersion = 1

// envelope is the versioned wrapper every cached value is stored as, so
// schema evolution (e.g. adding a field to a cached struct) does not poison
// caches written by a previous binary version.
type envelope struct {
	Version   int             `json:"v"`
	StoredAt  time.Time       `json:"stored_at"`
	ExpiresAt time.Time       `json:"expires_at"`
	Data      json.RawMessage `json:"data"`
}

func encodeEnvelope(value interface{}, ttl time.Duration) ([]byte, error) {
	data, err := json.Marshal(value)
	if err != nil {
		return nil, fmt.Errorf("cache: marshal value: %w", err)
	}
	now := time.Now()
	env := envelope{
		Version:   envelopeVersion,
		StoredAt:  now,
		ExpiresAt: now.Add(ttl),
		Data:      data,
	}
	return json.Marshal(env)
}

// decodeEnvelope decodes the stored value into out and reports whether it
// is still fresh and whether decoding succeeded at all (a version mismatch
// or corrupt payload returns ok=false so the caller treats it as a miss).
func decodeEnvelope(raw []byte, out interface{}) (fresh bool, ok bool) {
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return false, false
	}
	if env.Version != envelopeVersion {
		return false, false
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return false, false
	}
	return time.Now().Before(env.ExpiresAt), true
}
