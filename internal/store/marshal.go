package store

import (
	"encoding/json"
	"fmt"

	"github.com/roach88/assetsync/internal/asset"
)

// marshalEntity converts an entity to JSON TEXT for storage. Strings are
// stored as given; normalisation belongs to the fingerprint column only.
func marshalEntity(e *asset.Entity) (string, error) {
	data, err := json.Marshal(e)
	if err != nil {
		return "", fmt.Errorf("marshal entity %s: %w", e.Ref(), err)
	}
	return string(data), nil
}

// unmarshalEntity parses a stored body.
func unmarshalEntity(body string) (*asset.Entity, error) {
	var e asset.Entity
	if err := json.Unmarshal([]byte(body), &e); err != nil {
		return nil, fmt.Errorf("unmarshal entity: %w", err)
	}
	return &e, nil
}
