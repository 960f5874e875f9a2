package remote

import (
	"github.com/dgraph-io/ristretto/v2"

	"github.com/roach88/assetsync/internal/asset"
)

// entityCache holds raw entity bodies keyed by type and id. A nil
// *entityCache misses every lookup.
type entityCache struct {
	c *ristretto.Cache[string, []byte]
}

func newEntityCache(maxCostBytes int64) (*entityCache, error) {
	c, err := ristretto.NewCache(&ristretto.Config[string, []byte]{
		NumCounters: maxCostBytes / 100 * 10, // ~10x expected items
		MaxCost:     maxCostBytes,
		BufferItems: 64,
	})
	if err != nil {
		return nil, err
	}
	return &entityCache{c: c}, nil
}

func cacheKey(t asset.Type, id string) string {
	return string(t) + "/" + id
}

// get decodes a fresh entity on every hit so callers never share state.
func (ec *entityCache) get(key string) (*asset.Entity, bool) {
	if ec == nil {
		return nil, false
	}
	data, ok := ec.c.Get(key)
	if !ok {
		return nil, false
	}
	e, err := decodeEntity(data)
	if err != nil {
		ec.c.Del(key)
		return nil, false
	}
	return e, true
}

func (ec *entityCache) set(key string, data []byte) {
	if ec == nil {
		return
	}
	ec.c.Set(key, data, int64(len(data)))
}

func (ec *entityCache) del(key string) {
	if ec == nil {
		return
	}
	ec.c.Del(key)
}

func (ec *entityCache) close() {
	ec.c.Close()
}
