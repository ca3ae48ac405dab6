package propagation

import "sync"

// pairKey identifies a cached result by the two node IDs and direction.
type pairKey struct {
	txID, rxID uint32
}

// CachedModel memoizes PathLoss by (tx, rx) node-id pair, mirroring the
// KSSM prototype's _path_loss_cache/_distance_cache dicts. Node positions
// are static for the lifetime of a run, so the cache never needs eviction.
type CachedModel struct {
	inner Model

	mu    sync.Mutex
	cache map[pairKey]float64
}

// NewCachedModel wraps inner with a memoizing cache keyed by node id pair.
func NewCachedModel(inner Model) *CachedModel {
	return &CachedModel{inner: inner, cache: make(map[pairKey]float64)}
}

func (c *CachedModel) Name() string { return c.inner.Name() }

// PathLossByID behaves like PathLoss but caches on the given node ids.
func (c *CachedModel) PathLossByID(txID, rxID uint32, tx, rx Point, freqHz float64) (float64, error) {
	key := pairKey{txID: txID, rxID: rxID}

	c.mu.Lock()
	if v, ok := c.cache[key]; ok {
		c.mu.Unlock()
		return v, nil
	}
	c.mu.Unlock()

	v, err := c.inner.PathLoss(tx, rx, freqHz)
	if err != nil {
		return 0, err
	}

	c.mu.Lock()
	c.cache[key] = v
	c.mu.Unlock()

	return v, nil
}

// PathLoss satisfies Model without caching (no node ids are available);
// callers that know node identities should use PathLossByID instead.
func (c *CachedModel) PathLoss(tx, rx Point, freqHz float64) (float64, error) {
	return c.inner.PathLoss(tx, rx, freqHz)
}
