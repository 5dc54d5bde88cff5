package artifact

// Cache decides whether a stage may reuse a prior artifact or must recompute.
type Cache struct {
	store        *Store
	forceRefresh bool
}

// CacheConfig holds configuration for the cache.
type CacheConfig struct {
	// ForceRefresh disables reuse entirely: every stage recomputes.
	ForceRefresh bool
}

// NewCache creates a cache over the given store.
func NewCache(store *Store, cfg *CacheConfig) *Cache {
	c := &Cache{store: store}
	if cfg != nil {
		c.forceRefresh = cfg.ForceRefresh
	}
	return c
}

// Store returns the underlying artifact store.
func (c *Cache) Store() *Store { return c.store }

// WithForceRefresh returns a view of the cache with reuse disabled. Writes
// still go through the shared store, so a single run can recompute every
// stage without affecting other runs over the same cache.
func (c *Cache) WithForceRefresh() *Cache {
	return &Cache{store: c.store, forceRefresh: true}
}

// ShouldReuse reports whether the latest artifact for (company, stage) is
// still valid for the given input text.
//
// Reuse requires a prior artifact whose stored content hash equals the hash
// of the current input. Legacy artifacts without a stored hash fall back to
// presence-only caching: they are reused whenever ForceRefresh is off.
func (c *Cache) ShouldReuse(company string, stage Stage, inputText string) bool {
	if c.forceRefresh {
		return false
	}
	latest, err := c.store.Latest(company, stage)
	if err != nil || latest == nil {
		return false
	}
	if latest.Meta == nil || latest.Meta.ContentHash == "" {
		return true
	}
	return latest.Meta.ContentHash == HashText(inputText)
}

// LoadCached returns the latest artifact for (company, stage), or nil when
// none exists.
func (c *Cache) LoadCached(company string, stage Stage) (*Artifact, error) {
	return c.store.Latest(company, stage)
}

// Save persists a new timestamped artifact for the given input text. When the
// latest artifact was already produced from input with the same hash, the
// existing artifact is returned instead of a duplicate being written. Under
// ForceRefresh the de-duplication is skipped: a recomputed result always
// lands on disk as a new timestamped version.
func (c *Cache) Save(company string, stage Stage, payload []byte, inputText string) (*Artifact, error) {
	hash := HashText(inputText)

	if !c.forceRefresh {
		for _, entry := range c.store.All(company, stage) {
			meta := readMeta(entry.Path)
			if meta == nil || meta.ContentHash != hash {
				continue
			}
			existing, err := c.store.Load(company, stage, entry.Path, entry.Timestamp)
			if err == nil {
				return existing, nil
			}
		}
	}
	return c.store.Write(company, stage, payload, hash)
}
