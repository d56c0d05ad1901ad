package palette

import (
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/nao1215/matsight/internal/model"
)

// DefaultCacheSize is the number of palettes kept by NewCache(0).
const DefaultCacheSize = 32

// Cache memoises palettes by analysis ID. It is safe for concurrent use.
//
// Results without an ID are built on every call and never stored, because
// two such results cannot be told apart.
type Cache struct {
	lru  *lru.Cache[string, *Palette]
	opts []Option
}

// NewCache returns a cache holding up to size palettes (DefaultCacheSize when
// size is not positive). opts are applied to every palette it builds.
func NewCache(size int, opts ...Option) (*Cache, error) {
	if size <= 0 {
		size = DefaultCacheSize
	}
	c, err := lru.New[string, *Palette](size)
	if err != nil {
		return nil, fmt.Errorf("failed to create palette cache: %w", err)
	}
	return &Cache{lru: c, opts: opts}, nil
}

// Get returns the palette of result, building it on first use.
func (c *Cache) Get(result *model.AnalysisResult) (*Palette, error) {
	if result == nil {
		return nil, fmt.Errorf("%w: nil result", ErrUnsupportedAnalysis)
	}
	if result.ID != "" {
		if p, ok := c.lru.Get(result.ID); ok {
			return p, nil
		}
	}
	p, err := Build(result.Analysis, c.opts...)
	if err != nil {
		return nil, err
	}
	if result.ID != "" {
		c.lru.Add(result.ID, p)
	}
	return p, nil
}

// Forget drops the palette of the analysis with the given ID.
func (c *Cache) Forget(id string) {
	c.lru.Remove(id)
}

// Len returns the number of cached palettes.
func (c *Cache) Len() int {
	return c.lru.Len()
}
