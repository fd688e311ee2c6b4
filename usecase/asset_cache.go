package usecase

import (
	"strconv"

	"github.com/patrickmn/go-cache"
	"github.com/satriahrh/cocoa-fruit/storybook/domain"
)

// AssetCache memoizes page illustrations for one story session. Entries never
// expire and are never replaced.
type AssetCache struct {
	items *cache.Cache
}

func NewAssetCache() *AssetCache {
	// No janitor: nothing ever expires.
	return &AssetCache{items: cache.New(cache.NoExpiration, 0)}
}

func (c *AssetCache) Get(page int) (domain.ImageRef, bool) {
	v, ok := c.items.Get(strconv.Itoa(page))
	if !ok {
		return nil, false
	}
	img, ok := v.(domain.ImageRef)
	return img, ok
}

// Store records img for page. It reports false, keeping the existing entry,
// when the page is already populated.
func (c *AssetCache) Store(page int, img domain.ImageRef) bool {
	if img == nil {
		return false
	}
	return c.items.Add(strconv.Itoa(page), img, cache.NoExpiration) == nil
}

func (c *AssetCache) Len() int {
	return c.items.ItemCount()
}
