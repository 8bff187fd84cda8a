package catalog

import "github.com/desertthunder/simsa/internal/models"

// DefaultPageSize matches the gallery's six-card grid.
const DefaultPageSize = 6

// PageCount returns ceil(n/size). It is zero for an empty catalog.
func PageCount(n, size int) int {
	if size <= 0 {
		size = DefaultPageSize
	}
	if n <= 0 {
		return 0
	}
	return (n + size - 1) / size
}

// Page returns entries [(index-1)*size, min(index*size, len)) for a 1-based index.
// An index outside 1..PageCount yields an empty page.
func Page(entries []models.CatalogEntry, size, index int) []models.CatalogEntry {
	if size <= 0 {
		size = DefaultPageSize
	}
	if index < 1 || index > PageCount(len(entries), size) {
		return []models.CatalogEntry{}
	}
	start := (index - 1) * size
	end := min(start+size, len(entries))
	return entries[start:end]
}

// Pager tracks the current page over a [Cache].
type Pager struct {
	cache   *Cache
	size    int
	index   int
	version uint64
}

// NewPager starts at page 1. A non-positive size uses [DefaultPageSize].
func NewPager(cache *Cache, size int) *Pager {
	if size <= 0 {
		size = DefaultPageSize
	}
	return &Pager{cache: cache, size: size, index: 1, version: cache.Version()}
}

// sync resets to page 1 when the cache has been replaced since the last look.
func (p *Pager) sync() {
	if v := p.cache.Version(); v != p.version {
		p.version = v
		p.index = 1
	}
}

func (p *Pager) Size() int { return p.size }

// Index is the current 1-based page number.
func (p *Pager) Index() int {
	p.sync()
	return p.index
}

func (p *Pager) PageCount() int {
	return PageCount(p.cache.Len(), p.size)
}

// Current returns the entries on the current page.
func (p *Pager) Current() []models.CatalogEntry {
	p.sync()
	return Page(p.cache.Entries(), p.size, p.index)
}

// NextPage advances one page; it is a no-op on the last page.
func (p *Pager) NextPage() bool {
	p.sync()
	if p.index >= p.PageCount() {
		return false
	}
	p.index++
	return true
}

// PreviousPage goes back one page; it is a no-op on page 1.
func (p *Pager) PreviousPage() bool {
	p.sync()
	if p.index <= 1 {
		return false
	}
	p.index--
	return true
}
