package pagination

const (
	// DefaultSize is the standard page size when one is not provided.
	DefaultSize = 25
	// MaxSize caps how many rows any page query can request.
	MaxSize = 100
)

// Params holds page/size pagination inputs from controllers or services.
// Zero values mean "unpaginated".
type Params struct {
	Page int
	Size int
}

// Enabled reports whether the caller asked for pagination at all.
func (p Params) Enabled() bool {
	return p.Page > 0 && p.Size > 0
}

// LimitOffset converts page/size into SQL limit/offset values.
func (p Params) LimitOffset() (limit, offset int) {
	size := p.Size
	if size <= 0 {
		size = DefaultSize
	}
	if size > MaxSize {
		size = MaxSize
	}
	page := p.Page
	if page <= 0 {
		page = 1
	}
	return size, (page - 1) * size
}

// TotalPages derives the page count for a result set of the given size.
func TotalPages(count int64, size int) int {
	if size <= 0 {
		return 0
	}
	pages := int(count) / size
	if int(count)%size != 0 {
		pages++
	}
	return pages
}
