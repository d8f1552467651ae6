package services

// Page sizes for list operations.
const (
	DefaultPageSize = 50
	MaxPageSize     = 200
)

// pageBounds clamps a caller's limit and offset.
func pageBounds(limit, offset int) (int, int) {
	switch {
	case limit <= 0:
		limit = DefaultPageSize
	case limit > MaxPageSize:
		limit = MaxPageSize
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}
