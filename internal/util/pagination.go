package util

const DefaultPageSize = 10

// Calculate clamps page/size to sane bounds and returns the zero-based
// offset together with the effective limit.
func Calculate(page, size int) (offset, limit int) {
	if page < 1 {
		page = 1
	}
	if size <= 0 || size > 100 {
		size = DefaultPageSize
	}
	return (page - 1) * size, size
}

// TotalPages reports the number of pages needed to show total records at
// the given page size.
func TotalPages(total int64, size int) int64 {
	if size <= 0 {
		return 0
	}
	return (total + int64(size) - 1) / int64(size)
}
