package query

import (
	"fmt"
	"math"

	"github.com/rpattn/billingapi/internal/domain"
)

// Default page parameters applied when a request omits them.
const (
	DefaultPageNumber = 1
	DefaultPageSize   = 10
)

// PageGuard validates page requests. A zero MaxSize leaves the size unbounded.
type PageGuard struct {
	MaxSize int
}

// Validate converts a 1-based page number and size into skip/take bounds.
func (g PageGuard) Validate(number, size int) (skip, take int, err error) {
	if number < 1 {
		return 0, 0, domain.InvalidPage("page number must be at least 1")
	}
	if size < 1 {
		return 0, 0, domain.InvalidPage("page size must be at least 1")
	}
	if g.MaxSize > 0 && size > g.MaxSize {
		return 0, 0, domain.InvalidPage(fmt.Sprintf("page size must not exceed %d", g.MaxSize))
	}
	if number-1 > math.MaxInt/size {
		return 0, 0, domain.InvalidPage("page number is too large")
	}
	return (number - 1) * size, size, nil
}

// ValidatePage applies an unbounded guard.
func ValidatePage(number, size int) (skip, take int, err error) {
	return PageGuard{}.Validate(number, size)
}
