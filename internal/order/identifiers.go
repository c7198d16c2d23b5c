package order

import (
	"fmt"
	"strconv"
	"time"

	"bakery-storefront/internal/domain"
)

// GenerateCode builds a local order code from the last five digits of the
// epoch in milliseconds
func GenerateCode(now time.Time) string {
	return "ORDER" + lastDigits(now.UnixMilli(), 5)
}

// GenerateNumber builds a local order number: '#', the year, then the last
// four digits of the epoch in milliseconds
func GenerateNumber(now time.Time) string {
	return "#" + strconv.Itoa(now.Year()) + lastDigits(now.UnixMilli(), 4)
}

// RemoteCode is the order code for an order the remote assigned id to
func RemoteCode(id int64) string {
	return "ORDER" + strconv.FormatInt(id, 10)
}

// RemoteNumber is the order number for an order the remote assigned id to
func RemoteNumber(id int64, now time.Time) string {
	return fmt.Sprintf("#%d%04d", now.Year(), id)
}

// EnsureIdentifiers fills in a missing code or number. Existing values are
// never replaced.
func EnsureIdentifiers(o *domain.Order, now time.Time) {
	if o.Code == "" {
		o.Code = GenerateCode(now)
	}
	if o.Number == "" {
		o.Number = GenerateNumber(now)
	}
}

func lastDigits(n int64, count int) string {
	s := strconv.FormatInt(n, 10)
	if len(s) <= count {
		return s
	}
	return s[len(s)-count:]
}
