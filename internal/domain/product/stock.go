package product

import (
	"math"

	"github.com/go-faster/errors"
)

// Stock levels are stored as 32-bit integers.
const (
	MinStock = math.MinInt32
	MaxStock = math.MaxInt32
)

// StockPolicy decides what AddStock does when an adjustment would take the
// stock below zero.
type StockPolicy string

const (
	// StockAllow stores the negative value as computed.
	StockAllow StockPolicy = "allow"
	// StockReject fails with ErrNegativeStock and performs no write.
	StockReject StockPolicy = "reject"
	// StockClamp stores zero instead of the negative value.
	StockClamp StockPolicy = "clamp"
)

// ParseStockPolicy converts a configuration value into a StockPolicy.
// The empty string selects StockAllow.
func ParseStockPolicy(s string) (StockPolicy, error) {
	switch p := StockPolicy(s); p {
	case "":
		return StockAllow, nil
	case StockAllow, StockReject, StockClamp:
		return p, nil
	default:
		return "", errors.Errorf("unknown stock policy %q", s)
	}
}

// apply returns the stock to persist for current+delta. Both operands and
// the result must lie within [MinStock, MaxStock]; the sum is computed in
// 64 bits so it cannot wrap.
func (p StockPolicy) apply(current, delta int) (int, error) {
	if !inStockRange(int64(current)) || !inStockRange(int64(delta)) {
		return 0, ErrStockOutOfRange
	}
	next := int64(current) + int64(delta)
	if next > MaxStock {
		return 0, ErrStockOutOfRange
	}
	if next >= 0 {
		return int(next), nil
	}
	switch p {
	case StockReject:
		return 0, ErrNegativeStock
	case StockClamp:
		return 0, nil
	}
	if next < MinStock {
		return 0, ErrStockOutOfRange
	}
	return int(next), nil
}

func inStockRange(v int64) bool {
	return v >= MinStock && v <= MaxStock
}
