package orchestrator

import (
	"strconv"
	"strings"

	"github.com/cespare/xxhash/v2"
	"github.com/shopspring/decimal"
)

// fingerprint builds a stable cache key for a compute-fee request. It must
// be stable under whitespace variation and is deliberately built from
// fixed, ordered fields rather than a map, so there is no key-ordering
// concern to canonicalize away.
func fingerprint(clientID, ticker string, positionValue decimal.Decimal, loanDays int64) string {
	canonical := strings.Join([]string{
		strings.TrimSpace(clientID),
		strings.ToUpper(strings.TrimSpace(ticker)),
		positionValue.StringFixed(2),
		strconv.FormatInt(loanDays, 10),
	}, "|")
	return strconv.FormatUint(xxhash.Sum64String(canonical), 16)
}
