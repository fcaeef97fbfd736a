package trades

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Trade is a single immutable trade record as received from the feed.
type Trade struct {
	ID         string
	Timestamp  time.Time
	AccountID  string
	Instrument string
	Quantity   int64
	Price      decimal.Decimal
	TradeType  string
}

// Notional returns quantity × price, the monetary size of the trade.
func (t Trade) Notional() decimal.Decimal {
	return t.Price.Mul(decimal.NewFromInt(t.Quantity))
}

// EffectiveID returns the trade id, or a synthetic id derived from the
// trade's position in its batch when the feed did not assign one.
func (t Trade) EffectiveID(position int) string {
	if t.ID != "" {
		return t.ID
	}
	return fmt.Sprintf("trade_%d", position)
}

// ValidationError reports the first malformed record in a batch.
type ValidationError struct {
	Index  int
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("trades: record %d: field %q %s", e.Index, e.Field, e.Reason)
}

// ValidateBatch fails fast on malformed trade records. Derived statistics
// tolerate degenerate groups (zero std), but missing required fields must
// not be silently zero-filled downstream.
func ValidateBatch(batch []Trade) error {
	for i, t := range batch {
		switch {
		case t.Timestamp.IsZero():
			return &ValidationError{Index: i, Field: "timestamp", Reason: "is zero"}
		case t.AccountID == "":
			return &ValidationError{Index: i, Field: "account_id", Reason: "is empty"}
		case t.Instrument == "":
			return &ValidationError{Index: i, Field: "instrument", Reason: "is empty"}
		case t.Quantity <= 0:
			return &ValidationError{Index: i, Field: "quantity", Reason: "must be positive"}
		case t.Price.Sign() <= 0:
			return &ValidationError{Index: i, Field: "price", Reason: "must be positive"}
		}
	}
	return nil
}
