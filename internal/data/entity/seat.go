package entity

type SeatStatus string

const (
	SeatStatusAvailable SeatStatus = "AVAILABLE"
	SeatStatusHeld      SeatStatus = "HELD"
	SeatStatusSold      SeatStatus = "SOLD"
)

// SeatTransition is one move in the seat lifecycle.
type SeatTransition struct {
	Name string
	From []SeatStatus
	To   SeatStatus
}

var (
	SeatHold    = SeatTransition{Name: "hold", From: []SeatStatus{SeatStatusAvailable}, To: SeatStatusHeld}
	SeatRelease = SeatTransition{Name: "release", From: []SeatStatus{SeatStatusHeld}, To: SeatStatusAvailable}
	SeatSell    = SeatTransition{Name: "sell", From: []SeatStatus{SeatStatusHeld}, To: SeatStatusSold}
	// a refund may land before the sale is confirmed, so HELD restocks too
	SeatRestock = SeatTransition{Name: "restock", From: []SeatStatus{SeatStatusSold, SeatStatusHeld}, To: SeatStatusAvailable}
)

var seatTransitions = []SeatTransition{SeatHold, SeatRelease, SeatSell, SeatRestock}

func (t SeatTransition) Allows(from SeatStatus) bool {
	for _, s := range t.From {
		if s == from {
			return true
		}
	}
	return false
}

// FromStrings is the From set as plain strings for use as a query argument.
func (t SeatTransition) FromStrings() []string {
	out := make([]string, len(t.From))
	for i, s := range t.From {
		out[i] = string(s)
	}
	return out
}

// CanTransitionTo reports whether any lifecycle move takes s to next.
// SOLD only leaves through a restock.
func (s SeatStatus) CanTransitionTo(next SeatStatus) bool {
	for _, t := range seatTransitions {
		if t.To == next && t.Allows(s) {
			return true
		}
	}
	return false
}

type Seat struct {
	Timestamps
	ID            int64      `db:"id"`
	PerformanceID int64      `db:"performance_id"`
	Code          string     `db:"code"`  // A-12, B-3, etc.
	Price         int64      `db:"price"` // minor currency unit
	Status        SeatStatus `db:"status"`
}

// AcquireResult is the outcome of trying to hold a seat. Losing the race is
// an ordinary result, not an error.
type AcquireResult int

const (
	AcquireOK AcquireResult = iota
	AcquireAlreadyHeld
	AcquireNotFound
)

func (r AcquireResult) String() string {
	switch r {
	case AcquireOK:
		return "ok"
	case AcquireAlreadyHeld:
		return "already_held"
	case AcquireNotFound:
		return "not_found"
	default:
		return "unknown"
	}
}
