package service

import (
	"sort"
	"strconv"

	"github.com/iliyamo/ticket-seat-locking/internal/model"
)

// SelectContiguous picks quantity seats from pool.  It returns the first run
// of quantity strictly consecutive seat numbers within one row, scanning rows
// in the order they first appear in pool.  When no row has such a run it
// falls back to the first quantity seats of pool as given.  Seat numbers
// that are not integers never join a run.
func SelectContiguous(pool []model.Seat, quantity int) ([]model.Seat, error) {
	if quantity <= 0 {
		return nil, withDetail(ErrInvalidQuantity, "quantity must be positive, got %d", quantity)
	}
	if len(pool) < quantity {
		return nil, withDetail(ErrInsufficientStock, "only %d seats available, %d requested", len(pool), quantity)
	}

	var rowOrder []string
	rows := make(map[string][]numberedSeat)
	for _, seat := range pool {
		n, err := strconv.Atoi(seat.SeatNumber)
		if _, seen := rows[seat.RowLabel]; !seen {
			rowOrder = append(rowOrder, seat.RowLabel)
		}
		rows[seat.RowLabel] = append(rows[seat.RowLabel], numberedSeat{seat: seat, num: n, numeric: err == nil})
	}

	for _, label := range rowOrder {
		row := rows[label]
		sort.SliceStable(row, func(i, j int) bool {
			if row[i].numeric != row[j].numeric {
				return row[i].numeric
			}
			return row[i].num < row[j].num
		})
		if run := firstRun(row, quantity); run != nil {
			return run, nil
		}
	}

	out := make([]model.Seat, quantity)
	copy(out, pool[:quantity])
	return out, nil
}

type numberedSeat struct {
	seat    model.Seat
	num     int
	numeric bool
}

// firstRun returns the first window of n seats whose numbers increase by
// exactly one, or nil.
func firstRun(row []numberedSeat, n int) []model.Seat {
	start := 0
	for i := range row {
		if !row[i].numeric {
			start = i + 1
			continue
		}
		if i > start && row[i].num != row[i-1].num+1 {
			start = i
		}
		if i-start+1 == n {
			out := make([]model.Seat, 0, n)
			for _, ns := range row[start : i+1] {
				out = append(out, ns.seat)
			}
			return out
		}
	}
	return nil
}
