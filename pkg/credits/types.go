package credits

import (
	"slices"
	"time"
)

// Pack is an independently expiring grant of credits.
type Pack struct {
	ID          string     `json:"id"`
	UnitsTenths int64      `json:"units_tenths"`
	CreatedAt   time.Time  `json:"created_at"`
	ExpiresAt   *time.Time `json:"expires_at"` // nil never expires
}

// Expired reports whether the pack no longer counts towards the balance.
func (p Pack) Expired(now time.Time) bool {
	return p.ExpiresAt != nil && !now.Before(*p.ExpiresAt)
}

// PackConsumption is one line of a consumption breakdown.
type PackConsumption struct {
	PackID         string `json:"pack_id"`
	ConsumedTenths int64  `json:"consumed_tenths"`
}

// ConsumptionResult describes a settled consumption.
type ConsumptionResult struct {
	TotalConsumedTenths int64             `json:"total_consumed_tenths"`
	RemainingTenths     int64             `json:"remaining_tenths"`
	Breakdown           []PackConsumption `json:"breakdown"`
	Idempotent          bool              `json:"-"` // replayed from an earlier settlement
}

// document is the persisted pack collection of an account.
type document struct {
	Packs []Pack `json:"packs"`
}

// live returns the unexpired, non-empty packs in consumption order.
func live(packs []Pack, now time.Time) []Pack {
	out := make([]Pack, 0, len(packs))
	for _, p := range packs {
		if p.UnitsTenths > 0 && !p.Expired(now) {
			out = append(out, p)
		}
	}
	slices.SortStableFunc(out, consumptionOrder)
	return out
}

// consumptionOrder sorts by expiry ascending, packs without expiry last,
// then by creation time.
func consumptionOrder(a, b Pack) int {
	switch {
	case a.ExpiresAt == nil && b.ExpiresAt != nil:
		return 1
	case a.ExpiresAt != nil && b.ExpiresAt == nil:
		return -1
	case a.ExpiresAt != nil && b.ExpiresAt != nil:
		if c := a.ExpiresAt.Compare(*b.ExpiresAt); c != 0 {
			return c
		}
	}
	return a.CreatedAt.Compare(b.CreatedAt)
}

func sum(packs []Pack) int64 {
	var total int64
	for _, p := range packs {
		total += p.UnitsTenths
	}
	return total
}

// drain takes up to amount from packs in order. Fully drained packs are
// removed from the returned collection.
func drain(packs []Pack, amount int64) (rest []Pack, breakdown []PackConsumption, taken int64) {
	rest = make([]Pack, 0, len(packs))
	for _, p := range packs {
		need := amount - taken
		if need <= 0 {
			rest = append(rest, p)
			continue
		}
		take := min(p.UnitsTenths, need)
		taken += take
		breakdown = append(breakdown, PackConsumption{PackID: p.ID, ConsumedTenths: take})
		if p.UnitsTenths > take {
			p.UnitsTenths -= take
			rest = append(rest, p)
		}
	}
	return rest, breakdown, taken
}
