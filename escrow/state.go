package escrow

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// PlatformMeta holds the platform-wide counters and fee policy. The escrow
// counter is the source of new identifiers and total volume accumulates every
// deposit ever made; refunds and cancellations never reduce it.
type PlatformMeta struct {
	EscrowCounter      uint64
	TotalVolume        *big.Int
	PlatformFeePercent uint64
}

// Clone returns a deep copy of the meta record.
func (m *PlatformMeta) Clone() *PlatformMeta {
	if m == nil {
		return nil
	}
	clone := *m
	if m.TotalVolume != nil {
		clone.TotalVolume = new(big.Int).Set(m.TotalVolume)
	} else {
		clone.TotalVolume = big.NewInt(0)
	}
	return &clone
}

// LedgerState abstracts the persistence backend the engine reads and writes.
// Implementations must return cloned values; the engine never hands out
// pointers into stored state.
type LedgerState interface {
	EscrowPut(*Escrow) error
	EscrowGet(id uint64) (*Escrow, bool, error)
	UserEscrowAppend(addr common.Address, id uint64) error
	UserEscrows(addr common.Address) ([]uint64, error)
	PendingGet(addr common.Address) (*big.Int, error)
	PendingPut(addr common.Address, amount *big.Int) error
	MetaGet() (*PlatformMeta, error)
	MetaPut(*PlatformMeta) error
}

// PayoutSink receives funds leaving the ledger when a beneficiary withdraws.
// Implementations perform the actual value transfer; the engine zeroes the
// pending balance before invoking the sink so a reentrant call observes an
// empty balance.
type PayoutSink interface {
	Payout(addr common.Address, amount *big.Int) error
}

// NoopSink accepts every payout without moving value. It keeps the engine
// usable when the hosting process handles transfers elsewhere.
type NoopSink struct{}

// Payout implements the PayoutSink interface.
func (NoopSink) Payout(common.Address, *big.Int) error { return nil }
