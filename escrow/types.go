package escrow

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// Status represents the lifecycle states supported by the escrow ledger.
// StatusCreated is a sentinel that distinguishes a zero-value record from a
// real state; the engine never assigns it because deposits are mandatory and
// every record starts out funded.
type Status uint8

const (
	StatusCreated Status = iota
	StatusFunded
	StatusDelivered
	StatusCompleted
	StatusDisputed
	StatusRefunded
	StatusCancelled
)

const (
	// MaxPlatformFeePercent bounds the owner-adjustable platform fee.
	MaxPlatformFeePercent = 5
	// MaxArbiterFeePercent bounds the arbiter fee relative to the deposit.
	MaxArbiterFeePercent = 10
	// DefaultPlatformFeePercent is the fee applied before the owner ever
	// adjusts it.
	DefaultPlatformFeePercent = 1
)

// Escrow captures a single buyer/seller/arbiter deal tracked by the ledger.
// The identity, amount, fee and description fields are fixed at creation;
// only the status, approval flags and completion timestamp change afterwards.
type Escrow struct {
	ID             uint64
	Buyer          common.Address
	Seller         common.Address
	Arbiter        common.Address
	Amount         *big.Int
	ArbiterFee     *big.Int
	Description    string
	Status         Status
	BuyerApproved  bool
	SellerApproved bool
	CreatedAt      uint64
	CompletedAt    uint64
}

// Clone returns a deep copy of the escrow so callers can safely mutate the
// copy without affecting the stored instance.
func (e *Escrow) Clone() *Escrow {
	if e == nil {
		return nil
	}
	clone := *e
	if e.Amount != nil {
		clone.Amount = new(big.Int).Set(e.Amount)
	} else {
		clone.Amount = big.NewInt(0)
	}
	if e.ArbiterFee != nil {
		clone.ArbiterFee = new(big.Int).Set(e.ArbiterFee)
	} else {
		clone.ArbiterFee = big.NewInt(0)
	}
	return &clone
}

// Valid reports whether the status value is within the supported range.
func (s Status) Valid() bool {
	return s <= StatusCancelled
}

// Terminal reports whether no further transition may leave the status.
func (s Status) Terminal() bool {
	switch s {
	case StatusCompleted, StatusRefunded, StatusCancelled:
		return true
	default:
		return false
	}
}

// String returns the canonical lowercase display form of the status.
func (s Status) String() string {
	switch s {
	case StatusCreated:
		return "created"
	case StatusFunded:
		return "funded"
	case StatusDelivered:
		return "delivered"
	case StatusCompleted:
		return "completed"
	case StatusDisputed:
		return "disputed"
	case StatusRefunded:
		return "refunded"
	case StatusCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// SanitizeEscrow validates the supplied record and returns a cloned instance
// with non-nil amount fields. The function does not mutate the original
// value.
func SanitizeEscrow(e *Escrow) (*Escrow, error) {
	if e == nil {
		return nil, fmt.Errorf("nil escrow")
	}
	clone := e.Clone()
	if clone.Amount.Sign() < 0 {
		return nil, fmt.Errorf("escrow amount must be non-negative")
	}
	if clone.ArbiterFee.Sign() < 0 {
		return nil, fmt.Errorf("escrow arbiter fee must be non-negative")
	}
	if !clone.Status.Valid() {
		return nil, fmt.Errorf("invalid escrow status: %d", clone.Status)
	}
	return clone, nil
}
