package escrow

import (
	"errors"
	"fmt"
	"math/big"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"escrowd/core/events"
)

var errNilState = errors.New("escrow engine: state not configured")

// Engine wires the escrow ledger business logic with external state, payout
// and event emission. Every operation serializes behind a single mutex so the
// ledger behaves as if it had one writer; no call may observe a partially
// applied effect of another.
type Engine struct {
	mu      sync.Mutex
	state   LedgerState
	emitter events.Emitter
	sink    PayoutSink
	owner   common.Address
	nowFn   func() int64
}

// NewEngine creates an escrow engine owned by the supplied platform address.
// The owner collects platform fees and is the only identity allowed to adjust
// the fee percentage. Callers configure state, sink and emitter before use.
func NewEngine(owner common.Address) *Engine {
	return &Engine{
		emitter: events.NoopEmitter{},
		sink:    NoopSink{},
		owner:   owner,
		nowFn:   func() int64 { return time.Now().Unix() },
	}
}

// SetState configures the persistence backend used by the engine.
func (e *Engine) SetState(state LedgerState) { e.state = state }

// SetPayoutSink configures the external transfer hook invoked on withdrawal.
// Passing nil resets the sink to a no-op implementation.
func (e *Engine) SetPayoutSink(sink PayoutSink) {
	if sink == nil {
		e.sink = NoopSink{}
		return
	}
	e.sink = sink
}

// SetEmitter configures the event emitter used by the engine. Passing nil
// resets the emitter to a no-op implementation.
func (e *Engine) SetEmitter(emitter events.Emitter) {
	if emitter == nil {
		e.emitter = events.NoopEmitter{}
		return
	}
	e.emitter = emitter
}

// SetNowFunc overrides the time source used by the engine. Primarily intended
// for tests to provide deterministic timestamps.
func (e *Engine) SetNowFunc(now func() int64) {
	if now == nil {
		e.nowFn = func() int64 { return time.Now().Unix() }
		return
	}
	e.nowFn = now
}

// Owner returns the platform fee owner configured at construction.
func (e *Engine) Owner() common.Address { return e.owner }

func (e *Engine) emit(event *events.Event) {
	if e == nil || e.emitter == nil || event == nil {
		return
	}
	e.emitter.Emit(event)
}

func (e *Engine) now() int64 {
	if e == nil || e.nowFn == nil {
		return time.Now().Unix()
	}
	return e.nowFn()
}

func (e *Engine) meta() (*PlatformMeta, error) {
	meta, err := e.state.MetaGet()
	if err != nil {
		return nil, err
	}
	if meta == nil {
		return &PlatformMeta{
			TotalVolume:        big.NewInt(0),
			PlatformFeePercent: DefaultPlatformFeePercent,
		}, nil
	}
	if meta.TotalVolume == nil {
		meta.TotalVolume = big.NewInt(0)
	}
	return meta, nil
}

func (e *Engine) loadEscrow(id uint64) (*Escrow, error) {
	esc, ok, err := e.state.EscrowGet(id)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrNotFound
	}
	return esc, nil
}

func (e *Engine) credit(addr common.Address, amount *big.Int) error {
	if amount == nil || amount.Sign() == 0 {
		return nil
	}
	pending, err := e.state.PendingGet(addr)
	if err != nil {
		return err
	}
	if pending == nil {
		pending = big.NewInt(0)
	}
	return e.state.PendingPut(addr, new(big.Int).Add(pending, amount))
}

// Create validates and persists a new escrow funded by the buyer's deposit.
// Records start at StatusFunded because the deposit is mandatory; the
// StatusCreated sentinel is never assigned. Returns the new identifier.
func (e *Engine) Create(buyer, seller, arbiter common.Address, arbiterFee *big.Int, description string, amount *big.Int) (uint64, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state == nil {
		return 0, errNilState
	}
	amt := cloneBigInt(amount)
	if amt.Sign() <= 0 {
		return 0, fmt.Errorf("%w: amount must be positive", ErrInvalidInput)
	}
	if buyer == (common.Address{}) {
		return 0, fmt.Errorf("%w: invalid buyer", ErrInvalidInput)
	}
	if seller == (common.Address{}) {
		return 0, fmt.Errorf("%w: invalid seller", ErrInvalidInput)
	}
	if buyer == seller {
		return 0, fmt.Errorf("%w: buyer and seller cannot be the same", ErrInvalidInput)
	}
	fee := cloneBigInt(arbiterFee)
	if fee.Sign() < 0 {
		return 0, fmt.Errorf("%w: invalid arbiter fee", ErrInvalidInput)
	}
	if fee.Cmp(MaxArbiterFee(amt)) > 0 {
		return 0, fmt.Errorf("%w: arbiter fee too high", ErrInvalidInput)
	}
	meta, err := e.meta()
	if err != nil {
		return 0, err
	}
	esc := &Escrow{
		ID:          meta.EscrowCounter,
		Buyer:       buyer,
		Seller:      seller,
		Arbiter:     arbiter,
		Amount:      amt,
		ArbiterFee:  fee,
		Description: description,
		Status:      StatusFunded,
		CreatedAt:   uint64(e.now()),
	}
	if err := e.state.EscrowPut(esc); err != nil {
		return 0, err
	}
	if err := e.state.UserEscrowAppend(buyer, esc.ID); err != nil {
		return 0, err
	}
	if err := e.state.UserEscrowAppend(seller, esc.ID); err != nil {
		return 0, err
	}
	meta.EscrowCounter++
	meta.TotalVolume = new(big.Int).Add(meta.TotalVolume, amt)
	if err := e.state.MetaPut(meta); err != nil {
		return 0, err
	}
	e.emit(NewCreatedEvent(esc))
	return esc.ID, nil
}

// ConfirmDelivery marks the escrow as delivered. Only the seller may confirm
// and only while the escrow is funded.
func (e *Engine) ConfirmDelivery(id uint64, caller common.Address) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state == nil {
		return errNilState
	}
	esc, err := e.loadEscrow(id)
	if err != nil {
		return err
	}
	if caller != esc.Seller {
		return fmt.Errorf("%w: only seller can confirm delivery", ErrUnauthorized)
	}
	if esc.Status != StatusFunded {
		return fmt.Errorf("%w: cannot confirm delivery in status %s", ErrInvalidState, esc.Status)
	}
	esc.SellerApproved = true
	esc.Status = StatusDelivered
	if err := e.state.EscrowPut(esc); err != nil {
		return err
	}
	e.emit(NewDeliveredEvent(esc))
	return nil
}

// ConfirmReceipt completes the escrow. Only the buyer may confirm and only
// after delivery. Settlement splits the deposit into the seller payout and
// the platform fee, both credited to the withdrawal ledger rather than
// transferred inline.
func (e *Engine) ConfirmReceipt(id uint64, caller common.Address) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state == nil {
		return errNilState
	}
	esc, err := e.loadEscrow(id)
	if err != nil {
		return err
	}
	if caller != esc.Buyer {
		return fmt.Errorf("%w: only buyer can confirm receipt", ErrUnauthorized)
	}
	if esc.Status != StatusDelivered {
		return fmt.Errorf("%w: cannot confirm receipt in status %s", ErrInvalidState, esc.Status)
	}
	meta, err := e.meta()
	if err != nil {
		return err
	}
	payout, platformFee := SplitFee(esc.Amount, meta.PlatformFeePercent)
	if err := e.credit(esc.Seller, payout); err != nil {
		return err
	}
	if err := e.credit(e.owner, platformFee); err != nil {
		return err
	}
	esc.BuyerApproved = true
	esc.Status = StatusCompleted
	esc.CompletedAt = uint64(e.now())
	if err := e.state.EscrowPut(esc); err != nil {
		return err
	}
	e.emit(NewCompletedEvent(esc, payout, platformFee))
	return nil
}

// RaiseDispute flags the escrow as disputed. Either trading party may raise a
// dispute before completion; no funds move until the arbiter rules.
func (e *Engine) RaiseDispute(id uint64, caller common.Address) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state == nil {
		return errNilState
	}
	esc, err := e.loadEscrow(id)
	if err != nil {
		return err
	}
	if caller != esc.Buyer && caller != esc.Seller {
		return fmt.Errorf("%w: only buyer or seller can raise dispute", ErrUnauthorized)
	}
	if esc.Status != StatusFunded && esc.Status != StatusDelivered {
		return fmt.Errorf("%w: cannot raise dispute in status %s", ErrInvalidState, esc.Status)
	}
	esc.Status = StatusDisputed
	if err := e.state.EscrowPut(esc); err != nil {
		return err
	}
	e.emit(NewDisputedEvent(esc, caller))
	return nil
}

// ResolveDispute settles a disputed escrow according to the arbiter's ruling.
// The arbiter fee is paid out in both outcomes; arbitration is compensated
// regardless of who prevails. Favouring the buyer refunds the remainder of
// the deposit; favouring the seller settles the remainder through the
// platform fee split.
func (e *Engine) ResolveDispute(id uint64, caller common.Address, favorBuyer bool) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state == nil {
		return errNilState
	}
	esc, err := e.loadEscrow(id)
	if err != nil {
		return err
	}
	if caller != esc.Arbiter {
		return fmt.Errorf("%w: only arbiter can resolve dispute", ErrUnauthorized)
	}
	if esc.Status != StatusDisputed {
		return fmt.Errorf("%w: cannot resolve dispute in status %s", ErrInvalidState, esc.Status)
	}
	net := new(big.Int).Sub(esc.Amount, esc.ArbiterFee)
	if favorBuyer {
		if err := e.credit(esc.Buyer, net); err != nil {
			return err
		}
		if err := e.credit(esc.Arbiter, esc.ArbiterFee); err != nil {
			return err
		}
		esc.Status = StatusRefunded
		if err := e.state.EscrowPut(esc); err != nil {
			return err
		}
		e.emit(NewResolvedEvent(esc, esc.Buyer, net, true))
		e.emit(NewRefundedEvent(esc, esc.Buyer, net))
		return nil
	}
	meta, err := e.meta()
	if err != nil {
		return err
	}
	payout, platformFee := SplitFee(net, meta.PlatformFeePercent)
	if err := e.credit(esc.Seller, payout); err != nil {
		return err
	}
	if err := e.credit(e.owner, platformFee); err != nil {
		return err
	}
	if err := e.credit(esc.Arbiter, esc.ArbiterFee); err != nil {
		return err
	}
	esc.Status = StatusCompleted
	esc.CompletedAt = uint64(e.now())
	if err := e.state.EscrowPut(esc); err != nil {
		return err
	}
	e.emit(NewResolvedEvent(esc, esc.Seller, payout, false))
	return nil
}

// Cancel aborts a funded escrow before delivery is confirmed. Either trading
// party may cancel; the full deposit flows back to the buyer with no platform
// or arbiter fee deducted.
func (e *Engine) Cancel(id uint64, caller common.Address) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state == nil {
		return errNilState
	}
	esc, err := e.loadEscrow(id)
	if err != nil {
		return err
	}
	if caller != esc.Buyer && caller != esc.Seller {
		return fmt.Errorf("%w: only buyer or seller can cancel", ErrUnauthorized)
	}
	if esc.Status != StatusFunded {
		return fmt.Errorf("%w: cannot cancel in status %s", ErrInvalidState, esc.Status)
	}
	if err := e.credit(esc.Buyer, esc.Amount); err != nil {
		return err
	}
	esc.Status = StatusCancelled
	if err := e.state.EscrowPut(esc); err != nil {
		return err
	}
	e.emit(NewCancelledEvent(esc, caller))
	e.emit(NewRefundedEvent(esc, esc.Buyer, esc.Amount))
	return nil
}

// Withdraw transfers the caller's entire pending balance out of the ledger
// and reports the amount moved. The balance is zeroed before the payout sink
// runs; a reentrant call therefore sees zero and fails with ErrNoFunds
// instead of double spending. If the sink fails the balance is restored and
// the error returned, leaving the ledger unchanged.
func (e *Engine) Withdraw(caller common.Address) (*big.Int, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state == nil {
		return nil, errNilState
	}
	pending, err := e.state.PendingGet(caller)
	if err != nil {
		return nil, err
	}
	if pending == nil || pending.Sign() == 0 {
		return nil, ErrNoFunds
	}
	amount := cloneBigInt(pending)
	if err := e.state.PendingPut(caller, big.NewInt(0)); err != nil {
		return nil, err
	}
	if err := e.sink.Payout(caller, cloneBigInt(amount)); err != nil {
		if restoreErr := e.state.PendingPut(caller, amount); restoreErr != nil {
			return nil, fmt.Errorf("payout failed (%v) and balance restore failed: %w", err, restoreErr)
		}
		return nil, err
	}
	e.emit(NewWithdrawalEvent(caller, amount))
	return amount, nil
}

// Get returns a clone of the escrow record for the supplied identifier.
func (e *Engine) Get(id uint64) (*Escrow, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state == nil {
		return nil, errNilState
	}
	return e.loadEscrow(id)
}

// UserEscrows returns the identifiers of every escrow the address
// participates in as buyer or seller, in insertion order.
func (e *Engine) UserEscrows(addr common.Address) ([]uint64, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state == nil {
		return nil, errNilState
	}
	return e.state.UserEscrows(addr)
}

// PendingWithdrawal returns the address's current pending balance.
func (e *Engine) PendingWithdrawal(addr common.Address) (*big.Int, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state == nil {
		return nil, errNilState
	}
	pending, err := e.state.PendingGet(addr)
	if err != nil {
		return nil, err
	}
	if pending == nil {
		return big.NewInt(0), nil
	}
	return cloneBigInt(pending), nil
}

// UpdatePlatformFee adjusts the platform fee percentage. Only the owner may
// call it and the new value is bounded by MaxPlatformFeePercent.
func (e *Engine) UpdatePlatformFee(caller common.Address, percent uint64) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state == nil {
		return errNilState
	}
	if caller != e.owner {
		return fmt.Errorf("%w: not the owner", ErrUnauthorized)
	}
	if percent > MaxPlatformFeePercent {
		return fmt.Errorf("%w: fee too high", ErrInvalidInput)
	}
	meta, err := e.meta()
	if err != nil {
		return err
	}
	meta.PlatformFeePercent = percent
	return e.state.MetaPut(meta)
}

// PlatformStats returns a read-only snapshot of the escrow counter, total
// volume and current fee percentage.
func (e *Engine) PlatformStats() (*PlatformMeta, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state == nil {
		return nil, errNilState
	}
	meta, err := e.meta()
	if err != nil {
		return nil, err
	}
	return meta.Clone(), nil
}
