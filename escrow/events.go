package escrow

import (
	"math/big"
	"strconv"

	"github.com/ethereum/go-ethereum/common"

	"escrowd/core/events"
)

const (
	EventTypeEscrowCreated       = "escrow.created"
	EventTypeEscrowDelivered     = "escrow.delivered"
	EventTypeEscrowCompleted     = "escrow.completed"
	EventTypeEscrowDisputed      = "escrow.disputed"
	EventTypeDisputeResolved     = "escrow.resolved"
	EventTypeEscrowCancelled     = "escrow.cancelled"
	EventTypeEscrowRefunded      = "escrow.refunded"
	EventTypeWithdrawalProcessed = "escrow.withdrawal"
)

// NewCreatedEvent returns the canonical event payload for a newly created
// escrow. Consumers treat the attributes as the authoritative record of the
// deposit.
func NewCreatedEvent(e *Escrow) *events.Event {
	evt := newEscrowEvent(EventTypeEscrowCreated, e)
	if e == nil {
		return evt
	}
	evt.Attributes["buyer"] = e.Buyer.Hex()
	evt.Attributes["seller"] = e.Seller.Hex()
	evt.Attributes["arbiter"] = e.Arbiter.Hex()
	evt.Attributes["amount"] = bigIntString(e.Amount)
	evt.Attributes["arbiterFee"] = bigIntString(e.ArbiterFee)
	evt.Attributes["description"] = e.Description
	evt.Attributes["createdAt"] = strconv.FormatUint(e.CreatedAt, 10)
	return evt
}

// NewDeliveredEvent returns the event payload emitted when the seller
// confirms delivery.
func NewDeliveredEvent(e *Escrow) *events.Event {
	evt := newEscrowEvent(EventTypeEscrowDelivered, e)
	if e != nil {
		evt.Attributes["seller"] = e.Seller.Hex()
	}
	return evt
}

// NewCompletedEvent returns the event payload emitted when the buyer confirms
// receipt and settlement credits the withdrawal ledger.
func NewCompletedEvent(e *Escrow, sellerAmount, platformFee *big.Int) *events.Event {
	evt := newEscrowEvent(EventTypeEscrowCompleted, e)
	if e != nil {
		evt.Attributes["seller"] = e.Seller.Hex()
		evt.Attributes["completedAt"] = strconv.FormatUint(e.CompletedAt, 10)
	}
	evt.Attributes["sellerAmount"] = bigIntString(sellerAmount)
	evt.Attributes["platformFee"] = bigIntString(platformFee)
	return evt
}

// NewDisputedEvent returns the event payload emitted when a party raises a
// dispute.
func NewDisputedEvent(e *Escrow, raisedBy common.Address) *events.Event {
	evt := newEscrowEvent(EventTypeEscrowDisputed, e)
	evt.Attributes["raisedBy"] = raisedBy.Hex()
	return evt
}

// NewResolvedEvent returns the event payload emitted when the arbiter rules
// on a dispute. The beneficiary is the party the principal payout went to and
// amount is what that party received.
func NewResolvedEvent(e *Escrow, beneficiary common.Address, amount *big.Int, favorBuyer bool) *events.Event {
	evt := newEscrowEvent(EventTypeDisputeResolved, e)
	evt.Attributes["beneficiary"] = beneficiary.Hex()
	evt.Attributes["amount"] = bigIntString(amount)
	evt.Attributes["favorBuyer"] = strconv.FormatBool(favorBuyer)
	return evt
}

// NewCancelledEvent returns the event payload emitted when an escrow is
// cancelled before delivery.
func NewCancelledEvent(e *Escrow, cancelledBy common.Address) *events.Event {
	evt := newEscrowEvent(EventTypeEscrowCancelled, e)
	evt.Attributes["cancelledBy"] = cancelledBy.Hex()
	return evt
}

// NewRefundedEvent returns the event payload emitted whenever deposited funds
// flow back toward the buyer (cancellation or a dispute resolved in the
// buyer's favour).
func NewRefundedEvent(e *Escrow, recipient common.Address, amount *big.Int) *events.Event {
	evt := newEscrowEvent(EventTypeEscrowRefunded, e)
	evt.Attributes["recipient"] = recipient.Hex()
	evt.Attributes["amount"] = bigIntString(amount)
	return evt
}

// NewWithdrawalEvent returns the event payload emitted when a pending balance
// leaves the ledger through the pull-payment path.
func NewWithdrawalEvent(addr common.Address, amount *big.Int) *events.Event {
	return &events.Event{
		Type: EventTypeWithdrawalProcessed,
		Attributes: map[string]string{
			"address": addr.Hex(),
			"amount":  bigIntString(amount),
		},
	}
}

func newEscrowEvent(eventType string, e *Escrow) *events.Event {
	attrs := make(map[string]string)
	if e != nil {
		attrs["id"] = strconv.FormatUint(e.ID, 10)
		attrs["status"] = e.Status.String()
	}
	return &events.Event{Type: eventType, Attributes: attrs}
}

func bigIntString(v *big.Int) string {
	if v == nil {
		return "0"
	}
	return v.String()
}
