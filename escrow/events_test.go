package escrow

import (
	"math/big"
	"testing"
)

func testEventEscrow() *Escrow {
	return &Escrow{
		ID:          3,
		Buyer:       buyerAddr,
		Seller:      sellerAddr,
		Arbiter:     arbiterAddr,
		Amount:      big.NewInt(1000),
		ArbiterFee:  big.NewInt(50),
		Description: "rare book",
		Status:      StatusFunded,
		CreatedAt:   1_700_000_000,
	}
}

func TestNewCreatedEvent(t *testing.T) {
	evt := NewCreatedEvent(testEventEscrow())
	if evt.Type != EventTypeEscrowCreated {
		t.Fatalf("unexpected type %q", evt.Type)
	}
	attrs := evt.Attributes
	if attrs["id"] != "3" {
		t.Fatalf("unexpected id attribute %q", attrs["id"])
	}
	if attrs["buyer"] != buyerAddr.Hex() || attrs["seller"] != sellerAddr.Hex() || attrs["arbiter"] != arbiterAddr.Hex() {
		t.Fatalf("unexpected party attributes: %v", attrs)
	}
	if attrs["amount"] != "1000" || attrs["arbiterFee"] != "50" {
		t.Fatalf("unexpected amount attributes: %v", attrs)
	}
	if attrs["description"] != "rare book" {
		t.Fatalf("unexpected description %q", attrs["description"])
	}
	if attrs["status"] != "funded" {
		t.Fatalf("unexpected status %q", attrs["status"])
	}
}

func TestNewCreatedEventNilEscrow(t *testing.T) {
	evt := NewCreatedEvent(nil)
	if evt.Type != EventTypeEscrowCreated {
		t.Fatalf("unexpected type %q", evt.Type)
	}
	if len(evt.Attributes) != 0 {
		t.Fatalf("nil escrow must yield empty attributes: %v", evt.Attributes)
	}
}

func TestNewResolvedEvent(t *testing.T) {
	esc := testEventEscrow()
	esc.Status = StatusRefunded
	evt := NewResolvedEvent(esc, buyerAddr, big.NewInt(950), true)
	if evt.Type != EventTypeDisputeResolved {
		t.Fatalf("unexpected type %q", evt.Type)
	}
	if evt.Attributes["beneficiary"] != buyerAddr.Hex() {
		t.Fatalf("unexpected beneficiary %q", evt.Attributes["beneficiary"])
	}
	if evt.Attributes["amount"] != "950" {
		t.Fatalf("unexpected amount %q", evt.Attributes["amount"])
	}
	if evt.Attributes["favorBuyer"] != "true" {
		t.Fatalf("unexpected favorBuyer %q", evt.Attributes["favorBuyer"])
	}
}

func TestNewWithdrawalEvent(t *testing.T) {
	evt := NewWithdrawalEvent(sellerAddr, big.NewInt(990))
	if evt.Type != EventTypeWithdrawalProcessed {
		t.Fatalf("unexpected type %q", evt.Type)
	}
	if evt.Attributes["address"] != sellerAddr.Hex() || evt.Attributes["amount"] != "990" {
		t.Fatalf("unexpected attributes: %v", evt.Attributes)
	}
}

func TestNewCompletedEvent(t *testing.T) {
	esc := testEventEscrow()
	esc.Status = StatusCompleted
	esc.CompletedAt = 1_700_000_123
	evt := NewCompletedEvent(esc, big.NewInt(990), big.NewInt(10))
	if evt.Attributes["completedAt"] != "1700000123" {
		t.Fatalf("unexpected completedAt %q", evt.Attributes["completedAt"])
	}
	if evt.Attributes["sellerAmount"] != "990" || evt.Attributes["platformFee"] != "10" {
		t.Fatalf("unexpected settlement attributes: %v", evt.Attributes)
	}
}
