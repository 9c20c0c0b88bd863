package escrow

import (
	"math/big"
	"testing"
)

func TestStatusString(t *testing.T) {
	cases := map[Status]string{
		StatusCreated:   "created",
		StatusFunded:    "funded",
		StatusDelivered: "delivered",
		StatusCompleted: "completed",
		StatusDisputed:  "disputed",
		StatusRefunded:  "refunded",
		StatusCancelled: "cancelled",
		Status(99):      "unknown",
	}
	for status, want := range cases {
		if got := status.String(); got != want {
			t.Fatalf("Status(%d).String() = %q, want %q", status, got, want)
		}
	}
}

func TestStatusValid(t *testing.T) {
	for s := StatusCreated; s <= StatusCancelled; s++ {
		if !s.Valid() {
			t.Fatalf("status %s reported invalid", s)
		}
	}
	if Status(7).Valid() {
		t.Fatalf("out-of-range status reported valid")
	}
}

func TestStatusTerminal(t *testing.T) {
	terminal := map[Status]bool{
		StatusCreated:   false,
		StatusFunded:    false,
		StatusDelivered: false,
		StatusCompleted: true,
		StatusDisputed:  false,
		StatusRefunded:  true,
		StatusCancelled: true,
	}
	for status, want := range terminal {
		if got := status.Terminal(); got != want {
			t.Fatalf("Status %s Terminal() = %v, want %v", status, got, want)
		}
	}
}

func TestEscrowClone(t *testing.T) {
	original := &Escrow{
		ID:         7,
		Buyer:      buyerAddr,
		Seller:     sellerAddr,
		Amount:     big.NewInt(100),
		ArbiterFee: big.NewInt(5),
		Status:     StatusFunded,
	}
	clone := original.Clone()
	clone.Amount.SetInt64(999)
	clone.Status = StatusDisputed
	if original.Amount.Int64() != 100 {
		t.Fatalf("clone shares amount with original")
	}
	if original.Status != StatusFunded {
		t.Fatalf("clone shares status with original")
	}

	var nilEscrow *Escrow
	if nilEscrow.Clone() != nil {
		t.Fatalf("nil clone must be nil")
	}

	bare := (&Escrow{}).Clone()
	if bare.Amount == nil || bare.ArbiterFee == nil {
		t.Fatalf("clone must normalise nil amounts")
	}
}

func TestSanitizeEscrow(t *testing.T) {
	if _, err := SanitizeEscrow(nil); err == nil {
		t.Fatalf("nil escrow must be rejected")
	}
	if _, err := SanitizeEscrow(&Escrow{Amount: big.NewInt(-1)}); err == nil {
		t.Fatalf("negative amount must be rejected")
	}
	if _, err := SanitizeEscrow(&Escrow{Status: Status(42)}); err == nil {
		t.Fatalf("invalid status must be rejected")
	}
	sanitized, err := SanitizeEscrow(&Escrow{Status: StatusFunded})
	if err != nil {
		t.Fatalf("sanitize: %v", err)
	}
	if sanitized.Amount == nil || sanitized.Amount.Sign() != 0 {
		t.Fatalf("sanitize must default amount to zero")
	}
}

// The engine must never assign the zero-value sentinel: deposits are
// mandatory, so every record starts funded.
func TestCreatedSentinelUnreachable(t *testing.T) {
	engine, state, _, _ := newTestEngine(t)
	id := mustCreate(t, engine)
	esc, ok, err := state.EscrowGet(id)
	if err != nil || !ok {
		t.Fatalf("stored escrow missing: %v", err)
	}
	if esc.Status == StatusCreated {
		t.Fatalf("new record carries the sentinel status")
	}
}
