package escrow

import (
	"encoding/binary"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/rlp"

	"escrowd/storage"
)

var metaKey = []byte("escrow/meta")

func escrowKey(id uint64) []byte {
	key := make([]byte, 0, len("escrow/record/")+8)
	key = append(key, "escrow/record/"...)
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], id)
	return append(key, buf[:]...)
}

func userKey(addr common.Address) []byte {
	return append([]byte("escrow/user/"), addr.Bytes()...)
}

func pendingKey(addr common.Address) []byte {
	return append([]byte("escrow/pending/"), addr.Bytes()...)
}

// StoreState persists the escrow ledger in a key-value database. Records,
// per-user indexes, pending balances and the platform meta row are RLP
// encoded under distinct key prefixes. It implements LedgerState.
type StoreState struct {
	db storage.Database
}

// NewStoreState wraps the supplied database as ledger state.
func NewStoreState(db storage.Database) *StoreState {
	return &StoreState{db: db}
}

// EscrowPut validates and stores the escrow record under its identifier.
func (s *StoreState) EscrowPut(esc *Escrow) error {
	sanitized, err := SanitizeEscrow(esc)
	if err != nil {
		return err
	}
	encoded, err := rlp.EncodeToBytes(sanitized)
	if err != nil {
		return fmt.Errorf("encode escrow %d: %w", sanitized.ID, err)
	}
	return s.db.Put(escrowKey(sanitized.ID), encoded)
}

// EscrowGet loads the escrow record stored under the identifier, reporting
// whether it exists.
func (s *StoreState) EscrowGet(id uint64) (*Escrow, bool, error) {
	key := escrowKey(id)
	ok, err := s.db.Has(key)
	if err != nil {
		return nil, false, err
	}
	if !ok {
		return nil, false, nil
	}
	raw, err := s.db.Get(key)
	if err != nil {
		return nil, false, err
	}
	esc := new(Escrow)
	if err := rlp.DecodeBytes(raw, esc); err != nil {
		return nil, false, fmt.Errorf("decode escrow %d: %w", id, err)
	}
	return esc, true, nil
}

// UserEscrowAppend appends the identifier to the address's index list. The
// list is append-only and preserves insertion order.
func (s *StoreState) UserEscrowAppend(addr common.Address, id uint64) error {
	ids, err := s.UserEscrows(addr)
	if err != nil {
		return err
	}
	encoded, err := rlp.EncodeToBytes(append(ids, id))
	if err != nil {
		return fmt.Errorf("encode user index: %w", err)
	}
	return s.db.Put(userKey(addr), encoded)
}

// UserEscrows returns the identifiers indexed for the address, oldest first.
func (s *StoreState) UserEscrows(addr common.Address) ([]uint64, error) {
	key := userKey(addr)
	ok, err := s.db.Has(key)
	if err != nil {
		return nil, err
	}
	if !ok {
		return []uint64{}, nil
	}
	raw, err := s.db.Get(key)
	if err != nil {
		return nil, err
	}
	var ids []uint64
	if err := rlp.DecodeBytes(raw, &ids); err != nil {
		return nil, fmt.Errorf("decode user index: %w", err)
	}
	return ids, nil
}

// PendingGet returns the address's pending withdrawal balance, zero when the
// address has never been credited.
func (s *StoreState) PendingGet(addr common.Address) (*big.Int, error) {
	key := pendingKey(addr)
	ok, err := s.db.Has(key)
	if err != nil {
		return nil, err
	}
	if !ok {
		return big.NewInt(0), nil
	}
	raw, err := s.db.Get(key)
	if err != nil {
		return nil, err
	}
	pending := new(big.Int)
	if err := rlp.DecodeBytes(raw, pending); err != nil {
		return nil, fmt.Errorf("decode pending balance: %w", err)
	}
	return pending, nil
}

// PendingPut stores the address's pending withdrawal balance.
func (s *StoreState) PendingPut(addr common.Address, amount *big.Int) error {
	if amount == nil {
		amount = big.NewInt(0)
	}
	if amount.Sign() < 0 {
		return fmt.Errorf("pending balance must be non-negative")
	}
	encoded, err := rlp.EncodeToBytes(amount)
	if err != nil {
		return fmt.Errorf("encode pending balance: %w", err)
	}
	return s.db.Put(pendingKey(addr), encoded)
}

// MetaGet loads the platform meta row, returning nil when no escrow has ever
// been created.
func (s *StoreState) MetaGet() (*PlatformMeta, error) {
	ok, err := s.db.Has(metaKey)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, nil
	}
	raw, err := s.db.Get(metaKey)
	if err != nil {
		return nil, err
	}
	meta := new(PlatformMeta)
	if err := rlp.DecodeBytes(raw, meta); err != nil {
		return nil, fmt.Errorf("decode platform meta: %w", err)
	}
	return meta, nil
}

// MetaPut stores the platform meta row.
func (s *StoreState) MetaPut(meta *PlatformMeta) error {
	if meta == nil {
		return fmt.Errorf("nil platform meta")
	}
	clone := meta.Clone()
	encoded, err := rlp.EncodeToBytes(clone)
	if err != nil {
		return fmt.Errorf("encode platform meta: %w", err)
	}
	return s.db.Put(metaKey, encoded)
}
