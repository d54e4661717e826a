// Package memory provides an in-memory implementation of the storage
// contracts. It backs engine-level tests and seed dry-runs with the same
// observable semantics as the postgres implementation: a store-wide
// mutex linearizes transactions and a snapshot/restore pair gives
// rollback on error.
package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"almacen/internal/core/entity"
	"almacen/internal/core/id"
	"almacen/internal/domain/allocation"
	"almacen/internal/domain/catalogs/depot"
	"almacen/internal/domain/catalogs/item"
	"almacen/internal/domain/catalogs/partner"
	"almacen/internal/domain/inbound"
	"almacen/internal/domain/lot"
	"almacen/internal/domain/outbound"
)

// Store holds all tables. Zero value is not usable; call NewStore.
type Store struct {
	mu sync.Mutex

	balances map[entity.StockKey]entity.StockBalance
	entries  []entity.LedgerEntry

	items     map[id.ID]*item.Item
	depots    map[id.ID]*depot.Depot
	positions map[id.ID]*depot.Position
	partners  map[id.ID]*partner.Partner
	lots      map[id.ID]*lot.Lot

	shipments     map[id.ID]*outbound.Shipment
	shipmentLines map[id.ID][]outbound.ShipmentLine
	receipts      map[id.ID]*inbound.Receipt
	receiptLines  map[id.ID][]inbound.ReceiptLine
	plans         map[id.ID]*allocation.Plan

	sequences map[string]int64
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{
		balances:      make(map[entity.StockKey]entity.StockBalance),
		items:         make(map[id.ID]*item.Item),
		depots:        make(map[id.ID]*depot.Depot),
		positions:     make(map[id.ID]*depot.Position),
		partners:      make(map[id.ID]*partner.Partner),
		lots:          make(map[id.ID]*lot.Lot),
		shipments:     make(map[id.ID]*outbound.Shipment),
		shipmentLines: make(map[id.ID][]outbound.ShipmentLine),
		receipts:      make(map[id.ID]*inbound.Receipt),
		receiptLines:  make(map[id.ID][]inbound.ReceiptLine),
		plans:         make(map[id.ID]*allocation.Plan),
		sequences:     make(map[string]int64),
	}
}

type txKey struct{}

func txActive(ctx context.Context) bool {
	v, _ := ctx.Value(txKey{}).(bool)
	return v
}

// locked runs fn under the store mutex unless the context already carries
// a transaction (the transaction holds the mutex for its whole span).
func (s *Store) locked(ctx context.Context, fn func() error) error {
	if !txActive(ctx) {
		s.mu.Lock()
		defer s.mu.Unlock()
	}
	return fn()
}

type snapshot struct {
	balances map[entity.StockKey]entity.StockBalance
	entries  []entity.LedgerEntry

	items     map[id.ID]*item.Item
	depots    map[id.ID]*depot.Depot
	positions map[id.ID]*depot.Position
	partners  map[id.ID]*partner.Partner
	lots      map[id.ID]*lot.Lot

	shipments     map[id.ID]*outbound.Shipment
	shipmentLines map[id.ID][]outbound.ShipmentLine
	receipts      map[id.ID]*inbound.Receipt
	receiptLines  map[id.ID][]inbound.ReceiptLine
	plans         map[id.ID]*allocation.Plan

	sequences map[string]int64
}

// Writers always replace pointers (clone-on-write), so copying the maps
// is enough to make a consistent snapshot.
func (s *Store) snapshot() snapshot {
	return snapshot{
		balances:      copyMap(s.balances),
		entries:       append([]entity.LedgerEntry(nil), s.entries...),
		items:         copyMap(s.items),
		depots:        copyMap(s.depots),
		positions:     copyMap(s.positions),
		partners:      copyMap(s.partners),
		lots:          copyMap(s.lots),
		shipments:     copyMap(s.shipments),
		shipmentLines: copyLines(s.shipmentLines),
		receipts:      copyMap(s.receipts),
		receiptLines:  copyLines(s.receiptLines),
		plans:         copyMap(s.plans),
		sequences:     copyMap(s.sequences),
	}
}

func (s *Store) restore(snap snapshot) {
	s.balances = snap.balances
	s.entries = snap.entries
	s.items = snap.items
	s.depots = snap.depots
	s.positions = snap.positions
	s.partners = snap.partners
	s.lots = snap.lots
	s.shipments = snap.shipments
	s.shipmentLines = snap.shipmentLines
	s.receipts = snap.receipts
	s.receiptLines = snap.receiptLines
	s.plans = snap.plans
	s.sequences = snap.sequences
}

func copyMap[K comparable, V any](m map[K]V) map[K]V {
	out := make(map[K]V, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func copyLines[V any](m map[id.ID][]V) map[id.ID][]V {
	out := make(map[id.ID][]V, len(m))
	for k, v := range m {
		out[k] = append([]V(nil), v...)
	}
	return out
}

// TxManager implements tx.Manager over the store.
type TxManager struct {
	store *Store
}

// NewTxManager creates a transaction manager for the store.
func NewTxManager(store *Store) *TxManager {
	return &TxManager{store: store}
}

// RunInTransaction serializes fn against all other store access and
// restores the pre-transaction state when fn fails. Nested calls join
// the enclosing transaction.
func (m *TxManager) RunInTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if txActive(ctx) {
		return fn(ctx)
	}

	m.store.mu.Lock()
	defer m.store.mu.Unlock()

	snap := m.store.snapshot()
	if err := fn(context.WithValue(ctx, txKey{}, true)); err != nil {
		m.store.restore(snap)
		return err
	}
	return nil
}

// ReadOnly runs fn under the mutex without snapshotting.
func (m *TxManager) ReadOnly(ctx context.Context, fn func(ctx context.Context) error) error {
	if txActive(ctx) {
		return fn(ctx)
	}
	m.store.mu.Lock()
	defer m.store.mu.Unlock()
	return fn(context.WithValue(ctx, txKey{}, true))
}

// Numerator issues document numbers from per-prefix counters.
type Numerator struct {
	store *Store
}

// NewNumerator creates a number generator over the store.
func NewNumerator(store *Store) *Numerator {
	return &Numerator{store: store}
}

// Next returns the next number formatted PREFIX-YEAR-NNNNNN.
func (n *Numerator) Next(ctx context.Context, prefix string) (string, error) {
	var number string
	err := n.store.locked(ctx, func() error {
		year := time.Now().UTC().Year()
		seqKey := fmt.Sprintf("%s-%d", prefix, year)
		n.store.sequences[seqKey]++
		number = fmt.Sprintf("%s-%d-%06d", prefix, year, n.store.sequences[seqKey])
		return nil
	})
	return number, err
}
