package storage

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/aaronpeter20/InventoryManagementSystem/internal/core/domain"
	"github.com/aaronpeter20/InventoryManagementSystem/internal/port"
)

var (
	_ port.DatabaseRepository = (*MemoryStore)(nil)
	_ port.IdempotencyStore   = (*MemoryStore)(nil)
)

// MemoryStore keeps every record in process memory. One mutex guards all
// maps, so each method is atomic on its own. Records are copied in and out.
type MemoryStore struct {
	mu             sync.RWMutex
	items          map[string]domain.Item
	suppliers      map[string]domain.Supplier
	users          map[string]domain.User
	orders         map[string]domain.Order
	replenishments map[string]domain.Replenishment
	idempotency    map[string]struct{}
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		items:          make(map[string]domain.Item),
		suppliers:      make(map[string]domain.Supplier),
		users:          make(map[string]domain.User),
		orders:         make(map[string]domain.Order),
		replenishments: make(map[string]domain.Replenishment),
		idempotency:    make(map[string]struct{}),
	}
}

func (s *MemoryStore) GetItem(_ context.Context, id string) (*domain.Item, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	item, ok := s.items[id]
	if !ok {
		return nil, nil
	}
	return &item, nil
}

func (s *MemoryStore) ListItems(_ context.Context) ([]domain.Item, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	items := make([]domain.Item, 0, len(s.items))
	for _, item := range s.items {
		items = append(items, item)
	}
	sort.Slice(items, func(i, j int) bool { return items[i].CreatedAt.After(items[j].CreatedAt) })
	return items, nil
}

func (s *MemoryStore) CreateItem(_ context.Context, item domain.Item) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.items[item.ID]; ok {
		return port.ErrDuplicateKey
	}
	s.items[item.ID] = item
	return nil
}

func (s *MemoryStore) UpdateItem(_ context.Context, item domain.Item) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.items[item.ID]; !ok {
		return port.ErrRecordNotFound
	}
	s.items[item.ID] = item
	return nil
}

func (s *MemoryStore) DeleteItem(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.items[id]; !ok {
		return port.ErrRecordNotFound
	}
	delete(s.items, id)
	return nil
}

func (s *MemoryStore) GetSupplier(_ context.Context, id string) (*domain.Supplier, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sup, ok := s.suppliers[id]
	if !ok {
		return nil, nil
	}
	return &sup, nil
}

func (s *MemoryStore) ListSuppliers(_ context.Context) ([]domain.Supplier, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	list := make([]domain.Supplier, 0, len(s.suppliers))
	for _, sup := range s.suppliers {
		list = append(list, sup)
	}
	sort.Slice(list, func(i, j int) bool { return list[i].CreatedAt.After(list[j].CreatedAt) })
	return list, nil
}

func (s *MemoryStore) CreateSupplier(_ context.Context, sup domain.Supplier) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.suppliers[sup.ID]; ok {
		return port.ErrDuplicateKey
	}
	s.suppliers[sup.ID] = sup
	return nil
}

func (s *MemoryStore) UpdateSupplier(_ context.Context, sup domain.Supplier) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.suppliers[sup.ID]; !ok {
		return port.ErrRecordNotFound
	}
	s.suppliers[sup.ID] = sup
	return nil
}

func (s *MemoryStore) DeleteSupplier(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.suppliers[id]; !ok {
		return port.ErrRecordNotFound
	}
	delete(s.suppliers, id)
	return nil
}

func (s *MemoryStore) GetUser(_ context.Context, id string) (*domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[id]
	if !ok {
		return nil, nil
	}
	return &u, nil
}

func (s *MemoryStore) GetUserByEmail(_ context.Context, email string) (*domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, u := range s.users {
		if strings.EqualFold(u.Email, email) {
			return &u, nil
		}
	}
	return nil, nil
}

func (s *MemoryStore) ListUsers(_ context.Context) ([]domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	list := make([]domain.User, 0, len(s.users))
	for _, u := range s.users {
		list = append(list, u)
	}
	sort.Slice(list, func(i, j int) bool { return list[i].CreatedAt.After(list[j].CreatedAt) })
	return list, nil
}

func (s *MemoryStore) CreateUser(_ context.Context, u domain.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[u.ID]; ok {
		return port.ErrDuplicateKey
	}
	if s.emailTaken(u.Email, u.ID) {
		return port.ErrDuplicateKey
	}
	s.users[u.ID] = u
	return nil
}

func (s *MemoryStore) UpdateUser(_ context.Context, u domain.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[u.ID]; !ok {
		return port.ErrRecordNotFound
	}
	if s.emailTaken(u.Email, u.ID) {
		return port.ErrDuplicateKey
	}
	s.users[u.ID] = u
	return nil
}

func (s *MemoryStore) DeleteUser(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[id]; !ok {
		return port.ErrRecordNotFound
	}
	delete(s.users, id)
	return nil
}

// emailTaken must be called with mu held.
func (s *MemoryStore) emailTaken(email, exceptID string) bool {
	for id, u := range s.users {
		if id != exceptID && strings.EqualFold(u.Email, email) {
			return true
		}
	}
	return false
}

func (s *MemoryStore) GetOrder(_ context.Context, id string) (*domain.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	o, ok := s.orders[id]
	if !ok {
		return nil, nil
	}
	return &o, nil
}

func (s *MemoryStore) ListOrders(_ context.Context) ([]domain.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	list := make([]domain.Order, 0, len(s.orders))
	for _, o := range s.orders {
		list = append(list, o)
	}
	sort.Slice(list, func(i, j int) bool { return list[i].CreatedAt.After(list[j].CreatedAt) })
	return list, nil
}

func (s *MemoryStore) CreateOrder(_ context.Context, o domain.Order) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.orders[o.ID]; ok {
		return port.ErrDuplicateKey
	}
	s.orders[o.ID] = o
	return nil
}

func (s *MemoryStore) DeleteOrder(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.orders[id]; !ok {
		return port.ErrRecordNotFound
	}
	delete(s.orders, id)
	return nil
}

func (s *MemoryStore) RejectOrder(_ context.Context, orderID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.orders[orderID]
	if !ok {
		return port.ErrRecordNotFound
	}
	if o.Status != domain.OrderStatusPending {
		return port.ErrStatusConflict
	}
	o.Status = domain.OrderStatusRejected
	s.orders[orderID] = o
	return nil
}

func (s *MemoryStore) ApproveOrder(_ context.Context, order domain.Order) (*domain.Item, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	item, ok := s.items[order.ItemID]
	if !ok {
		return nil, port.ErrRecordNotFound
	}
	o, ok := s.orders[order.ID]
	if !ok {
		return nil, port.ErrRecordNotFound
	}
	if o.Status != domain.OrderStatusPending {
		return nil, port.ErrStatusConflict
	}
	if item.Quantity < o.Quantity {
		return nil, port.ErrStockConflict
	}

	o.Status = domain.OrderStatusApproved
	item.Quantity -= o.Quantity
	s.orders[o.ID] = o
	s.items[item.ID] = item
	return &item, nil
}

func (s *MemoryStore) GetReplenishment(_ context.Context, id string) (*domain.Replenishment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.replenishments[id]
	if !ok {
		return nil, nil
	}
	return &r, nil
}

func (s *MemoryStore) ListReplenishments(_ context.Context) ([]domain.Replenishment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	list := make([]domain.Replenishment, 0, len(s.replenishments))
	for _, r := range s.replenishments {
		list = append(list, r)
	}
	sort.Slice(list, func(i, j int) bool { return list[i].CreatedAt.After(list[j].CreatedAt) })
	return list, nil
}

func (s *MemoryStore) CreateReplenishment(_ context.Context, r domain.Replenishment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.replenishments[r.ID]; ok {
		return port.ErrDuplicateKey
	}
	s.replenishments[r.ID] = r
	return nil
}

func (s *MemoryStore) ApproveReplenishment(_ context.Context, r domain.Replenishment) (*domain.Item, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	item, ok := s.items[r.ItemID]
	if !ok {
		return nil, port.ErrRecordNotFound
	}
	current, ok := s.replenishments[r.ID]
	if !ok {
		return nil, port.ErrRecordNotFound
	}
	if current.Status != domain.ReplenishmentStatusPending {
		return nil, port.ErrStatusConflict
	}

	current.Status = domain.ReplenishmentStatusApproved
	item.Quantity += current.Quantity
	s.replenishments[current.ID] = current
	s.items[item.ID] = item
	return &item, nil
}

func (s *MemoryStore) MarkReplenishmentPaid(_ context.Context, id string, from ...domain.ReplenishmentStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.replenishments[id]
	if !ok {
		return port.ErrRecordNotFound
	}
	for _, status := range from {
		if r.Status == status {
			r.Status = domain.ReplenishmentStatusPaid
			s.replenishments[id] = r
			return nil
		}
	}
	return port.ErrStatusConflict
}

func (s *MemoryStore) CountRecords(_ context.Context) (domain.Metrics, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return domain.Metrics{
		InventoryCount: len(s.items),
		SupplierCount:  len(s.suppliers),
		OrderCount:     len(s.orders),
	}, nil
}

// SetIdempotency keys never expire in memory.
func (s *MemoryStore) SetIdempotency(_ context.Context, key string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.idempotency[key]; ok {
		return false, nil
	}
	s.idempotency[key] = struct{}{}
	return true, nil
}

func (s *MemoryStore) DeleteIdempotency(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.idempotency, key)
	return nil
}
