// Package shop is a small in-memory storefront. The CLI serves it and the
// engine tests run queries against it.
package shop

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"slices"
	"strings"
	"sync"
	"time"
)

var (
	ErrUnknownCustomer = errors.New("shop: unknown customer")
	ErrUnknownProduct  = errors.New("shop: unknown product")
	ErrOutOfStock      = errors.New("shop: not enough stock")
)

type Customer struct {
	ID    string
	Name  string
	Email string
}

type Product struct {
	ID    string
	Name  string
	Price float64
	Stock int
}

type OrderStatus int

const (
	StatusPending OrderStatus = iota
	StatusShipped
	StatusCancelled
)

type Order struct {
	ID         string
	CustomerID string
	ProductID  string
	Quantity   int
	Status     OrderStatus
	PlacedAt   time.Time
}

// Store holds the shop data. It is safe for concurrent use.
type Store struct {
	mu        sync.RWMutex
	customers map[string]*Customer
	products  map[string]*Product
	orders    []*Order
	now       func() time.Time

	productLoads [][]string
	orderLoads   [][]string
}

func NewStore() *Store {
	return &Store{
		customers: map[string]*Customer{},
		products:  map[string]*Product{},
		now:       time.Now,
	}
}

func (s *Store) AddCustomer(c *Customer) *Store {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.customers[c.ID] = c
	return s
}

func (s *Store) AddProduct(p *Product) *Store {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.products[p.ID] = p
	return s
}

func (s *Store) AddOrder(o *Order) *Store {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.orders = append(s.orders, o)
	return s
}

// Customers lists every customer ordered by id.
func (s *Store) Customers() []*Customer {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return sortedValues(s.customers, func(c *Customer) string { return c.ID })
}

func (s *Store) Customer(id string) (*Customer, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.customers[id]
	return c, ok
}

// Products lists every product ordered by id.
func (s *Store) Products() []*Product {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return sortedValues(s.products, func(p *Product) string { return p.ID })
}

// Orders lists every order in placement order.
func (s *Store) Orders() []*Order {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.orders)
}

// ProductsByID looks up many products at once. Unknown ids are left out.
func (s *Store) ProductsByID(_ context.Context, ids []string) (map[string]*Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.productLoads = append(s.productLoads, slices.Clone(ids))
	out := make(map[string]*Product, len(ids))
	for _, id := range ids {
		if p, ok := s.products[id]; ok {
			out[id] = p
		}
	}
	return out, nil
}

// OrdersByCustomer groups the orders of many customers.
func (s *Store) OrdersByCustomer(_ context.Context, ids []string) (map[string][]*Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.orderLoads = append(s.orderLoads, slices.Clone(ids))
	want := make(map[string]bool, len(ids))
	for _, id := range ids {
		want[id] = true
	}
	out := map[string][]*Order{}
	for _, o := range s.orders {
		if want[o.CustomerID] {
			out[o.CustomerID] = append(out[o.CustomerID], o)
		}
	}
	return out, nil
}

// ProductLoads returns the ids of every ProductsByID call so far.
func (s *Store) ProductLoads() [][]string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.productLoads)
}

// OrderLoads returns the ids of every OrdersByCustomer call so far.
func (s *Store) OrderLoads() [][]string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.orderLoads)
}

// PlaceOrder records a pending order and takes the quantity off the
// product's stock.
func (s *Store) PlaceOrder(customerID, productID string, quantity int) (*Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.customers[customerID]; !ok {
		return nil, fmt.Errorf("%w %q", ErrUnknownCustomer, customerID)
	}
	p, ok := s.products[productID]
	if !ok {
		return nil, fmt.Errorf("%w %q", ErrUnknownProduct, productID)
	}
	if quantity <= 0 {
		return nil, fmt.Errorf("shop: quantity must be positive, got %d", quantity)
	}
	if p.Stock < quantity {
		return nil, fmt.Errorf("%w: %s has %d left", ErrOutOfStock, p.ID, p.Stock)
	}
	p.Stock -= quantity
	o := &Order{
		ID:         fmt.Sprintf("o%d", len(s.orders)+1),
		CustomerID: customerID,
		ProductID:  productID,
		Quantity:   quantity,
		Status:     StatusPending,
		PlacedAt:   s.now().UTC(),
	}
	s.orders = append(s.orders, o)
	return o, nil
}

func sortedValues[T any](m map[string]T, id func(T) string) []T {
	out := slices.Collect(maps.Values(m))
	slices.SortFunc(out, func(a, b T) int { return strings.Compare(id(a), id(b)) })
	return out
}

// Demo returns a store seeded with a few customers, products and orders.
func Demo() *Store {
	s := NewStore().
		AddCustomer(&Customer{ID: "c1", Name: "Ada", Email: "ada@example.com"}).
		AddCustomer(&Customer{ID: "c2", Name: "Grace", Email: "grace@example.com"}).
		AddCustomer(&Customer{ID: "c3", Name: "Linus", Email: "linus@example.com"}).
		AddProduct(&Product{ID: "p1", Name: "Desk lamp", Price: 39.5, Stock: 12}).
		AddProduct(&Product{ID: "p2", Name: "Notebook", Price: 4.25, Stock: 200}).
		AddProduct(&Product{ID: "p3", Name: "Office chair", Price: 189, Stock: 3}).
		AddProduct(&Product{ID: "p4", Name: "Standing desk", Price: 420, Stock: 1})
	placed := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	for i, o := range []struct {
		customer, product string
		quantity          int
		status            OrderStatus
	}{
		{"c1", "p1", 1, StatusShipped},
		{"c1", "p2", 5, StatusShipped},
		{"c2", "p3", 1, StatusPending},
		{"c2", "p2", 2, StatusCancelled},
		{"c3", "p4", 1, StatusPending},
	} {
		s.AddOrder(&Order{
			ID:         fmt.Sprintf("o%d", i+1),
			CustomerID: o.customer,
			ProductID:  o.product,
			Quantity:   o.quantity,
			Status:     o.status,
			PlacedAt:   placed.Add(time.Duration(i) * time.Hour),
		})
	}
	return s
}
