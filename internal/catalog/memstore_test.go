package catalog

import (
	"errors"
	"sync"

	"cardvault/internal/models"
)

// memStore is an in-memory Store for service tests.
type memStore struct {
	mu         sync.Mutex
	nextID     int
	products   map[int]*models.Product
	categories map[string]*models.Category
	binders    map[int]*models.Binder
	cards      map[int]*models.BinderCard

	failCreateProductAfter int
}

func newMemStore() *memStore {
	return &memStore{
		products:               map[int]*models.Product{},
		categories:             map[string]*models.Category{},
		binders:                map[int]*models.Binder{},
		cards:                  map[int]*models.BinderCard{},
		failCreateProductAfter: -1,
	}
}

func (m *memStore) id() int {
	m.nextID++
	return m.nextID
}

func (m *memStore) FindProductByNameAndImage(name, imageURL string) (*models.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var found *models.Product
	for _, p := range m.products {
		if p.Name == name && p.ImageURL == imageURL && (found == nil || p.ID < found.ID) {
			found = p
		}
	}
	if found == nil {
		return nil, nil
	}
	cp := *found
	return &cp, nil
}

func (m *memStore) GetProduct(productID int) (*models.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.products[productID]
	if !ok {
		return nil, nil
	}
	cp := *p
	return &cp, nil
}

func (m *memStore) ProductSlugExists(slug string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range m.products {
		if p.Slug == slug {
			return true, nil
		}
	}
	return false, nil
}

func (m *memStore) CreateProduct(product *models.Product) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failCreateProductAfter == 0 {
		return errors.New("disk full")
	}
	if m.failCreateProductAfter > 0 {
		m.failCreateProductAfter--
	}
	product.ID = m.id()
	cp := *product
	m.products[product.ID] = &cp
	return nil
}

func (m *memStore) GetCategoryBySlug(slug string) (*models.Category, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.categories[slug]
	if !ok {
		return nil, nil
	}
	cp := *c
	return &cp, nil
}

func (m *memStore) CreateCategory(name, slug string) (*models.Category, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c := &models.Category{ID: m.id(), Name: name, Slug: slug}
	m.categories[slug] = c
	cp := *c
	return &cp, nil
}

func (m *memStore) CreateBinder(binder *models.Binder) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	binder.ID = m.id()
	cp := *binder
	m.binders[binder.ID] = &cp
	return nil
}

func (m *memStore) GetBinder(binderID int) (*models.Binder, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.binders[binderID]
	if !ok {
		return nil, nil
	}
	cp := *b
	return &cp, nil
}

func (m *memStore) GetBinderCards(binderID int) ([]models.BinderCard, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cards := []models.BinderCard{}
	for _, c := range m.cards {
		if c.BinderID == binderID {
			cards = append(cards, *c)
		}
	}
	return cards, nil
}

func (m *memStore) UpdateBinder(binder *models.Binder) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *binder
	m.binders[binder.ID] = &cp
	return nil
}

func (m *memStore) DeleteBinder(binderID int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.binders, binderID)
	for id, c := range m.cards {
		if c.BinderID == binderID {
			delete(m.cards, id)
		}
	}
	return nil
}

func (m *memStore) TouchBinder(int) error { return nil }

func (m *memStore) OccupiedPositions(binderID int) ([]int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var positions []int
	for _, c := range m.cards {
		if c.BinderID == binderID {
			positions = append(positions, c.Position)
		}
	}
	return positions, nil
}

func (m *memStore) CreateBinderCard(binderID, productID, position int) (*models.BinderCard, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c := &models.BinderCard{ID: m.id(), BinderID: binderID, ProductID: productID, Position: position}
	m.cards[c.ID] = c
	cp := *c
	return &cp, nil
}

func (m *memStore) GetBinderCard(cardID int) (*models.BinderCard, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.cards[cardID]
	if !ok {
		return nil, nil
	}
	cp := *c
	return &cp, nil
}

func (m *memStore) DeleteBinderCard(cardID int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.cards, cardID)
	return nil
}

func (m *memStore) SetCardPosition(binderID, cardID, position int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if c, ok := m.cards[cardID]; ok && c.BinderID == binderID {
		c.Position = position
	}
	return nil
}

func (m *memStore) SetCardCollected(cardID int, collected bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if c, ok := m.cards[cardID]; ok {
		c.IsCollected = collected
	}
	return nil
}

func (m *memStore) CountCards(binderID int) (int, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var total, collected int
	for _, c := range m.cards {
		if c.BinderID == binderID {
			total++
			if c.IsCollected {
				collected++
			}
		}
	}
	return total, collected, nil
}

// positionsOf returns the binder's positions keyed by card id.
func (m *memStore) positionsOf(binderID int) map[int]int {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := map[int]int{}
	for id, c := range m.cards {
		if c.BinderID == binderID {
			out[id] = c.Position
		}
	}
	return out
}

func (m *memStore) productCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.products)
}
