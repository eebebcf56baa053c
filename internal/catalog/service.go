// Package catalog imports external cards into the product catalog and
// manages where products sit inside user binders.
package catalog

import (
	"strings"
	"sync"

	"cardvault/internal/apperr"
	"cardvault/internal/logger"
	"cardvault/internal/metrics"
	"cardvault/internal/models"
	"cardvault/internal/slug"
)

// PlaceholderName is stored for candidates that arrive without a name.
const PlaceholderName = "Unknown Card"

// Candidate is a normalised card record from an external search provider.
type Candidate struct {
	ExternalID string `json:"external_id"`
	Name       string `json:"name"`
	ImageURL   string `json:"image_url"`
	SetName    string `json:"set_name"`
	SetCode    string `json:"set_code"`
	Rarity     string `json:"rarity"`
	TypeLine   string `json:"type_line"`
	Source     string `json:"source"`
}

// Placement describes one card put into a binder.
type Placement struct {
	ID        int    `json:"id"`
	ProductID int    `json:"product_id"`
	Position  int    `json:"position"`
	Name      string `json:"name"`
	ImageURL  string `json:"image_url"`
}

type ImportResult struct {
	ImportedIDs   []int       `json:"imported_ids"`
	Count         int         `json:"count"`
	AddedToBinder []Placement `json:"added_to_binder"`
}

type Service struct {
	store   Store
	metrics metrics.Recorder

	// productMu serialises the find-or-create of products so two imports
	// of the same new card cannot both miss the dedup lookup.
	productMu sync.Mutex
	binders   binderLocks
}

func NewService(store Store, recorder metrics.Recorder) *Service {
	if recorder == nil {
		recorder = metrics.Nop{}
	}
	return &Service{
		store:   store,
		metrics: recorder,
		binders: binderLocks{locks: make(map[int]*binderLock)},
	}
}

// ImportCards resolves each candidate to a product, creating the ones the
// catalog has not seen, then places them in binderID when one is given.
// Products created before a failed ownership check stay in the catalog.
func (s *Service) ImportCards(callerID int, candidates []Candidate, binderID *int) (*ImportResult, error) {
	result := &ImportResult{
		ImportedIDs:   make([]int, 0, len(candidates)),
		AddedToBinder: []Placement{},
	}

	products := make([]*models.Product, 0, len(candidates))
	for _, candidate := range candidates {
		product, err := s.resolveCandidate(candidate)
		if err != nil {
			return nil, err
		}
		products = append(products, product)
		result.ImportedIDs = append(result.ImportedIDs, product.ID)
	}
	result.Count = len(result.ImportedIDs)

	if binderID == nil {
		return result, nil
	}

	placements, err := s.place(callerID, *binderID, products)
	if err != nil {
		return nil, err
	}
	result.AddedToBinder = placements

	logger.Info("Cards imported",
		"user_id", callerID,
		"binder_id", *binderID,
		"count", result.Count,
		"placed", len(placements))

	return result, nil
}

// AddProducts places existing products into a binder. Ids that do not
// name a product are skipped.
func (s *Service) AddProducts(callerID, binderID int, productIDs []int) ([]Placement, error) {
	if _, err := s.assertOwns(binderID, callerID); err != nil {
		return nil, err
	}

	products := make([]*models.Product, 0, len(productIDs))
	for _, id := range productIDs {
		product, err := s.store.GetProduct(id)
		if err != nil {
			return nil, apperr.Wrap(err, "Failed to load product")
		}
		if product == nil {
			logger.Debug("Skipping unknown product", "product_id", id, "binder_id", binderID)
			continue
		}
		products = append(products, product)
	}

	return s.place(callerID, binderID, products)
}

// CreateProduct stores an admin-entered product under a unique slug.
func (s *Service) CreateProduct(product *models.Product) error {
	product.Name = strings.TrimSpace(product.Name)
	if product.Name == "" {
		return apperr.ValidationErr("Product name is required")
	}

	s.productMu.Lock()
	defer s.productMu.Unlock()

	return s.createWithUniqueSlug(product)
}

func (s *Service) resolveCandidate(candidate Candidate) (*models.Product, error) {
	// Names are matched and stored exactly as given. Blank ones get the
	// placeholder.
	name := candidate.Name
	if strings.TrimSpace(name) == "" {
		name = PlaceholderName
	}

	s.productMu.Lock()
	defer s.productMu.Unlock()

	existing, err := s.store.FindProductByNameAndImage(name, candidate.ImageURL)
	if err != nil {
		return nil, apperr.Wrap(err, "Failed to look up product")
	}
	if existing != nil {
		s.metrics.RecordProductImport(false)
		return existing, nil
	}

	source, known := ParseSource(candidate.Source)
	if !known && candidate.Source != "" {
		logger.Warn("Unknown card source, filing under default category",
			"source", candidate.Source,
			"default", string(DefaultSource))
	}

	category, err := s.ensureCategory(CategoryFor(source))
	if err != nil {
		return nil, err
	}

	product := &models.Product{
		Name:       name,
		SetCode:    candidate.SetCode,
		SetName:    candidate.SetName,
		CategoryID: &category.ID,
		ImageURL:   candidate.ImageURL,
		Rarity:     candidate.Rarity,
		CardType:   candidate.TypeLine,
	}
	if err := s.createWithUniqueSlug(product); err != nil {
		return nil, err
	}
	product.Category = category

	s.metrics.RecordProductImport(true)
	return product, nil
}

func (s *Service) ensureCategory(info CategoryInfo) (*models.Category, error) {
	category, err := s.store.GetCategoryBySlug(info.Slug)
	if err != nil {
		return nil, apperr.Wrap(err, "Failed to look up category")
	}
	if category != nil {
		return category, nil
	}

	category, err = s.store.CreateCategory(info.Name, info.Slug)
	if err != nil {
		return nil, apperr.Wrap(err, "Failed to create category")
	}

	logger.Info("Category created", "slug", info.Slug)
	return category, nil
}

// createWithUniqueSlug must run with productMu held.
func (s *Service) createWithUniqueSlug(product *models.Product) error {
	unique, err := slug.Unique(slug.FromName(product.Name), s.store.ProductSlugExists)
	if err != nil {
		return apperr.Wrap(err, "Failed to check product slug")
	}
	product.Slug = unique

	if err := s.store.CreateProduct(product); err != nil {
		return apperr.Wrap(err, "Failed to create product")
	}
	return nil
}

// place puts products into the binder's lowest free positions, in order.
// The binder lock covers the read of occupied positions and every insert.
func (s *Service) place(callerID, binderID int, products []*models.Product) ([]Placement, error) {
	unlock := s.binders.lock(binderID)
	defer unlock()

	if _, err := s.assertOwns(binderID, callerID); err != nil {
		return nil, err
	}

	positions, err := s.store.OccupiedPositions(binderID)
	if err != nil {
		return nil, apperr.Wrap(err, "Failed to load binder positions")
	}

	occupied := make(map[int]struct{}, len(positions)+len(products))
	for _, p := range positions {
		occupied[p] = struct{}{}
	}

	placements := make([]Placement, 0, len(products))
	next := 0
	for _, product := range products {
		next = nextFreePosition(occupied, next)
		occupied[next] = struct{}{}

		card, err := s.store.CreateBinderCard(binderID, product.ID, next)
		if err != nil {
			return nil, apperr.Wrap(err, "Failed to add card to binder")
		}

		placements = append(placements, Placement{
			ID:        card.ID,
			ProductID: product.ID,
			Position:  card.Position,
			Name:      product.Name,
			ImageURL:  product.ImageURL,
		})
	}

	if len(placements) > 0 {
		if err := s.store.TouchBinder(binderID); err != nil {
			logger.Warn("Failed to touch binder", "binder_id", binderID, "error", err)
		}
		s.metrics.RecordCardsPlaced(len(placements))
	}

	return placements, nil
}

// nextFreePosition returns the smallest position >= from that is not in
// occupied. Positions below from must already be known to be taken.
func nextFreePosition(occupied map[int]struct{}, from int) int {
	p := from
	for {
		if _, taken := occupied[p]; !taken {
			return p
		}
		p++
	}
}

// assertOwns is the ownership gate for every binder operation.
func (s *Service) assertOwns(binderID, callerID int) (*models.Binder, error) {
	binder, err := s.store.GetBinder(binderID)
	if err != nil {
		return nil, apperr.Wrap(err, "Failed to load binder")
	}
	if binder == nil {
		return nil, apperr.NotFoundErr("Binder not found")
	}
	if binder.UserID != callerID {
		logger.Warn("Binder access denied",
			"binder_id", binderID,
			"owner_id", binder.UserID,
			"caller_id", callerID)
		return nil, apperr.UnauthorizedErr("You do not own this binder")
	}
	return binder, nil
}

type binderLock struct {
	mu   sync.Mutex
	refs int
}

// binderLocks hands out one mutex per binder id and forgets it once no
// caller holds or waits on it.
type binderLocks struct {
	mu    sync.Mutex
	locks map[int]*binderLock
}

func (l *binderLocks) lock(binderID int) func() {
	l.mu.Lock()
	bl, ok := l.locks[binderID]
	if !ok {
		bl = &binderLock{}
		l.locks[binderID] = bl
	}
	bl.refs++
	l.mu.Unlock()

	bl.mu.Lock()

	return func() {
		bl.mu.Unlock()

		l.mu.Lock()
		bl.refs--
		if bl.refs == 0 {
			delete(l.locks, binderID)
		}
		l.mu.Unlock()
	}
}
