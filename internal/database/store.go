package database

import (
	"database/sql"
	"errors"

	"cardvault/internal/models"
)

// Store adapts the package-level query functions to the catalog service's
// persistence interface. Missing rows come back as (nil, nil).
type Store struct {
	db *sql.DB
}

func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

func (s *Store) DB() *sql.DB {
	return s.db
}

func absent[T any](v *T, err error) (*T, error) {
	if errors.Is(err, ErrNotFound) {
		return nil, nil
	}
	return v, err
}

func (s *Store) FindProductByNameAndImage(name, imageURL string) (*models.Product, error) {
	return absent(FindProductByNameAndImage(s.db, name, imageURL))
}

func (s *Store) GetProduct(productID int) (*models.Product, error) {
	return absent(GetProduct(s.db, productID))
}

func (s *Store) ProductSlugExists(slug string) (bool, error) {
	return ProductSlugExists(s.db, slug)
}

func (s *Store) CreateProduct(product *models.Product) error {
	return CreateProduct(s.db, product)
}

func (s *Store) GetCategoryBySlug(slug string) (*models.Category, error) {
	return absent(GetCategoryBySlug(s.db, slug))
}

func (s *Store) CreateCategory(name, slug string) (*models.Category, error) {
	return CreateCategory(s.db, name, slug)
}

func (s *Store) CreateBinder(binder *models.Binder) error {
	return CreateBinder(s.db, binder)
}

func (s *Store) GetBinder(binderID int) (*models.Binder, error) {
	return absent(GetBinder(s.db, binderID))
}

func (s *Store) GetBinderCards(binderID int) ([]models.BinderCard, error) {
	return GetBinderCards(s.db, binderID)
}

func (s *Store) UpdateBinder(binder *models.Binder) error {
	return UpdateBinder(s.db, binder)
}

func (s *Store) DeleteBinder(binderID int) error {
	return DeleteBinder(s.db, binderID)
}

func (s *Store) TouchBinder(binderID int) error {
	return TouchBinder(s.db, binderID)
}

func (s *Store) OccupiedPositions(binderID int) ([]int, error) {
	return GetOccupiedPositions(s.db, binderID)
}

func (s *Store) CreateBinderCard(binderID, productID, position int) (*models.BinderCard, error) {
	return CreateBinderCard(s.db, binderID, productID, position)
}

func (s *Store) GetBinderCard(cardID int) (*models.BinderCard, error) {
	return absent(GetBinderCard(s.db, cardID))
}

func (s *Store) DeleteBinderCard(cardID int) error {
	return DeleteBinderCard(s.db, cardID)
}

func (s *Store) SetCardPosition(binderID, cardID, position int) error {
	return SetBinderCardPosition(s.db, binderID, cardID, position)
}

func (s *Store) SetCardCollected(cardID int, collected bool) error {
	return SetBinderCardCollected(s.db, cardID, collected)
}

func (s *Store) CountCards(binderID int) (int, int, error) {
	return CountBinderCards(s.db, binderID)
}
