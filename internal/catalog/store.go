package catalog

import "cardvault/internal/models"

// Store is the persistence the catalog service works against. Lookups
// return (nil, nil) when the row does not exist.
type Store interface {
	FindProductByNameAndImage(name, imageURL string) (*models.Product, error)
	GetProduct(productID int) (*models.Product, error)
	ProductSlugExists(slug string) (bool, error)
	CreateProduct(product *models.Product) error

	GetCategoryBySlug(slug string) (*models.Category, error)
	CreateCategory(name, slug string) (*models.Category, error)

	CreateBinder(binder *models.Binder) error
	GetBinder(binderID int) (*models.Binder, error)
	GetBinderCards(binderID int) ([]models.BinderCard, error)
	UpdateBinder(binder *models.Binder) error
	DeleteBinder(binderID int) error
	TouchBinder(binderID int) error

	OccupiedPositions(binderID int) ([]int, error)
	CreateBinderCard(binderID, productID, position int) (*models.BinderCard, error)
	GetBinderCard(cardID int) (*models.BinderCard, error)
	DeleteBinderCard(cardID int) error
	SetCardPosition(binderID, cardID, position int) error
	SetCardCollected(cardID int, collected bool) error
	CountCards(binderID int) (total int, collected int, err error)
}
