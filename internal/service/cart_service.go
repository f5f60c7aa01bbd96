package service

import (
	"context"
	"strings"

	"pilotopos/internal/model"
	"pilotopos/internal/repository"
	"pilotopos/pkg/database"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// CartSummary is what the cart endpoints answer with.
type CartSummary struct {
	Total decimal.Decimal `json:"total"`
	Count int             `json:"count"`
}

func Summarize(cart *model.Cart) CartSummary {
	return CartSummary{Total: cart.Total().Round(2), Count: cart.Count()}
}

// CartService edits a cart the caller loaded from the session. The caller
// stores it back on success.
type CartService interface {
	AddFromCatalog(ctx context.Context, tenant database.Tenant, cart *model.Cart, code string) (*model.Product, error)
	AddManual(cart *model.Cart, name string, price decimal.Decimal) (CartSummary, error)
	RemoveAt(cart *model.Cart, index int) (CartSummary, error)
}

type cartService struct {
	db          *database.DB
	productRepo repository.ProductRepository
}

func NewCartService(db *database.DB, pRepo repository.ProductRepository) CartService {
	return &cartService{db: db, productRepo: pRepo}
}

// AddFromCatalog appends the product with id code. Unknown codes return
// ErrProductNotFound and leave the cart unchanged.
func (s *cartService) AddFromCatalog(ctx context.Context, tenant database.Tenant, cart *model.Cart, code string) (*model.Product, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return nil, ErrProductNotFound
	}
	var product *model.Product
	err := s.db.Transaction(ctx, tenant, func(tx *gorm.DB) error {
		var err error
		product, err = s.productRepo.FindByID(tx, code)
		return notFound(err, ErrProductNotFound)
	})
	if err != nil {
		return nil, err
	}
	cart.Add(product.Name, product.Price)
	return product, nil
}

func (s *cartService) AddManual(cart *model.Cart, name string, price decimal.Decimal) (CartSummary, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return CartSummary{}, errors.Wrap(ErrInvalidCartLine, "name is required")
	}
	if price.IsNegative() {
		return CartSummary{}, errors.Wrap(ErrInvalidCartLine, "price must not be negative")
	}
	cart.Add(name, price.Round(2))
	return Summarize(cart), nil
}

func (s *cartService) RemoveAt(cart *model.Cart, index int) (CartSummary, error) {
	if !cart.RemoveAt(index) {
		return CartSummary{}, ErrIndexOutOfRange
	}
	return Summarize(cart), nil
}
