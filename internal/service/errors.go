package service

import (
	"github.com/pkg/errors"
	"gorm.io/gorm"
)

var (
	ErrProductNotFound    = errors.New("product not found")
	ErrSupplierNotFound   = errors.New("supplier not found")
	ErrSaleNotFound       = errors.New("sale not found")
	ErrUserNotFound       = errors.New("user not found")
	ErrInvalidCartLine    = errors.New("invalid cart line")
	ErrIndexOutOfRange    = errors.New("index out of range")
	ErrEmptyCart          = errors.New("cart is empty")
	ErrCheckoutFailed     = errors.New("checkout failed")
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrInvalidInput       = errors.New("invalid input")
)

// checkoutError reports a rolled back checkout. It matches ErrCheckoutFailed
// and unwraps to the cause.
type checkoutError struct {
	cause error
}

func checkoutFailed(cause error) error {
	return errors.WithStack(&checkoutError{cause: cause})
}

func (e *checkoutError) Error() string {
	return ErrCheckoutFailed.Error() + ": " + e.cause.Error()
}

func (e *checkoutError) Unwrap() error { return e.cause }

func (e *checkoutError) Is(target error) bool { return target == ErrCheckoutFailed }

// notFound turns gorm's missing-row error into the given sentinel.
func notFound(err, sentinel error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return sentinel
	}
	return err
}

// invalid wraps a validation message so handlers can answer 400.
func invalid(msg string) error {
	return errors.Wrap(ErrInvalidInput, msg)
}
