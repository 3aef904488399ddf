package inventory

import (
	"fmt"

	"github.com/google/uuid"

	pkgerrors "github.com/angelmondragon/smart-inventory/pkg/errors"
)

var (
	// ErrNotFound is the cause of every missing-record error from this package.
	ErrNotFound = pkgerrors.New(pkgerrors.CodeNotFound, "inventory record not found")
	// ErrInsufficientStock is the cause of every refused strict reservation.
	ErrInsufficientStock = pkgerrors.New(pkgerrors.CodeInsufficientStock, "insufficient stock")
)

func notFound(productID uuid.UUID) error {
	return pkgerrors.Wrap(pkgerrors.CodeNotFound, ErrNotFound, fmt.Sprintf("inventory record for product %s not found", productID))
}

func insufficient(productID uuid.UUID, requested, available int) error {
	return pkgerrors.Wrap(
		pkgerrors.CodeInsufficientStock,
		ErrInsufficientStock,
		fmt.Sprintf("requested %d units of product %s but only %d available", requested, productID, available),
	).WithDetails(map[string]any{
		"product_id": productID.String(),
		"requested":  requested,
		"available":  available,
	})
}

func validation(msg string) error {
	return pkgerrors.New(pkgerrors.CodeValidation, msg)
}

// storeErr classifies a failed stock statement; contention is reported as a
// busy lock so callers retry.
func storeErr(err error, msg string) error {
	if pkgerrors.IsRetryableDB(err) {
		return pkgerrors.Wrap(pkgerrors.CodeLockUnavailable, err, msg)
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, msg)
}
