package service

import (
	"context"

	"github.com/bartarleather/erp-backend/internal/production/unit"
	"github.com/bartarleather/erp-backend/pkg/errors"
	"github.com/bartarleather/erp-backend/pkg/logger"
)

// Normalizer converts recorded quantities into a product's canonical main
// unit. Any conversion that changes the magnitude must be accepted by the
// operator through the injected Confirmer before it is trusted.
type Normalizer struct {
	products  ProductCatalog
	confirmer Confirmer
	logger    *logger.Logger
}

// NewNormalizer creates a new quantity normalizer
func NewNormalizer(products ProductCatalog, confirmer Confirmer, log *logger.Logger) *Normalizer {
	if confirmer == nil {
		confirmer = AutoAccept{}
	}
	return &Normalizer{
		products:  products,
		confirmer: confirmer,
		logger:    log.WithComponent("normalizer"),
	}
}

// Normalize converts qty from u into the product's main unit.
//
// Zero quantities, empty units and quantities already in the main unit pass
// through unchanged. A discrete unit on either side of a differing pair
// fails with ErrIncompatibleUnit; these are never coerced. A non-zero
// conversion is confirmed at most once per distinct (product, source,
// target) combination per batch; rejection cancels the whole operation with
// ErrUserRejected. The sign of qty is preserved.
func (n *Normalizer) Normalize(ctx context.Context, b *Batch, productID string, qty float64, u unit.Unit) (float64, error) {
	if qty == 0 || u == "" {
		return qty, nil
	}

	p, err := b.Product(ctx, n.products, productID)
	if err != nil {
		return 0, err
	}

	if u == p.MainUnit {
		return qty, nil
	}

	if unit.IsDiscrete(u) || unit.IsDiscrete(p.MainUnit) {
		return 0, errors.IncompatibleUnit(p.Name, string(u), string(p.MainUnit))
	}

	converted := unit.ConvertArea(qty, u, p.MainUnit)
	if converted == 0 {
		return 0, nil
	}

	accepted, ok := b.Decision(productID, u, p.MainUnit)
	if !ok {
		accepted, err = n.confirmer.Confirm(ctx, ConfirmRequest{
			ProductID:    productID,
			ProductName:  p.Name,
			SourceUnit:   u,
			TargetUnit:   p.MainUnit,
			SourceQty:    qty,
			ConvertedQty: converted,
		})
		if err != nil {
			return 0, err
		}
		b.SetDecision(productID, u, p.MainUnit, accepted)
	}

	if !accepted {
		n.logger.Info().
			Str("product_id", productID).
			Str("from_unit", string(u)).
			Str("to_unit", string(p.MainUnit)).
			Msg("conversion rejected by operator")
		return 0, errors.UserRejected(p.Name)
	}

	return converted, nil
}
