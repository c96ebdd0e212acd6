package catalog

import (
	"errors"

	"github.com/shopspring/decimal"
)

var ErrUnknownPackage = errors.New("unknown credit package")

// Package is a purchasable credit bundle. Prices are display/verification
// data only; the ledger deals in whole credits.
type Package struct {
	ID       string          `json:"id"`
	Credits  int64           `json:"credits"`
	PriceUSD decimal.Decimal `json:"price_usd"`
}

var packages = []Package{
	{ID: "starter", Credits: 10, PriceUSD: decimal.RequireFromString("2.99")},
	{ID: "seeker", Credits: 50, PriceUSD: decimal.RequireFromString("9.99")},
	{ID: "mystic", Credits: 120, PriceUSD: decimal.RequireFromString("19.99")},
	{ID: "oracle", Credits: 350, PriceUSD: decimal.RequireFromString("49.99")},
}

func Packages() []Package {
	out := make([]Package, len(packages))
	copy(out, packages)
	return out
}

func ByID(id string) (Package, error) {
	for _, pkg := range packages {
		if pkg.ID == id {
			return pkg, nil
		}
	}
	return Package{}, ErrUnknownPackage
}

// VerifyAmount checks the amount the provider reports against the catalog
// price. Providers send decimal strings; a mismatch means a tampered or
// stale event.
func VerifyAmount(pkg Package, reported string) bool {
	amount, err := decimal.NewFromString(reported)
	if err != nil {
		return false
	}
	return amount.Equal(pkg.PriceUSD)
}
