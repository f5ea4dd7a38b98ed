package domain

import "github.com/shopspring/decimal"

type Gift struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Emoji string `json:"emoji"`
	Coins int64  `json:"coins"`
}

type CoinPackage struct {
	ID       string          `json:"id"`
	Coins    int64           `json:"coins"`
	Price    decimal.Decimal `json:"price"`
	Currency string          `json:"currency"`
	Label    string          `json:"label"`
}

var gifts = []Gift{
	{ID: "rosa", Name: "Rosa", Emoji: "🌹", Coins: 10},
	{ID: "corazon", Name: "Corazón", Emoji: "❤️", Coins: 50},
	{ID: "estrella", Name: "Estrella", Emoji: "⭐", Coins: 100},
	{ID: "fuego", Name: "Fuego", Emoji: "🔥", Coins: 200},
	{ID: "diamante", Name: "Diamante", Emoji: "💎", Coins: 500},
	{ID: "corona", Name: "Corona", Emoji: "👑", Coins: 1000},
	{ID: "cohete", Name: "Cohete", Emoji: "🚀", Coins: 2000},
}

var packages = []CoinPackage{
	{ID: "coins_100", Coins: 100, Price: decimal.RequireFromString("0.99"), Currency: "USD", Label: "Starter"},
	{ID: "coins_550", Coins: 550, Price: decimal.RequireFromString("4.99"), Currency: "USD", Label: "Popular"},
	{ID: "coins_1425", Coins: 1425, Price: decimal.RequireFromString("12.99"), Currency: "USD", Label: "Best value"},
	{ID: "coins_3000", Coins: 3000, Price: decimal.RequireFromString("24.99"), Currency: "USD", Label: "Fan"},
	{ID: "coins_7500", Coins: 7500, Price: decimal.RequireFromString("59.99"), Currency: "USD", Label: "Patron"},
}

// Gifts returns the gift catalog ordered by price.
func Gifts() []Gift {
	out := make([]Gift, len(gifts))
	copy(out, gifts)
	return out
}

// CoinPackages returns the purchasable coin packages ordered by size.
func CoinPackages() []CoinPackage {
	out := make([]CoinPackage, len(packages))
	copy(out, packages)
	return out
}

func FindGift(id string) (Gift, error) {
	for _, g := range gifts {
		if g.ID == id {
			return g, nil
		}
	}
	return Gift{}, ErrGiftNotFound
}

func FindCoinPackage(id string) (CoinPackage, error) {
	for _, p := range packages {
		if p.ID == id {
			return p, nil
		}
	}
	return CoinPackage{}, ErrPackageNotFound
}
