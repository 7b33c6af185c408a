package models

import (
	"github.com/uptrace/bun"
)

type Prize struct {
	bun.BaseModel `bun:"table:prizes"`

	ID            string  `bun:"id,pk" json:"id"`
	CompetitionID string  `bun:"competition_id,notnull" json:"competition_id"`
	Name          string  `bun:"name,notnull" json:"name"`
	MarketValue   float64 `bun:"market_value" json:"market_value"`
	Phase         int     `bun:"phase,notnull" json:"phase"`
	TotalQuantity int     `bun:"total_quantity,notnull" json:"total_quantity"`
	IsInstantWin  bool    `bun:"is_instant_win,notnull,default:false" json:"is_instant_win"`

	// Wallet-credit prizes pay out into the winner's wallet instead of
	// shipping a product.
	IsWalletCredit bool    `bun:"is_wallet_credit,notnull,default:false" json:"is_wallet_credit"`
	CreditAmount   float64 `bun:"credit_amount" json:"credit_amount"`
}
