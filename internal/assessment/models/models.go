package models

import (
	"strings"
	"time"
)

// TransactionType is the payment rail declared by the originating system.
type TransactionType string

const (
	TransactionWire         TransactionType = "WIRE_TRANSFER"
	TransactionACH          TransactionType = "ACH"
	TransactionCrypto       TransactionType = "CRYPTO"
	TransactionCash         TransactionType = "CASH"
	TransactionCheck        TransactionType = "CHECK"
	TransactionCard         TransactionType = "CARD"
	TransactionTradeFinance TransactionType = "TRADE_FINANCE"
)

// AssetType distinguishes fiat from crypto assets when the rail is ambiguous.
type AssetType string

const (
	AssetFiat   AssetType = "FIAT"
	AssetCrypto AssetType = "CRYPTO"
)

// CustomerType classifies the account holder.
type CustomerType string

const (
	CustomerIndividual CustomerType = "INDIVIDUAL"
	CustomerCorporate  CustomerType = "CORPORATE"
)

// CryptoDetails carries on-chain attributes for crypto transactions.
// WalletAgeDays is nil when the wallet age is unknown.
type CryptoDetails struct {
	WalletAddress   string `json:"wallet_address,omitempty"`
	WalletAgeDays   *int   `json:"wallet_age_days,omitempty"`
	MixerUsed       bool   `json:"mixer_used"`
	DarknetMarket   string `json:"darknet_market,omitempty"`
	CrossChainSwaps int    `json:"cross_chain_swaps"`
	PrivacyCoin     bool   `json:"privacy_coin"`
	TokenType       string `json:"token_type,omitempty"`
}

// Transaction is the input snapshot for one analysis run.
type Transaction struct {
	ID                    string          `json:"id"`
	Amount                float64         `json:"amount"`
	Currency              string          `json:"currency"`
	Type                  TransactionType `json:"transaction_type"`
	AssetType             AssetType       `json:"asset_type,omitempty"`
	OriginCountry         string          `json:"origin_country,omitempty"`
	DestinationCountry    string          `json:"destination_country,omitempty"`
	IntermediateCountries []string        `json:"intermediate_countries,omitempty"`
	Parties               []string        `json:"parties,omitempty"`
	Documents             []string        `json:"documents,omitempty"`
	Crypto                *CryptoDetails  `json:"crypto_details,omitempty"`
	Timestamp             time.Time       `json:"timestamp"`
}

// IsCrypto reports whether either the asset type or the rail is CRYPTO.
func (t Transaction) IsCrypto() bool {
	return strings.EqualFold(string(t.AssetType), string(AssetCrypto)) ||
		strings.EqualFold(string(t.Type), string(TransactionCrypto))
}

// HistoryItem is one prior transaction of the customer.
type HistoryItem struct {
	Amount    float64   `json:"amount"`
	Timestamp time.Time `json:"timestamp"`
}

// Customer is the account-holder snapshot for one analysis run.
type Customer struct {
	ID             string        `json:"id"`
	Name           string        `json:"name"`
	Type           CustomerType  `json:"customer_type"`
	AccountAgeDays int           `json:"account_age_days"`
	Country        string        `json:"country,omitempty"`
	History        []HistoryItem `json:"transaction_history,omitempty"`
}

func (t Transaction) clone() Transaction {
	t.IntermediateCountries = cloneStrings(t.IntermediateCountries)
	t.Parties = cloneStrings(t.Parties)
	t.Documents = cloneStrings(t.Documents)
	if t.Crypto != nil {
		c := *t.Crypto
		if c.WalletAgeDays != nil {
			age := *c.WalletAgeDays
			c.WalletAgeDays = &age
		}
		t.Crypto = &c
	}
	return t
}

func (c Customer) clone() Customer {
	if c.History != nil {
		c.History = append([]HistoryItem(nil), c.History...)
	}
	return c
}

func cloneStrings(in []string) []string {
	if in == nil {
		return nil
	}
	return append([]string(nil), in...)
}
