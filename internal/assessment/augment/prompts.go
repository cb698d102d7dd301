package augment

import (
	"fmt"
	"strings"

	"github.com/KUNALSHAWW/SentinelAI-AML/internal/assessment/models"
)

const systemPrompt = "You are an anti-money-laundering analyst. " +
	"Answer with upper-case risk codes (for example TBML_OVER_INVOICING), " +
	"a line 'RISK_SCORE: <0-100>' and a line 'CONFIDENCE: <0-1>'."

func cryptoPrompt(s models.State) string {
	var b strings.Builder
	b.WriteString("Review this cryptocurrency transaction for laundering typologies.\n")
	writeTransaction(&b, s.Transaction)
	if c := s.Transaction.Crypto; c != nil {
		fmt.Fprintf(&b, "Wallet: %s\nMixer used: %t\nDarknet market: %s\nCross-chain swaps: %d\nPrivacy coin: %t\nToken: %s\n",
			c.WalletAddress, c.MixerUsed, c.DarknetMarket, c.CrossChainSwaps, c.PrivacyCoin, c.TokenType)
	}
	b.WriteString("Prefix additional codes with CRYPTO_.\n")
	return b.String()
}

func sanctionsPrompt(s models.State) string {
	var b strings.Builder
	b.WriteString("Screen these entities against OFAC, EU and UN sanctions lists. Answer MATCH or NO_MATCH.\n")
	fmt.Fprintf(&b, "Entities: %s\nCountry: %s\n", strings.Join(s.Transaction.Parties, ", "), s.Transaction.OriginCountry)
	return b.String()
}

func pepPrompt(s models.State) string {
	var b strings.Builder
	b.WriteString("Is this customer a politically exposed person (PEP)? Answer PEP or NOT PEP.\n")
	fmt.Fprintf(&b, "Name: %s\nCountry: %s\nCustomer type: %s\n", s.Customer.Name, s.Customer.Country, s.Customer.Type)
	return b.String()
}

func documentsPrompt(s models.State) string {
	var b strings.Builder
	b.WriteString("Review the supporting documents for trade-based laundering and anomalies.\n")
	for _, doc := range s.Transaction.Documents {
		fmt.Fprintf(&b, "- %s\n", doc)
	}
	writeTransaction(&b, s.Transaction)
	b.WriteString("Prefix findings with TBML_ or DOC_.\n")
	return b.String()
}

func enhancedDueDiligencePrompt(s models.State) string {
	var b strings.Builder
	b.WriteString("Perform enhanced due diligence step by step.\n")
	writeTransaction(&b, s.Transaction)
	fmt.Fprintf(&b, "Customer: %s (%s), account age %d days\n", s.Customer.Name, s.Customer.Type, s.Customer.AccountAgeDays)
	writeFindings(&b, s)
	for _, r := range s.Analysis {
		if r.Scored {
			fmt.Fprintf(&b, "Stage %s scored %d\n", r.Stage, r.Score)
		}
	}
	return b.String()
}

func narrativePrompt(s models.State) string {
	var b strings.Builder
	b.WriteString("Write a Suspicious Activity Report narrative (who, what, when, where, why).\n")
	writeTransaction(&b, s.Transaction)
	fmt.Fprintf(&b, "Risk score: %d/100\nRisk level: %s\n", s.RiskScore, s.RiskLevel)
	fmt.Fprintf(&b, "Customer: %s, account age %d days\n", s.Customer.Name, s.Customer.AccountAgeDays)
	writeFindings(&b, s)
	return b.String()
}

func writeTransaction(b *strings.Builder, tx models.Transaction) {
	fmt.Fprintf(b, "Amount: %.2f %s\nType: %s\nOrigin: %s\nDestination: %s\nParties: %s\n",
		tx.Amount, tx.Currency, tx.Type, tx.OriginCountry, tx.DestinationCountry, strings.Join(tx.Parties, ", "))
	if len(tx.IntermediateCountries) > 0 {
		fmt.Fprintf(b, "Via: %s\n", strings.Join(tx.IntermediateCountries, ", "))
	}
}

func writeFindings(b *strings.Builder, s models.State) {
	fmt.Fprintf(b, "Risk factors: %s\nAlerts: %s\nPEP: %t\nSanctions hits: %s\n",
		strings.Join(s.RiskFactors, ", "), strings.Join(s.Alerts, "; "), s.IsPEP(), strings.Join(s.SanctionHits, ", "))
}
