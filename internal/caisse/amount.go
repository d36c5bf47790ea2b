package caisse

import (
	"regexp"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/dakarlabs/caisse-bot/internal/models"
)

// amountPattern matches "<number> <3-letter code>", e.g. "1000 XOF" or
// "250.50 eur". The code is case-insensitive.
var amountPattern = regexp.MustCompile(`^\s*([0-9]+(?:\.[0-9]+)?)\s+([A-Za-z]{3})\s*$`)

// ParsedAmount is a validated amount/currency pair.
type ParsedAmount struct {
	Amount   decimal.Decimal
	Currency models.Currency
}

// ParseAmount validates a free-text amount against the currency
// whitelist. It returns a ValidationError with a corrective message on
// any mismatch; nothing is persisted on failure.
func ParseAmount(input string, allowed []models.Currency) (ParsedAmount, error) {
	m := amountPattern.FindStringSubmatch(input)
	if m == nil {
		return ParsedAmount{}, validationf(
			"Montant invalide %q : utilisez le format \"<montant> <devise>\", par exemple \"1000 XOF\".", input)
	}

	amount, err := decimal.NewFromString(m[1])
	if err != nil {
		return ParsedAmount{}, validationf("Montant invalide %q.", m[1])
	}
	if !amount.IsPositive() {
		return ParsedAmount{}, validationf("Le montant doit être strictement positif.")
	}

	code := models.Currency(strings.ToUpper(m[2]))
	for _, c := range allowed {
		if c == code {
			return ParsedAmount{Amount: amount, Currency: code}, nil
		}
	}
	return ParsedAmount{}, validationf(
		"Devise %q non reconnue. Devises acceptées : %s.", m[2], joinCurrencies(allowed))
}

func joinCurrencies(currencies []models.Currency) string {
	parts := make([]string, len(currencies))
	for i, c := range currencies {
		parts[i] = string(c)
	}
	return strings.Join(parts, ", ")
}
