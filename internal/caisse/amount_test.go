package caisse

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dakarlabs/caisse-bot/internal/models"
)

func TestParseAmount(t *testing.T) {
	allowed := models.DefaultCurrencies

	tests := []struct {
		name     string
		input    string
		amount   string
		currency models.Currency
		wantErr  bool
	}{
		{"plain", "1000 XOF", "1000", models.CurrencyXOF, false},
		{"decimal", "250.50 EUR", "250.5", models.CurrencyEUR, false},
		{"lowercase currency", "75 usd", "75", models.CurrencyUSD, false},
		{"surrounding spaces", "  500 XOF  ", "500", models.CurrencyXOF, false},

		{"missing currency", "1000", "", "", true},
		{"unknown currency", "1000 GBP", "", "", true},
		{"zero amount", "0 XOF", "", "", true},
		{"negative amount", "-5 XOF", "", "", true},
		{"comma separator", "1,000 XOF", "", "", true},
		{"words", "mille francs", "", "", true},
		{"empty", "", "", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseAmount(tt.input, allowed)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, IsValidation(err), "want a user-facing validation error")
				return
			}
			require.NoError(t, err)
			assert.True(t, got.Amount.Equal(decimal.RequireFromString(tt.amount)),
				"got %s, want %s", got.Amount, tt.amount)
			assert.Equal(t, tt.currency, got.Currency)
		})
	}
}

func TestParseAmount_RespectsWhitelist(t *testing.T) {
	_, err := ParseAmount("100 USD", []models.Currency{models.CurrencyXOF})
	require.Error(t, err)
	assert.True(t, IsValidation(err))
	assert.Contains(t, err.Error(), "XOF")
}
