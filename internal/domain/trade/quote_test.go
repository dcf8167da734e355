package trade

import (
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewQuote(t *testing.T) {
	lines := []QuoteLine{
		{PackageID: uuid.New(), Quantity: decimal.NewFromInt(1), UnitPrice: decimal.NewFromInt(799)},
	}

	quote, err := NewQuote("q-2026-0042", uuid.New(), "Fibre proposal", lines)
	require.NoError(t, err)
	assert.Equal(t, "Q-2026-0042", quote.QuoteNumber, "quote number is normalized to upper case")
	assert.Equal(t, QuoteStageDraft, quote.Stage)

	_, err = NewQuote(" ", uuid.New(), "x", lines)
	assert.ErrorIs(t, err, ErrInvalidQuoteNumber)

	_, err = NewQuote("Q-1", uuid.Nil, "x", lines)
	assert.ErrorIs(t, err, ErrInvalidQuoteLink)

	_, err = NewQuote("Q-1", uuid.New(), "x", nil)
	assert.ErrorIs(t, err, ErrQuoteWithoutLines)
}

func TestQuote_Total(t *testing.T) {
	quote, err := NewQuote("Q-1", uuid.New(), "bundle", []QuoteLine{
		{PackageID: uuid.New(), Quantity: decimal.NewFromInt(2), UnitPrice: decimal.NewFromInt(500)},
		{PackageID: uuid.New(), Quantity: decimal.NewFromInt(1), UnitPrice: decimal.NewFromFloat(99.50)},
	})
	require.NoError(t, err)

	assert.True(t, quote.Total().Equal(decimal.NewFromFloat(1099.50)))
}
