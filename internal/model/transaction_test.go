package model

import (
	"testing"
	"time"

	"github.com/Veraticus/spendmail/internal/common"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTransaction_ToRow(t *testing.T) {
	loc := time.UTC
	txn := Transaction{
		Bank:        "ICICI",
		Date:        time.Date(2026, 3, 9, 18, 30, 0, 0, loc),
		Amount:      decimal.RequireFromString("1234.5"),
		Description: "SWIGGY",
		Type:        TypeDebit,
		Category:    "Food",
		CardLast4:   "1234",
	}

	row := txn.ToRow(loc)

	assert.Equal(t, Row{
		"ICICI", "2026-03-09 18:30:00", "1234.50", "SWIGGY", "Debit", "Food", "1234", "March", "2026",
	}, row)
	assert.Len(t, row, LedgerColumns)
}

func TestTransaction_Normalize(t *testing.T) {
	txn := Transaction{Bank: "SBI"}
	txn.Normalize()

	assert.Equal(t, Unknown, txn.Description)
	assert.Equal(t, Unknown, txn.CardLast4)
	assert.Equal(t, TypeDebit, txn.Type)
	assert.Equal(t, DefaultCategory, txn.Category)
}

func TestTransaction_Validate(t *testing.T) {
	date := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name    string
		txn     Transaction
		wantErr bool
	}{
		{name: "valid", txn: Transaction{Bank: "HDFC", Date: date, Amount: decimal.NewFromInt(10)}},
		{name: "missing bank", txn: Transaction{Date: date, Amount: decimal.NewFromInt(10)}, wantErr: true},
		{name: "missing date", txn: Transaction{Bank: "HDFC", Amount: decimal.NewFromInt(10)}, wantErr: true},
		{name: "zero amount", txn: Transaction{Bank: "HDFC", Date: date}, wantErr: true},
		{name: "negative amount", txn: Transaction{Bank: "HDFC", Date: date, Amount: decimal.NewFromInt(-3)}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.txn.Validate()
			if tt.wantErr {
				assert.ErrorIs(t, err, common.ErrInvalidRow)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestValidateRow(t *testing.T) {
	valid := Row{"SBI", "2026-10-17 00:00:00", "500.00", "KPN", "Debit", "Grocery", "1111", "October", "2026"}

	tests := []struct {
		name    string
		row     Row
		wantErr bool
	}{
		{name: "valid row", row: valid},
		{name: "short row", row: valid[:8], wantErr: true},
		{name: "empty bank", row: append(Row{""}, valid[1:]...), wantErr: true},
		{name: "empty date", row: Row{"SBI", "", "500.00", "KPN", "Debit", "Grocery", "1111", "October", "2026"}, wantErr: true},
		{name: "text amount", row: Row{"SBI", "2026-10-17", "Not Found", "KPN", "Debit", "Grocery", "1111", "October", "2026"}, wantErr: true},
		{name: "negative amount", row: Row{"SBI", "2026-10-17", "-1", "KPN", "Debit", "Grocery", "1111", "October", "2026"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateRow(tt.row, LedgerColumns)
			if tt.wantErr {
				assert.ErrorIs(t, err, common.ErrInvalidRow)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestRowKey_NormalizesCellFormats(t *testing.T) {
	loc := time.UTC
	stored := Row{"Amex", "2026-10-17 00:00:00", "1200.00", "CROMA", "Debit", "Others", "12345", "October", "2026"}
	fromSheets := Row{"Amex", "46312", "1200", "CROMA", "Debit", "Others", "12345", "October", "2026"}

	a, err := RowKey(stored, loc)
	require.NoError(t, err)
	b, err := RowKey(fromSheets, loc)
	require.NoError(t, err)

	assert.Equal(t, a, b)
}

func TestRowKey_CardSuffixSurvivesNumberParsing(t *testing.T) {
	loc := time.UTC
	written := Row{"HDFC", "2026-10-17 10:00:00", "300.00", "ZOMATO", "Debit", "Food", "0456", "October", "2026"}
	readBack := Row{"HDFC", "2026-10-17 10:00:00", "300", " ZOMATO ", "Debit", "Food", "456", "October", "2026"}
	other := Row{"HDFC", "2026-10-17 10:00:00", "300.00", "ZOMATO", "Debit", "Food", "4560", "October", "2026"}

	a, err := RowKey(written, loc)
	require.NoError(t, err)
	b, err := RowKey(readBack, loc)
	require.NoError(t, err)
	c, err := RowKey(other, loc)
	require.NoError(t, err)

	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
}

func TestIsTextColumn(t *testing.T) {
	assert.True(t, IsTextColumn(ColDescription))
	assert.True(t, IsTextColumn(ColCardLast4))
	assert.False(t, IsTextColumn(ColAmount))
	assert.False(t, IsTextColumn(ColDate))
}

func TestHeaders(t *testing.T) {
	assert.Len(t, Header(), LedgerColumns)
	assert.Len(t, MasterHeader(), MasterColumns)
	assert.Equal(t, "Source", MasterHeader()[ColSource])
	assert.Equal(t, "Transaction Info", Header()[ColDescription])
}
