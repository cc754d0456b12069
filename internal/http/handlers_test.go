package http

import (
	"encoding/json"
	"fmt"
	"net/http/httptest"
	"testing"
	"time"

	"backend/internal/ledger"
	"backend/internal/repository"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseID(t *testing.T) {
	id, err := parseID("42")
	require.NoError(t, err)
	assert.Equal(t, int64(42), id)

	_, err = parseID("0")
	assert.Error(t, err)

	_, err = parseID("-3")
	assert.Error(t, err)

	_, err = parseID("abc")
	assert.Error(t, err)
}

func TestParseOptionalInt(t *testing.T) {
	value, err := parseOptionalInt("", 200)
	require.NoError(t, err)
	assert.Equal(t, 200, value)

	value, err = parseOptionalInt("25", 200)
	require.NoError(t, err)
	assert.Equal(t, 25, value)

	_, err = parseOptionalInt("-1", 200)
	assert.Error(t, err)

	_, err = parseOptionalInt("x", 200)
	assert.Error(t, err)
}

func TestParseSaleDate(t *testing.T) {
	parsed, err := parseSaleDate("2025-03-10")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC), parsed)

	parsed, err = parseSaleDate("2025-03-10T14:30:00Z")
	require.NoError(t, err)
	assert.Equal(t, 14, parsed.Hour())

	_, err = parseSaleDate("10/03/2025")
	assert.Error(t, err)
}

func decodeBody(t *testing.T, recorder *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &body))
	return body
}

func testHandler() *Handler {
	return NewHandler(nil, zerolog.Nop())
}

func TestRespondSaleErrorInsufficientStock(t *testing.T) {
	recorder := httptest.NewRecorder()
	request := httptest.NewRequest("POST", "/api/v1/sales", nil)

	testHandler().respondSaleError(recorder, request, "create sale", &ledger.InsufficientStockError{Available: 2})

	assert.Equal(t, 409, recorder.Code)
	body := decodeBody(t, recorder)
	assert.Equal(t, float64(2), body["max_sellable"])
	assert.Contains(t, body["error"], "insufficient stock")
}

func TestRespondSaleErrorInvalidQuantity(t *testing.T) {
	recorder := httptest.NewRecorder()
	request := httptest.NewRequest("PATCH", "/api/v1/sales/9", nil)

	testHandler().respondSaleError(recorder, request, "update sale", &ledger.InvalidQuantityError{MaxSellable: 10})

	assert.Equal(t, 409, recorder.Code)
	body := decodeBody(t, recorder)
	assert.Equal(t, float64(10), body["max_sellable"])
}

func TestRespondSaleErrorVariantRequired(t *testing.T) {
	recorder := httptest.NewRecorder()
	request := httptest.NewRequest("POST", "/api/v1/sales", nil)

	testHandler().respondSaleError(recorder, request, "create sale", repository.ErrVariantRequired)

	assert.Equal(t, 400, recorder.Code)
}

func TestRespondErrorMapping(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		status int
	}{
		{"not found", repository.ErrNotFound, 404},
		{"wrapped not found", fmt.Errorf("get item 3: %w", repository.ErrNotFound), 404},
		{"sales history", repository.ErrSalesHistory, 409},
		{"invalid input", fmt.Errorf("%w: name is required", repository.ErrInvalidInput), 400},
		{"unknown", fmt.Errorf("connection reset"), 500},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			recorder := httptest.NewRecorder()
			request := httptest.NewRequest("DELETE", "/api/v1/items/3", nil)

			testHandler().respondError(recorder, request, "delete item", tc.err, "item not found")

			assert.Equal(t, tc.status, recorder.Code)
		})
	}
}
