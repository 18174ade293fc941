/*
scenarios_test.go - Tests for demo scenarios

PURPOSE:
	Each scenario must load through the ledger without error and leave the
	figures its description promises. These double as integration tests of
	the ledger over SQLite.
*/
package api

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/shirt-ledger/ledger"
	"github.com/warp/shirt-ledger/ledger/store"
)

func loadScenario(t *testing.T, router http.Handler, id string) {
	t.Helper()
	rec := do(t, router, "POST", "/api/scenarios/load", LoadScenarioRequest{ScenarioID: id})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
}

func TestScenario_FirstSale(t *testing.T) {
	h, router := setupTestServer(t)
	ctx := context.Background()

	loadScenario(t, router, "first-sale")

	balance, err := h.Ledger.Balance(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, "30.00", balance.String())

	stock, err := h.Ledger.StockProducts(ctx)
	require.NoError(t, err)
	require.Len(t, stock, 1)
	assert.Equal(t, "35.00", stock[0].PurchasePrice.String())

	rec := do(t, router, "GET", "/api/scenarios/current", nil)
	assert.Equal(t, "first-sale", decode[ScenarioDTO](t, rec).ID)
}

func TestScenario_BusyMonth(t *testing.T) {
	h, router := setupTestServer(t)
	ctx := context.Background()

	loadScenario(t, router, "busy-month")

	// Ana: 30.00 + 39.90 sold, 30.00 + 20.00 paid
	balance, err := h.Ledger.Balance(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, "19.90", balance.String())

	sum, err := h.Ledger.Summary(ctx)
	require.NoError(t, err)
	assert.Equal(t, "188.50", sum.TotalSpent.String())
	assert.Equal(t, "248.80", sum.TotalReceived.String())
	assert.Equal(t, "60.30", sum.Profit.String())
	assert.Equal(t, 4, sum.SoldCount)
}

func TestScenario_PaidAhead(t *testing.T) {
	h, router := setupTestServer(t)

	loadScenario(t, router, "paid-ahead")

	balance, err := h.Ledger.Balance(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, "-55.00", balance.String())
}

func TestScenario_StockingUp(t *testing.T) {
	h, router := setupTestServer(t)

	loadScenario(t, router, "stocking-up")

	sum, err := h.Ledger.Summary(context.Background())
	require.NoError(t, err)
	assert.Equal(t, len(ledger.KnownSizes), sum.ProductCount)
	assert.True(t, sum.Profit.IsNegative())
	assert.Len(t, sum.Stock, len(ledger.KnownSizes)-1)
}

func TestScenario_LoadReplacesPreviousData(t *testing.T) {
	h, router := setupTestServer(t)

	loadScenario(t, router, "busy-month")
	loadScenario(t, router, "first-sale")

	products, err := h.Ledger.ListProducts(context.Background())
	require.NoError(t, err)
	assert.Len(t, products, 2)
	assert.Equal(t, ledger.ProductID(1), products[0].ID, "ids restart after reset")
}

func TestScenario_Unknown(t *testing.T) {
	_, router := setupTestServer(t)

	rec := do(t, router, "POST", "/api/scenarios/load", LoadScenarioRequest{ScenarioID: "black-friday"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestScenario_AllScenariosLoadOnMemoryStore(t *testing.T) {
	mem := store.NewMemory()
	h := NewHandler(ledger.New(mem), mem, nil)
	router := NewRouter(h, nil)

	rec := do(t, router, "GET", "/api/scenarios", nil)
	listed := decode[[]ScenarioDTO](t, rec)
	require.Len(t, listed, len(scenarioLoaders))

	for _, s := range listed {
		t.Run(s.ID, func(t *testing.T) {
			loadScenario(t, router, s.ID)
		})
	}

	rec = do(t, router, "POST", "/api/scenarios/reset", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	products, err := h.Ledger.ListProducts(context.Background())
	require.NoError(t, err)
	assert.Empty(t, products)
}
