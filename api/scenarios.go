/*
scenarios.go - Demo scenario loaders for testing and demonstrations

PURPOSE:

	Provides pre-built scenarios that populate the ledger with realistic
	data for demos. Every scenario goes through the same ledger operations
	a user would, so the data always satisfies the ledger's rules.

AVAILABLE SCENARIOS:

	first-sale:    two shirts bought, one sold, partial payment (owes 30.00)
	busy-month:    several customers, sales and payments across a month
	paid-ahead:    a customer who paid more than they bought (credit)
	stocking-up:   large purchase, few sales: negative profit, big stock

HOW SCENARIOS WORK:
 1. Reset storage (clear all data, restart ids)
 2. Register customers and products
 3. Register sales and payments

USAGE VIA API:

	POST /api/scenarios/load
	{"scenario_id": "first-sale"}

NOTE:

	Scenarios reset the data. Only use in development/demo environments.
*/
package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/warp/shirt-ledger/ledger"
	"go.uber.org/zap"
)

// =============================================================================
// SCENARIO DEFINITIONS
// =============================================================================

var scenarios = []ScenarioDTO{
	{
		ID:          "first-sale",
		Name:        "First Sale",
		Description: "Two shirts bought (25.00, 35.00), one sold for 50.00, 20.00 paid",
	},
	{
		ID:          "busy-month",
		Name:        "Busy Month",
		Description: "Three customers, six shirts, sales and payments through March",
	},
	{
		ID:          "paid-ahead",
		Name:        "Paid Ahead",
		Description: "Customer paid more than they bought and carries a credit",
	},
	{
		ID:          "stocking-up",
		Name:        "Stocking Up",
		Description: "Big purchase with few sales: negative profit, most value in stock",
	},
}

var scenarioLoaders = map[string]func(context.Context, *ledger.Ledger) error{
	"first-sale":  loadFirstSaleScenario,
	"busy-month":  loadBusyMonthScenario,
	"paid-ahead":  loadPaidAheadScenario,
	"stocking-up": loadStockingUpScenario,
}

// ListScenarios returns available scenarios.
func (h *Handler) ListScenarios(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, scenarios)
}

// GetCurrentScenario returns the currently loaded scenario, if any.
func (h *Handler) GetCurrentScenario(w http.ResponseWriter, r *http.Request) {
	h.mu.Lock()
	current := h.currentScenario
	h.mu.Unlock()

	for _, s := range scenarios {
		if s.ID == current {
			writeJSON(w, http.StatusOK, s)
			return
		}
	}
	writeJSON(w, http.StatusOK, nil)
}

// LoadScenario resets the data and loads a predefined scenario.
func (h *Handler) LoadScenario(w http.ResponseWriter, r *http.Request) {
	var req LoadScenarioRequest
	if !decodeBody(w, r, &req) {
		return
	}

	load, ok := scenarioLoaders[req.ScenarioID]
	if !ok {
		writeError(w, http.StatusBadRequest, "Unknown scenario", nil)
		return
	}

	if err := h.loadScenario(r.Context(), req.ScenarioID, load); err != nil {
		h.writeLedgerError(w, r, "load_scenario", err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "loaded", "scenario": req.ScenarioID})
}

// ResetData wipes every product, customer, sale and payment.
func (h *Handler) ResetData(w http.ResponseWriter, r *http.Request) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if err := h.store.Reset(r.Context()); err != nil {
		h.writeLedgerError(w, r, "reset", ledger.NewStorageError("reset", err))
		return
	}
	h.currentScenario = ""
	h.log.Warn("ledger data reset")
	writeJSON(w, http.StatusOK, map[string]string{"status": "reset"})
}

func (h *Handler) loadScenario(ctx context.Context, id string, load func(context.Context, *ledger.Ledger) error) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if err := h.store.Reset(ctx); err != nil {
		return ledger.NewStorageError("reset", err)
	}
	h.currentScenario = ""

	if err := load(ctx, h.Ledger); err != nil {
		return fmt.Errorf("scenario %s: %w", id, err)
	}

	h.currentScenario = id
	h.log.Info("scenario loaded", zap.String("scenario", id))
	return nil
}

// =============================================================================
// SCENARIO LOADERS
// =============================================================================

// scenarioBuilder threads the first error through a sequence of
// registrations so loaders read as a plain script.
type scenarioBuilder struct {
	ctx context.Context
	l   *ledger.Ledger
	err error
}

func (b *scenarioBuilder) customer(name, phone string) ledger.CustomerID {
	if b.err != nil {
		return 0
	}
	c, err := b.l.RegisterCustomer(b.ctx, ledger.Customer{Name: name, Phone: phone})
	b.err = err
	return c.ID
}

func (b *scenarioBuilder) product(description, size, price string, bought ledger.Date) ledger.ProductID {
	if b.err != nil {
		return 0
	}
	p, err := b.l.RegisterProduct(b.ctx, ledger.Product{
		Description:   description,
		Size:          size,
		PurchasePrice: ledger.MustMoney(price),
		PurchaseDate:  bought,
	})
	b.err = err
	return p.ID
}

func (b *scenarioBuilder) sell(product ledger.ProductID, customer ledger.CustomerID, price string, on ledger.Date) {
	if b.err != nil {
		return
	}
	_, b.err = b.l.RegisterSale(b.ctx, ledger.Sale{
		ProductID:  product,
		CustomerID: customer,
		SaleDate:   on,
		SalePrice:  ledger.MustMoney(price),
	})
}

func (b *scenarioBuilder) pay(customer ledger.CustomerID, amount string, on ledger.Date, note string) {
	if b.err != nil {
		return
	}
	_, b.err = b.l.RegisterPayment(b.ctx, ledger.Payment{
		CustomerID:  customer,
		PaymentDate: on,
		Amount:      ledger.MustMoney(amount),
		Note:        note,
	})
}

func march(day int) ledger.Date {
	return ledger.NewDate(2024, time.March, day)
}

func loadFirstSaleScenario(ctx context.Context, l *ledger.Ledger) error {
	b := &scenarioBuilder{ctx: ctx, l: l}

	carla := b.customer("Carla Mendes", "11 98888-1234")
	polo := b.product("Camisa polo azul marinho", "M", "25.00", march(1))
	b.product("Camisa social branca slim", "G", "35.00", march(1))

	b.sell(polo, carla, "50.00", march(4))
	b.pay(carla, "20.00", march(10), "entrada")
	return b.err
}

func loadBusyMonthScenario(ctx context.Context, l *ledger.Ledger) error {
	b := &scenarioBuilder{ctx: ctx, l: l}

	ana := b.customer("Ana Souza", "11 97777-0001")
	bruno := b.customer("Bruno Lima", "11 97777-0002")
	carla := b.customer("Carla Mendes", "11 97777-0003")

	shirts := []struct {
		description, size, price string
	}{
		{"Regata preta básica", "P", "12.00"},
		{"Camisa xadrez flanela", "G", "40.00"},
		{"Camiseta banda rock", "M", "18.50"},
		{"Camisa linho bege", "M", "55.00"},
		{"Camiseta estampa floral", "PP", "15.00"},
		{"Camisa jeans", "2G", "48.00"},
	}
	ids := make([]ledger.ProductID, len(shirts))
	for i, s := range shirts {
		ids[i] = b.product(s.description, s.size, s.price, march(1+i))
	}

	b.sell(ids[0], ana, "30.00", march(8))
	b.sell(ids[1], bruno, "79.90", march(9))
	b.sell(ids[2], ana, "39.90", march(15))
	b.sell(ids[3], carla, "99.00", march(20))

	b.pay(ana, "30.00", march(8), "pix")
	b.pay(bruno, "40.00", march(12), "dinheiro")
	b.pay(carla, "99.00", march(22), "cartão")
	b.pay(ana, "20.00", march(28), "pix")
	return b.err
}

func loadPaidAheadScenario(ctx context.Context, l *ledger.Ledger) error {
	b := &scenarioBuilder{ctx: ctx, l: l}

	diego := b.customer("Diego Rocha", "")
	tee := b.product("Camiseta dry-fit", "G", "20.00", march(2))

	b.pay(diego, "100.00", march(3), "adiantamento")
	b.sell(tee, diego, "45.00", march(5))
	return b.err
}

func loadStockingUpScenario(ctx context.Context, l *ledger.Ledger) error {
	b := &scenarioBuilder{ctx: ctx, l: l}

	eva := b.customer("Eva Martins", "11 96666-4321")
	var first ledger.ProductID
	for i, size := range ledger.KnownSizes {
		id := b.product(fmt.Sprintf("Camisa polo lote março #%d", i+1), size, "32.00", march(1))
		if i == 0 {
			first = id
		}
	}

	b.sell(first, eva, "60.00", march(18))
	b.pay(eva, "60.00", march(18), "")
	return b.err
}
