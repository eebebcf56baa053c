package handlers

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"cardvault/internal/cardsearch"
	"cardvault/internal/catalog"
	"cardvault/internal/config"
	"cardvault/internal/database"
	"cardvault/internal/metrics"
	"cardvault/internal/models"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeProvider struct {
	name  string
	cards []cardsearch.Card
}

func (p fakeProvider) Name() string { return p.name }

func (p fakeProvider) Search(_ context.Context, query string, page int) (*cardsearch.Result, error) {
	return &cardsearch.Result{Cards: p.cards, Total: len(p.cards)}, nil
}

type testServer struct {
	db     *sql.DB
	router *gin.Engine
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := database.Initialize(":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	require.NoError(t, database.Migrate(db))
	t.Cleanup(func() { db.Close() })

	cfg := &config.Config{Environment: "development", SessionDuration: time.Hour}
	search := cardsearch.NewWithProviders(metrics.Nop{}, fakeProvider{
		name: "pokemon",
		cards: []cardsearch.Card{
			{ExternalID: "base1-58", Name: "Pikachu", ImageURL: "https://img.example/pikachu.png", Source: "pokemon"},
		},
	})

	r := gin.New()
	SetupRoutes(r, db, cfg, Services{
		Catalog:    catalog.NewService(database.NewStore(db), metrics.Nop{}),
		CardSearch: search,
	})

	return &testServer{db: db, router: r}
}

func (s *testServer) do(t *testing.T, method, path string, cookie *http.Cookie, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if cookie != nil {
		req.AddCookie(cookie)
	}

	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func (s *testServer) register(t *testing.T, email string) *http.Cookie {
	t.Helper()

	w := s.do(t, http.MethodPost, "/api/auth/register", nil, gin.H{"email": email, "password": "password123"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	for _, cookie := range w.Result().Cookies() {
		if cookie.Name == "session_id" {
			return cookie
		}
	}
	t.Fatal("register did not set a session cookie")
	return nil
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

type errorBody struct {
	Error  string            `json:"error"`
	Errors map[string]string `json:"errors"`
}

func TestHealth(t *testing.T) {
	s := newTestServer(t)

	w := s.do(t, http.MethodGet, "/health", nil, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())
}

func TestRegisterAndLogin(t *testing.T) {
	s := newTestServer(t)

	w := s.do(t, http.MethodPost, "/api/auth/register", nil, gin.H{"email": "not-an-email", "password": "short"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	invalid := decode[errorBody](t, w)
	assert.Contains(t, invalid.Errors, "email")
	assert.Contains(t, invalid.Errors, "password")

	cookie := s.register(t, "owner@example.com")

	w = s.do(t, http.MethodPost, "/api/auth/register", nil, gin.H{"email": "owner@example.com", "password": "password123"})
	assert.Equal(t, http.StatusConflict, w.Code)

	w = s.do(t, http.MethodGet, "/api/auth/me", cookie, nil)
	require.Equal(t, http.StatusOK, w.Code)
	me := decode[struct {
		User struct {
			Email string `json:"email"`
			Name  string `json:"name"`
			Role  string `json:"role"`
		} `json:"user"`
	}](t, w)
	assert.Equal(t, "owner@example.com", me.User.Email)
	assert.Equal(t, "owner", me.User.Name)
	assert.Equal(t, "admin", me.User.Role)

	w = s.do(t, http.MethodPost, "/api/auth/login", nil, gin.H{"email": "owner@example.com", "password": "wrong-password"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "Invalid email or password", decode[errorBody](t, w).Error)

	w = s.do(t, http.MethodPost, "/api/auth/login", nil, gin.H{"email": "OWNER@example.com", "password": "password123"})
	assert.Equal(t, http.StatusOK, w.Code)

	w = s.do(t, http.MethodGet, "/api/auth/me", nil, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestExternalSearch(t *testing.T) {
	s := newTestServer(t)
	cookie := s.register(t, "owner@example.com")

	w := s.do(t, http.MethodGet, "/api/external/search?source=Pokemon&q=pika", cookie, nil)
	require.Equal(t, http.StatusOK, w.Code)
	result := decode[cardsearch.Result](t, w)
	require.Len(t, result.Cards, 1)
	assert.Equal(t, "Pikachu", result.Cards[0].Name)

	w = s.do(t, http.MethodGet, "/api/external/search?source=digimon&q=agumon", cookie, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, decode[cardsearch.Result](t, w).Cards)
}

func TestImportIntoBinderAndManageCards(t *testing.T) {
	s := newTestServer(t)
	owner := s.register(t, "owner@example.com")
	intruder := s.register(t, "intruder@example.com")

	w := s.do(t, http.MethodPost, "/api/binders", owner, gin.H{"name": "Kanto"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	binderID := decode[struct {
		Binder struct {
			ID int `json:"id"`
		} `json:"binder"`
	}](t, w).Binder.ID

	pikachu := gin.H{"name": "Pikachu", "image_url": "https://img.example/pikachu.png", "source": "pokemon"}
	cards := []gin.H{
		pikachu,
		{"name": "Charizard", "image_url": "https://img.example/charizard.png", "source": "pokemon"},
		pikachu,
	}

	w = s.do(t, http.MethodPost, "/api/external/import", owner, gin.H{"cards": cards, "binder_id": binderID})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	imported := decode[struct {
		ImportedIDs   []int               `json:"imported_ids"`
		Count         int                 `json:"count"`
		AddedToBinder []catalog.Placement `json:"added_to_binder"`
	}](t, w)

	require.Len(t, imported.ImportedIDs, 3)
	assert.Equal(t, 3, imported.Count)
	assert.Equal(t, imported.ImportedIDs[0], imported.ImportedIDs[2], "the same card resolves to one product")
	require.Len(t, imported.AddedToBinder, 3)
	for i, placement := range imported.AddedToBinder {
		assert.Equal(t, i, placement.Position)
	}

	w = s.do(t, http.MethodGet, fmt.Sprintf("/api/binders/%d", binderID), intruder, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = s.do(t, http.MethodPost, "/api/external/import", intruder, gin.H{"cards": cards[:1], "binder_id": binderID})
	assert.Equal(t, http.StatusForbidden, w.Code)

	first := imported.AddedToBinder[0].ID
	last := imported.AddedToBinder[2].ID
	w = s.do(t, http.MethodPost, fmt.Sprintf("/api/binders/%d/cards/reorder", binderID), owner, gin.H{
		"positions": map[string]int{fmt.Sprint(first): 8, fmt.Sprint(last): 0},
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = s.do(t, http.MethodPost, fmt.Sprintf("/api/binders/%d/cards/toggle", binderID), owner, gin.H{"card_id": first})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	toggled := decode[struct {
		IsCollected    bool `json:"is_collected"`
		CollectedCount int  `json:"collected_count"`
	}](t, w)
	assert.True(t, toggled.IsCollected)
	assert.Equal(t, 1, toggled.CollectedCount)

	w = s.do(t, http.MethodGet, fmt.Sprintf("/api/binders/%d/cards", binderID), owner, nil)
	require.Equal(t, http.StatusOK, w.Code)
	listing := decode[struct {
		Cards []struct {
			ID       int `json:"id"`
			Position int `json:"position"`
		} `json:"cards"`
		CardCount int `json:"card_count"`
	}](t, w)
	assert.Equal(t, 3, listing.CardCount)
	positions := map[int]int{}
	for _, card := range listing.Cards {
		positions[card.ID] = card.Position
	}
	assert.Equal(t, 8, positions[first])
	assert.Equal(t, 0, positions[last])

	w = s.do(t, http.MethodPost, fmt.Sprintf("/api/binders/%d/cards/remove", binderID), owner, gin.H{"card_id": first})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, 2, decode[struct {
		CardCount int `json:"card_count"`
	}](t, w).CardCount)

	w = s.do(t, http.MethodDelete, fmt.Sprintf("/api/binders/%d", binderID), intruder, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = s.do(t, http.MethodDelete, fmt.Sprintf("/api/binders/%d", binderID), owner, nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = s.do(t, http.MethodGet, fmt.Sprintf("/api/binders/%d", binderID), owner, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestImportEdgeCasesAndAddCards(t *testing.T) {
	s := newTestServer(t)
	owner := s.register(t, "owner@example.com")

	w := s.do(t, http.MethodPost, "/api/external/import", owner, gin.H{"cards": []gin.H{}})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.JSONEq(t, `{"success":true,"imported_ids":[],"count":0,"added_to_binder":[]}`, w.Body.String())

	charizard := gin.H{"name": "Charizard", "image_url": "https://img.example/charizard.png", "source": "pokemon"}
	w = s.do(t, http.MethodPost, "/api/external/import", owner, gin.H{"cards": []gin.H{charizard}, "binder_id": 0})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	imported := decode[struct {
		ImportedIDs   []int               `json:"imported_ids"`
		AddedToBinder []catalog.Placement `json:"added_to_binder"`
	}](t, w)
	require.Len(t, imported.ImportedIDs, 1)
	assert.Empty(t, imported.AddedToBinder)

	w = s.do(t, http.MethodPost, "/api/binders", owner, nil)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	binderID := decode[struct {
		Binder struct {
			ID int `json:"id"`
		} `json:"binder"`
	}](t, w).Binder.ID

	productID := imported.ImportedIDs[0]
	w = s.do(t, http.MethodPost, fmt.Sprintf("/api/binders/%d/cards/add", binderID), owner, gin.H{"product_ids": []int{productID, productID}})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	added := decode[struct {
		Added     []catalog.Placement `json:"added"`
		CardCount int                 `json:"card_count"`
	}](t, w)
	assert.Len(t, added.Added, 2)
	assert.Equal(t, 2, added.CardCount)
}

func TestAdminRoutesRequireAdmin(t *testing.T) {
	s := newTestServer(t)
	admin := s.register(t, "owner@example.com")
	customer := s.register(t, "buyer@example.com")

	w := s.do(t, http.MethodGet, "/api/admin/dashboard", customer, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = s.do(t, http.MethodGet, "/api/admin/dashboard", nil, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = s.do(t, http.MethodGet, "/api/admin/dashboard", admin, nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = s.do(t, http.MethodPost, "/api/admin/orders/1/status", admin, gin.H{"status": "teleported"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSupportTicketsAndWallet(t *testing.T) {
	s := newTestServer(t)
	admin := s.register(t, "owner@example.com")
	customer := s.register(t, "buyer@example.com")

	w := s.do(t, http.MethodPost, "/api/tickets", customer, gin.H{"subject": "Wrong condition", "description": "Card arrived LP"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	opened := decode[struct {
		Ticket models.Ticket `json:"ticket"`
	}](t, w)
	assert.Equal(t, models.TicketOpen, opened.Ticket.Status)
	assert.Equal(t, "normal", opened.Ticket.Priority)

	path := fmt.Sprintf("/api/admin/tickets/%d/status", opened.Ticket.ID)
	w = s.do(t, http.MethodPost, path, admin, gin.H{"status": "escalated"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(t, http.MethodPost, path, admin, gin.H{"status": models.TicketResolved, "priority": "high"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	resolved := decode[struct {
		Ticket models.Ticket `json:"ticket"`
	}](t, w)
	assert.Equal(t, models.TicketResolved, resolved.Ticket.Status)
	assert.Equal(t, "high", resolved.Ticket.Priority)

	w = s.do(t, http.MethodGet, "/api/tickets", customer, nil)
	require.Equal(t, http.StatusOK, w.Code)
	mine := decode[struct {
		Tickets []models.Ticket `json:"tickets"`
	}](t, w)
	require.Len(t, mine.Tickets, 1)
	assert.Equal(t, models.TicketResolved, mine.Tickets[0].Status)

	w = s.do(t, http.MethodPost, "/api/messages", customer, gin.H{"subject": "Hello", "content": "Do you buy collections?"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = s.do(t, http.MethodGet, "/api/admin/messages", admin, nil)
	require.Equal(t, http.StatusOK, w.Code)
	inbox := decode[struct {
		Messages []models.Message `json:"messages"`
		Unread   int              `json:"unread"`
	}](t, w)
	require.Len(t, inbox.Messages, 1)
	assert.Equal(t, 1, inbox.Unread)
	assert.Equal(t, "buyer@example.com", inbox.Messages[0].UserEmail)

	w = s.do(t, http.MethodPost, "/api/admin/wallet/credit", admin, gin.H{"amount": 50})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	w = s.do(t, http.MethodPost, "/api/admin/wallet/debit", admin, gin.H{"amount": 20, "description": "Shipping supplies"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	w = s.do(t, http.MethodPost, "/api/admin/wallet/debit", admin, gin.H{"amount": -5})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(t, http.MethodGet, "/api/admin/wallet", admin, nil)
	require.Equal(t, http.StatusOK, w.Code)
	wallet := decode[database.WalletSummary](t, w)
	assert.Equal(t, 30.0, wallet.Balance)
	assert.Len(t, wallet.Transactions, 2)

	w = s.do(t, http.MethodGet, "/api/admin/wallet", customer, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestCartAndCheckout(t *testing.T) {
	s := newTestServer(t)
	admin := s.register(t, "owner@example.com")
	customer := s.register(t, "buyer@example.com")

	w := s.do(t, http.MethodPost, "/api/admin/inventory", admin, gin.H{
		"name":     "Lightning Bolt",
		"set_code": "LEA",
		"price":    2.5,
		"quantity": 3,
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	created := decode[struct {
		Product struct {
			ID     int    `json:"id"`
			Slug   string `json:"slug"`
			Stocks []struct {
				ID int `json:"id"`
			} `json:"stocks"`
		} `json:"product"`
	}](t, w)
	require.Len(t, created.Product.Stocks, 1)
	stockID := created.Product.Stocks[0].ID

	w = s.do(t, http.MethodGet, "/api/products/slug/"+created.Product.Slug, nil, nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = s.do(t, http.MethodPost, "/api/admin/coupons", admin, gin.H{
		"code":           "half",
		"discount_type":  "percentage",
		"discount_value": 50,
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = s.do(t, http.MethodPost, "/api/checkout", customer, gin.H{"shipping_name": "Buyer", "shipping_address": "1 Road"})
	assert.Equal(t, http.StatusBadRequest, w.Code, "empty cart")

	w = s.do(t, http.MethodPost, "/api/cart", customer, gin.H{"stock_id": stockID, "quantity": 2})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = s.do(t, http.MethodPost, "/api/cart", customer, gin.H{"stock_id": stockID, "quantity": 2})
	assert.Equal(t, http.StatusBadRequest, w.Code, "more than in stock")

	w = s.do(t, http.MethodGet, "/api/cart", customer, nil)
	require.Equal(t, http.StatusOK, w.Code)
	cart := decode[struct {
		Items []struct {
			ID       int `json:"id"`
			Quantity int `json:"quantity"`
		} `json:"items"`
		Subtotal float64 `json:"subtotal"`
	}](t, w)
	require.Len(t, cart.Items, 1)
	assert.Equal(t, 5.0, cart.Subtotal)

	// No quantity in the body means one copy, not removal.
	w = s.do(t, http.MethodPut, fmt.Sprintf("/api/cart/%d", cart.Items[0].ID), customer, gin.H{})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	items, err := database.GetCartItems(s.db, 2)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, 1, items[0].Quantity)

	w = s.do(t, http.MethodPut, fmt.Sprintf("/api/cart/%d", cart.Items[0].ID), customer, gin.H{"quantity": 2})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = s.do(t, http.MethodPost, "/api/checkout", customer, gin.H{
		"shipping_name":    "Buyer",
		"shipping_address": "1 Road",
		"coupon_code":      "HALF",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	order := decode[struct {
		Order struct {
			ID       int     `json:"id"`
			Total    float64 `json:"total"`
			Discount float64 `json:"discount"`
		} `json:"order"`
	}](t, w).Order
	assert.Equal(t, 2.5, order.Total)
	assert.Equal(t, 2.5, order.Discount)

	w = s.do(t, http.MethodGet, fmt.Sprintf("/api/orders/%d", order.ID), customer, nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = s.do(t, http.MethodGet, fmt.Sprintf("/api/orders/%d", order.ID), admin, nil)
	assert.Equal(t, http.StatusNotFound, w.Code, "another customer's order")

	w = s.do(t, http.MethodPost, fmt.Sprintf("/api/admin/orders/%d/status", order.ID), admin, gin.H{"status": "shipped"})
	assert.Equal(t, http.StatusOK, w.Code, w.Body.String())

	stock, err := database.GetStock(s.db, stockID)
	require.NoError(t, err)
	assert.Equal(t, 1, stock.Quantity)
}

func TestRespondErrorHidesInternalCauses(t *testing.T) {
	gin.SetMode(gin.TestMode)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/api/anything", nil)

	respondError(c, fmt.Errorf("failed to query: %w", sql.ErrConnDone), "load things")

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.JSONEq(t, `{"error":"Failed to load things"}`, w.Body.String())
}

func TestRespondErrorMapsDatabaseSentinels(t *testing.T) {
	gin.SetMode(gin.TestMode)

	cases := []struct {
		err    error
		status int
	}{
		{fmt.Errorf("binder %w", database.ErrNotFound), http.StatusNotFound},
		{fmt.Errorf("email x %w", database.ErrDuplicate), http.StatusConflict},
		{database.ErrInsufficientStock, http.StatusBadRequest},
		{database.ErrEmptyCart, http.StatusBadRequest},
		{&database.OutOfStockError{ProductName: "Bolt", Requested: 2, Available: 1}, http.StatusConflict},
	}

	for _, tc := range cases {
		w := httptest.NewRecorder()
		c, _ := gin.CreateTestContext(w)
		c.Request = httptest.NewRequest(http.MethodGet, "/", nil)

		respondError(c, tc.err, "do it")
		assert.Equal(t, tc.status, w.Code, tc.err.Error())
	}
}
