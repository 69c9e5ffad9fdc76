package handlers_test

import (
	"net/http"
	"testing"

	"github.com/abrezinsky/rafflehouse/internal/competition"
	"github.com/abrezinsky/rafflehouse/internal/handlers"
	"github.com/abrezinsky/rafflehouse/internal/models"
	"github.com/abrezinsky/rafflehouse/internal/services"
)

func TestSettings_GetAndUpdate(t *testing.T) {
	s := newTestSetup(t)

	var settings services.Settings
	decode(t, s.admin(t, http.MethodGet, "/api/admin/settings", nil), &settings)
	if settings.BaseURL != "" || settings.Protocol != protocolDefaults {
		t.Errorf("unexpected defaults: %+v", settings)
	}

	url := "https://raffle.example"
	rec := s.admin(t, http.MethodPut, "/api/admin/settings", handlers.SettingsUpdateRequest{BaseURL: &url})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	decode(t, rec, &settings)
	if settings.BaseURL != url {
		t.Errorf("expected updated base URL, got %q", settings.BaseURL)
	}
}

func TestProtocol_Update(t *testing.T) {
	s := newTestSetup(t)

	cfg := protocolDefaults
	cfg.FeeBasisPoints = 250
	rec := s.admin(t, http.MethodPut, "/api/admin/protocol", cfg)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var got competition.ProtocolConfig
	decode(t, rec, &got)
	if got.FeeBasisPoints != 250 {
		t.Errorf("expected fee rate 250, got %d", got.FeeBasisPoints)
	}

	// New competitions snapshot the new rate
	rec = s.do(t, http.MethodPost, "/api/competitions", "organizer", s.createRequest())
	var view competition.View
	decode(t, rec, &view)
	if view.FeeBasisPoints != 250 {
		t.Errorf("expected snapshotted rate 250, got %d", view.FeeBasisPoints)
	}

	cfg.FeeBasisPoints = 20000
	if rec := s.admin(t, http.MethodPut, "/api/admin/protocol", cfg); rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for fee over 100%%, got %d", rec.Code)
	}

	// Open competitions still owe fees at their snapshotted rate
	cfg = protocolDefaults
	cfg.FeeBasisPoints = 0
	cfg.FeeDestination = ""
	if rec := s.admin(t, http.MethodPut, "/api/admin/protocol", cfg); rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for cleared fee destination, got %d", rec.Code)
	}
}

func TestStats(t *testing.T) {
	s := newTestSetup(t)
	view := s.startCompetition(t)
	s.do(t, http.MethodPost, "/api/competitions/"+view.ID+"/tickets", "alice", handlers.TicketPurchaseRequest{Count: 3, Value: 300})

	rec := s.admin(t, http.MethodGet, "/api/admin/stats", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var stats models.Stats
	decode(t, rec, &stats)
	if stats.Studios != 1 || stats.Competitions != 1 || stats.TicketsSold != 3 {
		t.Errorf("unexpected stats: %+v", stats)
	}
}

func TestResetDatabase(t *testing.T) {
	s := newTestSetup(t)
	s.do(t, http.MethodPost, "/api/competitions", "organizer", s.createRequest())

	rec := s.admin(t, http.MethodPost, "/api/admin/reset-database", handlers.DatabaseResetRequest{Tables: []string{"events"}})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var result handlers.ResetResponse
	decode(t, rec, &result)
	if len(result.Tables) != 1 || result.Tables[0] != "events" {
		t.Errorf("unexpected reset result: %+v", result)
	}

	rec = s.admin(t, http.MethodPost, "/api/admin/reset-database", handlers.DatabaseResetRequest{Tables: []string{"studios"}})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for protected table, got %d", rec.Code)
	}
}

func TestAdminAssets(t *testing.T) {
	s := newTestSetup(t)

	rec := s.admin(t, http.MethodPost, "/api/admin/tokens", handlers.AssetCreateRequest{Symbol: "usd"})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create token: expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	var created handlers.AssetCreateResponse
	decode(t, rec, &created)
	if created.Symbol != "USD" {
		t.Errorf("expected USD, got %q", created.Symbol)
	}
	if rec := s.admin(t, http.MethodPost, "/api/admin/tokens", handlers.AssetCreateRequest{Symbol: "USD"}); rec.Code != http.StatusConflict {
		t.Errorf("duplicate token: expected 409, got %d", rec.Code)
	}
	if rec := s.admin(t, http.MethodPost, "/api/admin/collections", handlers.AssetCreateRequest{Symbol: "ART"}); rec.Code != http.StatusCreated {
		t.Errorf("create collection: expected 201, got %d", rec.Code)
	}

	if rec := s.admin(t, http.MethodPost, "/api/admin/faucet", handlers.MintRequest{To: "carol", Amount: 50}); rec.Code != http.StatusOK {
		t.Errorf("faucet: expected 200, got %d", rec.Code)
	}
	if rec := s.admin(t, http.MethodPost, "/api/admin/faucet", handlers.MintRequest{To: "carol"}); rec.Code != http.StatusBadRequest {
		t.Errorf("zero faucet: expected 400, got %d", rec.Code)
	}
	if rec := s.admin(t, http.MethodPost, "/api/admin/tokens/USD/mint", handlers.MintRequest{To: "carol", Amount: 7}); rec.Code != http.StatusOK {
		t.Errorf("mint token: expected 200, got %d", rec.Code)
	}
	rec = s.admin(t, http.MethodPost, "/api/admin/collections/ART/mint", handlers.ItemMintRequest{To: "carol"})
	if rec.Code != http.StatusCreated {
		t.Fatalf("mint item: expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	var minted handlers.ItemMintResponse
	decode(t, rec, &minted)

	var balances services.Balances
	decode(t, s.do(t, http.MethodGet, "/api/accounts/carol/balances", "", nil), &balances)
	if balances.Native != 50 || balances.Tokens["USD"] != 7 || len(balances.Items["ART"]) != 1 || balances.Items["ART"][0] != minted.Item {
		t.Errorf("unexpected balances: %+v", balances)
	}

	var list services.AssetList
	decode(t, s.do(t, http.MethodGet, "/api/assets", "", nil), &list)
	if len(list.Tokens) != 3 || len(list.Collections) != 2 {
		t.Errorf("unexpected assets: %+v", list)
	}
}

func TestCallerAssets(t *testing.T) {
	s := newTestSetup(t)

	rec := s.do(t, http.MethodPost, "/api/assets/tokens/LINK/transfer", "organizer", handlers.TokenTransferRequest{To: "alice", Amount: 40})
	if rec.Code != http.StatusOK {
		t.Fatalf("transfer: expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	rec = s.do(t, http.MethodPost, "/api/assets/tokens/LINK/transfer", "bob", handlers.TokenTransferRequest{To: "alice", Amount: 1})
	if rec.Code != http.StatusPaymentRequired {
		t.Errorf("unfunded transfer: expected 402, got %d", rec.Code)
	}

	s.do(t, http.MethodPost, "/api/assets/tokens/LINK/approve", "alice", handlers.TokenApproveRequest{Spender: "bob", Amount: 15})
	var allowance handlers.AllowanceResponse
	decode(t, s.do(t, http.MethodGet, "/api/assets/tokens/LINK/allowance?owner=alice&spender=bob", "", nil), &allowance)
	if allowance.Allowance != 15 {
		t.Errorf("expected allowance 15, got %d", allowance.Allowance)
	}
	if rec := s.do(t, http.MethodGet, "/api/assets/tokens/LINK/allowance?owner=alice", "", nil); rec.Code != http.StatusBadRequest {
		t.Errorf("missing spender: expected 400, got %d", rec.Code)
	}

	rec = s.admin(t, http.MethodPost, "/api/admin/collections/PUNK/mint", handlers.ItemMintRequest{To: "alice"})
	var minted handlers.ItemMintResponse
	decode(t, rec, &minted)

	if rec := s.do(t, http.MethodPost, "/api/assets/collections/PUNK/approve", "alice", handlers.ItemApproveRequest{Spender: "bob", Item: minted.Item}); rec.Code != http.StatusOK {
		t.Errorf("approve item: expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if rec := s.do(t, http.MethodPost, "/api/assets/collections/PUNK/operators", "alice", handlers.OperatorRequest{Operator: "market", Approved: true}); rec.Code != http.StatusOK {
		t.Errorf("set operator: expected 200, got %d", rec.Code)
	}
	if rec := s.do(t, http.MethodPost, "/api/assets/collections/NOPE/operators", "alice", handlers.OperatorRequest{Operator: "market"}); rec.Code != http.StatusNotFound {
		t.Errorf("unknown collection: expected 404, got %d", rec.Code)
	}
}
