package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"go-inventory-uom/internal/config"
	"go-inventory-uom/internal/middleware"
	"go-inventory-uom/internal/model"
	"go-inventory-uom/internal/repository"
	"go-inventory-uom/internal/scheduler"
	"go-inventory-uom/internal/service"
	"go-inventory-uom/internal/storage"

	"github.com/gofiber/fiber/v2"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type testServer struct {
	app   *fiber.App
	stock *service.StockManager
}

func newTestServer(t *testing.T, privileges ...string) *testServer {
	t.Helper()
	ctx := context.Background()
	store := storage.NewMemoryStore()

	items := repository.NewItemRepo(store)
	if err := items.SaveAll(ctx, []model.Item{
		{Code: "AQUA-DUS", Name: "Aqua 1L Dus", Unit: "dus", Stock: 10, BaseProduct: "AQUA-1L"},
		{Code: "AQUA-PCS", Name: "Aqua 1L Pcs", Unit: "pcs", Stock: 50, BaseProduct: "AQUA-1L"},
	}); err != nil {
		t.Fatal(err)
	}
	ratios := repository.NewRatioRepo(store)
	if err := ratios.SaveAll(ctx, []model.ConversionRatio{
		{BaseProduct: "AQUA-1L", Conversions: []model.Conversion{{From: "dus", To: "pcs", Ratio: 12}}},
	}); err != nil {
		t.Fatal(err)
	}

	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	if err != nil {
		t.Fatal(err)
	}
	sqlDB, _ := db.DB()
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })
	if err := db.AutoMigrate(&model.TransformationLog{}); err != nil {
		t.Fatal(err)
	}

	calc, err := service.NewConversionCalculator(ctx, ratios, nil)
	if err != nil {
		t.Fatal(err)
	}
	stock, err := service.NewStockManager(items, service.StockManagerOptions{})
	if err != nil {
		t.Fatal(err)
	}
	manager, err := service.NewTransformationManager(service.TransformationManagerDeps{
		Calculator: calc,
		Stock:      stock,
		Audit:      repository.NewAuditRepo(db),
	})
	if err != nil {
		t.Fatal(err)
	}
	backups := repository.NewBackupRepo(store)
	runner := scheduler.NewScheduler(config.BackupConfig{}, stock, backups, nil)

	app := fiber.New()
	api := app.Group("/api/v1", func(c *fiber.Ctx) error {
		c.Locals("user_id", "op-1")
		c.Locals("user_name", "Kasir Satu")
		c.Locals("user_privileges", privileges)
		return c.Next()
	})
	Register(api,
		NewTransformationHandler(manager),
		NewStockHandler(stock, backups, runner, nil, nil),
		NewMasterDataHandler(stock, calc),
	)
	return &testServer{app: app, stock: stock}
}

func (s *testServer) do(t *testing.T, method, path string, body any) (int, []byte) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatal(err)
		}
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := s.app.Test(req, -1)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	out, _ := io.ReadAll(resp.Body)
	return resp.StatusCode, out
}

func decode[T any](t *testing.T, raw []byte) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(raw, &v); err != nil {
		t.Fatalf("decode %s: %v", raw, err)
	}
	return v
}

func TestExecuteTransformationEndpoint(t *testing.T) {
	s := newTestServer(t, middleware.PrivilegeTransformationExecute)

	status, body := s.do(t, http.MethodPost, "/api/v1/transformations", fiber.Map{
		"sourceItemId": "AQUA-DUS", "targetItemId": "AQUA-PCS", "quantity": 1, "user": "spoofed",
	})
	if status != http.StatusCreated {
		t.Fatalf("status = %d: %s", status, body)
	}
	resp := decode[struct {
		Data model.TransformationRecord `json:"data"`
	}](t, body)
	if resp.Data.Status != model.StatusCompleted || resp.Data.TargetItem.Quantity != 12 || resp.Data.User != "Kasir Satu" {
		t.Fatalf("record = %+v", resp.Data)
	}

	status, body = s.do(t, http.MethodGet, "/api/v1/stock/AQUA-PCS", nil)
	if status != http.StatusOK {
		t.Fatalf("status = %d", status)
	}
	if bal := decode[map[string]any](t, body); bal["stock"].(float64) != 62 {
		t.Fatalf("balance = %v", bal)
	}

	status, body = s.do(t, http.MethodGet, "/api/v1/transformations/"+resp.Data.ID, nil)
	if status != http.StatusOK {
		t.Fatalf("get by id status = %d: %s", status, body)
	}
	status, body = s.do(t, http.MethodGet, "/api/v1/transformations/history?item=AQUA-DUS&status=completed", nil)
	if status != http.StatusOK || len(decode[[]model.TransformationRecord](t, body)) != 1 {
		t.Fatalf("history = %d: %s", status, body)
	}
}

func TestExecuteTransformationRejectsInvalid(t *testing.T) {
	s := newTestServer(t, middleware.PrivilegeTransformationExecute)

	status, body := s.do(t, http.MethodPost, "/api/v1/transformations", fiber.Map{
		"sourceItemId": "AQUA-DUS", "targetItemId": "AQUA-PCS", "quantity": 20,
	})
	if status != http.StatusBadRequest {
		t.Fatalf("status = %d: %s", status, body)
	}
	resp := decode[struct {
		Errors []string `json:"errors"`
	}](t, body)
	if len(resp.Errors) == 0 {
		t.Fatalf("errors not surfaced: %s", body)
	}
	if got, _ := s.stock.GetStockBalance(context.Background(), "AQUA-DUS"); got != 10 {
		t.Fatalf("stock changed to %v", got)
	}
}

func TestExecuteTransformationRequiresPrivilege(t *testing.T) {
	s := newTestServer(t)
	status, _ := s.do(t, http.MethodPost, "/api/v1/transformations", fiber.Map{
		"sourceItemId": "AQUA-DUS", "targetItemId": "AQUA-PCS", "quantity": 1,
	})
	if status != http.StatusForbidden {
		t.Fatalf("status = %d, want 403", status)
	}
}

func TestReadEndpoints(t *testing.T) {
	s := newTestServer(t)
	tests := []struct {
		name   string
		method string
		path   string
		body   any
		want   int
	}{
		{"transformable items", http.MethodGet, "/api/v1/transformations/items", nil, 200},
		{"options", http.MethodGet, "/api/v1/transformations/options/AQUA-1L", nil, 200},
		{"validate", http.MethodPost, "/api/v1/transformations/validate", fiber.Map{"sourceItemId": "AQUA-DUS", "targetItemId": "AQUA-PCS", "quantity": 20}, 200},
		{"preview", http.MethodPost, "/api/v1/transformations/preview", fiber.Map{"sourceItemId": "AQUA-DUS", "targetItemId": "AQUA-PCS", "quantity": 2}, 200},
		{"bad history status", http.MethodGet, "/api/v1/transformations/history?status=done", nil, 400},
		{"unknown record", http.MethodGet, "/api/v1/transformations/not-a-uuid", nil, 404},
		{"statistics", http.MethodGet, "/api/v1/stock/statistics", nil, 200},
		{"unknown stock", http.MethodGet, "/api/v1/stock/NOPE", nil, 404},
		{"bulk", http.MethodPost, "/api/v1/stock/bulk", fiber.Map{"itemIds": []string{"AQUA-DUS", "NOPE"}}, 200},
		{"empty bulk", http.MethodPost, "/api/v1/stock/bulk", fiber.Map{"itemIds": []string{}}, 400},
		{"no backup yet", http.MethodGet, "/api/v1/stock/backup", nil, 404},
		{"items", http.MethodGet, "/api/v1/items", nil, 200},
		{"ratios", http.MethodGet, "/api/v1/conversion-ratios", nil, 200},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if status, body := s.do(t, tt.method, tt.path, tt.body); status != tt.want {
				t.Fatalf("status = %d, want %d: %s", status, tt.want, body)
			}
		})
	}
}

func TestValidateEndpointReturnsAllErrors(t *testing.T) {
	s := newTestServer(t)
	_, body := s.do(t, http.MethodPost, "/api/v1/transformations/validate", fiber.Map{
		"sourceItemId": "AQUA-DUS", "targetItemId": "AQUA-PCS", "quantity": 20,
	})
	result := decode[model.ValidationResult](t, body)
	if result.IsValid || len(result.Errors) < 2 {
		t.Fatalf("result = %+v", result)
	}
}

func TestBackupAndRestoreEndpoints(t *testing.T) {
	s := newTestServer(t, middleware.PrivilegeStockRestore)
	ctx := context.Background()

	if status, body := s.do(t, http.MethodPost, "/api/v1/stock/backup", nil); status != http.StatusCreated {
		t.Fatalf("backup status = %d: %s", status, body)
	}
	if _, err := s.stock.UpdateStock(ctx, "AQUA-PCS", "pcs", -20); err != nil {
		t.Fatal(err)
	}

	status, body := s.do(t, http.MethodPost, "/api/v1/stock/restore", nil)
	if status != http.StatusOK {
		t.Fatalf("restore status = %d: %s", status, body)
	}
	if got, _ := s.stock.GetStockBalance(ctx, "AQUA-PCS"); got != 50 {
		t.Fatalf("restored stock = %v, want 50", got)
	}
}

func TestMasterDataPush(t *testing.T) {
	s := newTestServer(t, middleware.PrivilegeMasterWrite)

	items := []fiber.Map{
		{"code": "AQUA-DUS", "name": "Aqua 1L Dus", "unit": "dus", "stock": 3, "baseProduct": "AQUA-1L", "hargaJual": 48000},
		{"code": "AQUA-PCS", "name": "Aqua 1L Pcs", "unit": "pcs", "stock": 0, "baseProduct": "AQUA-1L"},
	}
	if status, body := s.do(t, http.MethodPut, "/api/v1/items", items); status != http.StatusOK {
		t.Fatalf("push items status = %d: %s", status, body)
	}
	_, body := s.do(t, http.MethodGet, "/api/v1/items", nil)
	got := decode[[]map[string]any](t, body)
	if len(got) != 2 || got[0]["stock"].(float64) != 3 || got[0]["hargaJual"].(float64) != 48000 {
		t.Fatalf("items = %v", got)
	}

	bad := []fiber.Map{{"baseProduct": "AQUA-1L", "conversions": []fiber.Map{{"from": "dus", "to": "pcs", "ratio": -1}}}}
	if status, _ := s.do(t, http.MethodPut, "/api/v1/conversion-ratios", bad); status != http.StatusBadRequest {
		t.Fatalf("bad ratios status = %d, want 400", status)
	}
}
