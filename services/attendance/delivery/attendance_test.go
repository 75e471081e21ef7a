package delivery

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/bytedance/sonic"
	"github.com/gofiber/fiber/v2"

	"siapguru/config"
	"siapguru/domain"
	"siapguru/middleware"
	"siapguru/services/attendance/repository"
	"siapguru/services/attendance/usecase"
)

type envelope struct {
	Success bool                   `json:"success"`
	Message string                 `json:"message"`
	Error   string                 `json:"error"`
	Data    map[string]interface{} `json:"data"`
}

func newTestApp(t *testing.T) *fiber.App {
	t.Helper()
	t.Setenv("JWT_KEY", "test-secret")
	config.GetLogrusInstance().SetOutput(io.Discard)

	cache, err := repository.NewFileCache(t.TempDir(), "snapshot")
	if err != nil {
		t.Fatalf("cache: %v", err)
	}
	rec := usecase.NewSyncReconciler(repository.NewMemoryStore(), cache, config.GetLogrusInstance(), time.Second, time.Second)
	uc := usecase.NewAttendanceUseCase(rec, time.Minute)

	ctx := context.Background()
	if _, err := uc.UpdateTeachers(ctx, []domain.Teacher{{ID: "BS", FullName: "Budi Santoso"}}); err != nil {
		t.Fatalf("seed teachers: %v", err)
	}
	if _, err := uc.UpdateTimetable(ctx, []domain.TimetableSlot{
		{Day: domain.Monday, Period: "1", Activity: domain.ActivityLesson, Mapping: map[string]string{"7A": "MTK-BS", "7B": "IPA-AR"}},
	}); err != nil {
		t.Fatalf("seed timetable: %v", err)
	}

	app := fiber.New(config.GetFiberConfig())
	NewAttendanceDelivery(app, uc)
	return app
}

func token(t *testing.T, role, classID string) string {
	t.Helper()
	tok, err := middleware.GenerateJWT("tester", role, classID)
	if err != nil {
		t.Fatalf("token: %v", err)
	}
	return "Bearer " + tok
}

func call(t *testing.T, app *fiber.App, method, target, auth, body string) (int, envelope) {
	t.Helper()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if auth != "" {
		req.Header.Set("Authorization", auth)
	}
	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatalf("%s %s: %v", method, target, err)
	}
	defer resp.Body.Close()

	raw, _ := io.ReadAll(resp.Body)
	var env envelope
	_ = sonic.Unmarshal(raw, &env)
	return resp.StatusCode, env
}

func TestAttendanceDelivery_Auth(t *testing.T) {
	app := newTestApp(t)

	if code, _ := call(t, app, http.MethodGet, "/attendance/status", "", ""); code != fiber.StatusUnauthorized {
		t.Fatalf("want 401 without token, got %d", code)
	}
	if code, _ := call(t, app, http.MethodGet, "/attendance/status", "Bearer garbage", ""); code != fiber.StatusUnauthorized {
		t.Fatalf("want 401 for a bad token, got %d", code)
	}

	reporter := token(t, domain.RoleReporter, "7A")
	if code, _ := call(t, app, http.MethodGet, "/attendance/blocks?date=2025-01-06&class=7B", reporter, ""); code != fiber.StatusForbidden {
		t.Fatalf("want 403 for another class, got %d", code)
	}
	if code, _ := call(t, app, http.MethodPost, "/attendance/permits", reporter, `{}`); code != fiber.StatusForbidden {
		t.Fatalf("want 403 for reporter permits, got %d", code)
	}
}

func TestAttendanceDelivery_PermitFlow(t *testing.T) {
	app := newTestApp(t)
	admin := token(t, domain.RoleAdmin, "")
	reporter := token(t, domain.RoleReporter, "7A")

	code, env := call(t, app, http.MethodPost, "/attendance/permits", admin,
		`{"teacher_id":"BS","date":"2025-01-06","status":"SICK","scope":"WHOLE_DAY","note":"Flu"}`)
	if code != fiber.StatusOK || !env.Success {
		t.Fatalf("permit: %d %+v", code, env)
	}
	applied, _ := env.Data["applied"].([]interface{})
	if len(applied) != 1 || applied[0] != "2025-01-06|7A|1" {
		t.Fatalf("unexpected applied ids %+v", env.Data)
	}

	code, env = call(t, app, http.MethodGet, "/attendance/blocks?date=2025-01-06&class=7A", reporter, "")
	if code != fiber.StatusOK {
		t.Fatalf("blocks: %d %+v", code, env)
	}
	blocks, _ := env.Data["blocks"].([]interface{})
	if len(blocks) != 1 {
		t.Fatalf("want one block, got %+v", env.Data)
	}
	block := blocks[0].(map[string]interface{})
	if block["status"] != "SICK" || block["is_admin_override"] != true {
		t.Fatalf("unexpected block %+v", block)
	}

	code, env = call(t, app, http.MethodPost, "/attendance/reports", reporter,
		`{"date":"2025-01-06","class_id":"7A","blocks":[{"periods":["1"],"status":"PRESENT"}]}`)
	if code != fiber.StatusOK {
		t.Fatalf("report: %d %+v", code, env)
	}
	if skipped, _ := env.Data["skipped"].([]interface{}); len(skipped) != 1 {
		t.Fatalf("override must be skipped, got %+v", env.Data)
	}
}

func TestAttendanceDelivery_Errors(t *testing.T) {
	app := newTestApp(t)
	admin := token(t, domain.RoleAdmin, "")

	tests := []struct {
		name   string
		method string
		target string
		body   string
		want   int
	}{
		{"teacher without lessons", http.MethodPost, "/attendance/permits", `{"teacher_id":"BS","date":"2025-01-07","status":"SICK","scope":"WHOLE_DAY"}`, fiber.StatusUnprocessableEntity},
		{"specific scope without periods", http.MethodPost, "/attendance/permits", `{"teacher_id":"BS","date":"2025-01-06","status":"SICK","scope":"SPECIFIC_PERIODS"}`, fiber.StatusBadRequest},
		{"bad date", http.MethodGet, "/attendance/obligations?date=06-01-2025&class=7A", "", fiber.StatusBadRequest},
		{"missing class", http.MethodGet, "/attendance/blocks?date=2025-01-06", "", fiber.StatusBadRequest},
		{"unknown config", http.MethodPut, "/attendance/config/students", `[]`, fiber.StatusNotFound},
		{"report without class", http.MethodPost, "/attendance/reports", `{"date":"2025-01-06"}`, fiber.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, env := call(t, app, tt.method, tt.target, admin, tt.body)
			if code != tt.want || env.Success {
				t.Fatalf("want %d, got %d %+v", tt.want, code, env)
			}
		})
	}
}

func TestAttendanceDelivery_ReadEndpoints(t *testing.T) {
	app := newTestApp(t)
	admin := token(t, domain.RoleAdmin, "")

	code, env := call(t, app, http.MethodGet, "/attendance/teachers/BS/obligations?date=2025-01-06", admin, "")
	if code != fiber.StatusOK {
		t.Fatalf("teacher obligations: %d %+v", code, env)
	}
	if obs, _ := env.Data["obligations"].([]interface{}); len(obs) != 1 {
		t.Fatalf("unexpected obligations %+v", env.Data)
	}

	code, env = call(t, app, http.MethodPost, "/attendance/pull", admin, "")
	if code != fiber.StatusOK || env.Data["outcome"] == nil {
		t.Fatalf("pull: %d %+v", code, env)
	}

	code, env = call(t, app, http.MethodGet, "/attendance/status", admin, "")
	if code != fiber.StatusOK || env.Data["online"] != true {
		t.Fatalf("status: %d %+v", code, env)
	}
}
