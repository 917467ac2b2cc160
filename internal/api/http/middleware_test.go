package http

import (
	"context"
	"encoding/json"
	"io"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/ict-helpdesk/servicedesk/internal/auth"
	"github.com/ict-helpdesk/servicedesk/internal/domain"
	"github.com/ict-helpdesk/servicedesk/internal/observability"
)

type stubUserRepo struct {
	user *domain.User
}

func (r *stubUserRepo) Create(context.Context, *domain.User) error { return nil }
func (r *stubUserRepo) Update(context.Context, *domain.User) error { return nil }

func (r *stubUserRepo) GetByID(_ context.Context, id int64) (*domain.User, error) {
	if r.user == nil || r.user.ID != id {
		return nil, pgx.ErrNoRows
	}
	return r.user, nil
}

func (r *stubUserRepo) GetByEmail(context.Context, string) (*domain.User, error) {
	return nil, pgx.ErrNoRows
}

func (r *stubUserRepo) ListByRole(context.Context, domain.Role) ([]domain.User, error) {
	return nil, nil
}

func newGatedApp(t *testing.T, user *domain.User) (*fiber.App, string) {
	t.Helper()
	tokens := auth.NewTokenManager("test-secret", 5)
	token, _, err := tokens.GenerateToken(user.ID, user.Role)
	if err != nil {
		t.Fatalf("generate token: %v", err)
	}

	app := fiber.New()
	RegisterMiddlewares(app, zap.NewNop(), observability.NewMetrics(), 0)
	bearer := auth.NewAuthMiddleware(tokens, &stubUserRepo{user: user})
	app.Get("/admin-only", bearer.Handle, auth.RequireRole(domain.RoleAdmin), func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"data": "ok"})
	})
	return app, token
}

func errorCode(t *testing.T, body io.Reader) string {
	t.Helper()
	var payload struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	if err := json.NewDecoder(body).Decode(&payload); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	return payload.Error.Code
}

func TestRoleGateRejectsWithForbidden(t *testing.T) {
	tech := &domain.User{ID: 2, Role: domain.RoleTechnician, Active: true}
	app, token := newGatedApp(t, tech)

	req := httptest.NewRequest("GET", "/admin-only", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != 403 {
		t.Fatalf("status = %d, want 403", resp.StatusCode)
	}
	if code := errorCode(t, resp.Body); code != "FORBIDDEN" {
		t.Fatalf("code = %s, want FORBIDDEN", code)
	}
}

func TestRoleGateAllowsMatchingRole(t *testing.T) {
	admin := &domain.User{ID: 1, Role: domain.RoleAdmin, Active: true}
	app, token := newGatedApp(t, admin)

	req := httptest.NewRequest("GET", "/admin-only", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != 200 {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
}

func TestMissingBearerRejectsWithUnauthorized(t *testing.T) {
	tech := &domain.User{ID: 2, Role: domain.RoleTechnician, Active: true}
	app, _ := newGatedApp(t, tech)

	resp, err := app.Test(httptest.NewRequest("GET", "/admin-only", nil))
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != 401 {
		t.Fatalf("status = %d, want 401", resp.StatusCode)
	}
	if code := errorCode(t, resp.Body); code != "UNAUTHORIZED" {
		t.Fatalf("code = %s, want UNAUTHORIZED", code)
	}
}
