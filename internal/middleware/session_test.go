package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupSessionApp(t *testing.T) (*fiber.App, *miniredis.Miniredis) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	cfg := SessionConfig{Secret: "test-secret"}

	app := fiber.New()
	app.Use(SessionWithClient(cfg, rdb))
	app.Post("/login", func(c *fiber.Ctx) error {
		RegenerateSessionID(c, cfg)
		SetSessionUser(c, SessionUser{
			UserID: "11111111-1111-1111-1111-111111111111",
			Handle: "tester",
			Email:  "tester@test.local",
			Role:   "user",
		})
		return c.SendStatus(fiber.StatusOK)
	})
	app.Get("/whoami", func(c *fiber.Ctx) error {
		p, ok := GetPrincipal(c)
		if !ok {
			return c.SendStatus(fiber.StatusUnauthorized)
		}
		return c.JSON(fiber.Map{"user_id": p.UserID.String(), "role": p.Role})
	})
	app.Delete("/logout", func(c *fiber.Ctx) error {
		ClearSession(c)
		return c.SendStatus(fiber.StatusOK)
	})
	return app, mr
}

func TestSession_LoginPersistsToRedis(t *testing.T) {
	app, mr := setupSessionApp(t)

	resp, err := app.Test(httptest.NewRequest("POST", "/login", nil))
	require.NoError(t, err)
	require.Equal(t, 200, resp.StatusCode)

	var sessionCookie *http.Cookie
	for _, c := range resp.Cookies() {
		if c.Name == SessionCookieName {
			sessionCookie = c
		}
	}
	require.NotNil(t, sessionCookie)
	sid := sessionCookie.Value

	raw, err := mr.Get(SessionRedisPrefix + sid)
	require.NoError(t, err)
	var data map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(raw), &data))
	user, _ := data["user"].(map[string]interface{})
	assert.Equal(t, "tester", user["handle"])

	// The cookie rides into the next request and resolves the principal.
	req := httptest.NewRequest("GET", "/whoami", nil)
	req.AddCookie(sessionCookie)
	resp2, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, 200, resp2.StatusCode)
}

func TestSession_NoCookieMeansNoPrincipal(t *testing.T) {
	app, _ := setupSessionApp(t)
	resp, err := app.Test(httptest.NewRequest("GET", "/whoami", nil))
	require.NoError(t, err)
	assert.Equal(t, 401, resp.StatusCode)
}

func TestSession_GarbageCookieIsIgnored(t *testing.T) {
	app, _ := setupSessionApp(t)
	req := httptest.NewRequest("GET", "/whoami", nil)
	req.Header.Set("Cookie", SessionCookieName+"=not-a-session")
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, 401, resp.StatusCode)
}
