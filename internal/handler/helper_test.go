package handler_test

// Test environment: real Echo instance and routes, real JWT middleware,
// in-memory stores. Requests go through e.ServeHTTP so the tests cover
// routing, auth and handler behavior together.

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/romastokriceri/mystorage/internal/config"
	"github.com/romastokriceri/mystorage/internal/handler"
	"github.com/romastokriceri/mystorage/internal/model"
	"github.com/romastokriceri/mystorage/internal/policy"
	"github.com/romastokriceri/mystorage/internal/queue"
	"github.com/romastokriceri/mystorage/internal/router"
	"github.com/romastokriceri/mystorage/internal/storage/local"
)

type env struct {
	e         *echo.Echo
	published chan queue.BoxSharedEvent
}

func newEnv(t *testing.T) *env {
	t.Helper()
	cfg := config.Config{
		JWTSecret:      "test-secret",
		AccessTTLMin:   15,
		RefreshTTLDays: 7,
		BcryptCost:     bcrypt.MinCost,
	}
	stores := newMemStores()
	engine := policy.NewEngine(&memShares{stores})

	uploadDir := t.TempDir()
	media, err := local.New(uploadDir)
	require.NoError(t, err)

	boxes := handler.NewBoxHandler(&memBoxes{stores}, &memItems{stores}, &memShares{stores}, &memUsers{stores}, engine)
	published := make(chan queue.BoxSharedEvent, 8)
	boxes.Publish = func(_ context.Context, ev queue.BoxSharedEvent) error {
		published <- ev
		return nil
	}

	h := router.Handlers{
		Auth:   handler.NewAuthHandler(cfg, &memUsers{stores}, &memTokens{stores}),
		Boxes:  boxes,
		Items:  handler.NewItemHandler(&memItems{stores}, &memBoxes{stores}, engine),
		Upload: handler.NewUploadHandler(media),
	}

	e := echo.New()
	cacheCfg := config.CacheConfig{Enabled: false}
	router.Register(e, h, cfg, cacheCfg, nil, uploadDir)
	return &env{e: e, published: published}
}

// do performs a JSON request against the test server. token may be
// empty for unauthenticated calls.
func (v *env) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if body != nil {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	v.e.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), "body: %s", rec.Body.String())
	return out
}

type authBody struct {
	User struct {
		ID       uint64 `json:"id"`
		Username string `json:"username"`
		Email    string `json:"email"`
	} `json:"user"`
	Access struct {
		Token string `json:"token"`
	} `json:"access"`
	Refresh struct {
		Token string `json:"token"`
	} `json:"refresh"`
}

// registerUser registers a user and returns the auth payload.
func (v *env) registerUser(t *testing.T, username, email string) authBody {
	t.Helper()
	rec := v.do(t, http.MethodPost, "/v1/auth/register", "", map[string]string{
		"username": username, "email": email, "password": "secret123",
	})
	require.Equal(t, http.StatusCreated, rec.Code, "body: %s", rec.Body.String())
	return decode[authBody](t, rec)
}

// createBox creates a box owned by the token's user.
func (v *env) createBox(t *testing.T, token, name string) *model.Box {
	t.Helper()
	rec := v.do(t, http.MethodPost, "/v1/boxes", token, map[string]string{"name": name})
	require.Equal(t, http.StatusCreated, rec.Code, "body: %s", rec.Body.String())
	b := decode[*model.Box](t, rec)
	return b
}

// createItem creates an item in the given box.
func (v *env) createItem(t *testing.T, token string, boxID uint64, name, category string) *model.Item {
	t.Helper()
	rec := v.do(t, http.MethodPost, "/v1/items", token, map[string]any{
		"name": name, "category": category, "box_id": boxID,
	})
	require.Equal(t, http.StatusCreated, rec.Code, "body: %s", rec.Body.String())
	return decode[*model.Item](t, rec)
}

// shareBox shares a box with the user addressed by email.
func (v *env) shareBox(t *testing.T, token string, boxID uint64, email string) *httptest.ResponseRecorder {
	t.Helper()
	return v.do(t, http.MethodPost, fmt.Sprintf("/v1/boxes/%d/share", boxID), token,
		map[string]string{"user_email": email})
}

// waitPublished waits briefly for a share event to be published.
func (v *env) waitPublished(t *testing.T) queue.BoxSharedEvent {
	t.Helper()
	select {
	case ev := <-v.published:
		return ev
	case <-time.After(2 * time.Second):
		t.Fatal("no share event published")
		return queue.BoxSharedEvent{}
	}
}
