package jwtware_test

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/goliatone/go-auth-users/middleware/jwtware"
)

type testIdentity struct {
	Name string
	Role string
}

var errBadToken = errors.New("bad token")

func staticResolver(valid string) jwtware.ResolverFunc[*testIdentity] {
	return func(_ context.Context, token string) (*testIdentity, error) {
		if token != valid {
			return nil, errBadToken
		}
		return &testIdentity{Name: "alice", Role: "user"}, nil
	}
}

func newApp(cfg jwtware.Config[*testIdentity]) *fiber.App {
	app := fiber.New()
	app.Use(jwtware.New(cfg))
	app.Get("/", func(c *fiber.Ctx) error {
		identity, ok := c.Locals("user").(*testIdentity)
		if !ok {
			return c.SendStatus(fiber.StatusInternalServerError)
		}
		return c.SendString(identity.Name)
	})
	return app
}

func body(t *testing.T, res *http.Response) string {
	t.Helper()
	b, err := io.ReadAll(res.Body)
	require.NoError(t, err)
	return string(b)
}

func TestJWTWare_BasicHeaderExtraction(t *testing.T) {
	app := newApp(jwtware.Config[*testIdentity]{
		Resolver: staticResolver("good-token"),
	})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer good-token")
	res, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, res.StatusCode)
	assert.Equal(t, "alice", body(t, res))

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	res, err = app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, res.StatusCode)
	assert.Equal(t, jwtware.ErrJWTMissingOrMalformed.Error(), body(t, res))

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer other-token")
	res, err = app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, res.StatusCode)
	assert.Equal(t, "Invalid or expired token", body(t, res))
}

func TestJWTWare_SchemeIsCaseInsensitive(t *testing.T) {
	app := newApp(jwtware.Config[*testIdentity]{
		Resolver: staticResolver("good-token"),
	})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "bearer good-token")
	res, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, res.StatusCode)
}

func TestJWTWare_WrongSchemeRejected(t *testing.T) {
	app := newApp(jwtware.Config[*testIdentity]{
		Resolver: staticResolver("good-token"),
	})

	for _, header := range []string{"Basic good-token", "Bearer", "Bearergood-token", "Bearer   "} {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", header)
		res, err := app.Test(req)
		require.NoError(t, err)
		assert.Equal(t, http.StatusUnauthorized, res.StatusCode, header)
	}
}

func TestJWTWare_CookieAndQueryLookup(t *testing.T) {
	app := newApp(jwtware.Config[*testIdentity]{
		Resolver:    staticResolver("good-token"),
		TokenLookup: "header:Authorization,cookie:jwt,query:auth_token",
	})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: "jwt", Value: "good-token"})
	res, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, res.StatusCode)

	req = httptest.NewRequest(http.MethodGet, "/?auth_token=good-token", nil)
	res, err = app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, res.StatusCode)
}

func TestJWTWare_CustomErrorHandlerReceivesResolverError(t *testing.T) {
	var got error
	app := newApp(jwtware.Config[*testIdentity]{
		Resolver: staticResolver("good-token"),
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			got = err
			return c.SendStatus(fiber.StatusTeapot)
		},
	})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer nope")
	res, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusTeapot, res.StatusCode)
	assert.ErrorIs(t, got, errBadToken)
}

func TestJWTWare_AuthorizerAndListeners(t *testing.T) {
	var seen []string
	errDenied := errors.New("denied")

	app := newApp(jwtware.Config[*testIdentity]{
		Resolver: staticResolver("good-token"),
		ValidationListeners: []jwtware.ValidationListener[*testIdentity]{
			func(_ *fiber.Ctx, identity *testIdentity) error {
				seen = append(seen, identity.Name)
				return nil
			},
			nil,
		},
		Authorizer: func(identity *testIdentity) error {
			if identity.Role != "admin" {
				return errDenied
			}
			return nil
		},
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			if errors.Is(err, errDenied) {
				return c.SendStatus(fiber.StatusForbidden)
			}
			return c.SendStatus(fiber.StatusUnauthorized)
		},
	})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer good-token")
	res, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusForbidden, res.StatusCode)
	assert.Equal(t, []string{"alice"}, seen)
}

func TestJWTWare_FilterSkipsAuthentication(t *testing.T) {
	app := fiber.New()
	app.Use(jwtware.New(jwtware.Config[*testIdentity]{
		Resolver: staticResolver("good-token"),
		Filter: func(c *fiber.Ctx) bool {
			return c.Path() == "/public"
		},
	}))
	app.Get("/public", func(c *fiber.Ctx) error {
		return c.SendString("ok")
	})

	res, err := app.Test(httptest.NewRequest(http.MethodGet, "/public", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, res.StatusCode)
}

func TestJWTWare_ContextEnricher(t *testing.T) {
	type ctxKey struct{}

	app := fiber.New()
	app.Use(jwtware.New(jwtware.Config[*testIdentity]{
		Resolver: staticResolver("good-token"),
		ContextEnricher: func(ctx context.Context, identity *testIdentity) context.Context {
			return context.WithValue(ctx, ctxKey{}, identity.Name)
		},
	}))
	app.Get("/", func(c *fiber.Ctx) error {
		name, _ := c.UserContext().Value(ctxKey{}).(string)
		return c.SendString(name)
	})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer good-token")
	res, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, "alice", body(t, res))
}

func TestGetExtractors_SkipsInvalidEntries(t *testing.T) {
	extractors := jwtware.GetExtractors("header:Authorization, bogus, cookie:jwt, unknown:x")
	assert.Len(t, extractors, 2)
}

func TestGetDefaultConfig_RequiresResolver(t *testing.T) {
	assert.Panics(t, func() {
		jwtware.GetDefaultConfig[*testIdentity]()
	})
}
