package auth

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/goliatone/go-errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type UserControllerRoutes struct {
	Login      string
	Users      string
	Me         string
	MeItems    string
	MeDelete   string
	UserByName string
	Health     string
	Metrics    string
}

type UserController struct {
	Logger   Logger
	Routes   *UserControllerRoutes
	Auther   *Auther
	Users    *UserService
	Route    *RouteAuthenticator
	Health   func(context.Context) error
	Gatherer prometheus.Gatherer
}

type UserControllerOption func(*UserController) *UserController

func WithControllerLogger(logger Logger) UserControllerOption {
	return func(c *UserController) *UserController {
		c.Logger = logger
		return c
	}
}

func WithHealthCheck(fn func(context.Context) error) UserControllerOption {
	return func(c *UserController) *UserController {
		c.Health = fn
		return c
	}
}

func WithMetricsGatherer(g prometheus.Gatherer) UserControllerOption {
	return func(c *UserController) *UserController {
		c.Gatherer = g
		return c
	}
}

func NewUserController(auther *Auther, users *UserService, route *RouteAuthenticator, opts ...UserControllerOption) *UserController {
	c := &UserController{
		Logger: defLogger(),
		Auther: auther,
		Users:  users,
		Route:  route,
		Routes: &UserControllerRoutes{
			Login:      "/login",
			Users:      "/users",
			Me:         "/users/me",
			MeItems:    "/users/me/items",
			MeDelete:   "/users/delete-account-me",
			UserByName: "/users/:username",
			Health:     "/healthz",
			Metrics:    "/metrics",
		},
	}

	for _, opt := range opts {
		c = opt(c)
	}

	if c.Auther == nil {
		panic("Missing Auther in user controller...")
	}

	if c.Users == nil {
		panic("Missing UserService in user controller...")
	}

	if c.Route == nil {
		panic("Missing RouteAuthenticator in user controller...")
	}

	return c
}

// RegisterUserRoutes mounts the user and auth routes on app
func RegisterUserRoutes(app fiber.Router, controller *UserController) {
	user := controller.Route.ProtectedRoute(RoleUser)
	admin := controller.Route.ProtectedRoute(RoleAdmin)

	app.Post(controller.Routes.Login, controller.LoginPost).Name("login.post")

	app.Get(controller.Routes.Me, user, controller.Whoami).Name("users.me.get")
	app.Get(controller.Routes.MeItems, user, controller.OwnItems).Name("users.me.items.get")
	app.Delete(controller.Routes.Me, user, controller.DeleteSelf).Name("users.me.delete")
	app.Delete(controller.Routes.MeDelete, user, controller.DeleteSelf).Name("users.delete-account-me.delete")

	app.Post(controller.Routes.Users, controller.CreateUser).Name("users.post")
	app.Get(controller.Routes.Users, admin, controller.ListUsers).Name("users.get")
	app.Put(controller.Routes.UserByName, user, controller.UpdateUser).Name("users.put")

	app.Get(controller.Routes.Health, controller.Healthz).Name("healthz.get")
	if controller.Gatherer != nil {
		app.Get(controller.Routes.Metrics, adaptor.HTTPHandler(
			promhttp.HandlerFor(controller.Gatherer, promhttp.HandlerOpts{}),
		)).Name("metrics.get")
	}
}

func (a *UserController) LoginPost(c *fiber.Ctx) error {
	payload := new(LoginPayload)
	if err := c.BodyParser(payload); err != nil {
		a.Logger.Debug("login parse payload", "error", err)
		return ErrInvalidCredentials
	}

	if err := payload.Validate(); err != nil {
		return ErrInvalidCredentials
	}

	token, err := a.Auther.Login(c.UserContext(), payload.Username, payload.Password)
	if err != nil {
		return err
	}

	return c.JSON(token)
}

func (a *UserController) Whoami(c *fiber.Ctx) error {
	identity, err := a.Users.Whoami(a.identity(c))
	if err != nil {
		return err
	}
	return c.JSON(identity)
}

func (a *UserController) OwnItems(c *fiber.Ctx) error {
	items, err := a.Users.Items(a.identity(c))
	if err != nil {
		return err
	}
	return c.JSON(items)
}

func (a *UserController) CreateUser(c *fiber.Ctx) error {
	payload := new(CreateUserPayload)
	if err := c.BodyParser(payload); err != nil {
		a.Logger.Debug("create user parse payload", "error", err)
		return badPayload(err)
	}

	identity, err := a.Users.CreateUser(c.UserContext(), *payload)
	if err != nil {
		return err
	}

	return c.Status(fiber.StatusCreated).JSON(identity)
}

func (a *UserController) ListUsers(c *fiber.Ctx) error {
	caller := a.identity(c)
	if caller == nil {
		return ErrMissingToken
	}

	users, err := a.Users.ListUsers(c.UserContext(), caller)
	if err != nil {
		return err
	}
	return c.JSON(users)
}

func (a *UserController) UpdateUser(c *fiber.Ctx) error {
	caller := a.identity(c)
	if caller == nil {
		return ErrMissingToken
	}

	payload := new(UpdateUserPayload)
	if err := c.BodyParser(payload); err != nil {
		a.Logger.Debug("update user parse payload", "error", err)
		return badPayload(err)
	}

	identity, err := a.Users.UpdateUser(c.UserContext(), caller, c.Params("username"), *payload)
	if err != nil {
		return err
	}
	return c.JSON(identity)
}

func (a *UserController) DeleteSelf(c *fiber.Ctx) error {
	caller := a.identity(c)
	if caller == nil {
		return ErrMissingToken
	}

	res, err := a.Users.DeleteSelf(c.UserContext(), caller)
	if err != nil {
		return err
	}
	return c.JSON(res)
}

func (a *UserController) Healthz(c *fiber.Ctx) error {
	if a.Health == nil {
		return c.JSON(fiber.Map{"status": "ok"})
	}

	ctx, cancel := context.WithTimeout(c.UserContext(), 500*time.Millisecond)
	defer cancel()

	if err := a.Health(ctx); err != nil {
		a.Logger.Error("health check failed", "error", err)
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"status": "unhealthy"})
	}
	return c.JSON(fiber.Map{"status": "ok"})
}

func (a *UserController) identity(c *fiber.Ctx) *ResolvedIdentity {
	identity, ok := GetIdentity(c, a.Route.ContextKey())
	if !ok {
		return nil
	}
	return identity
}

func badPayload(err error) error {
	return errors.Wrap(err, errors.CategoryBadInput, "could not parse request body").
		WithTextCode(TextCodeValidation).
		WithCode(errors.CodeBadRequest)
}
