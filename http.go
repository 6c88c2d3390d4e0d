package auth

import (
	stderrors "errors"
	"net/http"

	"github.com/gofiber/fiber/v2"
	"github.com/goliatone/go-errors"
	"github.com/goliatone/go-print"

	"github.com/goliatone/go-auth-users/middleware/jwtware"
)

// ErrorBody is the JSON rendering of an error
type ErrorBody struct {
	Error ErrorDetail `json:"error"`
}

type ErrorDetail struct {
	Category string            `json:"category"`
	TextCode string            `json:"text_code,omitempty"`
	Message  string            `json:"message"`
	Fields   map[string]string `json:"fields,omitempty"`
}

// RouteAuthenticator builds the fiber middleware that authenticates and
// authorizes requests
type RouteAuthenticator struct {
	resolver *SessionResolver
	guard    *PermissionGuard
	cfg      Config
	Logger   Logger
}

func NewHTTPAuthenticator(resolver *SessionResolver, guard *PermissionGuard, cfg Config) *RouteAuthenticator {
	if guard == nil {
		guard = NewPermissionGuard()
	}
	return &RouteAuthenticator{
		resolver: resolver,
		guard:    guard,
		cfg:      cfg,
		Logger:   defLogger(),
	}
}

func (a *RouteAuthenticator) WithLogger(logger Logger) *RouteAuthenticator {
	a.Logger = logger
	return a
}

// ContextKey is the fiber locals key holding the resolved identity
func (a *RouteAuthenticator) ContextKey() string {
	if key := a.cfg.GetContextKey(); key != "" {
		return key
	}
	return DefaultContextKey
}

// ProtectedRoute resolves the bearer token and requires at least minRole
func (a *RouteAuthenticator) ProtectedRoute(minRole Role) fiber.Handler {
	return jwtware.New(jwtware.Config[*ResolvedIdentity]{
		Resolver:    a.resolver,
		ContextKey:  a.ContextKey(),
		TokenLookup: a.cfg.GetTokenLookup(),
		AuthScheme:  a.cfg.GetAuthScheme(),
		Authorizer: func(identity *ResolvedIdentity) error {
			return a.guard.Check(identity, minRole)
		},
		ContextEnricher: WithContext,
		ErrorHandler:    a.authErrHandler,
	})
}

// authErrHandler renders every authentication failure as 401, whatever the
// status the underlying error carries. Authorization failures stay 403.
func (a *RouteAuthenticator) authErrHandler(c *fiber.Ctx, err error) error {
	if stderrors.Is(err, jwtware.ErrJWTMissingOrMalformed) {
		err = ErrMissingToken
	}

	var richErr *errors.Error
	if !errors.As(err, &richErr) {
		richErr = errors.Wrap(err, errors.CategoryAuth, "Invalid authentication token").
			WithCode(errors.CodeUnauthorized)
	}

	switch richErr.TextCode {
	case TextCodeForbidden, TextCodeStoreUnavailable:
	default:
		if richErr.Code != errors.CodeUnauthorized {
			richErr = richErr.Clone()
			richErr.Code = errors.CodeUnauthorized
		}
	}

	a.Logger.Info(
		"Authentication error",
		"error", richErr.Message,
		"text_code", richErr.TextCode,
		"path", c.OriginalURL(),
	)

	return ErrorHandler(a.Logger)(c, richErr)
}

// ErrorHandler renders errors as JSON with the status the error carries
func ErrorHandler(logger Logger) fiber.ErrorHandler {
	if logger == nil {
		logger = defLogger()
	}

	return func(c *fiber.Ctx, err error) error {
		var fiberErr *fiber.Error
		if stderrors.As(err, &fiberErr) {
			return c.Status(fiberErr.Code).JSON(ErrorBody{
				Error: ErrorDetail{
					Category: string(errors.CategoryBadInput),
					Message:  fiberErr.Message,
				},
			})
		}

		var richErr *errors.Error
		if !errors.As(err, &richErr) {
			richErr = errors.Wrap(err, errors.CategoryInternal, "An unexpected server error occurred").
				WithCode(errors.CodeInternal)
		}

		status := richErr.Code
		if status < 400 || status > 599 {
			status = http.StatusInternalServerError
		}

		if status >= http.StatusInternalServerError {
			logger.Error(
				"Request failed",
				"error", richErr.Message,
				"category", richErr.Category,
				"source", sourceMessage(richErr),
				"details", print.MaybePrettyJSON(richErr.Metadata),
			)
		} else {
			logger.Debug(
				"Request rejected",
				"error", richErr.Message,
				"category", richErr.Category,
				"text_code", richErr.TextCode,
			)
		}

		if status == http.StatusUnauthorized {
			c.Set(fiber.HeaderWWWAuthenticate, "Bearer")
		}

		return c.Status(status).JSON(ErrorBody{
			Error: ErrorDetail{
				Category: string(richErr.Category),
				TextCode: richErr.TextCode,
				Message:  richErr.Message,
				Fields:   validationFields(richErr),
			},
		})
	}
}

func sourceMessage(richErr *errors.Error) string {
	if richErr.Source == nil {
		return ""
	}
	return richErr.Source.Error()
}

func validationFields(richErr *errors.Error) map[string]string {
	if richErr.Category != errors.CategoryValidation || richErr.Metadata == nil {
		return nil
	}
	fields, _ := richErr.Metadata["fields"].(map[string]string)
	return fields
}
