package auth

import (
	"errors"
	"net/http"
	"strconv"

	validation "github.com/go-ozzo/ozzo-validation"
	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-print"
	"github.com/goliatone/go-router"

	"github.com/goliatone/go-auth-service/middleware/jwtware"
)

const (
	TextCodeForbidden = "FORBIDDEN"
)

// RouteRegistrar captures the router methods used by the controller.
type RouteRegistrar interface {
	Get(path string, handler router.HandlerFunc, mw ...router.MiddlewareFunc) router.RouteInfo
	Post(path string, handler router.HandlerFunc, mw ...router.MiddlewareFunc) router.RouteInfo
	Put(path string, handler router.HandlerFunc, mw ...router.MiddlewareFunc) router.RouteInfo
	Delete(path string, handler router.HandlerFunc, mw ...router.MiddlewareFunc) router.RouteInfo
}

type HTTPControllerRoutes struct {
	Auth  string
	Users string
}

// HTTPController exposes the account commands and queries as a JSON API.
type HTTPController struct {
	Debug              bool
	Logger             Logger
	Routes             *HTTPControllerRoutes
	AdministratorClaim Claim

	createUser *CreateUserAccountHandler
	logIn      *LogInHandler
	refresh    *RefreshTokenHandler
	logOut     *LogOutHandler
	claims     *ClaimsHandler
	status     *StatusHandler
	password   *PasswordHandler
	queries    *UserAccountQueries

	tokens         TokenService
	handlerOptions []HandlerOption
	bearer         router.MiddlewareFunc
	admin          router.MiddlewareFunc
}

type HTTPControllerOption func(*HTTPController) *HTTPController

// WithControllerHandlerOptions forwards options to every command handler.
func WithControllerHandlerOptions(opts ...HandlerOption) HTTPControllerOption {
	return func(c *HTTPController) *HTTPController {
		c.handlerOptions = append(c.handlerOptions, opts...)
		return c
	}
}

func WithControllerLogger(logger Logger) HTTPControllerOption {
	return func(c *HTTPController) *HTTPController {
		if logger != nil {
			c.Logger = logger
		}
		return c
	}
}

// WithControllerAdministratorClaim sets the claim required on admin routes.
func WithControllerAdministratorClaim(claim Claim) HTTPControllerOption {
	return func(c *HTTPController) *HTTPController {
		c.AdministratorClaim = claim
		return c
	}
}

func WithControllerDebug(debug bool) HTTPControllerOption {
	return func(c *HTTPController) *HTTPController {
		c.Debug = debug
		return c
	}
}

func NewHTTPController(repo RepositoryManager, tokens TokenService, opts ...HTTPControllerOption) *HTTPController {
	if repo == nil {
		panic("Missing RepositoryManager in http controller...")
	}
	if tokens == nil {
		panic("Missing TokenService in http controller...")
	}

	c := &HTTPController{
		Logger:             defLogger{},
		AdministratorClaim: DefaultAdministratorClaim,
		Routes: &HTTPControllerRoutes{
			Auth:  "/api/auth",
			Users: "/api/users",
		},
		tokens: tokens,
	}

	for _, opt := range opts {
		c = opt(c)
	}

	handlerOpts := append([]HandlerOption{
		WithHandlerTokenService(tokens),
		WithHandlerLogger(c.Logger),
	}, c.handlerOptions...)

	c.createUser = NewCreateUserAccountHandler(repo, handlerOpts...)
	c.logIn = NewLogInHandler(repo, handlerOpts...)
	c.refresh = NewRefreshTokenHandler(repo, handlerOpts...)
	c.logOut = NewLogOutHandler(repo, handlerOpts...)
	c.claims = NewClaimsHandler(repo, handlerOpts...)
	c.status = NewStatusHandler(repo, handlerOpts...)
	c.password = NewPasswordHandler(repo, handlerOpts...)
	c.queries = NewUserAccountQueries(repo.Reader())

	c.bearer = NewJWTMiddleware(tokens, c.HandleError)
	c.admin = NewJWTMiddleware(tokens, c.HandleError, c.AdministratorClaim)

	return c
}

// RegisterRoutes mounts the API on app. Specific paths are registered before
// parameterised ones.
func (c *HTTPController) RegisterRoutes(app RouteRegistrar) {
	session := c.Routes.Auth
	users := c.Routes.Users

	app.Post(session+"/log-in", c.LogIn)
	app.Post(session+"/refresh-token", c.RefreshToken)
	app.Post(session+"/log-out", c.LogOut, c.bearer)

	app.Get(users+"/me", c.CurrentUserAccount, c.bearer)
	app.Post(users+"/me/password", c.ChangeCurrentPassword, c.bearer)

	app.Post(users, c.CreateUserAccount, c.admin)
	app.Get(users, c.ListUserAccounts, c.admin)
	app.Get(users+"/:id", c.GetUserAccount, c.admin)
	app.Delete(users+"/:id", c.DeleteUserAccount, c.admin)
	app.Get(users+"/:id/claims", c.GetUserAccountClaims, c.admin)
	app.Post(users+"/:id/claims", c.AddClaim, c.admin)
	app.Put(users+"/:id/claims", c.ReplaceClaim, c.admin)
	app.Delete(users+"/:id/claims", c.RemoveClaim, c.admin)
	app.Post(users+"/:id/lock", c.LockUserAccount, c.admin)
	app.Post(users+"/:id/unlock", c.UnlockUserAccount, c.admin)
	app.Post(users+"/:id/password", c.UpdateUserAccountPassword, c.admin)
}

// LogInRequest payload
type LogInRequest struct {
	Login    string `json:"login"`
	Password string `json:"password"`
}

func (c *HTTPController) LogIn(ctx router.Context) error {
	payload := new(LogInRequest)
	if err := ctx.Bind(payload); err != nil {
		return c.HandleError(ctx, asValidationError(err))
	}

	if c.Debug {
		c.Logger.Debug("log in request for %s", payload.Login)
	}

	pair, err := c.logIn.Execute(ctx.Context(), LogInMessage{
		Login:    payload.Login,
		Password: payload.Password,
	})
	if err != nil {
		return c.HandleError(ctx, err)
	}

	return ctx.JSON(http.StatusOK, pair)
}

// RefreshTokenRequest payload
type RefreshTokenRequest struct {
	RefreshToken string `json:"refresh_token"`
}

func (c *HTTPController) RefreshToken(ctx router.Context) error {
	payload := new(RefreshTokenRequest)
	if err := ctx.Bind(payload); err != nil {
		return c.HandleError(ctx, asValidationError(err))
	}

	pair, err := c.refresh.Execute(ctx.Context(), RefreshTokenMessage{RefreshToken: payload.RefreshToken})
	if err != nil {
		return c.HandleError(ctx, err)
	}

	return ctx.JSON(http.StatusOK, pair)
}

func (c *HTTPController) LogOut(ctx router.Context) error {
	id, err := c.currentAccountID(ctx)
	if err != nil {
		return c.HandleError(ctx, err)
	}

	if err := c.logOut.Execute(ctx.Context(), LogOutMessage{UserAccountID: id}); err != nil {
		return c.HandleError(ctx, err)
	}

	return ctx.JSON(http.StatusOK, statusResponse("logged_out"))
}

func (c *HTTPController) CurrentUserAccount(ctx router.Context) error {
	id, err := c.currentAccountID(ctx)
	if err != nil {
		return c.HandleError(ctx, err)
	}

	view, err := c.queries.Get(ctx.Context(), id)
	if err != nil {
		return c.HandleError(ctx, err)
	}

	return ctx.JSON(http.StatusOK, view)
}

// ChangePasswordRequest payload
type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
}

func (c *HTTPController) ChangeCurrentPassword(ctx router.Context) error {
	id, err := c.currentAccountID(ctx)
	if err != nil {
		return c.HandleError(ctx, err)
	}

	payload := new(ChangePasswordRequest)
	if err := ctx.Bind(payload); err != nil {
		return c.HandleError(ctx, asValidationError(err))
	}

	err = c.password.ChangeCurrent(ctx.Context(), ChangeCurrentPasswordMessage{
		UserAccountID:   id,
		CurrentPassword: payload.CurrentPassword,
		NewPassword:     payload.NewPassword,
	})
	if err != nil {
		return c.HandleError(ctx, err)
	}

	return ctx.JSON(http.StatusOK, statusResponse("password_changed"))
}

// CreateUserAccountRequest payload
type CreateUserAccountRequest struct {
	Login    string  `json:"login"`
	Password string  `json:"password"`
	Claims   []Claim `json:"claims"`
}

func (c *HTTPController) CreateUserAccount(ctx router.Context) error {
	payload := new(CreateUserAccountRequest)
	if err := ctx.Bind(payload); err != nil {
		return c.HandleError(ctx, asValidationError(err))
	}

	id, err := c.createUser.Execute(ctx.Context(), CreateUserAccountMessage{
		Login:    payload.Login,
		Password: payload.Password,
		Claims:   payload.Claims,
	})
	if err != nil {
		return c.HandleError(ctx, err)
	}

	return ctx.JSON(http.StatusCreated, map[string]string{"id": id.String()})
}

func (c *HTTPController) ListUserAccounts(ctx router.Context) error {
	opts := ListOptions{
		Page:     queryInt(ctx, "page"),
		PageSize: queryInt(ctx, "page_size"),
	}

	page, err := c.queries.List(ctx.Context(), opts)
	if err != nil {
		return c.HandleError(ctx, err)
	}

	if c.Debug {
		c.Logger.Debug("list user accounts: %s", print.MaybePrettyJSON(opts))
	}

	return ctx.JSON(http.StatusOK, page)
}

func (c *HTTPController) GetUserAccount(ctx router.Context) error {
	id, err := paramAccountID(ctx)
	if err != nil {
		return c.HandleError(ctx, err)
	}

	view, err := c.queries.Get(ctx.Context(), id)
	if err != nil {
		return c.HandleError(ctx, err)
	}

	return ctx.JSON(http.StatusOK, view)
}

func (c *HTTPController) GetUserAccountClaims(ctx router.Context) error {
	id, err := paramAccountID(ctx)
	if err != nil {
		return c.HandleError(ctx, err)
	}

	claims, err := c.queries.Claims(ctx.Context(), id)
	if err != nil {
		return c.HandleError(ctx, err)
	}

	return ctx.JSON(http.StatusOK, map[string]any{"claims": claims})
}

func (c *HTTPController) AddClaim(ctx router.Context) error {
	id, err := paramAccountID(ctx)
	if err != nil {
		return c.HandleError(ctx, err)
	}

	claim := new(Claim)
	if err := ctx.Bind(claim); err != nil {
		return c.HandleError(ctx, asValidationError(err))
	}

	if err := c.claims.Add(ctx.Context(), AddClaimMessage{UserAccountID: id, Claim: *claim}); err != nil {
		return c.HandleError(ctx, err)
	}

	return ctx.JSON(http.StatusCreated, claim)
}

// ReplaceClaimRequest payload
type ReplaceClaimRequest struct {
	Current     Claim `json:"current"`
	Replacement Claim `json:"replacement"`
}

func (c *HTTPController) ReplaceClaim(ctx router.Context) error {
	id, err := paramAccountID(ctx)
	if err != nil {
		return c.HandleError(ctx, err)
	}

	payload := new(ReplaceClaimRequest)
	if err := ctx.Bind(payload); err != nil {
		return c.HandleError(ctx, asValidationError(err))
	}

	err = c.claims.Replace(ctx.Context(), ReplaceClaimMessage{
		UserAccountID: id,
		Current:       payload.Current,
		Replacement:   payload.Replacement,
	})
	if err != nil {
		return c.HandleError(ctx, err)
	}

	return ctx.JSON(http.StatusOK, payload.Replacement)
}

// RemoveClaim reads the claim from the type and value query parameters.
func (c *HTTPController) RemoveClaim(ctx router.Context) error {
	id, err := paramAccountID(ctx)
	if err != nil {
		return c.HandleError(ctx, err)
	}

	claim := NewClaim(ctx.Query("type"), ctx.Query("value"))
	if err := c.claims.Remove(ctx.Context(), RemoveClaimMessage{UserAccountID: id, Claim: claim}); err != nil {
		return c.HandleError(ctx, err)
	}

	return ctx.JSON(http.StatusOK, statusResponse("claim_removed"))
}

func (c *HTTPController) LockUserAccount(ctx router.Context) error {
	return c.transition(ctx, "locked", func(actor, target UserAccountID) error {
		return c.status.Lock(ctx.Context(), LockUserAccountMessage{ActorID: actor, UserAccountID: target})
	})
}

func (c *HTTPController) UnlockUserAccount(ctx router.Context) error {
	return c.transition(ctx, "unlocked", func(actor, target UserAccountID) error {
		return c.status.Unlock(ctx.Context(), UnlockUserAccountMessage{ActorID: actor, UserAccountID: target})
	})
}

func (c *HTTPController) DeleteUserAccount(ctx router.Context) error {
	return c.transition(ctx, "deleted", func(actor, target UserAccountID) error {
		return c.status.Delete(ctx.Context(), DeleteUserAccountMessage{ActorID: actor, UserAccountID: target})
	})
}

func (c *HTTPController) transition(ctx router.Context, result string, apply func(actor, target UserAccountID) error) error {
	actor, err := c.currentAccountID(ctx)
	if err != nil {
		return c.HandleError(ctx, err)
	}

	target, err := paramAccountID(ctx)
	if err != nil {
		return c.HandleError(ctx, err)
	}

	if err := apply(actor, target); err != nil {
		return c.HandleError(ctx, err)
	}

	return ctx.JSON(http.StatusOK, statusResponse(result))
}

// SetPasswordRequest payload
type SetPasswordRequest struct {
	NewPassword string `json:"new_password"`
}

func (c *HTTPController) UpdateUserAccountPassword(ctx router.Context) error {
	id, err := paramAccountID(ctx)
	if err != nil {
		return c.HandleError(ctx, err)
	}

	payload := new(SetPasswordRequest)
	if err := ctx.Bind(payload); err != nil {
		return c.HandleError(ctx, asValidationError(err))
	}

	err = c.password.Update(ctx.Context(), UpdateUserAccountPasswordMessage{
		UserAccountID: id,
		NewPassword:   payload.NewPassword,
	})
	if err != nil {
		return c.HandleError(ctx, err)
	}

	return ctx.JSON(http.StatusOK, statusResponse("password_updated"))
}

// ErrorBody is the payload of every error response.
type ErrorBody struct {
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Reason  string         `json:"reason,omitempty"`
	Fields  map[string]any `json:"fields,omitempty"`
}

// HandleError writes err as {"error": {...}} with the matching status. It
// doubles as the jwt middleware error handler.
func (c *HTTPController) HandleError(ctx router.Context, err error) error {
	status, body := ErrorResponse(err)
	if status >= http.StatusInternalServerError {
		c.Logger.Error("request failed: %v", err)
	}
	return ctx.JSON(status, map[string]ErrorBody{"error": body})
}

// ErrorResponse maps err to an HTTP status and body. Internal failures are
// reported without their message.
func ErrorResponse(err error) (int, ErrorBody) {
	switch {
	case errors.Is(err, jwtware.ErrJWTMissingOrMalformed):
		return http.StatusUnauthorized, ErrorBody{Code: TextCodeTokenMalformed, Message: err.Error()}
	case errors.Is(err, jwtware.ErrClaimRequired):
		return http.StatusForbidden, ErrorBody{Code: TextCodeForbidden, Message: "forbidden"}
	}

	var gerr *goerrors.Error
	if !goerrors.As(err, &gerr) {
		return serverError()
	}

	body := ErrorBody{Code: gerr.TextCode, Message: gerr.Message}

	switch gerr.Category {
	case goerrors.CategoryValidation:
		if fields, ok := gerr.Metadata["fields"].(map[string]any); ok {
			body.Fields = fields
		}
		return http.StatusBadRequest, body
	case goerrors.CategoryNotFound:
		return http.StatusNotFound, body
	case goerrors.CategoryAuth:
		return http.StatusUnauthorized, body
	case goerrors.CategoryConflict:
		if errors.Is(err, ErrLoginAlreadyTaken) {
			return http.StatusBadRequest, body
		}
		return http.StatusConflict, body
	case goerrors.CategoryBadInput:
		body.Reason = body.Code
		body.Code = TextCodeBusinessLogic
		return http.StatusBadRequest, body
	default:
		return serverError()
	}
}

func serverError() (int, ErrorBody) {
	return http.StatusInternalServerError, ErrorBody{
		Code:    TextCodeServerError,
		Message: "internal server error",
	}
}

func (c *HTTPController) currentAccountID(ctx router.Context) (UserAccountID, error) {
	claims, ok := GetRouterClaims(ctx, RouterClaimsKey)
	if !ok {
		return UserAccountID{}, ErrTokenMalformed
	}
	id, err := ParseUserAccountID(claims.UserID())
	if err != nil {
		return UserAccountID{}, ErrTokenMalformed
	}
	return id, nil
}

func paramAccountID(ctx router.Context) (UserAccountID, error) {
	raw := ctx.Param("id")
	if err := validation.Validate(raw, validation.Required); err != nil {
		return UserAccountID{}, asValidationError(validation.Errors{"id": err})
	}
	return ParseUserAccountID(raw)
}

func queryInt(ctx router.Context, name string) int {
	n, err := strconv.Atoi(ctx.Query(name))
	if err != nil {
		return 0
	}
	return n
}

func statusResponse(status string) map[string]string {
	return map[string]string{"status": status}
}
