package auth_test

import (
	"context"
	"errors"
	"net/http"
	"testing"

	auth "github.com/goliatone/go-auth-service"
	"github.com/goliatone/go-auth-service/middleware/jwtware"
	"github.com/goliatone/go-router"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type controllerFixture struct {
	*commandFixture
	ctrl *auth.HTTPController
}

func newControllerFixture(t *testing.T) *controllerFixture {
	t.Helper()
	f := newCommandFixture(t)
	ctrl := auth.NewHTTPController(f.mgr, f.tokens,
		auth.WithControllerLogger(quietLogger{}),
		auth.WithControllerHandlerOptions(f.opts...),
	)
	return &controllerFixture{commandFixture: f, ctrl: ctrl}
}

// newRequest returns a mock context authenticated as id, or anonymous when id is nil.
func (f *controllerFixture) newRequest(t *testing.T, id *auth.UserAccountID) *router.MockContext {
	t.Helper()
	ctx := router.NewMockContext()
	ctx.On("Context").Return(context.Background()).Maybe()
	if id != nil {
		view, err := f.queries.Get(context.Background(), *id)
		require.NoError(t, err)
		token, err := f.tokens.GenerateAccessToken(*id, view.Claims)
		require.NoError(t, err)
		claims, err := f.tokens.Validate(token)
		require.NoError(t, err)
		ctx.LocalsMock[auth.RouterClaimsKey] = claims
	}
	return ctx
}

func bindPayload[T any](ctx *router.MockContext, payload T) {
	ctx.On("Bind", mock.Anything).Run(func(args mock.Arguments) {
		if target, ok := args.Get(0).(*T); ok {
			*target = payload
		}
	}).Return(nil)
}

type response struct {
	status int
	body   any
}

func captureJSON(ctx *router.MockContext) *response {
	res := &response{}
	ctx.On("JSON", mock.Anything, mock.Anything).Run(func(args mock.Arguments) {
		res.status = args.Int(0)
		res.body = args.Get(1)
	}).Return(nil)
	return res
}

func (r *response) errorBody(t *testing.T) auth.ErrorBody {
	t.Helper()
	body, ok := r.body.(map[string]auth.ErrorBody)
	require.True(t, ok, "expected error body, got %T", r.body)
	return body["error"]
}

func TestHTTPControllerLogIn(t *testing.T) {
	f := newControllerFixture(t)
	id := f.mustCreate(t, "alice@example.com")

	ctx := f.newRequest(t, nil)
	bindPayload(ctx, auth.LogInRequest{Login: "alice@example.com", Password: "correct-horse"})
	res := captureJSON(ctx)

	require.NoError(t, f.ctrl.LogIn(ctx))
	assert.Equal(t, http.StatusOK, res.status)
	pair, ok := res.body.(*auth.TokenPair)
	require.True(t, ok)
	claims, err := f.tokens.Validate(pair.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, id.String(), claims.UserID())

	ctx = f.newRequest(t, nil)
	bindPayload(ctx, auth.LogInRequest{Login: "alice@example.com", Password: "wrong-password"})
	res = captureJSON(ctx)

	require.NoError(t, f.ctrl.LogIn(ctx))
	assert.Equal(t, http.StatusUnauthorized, res.status)
	assert.Equal(t, auth.TextCodeInvalidCredentials, res.errorBody(t).Code)
}

func TestHTTPControllerRefreshToken(t *testing.T) {
	f := newControllerFixture(t)
	f.mustCreate(t, "alice@example.com")
	pair, err := f.logIn.Execute(context.Background(), auth.LogInMessage{Login: "alice@example.com", Password: "correct-horse"})
	require.NoError(t, err)

	ctx := f.newRequest(t, nil)
	bindPayload(ctx, auth.RefreshTokenRequest{RefreshToken: pair.RefreshToken})
	res := captureJSON(ctx)
	require.NoError(t, f.ctrl.RefreshToken(ctx))
	assert.Equal(t, http.StatusOK, res.status)

	ctx = f.newRequest(t, nil)
	bindPayload(ctx, auth.RefreshTokenRequest{RefreshToken: "unknown"})
	res = captureJSON(ctx)
	require.NoError(t, f.ctrl.RefreshToken(ctx))
	assert.Equal(t, http.StatusNotFound, res.status)
}

func TestHTTPControllerCreateUserAccount(t *testing.T) {
	f := newControllerFixture(t)
	admin := f.mustCreate(t, "admin@example.com", adminClaim)

	ctx := f.newRequest(t, &admin)
	bindPayload(ctx, auth.CreateUserAccountRequest{Login: "bob@example.com", Password: "correct-horse"})
	res := captureJSON(ctx)
	require.NoError(t, f.ctrl.CreateUserAccount(ctx))
	assert.Equal(t, http.StatusCreated, res.status)
	created := res.body.(map[string]string)
	_, err := uuid.Parse(created["id"])
	require.NoError(t, err)

	ctx = f.newRequest(t, &admin)
	bindPayload(ctx, auth.CreateUserAccountRequest{Login: "bob@example.com", Password: "correct-horse"})
	res = captureJSON(ctx)
	require.NoError(t, f.ctrl.CreateUserAccount(ctx))
	assert.Equal(t, http.StatusBadRequest, res.status)
	assert.Equal(t, auth.TextCodeLoginAlreadyTaken, res.errorBody(t).Code)

	ctx = f.newRequest(t, &admin)
	bindPayload(ctx, auth.CreateUserAccountRequest{Login: "", Password: "short"})
	res = captureJSON(ctx)
	require.NoError(t, f.ctrl.CreateUserAccount(ctx))
	assert.Equal(t, http.StatusBadRequest, res.status)
	body := res.errorBody(t)
	assert.Equal(t, auth.TextCodeValidation, body.Code)
	assert.Contains(t, body.Fields, "login")
	assert.Contains(t, body.Fields, "password")
}

func TestHTTPControllerGetUserAccount(t *testing.T) {
	f := newControllerFixture(t)
	admin := f.mustCreate(t, "admin@example.com", adminClaim)
	id := f.mustCreate(t, "alice@example.com")

	ctx := f.newRequest(t, &admin)
	ctx.ParamsM["id"] = id.String()
	res := captureJSON(ctx)
	require.NoError(t, f.ctrl.GetUserAccount(ctx))
	assert.Equal(t, http.StatusOK, res.status)
	view := res.body.(*auth.UserAccountView)
	assert.Equal(t, "alice@example.com", view.Login)

	ctx = f.newRequest(t, &admin)
	ctx.ParamsM["id"] = uuid.NewString()
	res = captureJSON(ctx)
	require.NoError(t, f.ctrl.GetUserAccount(ctx))
	assert.Equal(t, http.StatusNotFound, res.status)
	assert.Equal(t, auth.TextCodeNotFound, res.errorBody(t).Code)

	ctx = f.newRequest(t, &admin)
	ctx.ParamsM["id"] = "nope"
	res = captureJSON(ctx)
	require.NoError(t, f.ctrl.GetUserAccount(ctx))
	assert.Equal(t, http.StatusBadRequest, res.status)
}

func TestHTTPControllerCurrentUserAccount(t *testing.T) {
	f := newControllerFixture(t)
	id := f.mustCreate(t, "alice@example.com")

	ctx := f.newRequest(t, &id)
	res := captureJSON(ctx)
	require.NoError(t, f.ctrl.CurrentUserAccount(ctx))
	assert.Equal(t, http.StatusOK, res.status)
	assert.Equal(t, id, res.body.(*auth.UserAccountView).ID)

	ctx = f.newRequest(t, nil)
	res = captureJSON(ctx)
	require.NoError(t, f.ctrl.CurrentUserAccount(ctx))
	assert.Equal(t, http.StatusUnauthorized, res.status)
}

func TestHTTPControllerClaims(t *testing.T) {
	f := newControllerFixture(t)
	admin := f.mustCreate(t, "admin@example.com", adminClaim)
	id := f.mustCreate(t, "alice@example.com")

	ctx := f.newRequest(t, &admin)
	ctx.ParamsM["id"] = id.String()
	bindPayload(ctx, auth.Claim{Type: "team", Value: "blue"})
	res := captureJSON(ctx)
	require.NoError(t, f.ctrl.AddClaim(ctx))
	assert.Equal(t, http.StatusCreated, res.status)

	ctx = f.newRequest(t, &admin)
	ctx.ParamsM["id"] = id.String()
	bindPayload(ctx, auth.Claim{Type: "team", Value: "blue"})
	res = captureJSON(ctx)
	require.NoError(t, f.ctrl.AddClaim(ctx))
	assert.Equal(t, http.StatusBadRequest, res.status)
	body := res.errorBody(t)
	assert.Equal(t, auth.TextCodeBusinessLogic, body.Code)
	assert.Equal(t, auth.TextCodeClaimAlreadyExists, body.Reason)

	ctx = f.newRequest(t, &admin)
	ctx.ParamsM["id"] = id.String()
	res = captureJSON(ctx)
	require.NoError(t, f.ctrl.GetUserAccountClaims(ctx))
	assert.Equal(t, http.StatusOK, res.status)
	assert.Equal(t, map[string]any{"claims": []auth.Claim{{Type: "team", Value: "blue"}}}, res.body)

	ctx = f.newRequest(t, &admin)
	ctx.ParamsM["id"] = id.String()
	ctx.QueriesM["type"] = "team"
	ctx.QueriesM["value"] = "blue"
	res = captureJSON(ctx)
	require.NoError(t, f.ctrl.RemoveClaim(ctx))
	assert.Equal(t, http.StatusOK, res.status)

	view, err := f.queries.Get(context.Background(), id)
	require.NoError(t, err)
	assert.Empty(t, view.Claims)
}

func TestHTTPControllerStatusTransitions(t *testing.T) {
	f := newControllerFixture(t)
	admin := f.mustCreate(t, "admin@example.com", adminClaim)
	id := f.mustCreate(t, "alice@example.com")

	ctx := f.newRequest(t, &admin)
	ctx.ParamsM["id"] = admin.String()
	res := captureJSON(ctx)
	require.NoError(t, f.ctrl.LockUserAccount(ctx))
	assert.Equal(t, http.StatusBadRequest, res.status)
	assert.Equal(t, auth.TextCodeSelfOperationNotAllowed, res.errorBody(t).Reason)

	ctx = f.newRequest(t, &admin)
	ctx.ParamsM["id"] = id.String()
	res = captureJSON(ctx)
	require.NoError(t, f.ctrl.LockUserAccount(ctx))
	assert.Equal(t, http.StatusOK, res.status)

	ctx = f.newRequest(t, &admin)
	ctx.ParamsM["id"] = id.String()
	res = captureJSON(ctx)
	require.NoError(t, f.ctrl.DeleteUserAccount(ctx))
	assert.Equal(t, http.StatusOK, res.status)

	ctx = f.newRequest(t, &admin)
	ctx.ParamsM["id"] = id.String()
	res = captureJSON(ctx)
	require.NoError(t, f.ctrl.UnlockUserAccount(ctx))
	assert.Equal(t, http.StatusBadRequest, res.status)
	assert.Equal(t, auth.TextCodeDeletedAccountUpdateNotAllowed, res.errorBody(t).Reason)
}

func TestHTTPControllerChangeCurrentPassword(t *testing.T) {
	f := newControllerFixture(t)
	id := f.mustCreate(t, "alice@example.com")

	ctx := f.newRequest(t, &id)
	bindPayload(ctx, auth.ChangePasswordRequest{CurrentPassword: "nope-nope", NewPassword: "battery-staple"})
	res := captureJSON(ctx)
	require.NoError(t, f.ctrl.ChangeCurrentPassword(ctx))
	assert.Equal(t, http.StatusBadRequest, res.status)
	assert.Equal(t, auth.TextCodeIncorrectPassword, res.errorBody(t).Reason)

	ctx = f.newRequest(t, &id)
	bindPayload(ctx, auth.ChangePasswordRequest{CurrentPassword: "correct-horse", NewPassword: "battery-staple"})
	res = captureJSON(ctx)
	require.NoError(t, f.ctrl.ChangeCurrentPassword(ctx))
	assert.Equal(t, http.StatusOK, res.status)
}

type registeredRoute struct {
	method  string
	path    string
	handler router.HandlerFunc
	mw      []router.MiddlewareFunc
}

type recordingRegistrar struct {
	routes []registeredRoute
}

func (r *recordingRegistrar) add(method, path string, h router.HandlerFunc, mw []router.MiddlewareFunc) router.RouteInfo {
	r.routes = append(r.routes, registeredRoute{method: method, path: path, handler: h, mw: mw})
	return nil
}

func (r *recordingRegistrar) Get(path string, h router.HandlerFunc, mw ...router.MiddlewareFunc) router.RouteInfo {
	return r.add(http.MethodGet, path, h, mw)
}

func (r *recordingRegistrar) Post(path string, h router.HandlerFunc, mw ...router.MiddlewareFunc) router.RouteInfo {
	return r.add(http.MethodPost, path, h, mw)
}

func (r *recordingRegistrar) Put(path string, h router.HandlerFunc, mw ...router.MiddlewareFunc) router.RouteInfo {
	return r.add(http.MethodPut, path, h, mw)
}

func (r *recordingRegistrar) Delete(path string, h router.HandlerFunc, mw ...router.MiddlewareFunc) router.RouteInfo {
	return r.add(http.MethodDelete, path, h, mw)
}

func (r *recordingRegistrar) find(method, path string) (registeredRoute, bool) {
	for _, route := range r.routes {
		if route.method == method && route.path == path {
			return route, true
		}
	}
	return registeredRoute{}, false
}

func TestHTTPControllerRegisterRoutes(t *testing.T) {
	f := newControllerFixture(t)
	registrar := &recordingRegistrar{}
	f.ctrl.RegisterRoutes(registrar)

	public := []string{"/api/auth/log-in", "/api/auth/refresh-token"}
	for _, path := range public {
		route, ok := registrar.find(http.MethodPost, path)
		require.True(t, ok, path)
		assert.Empty(t, route.mw, path)
	}

	protected := []struct{ method, path string }{
		{http.MethodPost, "/api/auth/log-out"},
		{http.MethodGet, "/api/users/me"},
		{http.MethodPost, "/api/users/me/password"},
		{http.MethodPost, "/api/users"},
		{http.MethodGet, "/api/users"},
		{http.MethodGet, "/api/users/:id"},
		{http.MethodDelete, "/api/users/:id"},
		{http.MethodGet, "/api/users/:id/claims"},
		{http.MethodPost, "/api/users/:id/claims"},
		{http.MethodPut, "/api/users/:id/claims"},
		{http.MethodDelete, "/api/users/:id/claims"},
		{http.MethodPost, "/api/users/:id/lock"},
		{http.MethodPost, "/api/users/:id/unlock"},
		{http.MethodPost, "/api/users/:id/password"},
	}
	for _, p := range protected {
		route, ok := registrar.find(p.method, p.path)
		require.True(t, ok, p.path)
		assert.Len(t, route.mw, 1, p.path)
	}

	me, _ := registrar.find(http.MethodGet, "/api/users/me")
	byID, _ := registrar.find(http.MethodGet, "/api/users/:id")
	assert.Less(t, indexOf(registrar.routes, me), indexOf(registrar.routes, byID))
}

func indexOf(routes []registeredRoute, target registeredRoute) int {
	for i, route := range routes {
		if route.method == target.method && route.path == target.path {
			return i
		}
	}
	return -1
}

func TestHTTPControllerAdminRoutesRequireAdministratorClaim(t *testing.T) {
	f := newControllerFixture(t)
	admin := f.mustCreate(t, "admin@example.com", adminClaim)
	member := f.mustCreate(t, "alice@example.com")

	registrar := &recordingRegistrar{}
	f.ctrl.RegisterRoutes(registrar)
	route, ok := registrar.find(http.MethodGet, "/api/users")
	require.True(t, ok)
	handler := route.mw[0](route.handler)

	memberToken, err := f.tokens.GenerateAccessToken(member, nil)
	require.NoError(t, err)
	ctx := router.NewMockContext()
	ctx.On("GetString", "Authorization", "").Return("Bearer " + memberToken)
	res := captureJSON(ctx)
	require.NoError(t, handler(ctx))
	assert.Equal(t, http.StatusForbidden, res.status)
	assert.Equal(t, auth.TextCodeForbidden, res.errorBody(t).Code)

	ctx = router.NewMockContext()
	ctx.On("GetString", "Authorization", "").Return("")
	res = captureJSON(ctx)
	require.NoError(t, handler(ctx))
	assert.Equal(t, http.StatusUnauthorized, res.status)

	adminToken, err := f.tokens.GenerateAccessToken(admin, []auth.Claim{adminClaim})
	require.NoError(t, err)
	ctx = router.NewMockContext()
	ctx.On("GetString", "Authorization", "").Return("Bearer " + adminToken)
	ctx.On("Locals", auth.RouterClaimsKey, mock.Anything).Return(nil)
	ctx.On("Context").Return(context.Background())
	ctx.On("SetContext", mock.Anything).Return().Maybe()
	res = captureJSON(ctx)
	require.NoError(t, handler(ctx))
	assert.Equal(t, http.StatusOK, res.status)
	page := res.body.(*auth.UserAccountPage)
	assert.Equal(t, 2, page.Total)
}

func TestErrorResponse(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"not found", auth.ErrNotFound, http.StatusNotFound, auth.TextCodeNotFound},
		{"validation", auth.ErrValidation, http.StatusBadRequest, auth.TextCodeValidation},
		{"domain", auth.ErrClaimNotFound, http.StatusBadRequest, auth.TextCodeBusinessLogic},
		{"policy", auth.ErrLastAdministratorRemovalNotAllowed, http.StatusBadRequest, auth.TextCodeBusinessLogic},
		{"credentials", auth.ErrInvalidCredentials, http.StatusUnauthorized, auth.TextCodeInvalidCredentials},
		{"expired", auth.ErrTokenExpired, http.StatusUnauthorized, auth.TextCodeTokenExpired},
		{"conflict", auth.ErrConcurrentAccess, http.StatusConflict, auth.TextCodeConcurrentAccess},
		{"login taken", auth.ErrLoginAlreadyTaken, http.StatusBadRequest, auth.TextCodeLoginAlreadyTaken},
		{"missing token", jwtware.ErrJWTMissingOrMalformed, http.StatusUnauthorized, auth.TextCodeTokenMalformed},
		{"forbidden", jwtware.ErrClaimRequired, http.StatusForbidden, auth.TextCodeForbidden},
		{"unknown", errors.New("db exploded"), http.StatusInternalServerError, auth.TextCodeServerError},
		{"unknown event", auth.ErrUnknownEventType, http.StatusInternalServerError, auth.TextCodeServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, body := auth.ErrorResponse(tt.err)
			assert.Equal(t, tt.status, status)
			assert.Equal(t, tt.code, body.Code)
			if status == http.StatusInternalServerError {
				assert.NotContains(t, body.Message, "db exploded")
			}
		})
	}
}
