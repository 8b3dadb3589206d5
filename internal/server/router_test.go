package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/brandpick/apiserver/config"
	"github.com/brandpick/apiserver/internal/handlers"
	"github.com/brandpick/apiserver/internal/services"
	"github.com/brandpick/apiserver/internal/storage"
	"github.com/brandpick/apiserver/internal/store"
	"github.com/brandpick/apiserver/internal/store/memstore"
	"github.com/brandpick/apiserver/types"
	"go.uber.org/zap"
)

type capturedEvents struct {
	mu     sync.Mutex
	events map[string][]any
}

func (c *capturedEvents) PublishJSON(_ context.Context, channel string, event any) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.events == nil {
		c.events = make(map[string][]any)
	}
	c.events[channel] = append(c.events[channel], event)
	return "id", nil
}

func (c *capturedEvents) registration(t *testing.T, email string) types.UserRegisteredEvent {
	t.Helper()
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, event := range c.events[types.ChannelUserRegistered] {
		if e, ok := event.(types.UserRegisteredEvent); ok && e.Email == email {
			return e
		}
	}
	t.Fatalf("no registration event for %s", email)
	return types.UserRegisteredEvent{}
}

type memImages struct {
	mu      sync.Mutex
	objects map[string][]byte
}

func (m *memImages) Put(_ context.Context, key string, r io.Reader, _ int64, _ string) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.objects == nil {
		m.objects = make(map[string][]byte)
	}
	m.objects[key] = data
	return nil
}

func (m *memImages) Get(_ context.Context, key string) (io.ReadCloser, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.objects[key]
	if !ok {
		return nil, storage.ErrObjectNotFound
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (m *memImages) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.objects, key)
	return nil
}

type testAPI struct {
	handler http.Handler
	store   *memstore.Store
	events  *capturedEvents
}

var testAuthConfig = config.AuthConfig{
	JWTSecret:         "test-secret",
	JWTExpirationMins: 15,
	BcryptRounds:      4,
}

func newTestAPI(t *testing.T, images services.ImageStore) *testAPI {
	t.Helper()
	s := memstore.New()
	events := &capturedEvents{}
	cfg := config.Config{Auth: testAuthConfig}
	svc := newServices(memoryRepositories(s), images, cfg, services.WithEventPublisher(events))
	return &testAPI{handler: NewRouter(svc, zap.NewNop()), store: s, events: events}
}

func (a *testAPI) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	switch v := body.(type) {
	case nil:
	case string:
		reader = strings.NewReader(v)
	default:
		data, err := json.Marshal(v)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, reader)
	if reader != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	a.handler.ServeHTTP(rec, req)
	return rec
}

type account struct {
	id    string
	email string
	token string
}

func (a *testAPI) register(t *testing.T, email, role string) account {
	t.Helper()
	rec := a.do(t, http.MethodPost, "/auth/register", "", map[string]string{
		"email":    email,
		"password": "secret1",
		"role":     role,
		"name":     "Test " + role,
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("register %s: status %d body %s", email, rec.Code, rec.Body.String())
	}
	var resp handlers.AuthResponse
	decode(t, rec, &resp)
	return account{id: resp.User.ID, email: email, token: resp.Token.AccessToken}
}

func (a *testAPI) createProduct(t *testing.T, brand account, name string) types.Product {
	t.Helper()
	rec := a.do(t, http.MethodPost, "/brands/product", brand.token, map[string]any{
		"name":        name,
		"price":       19.99,
		"description": "A product",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create product: status %d body %s", rec.Code, rec.Body.String())
	}
	var product types.Product
	decode(t, rec, &product)
	return product
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, dst any) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), dst); err != nil {
		t.Fatalf("decode %q: %v", rec.Body.String(), err)
	}
}

func expectError(t *testing.T, rec *httptest.ResponseRecorder, status int, message string) handlers.ErrorResponse {
	t.Helper()
	if rec.Code != status {
		t.Fatalf("expected status %d, got %d body %s", status, rec.Code, rec.Body.String())
	}
	var resp handlers.ErrorResponse
	decode(t, rec, &resp)
	if resp.Code != status || resp.Message != message {
		t.Fatalf("expected %d %q, got %+v", status, message, resp)
	}
	return resp
}

func expectFieldError(t *testing.T, resp handlers.ErrorResponse, field, message string) {
	t.Helper()
	for _, fe := range resp.Errors {
		if fe[field] == message {
			return
		}
	}
	t.Fatalf("expected %s error %q, got %+v", field, message, resp.Errors)
}

func TestStatusAndUnknownRoute(t *testing.T) {
	api := newTestAPI(t, nil)

	rec := api.do(t, http.MethodGet, "/status", "", nil)
	if rec.Code != http.StatusOK || rec.Body.String() != "OK" {
		t.Fatalf("unexpected status response %d %q", rec.Code, rec.Body.String())
	}

	expectError(t, api.do(t, http.MethodGet, "/nope", "", nil), http.StatusNotFound, "Not found")
}

func TestRegisterLoginFlow(t *testing.T) {
	api := newTestAPI(t, nil)

	rec := api.do(t, http.MethodPost, "/auth/register", "", map[string]string{
		"email": "brand@example.com", "password": "secret1", "role": "brand", "name": "Acme",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("register: %d %s", rec.Code, rec.Body.String())
	}
	var registered handlers.AuthResponse
	decode(t, rec, &registered)
	if registered.Token.TokenType != "Bearer" || registered.Token.AccessToken == "" {
		t.Fatalf("unexpected token %+v", registered.Token)
	}
	if !strings.HasPrefix(registered.Token.RefreshToken, registered.User.ID+".") {
		t.Fatalf("refresh token %q not bound to user", registered.Token.RefreshToken)
	}
	if strings.Contains(rec.Body.String(), "password") {
		t.Fatal("password hash leaked in response")
	}

	dup := api.do(t, http.MethodPost, "/auth/register", "", map[string]string{
		"email": "brand@example.com", "password": "secret1", "role": "picker", "name": "Other",
	})
	resp := expectError(t, dup, http.StatusConflict, "Validation Error")
	expectFieldError(t, resp, "email", `"email" already exists`)

	expectError(t,
		api.do(t, http.MethodPost, "/auth/login", "", map[string]string{"email": "brand@example.com", "password": "wrong-pass"}),
		http.StatusUnauthorized, "Incorrect email or password")

	rec = api.do(t, http.MethodPost, "/auth/login", "", map[string]string{"email": "brand@example.com", "password": "secret1"})
	if rec.Code != http.StatusOK {
		t.Fatalf("login: %d %s", rec.Code, rec.Body.String())
	}
}

func TestRegisterValidation(t *testing.T) {
	api := newTestAPI(t, nil)

	tests := []struct {
		name    string
		body    any
		field   string
		message string
	}{
		{
			name:    "missing name",
			body:    map[string]string{"email": "a@example.com", "password": "secret1", "role": "brand"},
			field:   "name",
			message: `"name" is required`,
		},
		{
			name:    "bad role",
			body:    map[string]string{"email": "a@example.com", "password": "secret1", "role": "owner", "name": "A"},
			field:   "role",
			message: `"role" must be one of [brand, picker, shopper, admin]`,
		},
		{
			name:    "short password",
			body:    map[string]string{"email": "a@example.com", "password": "123", "role": "brand", "name": "A"},
			field:   "password",
			message: `"password" length must be at least 6 characters long`,
		},
		{
			name:    "unknown field",
			body:    map[string]string{"email": "a@example.com", "password": "secret1", "role": "brand", "name": "A", "age": "3"},
			field:   "age",
			message: `"age" is not allowed`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := expectError(t, api.do(t, http.MethodPost, "/auth/register", "", tt.body), http.StatusBadRequest, "Validation Error")
			expectFieldError(t, resp, tt.field, tt.message)
		})
	}

	expectError(t, api.do(t, http.MethodPost, "/auth/register", "", "{"), http.StatusBadRequest, "Invalid JSON body")
}

func TestRefreshAndConfirm(t *testing.T) {
	api := newTestAPI(t, nil)

	rec := api.do(t, http.MethodPost, "/auth/register", "", map[string]string{
		"email": "picker@example.com", "password": "secret1", "role": "picker", "name": "Pat",
	})
	var registered handlers.AuthResponse
	decode(t, rec, &registered)

	refresh := map[string]string{"email": "picker@example.com", "refreshToken": registered.Token.RefreshToken}
	rec = api.do(t, http.MethodPost, "/auth/refresh-token", "", refresh)
	if rec.Code != http.StatusOK {
		t.Fatalf("refresh: %d %s", rec.Code, rec.Body.String())
	}
	var token services.TokenResponse
	decode(t, rec, &token)
	if token.RefreshToken == registered.Token.RefreshToken {
		t.Fatal("expected a new refresh token")
	}
	expectError(t, api.do(t, http.MethodPost, "/auth/refresh-token", "", refresh),
		http.StatusUnauthorized, "Incorrect email or refreshToken")

	event := api.events.registration(t, "picker@example.com")
	if len(event.ConfirmToken) != 128 {
		t.Fatalf("expected 128 char confirm token, got %d", len(event.ConfirmToken))
	}

	wrong := map[string]string{"email": "picker@example.com", "token": strings.Repeat("a", 128)}
	expectError(t, api.do(t, http.MethodPost, "/auth/confirm", "", wrong), http.StatusBadRequest, "Email is no need to confirm")

	short := map[string]string{"email": "picker@example.com", "token": "abc"}
	resp := expectError(t, api.do(t, http.MethodPost, "/auth/confirm", "", short), http.StatusBadRequest, "Validation Error")
	expectFieldError(t, resp, "token", `"token" length must be 128 characters long`)

	confirm := map[string]string{"email": "picker@example.com", "token": event.ConfirmToken}
	rec = api.do(t, http.MethodPost, "/auth/confirm", "", confirm)
	if rec.Code != http.StatusOK || strings.TrimSpace(rec.Body.String()) != `"Email confirmed"` {
		t.Fatalf("confirm: %d %s", rec.Code, rec.Body.String())
	}
	expectError(t, api.do(t, http.MethodPost, "/auth/confirm", "", confirm), http.StatusBadRequest, "Email is no need to confirm")
}

func TestRoleAuthorization(t *testing.T) {
	api := newTestAPI(t, nil)
	brand := api.register(t, "brand@example.com", types.RoleBrand)
	picker := api.register(t, "picker@example.com", types.RolePicker)

	expectError(t, api.do(t, http.MethodGet, "/pickers/brands", "", nil), http.StatusUnauthorized, "Unauthorized")
	expectError(t, api.do(t, http.MethodGet, "/pickers/brands", "not-a-jwt", nil), http.StatusUnauthorized, "Unauthorized")
	expectError(t, api.do(t, http.MethodGet, "/pickers/brands", brand.token, nil), http.StatusForbidden, "Forbidden")
	expectError(t, api.do(t, http.MethodGet, "/brands/product", picker.token, nil), http.StatusForbidden, "Forbidden")

	rec := api.do(t, http.MethodGet, "/pickers/brands", picker.token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("list brands: %d %s", rec.Code, rec.Body.String())
	}
	var brands handlers.BrandListResponse
	decode(t, rec, &brands)
	if brands.Total != 1 || len(brands.Brands) != 1 || brands.Brands[0].ID != brand.id {
		t.Fatalf("unexpected brands %+v", brands)
	}
}

func TestCreateCampaign(t *testing.T) {
	api := newTestAPI(t, nil)
	brand := api.register(t, "brand@example.com", types.RoleBrand)
	other := api.register(t, "other@example.com", types.RoleBrand)
	picker := api.register(t, "picker@example.com", types.RolePicker)

	product := api.createProduct(t, brand, "Shirt")
	foreign := api.createProduct(t, other, "Ring")

	before := time.Now()
	rec := api.do(t, http.MethodPost, "/pickers/campaign", picker.token, map[string]any{
		"brandId":  brand.id,
		"products": []string{product.ID},
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create campaign: %d %s", rec.Code, rec.Body.String())
	}
	var campaign types.Campaign
	decode(t, rec, &campaign)
	if campaign.OwnerID != picker.id || campaign.BrandID != brand.id {
		t.Fatalf("unexpected campaign %+v", campaign)
	}
	if len(campaign.Products) != 1 || campaign.Products[0] != product.ID {
		t.Fatalf("unexpected products %v", campaign.Products)
	}
	if campaign.Expires.Before(before.Add(types.CampaignDuration)) {
		t.Fatalf("expires %s earlier than seven days from now", campaign.Expires)
	}

	tests := []struct {
		name    string
		body    map[string]any
		message string
	}{
		{name: "unknown brand", body: map[string]any{"brandId": store.NewID(), "products": []string{product.ID}}, message: "User does not exist"},
		{name: "not a brand", body: map[string]any{"brandId": picker.id, "products": []string{product.ID}}, message: "User is not brand"},
		{name: "foreign product", body: map[string]any{"brandId": brand.id, "products": []string{product.ID, foreign.ID}}, message: "Invalid products list"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			expectError(t, api.do(t, http.MethodPost, "/pickers/campaign", picker.token, tt.body), http.StatusBadRequest, tt.message)
		})
	}

	resp := expectError(t,
		api.do(t, http.MethodPost, "/pickers/campaign", picker.token, map[string]any{"brandId": "xyz", "products": []string{}}),
		http.StatusBadRequest, "Validation Error")
	expectFieldError(t, resp, "brandId", `"brandId" must be a valid id`)

	if got := api.store.Campaigns().Count(); got != 1 {
		t.Fatalf("expected exactly one stored campaign, got %d", got)
	}
}

func TestDashboardCampaigns(t *testing.T) {
	api := newTestAPI(t, nil)
	brand := api.register(t, "brand@example.com", types.RoleBrand)
	picker := api.register(t, "picker@example.com", types.RolePicker)
	product := api.createProduct(t, brand, "Shirt")

	for range 3 {
		rec := api.do(t, http.MethodPost, "/pickers/campaign", picker.token, map[string]any{
			"brandId": brand.id, "products": []string{product.ID},
		})
		if rec.Code != http.StatusCreated {
			t.Fatalf("create campaign: %d %s", rec.Code, rec.Body.String())
		}
	}

	rec := api.do(t, http.MethodGet, "/brands/dashboard/campaigns?page=2&limit=2", brand.token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("dashboard: %d %s", rec.Code, rec.Body.String())
	}
	var list handlers.CampaignListResponse
	decode(t, rec, &list)
	if list.Total != 3 || len(list.Campaigns) != 1 {
		t.Fatalf("expected total 3 with one campaign on page 2, got %d/%d", list.Total, len(list.Campaigns))
	}
	if owner := list.Campaigns[0].Owner; owner == nil || owner.ID != picker.id {
		t.Fatalf("expected campaign expanded with picker, got %+v", owner)
	}

	resp := expectError(t,
		api.do(t, http.MethodGet, "/brands/dashboard/campaigns?limit=101", brand.token, nil),
		http.StatusBadRequest, "Validation Error")
	expectFieldError(t, resp, "limit", `"limit" must be less than or equal to 100`)

	resp = expectError(t,
		api.do(t, http.MethodGet, "/brands/dashboard/campaigns?page=0", brand.token, nil),
		http.StatusBadRequest, "Validation Error")
	expectFieldError(t, resp, "page", `"page" must be greater than or equal to 1`)
}

func TestProductEndpoints(t *testing.T) {
	api := newTestAPI(t, nil)
	brand := api.register(t, "brand@example.com", types.RoleBrand)
	product := api.createProduct(t, brand, "Shirt")
	api.createProduct(t, brand, "Shoes")

	resp := expectError(t,
		api.do(t, http.MethodPost, "/brands/product", brand.token, map[string]any{"name": "Hat", "price": 0, "description": "x"}),
		http.StatusBadRequest, "Validation Error")
	expectFieldError(t, resp, "price", `"price" must be greater than or equal to 0.01`)

	rec := api.do(t, http.MethodGet, "/brands/product?perPage=1", brand.token, nil)
	var list handlers.ProductListResponse
	decode(t, rec, &list)
	if list.Total != 2 || len(list.Products) != 1 || list.Products[0].Name != "Shoes" {
		t.Fatalf("expected newest product first, got %+v", list)
	}

	rec = api.do(t, http.MethodGet, "/brands/product/"+product.ID, brand.token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("get product: %d %s", rec.Code, rec.Body.String())
	}
	expectError(t, api.do(t, http.MethodGet, "/brands/product/"+store.NewID(), brand.token, nil), http.StatusNotFound, "Product does not exist")
	resp = expectError(t, api.do(t, http.MethodGet, "/brands/product/bad-id", brand.token, nil), http.StatusBadRequest, "Validation Error")
	expectFieldError(t, resp, "id", `"id" must be a valid id`)

	resp = expectError(t,
		api.do(t, http.MethodPatch, "/brands/product/"+product.ID, brand.token, map[string]any{"type": "clothes"}),
		http.StatusBadRequest, "Validation Error")
	expectFieldError(t, resp, "sizes", `"sizes" is required`)

	rec = api.do(t, http.MethodPatch, "/brands/product/"+product.ID, brand.token, map[string]any{"type": "clothes", "sizes": "S,M", "outOfStock": true})
	if rec.Code != http.StatusOK {
		t.Fatalf("patch product: %d %s", rec.Code, rec.Body.String())
	}
	var patched types.Product
	decode(t, rec, &patched)
	if patched.Type != types.StockClothes || patched.Sizes != "S,M" || patched.OutOfStock == nil || !*patched.OutOfStock {
		t.Fatalf("unexpected patched product %+v", patched)
	}
	if patched.OwnerID != brand.id || patched.Name != "Shirt" {
		t.Fatalf("patch changed immutable fields: %+v", patched)
	}

	expectError(t, api.do(t, http.MethodGet, "/brands/product/"+product.ID+"/image", brand.token, nil),
		http.StatusNotImplemented, "Image storage is not configured")
}

func uploadRequest(t *testing.T, path, token string, content []byte) *http.Request {
	t.Helper()
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile("image", "shirt.png")
	if err != nil {
		t.Fatalf("create form file: %v", err)
	}
	if _, err := part.Write(content); err != nil {
		t.Fatalf("write form file: %v", err)
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("close multipart writer: %v", err)
	}
	req := httptest.NewRequest(http.MethodPut, path, &body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+token)
	return req
}

func TestProductImage(t *testing.T) {
	api := newTestAPI(t, &memImages{})
	brand := api.register(t, "brand@example.com", types.RoleBrand)
	other := api.register(t, "other@example.com", types.RoleBrand)
	product := api.createProduct(t, brand, "Shirt")
	path := "/brands/product/" + product.ID + "/image"

	expectError(t, api.do(t, http.MethodGet, path, brand.token, nil), http.StatusNotFound, "Image does not exist")

	rec := httptest.NewRecorder()
	api.handler.ServeHTTP(rec, uploadRequest(t, path, other.token, []byte("png")))
	expectError(t, rec, http.StatusForbidden, "Forbidden")

	rec = httptest.NewRecorder()
	api.handler.ServeHTTP(rec, uploadRequest(t, path, brand.token, []byte("png-bytes")))
	if rec.Code != http.StatusOK {
		t.Fatalf("upload: %d %s", rec.Code, rec.Body.String())
	}

	rec = api.do(t, http.MethodGet, path, brand.token, nil)
	if rec.Code != http.StatusOK || rec.Body.String() != "png-bytes" {
		t.Fatalf("download: %d %q", rec.Code, rec.Body.String())
	}
}

func TestBrandProfile(t *testing.T) {
	api := newTestAPI(t, nil)
	brand := api.register(t, "brand@example.com", types.RoleBrand)

	profile := map[string]any{
		"name":      "Acme",
		"country":   "US",
		"website":   "https://acme.example.com",
		"instagram": "https://instagram.com/acme",
		"code":      1,
		"phone":     "5550100",
	}
	rec := api.do(t, http.MethodPost, "/brands/profile", brand.token, profile)
	if rec.Code != http.StatusCreated {
		t.Fatalf("add profile: %d %s", rec.Code, rec.Body.String())
	}
	user, err := api.store.Users().GetByID(context.Background(), brand.id)
	if err != nil {
		t.Fatalf("get user: %v", err)
	}
	if user.Profile == nil || user.Profile.Website != "https://acme.example.com" {
		t.Fatalf("profile not stored: %+v", user.Profile)
	}

	profile["website"] = "not a url"
	resp := expectError(t, api.do(t, http.MethodPost, "/brands/profile", brand.token, profile), http.StatusBadRequest, "Validation Error")
	expectFieldError(t, resp, "website", `"website" must be a valid uri`)

	profile["website"] = "https://acme.example.com"
	profile["code"] = "one"
	resp = expectError(t, api.do(t, http.MethodPost, "/brands/profile", brand.token, profile), http.StatusBadRequest, "Validation Error")
	expectFieldError(t, resp, "code", `"code" must be a number`)
}

type staticProvider struct {
	profile services.OAuthProfile
}

func (p staticProvider) Profile(context.Context, string) (services.OAuthProfile, error) {
	return p.profile, nil
}

func TestOAuthSignInRequiresEmail(t *testing.T) {
	s := memstore.New()
	svc := newServices(memoryRepositories(s), nil, config.Config{Auth: testAuthConfig})
	svc.OAuth = map[string]services.OAuthProvider{
		services.ProviderFacebook: staticProvider{services.OAuthProfile{Service: services.ProviderFacebook, ID: "fb-1"}},
		services.ProviderGoogle:   staticProvider{services.OAuthProfile{Service: services.ProviderGoogle, ID: "g-1", Email: "gus@example.com"}},
	}
	api := &testAPI{handler: NewRouter(svc, zap.NewNop()), store: s}

	body := map[string]string{"access_token": "token"}
	expectError(t, api.do(t, http.MethodPost, "/auth/facebook", "", body), http.StatusUnauthorized, "Unauthorized")

	rec := api.do(t, http.MethodPost, "/auth/google", "", body)
	if rec.Code != http.StatusOK {
		t.Fatalf("google sign-in: %d %s", rec.Code, rec.Body.String())
	}
	var resp handlers.AuthResponse
	decode(t, rec, &resp)
	if resp.User.Email != "gus@example.com" || resp.User.Role != types.RoleShopper {
		t.Fatalf("unexpected user %+v", resp.User)
	}
}

func TestNewServesAPI(t *testing.T) {
	ctx := context.Background()
	srv, err := New(ctx, config.Config{Driver: config.DriverMemory, Auth: testAuthConfig}, zap.NewNop())
	if err != nil {
		t.Fatalf("new server: %v", err)
	}
	defer func() { _ = srv.Shutdown(ctx) }()

	rec := httptest.NewRecorder()
	srv.httpServer.Handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/status", nil))
	if rec.Code != http.StatusOK || rec.Body.String() != "OK" {
		t.Fatalf("unexpected status response %d %q", rec.Code, rec.Body.String())
	}
	if srv.httpServer.Addr != ":8080" {
		t.Fatalf("unexpected addr %q", srv.httpServer.Addr)
	}
}
