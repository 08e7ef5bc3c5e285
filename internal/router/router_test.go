package router

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/iliyamo/agritrace/internal/cache"
	"github.com/iliyamo/agritrace/internal/handler"
	"github.com/iliyamo/agritrace/internal/repository"
	"github.com/iliyamo/agritrace/internal/service"
	"github.com/iliyamo/agritrace/internal/utils"
)

const testSecret = "test-secret"

func newServer(t *testing.T) *echo.Echo {
	t.Helper()
	store := repository.NewMemoryStore()
	records := cache.NewLocal("crop", time.Minute)
	sessions := service.NewSessionService(store, testSecret, 24*time.Hour, bcrypt.MinCost)

	e := echo.New()
	Register(e, Deps{
		Health:   store,
		Auth:     handler.NewAuthHandler(sessions, false),
		Crops:    handler.NewCropHandler(service.NewGateway(store, store, records, nil)),
		Lookup:   handler.NewLookupHandler(service.NewLookup(store, records)),
		Verifier: sessions,
	})
	return e
}

// performRequest sends a JSON request, optionally with the session cookie.
func performRequest(e *echo.Echo, method, path string, body interface{}, cookie *http.Cookie) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	if cookie != nil {
		req.AddCookie(cookie)
	}
	w := httptest.NewRecorder()
	e.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

func signupAndLogin(t *testing.T, e *echo.Echo, name, role string) (*http.Cookie, string) {
	t.Helper()
	w := performRequest(e, http.MethodPost, "/users/signup", map[string]string{
		"username": name,
		"email":    name + "@example.com",
		"password": "pwd",
		"role":     role,
		"number":   "555-0100",
		"address":  "1 Field Rd",
	}, nil)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = performRequest(e, http.MethodPost, "/users/login", map[string]string{
		"email":    name + "@example.com",
		"password": "pwd",
	}, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var session *http.Cookie
	for _, ck := range w.Result().Cookies() {
		if ck.Name == "token" {
			session = ck
		}
	}
	require.NotNil(t, session, "login must set the token cookie")
	assert.True(t, session.HttpOnly)

	user := decode(t, w)["user"].(map[string]interface{})
	assert.NotContains(t, user, "passwordHash")
	return &http.Cookie{Name: "token", Value: session.Value}, user["id"].(string)
}

func wheat(id string) map[string]interface{} {
	return map[string]interface{}{
		"cropId":      id,
		"cropName":    "Wheat",
		"quantity":    10,
		"price":       5,
		"location":    "X",
		"harvestDate": "2024-06-01",
		"expiryDate":  "2024-12-01",
	}
}

func delivery(id string, price interface{}) map[string]interface{} {
	return map[string]interface{}{
		"cropId":                    id,
		"distributorPrice":          price,
		"distributorDate":           "2024-06-05",
		"distributorLocation":       "Depot",
		"distributorDeliveryName":   "Bob",
		"distributorPhone":          "555-0101",
		"distributorDeliveryNumber": 1001,
	}
}

func TestHealthz(t *testing.T) {
	e := newServer(t)
	w := performRequest(e, http.MethodGet, "/healthz", nil, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ok", w.Body.String())
}

func TestCropLifecycleEndToEnd(t *testing.T) {
	e := newServer(t)
	alice, aliceID := signupAndLogin(t, e, "alice", "farmer")

	w := performRequest(e, http.MethodPost, "/crops/farmer/add", wheat("C1"), alice)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	crop := decode(t, w)["crop"].(map[string]interface{})
	assert.Equal(t, aliceID, crop["farmerUsername"])
	assert.NotContains(t, crop, "distributorPrice")

	w = performRequest(e, http.MethodGet, "/crops/data/get?cropId=C1", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	crops := decode(t, w)["crops"].([]interface{})
	require.Len(t, crops, 1)
	before := crops[0].(map[string]interface{})
	assert.Equal(t, "C1", before["cropId"])

	bob, bobID := signupAndLogin(t, e, "bob", "distributor")
	w = performRequest(e, http.MethodPut, "/crops/distributor/add", delivery("C1", 7), bob)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = performRequest(e, http.MethodGet, "/crops/data/get?cropId=C1", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	after := decode(t, w)["crops"].([]interface{})[0].(map[string]interface{})
	assert.Equal(t, bobID, after["distributorUsername"])
	assert.Equal(t, 7.0, after["distributorPrice"])
	for _, field := range []string{"cropName", "quantity", "price", "location", "harvestDate", "expiryDate", "createdAt", "farmerUsername"} {
		assert.Equal(t, before[field], after[field], field)
	}

	// a second amendment replaces the first
	w = performRequest(e, http.MethodPut, "/crops/distributor/add", delivery("C1", "9"), bob)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	w = performRequest(e, http.MethodGet, "/crops/data/get?cropId=C1", nil, nil)
	after = decode(t, w)["crops"].([]interface{})[0].(map[string]interface{})
	assert.Equal(t, 9.0, after["distributorPrice"])

	carol, _ := signupAndLogin(t, e, "carol", "retailer")
	w = performRequest(e, http.MethodPut, "/crops/retailer/add", map[string]interface{}{
		"cropId":           "C1",
		"retailerPrice":    12.5,
		"retailerDate":     "2024-06-09",
		"retailerLocation": "Shop",
	}, carol)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	for _, tc := range []struct {
		path   string
		cookie *http.Cookie
	}{
		{"/crops/farmer/fetch", alice},
		{"/crops/distributor/fetch", bob},
		{"/crops/retailer/fetch", carol},
	} {
		w = performRequest(e, http.MethodGet, tc.path, nil, tc.cookie)
		require.Equal(t, http.StatusOK, w.Code, tc.path)
		list := decode(t, w)["crops"].([]interface{})
		require.Len(t, list, 1, tc.path)
		assert.Equal(t, "farmer+distributor+retailer", stageOf(list[0].(map[string]interface{})))
	}

	// other dashboards see nothing
	w = performRequest(e, http.MethodGet, "/crops/farmer/fetch", nil, bob)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"crops":[]}`, w.Body.String())
}

func stageOf(rec map[string]interface{}) string {
	_, dist := rec["distributorUsername"]
	_, ret := rec["retailerUsername"]
	switch {
	case dist && ret:
		return "farmer+distributor+retailer"
	case dist:
		return "farmer+distributor"
	case ret:
		return "farmer+retailer"
	}
	return "farmer-only"
}

func TestProtectedRoutesRequireSession(t *testing.T) {
	e := newServer(t)
	good, userID := signupAndLogin(t, e, "alice", "farmer")

	expired, err := utils.NewSessionToken(testSecret, userID, "alice", "alice@example.com", "farmer", -time.Minute)
	require.NoError(t, err)
	forged, err := utils.NewSessionToken("other-secret", userID, "alice", "alice@example.com", "farmer", time.Hour)
	require.NoError(t, err)

	routes := []struct{ method, path string }{
		{http.MethodGet, "/users/read"},
		{http.MethodPost, "/crops/farmer/add"},
		{http.MethodGet, "/crops/farmer/fetch"},
		{http.MethodPut, "/crops/distributor/add"},
		{http.MethodGet, "/crops/distributor/fetch"},
		{http.MethodPut, "/crops/retailer/add"},
		{http.MethodGet, "/crops/retailer/fetch"},
		{http.MethodGet, "/crops/new-id"},
	}
	sessions := map[string]*http.Cookie{
		"missing":  nil,
		"expired":  {Name: "token", Value: expired.Token},
		"tampered": {Name: "token", Value: good.Value + "x"},
		"forged":   {Name: "token", Value: forged.Token},
	}
	for name, ck := range sessions {
		for _, r := range routes {
			w := performRequest(e, r.method, r.path, wheat("C1"), ck)
			assert.Equal(t, http.StatusUnauthorized, w.Code, "%s %s with %s token", r.method, r.path, name)
		}
	}

	// nothing was written by the rejected requests
	w := performRequest(e, http.MethodGet, "/crops/data/get?cropId=C1", nil, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestBearerHeaderIsAccepted(t *testing.T) {
	e := newServer(t)
	ck, _ := signupAndLogin(t, e, "alice", "farmer")

	req := httptest.NewRequest(http.MethodGet, "/users/read", nil)
	req.Header.Set(echo.HeaderAuthorization, "Bearer "+ck.Value)
	w := httptest.NewRecorder()
	e.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)
	user := decode(t, w)["user"].(map[string]interface{})
	assert.Equal(t, "alice", user["username"])
	assert.Equal(t, "farmer", user["role"])
}

func TestRoleMismatchIsForbidden(t *testing.T) {
	e := newServer(t)
	alice, _ := signupAndLogin(t, e, "alice", "farmer")
	carol, _ := signupAndLogin(t, e, "carol", "retailer")

	w := performRequest(e, http.MethodPost, "/crops/farmer/add", wheat("C1"), carol)
	assert.Equal(t, http.StatusForbidden, w.Code)

	require.Equal(t, http.StatusCreated, performRequest(e, http.MethodPost, "/crops/farmer/add", wheat("C1"), alice).Code)

	w = performRequest(e, http.MethodPut, "/crops/distributor/add", delivery("C1", 7), carol)
	assert.Equal(t, http.StatusForbidden, w.Code)
	w = performRequest(e, http.MethodPut, "/crops/retailer/add", map[string]interface{}{
		"cropId": "C1", "retailerPrice": 1, "retailerDate": "2024-06-09", "retailerLocation": "Shop",
	}, alice)
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestCropWriteErrors(t *testing.T) {
	e := newServer(t)
	alice, _ := signupAndLogin(t, e, "alice", "farmer")
	bob, _ := signupAndLogin(t, e, "bob", "distributor")

	body := wheat("C1")
	delete(body, "price")
	w := performRequest(e, http.MethodPost, "/crops/farmer/add", body, alice)
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, []interface{}{"price"}, decode(t, w)["fields"])

	require.Equal(t, http.StatusCreated, performRequest(e, http.MethodPost, "/crops/farmer/add", wheat("C1"), alice).Code)
	w = performRequest(e, http.MethodPost, "/crops/farmer/add", wheat("C1"), alice)
	assert.Equal(t, http.StatusConflict, w.Code)

	w = performRequest(e, http.MethodPut, "/crops/distributor/add", delivery("nope", 7), bob)
	assert.Equal(t, http.StatusNotFound, w.Code)

	partial := delivery("C1", 7)
	delete(partial, "distributorPhone")
	w = performRequest(e, http.MethodPut, "/crops/distributor/add", partial, bob)
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, []interface{}{"distributorPhone"}, decode(t, w)["fields"])

	w = performRequest(e, http.MethodPost, "/crops/farmer/add", map[string]interface{}{"quantity": true}, alice)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestNonFinitePricesAreRejected(t *testing.T) {
	e := newServer(t)
	alice, _ := signupAndLogin(t, e, "alice", "farmer")
	bob, _ := signupAndLogin(t, e, "bob", "distributor")
	carol, _ := signupAndLogin(t, e, "carol", "retailer")

	body := wheat("C1")
	body["quantity"] = "NaN"
	body["price"] = "Inf"
	w := performRequest(e, http.MethodPost, "/crops/farmer/add", body, alice)
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, []interface{}{"quantity", "price"}, decode(t, w)["fields"])

	// nothing was stored, so the id is still free
	w = performRequest(e, http.MethodPost, "/crops/farmer/add", wheat("C1"), alice)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = performRequest(e, http.MethodPut, "/crops/distributor/add", delivery("C1", "NaN"), bob)
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, []interface{}{"distributorPrice"}, decode(t, w)["fields"])

	w = performRequest(e, http.MethodPut, "/crops/retailer/add", map[string]interface{}{
		"cropId":           "C1",
		"retailerPrice":    "-Infinity",
		"retailerDate":     "2024-06-09",
		"retailerLocation": "Shop",
	}, carol)
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, []interface{}{"retailerPrice"}, decode(t, w)["fields"])

	w = performRequest(e, http.MethodGet, "/crops/data/get?cropId=C1", nil, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "farmer-only", stageOf(decode(t, w)["crops"].([]interface{})[0].(map[string]interface{})))
	w = performRequest(e, http.MethodGet, "/crops/farmer/fetch", nil, alice)
	assert.Equal(t, http.StatusOK, w.Code, w.Body.String())
}

func TestOverlongCropIDIsRejected(t *testing.T) {
	e := newServer(t)
	alice, _ := signupAndLogin(t, e, "alice", "farmer")

	w := performRequest(e, http.MethodPost, "/crops/farmer/add", wheat(strings.Repeat("c", 129)), alice)
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, []interface{}{"cropId"}, decode(t, w)["fields"])

	w = performRequest(e, http.MethodPost, "/crops/farmer/add", wheat(strings.Repeat("c", 128)), alice)
	assert.Equal(t, http.StatusCreated, w.Code, w.Body.String())
}

func TestDeliveryNumberIsUniqueAcrossCrops(t *testing.T) {
	e := newServer(t)
	alice, _ := signupAndLogin(t, e, "alice", "farmer")
	bob, _ := signupAndLogin(t, e, "bob", "distributor")
	for _, id := range []string{"C1", "C2"} {
		require.Equal(t, http.StatusCreated, performRequest(e, http.MethodPost, "/crops/farmer/add", wheat(id), alice).Code)
	}

	w := performRequest(e, http.MethodPut, "/crops/distributor/add", delivery("C1", 7), bob)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = performRequest(e, http.MethodPut, "/crops/distributor/add", delivery("C2", 8), bob)
	require.Equal(t, http.StatusConflict, w.Code, w.Body.String())

	// re-amending the crop that holds the number is fine
	w = performRequest(e, http.MethodPut, "/crops/distributor/add", delivery("C1", 9), bob)
	assert.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = performRequest(e, http.MethodGet, "/crops/data/get?cropId=C2", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "farmer-only", stageOf(decode(t, w)["crops"].([]interface{})[0].(map[string]interface{})))
}

func TestAccountErrors(t *testing.T) {
	e := newServer(t)
	signupAndLogin(t, e, "alice", "farmer")

	w := performRequest(e, http.MethodPost, "/users/signup", map[string]string{"username": "x"}, nil)
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, []interface{}{"email", "password", "role", "number", "address"}, decode(t, w)["fields"])

	w = performRequest(e, http.MethodPost, "/users/signup", map[string]string{
		"username": "alice2", "email": "alice@example.com", "password": "p",
		"role": "farmer", "number": "1", "address": "a",
	}, nil)
	assert.Equal(t, http.StatusConflict, w.Code)

	w = performRequest(e, http.MethodPost, "/users/login", map[string]string{"email": "nobody@example.com", "password": "p"}, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = performRequest(e, http.MethodPost, "/users/login", map[string]string{"email": "alice@example.com", "password": "bad"}, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestLogoutExpiresCookie(t *testing.T) {
	e := newServer(t)
	w := performRequest(e, http.MethodPost, "/users/logout", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	cookies := w.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, "token", cookies[0].Name)
	assert.Empty(t, cookies[0].Value)
	assert.Less(t, cookies[0].MaxAge, 0)
}

func TestPublicLookup(t *testing.T) {
	e := newServer(t)
	alice, _ := signupAndLogin(t, e, "alice", "farmer")

	w := performRequest(e, http.MethodGet, "/crops/data/get", nil, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	w = performRequest(e, http.MethodGet, "/crops/data/get?cropId=missing", nil, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	require.Equal(t, http.StatusCreated, performRequest(e, http.MethodPost, "/crops/farmer/add", wheat("C1"), alice).Code)
	first := performRequest(e, http.MethodGet, "/crops/data/get?cropId=C1", nil, nil)
	second := performRequest(e, http.MethodGet, "/crops/data/get?cropId=C1", nil, nil)
	require.Equal(t, http.StatusOK, first.Code)
	assert.JSONEq(t, first.Body.String(), second.Body.String())
}

func TestQRAndNewID(t *testing.T) {
	e := newServer(t)
	alice, _ := signupAndLogin(t, e, "alice", "farmer")

	w := performRequest(e, http.MethodGet, "/crops/new-id", nil, alice)
	require.Equal(t, http.StatusOK, w.Code)
	id := decode(t, w)["cropId"].(string)
	_, err := uuid.Parse(id)
	require.NoError(t, err)

	w = performRequest(e, http.MethodGet, "/crops/qr?cropId="+id, nil, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	require.Equal(t, http.StatusCreated, performRequest(e, http.MethodPost, "/crops/farmer/add", wheat(id), alice).Code)
	w = performRequest(e, http.MethodGet, "/crops/qr?cropId="+id+"&size=128", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "image/png", w.Header().Get(echo.HeaderContentType))
	assert.True(t, bytes.HasPrefix(w.Body.Bytes(), []byte("\x89PNG\r\n\x1a\n")))

	w = performRequest(e, http.MethodGet, "/crops/qr?cropId="+id+"&size=5", nil, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
