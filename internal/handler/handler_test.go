package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/ptetdev/ptet/internal/auth/keys"
	"github.com/ptetdev/ptet/internal/auth/token"
	"github.com/ptetdev/ptet/internal/handler"
	"github.com/ptetdev/ptet/internal/storage/database"
)

const testAudience = "https://ptet.test"

type testAPI struct {
	router   http.Handler
	producer func() *token.Producer
}

func newTestAPI(t *testing.T) *testAPI {
	t.Helper()

	cache, err := keys.Open(t.TempDir())
	require.NoError(t, err)
	_, err = cache.CreateKey(keys.AlgorithmEC, "")
	require.NoError(t, err)

	bdb, err := database.Open("sqlite://" + filepath.Join(t.TempDir(), "api.db") + "?mode=rwc")
	require.NoError(t, err)
	t.Cleanup(func() { _ = bdb.Close() })
	require.NoError(t, database.Migrate(context.Background(), bdb))

	verifier := token.NewVerifier(cache).ExpectAudience(testAudience)
	h := handler.NewHandler(
		verifier,
		database.NewUserRepository(bdb),
		database.NewRideRepository(bdb),
		database.NewTagRepository(bdb),
		database.NewRideTagRepository(bdb),
		zaptest.NewLogger(t),
	)
	return &testAPI{
		router: h.Routes(),
		producer: func() *token.Producer {
			return token.NewProducer(cache).
				WithIssuer("https://issuer.test").
				WithAudience(testAudience).
				WithExpiration(time.Now().Add(time.Hour))
		},
	}
}

func (a *testAPI) token(t *testing.T, subject string, write bool) string {
	t.Helper()
	p := a.producer()
	if write {
		p = p.AddClaim(token.WriteClaim, true)
	}
	raw, err := p.Produce(subject)
	require.NoError(t, err)
	return raw
}

func (a *testAPI) do(t *testing.T, method, path, bearer string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	rec := httptest.NewRecorder()
	a.router.ServeHTTP(rec, req)
	return rec
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v))
	return v
}

func TestMissingTokenIsBadRequest(t *testing.T) {
	api := newTestAPI(t)

	rec := api.do(t, http.MethodGet, "/user", "", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	var envelope struct {
		Error struct {
			Code   int    `json:"code"`
			Reason string `json:"reason"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	assert.Equal(t, http.StatusBadRequest, envelope.Error.Code)
	assert.Equal(t, "Bad Request", envelope.Error.Reason)
}

func TestInvalidTokenIsUnauthorized(t *testing.T) {
	api := newTestAPI(t)
	rec := api.do(t, http.MethodGet, "/user", "not-a-token", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestReadTokenCannotWrite(t *testing.T) {
	api := newTestAPI(t)
	readToken := api.token(t, "alice", false)

	rec := api.do(t, http.MethodPost, "/tag", readToken, map[string]any{
		"tag_type": "string",
		"tag_key":  "line",
	})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestUserCreatedOnFirstRequest(t *testing.T) {
	api := newTestAPI(t)
	bearer := api.token(t, "alice", true)

	rec := api.do(t, http.MethodGet, "/user", bearer, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	u := decodeBody[map[string]any](t, rec)
	assert.Equal(t, "https://issuer.test", u["jwt_issuer"])
	assert.Equal(t, "alice", u["jwt_subject"])
	assert.Nil(t, u["name"])

	rec = api.do(t, http.MethodPut, "/user", bearer, map[string]any{"name": "Alice"})
	require.Equal(t, http.StatusNoContent, rec.Code)

	rec = api.do(t, http.MethodGet, "/user", bearer, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	u = decodeBody[map[string]any](t, rec)
	assert.Equal(t, "Alice", u["name"])
}

func TestRideCRUD(t *testing.T) {
	api := newTestAPI(t)
	bearer := api.token(t, "alice", true)

	rec := api.do(t, http.MethodPost, "/ride", bearer, map[string]any{
		"journey_departure": "2024-05-10T08:30:00Z",
		"location_from":     "Central Station",
		"location_to":       "Airport",
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	created := decodeBody[map[string]any](t, rec)
	id := int64(created["id"].(float64))
	require.NotZero(t, id)

	rec = api.do(t, http.MethodGet, "/ride", bearer, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "1", rec.Header().Get("X-Total-Items"))

	path := "/ride/" + jsonID(id)
	rec = api.do(t, http.MethodPut, path, bearer, map[string]any{
		"journey_departure": "2024-05-10T08:30:00Z",
		"location_from":     "Central Station",
		"location_to":       "Harbor",
	})
	require.Equal(t, http.StatusNoContent, rec.Code)

	rec = api.do(t, http.MethodGet, path, bearer, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	got := decodeBody[map[string]any](t, rec)
	assert.Equal(t, "Harbor", got["location_to"])

	rec = api.do(t, http.MethodDelete, path, bearer, nil)
	require.Equal(t, http.StatusNoContent, rec.Code)
	rec = api.do(t, http.MethodGet, path, bearer, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRideMissingDepartureRejected(t *testing.T) {
	api := newTestAPI(t)
	bearer := api.token(t, "alice", true)

	rec := api.do(t, http.MethodPost, "/ride", bearer, map[string]any{
		"location_from": "A",
		"location_to":   "B",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestForeignRideIsNotFound(t *testing.T) {
	api := newTestAPI(t)
	alice := api.token(t, "alice", true)
	bob := api.token(t, "bob", true)

	rec := api.do(t, http.MethodPost, "/ride", alice, map[string]any{
		"journey_departure": "2024-05-10T08:30:00Z",
		"location_from":     "A",
		"location_to":       "B",
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	id := int64(decodeBody[map[string]any](t, rec)["id"].(float64))

	path := "/ride/" + jsonID(id)
	rec = api.do(t, http.MethodGet, path, bob, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	rec = api.do(t, http.MethodDelete, path, bob, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = api.do(t, http.MethodGet, path, alice, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestTagCRUDAndOptions(t *testing.T) {
	api := newTestAPI(t)
	bearer := api.token(t, "alice", true)

	rec := api.do(t, http.MethodPost, "/tag", bearer, map[string]any{
		"tag_type": "enum",
		"tag_key":  "line",
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	created := decodeBody[map[string]any](t, rec)
	tagID := int64(created["id"].(float64))
	assert.Equal(t, "line", created["tag_display_name"])
	assert.NotEmpty(t, created["uuid"])

	rec = api.do(t, http.MethodPost, "/tag", bearer, map[string]any{
		"tag_type": "temperature",
		"tag_key":  "bad",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	optPath := "/tag/" + jsonID(tagID) + "/tag_option"
	rec = api.do(t, http.MethodPost, optPath, bearer, map[string]any{
		"order": 1,
		"value": "U2",
		"name":  "Subway 2",
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	opt := decodeBody[map[string]any](t, rec)
	assert.Equal(t, "Subway 2", opt["display_name"])

	rec = api.do(t, http.MethodGet, "/tag/"+jsonID(tagID), bearer, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	got := decodeBody[map[string]any](t, rec)
	require.Len(t, got["options"], 1)

	rec = api.do(t, http.MethodDelete, "/tag/"+jsonID(tagID), bearer, nil)
	require.Equal(t, http.StatusNoContent, rec.Code)
}

func TestTagOptionItemRoutes(t *testing.T) {
	api := newTestAPI(t)
	bearer := api.token(t, "alice", true)

	rec := api.do(t, http.MethodPost, "/tag", bearer, map[string]any{
		"tag_type": "enum",
		"tag_key":  "ticket",
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	tagID := int64(decodeBody[map[string]any](t, rec)["id"].(float64))

	rec = api.do(t, http.MethodPost, "/tag/"+jsonID(tagID)+"/tag_option", bearer, map[string]any{
		"order": 1,
		"value": "single",
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	optionID := int64(decodeBody[map[string]any](t, rec)["id"].(float64))
	optPath := "/tag_option/" + jsonID(optionID)

	rec = api.do(t, http.MethodGet, optPath, bearer, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "single", decodeBody[map[string]any](t, rec)["value"])

	rec = api.do(t, http.MethodPut, optPath, bearer, map[string]any{
		"order": 2,
		"value": "day_pass",
	})
	require.Equal(t, http.StatusNoContent, rec.Code)

	rec = api.do(t, http.MethodGet, optPath, bearer, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "day_pass", decodeBody[map[string]any](t, rec)["value"])

	other := api.token(t, "mallory", true)
	rec = api.do(t, http.MethodGet, optPath, other, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = api.do(t, http.MethodDelete, optPath, bearer, nil)
	require.Equal(t, http.StatusNoContent, rec.Code)

	rec = api.do(t, http.MethodGet, optPath, bearer, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestOptionsRejectedOnNonEnumTag(t *testing.T) {
	api := newTestAPI(t)
	bearer := api.token(t, "alice", true)

	rec := api.do(t, http.MethodPost, "/tag", bearer, map[string]any{
		"tag_type": "float",
		"tag_key":  "price",
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	tagID := int64(decodeBody[map[string]any](t, rec)["id"].(float64))

	rec = api.do(t, http.MethodPost, "/tag/"+jsonID(tagID)+"/tag_option", bearer, map[string]any{
		"value": "x",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRideTagLinking(t *testing.T) {
	api := newTestAPI(t)
	bearer := api.token(t, "alice", true)

	rec := api.do(t, http.MethodPost, "/ride", bearer, map[string]any{
		"journey_departure": "2024-05-10T08:30:00Z",
		"location_from":     "A",
		"location_to":       "B",
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	rideID := int64(decodeBody[map[string]any](t, rec)["id"].(float64))

	rec = api.do(t, http.MethodPost, "/tag", bearer, map[string]any{
		"tag_type": "float",
		"tag_key":  "price",
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	tagID := int64(decodeBody[map[string]any](t, rec)["id"].(float64))

	linkPath := "/ride/" + jsonID(rideID) + "/ride_tags/" + jsonID(tagID)

	// value kind must match the tag type
	rec = api.do(t, http.MethodPost, linkPath, bearer, map[string]any{
		"value": map[string]any{"type": "String", "value": "cheap"},
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = api.do(t, http.MethodPost, linkPath, bearer, map[string]any{
		"value": map[string]any{"type": "Float", "value": 3.2},
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	pair := decodeBody[map[string]any](t, rec)
	link := pair["link"].(map[string]any)
	linkID := int64(link["id"].(float64))
	value := link["value"].(map[string]any)
	assert.Equal(t, "Float", value["type"])
	assert.InDelta(t, 3.2, value["value"].(float64), 1e-9)

	// second live link for the same pair is rejected
	rec = api.do(t, http.MethodPost, linkPath, bearer, map[string]any{
		"value": map[string]any{"type": "Float", "value": 4.0},
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = api.do(t, http.MethodGet, "/ride/"+jsonID(rideID)+"/ride_tags", bearer, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	pairs := decodeBody[[]map[string]any](t, rec)
	require.Len(t, pairs, 1)

	rec = api.do(t, http.MethodPut, "/ride_tag/"+jsonID(linkID), bearer, map[string]any{
		"value": map[string]any{"type": "Float", "value": 4.5},
	})
	require.Equal(t, http.StatusNoContent, rec.Code)

	rec = api.do(t, http.MethodGet, "/ride_tag/"+jsonID(linkID), bearer, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	pair = decodeBody[map[string]any](t, rec)
	value = pair["link"].(map[string]any)["value"].(map[string]any)
	assert.InDelta(t, 4.5, value["value"].(float64), 1e-9)

	rec = api.do(t, http.MethodDelete, "/ride_tag/"+jsonID(linkID), bearer, nil)
	require.Equal(t, http.StatusNoContent, rec.Code)
	rec = api.do(t, http.MethodGet, linkPath, bearer, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	// deleted link frees the pair
	rec = api.do(t, http.MethodPost, linkPath, bearer, map[string]any{
		"value": map[string]any{"type": "Float", "value": 1.0},
	})
	assert.Equal(t, http.StatusCreated, rec.Code)
}

func TestEnumValueMustBelongToTag(t *testing.T) {
	api := newTestAPI(t)
	bearer := api.token(t, "alice", true)

	rec := api.do(t, http.MethodPost, "/ride", bearer, map[string]any{
		"journey_departure": "2024-05-10T08:30:00Z",
		"location_from":     "A",
		"location_to":       "B",
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	rideID := int64(decodeBody[map[string]any](t, rec)["id"].(float64))

	rec = api.do(t, http.MethodPost, "/tag", bearer, map[string]any{
		"tag_type": "enum",
		"tag_key":  "line",
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	tagID := int64(decodeBody[map[string]any](t, rec)["id"].(float64))

	rec = api.do(t, http.MethodPost, "/tag/"+jsonID(tagID)+"/tag_option", bearer, map[string]any{
		"value": "U2",
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	optionID := int64(decodeBody[map[string]any](t, rec)["id"].(float64))

	linkPath := "/ride/" + jsonID(rideID) + "/ride_tags/" + jsonID(tagID)
	rec = api.do(t, http.MethodPost, linkPath, bearer, map[string]any{
		"value": map[string]any{"type": "EnumOption", "value": optionID + 100},
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = api.do(t, http.MethodPost, linkPath, bearer, map[string]any{
		"value": map[string]any{"type": "EnumOption", "value": optionID},
	})
	assert.Equal(t, http.StatusCreated, rec.Code)
}

func TestListPaginationHeaders(t *testing.T) {
	api := newTestAPI(t)
	bearer := api.token(t, "alice", true)

	for i := 0; i < 5; i++ {
		rec := api.do(t, http.MethodPost, "/tag", bearer, map[string]any{
			"tag_type": "string",
			"tag_key":  "k" + jsonID(int64(i)),
		})
		require.Equal(t, http.StatusCreated, rec.Code)
	}

	rec := api.do(t, http.MethodGet, "/tag?page=1&size=2", bearer, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "5", rec.Header().Get("X-Total-Items"))
	assert.Equal(t, "1", rec.Header().Get("X-Page"))
	assert.Equal(t, "2", rec.Header().Get("X-Page-Size"))
	assert.Equal(t, "3", rec.Header().Get("X-Total-Pages"))
	link := rec.Header().Get("Link")
	assert.Contains(t, link, `rel="self"`)
	assert.Contains(t, link, `rel="prev"`)
	assert.Contains(t, link, `rel="next"`)
	tags := decodeBody[[]map[string]any](t, rec)
	assert.Len(t, tags, 2)

	rec = api.do(t, http.MethodGet, "/tag?page=-1", bearer, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestNonNumericIDIsNotFound(t *testing.T) {
	api := newTestAPI(t)
	bearer := api.token(t, "alice", true)

	rec := api.do(t, http.MethodGet, "/ride/abc", bearer, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func jsonID(id int64) string {
	return strconv.FormatInt(id, 10)
}
