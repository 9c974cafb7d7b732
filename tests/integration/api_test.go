//go:build integration

package integration

import (
	"fmt"
	"net/http"
	"testing"
	"time"
)

func TestMissingToken(t *testing.T) {
	resp := doRequest(t, http.MethodGet, "/api/v1/user", "", nil)
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
	body := decodeJSON[errorResponse](t, resp)
	if body.Error.Code != http.StatusBadRequest {
		t.Errorf("error code: got %d, want 400", body.Error.Code)
	}
	if body.Error.Reason != "Bad Request" {
		t.Errorf("error reason: got %q", body.Error.Reason)
	}
}

func TestGarbageToken(t *testing.T) {
	resp := doRequest(t, http.MethodGet, "/api/v1/user", "not.a.jwt", nil)
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", resp.StatusCode)
	}
}

func TestReadTokenCannotWrite(t *testing.T) {
	resp := doRequest(t, http.MethodPost, "/api/v1/ride", readToken, map[string]any{
		"journey_departure": time.Now().UTC().Format(time.RFC3339),
		"location_from":     "Aachen",
		"location_to":       "Köln",
	})
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", resp.StatusCode)
	}
}

func TestUserLifecycle(t *testing.T) {
	resp := doRequest(t, http.MethodGet, "/api/v1/user", writeToken, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	u := decodeJSON[userResponse](t, resp)
	resp.Body.Close()
	if u.JWTSubject != "alice" {
		t.Fatalf("subject: got %q, want alice", u.JWTSubject)
	}

	name := "Alice Example"
	resp = doRequest(t, http.MethodPut, "/api/v1/user", writeToken, map[string]any{"name": name})
	resp.Body.Close()
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", resp.StatusCode)
	}

	resp = doRequest(t, http.MethodGet, "/api/v1/user", writeToken, nil)
	u = decodeJSON[userResponse](t, resp)
	resp.Body.Close()
	if u.Name == nil || *u.Name != name {
		t.Fatalf("name not updated: %+v", u)
	}
}

func TestRideLifecycle(t *testing.T) {
	departure := time.Date(2026, 3, 14, 8, 30, 0, 0, time.UTC)
	resp := doRequest(t, http.MethodPost, "/api/v1/ride", writeToken, map[string]any{
		"journey_departure": departure.Format(time.RFC3339),
		"location_from":     "Aachen Hbf",
		"location_to":       "Köln Hbf",
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create ride: expected 201, got %d", resp.StatusCode)
	}
	created := decodeJSON[rideResponse](t, resp)
	resp.Body.Close()
	if created.ID == 0 {
		t.Fatal("created ride has no id")
	}

	ridePath := fmt.Sprintf("/api/v1/ride/%d", created.ID)

	resp = doRequest(t, http.MethodGet, ridePath, writeToken, nil)
	got := decodeJSON[rideResponse](t, resp)
	resp.Body.Close()
	if got.LocationFrom != "Aachen Hbf" || got.LocationTo != "Köln Hbf" {
		t.Fatalf("ride round trip mismatch: %+v", got)
	}

	// A different subject must not see the ride.
	resp = doRequest(t, http.MethodGet, ridePath, readToken, nil)
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("foreign ride: expected 404, got %d", resp.StatusCode)
	}

	resp = doRequest(t, http.MethodPut, ridePath, writeToken, map[string]any{
		"journey_departure": departure.Format(time.RFC3339),
		"location_from":     "Aachen Hbf",
		"location_to":       "Düsseldorf Hbf",
	})
	resp.Body.Close()
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("update ride: expected 204, got %d", resp.StatusCode)
	}

	resp = doRequest(t, http.MethodGet, "/api/v1/ride", writeToken, nil)
	if resp.Header.Get("X-Total-Items") == "" {
		t.Error("X-Total-Items header not present on list")
	}
	rides := decodeJSON[[]rideResponse](t, resp)
	resp.Body.Close()
	found := false
	for _, r := range rides {
		if r.ID == created.ID && r.LocationTo == "Düsseldorf Hbf" {
			found = true
		}
	}
	if !found {
		t.Fatalf("updated ride not in list: %+v", rides)
	}

	resp = doRequest(t, http.MethodDelete, ridePath, writeToken, nil)
	resp.Body.Close()
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("delete ride: expected 204, got %d", resp.StatusCode)
	}

	resp = doRequest(t, http.MethodGet, ridePath, writeToken, nil)
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("deleted ride: expected 404, got %d", resp.StatusCode)
	}
}

func TestTagAndLinkFlow(t *testing.T) {
	resp := doRequest(t, http.MethodPost, "/api/v1/tag", writeToken, map[string]any{
		"tag_type": "float",
		"tag_key":  "ticket_price",
		"unit":     "EUR",
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create tag: expected 201, got %d", resp.StatusCode)
	}
	createdTag := decodeJSON[tagResponse](t, resp)
	resp.Body.Close()
	if createdTag.TagKey != "ticket_price" || createdTag.UUID == "" {
		t.Fatalf("tag round trip mismatch: %+v", createdTag)
	}

	resp = doRequest(t, http.MethodPost, "/api/v1/ride", writeToken, map[string]any{
		"journey_departure": time.Now().UTC().Format(time.RFC3339),
		"location_from":     "Berlin Hbf",
		"location_to":       "Hamburg Hbf",
	})
	rideID := decodeJSON[rideResponse](t, resp).ID
	resp.Body.Close()

	linkPath := fmt.Sprintf("/api/v1/ride/%d/ride_tags/%d", rideID, createdTag.ID)

	// Wrong value type for a float tag.
	resp = doRequest(t, http.MethodPost, linkPath, writeToken, map[string]any{
		"value": map[string]any{"type": "String", "value": "cheap"},
	})
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("type mismatch: expected 400, got %d", resp.StatusCode)
	}

	resp = doRequest(t, http.MethodPost, linkPath, writeToken, map[string]any{
		"value": map[string]any{"type": "Float", "value": 19.9},
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("link tag: expected 201, got %d", resp.StatusCode)
	}
	pair := decodeJSON[map[string]any](t, resp)
	resp.Body.Close()
	if _, ok := pair["link"]; !ok {
		t.Fatalf("linked response missing link: %v", pair)
	}
	if _, ok := pair["tag"]; !ok {
		t.Fatalf("linked response missing tag: %v", pair)
	}

	// Linking the same pair twice is rejected.
	resp = doRequest(t, http.MethodPost, linkPath, writeToken, map[string]any{
		"value": map[string]any{"type": "Float", "value": 21.5},
	})
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("duplicate link: expected 400, got %d", resp.StatusCode)
	}

	// Ride responses embed the linked values.
	resp = doRequest(t, http.MethodGet, fmt.Sprintf("/api/v1/ride/%d", rideID), writeToken, nil)
	withTags := decodeJSON[rideResponse](t, resp)
	resp.Body.Close()
	if len(withTags.Tags) != 1 {
		t.Fatalf("expected 1 linked tag, got %d", len(withTags.Tags))
	}
}

func TestPaginationHeaders(t *testing.T) {
	resp := doRequest(t, http.MethodGet, "/api/v1/tag?page=1&size=2", writeToken, nil)
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	for _, header := range []string{"X-Total-Items", "X-Page", "X-Page-Size", "X-Total-Pages", "Link"} {
		if resp.Header.Get(header) == "" {
			t.Errorf("%s header not present", header)
		}
	}
}
