package gamma

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestListMarkets(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/markets" {
			t.Errorf("Expected path /markets, got %s", r.URL.Path)
		}

		markets := []Market{
			{ID: "1", Question: "Will it rain?", ConditionID: "0xaaa", Active: true},
			{ID: "2", Question: "Will it snow?", ConditionID: "0xbbb", Active: true},
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(markets)
	}))
	defer server.Close()

	client := NewClient(WithBaseURL(server.URL))

	markets, err := client.ListMarkets(context.Background(), nil)
	if err != nil {
		t.Fatalf("ListMarkets failed: %v", err)
	}

	if len(markets) != 2 {
		t.Errorf("Expected 2 markets, got %d", len(markets))
	}

	if markets[0].Question != "Will it rain?" {
		t.Errorf("Wrong question: got %s", markets[0].Question)
	}
}

func TestListMarketsWithFilter(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		query := r.URL.Query()
		if query.Get("closed") != "false" {
			t.Errorf("Expected closed=false, got %s", query.Get("closed"))
		}
		if query.Get("limit") != "30" {
			t.Errorf("Expected limit=30, got %s", query.Get("limit"))
		}
		if query.Get("offset") != "10" {
			t.Errorf("Expected offset=10, got %s", query.Get("offset"))
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode([]Market{})
	}))
	defer server.Close()

	client := NewClient(WithBaseURL(server.URL))

	_, err := client.ListMarkets(context.Background(), &MarketsFilter{
		Closed: BoolPtr(false),
		Limit:  30,
		Offset: 10,
	})
	if err != nil {
		t.Fatalf("ListMarkets failed: %v", err)
	}
}

func TestGetMarketByConditionID(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("condition_ids") != "0xabc" {
			t.Errorf("Expected condition_ids=0xabc, got %s", r.URL.Query().Get("condition_ids"))
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode([]Market{
			{ID: "1", Question: "Test?", ConditionID: "0xabc"},
		})
	}))
	defer server.Close()

	client := NewClient(WithBaseURL(server.URL))

	market, err := client.GetMarketByConditionID(context.Background(), "0xabc")
	if err != nil {
		t.Fatalf("GetMarketByConditionID failed: %v", err)
	}

	if market.ConditionID != "0xabc" {
		t.Errorf("Wrong condition id: got %s", market.ConditionID)
	}
}

func TestGetMarketByConditionIDNotFound(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode([]Market{})
	}))
	defer server.Close()

	client := NewClient(WithBaseURL(server.URL))

	_, err := client.GetMarketByConditionID(context.Background(), "0xmissing")
	if err == nil {
		t.Fatal("Expected error for missing market")
	}
	if !IsNotFound(err) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}

func TestGetMarketByConditionIDServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "internal error", http.StatusInternalServerError)
	}))
	defer server.Close()

	client := NewClient(WithBaseURL(server.URL))

	_, err := client.GetMarketByConditionID(context.Background(), "0xabc")
	if err == nil {
		t.Fatal("Expected error for server failure")
	}
	if IsNotFound(err) {
		t.Error("Server failure must not look like a missing market")
	}
}

func TestFlexStringsNativeArray(t *testing.T) {
	var m Market
	data := `{"outcomes": ["Yes", "No"]}`
	if err := json.Unmarshal([]byte(data), &m); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}

	if len(m.Outcomes) != 2 || m.Outcomes[0] != "Yes" || m.Outcomes[1] != "No" {
		t.Errorf("Wrong outcomes: %v", m.Outcomes)
	}
}

func TestFlexStringsEncodedString(t *testing.T) {
	var m Market
	data := `{"outcomes": "[\"Yes\", \"No\"]"}`
	if err := json.Unmarshal([]byte(data), &m); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}

	if len(m.Outcomes) != 2 || m.Outcomes[0] != "Yes" || m.Outcomes[1] != "No" {
		t.Errorf("Wrong outcomes: %v", m.Outcomes)
	}
}

func TestFlexStringsMalformed(t *testing.T) {
	var m Market
	cases := []string{
		`{"outcomes": "not json"}`,
		`{"outcomes": 42}`,
		`{"outcomes": {"a": 1}}`,
	}
	for _, data := range cases {
		if err := json.Unmarshal([]byte(data), &m); err != nil {
			t.Errorf("Malformed field should not error: %v (input %s)", err, data)
		}
		if len(m.Outcomes) != 0 {
			t.Errorf("Expected empty outcomes for %s, got %v", data, m.Outcomes)
		}
	}
}

func TestFlexNumber(t *testing.T) {
	cases := []struct {
		input string
		want  string
	}{
		{`{"volume": 12345.67}`, "12345.67"},
		{`{"volume": "12345.67"}`, "12345.67"},
		{`{"volume": null}`, ""},
		{`{"volume": ["bad"]}`, ""},
	}
	for _, tc := range cases {
		var m Market
		if err := json.Unmarshal([]byte(tc.input), &m); err != nil {
			t.Errorf("Unmarshal failed for %s: %v", tc.input, err)
			continue
		}
		if m.Volume.String() != tc.want {
			t.Errorf("Wrong volume for %s: got %q, want %q", tc.input, m.Volume, tc.want)
		}
	}
}
