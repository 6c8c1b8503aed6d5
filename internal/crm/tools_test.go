package crm_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/mpreiss/dealbot/internal/crm"
	"github.com/mpreiss/dealbot/pkg/provider/llm"
)

// queryCapture records the request bodies an httptest Attio server receives.
type queryCapture struct {
	auth   string
	bodies []map[string]any
}

// newAttioServer serves the given records for every query and captures the
// requests.
func newAttioServer(t *testing.T, records []crm.Record) (*httptest.Server, *queryCapture) {
	t.Helper()
	cap := &queryCapture{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/objects/deals/records/query" {
			t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
			http.NotFound(w, r)
			return
		}
		cap.auth = r.Header.Get("Authorization")
		var body map[string]any
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("decode request body: %v", err)
		}
		cap.bodies = append(cap.bodies, body)
		json.NewEncoder(w).Encode(map[string]any{"data": records})
	}))
	t.Cleanup(srv.Close)
	return srv, cap
}

func newTestClient(t *testing.T, records []crm.Record) (*crm.Client, *queryCapture) {
	t.Helper()
	srv, cap := newAttioServer(t, records)
	client, err := crm.NewClient("test-key", crm.WithBaseURL(srv.URL))
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	return client, cap
}

func TestNewClient_EmptyKeyIsError(t *testing.T) {
	t.Parallel()
	if _, err := crm.NewClient(""); err == nil {
		t.Fatal("expected error for empty API key, got nil")
	}
}

func TestListDeals_SendsBearerAndFilter(t *testing.T) {
	t.Parallel()
	client, cap := newTestClient(t, []crm.Record{deal("Acme", "s1", "Lead", 1000)})

	records, err := client.ListDeals(context.Background(), "Lead", 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(records) != 1 || records[0].Name() != "Acme" {
		t.Errorf("records = %+v, want one Acme deal", records)
	}
	if cap.auth != "Bearer test-key" {
		t.Errorf("Authorization = %q, want Bearer test-key", cap.auth)
	}

	body := cap.bodies[0]
	if body["limit"] != float64(20) {
		t.Errorf("default limit = %v, want 20", body["limit"])
	}
	filter, _ := body["filter"].(map[string]any)
	if filter["stage"] != "Lead" {
		t.Errorf("filter = %v, want stage Lead", filter)
	}
}

func TestListDeals_ClampsLimit(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name  string
		limit int
		want  float64
	}{
		{"zero means default", 0, 20},
		{"above max clamps to 100", 500, 100},
		{"below min clamps to 1", -3, 1},
		{"in range passes through", 42, 42},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			client, cap := newTestClient(t, nil)
			if _, err := client.ListDeals(context.Background(), "", tt.limit); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got := cap.bodies[0]["limit"]; got != tt.want {
				t.Errorf("limit = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestQuery_NonOKStatusIsError(t *testing.T) {
	t.Parallel()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, `{"message":"invalid token"}`, http.StatusUnauthorized)
	}))
	t.Cleanup(srv.Close)

	client, err := crm.NewClient("bad-key", crm.WithBaseURL(srv.URL))
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	_, err = client.ListDeals(context.Background(), "", 0)
	if err == nil {
		t.Fatal("expected error for 401 response, got nil")
	}
	if !strings.Contains(err.Error(), "401") {
		t.Errorf("error should mention the status code, got: %v", err)
	}
}

func TestExecutor_CatalogOrder(t *testing.T) {
	t.Parallel()
	client, _ := newTestClient(t, nil)
	e := crm.NewExecutor(client)

	var names []string
	for _, def := range e.Catalog() {
		names = append(names, def.Name)
	}
	want := []string{"list_deals", "get_deal", "search_deals", "list_pipeline_stages", "get_pipeline_summary"}
	if len(names) != len(want) {
		t.Fatalf("catalog = %v, want %v", names, want)
	}
	for i := range want {
		if names[i] != want[i] {
			t.Errorf("catalog[%d] = %q, want %q", i, names[i], want[i])
		}
	}
}

func TestExecute_UnknownToolIsErrorResult(t *testing.T) {
	t.Parallel()
	client, _ := newTestClient(t, nil)
	e := crm.NewExecutor(client)

	result := e.Execute(context.Background(), llm.ToolCall{ID: "call-1", Name: "delete_deal"})
	if !result.IsError {
		t.Fatal("expected error result for unknown tool")
	}
	if result.ID != "call-1" {
		t.Errorf("result ID = %q, want call-1", result.ID)
	}
	if !strings.Contains(result.Content, "unknown tool") {
		t.Errorf("content should mention unknown tool, got: %q", result.Content)
	}
}

func TestExecute_ArgumentValidation(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name     string
		tool     string
		args     string
		wantDiag string
	}{
		{"invalid stage", "list_deals", `{"stage":"Negotiation"}`, "unknown stage"},
		{"missing deal_id", "get_deal", `{}`, "deal_id is required"},
		{"missing query", "search_deals", `{}`, "query is required"},
		{"malformed json", "list_deals", `{not json`, "parse arguments"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			client, cap := newTestClient(t, nil)
			e := crm.NewExecutor(client)

			result := e.Execute(context.Background(), llm.ToolCall{ID: "c", Name: tt.tool, Arguments: tt.args})
			if !result.IsError {
				t.Fatal("expected error result")
			}
			if !strings.Contains(result.Content, tt.wantDiag) {
				t.Errorf("content = %q, want it to mention %q", result.Content, tt.wantDiag)
			}
			if len(cap.bodies) != 0 {
				t.Error("validation failures must not reach the API")
			}
		})
	}
}

func TestExecute_ListDealsSuccess(t *testing.T) {
	t.Parallel()
	client, _ := newTestClient(t, []crm.Record{deal("Globex", "s2", "Demo", 5000)})
	e := crm.NewExecutor(client)

	result := e.Execute(context.Background(), llm.ToolCall{ID: "c", Name: "list_deals", Arguments: `{"stage":"Demo"}`})
	if result.IsError {
		t.Fatalf("unexpected error result: %s", result.Content)
	}
	if !strings.Contains(result.Content, "Globex") {
		t.Errorf("content should contain the deal name, got: %q", result.Content)
	}
}

func TestExecute_EmptyArgumentsDefaultsToNoFilter(t *testing.T) {
	t.Parallel()
	client, cap := newTestClient(t, nil)
	e := crm.NewExecutor(client)

	result := e.Execute(context.Background(), llm.ToolCall{ID: "c", Name: "list_deals"})
	if result.IsError {
		t.Fatalf("unexpected error result: %s", result.Content)
	}
	if len(cap.bodies) != 1 {
		t.Fatalf("expected one API call, got %d", len(cap.bodies))
	}
	if _, hasFilter := cap.bodies[0]["filter"]; hasFilter {
		t.Error("argument-less list_deals should send no filter")
	}
}

func TestExecute_PipelineSummary(t *testing.T) {
	t.Parallel()
	client, cap := newTestClient(t, []crm.Record{
		deal("Acme", "s1", "Lead", 1000),
		deal("Globex", "s1", "Lead", 2000),
	})
	e := crm.NewExecutor(client)

	result := e.Execute(context.Background(), llm.ToolCall{ID: "c", Name: "get_pipeline_summary"})
	if result.IsError {
		t.Fatalf("unexpected error result: %s", result.Content)
	}

	var out struct {
		PipelineSummary map[string]crm.StageSummary `json:"pipeline_summary"`
	}
	if err := json.Unmarshal([]byte(result.Content), &out); err != nil {
		t.Fatalf("decode result: %v", err)
	}
	lead := out.PipelineSummary["Lead"]
	if lead.Count != 2 || lead.TotalValue != 3000 {
		t.Errorf("Lead summary = %+v, want count 2 total 3000", lead)
	}
	if cap.bodies[0]["limit"] != float64(100) {
		t.Errorf("summary page limit = %v, want 100", cap.bodies[0]["limit"])
	}
}
