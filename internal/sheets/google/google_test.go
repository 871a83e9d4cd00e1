package google

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	goption "google.golang.org/api/option"

	"expensemanager/internal/core"
)

type fakeSheetsAPI struct {
	mu     sync.Mutex
	calls  []string
	values [][]any
	failOn string
}

func (f *fakeSheetsAPI) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	path := r.URL.Path
	var op string
	switch {
	case r.Method == http.MethodPost && strings.HasSuffix(path, ":clear"):
		op = "clear"
	case r.Method == http.MethodPut:
		op = "update"
	case r.Method == http.MethodGet:
		op = "get"
	default:
		http.Error(w, "unexpected request", http.StatusBadRequest)
		return
	}
	f.calls = append(f.calls, op)

	if op == f.failOn {
		http.Error(w, `{"error":{"code":500,"message":"boom"}}`, http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	switch op {
	case "clear":
		f.values = nil
		io.WriteString(w, `{"spreadsheetId":"sheet-id"}`)
	case "update":
		var body struct {
			Values [][]any `json:"values"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		if r.URL.Query().Get("valueInputOption") != "USER_ENTERED" {
			http.Error(w, "missing valueInputOption", http.StatusBadRequest)
			return
		}
		f.values = body.Values
		json.NewEncoder(w).Encode(map[string]any{"updatedRows": len(body.Values)})
	case "get":
		json.NewEncoder(w).Encode(map[string]any{"range": "Expenses!A:D", "values": f.values})
	}
}

func newTestClient(t *testing.T, api *fakeSheetsAPI) *Client {
	t.Helper()
	srv := httptest.NewServer(api)
	t.Cleanup(srv.Close)

	c, err := NewWithClientOptions(context.Background(), "sheet-id", "",
		goption.WithEndpoint(srv.URL+"/"),
		goption.WithHTTPClient(srv.Client()),
		goption.WithoutAuthentication())
	if err != nil {
		t.Fatalf("NewWithClientOptions: %v", err)
	}
	return c
}

func TestReplaceAllClearsThenWrites(t *testing.T) {
	api := &fakeSheetsAPI{}
	c := newTestClient(t, api)
	if c.SheetName() != "Expenses" {
		t.Errorf("default sheet name = %q", c.SheetName())
	}

	expenses := []core.Expense{
		{Date: core.NewDate(2024, 1, 5), Category: "Food", Amount: core.NewMoney("12.50"), Description: "lunch"},
		{Date: core.NewDate(2024, 1, 6), Category: "Transportation", Amount: core.NewMoney("5.00"), Description: "bus"},
	}
	if err := c.ReplaceAll(context.Background(), expenses); err != nil {
		t.Fatalf("ReplaceAll: %v", err)
	}
	if strings.Join(api.calls, ",") != "clear,update" {
		t.Fatalf("unexpected call sequence %v", api.calls)
	}
	if len(api.values) != 3 || api.values[0][0] != "Date" {
		t.Fatalf("unexpected written values %v", api.values)
	}

	got, err := c.ReadAll(context.Background())
	if err != nil {
		t.Fatalf("ReadAll: %v", err)
	}
	if len(got) != 2 || !got[0].Equal(expenses[0]) || !got[1].Equal(expenses[1]) {
		t.Fatalf("round trip mismatch: %+v", got)
	}
}

func TestReplaceAllPropagatesAPIErrors(t *testing.T) {
	for _, op := range []string{"clear", "update"} {
		t.Run(op, func(t *testing.T) {
			api := &fakeSheetsAPI{failOn: op}
			c := newTestClient(t, api)
			if err := c.ReplaceAll(context.Background(), nil); err == nil {
				t.Fatal("expected error")
			}
		})
	}
}

func TestNilServiceFails(t *testing.T) {
	c := &Client{spreadsheetID: "x", sheetName: "Expenses"}
	if err := c.ReplaceAll(context.Background(), nil); err == nil {
		t.Fatal("expected error with nil service")
	}
	if _, err := c.ReadAll(context.Background()); err == nil {
		t.Fatal("expected error with nil service")
	}
}

func TestNew_MissingSpreadsheetID(t *testing.T) {
	_, err := New(context.Background(), Options{CredentialsJSON: "{}"})
	if err == nil || err.Error() != "missing spreadsheet ID" {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestLoadCredentials(t *testing.T) {
	t.Setenv("GOOGLE_APPLICATION_CREDENTIALS", "")
	ctx := context.Background()

	got, err := loadCredentials(ctx, Options{CredentialsJSON: ` {"type":"service_account"} `})
	if err != nil || string(got) != `{"type":"service_account"}` {
		t.Fatalf("inline credentials = %q, %v", got, err)
	}

	file := filepath.Join(t.TempDir(), "sa.json")
	if err := os.WriteFile(file, []byte(`{"from":"file"}`), 0600); err != nil {
		t.Fatal(err)
	}
	got, err = loadCredentials(ctx, Options{CredentialsFile: file})
	if err != nil || string(got) != `{"from":"file"}` {
		t.Fatalf("file credentials = %q, %v", got, err)
	}

	if _, err := loadCredentials(ctx, Options{CredentialsFile: filepath.Join(t.TempDir(), "missing.json")}); err == nil {
		t.Fatal("expected error for missing file")
	}

	_, err = loadCredentials(ctx, Options{})
	if err == nil || !strings.Contains(err.Error(), "missing service account credentials") {
		t.Fatalf("expected missing credentials error, got %v", err)
	}

	t.Setenv("GOOGLE_APPLICATION_CREDENTIALS", file)
	got, err = loadCredentials(ctx, Options{})
	if err != nil || string(got) != `{"from":"file"}` {
		t.Fatalf("ADC fallback = %q, %v", got, err)
	}
}
