package http

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"expensemanager/internal/core"
)

func newParser(t *testing.T, method, target, contentType, body string) *RequestBodyParser {
	t.Helper()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	p := NewRequestBodyParser(req)
	if err := p.Parse(); err != nil {
		t.Fatalf("Parse: %v", err)
	}
	return p
}

func TestRequestBodyParser_FormAndJSON(t *testing.T) {
	form := newParser(t, http.MethodPost, "/expenses", "application/x-www-form-urlencoded",
		"category=+Food+&amount=12.50&description=a%00b")
	if form.IsJSON() {
		t.Fatal("form body detected as JSON")
	}
	if got := form.Get("category"); got != " Food " {
		t.Errorf("category = %q", got)
	}
	if got := form.Get("description"); got != "ab" {
		t.Errorf("description = %q, want control characters stripped", got)
	}

	js := newParser(t, http.MethodPost, "/expenses", "application/json",
		`{"category":"Bills","amount":40.5,"description":"power"}`)
	if !js.IsJSON() {
		t.Fatal("JSON body not detected")
	}
	if got := js.Get("amount"); got != "40.5" {
		t.Errorf("amount = %q", got)
	}
	if got := js.Get("missing"); got != "" {
		t.Errorf("missing = %q", got)
	}
}

func TestRequestBodyParser_QueryFallback(t *testing.T) {
	p := newParser(t, http.MethodDelete, "/expenses/delete?index=3&revision=9", "", "")
	sel, err := ParseSelection(p)
	if err != nil {
		t.Fatalf("ParseSelection: %v", err)
	}
	if sel.Index != 3 || !sel.HasRevision || sel.Revision != 9 {
		t.Fatalf("selection = %+v", sel)
	}
}

func TestRequestBodyParser_RejectsOversizedBody(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/expenses", strings.NewReader(strings.Repeat("a", maxBodyBytes+10)))
	if err := NewRequestBodyParser(req).Parse(); err == nil {
		t.Fatal("expected error for oversized body")
	}
}

func TestRequestBodyParser_MalformedJSON(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/expenses", strings.NewReader(`{"amount":`))
	if err := NewRequestBodyParser(req).Parse(); err == nil {
		t.Fatal("expected JSON syntax error")
	}
}

func TestParseExpenseInput_TrimsOnlyDateAndAmount(t *testing.T) {
	p := newParser(t, http.MethodPost, "/expenses", "application/x-www-form-urlencoded",
		"date=+2024-01-02+&category=Food+&amount=+12.50+&description=+lunch")
	in := ParseExpenseInput(p)
	want := ExpenseInput{Date: "2024-01-02", Category: "Food ", Amount: "12.50", Description: " lunch"}
	if in != want {
		t.Fatalf("got %+v, want %+v", in, want)
	}

	sel, err := ParseSelection(newParser(t, http.MethodPost, "/expenses/delete",
		"application/x-www-form-urlencoded", "index=+1+&revision=+4"))
	if err != nil || sel.Index != 1 || sel.Revision != 4 {
		t.Fatalf("selection = %+v, err = %v", sel, err)
	}
}

func TestParseSelection(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		want    Selection
		wantErr bool
	}{
		{name: "index only", body: "index=2", want: Selection{Index: 2}},
		{name: "index and revision", body: "index=0&revision=5", want: Selection{Index: 0, Revision: 5, HasRevision: true}},
		{name: "missing index", body: "revision=5", wantErr: true},
		{name: "empty index", body: "index=", wantErr: true},
		{name: "non-numeric", body: "index=first", wantErr: true},
		{name: "negative", body: "index=-1", wantErr: true},
		{name: "bad revision", body: "index=1&revision=x", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := newParser(t, http.MethodPost, "/expenses/delete", "application/x-www-form-urlencoded", tt.body)
			got, err := ParseSelection(p)
			if tt.wantErr {
				if !errors.Is(err, ErrNoSelection) {
					t.Fatalf("err = %v, want ErrNoSelection", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Fatalf("got %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestExpenseInput_Expense(t *testing.T) {
	today := core.NewDate(2024, 6, 15)

	tests := []struct {
		name    string
		in      ExpenseInput
		want    core.Expense
		wantErr error
	}{
		{
			name: "complete",
			in:   ExpenseInput{Date: "2024-01-31", Category: "Food", Amount: "12.50", Description: "lunch"},
			want: core.Expense{Date: core.NewDate(2024, 1, 31), Category: "Food", Amount: core.NewMoney("12.50"), Description: "lunch"},
		},
		{
			name: "empty date means today",
			in:   ExpenseInput{Category: "Other", Amount: "1"},
			want: core.Expense{Date: today, Category: "Other", Amount: core.NewMoney("1")},
		},
		{
			name: "empty category accepted",
			in:   ExpenseInput{Date: "2024-01-01", Amount: "0.01"},
			want: core.Expense{Date: core.NewDate(2024, 1, 1), Amount: core.NewMoney("0.01")},
		},
		{name: "zero amount", in: ExpenseInput{Amount: "0"}, wantErr: core.ErrInvalidAmount},
		{name: "negative amount", in: ExpenseInput{Amount: "-3"}, wantErr: core.ErrInvalidAmount},
		{name: "text amount", in: ExpenseInput{Amount: "ten"}, wantErr: core.ErrInvalidAmount},
		{name: "bad date", in: ExpenseInput{Date: "2024-13-01", Amount: "1"}, wantErr: core.ErrInvalidDate},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.in.Expense(today)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("err = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !got.Equal(tt.want) {
				t.Fatalf("got %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestRequireMethod(t *testing.T) {
	req := httptest.NewRequest(http.MethodPut, "/expenses/delete", nil)
	resp := RequireDeleteOrPOST(req)
	if resp == nil {
		t.Fatal("PUT should be rejected")
	}
	w := httptest.NewRecorder()
	resp.Write(w)
	if w.Header().Get("Allow") != "DELETE, POST" {
		t.Errorf("Allow = %q", w.Header().Get("Allow"))
	}

	if RequirePOST(httptest.NewRequest(http.MethodPost, "/expenses", nil)) != nil {
		t.Error("POST should pass")
	}
}
