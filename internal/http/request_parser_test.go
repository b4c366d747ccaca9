package http

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"ledger/internal/core"
)

func TestRequestBodyParser_JSON(t *testing.T) {
	body := `{"income": "100", "bills": 20.5, "food": 7, "note": true}`
	req := httptest.NewRequest(http.MethodPost, "/entries", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")

	parser := NewRequestBodyParser(req)
	if err := parser.Parse(); err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if !parser.IsJSON() {
		t.Error("Expected IsJSON() to be true")
	}

	want := core.EntryInput{Income: "100", Bills: "20.5", Food: "7", Other: ""}
	if got := parser.EntryInput(); got != want {
		t.Errorf("EntryInput() = %+v, want %+v", got, want)
	}
	if got := parser.Get("note"); got != "true" {
		t.Errorf("Get('note') = %q, want 'true'", got)
	}
}

func TestRequestBodyParser_JSONWithoutContentType(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/entries", strings.NewReader(`{"other": "3"}`))

	parser := NewRequestBodyParser(req)
	if err := parser.Parse(); err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if got := parser.EntryInput().Other; got != "3" {
		t.Errorf("Other = %q, want 3", got)
	}
}

func TestRequestBodyParser_InvalidJSON(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/entries", strings.NewReader(`{"income":`))
	req.Header.Set("Content-Type", "application/json")

	parser := NewRequestBodyParser(req)
	if err := parser.Parse(); err == nil {
		t.Fatal("Parse() should fail on truncated JSON")
	}
	if parser.IsJSON() {
		t.Error("IsJSON() should be false after a failed parse")
	}
}

func TestRequestBodyParser_FormData(t *testing.T) {
	body := "income=1500&bills=+200+&food=abc&other=\x01"
	req := httptest.NewRequest(http.MethodPost, "/entries", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	parser := NewRequestBodyParser(req)
	if err := parser.Parse(); err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if parser.IsJSON() {
		t.Error("Expected IsJSON() to be false for form data")
	}

	want := core.EntryInput{Income: "1500", Bills: "200", Food: "abc", Other: ""}
	if got := parser.EntryInput(); got != want {
		t.Errorf("EntryInput() = %+v, want %+v", got, want)
	}
}

func TestRequestBodyParser_EmptyBody(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/entries", strings.NewReader(""))

	parser := NewRequestBodyParser(req)
	if err := parser.Parse(); err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if got := parser.EntryInput(); got != (core.EntryInput{}) {
		t.Errorf("EntryInput() = %+v, want empty", got)
	}
}

func TestMonthParam(t *testing.T) {
	tests := []struct {
		name    string
		query   string
		want    string
		present bool
	}{
		{"absent", "", "", false},
		{"empty", "month=", "", true},
		{"value", "month=07%2F2024", "07/2024", true},
		{"trimmed", "month=+07%2F2024+", "07/2024", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			values, err := url.ParseQuery(tt.query)
			if err != nil {
				t.Fatal(err)
			}
			got, ok := monthParam(values)
			if got != tt.want || ok != tt.present {
				t.Errorf("monthParam() = (%q, %v), want (%q, %v)", got, ok, tt.want, tt.present)
			}
		})
	}
}

func TestParseFormOrFail(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/months/select", strings.NewReader("month=07%2F2024"))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	if result := ParseFormOrFail(httptest.NewRecorder(), req); result != nil {
		t.Error("Expected nil for valid form, got error response")
	}
	if req.PostForm.Get("month") != "07/2024" {
		t.Error("Form was not parsed correctly")
	}
}

func TestRequestKinds(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if isHTMX(req) || wantsJSON(req) {
		t.Fatal("plain request detected as htmx or json")
	}
	req.Header.Set("HX-Request", "true")
	req.Header.Set("Accept", "application/json, text/plain")
	if !isHTMX(req) || !wantsJSON(req) {
		t.Fatal("headers not detected")
	}
}
