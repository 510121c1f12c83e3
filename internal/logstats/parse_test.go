package logstats

import "testing"

func TestIsExcludedPathMatchesRawLines(t *testing.T) {
	tests := []struct {
		path string
		want bool
	}{
		{"/v1/models", true},
		{"/v0/management/usage", true},
		{"/v0/management/keys", true},
		{"/v1/chat/completions", false},
		{"/v1/modelsets", false},
	}
	for _, tt := range tests {
		line := requestLine("2026-01-18 10:00:01", 200, tt.path)
		if got := IsExcludedPath(line); got != tt.want {
			t.Errorf("IsExcludedPath(%q line) = %v, want %v", tt.path, got, tt.want)
		}
	}
}

func TestParseRequestLineRoundTrip(t *testing.T) {
	entry, ok := ParseRequestLine(requestLine("2026-01-18 10:00:01", 404, "/v1/chat/completions"))
	if !ok {
		t.Fatal("expected line to parse")
	}
	if entry.Status != 404 || entry.Method != "POST" || entry.Path != "/v1/chat/completions" {
		t.Errorf("unexpected parse: %+v", entry)
	}
	if entry.Client != "127.0.0.1" {
		t.Errorf("unexpected client: %q", entry.Client)
	}
	if _, ok := ParseRequestLine("[2026-01-18 10:00:01] [info ] plain startup line"); ok {
		t.Error("non-request line must not parse")
	}
}
