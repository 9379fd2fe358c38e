package httputil

import (
	"strings"
	"testing"
)

func TestValidateURL(t *testing.T) {
	tests := []struct {
		name    string
		url     string
		wantErr bool
	}{
		{"valid HTTPS", "https://example.com/path", false},
		{"HTTP rejected", "http://example.com/path", true},
		{"javascript scheme rejected", "javascript:alert(1)", true},
		{"data scheme rejected", "data:text/html,<h1>Hi</h1>", true},
		{"FTP rejected", "ftp://example.com/file", true},
		{"empty string", "", true},
		{"no host", "https://", true},
		{"valid with port", "https://example.com:8080/path", false},
		{"valid with query", "https://example.com/path?q=test&a=b", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateURL(tt.url)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateURL(%q) error = %v, wantErr %v", tt.url, err, tt.wantErr)
			}
		})
	}
}

func TestValidateServiceURL(t *testing.T) {
	tests := []struct {
		name    string
		url     string
		wantErr bool
	}{
		{"https remote", "https://watch.example.com", false},
		{"http localhost", "http://localhost:8787", false},
		{"http loopback ip", "http://127.0.0.1:8787", false},
		{"http ipv6 loopback", "http://[::1]:8787", false},
		{"http remote rejected", "http://watch.example.com", true},
		{"no host", "http://", true},
		{"file scheme", "file:///etc/passwd", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateServiceURL(tt.url)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateServiceURL(%q) error = %v, wantErr %v", tt.url, err, tt.wantErr)
			}
		})
	}
}

func TestValidateNumericID(t *testing.T) {
	tests := []struct {
		name    string
		id      string
		wantErr bool
	}{
		{"valid", "12345", false},
		{"zero", "0", false},
		{"empty", "", true},
		{"letters", "abc", true},
		{"mixed", "123abc", true},
		{"negative", "-1", true},
		{"decimal", "1.5", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateNumericID(tt.id)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateNumericID(%q) error = %v, wantErr %v", tt.id, err, tt.wantErr)
			}
		})
	}
}

func TestBuildURL(t *testing.T) {
	got := BuildURL("https://api.example.com/3/", "tv", "1399", "season", "2")
	if got != "https://api.example.com/3/tv/1399/season/2" {
		t.Errorf("BuildURL = %q", got)
	}

	got = BuildURL("https://api.example.com", "search", "a b/c")
	if got != "https://api.example.com/search/a%20b%2Fc" {
		t.Errorf("BuildURL should escape segments, got %q", got)
	}
}

func TestRedactURL(t *testing.T) {
	got := RedactURL("https://api.example.com/3/movie/1?api_key=secret&language=en-US")
	if strings.Contains(got, "secret") {
		t.Errorf("RedactURL leaked the key: %q", got)
	}
	if !strings.Contains(got, "language=en-US") {
		t.Errorf("RedactURL dropped other params: %q", got)
	}

	plain := "https://example.com/path"
	if got := RedactURL(plain); got != plain {
		t.Errorf("RedactURL(%q) = %q, want unchanged", plain, got)
	}
}
