package player

import (
	"bytes"
	"testing"
)

func TestNewLauncher(t *testing.T) {
	tests := []struct {
		name string
		want string
	}{
		{"print", "print"},
		{"none", "print"},
		{"firefox", "firefox"},
	}
	for _, tt := range tests {
		if got := NewLauncher(tt.name).Name(); got != tt.want {
			t.Errorf("NewLauncher(%q).Name() = %q, want %q", tt.name, got, tt.want)
		}
	}
	if _, ok := NewLauncher("").(*System); !ok {
		t.Error("empty name should use the system opener")
	}
}

func TestPrintLauncher(t *testing.T) {
	var buf bytes.Buffer
	p := &Print{W: &buf}

	if err := p.Open("https://vidsrc.to/embed/movie/603"); err != nil {
		t.Fatalf("Open() error: %v", err)
	}
	if buf.String() != "https://vidsrc.to/embed/movie/603\n" {
		t.Errorf("printed %q", buf.String())
	}

	if err := p.Open("javascript:alert(1)"); err == nil {
		t.Error("non-HTTPS URLs must be refused")
	}
}

func TestBrowserRefusesUnsafeURL(t *testing.T) {
	b := &Browser{name: "definitely-not-a-browser"}
	if err := b.Open("file:///etc/passwd"); err == nil {
		t.Error("expected refusal")
	}
	if b.Available() {
		t.Error("missing binary should not be available")
	}
}
