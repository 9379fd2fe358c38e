package cmd

import (
	"testing"

	"reelwatch/internal/media"
)

func TestParseRef(t *testing.T) {
	tests := []struct {
		args    []string
		want    media.Ref
		wantErr bool
	}{
		{[]string{"movie", "603"}, media.Ref{ID: 603, Type: media.Movie}, false},
		{[]string{"series", "1396"}, media.Ref{ID: 1396, Type: media.TV}, false},
		{[]string{"tv"}, media.Ref{}, true},
		{[]string{"book", "1"}, media.Ref{}, true},
		{[]string{"tv", "-3"}, media.Ref{}, true},
		{[]string{"tv", "0"}, media.Ref{}, true},
		{[]string{"movie", "12a"}, media.Ref{}, true},
	}
	for _, tt := range tests {
		got, err := parseRef(tt.args)
		if (err != nil) != tt.wantErr {
			t.Errorf("parseRef(%v) error = %v, wantErr %v", tt.args, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("parseRef(%v) = %+v, want %+v", tt.args, got, tt.want)
		}
	}
}

func TestAtoiPositive(t *testing.T) {
	if n, err := atoiPositive(" 4 "); err != nil || n != 4 {
		t.Errorf("atoiPositive(\" 4 \") = %d, %v", n, err)
	}
	for _, s := range []string{"0", "-1", "x", ""} {
		if _, err := atoiPositive(s); err == nil {
			t.Errorf("atoiPositive(%q) should fail", s)
		}
	}
}

func TestClip(t *testing.T) {
	if got := clip("short", 10); got != "short" {
		t.Errorf("clip = %q", got)
	}
	if got := clip("a long synopsis here", 8); got != "a long…" {
		t.Errorf("clip = %q, want %q", got, "a long…")
	}
}

func TestParseMediaTypeArg(t *testing.T) {
	if _, ok := parseMediaTypeArg(nil); ok {
		t.Error("no argument means no filter")
	}
	if mt, ok := parseMediaTypeArg([]string{"shows"}); !ok || mt != media.TV {
		t.Errorf("shows = %v, %v", mt, ok)
	}
}
