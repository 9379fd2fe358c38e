package embed

import (
	"testing"

	"reelwatch/internal/media"
)

func TestURL(t *testing.T) {
	movie := media.Ref{ID: 603, Type: media.Movie, Title: "The Matrix"}
	show := media.Ref{ID: 1399, Type: media.TV, Title: "Game of Thrones"}

	tests := []struct {
		name    string
		src     Source
		ref     media.Ref
		s, e    int
		want    string
		wantErr bool
	}{
		{"vidsrc movie", VidSrc, movie, 0, 0, "https://vidsrc.to/embed/movie/603?autoplay=1&no-ads=true", false},
		{"vidsrc tv", VidSrc, show, 2, 5, "https://vidsrc.to/embed/tv/1399/2/5?autoplay=1&no-ads=true", false},
		{"vidlink movie", VidLink, movie, 0, 0, "https://vidlink.pro/movie/603?minimal=1", false},
		{"vidlink tv", VidLink, show, 1, 1, "https://vidlink.pro/tv/1399/1/1?minimal=1", false},
		{"superembed movie", SuperEmbed, movie, 0, 0, "https://multiembed.mov/?tmdb=1&video_id=603", false},
		{"superembed tv", SuperEmbed, show, 3, 7, "https://multiembed.mov/?e=7&s=3&tmdb=1&video_id=1399", false},
		{"tv without position", VidSrc, show, 0, 0, "", true},
		{"zero id", VidSrc, media.Ref{Type: media.Movie}, 0, 0, "", true},
		{"unknown source", Source("youtube"), movie, 0, 0, "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := URL(tt.src, tt.ref, tt.s, tt.e)
			if (err != nil) != tt.wantErr {
				t.Fatalf("URL() error = %v, wantErr %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("URL() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestParseSource(t *testing.T) {
	for _, in := range []string{"vidsrc", "VidLink", " superembed "} {
		if _, err := ParseSource(in); err != nil {
			t.Errorf("ParseSource(%q) error: %v", in, err)
		}
	}
	if _, err := ParseSource("2embed"); err == nil {
		t.Error("ParseSource(2embed) should fail")
	}
}

func TestSourcesPrimaryFirst(t *testing.T) {
	srcs := Sources()
	if len(srcs) != 3 || srcs[0] != Primary {
		t.Errorf("Sources() = %v, want primary first", srcs)
	}
	if Primary.Label() != "VidSrc" {
		t.Errorf("Primary.Label() = %q", Primary.Label())
	}
}
