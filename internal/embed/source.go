// Package embed builds player URLs for the third-party embed providers and
// checks whether a provider actually serves a player for a title.
package embed

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"reelwatch/internal/media"
)

// Source names an embed provider.
type Source string

const (
	VidSrc     Source = "vidsrc"
	VidLink    Source = "vidlink"
	SuperEmbed Source = "superembed"
)

// Primary is the provider every new player starts on.
const Primary = VidSrc

// Sources returns the providers in preference order, primary first.
func Sources() []Source {
	return []Source{VidSrc, VidLink, SuperEmbed}
}

// ParseSource resolves a provider name case-insensitively.
func ParseSource(s string) (Source, error) {
	want := Source(strings.ToLower(strings.TrimSpace(s)))
	for _, src := range Sources() {
		if src == want {
			return src, nil
		}
	}
	return "", fmt.Errorf("unknown source %q (valid: vidsrc, vidlink, superembed)", s)
}

// Label is the human-facing provider name.
func (s Source) Label() string {
	switch s {
	case VidSrc:
		return "VidSrc"
	case VidLink:
		return "VidLink"
	case SuperEmbed:
		return "SuperEmbed"
	default:
		return string(s)
	}
}

// URL returns the embed URL for ref. Season and episode are only used for
// TV titles and must be at least 1.
func URL(src Source, ref media.Ref, season, episode int) (string, error) {
	if ref.ID <= 0 {
		return "", fmt.Errorf("invalid catalog id %d", ref.ID)
	}
	tv := ref.Type == media.TV
	if tv && (season < 1 || episode < 1) {
		return "", fmt.Errorf("invalid position S%dE%d", season, episode)
	}

	id := strconv.Itoa(ref.ID)
	s, e := strconv.Itoa(season), strconv.Itoa(episode)

	switch src {
	case VidSrc:
		if tv {
			return "https://vidsrc.to/embed/tv/" + id + "/" + s + "/" + e + "?autoplay=1&no-ads=true", nil
		}
		return "https://vidsrc.to/embed/movie/" + id + "?autoplay=1&no-ads=true", nil
	case VidLink:
		if tv {
			return "https://vidlink.pro/tv/" + id + "/" + s + "/" + e + "?minimal=1", nil
		}
		return "https://vidlink.pro/movie/" + id + "?minimal=1", nil
	case SuperEmbed:
		q := url.Values{}
		q.Set("video_id", id)
		q.Set("tmdb", "1")
		if tv {
			q.Set("s", s)
			q.Set("e", e)
		}
		// Encode sorts keys; the provider ignores parameter order.
		return "https://multiembed.mov/?" + q.Encode(), nil
	default:
		return "", fmt.Errorf("unknown source %q", src)
	}
}
