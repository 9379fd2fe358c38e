package cmd

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"reelwatch/internal/app"
	"reelwatch/internal/media"
	"reelwatch/internal/player"
	"reelwatch/internal/tmdb"
	"reelwatch/internal/ui"
)

var (
	flagSeason       int
	flagEpisode      int
	flagNext         bool
	flagJSONLD       bool
	flagProbeSeason  int
	flagProbeEpisode int
)

var playCmd = &cobra.Command{
	Use:   "play <movie|tv> <id>",
	Short: "Open a title in the browser, resuming where you left off",
	Args:  cobra.ExactArgs(2),
	RunE:  playRun,
}

var infoCmd = &cobra.Command{
	Use:   "info <movie|tv> <id>",
	Short: "Show title details",
	Args:  cobra.ExactArgs(2),
	RunE:  infoRun,
}

var sourcesCmd = &cobra.Command{
	Use:   "sources <movie|tv> <id>",
	Short: "Check which embed sources serve a title",
	Args:  cobra.ExactArgs(2),
	RunE:  sourcesRun,
}

func init() {
	playCmd.Flags().IntVarP(&flagSeason, "season", "s", 0, "Season number")
	playCmd.Flags().IntVarP(&flagEpisode, "episode", "e", 0, "Episode number")
	playCmd.Flags().BoolVar(&flagNext, "next", false, "Advance to the next episode first")
	infoCmd.Flags().BoolVar(&flagJSONLD, "jsonld", false, "Print schema.org JSON-LD")
	sourcesCmd.Flags().IntVarP(&flagProbeSeason, "season", "s", 1, "Season number")
	sourcesCmd.Flags().IntVarP(&flagProbeEpisode, "episode", "e", 1, "Episode number")

	rootCmd.AddCommand(playCmd, infoCmd, sourcesCmd)
}

// playResult is the --json output of play.
type playResult struct {
	Title   string `json:"title"`
	Type    string `json:"media_type"`
	ID      int    `json:"id"`
	Season  int    `json:"season,omitempty"`
	Episode int    `json:"episode,omitempty"`
	Source  string `json:"source"`
	URL     string `json:"url"`
}

func playRun(cmd *cobra.Command, args []string) error {
	ref, err := parseRef(args)
	if err != nil {
		return err
	}

	return withApp(cmd, func(ctx context.Context, a *app.App) error {
		ref, t := describe(ctx, a, ref)
		a.Nav.SelectMedia(ctx, ref)
		p := openPlayer(a, ref, t)

		patch := player.Patch{}
		if flagSource != "" {
			src := preferredSource()
			patch.Source = &src
		}
		if flagSeason > 0 {
			patch.Season = &flagSeason
		}
		if flagEpisode > 0 {
			patch.Episode = &flagEpisode
		}
		if err := p.SetAll(patch); err != nil {
			return err
		}
		if flagNext {
			// The season's real episode count decides where "next" goes.
			a.Players.Wait()
			if !p.Next() {
				notice("Already at the last episode.")
			}
		}
		return launch(a, p)
	})
}

// describe loads the catalog entry for ref when the catalog is reachable.
// The returned ref carries the display title; t is nil on failure.
func describe(ctx context.Context, a *app.App, ref media.Ref) (media.Ref, media.Title) {
	if !a.Catalog.Configured() {
		return ref, nil
	}
	t, err := a.Catalog.Details(ctx, ref)
	if err != nil {
		debugf("details for %s: %v", ref, err)
		return ref, nil
	}
	return t.Ref(), t
}

// openPlayer opens the player state for ref and records how many seasons a
// show has so "next" knows where the show ends.
func openPlayer(a *app.App, ref media.Ref, t media.Title) *player.Title {
	p := a.Players.Open(ref)
	if show, ok := t.(*media.TVShow); ok {
		p.SetSeasonCount(show.NumberOfSeasons)
	}
	return p
}

// launch opens the current embed URL, or prints it with --json.
func launch(a *app.App, p *player.Title) error {
	url, err := p.EmbedURL()
	if err != nil {
		return err
	}
	ref, state := p.Ref(), p.State()
	debugf("embed URL: %s", url)

	if flagJSON {
		res := playResult{
			Title:  ref.Title,
			Type:   ref.Type.String(),
			ID:     ref.ID,
			Source: string(state.Source),
			URL:    url,
		}
		if ref.Type == media.TV {
			res.Season, res.Episode = state.Season, state.Episode
		}
		return printJSON(res)
	}

	label := ref.Title
	if label == "" {
		label = ref.String()
	}
	if ref.Type == media.TV {
		label = fmt.Sprintf("%s S%02dE%02d", label, state.Season, state.Episode)
	}

	if !a.Launcher.Available() {
		notice("%s not found; open this URL yourself:", a.Launcher.Name())
		fmt.Println(url)
		return nil
	}
	if err := a.Launcher.Open(url); err != nil {
		return fmt.Errorf("opening browser: %w", err)
	}
	notice("Playing %s on %s", label, state.Source.Label())
	return nil
}

func infoRun(cmd *cobra.Command, args []string) error {
	ref, err := parseRef(args)
	if err != nil {
		return err
	}

	return withApp(cmd, func(ctx context.Context, a *app.App) error {
		t, err := a.Catalog.Details(ctx, ref)
		if err != nil {
			return fmt.Errorf("loading details: %w", err)
		}

		switch {
		case flagJSONLD:
			doc, err := tmdb.JSONLD(t)
			if err != nil {
				return err
			}
			_, err = os.Stdout.Write(append(doc, '\n'))
			return err
		case flagJSON:
			return printJSON(t)
		}

		fmt.Print(detailsView(a, t))
		return nil
	})
}

// detailsView renders a title and the user's relation to it.
func detailsView(a *app.App, t media.Title) string {
	ref := t.Ref()
	rows := [][2]string{{"Title", media.FormatDisplayTitle(t)}}

	switch v := t.(type) {
	case *media.Film:
		if v.Runtime > 0 {
			rows = append(rows, [2]string{"Runtime", fmt.Sprintf("%d min", v.Runtime)})
		}
		rows = append(rows, [2]string{"Genres", joinOr(v.Genres, "-")})
		rows = append(rows, [2]string{"Poster", tmdb.ImageURL(v.PosterPath, tmdb.PosterSize)})
	case *media.TVShow:
		rows = append(rows, [2]string{"Seasons", fmt.Sprint(v.NumberOfSeasons)})
		rows = append(rows, [2]string{"Genres", joinOr(v.Genres, "-")})
		rows = append(rows, [2]string{"Poster", tmdb.ImageURL(v.PosterPath, tmdb.PosterSize)})
	}

	if a.Auth.Authenticated() {
		if a.Bookmarks.Contains(ref) {
			rows = append(rows, [2]string{"Bookmarked", "yes"})
		}
		if r := a.Ratings.Get(ref); r > 0 {
			rows = append(rows, [2]string{"Your rating", ui.Stars(r)})
		}
		if p, ok := a.History.Lookup(ref); ok && ref.Type == media.TV {
			rows = append(rows, [2]string{"Progress", fmt.Sprintf("S%02dE%02d", p.Season, p.Episode)})
		}
	}

	out := ui.KeyValue(rows)
	if s := t.Synopsis(); s != "" {
		out += "\n" + s + "\n"
	}
	return out
}

func sourcesRun(cmd *cobra.Command, args []string) error {
	ref, err := parseRef(args)
	if err != nil {
		return err
	}

	return withApp(cmd, func(ctx context.Context, a *app.App) error {
		results, err := a.Prober.ProbeAll(ctx, ref, flagProbeSeason, flagProbeEpisode)
		if err != nil {
			return err
		}
		if flagJSON {
			return printJSON(results)
		}

		rows := make([][2]string, 0, len(results))
		for _, r := range results {
			status := ui.Failure.Render("unavailable")
			if r.Available {
				status = ui.Heading.Render("available")
			}
			rows = append(rows, [2]string{r.Source.Label(), fmt.Sprintf("%s  %s", status, ui.Dim.Render(r.Reason))})
		}
		fmt.Print(ui.KeyValue(rows))
		return nil
	})
}

func joinOr(items []string, empty string) string {
	if len(items) == 0 {
		return empty
	}
	return strings.Join(items, ", ")
}
