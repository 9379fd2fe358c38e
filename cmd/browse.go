package cmd

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"reelwatch/internal/app"
	"reelwatch/internal/embed"
	"reelwatch/internal/media"
	"reelwatch/internal/nav"
	"reelwatch/internal/player"
	"reelwatch/internal/tmdb"
	"reelwatch/internal/ui"
)

var trendingCmd = &cobra.Command{
	Use:   "trending [movies|tv]",
	Short: "Browse trending content",
	Args:  cobra.MaximumNArgs(1),
	RunE:  trendingRun,
}

var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Search movies and TV shows",
	Args:  cobra.MinimumNArgs(1),
	RunE:  searchRun,
}

func init() {
	rootCmd.AddCommand(trendingCmd, searchCmd)
}

func trendingRun(cmd *cobra.Command, args []string) error {
	return withApp(cmd, func(ctx context.Context, a *app.App) error {
		var titles []media.Title
		var err error
		mediaType, filtered := parseMediaTypeArg(args)
		switch {
		case !filtered:
			titles, err = a.Catalog.Trending(ctx)
		case mediaType == media.TV:
			titles, err = a.Catalog.PopularTV(ctx)
		default:
			titles, err = a.Catalog.PopularMovies(ctx)
		}
		if err != nil {
			return fmt.Errorf("getting trending: %w", err)
		}
		return pickTitle(ctx, a, "Trending", titles)
	})
}

func searchRun(cmd *cobra.Command, args []string) error {
	query := strings.Join(args, " ")
	debugf("searching for: %s", query)

	return withApp(cmd, func(ctx context.Context, a *app.App) error {
		if !a.Catalog.Configured() {
			return tmdb.ErrNoAPIKey
		}
		results := a.Nav.Search(ctx, query)
		return pickTitle(ctx, a, "Results for "+query, titlesOf(results))
	})
}

func titlesOf(results []media.Result) []media.Title {
	titles := make([]media.Title, 0, len(results))
	for _, r := range results {
		titles = append(titles, r.Title)
	}
	return titles
}

// pickTitle lists titles (or prints them when not interactive) and plays
// the one picked.
func pickTitle(ctx context.Context, a *app.App, prompt string, titles []media.Title) error {
	if flagJSON {
		refs := make([]media.Ref, len(titles))
		for i, t := range titles {
			refs[i] = t.Ref()
		}
		return printJSON(refs)
	}
	if len(titles) == 0 {
		fmt.Println("Nothing found.")
		return nil
	}
	if !ui.Interactive() {
		for _, t := range titles {
			ref := t.Ref()
			fmt.Printf("%-4s %-8d %s\n", ref.Type, ref.ID, media.FormatDisplayTitle(t))
		}
		return nil
	}

	idx, err := ui.Select(prompt, titleItems(titles))
	if err != nil {
		return err
	}
	ref := titles[idx].Ref()
	a.Nav.SelectMedia(ctx, ref)
	return launch(a, openPlayer(a, ref, titles[idx]))
}

func titleItems(titles []media.Title) []ui.Item {
	items := make([]ui.Item, len(titles))
	for i, t := range titles {
		items[i] = ui.Item{Label: media.FormatDisplayTitle(t), Detail: clip(t.Synopsis(), 90)}
	}
	return items
}

func clip(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return strings.TrimSpace(string(r[:n-1])) + "…"
}

// interactiveRun drives the menu loop over the navigation controller. A
// query argument starts with a search.
func interactiveRun(cmd *cobra.Command, args []string) error {
	if !ui.Interactive() {
		if len(args) > 0 {
			return searchRun(cmd, args)
		}
		return cmd.Help()
	}

	return withApp(cmd, func(ctx context.Context, a *app.App) error {
		s := &browser{app: a}
		if len(args) > 0 {
			a.Nav.Search(ctx, strings.Join(args, " "))
			if err := s.results(ctx); err != nil && !isCancel(err) {
				return err
			}
		}
		return s.loop(ctx)
	})
}

// browser is the state of one interactive session.
type browser struct {
	app  *app.App
	home *tmdb.Home
}

// errQuit ends the loop.
var errQuit = errors.New("quit")

func (b *browser) loop(ctx context.Context) error {
	for {
		var err error
		switch b.app.Nav.Page() {
		case nav.Player:
			err = b.player(ctx)
		case nav.SignIn:
			err = b.signIn(ctx)
		case nav.Bookmarks:
			err = b.bookmarks(ctx)
		case nav.History:
			err = b.history(ctx)
		case nav.Profile:
			err = b.profile(ctx)
		default:
			err = b.homePage(ctx)
		}

		switch {
		case errors.Is(err, errQuit):
			return nil
		case isCancel(err):
			if b.app.Nav.Page() == nav.Home {
				return nil
			}
			b.app.Nav.Navigate(nav.Home)
		case err != nil:
			// Inline errors keep the session alive.
			notice("%s", ui.Failure.Render(err.Error()))
		}
	}
}

func (b *browser) homePage(ctx context.Context) error {
	a := b.app
	type entry struct {
		label string
		run   func() error
	}
	var entries []entry
	add := func(label string, run func() error) { entries = append(entries, entry{label, run}) }

	add("Search", func() error {
		q, err := ui.Input("Search", "movies and TV shows")
		if err != nil {
			return err
		}
		a.Nav.Search(ctx, q)
		return b.results(ctx)
	})
	if a.Auth.Authenticated() && len(a.History.List()) > 0 {
		add("Continue watching", func() error { a.Nav.Navigate(nav.History); return nil })
	}
	add("Trending", func() error { return b.row(ctx, "Trending", func(h *tmdb.Home) []media.Title { return h.Trending }) })
	add("Popular movies", func() error {
		return b.row(ctx, "Popular movies", func(h *tmdb.Home) []media.Title { return h.PopularMovies })
	})
	add("Top rated TV", func() error {
		return b.row(ctx, "Top rated TV", func(h *tmdb.Home) []media.Title { return h.TopRatedTV })
	})
	add("Bookmarks", func() error { a.Nav.Navigate(nav.Bookmarks); return nil })
	add("History", func() error { a.Nav.Navigate(nav.History); return nil })
	if a.Auth.Authenticated() {
		add("Profile", func() error { a.Nav.Navigate(nav.Profile); return nil })
		add("Sign out", func() error { return b.signOut(ctx) })
	} else {
		add("Sign in", func() error { a.Nav.Navigate(nav.SignIn); return nil })
	}
	add("Quit", func() error { return errQuit })

	labels := make([]string, len(entries))
	for i, e := range entries {
		labels[i] = e.label
	}
	title := "reelwatch"
	if u := a.Auth.User(); u != nil {
		title += " · " + u.Nickname
	}
	idx, err := ui.SelectStrings(title, labels)
	if err != nil {
		if isCancel(err) {
			return errQuit
		}
		return err
	}
	return entries[idx].run()
}

// row shows one of the landing page rows, loading them on first use.
func (b *browser) row(ctx context.Context, prompt string, pick func(*tmdb.Home) []media.Title) error {
	if b.home == nil {
		h, err := b.app.Catalog.Home(ctx)
		if err != nil {
			return fmt.Errorf("loading titles: %w", err)
		}
		b.home = h
	}
	return b.choose(ctx, prompt, pick(b.home))
}

func (b *browser) results(ctx context.Context) error {
	query, results := b.app.Nav.Results()
	if query == "" {
		return nil
	}
	if len(results) == 0 {
		notice("No results for %q.", query)
		return nil
	}
	return b.choose(ctx, "Results for "+query, titlesOf(results))
}

func (b *browser) choose(ctx context.Context, prompt string, titles []media.Title) error {
	if len(titles) == 0 {
		notice("Nothing here yet.")
		return nil
	}
	idx, err := ui.Select(prompt, titleItems(titles))
	if err != nil {
		return err
	}
	b.app.Nav.SelectMedia(ctx, titles[idx].Ref())
	return nil
}

func (b *browser) player(ctx context.Context) error {
	a := b.app
	current, ok := a.Nav.Current()
	if !ok {
		a.Nav.Navigate(nav.Home)
		return nil
	}
	ref, t := describe(ctx, a, current)
	p := openPlayer(a, ref, t)

	for {
		state := p.State()
		position := ""
		if ref.Type == media.TV {
			position = fmt.Sprintf(" S%02dE%02d", state.Season, state.Episode)
		}

		var labels []string
		var actions []func() error
		add := func(label string, fn func() error) {
			labels = append(labels, label)
			actions = append(actions, fn)
		}

		add(fmt.Sprintf("Play%s on %s", position, state.Source.Label()), func() error { return launch(a, p) })
		if p.HasNext() {
			add("Next episode", func() error {
				p.Next()
				return launch(a, p)
			})
		}
		if ref.Type == media.TV {
			add("Choose season", func() error { return b.chooseSeason(p) })
			add("Choose episode", func() error { return b.chooseEpisode(ctx, p) })
		}
		add("Change source", func() error {
			labels := make([]string, 0, len(embed.Sources()))
			for _, s := range embed.Sources() {
				labels = append(labels, s.Label())
			}
			idx, err := ui.SelectStrings("Source", labels)
			if err != nil {
				return err
			}
			return p.SetSource(embed.Sources()[idx])
		})
		mark := "Bookmark"
		if a.Bookmarks.Contains(ref) {
			mark = "Remove bookmark"
		}
		add(mark, func() error {
			_, err := a.Nav.ToggleBookmark(ctx, ref)
			if errors.Is(err, nav.ErrSignInRequired) {
				return errLeave
			}
			return err
		})
		add("Rate", func() error { return b.rate(ctx, ref) })
		if t != nil {
			add("Details", func() error {
				fmt.Print(detailsView(a, t))
				return nil
			})
		}
		add("Back", func() error {
			a.Nav.Navigate(nav.Home)
			return errLeave
		})

		idx, err := ui.SelectStrings(titleOf(ref)+position, labels)
		if err != nil {
			return err
		}
		switch err := actions[idx](); {
		case errors.Is(err, errLeave):
			return nil
		case isCancel(err):
			continue
		case err != nil:
			notice("%s", ui.Failure.Render(err.Error()))
		}
	}
}

// errLeave returns from the player page to the navigation loop.
var errLeave = errors.New("leave page")

func (b *browser) chooseSeason(p *player.Title) error {
	n := p.SeasonCount()
	if n == 0 {
		s, err := ui.Input("Season number", "1")
		if err != nil {
			return err
		}
		v, err := atoiPositive(s)
		if err != nil {
			return err
		}
		p.SetSeason(v)
		return nil
	}
	labels := make([]string, n)
	for i := range labels {
		labels[i] = fmt.Sprintf("Season %d", i+1)
	}
	idx, err := ui.SelectStrings("Season", labels)
	if err != nil {
		return err
	}
	p.SetSeason(idx + 1)
	return nil
}

func (b *browser) chooseEpisode(ctx context.Context, p *player.Title) error {
	ref, state := p.Ref(), p.State()
	labels := []string{}
	if b.app.Catalog.Configured() {
		season, err := b.app.Catalog.Season(ctx, ref.ID, state.Season)
		if err != nil {
			debugf("season %d of %s: %v", state.Season, ref, err)
		}
		for _, ep := range season.Episodes {
			if ep.Name != "" {
				labels = append(labels, fmt.Sprintf("Episode %d: %s", ep.Number, ep.Name))
			} else {
				labels = append(labels, fmt.Sprintf("Episode %d", ep.Number))
			}
		}
	}
	if len(labels) == 0 {
		s, err := ui.Input("Episode number", "1")
		if err != nil {
			return err
		}
		v, err := atoiPositive(s)
		if err != nil {
			return err
		}
		p.SetEpisode(v)
		return nil
	}
	idx, err := ui.SelectStrings(fmt.Sprintf("Season %d", state.Season), labels)
	if err != nil {
		return err
	}
	p.SetEpisode(idx + 1)
	return nil
}

func (b *browser) rate(ctx context.Context, ref media.Ref) error {
	if !b.app.Auth.Authenticated() {
		b.app.Nav.Navigate(nav.SignIn)
		return errLeave
	}
	labels := make([]string, 0, 11)
	values := make([]float64, 0, 11)
	for v := media.MaxRating; v >= 0; v -= 0.5 {
		labels = append(labels, ui.Stars(v))
		values = append(values, v)
	}
	rated := b.app.Ratings.Get(ref) > 0
	if rated {
		labels = append(labels, "Clear rating")
	}
	idx, err := ui.SelectStrings("Rate "+titleOf(ref), labels)
	if err != nil {
		return err
	}
	if rated && idx == len(values) {
		return b.app.Ratings.Remove(ctx, ref)
	}
	return b.app.Ratings.Set(ctx, ref, values[idx])
}

func (b *browser) signIn(ctx context.Context) error {
	a := b.app
	idx, err := ui.SelectStrings("Account", []string{"Sign in", "Create account", "Back"})
	if err != nil {
		return err
	}
	switch idx {
	case 0:
		err = signInForm(ctx, a, "")
	case 1:
		err = signUpForm(ctx, a)
	default:
		a.Nav.Navigate(nav.Home)
		return nil
	}
	return err
}

func (b *browser) signOut(ctx context.Context) error {
	ok, err := ui.Confirm("Sign out?")
	if err != nil || !ok {
		return err
	}
	if err := b.app.Nav.SignOut(ctx); err != nil {
		debugf("sign out: %v", err)
	}
	b.home = nil
	notice("Signed out.")
	return nil
}

func (b *browser) bookmarks(ctx context.Context) error {
	marks := b.app.Bookmarks.List()
	if len(marks) == 0 {
		notice("No bookmarks yet.")
		b.app.Nav.Navigate(nav.Home)
		return nil
	}
	items := make([]ui.Item, len(marks))
	for i, m := range marks {
		items[i] = ui.Item{Label: titleOf(m.Media), Detail: m.Media.Type.String()}
	}
	idx, err := ui.Select("Bookmarks", items)
	if err != nil {
		return err
	}
	b.app.Nav.SelectMedia(ctx, marks[idx].Media)
	return nil
}

func (b *browser) history(ctx context.Context) error {
	entries := b.app.History.List()
	if len(entries) == 0 {
		notice("Nothing watched yet.")
		b.app.Nav.Navigate(nav.Home)
		return nil
	}
	idx, err := ui.Select("History", historyItems(entries))
	if err != nil {
		return err
	}
	b.app.Nav.SelectMedia(ctx, entries[idx].Media)
	return nil
}

func (b *browser) profile(ctx context.Context) error {
	defer b.app.Nav.Navigate(nav.Home)
	return printProfile(ctx, b.app)
}
