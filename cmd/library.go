package cmd

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"reelwatch/internal/app"
	"reelwatch/internal/media"
	"reelwatch/internal/ui"
)

var flagRefresh bool

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Resume from watch history",
	Args:  cobra.NoArgs,
	RunE:  historyRun,
}

var historyRmCmd = &cobra.Command{
	Use:   "rm <movie|tv> <id>",
	Short: "Remove a title from watch history",
	Args:  cobra.ExactArgs(2),
	RunE:  historyRmRun,
}

var bookmarksCmd = &cobra.Command{
	Use:     "bookmarks",
	Aliases: []string{"bm"},
	Short:   "List bookmarked titles",
	Args:    cobra.NoArgs,
	RunE:    bookmarksRun,
}

var bookmarksAddCmd = &cobra.Command{
	Use:   "add <movie|tv> <id>",
	Short: "Bookmark a title",
	Args:  cobra.ExactArgs(2),
	RunE:  bookmarkEdit(true),
}

var bookmarksRmCmd = &cobra.Command{
	Use:   "rm <movie|tv> <id>",
	Short: "Remove a bookmark",
	Args:  cobra.ExactArgs(2),
	RunE:  bookmarkEdit(false),
}

var rateCmd = &cobra.Command{
	Use:   "rate <movie|tv> <id> <0-5>",
	Short: "Rate a title in half-star steps",
	Args:  cobra.ExactArgs(3),
	RunE:  rateRun,
}

var rateRmCmd = &cobra.Command{
	Use:   "rm <movie|tv> <id>",
	Short: "Clear your rating of a title",
	Args:  cobra.ExactArgs(2),
	RunE:  rateRmRun,
}

func init() {
	historyCmd.PersistentFlags().BoolVar(&flagRefresh, "refresh", false, "Reload from the backend first")
	historyCmd.AddCommand(historyRmCmd)
	bookmarksCmd.AddCommand(bookmarksAddCmd, bookmarksRmCmd)
	rateCmd.AddCommand(rateRmCmd)
	rootCmd.AddCommand(historyCmd, bookmarksCmd, rateCmd)
}

func historyRun(cmd *cobra.Command, args []string) error {
	return withApp(cmd, func(ctx context.Context, a *app.App) error {
		if _, err := a.RequireUser(); err != nil {
			return err
		}
		if flagRefresh {
			a.History.Refresh(ctx)
		}
		entries := a.History.List()

		if flagJSON {
			return printJSON(entries)
		}
		if len(entries) == 0 {
			fmt.Println("No history entries found.")
			return nil
		}
		if !ui.Interactive() {
			for _, e := range entries {
				fmt.Println(historyLine(e))
			}
			return nil
		}

		idx, err := ui.Select("History", historyItems(entries))
		if err != nil {
			return err
		}
		return resume(ctx, a, entries[idx].Media)
	})
}

func historyItems(entries []media.Progress) []ui.Item {
	items := make([]ui.Item, len(entries))
	for i, e := range entries {
		items[i] = ui.Item{Label: titleOf(e.Media), Detail: historyDetail(e)}
	}
	return items
}

func historyLine(e media.Progress) string {
	return fmt.Sprintf("%-4s %-8d %s  %s", e.Media.Type, e.Media.ID, titleOf(e.Media), historyDetail(e))
}

func historyDetail(e media.Progress) string {
	when := humanize.Time(e.WatchedAt)
	if e.Media.Type == media.TV {
		return fmt.Sprintf("S%02dE%02d · %s", e.Season, e.Episode, when)
	}
	return when
}

func titleOf(ref media.Ref) string {
	if ref.Title != "" {
		return ref.Title
	}
	return ref.String()
}

// resume selects ref and opens it at the saved position.
func resume(ctx context.Context, a *app.App, ref media.Ref) error {
	ref, t := describe(ctx, a, ref)
	a.Nav.SelectMedia(ctx, ref)
	return launch(a, openPlayer(a, ref, t))
}

func historyRmRun(cmd *cobra.Command, args []string) error {
	ref, err := parseRef(args)
	if err != nil {
		return err
	}
	return withApp(cmd, func(ctx context.Context, a *app.App) error {
		if _, err := a.RequireUser(); err != nil {
			return err
		}
		if _, ok := a.History.Lookup(ref); !ok {
			return fmt.Errorf("%s is not in your history", ref)
		}
		a.History.Remove(ctx, ref)
		if _, ok := a.History.Lookup(ref); ok {
			return fmt.Errorf("removing %s failed (see log)", ref)
		}
		notice("Removed %s from history.", ref)
		return nil
	})
}

func bookmarksRun(cmd *cobra.Command, args []string) error {
	return withApp(cmd, func(ctx context.Context, a *app.App) error {
		if _, err := a.RequireUser(); err != nil {
			return err
		}
		marks := a.Bookmarks.List()

		if flagJSON {
			return printJSON(marks)
		}
		if len(marks) == 0 {
			fmt.Println("No bookmarks yet.")
			return nil
		}
		if !ui.Interactive() {
			for _, b := range marks {
				fmt.Printf("%-4s %-8d %s  %s\n", b.Media.Type, b.Media.ID, titleOf(b.Media), humanize.Time(b.CreatedAt))
			}
			return nil
		}

		items := make([]ui.Item, len(marks))
		for i, b := range marks {
			items[i] = ui.Item{Label: titleOf(b.Media), Detail: "saved " + humanize.Time(b.CreatedAt)}
		}
		idx, err := ui.Select("Bookmarks", items)
		if err != nil {
			return err
		}
		return resume(ctx, a, marks[idx].Media)
	})
}

func bookmarkEdit(add bool) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		ref, err := parseRef(args)
		if err != nil {
			return err
		}
		return withApp(cmd, func(ctx context.Context, a *app.App) error {
			if _, err := a.RequireUser(); err != nil {
				return err
			}
			if add {
				ref, _ = describe(ctx, a, ref)
				if err := a.Bookmarks.Add(ctx, ref); err != nil {
					return fmt.Errorf("could not bookmark %s: %w", titleOf(ref), err)
				}
				notice("Bookmarked %s.", titleOf(ref))
				return nil
			}
			if err := a.Bookmarks.Remove(ctx, ref); err != nil {
				return fmt.Errorf("could not remove bookmark: %w", err)
			}
			notice("Removed bookmark %s.", ref)
			return nil
		})
	}
}

func rateRun(cmd *cobra.Command, args []string) error {
	ref, err := parseRef(args[:2])
	if err != nil {
		return err
	}
	value, err := strconv.ParseFloat(args[2], 64)
	if err != nil {
		return fmt.Errorf("rating must be a number: %w", err)
	}
	if err := media.ValidateRating(value); err != nil {
		return err
	}

	return withApp(cmd, func(ctx context.Context, a *app.App) error {
		if _, err := a.RequireUser(); err != nil {
			return err
		}
		ref, _ = describe(ctx, a, ref)
		if err := a.Ratings.Set(ctx, ref, value); err != nil {
			return fmt.Errorf("could not save rating: %w", err)
		}
		notice("Rated %s %s", titleOf(ref), ui.Stars(value))
		return nil
	})
}

func rateRmRun(cmd *cobra.Command, args []string) error {
	ref, err := parseRef(args)
	if err != nil {
		return err
	}
	return withApp(cmd, func(ctx context.Context, a *app.App) error {
		if _, err := a.RequireUser(); err != nil {
			return err
		}
		if err := a.Ratings.Remove(ctx, ref); err != nil {
			return fmt.Errorf("could not clear rating: %w", err)
		}
		notice("Cleared rating of %s", titleOf(ref))
		return nil
	})
}

// isCancel reports whether err means the user backed out of a prompt.
func isCancel(err error) bool {
	return errors.Is(err, ui.ErrCancelled)
}
