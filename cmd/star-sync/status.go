package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/kevinmichaelchen/star-sync/internal/api"
	"github.com/kevinmichaelchen/star-sync/internal/config"
	"github.com/kevinmichaelchen/star-sync/internal/ledger"
	"github.com/kevinmichaelchen/star-sync/internal/surrealdb"
	"github.com/spf13/cobra"
)

const (
	topTags      = 10
	statsTimeout = 5 * time.Second
)

var (
	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#7D56F4"))
	labelStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#888888")).Width(12)
	valueStyle = lipgloss.NewStyle().Bold(true)
	mutedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#888888"))
	boxStyle   = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
)

func statusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the last sync, repo counts and tag breakdown",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, done := setup()
			defer done()

			printStatus(os.Stdout, ledger.Load(cfg.StateFile), surrealStats(cmd.Context(), cfg))
			return nil
		},
	}
}

// surrealStats counts the mirrored records when the surrealdb target is
// enabled. It returns nil when the target is off or unreachable.
func surrealStats(ctx context.Context, cfg *config.Config) *surrealdb.Stats {
	if !cfg.HasTarget(config.TargetSurreal) || cfg.SurrealURL == "" {
		return nil
	}
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, cancel := context.WithTimeout(ctx, statsTimeout)
	defer cancel()

	db, err := surrealdb.NewClient(ctx, cfg)
	if err != nil {
		slog.Warn("could not read SurrealDB stats", "error", err)
		return nil
	}
	defer func() { _ = db.Close(ctx) }()

	stats, err := db.GetStats(ctx)
	if err != nil {
		slog.Warn("could not read SurrealDB stats", "error", err)
		return nil
	}
	return stats
}

func printStatus(w io.Writer, l *ledger.Ledger, db *surrealdb.Stats) {
	st := api.Status(l)

	lastSync := "never"
	if !st.LastSync.IsZero() {
		lastSync = st.LastSync.Local().Format(time.DateTime)
	}

	row := func(label, value string) string {
		return labelStyle.Render(label) + valueStyle.Render(value)
	}

	lines := []string{
		titleStyle.Render("GitHub stars"),
		row("Last sync", lastSync),
		row("Repos", fmt.Sprintf("%d (%d labeled)", st.Repos, st.Labeled)),
		row("AI", fmt.Sprintf("%t", st.AIEnabled)),
		row("Last run", fmt.Sprintf("+%d -%d, %d AI, %d fallback, %d carried",
			st.Stats.Added, st.Stats.Removed, st.Stats.AIUpdated, st.Stats.Fallback, st.Stats.Carried)),
	}

	if len(st.Handles) > 0 {
		targets := make([]string, 0, len(st.Handles))
		for t := range st.Handles {
			targets = append(targets, t)
		}
		sort.Strings(targets)
		lines = append(lines, "", titleStyle.Render("Targets"))
		for _, t := range targets {
			lines = append(lines, row(t, st.Handles[t]))
		}
	}

	if db != nil {
		lines = append(lines, "", titleStyle.Render("SurrealDB"),
			row("Records", fmt.Sprintf("%d (%d labeled)", db.Total, db.Labeled)),
			row("Archived", fmt.Sprint(db.Archived)),
		)
	}

	if tags := l.TagBreakdown(); len(tags) > 0 {
		lines = append(lines, "", titleStyle.Render("Top tags"))
		for _, tc := range tags[:min(topTags, len(tags))] {
			lines = append(lines, fmt.Sprintf("  %-24s %s", tc.Tag, mutedStyle.Render(fmt.Sprint(tc.Count))))
		}
	}

	fmt.Fprintln(w, boxStyle.Render(strings.Join(lines, "\n")))
}
