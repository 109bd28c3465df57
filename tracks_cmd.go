package main

import (
	"fmt"
	"os"
	"time"

	"github.com/charmbracelet/lipgloss"
	humanize "github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	trackTitleStyle = lipgloss.NewStyle().Bold(true)
	trackMetaStyle  = lipgloss.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "#847A85", Dark: "#979797"})
	musicIDStyle    = lipgloss.NewStyle().Foreground(green)
)

var tracksCmd = &cobra.Command{
	Use:   "tracks [CATALOG]",
	Short: "List the talks and music in a catalog",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var arg string
		if len(args) > 0 {
			arg = args[0]
		}

		cat, watcher, err := resolveCatalog(arg)
		if err != nil {
			return err
		}
		if watcher != nil {
			defer watcher.Close() //nolint:errcheck
		}

		path := arg
		if path == "" {
			path = viper.GetString("catalog")
		}
		if path != "" {
			if st, err := os.Stat(expandPath(path)); err == nil {
				fmt.Printf("Catalog %s, updated %s\n\n", path, humanize.Time(st.ModTime()))
			}
		} else {
			fmt.Printf("Built-in catalog\n\n")
		}

		for _, t := range cat.Tracks() {
			line := trackTitleStyle.Render(t.Title)
			meta := fmt.Sprintf("  %s · %s", t.ID, clock(t.Duration))
			if t.DefaultMusicID != "" {
				meta += " · music " + musicIDStyle.Render(t.DefaultMusicID)
			}
			fmt.Println(line + trackMetaStyle.Render(meta))
		}

		if music := cat.Music(); len(music) > 0 {
			fmt.Println()
			for _, m := range music {
				fmt.Println(musicIDStyle.Render(m.ID) + trackMetaStyle.Render("  "+m.Title))
			}
		}
		return nil
	},
}

func clock(d time.Duration) string {
	d = d.Round(time.Second)
	h := int(d.Hours())
	m := int(d.Minutes()) % 60
	s := int(d.Seconds()) % 60
	if h > 0 {
		return fmt.Sprintf("%d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%d:%02d", m, s)
}
