// Package main provides the entry point for the Stillpoint CLI application.
package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/caarlos0/env/v11"
	"github.com/charmbracelet/glamour/styles"
	"github.com/charmbracelet/log"
	homedir "github.com/mitchellh/go-homedir"
	gap "github.com/muesli/go-app-paths"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/term"

	"github.com/stillpointfm/stillpoint/internal/analytics"
	"github.com/stillpointfm/stillpoint/internal/audio"
	"github.com/stillpointfm/stillpoint/internal/caption"
	"github.com/stillpointfm/stillpoint/internal/catalog"
	"github.com/stillpointfm/stillpoint/internal/coordinator"
	"github.com/stillpointfm/stillpoint/internal/mediasession"
	"github.com/stillpointfm/stillpoint/ui"
)

var (
	// Version as provided by goreleaser.
	Version = ""
	// CommitSHA as provided by goreleaser.
	CommitSHA = ""

	configFile  string
	style       string
	mouse       bool
	captionDir  string
	volume      float64
	musicVolume float64
	logEvents   bool

	rootCmd = &cobra.Command{
		Use:   "stillpoint [CATALOG]",
		Short: "Guided talks on the CLI, with a music bed",
		Long: paragraph(
			fmt.Sprintf("\nListen to guided talks on the CLI, %s.", keyword("with a music bed")),
		),
		SilenceErrors:    false,
		SilenceUsage:     true,
		TraverseChildren: true,
		Args:             cobra.MaximumNArgs(1),
		ValidArgsFunction: func(*cobra.Command, []string, string) ([]string, cobra.ShellCompDirective) {
			return nil, cobra.ShellCompDirectiveDefault
		},
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return validateOptions(cmd)
		},
		RunE: execute,
	}
)

// expandPath resolves a leading ~ in p. Invalid input is returned unchanged.
func expandPath(p string) string {
	if expanded, err := homedir.Expand(p); err == nil {
		return expanded
	}
	return p
}

// validateStyle checks if the style is a default style, if not, checks that
// the custom style exists.
func validateStyle(style string) error {
	if style != "auto" && styles.DefaultStyles[style] == nil {
		style = expandPath(style)
		if _, err := os.Stat(style); errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("specified style does not exist: %s", style)
		} else if err != nil {
			return fmt.Errorf("unable to stat file: %w", err)
		}
	}
	return nil
}

func validateOptions(cmd *cobra.Command) error {
	// grab config values from Viper
	mouse = viper.GetBool("mouse")
	captionDir = viper.GetString("captions")
	volume = viper.GetFloat64("volume")
	musicVolume = viper.GetFloat64("music_volume")
	logEvents = viper.GetBool("log_events")

	if volume < 0 || volume > 1 {
		return fmt.Errorf("volume must be between 0.0 and 1.0, got %.2f", volume)
	}
	if musicVolume < 0 || musicVolume > 1 {
		return fmt.Errorf("music_volume must be between 0.0 and 1.0, got %.2f", musicVolume)
	}

	// validate the glamour style used by the welcome screen
	style = viper.GetString("style")
	if err := validateStyle(style); err != nil {
		return err
	}

	if !cmd.Flags().Changed("style") && !term.IsTerminal(int(os.Stdout.Fd())) {
		style = "notty"
	}
	return nil
}

// resolveCatalog loads the catalog named by arg, config, or falls back to the
// built-in sampler. The returned watcher is nil when no file backs the
// catalog.
func resolveCatalog(arg string) (*catalog.Catalog, *catalog.Watcher, error) {
	path := arg
	if path == "" {
		path = viper.GetString("catalog")
	}
	if path == "" {
		log.Debug("No catalog configured, using built-in sampler")
		return catalog.Default(), nil, nil
	}

	path = expandPath(path)
	abs, err := filepath.Abs(path)
	if err == nil {
		path = abs
	}

	w, err := catalog.Watch(path)
	if err != nil {
		return nil, nil, fmt.Errorf("unable to load catalog: %w", err)
	}
	return w.Current(), w, nil
}

func execute(cmd *cobra.Command, args []string) error {
	if !term.IsTerminal(int(os.Stdout.Fd())) {
		return errors.New("stillpoint requires an interactive terminal")
	}

	var arg string
	if len(args) > 0 {
		arg = args[0]
	}
	return runTUI(arg)
}

func runTUI(catalogArg string) error {
	// Read environment to get debugging stuff
	cfg, err := env.ParseAs[ui.Config]()
	if err != nil {
		return fmt.Errorf("error parsing config: %v", err)
	}

	// use style set in env, or the validated flag value if unset
	if err := validateStyle(cfg.GlamourStyle); err != nil {
		cfg.GlamourStyle = style
	}

	cat, watcher, err := resolveCatalog(catalogArg)
	if err != nil {
		return err
	}
	if watcher != nil {
		defer watcher.Close() //nolint:errcheck
	}

	if captionDir == "" {
		captionDir = cat.CaptionDir
	}
	captionDir = expandPath(captionDir)

	var dataDir string
	scope := gap.NewScope(gap.User, "stillpoint")
	if dirs, err := scope.DataDirs(); err == nil && len(dirs) > 0 {
		dataDir = dirs[0]
	} else {
		log.Debug("Could not resolve data directory", "error", err)
	}

	cfg.CatalogPath = catalogArg
	cfg.CaptionDir = captionDir
	cfg.DataDir = dataDir
	cfg.EnableMouse = mouse
	cfg.Volume = volume
	cfg.MusicVolume = musicVolume
	cfg.ShowWelcome = !ui.WelcomeSeen(dataDir)

	actx, err := audio.Get()
	if err != nil {
		return fmt.Errorf("unable to open audio device: %w", err)
	}

	var sink *analytics.Sink
	if logEvents {
		sink = analytics.NewSink(analytics.LogReporter{})
	} else {
		sink = analytics.NewSink(nil)
	}
	defer sink.Close()

	coord, err := coordinator.New(cat, actx, sink)
	if err != nil {
		return fmt.Errorf("unable to start playback: %w", err)
	}
	defer coord.Close()

	coord.SetVolume(cfg.Volume)
	coord.SetMusicVolume(cfg.MusicVolume)

	bridge := mediasession.New(mediasession.NopSession{}, coord)
	defer bridge.Close() //nolint:errcheck
	coord.SetOnChange(bridge.Update)

	deps := ui.Deps{
		Coordinator: coord,
		Bridge:      bridge,
		Captions:    caption.NewLoader(captionDir),
		Watcher:     watcher,
		Sink:        sink,
	}

	// Run Bubble Tea program
	if _, err := ui.NewProgram(cfg, deps).Run(); err != nil {
		return fmt.Errorf("unable to run tui program: %w", err)
	}

	return nil
}

func main() {
	closer, err := setupLog()
	if err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
	if err := rootCmd.Execute(); err != nil {
		_ = closer()
		os.Exit(1)
	}
	_ = closer()
}

func init() {
	tryLoadConfigFromDefaultPlaces()
	if len(CommitSHA) >= 7 {
		vt := rootCmd.VersionTemplate()
		rootCmd.SetVersionTemplate(vt[:len(vt)-1] + " (" + CommitSHA[0:7] + ")\n")
	}
	if Version == "" {
		Version = "unknown (built from source)"
	}
	rootCmd.Version = Version
	rootCmd.InitDefaultCompletionCmd()

	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", fmt.Sprintf("config file (default %s)", viper.GetViper().ConfigFileUsed()))
	rootCmd.Flags().StringVarP(&style, "style", "s", styles.AutoStyle, "welcome screen style name or JSON path")
	rootCmd.Flags().StringVarP(&captionDir, "captions", "c", "", "directory containing caption files")
	rootCmd.Flags().Float64VarP(&volume, "volume", "v", 1.0, "voice volume (0.0-1.0)")
	rootCmd.Flags().Float64VarP(&musicVolume, "music-volume", "b", coordinator.DefaultMusicVolume, "music bed volume relative to voice (0.0-1.0)")
	rootCmd.Flags().BoolVarP(&mouse, "mouse", "m", false, "enable mouse wheel")
	_ = rootCmd.Flags().MarkHidden("mouse")
	rootCmd.Flags().BoolVar(&logEvents, "log-events", false, "write listening events to the debug log")

	// Config bindings
	_ = viper.BindPFlag("style", rootCmd.Flags().Lookup("style"))
	_ = viper.BindPFlag("captions", rootCmd.Flags().Lookup("captions"))
	_ = viper.BindPFlag("volume", rootCmd.Flags().Lookup("volume"))
	_ = viper.BindPFlag("music_volume", rootCmd.Flags().Lookup("music-volume"))
	_ = viper.BindPFlag("mouse", rootCmd.Flags().Lookup("mouse"))
	_ = viper.BindPFlag("log_events", rootCmd.Flags().Lookup("log-events"))

	viper.SetDefault("style", styles.AutoStyle)
	viper.SetDefault("catalog", "")
	viper.SetDefault("volume", 1.0)
	viper.SetDefault("music_volume", coordinator.DefaultMusicVolume)

	rootCmd.AddCommand(configCmd, tracksCmd, manCmd)
}

func tryLoadConfigFromDefaultPlaces() {
	scope := gap.NewScope(gap.User, "stillpoint")
	dirs, err := scope.ConfigDirs()
	if err != nil {
		fmt.Println("Could not load find configuration directory.")
		os.Exit(1)
	}

	if c := os.Getenv("XDG_CONFIG_HOME"); c != "" {
		dirs = append([]string{filepath.Join(c, "stillpoint")}, dirs...)
	}

	if c := os.Getenv("STILLPOINT_CONFIG_HOME"); c != "" {
		dirs = append([]string{c}, dirs...)
	}

	for _, v := range dirs {
		viper.AddConfigPath(v)
	}

	viper.SetConfigName("stillpoint")
	viper.SetConfigType("yaml")
	viper.SetEnvPrefix("stillpoint")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			log.Warn("Could not parse configuration file", "err", err)
		}
	}

	if used := viper.ConfigFileUsed(); used != "" {
		log.Debug("Using configuration file", "path", viper.ConfigFileUsed())
		return
	}

	if viper.ConfigFileUsed() == "" {
		configFile = filepath.Join(dirs[0], "stillpoint.yml")
	}
	if err := ensureConfigFile(); err != nil {
		log.Error("Could not create default configuration", "error", err)
	}
}
