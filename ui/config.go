package ui

// Config contains TUI-specific configuration.
type Config struct {
	CatalogPath string
	CaptionDir  string
	DataDir     string

	Volume      float64 `env:"STILLPOINT_VOLUME"      envDefault:"1.0"`
	MusicVolume float64 `env:"STILLPOINT_MUSIC_VOLUME" envDefault:"0.3"`

	GlamourStyle string `env:"GLAMOUR_STYLE"`
	EnableMouse  bool
	ShowWelcome  bool

	// Share links are built from this base plus the track id.
	ShareBaseURL string `env:"STILLPOINT_SHARE_URL" envDefault:"https://stillpoint.fm/t"`
}
