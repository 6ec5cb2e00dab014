package content

// Config describes one collection: its rolling-window settings and the
// external sources feeding it. One YAML file per collection.
type Config struct {
	Collection string         `yaml:"collection"`
	Settings   ConfigSettings `yaml:"settings"`
	Sources    []ConfigSource `yaml:"sources"`
}

type ConfigSettings struct {
	Enabled         bool   `yaml:"enabled"`
	MaxItems        int    `yaml:"max_items"`
	RefreshInterval int    `yaml:"refresh_interval"` // seconds
	Timeout         int    `yaml:"timeout"`          // seconds, per source fetch
	Language        string `yaml:"language"`         // required item language, empty disables the check
}

type ConfigSource struct {
	Name     string `yaml:"name"`
	Type     string `yaml:"type"` // rss, youtube, social
	URL      string `yaml:"url"`
	Platform string `yaml:"platform"`
	Handle   string `yaml:"handle"`
	Category string `yaml:"category"`
}
