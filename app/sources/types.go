package sources

// Source describes one feed endpoint. Immutable after loading.
type Source struct {
	Name           string `yaml:"name"`
	URL            string `yaml:"url"`
	Category       string `yaml:"category"`
	Priority       int    `yaml:"priority"`
	Language       string `yaml:"language"`
	ExtractContent bool   `yaml:"extract_content"`

	// Group is the named collection the source belongs to, filled by the loader.
	Group string `yaml:"-"`
}

// CategorySettings is the per-category crawl-settings row: how many entries
// to take from a feed and how far back entries may be dated.
type CategorySettings struct {
	ItemLimit int `yaml:"item_limit"`
	DayWindow int `yaml:"day_window"`
}

// Relevance holds the keyword-strategy configuration.
type Relevance struct {
	Keywords     []string `yaml:"keywords"`
	AllowSources []string `yaml:"allow_sources"`
	ExcludeTerms []string `yaml:"exclude_terms"`
}

// File is the whole sources document.
type File struct {
	Groups     map[string][]Source         `yaml:"groups"`
	Categories map[string]CategorySettings `yaml:"categories"`
	Relevance  Relevance                   `yaml:"relevance"`
}

// SettingsFor returns the crawl settings for a category, falling back to the
// "default" row and then to built-in defaults.
func (f *File) SettingsFor(category string) CategorySettings {
	if s, ok := f.Categories[category]; ok {
		return applyDefaults(s)
	}
	if s, ok := f.Categories["default"]; ok {
		return applyDefaults(s)
	}
	return CategorySettings{ItemLimit: defaultItemLimit, DayWindow: defaultDayWindow}
}

// All returns every source across all groups, with Group tags filled in.
// Group iteration order is made deterministic by the loader.
func (f *File) All() []Source {
	var all []Source
	for _, group := range f.GroupNames() {
		all = append(all, f.Groups[group]...)
	}
	return all
}

func applyDefaults(s CategorySettings) CategorySettings {
	if s.ItemLimit <= 0 {
		s.ItemLimit = defaultItemLimit
	}
	if s.DayWindow <= 0 {
		s.DayWindow = defaultDayWindow
	}
	return s
}
