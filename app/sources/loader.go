package sources

import (
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"
)

const (
	defaultItemLimit = 10
	defaultDayWindow = 15
	defaultPriority  = 5
)

// Load reads and validates the sources document from a YAML file.
func Load(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read sources file: %w", err)
	}

	file, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("error loading %s: %w", path, err)
	}

	return file, nil
}

// Parse decodes a sources document, applies defaults, and validates it.
func Parse(data []byte) (*File, error) {
	var file File
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	setDefaults(&file)

	if err := validate(&file); err != nil {
		return nil, err
	}

	return &file, nil
}

// GroupNames returns group names in sorted order so runs are deterministic.
func (f *File) GroupNames() []string {
	names := make([]string, 0, len(f.Groups))
	for name := range f.Groups {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func setDefaults(file *File) {
	for group, srcs := range file.Groups {
		for i := range srcs {
			srcs[i].Group = group
			if srcs[i].Category == "" {
				srcs[i].Category = "general"
			}
			if srcs[i].Priority == 0 {
				srcs[i].Priority = defaultPriority
			}
		}
		file.Groups[group] = srcs
	}

	if file.Categories == nil {
		file.Categories = map[string]CategorySettings{}
	}
	for name, s := range file.Categories {
		file.Categories[name] = applyDefaults(s)
	}
}

func validate(file *File) error {
	if len(file.Groups) == 0 {
		return fmt.Errorf("sources file defines no groups")
	}

	for group, srcs := range file.Groups {
		if len(srcs) == 0 {
			return fmt.Errorf("group %q has no sources", group)
		}
		for i, src := range srcs {
			if src.Name == "" {
				return fmt.Errorf("group %q: source at index %d has no name", group, i)
			}
			if src.URL == "" {
				return fmt.Errorf("group %q: source %q has no URL", group, src.Name)
			}
		}
	}

	for name, s := range file.Categories {
		if s.ItemLimit < 0 {
			return fmt.Errorf("category %q: item limit must be non-negative", name)
		}
		if s.DayWindow < 0 {
			return fmt.Errorf("category %q: day window must be non-negative", name)
		}
	}

	return nil
}
