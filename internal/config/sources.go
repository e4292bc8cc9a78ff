package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/playlore/playlore-server/internal/domain"
)

// sourcesFile is the on-disk shape of the metadata sources file:
//
//	sources:
//	  - name: main
//	    base_url: https://metadata.example.org
type sourcesFile struct {
	Sources []sourceEntry `yaml:"sources"`
}

type sourceEntry struct {
	Name    string `yaml:"name"`
	BaseURL string `yaml:"base_url"`
}

// LoadSources reads metadata source descriptors from a YAML file.
// A missing file yields no sources. Watermarks are not part of the file.
func LoadSources(path string) ([]domain.MetadataSource, error) {
	data, err := os.ReadFile(path) //#nosec G304 -- Sources file path is operator configuration
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read sources file: %w", err)
	}
	return ParseSources(data)
}

// ParseSources decodes and validates a sources document.
func ParseSources(data []byte) ([]domain.MetadataSource, error) {
	var f sourcesFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse sources file: %w", err)
	}

	seen := make(map[string]bool, len(f.Sources))
	sources := make([]domain.MetadataSource, 0, len(f.Sources))
	for i, e := range f.Sources {
		name := strings.TrimSpace(e.Name)
		if name == "" {
			return nil, fmt.Errorf("source %d: name is required", i)
		}
		if seen[strings.ToLower(name)] {
			return nil, fmt.Errorf("source %q: duplicate name", name)
		}
		seen[strings.ToLower(name)] = true

		u, err := url.Parse(e.BaseURL)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return nil, fmt.Errorf("source %q: base_url must be an absolute http(s) URL", name)
		}

		sources = append(sources, domain.MetadataSource{
			Name:    name,
			BaseURL: strings.TrimRight(e.BaseURL, "/"),
		})
	}
	return sources, nil
}
