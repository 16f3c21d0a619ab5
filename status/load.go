package status

import (
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// Load reads a YAML status file keyed by code and overlays it on the
// built-in entries:
//
//	ERR10000:
//	  statusCode: 401
//	  code: ERR10000
//	  message: INVALID_AUTH_TOKEN
//	  description: Incorrect signature or malformed token in authorization header
//
// An entry without an explicit code takes the key as its code.
func Load(r io.Reader) (*Catalog, error) {
	var raw map[string]Entry
	if err := yaml.NewDecoder(r).Decode(&raw); err != nil && err != io.EOF {
		return nil, fmt.Errorf("could not decode status file: %w", err)
	}

	entries := make([]Entry, 0, len(raw))
	for key, e := range raw {
		if e.Code == "" {
			e.Code = key
		}
		if e.Code != key {
			return nil, fmt.Errorf("status entry %q declares mismatched code %q", key, e.Code)
		}
		if e.StatusCode < 100 || e.StatusCode > 599 {
			return nil, fmt.Errorf("status entry %q has invalid statusCode %d", key, e.StatusCode)
		}
		entries = append(entries, e)
	}

	return NewCatalog(entries), nil
}

// LoadFile is Load on the named file.
func LoadFile(path string) (*Catalog, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("could not open status file: %w", err)
	}
	defer f.Close()

	return Load(f)
}
