package catalog

import (
	"fmt"
	"os"
	"slices"

	"gopkg.in/yaml.v3"
)

// LoadAliasFile reads extra header aliases from a YAML document mapping a
// canonical key to a list of source headers:
//
//	name: [judul, nama_item]
//	price: [harga_ecer]
func LoadAliasFile(path string) (map[string][]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("catalog: read alias file: %w", err)
	}
	return ParseAliases(data)
}

// ParseAliases decodes an alias document and rejects unknown canonical keys.
func ParseAliases(data []byte) (map[string][]string, error) {
	aliases := make(map[string][]string)
	if err := yaml.Unmarshal(data, &aliases); err != nil {
		return nil, fmt.Errorf("catalog: parse alias file: %w", err)
	}
	known := allColumnKeys()
	for key := range aliases {
		if !slices.Contains(known, key) {
			return nil, fmt.Errorf("catalog: alias file: unknown column %q", key)
		}
	}
	return aliases, nil
}
