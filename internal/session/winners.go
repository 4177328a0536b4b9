package session

import (
	"fmt"
	"os"
	"sort"

	"github.com/google/renameio"
	"gopkg.in/yaml.v3"

	"github.com/toshas/imagecompare/pkg/version"
)

// winnersFileName lives next to the first modality directory's images.
const winnersFileName = ".imagecompare.winners.yaml"

// winnersFile is the on-disk format. Winners are keyed by tuple name so
// choices survive renames and reordering.
type winnersFile struct {
	Version string            `yaml:"version"`
	Winners map[string]string `yaml:"winners"`
}

// loadWinners reads the winners file. A missing file is an empty map.
func loadWinners(path string) (map[string]string, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return make(map[string]string), nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading winners file: %w", err)
	}

	var f winnersFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parsing winners file: %w", err)
	}
	if f.Winners == nil {
		f.Winners = make(map[string]string)
	}
	return f.Winners, nil
}

// saveWinners writes the winners file atomically. An empty map still
// writes a file so a cleared choice is not resurrected on restart.
// Entries are emitted in sorted tuple-name order so consecutive saves of
// the same choices produce byte-identical files.
func saveWinners(path string, winners map[string]string) error {
	mapping := yaml.Node{Kind: yaml.MappingNode}
	for _, name := range sortedTupleNames(winners) {
		mapping.Content = append(mapping.Content,
			&yaml.Node{Kind: yaml.ScalarNode, Value: name},
			&yaml.Node{Kind: yaml.ScalarNode, Value: winners[name]},
		)
	}
	f := struct {
		Version string    `yaml:"version"`
		Winners yaml.Node `yaml:"winners"`
	}{Version: version.Short(), Winners: mapping}
	data, err := yaml.Marshal(&f)
	if err != nil {
		return fmt.Errorf("encoding winners: %w", err)
	}
	if err := renameio.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing winners file: %w", err)
	}
	return nil
}

// sortedTupleNames returns the stored tuple names in sorted order.
func sortedTupleNames(winners map[string]string) []string {
	names := make([]string, 0, len(winners))
	for name := range winners {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
