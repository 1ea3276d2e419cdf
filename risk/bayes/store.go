package bayes

import (
	"bytes"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

//go:embed models/*.yaml
var embeddedModels embed.FS

// Store loads network definitions by name from <name>.yaml files and caches
// them for the process lifetime. Cached definitions are shared read-only.
type Store struct {
	fsys fs.FS

	mu    sync.Mutex
	cache map[string]*Network
}

// NewStore reads definitions from the root of fsys.
func NewStore(fsys fs.FS) *Store {
	return &Store{fsys: fsys, cache: map[string]*Network{}}
}

// DefaultStore serves the model definitions built into the binary.
func DefaultStore() *Store {
	sub, err := fs.Sub(embeddedModels, "models")
	if err != nil {
		panic(fmt.Sprintf("bayes: embedded models: %v", err))
	}
	return NewStore(sub)
}

// Load returns the validated definition of the named model. The returned
// network is shared and must not be mutated.
func (s *Store) Load(name string) (*Network, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if n, ok := s.cache[name]; ok {
		return n, nil
	}
	data, err := fs.ReadFile(s.fsys, name+".yaml")
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrUnknownModel, name)
	}
	if err != nil {
		return nil, fmt.Errorf("reading model %s: %w", name, err)
	}
	n, err := ParseNetwork(data)
	if err != nil {
		return nil, fmt.Errorf("model %s: %w", name, err)
	}
	if n.Name != name {
		return nil, fmt.Errorf("model %s: file declares network %q", name, n.Name)
	}
	s.cache[name] = n
	logrus.Infof("loaded model %s (%d nodes)", name, len(n.Nodes))
	return n, nil
}

// Names lists the models available in the store, sorted.
func (s *Store) Names() ([]string, error) {
	entries, err := fs.ReadDir(s.fsys, ".")
	if err != nil {
		return nil, fmt.Errorf("listing models: %w", err)
	}
	var names []string
	for _, e := range entries {
		if e.IsDir() || path.Ext(e.Name()) != ".yaml" {
			continue
		}
		names = append(names, strings.TrimSuffix(e.Name(), ".yaml"))
	}
	sort.Strings(names)
	return names, nil
}

// ParseNetwork decodes and validates a network definition. Unknown keys
// are rejected.
func ParseNetwork(data []byte) (*Network, error) {
	var n Network
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&n); err != nil {
		return nil, fmt.Errorf("parsing network: %w", err)
	}
	if err := n.Validate(); err != nil {
		return nil, err
	}
	return &n, nil
}
