package registry

import (
	"sort"
	"strings"

	"github.com/peruse-deploy/peruse/pkg/errors"
	"github.com/peruse-deploy/peruse/pkg/types"
)

// memKey is one key in the in-memory registry.
type memKey struct {
	// name is the last path segment in its original casing, used for
	// subkey listings.
	name   string
	values map[string]types.Value
}

// Memory is an in-memory types.Registry for tests. Keys are stored
// under case-folded paths so lookups are case-insensitive like the
// real registry. The zero value is not usable; call NewMemory.
type Memory struct {
	keys map[string]*memKey
}

// NewMemory creates an empty in-memory registry with the four roots
// pre-created.
func NewMemory() *Memory {
	m := &Memory{keys: make(map[string]*memKey)}
	for _, root := range []string{RootLocalMachine, RootCurrentUser, RootUsers, RootClassesRoot} {
		m.keys[root] = &memKey{name: root, values: make(map[string]types.Value)}
	}
	return m
}

// fold canonicalizes a path for use as a map key.
func (m *Memory) fold(path string) (string, error) {
	root, subkey, err := SplitPath(path)
	if err != nil {
		return "", err
	}
	return strings.ToUpper(JoinPath(root, subkey)), nil
}

// CreateKey creates the key and any missing intermediate keys.
func (m *Memory) CreateKey(path string) error {
	root, subkey, err := SplitPath(path)
	if err != nil {
		return err
	}
	current := root
	segments := []string{}
	if subkey != "" {
		segments = strings.Split(subkey, `\`)
	}
	for _, seg := range segments {
		current = current + `\` + seg
		folded := strings.ToUpper(current)
		if _, ok := m.keys[folded]; !ok {
			m.keys[folded] = &memKey{name: seg, values: make(map[string]types.Value)}
		}
	}
	return nil
}

// DeleteKey removes the key and its entire subtree. Absent keys are
// a no-op.
func (m *Memory) DeleteKey(path string) error {
	folded, err := m.fold(path)
	if err != nil {
		return err
	}
	prefix := folded + `\`
	for k := range m.keys {
		if k == folded || strings.HasPrefix(k, prefix) {
			delete(m.keys, k)
		}
	}
	return nil
}

// SetValue creates the key if absent and stores the named value.
func (m *Memory) SetValue(path, name string, value types.Value) error {
	if err := m.CreateKey(path); err != nil {
		return err
	}
	folded, err := m.fold(path)
	if err != nil {
		return err
	}
	m.keys[folded].values[strings.ToUpper(name)] = value
	return nil
}

// GetValue reads a named value.
func (m *Memory) GetValue(path, name string) (types.Value, error) {
	folded, err := m.fold(path)
	if err != nil {
		return types.Value{}, err
	}
	key, ok := m.keys[folded]
	if !ok {
		return types.Value{}, errors.Newf(errors.ErrNotFound, "registry key %s does not exist", path)
	}
	value, ok := key.values[strings.ToUpper(name)]
	if !ok {
		return types.Value{}, errors.Newf(errors.ErrNotFound, "registry value %s\\%s does not exist", path, name)
	}
	return value, nil
}

// DeleteValue removes a single named value. Absent values and keys
// are a no-op.
func (m *Memory) DeleteValue(path, name string) error {
	folded, err := m.fold(path)
	if err != nil {
		return err
	}
	if key, ok := m.keys[folded]; ok {
		delete(key.values, strings.ToUpper(name))
	}
	return nil
}

// KeyExists reports whether the key is present.
func (m *Memory) KeyExists(path string) (bool, error) {
	folded, err := m.fold(path)
	if err != nil {
		return false, err
	}
	_, ok := m.keys[folded]
	return ok, nil
}

// Subkeys lists the immediate child key names of path, sorted.
func (m *Memory) Subkeys(path string) ([]string, error) {
	folded, err := m.fold(path)
	if err != nil {
		return nil, err
	}
	if _, ok := m.keys[folded]; !ok {
		return nil, errors.Newf(errors.ErrNotFound, "registry key %s does not exist", path)
	}
	prefix := folded + `\`
	var names []string
	for k, key := range m.keys {
		if !strings.HasPrefix(k, prefix) {
			continue
		}
		if strings.Contains(k[len(prefix):], `\`) {
			continue
		}
		names = append(names, key.name)
	}
	sort.Strings(names)
	return names, nil
}

var _ types.Registry = (*Memory)(nil)
