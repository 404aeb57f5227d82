//go:build windows

package registry

import (
	"sort"

	winreg "golang.org/x/sys/windows/registry"

	"github.com/peruse-deploy/peruse/pkg/errors"
	"github.com/peruse-deploy/peruse/pkg/types"
)

// winRegistry implements types.Registry against the live Windows
// registry.
type winRegistry struct{}

// NewWindows creates a types.Registry backed by the real registry.
func NewWindows() types.Registry {
	return &winRegistry{}
}

func rootKey(root string) (winreg.Key, error) {
	switch root {
	case RootLocalMachine:
		return winreg.LOCAL_MACHINE, nil
	case RootCurrentUser:
		return winreg.CURRENT_USER, nil
	case RootUsers:
		return winreg.USERS, nil
	case RootClassesRoot:
		return winreg.CLASSES_ROOT, nil
	}
	return 0, errors.Newf(errors.ErrNotFound, "unrecognized registry root %q", root)
}

func split(path string) (winreg.Key, string, error) {
	root, subkey, err := SplitPath(path)
	if err != nil {
		return 0, "", err
	}
	key, err := rootKey(root)
	if err != nil {
		return 0, "", err
	}
	return key, subkey, nil
}

func (w *winRegistry) CreateKey(path string) error {
	root, subkey, err := split(path)
	if err != nil {
		return err
	}
	k, _, err := winreg.CreateKey(root, subkey, winreg.CREATE_SUB_KEY)
	if err != nil {
		return errors.Wrapf(err, errors.ErrIO, "failed to create registry key %s", path)
	}
	return k.Close()
}

func (w *winRegistry) DeleteKey(path string) error {
	root, subkey, err := split(path)
	if err != nil {
		return err
	}
	return deleteKeyRecursive(root, subkey, path)
}

// deleteKeyRecursive removes subkey and everything beneath it.
// winreg.DeleteKey only deletes empty keys, so children go first.
func deleteKeyRecursive(root winreg.Key, subkey, display string) error {
	k, err := winreg.OpenKey(root, subkey, winreg.READ)
	if err == winreg.ErrNotExist {
		return nil
	}
	if err != nil {
		return errors.Wrapf(err, errors.ErrIO, "failed to open registry key %s", display)
	}
	children, err := k.ReadSubKeyNames(-1)
	closeErr := k.Close()
	if err != nil {
		return errors.Wrapf(err, errors.ErrIO, "failed to list subkeys of %s", display)
	}
	if closeErr != nil {
		return closeErr
	}
	for _, child := range children {
		if err := deleteKeyRecursive(root, subkey+`\`+child, display+`\`+child); err != nil {
			return err
		}
	}
	if err := winreg.DeleteKey(root, subkey); err != nil && err != winreg.ErrNotExist {
		return errors.Wrapf(err, errors.ErrIO, "failed to delete registry key %s", display)
	}
	return nil
}

func (w *winRegistry) SetValue(path, name string, value types.Value) error {
	root, subkey, err := split(path)
	if err != nil {
		return err
	}
	k, _, err := winreg.CreateKey(root, subkey, winreg.SET_VALUE)
	if err != nil {
		return errors.Wrapf(err, errors.ErrIO, "failed to create registry key %s", path)
	}
	defer k.Close()

	switch value.Type {
	case types.ValueString:
		err = k.SetStringValue(name, value.String)
	case types.ValueExpandString:
		err = k.SetExpandStringValue(name, value.String)
	case types.ValueDword:
		err = k.SetDWordValue(name, uint32(value.Integer))
	case types.ValueQword:
		err = k.SetQWordValue(name, value.Integer)
	case types.ValueMultiString:
		err = k.SetStringsValue(name, value.Strings)
	case types.ValueBinary:
		err = k.SetBinaryValue(name, value.Bytes)
	default:
		return errors.Newf(errors.ErrUnsupported, "unsupported registry value type %q", value.Type)
	}
	if err != nil {
		return errors.Wrapf(err, errors.ErrIO, "failed to set registry value %s\\%s", path, name)
	}
	return nil
}

func (w *winRegistry) GetValue(path, name string) (types.Value, error) {
	root, subkey, err := split(path)
	if err != nil {
		return types.Value{}, err
	}
	k, err := winreg.OpenKey(root, subkey, winreg.QUERY_VALUE)
	if err == winreg.ErrNotExist {
		return types.Value{}, errors.Newf(errors.ErrNotFound, "registry key %s does not exist", path)
	}
	if err != nil {
		return types.Value{}, errors.Wrapf(err, errors.ErrIO, "failed to open registry key %s", path)
	}
	defer k.Close()

	_, valType, err := k.GetValue(name, nil)
	if err == winreg.ErrNotExist {
		return types.Value{}, errors.Newf(errors.ErrNotFound, "registry value %s\\%s does not exist", path, name)
	}
	if err != nil {
		return types.Value{}, errors.Wrapf(err, errors.ErrIO, "failed to query registry value %s\\%s", path, name)
	}

	switch valType {
	case winreg.SZ:
		s, _, err := k.GetStringValue(name)
		return types.Value{Type: types.ValueString, String: s}, err
	case winreg.EXPAND_SZ:
		s, _, err := k.GetStringValue(name)
		return types.Value{Type: types.ValueExpandString, String: s}, err
	case winreg.DWORD:
		v, _, err := k.GetIntegerValue(name)
		return types.Value{Type: types.ValueDword, Integer: v}, err
	case winreg.QWORD:
		v, _, err := k.GetIntegerValue(name)
		return types.Value{Type: types.ValueQword, Integer: v}, err
	case winreg.MULTI_SZ:
		vs, _, err := k.GetStringsValue(name)
		return types.Value{Type: types.ValueMultiString, Strings: vs}, err
	case winreg.BINARY:
		b, _, err := k.GetBinaryValue(name)
		return types.Value{Type: types.ValueBinary, Bytes: b}, err
	}
	return types.Value{}, errors.Newf(errors.ErrUnsupported, "unsupported registry value type %d at %s\\%s", valType, path, name)
}

func (w *winRegistry) DeleteValue(path, name string) error {
	root, subkey, err := split(path)
	if err != nil {
		return err
	}
	k, err := winreg.OpenKey(root, subkey, winreg.SET_VALUE)
	if err == winreg.ErrNotExist {
		return nil
	}
	if err != nil {
		return errors.Wrapf(err, errors.ErrIO, "failed to open registry key %s", path)
	}
	defer k.Close()
	if err := k.DeleteValue(name); err != nil && err != winreg.ErrNotExist {
		return errors.Wrapf(err, errors.ErrIO, "failed to delete registry value %s\\%s", path, name)
	}
	return nil
}

func (w *winRegistry) KeyExists(path string) (bool, error) {
	root, subkey, err := split(path)
	if err != nil {
		return false, err
	}
	k, err := winreg.OpenKey(root, subkey, winreg.READ)
	if err == winreg.ErrNotExist {
		return false, nil
	}
	if err != nil {
		return false, errors.Wrapf(err, errors.ErrIO, "failed to open registry key %s", path)
	}
	return true, k.Close()
}

func (w *winRegistry) Subkeys(path string) ([]string, error) {
	root, subkey, err := split(path)
	if err != nil {
		return nil, err
	}
	k, err := winreg.OpenKey(root, subkey, winreg.READ)
	if err == winreg.ErrNotExist {
		return nil, errors.Newf(errors.ErrNotFound, "registry key %s does not exist", path)
	}
	if err != nil {
		return nil, errors.Wrapf(err, errors.ErrIO, "failed to open registry key %s", path)
	}
	defer k.Close()
	names, err := k.ReadSubKeyNames(-1)
	if err != nil {
		return nil, errors.Wrapf(err, errors.ErrIO, "failed to list subkeys of %s", path)
	}
	sort.Strings(names)
	return names, nil
}
