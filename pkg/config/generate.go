package config

import (
	gotoml "github.com/pelletier/go-toml/v2"

	"github.com/peruse-deploy/peruse/pkg/errors"
)

// GenerateDefault renders a starter manifest in TOML with the common
// fields filled in, ready to edit.
func GenerateDefault() ([]byte, error) {
	starter := Manifest{
		Package: PackageSpec{
			Path:             `C:\ProgramData\peruse\cache\app.msi`,
			Arguments:        []string{},
			SuccessExitCodes: []int{0, 3010},
		},
		Files: []FileSpec{
			{
				Source:      `payload\settings.json`,
				Destination: `{APPDATA}\Contoso\settings.json`,
			},
		},
		Registry: []RegistrySpec{
			{
				Key:    `HKCU\Software\Contoso`,
				Name:   "Channel",
				Type:   "string",
				Value:  "stable",
				Action: "set",
			},
		},
	}

	out, err := gotoml.Marshal(starter)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrInternal, "failed to render starter manifest")
	}
	return out, nil
}
