package config

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/tidwall/jsonc"
)

// Identity represents the identity configuration file that binds the test driver to an OAuth credential provider
// and a deployed runtime.
// It is loaded once at startup and must not be modified afterwards.
type Identity struct {
	ProviderName string
	Scope        string
	RuntimeURL   string
}

// identityFile mirrors the on-disk layout; pointers distinguish missing sections from empty ones
type identityFile struct {
	Provider *struct {
		Name *string `json:"name"`
	} `json:"provider"`
	Cognito *struct {
		Scope *string `json:"scope"`
	} `json:"cognito"`
	Runtime *struct {
		URL *string `json:"url"`
	} `json:"runtime"`
}

// LoadIdentity reads and validates the identity configuration file located at path.
// Comments and trailing commas are tolerated.
func LoadIdentity(path string) (*Identity, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading identity config: %w", err)
	}
	return ParseIdentity(raw)
}

// ParseIdentity parses the raw contents of an identity configuration file
func ParseIdentity(raw []byte) (*Identity, error) {
	file := new(identityFile)
	if err := json.Unmarshal(jsonc.ToJSON(raw), file); err != nil {
		return nil, fmt.Errorf("parsing identity config: %w", err)
	}

	identity := new(Identity)
	switch {
	case file.Provider == nil || file.Provider.Name == nil || *file.Provider.Name == "":
		return nil, missingKeyError("provider.name")
	case file.Cognito == nil || file.Cognito.Scope == nil || *file.Cognito.Scope == "":
		return nil, missingKeyError("cognito.scope")
	case file.Runtime == nil || file.Runtime.URL == nil || *file.Runtime.URL == "":
		return nil, missingKeyError("runtime.url")
	}
	identity.ProviderName = *file.Provider.Name
	identity.Scope = *file.Cognito.Scope
	identity.RuntimeURL = *file.Runtime.URL
	return identity, nil
}

func missingKeyError(key string) error {
	return fmt.Errorf("identity config: required key '%s' is missing", key)
}
