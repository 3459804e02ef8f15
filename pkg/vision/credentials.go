package vision

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"google.golang.org/api/option"
)

// Environment keys checked in order.
const (
	EnvKeyJSON   = "GOOGLE_CLOUD_KEY_JSON"
	EnvKeyBase64 = "GOOGLE_CLOUD_KEY_BASE64"
	EnvKeyFile   = "GOOGLE_APPLICATION_CREDENTIALS"
)

// ErrNoCredentials is returned when none of the credential sources is configured.
var ErrNoCredentials = errors.New("no se encontraron credenciales para Google Cloud Vision")

// Credentials describes where the service account came from.
type Credentials struct {
	Source      string
	ClientEmail string
	ProjectID   string
	json        []byte
	file        string
}

type serviceAccount struct {
	ClientEmail string `json:"client_email"`
	PrivateKey  string `json:"private_key"`
	ProjectID   string `json:"project_id"`
}

// ResolveCredentials reads the first configured source using lookup (os.LookupEnv when nil).
func ResolveCredentials(lookup func(string) (string, bool)) (*Credentials, error) {
	if lookup == nil {
		lookup = os.LookupEnv
	}
	get := func(k string) string {
		v, _ := lookup(k)
		return strings.TrimSpace(v)
	}

	if raw := get(EnvKeyJSON); raw != "" {
		return fromJSON(EnvKeyJSON, []byte(raw))
	}
	if b64 := get(EnvKeyBase64); b64 != "" {
		raw, err := base64.StdEncoding.DecodeString(b64)
		if err != nil {
			return nil, fmt.Errorf("%s: decode base64: %w", EnvKeyBase64, err)
		}
		return fromJSON(EnvKeyBase64, raw)
	}
	if path := get(EnvKeyFile); path != "" {
		if _, err := os.Stat(path); err != nil {
			return nil, fmt.Errorf("%s: %w", EnvKeyFile, err)
		}
		return &Credentials{Source: EnvKeyFile, file: path}, nil
	}
	return nil, ErrNoCredentials
}

func fromJSON(source string, raw []byte) (*Credentials, error) {
	var sa serviceAccount
	if err := json.Unmarshal(raw, &sa); err != nil {
		return nil, fmt.Errorf("%s: parse service account: %w", source, err)
	}
	if sa.ClientEmail == "" || sa.PrivateKey == "" {
		return nil, fmt.Errorf("%s: service account requires client_email and private_key", source)
	}
	return &Credentials{Source: source, ClientEmail: sa.ClientEmail, ProjectID: sa.ProjectID, json: raw}, nil
}

// ClientOptions converts the credentials into Google API client options.
func (c *Credentials) ClientOptions() []option.ClientOption {
	if c.file != "" {
		return []option.ClientOption{option.WithCredentialsFile(c.file)}
	}
	return []option.ClientOption{option.WithCredentialsJSON(c.json)}
}
