package gcp

import (
	"os"
	"strings"

	"google.golang.org/api/option"
)

// ClientOptionsFromEnv resolves storage credentials. PAPER_GCS_CREDENTIALS_JSON
// wins over the generic Google variables; values starting with "{" are inline
// JSON, anything else is a file path. No credentials means ADC.
func ClientOptionsFromEnv() []option.ClientOption {
	return credentialOptions(os.Getenv)
}

func credentialOptions(getenv func(string) string) []option.ClientOption {
	var creds string
	for _, key := range []string{"PAPER_GCS_CREDENTIALS_JSON", "GOOGLE_APPLICATION_CREDENTIALS_JSON", "GOOGLE_APPLICATION_CREDENTIALS"} {
		if creds = strings.TrimSpace(getenv(key)); creds != "" {
			break
		}
	}
	switch {
	case creds == "":
		return nil
	case strings.HasPrefix(creds, "{"):
		return []option.ClientOption{option.WithCredentialsJSON([]byte(creds))}
	default:
		return []option.ClientOption{option.WithCredentialsFile(creds)}
	}
}
