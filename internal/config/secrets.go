package config

import (
	"context"
	"fmt"
	"os"

	secretmanager "cloud.google.com/go/secretmanager/apiv1"
	"cloud.google.com/go/secretmanager/apiv1/secretmanagerpb"
)

// secretEnvVars is the provider-credential surface spec.md §6 names.
var secretEnvVars = []string{"ZAI_API_KEY", "GEMINI_API_KEY", "OPENAI_API_KEY"}

// SecretResolver fetches one named secret's current value. Implemented by
// GCPSecretResolver for production use and fakeable in tests.
type SecretResolver interface {
	FetchSecret(ctx context.Context, name string) (string, error)
}

// GCPSecretResolver resolves provider credentials from GCP Secret Manager,
// adapted from andymwolf-agentium's internal/cloud/gcp/secrets.go, trimmed
// of its GCP-metadata-server project-ID fallback: this module has no VM
// provisioning component, so the project ID must come from one of the
// standard environment variables or construction fails.
type GCPSecretResolver struct {
	client    *secretmanager.Client
	projectID string
}

// NewGCPSecretResolver constructs a resolver for the project named by
// GOOGLE_CLOUD_PROJECT / GCP_PROJECT / GCLOUD_PROJECT (checked in that
// order). Returns an error if none is set.
func NewGCPSecretResolver(ctx context.Context) (*GCPSecretResolver, error) {
	project := firstNonEmptyEnv("GOOGLE_CLOUD_PROJECT", "GCP_PROJECT", "GCLOUD_PROJECT")
	if project == "" {
		return nil, fmt.Errorf("secretmanager: no GCP project configured (set GOOGLE_CLOUD_PROJECT)")
	}

	client, err := secretmanager.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("secretmanager: new client: %w", err)
	}
	return &GCPSecretResolver{client: client, projectID: project}, nil
}

func firstNonEmptyEnv(names ...string) string {
	for _, n := range names {
		if v := os.Getenv(n); v != "" {
			return v
		}
	}
	return ""
}

// FetchSecret retrieves the latest version of name from Secret Manager.
func (r *GCPSecretResolver) FetchSecret(ctx context.Context, name string) (string, error) {
	req := &secretmanagerpb.AccessSecretVersionRequest{
		Name: fmt.Sprintf("projects/%s/secrets/%s/versions/latest", r.projectID, name),
	}
	result, err := r.client.AccessSecretVersion(ctx, req)
	if err != nil {
		return "", fmt.Errorf("secretmanager: access %s: %w", name, err)
	}
	return string(result.Payload.Data), nil
}

// Close releases the underlying Secret Manager client.
func (r *GCPSecretResolver) Close() error {
	return r.client.Close()
}

// ResolveProviderSecrets fills in any of spec.md §6's provider credential
// env vars that are not already set in the process environment, by
// fetching them from resolver. A nil resolver is a no-op (no GCP project
// configured, which is the common local-development case). A missing
// secret for an optional credential (GEMINI_API_KEY/OPENAI_API_KEY) is not
// an error; only the process env var is simply left unset.
func ResolveProviderSecrets(ctx context.Context, resolver SecretResolver) error {
	if resolver == nil {
		return nil
	}
	for _, name := range secretEnvVars {
		if os.Getenv(name) != "" {
			continue
		}
		val, err := resolver.FetchSecret(ctx, name)
		if err != nil || val == "" {
			continue
		}
		os.Setenv(name, val)
	}
	return nil
}
