// Package paramstore resolves the OpenRouter credential from AWS SSM
// Parameter Store for deployments that keep secrets out of the environment.
package paramstore

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/service/ssm"
)

const keyParameterSuffix = "/openrouter-api-key"

// ssmAPI is the minimal AWS SSM interface required by Credential.
// *ssm.Client from aws-sdk-go-v2 satisfies this interface.
type ssmAPI interface {
	GetParameter(ctx context.Context, in *ssm.GetParameterInput, optFns ...func(*ssm.Options)) (*ssm.GetParameterOutput, error)
}

// Credential fetches the API key stored under <prefix>/openrouter-api-key as
// a SecureString. It satisfies the upstream client's CredentialSource, which
// caches the value, so each process hits SSM at most once.
type Credential struct {
	api    ssmAPI
	prefix string
}

// New creates a Credential with the given SSM API implementation and
// parameter prefix.
func New(api ssmAPI, prefix string) (*Credential, error) {
	if api == nil {
		return nil, errors.New("paramstore: api must not be nil")
	}
	prefix = strings.TrimRight(strings.TrimSpace(prefix), "/")
	if prefix == "" {
		return nil, errors.New("paramstore: parameter prefix must not be empty")
	}
	return &Credential{api: api, prefix: prefix}, nil
}

// APIKey fetches and returns the stored credential.
func (c *Credential) APIKey(ctx context.Context) (string, error) {
	name := c.prefix + keyParameterSuffix

	withDecryption := true
	out, err := c.api.GetParameter(ctx, &ssm.GetParameterInput{
		Name:           &name,
		WithDecryption: &withDecryption,
	})
	if err != nil {
		return "", fmt.Errorf("paramstore: get parameter %q: %w", name, err)
	}
	if out == nil || out.Parameter == nil || out.Parameter.Value == nil {
		return "", errors.New("paramstore: parameter missing value")
	}
	key := strings.TrimSpace(*out.Parameter.Value)
	if key == "" {
		return "", fmt.Errorf("paramstore: parameter %q is empty", name)
	}
	return key, nil
}
