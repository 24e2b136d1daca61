package azure

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/policy"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/runtime"
	"github.com/Azure/azure-sdk-for-go/sdk/azidentity"

	"github.com/leofalp/promptenhancer/internal/utils"
)

// CognitiveServicesScope is the token scope for Azure OpenAI.
const CognitiveServicesScope = "https://cognitiveservices.azure.com/.default"

// staticTokenLifetime is the nominal lifetime given to a configured AD token.
// Its real expiry is unknown, so the bearer policy never refreshes it.
const staticTokenLifetime = 24 * time.Hour

// newAuthPolicy picks, in order: API key, static AD token, token credential.
// Bearer tokens are cached by the policy and refreshed before they expire.
func newAuthPolicy(cfg Config, allowHTTP bool) (policy.Policy, error) {
	if key := strings.TrimSpace(cfg.APIKey); key != "" {
		return runtime.NewKeyCredentialPolicy(azcore.NewKeyCredential(key), "api-key",
			&runtime.KeyCredentialPolicyOptions{InsecureAllowCredentialWithHTTP: allowHTTP}), nil
	}

	credential := cfg.Credential
	if token := strings.TrimSpace(cfg.ADToken); token != "" {
		credential = staticToken(token)
	}
	if credential == nil {
		cli, err := azidentity.NewAzureCLICredential(nil)
		if err != nil {
			return nil, fmt.Errorf("%w: azure cli credential: %v", ErrConfiguration, err)
		}
		credential = cli
	}

	return runtime.NewBearerTokenPolicy(credential, []string{CognitiveServicesScope},
		&policy.BearerTokenOptions{InsecureAllowCredentialWithHTTP: allowHTTP}), nil
}

// staticToken is a fixed AD token supplied through configuration.
type staticToken string

func (t staticToken) GetToken(context.Context, policy.TokenRequestOptions) (azcore.AccessToken, error) {
	return azcore.AccessToken{Token: string(t), ExpiresOn: time.Now().Add(staticTokenLifetime)}, nil
}

// defaultHeadersPolicy sets the configured extra headers on every request.
type defaultHeadersPolicy struct {
	headers []utils.HeaderOption
}

func (p defaultHeadersPolicy) Do(req *policy.Request) (*http.Response, error) {
	for _, header := range p.headers {
		req.Raw().Header.Set(header.Key, header.Value)
	}
	return req.Next()
}
