package config

import (
	"context"
	"time"

	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
)

// Credentials returns the Alpaca key pair. In prod, values missing from the
// config are looked up in the SSM parameter store.
func (a *AlpacaConfig) Credentials(env string) (key, secret string) {
	key, secret = a.APIKey, a.APISecret
	if env != "prod" {
		return key, secret
	}
	if key == "" {
		key = getParameterStoreValue("PREMIUMFLOW_ALPACA_API_KEY", true)
	}
	if secret == "" {
		secret = getParameterStoreValue("PREMIUMFLOW_ALPACA_API_SECRET", true)
	}
	return key, secret
}

func getParameterStoreValue(parameterName string, decrypt bool) string {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	cfg, err := config.LoadDefaultConfig(ctx)
	if err != nil {
		return ""
	}

	client := ssm.NewFromConfig(cfg)

	input := &ssm.GetParameterInput{
		Name:           &parameterName,
		WithDecryption: &decrypt,
	}

	result, err := client.GetParameter(ctx, input)
	if err != nil {
		return ""
	}

	if result.Parameter == nil || result.Parameter.Value == nil {
		return ""
	}

	return *result.Parameter.Value
}
