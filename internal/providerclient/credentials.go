package providerclient

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/credentials/stscreds"
	"github.com/aws/aws-sdk-go-v2/service/sts"
)

// CredentialConfig is the configuration surface for Bedrock credential
// resolution, populated from the gateway's YAML config / environment.
type CredentialConfig struct {
	Region string

	StaticAccessKeyID     string
	StaticSecretAccessKey string
	StaticSessionToken    string

	ProfileName string

	AssumeRoleARN         string
	AssumeRoleExternalID  string
	AssumeRoleSessionName string
	AssumeRoleDuration    time.Duration

	WebIdentityTokenFile string
	WebIdentityRoleARN   string
}

// CredentialProvider is the narrow surface the Bedrock client needs from
// AWS SDK credential resolution. Narrowed to ease substitution in tests,
// mirroring the adapter-facing narrow-interface pattern used for the
// Bedrock invoker itself.
type CredentialProvider interface {
	Retrieve(ctx context.Context) (aws.Credentials, error)
}

// ResolveCredentials picks one of five resolution tiers in order, per the
// most specific configuration present. Falling through to the AWS SDK's
// own ambient chain (environment, shared config, EC2/ECS/EKS metadata) is
// always the last resort; explicit configuration always overrides ambient
// environment.
func ResolveCredentials(ctx context.Context, cfg CredentialConfig) (aws.Config, error) {
	region := cfg.Region
	if region == "" {
		region = "us-east-1"
	}

	switch {
	case cfg.StaticAccessKeyID != "" && cfg.StaticSecretAccessKey != "":
		provider := credentials.NewStaticCredentialsProvider(
			cfg.StaticAccessKeyID, cfg.StaticSecretAccessKey, cfg.StaticSessionToken)
		return config.LoadDefaultConfig(ctx,
			config.WithRegion(region),
			config.WithCredentialsProvider(provider))

	case cfg.ProfileName != "":
		return config.LoadDefaultConfig(ctx,
			config.WithRegion(region),
			config.WithSharedConfigProfile(cfg.ProfileName))

	case cfg.AssumeRoleARN != "":
		base, err := config.LoadDefaultConfig(ctx, config.WithRegion(region))
		if err != nil {
			return aws.Config{}, fmt.Errorf("providerclient: load base config for assume-role: %w", err)
		}
		stsClient := sts.NewFromConfig(base)
		provider := stscreds.NewAssumeRoleProvider(stsClient, cfg.AssumeRoleARN, func(o *stscreds.AssumeRoleOptions) {
			if cfg.AssumeRoleExternalID != "" {
				o.ExternalID = aws.String(cfg.AssumeRoleExternalID)
			}
			if cfg.AssumeRoleSessionName != "" {
				o.RoleSessionName = cfg.AssumeRoleSessionName
			}
			if cfg.AssumeRoleDuration > 0 {
				o.Duration = cfg.AssumeRoleDuration
			}
		})
		base.Credentials = aws.NewCredentialsCache(provider)
		return base, nil

	case cfg.WebIdentityTokenFile != "" && cfg.WebIdentityRoleARN != "":
		if _, err := os.Stat(cfg.WebIdentityTokenFile); err != nil {
			return aws.Config{}, fmt.Errorf("providerclient: web identity token file: %w", err)
		}
		base, err := config.LoadDefaultConfig(ctx, config.WithRegion(region))
		if err != nil {
			return aws.Config{}, fmt.Errorf("providerclient: load base config for web identity: %w", err)
		}
		stsClient := sts.NewFromConfig(base)
		provider := stscreds.NewWebIdentityRoleProvider(stsClient, cfg.WebIdentityRoleARN,
			stscreds.IdentityTokenFile(cfg.WebIdentityTokenFile))
		base.Credentials = aws.NewCredentialsCache(provider)
		return base, nil

	default:
		return config.LoadDefaultConfig(ctx, config.WithRegion(region))
	}
}
