package aws

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager/types"

	"github.com/hengadev/tenantvault"
)

// secretsManagerClient interface for AWS Secrets Manager operations (allows mocking)
type secretsManagerClient interface {
	CreateSecret(ctx context.Context, params *secretsmanager.CreateSecretInput, optFns ...func(*secretsmanager.Options)) (*secretsmanager.CreateSecretOutput, error)
	GetSecretValue(ctx context.Context, params *secretsmanager.GetSecretValueInput, optFns ...func(*secretsmanager.Options)) (*secretsmanager.GetSecretValueOutput, error)
	PutSecretValue(ctx context.Context, params *secretsmanager.PutSecretValueInput, optFns ...func(*secretsmanager.Options)) (*secretsmanager.PutSecretValueOutput, error)
	DescribeSecret(ctx context.Context, params *secretsmanager.DescribeSecretInput, optFns ...func(*secretsmanager.Options)) (*secretsmanager.DescribeSecretOutput, error)
}

// SecretsManagerSource implements tenantvault.RootSecretSource using AWS
// Secrets Manager.
type SecretsManagerSource struct {
	client secretsManagerClient
	region string
}

// NewSecretsManagerSource creates a new AWS Secrets Manager source.
//
// Usage:
//
//	// Using default AWS configuration
//	source, err := aws.NewSecretsManagerSource(ctx, aws.Config{})
//
//	// With specific region
//	source, err := aws.NewSecretsManagerSource(ctx, aws.Config{Region: "us-east-1"})
//
//	// With custom AWS config
//	awsCfg, _ := config.LoadDefaultConfig(ctx)
//	source, err := aws.NewSecretsManagerSource(ctx, aws.Config{AWSConfig: &awsCfg})
func NewSecretsManagerSource(ctx context.Context, cfg Config) (*SecretsManagerSource, error) {
	var awsConfig aws.Config
	var err error

	if cfg.AWSConfig != nil {
		awsConfig = *cfg.AWSConfig
	} else {
		opts := []func(*config.LoadOptions) error{}
		if cfg.Region != "" {
			opts = append(opts, config.WithRegion(cfg.Region))
		}

		awsConfig, err = config.LoadDefaultConfig(ctx, opts...)
		if err != nil {
			return nil, fmt.Errorf("%w: failed to load AWS config: %w",
				tenantvault.ErrSecretSourceUnavailable, err)
		}
	}

	return &SecretsManagerSource{
		client: secretsmanager.NewFromConfig(awsConfig),
		region: awsConfig.Region,
	}, nil
}

// StoragePath returns the Secrets Manager secret name for a deployment alias.
//
// Path format: "tenantvault/{alias}/root-secret"
func (s *SecretsManagerSource) StoragePath(alias string) string {
	return fmt.Sprintf(tenantvault.AWSRootSecretPathTemplate, alias)
}

// StoreRootSecret stores the root secret for alias, base64-encoded. An
// existing secret is updated in place; Secrets Manager keeps prior versions.
func (s *SecretsManagerSource) StoreRootSecret(ctx context.Context, alias string, secret []byte) error {
	if len(secret) < tenantvault.RootSecretMinLength {
		return fmt.Errorf("%w: root secret must be at least %d bytes, got %d",
			tenantvault.ErrInvalidConfiguration, tenantvault.RootSecretMinLength, len(secret))
	}

	secretName := s.StoragePath(alias)
	encoded := base64.StdEncoding.EncodeToString(secret)

	exists, err := s.RootSecretExists(ctx, alias)
	if err != nil {
		return err
	}

	if exists {
		_, err = s.client.PutSecretValue(ctx, &secretsmanager.PutSecretValueInput{
			SecretId:     aws.String(secretName),
			SecretString: aws.String(encoded),
		})
		if err != nil {
			return fmt.Errorf("%w: failed to update root secret in Secrets Manager: %w",
				tenantvault.ErrSecretSourceUnavailable, err)
		}
		return nil
	}

	_, err = s.client.CreateSecret(ctx, &secretsmanager.CreateSecretInput{
		Name:         aws.String(secretName),
		Description:  aws.String(fmt.Sprintf("tenantvault root secret for %s", alias)),
		SecretString: aws.String(encoded),
	})
	if err != nil {
		return fmt.Errorf("%w: failed to create root secret in Secrets Manager: %w",
			tenantvault.ErrSecretSourceUnavailable, err)
	}
	return nil
}

// GetRootSecret retrieves and decodes the root secret for alias.
func (s *SecretsManagerSource) GetRootSecret(ctx context.Context, alias string) ([]byte, error) {
	secretName := s.StoragePath(alias)

	result, err := s.client.GetSecretValue(ctx, &secretsmanager.GetSecretValueInput{
		SecretId: aws.String(secretName),
	})
	if err != nil {
		return nil, fmt.Errorf("%w: failed to get root secret from Secrets Manager: %w",
			tenantvault.ErrSecretSourceUnavailable, err)
	}
	if result.SecretString == nil {
		return nil, fmt.Errorf("%w: root secret not found for alias: %s",
			tenantvault.ErrSecretSourceUnavailable, alias)
	}

	raw, err := base64.StdEncoding.DecodeString(*result.SecretString)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to decode root secret: %w",
			tenantvault.ErrSecretSourceUnavailable, err)
	}

	if len(raw) < tenantvault.RootSecretMinLength {
		return nil, fmt.Errorf("%w: stored root secret is %d bytes, need at least %d",
			tenantvault.ErrSecretSourceUnavailable, len(raw), tenantvault.RootSecretMinLength)
	}

	return raw, nil
}

// RootSecretExists checks whether a root secret exists for alias. A
// ResourceNotFoundException means absent, not failed.
func (s *SecretsManagerSource) RootSecretExists(ctx context.Context, alias string) (bool, error) {
	secretName := s.StoragePath(alias)

	_, err := s.client.DescribeSecret(ctx, &secretsmanager.DescribeSecretInput{
		SecretId: aws.String(secretName),
	})
	if err != nil {
		var notFoundErr *types.ResourceNotFoundException
		if errors.As(err, &notFoundErr) {
			return false, nil
		}
		return false, fmt.Errorf("%w: failed to check if root secret exists: %w",
			tenantvault.ErrSecretSourceUnavailable, err)
	}

	return true, nil
}

// Region returns the AWS region this source is configured for.
func (s *SecretsManagerSource) Region() string {
	return s.region
}
