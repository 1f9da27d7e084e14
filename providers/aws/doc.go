// Package aws provides AWS Secrets Manager integration for tenantvault.
//
// This package implements the tenantvault.RootSecretSource interface using
// AWS Secrets Manager, so the root secret that seeds per-tenant key
// derivation lives behind IAM instead of deployment configuration.
//
// # Basic Usage
//
//	import (
//	    "context"
//	    "github.com/hengadev/tenantvault"
//	    awssecrets "github.com/hengadev/tenantvault/providers/aws"
//	)
//
//	source, err := awssecrets.NewSecretsManagerSource(ctx, awssecrets.Config{
//	    Region: "us-east-1",
//	})
//	if err != nil {
//	    // handle error
//	}
//
//	svc, err := tenantvault.NewService(ctx,
//	    tenantvault.WithRootSecretSource(source, "payments-prod"),
//	)
//
// # Secret Layout
//
// Root secrets are stored base64-encoded using the path format:
//
//	tenantvault/{alias}/root-secret
//
// # IAM Permissions
//
// The IAM role or user needs GetSecretValue, CreateSecret, PutSecretValue,
// and DescribeSecret on "arn:aws:secretsmanager:*:*:secret:tenantvault/*".
package aws
