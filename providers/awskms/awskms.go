// Package awskms implements the kms key-wrapping backend on AWS Key
// Management Service: the document data key is encrypted under a customer
// master key and the envelope stores the base64 ciphertext blob next to the
// key's ARN or alias.
package awskms

import (
	"context"
	"encoding/base64"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/kms"

	"github.com/hengadev/envmeta"
)

// kmsClient interface for AWS KMS operations (allows mocking)
type kmsClient interface {
	Encrypt(ctx context.Context, params *kms.EncryptInput, optFns ...func(*kms.Options)) (*kms.EncryptOutput, error)
	Decrypt(ctx context.Context, params *kms.DecryptInput, optFns ...func(*kms.Options)) (*kms.DecryptOutput, error)
}

// Wrapper implements envmeta.KeyWrapper using one AWS KMS key.
type Wrapper struct {
	client kmsClient
	keyID  string
	region string
}

// Config holds configuration for the AWS KMS wrapper.
type Config struct {
	// KeyID is the KMS key to wrap under: a key ID, key ARN, alias name or
	// alias ARN.
	KeyID string

	// Region is the AWS region (e.g., "us-east-1").
	// If empty, uses AWS_REGION environment variable or AWS config file.
	Region string

	// AWSConfig is an optional pre-configured AWS config.
	// If provided, Region is ignored.
	AWSConfig *aws.Config
}

// New creates a KMS wrapper.
//
// Usage:
//
//	// Using default AWS configuration
//	wrapper, err := awskms.New(ctx, awskms.Config{KeyID: "alias/documents"})
//
//	// With specific region
//	wrapper, err := awskms.New(ctx, awskms.Config{KeyID: "alias/documents", Region: "us-east-1"})
func New(ctx context.Context, cfg Config) (*Wrapper, error) {
	if cfg.KeyID == "" {
		return nil, fmt.Errorf("%w: KMS key ID cannot be empty", envmeta.ErrInvalidConfiguration)
	}

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
			return nil, fmt.Errorf("%w: failed to load AWS config: %w", envmeta.ErrBackendUnavailable, err)
		}
	}

	return &Wrapper{
		client: kms.NewFromConfig(awsConfig),
		keyID:  cfg.KeyID,
		region: awsConfig.Region,
	}, nil
}

func (w *Wrapper) Backend() envmeta.Backend { return envmeta.BackendAWSKMS }

// Recipient returns the configured key identifier; it is what the envelope
// records next to each wrapped key.
func (w *Wrapper) Recipient() string { return w.keyID }

// Region returns the AWS region this wrapper is configured for.
func (w *Wrapper) Region() string { return w.region }

// Wrap encrypts the data key under the configured KMS key and returns the
// ciphertext blob base64-encoded for storage in the envelope.
func (w *Wrapper) Wrap(ctx context.Context, dataKey []byte) (string, error) {
	if len(dataKey) == 0 {
		return "", envmeta.NewMissingArgumentError("dataKey")
	}

	result, err := w.client.Encrypt(ctx, &kms.EncryptInput{
		KeyId:     aws.String(w.keyID),
		Plaintext: dataKey,
	})
	if err != nil {
		return "", fmt.Errorf("%w: KMS key %s: %w", envmeta.ErrWrapFailed, w.keyID, err)
	}
	if result.CiphertextBlob == nil {
		return "", fmt.Errorf("%w: no ciphertext returned from KMS", envmeta.ErrWrapFailed)
	}

	return base64.StdEncoding.EncodeToString(result.CiphertextBlob), nil
}

// Unwrap decrypts a blob produced by Wrap. KMS identifies the key from the
// ciphertext itself, so blobs wrapped under a rotated key still unwrap.
func (w *Wrapper) Unwrap(ctx context.Context, wrappedKey string) ([]byte, error) {
	blob, err := base64.StdEncoding.DecodeString(wrappedKey)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to decode ciphertext: %w", envmeta.ErrUnwrapFailed, err)
	}

	result, err := w.client.Decrypt(ctx, &kms.DecryptInput{
		CiphertextBlob: blob,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", envmeta.ErrUnwrapFailed, err)
	}
	if result.Plaintext == nil {
		return nil, fmt.Errorf("%w: no plaintext returned from KMS", envmeta.ErrUnwrapFailed)
	}

	return result.Plaintext, nil
}
