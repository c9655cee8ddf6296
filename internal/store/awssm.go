package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager/types"
	"github.com/systmms/credfresh/internal/config"
	"github.com/systmms/credfresh/internal/logging"
	"github.com/systmms/credfresh/pkg/bundle"
)

// secretsManagerAPI is the subset of the Secrets Manager client the store
// uses, extracted so tests can fake it.
type secretsManagerAPI interface {
	GetSecretValue(ctx context.Context, params *secretsmanager.GetSecretValueInput, optFns ...func(*secretsmanager.Options)) (*secretsmanager.GetSecretValueOutput, error)
	PutSecretValue(ctx context.Context, params *secretsmanager.PutSecretValueInput, optFns ...func(*secretsmanager.Options)) (*secretsmanager.PutSecretValueOutput, error)
	CreateSecret(ctx context.Context, params *secretsmanager.CreateSecretInput, optFns ...func(*secretsmanager.Options)) (*secretsmanager.CreateSecretOutput, error)
}

// AWSStore keeps bundles as Secrets Manager secrets, for collection hosts
// that cannot hold credentials on local disk. Backups are written as
// separate timestamp-suffixed secrets; Secrets Manager versioning already
// guards the in-place update, the explicit backup keeps the restore path
// identical across backends.
type AWSStore struct {
	prefix string
	client secretsManagerAPI
	logger *logging.Logger
	now    func() time.Time
}

// NewAWSStore creates a Secrets Manager-backed credential store using the
// default AWS credential chain.
func NewAWSStore(ctx context.Context, cfg config.StoreConfig, logger *logging.Logger) (*AWSStore, error) {
	var opts []func(*awsconfig.LoadOptions) error
	if cfg.Region != "" {
		opts = append(opts, awsconfig.WithRegion(cfg.Region))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load AWS configuration: %w", err)
	}

	return &AWSStore{
		prefix: cfg.Prefix,
		client: secretsmanager.NewFromConfig(awsCfg),
		logger: logger,
		now:    time.Now,
	}, nil
}

// secretName returns the Secrets Manager name for a (service, account) pair.
func (as *AWSStore) secretName(service, account string) string {
	name := as.prefix + "/" + service
	if account != "" {
		name += "/" + account
	}
	return name
}

// Load reads and decodes the bundle for a (service, account) pair.
func (as *AWSStore) Load(ctx context.Context, service, account string) (*bundle.Bundle, error) {
	name := as.secretName(service, account)

	out, err := as.client.GetSecretValue(ctx, &secretsmanager.GetSecretValueInput{
		SecretId: aws.String(name),
	})
	if err != nil {
		var notFound *types.ResourceNotFoundException
		if errors.As(err, &notFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("read secret %s: %w", name, err)
	}
	if out.SecretString == nil {
		return nil, &ParseError{Origin: name, Err: fmt.Errorf("secret has no string value")}
	}

	b, err := bundle.Parse([]byte(*out.SecretString))
	if err != nil {
		return nil, &ParseError{Origin: name, Err: err}
	}

	b.Origin = "aws-secretsmanager:" + name
	b.ModifiedAt = b.SavedAt
	if out.CreatedDate != nil {
		b.ModifiedAt = *out.CreatedDate
	}
	return b, nil
}

// Backup copies the current secret value into a new timestamp-suffixed
// secret, never overwriting an earlier backup.
func (as *AWSStore) Backup(ctx context.Context, service, account string) (*BackupRef, error) {
	name := as.secretName(service, account)

	out, err := as.client.GetSecretValue(ctx, &secretsmanager.GetSecretValueInput{
		SecretId: aws.String(name),
	})
	if err != nil {
		var notFound *types.ResourceNotFoundException
		if errors.As(err, &notFound) {
			return nil, ErrNoFilesToBackup
		}
		return nil, fmt.Errorf("read secret %s for backup: %w", name, err)
	}
	if out.SecretString == nil {
		return nil, ErrNoFilesToBackup
	}

	now := as.now()
	backupName := fmt.Sprintf("%s-backup-%s-%d", name, now.Format("20060102-150405"), now.Nanosecond())

	if _, err := as.client.CreateSecret(ctx, &secretsmanager.CreateSecretInput{
		Name:         aws.String(backupName),
		SecretString: out.SecretString,
		Description:  aws.String(fmt.Sprintf("credfresh backup of %s", name)),
	}); err != nil {
		return nil, fmt.Errorf("write backup secret %s: %w", backupName, err)
	}

	as.logger.Debug("Backed up secret %s to %s", name, backupName)
	return &BackupRef{
		Service:   service,
		Account:   account,
		Location:  "aws-secretsmanager:" + backupName,
		CreatedAt: now,
	}, nil
}

// Replace writes the new bundle as a new secret version, creating the
// secret on first use.
func (as *AWSStore) Replace(ctx context.Context, service, account string, b *bundle.Bundle) error {
	name := as.secretName(service, account)

	if b.SavedAt.IsZero() {
		b.SavedAt = as.now()
	}
	data, err := b.Marshal()
	if err != nil {
		return err
	}

	_, err = as.client.PutSecretValue(ctx, &secretsmanager.PutSecretValueInput{
		SecretId:     aws.String(name),
		SecretString: aws.String(string(data)),
	})
	if err != nil {
		var notFound *types.ResourceNotFoundException
		if !errors.As(err, &notFound) {
			return fmt.Errorf("write secret %s: %w", name, err)
		}
		if _, err := as.client.CreateSecret(ctx, &secretsmanager.CreateSecretInput{
			Name:         aws.String(name),
			SecretString: aws.String(string(data)),
		}); err != nil {
			return fmt.Errorf("create secret %s: %w", name, err)
		}
	}
	return nil
}
