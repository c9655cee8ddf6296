package store

import (
	"context"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/systmms/credfresh/internal/logging"
	"github.com/systmms/credfresh/pkg/bundle"
)

// fakeSecretsManager implements secretsManagerAPI in memory.
type fakeSecretsManager struct {
	secrets map[string]string
}

func newFakeSecretsManager() *fakeSecretsManager {
	return &fakeSecretsManager{secrets: make(map[string]string)}
}

func (f *fakeSecretsManager) GetSecretValue(_ context.Context, params *secretsmanager.GetSecretValueInput, _ ...func(*secretsmanager.Options)) (*secretsmanager.GetSecretValueOutput, error) {
	v, ok := f.secrets[aws.ToString(params.SecretId)]
	if !ok {
		return nil, &types.ResourceNotFoundException{}
	}
	return &secretsmanager.GetSecretValueOutput{SecretString: aws.String(v)}, nil
}

func (f *fakeSecretsManager) PutSecretValue(_ context.Context, params *secretsmanager.PutSecretValueInput, _ ...func(*secretsmanager.Options)) (*secretsmanager.PutSecretValueOutput, error) {
	name := aws.ToString(params.SecretId)
	if _, ok := f.secrets[name]; !ok {
		return nil, &types.ResourceNotFoundException{}
	}
	f.secrets[name] = aws.ToString(params.SecretString)
	return &secretsmanager.PutSecretValueOutput{}, nil
}

func (f *fakeSecretsManager) CreateSecret(_ context.Context, params *secretsmanager.CreateSecretInput, _ ...func(*secretsmanager.Options)) (*secretsmanager.CreateSecretOutput, error) {
	f.secrets[aws.ToString(params.Name)] = aws.ToString(params.SecretString)
	return &secretsmanager.CreateSecretOutput{}, nil
}

func newTestAWSStore() (*AWSStore, *fakeSecretsManager) {
	fake := newFakeSecretsManager()
	return &AWSStore{
		prefix: "credfresh",
		client: fake,
		logger: logging.New(false, true),
		now:    time.Now,
	}, fake
}

func TestAWSStore_Load_NotFound(t *testing.T) {
	as, _ := newTestAWSStore()

	_, err := as.Load(context.Background(), "stripe", "")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestAWSStore_ReplaceCreatesThenUpdates(t *testing.T) {
	as, fake := newTestAWSStore()

	in := &bundle.Bundle{
		SavedAt: time.Now().UTC(),
		Items:   []bundle.Item{{Name: "key", Value: "sk_live_1"}},
	}
	require.NoError(t, as.Replace(context.Background(), "stripe", "", in))
	assert.Contains(t, fake.secrets, "credfresh/stripe")

	in.Items[0].Value = "sk_live_2"
	require.NoError(t, as.Replace(context.Background(), "stripe", "", in))

	out, err := as.Load(context.Background(), "stripe", "")
	require.NoError(t, err)
	require.Len(t, out.Items, 1)
	assert.Equal(t, "sk_live_2", out.Items[0].Value)
}

func TestAWSStore_AccountNaming(t *testing.T) {
	as, fake := newTestAWSStore()

	in := &bundle.Bundle{SavedAt: time.Now(), Items: []bundle.Item{{Name: "a", Value: "1"}}}
	require.NoError(t, as.Replace(context.Background(), "youtube", "studio", in))
	assert.Contains(t, fake.secrets, "credfresh/youtube/studio")
}

func TestAWSStore_Backup(t *testing.T) {
	as, fake := newTestAWSStore()
	fake.secrets["credfresh/stripe"] = `{"items":[{"name":"key","value":"sk"}]}`

	ref, err := as.Backup(context.Background(), "stripe", "")
	require.NoError(t, err)
	assert.Contains(t, ref.Location, "aws-secretsmanager:credfresh/stripe-backup-")

	// Two secrets now: live and backup, same value.
	assert.Len(t, fake.secrets, 2)
}

func TestAWSStore_Backup_NothingToBackUp(t *testing.T) {
	as, _ := newTestAWSStore()

	_, err := as.Backup(context.Background(), "stripe", "")
	assert.ErrorIs(t, err, ErrNoFilesToBackup)
}

func TestAWSStore_Load_ParseFailure(t *testing.T) {
	as, fake := newTestAWSStore()
	fake.secrets["credfresh/stripe"] = "{corrupt"

	_, err := as.Load(context.Background(), "stripe", "")
	var parseErr *ParseError
	assert.ErrorAs(t, err, &parseErr)
}
