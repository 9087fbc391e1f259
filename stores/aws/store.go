package aws

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"ideation-workspace/core"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/oklog/ulid/v2"
	"github.com/sirupsen/logrus"
)

const (
	workspacePrefix = "workspaces/"
	valuePrefix     = "kv/"
)

// ObjectAPI is the subset of the S3 client the store uses.
type ObjectAPI interface {
	GetObject(ctx context.Context, in *s3.GetObjectInput, opts ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	PutObject(ctx context.Context, in *s3.PutObjectInput, opts ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	DeleteObject(ctx context.Context, in *s3.DeleteObjectInput, opts ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
	ListObjectsV2(ctx context.Context, in *s3.ListObjectsV2Input, opts ...func(*s3.Options)) (*s3.ListObjectsV2Output, error)
}

type s3Store struct {
	client ObjectAPI
	bucket string
}

// NewStore creates an S3-backed store using the default AWS credential chain.
func NewStore(ctx context.Context, bucketName string) (*s3Store, error) {
	cfg, err := config.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("unable to load SDK config: %w", err)
	}
	return NewStoreWithClient(s3.NewFromConfig(cfg), bucketName), nil
}

func NewStoreWithClient(client ObjectAPI, bucketName string) *s3Store {
	return &s3Store{client: client, bucket: bucketName}
}

func isNotFound(err error) bool {
	var nsk *s3types.NoSuchKey
	var nf *s3types.NotFound
	return errors.As(err, &nsk) || errors.As(err, &nf)
}

func (s *s3Store) getObject(ctx context.Context, key string) ([]byte, error) {
	resp, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		if isNotFound(err) {
			return nil, fmt.Errorf("object %s: %w", key, core.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get object %s: %w", key, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read object %s: %w", key, err)
	}
	return data, nil
}

func (s *s3Store) putObject(ctx context.Context, key string, data []byte, contentType string) error {
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return fmt.Errorf("failed to put object %s: %w", key, err)
	}
	return nil
}

func (s *s3Store) deleteObject(ctx context.Context, key string) error {
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil && !isNotFound(err) {
		return fmt.Errorf("failed to delete object %s: %w", key, err)
	}
	return nil
}

func workspaceKey(id string) (string, error) {
	if err := core.ValidateID(id); err != nil {
		return "", err
	}
	return workspacePrefix + id + ".json", nil
}

func (s *s3Store) List(ctx context.Context) ([]*core.Workspace, error) {
	var (
		list  []*core.Workspace
		token *string
	)
	for {
		out, err := s.client.ListObjectsV2(ctx, &s3.ListObjectsV2Input{
			Bucket:            aws.String(s.bucket),
			Prefix:            aws.String(workspacePrefix),
			ContinuationToken: token,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to list workspaces: %w", err)
		}

		for _, obj := range out.Contents {
			key := aws.ToString(obj.Key)
			w, err := s.read(ctx, key)
			if err != nil {
				logrus.WithError(err).WithField("workspace_id", keyID(key)).Warn("Failed to read workspace object, skipping")
				continue
			}
			list = append(list, w.Summary())
		}

		if !aws.ToBool(out.IsTruncated) {
			break
		}
		token = out.NextContinuationToken
	}

	if list == nil {
		list = []*core.Workspace{}
	}
	sort.Slice(list, func(i, j int) bool { return list[i].UpdatedAt.After(list[j].UpdatedAt) })
	return list, nil
}

func (s *s3Store) read(ctx context.Context, key string) (*core.Workspace, error) {
	data, err := s.getObject(ctx, key)
	if err != nil {
		return nil, err
	}
	var w core.Workspace
	if err := json.Unmarshal(data, &w); err != nil {
		return nil, fmt.Errorf("failed to unmarshal workspace %s: %w", key, err)
	}
	return &w, nil
}

func (s *s3Store) write(ctx context.Context, w *core.Workspace) error {
	key, err := workspaceKey(w.ID)
	if err != nil {
		return err
	}
	data, err := json.Marshal(w)
	if err != nil {
		return fmt.Errorf("failed to marshal workspace: %w", err)
	}
	return s.putObject(ctx, key, data, "application/json")
}

func (s *s3Store) Get(ctx context.Context, id string) (*core.Workspace, error) {
	key, err := workspaceKey(id)
	if err != nil {
		return nil, err
	}
	return s.read(ctx, key)
}

func (s *s3Store) Create(ctx context.Context, w *core.Workspace) (string, error) {
	now := time.Now()
	stored := *w
	stored.ID = ulid.Make().String()
	stored.CreatedAt = now
	stored.UpdatedAt = now

	if err := s.write(ctx, &stored); err != nil {
		return "", err
	}
	logrus.WithField("workspace_id", stored.ID).Info("Workspace created successfully")
	return stored.ID, nil
}

// Save preserves CreatedAt and the title of an existing object.
func (s *s3Store) Save(ctx context.Context, w *core.Workspace) error {
	if err := core.ValidateID(w.ID); err != nil {
		return err
	}

	stored := *w
	now := time.Now()
	existing, err := s.Get(ctx, w.ID)
	switch {
	case err == nil:
		stored.CreatedAt = existing.CreatedAt
		if stored.Title == "" {
			stored.Title = existing.Title
		}
	case errors.Is(err, core.ErrNotFound):
		stored.CreatedAt = now
	default:
		return err
	}
	stored.UpdatedAt = now

	return s.write(ctx, &stored)
}

func (s *s3Store) Delete(ctx context.Context, id string) error {
	key, err := workspaceKey(id)
	if err != nil {
		return err
	}
	return s.deleteObject(ctx, key)
}

func valueKey(key string) (string, error) {
	if err := core.ValidateID(key); err != nil {
		return "", err
	}
	return valuePrefix + key, nil
}

func (s *s3Store) GetValue(ctx context.Context, key string) ([]byte, error) {
	k, err := valueKey(key)
	if err != nil {
		return nil, err
	}
	return s.getObject(ctx, k)
}

func (s *s3Store) PutValue(ctx context.Context, key string, value []byte) error {
	k, err := valueKey(key)
	if err != nil {
		return err
	}
	return s.putObject(ctx, k, value, "application/octet-stream")
}

func (s *s3Store) RemoveValue(ctx context.Context, key string) error {
	k, err := valueKey(key)
	if err != nil {
		return err
	}
	return s.deleteObject(ctx, k)
}

// keyID strips the prefix and extension from a workspace object key.
func keyID(key string) string {
	return strings.TrimSuffix(strings.TrimPrefix(key, workspacePrefix), ".json")
}
