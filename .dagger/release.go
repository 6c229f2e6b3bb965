package main

import (
	"context"
	"fmt"
	"path"
	"time"

	"dagger/lena/internal/dagger"
)

// bucket holds the S3-compatible credentials release artifacts are synced
// with.
type bucket struct {
	endpoint        *dagger.Secret
	name            *dagger.Secret
	accessKeyId     *dagger.Secret
	secretAccessKey *dagger.Secret
}

// sync copies every file of dir under prefix in the bucket.
func (b *bucket) sync(ctx context.Context, dir *dagger.Directory, prefix string) error {
	name, err := b.name.Plaintext(ctx)
	if err != nil {
		return fmt.Errorf("reading bucket name: %w", err)
	}
	endpoint, err := b.endpoint.Plaintext(ctx)
	if err != nil {
		return fmt.Errorf("reading bucket endpoint: %w", err)
	}

	_, err = dag.Container().
		From("amazon/aws-cli:latest").
		WithSecretVariable("AWS_ACCESS_KEY_ID", b.accessKeyId).
		WithSecretVariable("AWS_SECRET_ACCESS_KEY", b.secretAccessKey).
		WithEnvVariable("AWS_DEFAULT_REGION", "auto").
		WithDirectory("/artifacts", dir).
		WithWorkdir("/artifacts").
		WithExec([]string{
			"aws", "s3", "sync", ".",
			"s3://" + path.Join(name, prefix),
			"--endpoint-url", endpoint,
		}).
		Sync(ctx)
	if err != nil {
		return fmt.Errorf("syncing %s: %w", prefix, err)
	}
	return nil
}

// withChecksums adds a SHA256SUMS manifest of the lena and lenaapi binaries.
func withChecksums(artifacts *dagger.Directory) *dagger.Directory {
	sums := dag.Container().
		From("alpine:3").
		WithDirectory("/artifacts", artifacts).
		WithWorkdir("/artifacts").
		WithExec([]string{"sh", "-c", "find . -type f -name 'lena*' | sort | xargs sha256sum > SHA256SUMS"}).
		File("/artifacts/SHA256SUMS")
	return artifacts.WithFile("SHA256SUMS", sums)
}

// ReleaseLatest builds the release binaries, then publishes them under the
// version and under "latest".
func (t *Lena) ReleaseLatest(
	ctx context.Context,

	// Version string (e.g., "v1.0.0")
	version string,

	// Git commit SHA
	commit string,

	endpoint *dagger.Secret,
	bucketName *dagger.Secret,
	accessKeyId *dagger.Secret,
	secretAccessKey *dagger.Secret,
) (*dagger.Directory, error) {
	b := &bucket{endpoint, bucketName, accessKeyId, secretAccessKey}
	artifacts := withChecksums(t.BuildRelease(ctx, version, commit))

	for _, prefix := range []string{version, "latest"} {
		if err := b.sync(ctx, artifacts, prefix); err != nil {
			return artifacts, err
		}
	}
	return artifacts, nil
}

// Nightly publishes a build of commit under nightly/<date> and moves
// nightly/latest to it.
func (t *Lena) Nightly(
	ctx context.Context,

	// Git commit SHA
	commit string,

	endpoint *dagger.Secret,
	bucketName *dagger.Secret,
	accessKeyId *dagger.Secret,
	secretAccessKey *dagger.Secret,
) (*dagger.Directory, error) {
	b := &bucket{endpoint, bucketName, accessKeyId, secretAccessKey}
	stamp := time.Now().UTC().Format("2006-01-02")
	artifacts := withChecksums(t.BuildRelease(ctx, "nightly-"+stamp, commit))

	for _, prefix := range []string{path.Join("nightly", stamp), path.Join("nightly", "latest")} {
		if err := b.sync(ctx, artifacts, prefix); err != nil {
			return artifacts, err
		}
	}
	return artifacts, nil
}
