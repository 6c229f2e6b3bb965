// Lena CI/CD
//
// Package main provides reproducible builds and tests locally and in CI.
package main

import (
	"context"

	"dagger/lena/internal/dagger"
)

// Lena is the main module for the lena CI/CD pipeline
type Lena struct {
	// Project source directory
	//
	// +private
	Source *dagger.Directory
}

// New creates a new Lena CI/CD module instance
func New(
	// Project source directory.
	//
	// +defaultPath="/"
	// +ignore=[".git", ".lena", "build", "tmp", "_examples"]
	source *dagger.Directory,
) *Lena {
	return &Lena{
		Source: source,
	}
}

// goContainer returns a Debian Bookworm-based Go container with gcc,
// libsqlite3-dev, CGO enabled, and the project source mounted.
//
// It is the shared foundation for tests, builds, and linting.
func (t *Lena) goContainer() *dagger.Container {
	return dag.Container().
		From("golang:1.25-bookworm").
		WithExec([]string{"apt-get", "update"}).
		WithExec([]string{"apt-get", "install", "-y", "gcc", "libsqlite3-dev"}).
		WithEnvVariable("CGO_ENABLED", "1").
		WithEnvVariable("PATH", "/go/bin:$PATH", dagger.ContainerWithEnvVariableOpts{Expand: true}).
		WithMountedCache("/go/pkg/mod", dag.CacheVolume("go-mod")).
		WithMountedCache("/root/.cache/go-build", dag.CacheVolume("go-build")).
		WithWorkdir("/src").
		WithDirectory("/src", t.Source)
}

// Test runs the lena unit tests via "go test"
func (t *Lena) Test(ctx context.Context) (string, error) {
	return t.goContainer().
		WithExec([]string{"go", "test", "-v", "./..."}).
		Stdout(ctx)
}

// Vet runs "go vet" across the module.
//
// +check
func (t *Lena) Vet(ctx context.Context) (string, error) {
	return t.goContainer().
		WithExec([]string{"go", "vet", "./..."}).
		Stdout(ctx)
}
