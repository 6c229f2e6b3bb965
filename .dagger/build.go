package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"dagger/lena/internal/dagger"
)

// Build and return directory of go binaries
func (t *Lena) Build(
	ctx context.Context,

	// Linker flags for go build
	// +optional
	// +default="-s -w"
	ldflags string,
) *dagger.Directory {
	// define build matrix
	gooses := []string{"linux", "darwin"}
	goarches := []string{"amd64", "arm64"}

	// create empty directory to put build artifacts
	outputs := dag.Directory()

	// go-sqlite3 needs cgo, so each target is cross compiled with zig cc
	golang := t.goContainer().
		WithExec([]string{"sh", "-c", "curl -sSfL https://ziglang.org/download/0.13.0/zig-linux-x86_64-0.13.0.tar.xz | tar -xJ -C /opt"}).
		WithEnvVariable("PATH", "/opt/zig-linux-x86_64-0.13.0:$PATH", dagger.ContainerWithEnvVariableOpts{Expand: true})

	for _, goos := range gooses {
		for _, goarch := range goarches {
			// create directory for each OS and architecture
			path := fmt.Sprintf("%s/%s/", goos, goarch)

			build := golang.
				WithEnvVariable("GOOS", goos).
				WithEnvVariable("GOARCH", goarch).
				WithEnvVariable("CC", "zig cc -target "+zigTarget(goos, goarch)).
				WithExec([]string{"go", "build", "-ldflags", ldflags, "-o", path, "./cli/lena"}).
				WithExec([]string{"go", "build", "-ldflags", ldflags, "-o", path, "./cli/lenaapi"})

			// add build to outputs
			outputs = outputs.WithDirectory(path, build.Directory(path))
		}
	}

	// return build directory
	return outputs
}

// BuildRelease compiles versioned release binaries with embedded version info
func (t *Lena) BuildRelease(
	ctx context.Context,

	// Version string of build
	version string,

	// Git commit SHA of build
	commit string,
) *dagger.Directory {
	buildtime := time.Now()

	ldflags := []string{
		"-s",
		"-w",
		fmt.Sprintf("-X 'github.com/sheeehy/lena/pkg/utils.Version=%s'", version),
		fmt.Sprintf("-X 'github.com/sheeehy/lena/pkg/utils.Sha=%s'", commit),
		fmt.Sprintf("-X 'github.com/sheeehy/lena/pkg/utils.Buildtime=%s'", buildtime),
	}

	return t.Build(ctx, strings.Join(ldflags, " "))
}

// zigTarget maps a Go platform to the zig cc target triple.
func zigTarget(goos, goarch string) string {
	arch := map[string]string{"amd64": "x86_64", "arm64": "aarch64"}[goarch]
	if goos == "darwin" {
		return arch + "-macos"
	}
	return arch + "-linux-musl"
}
