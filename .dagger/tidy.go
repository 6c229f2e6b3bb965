package main

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"dagger/lena/internal/dagger"
)

// CheckGoModTidy fails when "go mod tidy" would change go.mod or go.sum of
// the lena module or of this CI module.
//
// +check
func (t *Lena) CheckGoModTidy(ctx context.Context) (string, error) {
	var tidy []string
	for _, dir := range []string{".", ".dagger"} {
		_, err := t.goContainer().
			WithWorkdir("/src/"+dir).
			WithExec([]string{"sh", "-c", "cp go.mod /tmp/go.mod && cp go.sum /tmp/go.sum 2>/dev/null; go mod tidy"}).
			WithExec([]string{"sh", "-c", "diff -u /tmp/go.mod go.mod && (test ! -f /tmp/go.sum || diff -u /tmp/go.sum go.sum)"}).
			Stdout(ctx)

		var e *dagger.ExecError
		switch {
		case errors.As(err, &e):
			return "", fmt.Errorf("%s is not tidy: run 'go mod tidy' there and commit the result\n\n%s", dir, e.Stdout)
		case err != nil:
			return "", fmt.Errorf("checking %s: %w", dir, err)
		}
		tidy = append(tidy, dir)
	}
	return "tidy: " + strings.Join(tidy, ", "), nil
}
