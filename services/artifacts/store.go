// Package artifacts persists generated code images and hands back public locators.
package artifacts

import (
	"context"
	"fmt"
	"strings"

	"assetd/pkg/apierr"
)

// Store persists an artifact under name and returns a publicly resolvable
// locator for it. Storing an existing name replaces the previous artifact.
type Store interface {
	Put(ctx context.Context, name string, data []byte) (string, error)
}

// joinLocator concatenates a base that has already lost its trailing slash
// with a stored name.
func joinLocator(base, name string) string {
	return base + "/" + name
}

func validateName(op, name string) error {
	switch {
	case name == "", name == ".", name == "..":
		return apierr.New(apierr.KindInvalidInput, op, "invalid artifact name %q", name)
	case strings.ContainsAny(name, `/\`):
		return apierr.New(apierr.KindInvalidInput, op, "artifact name %q must not contain path separators", name)
	}
	return nil
}

func storageErr(op, name string, err error) error {
	return apierr.Wrap(apierr.KindStorage, op, fmt.Errorf("store %s: %w", name, err))
}
