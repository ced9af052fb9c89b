package assets

import (
	"regexp"
	"strings"

	"github.com/google/uuid"

	"assetd/pkg/apierr"
)

const maxCodeLen = 64

var codePattern = regexp.MustCompile(`^[A-Za-z0-9._-]+$`)

// GenerateCode returns prefix followed by eight upper-case hex characters
// taken from a random UUID. Uniqueness is left to the repository.
func GenerateCode(prefix string) string {
	id := strings.ReplaceAll(uuid.NewString(), "-", "")
	return prefix + strings.ToUpper(id[:8])
}

// ValidateCode rejects codes that cannot be used as an artifact name or a
// scan URL path segment.
func ValidateCode(code string) error {
	const op = "assets.ValidateCode"

	switch {
	case code == "":
		return apierr.New(apierr.KindInvalidInput, op, "code is empty")
	case len(code) > maxCodeLen:
		return apierr.New(apierr.KindInvalidInput, op, "code longer than %d characters", maxCodeLen)
	case !codePattern.MatchString(code), code == ".", code == "..":
		return apierr.New(apierr.KindInvalidInput, op, "code %q may only contain letters, digits, '.', '_' and '-'", code)
	}
	return nil
}
