// Package shortcode suggests candidate short codes for new links.
package shortcode

import (
	"fmt"

	gonanoid "github.com/matoous/go-nanoid/v2"
)

const (
	alphabet      = "0123456789abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ"
	defaultLength = 8
)

// Suggest returns a random alphanumeric short code. The result always
// satisfies the server's 3-20 alphanumeric constraint, so it can be
// prefilled into the create form as-is.
func Suggest() (string, error) {
	const op = "shortcode.Suggest"

	code, err := gonanoid.Generate(alphabet, defaultLength)
	if err != nil {
		return "", fmt.Errorf("%s: failed to generate short code: %w", op, err)
	}

	return code, nil
}
