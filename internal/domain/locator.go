package domain

import (
	"fmt"
	"net/url"
	"path/filepath"
)

// LocatorScheme is the scheme of locators for local files.
const LocatorScheme = "file"

// LocatorForPath returns the file:// locator for an absolute path.
func LocatorForPath(path string) string {
	u := url.URL{Scheme: LocatorScheme, Path: filepath.ToSlash(path)}
	return u.String()
}

// PathFromLocator resolves a file:// locator to a local path.
// A bare path without a scheme is returned unchanged.
//
// Returns ErrSourceUnavailable for any other scheme or a malformed locator.
func PathFromLocator(locator string) (string, error) {
	u, err := url.Parse(locator)
	if err != nil {
		return "", fmt.Errorf("parse locator %q: %w", locator, ErrSourceUnavailable)
	}

	switch u.Scheme {
	case LocatorScheme:
		if u.Path == "" {
			return "", fmt.Errorf("empty path in %q: %w", locator, ErrSourceUnavailable)
		}
		return filepath.FromSlash(u.Path), nil
	case "":
		if locator == "" {
			return "", fmt.Errorf("empty locator: %w", ErrSourceUnavailable)
		}
		return locator, nil
	default:
		return "", fmt.Errorf("unsupported scheme %q: %w", u.Scheme, ErrSourceUnavailable)
	}
}
