package server

import (
	"errors"
	"net/url"
	"strings"
)

// Location patch validation errors.
var (
	ErrBackslashInPath      = errors.New("server: pathname contains backslash")
	ErrNullByteInPath       = errors.New("server: pathname contains null byte")
	ErrInvalidPercentEscape = errors.New("server: invalid percent escape in pathname")
	ErrSearchPrefix         = errors.New(`server: search must be empty or start with "?"`)
)

// Validate rejects values a browser would mangle or that are commonly used
// to confuse path handling on the server behind it.
func (p LocationPatch) Validate() error {
	if p.Pathname != nil {
		if err := validatePathname(*p.Pathname); err != nil {
			return err
		}
	}
	if p.Search != nil && *p.Search != "" && !strings.HasPrefix(*p.Search, "?") {
		return ErrSearchPrefix
	}
	return nil
}

func validatePathname(path string) error {
	if strings.Contains(path, `\`) {
		return ErrBackslashInPath
	}
	if strings.Contains(path, "\x00") || strings.Contains(strings.ToUpper(path), "%00") {
		return ErrNullByteInPath
	}
	if strings.Contains(path, "%") {
		if _, err := url.PathUnescape(path); err != nil {
			return ErrInvalidPercentEscape
		}
	}
	return nil
}
