// Package resolver turns import specifiers into canonical module identifiers.
//
// Resolution is purely syntactic: URL parsing, path joining and removal of
// "." and ".." segments. The filesystem is never consulted.
package resolver

import (
	"errors"
	"fmt"
	"net/url"
	"path/filepath"
	"strings"

	domainerrors "github.com/reglet-dev/runjs/domain/errors"
	"github.com/reglet-dev/runjs/domain/ports"
)

// FileScheme is the scheme of identifiers that name local files.
const FileScheme = "file"

var (
	// ErrBareSpecifier is returned for specifiers that are neither URLs nor
	// prefixed with "/", "./" or "../".
	ErrBareSpecifier = errors.New(`relative import path not prefixed with "/", "./" or "../"`)

	// ErrRelativeReferrer is returned when the referrer is not an absolute URL.
	ErrRelativeReferrer = errors.New("referrer is not an absolute URL")

	// ErrNotFileURL is returned by ToFilePath for identifiers outside the file scheme.
	ErrNotFileURL = errors.New("identifier is not a local file URL")
)

// Resolver implements ports.SpecifierResolver.
type Resolver struct{}

var _ ports.SpecifierResolver = (*Resolver)(nil)

// New creates a Resolver.
func New() *Resolver {
	return &Resolver{}
}

// Resolve joins specifier onto referrer.
//
// A specifier that already carries a scheme is returned normalized and the
// referrer is ignored. Specifiers starting with "/", "./" or "../" are joined
// against the referrer, which must be an absolute URL. Anything else fails.
func (r *Resolver) Resolve(specifier, referrer string) (*url.URL, error) {
	ref, err := url.Parse(specifier)
	if err != nil {
		return nil, resolutionError(specifier, referrer, unwrapURLError(err))
	}
	if ref.IsAbs() {
		return normalize(ref), nil
	}

	if !hasRelativePrefix(specifier) {
		return nil, resolutionError(specifier, referrer, ErrBareSpecifier)
	}

	base, err := url.Parse(referrer)
	if err != nil {
		return nil, resolutionError(specifier, referrer, unwrapURLError(err))
	}
	if !base.IsAbs() {
		return nil, resolutionError(specifier, referrer, ErrRelativeReferrer)
	}

	return base.ResolveReference(ref), nil
}

// ResolvePath converts a filesystem path into a file identifier. Relative
// paths are joined onto cwd, which must itself be absolute.
func (r *Resolver) ResolvePath(path, cwd string) (*url.URL, error) {
	if path == "" {
		return nil, resolutionError(path, cwd, errors.New("empty path"))
	}
	if !filepath.IsAbs(path) {
		if !filepath.IsAbs(cwd) {
			return nil, resolutionError(path, cwd, fmt.Errorf("working directory %q is not absolute", cwd))
		}
		path = filepath.Join(cwd, path)
	}
	return FileURL(filepath.Clean(path)), nil
}

// FileURL builds a file identifier from an absolute, cleaned path.
func FileURL(path string) *url.URL {
	p := filepath.ToSlash(path)
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	return &url.URL{Scheme: FileScheme, Path: p}
}

// ToFilePath converts a file identifier back into a local path.
func ToFilePath(u *url.URL) (string, error) {
	if u == nil || u.Scheme != FileScheme {
		return "", ErrNotFileURL
	}
	if u.Host != "" && u.Host != "localhost" {
		return "", fmt.Errorf("%w: remote host %q", ErrNotFileURL, u.Host)
	}
	if !strings.HasPrefix(u.Path, "/") {
		return "", fmt.Errorf("%w: path %q is not absolute", ErrNotFileURL, u.Path)
	}
	return filepath.FromSlash(u.Path), nil
}

func normalize(u *url.URL) *url.URL {
	return new(url.URL).ResolveReference(u)
}

func hasRelativePrefix(specifier string) bool {
	return strings.HasPrefix(specifier, "/") ||
		strings.HasPrefix(specifier, "./") ||
		strings.HasPrefix(specifier, "../")
}

// unwrapURLError drops the *url.Error envelope, which repeats the input.
func unwrapURLError(err error) error {
	var ue *url.Error
	if errors.As(err, &ue) {
		return ue.Err
	}
	return err
}

func resolutionError(specifier, referrer string, err error) error {
	return &domainerrors.ResolutionError{
		Specifier: specifier,
		Referrer:  referrer,
		Err:       err,
	}
}
