package importer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"regexp"

	"foodgram/internal/models"
)

// ErrBadTagHeader is returned when the first row is not exactly "name,color,slug".
var ErrBadTagHeader = errors.New(`tag CSV header must be "name,color,slug"`)

var (
	colorPattern = regexp.MustCompile(`^#[0-9A-Fa-f]{6}$`)
	slugPattern  = regexp.MustCompile(`^[-a-zA-Z0-9_]+$`)
)

// TagSink stores tags, ignoring slugs that already exist.
type TagSink interface {
	Import(ctx context.Context, tags []models.Tag) (int64, error)
}

// ImportTags reads name,color,slug rows from r into sink. Colors must be
// #RRGGBB and slugs may hold letters, digits, '-' and '_'.
func ImportTags(ctx context.Context, r io.Reader, sink TagSink) (Result, error) {
	return load(ctx, r, []string{"name", "color", "slug"}, ErrBadTagHeader,
		func(f []string) (models.Tag, error) {
			name, color, slug := f[0], f[1], f[2]
			switch {
			case name == "" || len(name) > 200:
				return models.Tag{}, errors.New("name must be 1-200 characters")
			case !colorPattern.MatchString(color):
				return models.Tag{}, fmt.Errorf("color %q is not #RRGGBB", color)
			case !slugPattern.MatchString(slug) || len(slug) > 200:
				return models.Tag{}, fmt.Errorf("slug %q is invalid", slug)
			}
			return models.Tag{Name: name, Color: color, Slug: slug}, nil
		},
		sink.Import,
	)
}
