package importer

import (
	"context"
	"errors"
	"io"

	"foodgram/internal/models"
)

// ErrBadHeader is returned when the first row is not exactly "name,measurement_unit".
var ErrBadHeader = errors.New(`ingredient CSV header must be "name,measurement_unit"`)

// IngredientSink stores ingredients, ignoring ones that already exist.
type IngredientSink interface {
	Import(ctx context.Context, ingredients []models.Ingredient) (int64, error)
}

// ImportIngredients reads name,measurement_unit rows from r into sink.
// Blank rows are skipped and fields are trimmed.
func ImportIngredients(ctx context.Context, r io.Reader, sink IngredientSink) (Result, error) {
	return load(ctx, r, []string{"name", "measurement_unit"}, ErrBadHeader,
		func(f []string) (models.Ingredient, error) {
			if f[0] == "" || f[1] == "" {
				return models.Ingredient{}, errors.New("name and measurement_unit are required")
			}
			return models.Ingredient{Name: f[0], MeasurementUnit: f[1]}, nil
		},
		sink.Import,
	)
}
