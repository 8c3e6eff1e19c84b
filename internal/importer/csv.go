package importer

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
)

const batchSize = 500

// Result summarises an import run.
type Result struct {
	Read     int
	Inserted int64
}

// load reads a CSV whose header must equal columns, turns every non-blank row
// into a T with parse and hands them to store in batches of batchSize.
// Fields are trimmed before parse sees them.
func load[T any](
	ctx context.Context,
	r io.Reader,
	columns []string,
	errHeader error,
	parse func(fields []string) (T, error),
	store func(ctx context.Context, items []T) (int64, error),
) (Result, error) {
	var res Result

	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return res, errHeader
		}
		return res, fmt.Errorf("failed to read CSV header: %w", err)
	}
	if len(header) != len(columns) {
		return res, errHeader
	}
	header[0] = strings.TrimPrefix(header[0], "\ufeff")
	for i, col := range columns {
		if strings.TrimSpace(header[i]) != col {
			return res, errHeader
		}
	}

	batch := make([]T, 0, batchSize)
	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		n, err := store(ctx, batch)
		if err != nil {
			return err
		}
		res.Inserted += n
		batch = batch[:0]
		return nil
	}

	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return res, fmt.Errorf("failed to read CSV: %w", err)
		}
		if blank(record) {
			continue
		}
		line, _ := reader.FieldPos(0)
		if len(record) != len(columns) {
			return res, fmt.Errorf("line %d: expected %d fields, got %d", line, len(columns), len(record))
		}
		for i := range record {
			record[i] = strings.TrimSpace(record[i])
		}
		item, err := parse(record)
		if err != nil {
			return res, fmt.Errorf("line %d: %w", line, err)
		}

		batch = append(batch, item)
		res.Read++
		if len(batch) == batchSize {
			if err := flush(); err != nil {
				return res, err
			}
		}
	}
	return res, flush()
}

func blank(record []string) bool {
	for _, f := range record {
		if strings.TrimSpace(f) != "" {
			return false
		}
	}
	return true
}
