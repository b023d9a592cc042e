package loader

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"
	"golang.org/x/sync/errgroup"

	apierrors "counterviz/internal/errors"
	"counterviz/internal/files"
	"counterviz/internal/infrastructure"
	"counterviz/pkg/contracts/domain"
)

// DefaultConcurrency bounds the number of reports parsed at once.
const DefaultConcurrency = 4

// Options configures a Loader.
type Options struct {
	HeaderRows  int
	Concurrency int
}

// Loader parses report files into tables.
type Loader struct {
	opts   Options
	logger *slog.Logger
}

// NewLoader creates a loader. A nil logger uses the global logger.
func NewLoader(opts Options, logger *slog.Logger) *Loader {
	if opts.Concurrency <= 0 {
		opts.Concurrency = DefaultConcurrency
	}
	if opts.HeaderRows < 0 {
		opts.HeaderRows = 0
	}
	return &Loader{opts: opts, logger: infrastructure.WithComponent(logger, "loader")}
}

// Parse reads one report. The format is taken from the extension of name,
// which also becomes the record name.
func (l *Loader) Parse(name string, r io.Reader) (domain.TabularRecord, error) {
	format, ok := files.FormatOf(name)
	if !ok {
		return domain.TabularRecord{}, apierrors.NewUnsupportedFormatError(filepath.Ext(name)).
			WithContext("report", name)
	}

	var (
		rec domain.TabularRecord
		err error
	)
	switch format {
	case files.FormatCSV:
		rec, err = l.parseDelimited(name, r, ',')
	case files.FormatTSV:
		rec, err = l.parseDelimited(name, r, '\t')
	case files.FormatXLSX:
		rec, err = l.parseWorkbook(name, r)
	}
	if err != nil {
		var appErr *apierrors.AppError
		if errors.As(err, &appErr) {
			return domain.TabularRecord{}, err
		}
		return domain.TabularRecord{}, apierrors.NewParsingError(fmt.Sprintf("cannot read %s", name), err).
			WithContext("report", name)
	}

	l.logger.Debug("report parsed",
		slog.String("report", name),
		slog.String("format", string(format)),
		slog.Int("columns", len(rec.Columns)),
		slog.Int("rows", len(rec.Rows)))
	return rec, nil
}

// ParseFile reads the report at path.
func (l *Loader) ParseFile(path string) (domain.TabularRecord, error) {
	f, err := os.Open(path)
	if err != nil {
		return domain.TabularRecord{}, apierrors.NewStorageError("cannot open report", err).
			WithContext("path", path)
	}
	defer f.Close()
	return l.Parse(filepath.Base(path), f)
}

func (l *Loader) parseDelimited(name string, r io.Reader, comma rune) (domain.TabularRecord, error) {
	cr := csv.NewReader(r)
	cr.Comma = comma
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	rows, err := cr.ReadAll()
	if err != nil {
		return domain.TabularRecord{}, err
	}
	return buildRecord(name, rows, l.opts.HeaderRows, textCell)
}

func (l *Loader) parseWorkbook(name string, r io.Reader) (domain.TabularRecord, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return domain.TabularRecord{}, err
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return domain.TabularRecord{}, fmt.Errorf("workbook has no sheets")
	}

	// Raw values keep counts numeric and date headers as serial numbers.
	rows, err := f.GetRows(sheets[0], excelize.Options{RawCellValue: true})
	if err != nil {
		return domain.TabularRecord{}, err
	}
	return buildRecord(name, rows, l.opts.HeaderRows, rawValueCell)
}

// Input is a named report body, such as one multipart upload.
type Input struct {
	Name string
	Data []byte
}

// ParseAll parses inputs concurrently. Records keep input order; inputs that
// fail are returned as rejections and do not stop the batch.
func (l *Loader) ParseAll(ctx context.Context, inputs []Input) ([]domain.TabularRecord, []domain.RejectedFile, error) {
	return l.collect(ctx, len(inputs), func(i int) (string, domain.TabularRecord, error) {
		rec, err := l.Parse(inputs[i].Name, bytes.NewReader(inputs[i].Data))
		return inputs[i].Name, rec, err
	})
}

// LoadFiles parses the files at paths concurrently with the same rules as ParseAll.
func (l *Loader) LoadFiles(ctx context.Context, paths []string) ([]domain.TabularRecord, []domain.RejectedFile, error) {
	return l.collect(ctx, len(paths), func(i int) (string, domain.TabularRecord, error) {
		rec, err := l.ParseFile(paths[i])
		return filepath.Base(paths[i]), rec, err
	})
}

func (l *Loader) collect(ctx context.Context, n int, parse func(i int) (string, domain.TabularRecord, error)) ([]domain.TabularRecord, []domain.RejectedFile, error) {
	type result struct {
		name string
		rec  domain.TabularRecord
		err  error
	}
	results := make([]result, n)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(l.opts.Concurrency)
	for i := 0; i < n; i++ {
		i := i
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			name, rec, err := parse(i)
			results[i] = result{name: name, rec: rec, err: err}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}

	var (
		records  []domain.TabularRecord
		rejected []domain.RejectedFile
	)
	for _, res := range results {
		if res.err != nil {
			l.logger.WarnContext(ctx, "report rejected",
				slog.String("report", res.name),
				slog.String("error", res.err.Error()))
			rejected = append(rejected, Rejection(res.name, res.err))
			continue
		}
		records = append(records, res.rec)
	}
	return records, rejected, nil
}

// Rejection describes a report that could not be loaded.
func Rejection(name string, err error) domain.RejectedFile {
	kind := "parsing"
	var appErr *apierrors.AppError
	if errors.As(err, &appErr) {
		kind = strings.ToLower(string(appErr.Type))
	}
	return domain.RejectedFile{Name: name, Kind: kind, Reason: err.Error()}
}
