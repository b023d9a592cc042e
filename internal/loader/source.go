package loader

import (
	"context"
	"io"
	"log/slog"
	"os"
	"time"

	apierrors "counterviz/internal/errors"
	"counterviz/internal/files"
	"counterviz/pkg/contracts/domain"
)

// ReportRef identifies one report inside a Source.
type ReportRef struct {
	Key     string    `json:"key"`
	Name    string    `json:"name"`
	Size    int64     `json:"size"`
	ModTime time.Time `json:"mod_time"`
}

// Source is a library of report files.
type Source interface {
	// Name describes the source in logs, e.g. a directory or bucket URL.
	Name() string
	List(ctx context.Context) ([]ReportRef, error)
	Open(ctx context.Context, ref ReportRef) (io.ReadCloser, error)
}

// DirSource serves reports from a local directory.
type DirSource struct {
	dir       string
	discovery *files.Discovery
}

// NewDirSource creates a source over the reports directly inside dir.
func NewDirSource(dir string) *DirSource {
	return &DirSource{dir: dir, discovery: files.NewDiscovery("")}
}

// Name returns the directory.
func (s *DirSource) Name() string { return s.dir }

// List returns the supported report files, sorted by name.
func (s *DirSource) List(ctx context.Context) ([]ReportRef, error) {
	found, err := s.discovery.FindReports(s.dir)
	if err != nil {
		return nil, apierrors.NewStorageError("cannot list report directory", err).
			WithContext("dir", s.dir)
	}
	refs := make([]ReportRef, 0, len(found))
	for _, f := range found {
		refs = append(refs, ReportRef{Key: f.Path, Name: f.Name, Size: f.Size, ModTime: f.ModTime})
	}
	return refs, nil
}

// Open opens the file behind ref.
func (s *DirSource) Open(ctx context.Context, ref ReportRef) (io.ReadCloser, error) {
	f, err := os.Open(ref.Key)
	if err != nil {
		return nil, apierrors.NewStorageError("cannot open report", err).WithContext("path", ref.Key)
	}
	return f, nil
}

// LoadAll reads and parses every report of src. A report that cannot be read
// or parsed is rejected without failing the others; only listing errors and
// cancellation fail the call.
func (l *Loader) LoadAll(ctx context.Context, src Source) ([]domain.TabularRecord, []domain.RejectedFile, error) {
	refs, err := src.List(ctx)
	if err != nil {
		return nil, nil, err
	}
	l.logger.InfoContext(ctx, "loading report library",
		slog.String("source", src.Name()),
		slog.Int("reports", len(refs)))

	return l.collect(ctx, len(refs), func(i int) (string, domain.TabularRecord, error) {
		ref := refs[i]
		body, err := src.Open(ctx, ref)
		if err != nil {
			return ref.Name, domain.TabularRecord{}, err
		}
		defer body.Close()
		rec, err := l.Parse(ref.Name, body)
		return ref.Name, rec, err
	})
}
