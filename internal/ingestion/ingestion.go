package ingestion

import (
	"context"
	"database/sql"
	"fmt"
	"path/filepath"
	"runtime"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/guttosm/eftpulse/internal/domain/models"
	"github.com/guttosm/eftpulse/internal/logger"
	"github.com/guttosm/eftpulse/internal/storage"
)

const maxParallelFiles = 4

// repoCtor is an indirection for creating the repository; tests can override this.
var repoCtor = func(db *sql.DB, table string) storage.StagingRepository {
	return storage.NewStagingRepository(db, table)
}

// ResolveFiles expands pattern (a path or a glob) into a sorted list of files.
func ResolveFiles(pattern string) ([]string, error) {
	files, err := filepath.Glob(pattern)
	if err != nil {
		return nil, fmt.Errorf("bad data path %q: %w", pattern, err)
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no input files match %q", pattern)
	}
	sort.Strings(files)
	return files, nil
}

// ReadFiles parses every file concurrently and concatenates them into one batch,
// keeping file order. A column counts as present if any file carries it; rows from
// files without it hold nil cells.
func ReadFiles(ctx context.Context, files []string) (models.RawBatch, error) {
	parsed := make([]models.RawBatch, len(files))

	maxParallel := maxParallelFiles
	if c := runtime.NumCPU(); c < maxParallel {
		maxParallel = c
	}

	// errgroup will cancel siblings on first error.
	g, gctx := errgroup.WithContext(ctx)
	sem := make(chan struct{}, maxParallel)

	for i, file := range files {
		idx := i
		f := file
		select {
		case sem <- struct{}{}:
		case <-gctx.Done():
			if err := g.Wait(); err != nil {
				return models.RawBatch{}, err
			}
			return models.RawBatch{}, gctx.Err()
		}

		g.Go(func() error {
			defer func() { <-sem }()
			if err := gctx.Err(); err != nil {
				return err
			}
			start := time.Now()
			b, err := parseFile(f)
			if err != nil {
				logger.L().Error().Str("file", filepath.Base(f)).Err(err).Msg("file failed")
				return fmt.Errorf("file %s: %w", f, err)
			}
			parsed[idx] = b
			logger.L().Info().Int("idx", idx+1).Int("total", len(files)).Str("file", filepath.Base(f)).
				Int("rows", len(b.Rows)).Dur("elapsed", time.Since(start)).Msg("file parsed")
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return models.RawBatch{}, err
	}

	var out models.RawBatch
	present := map[string]bool{}
	for _, b := range parsed {
		for _, c := range b.Columns {
			present[c] = true
		}
		out.Rows = append(out.Rows, b.Rows...)
	}
	for _, c := range models.RawColumns {
		if present[c] {
			out.Columns = append(out.Columns, c)
		}
	}
	return out, nil
}

// IngestToStaging reads the input matching pattern and replaces the staging table with it.
//
// Behavior:
//   - pattern may name one file or a glob (e.g. data/*.csv.zst).
//   - The staging table is truncated and reloaded in a single transaction.
//   - The set of columns the input carried is recorded with the batch.
//
// Returns the staged batch so callers running all stages in-process can log counts.
func IngestToStaging(ctx context.Context, pattern string, repo storage.StagingRepository) (models.RawBatch, error) {
	log := logger.Stage("", models.StageIngest)
	start := time.Now()

	files, err := ResolveFiles(pattern)
	if err != nil {
		return models.RawBatch{}, err
	}
	log.Info().Int("files", len(files)).Str("path", pattern).Msg("ingestion start")

	batch, err := ReadFiles(ctx, files)
	if err != nil {
		return models.RawBatch{}, err
	}
	if err := ctx.Err(); err != nil {
		return models.RawBatch{}, err
	}

	if err := repo.ReplaceBatch(ctx, batch); err != nil {
		log.Error().Err(err).Dur("elapsed", time.Since(start)).Msg("staging failed")
		return models.RawBatch{}, fmt.Errorf("stage batch: %w", err)
	}

	log.Info().
		Int("rows", len(batch.Rows)).
		Strs("columns", batch.Columns).
		Dur("elapsed", time.Since(start)).
		Msg("ingestion done")
	return batch, nil
}

// Run ingests pattern into the staging table of db.
func Run(ctx context.Context, pattern string, db *sql.DB, stagingTable string) (models.RawBatch, error) {
	// use indirection to allow tests to swap repository constructor
	return IngestToStaging(ctx, pattern, repoCtor(db, stagingTable))
}

// Source ingests the input into staging when the pipeline asks for its batch,
// so ingestion failures surface as a failed ingest stage of the run.
type Source struct {
	Pattern string
	Repo    storage.StagingRepository
}

// ReadBatch implements pipeline.BatchSource.
func (s Source) ReadBatch(ctx context.Context) (models.RawBatch, error) {
	return IngestToStaging(ctx, s.Pattern, s.Repo)
}
