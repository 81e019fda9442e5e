package ingest

import (
	"context"
	"database/sql"

	"golang.org/x/sync/errgroup"

	"github.com/pletcher/kodon/pkg/db"
	"github.com/pletcher/kodon/pkg/docfile"
)

// DocumentStatus pairs one discovered document file with its presence
// in the store. Err is set when the file itself cannot be decoded.
type DocumentStatus struct {
	Path   string
	URN    string
	Loaded bool
	Err    error
}

// Status reports, for every document file under dir, whether its
// document is already committed. Files are checked concurrently;
// results keep discovery order. Undecodable files get their Err set
// rather than failing the whole scan.
func Status(ctx context.Context, conn *sql.DB, dir string, workers int) ([]DocumentStatus, error) {
	paths, err := docfile.Discover(dir)
	if err != nil {
		return nil, err
	}
	if workers <= 0 {
		workers = 4
	}

	statuses := make([]DocumentStatus, len(paths))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, path := range paths {
		i, path := i, path
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			st := DocumentStatus{Path: path}
			f, err := docfile.Load(path)
			if err != nil {
				st.Err = err
				statuses[i] = st
				return nil
			}
			st.URN = f.URN
			loaded, err := db.DocumentExists(conn, f.URN)
			if err != nil {
				return err
			}
			st.Loaded = loaded
			statuses[i] = st
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return statuses, nil
}
