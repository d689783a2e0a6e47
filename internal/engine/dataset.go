package engine

import (
	"context"
	"sync/atomic"

	"golang.org/x/sync/singleflight"
)

type loadResult struct {
	snap *Snapshot
	err  error
}

// Dataset owns the tidy table for the life of the process. The file is read at
// most once: the first call to Snapshot loads it, concurrent first callers
// share that load, and every later call returns the same value (or the same
// LoadError) without touching the file again.
//
// The returned table is shared by all readers and must be treated as read-only.
type Dataset struct {
	path   string
	loader func(path string) (*Snapshot, error)

	group  singleflight.Group
	result atomic.Pointer[loadResult]
}

// NewDataset returns a Dataset backed by the CSV at path. Nothing is read yet.
func NewDataset(path string) *Dataset {
	return &Dataset{path: path, loader: LoadFile}
}

// Path returns the input file path.
func (d *Dataset) Path() string { return d.path }

// Ready reports whether a load has finished, successfully or not.
func (d *Dataset) Ready() bool { return d.result.Load() != nil }

// Snapshot returns the loaded snapshot, loading it on first use.
// ctx only bounds the wait; a load in progress is not cancelled.
func (d *Dataset) Snapshot(ctx context.Context) (*Snapshot, error) {
	if r := d.result.Load(); r != nil {
		return r.snap, r.err
	}

	ch := d.group.DoChan("load", func() (any, error) {
		if r := d.result.Load(); r != nil {
			return r, nil
		}
		snap, err := d.loader(d.path)
		r := &loadResult{snap: snap, err: err}
		d.result.Store(r)
		return r, nil
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		r := res.Val.(*loadResult)
		return r.snap, r.err
	}
}

// Table returns the memoized tidy table.
func (d *Dataset) Table(ctx context.Context) (*TidyTable, error) {
	snap, err := d.Snapshot(ctx)
	if err != nil {
		return nil, err
	}
	return snap.Table, nil
}
