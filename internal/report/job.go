package report

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/growthlab/backend/internal/clusters"
	"github.com/growthlab/backend/internal/config"
	"github.com/growthlab/backend/internal/domain"
	"github.com/growthlab/backend/internal/logging"
	"github.com/growthlab/backend/internal/storage"
)

// Sender delivers a rendered report.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// Job compares today's cluster snapshots with yesterday's, sends the report
// and then promotes today's snapshots to yesterday's.
type Job struct {
	store  storage.Store
	sender Sender
	files  config.ReportConfig
}

// NewJob creates a report job. File names come from cfg.
func NewJob(store storage.Store, sender Sender, cfg config.ReportConfig) *Job {
	return &Job{store: store, sender: sender, files: cfg}
}

// snapshot holds the current files exactly as they were read for a report.
type snapshot struct {
	customers []byte
	clusters  []byte
}

// Build reads the snapshots and renders the report without side effects.
func (j *Job) Build(ctx context.Context, now time.Time) (Message, error) {
	msg, _, err := j.build(ctx, now)
	return msg, err
}

func (j *Job) build(ctx context.Context, now time.Time) (Message, snapshot, error) {
	var snap snapshot

	rawCustomers, err := readRequired(ctx, j.store, j.files.CurrentCustomers)
	if err != nil {
		return Message{}, snap, err
	}
	today, err := parse(j.files.CurrentCustomers, rawCustomers, clusters.ReadAssignments)
	if err != nil {
		return Message{}, snap, err
	}
	rawClusters, err := readRequired(ctx, j.store, j.files.CurrentClusters)
	if err != nil {
		return Message{}, snap, err
	}
	current, err := parse(j.files.CurrentClusters, rawClusters, clusters.ReadAggregates)
	if err != nil {
		return Message{}, snap, err
	}
	snap = snapshot{customers: rawCustomers, clusters: rawClusters}

	r := Report{Clusters: current}

	raw, found, err := readRaw(ctx, j.store, j.files.PreviousCustomers)
	if err != nil {
		return Message{}, snap, err
	}
	if found {
		yesterday, err := parse(j.files.PreviousCustomers, raw, clusters.ReadAssignments)
		if err != nil {
			return Message{}, snap, err
		}
		r.Transitions = clusters.Diff(today, yesterday)
		r.Joined, r.Left = clusters.Membership(today, yesterday)
	} else {
		r.FirstRun = true
	}

	raw, found, err = readRaw(ctx, j.store, j.files.PreviousClusters)
	if err != nil {
		return Message{}, snap, err
	}
	if found {
		previous, err := parse(j.files.PreviousClusters, raw, clusters.ReadAggregates)
		if err != nil {
			return Message{}, snap, err
		}
		r.Deltas = clusters.CompareAggregates(current, previous)
		if r.Deltas == nil {
			r.Deltas = []clusters.AggregateDelta{}
		}
	}

	logging.Info().
		Int("customers", len(today)).
		Int("clusters", len(current)).
		Int("transitions", len(r.Transitions)).
		Bool("first_run", r.FirstRun).
		Msg("cluster report built")

	return BuildMessage(r, now), snap, nil
}

// Run builds and sends the report, then promotes the files it reported on to
// the previous snapshots. Nothing is promoted unless both current snapshots
// were read and the report was delivered, so a failed run can be repeated.
func (j *Job) Run(ctx context.Context, now time.Time) error {
	msg, snap, err := j.build(ctx, now)
	if err != nil {
		return err
	}

	if err := j.sender.Send(ctx, msg); err != nil {
		return err
	}
	logging.Info().Msg("cluster report delivered")

	return j.promote(ctx, snap)
}

// promote writes snap over the previous snapshots. When the second write
// fails the first one is put back, so the next run sees either both old files
// or both new ones.
func (j *Job) promote(ctx context.Context, snap snapshot) error {
	backup, existed, err := readRaw(ctx, j.store, j.files.PreviousCustomers)
	if err != nil {
		return fmt.Errorf("report: failed to back up %s: %w", j.files.PreviousCustomers, err)
	}

	if err := j.store.Put(ctx, j.files.PreviousCustomers, bytes.NewReader(snap.customers)); err != nil {
		return fmt.Errorf("report: failed to rotate %s: %w", j.files.PreviousCustomers, err)
	}
	if err := j.store.Put(ctx, j.files.PreviousClusters, bytes.NewReader(snap.clusters)); err != nil {
		err = fmt.Errorf("report: failed to rotate %s: %w", j.files.PreviousClusters, err)
		if rerr := j.restore(context.WithoutCancel(ctx), j.files.PreviousCustomers, backup, existed); rerr != nil {
			logging.Error().Err(rerr).Str("file", j.files.PreviousCustomers).Msg("previous snapshots are inconsistent")
			return errors.Join(err, rerr)
		}
		return err
	}
	return nil
}

func (j *Job) restore(ctx context.Context, name string, data []byte, existed bool) error {
	var err error
	if existed {
		err = j.store.Put(ctx, name, bytes.NewReader(data))
	} else {
		err = j.store.Delete(ctx, name)
	}
	if err != nil {
		return fmt.Errorf("report: failed to restore %s: %w", name, err)
	}
	return nil
}

func readRequired(ctx context.Context, s storage.Store, name string) ([]byte, error) {
	data, found, err := readRaw(ctx, s, name)
	if err == nil && !found {
		err = domain.Unavailable(name, storage.ErrNotExist)
	}
	return data, err
}

func readRaw(ctx context.Context, s storage.Store, name string) ([]byte, bool, error) {
	data, err := storage.ReadAll(ctx, s, name)
	if errors.Is(err, storage.ErrNotExist) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, domain.Unavailable(name, err)
	}
	return data, true, nil
}

func parse[T any](name string, data []byte, read func(io.Reader) (T, error)) (T, error) {
	v, err := read(bytes.NewReader(data))
	if err != nil {
		return v, fmt.Errorf("report: failed to parse %s: %w", name, err)
	}
	return v, nil
}
