package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/LilVoxy/sakila_analytics/ETL/load"
	"github.com/LilVoxy/sakila_analytics/ETL/metrics"
	"github.com/LilVoxy/sakila_analytics/ETL/models"
	"github.com/LilVoxy/sakila_analytics/ETL/transform"
	"github.com/LilVoxy/sakila_analytics/ETL/utils"
)

// run holds the state of one execution of the phase sequence
type run struct {
	sync   *Synchronizer
	logger *utils.ETLLogger
	mode   Mode
	start  time.Time
	report *models.RunReport

	loader     *load.Loader
	watermarks *load.WatermarkTracker
	keys       *models.KeyMaps

	// watermark to commit per table
	marks map[string]time.Time

	// facts extracted during the calendar phase
	rentals     []models.Rental
	payments    []models.Payment
	rentalMark  time.Time
	paymentMark time.Time
}

func (r *run) execute(ctx context.Context) (err error) {
	tx, err := r.sync.target.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			if rbErr := tx.Rollback(); rbErr != nil {
				r.logger.Error("Rollback failed: %v", rbErr)
			}
		}
	}()

	r.loader = load.NewLoader(tx, r.logger)
	r.watermarks = load.NewWatermarkTracker(tx)

	if r.mode == FullLoad {
		if err := r.loader.EnsureEmpty(ctx); err != nil {
			return err
		}
	}

	r.keys, err = load.BuildKeyMaps(ctx, tx)
	if err != nil {
		return err
	}

	phases := []struct {
		name string
		fn   func(context.Context) error
	}{
		{"dimensions", r.syncDimensions},
		{"calendar", r.syncCalendar},
		{"key-map refresh", func(ctx context.Context) error {
			keys, err := load.BuildKeyMaps(ctx, tx)
			if err != nil {
				return err
			}
			r.keys = keys
			return nil
		}},
		{"bridges", r.syncBridges},
		{"facts", r.syncFacts},
		{"watermarks", r.commitWatermarks},
	}
	for _, phase := range phases {
		phaseStart := time.Now()
		r.logger.LogPhaseStart(phase.name)
		if err := phase.fn(ctx); err != nil {
			return fmt.Errorf("%s phase: %w", phase.name, err)
		}
		r.logger.LogPhaseComplete(phase.name, time.Since(phaseStart))
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// window returns the lower extraction bound of a table and the watermark to
// store for it. A full load extracts everything and marks the run start; an
// incremental run marks the wall-clock time of the extraction.
func (r *run) window(ctx context.Context, table string) (since, mark time.Time, err error) {
	if r.mode == FullLoad {
		return load.Epoch, r.start, nil
	}
	since, err = r.watermarks.Get(ctx, table)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	return since, r.sync.now().UTC(), nil
}

func (r *run) record(stats models.TableStats, dropped []models.DroppedRow) {
	stats.Dropped = len(dropped)
	r.marks[stats.Table] = stats.Watermark
	r.report.Tables = append(r.report.Tables, stats)
	r.report.Dropped = append(r.report.Dropped, dropped...)

	for _, d := range dropped {
		r.logger.Debug("Dropped %s %s: %s", d.Table, d.NaturalKey, d.Reason)
	}
	if len(dropped) > 0 {
		r.logger.Warn("Dropped %d %s rows with unresolved references", len(dropped), stats.Table)
	}

	r.logger.LogTableSynced(stats.Table, stats.Extracted, stats.Inserted, stats.Updated, stats.Dropped)
}

// announce exports the table counters of a committed run. Nothing is
// exported for a run that rolled back.
func (r *run) announce() {
	now := r.sync.now().UTC()
	for i := range r.report.Tables {
		stats := r.report.Tables[i]
		metrics.RecordTable(stats.Table, stats.Inserted, stats.Updated, stats.Dropped)
		metrics.RecordWatermark(stats.Table, stats.Watermark)
		r.sync.events.Publish(Event{
			Type:  EventTableSynced,
			RunID: r.report.RunID,
			Mode:  r.mode,
			Time:  now,
			Table: &stats,
		})
	}
}

// syncDimension extracts, conforms and upserts one dimension table
func syncDimension[S, D any](ctx context.Context, r *run, table string,
	extract func(context.Context, time.Time) ([]S, error),
	conform func([]S, models.KeyMap) []D,
	upsert func(context.Context, []D, models.KeyMap) (load.Counts, error),
	keys models.KeyMap) error {

	since, mark, err := r.window(ctx, table)
	if err != nil {
		return err
	}
	rows, err := extract(ctx, since)
	if err != nil {
		return err
	}
	counts, err := upsert(ctx, conform(rows, keys), keys)
	if err != nil {
		return err
	}

	r.record(models.TableStats{
		Table:     table,
		Extracted: len(rows),
		Inserted:  counts.Inserted,
		Updated:   counts.Updated,
		Watermark: mark,
	}, nil)
	return nil
}

func (r *run) syncDimensions(ctx context.Context) error {
	src := r.sync.source

	if err := syncDimension(ctx, r, load.WatermarkActor,
		src.Actors, transform.ConformActors, r.loader.UpsertActors, r.keys.Actors); err != nil {
		return err
	}
	if err := syncDimension(ctx, r, load.WatermarkCategory,
		src.Categories, transform.ConformCategories, r.loader.UpsertCategories, r.keys.Categories); err != nil {
		return err
	}
	if err := syncDimension(ctx, r, load.WatermarkStore,
		src.Stores, transform.ConformStores, r.loader.UpsertStores, r.keys.Stores); err != nil {
		return err
	}
	if err := syncDimension(ctx, r, load.WatermarkCustomer,
		src.Customers, transform.ConformCustomers, r.loader.UpsertCustomers, r.keys.Customers); err != nil {
		return err
	}
	return syncDimension(ctx, r, load.WatermarkFilm,
		src.Films, transform.ConformFilms, r.loader.UpsertFilms, r.keys.Films)
}

// syncCalendar extracts the rentals and payments of the fact phase and
// persists every date they reference
func (r *run) syncCalendar(ctx context.Context) error {
	since, mark, err := r.window(ctx, load.WatermarkFactRental)
	if err != nil {
		return err
	}
	if r.rentals, err = r.sync.source.Rentals(ctx, since); err != nil {
		return err
	}
	r.rentalMark = mark

	if since, mark, err = r.window(ctx, load.WatermarkFactPayment); err != nil {
		return err
	}
	if r.payments, err = r.sync.source.Payments(ctx, since); err != nil {
		return err
	}
	r.paymentMark = mark

	_, mark, err = r.window(ctx, load.WatermarkDate)
	if err != nil {
		return err
	}
	dates := transform.CollectDates(r.rentals, r.payments)
	inserted, err := r.loader.InsertDates(ctx, dates.Dates(), r.keys.Dates)
	if err != nil {
		return err
	}

	r.record(models.TableStats{
		Table:     load.WatermarkDate,
		Extracted: dates.Len(),
		Inserted:  inserted,
		Watermark: mark,
	}, nil)
	return nil
}

func (r *run) syncBridges(ctx context.Context) error {
	since, mark, err := r.window(ctx, load.WatermarkBridgeFilmActor)
	if err != nil {
		return err
	}
	filmActors, err := r.sync.source.FilmActors(ctx, since)
	if err != nil {
		return err
	}
	actorLinks, dropped := transform.ComposeFilmActors(filmActors, r.keys)
	inserted, err := r.loader.InsertFilmActors(ctx, actorLinks)
	if err != nil {
		return err
	}
	r.record(models.TableStats{
		Table:     load.WatermarkBridgeFilmActor,
		Extracted: len(filmActors),
		Inserted:  inserted,
		Watermark: mark,
	}, dropped)

	if since, mark, err = r.window(ctx, load.WatermarkBridgeFilmCategory); err != nil {
		return err
	}
	filmCategories, err := r.sync.source.FilmCategories(ctx, since)
	if err != nil {
		return err
	}
	categoryLinks, dropped := transform.ComposeFilmCategories(filmCategories, r.keys)
	if inserted, err = r.loader.InsertFilmCategories(ctx, categoryLinks); err != nil {
		return err
	}
	r.record(models.TableStats{
		Table:     load.WatermarkBridgeFilmCategory,
		Extracted: len(filmCategories),
		Inserted:  inserted,
		Watermark: mark,
	}, dropped)
	return nil
}

func (r *run) syncFacts(ctx context.Context) error {
	rentals, dropped := transform.ComposeRentals(r.rentals, r.keys)
	counts, err := r.loader.UpsertRentals(ctx, rentals, r.keys.Rentals)
	if err != nil {
		return err
	}
	r.record(models.TableStats{
		Table:     load.WatermarkFactRental,
		Extracted: len(r.rentals),
		Inserted:  counts.Inserted,
		Updated:   counts.Updated,
		Watermark: r.rentalMark,
	}, dropped)

	payments, dropped := transform.ComposePayments(r.payments, r.keys)
	if counts, err = r.loader.UpsertPayments(ctx, payments, r.keys.Payments); err != nil {
		return err
	}
	r.record(models.TableStats{
		Table:     load.WatermarkFactPayment,
		Extracted: len(r.payments),
		Inserted:  counts.Inserted,
		Updated:   counts.Updated,
		Watermark: r.paymentMark,
	}, dropped)
	return nil
}

func (r *run) commitWatermarks(ctx context.Context) error {
	for _, table := range load.WatermarkTables {
		mark, ok := r.marks[table]
		if !ok {
			return fmt.Errorf("no watermark recorded for %s", table)
		}
		if err := r.watermarks.Set(ctx, table, mark); err != nil {
			return err
		}
	}
	return nil
}
