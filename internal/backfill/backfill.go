package backfill

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/tener/recruit-core/internal/platform/logger"
)

// TableOrder is the fixed dependency order tables are copied in:
// parents before children.
var TableOrder = []string{
	"jobs",
	"candidates",
	"matches",
	"conversations",
	"messages",
	"pre_resume_sessions",
	"pre_resume_events",
	"agent_assessments",
	"sender_accounts",
	"outbound_actions",
	"account_day_counters",
	"account_week_counters",
	"job_account_assignments",
	"operation_logs",
	"candidate_signals",
	"job_step_progress",
	"idempotency_records",
}

// jsonColumns are the JSON-valued columns coerced through the
// destination's native JSON type.
var jsonColumns = map[string]bool{
	"preferred_languages": true,
	"languages":           true,
	"skills":              true,
	"verification_notes":  true,
	"metadata":            true,
	"meta":                true,
	"details":             true,
	"resume_links":        true,
	"state":               true,
	"output":              true,
	"signal_meta":         true,
	"response":            true,
}

type TableStats struct {
	Read     int    `json:"read"`
	Inserted int    `json:"inserted"`
	Skipped  bool   `json:"skipped,omitempty"`
	Error    string `json:"error,omitempty"`
}

type Options struct {
	BatchSize     int
	TruncateFirst bool
	Tables        []string
}

// Runner copies the embedded store's data into the server-side store
// table-by-table: only columns present on both sides are carried,
// JSON values are coerced, inserts use ON CONFLICT DO
// NOTHING, and server-side sequences are reset after each table.
type Runner struct {
	log    *logger.Logger
	source *gorm.DB
	dest   *gorm.DB
}

func NewRunner(log *logger.Logger, source, dest *gorm.DB) *Runner {
	return &Runner{log: log.With("service", "BackfillRunner"), source: source, dest: dest}
}

func (r *Runner) Run(ctx context.Context, opts Options) (map[string]TableStats, error) {
	if opts.BatchSize <= 0 {
		opts.BatchSize = 500
	}
	tables := TableOrder
	if len(opts.Tables) > 0 {
		tables = filterOrder(opts.Tables)
	}

	out := make(map[string]TableStats, len(tables))
	for _, table := range tables {
		stats := r.copyTable(ctx, table, opts)
		out[table] = stats
		if stats.Error != "" {
			return out, fmt.Errorf("backfill %s: %s", table, stats.Error)
		}
	}
	return out, nil
}

func (r *Runner) copyTable(ctx context.Context, table string, opts Options) TableStats {
	var stats TableStats
	if !r.source.Migrator().HasTable(table) || !r.dest.Migrator().HasTable(table) {
		stats.Skipped = true
		return stats
	}

	cols, err := r.sharedColumns(table)
	if err != nil {
		stats.Error = err.Error()
		return stats
	}
	if len(cols) == 0 {
		stats.Skipped = true
		return stats
	}

	if opts.TruncateFirst {
		if err := r.dest.WithContext(ctx).Exec("DELETE FROM " + table).Error; err != nil {
			stats.Error = err.Error()
			return stats
		}
	}

	offset := 0
	for {
		var rows []map[string]any
		err := r.source.WithContext(ctx).Table(table).
			Select(strings.Join(cols, ", ")).
			Order(orderColumn(cols)).
			Limit(opts.BatchSize).Offset(offset).
			Find(&rows).Error
		if err != nil {
			stats.Error = err.Error()
			return stats
		}
		if len(rows) == 0 {
			break
		}
		stats.Read += len(rows)

		coerced := make([]map[string]any, 0, len(rows))
		for _, row := range rows {
			coerced = append(coerced, coerceRow(row))
		}
		res := r.dest.WithContext(ctx).Table(table).
			Clauses(clause.OnConflict{DoNothing: true}).
			Create(&coerced)
		if res.Error != nil {
			stats.Error = res.Error.Error()
			return stats
		}
		stats.Inserted += int(res.RowsAffected)
		offset += len(rows)
	}

	if err := r.resetSequence(ctx, table); err != nil {
		stats.Error = err.Error()
	}
	return stats
}

// sharedColumns intersects the column sets of both sides for a table.
func (r *Runner) sharedColumns(table string) ([]string, error) {
	src, err := r.source.Migrator().ColumnTypes(table)
	if err != nil {
		return nil, fmt.Errorf("source columns: %w", err)
	}
	dst, err := r.dest.Migrator().ColumnTypes(table)
	if err != nil {
		return nil, fmt.Errorf("dest columns: %w", err)
	}
	have := make(map[string]bool, len(dst))
	for _, c := range dst {
		have[strings.ToLower(c.Name())] = true
	}
	out := make([]string, 0, len(src))
	for _, c := range src {
		name := strings.ToLower(c.Name())
		if have[name] {
			out = append(out, name)
		}
	}
	return out, nil
}

// coerceRow normalizes values crossing the backend boundary: JSON
// columns become json.RawMessage so the destination driver binds them
// as its native JSON type; every other value passes through unchanged.
func coerceRow(row map[string]any) map[string]any {
	out := make(map[string]any, len(row))
	for k, v := range row {
		if jsonColumns[k] {
			switch t := v.(type) {
			case string:
				if t == "" {
					out[k] = nil
					continue
				}
				out[k] = json.RawMessage(t)
			case []byte:
				if len(t) == 0 {
					out[k] = nil
					continue
				}
				out[k] = json.RawMessage(t)
			default:
				out[k] = v
			}
			continue
		}
		out[k] = v
	}
	return out
}

// resetSequence realigns a server-assigned identity sequence with the
// loaded data. Only meaningful on Postgres; the embedded store has no
// sequences to reset.
func (r *Runner) resetSequence(ctx context.Context, table string) error {
	if r.dest.Dialector.Name() != "postgres" {
		return nil
	}
	var hasID int64
	if err := r.dest.WithContext(ctx).Raw(
		"SELECT count(*) FROM information_schema.columns WHERE table_name = ? AND column_name = 'id' AND data_type IN ('integer', 'bigint')",
		table,
	).Scan(&hasID).Error; err != nil {
		return err
	}
	if hasID == 0 {
		return nil
	}
	return r.dest.WithContext(ctx).Exec(fmt.Sprintf(
		"SELECT setval(pg_get_serial_sequence('%s', 'id'), COALESCE((SELECT MAX(id) FROM %s), 1))",
		table, table,
	)).Error
}

func orderColumn(cols []string) string {
	for _, c := range cols {
		if c == "id" {
			return "id"
		}
	}
	return cols[0]
}

func filterOrder(requested []string) []string {
	want := make(map[string]bool, len(requested))
	for _, t := range requested {
		want[strings.ToLower(strings.TrimSpace(t))] = true
	}
	out := make([]string, 0, len(requested))
	for _, t := range TableOrder {
		if want[t] {
			out = append(out, t)
		}
	}
	return out
}
