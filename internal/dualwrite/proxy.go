package dualwrite

import (
	"fmt"
	"reflect"
	"sync"
	"sync/atomic"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/tener/recruit-core/internal/domain"
	"github.com/tener/recruit-core/internal/platform/logger"
)

// Status is the best-effort accounting surface of the proxy.
type Status struct {
	Enabled       bool   `json:"enabled"`
	Strict        bool   `json:"strict"`
	MirrorSuccess int64  `json:"mirror_success"`
	MirrorErrors  int64  `json:"mirror_errors"`
	LastError     string `json:"last_error,omitempty"`
}

// trackedTables limits mirroring to the domain schema; anything else
// written through the primary handle is left alone.
var trackedTables = map[string]bool{
	domain.Job{}.TableName():                  true,
	domain.Candidate{}.TableName():            true,
	domain.Match{}.TableName():                true,
	domain.Conversation{}.TableName():         true,
	domain.Message{}.TableName():              true,
	domain.PreResumeSession{}.TableName():     true,
	domain.PreResumeEvent{}.TableName():       true,
	domain.AgentAssessment{}.TableName():      true,
	domain.SenderAccount{}.TableName():        true,
	domain.OutboundAction{}.TableName():       true,
	domain.AccountDayCounter{}.TableName():    true,
	domain.AccountWeekCounter{}.TableName():   true,
	domain.JobAccountAssignment{}.TableName(): true,
	domain.OperationLog{}.TableName():         true,
	domain.CandidateSignal{}.TableName():      true,
	domain.JobStepProgress{}.TableName():      true,
	domain.IdempotencyRecord{}.TableName():    true,
}

// Proxy mirrors every tracked write on the primary into a secondary
// store. It installs as GORM callbacks after create/update/delete, so
// every write path — repos, raw Model().Updates, upserts — is
// covered without wrapping each repository method.
//
// The mirror never sees the caller's input struct: the proxy re-reads
// the just-written rows from the primary first, so the mirror
// observes post-write state including defaulted fields.
type Proxy struct {
	log     *logger.Logger
	primary *gorm.DB
	mirror  *gorm.DB

	strict atomic.Bool

	mu            sync.Mutex
	mirrorSuccess int64
	mirrorErrors  int64
	lastError     string
}

func NewProxy(log *logger.Logger, primary, mirror *gorm.DB, strict bool) *Proxy {
	p := &Proxy{log: log.With("service", "DualWriteProxy"), primary: primary, mirror: mirror}
	p.strict.Store(strict)
	return p
}

// Install registers the mirroring callbacks on the primary handle.
func (p *Proxy) Install() error {
	if p.mirror == nil {
		return fmt.Errorf("dualwrite: no mirror configured")
	}
	if err := p.primary.Callback().Create().After("gorm:create").Register("dualwrite:create", p.afterWrite); err != nil {
		return err
	}
	if err := p.primary.Callback().Update().After("gorm:update").Register("dualwrite:update", p.afterWrite); err != nil {
		return err
	}
	return p.primary.Callback().Delete().After("gorm:delete").Register("dualwrite:delete", p.afterDelete)
}

// SetStrict toggles strict mode at runtime. In strict mode a mirror
// failure is added to the originating statement's error, aborting the
// caller.
func (p *Proxy) SetStrict(strict bool) { p.strict.Store(strict) }

func (p *Proxy) Strict() bool { return p.strict.Load() }

func (p *Proxy) Status() Status {
	p.mu.Lock()
	defer p.mu.Unlock()
	return Status{
		Enabled:       p.mirror != nil,
		Strict:        p.strict.Load(),
		MirrorSuccess: p.mirrorSuccess,
		MirrorErrors:  p.mirrorErrors,
		LastError:     p.lastError,
	}
}

func (p *Proxy) afterWrite(db *gorm.DB) {
	if db.Error != nil || db.Statement.Schema == nil || !trackedTables[db.Statement.Table] {
		return
	}
	fresh, err := p.readBack(db)
	if err != nil {
		p.recordMirror(db, fmt.Errorf("read back %s: %w", db.Statement.Table, err))
		return
	}
	if fresh == nil {
		return
	}
	err = p.mirror.Session(&gorm.Session{NewDB: true}).
		Table(db.Statement.Table).
		Clauses(clause.OnConflict{UpdateAll: true}).
		Create(fresh).Error
	p.recordMirror(db, err)
}

func (p *Proxy) afterDelete(db *gorm.DB) {
	if db.Error != nil || db.Statement.Schema == nil || !trackedTables[db.Statement.Table] {
		return
	}
	tx := p.mirror.Session(&gorm.Session{NewDB: true}).Table(db.Statement.Table)
	where, ok := whereClause(db)
	if !ok {
		return
	}
	err := tx.Clauses(where).Delete(reflect.New(db.Statement.Schema.ModelType).Interface()).Error
	p.recordMirror(db, err)
}

// readBack loads the post-write rows from the primary: by primary key
// when the statement's reflect value carries one, else by replaying
// the statement's WHERE clause. It runs on the statement's own
// session so it observes rows inside the still-open transaction.
func (p *Proxy) readBack(db *gorm.DB) (any, error) {
	stmt := db.Statement
	dest := reflect.New(reflect.SliceOf(stmt.Schema.ModelType)).Interface()
	tx := db.Session(&gorm.Session{NewDB: true, SkipHooks: true}).Table(stmt.Table)

	if pks, ok := primaryKeyValues(db); ok && len(pks) > 0 {
		pkColumn := stmt.Schema.PrioritizedPrimaryField.DBName
		if err := tx.Where(fmt.Sprintf("%s IN ?", pkColumn), pks).Find(dest).Error; err != nil {
			return nil, err
		}
	} else if where, ok := whereClause(db); ok {
		if err := tx.Clauses(where).Find(dest).Error; err != nil {
			return nil, err
		}
	} else {
		return nil, nil
	}

	rows := reflect.ValueOf(dest).Elem()
	if rows.Len() == 0 {
		return nil, nil
	}
	return rows.Interface(), nil
}

// primaryKeyValues extracts the PK values out of the statement's
// reflect value (struct or slice) when they are populated.
func primaryKeyValues(db *gorm.DB) ([]any, bool) {
	stmt := db.Statement
	field := stmt.Schema.PrioritizedPrimaryField
	if field == nil {
		return nil, false
	}
	collect := func(rv reflect.Value) (any, bool) {
		if rv.Kind() != reflect.Struct {
			return nil, false
		}
		v, zero := field.ValueOf(stmt.Context, rv)
		if zero {
			return nil, false
		}
		return v, true
	}

	rv := stmt.ReflectValue
	switch rv.Kind() {
	case reflect.Slice, reflect.Array:
		out := make([]any, 0, rv.Len())
		for i := 0; i < rv.Len(); i++ {
			el := reflect.Indirect(rv.Index(i))
			v, ok := collect(el)
			if !ok {
				return nil, false
			}
			out = append(out, v)
		}
		return out, len(out) > 0
	case reflect.Struct:
		v, ok := collect(rv)
		if !ok {
			return nil, false
		}
		return []any{v}, true
	default:
		return nil, false
	}
}

func whereClause(db *gorm.DB) (clause.Where, bool) {
	c, ok := db.Statement.Clauses["WHERE"]
	if !ok {
		return clause.Where{}, false
	}
	where, ok := c.Expression.(clause.Where)
	if !ok || len(where.Exprs) == 0 {
		return clause.Where{}, false
	}
	return where, true
}

func (p *Proxy) recordMirror(db *gorm.DB, err error) {
	p.mu.Lock()
	if err != nil {
		p.mirrorErrors++
		p.lastError = err.Error()
	} else {
		p.mirrorSuccess++
	}
	p.mu.Unlock()

	if err == nil {
		return
	}
	if p.strict.Load() {
		_ = db.AddError(fmt.Errorf("dualwrite mirror: %w", err))
		return
	}
	p.log.Warn("mirror write failed", "table", db.Statement.Table, "error", err)
}
