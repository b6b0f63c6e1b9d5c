// Package service is the operation surface shared by the HTTP API and the
// CLI. Every call that touches the database runs inside the session lock.
package service

import (
	"context"
	"time"

	"github.com/koustreak/dbpilot/internal/crud"
	"github.com/koustreak/dbpilot/internal/database"
	"github.com/koustreak/dbpilot/internal/errs"
	"github.com/koustreak/dbpilot/internal/export"
	"github.com/koustreak/dbpilot/internal/filestore"
	"github.com/koustreak/dbpilot/internal/history"
	"github.com/koustreak/dbpilot/internal/logger"
	"github.com/koustreak/dbpilot/internal/session"
)

// Service binds the session manager to the catalog, crud and export
// operations.
type Service struct {
	sessions *session.Manager
	exporter *export.Exporter
	history  *history.Store
	log      *logger.Logger
	now      func() time.Time
}

// Option configures a Service.
type Option func(*Service)

// WithHistory records every raw SQL statement in h.
func WithHistory(h *history.Store) Option {
	return func(s *Service) { s.history = h }
}

// New returns a Service. A nil exporter disables exports.
func New(sessions *session.Manager, exporter *export.Exporter, log *logger.Logger, opts ...Option) *Service {
	if log == nil {
		log = logger.Nop()
	}
	s := &Service{sessions: sessions, exporter: exporter, log: log, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Sessions exposes the underlying manager for connect and disconnect.
func (s *Service) Sessions() *session.Manager {
	return s.sessions
}

// Schemas reads the whole schema graph.
func (s *Service) Schemas(ctx context.Context) (database.SchemaGraph, error) {
	var graph database.SchemaGraph
	err := s.sessions.Do(ctx, func(ctx context.Context, db database.DB) (err error) {
		graph, err = database.InspectGraph(ctx, db)
		return err
	})
	return graph, err
}

// SchemaContext renders the schema graph as the plain-text summary handed
// to the AI assistant.
func (s *Service) SchemaContext(ctx context.Context) (string, error) {
	graph, err := s.Schemas(ctx)
	if err != nil {
		return "", err
	}
	return database.RenderSchemaContext(graph), nil
}

// TableDetail returns columns, indexes, constraints and foreign keys of one
// table. A table without columns is reported as NotFound.
func (s *Service) TableDetail(ctx context.Context, schema, table string) (*database.TableDetail, error) {
	if err := validateRef(schema, table); err != nil {
		return nil, err
	}

	var detail *database.TableDetail
	err := s.sessions.Do(ctx, func(ctx context.Context, db database.DB) (err error) {
		detail, err = database.InspectTable(ctx, db, schema, table)
		return err
	})
	if err != nil {
		return nil, err
	}
	if len(detail.Columns) == 0 {
		return nil, errs.Newf(errs.ErrKindNotFound, "table %s.%s not found", schema, table)
	}
	return detail, nil
}

// ForeignKeys lists every relationship whose source table is in schema.
func (s *Service) ForeignKeys(ctx context.Context, schema string) ([]database.ForeignKey, error) {
	if _, err := database.ValidateIdentifier(schema); err != nil {
		return nil, err
	}

	var fks []database.ForeignKey
	err := s.sessions.Do(ctx, func(ctx context.Context, db database.DB) (err error) {
		fks, err = db.ListForeignKeys(ctx, schema, "")
		return err
	})
	return fks, err
}

// Page reads one page of table rows.
func (s *Service) Page(ctx context.Context, req database.TableDataRequest) (*database.TableData, error) {
	var data *database.TableData
	err := s.sessions.Do(ctx, func(ctx context.Context, db database.DB) (err error) {
		data, err = crud.Page(ctx, db, req)
		return err
	})
	return data, err
}

// Count returns the number of rows in a table.
func (s *Service) Count(ctx context.Context, schema, table string) (int64, error) {
	var n int64
	err := s.sessions.Do(ctx, func(ctx context.Context, db database.DB) (err error) {
		n, err = crud.Count(ctx, db, schema, table)
		return err
	})
	return n, err
}

// Insert adds rows and returns how many were written.
func (s *Service) Insert(ctx context.Context, schema, table string, rows []database.RowInsert) (int, error) {
	var n int
	err := s.sessions.Do(ctx, func(ctx context.Context, db database.DB) (err error) {
		n, err = crud.Insert(ctx, db, schema, table, rows)
		return err
	})
	s.logWrite("insert", schema, table, int64(n), err)
	return n, err
}

// Update edits cells and returns the affected-row count.
func (s *Service) Update(ctx context.Context, schema, table string, updates []database.RowUpdate) (int64, error) {
	var n int64
	err := s.sessions.Do(ctx, func(ctx context.Context, db database.DB) (err error) {
		n, err = crud.Update(ctx, db, schema, table, updates)
		return err
	})
	s.logWrite("update", schema, table, n, err)
	return n, err
}

// Delete removes rows and returns the affected-row count.
func (s *Service) Delete(ctx context.Context, schema, table string, deletes []database.RowDelete) (int64, error) {
	var n int64
	err := s.sessions.Do(ctx, func(ctx context.Context, db database.DB) (err error) {
		n, err = crud.Delete(ctx, db, schema, table, deletes)
		return err
	})
	s.logWrite("delete", schema, table, n, err)
	return n, err
}

// Execute runs a raw SQL statement and records it in the query history.
// Statements refused before reaching the server are not recorded.
func (s *Service) Execute(ctx context.Context, sql string) (*database.QueryResult, error) {
	var res *database.QueryResult
	err := s.sessions.Do(ctx, func(ctx context.Context, db database.DB) (err error) {
		res, err = crud.Execute(ctx, db, sql)
		return err
	})
	if err == nil || errs.IsDatabase(err) || errs.IsTimeout(err) {
		s.recordQuery(sql, res, err)
	}
	return res, err
}

func (s *Service) recordQuery(sql string, res *database.QueryResult, err error) {
	if s.history == nil {
		return
	}
	item := history.NewItem(sql, s.now())
	if err != nil {
		msg := err.Error()
		item.Error = &msg
	} else {
		rows, ms := res.RowCount, res.ExecutionTimeMs
		item.RowCount, item.ExecutionTimeMs = &rows, &ms
	}
	if herr := s.history.Append(item); herr != nil {
		s.log.ErrorWith("recording query history failed", herr, nil)
	}
}

// History returns the saved queries, newest first.
func (s *Service) History() ([]history.Item, error) {
	if s.history == nil {
		return []history.Item{}, nil
	}
	return s.history.Load()
}

// SaveHistory replaces the saved queries.
func (s *Service) SaveHistory(items []history.Item) error {
	if s.history == nil {
		return errs.InvalidConfig("query history is not configured")
	}
	return s.history.Save(items)
}

// Export reads one page and stores it in the export store. The upload
// happens after the session lock is released.
func (s *Service) Export(ctx context.Context, req database.TableDataRequest, f export.Format) (*export.Result, error) {
	if s.exporter == nil {
		return nil, errs.InvalidConfig("export storage is not configured")
	}
	data, err := s.Page(ctx, req)
	if err != nil {
		return nil, err
	}

	res, err := s.exporter.Export(ctx, req.Schema, req.Table, f, data.Export())
	if err != nil {
		s.log.ErrorWith("export failed", err, map[string]any{"schema": req.Schema, "table": req.Table})
		return nil, err
	}
	s.log.InfoWith("exported", map[string]any{
		"key":  res.Object.Key,
		"rows": len(data.Rows),
	})
	return res, nil
}

// Exports lists stored exports, newest first.
func (s *Service) Exports(ctx context.Context) ([]filestore.ObjectInfo, error) {
	if s.exporter == nil {
		return nil, errs.InvalidConfig("export storage is not configured")
	}
	return s.exporter.List(ctx)
}

// OpenExport streams one stored export by name. The caller closes the
// returned object.
func (s *Service) OpenExport(ctx context.Context, name string) (filestore.Object, *filestore.ObjectInfo, error) {
	if s.exporter == nil {
		return nil, nil, errs.InvalidConfig("export storage is not configured")
	}
	return s.exporter.Open(ctx, name)
}

func (s *Service) logWrite(op, schema, table string, n int64, err error) {
	fields := map[string]any{"op": op, "schema": schema, "table": table, "affected": n}
	if err != nil {
		s.log.ErrorWith("row write failed", err, fields)
		return
	}
	s.log.InfoWith("rows written", fields)
}

func validateRef(schema, table string) error {
	if _, err := database.ValidateIdentifier(schema); err != nil {
		return err
	}
	_, err := database.ValidateIdentifier(table)
	return err
}
