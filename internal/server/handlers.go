package server

import (
	"context"
	"encoding/json"
	"maps"
	"net/http"
	"slices"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/koustreak/datrigen/internal/database"
	"github.com/koustreak/datrigen/internal/errs"
	"github.com/koustreak/datrigen/internal/logger"
	"github.com/koustreak/datrigen/internal/schema"
	"github.com/koustreak/datrigen/internal/typemap"
)

// Query parameters with a fixed meaning; every other parameter filters a column.
const (
	paramLimit    = "limit"
	paramOffset   = "offset"
	paramOrderBy  = "order_by"
	paramOrderDir = "order_dir"
	paramRefresh  = "refresh"
)

// nullFilter matches rows whose column IS NULL.
const nullFilter = "null"

// schemaList is the body of GET /meta/schemas.
type schemaList struct {
	Schemas []string `json:"schemas"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if s.db != nil {
		ctx, cancel := s.queryContext(r.Context())
		defer cancel()
		if err := s.db.Ping(ctx); err != nil {
			s.writeError(w, r, err)
			return
		}
	}
	s.writeJSON(w, r, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleListSchemas(w http.ResponseWriter, r *http.Request) {
	names, err := s.reader.ListSchemas(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if names == nil {
		names = []string{}
	}
	s.writeJSON(w, r, http.StatusOK, schemaList{Schemas: names})
}

func (s *Server) handleInspectSchema(w http.ResponseWriter, r *http.Request) {
	refresh, err := parseBool(r.URL.Query().Get(paramRefresh))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	info, err := s.schema(r.Context(), chi.URLParam(r, "schema"), refresh)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, r, http.StatusOK, info)
}

func (s *Server) handleListRows(w http.ResponseWriter, r *http.Request) {
	t, err := s.relation(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	b, err := s.listQuery(t, r.URL.Query())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	rows, err := s.query(r.Context(), b)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, r, http.StatusOK, rows)
}

func (s *Server) handleGetRow(w http.ResponseWriter, r *http.Request) {
	t, err := s.relation(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	pk := t.PrimaryKey()
	if len(pk) != 1 {
		s.writeError(w, r, errs.New(errs.ErrKindInvalidInput,
			t.Schema+"."+t.Name+" has no single-column primary key"))
		return
	}
	col, _ := t.Column(pk[0])
	id, err := filterValue(col, chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	b := database.Select(t.Name, s.dialect()).
		Schema(t.Schema).
		Columns(columnNames(t)...).
		Where(col.Name, "=", id).
		Limit(1)

	rows, err := s.query(r.Context(), b)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if len(rows) == 0 {
		s.writeError(w, r, errs.New(errs.ErrKindNotFound, "row not found"))
		return
	}
	s.writeJSON(w, r, http.StatusOK, rows[0])
}

// relation resolves the {schema}/{table} route parameters to a table or view.
func (s *Server) relation(r *http.Request) (*schema.TableInfo, error) {
	if s.db == nil {
		return nil, errs.New(errs.ErrKindConnectionFailed, "no database configured")
	}
	info, err := s.schema(r.Context(), chi.URLParam(r, "schema"), false)
	if err != nil {
		return nil, err
	}
	name := chi.URLParam(r, "table")
	t, ok := info.Relation(name)
	if !ok {
		return nil, errs.New(errs.ErrKindNotFound, "table not found: "+info.Name+"."+name)
	}
	return t, nil
}

// listQuery builds the SELECT for a list request.
func (s *Server) listQuery(t *schema.TableInfo, q map[string][]string) (*database.SelectBuilder, error) {
	get := func(key string) string {
		if v := q[key]; len(v) > 0 {
			return v[0]
		}
		return ""
	}

	limit := s.cfg.DefaultLimit
	if v := get(paramLimit); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > s.cfg.MaxLimit {
			return nil, errs.New(errs.ErrKindInvalidInput,
				"limit must be between 1 and "+strconv.Itoa(s.cfg.MaxLimit))
		}
		limit = n
	}
	offset := 0
	if v := get(paramOffset); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return nil, errs.New(errs.ErrKindInvalidInput, "offset must be a non-negative integer")
		}
		offset = n
	}

	b := database.Select(t.Name, s.dialect()).
		Schema(t.Schema).
		Columns(columnNames(t)...).
		Limit(limit).
		Offset(offset)

	if orderBy := get(paramOrderBy); orderBy != "" {
		if _, ok := t.Column(orderBy); !ok {
			return nil, errs.New(errs.ErrKindInvalidInput, "unknown column in order_by: "+orderBy)
		}
		dir := database.Asc
		switch strings.ToLower(get(paramOrderDir)) {
		case "", "asc":
		case "desc":
			dir = database.Desc
		default:
			return nil, errs.New(errs.ErrKindInvalidInput, "order_dir must be asc or desc")
		}
		b = b.OrderBy(orderBy, dir)
	}

	for _, key := range slices.Sorted(maps.Keys(q)) {
		values := q[key]
		switch key {
		case paramLimit, paramOffset, paramOrderBy, paramOrderDir:
			continue
		}
		col, ok := t.Column(key)
		if !ok {
			return nil, errs.New(errs.ErrKindInvalidInput, "unknown column: "+key)
		}
		if len(values) == 0 {
			continue
		}
		if values[0] == nullFilter {
			b = b.WhereNull(col.Name)
			continue
		}
		v, err := filterValue(col, values[0])
		if err != nil {
			return nil, err
		}
		b = b.Where(col.Name, "=", v)
	}
	return b, nil
}

func (s *Server) query(ctx context.Context, b *database.SelectBuilder) ([]map[string]any, error) {
	sql, args, err := b.Build()
	if err != nil {
		return nil, err
	}

	ctx, cancel := s.queryContext(ctx)
	defer cancel()

	logger.FromContext(ctx).DebugWith("row query", map[string]interface{}{"sql": sql, "args": len(args)})

	rows, err := s.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	return database.ScanRows(rows)
}

func (s *Server) queryContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.cfg.QueryTimeout > 0 {
		return context.WithTimeout(ctx, s.cfg.QueryTimeout)
	}
	return context.WithCancel(ctx)
}

func (s *Server) dialect() database.Dialect {
	return s.db.Dialect()
}

// filterValue converts a query string value to the Go type the column's
// TypeScript mapping implies, so drivers bind it with the right type.
func filterValue(col schema.ColumnInfo, raw string) (any, error) {
	if col.IsEnum {
		return raw, nil
	}
	switch typemap.Map(col.Type) {
	case typemap.Number:
		if n, err := strconv.ParseInt(raw, 10, 64); err == nil {
			return n, nil
		}
		f, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return nil, errs.New(errs.ErrKindInvalidInput, "column "+col.Name+" expects a number")
		}
		return f, nil
	case typemap.Boolean:
		b, err := strconv.ParseBool(raw)
		if err != nil {
			return nil, errs.New(errs.ErrKindInvalidInput, "column "+col.Name+" expects a boolean")
		}
		return b, nil
	default:
		return raw, nil
	}
}

func parseBool(v string) (bool, error) {
	if v == "" {
		return false, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, errs.New(errs.ErrKindInvalidInput, "invalid boolean: "+v)
	}
	return b, nil
}

func columnNames(t *schema.TableInfo) []string {
	names := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		names[i] = c.Name
	}
	return names
}

// --- responses ---

func (s *Server) writeJSON(w http.ResponseWriter, r *http.Request, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.FromContext(r.Context()).ErrorWith("failed to write response", err, nil)
	}
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	s.writeErrorStatus(w, r, errs.HTTPStatus(err), err)
}

func (s *Server) writeErrorStatus(w http.ResponseWriter, r *http.Request, status int, err error) {
	log := logger.FromContext(r.Context())
	fields := map[string]interface{}{"method": r.Method, "path": r.URL.Path, "status": status}
	if status >= http.StatusInternalServerError {
		log.ErrorWith("request failed", err, fields)
	} else {
		log.DebugWith("request rejected: "+err.Error(), fields)
	}
	s.writeJSON(w, r, status, errs.ToBody(err))
}
