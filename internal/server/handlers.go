package server

import (
	"io"
	"mime"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/koustreak/dbpilot/internal/database"
	"github.com/koustreak/dbpilot/internal/errs"
	"github.com/koustreak/dbpilot/internal/export"
	"github.com/koustreak/dbpilot/internal/history"
	"github.com/koustreak/dbpilot/internal/session"
)

func (s *Server) handleHealth() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}

// --- connection ---

// connectRequest is either a full config or the id of a saved profile.
type connectRequest struct {
	database.Config
	Profile string `json:"profile"`
}

func (s *Server) resolveConfig(r *http.Request) (database.Config, error) {
	var req connectRequest
	if err := decodeBody(r, &req); err != nil {
		return database.Config{}, err
	}
	if req.Profile == "" {
		return req.Config, nil
	}
	if s.profiles == nil {
		return database.Config{}, errs.InvalidConfig("saved profiles are not available")
	}
	return s.profiles(req.Profile)
}

func (s *Server) handleTestConnection() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		cfg, err := s.resolveConfig(r)
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		if err := s.svc.Sessions().TestConnection(r.Context(), cfg); err != nil {
			s.writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
	}
}

func (s *Server) handleConnect() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		cfg, err := s.resolveConfig(r)
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		if _, err := s.svc.Sessions().Connect(r.Context(), cfg); err != nil {
			s.writeError(w, r, err)
			return
		}
		info, _, err := s.svc.Sessions().Info(r.Context())
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusCreated, info)
	}
}

func (s *Server) handleDisconnect() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := s.svc.Sessions().Disconnect(r.Context()); err != nil {
			s.writeError(w, r, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

type statusResponse struct {
	Connected bool          `json:"connected"`
	Info      *session.Info `json:"connection,omitempty"`
}

func (s *Server) handleStatus() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		info, ok, err := s.svc.Sessions().Info(r.Context())
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		resp := statusResponse{Connected: ok}
		if ok {
			resp.Info = &info
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

// --- schema ---

func (s *Server) handleSchemas() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		graph, err := s.svc.Schemas(r.Context())
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, graph)
	}
}

func (s *Server) handleSchemaContext() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		text, err := s.svc.SchemaContext(r.Context())
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(text))
	}
}

func (s *Server) handleForeignKeys() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		fks, err := s.svc.ForeignKeys(r.Context(), chi.URLParam(r, "schema"))
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, fks)
	}
}

func (s *Server) handleTableDetail() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		detail, err := s.svc.TableDetail(r.Context(), chi.URLParam(r, "schema"), chi.URLParam(r, "table"))
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, detail)
	}
}

// --- rows ---

func pageRequest(r *http.Request) (database.TableDataRequest, error) {
	req := database.TableDataRequest{
		Schema: chi.URLParam(r, "schema"),
		Table:  chi.URLParam(r, "table"),
	}
	var err error
	if req.Limit, err = queryUint(r, "limit"); err != nil {
		return req, err
	}
	if req.Offset, err = queryUint(r, "offset"); err != nil {
		return req, err
	}
	return req, nil
}

func (s *Server) handlePage() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		req, err := pageRequest(r)
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		data, err := s.svc.Page(r.Context(), req)
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, data)
	}
}

func (s *Server) handleCount() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		n, err := s.svc.Count(r.Context(), chi.URLParam(r, "schema"), chi.URLParam(r, "table"))
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]int64{"count": n})
	}
}

type insertRequest struct {
	Rows []database.RowInsert `json:"rows"`
}

func (s *Server) handleInsert() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req insertRequest
		if err := decodeBody(r, &req); err != nil {
			s.writeError(w, r, err)
			return
		}
		n, err := s.svc.Insert(r.Context(), chi.URLParam(r, "schema"), chi.URLParam(r, "table"), req.Rows)
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]int{"inserted": n})
	}
}

type updateRequest struct {
	Updates []database.RowUpdate `json:"updates"`
}

func (s *Server) handleUpdate() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req updateRequest
		if err := decodeBody(r, &req); err != nil {
			s.writeError(w, r, err)
			return
		}
		n, err := s.svc.Update(r.Context(), chi.URLParam(r, "schema"), chi.URLParam(r, "table"), req.Updates)
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]int64{"affected": n})
	}
}

type deleteRequest struct {
	Deletes []database.RowDelete `json:"deletes"`
}

func (s *Server) handleDelete() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req deleteRequest
		if err := decodeBody(r, &req); err != nil {
			s.writeError(w, r, err)
			return
		}
		n, err := s.svc.Delete(r.Context(), chi.URLParam(r, "schema"), chi.URLParam(r, "table"), req.Deletes)
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]int64{"affected": n})
	}
}

// --- export ---

func (s *Server) handleExport() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		req, err := pageRequest(r)
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		format, err := export.ParseFormat(r.URL.Query().Get("format"))
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		res, err := s.svc.Export(r.Context(), req, format)
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusCreated, res)
	}
}

func (s *Server) handleListExports() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		objs, err := s.svc.Exports(r.Context())
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, objs)
	}
}

func (s *Server) handleDownloadExport() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		name := chi.URLParam(r, "name")
		obj, info, err := s.svc.OpenExport(r.Context(), name)
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		defer obj.Close()

		if info.ContentType != "" {
			w.Header().Set("Content-Type", info.ContentType)
		}
		if info.Size >= 0 {
			w.Header().Set("Content-Length", strconv.FormatInt(info.Size, 10))
		}
		w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": name}))
		w.WriteHeader(http.StatusOK)
		if _, err := io.Copy(w, obj); err != nil {
			s.log.ErrorWith("export download interrupted", err, map[string]any{"name": name})
		}
	}
}

// --- raw SQL ---

type queryRequest struct {
	SQL string `json:"sql"`
}

func (s *Server) handleQuery() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req queryRequest
		if err := decodeBody(r, &req); err != nil {
			s.writeError(w, r, err)
			return
		}
		res, err := s.svc.Execute(r.Context(), req.SQL)
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, res)
	}
}

// --- query history ---

func (s *Server) handleHistory() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		items, err := s.svc.History()
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, items)
	}
}

func (s *Server) handleSaveHistory() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var items []history.Item
		if err := decodeBody(r, &items); err != nil {
			s.writeError(w, r, err)
			return
		}
		if err := s.svc.SaveHistory(items); err != nil {
			s.writeError(w, r, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}
