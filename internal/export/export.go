// Package export encodes table pages as CSV or JSON and stores them in a
// filestore.Store.
package export

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/koustreak/dbpilot/internal/database"
	"github.com/koustreak/dbpilot/internal/errs"
	"github.com/koustreak/dbpilot/internal/filestore"
)

// Format is an export encoding.
type Format string

const (
	FormatCSV  Format = "csv"
	FormatJSON Format = "json"
)

// Prefix is the key prefix every export is stored under.
const Prefix = "exports/"

// ParseFormat accepts "csv" or "json" in any case; empty means CSV.
func ParseFormat(s string) (Format, error) {
	switch Format(strings.ToLower(strings.TrimSpace(s))) {
	case "", FormatCSV:
		return FormatCSV, nil
	case FormatJSON:
		return FormatJSON, nil
	default:
		return "", errs.InvalidConfig("unsupported export format %q", s)
	}
}

func (f Format) contentType() string {
	if f == FormatJSON {
		return "application/json"
	}
	return "text/csv"
}

// Encode writes data to w in format f.
//
// CSV writes a header row, then one record per row: Null is an empty cell,
// text is written raw and every other value as its JSON text.
func Encode(w io.Writer, f Format, data database.ExportData) error {
	switch f {
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(data)
	case FormatCSV:
		cw := csv.NewWriter(w)
		if err := cw.Write(data.Columns); err != nil {
			return err
		}
		record := make([]string, len(data.Columns))
		for _, row := range data.Rows {
			for i := range record {
				record[i] = ""
				if i < len(row) {
					record[i] = cell(row[i])
				}
			}
			if err := cw.Write(record); err != nil {
				return err
			}
		}
		cw.Flush()
		return cw.Error()
	default:
		return errs.InvalidConfig("unsupported export format %q", f)
	}
}

func cell(v database.Value) string {
	if v.IsNull() {
		return ""
	}
	return v.String()
}

// Result describes a stored export.
type Result struct {
	Object filestore.ObjectInfo `json:"object"`
	URL    string               `json:"url,omitempty"`
}

// Exporter stores encoded exports.
type Exporter struct {
	store      filestore.Store
	presignTTL time.Duration
	now        func() time.Time
	newID      func() string
}

// New returns an Exporter writing to store. A positive presignTTL attaches
// a download link to every export when the store can sign one.
func New(store filestore.Store, presignTTL time.Duration) *Exporter {
	return &Exporter{
		store:      store,
		presignTTL: presignTTL,
		now:        time.Now,
		newID:      shortID,
	}
}

// Export encodes data and stores it as
// exports/<schema>.<table>-<UTC timestamp>-<id>.<format>.
func (e *Exporter) Export(ctx context.Context, schema, table string, f Format, data database.ExportData) (*Result, error) {
	var buf bytes.Buffer
	if err := Encode(&buf, f, data); err != nil {
		if errs.IsInvalidConfig(err) {
			return nil, err
		}
		return nil, errs.Wrap(errs.ErrKindStorage, "encoding export", err)
	}

	key := e.key(schema, table, f)
	info, err := e.store.PutObject(ctx, key, &buf, int64(buf.Len()), f.contentType())
	if err != nil {
		return nil, err
	}

	res := &Result{Object: *info}
	if e.presignTTL > 0 {
		url, err := e.store.PresignGetURL(ctx, key, e.presignTTL)
		switch {
		case err == nil:
			res.URL = url
		case !errs.IsStorage(err):
			return nil, err
		}
	}
	return res, nil
}

// List returns every stored export, newest first.
func (e *Exporter) List(ctx context.Context) ([]filestore.ObjectInfo, error) {
	objs, err := e.store.ListObjects(ctx, filestore.ListOptions{Prefix: Prefix, Recursive: true})
	if err != nil {
		return nil, err
	}
	out := objs[:0]
	for _, o := range objs {
		if !o.IsDir {
			out = append(out, o)
		}
	}
	sortNewestFirst(out)
	return out, nil
}

// Open returns the stored export called name (a key without Prefix) and
// its metadata.
func (e *Exporter) Open(ctx context.Context, name string) (filestore.Object, *filestore.ObjectInfo, error) {
	if name == "" || name == "." || name == ".." || strings.ContainsAny(name, `/\`) {
		return nil, nil, errs.InvalidConfig("invalid export name %q", name)
	}
	key := Prefix + name
	info, err := e.store.StatObject(ctx, key)
	if err != nil {
		return nil, nil, err
	}
	obj, err := e.store.GetObject(ctx, key)
	if err != nil {
		return nil, nil, err
	}
	return obj, info, nil
}

func (e *Exporter) key(schema, table string, f Format) string {
	ts := e.now().UTC().Format("20060102T150405Z")
	return fmt.Sprintf("%s%s.%s-%s-%s.%s", Prefix, schema, table, ts, e.newID(), f)
}

func shortID() string {
	return uuid.NewString()[:8]
}

func sortNewestFirst(objs []filestore.ObjectInfo) {
	sort.SliceStable(objs, func(i, j int) bool {
		return objs[i].LastModified.After(objs[j].LastModified)
	})
}
