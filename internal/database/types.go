package database

// Column describes a single table column, in ordinal position.
type Column struct {
	Name            string  `json:"name"`
	DataType        string  `json:"data_type"`
	IsNullable      bool    `json:"is_nullable"`
	IsPrimaryKey    bool    `json:"is_primary_key"`
	IsAutoGenerated bool    `json:"is_auto_generated"`
	DefaultValue    *string `json:"default_value"`
}

// Table is a base table and its columns.
type Table struct {
	Schema  string   `json:"schema"`
	Name    string   `json:"name"`
	Columns []Column `json:"columns"`
}

// Schema owns an ordered list of tables.
type Schema struct {
	Name   string  `json:"name"`
	Tables []Table `json:"tables"`
}

// SchemaGraph is a point-in-time snapshot of every user schema.
type SchemaGraph []Schema

// ForeignKey is one column pair of a foreign-key relationship.
type ForeignKey struct {
	ConstraintName string `json:"constraint_name"`
	SourceSchema   string `json:"source_schema"`
	SourceTable    string `json:"source_table"`
	SourceColumn   string `json:"source_column"`
	TargetSchema   string `json:"target_schema"`
	TargetTable    string `json:"target_table"`
	TargetColumn   string `json:"target_column"`
}

// IndexInfo describes an index; Columns are in index key order.
type IndexInfo struct {
	Name      string   `json:"name"`
	Columns   []string `json:"columns"`
	IsUnique  bool     `json:"is_unique"`
	IsPrimary bool     `json:"is_primary"`
}

// ConstraintInfo describes a table constraint. Definition is set for CHECK
// constraints only.
type ConstraintInfo struct {
	Name       string   `json:"name"`
	Type       string   `json:"constraint_type"`
	Columns    []string `json:"columns"`
	Definition *string  `json:"definition"`
}

// TableDetail is the aggregate returned by a table detail request.
type TableDetail struct {
	Schema      string           `json:"schema"`
	Name        string           `json:"name"`
	Columns     []Column         `json:"columns"`
	Indexes     []IndexInfo      `json:"indexes"`
	Constraints []ConstraintInfo `json:"constraints"`
	ForeignKeys []ForeignKey     `json:"foreign_keys"`
}

// PrimaryKey returns the names of the primary-key columns in ordinal order.
func PrimaryKey(cols []Column) []string {
	pk := make([]string, 0, 1)
	for _, c := range cols {
		if c.IsPrimaryKey {
			pk = append(pk, c.Name)
		}
	}
	return pk
}

// Row is one table row: positional values aligned with the column list and
// the opaque identity derived from its primary key.
type Row struct {
	ID     RowID   `json:"id"`
	Values []Value `json:"values"`
}

// TableDataRequest asks for one page of a table.
type TableDataRequest struct {
	Schema string `json:"schema"`
	Table  string `json:"table"`
	Limit  uint64 `json:"limit"`
	Offset uint64 `json:"offset"`
}

// TableData is one decoded page of a table.
type TableData struct {
	Columns       []Column `json:"columns"`
	Rows          []Row    `json:"rows"`
	TotalCount    int64    `json:"total_count"`
	PrimaryKeys   []string `json:"primary_keys"`
	HasPrimaryKey bool     `json:"has_primary_key"`
}

// Export converts the page into the shape consumed by the export writer.
func (d *TableData) Export() ExportData {
	cols := make([]string, len(d.Columns))
	for i, c := range d.Columns {
		cols[i] = c.Name
	}
	rows := make([][]Value, len(d.Rows))
	for i, r := range d.Rows {
		rows[i] = r.Values
	}
	return ExportData{Columns: cols, Rows: rows}
}

// ExportData is the column/row grid handed to the export writer.
type ExportData struct {
	Columns []string  `json:"columns"`
	Rows    [][]Value `json:"rows"`
}

// QueryResult is the decoded result of a raw SQL statement.
type QueryResult struct {
	Columns         []ResultColumn `json:"columns"`
	Rows            [][]Value      `json:"rows"`
	RowCount        int            `json:"row_count"`
	ExecutionTimeMs int64          `json:"execution_time_ms"`
}

// RowUpdate sets one column of the row identified by RowID.
type RowUpdate struct {
	RowID    RowID  `json:"row_id"`
	Column   string `json:"column"`
	NewValue Value  `json:"new_value"`
}

// RowInsert is one row to insert, keyed by column name.
type RowInsert struct {
	Values map[string]Value `json:"values"`
}

// RowDelete removes the row identified by RowID.
type RowDelete struct {
	RowID RowID `json:"row_id"`
}
