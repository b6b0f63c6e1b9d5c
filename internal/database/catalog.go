package database

import (
	"context"
	"fmt"
	"strings"

	"golang.org/x/sync/errgroup"
)

// InspectGraph walks every user schema and base table. Tables are read one
// after another and the walk stops at the first failure.
func InspectGraph(ctx context.Context, c Catalog) (SchemaGraph, error) {
	schemas, err := c.ListSchemas(ctx)
	if err != nil {
		return nil, err
	}

	graph := make(SchemaGraph, 0, len(schemas))
	for _, s := range schemas {
		names, err := c.ListTables(ctx, s)
		if err != nil {
			return nil, err
		}

		tables := make([]Table, 0, len(names))
		for _, name := range names {
			cols, err := c.ListColumns(ctx, s, name)
			if err != nil {
				return nil, err
			}
			tables = append(tables, Table{Schema: s, Name: name, Columns: cols})
		}
		graph = append(graph, Schema{Name: s, Tables: tables})
	}
	return graph, nil
}

// InspectTable composes columns, indexes, constraints and foreign keys for
// one table. The four reads run concurrently; any failure fails the whole
// detail.
func InspectTable(ctx context.Context, c Catalog, schema, table string) (*TableDetail, error) {
	detail := &TableDetail{Schema: schema, Name: table}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		detail.Columns, err = c.ListColumns(gctx, schema, table)
		return err
	})
	g.Go(func() (err error) {
		detail.Indexes, err = c.ListIndexes(gctx, schema, table)
		return err
	})
	g.Go(func() (err error) {
		detail.Constraints, err = c.ListConstraints(gctx, schema, table)
		return err
	})
	g.Go(func() (err error) {
		detail.ForeignKeys, err = c.ListForeignKeys(gctx, schema, table)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return detail, nil
}

// RenderSchemaContext renders the graph as plain text for prompting a SQL
// generator:
//
//	Table public.users:
//	  id INT4 PRIMARY KEY NOT NULL
//	  email TEXT
func RenderSchemaContext(graph SchemaGraph) string {
	var blocks []string
	for _, s := range graph {
		for _, t := range s.Tables {
			var sb strings.Builder
			fmt.Fprintf(&sb, "Table %s.%s:\n", s.Name, t.Name)
			for _, c := range t.Columns {
				fmt.Fprintf(&sb, "  %s %s", c.Name, c.DataType)
				if c.IsPrimaryKey {
					sb.WriteString(" PRIMARY KEY")
				}
				if !c.IsNullable {
					sb.WriteString(" NOT NULL")
				}
				sb.WriteString("\n")
			}
			blocks = append(blocks, sb.String())
		}
	}
	return strings.Join(blocks, "\n")
}
