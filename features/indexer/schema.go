package indexer

import (
	"context"
	"fmt"
	"sort"
)

const columnQuery = `SELECT column_name, data_type, udt_name FROM information_schema.columns WHERE table_schema = $1 AND table_name = $2`

type liveColumn struct {
	dataType string
	udtName  string
}

// reconcileSchema checks the configured columns against the live table and
// returns the effective TableConfig for this call. In ignore-list mode the
// metadata column set is recomputed from the live columns every time.
// Read-only: it issues a single information_schema query and never writes.
func (ix *Indexer) reconcileSchema(ctx context.Context) (TableConfig, error) {
	cfg := ix.cfg

	rows, err := ix.db.QueryContext(ctx, columnQuery, cfg.Schema, cfg.Table)
	if err != nil {
		return cfg, fmt.Errorf("querying table columns: %w", err)
	}
	defer rows.Close()

	live := make(map[string]liveColumn)
	for rows.Next() {
		var name string
		var col liveColumn
		if err := rows.Scan(&name, &col.dataType, &col.udtName); err != nil {
			return cfg, fmt.Errorf("scanning table columns: %w", err)
		}
		live[name] = col
	}
	if err := rows.Err(); err != nil {
		return cfg, fmt.Errorf("reading table columns: %w", err)
	}

	if len(live) == 0 {
		return cfg, fmt.Errorf("%w: %s.%s", ErrTableNotFound, cfg.Schema, cfg.Table)
	}

	required := []string{cfg.IDColumn, cfg.ContentColumn, cfg.EmbeddingColumn}
	if cfg.MetadataJSONColumn != "" {
		required = append(required, cfg.MetadataJSONColumn)
	}

	var missing []string
	for _, col := range append(required, cfg.MetadataColumns...) {
		if _, ok := live[col]; !ok {
			missing = append(missing, col)
		}
	}
	if len(missing) > 0 {
		return cfg, &MissingColumnsError{Schema: cfg.Schema, Table: cfg.Table, Columns: missing}
	}

	if col := live[cfg.ContentColumn]; !isTextType(col.dataType) {
		return cfg, &InvalidColumnTypeError{Column: cfg.ContentColumn, Got: col.dataType, Want: "a text type"}
	}
	if col := live[cfg.EmbeddingColumn]; col.udtName != "vector" {
		return cfg, &InvalidColumnTypeError{Column: cfg.EmbeddingColumn, Got: col.udtName, Want: "vector"}
	}
	if col := live[cfg.IDColumn]; !isIDType(col.dataType) {
		return cfg, &InvalidColumnTypeError{Column: cfg.IDColumn, Got: col.dataType, Want: "text, varchar or uuid"}
	}

	if len(cfg.IgnoreMetadataColumns) > 0 {
		cfg.MetadataColumns = effectiveMetadataColumns(live, cfg)
	}
	return cfg, nil
}

// effectiveMetadataColumns resolves ignore-list mode: every live column
// minus the fixed columns and the ignore list, in stable order.
func effectiveMetadataColumns(live map[string]liveColumn, cfg TableConfig) []string {
	excluded := map[string]bool{
		cfg.IDColumn:        true,
		cfg.ContentColumn:   true,
		cfg.EmbeddingColumn: true,
	}
	if cfg.MetadataJSONColumn != "" {
		excluded[cfg.MetadataJSONColumn] = true
	}
	for _, col := range cfg.IgnoreMetadataColumns {
		excluded[col] = true
	}

	var cols []string
	for name := range live {
		if !excluded[name] {
			cols = append(cols, name)
		}
	}
	sort.Strings(cols)
	return cols
}

func isTextType(dataType string) bool {
	return dataType == "text" || dataType == "character varying"
}

func isIDType(dataType string) bool {
	return dataType == "text" || dataType == "character varying" || dataType == "uuid"
}
