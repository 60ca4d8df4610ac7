package source

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"strings"

	"github.com/goliatone/go-errors"
	"github.com/goliatone/go-prefer/format"
	"github.com/goliatone/go-prefer/value"
)

// Defaults for database-backed configuration tables.
const (
	DefaultDBTable       = "configuration"
	DefaultDBNameColumn  = "name"
	DefaultDBValueColumn = "value"
	DefaultDBSeparator   = "."
)

// DBParams control how a configuration table is read. They parse from the
// URI's query string:
//
//	postgres://host/app?table=settings&strategy=kv&name_column=k&value_column=v
//
// Strategy is one of auto, kv, raw, or wide. Under kv each row is one
// setting (name column, value column) and dotted names expand into nested
// objects. Under raw a single row holds a serialized document in a "data"
// column, parsed per the "format" column when present. Under wide the
// column names are the setting keys and one row supplies the values;
// filter_column/filter_value select that row.
type DBParams struct {
	Table        string
	Strategy     string
	NameColumn   string
	ValueColumn  string
	Separator    string
	FilterColumn string
	FilterValue  string
}

// ParseDBParams reads the configuration parameters from a database URI.
func ParseDBParams(uri string) (DBParams, error) {
	parsed, err := url.Parse(uri)
	if err != nil {
		return DBParams{}, errors.Wrap(err, errors.CategoryBadInput, "invalid database URI").
			WithTextCode("DB_URI_INVALID").
			WithMetadata(map[string]any{"uri": uri})
	}
	q := parsed.Query()
	params := DBParams{
		Table:        DefaultDBTable,
		Strategy:     "auto",
		NameColumn:   DefaultDBNameColumn,
		ValueColumn:  DefaultDBValueColumn,
		Separator:    DefaultDBSeparator,
		FilterColumn: q.Get("filter_column"),
		FilterValue:  q.Get("filter_value"),
	}
	if v := q.Get("table"); v != "" {
		params.Table = v
	}
	if v := q.Get("strategy"); v != "" {
		params.Strategy = v
	}
	if v := q.Get("name_column"); v != "" {
		params.NameColumn = v
	}
	if v := q.Get("value_column"); v != "" {
		params.ValueColumn = v
	}
	if v := q.Get("separator"); v != "" {
		params.Separator = v
	}
	switch params.Strategy {
	case "auto", "kv", "raw", "wide":
	default:
		return DBParams{}, errors.New("unknown strategy: expected auto, kv, raw, or wide", errors.CategoryBadInput).
			WithTextCode("DB_STRATEGY_INVALID").
			WithMetadata(map[string]any{"strategy": params.Strategy})
	}
	for label, name := range map[string]string{
		"table":        params.Table,
		"name_column":  params.NameColumn,
		"value_column": params.ValueColumn,
	} {
		if err := validateIdentName(name, label); err != nil {
			return DBParams{}, err
		}
	}
	if params.FilterColumn != "" {
		if err := validateIdentName(params.FilterColumn, "filter_column"); err != nil {
			return DBParams{}, err
		}
	}
	return params, nil
}

// StripDBParams removes the configuration parameters from a URI, leaving a
// connection string suitable for the database driver.
func StripDBParams(uri string) (string, error) {
	parsed, err := url.Parse(uri)
	if err != nil {
		return "", errors.Wrap(err, errors.CategoryBadInput, "invalid database URI").
			WithTextCode("DB_URI_INVALID").
			WithMetadata(map[string]any{"uri": uri})
	}
	q := parsed.Query()
	for _, key := range []string{
		"table", "strategy", "name_column", "value_column",
		"separator", "filter_column", "filter_value",
	} {
		q.Del(key)
	}
	parsed.RawQuery = q.Encode()
	return parsed.String(), nil
}

// validateIdentName accepts alphanumerics and underscores only; table and
// column names are interpolated into the query text, never parameterized.
func validateIdentName(name, label string) error {
	valid := name != ""
	for _, r := range name {
		if !(r == '_' || r >= '0' && r <= '9' || r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z') {
			valid = false
			break
		}
	}
	if valid {
		return nil
	}
	return errors.New("invalid identifier in database URI", errors.CategoryBadInput).
		WithTextCode("DB_IDENT_INVALID").
		WithMetadata(map[string]any{
			"label": label,
			"name":  name,
		})
}

// DB reads configuration from a database table through an open *sql.DB
// handle. The caller owns the handle and picks the driver; the URI only
// carries the table parameters (see DBParams). Rows are fetched whole and
// the filter row is selected client-side, which keeps the query free of
// driver-specific placeholder syntax.
func DB(db *sql.DB, uri string) Source {
	return &loader{
		name:     "db:" + uri,
		priority: PriorityFile,
		load: func(ctx context.Context) (value.Value, error) {
			params, err := ParseDBParams(uri)
			if err != nil {
				return value.Value{}, err
			}
			cols, rows, err := fetchTable(ctx, db, params.Table)
			if err != nil {
				return value.Value{}, errors.Wrap(err, errors.CategoryOperation, "failed to read configuration table").
					WithTextCode("DB_LOAD_FAILED").
					WithMetadata(map[string]any{
						"table": params.Table,
						"uri":   uri,
					})
			}
			switch detectStrategy(cols, params) {
			case "kv":
				return expandKV(cols, rows, params)
			case "raw":
				return parseRaw(cols, rows, params)
			default:
				return expandWide(cols, rows, params)
			}
		},
	}
}

func fetchTable(ctx context.Context, db *sql.DB, table string) ([]string, [][]any, error) {
	result, err := db.QueryContext(ctx, "SELECT * FROM "+table)
	if err != nil {
		return nil, nil, err
	}
	defer result.Close()

	cols, err := result.Columns()
	if err != nil {
		return nil, nil, err
	}
	var rows [][]any
	for result.Next() {
		cells := make([]any, len(cols))
		targets := make([]any, len(cols))
		for i := range cells {
			targets[i] = &cells[i]
		}
		if err := result.Scan(targets...); err != nil {
			return nil, nil, err
		}
		for i, cell := range cells {
			if b, ok := cell.([]byte); ok {
				cells[i] = string(b)
			}
		}
		rows = append(rows, cells)
	}
	return cols, rows, result.Err()
}

// detectStrategy resolves "auto" from the column shape: a name+value pair
// means kv rows, a "data" column means one raw document, anything else is a
// wide table.
func detectStrategy(cols []string, params DBParams) string {
	if params.Strategy != "auto" {
		return params.Strategy
	}
	var hasName, hasValue, hasData bool
	for _, c := range cols {
		switch c {
		case params.NameColumn:
			hasName = true
		case params.ValueColumn:
			hasValue = true
		case "data":
			hasData = true
		}
	}
	if hasName && hasValue {
		return "kv"
	}
	if hasData {
		return "raw"
	}
	return "wide"
}

func expandKV(cols []string, rows [][]any, params DBParams) (value.Value, error) {
	nameIdx, valueIdx := indexOf(cols, params.NameColumn), indexOf(cols, params.ValueColumn)
	if nameIdx == -1 || valueIdx == -1 {
		return value.Value{}, errors.New("configuration table is missing the name or value column", errors.CategoryBadInput).
			WithTextCode("DB_SCHEMA_MISMATCH").
			WithMetadata(map[string]any{
				"columns":      cols,
				"name_column":  params.NameColumn,
				"value_column": params.ValueColumn,
			})
	}
	out := map[string]any{}
	for _, row := range rows {
		name, ok := row[nameIdx].(string)
		if !ok {
			return value.Value{}, errors.New("setting name is not a string", errors.CategoryBadInput).
				WithTextCode("DB_SCHEMA_MISMATCH").
				WithMetadata(map[string]any{"name": fmt.Sprint(row[nameIdx])})
		}
		setDotted(out, strings.Split(name, params.Separator), row[valueIdx])
	}
	return value.FromAny(out)
}

func parseRaw(cols []string, rows [][]any, params DBParams) (value.Value, error) {
	dataIdx, formatIdx := indexOf(cols, "data"), indexOf(cols, "format")
	if dataIdx == -1 || len(rows) == 0 {
		return value.Value{}, errors.New("configuration table has no data row", errors.CategoryBadInput).
			WithTextCode("DB_SCHEMA_MISMATCH").
			WithMetadata(map[string]any{
				"columns": cols,
				"rows":    len(rows),
			})
	}
	row := rows[0]
	content, ok := row[dataIdx].(string)
	if !ok {
		return value.Value{}, errors.New("data column is not text", errors.CategoryBadInput).
			WithTextCode("DB_SCHEMA_MISMATCH")
	}
	hint := "json"
	if formatIdx != -1 {
		if s, ok := row[formatIdx].(string); ok && s != "" {
			hint = s
		}
	}
	f, err := format.ByExtension(hint)
	if err != nil {
		return value.Value{}, err
	}
	return f.Unmarshal([]byte(content))
}

// expandWide reads one row as the whole configuration: column names are
// setting keys. With a filter, the matching row wins and the filter column
// stays out of the result.
func expandWide(cols []string, rows [][]any, params DBParams) (value.Value, error) {
	filterIdx := -1
	if params.FilterColumn != "" {
		filterIdx = indexOf(cols, params.FilterColumn)
		if filterIdx == -1 {
			return value.Value{}, errors.New("filter column not present in configuration table", errors.CategoryBadInput).
				WithTextCode("DB_SCHEMA_MISMATCH").
				WithMetadata(map[string]any{
					"columns":       cols,
					"filter_column": params.FilterColumn,
				})
		}
	}
	var row []any
	for _, candidate := range rows {
		if filterIdx != -1 && fmt.Sprint(candidate[filterIdx]) != params.FilterValue {
			continue
		}
		row = candidate
		break
	}
	if row == nil {
		return value.Value{}, errors.New("no configuration row matched", errors.CategoryBadInput).
			WithTextCode("DB_NO_ROW").
			WithMetadata(map[string]any{
				"filter_column": params.FilterColumn,
				"filter_value":  params.FilterValue,
			})
	}
	out := map[string]any{}
	for i, col := range cols {
		if i == filterIdx {
			continue
		}
		setDotted(out, strings.Split(col, params.Separator), row[i])
	}
	return value.FromAny(out)
}

// setDotted writes a value at a split key path, creating intermediate
// objects and replacing non-object intermediates.
func setDotted(node map[string]any, path []string, v any) {
	if len(path) == 1 {
		node[path[0]] = v
		return
	}
	child, ok := node[path[0]].(map[string]any)
	if !ok {
		child = map[string]any{}
		node[path[0]] = child
	}
	setDotted(child, path[1:], v)
}

func indexOf(items []string, want string) int {
	for i, item := range items {
		if item == want {
			return i
		}
	}
	return -1
}
