package eventstore

import (
	"fmt"
	"strconv"
	"strings"
)

// QueryItemType is one of the field-comparison kinds the query compiler
// recognizes.
type QueryItemType string

const (
	QueryEqual                QueryItemType = "equal"
	QueryGreater              QueryItemType = "greater"
	QueryGreaterOrEqual       QueryItemType = "greaterOrEqual"
	QueryLowerOrEqual         QueryItemType = "lowerOrEqual"
	QueryGreaterOrEqualOrNull QueryItemType = "greaterOrEqualOrNull"
	QueryTypesList            QueryItemType = "typesList"
	QueryStreamsQuery         QueryItemType = "streamsQuery"
)

// QueryItem is one structured-query clause; Field is unused by typesList
// and streamsQuery, which carry their own payload shape in Value.
type QueryItem struct {
	Type  QueryItemType
	Field string
	Value any
}

// CompileQuery folds a structured query into a SQL WHERE clause (without
// the leading "WHERE") and its bound args. Listing/streaming callers are
// expected to additionally AND in "deleted IS NULL AND headId IS NULL"
// themselves via baseFilter.
func CompileQuery(items []QueryItem) (string, []any) {
	var clauses []string
	var args []any

	for _, item := range items {
		clause, itemArgs := compileQueryItem(item)
		if clause == "" {
			continue
		}
		clauses = append(clauses, clause)
		args = append(args, itemArgs...)
	}

	return strings.Join(clauses, " AND "), args
}

func compileQueryItem(item QueryItem) (string, []any) {
	switch item.Type {
	case QueryEqual:
		if item.Value == nil {
			return fmt.Sprintf("%s IS NULL", item.Field), nil
		}
		return fmt.Sprintf("%s = ?", item.Field), []any{coerce(item.Value)}
	case QueryGreater:
		return fmt.Sprintf("%s > ?", item.Field), []any{coerce(item.Value)}
	case QueryGreaterOrEqual:
		return fmt.Sprintf("%s >= ?", item.Field), []any{coerce(item.Value)}
	case QueryLowerOrEqual:
		return fmt.Sprintf("%s <= ?", item.Field), []any{coerce(item.Value)}
	case QueryGreaterOrEqualOrNull:
		return fmt.Sprintf("(%s >= ? OR %s IS NULL)", item.Field, item.Field), []any{coerce(item.Value)}
	case QueryTypesList:
		return compileTypesList(item.Value)
	case QueryStreamsQuery:
		andBlocks, _ := item.Value.([][]StreamMatch)
		expr := CompileStreamQuery(andBlocks)
		if expr == "" {
			return "", nil
		}
		return "events_fts MATCH ?", []any{expr}
	default:
		return "", nil
	}
}

func compileTypesList(value any) (string, []any) {
	types, ok := value.([]string)
	if !ok || len(types) == 0 {
		return "", nil
	}

	var clauses []string
	var args []any
	for _, t := range types {
		if strings.HasSuffix(t, "/*") {
			clauses = append(clauses, "type LIKE ?")
			args = append(args, strings.TrimSuffix(t, "*")+"%")
			continue
		}
		clauses = append(clauses, "type = ?")
		args = append(args, t)
	}

	return "(" + strings.Join(clauses, " OR ") + ")", args
}

// coerce maps Go values onto their SQL literal shape: text quoted/escaped
// by the driver via bound params, numeric strings parsed, booleans to 0/1.
// Numbers and non-numeric strings pass through to the driver unchanged;
// numeric strings become float64, and bool needs the explicit conversion
// since modernc.org/sqlite has no native boolean type.
func coerce(v any) any {
	switch val := v.(type) {
	case bool:
		if val {
			return 1
		}
		return 0
	case string:
		if n, err := strconv.ParseFloat(val, 64); err == nil {
			return n
		}
		return val
	default:
		return val
	}
}

// baseFilter is the implicit clause every listing/streaming query adds:
// deleted IS NULL AND headId IS NULL, so callers never see history rows or
// tombstones unless they ask for them explicitly.
const baseFilter = "deleted IS NULL AND headId IS NULL"
