package repository

import (
	"fmt"
	"maps"
	"reflect"
	"slices"
	"strings"

	"studio/shared/dto"
)

type column struct {
	name  string
	table string
	alias string
}

func (c column) selectExpr() string {
	switch {
	case c.table == "":
		return c.name
	case c.alias != "":
		return fmt.Sprintf("%s.%s AS %s", c.table, c.name, c.alias)
	default:
		return c.table + "." + c.name
	}
}

// scanColumns walks the db tags of a model, descending into embedded structs. Fields tagged
// with another table are read through the join and never inserted.
func scanColumns(table string, reflectType reflect.Type) (columns []column, insertColumns []string) {
	for i := range reflectType.NumField() {
		field := reflectType.Field(i)

		if field.Anonymous && field.Type.Kind() == reflect.Struct {
			nested, nestedInsert := scanColumns(table, field.Type)
			columns = append(columns, nested...)
			insertColumns = append(insertColumns, nestedInsert...)

			continue
		}

		dbTag := field.Tag.Get("db")
		if dbTag == "" || dbTag == "-" {
			continue
		}

		owner := field.Tag.Get("table")
		if owner == "" {
			owner = table
		}

		if owner == table {
			insertColumns = append(insertColumns, dbTag)
		}

		if name := field.Tag.Get("column"); name != "" {
			columns = append(columns, column{name: name, table: owner, alias: dbTag})
		} else {
			columns = append(columns, column{name: dbTag, table: owner})
		}
	}

	return columns, insertColumns
}

// selectList renders the select expressions, restricted to only when it is not empty.
func selectList(columns []column, only ...string) string {
	exprs := make([]string, 0, len(columns))

	for _, col := range columns {
		if len(only) > 0 && !slices.Contains(only, col.name) {
			continue
		}

		exprs = append(exprs, col.selectExpr())
	}

	return strings.Join(exprs, ", ")
}

func namedPlaceholders(names []string) string {
	placeholders := make([]string, len(names))
	for i, name := range names {
		placeholders[i] = ":" + name
	}

	return strings.Join(placeholders, ", ")
}

// updateQuery renders an UPDATE of mod over where. SET values are bound under setArgPrefix
// and added to args, which already holds the WHERE values.
func updateQuery(table string, mod map[string]any, where string, args map[string]any) (string, error) {
	fields := slices.Sorted(maps.Keys(mod))

	assignments := make([]string, len(fields))
	for i, field := range fields {
		name := setArgPrefix + field
		if _, taken := args[name]; taken {
			return "", fmt.Errorf("%w: %s", errArgCollision, name)
		}

		args[name] = mod[field]
		assignments[i] = fmt.Sprintf("%s = :%s", field, name)
	}

	return fmt.Sprintf("UPDATE %s SET %s %s", table, strings.Join(assignments, ", "), where), nil
}

func whereClause(filter dto.FilterGroup) (string, map[string]any) {
	where, args := filter.GetWhereClause()
	if where == "" {
		return "", map[string]any{}
	}

	return "WHERE " + where, args
}

// orderAndPage renders ORDER BY and LIMIT/OFFSET, adding the paging arguments to args.
// SortBy must already be a vetted column name.
func orderAndPage(params dto.QueryParams, args map[string]any) string {
	var parts []string

	if params.SortBy != "" && params.SortDir != "" {
		parts = append(parts, fmt.Sprintf("ORDER BY %s %s", params.SortBy, params.SortDir))
	}

	if params.Limit > 0 {
		args["limit"] = params.Limit
		parts = append(parts, "LIMIT :limit")

		if params.Page > 0 {
			args["offset"] = (params.Page - 1) * params.Limit
			parts = append(parts, "OFFSET :offset")
		}
	}

	return strings.Join(parts, " ")
}

func joinQuery(parts ...string) string {
	nonEmpty := slices.DeleteFunc(parts, func(part string) bool { return part == "" })

	return strings.Join(nonEmpty, " ")
}
