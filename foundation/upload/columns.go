package upload

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/araddon/dateparse"
	"github.com/ardanlabs/ai-agents/foundation/duck"
)

var columnReplacer = strings.NewReplacer(" ", "_", "-", "_")

// NormalizeColumn trims the name along with any byte order mark and
// replaces spaces and hyphens with underscores.
func NormalizeColumn(name string) string {
	name = strings.TrimSpace(strings.TrimPrefix(name, "\ufeff"))
	return columnReplacer.Replace(name)
}

// NormalizeColumns normalizes every header name. Empty names become
// column_N and repeated names get a numeric suffix so the result is unique.
func NormalizeColumns(header []string) []string {
	names := make([]string, len(header))
	used := make(map[string]bool, len(header))

	for i, h := range header {
		name := NormalizeColumn(h)
		if name == "" {
			name = fmt.Sprintf("column_%d", i+1)
		}

		candidate := name
		for n := 1; used[candidate]; n++ {
			candidate = fmt.Sprintf("%s_%d", name, n)
		}

		used[candidate] = true
		names[i] = candidate
	}

	return names
}

// IsDateColumn reports if the column is coerced to a timestamp.
func IsDateColumn(name string) bool {
	return strings.Contains(strings.ToLower(name), "date")
}

// =============================================================================

func build(header []string, rows [][]string) duck.Dataset {
	ds := duck.Dataset{
		Columns: make([]duck.Column, len(header)),
		Rows:    make([][]any, len(rows)),
	}

	for i := range rows {
		ds.Rows[i] = make([]any, len(header))
	}

	for c, name := range header {
		typ := inferType(name, rows, c)
		ds.Columns[c] = duck.Column{Name: name, Type: typ}

		for r, row := range rows {
			ds.Rows[r][c] = convert(typ, row[c])
		}
	}

	return ds
}

func inferType(name string, rows [][]string, c int) duck.Type {
	if IsDateColumn(name) {
		return duck.TypeTimestamp
	}

	ints, floats, bools, values := true, true, true, 0

	for _, row := range rows {
		v := strings.TrimSpace(row[c])
		if v == "" {
			continue
		}
		values++

		if ints {
			if _, err := strconv.ParseInt(v, 10, 64); err != nil {
				ints = false
			}
		}

		if floats {
			if _, err := strconv.ParseFloat(v, 64); err != nil {
				floats = false
			}
		}

		if bools {
			bools = strings.EqualFold(v, "true") || strings.EqualFold(v, "false")
		}
	}

	switch {
	case values == 0:
		return duck.TypeVarchar
	case ints:
		return duck.TypeBigint
	case floats:
		return duck.TypeDouble
	case bools:
		return duck.TypeBoolean
	default:
		return duck.TypeVarchar
	}
}

// convert turns the cell text into a value of the column type. Empty cells
// and unparsable dates become NULL.
func convert(typ duck.Type, cell string) any {
	v := strings.TrimSpace(cell)
	if v == "" {
		return nil
	}

	switch typ {
	case duck.TypeTimestamp:
		t, err := dateparse.ParseAny(v)
		if err != nil {
			return nil
		}
		return t

	case duck.TypeBigint:
		n, _ := strconv.ParseInt(v, 10, 64)
		return n

	case duck.TypeDouble:
		f, _ := strconv.ParseFloat(v, 64)
		return f

	case duck.TypeBoolean:
		return strings.EqualFold(v, "true")

	default:
		return cell
	}
}
