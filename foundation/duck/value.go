package duck

import (
	"fmt"
	"math"
	"strings"

	"github.com/duckdb/duckdb-go/v2"
	"github.com/google/uuid"
)

// display converts a value scanned from the engine into one that renders
// as text or json without loss. The dbType is the column's engine type name
// and is only consulted for top level values.
func display(v any, dbType string) any {
	switch val := v.(type) {
	case []byte:
		if dbType == "UUID" {
			if id, err := uuid.FromBytes(val); err == nil {
				return id.String()
			}
		}
		return string(val)

	case float64:
		return finite(val)

	case float32:
		if f := float64(val); math.IsNaN(f) || math.IsInf(f, 0) {
			return finite(f)
		}
		return val

	case duckdb.Decimal:
		if val.Value == nil {
			return nil
		}
		return finite(val.Float64())

	case duckdb.Interval:
		return formatInterval(val)

	case duckdb.Union:
		return display(val.Value, "")

	case duckdb.Map:
		m := make(map[string]any, len(val))
		for k, e := range val {
			m[fmt.Sprint(display(k, ""))] = display(e, "")
		}
		return m

	case map[string]any:
		m := make(map[string]any, len(val))
		for k, e := range val {
			m[k] = display(e, "")
		}
		return m

	case []any:
		s := make([]any, len(val))
		for i, e := range val {
			s[i] = display(e, "")
		}
		return s
	}

	return v
}

func finite(f float64) any {
	switch {
	case math.IsNaN(f):
		return "NaN"
	case math.IsInf(f, 1):
		return "Infinity"
	case math.IsInf(f, -1):
		return "-Infinity"
	}

	return f
}

func formatInterval(iv duckdb.Interval) string {
	var parts []string

	unit := func(n int64, name string) {
		if n == 0 {
			return
		}
		if n == 1 || n == -1 {
			parts = append(parts, fmt.Sprintf("%d %s", n, name))
			return
		}
		parts = append(parts, fmt.Sprintf("%d %ss", n, name))
	}

	unit(int64(iv.Months/12), "year")
	unit(int64(iv.Months%12), "month")
	unit(int64(iv.Days), "day")

	if iv.Micros != 0 || len(parts) == 0 {
		micros := iv.Micros
		sign := ""
		if micros < 0 {
			sign = "-"
			micros = -micros
		}

		secs := micros / 1e6
		clock := fmt.Sprintf("%s%02d:%02d:%02d", sign, secs/3600, secs/60%60, secs%60)
		if frac := micros % 1e6; frac != 0 {
			clock += strings.TrimRight(fmt.Sprintf(".%06d", frac), "0")
		}

		parts = append(parts, clock)
	}

	return strings.Join(parts, " ")
}
