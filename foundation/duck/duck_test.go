package duck_test

import (
	"encoding/json"
	"errors"
	"reflect"
	"sync"
	"testing"

	"github.com/ardanlabs/ai-agents/foundation/duck"
)

func openStore(t *testing.T) *duck.Store {
	t.Helper()

	s, err := duck.Open(duck.Config{})
	if err != nil {
		t.Fatalf("open: %v", err)
	}

	t.Cleanup(func() {
		if err := s.Close(); err != nil {
			t.Errorf("close: %v", err)
		}
	})

	return s
}

func TestRoundTrip(t *testing.T) {
	s := openStore(t)

	ds := duck.Dataset{
		Columns: []duck.Column{
			{Name: "a", Type: duck.TypeBigint},
			{Name: "b", Type: duck.TypeVarchar},
		},
		Rows: [][]any{
			{int64(1), "x"},
			{int64(2), "y"},
		},
	}

	if err := s.Load(t.Context(), "uploaded_data", ds); err != nil {
		t.Fatalf("load: %v", err)
	}

	res, err := s.Query(t.Context(), "SELECT * FROM uploaded_data")
	if err != nil {
		t.Fatalf("query: %v", err)
	}

	if !reflect.DeepEqual(res.Columns, []string{"a", "b"}) {
		t.Fatalf("unexpected columns: %v", res.Columns)
	}

	want := [][]any{{int64(1), "x"}, {int64(2), "y"}}
	if !reflect.DeepEqual(res.Rows, want) {
		t.Fatalf("unexpected rows: got %#v, want %#v", res.Rows, want)
	}
}

func TestLoadReplaces(t *testing.T) {
	s := openStore(t)

	first := duck.Dataset{
		Columns: []duck.Column{{Name: "old", Type: duck.TypeBigint}},
		Rows:    [][]any{{int64(1)}, {int64(2)}, {int64(3)}},
	}

	second := duck.Dataset{
		Columns: []duck.Column{{Name: "new", Type: duck.TypeDouble}, {Name: "flag", Type: duck.TypeBoolean}},
		Rows:    [][]any{{1.5, true}, {nil, false}},
	}

	if err := s.Load(t.Context(), "uploaded_data", first); err != nil {
		t.Fatalf("load first: %v", err)
	}

	if err := s.Load(t.Context(), "uploaded_data", second); err != nil {
		t.Fatalf("load second: %v", err)
	}

	res, err := s.Query(t.Context(), "SELECT * FROM uploaded_data")
	if err != nil {
		t.Fatalf("query: %v", err)
	}

	if !reflect.DeepEqual(res.Columns, []string{"new", "flag"}) {
		t.Fatalf("unexpected columns: %v", res.Columns)
	}

	if len(res.Rows) != 2 || res.Rows[1][0] != nil {
		t.Fatalf("unexpected rows: %#v", res.Rows)
	}

	tables, err := s.Tables(t.Context())
	if err != nil {
		t.Fatalf("tables: %v", err)
	}

	if !reflect.DeepEqual(tables, []string{"uploaded_data"}) {
		t.Fatalf("expected only uploaded_data, got %v", tables)
	}

	cols, err := s.Describe(t.Context(), "uploaded_data")
	if err != nil {
		t.Fatalf("describe: %v", err)
	}

	wantCols := []duck.Column{{Name: "new", Type: duck.TypeDouble}, {Name: "flag", Type: duck.TypeBoolean}}
	if !reflect.DeepEqual(cols, wantCols) {
		t.Fatalf("unexpected columns: %#v", cols)
	}
}

func TestFailedLoadKeepsPrevious(t *testing.T) {
	s := openStore(t)

	good := duck.Dataset{
		Columns: []duck.Column{{Name: "a", Type: duck.TypeBigint}},
		Rows:    [][]any{{int64(7)}},
	}

	if err := s.Load(t.Context(), "uploaded_data", good); err != nil {
		t.Fatalf("load: %v", err)
	}

	bad := duck.Dataset{
		Columns: []duck.Column{{Name: "a", Type: duck.TypeBigint}, {Name: "a", Type: duck.TypeBigint}},
	}

	if err := s.Load(t.Context(), "uploaded_data", bad); err == nil {
		t.Fatal("expected duplicate column error")
	}

	res, err := s.Query(t.Context(), "SELECT a FROM uploaded_data")
	if err != nil {
		t.Fatalf("query: %v", err)
	}

	if len(res.Rows) != 1 || res.Rows[0][0] != int64(7) {
		t.Fatalf("expected previous dataset, got %#v", res.Rows)
	}
}

func TestQueryError(t *testing.T) {
	s := openStore(t)

	tt := []struct {
		name  string
		query string
	}{
		{name: "syntax", query: "SELEC 1"},
		{name: "relation", query: "SELECT * FROM missing_table"},
	}

	for _, tst := range tt {
		t.Run(tst.name, func(t *testing.T) {
			_, err := s.Query(t.Context(), tst.query)

			var qe *duck.QueryError
			if !errors.As(err, &qe) {
				t.Fatalf("expected QueryError, got %T: %v", err, err)
			}

			if qe.Query != tst.query {
				t.Fatalf("expected query %q, got %q", tst.query, qe.Query)
			}

			if qe.Error() == "" || qe.Error() != qe.Err.Error() {
				t.Fatalf("expected engine message passthrough, got %q", qe.Error())
			}
		})
	}
}

func TestDescribeMissing(t *testing.T) {
	s := openStore(t)

	if _, err := s.Describe(t.Context(), "nope"); !errors.Is(err, duck.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestConcurrentLoadQuery(t *testing.T) {
	s := openStore(t)

	ds := duck.Dataset{
		Columns: []duck.Column{{Name: "a", Type: duck.TypeBigint}},
		Rows:    [][]any{{int64(1)}, {int64(2)}},
	}

	if err := s.Load(t.Context(), "uploaded_data", ds); err != nil {
		t.Fatalf("load: %v", err)
	}

	const n = 10

	var wg sync.WaitGroup
	errs := make(chan error, 2*n)

	for range n {
		wg.Add(2)

		go func() {
			defer wg.Done()
			if err := s.Load(t.Context(), "uploaded_data", ds); err != nil {
				errs <- err
			}
		}()

		go func() {
			defer wg.Done()
			res, err := s.Query(t.Context(), "SELECT COUNT(*) FROM uploaded_data")
			if err != nil {
				errs <- err
				return
			}
			if res.Rows[0][0] != int64(2) {
				errs <- errors.New("partial relation observed")
			}
		}()
	}

	wg.Wait()
	close(errs)

	for err := range errs {
		t.Errorf("concurrent: %v", err)
	}
}

func TestHead(t *testing.T) {
	res := duck.Result{
		Columns: []string{"a"},
		Rows:    [][]any{{1}, {2}, {3}},
	}

	if got := res.Head(2); len(got.Rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(got.Rows))
	}

	if got := res.Head(10); len(got.Rows) != 3 {
		t.Fatalf("expected 3 rows, got %d", len(got.Rows))
	}
}

func TestQueryDisplayValues(t *testing.T) {
	s := openStore(t)

	const q = `
		SELECT
			1.5 AS price,
			'00000000-0000-0000-0000-000000000001'::UUID AS id,
			MAP {'a': 1} AS counts,
			'nan'::DOUBLE AS ratio,
			INTERVAL 90 MINUTE AS span,
			[1.25, 2.5] AS list
	`

	res, err := s.Query(t.Context(), q)
	if err != nil {
		t.Fatalf("query: %v", err)
	}

	want := []any{
		1.5,
		"00000000-0000-0000-0000-000000000001",
		map[string]any{"a": int32(1)},
		"NaN",
		"01:30:00",
		[]any{1.25, 2.5},
	}

	if !reflect.DeepEqual(res.Rows[0], want) {
		t.Fatalf("unexpected values: got %#v, want %#v", res.Rows[0], want)
	}

	if _, err := json.Marshal(res); err != nil {
		t.Fatalf("marshal: %v", err)
	}
}
