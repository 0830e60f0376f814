package query_test

import (
	"errors"
	"testing"
	"time"

	"github.com/JaimeStill/tally/pkg/query"
)

func testProjection() *query.Projection {
	return query.NewProjection("expense_files", "e").
		Project("id", "id").
		Project("merchant_name", "merchant_name").
		Project("status", "status").
		Project("uploaded_at", "uploaded_at")
}

func TestProjection(t *testing.T) {
	p := testProjection()

	if got := p.From(); got != "expense_files e" {
		t.Errorf("From() = %q", got)
	}
	if got := p.Columns(); got != "e.id, e.merchant_name, e.status, e.uploaded_at" {
		t.Errorf("Columns() = %q", got)
	}
	if col, err := p.Column("status"); err != nil || col != "e.status" {
		t.Errorf("Column(status) = %q, %v", col, err)
	}
	if _, err := p.Column("password"); !errors.Is(err, query.ErrUnknownField) {
		t.Errorf("Column(password) error = %v, want ErrUnknownField", err)
	}
}

func TestParseSortFields(t *testing.T) {
	tests := []struct {
		in   string
		want []query.SortField
	}{
		{"", nil},
		{"merchant_name", []query.SortField{{Field: "merchant_name"}}},
		{"-uploaded_at, id", []query.SortField{{Field: "uploaded_at", Descending: true}, {Field: "id"}}},
		{" , -id,", []query.SortField{{Field: "id", Descending: true}}},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got := query.ParseSortFields(tt.in)
			if len(got) != len(tt.want) {
				t.Fatalf("got %v, want %v", got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("[%d] = %v, want %v", i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestBuildDefaultSort(t *testing.T) {
	b := query.NewBuilder(testProjection(), query.SortField{Field: "uploaded_at", Descending: true})

	sql, args, err := b.Build()
	if err != nil {
		t.Fatal(err)
	}
	want := "SELECT e.id, e.merchant_name, e.status, e.uploaded_at FROM expense_files e ORDER BY e.uploaded_at DESC"
	if sql != want {
		t.Errorf("sql = %q\nwant  %q", sql, want)
	}
	if len(args) != 0 {
		t.Errorf("args = %v", args)
	}
}

func TestBuildConditions(t *testing.T) {
	since := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	var nilStatus *string

	b := query.NewBuilder(testProjection()).
		WhereEquals("id", "rec_1").
		WhereEquals("status", nilStatus).
		WhereAtLeast("uploaded_at", &since).
		WhereBefore("uploaded_at", nil).
		WhereSearch("50%_off", "merchant_name", "id").
		OrderBy([]query.SortField{{Field: "merchant_name"}})

	sql, args, err := b.BuildPage(20, 40)
	if err != nil {
		t.Fatal(err)
	}

	want := "SELECT e.id, e.merchant_name, e.status, e.uploaded_at FROM expense_files e" +
		" WHERE e.id = $1 AND e.uploaded_at >= $2 AND (e.merchant_name ILIKE $3 OR e.id ILIKE $4)" +
		" ORDER BY e.merchant_name ASC LIMIT $5 OFFSET $6"
	if sql != want {
		t.Errorf("sql = %q\nwant  %q", sql, want)
	}

	if len(args) != 6 {
		t.Fatalf("args = %v, want 6", args)
	}
	if args[2] != `%50\%\_off%` {
		t.Errorf("search pattern = %v", args[2])
	}
	if args[4] != 20 || args[5] != 40 {
		t.Errorf("limit/offset = %v, %v", args[4], args[5])
	}
}

func TestBuildCount(t *testing.T) {
	sql, args, err := query.NewBuilder(testProjection()).
		WhereEquals("status", "pending").
		BuildCount()
	if err != nil {
		t.Fatal(err)
	}
	if sql != "SELECT COUNT(*) FROM expense_files e WHERE e.status = $1" {
		t.Errorf("sql = %q", sql)
	}
	if len(args) != 1 || args[0] != "pending" {
		t.Errorf("args = %v", args)
	}
}

func TestUnknownFieldsRejected(t *testing.T) {
	tests := []struct {
		name string
		b    *query.Builder
	}{
		{"filter", query.NewBuilder(testProjection()).WhereEquals("secret", 1)},
		{"search", query.NewBuilder(testProjection()).WhereSearch("x", "secret")},
		{"sort", query.NewBuilder(testProjection()).OrderBy([]query.SortField{{Field: "1; DROP TABLE"}})},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, _, err := tt.b.Build(); !errors.Is(err, query.ErrUnknownField) {
				t.Errorf("Build() error = %v, want ErrUnknownField", err)
			}
			if _, _, err := tt.b.BuildCount(); !errors.Is(err, query.ErrUnknownField) {
				t.Errorf("BuildCount() error = %v, want ErrUnknownField", err)
			}
		})
	}
}
