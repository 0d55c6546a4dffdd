package migrate

import (
	"context"
	"errors"
	"strings"
	"testing"
	"testing/fstest"

	"github.com/DATA-DOG/go-sqlmock"
)

func TestSplitStatements(t *testing.T) {
	body := `
create table a (id text primary key, note text default 'x; y');
-- comment; still comment
insert into a (id) values ('it''s');
create function f() returns trigger language plpgsql as $$
begin
    raise exception 'nope; never';
end;
$$;
select $1::text;
`
	stmts := splitStatements(body)
	var nonEmpty []string
	for _, s := range stmts {
		if strings.TrimSpace(s) != "" {
			nonEmpty = append(nonEmpty, strings.TrimSpace(s))
		}
	}
	if len(nonEmpty) != 4 {
		t.Fatalf("expected 4 statements, got %d: %q", len(nonEmpty), nonEmpty)
	}
	if !strings.Contains(nonEmpty[0], "'x; y'") {
		t.Fatalf("quoted semicolon split: %q", nonEmpty[0])
	}
	if !strings.HasPrefix(nonEmpty[1], "-- comment; still comment") {
		t.Fatalf("comment not kept with next statement: %q", nonEmpty[1])
	}
	if !strings.Contains(nonEmpty[2], "raise exception") || !strings.HasSuffix(nonEmpty[2], "$$;") {
		t.Fatalf("dollar-quoted body split: %q", nonEmpty[2])
	}
	if nonEmpty[3] != "select $1::text;" {
		t.Fatalf("unexpected last statement: %q", nonEmpty[3])
	}
}

func TestDollarTag(t *testing.T) {
	cases := map[string]string{
		"$$ begin":     "$$",
		"$body$ begin": "$body$",
		"$1 and":       "",
		"$a1$ x":       "$a1$",
		"$ not a tag":  "",
	}
	for in, want := range cases {
		got, ok := dollarTag(in)
		if want == "" && ok {
			t.Fatalf("%q: expected no tag, got %q", in, got)
		}
		if want != "" && got != want {
			t.Fatalf("%q: expected %q, got %q", in, want, got)
		}
	}
}

func TestCollectSQL(t *testing.T) {
	fsys := fstest.MapFS{
		"0002_b.up.sql":   {Data: []byte("select 2;")},
		"0001_a.up.sql":   {Data: []byte("select 1;")},
		"0001_a.down.sql": {Data: []byte("select 0;")},
		"README.md":       {Data: []byte("docs")},
		"nested/x.up.sql": {Data: []byte("select 3;")},
	}
	ups, err := collectSQL(fsys, upSuffix)
	if err != nil {
		t.Fatalf("collectSQL: %v", err)
	}
	if strings.Join(ups, ",") != "0001_a.up.sql,0002_b.up.sql" {
		t.Fatalf("unexpected up files: %v", ups)
	}
	seeds, err := collectSQL(fsys, ".sql")
	if err != nil {
		t.Fatalf("collectSQL: %v", err)
	}
	for _, name := range seeds {
		if strings.HasSuffix(name, downSuffix) {
			t.Fatalf("down file collected as seed: %v", seeds)
		}
	}
	if none, err := collectSQL(nil, upSuffix); err != nil || len(none) != 0 {
		t.Fatalf("expected nothing from nil fs, got %v %v", none, err)
	}
}

func expectTables(mock sqlmock.Sqlmock) {
	mock.ExpectExec("create table if not exists schema_migrations").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("create table if not exists schema_seeds").WillReturnResult(sqlmock.NewResult(0, 0))
}

func TestUpAppliesPendingInOrder(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	fsys := fstest.MapFS{
		"0001_a.up.sql": {Data: []byte("create table a (id int);")},
		"0002_b.up.sql": {Data: []byte("create table b (id int); create table c (id int);")},
	}

	expectTables(mock)
	mock.ExpectQuery("select name from schema_migrations").
		WillReturnRows(sqlmock.NewRows([]string{"name"}).AddRow("0001_a.up.sql"))
	mock.ExpectBegin()
	mock.ExpectExec("create table b").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("create table c").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("insert into schema_migrations").
		WithArgs("0002_b.up.sql", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	applied, err := NewManager(db, fsys, nil).Up(context.Background())
	if err != nil {
		t.Fatalf("Up: %v", err)
	}
	if len(applied) != 1 || applied[0] != "0002_b.up.sql" {
		t.Fatalf("unexpected applied: %v", applied)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestUpStopsOnFailure(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	fsys := fstest.MapFS{"0001_a.up.sql": {Data: []byte("create table a (id int);")}}

	expectTables(mock)
	mock.ExpectQuery("select name from schema_migrations").WillReturnRows(sqlmock.NewRows([]string{"name"}))
	mock.ExpectBegin()
	mock.ExpectExec("create table a").WillReturnError(errors.New("syntax error"))
	mock.ExpectRollback()

	applied, err := NewManager(db, fsys, nil).Up(context.Background())
	if err == nil || !strings.Contains(err.Error(), "0001_a.up.sql") {
		t.Fatalf("expected failure naming the migration, got %v", err)
	}
	if len(applied) != 0 {
		t.Fatalf("expected nothing applied, got %v", applied)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestDownRollsBackLatest(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	fsys := fstest.MapFS{
		"0001_a.up.sql":   {Data: []byte("create table a (id int);")},
		"0001_a.down.sql": {Data: []byte("drop table a;")},
	}

	expectTables(mock)
	mock.ExpectQuery("select name from schema_migrations order by applied_at").
		WillReturnRows(sqlmock.NewRows([]string{"name"}).AddRow("0001_a.up.sql"))
	mock.ExpectBegin()
	mock.ExpectExec("drop table a").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("delete from schema_migrations").WithArgs("0001_a.up.sql").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	name, err := NewManager(db, fsys, nil).Down(context.Background())
	if err != nil {
		t.Fatalf("Down: %v", err)
	}
	if name != "0001_a.up.sql" {
		t.Fatalf("unexpected rollback: %s", name)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestDownWithNothingApplied(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	expectTables(mock)
	mock.ExpectQuery("select name from schema_migrations order by applied_at").WillReturnRows(sqlmock.NewRows([]string{"name"}))

	if _, err := NewManager(db, fstest.MapFS{}, nil).Down(context.Background()); !errors.Is(err, ErrNothingToRollback) {
		t.Fatalf("expected ErrNothingToRollback, got %v", err)
	}
}

func TestSeedUsesSeedTable(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	seeds := fstest.MapFS{"0001_permissions.sql": {Data: []byte("insert into permissions (id) values ('p');")}}

	expectTables(mock)
	mock.ExpectQuery("select name from schema_seeds").WillReturnRows(sqlmock.NewRows([]string{"name"}))
	mock.ExpectBegin()
	mock.ExpectExec("insert into permissions").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("insert into schema_seeds").WithArgs("0001_permissions.sql", sqlmock.AnyArg()).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	applied, err := NewManager(db, nil, seeds).Seed(context.Background())
	if err != nil {
		t.Fatalf("Seed: %v", err)
	}
	if len(applied) != 1 {
		t.Fatalf("unexpected seeds applied: %v", applied)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}
