package sqlutil

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDialectFor(t *testing.T) {
	d, err := DialectFor("mysql")
	require.NoError(t, err)
	assert.Equal(t, MySQL, d)

	d, err = DialectFor("postgres")
	require.NoError(t, err)
	assert.Equal(t, Postgres, d)

	d, err = DialectFor("pgx")
	require.NoError(t, err)
	assert.Equal(t, Postgres, d)

	_, err = DialectFor("sqlite")
	assert.Error(t, err)
}

func TestQuoteIdentifier_Valid(t *testing.T) {
	tests := []struct {
		name     string
		dialect  Dialect
		input    string
		expected string
	}{
		{"MySQL simple", MySQL, "users", "`users`"},
		{"MySQL underscore", MySQL, "order_items", "`order_items`"},
		{"MySQL empty", MySQL, "", "``"},
		{"Postgres simple", Postgres, "users", `"users"`},
		{"Postgres mixed case", Postgres, "MyTable", `"MyTable"`},
		{"Postgres empty", Postgres, "", `""`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.dialect.QuoteIdentifier(tt.input))
		})
	}
}

func TestQuoteIdentifier_EscapeQuotes(t *testing.T) {
	tests := []struct {
		name     string
		dialect  Dialect
		input    string
		expected string
	}{
		{"MySQL single backtick", MySQL, "my`table", "`my``table`"},
		{"MySQL backtick at end", MySQL, "table`", "`table```"},
		{"MySQL double quote untouched", MySQL, `my"table`, "`my\"table`"},
		{"Postgres single quote char", Postgres, `my"table`, `"my""table"`},
		{"Postgres only quotes", Postgres, `""`, `""""""`},
		{"Postgres backtick untouched", Postgres, "my`table", "\"my`table\""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.dialect.QuoteIdentifier(tt.input))
		})
	}
}

func TestQualifiedName(t *testing.T) {
	assert.Equal(t, "`hr`.`employees`", MySQL.QualifiedName("hr", "employees"))
	assert.Equal(t, `"public"."employees"`, Postgres.QualifiedName("public", "employees"))
	assert.Equal(t, `"employees"`, Postgres.QualifiedName("", "employees"))
}

func TestQuoteList(t *testing.T) {
	assert.Equal(t, "`a`, `b`", MySQL.QuoteList([]string{"a", "b"}))
	assert.Equal(t, `"a"`, Postgres.QuoteList([]string{"a"}))
	assert.Equal(t, "", Postgres.QuoteList(nil))
}

func TestPlaceholder(t *testing.T) {
	assert.Equal(t, "?", MySQL.Placeholder(1))
	assert.Equal(t, "?", MySQL.Placeholder(2))
	assert.Equal(t, "$1", Postgres.Placeholder(1))
	assert.Equal(t, "$2", Postgres.Placeholder(2))
}

func TestIsValidIdentifier(t *testing.T) {
	valid := []string{"users", "order_items", "MyTable", "table123", "___"}
	for _, name := range valid {
		assert.True(t, IsValidIdentifier(name), name)
	}

	invalid := []string{"", "my table", "my-table", "db.table", "my`table", "users; DROP TABLE users--", "table'name"}
	for _, name := range invalid {
		assert.False(t, IsValidIdentifier(name), name)
	}
}

func TestQuoteIdentifierSafe(t *testing.T) {
	quoted, err := Postgres.QuoteIdentifierSafe("employees")
	require.NoError(t, err)
	assert.Equal(t, `"employees"`, quoted)

	_, err = MySQL.QuoteIdentifierSafe("bad name")
	require.Error(t, err)

	var idErr *InvalidIdentifierError
	require.ErrorAs(t, err, &idErr)
	assert.Equal(t, "bad name", idErr.Name)
	assert.Contains(t, err.Error(), "invalid identifier")
}

func TestDialectString(t *testing.T) {
	assert.Equal(t, "mysql", MySQL.String())
	assert.Equal(t, "postgres", Postgres.String())
}
