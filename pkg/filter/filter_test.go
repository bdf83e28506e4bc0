package filter

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/parqstat/parqstat/internal/errors"
	"github.com/parqstat/parqstat/pkg/value"
)

// mapRow backs a Row with a plain map for tests.
type mapRow map[string]value.Raw

func (m mapRow) Value(column string) (value.Raw, bool) {
	v, ok := m[column]
	return v, ok
}

func TestIsNoop(t *testing.T) {
	assert.True(t, IsNoop(nil))
	assert.True(t, IsNoop(Noop))
	assert.False(t, IsNoop(Eq("a", value.Int64Value(1))))
	// And() matches everything but is not the sentinel.
	assert.False(t, IsNoop(And()))
}

func TestCompareMatches(t *testing.T) {
	row := mapRow{
		"idx":  value.Int64Value(50),
		"name": value.StringValue("delta"),
		"flag": value.BoolValue(true),
	}

	tests := []struct {
		name string
		f    Filter
		want bool
	}{
		{"eq hit", Eq("idx", value.Int64Value(50)), true},
		{"eq miss", Eq("idx", value.Int64Value(51)), false},
		{"lt", Lt("idx", value.Int64Value(51)), true},
		{"lt boundary", Lt("idx", value.Int64Value(50)), false},
		{"le boundary", Le("idx", value.Int64Value(50)), true},
		{"gt", Gt("idx", value.Int64Value(49)), true},
		{"ge boundary", Ge("idx", value.Int64Value(50)), true},
		{"int32 literal promotes", Gt("idx", value.Int32Value(49)), true},
		{"string eq", Eq("name", value.StringValue("delta")), true},
		{"string lt", Lt("name", value.StringValue("echo")), true},
		{"bool eq", Eq("flag", value.BoolValue(true)), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.f.Matches(row)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestAbsentColumnNeverMatches(t *testing.T) {
	row := mapRow{"idx": value.Int64Value(1)}

	for _, f := range []Filter{
		Eq("missing", value.Int64Value(1)),
		Lt("missing", value.Int64Value(1)),
		Ge("missing", value.Int64Value(1)),
		In("missing", value.Int64Value(1)),
	} {
		got, err := f.Matches(row)
		require.NoError(t, err)
		assert.False(t, got, "%s should not match an absent column", f)
	}

	// But negation of a comparison over an absent column does match.
	got, err := Not(Eq("missing", value.Int64Value(1))).Matches(row)
	require.NoError(t, err)
	assert.True(t, got)
}

func TestKindMismatchIsError(t *testing.T) {
	row := mapRow{"idx": value.Int64Value(1)}

	_, err := Eq("idx", value.StringValue("1")).Matches(row)
	require.Error(t, err)
	assert.Equal(t, errors.CodeKindMismatch, errors.GetCode(err))

	_, err = In("idx", value.Int64Value(0), value.BoolValue(true)).Matches(row)
	require.Error(t, err)
}

func TestMembership(t *testing.T) {
	row := mapRow{"region": value.StringValue("eu-west-1")}

	got, err := In("region", value.StringValue("us-east-1"), value.StringValue("eu-west-1")).Matches(row)
	require.NoError(t, err)
	assert.True(t, got)

	got, err = In("region", value.StringValue("us-east-1")).Matches(row)
	require.NoError(t, err)
	assert.False(t, got)

	got, err = In("region").Matches(row)
	require.NoError(t, err)
	assert.False(t, got)
}

func TestComposition(t *testing.T) {
	row := mapRow{"idx": value.Int64Value(50), "flag": value.BoolValue(false)}

	band := And(Gt("idx", value.Int64Value(16)), Le("idx", value.Int64Value(116)))
	got, err := band.Matches(row)
	require.NoError(t, err)
	assert.True(t, got)

	either := Or(Eq("flag", value.BoolValue(true)), Eq("idx", value.Int64Value(50)))
	got, err = either.Matches(row)
	require.NoError(t, err)
	assert.True(t, got)

	got, err = Not(band).Matches(row)
	require.NoError(t, err)
	assert.False(t, got)

	// Empty conjunction matches, empty disjunction does not.
	got, err = And().Matches(row)
	require.NoError(t, err)
	assert.True(t, got)

	got, err = Or().Matches(row)
	require.NoError(t, err)
	assert.False(t, got)
}

func TestColumnsDeduplicated(t *testing.T) {
	f := And(
		Gt("idx", value.Int64Value(1)),
		Lt("idx", value.Int64Value(9)),
		Eq("name", value.StringValue("x")),
	)
	assert.Equal(t, []string{"idx", "name"}, f.Columns())
	assert.Nil(t, Noop.Columns())
}

func TestFilterString(t *testing.T) {
	f := And(Gt("idx", value.Int64Value(16)), Le("idx", value.Int64Value(116)))
	assert.Equal(t, "(idx > 16) && (idx <= 116)", f.String())
	assert.Equal(t, "noop", Noop.String())
}
