package eval

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/bedecarroll/unet-sub002/internal/model"
)

func TestCompareTable(t *testing.T) {
	cases := []struct {
		name    string
		op      string
		left    model.Value
		right   model.Value
		want    bool
		wantErr bool
	}{
		{name: "number eq", op: "==", left: model.Number(4), right: model.Number(4), want: true},
		{name: "number ne", op: "!=", left: model.Number(4), right: model.Number(5), want: true},
		{name: "number lt", op: "<", left: model.Number(4), right: model.Number(5), want: true},
		{name: "number gte equal", op: ">=", left: model.Number(5), right: model.Number(5), want: true},
		{name: "numeric string coerced", op: ">", left: model.String("10"), right: model.Number(9), want: true},
		{name: "both numeric strings", op: "<=", left: model.String("2"), right: model.String("10"), want: true},
		{name: "non-numeric string falls back to lexical", op: "<", left: model.String("16.11.01"), right: model.String("16.12.04"), want: true},
		{name: "string eq", op: "==", left: model.String("cisco"), right: model.String("cisco"), want: true},
		{name: "cross-kind eq is false", op: "==", left: model.Number(1), right: model.String("one"), want: false},
		{name: "bool strict eq", op: "==", left: model.Bool(true), right: model.Bool(true), want: true},
		{name: "bool ne", op: "!=", left: model.Bool(true), right: model.Bool(false), want: true},
		{name: "null eq null", op: "==", left: model.Null(), right: model.Null(), want: true},
		{name: "null ne value", op: "!=", left: model.Null(), right: model.String("x"), want: true},
		{name: "ordering on bool fails", op: "<", left: model.Bool(true), right: model.Bool(false), wantErr: true},
		{name: "ordering on null fails", op: ">", left: model.Null(), right: model.Null(), wantErr: true},
		{name: "ordering number vs plain string fails", op: "<", left: model.Number(1), right: model.String("abc"), wantErr: true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := compare(tc.op, tc.left, tc.right)
			if tc.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tc.want, got)
		})
	}
}

func TestCoerceNumber(t *testing.T) {
	n, ok := coerceNumber(model.Number(3.5))
	require.True(t, ok)
	require.Equal(t, 3.5, n)

	n, ok = coerceNumber(model.String("42"))
	require.True(t, ok)
	require.Equal(t, 42.0, n)

	_, ok = coerceNumber(model.String("v17.3"))
	require.False(t, ok)
	_, ok = coerceNumber(model.Bool(true))
	require.False(t, ok)
}

func TestCompareContainsNumericMembership(t *testing.T) {
	arr := model.Array(model.Number(1), model.Number(2))
	// a numeric-looking string matches a number element under coercion
	ok, err := compareContains(arr, model.String("2"))
	require.NoError(t, err)
	require.True(t, ok)
}

func TestSplitRegexLiteral(t *testing.T) {
	p, f := splitRegexLiteral("/^asr9/i")
	require.Equal(t, "^asr9", p)
	require.Equal(t, "i", f)

	p, f = splitRegexLiteral(`/a\/b/`)
	require.Equal(t, `a\/b`, p)
	require.Empty(t, f)
}
