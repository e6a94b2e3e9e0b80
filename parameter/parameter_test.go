package parameter

import (
	"errors"
	"fmt"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/erraggy/rrest/rresterrors"
)

func TestNew(t *testing.T) {
	t.Run("valid descriptor", func(t *testing.T) {
		p, err := New("limit", TypeInteger, true, WithMinimum(1), WithMaximum(10), WithEnum("1", "5"), WithLocation(LocationQuery))
		require.NoError(t, err)
		assert.Equal(t, "limit", p.Name())
		assert.Equal(t, TypeInteger, p.Type())
		assert.True(t, p.Required())
		assert.Equal(t, LocationQuery, p.Location())
		assert.Equal(t, []string{"1", "5"}, p.Enum())
		minimum, ok := p.Minimum()
		assert.True(t, ok)
		assert.Equal(t, 1.0, minimum)
		assert.Equal(t, "limit (integer, required)", p.String())
	})

	tests := []struct {
		name string
		typ  Type
		opts []Option
		msg  string
	}{
		{name: "unknown type", typ: "uuid", msg: "uuid is not a valid type"},
		{name: "bad pattern", typ: TypeString, opts: []Option{WithPattern("([a-z")}, msg: "invalid pattern"},
		{name: "enum does not cast", typ: TypeInteger, opts: []Option{WithEnum("1", "two")}, msg: "enum value does not match type integer"},
		{name: "minimum above maximum", typ: TypeNumber, opts: []Option{WithMinimum(5), WithMaximum(1)}, msg: "minimum 5 is greater than maximum 1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New("p", tt.typ, false, tt.opts...)
			require.Error(t, err)
			assert.ErrorIs(t, err, rresterrors.ErrConfig)
			assert.Contains(t, err.Error(), tt.msg)
		})
	}

	t.Run("empty name", func(t *testing.T) {
		_, err := New("", TypeString, false)
		assert.ErrorIs(t, err, rresterrors.ErrConfig)
	})
}

func TestParseType(t *testing.T) {
	typ, err := ParseType("DateTime")
	require.NoError(t, err)
	assert.Equal(t, TypeDateTime, typ)

	_, err = ParseType("object")
	require.Error(t, err)
	assert.Equal(t, "object is not a valid type (number,string,boolean,date,date-only,time-only,datetime-only,datetime,file,integer)", err.Error())
}

func TestCast(t *testing.T) {
	rfc2616 := "Sun, 06 Nov 1994 08:49:37 GMT"
	when, _ := time.Parse(DefaultDateFormat, rfc2616)

	tests := []struct {
		name     string
		typ      Type
		raw      any
		expected any
		wantErr  bool
	}{
		{name: "string", typ: TypeString, raw: "abc", expected: "abc"},
		{name: "integer", typ: TypeInteger, raw: "42", expected: int64(42)},
		{name: "integer with fraction stays float", typ: TypeInteger, raw: "50.5", expected: 50.5},
		{name: "integer whole float", typ: TypeInteger, raw: "50.0", expected: int64(50)},
		{name: "integer not numeric", typ: TypeInteger, raw: "abc", wantErr: true},
		{name: "integer max int64", typ: TypeInteger, raw: "9223372036854775807", expected: int64(math.MaxInt64)},
		{name: "integer min int64", typ: TypeInteger, raw: "-9223372036854775808", expected: int64(math.MinInt64)},
		{name: "integer above int64", typ: TypeInteger, raw: "9223372036854775808", wantErr: true},
		{name: "integer below int64", typ: TypeInteger, raw: "-9223372036854775809", wantErr: true},
		{name: "integer exponent above int64", typ: TypeInteger, raw: "1e19", wantErr: true},
		{name: "integer exponent", typ: TypeInteger, raw: "1e3", expected: int64(1000)},
		{name: "number", typ: TypeNumber, raw: "3.14", expected: 3.14},
		{name: "number rejects NaN", typ: TypeNumber, raw: "NaN", wantErr: true},
		{name: "boolean true", typ: TypeBoolean, raw: "TRUE", expected: true},
		{name: "boolean zero", typ: TypeBoolean, raw: "0", expected: false},
		{name: "boolean yes", typ: TypeBoolean, raw: "yes", wantErr: true},
		{name: "datetime rfc2616", typ: TypeDateTime, raw: rfc2616, expected: when},
		{name: "datetime bad layout", typ: TypeDateTime, raw: "1994-11-06", wantErr: true},
		{name: "date-only", typ: TypeDateOnly, raw: "2017-11-08", expected: time.Date(2017, 11, 8, 0, 0, 0, 0, time.UTC)},
		{name: "time-only", typ: TypeTimeOnly, raw: "15:37:26", expected: time.Date(0, 1, 1, 15, 37, 26, 0, time.UTC)},
		{name: "file passes through", typ: TypeFile, raw: []byte("data"), expected: []byte("data")},
		{name: "url values unwrapped", typ: TypeInteger, raw: []string{"7"}, expected: int64(7)},
		{name: "typed value passes through", typ: TypeInteger, raw: int64(9), expected: int64(9)},
		{name: "typed value of wrong type", typ: TypeBoolean, raw: 12, wantErr: true},
		{name: "empty untouched", typ: TypeInteger, raw: "", expected: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := MustNew("p", tt.typ, false)
			got, err := p.Cast(tt.raw)
			if tt.wantErr {
				require.Error(t, err)
				var castErr *CastError
				assert.True(t, errors.As(err, &castErr))
				assert.Equal(t, tt.typ, castErr.Type)
				return
			}
			require.NoError(t, err)
			if want, ok := tt.expected.(time.Time); ok {
				assert.True(t, want.Equal(got.(time.Time)), "got %v", got)
				return
			}
			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestValidate_Required(t *testing.T) {
	for _, raw := range []any{nil, "", []string{}} {
		t.Run(fmt.Sprintf("required %T", raw), func(t *testing.T) {
			p := MustNew("name", TypeString, true, WithMinimum(3), WithPattern("^[a-z]+$"))
			_, errs := p.Validate(raw)
			require.Len(t, errs, 1)
			assert.Equal(t, "name is required", errs[0].Message)
			assert.Equal(t, rresterrors.KindRequired, errs[0].Code)
		})

		t.Run(fmt.Sprintf("optional %T", raw), func(t *testing.T) {
			p := MustNew("name", TypeString, false, WithMinimum(3))
			_, errs := p.Validate(raw)
			assert.Empty(t, errs)
		})
	}

	t.Run("false and zero are present", func(t *testing.T) {
		b := MustNew("flag", TypeBoolean, true)
		_, errs := b.Validate("false")
		assert.Empty(t, errs)

		i := MustNew("count", TypeInteger, true)
		_, errs = i.Validate("0")
		assert.Empty(t, errs)
	})
}

func TestValidate_Types(t *testing.T) {
	tests := []struct {
		typ Type
		raw string
		msg string
	}{
		{TypeInteger, "abc", "p is not an integer"},
		{TypeInteger, "50.5", "p is not an integer"},
		{TypeInteger, "9223372036854775808", "p is not an integer"},
		{TypeInteger, "-9223372036854775809", "p is not an integer"},
		{TypeNumber, "ten", "p is not a number"},
		{TypeBoolean, "yes", "p is not a boolean"},
		{TypeDateTime, "yesterday", "p is not a valid date"},
		{TypeDateOnly, "08/11/2017", "p is not a valid date"},
		{TypeTimeOnly, "25:00", "p is not a valid time"},
	}
	for _, tt := range tests {
		t.Run(string(tt.typ)+" "+tt.raw, func(t *testing.T) {
			p := MustNew("p", tt.typ, true)
			_, errs := p.Validate(tt.raw)
			require.Len(t, errs, 1)
			assert.Equal(t, tt.msg, errs[0].Message)
			assert.Equal(t, rresterrors.KindType, errs[0].Code)
			assert.Equal(t, "p", errs[0].Context.Field)
		})
	}
}

func TestValidate_Range(t *testing.T) {
	t.Run("integer below minimum", func(t *testing.T) {
		p := MustNew("id", TypeInteger, true, WithMinimum(50), WithMaximum(100))
		typed, errs := p.Validate("30")
		assert.Equal(t, int64(30), typed)
		require.Len(t, errs, 1)
		assert.Contains(t, errs[0].Message, "minimum size is 50")
		assert.Equal(t, rresterrors.KindMinimum, errs[0].Code)
	})

	t.Run("integer beyond int64 is a type error only", func(t *testing.T) {
		p := MustNew("id", TypeInteger, true, WithMinimum(0))
		typed, errs := p.Validate("9223372036854775808")
		assert.Equal(t, "9223372036854775808", typed)
		require.Len(t, errs, 1)
		assert.Equal(t, rresterrors.KindType, errs[0].Code)
		assert.Equal(t, "id is not an integer", errs[0].Message)
	})

	t.Run("number above maximum", func(t *testing.T) {
		p := MustNew("price", TypeNumber, true, WithMaximum(9.99))
		_, errs := p.Validate("10")
		require.Len(t, errs, 1)
		assert.Equal(t, "price maximum size is 9.99", errs[0].Message)
		assert.Equal(t, rresterrors.KindMaximum, errs[0].Code)
	})

	boundaries := []struct {
		name string
		raw  string
		kind rresterrors.ErrorKind
	}{
		{"at minimum", "abc", ""},
		{"at maximum", "abcde", ""},
		{"below minimum", "ab", rresterrors.KindMinLength},
		{"above maximum", "abcdef", rresterrors.KindMaxLength},
		{"counts characters not bytes", "été", ""},
	}
	for _, tt := range boundaries {
		t.Run("string "+tt.name, func(t *testing.T) {
			p := MustNew("code", TypeString, true, WithMinimum(3), WithMaximum(5))
			_, errs := p.Validate(tt.raw)
			if tt.kind == "" {
				assert.Empty(t, errs)
				return
			}
			require.Len(t, errs, 1)
			assert.Equal(t, tt.kind, errs[0].Code)
		})
	}

	t.Run("range skipped on type failure", func(t *testing.T) {
		p := MustNew("id", TypeInteger, true, WithMinimum(50))
		_, errs := p.Validate("abc")
		require.Len(t, errs, 1)
		assert.Equal(t, rresterrors.KindType, errs[0].Code)
	})
}

func TestValidate_PatternAndEnum(t *testing.T) {
	t.Run("pattern runs on the raw string", func(t *testing.T) {
		p := MustNew("zip", TypeInteger, true, WithPattern(`^\d{5}$`))
		typed, errs := p.Validate("01234")
		assert.Empty(t, errs)
		assert.Equal(t, int64(1234), typed)

		_, errs = p.Validate("1234")
		require.Len(t, errs, 1)
		assert.Equal(t, `zip does not match the specified pattern: ^\d{5}$`, errs[0].Message)
		assert.Equal(t, rresterrors.KindPattern, errs[0].Code)
	})

	t.Run("pattern is not anchored implicitly", func(t *testing.T) {
		p := MustNew("q", TypeString, true, WithPattern("[0-9]+"))
		_, errs := p.Validate("abc123")
		assert.Empty(t, errs)
	})

	t.Run("enum is strict on the cast value", func(t *testing.T) {
		p := MustNew("size", TypeInteger, true, WithEnum("1", "2"))
		_, errs := p.Validate("2")
		assert.Empty(t, errs)

		_, errs = p.Validate("3")
		require.Len(t, errs, 1)
		assert.Equal(t, "size must be one of the following: 1, 2", errs[0].Message)
		assert.Equal(t, rresterrors.KindEnum, errs[0].Code)
	})

	t.Run("checks accumulate independently", func(t *testing.T) {
		p := MustNew("color", TypeString, true, WithMaximum(3), WithPattern("^[a-z]+$"), WithEnum("red", "blue"))
		_, errs := p.Validate("GREEN")
		require.Len(t, errs, 3)
		assert.Equal(t, rresterrors.KindMaxLength, errs[0].Code)
		assert.Equal(t, rresterrors.KindPattern, errs[1].Code)
		assert.Equal(t, rresterrors.KindEnum, errs[2].Code)
	})
}

func TestValidate_DateChecksRawAndCast(t *testing.T) {
	p := MustNew("since", TypeDateTime, true, WithDateFormat(time.RFC3339))

	typed, errs := p.Validate("2017-11-08T15:37:26+00:00")
	assert.Empty(t, errs)
	assert.IsType(t, time.Time{}, typed)

	// A cast value with a raw string in another layout is rejected.
	errs = p.Check(typed, "Wed, 08 Nov 2017 15:37:26 GMT")
	require.Len(t, errs, 1)
	assert.Equal(t, rresterrors.KindType, errs[0].Code)
}

func TestHintedValueRevalidates(t *testing.T) {
	params := []*Parameter{
		MustNew("id", TypeInteger, true, WithMinimum(1)),
		MustNew("ratio", TypeNumber, false, WithMaximum(1)),
		MustNew("on", TypeBoolean, true),
		MustNew("tag", TypeString, false, WithEnum("a", "b")),
		MustNew("at", TypeDateOnly, false),
		MustNew("since", TypeDateTime, false, WithPattern("GMT$")),
		MustNew("day", TypeDateOnly, false, WithPattern(`^2020-\d{2}-\d{2}$`)),
		MustNew("stamp", TypeDateTime, false, WithDateFormat(time.RFC3339), WithPattern(`Z$`)),
	}
	raws := []string{"12", "0.5", "true", "a", "2020-02-29", "Sun, 06 Nov 1994 08:49:37 GMT", "2020-02-29", "2017-11-08T15:37:26Z"}

	for i, p := range params {
		t.Run(p.Name(), func(t *testing.T) {
			typed, errs := p.Validate(raws[i])
			require.Empty(t, errs)

			again, errs := p.Validate(typed)
			assert.Empty(t, errs)
			assert.Equal(t, typed, again)
		})
	}
}

func TestAssertValue(t *testing.T) {
	p := MustNew("id", TypeInteger, true)
	assert.NoError(t, p.AssertValue(int64(1), "1"))

	err := p.AssertValue(nil, "")
	require.Error(t, err)
	var paramErr *rresterrors.InvalidParameterError
	require.ErrorAs(t, err, &paramErr)
	assert.Equal(t, []string{"id is required"}, rresterrors.Messages(paramErr.Errors))
}

func ExampleParameter_Validate() {
	p := MustNew("id", TypeInteger, true, WithMinimum(50), WithMaximum(100))

	_, errs := p.Validate("30")
	for _, e := range errs {
		fmt.Println(e.Code, e.Message)
	}
	// Output:
	// minimum id minimum size is 50
}
