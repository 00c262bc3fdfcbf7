package filter

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// attributeSet is an in-memory AttributeLookup that counts calls.
type attributeSet struct {
	names map[string]struct{}
	calls int
	err   error
}

func newAttributeSet(names ...string) *attributeSet {
	s := &attributeSet{names: make(map[string]struct{}, len(names))}
	for _, n := range names {
		s.names[n] = struct{}{}
	}
	return s
}

func (s *attributeSet) AttributeNames(ctx context.Context, categoryID int64) (map[string]struct{}, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return s.names, nil
}

func laptopAttributes() *attributeSet {
	return newAttributeSet("RAM", "processor", "screen_size", "storage_type", "color")
}

func ptr[T any](v T) *T { return &v }

func TestCompileEmptyFilters(t *testing.T) {
	attrs := laptopAttributes()
	c := NewCompiler(attrs, nil)

	q, err := c.Compile(context.Background(), Criteria{CategoryID: 2})
	require.NoError(t, err)

	assert.Equal(t, "p.category_id = $category_id", q.Predicate)
	assert.Equal(t, []string{"category_id"}, q.Params.Names())
	v, ok := q.Params.Lookup("category_id")
	require.True(t, ok)
	assert.Equal(t, int64(2), v)
	assert.Zero(t, attrs.calls, "attribute lookup must be skipped without filters")
}

func TestCompilePriceRange(t *testing.T) {
	c := NewCompiler(laptopAttributes(), nil)

	tests := []struct {
		name      string
		price     *PriceRange
		predicate string
		params    []string
	}{
		{
			name:      "both bounds",
			price:     &PriceRange{Min: ptr(100.0), Max: ptr(2000.0)},
			predicate: "p.category_id = $category_id AND p.price >= TRY_CAST(CAST($min_price AS VARCHAR) AS DOUBLE) AND p.price <= TRY_CAST(CAST($max_price AS VARCHAR) AS DOUBLE)",
			params:    []string{"category_id", "min_price", "max_price"},
		},
		{
			name:      "min only",
			price:     &PriceRange{Min: ptr(100.0)},
			predicate: "p.category_id = $category_id AND p.price >= TRY_CAST(CAST($min_price AS VARCHAR) AS DOUBLE)",
			params:    []string{"category_id", "min_price"},
		},
		{
			name:      "max only",
			price:     &PriceRange{Max: ptr(50.0)},
			predicate: "p.category_id = $category_id AND p.price <= TRY_CAST(CAST($max_price AS VARCHAR) AS DOUBLE)",
			params:    []string{"category_id", "max_price"},
		},
		{
			name:      "no bounds",
			price:     &PriceRange{},
			predicate: "p.category_id = $category_id",
			params:    []string{"category_id"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q, err := c.Compile(context.Background(), Criteria{CategoryID: 2, Price: tt.price})
			require.NoError(t, err)
			assert.Equal(t, tt.predicate, q.Predicate)
			assert.Equal(t, tt.params, q.Params.Names())
		})
	}
}

func TestCompileBrand(t *testing.T) {
	c := NewCompiler(laptopAttributes(), nil)

	q, err := c.Compile(context.Background(), Criteria{CategoryID: 2, Brand: ptr("Lenovo")})
	require.NoError(t, err)
	assert.Equal(t, "p.category_id = $category_id AND p.brand = $brand", q.Predicate)

	v, ok := q.Params.Lookup("brand")
	require.True(t, ok)
	assert.Equal(t, "Lenovo", v)
}

func TestCompileOperators(t *testing.T) {
	c := NewCompiler(laptopAttributes(), nil)

	tests := []struct {
		name   string
		cond   Condition
		term   string
		params map[string]any
	}{
		{
			name:   "eq",
			cond:   Condition{Operator: OperatorEqual, Value: "black"},
			term:   "(p.attributes ->> '$.color') = $eq_color",
			params: map[string]any{"eq_color": "black"},
		},
		{
			name:   "ne",
			cond:   Condition{Operator: OperatorNotEqual, Value: "black"},
			term:   "(p.attributes ->> '$.color') != $ne_color",
			params: map[string]any{"ne_color": "black"},
		},
		{
			name:   "eq numeric value is compared as text",
			cond:   Condition{Operator: OperatorEqual, Value: 16.0},
			term:   "(p.attributes ->> '$.color') = $eq_color",
			params: map[string]any{"eq_color": "16"},
		},
		{
			name:   "gt",
			cond:   Condition{Operator: OperatorGreaterThan, Value: 8},
			term:   "TRY_CAST(p.attributes ->> '$.color' AS DOUBLE) > TRY_CAST(CAST($gt_color AS VARCHAR) AS DOUBLE)",
			params: map[string]any{"gt_color": 8},
		},
		{
			name:   "lt",
			cond:   Condition{Operator: OperatorLessThan, Value: 8},
			term:   "TRY_CAST(p.attributes ->> '$.color' AS DOUBLE) < TRY_CAST(CAST($lt_color AS VARCHAR) AS DOUBLE)",
			params: map[string]any{"lt_color": 8},
		},
		{
			name:   "gte",
			cond:   Condition{Operator: OperatorGreaterOrEqual, Value: 8},
			term:   "TRY_CAST(p.attributes ->> '$.color' AS DOUBLE) >= TRY_CAST(CAST($gte_color AS VARCHAR) AS DOUBLE)",
			params: map[string]any{"gte_color": 8},
		},
		{
			name:   "lte",
			cond:   Condition{Operator: OperatorLessOrEqual, Value: 8},
			term:   "TRY_CAST(p.attributes ->> '$.color' AS DOUBLE) <= TRY_CAST(CAST($lte_color AS VARCHAR) AS DOUBLE)",
			params: map[string]any{"lte_color": 8},
		},
		{
			name:   "contains escapes like metacharacters",
			cond:   Condition{Operator: OperatorContains, Value: `50%_off\`},
			term:   `(p.attributes ->> '$.color') ILIKE $contains_color ESCAPE '\'`,
			params: map[string]any{"contains_color": `%50\%\_off\\%`},
		},
		{
			name:   "between",
			cond:   Condition{Operator: OperatorBetween, From: 1, To: 5},
			term:   "TRY_CAST(p.attributes ->> '$.color' AS DOUBLE) BETWEEN TRY_CAST(CAST($between_from_color AS VARCHAR) AS DOUBLE) AND TRY_CAST(CAST($between_to_color AS VARCHAR) AS DOUBLE)",
			params: map[string]any{"between_from_color": 1, "between_to_color": 5},
		},
		{
			name:   "in",
			cond:   Condition{Operator: OperatorIn, Values: []any{"red", "blue", 3}},
			term:   "(p.attributes ->> '$.color') IN ($in_color_0, $in_color_1, $in_color_2)",
			params: map[string]any{"in_color_0": "red", "in_color_1": "blue", "in_color_2": "3"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q, err := c.Compile(context.Background(), Criteria{
				CategoryID: 2,
				Filters:    map[string]Condition{"color": tt.cond},
			})
			require.NoError(t, err)
			assert.Equal(t, "p.category_id = $category_id AND "+tt.term, q.Predicate)

			got := q.Params.Map()
			delete(got, "category_id")
			assert.Equal(t, tt.params, got)
		})
	}
}

// Scenario: laptops with at least 16GB RAM, an Intel processor, a 14 to 15.6
// inch screen and SSD storage.
func TestCompileLaptopSearch(t *testing.T) {
	c := NewCompiler(laptopAttributes(), nil)

	q, err := c.Compile(context.Background(), Criteria{
		CategoryID: 2,
		Filters: map[string]Condition{
			"RAM":          {Operator: OperatorGreaterOrEqual, Value: 16},
			"processor":    {Operator: OperatorContains, Value: "intel"},
			"screen_size":  {Operator: OperatorBetween, From: 14.0, To: 15.6},
			"storage_type": {Operator: OperatorIn, Values: []any{"SSD"}},
		},
	})
	require.NoError(t, err)

	want := strings.Join([]string{
		"p.category_id = $category_id",
		"TRY_CAST(p.attributes ->> '$.RAM' AS DOUBLE) >= TRY_CAST(CAST($gte_ram AS VARCHAR) AS DOUBLE)",
		`(p.attributes ->> '$.processor') ILIKE $contains_processor ESCAPE '\'`,
		"TRY_CAST(p.attributes ->> '$.screen_size' AS DOUBLE) BETWEEN TRY_CAST(CAST($between_from_screen_size AS VARCHAR) AS DOUBLE) AND TRY_CAST(CAST($between_to_screen_size AS VARCHAR) AS DOUBLE)",
		"(p.attributes ->> '$.storage_type') IN ($in_storage_type_0)",
	}, " AND ")
	assert.Equal(t, want, q.Predicate)

	// five bound values beyond the category id
	assert.Equal(t, []string{
		"category_id",
		"gte_ram",
		"contains_processor",
		"between_from_screen_size",
		"between_to_screen_size",
		"in_storage_type_0",
	}, q.Params.Names())
	assert.Len(t, q.Params, 6)
}

func TestCompileBetweenParams(t *testing.T) {
	c := NewCompiler(laptopAttributes(), nil)

	q, err := c.Compile(context.Background(), Criteria{
		CategoryID: 2,
		Filters: map[string]Condition{
			"screen_size": {Operator: OperatorBetween, From: 14.0, To: 15.6},
		},
	})
	require.NoError(t, err)

	var count int
	for _, name := range q.Params.Names() {
		if strings.HasSuffix(name, "_screen_size") {
			count++
		}
	}
	assert.Equal(t, 2, count)

	for _, tt := range []struct {
		name string
		cond Condition
	}{
		{"missing from", Condition{Operator: OperatorBetween, To: 15.6}},
		{"missing to", Condition{Operator: OperatorBetween, From: 14.0}},
		{"missing both", Condition{Operator: OperatorBetween}},
	} {
		t.Run(tt.name, func(t *testing.T) {
			_, err := c.Compile(context.Background(), Criteria{
				CategoryID: 2,
				Filters:    map[string]Condition{"screen_size": tt.cond},
			})
			require.ErrorIs(t, err, ErrInvalidFilter)

			var fe *Error
			require.ErrorAs(t, err, &fe)
			assert.Equal(t, "screen_size", fe.Attribute)
		})
	}
}

func TestCompileInParams(t *testing.T) {
	c := NewCompiler(laptopAttributes(), nil)

	for _, n := range []int{1, 2, 5, 12} {
		t.Run(fmt.Sprintf("%d values", n), func(t *testing.T) {
			values := make([]any, n)
			for i := range values {
				values[i] = fmt.Sprintf("v%d", i)
			}
			q, err := c.Compile(context.Background(), Criteria{
				CategoryID: 2,
				Filters:    map[string]Condition{"storage_type": {Operator: OperatorIn, Values: values}},
			})
			require.NoError(t, err)

			seen := map[string]bool{}
			for _, name := range q.Params.Names() {
				if strings.HasPrefix(name, "in_storage_type_") {
					assert.False(t, seen[name], "duplicate parameter %s", name)
					seen[name] = true
				}
			}
			assert.Len(t, seen, n)

			start := strings.Index(q.Predicate, "IN (")
			require.NotEqual(t, -1, start)
			list := strings.TrimSuffix(q.Predicate[start+len("IN ("):], ")")
			assert.Len(t, strings.Split(list, ", "), n)
		})
	}

	_, err := c.Compile(context.Background(), Criteria{
		CategoryID: 2,
		Filters:    map[string]Condition{"storage_type": {Operator: OperatorIn, Values: []any{}}},
	})
	assert.ErrorIs(t, err, ErrInvalidFilter)
}

func TestCompileDeterministic(t *testing.T) {
	c := NewCompiler(laptopAttributes(), &Options{Dialect: Postgres})
	criteria := Criteria{
		CategoryID: 7,
		Brand:      ptr("Dell"),
		Price:      &PriceRange{Min: ptr(10.0)},
		Filters: map[string]Condition{
			"storage_type": {Operator: OperatorIn, Values: []any{"SSD", "NVMe"}},
			"RAM":          {Operator: OperatorGreaterOrEqual, Value: 16},
			"color":        {Operator: OperatorNotEqual, Value: "pink"},
			"processor":    {Operator: OperatorContains, Value: "amd"},
			"screen_size":  {Operator: OperatorBetween, From: 13, To: 14},
		},
	}

	first, err := c.Compile(context.Background(), criteria)
	require.NoError(t, err)
	for range 20 {
		again, err := c.Compile(context.Background(), criteria)
		require.NoError(t, err)
		assert.Equal(t, first.Predicate, again.Predicate)
		assert.Equal(t, first.Params, again.Params)
	}
}

func TestCompileNeverEmbedsValues(t *testing.T) {
	c := NewCompiler(laptopAttributes(), nil)
	hostile := []string{
		"'; DROP TABLE products; --",
		"x' OR '1'='1",
		"$category_id",
		"robert\"); --",
	}

	for i, v := range hostile {
		t.Run(fmt.Sprintf("value %d", i), func(t *testing.T) {
			q, err := c.Compile(context.Background(), Criteria{
				CategoryID: 2,
				Brand:      ptr(v),
				Filters: map[string]Condition{
					"color":        {Operator: OperatorEqual, Value: v},
					"processor":    {Operator: OperatorContains, Value: v},
					"storage_type": {Operator: OperatorIn, Values: []any{v, v}},
				},
			})
			require.NoError(t, err)
			if v != "$category_id" {
				assert.NotContains(t, q.Predicate, v)
			}
			assert.NotContains(t, q.Predicate, "DROP")
			assert.NotContains(t, q.Predicate, "'1'='1")
		})
	}
}

func TestCompileUnknownAttribute(t *testing.T) {
	c := NewCompiler(laptopAttributes(), nil)

	_, err := c.Compile(context.Background(), Criteria{
		CategoryID: 2,
		Filters: map[string]Condition{
			"RAM":       {Operator: OperatorGreaterOrEqual, Value: 16},
			"megapixel": {Operator: OperatorGreaterThan, Value: 12},
		},
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnknownAttribute)
	assert.ErrorIs(t, err, ErrInvalidFilter)

	var fe *Error
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, "megapixel", fe.Attribute)
}

func TestCompileUnsafeAttributeName(t *testing.T) {
	attrs := newAttributeSet("screen size", "a'b", "ok")
	c := NewCompiler(attrs, nil)

	for _, name := range []string{"screen size", "a'b"} {
		t.Run(name, func(t *testing.T) {
			_, err := c.Compile(context.Background(), Criteria{
				CategoryID: 1,
				Filters:    map[string]Condition{name: {Operator: OperatorEqual, Value: "x"}},
			})
			require.ErrorIs(t, err, ErrInvalidFilter)
			assert.NotErrorIs(t, err, ErrUnknownAttribute)
		})
	}
}

func TestCompileUnknownOperator(t *testing.T) {
	c := NewCompiler(laptopAttributes(), nil)

	_, err := c.Compile(context.Background(), Criteria{
		CategoryID: 2,
		Filters:    map[string]Condition{"RAM": {Operator: "like", Value: "x"}},
	})
	require.ErrorIs(t, err, ErrUnknownOperator)
	assert.NotErrorIs(t, err, ErrInvalidFilter)
	assert.Contains(t, err.Error(), `"like"`)
	assert.Contains(t, err.Error(), `"RAM"`)
}

func TestCompileMissingValue(t *testing.T) {
	c := NewCompiler(laptopAttributes(), nil)

	for _, op := range []Operator{
		OperatorEqual, OperatorNotEqual, OperatorGreaterThan, OperatorLessThan,
		OperatorGreaterOrEqual, OperatorLessOrEqual, OperatorContains,
	} {
		t.Run(op.String(), func(t *testing.T) {
			_, err := c.Compile(context.Background(), Criteria{
				CategoryID: 2,
				Filters:    map[string]Condition{"RAM": {Operator: op}},
			})
			assert.ErrorIs(t, err, ErrInvalidFilter)
		})
	}
}

func TestCompileReportsFirstErrorInNameOrder(t *testing.T) {
	c := NewCompiler(laptopAttributes(), nil)

	_, err := c.Compile(context.Background(), Criteria{
		CategoryID: 2,
		Filters: map[string]Condition{
			"zoom":        {Operator: OperatorEqual, Value: 1},
			"screen_size": {Operator: OperatorBetween, From: 1},
			"RAM":         {Operator: OperatorGreaterThan, Value: 1},
		},
	})
	var fe *Error
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, "screen_size", fe.Attribute)
	assert.ErrorIs(t, err, ErrInvalidFilter)
}

func TestCompileParamCaseCollision(t *testing.T) {
	// Attribute names differing only by case lowercase to the same parameter.
	c := NewCompiler(newAttributeSet("Color", "color"), nil)

	q, err := c.Compile(context.Background(), Criteria{
		CategoryID: 1,
		Filters: map[string]Condition{
			"Color": {Operator: OperatorEqual, Value: "a"},
			"color": {Operator: OperatorEqual, Value: "b"},
		},
	})
	require.NoError(t, err)
	assert.Equal(t,
		"p.category_id = $category_id AND (p.attributes ->> '$.Color') = $eq_color AND (p.attributes ->> '$.color') = $eq_color_2",
		q.Predicate)
	assert.Equal(t, []string{"category_id", "eq_color", "eq_color_2"}, q.Params.Names())
	v, ok := q.Params.Lookup("eq_color_2")
	require.True(t, ok)
	assert.Equal(t, "b", v)
}

func TestBinderSuffixes(t *testing.T) {
	b := newBinder(Postgres)
	assert.Equal(t, "@in_x_1", b.bind("in_x_1", 1))
	assert.Equal(t, "@in_x", b.bind("IN_X", 2))
	assert.Equal(t, "@in_x_2", b.bind("in_x", 3))
	assert.Equal(t, "@in_x_1_2", b.bind("in_X_1", 4))
	assert.Equal(t, "@in_x_3", b.bind("in_x", 5))
	assert.Len(t, b.params, 5)
}

func TestCompileLookupError(t *testing.T) {
	attrs := laptopAttributes()
	attrs.err = errors.New("catalog offline")
	c := NewCompiler(attrs, nil)

	_, err := c.Compile(context.Background(), Criteria{
		CategoryID: 2,
		Filters:    map[string]Condition{"RAM": {Operator: OperatorEqual, Value: 1}},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "catalog offline")
	assert.Equal(t, 1, attrs.calls)
}

func TestCompilePostgres(t *testing.T) {
	c := NewCompiler(laptopAttributes(), &Options{Dialect: Postgres})

	q, err := c.Compile(context.Background(), Criteria{
		CategoryID: 2,
		Price:      &PriceRange{Max: ptr(999.0)},
		Filters: map[string]Condition{
			"RAM":          {Operator: OperatorGreaterOrEqual, Value: 16},
			"storage_type": {Operator: OperatorIn, Values: []any{"SSD", "HDD"}},
		},
	})
	require.NoError(t, err)

	want := "p.category_id = @category_id" +
		" AND p.price <= CAST(@max_price AS NUMERIC)" +
		" AND (p.attributes ->> 'RAM')::NUMERIC >= CAST(@gte_ram AS NUMERIC)" +
		" AND (p.attributes ->> 'storage_type') IN (@in_storage_type_0, @in_storage_type_1)"
	assert.Equal(t, want, q.Predicate)
}

func TestCompileColumnMapping(t *testing.T) {
	c := NewCompiler(laptopAttributes(), &Options{
		Alias:         "prod",
		ColumnMapping: map[string]string{ColumnCategoryID: "cat", ColumnAttributes: "doc"},
	})

	q, err := c.Compile(context.Background(), Criteria{
		CategoryID: 3,
		Filters:    map[string]Condition{"color": {Operator: OperatorEqual, Value: "red"}},
	})
	require.NoError(t, err)
	assert.Equal(t, "prod.cat = $category_id AND (prod.doc ->> '$.color') = $eq_color", q.Predicate)
}

func TestTextValue(t *testing.T) {
	tests := []struct {
		in   any
		want string
	}{
		{"SSD", "SSD"},
		{16, "16"},
		{int64(-3), "-3"},
		{uint8(7), "7"},
		{16.0, "16"},
		{15.6, "15.6"},
		{float32(1.5), "1.5"},
		{true, "true"},
		{nil, ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, TextValue(tt.in), "TextValue(%#v)", tt.in)
	}
}
