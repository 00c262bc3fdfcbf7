package filter

import (
	"context"
	"encoding/json"
	"fmt"
	"slices"
	"strconv"
	"strings"
)

// AttributeLookup resolves the attribute names defined for a category.
// catalog.Catalog implementations satisfy it.
type AttributeLookup interface {
	AttributeNames(ctx context.Context, categoryID int64) (map[string]struct{}, error)
}

// Criteria is the search input the compiler turns into a predicate.
type Criteria struct {
	// CategoryID is required; every compiled predicate filters on it.
	CategoryID int64

	// Brand optionally restricts results to one brand.
	Brand *string

	// Price optionally bounds the price column.
	Price *PriceRange

	// Filters maps attribute names to conditions. One condition per attribute.
	Filters map[string]Condition
}

// Query is a compiled predicate. Predicate is the WHERE body without the keyword;
// Params holds every value it references, in binding order.
// The same Query backs both the count and the row query.
type Query struct {
	Predicate string `json:"predicate" msgpack:"predicate"`
	Params    Params `json:"params" msgpack:"params"`
}

// Compiler turns Criteria into a Query. It holds no per-call state and is
// safe for concurrent use.
type Compiler struct {
	attributes AttributeLookup
	opts       *Options
}

// NewCompiler creates a compiler that checks filter keys against attributes.
// If opts is nil, default options are used.
func NewCompiler(attributes AttributeLookup, opts *Options) *Compiler {
	return &Compiler{
		attributes: attributes,
		opts:       opts.WithDefaults(),
	}
}

// Options returns the effective rendering options.
func (c *Compiler) Options() *Options {
	return c.opts
}

// Compile builds the predicate for criteria.
//
// Terms are emitted in a fixed order: category, brand, price bounds, then one
// term per filter sorted by attribute name. Each filter is checked against the
// category's attributes, the identifier rules and its operator arity before any
// text is emitted for it; the first failure is returned as an *Error.
// The attribute lookup is skipped when there are no filters.
func (c *Compiler) Compile(ctx context.Context, criteria Criteria) (*Query, error) {
	b := newBinder(c.opts.Dialect)
	terms := make([]string, 0, 4+len(criteria.Filters))

	ph := b.bind("category_id", criteria.CategoryID)
	terms = append(terms, c.opts.Column(ColumnCategoryID)+" = "+ph)

	if criteria.Brand != nil {
		ph := b.bind("brand", *criteria.Brand)
		terms = append(terms, c.opts.Column(ColumnBrand)+" = "+ph)
	}

	if criteria.Price != nil {
		if criteria.Price.Min != nil {
			ph := b.bind("min_price", *criteria.Price.Min)
			terms = append(terms, c.opts.Column(ColumnPrice)+" >= "+c.opts.Dialect.NumericParam(ph))
		}
		if criteria.Price.Max != nil {
			ph := b.bind("max_price", *criteria.Price.Max)
			terms = append(terms, c.opts.Column(ColumnPrice)+" <= "+c.opts.Dialect.NumericParam(ph))
		}
	}

	if len(criteria.Filters) > 0 {
		allowed, err := c.attributes.AttributeNames(ctx, criteria.CategoryID)
		if err != nil {
			return nil, fmt.Errorf("filter: attributes of category %d: %w", criteria.CategoryID, err)
		}

		names := make([]string, 0, len(criteria.Filters))
		for name := range criteria.Filters {
			names = append(names, name)
		}
		slices.Sort(names)

		for _, name := range names {
			term, err := c.compileFilter(b, allowed, name, criteria.Filters[name])
			if err != nil {
				return nil, err
			}
			terms = append(terms, term)
		}
	}

	return &Query{
		Predicate: strings.Join(terms, " AND "),
		Params:    b.params,
	}, nil
}

// compileFilter validates one filter and renders its term.
func (c *Compiler) compileFilter(b *binder, allowed map[string]struct{}, attr string, cond Condition) (string, error) {
	if _, ok := allowed[attr]; !ok {
		return "", &Error{Attribute: attr, Kind: ErrUnknownAttribute, Reason: "not defined for category"}
	}
	if !IsIdentifier(attr) {
		return "", &Error{Attribute: attr, Kind: ErrInvalidFilter, Reason: "attribute name is not a plain identifier"}
	}
	if kind, reason := cond.check(); reason != "" {
		return "", &Error{Attribute: attr, Kind: kind, Reason: reason}
	}

	term, err := c.renderCondition(b, attr, cond)
	if err != nil {
		if fe, ok := err.(*Error); ok && fe.Attribute == "" {
			fe.Attribute = attr
		}
		return "", err
	}
	return term, nil
}

// renderCondition dispatches on the operator. Every value goes through the binder.
func (c *Compiler) renderCondition(b *binder, attr string, cond Condition) (string, error) {
	d := c.opts.Dialect
	doc := c.opts.Column(ColumnAttributes)
	op := cond.Operator

	switch op {
	case OperatorEqual, OperatorNotEqual:
		sign, err := op.Sign()
		if err != nil {
			return "", err
		}
		ph := b.bind(string(op)+"_"+attr, TextValue(cond.Value))
		return d.AttributeText(doc, attr) + " " + sign + " " + ph, nil

	case OperatorGreaterThan, OperatorLessThan, OperatorGreaterOrEqual, OperatorLessOrEqual:
		sign, err := op.Sign()
		if err != nil {
			return "", err
		}
		ph := b.bind(string(op)+"_"+attr, cond.Value)
		return d.AttributeNumeric(doc, attr) + " " + sign + " " + d.NumericParam(ph), nil

	case OperatorContains:
		pattern := "%" + escapeLike(TextValue(cond.Value)) + "%"
		ph := b.bind(string(op)+"_"+attr, pattern)
		return d.AttributeText(doc, attr) + " ILIKE " + ph + ` ESCAPE '\'`, nil

	case OperatorBetween:
		from := b.bind("between_from_"+attr, cond.From)
		to := b.bind("between_to_"+attr, cond.To)
		return d.AttributeNumeric(doc, attr) + " BETWEEN " + d.NumericParam(from) + " AND " + d.NumericParam(to), nil

	case OperatorIn:
		refs := make([]string, len(cond.Values))
		for i, v := range cond.Values {
			refs[i] = b.bind("in_"+attr+"_"+strconv.Itoa(i), TextValue(v))
		}
		return d.AttributeText(doc, attr) + " IN (" + strings.Join(refs, ", ") + ")", nil

	default:
		return "", &Error{Attribute: attr, Kind: ErrUnknownOperator, Reason: "unknown operator " + quote(string(op))}
	}
}

// TextValue converts a scalar to the text form it has inside a JSON document,
// so 16 and 16.0 both compare equal to the stored "16".
func TextValue(v any) string {
	switch x := v.(type) {
	case string:
		return x
	case json.Number:
		return x.String()
	case bool:
		return strconv.FormatBool(x)
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(x), 'f', -1, 32)
	case int:
		return strconv.Itoa(x)
	case int8, int16, int32, int64:
		return fmt.Sprintf("%d", x)
	case uint, uint8, uint16, uint32, uint64:
		return fmt.Sprintf("%d", x)
	case nil:
		return ""
	default:
		return fmt.Sprint(x)
	}
}

// escapeLike escapes LIKE metacharacters so user text matches literally.
func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}
