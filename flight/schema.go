package flight

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/decimal128"
	"github.com/apache/arrow-go/v18/arrow/memory"

	"github.com/hugr-lab/productsearch-go/search"
)

// Page metadata keys attached to the schema of a DoGet stream.
const (
	MetaTotalCount    = "total_count"
	MetaPage          = "page"
	MetaLimit         = "limit"
	MetaSortField     = "sort_field"
	MetaSortDirection = "sort_direction"
)

// PriceType stores prices in cents as DECIMAL(18, 2).
var PriceType = &arrow.Decimal128Type{Precision: 18, Scale: 2}

var productFields = []arrow.Field{
	{Name: "id", Type: arrow.PrimitiveTypes.Int64},
	{Name: "sku", Type: arrow.BinaryTypes.String},
	{Name: "name", Type: arrow.BinaryTypes.String},
	{Name: "category_id", Type: arrow.PrimitiveTypes.Int64},
	{Name: "brand", Type: arrow.BinaryTypes.String, Nullable: true},
	{Name: "description", Type: arrow.BinaryTypes.String, Nullable: true},
	{Name: "price", Type: PriceType},
	{Name: "weight", Type: arrow.PrimitiveTypes.Float64, Nullable: true},
	{
		Name:     "attributes",
		Type:     arrow.BinaryTypes.String,
		Nullable: true,
		Metadata: arrow.NewMetadata([]string{"content_type"}, []string{"application/json"}),
	},
	{Name: "created_at", Type: &arrow.TimestampType{Unit: arrow.Microsecond, TimeZone: "UTC"}, Nullable: true},
}

// ProductSchema returns the Arrow schema of search results without page metadata.
func ProductSchema() *arrow.Schema {
	return arrow.NewSchema(productFields, nil)
}

// PageSchema returns the product schema annotated with page metadata.
func PageSchema(page *search.Page[search.Product]) *arrow.Schema {
	md := arrow.NewMetadata(
		[]string{MetaTotalCount, MetaPage, MetaLimit, MetaSortField, MetaSortDirection},
		[]string{
			strconv.FormatInt(page.TotalCount, 10),
			strconv.Itoa(page.Page),
			strconv.Itoa(page.Limit),
			page.Sort.Field,
			string(page.Sort.Direction),
		},
	)
	return arrow.NewSchema(productFields, &md)
}

// BuildRecord converts page items into one record batch. The caller releases it.
func BuildRecord(alloc memory.Allocator, schema *arrow.Schema, items []search.Product) (arrow.RecordBatch, error) {
	builder := array.NewRecordBuilder(alloc, schema)
	defer builder.Release()

	ids := builder.Field(0).(*array.Int64Builder)
	skus := builder.Field(1).(*array.StringBuilder)
	names := builder.Field(2).(*array.StringBuilder)
	categories := builder.Field(3).(*array.Int64Builder)
	brands := builder.Field(4).(*array.StringBuilder)
	descriptions := builder.Field(5).(*array.StringBuilder)
	prices := builder.Field(6).(*array.Decimal128Builder)
	weights := builder.Field(7).(*array.Float64Builder)
	attributes := builder.Field(8).(*array.StringBuilder)
	created := builder.Field(9).(*array.TimestampBuilder)

	for _, p := range items {
		ids.Append(p.ID)
		skus.Append(p.SKU)
		names.Append(p.Name)
		categories.Append(p.CategoryID)
		brands.Append(p.Brand)
		descriptions.Append(p.Description)
		prices.Append(decimal128.FromI64(int64(p.Price)))
		weights.Append(p.Weight)

		if p.Attributes == nil {
			attributes.AppendNull()
		} else {
			doc, err := json.Marshal(p.Attributes)
			if err != nil {
				return nil, fmt.Errorf("product %d: encode attributes: %w", p.ID, err)
			}
			attributes.Append(string(doc))
		}

		if p.CreatedAt.IsZero() {
			created.AppendNull()
		} else {
			created.Append(arrow.Timestamp(p.CreatedAt.UnixMicro()))
		}
	}

	return builder.NewRecordBatch(), nil
}
