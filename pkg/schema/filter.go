package schema

import "github.com/hamba/avro/v2"

const ProductFilterSchemaTextV1 = `{
	"type": "record",
	"namespace": "farmbridge.products",
	"name": "product_filter",
	"fields" : [
		{"name": "product_name", "type": "string"},
		{"name": "blocked", "type": "boolean"}
	]
}`

type ProductFilterV1 struct {
	ProductName string `avro:"product_name"`
	Blocked     bool   `avro:"blocked"`
}

func ProductFilterV1Avro() avro.Schema {
	return avro.MustParse(ProductFilterSchemaTextV1)
}
