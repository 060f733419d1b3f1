package schema

import "github.com/hamba/avro/v2"

const ProductSchemaTextV1 = `{
	"type": "record",
	"namespace": "farmbridge.products",
	"name": "product",
	"fields" : [
		{"name": "product_id", "type": "string"},
		{"name": "name", "type": "string"},
		{"name": "description", "type": "string"},
		{"name": "price", "type": "string"},
		{"name": "quantity", "type": "long"},
		{"name": "category", "type": "string"},
		{"name": "image", "type": "string"}
	]
}`

// ProductV1 carries the price as a decimal string.
type ProductV1 struct {
	ProductID   string `avro:"product_id"`
	Name        string `avro:"name"`
	Description string `avro:"description"`
	Price       string `avro:"price"`
	Quantity    int    `avro:"quantity"`
	Category    string `avro:"category"`
	Image       string `avro:"image"`
}

func ProductV1Avro() avro.Schema {
	return avro.MustParse(ProductSchemaTextV1)
}
