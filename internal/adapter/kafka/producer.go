package kafka

import (
	"context"
	"log/slog"

	"github.com/niksmo/farm-bridge/internal/core/domain"
	"github.com/niksmo/farm-bridge/internal/core/port"
	"github.com/niksmo/farm-bridge/pkg/schema"
	"github.com/sony/gobreaker"
	"github.com/twmb/franz-go/pkg/kgo"
)

var _ port.ProductsProducer = (*ProductsProducer)(nil)
var _ port.ProductFilterProducer = (*ProductFilterProducer)(nil)

// A producer is used for composition.
//
// Producing records to kafka broker and closing underlying [kgo.Client].
type producer struct {
	opPrefix string
	cl       ProducerClient
	breaker  *gobreaker.CircuitBreaker
}

func (p producer) close() {
	const op = "close"
	log := slog.With("op", makeOp(p.opPrefix, op))
	log.Info("closing producer...")
	p.cl.Close()
	log.Info("producer is closed")
}

func (p producer) produce(
	ctx context.Context, rs ...*kgo.Record,
) error {
	const op = "produce"

	send := func() (any, error) {
		return nil, p.cl.ProduceSync(ctx, rs...).FirstErr()
	}

	var err error
	if p.breaker != nil {
		_, err = p.breaker.Execute(send)
	} else {
		_, err = send()
	}
	if err != nil {
		return opErr(breakerErr(err), p.opPrefix, op)
	}
	return nil
}

func newProducer(opPrefix string, opts []ProducerOpt) (producer, Encoder, error) {
	if len(opts) < 2 {
		panic(opErr(ErrTooFewOpts, "new"+opPrefix)) // develop mistake
	}

	var options producerOpts
	for _, opt := range opts {
		if err := opt(&options); err != nil {
			return producer{}, nil, err
		}
	}

	if options.cl == nil || options.encoder == nil {
		return producer{}, nil, ErrTooFewOpts
	}

	p := producer{
		opPrefix: opPrefix,
		cl:       options.cl,
		breaker:  options.breaker,
	}
	return p, options.encoder, nil
}

// A ProductsProducer used for produce [domain.Product].
//
// Records are keyed by product name, the key of the moderation table.
type ProductsProducer struct {
	producer producer
	encoder  Encoder
	opPrefix string
}

func NewProductsProducer(
	opts ...ProducerOpt,
) (ProductsProducer, error) {
	const op = "NewProductsProducer"

	opPrefix := "ProductsProducer"
	p, encoder, err := newProducer(opPrefix, opts)
	if err != nil {
		return ProductsProducer{}, opErr(err, op)
	}

	return ProductsProducer{
		encoder:  encoder,
		producer: p,
		opPrefix: opPrefix,
	}, nil
}

func (p ProductsProducer) Close() {
	p.producer.close()
}

func (p ProductsProducer) ProduceProducts(
	ctx context.Context, vs []domain.Product,
) error {
	const op = "ProduceProducts"

	if err := ctx.Err(); err != nil {
		return opErr(err, p.opPrefix, op)
	}

	rs, err := p.createRecords(vs)
	if err != nil {
		return opErr(err, p.opPrefix, op)
	}

	if err := p.producer.produce(ctx, rs...); err != nil {
		return opErr(err, p.opPrefix, op)
	}

	return nil
}

func (p ProductsProducer) createRecords(
	vs []domain.Product,
) (rs []*kgo.Record, err error) {
	const op = "createRecords"

	for _, v := range vs {
		s := p.toSchema(v)
		b, err := p.encoder.Encode(s)
		if err != nil {
			return nil, opErr(err, p.opPrefix, op)
		}
		msgKey := []byte(s.Name)
		r := &kgo.Record{Key: msgKey, Value: b}
		rs = append(rs, r)
	}

	return rs, nil
}

func (ProductsProducer) toSchema(v domain.Product) schema.ProductV1 {
	return productToSchemaV1(v)
}

// A ProductFilterProducer used for produce [domain.ProductFilter]
type ProductFilterProducer struct {
	producer producer
	encoder  Encoder
	opPrefix string
}

func NewProductFilterProducer(
	opts ...ProducerOpt,
) (ProductFilterProducer, error) {
	const op = "NewProductFilterProducer"

	opPrefix := "ProductFilterProducer"
	p, encoder, err := newProducer(opPrefix, opts)
	if err != nil {
		return ProductFilterProducer{}, opErr(err, op)
	}

	return ProductFilterProducer{
		producer: p,
		encoder:  encoder,
		opPrefix: opPrefix,
	}, nil
}

func (p ProductFilterProducer) Close() {
	p.producer.close()
}

func (p ProductFilterProducer) ProduceFilter(
	ctx context.Context, fv domain.ProductFilter,
) error {
	const op = "ProduceFilter"

	if err := ctx.Err(); err != nil {
		return opErr(err, p.opPrefix, op)
	}

	r, err := p.createRecord(fv)
	if err != nil {
		return opErr(err, p.opPrefix, op)
	}

	if err := p.producer.produce(ctx, r); err != nil {
		return opErr(err, p.opPrefix, op)
	}

	return nil
}

func (p ProductFilterProducer) createRecord(
	v domain.ProductFilter,
) (*kgo.Record, error) {
	const op = "createRecord"

	s := p.toSchema(v)
	b, err := p.encoder.Encode(s)
	if err != nil {
		return nil, opErr(err, p.opPrefix, op)
	}
	msgKey := []byte(s.ProductName)
	return &kgo.Record{Key: msgKey, Value: b}, nil
}

func (ProductFilterProducer) toSchema(
	v domain.ProductFilter,
) schema.ProductFilterV1 {
	return productFilterToSchemaV1(v)
}
