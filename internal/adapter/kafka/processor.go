package kafka

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"sync"

	"github.com/lovoo/goka"
	"github.com/niksmo/farm-bridge/internal/core/port"
	"github.com/niksmo/farm-bridge/pkg/schema"
)

var _ port.ProductFilterProcessor = (*ProductFilterProcessor)(nil)
var _ port.ProductBlockerProcessor = (*ProductBlockerProcessor)(nil)

// A processor is used for composition.
//
// Running and stopping the underlying [goka.Processor].
type processor struct {
	opPrefix string
	gp       *goka.Processor
}

func newProcessor(
	opPrefix string, seedBrokers []string, gg *goka.GroupGraph,
) (processor, error) {
	gp, err := goka.NewProcessor(seedBrokers, gg, withNonlogProcOpt())
	if err != nil {
		return processor{}, err
	}
	return processor{opPrefix: opPrefix, gp: gp}, nil
}

// run returns when the processor is ready or ctx is done.
// stopFn is called when the processor stops.
func (p processor) run(
	ctx context.Context, stopFn context.CancelFunc, wg *sync.WaitGroup,
) {
	const op = "run"
	log := slog.With("op", makeOp(p.opPrefix, op))

	defer wg.Done()

	go func() {
		defer stopFn()
		if err := p.gp.Run(ctx); err != nil {
			log.Error("stopped", "err", err)
			return
		}
		log.Info("stopped")
	}()

	log.Info("preparing...")
	if err := p.gp.WaitForReadyContext(ctx); err != nil {
		if !errors.Is(err, context.Canceled) {
			log.Error("failed to get ready", "err", err)
		}
		return
	}
	log.Info("running")
}

func (p processor) close() {
	const op = "close"
	log := slog.With("op", makeOp(p.opPrefix, op))

	log.Info("closing processor...")
	p.gp.Stop()
	log.Info("processor is closed")
}

// A schemaCodec is a [goka.Codec] for registry encoded values of type T.
type schemaCodec[T any] struct {
	name  string
	serde Serde
}

func newFilterEventCodec(s Serde) schemaCodec[schema.ProductFilterV1] {
	return schemaCodec[schema.ProductFilterV1]{"filterEventCodec", s}
}

func newProductEventCodec(s Serde) schemaCodec[schema.ProductV1] {
	return schemaCodec[schema.ProductV1]{"productEventCodec", s}
}

func (c schemaCodec[T]) Encode(v any) ([]byte, error) {
	if _, ok := v.(T); !ok {
		return nil, opErr(ErrInvalidValueType, c.name, "Encode")
	}
	return c.serde.Encode(v)
}

func (c schemaCodec[T]) Decode(data []byte) (any, error) {
	var v T
	if err := c.serde.Decode(data, &v); err != nil {
		return nil, opErr(err, c.name, "Decode")
	}
	return v, nil
}

// A blockValue is the moderation table value for a product name.
type blockValue bool

type blockValueCodec struct{}

func (blockValueCodec) Encode(v any) ([]byte, error) {
	bv, ok := v.(blockValue)
	if !ok {
		return nil, opErr(ErrInvalidValueType, "blockValueCodec.Encode")
	}
	return []byte(strconv.FormatBool(bool(bv))), nil
}

func (blockValueCodec) Decode(data []byte) (any, error) {
	bv, err := strconv.ParseBool(string(data))
	if err != nil {
		return nil, opErr(err, "blockValueCodec.Decode")
	}
	return blockValue(bv), nil
}

// A ProductFilterProcessor keeps moderation rules in its group table,
// keyed by product name. Only blocked names are kept.
type ProductFilterProcessor struct {
	opPrefix string
	proc     processor
}

func NewProductFilterProc(
	seedBrokers []string,
	inputStream string,
	groupTable string,
	productFilterSerde Serde,
) (*ProductFilterProcessor, error) {
	const op = "NewProductFilterProc"

	p := &ProductFilterProcessor{opPrefix: "ProductFilterProcessor"}

	gg := goka.DefineGroup(goka.Group(groupTable),
		goka.Input(
			goka.Stream(inputStream),
			newFilterEventCodec(productFilterSerde),
			p.processFn,
		),
		goka.Persist(blockValueCodec{}),
	)

	proc, err := newProcessor(p.opPrefix, seedBrokers, gg)
	if err != nil {
		return nil, opErr(err, op)
	}
	p.proc = proc
	return p, nil
}

func (p *ProductFilterProcessor) Run(
	ctx context.Context, stopFn context.CancelFunc, wg *sync.WaitGroup,
) {
	p.proc.run(ctx, stopFn, wg)
}

func (p *ProductFilterProcessor) Close() {
	p.proc.close()
}

func (p *ProductFilterProcessor) processFn(ctx goka.Context, msg any) {
	const op = "processFn"
	log := slog.With("op", makeOp(p.opPrefix, op))

	event, ok := msg.(schema.ProductFilterV1)
	if !ok {
		log.Error("unexpected message", "err", ErrInvalidValueType)
		return
	}

	if !event.Blocked {
		// tombstone, compaction drops the rule
		ctx.Delete()
		log.Info("product name is allowed", "productName", event.ProductName)
		return
	}

	ctx.SetValue(blockValue(true))
	log.Info("product name is blocked", "productName", event.ProductName)
}

// A ProductBlockerProcessor joins products from the input stream
// with the moderation table and forwards allowed ones to the output topic.
type ProductBlockerProcessor struct {
	opPrefix     string
	proc         processor
	joinedTable  goka.Table
	outputStream goka.Stream
}

func NewProductBlockerProc(
	seedBrokers []string,
	group string,
	inputTopic string,
	filterGroupTable string,
	outputTopic string,
	productSerde Serde,
) (*ProductBlockerProcessor, error) {
	const op = "NewProductBlockerProc"

	p := &ProductBlockerProcessor{
		opPrefix:     "ProductBlockerProcessor",
		joinedTable:  goka.GroupTable(goka.Group(filterGroupTable)),
		outputStream: goka.Stream(outputTopic),
	}

	codec := newProductEventCodec(productSerde)
	gg := goka.DefineGroup(goka.Group(group),
		goka.Input(goka.Stream(inputTopic), codec, p.processFn),
		goka.Join(p.joinedTable, blockValueCodec{}),
		goka.Output(p.outputStream, codec),
	)

	proc, err := newProcessor(p.opPrefix, seedBrokers, gg)
	if err != nil {
		return nil, opErr(err, op)
	}
	p.proc = proc
	return p, nil
}

func (p *ProductBlockerProcessor) Run(
	ctx context.Context, stopFn context.CancelFunc, wg *sync.WaitGroup,
) {
	p.proc.run(ctx, stopFn, wg)
}

func (p *ProductBlockerProcessor) Close() {
	p.proc.close()
}

// processFn re-keys allowed products by product ID.
func (p *ProductBlockerProcessor) processFn(ctx goka.Context, msg any) {
	const op = "processFn"

	product, ok := msg.(schema.ProductV1)
	if !ok {
		slog.Error(
			"unexpected message",
			"op", makeOp(p.opPrefix, op), "err", ErrInvalidValueType,
		)
		return
	}
	log := slog.With(
		"op", makeOp(p.opPrefix, op),
		"productID", product.ProductID,
		"productName", product.Name,
	)

	if p.isBlocked(ctx.Join(p.joinedTable)) {
		log.Warn("product is blocked")
		return
	}
	ctx.Emit(p.outputStream, product.ProductID, product)
	log.Info("product is allowed")
}

// isBlocked treats a missing rule as allowed.
func (p *ProductBlockerProcessor) isBlocked(joined any) bool {
	v, ok := joined.(blockValue)
	return ok && bool(v)
}
