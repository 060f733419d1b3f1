package schema

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/hamba/avro/v2"
	"github.com/twmb/franz-go/pkg/sr"
)

var (
	ErrTooFewOpts = errors.New("too few options")
)

type Serde interface {
	Encode(v any) ([]byte, error)
	Decode(data []byte, v any) error
}

// A serde prepends the Confluent wire header to Avro payloads.
type serde struct {
	srSerde *sr.Serde
}

func (s serde) Encode(v any) ([]byte, error) {
	return s.srSerde.Encode(v)
}

func (s serde) Decode(data []byte, v any) error {
	return s.srSerde.Decode(data, v)
}

type Opt func(*serdeOpts) error

type serdeOpts struct {
	subjects []string
	si       SchemaIdentifier
}

// SubjectOpt adds a registry subject. It may be given more than once.
func SubjectOpt(subject string) Opt {
	return func(so *serdeOpts) error {
		if subject == "" {
			return errors.New("subject is empty string")
		}
		so.subjects = append(so.subjects, subject)
		return nil
	}
}

// TopicSubjectOpt adds the value subject of every topic,
// following the topic name strategy: "<topic>-value".
func TopicSubjectOpt(topics ...string) Opt {
	return func(so *serdeOpts) error {
		if len(topics) == 0 {
			return errors.New("no topics")
		}
		for _, topic := range topics {
			if topic == "" {
				return errors.New("topic is empty string")
			}
			so.subjects = append(so.subjects, TopicSubject(topic))
		}
		return nil
	}
}

func TopicSubject(topic string) string {
	return topic + "-value"
}

func SchemaIdentifierOpt(sc SchemaIdentifier) Opt {
	return func(so *serdeOpts) error {
		if sc == nil {
			return errors.New("schema identifier is nil")
		}
		so.si = sc
		return nil
	}
}

func (so serdeOpts) complete() bool {
	return len(so.subjects) != 0 && so.si != nil
}

// NewSerdeProductV1 returns a serde for [ProductV1].
//
// Encoding uses the schema ID of the first subject. Payloads written
// under any of the subjects are decoded.
func NewSerdeProductV1(ctx context.Context, opts ...Opt) (Serde, error) {
	return newSerde[ProductV1](ctx, "NewSerdeProductV1", ProductSchemaTextV1, opts)
}

func NewSerdeProductFilterV1(ctx context.Context, opts ...Opt) (Serde, error) {
	return newSerde[ProductFilterV1](
		ctx, "NewSerdeProductFilterV1", ProductFilterSchemaTextV1, opts,
	)
}

func newSerde[T any](
	ctx context.Context, op, schemaText string, opts []Opt,
) (Serde, error) {
	var so serdeOpts
	for _, o := range opts {
		if err := o(&so); err != nil {
			return serde{}, fmt.Errorf("%s: %w", op, err)
		}
	}
	if !so.complete() {
		return serde{}, fmt.Errorf("%s: %w", op, ErrTooFewOpts)
	}

	avroSchema, err := avro.Parse(schemaText)
	if err != nil {
		return serde{}, fmt.Errorf("%s: %w", op, err)
	}

	ids := make([]int, 0, len(so.subjects))
	for _, subject := range so.subjects {
		id, err := so.si.DetermineID(ctx, subject, schemaText)
		if err != nil {
			return serde{}, fmt.Errorf("%s: subject %q: %w", op, subject, err)
		}
		ids = append(ids, id)
	}

	// the last registration of a type sets its encoding ID
	var zero T
	srSerde := new(sr.Serde)
	for _, id := range slices.Backward(ids) {
		srSerde.Register(
			id,
			zero,
			sr.EncodeFn(AvroEncodeFn(avroSchema)),
			sr.DecodeFn(AvroDecodeFn(avroSchema)),
		)
	}
	return serde{srSerde}, nil
}
