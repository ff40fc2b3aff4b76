// Package store keeps the partial reports submitted to a coordinator, so that a restarted
// coordinator can rebuild its merged report by merging them again in the same order.
package store

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/multitest/report-harness/framework"

	"github.com/launchdarkly/go-jsonstream/v3/jreader"
	"github.com/launchdarkly/go-jsonstream/v3/jwriter"
)

// StoredPartial is a submitted partial report as it was received.
type StoredPartial struct {
	ID     string
	Source string
	Data   []byte
}

// PartialStore holds the partial reports of any number of runs. Partials are listed in the
// order they were put.
type PartialStore interface {
	Put(ctx context.Context, runID string, p StoredPartial) error
	List(ctx context.Context, runID string) ([]StoredPartial, error)
	Reset(ctx context.Context, runID string) error
	Close() error
}

// Kinds of store that Open can create.
const (
	KindMemory   = "memory"
	KindRedis    = "redis"
	KindConsul   = "consul"
	KindDynamoDB = "dynamodb"
)

// Kinds lists the values accepted by Open.
func Kinds() []string { return []string{KindMemory, KindRedis, KindConsul, KindDynamoDB} }

// Config holds the connection settings for every kind of store; each kind reads only its own.
type Config struct {
	// Prefix is prepended to every key the store writes. It defaults to DefaultPrefix.
	Prefix string

	RedisURL string

	ConsulAddress string

	DynamoDBTable    string
	DynamoDBRegion   string
	DynamoDBEndpoint string
}

const DefaultPrefix = "report-harness"

var errEmptyRunID = errors.New("run ID must not be empty")

// Open creates a store of the given kind.
func Open(kind string, config Config, logger framework.Logger) (PartialStore, error) {
	if logger == nil {
		logger = framework.NullLogger()
	}
	if config.Prefix == "" {
		config.Prefix = DefaultPrefix
	}
	switch strings.ToLower(kind) {
	case "", KindMemory:
		return NewMemoryStore(), nil
	case KindRedis:
		return NewRedisStoreFromURL(config.RedisURL, config.Prefix, logger)
	case KindConsul:
		return NewConsulStoreFromAddress(config.ConsulAddress, config.Prefix, logger)
	case KindDynamoDB:
		return NewDynamoDBStoreFromConfig(config, logger)
	default:
		return nil, fmt.Errorf("unknown store type %q (expected one of %s)", kind, strings.Join(Kinds(), ", "))
	}
}

// encodePartial is the serialized form used by stores that hold a partial in a single value.
func encodePartial(p StoredPartial) []byte {
	w := jwriter.NewWriter()
	obj := w.Object()
	obj.Name("id").String(p.ID)
	obj.Maybe("source", p.Source != "").String(p.Source)
	obj.Name("data").String(string(p.Data))
	obj.End()
	return w.Bytes()
}

func decodePartial(data []byte) (StoredPartial, error) {
	var p StoredPartial
	r := jreader.NewReader(data)
	for obj := r.Object(); obj.Next(); {
		switch string(obj.Name()) {
		case "id":
			p.ID = r.String()
		case "source":
			p.Source = r.String()
		case "data":
			p.Data = []byte(r.String())
		}
	}
	if err := r.Error(); err != nil {
		return p, fmt.Errorf("malformed stored partial: %w", err)
	}
	if p.ID == "" {
		return p, errors.New("malformed stored partial: no id")
	}
	return p, nil
}
