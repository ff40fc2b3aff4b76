package store

import (
	"context"
	"fmt"

	"github.com/multitest/report-harness/framework"

	consul "github.com/hashicorp/consul/api"
)

// maxPutAttempts bounds how often Put looks for a free sequence number when another writer
// took the one it tried.
const maxPutAttempts = 10

// ConsulStore keeps each partial under its own key, prefix/runID/sequence, where the
// zero-padded sequence number makes the key order match the submission order.
type ConsulStore struct {
	consul *consul.Client
	prefix string
	logger framework.Logger
}

func NewConsulStore(client *consul.Client, prefix string, logger framework.Logger) *ConsulStore {
	if logger == nil {
		logger = framework.NullLogger()
	}
	return &ConsulStore{consul: client, prefix: prefix, logger: logger}
}

// NewConsulStoreFromAddress creates a client for the Consul agent at address, or at the
// default address if it is empty.
func NewConsulStoreFromAddress(address, prefix string, logger framework.Logger) (*ConsulStore, error) {
	config := consul.DefaultConfig()
	if address != "" {
		config.Address = address
	}
	client, err := consul.NewClient(config)
	if err != nil {
		return nil, err
	}
	return NewConsulStore(client, prefix, logger), nil
}

func (c *ConsulStore) runPrefix(runID string) string {
	return c.prefix + "/" + runID + "/"
}

func (c *ConsulStore) Put(ctx context.Context, runID string, p StoredPartial) error {
	if runID == "" {
		return errEmptyRunID
	}
	kv := c.consul.KV()
	opts := (&consul.QueryOptions{}).WithContext(ctx)
	keys, _, err := kv.Keys(c.runPrefix(runID), "", opts)
	if err != nil {
		return fmt.Errorf("failed to list existing partials: %w", err)
	}
	value := encodePartial(p)
	seq := len(keys)
	for attempt := 0; attempt < maxPutAttempts; attempt++ {
		key := fmt.Sprintf("%s%08d", c.runPrefix(runID), seq)
		// ModifyIndex 0 makes the write succeed only if the key does not exist yet
		ok, _, err := kv.CAS(&consul.KVPair{Key: key, Value: value}, (&consul.WriteOptions{}).WithContext(ctx))
		if err != nil {
			return fmt.Errorf("failed to store partial %q: %w", p.ID, err)
		}
		if ok {
			c.logger.Printf("Stored partial %s in consul at %s", p.ID, key)
			return nil
		}
		seq++
	}
	return fmt.Errorf("failed to store partial %q: no free key after %d attempts", p.ID, maxPutAttempts)
}

func (c *ConsulStore) List(ctx context.Context, runID string) ([]StoredPartial, error) {
	pairs, _, err := c.consul.KV().List(c.runPrefix(runID), (&consul.QueryOptions{}).WithContext(ctx))
	if err != nil {
		return nil, fmt.Errorf("list failed for %s: %w", runID, err)
	}
	ret := make([]StoredPartial, 0, len(pairs))
	for _, pair := range pairs { // consul returns keys in sorted order
		p, err := decodePartial(pair.Value)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", pair.Key, err)
		}
		ret = append(ret, p)
	}
	return ret, nil
}

func (c *ConsulStore) Reset(ctx context.Context, runID string) error {
	_, err := c.consul.KV().DeleteTree(c.runPrefix(runID), (&consul.WriteOptions{}).WithContext(ctx))
	return err
}

func (c *ConsulStore) Close() error { return nil }
