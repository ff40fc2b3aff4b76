package store

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"sync"
	"testing"

	"github.com/launchdarkly/go-test-helpers/v2/httphelpers"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	consul "github.com/hashicorp/consul/api"
)

// fakeConsulKV implements the parts of Consul's KV HTTP API that ConsulStore uses.
type fakeConsulKV struct {
	data map[string][]byte
	// keysLag leaves this many of the last keys out of key listings, as if they had been
	// written by another client after the listing was made
	keysLag int
	lock    sync.Mutex
}

func (f *fakeConsulKV) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.lock.Lock()
	defer f.lock.Unlock()
	key := strings.TrimPrefix(r.URL.Path, "/v1/kv/")
	q := r.URL.Query()
	w.Header().Set("X-Consul-Index", "1")
	w.Header().Set("X-Consul-LastContact", "0")
	w.Header().Set("X-Consul-KnownLeader", "true")

	switch r.Method {
	case http.MethodGet:
		var matched []string
		for k := range f.data {
			if k == key || ((q.Has("recurse") || q.Has("keys")) && strings.HasPrefix(k, key)) {
				matched = append(matched, k)
			}
		}
		if len(matched) == 0 {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		sort.Strings(matched)
		var body []byte
		if q.Has("keys") {
			body, _ = json.Marshal(matched[:max(0, len(matched)-f.keysLag)])
		} else {
			pairs := make([]*consul.KVPair, 0, len(matched))
			for _, k := range matched {
				pairs = append(pairs, &consul.KVPair{Key: k, Value: f.data[k], ModifyIndex: 1})
			}
			body, _ = json.Marshal(pairs)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write(body)
	case http.MethodPut:
		value, _ := io.ReadAll(r.Body)
		if _, exists := f.data[key]; exists && q.Get("cas") == "0" {
			_, _ = w.Write([]byte("false"))
			return
		}
		f.data[key] = value
		_, _ = w.Write([]byte("true"))
	case http.MethodDelete:
		for k := range f.data {
			if k == key || (q.Has("recurse") && strings.HasPrefix(k, key)) {
				delete(f.data, k)
			}
		}
		_, _ = w.Write([]byte("true"))
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func withConsulStore(t *testing.T, action func(*ConsulStore, *fakeConsulKV)) {
	fake := &fakeConsulKV{data: make(map[string][]byte)}
	httphelpers.WithServer(fake, func(server *httptest.Server) {
		s, err := NewConsulStoreFromAddress(strings.TrimPrefix(server.URL, "http://"), DefaultPrefix, nil)
		require.NoError(t, err)
		action(s, fake)
	})
}

func TestConsulStore(t *testing.T) {
	withConsulStore(t, func(s *ConsulStore, fake *fakeConsulKV) {
		testPartialStore(t, s)
		assert.Contains(t, fake.data, "report-harness/run2/00000000")
	})
}

func TestConsulStoreSkipsTakenKeys(t *testing.T) {
	withConsulStore(t, func(s *ConsulStore, fake *fakeConsulKV) {
		ctx := context.Background()
		require.NoError(t, s.Put(ctx, "r", StoredPartial{ID: "first", Data: []byte("{}")}))
		require.NoError(t, s.Put(ctx, "r", StoredPartial{ID: "second", Data: []byte("{}")}))
		fake.keysLag = 1
		require.NoError(t, s.Put(ctx, "r", StoredPartial{ID: "third", Data: []byte("{}")}))
		assert.Contains(t, fake.data, "report-harness/r/00000002")

		partials, err := s.List(ctx, "r")
		require.NoError(t, err)
		require.Len(t, partials, 3)
		assert.Equal(t, "third", partials[2].ID)
	})
}

func TestConsulStoreRejectsMalformedValue(t *testing.T) {
	withConsulStore(t, func(s *ConsulStore, fake *fakeConsulKV) {
		fake.data["report-harness/r/00000000"] = []byte("not json")
		_, err := s.List(context.Background(), "r")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "report-harness/r/00000000")
	})
}
