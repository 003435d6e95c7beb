package lineage

import (
	"context"
	"strings"
	"testing"
	"time"

	"stactask/internal/domain"
	"stactask/pkg/item"
)

type fakeStore struct {
	queries []string
	params  []map[string]any
	reads   []map[string]any
}

func (f *fakeStore) RunWrite(_ context.Context, query string, params map[string]any) error {
	f.queries = append(f.queries, query)
	f.params = append(f.params, params)
	return nil
}

func (f *fakeStore) RunRead(_ context.Context, _ string, params map[string]any) ([]map[string]any, error) {
	f.reads = append(f.reads, params)
	return []map[string]any{{"key": "ITEM_raw/a"}, {"key": nil}}, nil
}

func sampleRun() (inputs, outputs []item.Item) {
	src := item.New("a")
	src.Collection = "raw"
	src.Links = []item.Link{{Rel: "self", Href: "s3://catalog/raw/a.json"}}

	derived, _ := item.DeriveFrom(src)
	derived.ID = "a_l2"
	derived.Collection = "cooked"

	same := src
	same.Collection = "cooked"
	same.Links = nil
	return []item.Item{src}, []item.Item{derived, same}
}

func TestBuildRows(t *testing.T) {
	inputs, outputs := sampleRun()
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	nodes, rels, err := BuildRows("annotate", "r1", now, inputs, outputs)
	if err != nil {
		t.Fatalf("build rows: %v", err)
	}

	keys := map[string]bool{}
	for _, n := range nodes {
		keys[n.Key] = true
	}
	for _, want := range []string{"RUN_annotate/r1", "ITEM_raw/a", "ITEM_cooked/a_l2", "ITEM_cooked/a", "COLL_cooked"} {
		if !keys[want] {
			t.Fatalf("node %s missing, got %v", want, keys)
		}
	}
	if len(nodes) != 5 {
		t.Fatalf("expect 5 nodes, got %d", len(nodes))
	}

	count := map[string]int{}
	for _, r := range rels {
		count[r.Type]++
		if r.Type == domain.RelDerivedFrom && r.EndKey != "ITEM_raw/a" {
			t.Fatalf("derived_from should point at the input, got %s", r.EndKey)
		}
	}
	if count[domain.RelDerivedFrom] != 2 || count[domain.RelInCollection] != 2 || count[domain.RelProducedBy] != 2 {
		t.Fatalf("unexpected relationship counts %v", count)
	}
}

func TestPublisherGroupsWrites(t *testing.T) {
	store := &fakeStore{}
	p := NewPublisher(store, 1, nil)
	p.now = func() time.Time { return time.Unix(10, 0) }

	inputs, outputs := sampleRun()
	if err := p.Publish(context.Background(), "annotate", inputs, outputs); err != nil {
		t.Fatalf("publish: %v", err)
	}

	var nodeWrites, relWrites int
	for _, q := range store.queries {
		switch {
		case strings.Contains(q, "MERGE (n:StacItem"):
			nodeWrites++
		case strings.Contains(q, "MERGE (a)-[r:DERIVED_FROM]->(b)"):
			relWrites++
		}
	}
	// batch size 为 1，每个 Item 节点单独写入
	if nodeWrites != 3 {
		t.Fatalf("expect 3 item node writes, got %d", nodeWrites)
	}
	if relWrites != 2 {
		t.Fatalf("expect 2 derived_from writes, got %d", relWrites)
	}

	ancestors, err := p.Ancestors(context.Background(), "cooked", "a_l2")
	if err != nil || len(ancestors) != 1 || ancestors[0] != "ITEM_raw/a" {
		t.Fatalf("unexpected ancestors %v, %v", ancestors, err)
	}
}

type rawRecorder struct{ queries []string }

func (r *rawRecorder) RunRaw(_ context.Context, query string, _ map[string]any) error {
	r.queries = append(r.queries, query)
	return nil
}

func TestSchemaEnsure(t *testing.T) {
	rec := &rawRecorder{}
	if err := NewSchemaManager(rec).Ensure(context.Background()); err != nil {
		t.Fatalf("ensure failed: %v", err)
	}
	if len(rec.queries) != 4 {
		t.Fatalf("expected 4 statements, got %d", len(rec.queries))
	}
	if !strings.HasPrefix(rec.queries[0], "CREATE CONSTRAINT stac_item_key") {
		t.Fatalf("unexpected first statement %q", rec.queries[0])
	}
}

func TestPublisherAncestors(t *testing.T) {
	store := &fakeStore{}
	p := NewPublisher(store, 10, nil)

	keys, err := p.Ancestors(context.Background(), "cooked", "a_l2")
	if err != nil {
		t.Fatalf("ancestors: %v", err)
	}
	if len(keys) != 1 || keys[0] != "ITEM_raw/a" {
		t.Fatalf("unexpected ancestors %v", keys)
	}
	if len(store.reads) != 1 || store.reads[0]["key"] != domain.ItemKey("cooked", "a_l2") {
		t.Fatalf("unexpected read params %v", store.reads)
	}
}
