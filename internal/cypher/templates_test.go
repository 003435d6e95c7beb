package cypher

import (
	"strings"
	"testing"
)

func TestMustTemplate(t *testing.T) {
	got := MustTemplate("upsert_nodes.cql", map[string]string{"LabelPattern": ":StacItem"})
	if !strings.Contains(got, "MERGE (n:StacItem {key: row.key})") {
		t.Fatalf("unexpected query: %s", got)
	}
	got = MustTemplate("upsert_rels.cql", map[string]string{"RelType": ":DERIVED_FROM"})
	if !strings.Contains(got, "MERGE (a)-[r:DERIVED_FROM]->(b)") {
		t.Fatalf("unexpected query: %s", got)
	}
}

func TestStatements(t *testing.T) {
	stmts, err := Statements("init_schema.cql")
	if err != nil {
		t.Fatalf("statements: %v", err)
	}
	if len(stmts) != 4 {
		t.Fatalf("expected 4 statements, got %d", len(stmts))
	}
	for _, s := range stmts {
		if strings.HasSuffix(s, ";") || s == "" {
			t.Fatalf("statement not trimmed: %q", s)
		}
	}
	if _, err := Statements("missing.cql"); err == nil {
		t.Fatalf("expected error for missing file")
	}
}
