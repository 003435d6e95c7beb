package domain

import "testing"

func TestKeys(t *testing.T) {
	cases := map[string]string{
		ItemKey("landsat", "LC08_1"): "ITEM_landsat/LC08_1",
		ItemKey("", "LC08_1"):        "ITEM_-/LC08_1",
		CollectionKey("landsat"):     "COLL_landsat",
		RunKey("annotate", "r1"):     "RUN_annotate/r1",
	}
	for got, want := range cases {
		if got != want {
			t.Fatalf("expect %s, got %s", want, got)
		}
	}
}

func TestLabelPattern(t *testing.T) {
	if got := LabelPattern([]string{LabelItem, "B", "A"}); got != ":A:B:StacItem" {
		t.Fatalf("unexpected label pattern %s", got)
	}
	if got := LabelPattern(nil); got != "" {
		t.Fatalf("expect empty pattern, got %s", got)
	}
	if got := RelPattern(RelDerivedFrom); got != ":DERIVED_FROM" {
		t.Fatalf("unexpected rel pattern %s", got)
	}
}
