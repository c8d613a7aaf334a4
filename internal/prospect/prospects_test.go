package prospect

import (
	"encoding/json"
	"os"
	"testing"
)

func TestKeepPreservesOrder(t *testing.T) {
	prospects := &Prospects{Items: []*Prospect{
		{ID: "a", Result: &ScoreResult{Score: 80}},
		{ID: "b", Result: &ScoreResult{Score: 20}},
		{ID: "c", Result: &ScoreResult{Score: 60}},
	}}

	dropped := prospects.Keep(func(p *Prospect) bool { return p.Result.Score >= 50 })

	if len(dropped) != 1 || dropped[0] != "b" {
		t.Fatalf("unexpected dropped ids: %v", dropped)
	}
	if prospects.Len() != 2 || prospects.Items[0].ID != "a" || prospects.Items[1].ID != "c" {
		t.Fatalf("unexpected kept prospects: %+v", prospects.Items)
	}
}

func TestSortByScorePutsUnscoredLast(t *testing.T) {
	prospects := &Prospects{Items: []*Prospect{
		{ID: "none"},
		{ID: "low", Result: &ScoreResult{Score: 10}},
		{ID: "high", Result: &ScoreResult{Score: 90}},
	}}

	prospects.SortByScore()

	got := []string{prospects.Items[0].ID, prospects.Items[1].ID, prospects.Items[2].ID}
	want := []string{"high", "low", "none"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("expected order %v, got %v", want, got)
		}
	}
}

func TestReportIncludesAIResults(t *testing.T) {
	prospects := &Prospects{Items: []*Prospect{
		{
			ID:     "acme",
			URL:    "https://acme.shop",
			Result: &ScoreResult{Score: 71, Reasons: []string{"Country match (+20)", "Website present (+5)"}},
			AI:     &AIAssessment{Score: 64, Labels: []string{"ecommerce", "smb"}},
		},
		{ID: "globex", Error: "provider unavailable"},
	}}

	report := prospects.Report()
	if len(report) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(report))
	}

	entry := report[0]
	if entry["score"] != "71" {
		t.Fatalf("unexpected score: %q", entry["score"])
	}
	if entry["reasons"] != "Country match (+20); Website present (+5)" {
		t.Fatalf("unexpected reasons: %q", entry["reasons"])
	}
	if entry["ai_score"] != "64" || entry["ai_labels"] != "ecommerce,smb" {
		t.Fatalf("unexpected ai fields: %+v", entry)
	}

	if report[1]["error"] != "provider unavailable" {
		t.Fatalf("unexpected error entry: %+v", report[1])
	}
	if _, ok := report[1]["score"]; ok {
		t.Fatalf("did not expect score for unscored prospect")
	}
}

func TestDumpToTmpFile(t *testing.T) {
	prospects := &Prospects{Items: []*Prospect{{ID: "acme", Result: &ScoreResult{Score: 50, Reasons: []string{}}}}}

	name, err := prospects.DumpToTmpFile()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer os.Remove(name)

	data, err := os.ReadFile(name)
	if err != nil {
		t.Fatalf("read dump: %v", err)
	}

	var decoded Prospects
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("decode dump: %v", err)
	}
	if decoded.Len() != 1 || decoded.Items[0].Result.Score != 50 {
		t.Fatalf("unexpected dump content: %s", data)
	}
}

func TestCompiledProfileICP(t *testing.T) {
	country := "FR"
	compiled := NewCompiledProfile()
	compiled.Country = &country
	compiled.Technologies = []string{"Shopify"}
	compiled.Exclusions = []string{"agence"}
	compiled.RatingMax = Float(4.5)

	icp := compiled.ICP()

	if icp.Country != "FR" {
		t.Fatalf("unexpected country: %q", icp.Country)
	}
	if len(icp.Signals) != 1 || icp.Signals[0] != "Shopify" {
		t.Fatalf("technologies should map to signals: %v", icp.Signals)
	}
	if len(icp.Excludes) != 1 || icp.Excludes[0] != "agence" {
		t.Fatalf("exclusions should map to excludes: %v", icp.Excludes)
	}
	if icp.GoogleRatingMax == nil || *icp.GoogleRatingMax != 4.5 {
		t.Fatalf("unexpected rating max: %v", icp.GoogleRatingMax)
	}
}
