package prospect

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"
)

// Prospect is a single page scanned in batch mode.
// PageText is the visible page text sent to the AI assessor.
type Prospect struct {
	ID       string        `json:"id" yaml:"id"`
	Name     string        `json:"name,omitempty" yaml:"name,omitempty"`
	URL      string        `json:"url,omitempty" yaml:"url,omitempty"`
	Features Features      `json:"features" yaml:"features"`
	PageText string        `json:"pageText,omitempty" yaml:"pageText,omitempty"`
	Result   *ScoreResult  `json:"result,omitempty" yaml:"result,omitempty"`
	Rule     *ScoreResult  `json:"rule,omitempty" yaml:"rule,omitempty"`
	AI       *AIAssessment `json:"ai,omitempty" yaml:"ai,omitempty"`
	Error    string        `json:"error,omitempty" yaml:"error,omitempty"`
}

// Prospects is an ordered list of scanned prospects.
type Prospects struct {
	Items []*Prospect `json:"items" yaml:"items"`
}

func (p *Prospects) Len() int {
	return len(p.Items)
}

func (p *Prospects) FindByID(id string) *Prospect {
	for _, item := range p.Items {
		if item.ID == id {
			return item
		}
	}
	return nil
}

// Keep retains the prospects accepted by keep and returns the IDs of the dropped ones.
// Order of the kept prospects is preserved.
func (p *Prospects) Keep(keep func(*Prospect) bool) []string {
	var dropped []string
	kept := p.Items[:0]
	for _, item := range p.Items {
		if keep(item) {
			kept = append(kept, item)
			continue
		}
		dropped = append(dropped, item.ID)
	}
	for i := len(kept); i < len(p.Items); i++ {
		p.Items[i] = nil
	}
	p.Items = kept
	return dropped
}

// SortByScore orders prospects by final score, best first. Unscored prospects go last.
func (p *Prospects) SortByScore() {
	sort.SliceStable(p.Items, func(i, j int) bool {
		return scoreOf(p.Items[i]) > scoreOf(p.Items[j])
	})
}

// Report returns a flat, printable view of the scored prospects.
func (p *Prospects) Report() []map[string]string {
	report := make([]map[string]string, 0, p.Len())
	for _, item := range p.Items {
		entry := map[string]string{
			"id":  item.ID,
			"url": item.URL,
		}
		if item.Name != "" {
			entry["name"] = item.Name
		}
		if item.Result != nil {
			entry["score"] = strconv.Itoa(item.Result.Score)
			entry["reasons"] = strings.Join(item.Result.Reasons, "; ")
		}
		if item.AI != nil {
			entry["ai_score"] = strconv.FormatFloat(item.AI.Score, 'f', -1, 64)
			if len(item.AI.Labels) > 0 {
				entry["ai_labels"] = strings.Join(item.AI.Labels, ",")
			}
		}
		if item.Error != "" {
			entry["error"] = item.Error
		}
		report = append(report, entry)
	}
	return report
}

// DumpToTmpFile writes the prospects as indented JSON into a new temporary file and returns its name.
func (p *Prospects) DumpToTmpFile() (string, error) {
	file, err := os.CreateTemp("", "prospects_*.json")
	if err != nil {
		return "", err
	}
	defer file.Close()

	enc := json.NewEncoder(file)
	enc.SetIndent("", "  ")
	if err := enc.Encode(p); err != nil {
		return "", fmt.Errorf("encode prospects: %w", err)
	}
	return file.Name(), nil
}

func scoreOf(p *Prospect) int {
	if p == nil || p.Result == nil {
		return -1
	}
	return p.Result.Score
}
