// Package template loads station template files (spec §6) and builds the
// per-station configuration each worker.Factory needs to instantiate one
// simulated charge point from a template + index.
package template

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Distribution selects how a multi-URL template spreads stations across
// supervision URLs.
type Distribution string

const (
	DistributionRoundRobin Distribution = "round-robin"
	DistributionRandom     Distribution = "random"
	DistributionAffinity   Distribution = "affinity"
)

// ATG is the template's AutomaticTransactionGenerator block.
type ATG struct {
	Enable                         bool    `json:"enable"`
	MinDuration                    int     `json:"minDuration"` // seconds
	MaxDuration                    int     `json:"maxDuration"`
	MinDelayBetweenTwoTransactions int     `json:"minDelayBetweenTwoTransactions"`
	MaxDelayBetweenTwoTransactions int     `json:"maxDelayBetweenTwoTransactions"`
	ProbabilityOfStart             float64 `json:"probabilityOfStart"`
	StopAfterHours                 float64 `json:"stopAfterHours"`
	RequireAuthorize               bool    `json:"requireAuthorize"`
}

// ConfigurationKey seeds one configstore entry, in the GetConfiguration
// KeyValue shape (key/readonly/value); the persisted configstore.Key uses
// name/readOnly and adds rebootRequired.
type ConfigurationKey struct {
	Key      string `json:"key"`
	Value    string `json:"value"`
	ReadOnly bool   `json:"readonly"`
}

// Template is one station template file's parsed form. NumberOfConnectors
// and RandomConnectors are mutually exclusive knobs; RandomConnectors wins
// when set, since it's the more specific override.
type Template struct {
	BaseName                 string             `json:"baseName"`
	SupervisionURLs          []string           `json:"supervisionUrls"`
	SupervisionDistribution  Distribution       `json:"supervisionUrlsDistribution"`
	OCPPVersion              string             `json:"ocppVersion"`
	ChargePointVendor        string             `json:"chargePointVendor"`
	ChargePointModel         string             `json:"chargePointModel"`
	FirmwareVersion          string             `json:"firmwareVersion"`
	NumberOfConnectors       int                `json:"numberOfConnectors"`
	RandomConnectors         [2]int             `json:"randomConnectors"`
	AutomaticTransactionGen  ATG                `json:"AutomaticTransactionGenerator"`
	Configuration            []ConfigurationKey `json:"configurationKey"`
	IdTagsFile               string             `json:"idTagsFile"`
	AmperageLimitationOcppKey string            `json:"amperageLimitationOcppKey"`
	AmperageLimitationUnit    string            `json:"amperageLimitationUnit"`
	Power                     float64           `json:"power"`
	PowerUnit                 string            `json:"powerUnit"`
	VoltageOut                float64           `json:"voltageOut"`
}

// Load reads and parses a single template JSON file.
func Load(path string) (*Template, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("template: read %s: %w", path, err)
	}
	var t Template
	if err := json.Unmarshal(raw, &t); err != nil {
		return nil, fmt.Errorf("template: parse %s: %w", path, err)
	}
	return &t, nil
}

// LoadDir loads every *.json file directly under dir, keyed by file name
// without extension — the set `ListTemplates` (C13) reports.
func LoadDir(dir string) (map[string]*Template, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("template: read dir %s: %w", dir, err)
	}

	out := make(map[string]*Template)
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".json") {
			continue
		}
		t, err := Load(filepath.Join(dir, e.Name()))
		if err != nil {
			return nil, err
		}
		name := strings.TrimSuffix(e.Name(), ".json")
		out[name] = t
	}
	return out, nil
}

// ConnectorCount resolves numberOfConnectors/randomConnectors into a
// concrete count for one station instance.
func (t *Template) ConnectorCount() int {
	if t.RandomConnectors[1] > 0 {
		lo, hi := t.RandomConnectors[0], t.RandomConnectors[1]
		if lo < 1 {
			lo = 1
		}
		if hi < lo {
			hi = lo
		}
		return lo + rand.Intn(hi-lo+1)
	}
	if t.NumberOfConnectors > 0 {
		return t.NumberOfConnectors
	}
	return 1
}

// SupervisionURL picks one URL for station index per the distribution
// policy; Affinity is deterministic (index modulo len), RoundRobin is the
// same formula applied by the caller across a known sequence of indices,
// Random draws uniformly.
func (t *Template) SupervisionURL(index int) string {
	if len(t.SupervisionURLs) == 0 {
		return ""
	}
	switch t.SupervisionDistribution {
	case DistributionRandom:
		return t.SupervisionURLs[rand.Intn(len(t.SupervisionURLs))]
	default: // round-robin and affinity both reduce to index modulo, same as the teacher's round-robin gateway pool selection
		return t.SupervisionURLs[index%len(t.SupervisionURLs)]
	}
}

// HashID derives the stable station id from the template's base name and
// instance index, per spec §3's "stable hash id (derived from template +
// index)": the base name followed by the first 8 hex digits of the SHA-256
// of "baseName#index". Only the base name and index feed the hash, so two
// templates sharing a base name produce the same id for the same index.
func HashID(baseName string, index int) string {
	sum := sha256.Sum256([]byte(fmt.Sprintf("%s#%d", baseName, index)))
	return fmt.Sprintf("%s-%s", baseName, hex.EncodeToString(sum[:])[:8])
}

// ATGDuration converts the template's second-granularity ATG fields and
// StopAfterHours into time.Duration, since the template file is
// human-authored JSON while the rest of the codebase works in durations.
func (a ATG) ATGDuration() (minDelay, maxDelay, minDuration, maxDuration, stopAfter time.Duration) {
	minDelay = time.Duration(a.MinDelayBetweenTwoTransactions) * time.Second
	maxDelay = time.Duration(a.MaxDelayBetweenTwoTransactions) * time.Second
	minDuration = time.Duration(a.MinDuration) * time.Second
	maxDuration = time.Duration(a.MaxDuration) * time.Second
	if a.StopAfterHours > 0 {
		stopAfter = time.Duration(a.StopAfterHours * float64(time.Hour))
	}
	return
}

// IdTags reads one id-tag per line from an idTagsFile, skipping blank lines
// and '#' comments. The path is used as given; a relative path resolves
// against the process working directory.
func IdTags(path string) ([]string, error) {
	if path == "" {
		return nil, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("template: read id tags %s: %w", path, err)
	}
	var tags []string
	for _, line := range strings.Split(string(raw), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		tags = append(tags, line)
	}
	return tags, nil
}
