package schema

import (
	"encoding/json"
	"fmt"
	"os"

	"shrimp/internal/errors"
)

// ClientSlots is the number of client slots the wide schema is built around.
// Every canonical column cross-product assumes exactly this many slots; the
// trained model's feature width depends on it.
const ClientSlots = 7

// ClientCodeBase is subtracted from a raw client code to derive its slot.
const ClientCodeBase = 2100000

// Share-of-wallet metric names as they appear in wide column keys.
const (
	MetricPotentialGroup     = "POTENCIAL_GRUPO"
	MetricNicovitaShare      = "NICOVITA"
	MetricMaxAchievableShare = "SOW_MAX_ALCANZABLE"
)

// Client is one slot of the client snapshot taken at model-training time.
type Client struct {
	Code        int    `json:"code"`
	DisplayName string `json:"display_name"`
}

// Agg is the aggregation policy for a column.
type Agg string

const (
	AggSum  Agg = "sum"
	AggMean Agg = "mean"
)

// Schema is the versioned column manifest the model was trained with. It is
// the single declared source of truth for feature ordering, output ordering,
// aggregation policy and the slot-to-client mapping. It is loaded once and
// never re-derived from live data.
type Schema struct {
	Version      string   `json:"version"`
	ColumnsOrder []string `json:"columns_order"`
	ColumnsOut   []string `json:"columns_out"`
	ColumnsMean  []string `json:"columns_mean"`
	Clients      []Client `json:"clients"`
	Families     []string `json:"families"`
	LineGroups   []string `json:"line_groups"`

	meanSet map[string]bool
}

// Load reads and validates the schema artifact from a JSON file.
func Load(path string) (*Schema, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read schema artifact %s", path)
	}

	var s Schema
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil, errors.Wrapf(err, "failed to parse schema artifact %s", path)
	}

	if err := s.Validate(); err != nil {
		return nil, err
	}
	s.buildIndex()

	return &s, nil
}

// Validate checks the internal consistency of the manifest.
func (s *Schema) Validate() error {
	if s.Version == "" {
		return errors.ConfigInvalid("schema artifact has no version")
	}
	if len(s.ColumnsOrder) == 0 {
		return errors.ConfigInvalid("schema artifact has empty columns_order")
	}
	if len(s.ColumnsOut) == 0 {
		return errors.ConfigInvalid("schema artifact has empty columns_out")
	}
	if len(s.Clients) == 0 || len(s.Clients) > ClientSlots {
		return errors.ConfigInvalid(fmt.Sprintf(
			"schema artifact must declare between 1 and %d clients, got %d", ClientSlots, len(s.Clients)))
	}
	if len(s.Families) == 0 || len(s.LineGroups) == 0 {
		return errors.ConfigInvalid("schema artifact must declare families and line_groups")
	}

	order := make(map[string]bool, len(s.ColumnsOrder))
	for _, col := range s.ColumnsOrder {
		if order[col] {
			return errors.ConfigInvalid(fmt.Sprintf("duplicate column %s in columns_order", col))
		}
		order[col] = true
	}
	for _, col := range s.ColumnsOut {
		if !order[col] {
			return errors.ConfigInvalid(fmt.Sprintf("output column %s missing from columns_order", col))
		}
	}

	return nil
}

func (s *Schema) buildIndex() {
	s.meanSet = make(map[string]bool, len(s.ColumnsMean))
	for _, col := range s.ColumnsMean {
		s.meanSet[col] = true
	}
}

// InputWidth is the model's per-week input feature count.
func (s *Schema) InputWidth() int { return len(s.ColumnsOrder) }

// OutputWidth is the model's per-week output feature count.
func (s *Schema) OutputWidth() int { return len(s.ColumnsOut) }

// AggPolicy returns how values in the same bucket combine for a column.
// Ratio and index metrics average; everything else (volumes) sums.
func (s *Schema) AggPolicy(column string) Agg {
	if s.meanSet == nil {
		s.buildIndex()
	}
	if s.meanSet[column] {
		return AggMean
	}
	return AggSum
}

// ClientName maps a slot (1-based) to the snapshotted display name.
func (s *Schema) ClientName(slot int) (string, error) {
	if slot < 1 || slot > len(s.Clients) {
		return "", errors.SchemaDrift(fmt.Sprintf("client slot %d outside snapshot range 1..%d", slot, len(s.Clients)))
	}
	return s.Clients[slot-1].DisplayName, nil
}

// SlotForClientCode derives the wide-schema slot from a raw client code.
func SlotForClientCode(code int) (int, error) {
	slot := code - ClientCodeBase
	if slot < 1 || slot > ClientSlots {
		return 0, errors.SchemaDrift(fmt.Sprintf("client code %d maps to slot %d, outside 1..%d", code, slot, ClientSlots))
	}
	return slot, nil
}

// FamilyLineKeys generates the family-line naming dimension, family-major.
func (s *Schema) FamilyLineKeys() []string {
	keys := make([]string, 0, len(s.Families)*len(s.LineGroups))
	for _, family := range s.Families {
		for _, line := range s.LineGroups {
			keys = append(keys, family+"_"+line)
		}
	}
	return keys
}

// SalesColumns generates the canonical sales-volume column keys: one column
// per family-line per client slot, slot-major, independent of what data is
// actually present.
func (s *Schema) SalesColumns() []string {
	familyLines := s.FamilyLineKeys()
	columns := make([]string, 0, ClientSlots*len(familyLines))
	for slot := 1; slot <= ClientSlots; slot++ {
		for _, fl := range familyLines {
			columns = append(columns, fmt.Sprintf("%s_%d", fl, slot))
		}
	}
	return columns
}

// ShareColumns generates the canonical share-of-wallet column keys,
// slot-major, metric order fixed.
func (s *Schema) ShareColumns() []string {
	metrics := []string{MetricNicovitaShare, MetricPotentialGroup, MetricMaxAchievableShare}
	columns := make([]string, 0, ClientSlots*len(metrics))
	for slot := 1; slot <= ClientSlots; slot++ {
		for _, metric := range metrics {
			columns = append(columns, fmt.Sprintf("%s_%d", metric, slot))
		}
	}
	return columns
}

// VerifyClients compares the live client enumeration against the training
// snapshot. Any difference means historical column semantics would silently
// shift, so it is surfaced as schema drift rather than tolerated.
func (s *Schema) VerifyClients(live []Client) error {
	if len(live) != len(s.Clients) {
		return errors.SchemaDrift(fmt.Sprintf(
			"client list changed since training: snapshot has %d clients, store has %d", len(s.Clients), len(live)))
	}
	for i, c := range live {
		if c.Code != s.Clients[i].Code {
			return errors.SchemaDrift(fmt.Sprintf(
				"client slot %d changed since training: snapshot code %d, store code %d", i+1, s.Clients[i].Code, c.Code))
		}
	}
	return nil
}
