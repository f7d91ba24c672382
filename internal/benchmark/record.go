package benchmark

import "strings"

// DefaultPartitionKeyField is the document field carrying the partition key.
const DefaultPartitionKeyField = "account"

// SyntheticRecord is one generated account document.
type SyntheticRecord struct {
	ID           string  `json:"id" yaml:"id"`
	PartitionKey string  `json:"account" yaml:"account"`
	Balance      float64 `json:"balance" yaml:"balance"`
	Description  string  `json:"description" yaml:"description"`
	CreatedAt    int64   `json:"time" yaml:"time"`
	UpdatedAt    int64   `json:"timec" yaml:"timec"`
	PID          string  `json:"pid" yaml:"pid"`
	RandomValue  int     `json:"randomValue" yaml:"randomValue"`
}

// Document maps the record to the field layout stored in the database. The
// partition key is written under keyField, which defaults to "account".
func (r SyntheticRecord) Document(keyField string) map[string]any {
	if keyField == "" {
		keyField = DefaultPartitionKeyField
	}
	return map[string]any{
		"id":          r.ID,
		keyField:      r.PartitionKey,
		"balance":     r.Balance,
		"description": r.Description,
		"time":        r.CreatedAt,
		"timec":       r.UpdatedAt,
		"pid":         r.PID,
		"randomValue": r.RandomValue,
	}
}

// PartitionKeyField turns a partition key path such as "/account" into the field name "account".
func PartitionKeyField(path string) string {
	field := strings.Trim(path, "/")
	if i := strings.LastIndex(field, "/"); i >= 0 {
		field = field[i+1:]
	}
	if field == "" {
		return DefaultPartitionKeyField
	}
	return field
}

// Batch is a group of records submitted as one atomic unit. All records share PartitionKey.
type Batch struct {
	Index        int
	Chunk        int
	PartitionKey string
	Records      []SyntheticRecord
}

// Size returns the number of records in the batch.
func (b Batch) Size() int {
	return len(b.Records)
}
