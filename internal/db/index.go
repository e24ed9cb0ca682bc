package db

import (
	"errors"
	"fmt"
)

// StorageHash is the only document layout the job index uses.
const StorageHash = "HASH"

// DistanceMetric used by FT.SEARCH vector similarity queries.
type DistanceMetric string

// DistanceCosine is cosine distance; similarity is 1 - distance.
const DistanceCosine DistanceMetric = "COSINE"

// IndexFieldType enumerates supported FT index field types.
type IndexFieldType int

// Field types.
const (
	IndexFieldNumeric IndexFieldType = iota
	IndexFieldTag
	IndexFieldText
	IndexFieldVector
)

// VectorSpec configures a FLOAT32 HNSW vector field.
// Zero M or EFConstruction keeps the server defaults.
type VectorSpec struct {
	Dim            int
	Distance       DistanceMetric
	M              int
	EFConstruction int
}

// IndexField describes a single field in an FT index schema.
type IndexField struct {
	Name     string
	Type     IndexFieldType
	Sortable bool

	Weight       float64     // TEXT
	TagSeparator string      // TAG
	Vector       *VectorSpec // VECTOR
}

// IndexDefinition is a complete FT index definition used by FT.CREATE.
type IndexDefinition struct {
	Name     string
	Prefixes []string
	Fields   []IndexField
}

// Validate checks that the index definition is well-formed.
func (idx *IndexDefinition) Validate() error {
	if idx.Name == "" {
		return errors.New("index name is required")
	}
	if !validIdentifier(idx.Name) {
		return fmt.Errorf("index name %q contains invalid characters", idx.Name)
	}
	if len(idx.Fields) == 0 {
		return errors.New("at least one field is required")
	}

	seen := make(map[string]struct{}, len(idx.Fields))
	for i := range idx.Fields {
		f := &idx.Fields[i]
		if f.Name == "" {
			return fmt.Errorf("field %d: name is required", i)
		}
		if _, dup := seen[f.Name]; dup {
			return fmt.Errorf("duplicate field name: %s", f.Name)
		}
		seen[f.Name] = struct{}{}

		switch {
		case f.Type == IndexFieldVector && (f.Vector == nil || f.Vector.Dim <= 0):
			return fmt.Errorf("vector field %s requires positive DIM", f.Name)
		case f.Weight < 0:
			return fmt.Errorf("text weight must not be negative: %s", f.Name)
		}
	}
	return nil
}

// validIdentifier reports whether s matches [a-zA-Z0-9_:-]+.
func validIdentifier(s string) bool {
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		case r == '_', r == ':', r == '-':
		default:
			return false
		}
	}
	return s != ""
}
