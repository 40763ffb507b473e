package db

import (
	"errors"
	"strconv"
)

// KeyType is the scalar type of a key attribute.
type KeyType string

const (
	// KeyString is a string key attribute.
	KeyString KeyType = "S"
	// KeyNumber is a number key attribute.
	KeyNumber KeyType = "N"
)

// KeyAttribute describes a partition or sort key.
type KeyAttribute struct {
	Name string
	Type KeyType
}

// SecondaryIndex is a global secondary index projecting all attributes.
type SecondaryIndex struct {
	Name         string
	PartitionKey KeyAttribute
	SortKey      KeyAttribute
}

// TableDefinition is a complete table layout used by EnsureTable.
type TableDefinition struct {
	Name         string
	PartitionKey KeyAttribute
	SortKey      KeyAttribute // optional
	Indexes      []SecondaryIndex
}

// Validate checks that the table definition is well-formed.
func (t *TableDefinition) Validate() error {
	if t.Name == "" {
		return errors.New("table name is required")
	}
	if len(t.Name) < 3 || len(t.Name) > 255 || !IsValidIdentifier(t.Name) {
		return errors.New("table name contains invalid characters")
	}
	if t.PartitionKey.Name == "" {
		return errors.New("partition key is required")
	}

	// An attribute may back several keys but always with the same type.
	types := make(map[string]KeyType)
	check := func(k KeyAttribute) error {
		if k.Name == "" {
			return nil
		}
		if k.Type != KeyString && k.Type != KeyNumber {
			return errors.New("unsupported key type for " + k.Name)
		}
		if prev, ok := types[k.Name]; ok && prev != k.Type {
			return errors.New("conflicting key types for " + k.Name)
		}
		types[k.Name] = k.Type
		return nil
	}
	if err := check(t.PartitionKey); err != nil {
		return err
	}
	if err := check(t.SortKey); err != nil {
		return err
	}

	seen := make(map[string]bool)
	for i := range t.Indexes {
		idx := &t.Indexes[i]
		if idx.Name == "" {
			return errors.New("index name is required at position " + strconv.Itoa(i))
		}
		if seen[idx.Name] {
			return errors.New("duplicate index name: " + idx.Name)
		}
		seen[idx.Name] = true
		if idx.PartitionKey.Name == "" {
			return errors.New("index " + idx.Name + " requires a partition key")
		}
		if err := check(idx.PartitionKey); err != nil {
			return err
		}
		if err := check(idx.SortKey); err != nil {
			return err
		}
	}
	return nil
}

// Attributes returns every key attribute once, in declaration order.
func (t *TableDefinition) Attributes() []KeyAttribute {
	var out []KeyAttribute
	seen := make(map[string]bool)
	add := func(k KeyAttribute) {
		if k.Name == "" || seen[k.Name] {
			return
		}
		seen[k.Name] = true
		out = append(out, k)
	}
	add(t.PartitionKey)
	add(t.SortKey)
	for _, idx := range t.Indexes {
		add(idx.PartitionKey)
		add(idx.SortKey)
	}
	return out
}

// IsValidIdentifier returns true if s matches [a-zA-Z0-9_.-]+.
func IsValidIdentifier(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		isAlpha := (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z')
		isDigit := r >= '0' && r <= '9'
		isSpecial := r == '_' || r == '.' || r == '-'
		if !isAlpha && !isDigit && !isSpecial {
			return false
		}
	}
	return true
}
