package db

import "strings"

// TableBuilder is a fluent builder for table definitions.
type TableBuilder struct {
	def TableDefinition
}

// NewTable starts building a table definition.
func NewTable(name string) *TableBuilder {
	return &TableBuilder{def: TableDefinition{Name: name}}
}

// PartitionKey sets the table partition key.
func (b *TableBuilder) PartitionKey(name string, typ KeyType) *TableBuilder {
	b.def.PartitionKey = KeyAttribute{Name: name, Type: typ}
	return b
}

// SortKey sets the table sort key.
func (b *TableBuilder) SortKey(name string, typ KeyType) *TableBuilder {
	b.def.SortKey = KeyAttribute{Name: name, Type: typ}
	return b
}

// Index adds a global secondary index with string keys.
func (b *TableBuilder) Index(name, partitionKey, sortKey string) *TableBuilder {
	idx := SecondaryIndex{
		Name:         name,
		PartitionKey: KeyAttribute{Name: partitionKey, Type: KeyString},
	}
	if sortKey != "" {
		idx.SortKey = KeyAttribute{Name: sortKey, Type: KeyString}
	}
	b.def.Indexes = append(b.def.Indexes, idx)
	return b
}

// Build validates and returns the table definition.
func (b *TableBuilder) Build() (*TableDefinition, error) {
	if err := b.def.Validate(); err != nil {
		return nil, err
	}
	return &b.def, nil
}

// MustBuild calls Build and panics on error.
func (b *TableBuilder) MustBuild() *TableDefinition {
	def, err := b.Build()
	if err != nil {
		panic(err)
	}
	return def
}

// String returns a debug representation of the layout.
func (t *TableDefinition) String() string {
	parts := []string{"TABLE", t.Name, "HASH", t.PartitionKey.Name}
	if t.SortKey.Name != "" {
		parts = append(parts, "RANGE", t.SortKey.Name)
	}
	for _, idx := range t.Indexes {
		parts = append(parts, "GSI", idx.Name, "HASH", idx.PartitionKey.Name)
		if idx.SortKey.Name != "" {
			parts = append(parts, "RANGE", idx.SortKey.Name)
		}
	}
	return strings.Join(parts, " ")
}
