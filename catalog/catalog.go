// Package catalog is the minimal, in-memory table/index directory spec.md
// §6 treats as an external collaborator (Catalog.GetTable,
// Catalog.GetTableIndexes), modeled on the teacher's
// metadata.InfoSchemaManager interface shape but holding real
// storage/heap.TableHeap and index/hash.Table handles instead of InnoDB's
// on-disk dictionary, since the SQL binder/planner that would normally
// populate it is out of scope (spec.md §1).
package catalog

import (
	"fmt"
	"sync"

	"github.com/stonedb/stonedb/storage/heap"
	"github.com/stonedb/stonedb/storage/index/hash"
	"github.com/stonedb/stonedb/types"
)

// IndexKeyWidth bounds an index entry's encoded key, matching BusTub's
// fixed-width GenericKey<N> instantiations (spec.md §9): any key longer
// than this is truncated, any shorter is zero-padded.
const IndexKeyWidth = 64

// TableOID identifies a table within a Catalog.
type TableOID uint32

// TableInfo is everything an executor needs to read or write one table.
type TableInfo struct {
	OID    TableOID
	Name   string
	Schema *types.Schema
	Table  *heap.TableHeap
}

// IndexInfo is one secondary index over a table: the attribute positions
// that form its key, and the extendible hash table storing (key, RID).
type IndexInfo struct {
	Name      string
	TableName string
	KeyAttrs  []int
	Index     *hash.Table[string, heap.RID]
}

// KeyFromTuple extracts and encodes this index's key columns from a full
// table tuple, matching BusTub's Tuple::KeyFromTuple used by every
// insert/delete/update executor before touching an index.
func (ix *IndexInfo) KeyFromTuple(schema *types.Schema, tuple []byte) string {
	var key []byte
	for _, attr := range ix.KeyAttrs {
		key = append(key, schema.GetValue(tuple, attr).Encode()...)
	}
	if len(key) > IndexKeyWidth {
		key = key[:IndexKeyWidth]
	}
	return string(key)
}

// Catalog is a concurrency-safe, in-memory table/index directory.
type Catalog struct {
	mu           sync.RWMutex
	nextOID      TableOID
	tables       map[TableOID]*TableInfo
	tablesByName map[string]TableOID
	indexes      map[string][]*IndexInfo
}

func New() *Catalog {
	return &Catalog{
		tables:       make(map[TableOID]*TableInfo),
		tablesByName: make(map[string]TableOID),
		indexes:      make(map[string][]*IndexInfo),
	}
}

// CreateTable registers a new table under name, backed by the already
// constructed heap. Returns an error if the name is already taken.
func (c *Catalog) CreateTable(name string, schema *types.Schema, table *heap.TableHeap) (*TableInfo, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, exists := c.tablesByName[name]; exists {
		return nil, fmt.Errorf("catalog: table %q already exists", name)
	}
	c.nextOID++
	info := &TableInfo{OID: c.nextOID, Name: name, Schema: schema, Table: table}
	c.tables[info.OID] = info
	c.tablesByName[name] = info.OID
	return info, nil
}

// GetTable looks up a table by OID, matching BusTub's Catalog::GetTable.
func (c *Catalog) GetTable(oid TableOID) (*TableInfo, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	info, ok := c.tables[oid]
	return info, ok
}

// GetTableByName looks up a table by name.
func (c *Catalog) GetTableByName(name string) (*TableInfo, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	oid, ok := c.tablesByName[name]
	if !ok {
		return nil, false
	}
	return c.tables[oid], true
}

// CreateIndex registers an index over tableName's keyAttrs columns.
func (c *Catalog) CreateIndex(name, tableName string, keyAttrs []int, index *hash.Table[string, heap.RID]) *IndexInfo {
	c.mu.Lock()
	defer c.mu.Unlock()
	info := &IndexInfo{Name: name, TableName: tableName, KeyAttrs: keyAttrs, Index: index}
	c.indexes[tableName] = append(c.indexes[tableName], info)
	return info
}

// GetTableIndexes returns every index registered over tableName, matching
// BusTub's Catalog::GetTableIndexes.
func (c *Catalog) GetTableIndexes(tableName string) []*IndexInfo {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]*IndexInfo(nil), c.indexes[tableName]...)
}
