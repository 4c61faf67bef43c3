package types

import "encoding/binary"

// Column is one field of a Schema: a name and the Kind its values carry.
type Column struct {
	Name string
	Type Kind
}

// Schema is an ordered list of columns, the output shape every executor
// reports via OutputSchema() and the layout storage/heap.Tuple bytes are
// encoded/decoded against.
type Schema struct {
	Columns []Column
}

func NewSchema(cols ...Column) *Schema { return &Schema{Columns: cols} }

func (s *Schema) ColumnCount() int { return len(s.Columns) }

func (s *Schema) ColumnIndex(name string) int {
	for i, c := range s.Columns {
		if c.Name == name {
			return i
		}
	}
	return -1
}

// Encode packs values into a tuple's byte representation: a leading
// null-bitmap (one bit per column), then each non-null value back to
// back — 8 bytes for Integer, 1 byte for Boolean, a uint16 length prefix
// plus bytes for Varchar.
func (s *Schema) Encode(values []Value) []byte {
	bitmapLen := (len(s.Columns) + 7) / 8
	buf := make([]byte, bitmapLen)
	for i, v := range values {
		if !v.IsNull() {
			buf[i/8] |= 1 << uint(i%8)
		}
	}
	for i, v := range values {
		if v.IsNull() {
			continue
		}
		switch s.Columns[i].Type {
		case Integer:
			var b [8]byte
			binary.LittleEndian.PutUint64(b[:], uint64(v.i))
			buf = append(buf, b[:]...)
		case Boolean:
			if v.b {
				buf = append(buf, 1)
			} else {
				buf = append(buf, 0)
			}
		case Varchar:
			var l [2]byte
			binary.LittleEndian.PutUint16(l[:], uint16(len(v.s)))
			buf = append(buf, l[:]...)
			buf = append(buf, v.s...)
		}
	}
	return buf
}

// Decode is Encode's inverse.
func (s *Schema) Decode(data []byte) []Value {
	bitmapLen := (len(s.Columns) + 7) / 8
	values := make([]Value, len(s.Columns))
	off := bitmapLen
	for i, col := range s.Columns {
		null := data[i/8]&(1<<uint(i%8)) == 0
		if null {
			values[i] = NewNull()
			continue
		}
		switch col.Type {
		case Integer:
			values[i] = NewInteger(int64(binary.LittleEndian.Uint64(data[off : off+8])))
			off += 8
		case Boolean:
			values[i] = NewBoolean(data[off] != 0)
			off++
		case Varchar:
			l := int(binary.LittleEndian.Uint16(data[off : off+2]))
			off += 2
			values[i] = NewVarchar(string(data[off : off+l]))
			off += l
		}
	}
	return values
}

// GetValue decodes and returns only the idx'th column, for callers that
// already hold an encoded tuple and want one field (most executors do).
func (s *Schema) GetValue(data []byte, idx int) Value {
	return s.Decode(data)[idx]
}
