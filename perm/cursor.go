package perm

// Cursor is a random-access position over a Vector. Dereferencing it with
// Offset yields the original data offset of the key at that sorted rank.
// Cursors are values; stepping returns a new cursor.
type Cursor struct {
	vec *Vector
	pos int
}

// Offset returns the original data offset at the cursor. The cursor must
// be valid.
func (c Cursor) Offset() int {
	return int(c.vec.Offset(c.pos))
}

// Value decodes the full entry at the cursor.
func (c Cursor) Value() Value {
	return c.vec.Get(c.pos)
}

// Pos returns the sorted position of the cursor.
func (c Cursor) Pos() int { return c.pos }

// Valid reports whether the cursor points at an entry.
func (c Cursor) Valid() bool { return c.pos >= 0 && c.pos < c.vec.Len() }

// IsEnd reports whether the cursor is the past-the-end position.
func (c Cursor) IsEnd() bool { return c.pos == c.vec.Len() }

func (c Cursor) Next() Cursor { return Cursor{vec: c.vec, pos: c.pos + 1} }
func (c Cursor) Prev() Cursor { return Cursor{vec: c.vec, pos: c.pos - 1} }

// Add moves the cursor by d positions, d may be negative.
func (c Cursor) Add(d int) Cursor { return Cursor{vec: c.vec, pos: c.pos + d} }

// Distance returns c - other for two cursors over the same vector.
func (c Cursor) Distance(other Cursor) int { return c.pos - other.pos }

func (c Cursor) Less(other Cursor) bool { return c.pos < other.pos }

// Equal reports whether both cursors point at the same position of the
// same vector.
func (c Cursor) Equal(other Cursor) bool {
	return c.vec == other.vec && c.pos == other.pos
}
