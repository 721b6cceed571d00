package models

// BoardState maps every stage to its ordered cards.
type BoardState map[Column][]JobRecord

// NewBoardState returns a board with all seven columns present and empty.
func NewBoardState() BoardState {
	b := make(BoardState, len(Columns))
	for _, c := range Columns {
		b[c] = []JobRecord{}
	}
	return b
}

// Clone returns a copy whose column slices can be modified independently.
// Records are values; their Extra maps are shared.
func (b BoardState) Clone() BoardState {
	out := make(BoardState, len(Columns))
	for _, c := range Columns {
		src := b[c]
		dst := make([]JobRecord, len(src))
		copy(dst, src)
		out[c] = dst
	}
	return out
}

// Find locates the record with the given id.
func (b BoardState) Find(id string) (Column, int, bool) {
	for _, c := range Columns {
		for i, r := range b[c] {
			if r.ID == id {
				return c, i, true
			}
		}
	}
	return "", 0, false
}

// Len returns the number of records across all columns.
func (b BoardState) Len() int {
	n := 0
	for _, c := range Columns {
		n += len(b[c])
	}
	return n
}

// IDs returns every record id in column order.
func (b BoardState) IDs() []string {
	out := make([]string, 0, b.Len())
	for _, c := range Columns {
		for _, r := range b[c] {
			out = append(out, r.ID)
		}
	}
	return out
}
