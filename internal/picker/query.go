package picker

import "unicode"

// Query is the mutable query buffer: a rune sequence plus a cursor
// offset within it. Every edit reports whether the text changed so the
// session can skip redundant refilters.
type Query struct {
	runes  []rune
	cursor int
}

// String returns the buffer contents.
func (q *Query) String() string {
	return string(q.runes)
}

// Cursor returns the rune offset of the edit cursor.
func (q *Query) Cursor() int {
	return q.cursor
}

// Insert places r at the cursor and advances it.
func (q *Query) Insert(r rune) {
	q.runes = append(q.runes, 0)
	copy(q.runes[q.cursor+1:], q.runes[q.cursor:])
	q.runes[q.cursor] = r
	q.cursor++
}

// Backspace deletes the rune before the cursor. Returns false at the
// start of the buffer.
func (q *Query) Backspace() bool {
	if q.cursor == 0 {
		return false
	}
	copy(q.runes[q.cursor-1:], q.runes[q.cursor:])
	q.runes = q.runes[:len(q.runes)-1]
	q.cursor--
	return true
}

// DeleteWord removes the word before the cursor along with any spaces
// separating it from the cursor. Returns false when nothing changed.
func (q *Query) DeleteWord() bool {
	if q.cursor == 0 {
		return false
	}
	i := q.cursor
	for i > 0 && unicode.IsSpace(q.runes[i-1]) {
		i--
	}
	for i > 0 && !unicode.IsSpace(q.runes[i-1]) {
		i--
	}
	n := q.cursor - i
	copy(q.runes[i:], q.runes[q.cursor:])
	q.runes = q.runes[:len(q.runes)-n]
	q.cursor = i
	return true
}

// Clear empties the buffer. Returns false when it was already empty.
func (q *Query) Clear() bool {
	if len(q.runes) == 0 {
		return false
	}
	q.runes = q.runes[:0]
	q.cursor = 0
	return true
}

// Left moves the cursor one rune left.
func (q *Query) Left() {
	if q.cursor > 0 {
		q.cursor--
	}
}

// Right moves the cursor one rune right.
func (q *Query) Right() {
	if q.cursor < len(q.runes) {
		q.cursor++
	}
}
