/*
the implementation of unpinned list

Every buffer whose pin count is 0 is on this list. A buffer is appended to the tail when its pin count drops to 0,
and leaves the list when it is chosen for reuse (always the head) or when it is pinned again while still holding its block.
So the buffer which became unpinned earliest is reused first (FIFO).
This is not LRU: pinning a buffer again doesn't move it to the tail, it just takes the buffer off the list.

Initially all buffers are free and on the list in the order of buffer id.
The list is protected by the manager's monitor.
*/
package buffer

import "container/list"

// unpinnedList is FIFO list of unpinned buffers
type unpinnedList struct {
	l *list.List
}

// newUnpinnedList initializes unpinned list
func newUnpinnedList() *unpinnedList {
	return &unpinnedList{
		l: list.New(),
	}
}

// pushBack appends the buffer to the tail
func (ul *unpinnedList) pushBack(buf *Buffer) {
	buf.elem = ul.l.PushBack(buf)
}

// pushFront puts the buffer back to the head
// this is used when the buffer was popped but could not be reused
func (ul *unpinnedList) pushFront(buf *Buffer) {
	buf.elem = ul.l.PushFront(buf)
}

// popFront removes the head of the list and returns it
// if there is no buffer in the list, just return nil
func (ul *unpinnedList) popFront() *Buffer {
	e := ul.l.Front()
	if e == nil {
		return nil
	}
	buf := ul.l.Remove(e).(*Buffer)
	buf.elem = nil
	return buf
}

// remove removes the buffer from the list wherever it is
func (ul *unpinnedList) remove(buf *Buffer) {
	if buf.elem == nil {
		return
	}
	ul.l.Remove(buf.elem)
	buf.elem = nil
}

// len returns the number of buffers in the list
func (ul *unpinnedList) len() int {
	return ul.l.Len()
}

// each calls fn for each buffer from head to tail until fn returns false
func (ul *unpinnedList) each(fn func(*Buffer) bool) {
	for e := ul.l.Front(); e != nil; e = e.Next() {
		if !fn(e.Value.(*Buffer)) {
			return
		}
	}
}

// ids returns buffer ids from head to tail
func (ul *unpinnedList) ids() []BufferID {
	ids := make([]BufferID, 0, ul.len())
	ul.each(func(buf *Buffer) bool {
		ids = append(ids, buf.id)
		return true
	})
	return ids
}
