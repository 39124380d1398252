package badger

import (
	"encoding/binary"
	"fmt"

	"github.com/poiesic/docrag/core"
)

// Key prefixes for different data types
const (
	chunkRecordPrefix = "chkrec"
	chunkURLPrefix    = "chkurl"
)

// makeChunkKey generates a key for a chunk by its content-derived ID.
func makeChunkKey(id core.ID) []byte {
	return []byte(fmt.Sprintf("%s:%d", chunkRecordPrefix, id))
}

// makeChunkURLKey generates a composite key for the per-page index.
// Format: prefix:urlhash:index, with both fields BigEndian so iteration
// yields a page's chunks in index order.
func makeChunkURLKey(url string, index int) []byte {
	prefix := chunkURLPrefix + ":"
	prefixBytes := []byte(prefix)
	buf := make([]byte, len(prefixBytes)+16)
	offset := copy(buf, prefixBytes)
	binary.BigEndian.PutUint64(buf[offset:], uint64(core.IDFromContent(url)))
	offset += 8
	binary.BigEndian.PutUint64(buf[offset:], uint64(index))
	return buf
}

// makePartialChunkURLKey generates the per-page index prefix for one URL.
func makePartialChunkURLKey(url string) []byte {
	prefix := chunkURLPrefix + ":"
	prefixBytes := []byte(prefix)
	buf := make([]byte, len(prefixBytes)+8)
	offset := copy(buf, prefixBytes)
	binary.BigEndian.PutUint64(buf[offset:], uint64(core.IDFromContent(url)))
	return buf
}

// marshalID encodes an ID as 8 BigEndian bytes for index values.
func marshalID(id core.ID) []byte {
	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, uint64(id))
	return buf
}

// unmarshalID decodes an index value written by marshalID.
func unmarshalID(data []byte) (core.ID, error) {
	if len(data) != 8 {
		return 0, fmt.Errorf("invalid id encoding: %d bytes", len(data))
	}
	return core.ID(binary.BigEndian.Uint64(data)), nil
}
