package bplustree

import "encoding/binary"

// metadataEncodedSize is rootPageId + nextPageId, two machine words.
const metadataEncodedSize = 16

// TreeMetadata is persisted at page 0 of every tree file: the current root
// and the monotonically increasing page-id allocator. It is written at
// tree construction and at Close, never after every mutation.
type TreeMetadata struct {
	RootPageId PageId
	NextPageId PageId
}

func (m *TreeMetadata) encode() []byte {
	buf := make([]byte, metadataEncodedSize)
	binary.LittleEndian.PutUint64(buf[0:8], uint64(m.RootPageId))
	binary.LittleEndian.PutUint64(buf[8:16], uint64(m.NextPageId))
	return buf
}

func decodeMetadata(buf []byte) *TreeMetadata {
	return &TreeMetadata{
		RootPageId: PageId(binary.LittleEndian.Uint64(buf[0:8])),
		NextPageId: PageId(binary.LittleEndian.Uint64(buf[8:16])),
	}
}
