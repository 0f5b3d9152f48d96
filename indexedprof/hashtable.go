package indexedprof

import (
	"github.com/tokatoka/llvm-profparser/codec"
	"github.com/tokatoka/llvm-profparser/endian"
)

// chainEntry is one on-disk hash-table chain entry: a stored hash, the key
// bytes (a function record's key, typically its name), and the data bytes
// (the function_data payload for that key).
type chainEntry struct {
	hash uint64
	key  []byte
	data []byte
}

// walkHashTable reads an on-disk chained hash table at its header's
// hash_offset: num_buckets(u64), num_entries(u64), then num_buckets
// absolute file offsets (u32 each). A zero offset marks an empty bucket and
// is skipped without error. num_entries is read but never relied upon as a
// termination condition — each chain is self-terminating (see
// walkChain) — because a corrupt or forward-incompatible num_entries must
// never cause the reader to stop early or read past a chain's real end.
func walkHashTable(buf []byte, hashOffset int, engine endian.EndianEngine) ([]chainEntry, error) {
	c := codec.NewCursorAt(buf, hashOffset, engine)

	numBuckets, err := c.U64()
	if err != nil {
		return nil, err
	}
	if _, err := c.U64(); err != nil { // num_entries: advisory only, see doc comment
		return nil, err
	}

	offsets := make([]uint32, numBuckets)
	for i := range offsets {
		v, err := c.U32()
		if err != nil {
			return nil, err
		}
		offsets[i] = v
	}

	var entries []chainEntry
	for _, off := range offsets {
		if off == 0 {
			continue
		}
		chain, err := walkChain(buf, int(off), engine)
		if err != nil {
			return nil, err
		}
		entries = append(entries, chain...)
	}

	return entries, nil
}

// walkChain reads one bucket's chain of entries starting at offset, each
// shaped (hash(u64), data_len(u32), key_len(u32), key_bytes, data_bytes),
// stopping at the first zero-length entry.
func walkChain(buf []byte, offset int, engine endian.EndianEngine) ([]chainEntry, error) {
	c := codec.NewCursorAt(buf, offset, engine)

	var entries []chainEntry
	for {
		hash, err := c.U64()
		if err != nil {
			return nil, err
		}
		dataLen, err := c.U32()
		if err != nil {
			return nil, err
		}
		keyLen, err := c.U32()
		if err != nil {
			return nil, err
		}
		if dataLen == 0 && keyLen == 0 {
			break
		}

		key, err := c.Bytes(int(keyLen))
		if err != nil {
			return nil, err
		}
		data, err := c.Bytes(int(dataLen))
		if err != nil {
			return nil, err
		}

		entries = append(entries, chainEntry{hash: hash, key: key, data: data})
	}

	return entries, nil
}
