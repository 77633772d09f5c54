package domain

// KeyPrefix namespaces every key the engine writes to the store.
const KeyPrefix = "retrieval:"

// ChunkKeyPrefix is the key prefix of chunk hash records, also the
// prefix the FT chunk index is built on.
const ChunkKeyPrefix = KeyPrefix + "chunk:"

// ChunkIndexName is the FT index over chunk hashes.
const ChunkIndexName = KeyPrefix + "chunk:idx"
