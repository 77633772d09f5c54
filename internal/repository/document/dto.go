package document

import (
	"encoding/binary"
	"math"
	"strconv"

	domchunk "github.com/campusdesk/retrievald/internal/domain/chunk"
	domdoc "github.com/campusdesk/retrievald/internal/domain/document"
)

// buildDocFields converts a domain Document into a flat map[string]string for HSET.
func buildDocFields(doc *domdoc.Document) map[string]string {
	return map[string]string{
		"title":          doc.Title(),
		"owner":          doc.Owner(),
		"status":         string(doc.Status()),
		"failure_reason": doc.FailureReason(),
		"active_version": strconv.Itoa(doc.ActiveVersion()),
		"chunk_count":    strconv.Itoa(doc.ChunkCount()),
		"truncated":      strconv.FormatBool(doc.Truncated()),
		"created_at":     strconv.FormatInt(doc.CreatedAt(), 10),
		"updated_at":     strconv.FormatInt(doc.UpdatedAt(), 10),
	}
}

// parseDocFields converts a flat hash map back into a domain Document.
func parseDocFields(id string, m map[string]string) domdoc.Document {
	activeVersion, _ := strconv.Atoi(m["active_version"])
	chunkCount, _ := strconv.Atoi(m["chunk_count"])
	truncated, _ := strconv.ParseBool(m["truncated"])
	createdAt, _ := strconv.ParseInt(m["created_at"], 10, 64)
	updatedAt, _ := strconv.ParseInt(m["updated_at"], 10, 64)

	return domdoc.Reconstruct(
		id, m["title"], m["owner"], domdoc.Status(m["status"]), m["failure_reason"],
		activeVersion, chunkCount, truncated, createdAt, updatedAt,
	)
}

// buildChunkFields converts a domain Chunk into a flat hash for HSET.
// Field names match the FT index schema: chunk_id and doc_id are TAGs,
// doc_version and chunk_index are NUMERIC, __content is TEXT, __vector
// is the binary embedding blob.
func buildChunkFields(c *domchunk.Chunk, version int) map[string]string {
	m := map[string]string{
		"chunk_id":    c.ID(),
		"doc_id":      c.DocID(),
		"doc_version": strconv.Itoa(version),
		"chunk_index": strconv.Itoa(c.Index()),
		"char_count":  strconv.Itoa(c.CharCount()),
		"__content":   c.Text(),
		"__vector":    vectorToBytes(c.Vector()),
	}
	if c.Page() > 0 {
		m["page"] = strconv.Itoa(c.Page())
	}
	if c.Section() != "" {
		m["section"] = c.Section()
	}
	return m
}

// parseChunkFields converts a flat hash back into a domain Chunk.
func parseChunkFields(m map[string]string) domchunk.Chunk {
	index, _ := strconv.Atoi(m["chunk_index"])
	page, _ := strconv.Atoi(m["page"])
	return domchunk.Reconstruct(
		m["doc_id"], index, m["__content"],
		bytesToVector(m["__vector"]), page, m["section"],
	)
}

// vectorToBytes serializes []float32 to a binary string (4 bytes per float, little-endian).
func vectorToBytes(v []float32) string {
	buf := make([]byte, len(v)*4)
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return string(buf)
}

// bytesToVector deserializes a binary string back to []float32.
func bytesToVector(s string) []float32 {
	b := []byte(s)
	if len(b)%4 != 0 {
		return nil
	}
	v := make([]float32, len(b)/4)
	for i := range v {
		v[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*4:]))
	}
	return v
}
