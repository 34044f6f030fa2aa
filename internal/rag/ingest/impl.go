package ingest

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/nkumar/docchat/internal/adapter/utils"
	"github.com/nkumar/docchat/internal/config"
	"github.com/nkumar/docchat/internal/domain/docModel"
	"github.com/nkumar/docchat/internal/rag/embedding"
	"github.com/nkumar/docchat/internal/rag/vectorDB"
)

// Separators ordered from "best" to "worst" for semantic meaning
var separators = []string{"\n\n", "\n", ". ", " "}

// splitTextIntoChunks splits text into chunks of at most limit characters,
// consecutive chunks sharing up to overlap characters. Splits happen at the
// best separator available before falling back to hard character cuts.
func splitTextIntoChunks(text string, limit int, overlap int) []string {
	if limit <= 0 {
		return nil
	}
	if overlap >= limit {
		overlap = limit - 1
	}
	if len(text) <= limit {
		if strings.TrimSpace(text) == "" {
			return nil
		}
		return []string{text}
	}

	parts := splitParts(text, limit)

	var chunks []string
	current := ""
	for _, part := range parts {
		if len(current)+len(part) > limit {
			if strings.TrimSpace(current) != "" {
				chunks = append(chunks, current)
			}
			// seed the next chunk with the tail of the previous one,
			// trimmed so the seeded chunk can never exceed the limit
			tail := current
			if len(tail) > overlap {
				tail = tail[runeStart(tail, len(tail)-overlap):]
			}
			if len(tail)+len(part) > limit {
				tail = tail[runeStart(tail, len(tail)-(limit-len(part))):]
			}
			current = tail
		}
		current += part
	}
	if strings.TrimSpace(current) != "" {
		chunks = append(chunks, current)
	}
	return chunks
}

// splitParts cuts text into pieces no longer than limit, splitting at the
// coarsest separator present and recursing to finer ones for oversized pieces.
func splitParts(text string, limit int) []string {
	if len(text) <= limit {
		return []string{text}
	}

	for _, sep := range separators {
		if !strings.Contains(text, sep) {
			continue
		}
		var out []string
		for _, piece := range strings.SplitAfter(text, sep) {
			if len(piece) <= limit {
				out = append(out, piece)
			} else {
				out = append(out, splitParts(piece, limit)...)
			}
		}
		return out
	}

	// Hard cut if no separator found (rare)
	var out []string
	for len(text) > limit {
		cut := limit
		for cut > 0 && !utf8.RuneStart(text[cut]) {
			cut--
		}
		if cut == 0 {
			// not valid UTF-8 to begin with, cut on the byte
			cut = limit
		}
		out = append(out, text[:cut])
		text = text[cut:]
	}
	if text != "" {
		out = append(out, text)
	}
	return out
}

// runeStart moves i forward to the nearest rune boundary so slicing never
// splits a multibyte character.
func runeStart(s string, i int) int {
	for i < len(s) && !utf8.RuneStart(s[i]) {
		i++
	}
	return i
}

func getDocType(docPath string) docModel.DocType {
	ext := strings.ToLower(filepath.Ext(docPath))
	switch ext {
	case ".pdf":
		return docModel.PDF
	case ".docx", ".txt", ".rtf":
		return docModel.DOCX
	default:
		return docModel.ERR
	}
}

func extractText(path string, contentType docModel.DocType) (string, int, error) {
	switch contentType {
	case docModel.PDF:
		return extractPDF(path)
	case docModel.DOCX:
		return extractdocxTxtRtf(path)
	default:
		return "", 0, fmt.Errorf("unsupported content type: %s", contentType)
	}
}

// PrepareChunks splits the full document text and tags every chunk with the
// metadata the retriever surfaces later.
func PrepareChunks(text string, doc docModel.Document, pageCount int, embeddingModel string) []docModel.DocChunk {
	stringChunks := splitTextIntoChunks(text, config.ChunkSize, config.ChunkOverlap)

	allChunks := make([]docModel.DocChunk, 0, len(stringChunks))
	for i, chunkText := range stringChunks {
		allChunks = append(allChunks, docModel.DocChunk{
			Doc:            doc,
			ChunkId:        utils.GetNewUUID(),
			Chunk:          chunkText,
			PageCount:      pageCount,
			ChunkOrder:     i,
			EmbeddingModel: embeddingModel,
		})
	}
	return allChunks
}

// BatchIngest embeds and upserts chunks in fixed-size batches. Any batch
// failure aborts the whole ingest so a partial upsert is never reported as
// success.
func BatchIngest(ctx context.Context, documentId string, chunks []docModel.DocChunk, index vectorDB.Index, embedder embedding.Embedder) error {
	batchSize := 100

	for i := 0; i < len(chunks); i += batchSize {
		end := i + batchSize
		if end > len(chunks) {
			end = len(chunks)
		}
		currentBatch := chunks[i:end]

		texts := make([]string, 0, len(currentBatch))
		for _, c := range currentBatch {
			texts = append(texts, c.Chunk)
		}

		vectors, err := embedder.BatchEmbedding(ctx, texts)
		if err != nil {
			return fmt.Errorf("embedding batch failed: %w", err)
		}

		if err := index.UpsertBatch(ctx, documentId, currentBatch, vectors); err != nil {
			return fmt.Errorf("upserting batch failed: %w", err)
		}
	}
	return nil
}
