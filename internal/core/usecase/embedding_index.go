package usecase

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"math"
	"sort"
	"strings"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/tshaffer/memorappy/internal/core/domain"
	"github.com/tshaffer/memorappy/internal/core/ports"
)

const (
	DefaultTopK               = 5
	DefaultEmbeddingCacheSize = 4096
)

type RankCandidate struct {
	ID   string
	Text string
}

type RankedID struct {
	ID    string  `json:"id"`
	Score float64 `json:"score"`
}

type embeddingCall struct {
	done chan struct{}
	vec  []float32
	err  error
}

type EmbeddingIndexOptions struct {
	CacheSize   int
	DefaultTopK int
	Persistent  ports.EmbeddingCache
	Observer    ports.RetrievalObserver
	Logger      *slog.Logger
}

// EmbeddingIndex ranks candidate texts by cosine similarity to a query.
// Vectors are cached by content hash; a text is embedded at most once at a time,
// later callers join the in-flight computation.
type EmbeddingIndex struct {
	embeddings  ports.Embeddings
	persistent  ports.EmbeddingCache
	cache       *lru.Cache[string, []float32]
	defaultTopK int
	observer    ports.RetrievalObserver
	logger      *slog.Logger

	mu       sync.Mutex
	inflight map[string]*embeddingCall
}

func NewEmbeddingIndex(embeddings ports.Embeddings, opts EmbeddingIndexOptions) *EmbeddingIndex {
	if opts.CacheSize <= 0 {
		opts.CacheSize = DefaultEmbeddingCacheSize
	}
	if opts.DefaultTopK <= 0 {
		opts.DefaultTopK = DefaultTopK
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	cache, _ := lru.New[string, []float32](opts.CacheSize)
	return &EmbeddingIndex{
		embeddings:  embeddings,
		persistent:  opts.Persistent,
		cache:       cache,
		defaultTopK: opts.DefaultTopK,
		observer:    opts.Observer,
		logger:      opts.Logger,
		inflight:    make(map[string]*embeddingCall),
	}
}

// Rank returns candidate ids by descending similarity, ties broken by id, cut to topK.
func (ix *EmbeddingIndex) Rank(ctx context.Context, query string, candidates []RankCandidate, topK int) ([]RankedID, error) {
	if topK <= 0 {
		topK = ix.defaultTopK
	}
	if len(candidates) == 0 {
		return []RankedID{}, nil
	}

	texts := make([]string, 0, len(candidates)+1)
	texts = append(texts, query)
	for _, c := range candidates {
		texts = append(texts, c.Text)
	}

	vectors, err := ix.vectors(ctx, texts)
	if err != nil {
		return nil, err
	}

	queryVec := vectors[0]
	ranked := make([]RankedID, 0, len(candidates))
	for i, c := range candidates {
		ranked = append(ranked, RankedID{
			ID:    c.ID,
			Score: CosineSimilarity(queryVec, vectors[i+1]),
		})
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].Score != ranked[j].Score {
			return ranked[i].Score > ranked[j].Score
		}
		return ranked[i].ID < ranked[j].ID
	})

	if len(ranked) > topK {
		ranked = ranked[:topK]
	}
	return ranked, nil
}

// Warm computes and caches vectors for texts without ranking anything.
func (ix *EmbeddingIndex) Warm(ctx context.Context, texts []string) error {
	_, err := ix.vectors(ctx, texts)
	return err
}

// vectors returns one vector per text. Blank texts map to a nil vector.
func (ix *EmbeddingIndex) vectors(ctx context.Context, texts []string) ([][]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	keys := make([]string, len(texts))
	resolved := make(map[string][]float32, len(texts))
	ownedText := make(map[string]string)
	var owned []string
	var waitKeys []string
	var waitCalls []*embeddingCall
	hits := 0

	ix.mu.Lock()
	for i, text := range texts {
		if strings.TrimSpace(text) == "" {
			continue
		}
		key := ix.contentKey(text)
		keys[i] = key
		if _, ok := resolved[key]; ok {
			continue
		}
		if _, ok := ownedText[key]; ok {
			continue
		}
		if vec, ok := ix.cache.Get(key); ok {
			resolved[key] = vec
			hits++
			continue
		}
		if call, ok := ix.inflight[key]; ok {
			resolved[key] = nil
			waitKeys = append(waitKeys, key)
			waitCalls = append(waitCalls, call)
			continue
		}
		call := &embeddingCall{done: make(chan struct{})}
		ix.inflight[key] = call
		owned = append(owned, key)
		ownedText[key] = text
		resolved[key] = nil
		waitKeys = append(waitKeys, key)
		waitCalls = append(waitCalls, call)
	}
	ix.mu.Unlock()

	// The owner computes detached and then waits like any joiner, so its
	// cancellation cannot fail callers that joined its keys.
	if len(owned) > 0 {
		detached := context.WithoutCancel(ctx)
		go func() {
			computed, err := ix.compute(detached, owned, ownedText)
			ix.finish(owned, computed, err)
		}()
	}

	for i, call := range waitCalls {
		select {
		case <-call.done:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
		if call.err != nil {
			return nil, call.err
		}
		resolved[waitKeys[i]] = call.vec
	}

	if ix.observer != nil {
		ix.observer.ObserveEmbeddingCache(hits, len(owned))
	}

	out := make([][]float32, len(texts))
	for i, key := range keys {
		if key != "" {
			out[i] = resolved[key]
		}
	}
	return out, nil
}

func (ix *EmbeddingIndex) compute(ctx context.Context, keys []string, textByKey map[string]string) (map[string][]float32, error) {
	result := make(map[string][]float32, len(keys))

	missing := keys
	if ix.persistent != nil {
		stored, err := ix.persistent.GetEmbeddings(ctx, keys)
		if err != nil {
			ix.logger.Warn("embedding_cache_read_failed", "keys", len(keys), "error", err)
		} else {
			missing = make([]string, 0, len(keys))
			for _, key := range keys {
				if vec, ok := stored[key]; ok && len(vec) > 0 {
					result[key] = vec
					continue
				}
				missing = append(missing, key)
			}
		}
	}
	if len(missing) == 0 {
		return result, nil
	}

	texts := make([]string, len(missing))
	for i, key := range missing {
		texts[i] = textByKey[key]
	}

	vectors, err := ix.embeddings.EmbedBatch(ctx, texts)
	if err != nil {
		return nil, domain.WrapError(domain.ErrEmbeddingUnavailable, "embed batch", err)
	}
	if len(vectors) != len(texts) {
		return nil, domain.WrapError(domain.ErrEmbeddingUnavailable, "embed batch",
			fmt.Errorf("expected %d vectors, got %d", len(texts), len(vectors)))
	}

	fresh := make(map[string][]float32, len(missing))
	for i, key := range missing {
		result[key] = vectors[i]
		fresh[key] = vectors[i]
	}

	if ix.persistent != nil {
		if err := ix.persistent.PutEmbeddings(ctx, fresh); err != nil {
			ix.logger.Warn("embedding_cache_persist_failed", "keys", len(fresh), "error", err)
		}
	}
	return result, nil
}

func (ix *EmbeddingIndex) finish(keys []string, computed map[string][]float32, err error) {
	ix.mu.Lock()
	defer ix.mu.Unlock()

	for _, key := range keys {
		call := ix.inflight[key]
		delete(ix.inflight, key)
		if err != nil {
			call.err = err
		} else {
			call.vec = computed[key]
			ix.cache.Add(key, call.vec)
		}
		close(call.done)
	}
}

func (ix *EmbeddingIndex) contentKey(text string) string {
	sum := sha256.Sum256([]byte(ix.embeddings.ModelName() + "\x00" + text))
	return hex.EncodeToString(sum[:])
}

// CosineSimilarity is dot(a,b)/(|a||b|). Zero-magnitude or mismatched vectors score 0.
func CosineSimilarity(a, b []float32) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		normA += x * x
		normB += y * y
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	sim := dot / (math.Sqrt(normA) * math.Sqrt(normB))
	if math.IsNaN(sim) {
		return 0
	}
	return sim
}
