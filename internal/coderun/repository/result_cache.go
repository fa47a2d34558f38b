package repository

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/klauspost/compress/zstd"

	"coderun/internal/coderun/model"
	"coderun/internal/common/cache"
	appErr "coderun/pkg/errors"
)

const (
	resultKeyPrefix = "coderun:result:"
	runKeyPrefix    = "coderun:run:"
)

// ResultCache stores zstd-compressed run results in a remote cache, both by
// run id and by a digest of the program and input.
type ResultCache struct {
	cache   cache.Cache
	ttl     time.Duration
	encoder *zstd.Encoder
	decoder *zstd.Decoder
}

// NewResultCache creates a result cache. A zero ttl keeps entries forever.
func NewResultCache(cacheClient cache.Cache, ttl time.Duration) (*ResultCache, error) {
	if cacheClient == nil {
		return nil, appErr.New(appErr.CacheError).WithMessage("cache client is not initialized")
	}
	encoder, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return nil, fmt.Errorf("create zstd encoder failed: %w", err)
	}
	decoder, err := zstd.NewReader(nil)
	if err != nil {
		_ = encoder.Close()
		return nil, fmt.Errorf("create zstd decoder failed: %w", err)
	}
	return &ResultCache{cache: cacheClient, ttl: ttl, encoder: encoder, decoder: decoder}, nil
}

// Digest identifies a program and its input.
func Digest(languageID, source, input string) string {
	h := sha256.New()
	h.Write([]byte(strings.ToLower(strings.TrimSpace(languageID))))
	h.Write([]byte{0})
	h.Write([]byte(source))
	h.Write([]byte{0})
	h.Write([]byte(input))
	return hex.EncodeToString(h.Sum(nil))
}

// Lookup returns the result stored under digest. A miss returns nil, nil.
func (r *ResultCache) Lookup(ctx context.Context, digest string) (*model.RunResult, error) {
	if digest == "" {
		return nil, appErr.ValidationError("digest", "required")
	}
	return r.load(ctx, resultKeyPrefix+digest)
}

// Store saves result under digest.
func (r *ResultCache) Store(ctx context.Context, digest string, result model.RunResult) error {
	if digest == "" {
		return appErr.ValidationError("digest", "required")
	}
	return r.save(ctx, resultKeyPrefix+digest, result)
}

// GetRun returns the result of one run. A miss returns nil, nil.
func (r *ResultCache) GetRun(ctx context.Context, runID string) (*model.RunResult, error) {
	if runID == "" {
		return nil, appErr.ValidationError("run_id", "required")
	}
	return r.load(ctx, runKeyPrefix+runID)
}

// SaveRun stores the result of one run under its id.
func (r *ResultCache) SaveRun(ctx context.Context, result model.RunResult) error {
	if result.RunID == "" {
		return appErr.ValidationError("run_id", "required")
	}
	return r.save(ctx, runKeyPrefix+result.RunID, result)
}

// Close releases the codec resources.
func (r *ResultCache) Close() error {
	r.decoder.Close()
	return r.encoder.Close()
}

func (r *ResultCache) load(ctx context.Context, key string) (*model.RunResult, error) {
	val, err := r.cache.Get(ctx, key)
	if err != nil {
		return nil, appErr.Wrapf(err, appErr.CacheError, "load %s failed", key)
	}
	if val == "" {
		return nil, nil
	}
	raw, err := r.decoder.DecodeAll([]byte(val), nil)
	if err != nil {
		return nil, appErr.Wrapf(err, appErr.CacheError, "decompress %s failed", key)
	}
	var result model.RunResult
	if err := json.Unmarshal(raw, &result); err != nil {
		return nil, appErr.Wrapf(err, appErr.CacheError, "decode %s failed", key)
	}
	return &result, nil
}

func (r *ResultCache) save(ctx context.Context, key string, result model.RunResult) error {
	raw, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("marshal run result failed: %w", err)
	}
	payload := r.encoder.EncodeAll(raw, nil)
	if err := r.cache.Set(ctx, key, payload, cache.JitterTTL(r.ttl)); err != nil {
		return appErr.Wrapf(err, appErr.CacheSetFailed, "store %s failed", key)
	}
	return nil
}
