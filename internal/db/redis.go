package db

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/airenas/asr-stream-client/internal/domain"
	"github.com/airenas/asr-stream-client/internal/secure"
	"github.com/airenas/go-app/pkg/goapp"
	"github.com/redis/go-redis/v9"
)

// RedisStore keeps audio and transcripts in Redis, encrypted at rest.
type RedisStore struct {
	client  *redis.Client
	ttl     time.Duration
	crypter *secure.Crypter
}

// NewRedisStore creates a new RedisStore with connection pooling.
func NewRedisStore(connStr string, encryptionKey string) (*RedisStore, error) {
	opt, err := redis.ParseURL(connStr)
	if err != nil {
		return nil, fmt.Errorf("parse redis URL: %w", err)
	}
	goapp.Log.Info().Str("redis", opt.Addr).Int("db", opt.DB).Send()
	rdb := redis.NewClient(opt)

	crypter, err := secure.NewCrypter(encryptionKey)
	if err != nil {
		return nil, fmt.Errorf("create crypter: %w", err)
	}

	return &RedisStore{
		client:  rdb,
		ttl:     time.Hour * 6,
		crypter: crypter,
	}, nil
}

func (r *RedisStore) keyAudio(id string) string {
	return fmt.Sprintf("audio:%s", id)
}

func (r *RedisStore) keyTranscript(id string) string {
	return fmt.Sprintf("transcript:%s", id)
}

// SaveAudio stores WAV bytes in Redis
func (r *RedisStore) SaveAudio(ctx context.Context, id string, chunks [][]byte) error {
	goapp.Log.Trace().Str("id", id).Msg("Save audio")

	data, err := pcmToWav(chunks)
	if err != nil {
		return fmt.Errorf("convert to wav: %w", err)
	}
	encrypted, err := r.crypter.Encrypt(data)
	if err != nil {
		return fmt.Errorf("encrypt: %w", err)
	}

	key := r.keyAudio(id)
	return r.client.Set(ctx, key, encrypted, r.ttl).Err()
}

// GetAudio retrieves WAV bytes from Redis
func (r *RedisStore) GetAudio(ctx context.Context, id string) ([]byte, error) {
	goapp.Log.Trace().Str("id", id).Msg("Get audio")
	key := r.keyAudio(id)
	b, err := r.client.Get(ctx, key).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, fmt.Errorf("not found")
		}
		return nil, err
	}
	decrypted, err := r.crypter.Decrypt(b)
	if err != nil {
		return nil, fmt.Errorf("decrypt: %w", err)
	}
	return decrypted, nil
}

// SaveTranscript stores a transcript in Redis as encrypted JSON
func (r *RedisStore) SaveTranscript(ctx context.Context, tr *domain.Transcript) error {
	key := r.keyTranscript(tr.ID)
	data, err := json.Marshal(tr)
	if err != nil {
		return err
	}
	encrypted, err := r.crypter.Encrypt(data)
	if err != nil {
		return fmt.Errorf("encrypt: %w", err)
	}
	return r.client.Set(ctx, key, encrypted, r.ttl).Err()
}

// GetTranscript retrieves a transcript from Redis
func (r *RedisStore) GetTranscript(ctx context.Context, id string) (*domain.Transcript, error) {
	key := r.keyTranscript(id)
	bs, err := r.client.Get(ctx, key).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, fmt.Errorf("not found")
		}
		return nil, fmt.Errorf("get transcript: %w", err)
	}
	decrypted, err := r.crypter.Decrypt(bs)
	if err != nil {
		return nil, fmt.Errorf("decrypt: %w", err)
	}
	var t domain.Transcript
	if err := json.Unmarshal(decrypted, &t); err != nil {
		return nil, err
	}
	return &t, nil
}

func (r *RedisStore) Close() error {
	return r.client.Close()
}
