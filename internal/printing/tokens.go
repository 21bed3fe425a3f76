package printing

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/renthus/renthus-admin/internal/db"
)

const (
	downloadTokenBytes = 18
	// DefaultTokenTTL bounds how long a minted download link stays valid.
	DefaultTokenTTL = 20 * time.Minute

	consumeCandidateLimit = 10
)

// ConsumedToken is the outcome of a successful single-use token redemption.
type ConsumedToken struct {
	ID              string
	AgentID         string
	EncryptedAPIKey string
}

// TokenStore mints and redeems short-lived download tokens. Each token binds
// a freshly rotated plaintext API key (sealed by the escrow) to one agent.
type TokenStore struct {
	db     db.DBTX
	escrow *Escrow
}

func NewTokenStore(dbtx db.DBTX, escrow *Escrow) *TokenStore {
	return &TokenStore{db: dbtx, escrow: escrow}
}

// Create mints a token for the agent. Only the bcrypt hash and the sealed
// API key are stored; the plaintext token is returned once.
func (s *TokenStore) Create(ctx context.Context, agentID, apiKeyPlain, createdBy string, ttl time.Duration) (string, time.Time, error) {
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}

	b := make([]byte, downloadTokenBytes)
	if _, err := rand.Read(b); err != nil {
		return "", time.Time{}, fmt.Errorf("failed to generate token: %w", err)
	}
	token := hex.EncodeToString(b)
	prefix := token[:PrefixLength]

	hash, err := bcrypt.GenerateFromPassword([]byte(token), keyHashCost)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to hash token: %w", err)
	}

	encryptedKey, err := s.escrow.Encrypt(apiKeyPlain)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("seal api key: %w", err)
	}

	expiresAt := time.Now().Add(ttl)

	var creator any
	if createdBy != "" {
		creator = createdBy
	}
	_, err = s.db.Exec(ctx,
		`INSERT INTO agent_download_tokens (agent_id, token_hash, token_prefix, encrypted_api_key, expires_at, created_by)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		agentID, string(hash), prefix, encryptedKey, expiresAt, creator,
	)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("insert token: %w", err)
	}

	slog.Info("Download token issued", "agent_id", agentID, "expires_at", expiresAt)
	return token, expiresAt, nil
}

// Consume validates a token and marks it used. Returns nil when no unused,
// unexpired candidate matches the token.
func (s *TokenStore) Consume(ctx context.Context, agentID, tokenPlain string) (*ConsumedToken, error) {
	if len(tokenPlain) < PrefixLength {
		return nil, nil
	}

	rows, err := s.db.Query(ctx,
		`SELECT id::text, token_hash, encrypted_api_key
		 FROM agent_download_tokens
		 WHERE agent_id = $1 AND token_prefix = $2 AND NOT used AND expires_at > now()
		 ORDER BY created_at DESC
		 LIMIT `+fmt.Sprint(consumeCandidateLimit),
		agentID, tokenPlain[:PrefixLength],
	)
	if err != nil {
		return nil, fmt.Errorf("query tokens: %w", err)
	}
	defer rows.Close()

	type candidate struct {
		id           string
		hash         string
		encryptedKey *string
	}
	var candidates []candidate
	for rows.Next() {
		var c candidate
		if err := rows.Scan(&c.id, &c.hash, &c.encryptedKey); err != nil {
			return nil, fmt.Errorf("scan token: %w", err)
		}
		candidates = append(candidates, c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	rows.Close()

	for _, c := range candidates {
		if bcrypt.CompareHashAndPassword([]byte(c.hash), []byte(tokenPlain)) != nil {
			continue
		}
		// The NOT used guard is what makes the token single-use: a concurrent
		// redemption that already flipped the row leaves zero rows here.
		tag, err := s.db.Exec(ctx,
			`UPDATE agent_download_tokens SET used = true, used_at = now() WHERE id = $1 AND NOT used`,
			c.id,
		)
		if err != nil {
			return nil, fmt.Errorf("mark token used: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return nil, nil
		}
		consumed := &ConsumedToken{ID: c.id, AgentID: agentID}
		if c.encryptedKey != nil {
			consumed.EncryptedAPIKey = *c.encryptedKey
		}
		return consumed, nil
	}
	return nil, nil
}

// DecryptKey recovers the plaintext API key sealed into a consumed token.
func (s *TokenStore) DecryptKey(encrypted string) (string, error) {
	return s.escrow.Decrypt(encrypted)
}

// WipeKey clears the sealed API key once the bundle has been delivered.
func (s *TokenStore) WipeKey(ctx context.Context, tokenID string) error {
	_, err := s.db.Exec(ctx,
		`UPDATE agent_download_tokens SET encrypted_api_key = NULL WHERE id = $1`,
		tokenID,
	)
	return err
}
