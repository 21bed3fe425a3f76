package printing

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/renthus/renthus-admin/internal/db"
)

var ErrAgentNotFound = errors.New("agent not found")

type Agent struct {
	ID        string     `json:"id"`
	CompanyID string     `json:"company_id"`
	Name      string     `json:"name"`
	IsActive  bool       `json:"is_active"`
	LastSeen  *time.Time `json:"last_seen,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
}

// AgentStore manages print agents and their bearer credentials.
type AgentStore struct {
	db db.DBTX
}

func NewAgentStore(dbtx db.DBTX) *AgentStore {
	return &AgentStore{db: dbtx}
}

// Create registers an agent and returns the plaintext API key. This is the
// only time the plaintext is ever available.
func (s *AgentStore) Create(ctx context.Context, companyID, name string) (Agent, string, error) {
	plain, prefix, hash, err := GenerateAPIKey()
	if err != nil {
		return Agent{}, "", err
	}

	var agent Agent
	err = s.db.QueryRow(ctx,
		`INSERT INTO print_agents (company_id, name, api_key_hash, api_key_prefix, is_active)
		 VALUES ($1, $2, $3, $4, true)
		 RETURNING id::text, company_id::text, name, is_active, last_seen, created_at`,
		companyID, name, hash, prefix,
	).Scan(&agent.ID, &agent.CompanyID, &agent.Name, &agent.IsActive, &agent.LastSeen, &agent.CreatedAt)
	if err != nil {
		return Agent{}, "", fmt.Errorf("insert agent: %w", err)
	}

	slog.Info("Print agent created", "agent_id", agent.ID, "company_id", companyID)
	return agent, plain, nil
}

func (s *AgentStore) Get(ctx context.Context, agentID string) (Agent, error) {
	var agent Agent
	err := s.db.QueryRow(ctx,
		`SELECT id::text, company_id::text, name, is_active, last_seen, created_at
		 FROM print_agents WHERE id = $1`,
		agentID,
	).Scan(&agent.ID, &agent.CompanyID, &agent.Name, &agent.IsActive, &agent.LastSeen, &agent.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Agent{}, ErrAgentNotFound
		}
		return Agent{}, fmt.Errorf("get agent: %w", err)
	}
	return agent, nil
}

// RotateKey replaces the agent's credential with a fresh one and returns the
// new plaintext. The previous key stops verifying immediately.
func (s *AgentStore) RotateKey(ctx context.Context, agentID string) (string, error) {
	plain, prefix, hash, err := GenerateAPIKey()
	if err != nil {
		return "", err
	}

	tag, err := s.db.Exec(ctx,
		`UPDATE print_agents SET api_key_hash = $2, api_key_prefix = $3, last_seen = now() WHERE id = $1`,
		agentID, hash, prefix,
	)
	if err != nil {
		return "", fmt.Errorf("rotate key: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return "", ErrAgentNotFound
	}

	slog.Info("Print agent key rotated", "agent_id", agentID)
	return plain, nil
}

// VerifyAPIKey resolves a bearer key to its agent. The nil result is
// indistinguishable across unknown prefix, inactive agent, and hash mismatch.
func (s *AgentStore) VerifyAPIKey(ctx context.Context, key string) (*Agent, error) {
	if len(key) < PrefixLength {
		return nil, nil
	}

	// Prefixes are not unique, so every agent sharing this one is a candidate.
	rows, err := s.db.Query(ctx,
		`SELECT id::text, company_id::text, name, is_active, last_seen, created_at, api_key_hash
		 FROM print_agents WHERE api_key_prefix = $1`,
		key[:PrefixLength],
	)
	if err != nil {
		return nil, fmt.Errorf("lookup agent: %w", err)
	}
	defer rows.Close()

	type candidate struct {
		agent Agent
		hash  string
	}
	var candidates []candidate
	for rows.Next() {
		var c candidate
		if err := rows.Scan(&c.agent.ID, &c.agent.CompanyID, &c.agent.Name, &c.agent.IsActive,
			&c.agent.LastSeen, &c.agent.CreatedAt, &c.hash); err != nil {
			return nil, fmt.Errorf("scan agent: %w", err)
		}
		candidates = append(candidates, c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	rows.Close()

	for _, c := range candidates {
		if c.agent.IsActive && CheckKey(key, c.hash) {
			agent := c.agent
			return &agent, nil
		}
	}
	return nil, nil
}

// TouchLastSeen updates the agent's liveness timestamp.
func (s *AgentStore) TouchLastSeen(ctx context.Context, agentID string) error {
	_, err := s.db.Exec(ctx,
		`UPDATE print_agents SET last_seen = now() WHERE id = $1`,
		agentID,
	)
	return err
}

// TouchLastSeenAsync fires the liveness update without blocking the caller.
// Failures are dropped; agent liveness is best-effort.
func (s *AgentStore) TouchLastSeenAsync(agentID string) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.TouchLastSeen(ctx, agentID); err != nil {
			slog.Debug("Last-seen update failed", "agent_id", agentID, "error", err)
		}
	}()
}
