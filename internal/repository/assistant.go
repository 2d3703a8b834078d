package repository

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/legacy-decks/deckhand/internal/domain"
)

type AssistantRepository struct {
	db dbtx
}

func NewAssistantRepository(pool *pgxpool.Pool) *AssistantRepository {
	return &AssistantRepository{db: pool}
}

func NewAssistantRepositoryWithTx(tx pgx.Tx) *AssistantRepository {
	return &AssistantRepository{db: tx}
}

func (r *AssistantRepository) Create(ctx context.Context, a *domain.Assistant) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO assistants (id, name, description, system_prompt, contact_name, knowledge_enabled, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		a.ID, a.Name, a.Description, a.SystemPrompt, nullableString(a.ContactName), a.KnowledgeEnabled, a.CreatedAt, a.UpdatedAt,
	)
	return err
}

func (r *AssistantRepository) GetByID(ctx context.Context, id string) (*domain.Assistant, error) {
	var a domain.Assistant
	var contactName *string
	err := r.db.QueryRow(ctx,
		`SELECT id, name, description, system_prompt, contact_name, knowledge_enabled, created_at, updated_at
		 FROM assistants WHERE LOWER(id) = LOWER($1)`,
		id,
	).Scan(&a.ID, &a.Name, &a.Description, &a.SystemPrompt, &contactName, &a.KnowledgeEnabled, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrAssistantNotFound
		}
		return nil, err
	}
	if contactName != nil {
		a.ContactName = *contactName
	}
	return &a, nil
}

func (r *AssistantRepository) List(ctx context.Context) ([]*domain.Assistant, error) {
	rows, err := r.db.Query(ctx,
		`SELECT id, name, description, system_prompt, contact_name, knowledge_enabled, created_at, updated_at
		 FROM assistants ORDER BY created_at ASC`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []*domain.Assistant
	for rows.Next() {
		var a domain.Assistant
		var contactName *string
		if err := rows.Scan(&a.ID, &a.Name, &a.Description, &a.SystemPrompt, &contactName, &a.KnowledgeEnabled, &a.CreatedAt, &a.UpdatedAt); err != nil {
			return nil, err
		}
		if contactName != nil {
			a.ContactName = *contactName
		}
		results = append(results, &a)
	}
	return results, rows.Err()
}

func (r *AssistantRepository) Update(ctx context.Context, a *domain.Assistant) error {
	a.UpdatedAt = time.Now().UTC()
	cmdTag, err := r.db.Exec(ctx,
		`UPDATE assistants SET name = $1, description = $2, system_prompt = $3, contact_name = $4, knowledge_enabled = $5, updated_at = $6
		 WHERE id = $7`,
		a.Name, a.Description, a.SystemPrompt, nullableString(a.ContactName), a.KnowledgeEnabled, a.UpdatedAt, a.ID,
	)
	if err != nil {
		return err
	}
	if cmdTag.RowsAffected() == 0 {
		return domain.ErrAssistantNotFound
	}
	return nil
}

func (r *AssistantRepository) Delete(ctx context.Context, id string) error {
	cmdTag, err := r.db.Exec(ctx,
		`DELETE FROM assistants WHERE id = $1`,
		id,
	)
	if err != nil {
		return err
	}
	if cmdTag.RowsAffected() == 0 {
		return domain.ErrAssistantNotFound
	}
	return nil
}
