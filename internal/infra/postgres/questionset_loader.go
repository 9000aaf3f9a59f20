package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"quiz-buzzer-service/internal/domain"
	"github.com/jackc/pgx/v4/pgxpool"
)

// QuestionSetLoader loads question-set JSONB from Postgres.
type QuestionSetLoader struct {
	pool *pgxpool.Pool
}

func NewQuestionSetLoader(pool *pgxpool.Pool) *QuestionSetLoader {
	return &QuestionSetLoader{pool: pool}
}

func (l *QuestionSetLoader) LoadQuestionSet(ctx context.Context, setID string) (domain.QuestionSet, error) {
	var raw []byte
	err := l.pool.QueryRow(ctx, `SELECT data FROM question_sets WHERE id=$1`, setID).Scan(&raw)
	if err != nil {
		return domain.QuestionSet{}, fmt.Errorf("load question set: %w", err)
	}
	var set domain.QuestionSet
	if err := json.Unmarshal(raw, &set); err != nil {
		return domain.QuestionSet{}, fmt.Errorf("unmarshal question set: %w", err)
	}
	if set.ID == "" {
		set.ID = setID
	}
	return set, nil
}

func (l *QuestionSetLoader) ListQuestionSets(ctx context.Context) ([]domain.QuestionSetInfo, error) {
	rows, err := l.pool.Query(ctx, `SELECT id, data FROM question_sets ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list question sets: %w", err)
	}
	defer rows.Close()

	var infos []domain.QuestionSetInfo
	for rows.Next() {
		var id string
		var raw []byte
		if err := rows.Scan(&id, &raw); err != nil {
			return nil, fmt.Errorf("scan question set: %w", err)
		}
		var set domain.QuestionSet
		if err := json.Unmarshal(raw, &set); err != nil {
			return nil, fmt.Errorf("unmarshal question set %s: %w", id, err)
		}
		infos = append(infos, domain.QuestionSetInfo{
			ID:        id,
			Title:     set.Title,
			Questions: len(set.Questions),
		})
	}
	return infos, rows.Err()
}
