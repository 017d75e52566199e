package symptomcheck

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type knowledgeBaseRepoPG struct{ pool *pgxpool.Pool }

func NewKnowledgeBaseRepoPG(pool *pgxpool.Pool) KnowledgeBaseRepository {
	return &knowledgeBaseRepoPG{pool: pool}
}

const conditionCols = `name, symptoms, severity, urgency, description, recommendations`

func scanCondition(row pgx.Row) (Condition, error) {
	var (
		c                 Condition
		severity, urgency string
	)
	if err := row.Scan(&c.Name, &c.Symptoms, &severity, &urgency, &c.Description, &c.Recommendations); err != nil {
		return Condition{}, err
	}
	c.Severity = Severity(severity)
	c.Urgency = Urgency(urgency)
	return c, nil
}

func (r *knowledgeBaseRepoPG) Load(ctx context.Context) (*KnowledgeBase, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+conditionCols+` FROM kb_condition ORDER BY ordinal, name`)
	if err != nil {
		return nil, fmt.Errorf("query conditions: %w", err)
	}
	conditions, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (Condition, error) {
		return scanCondition(row)
	})
	if err != nil {
		return nil, fmt.Errorf("scan conditions: %w", err)
	}

	rows, err = r.pool.Query(ctx, `SELECT label FROM kb_symptom ORDER BY ordinal, label`)
	if err != nil {
		return nil, fmt.Errorf("query vocabulary: %w", err)
	}
	vocabulary, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("scan vocabulary: %w", err)
	}

	if len(conditions) == 0 {
		return nil, fmt.Errorf("kb_condition is empty: %w", ErrInvalidCondition)
	}
	return NewKnowledgeBase(conditions, vocabulary)
}

func (r *knowledgeBaseRepoPG) Replace(ctx context.Context, kb *KnowledgeBase) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM kb_condition`); err != nil {
		return fmt.Errorf("clear conditions: %w", err)
	}
	if _, err := tx.Exec(ctx, `DELETE FROM kb_symptom`); err != nil {
		return fmt.Errorf("clear vocabulary: %w", err)
	}

	conditions := kb.Conditions()
	conditionRows := make([][]interface{}, len(conditions))
	for i, c := range conditions {
		recommendations := c.Recommendations
		if recommendations == nil {
			recommendations = []string{}
		}
		conditionRows[i] = []interface{}{
			i, c.Name, c.Symptoms, string(c.Severity), string(c.Urgency), c.Description, recommendations,
		}
	}
	if _, err := tx.CopyFrom(ctx, pgx.Identifier{"kb_condition"},
		[]string{"ordinal", "name", "symptoms", "severity", "urgency", "description", "recommendations"},
		pgx.CopyFromRows(conditionRows),
	); err != nil {
		return fmt.Errorf("copy conditions: %w", err)
	}

	vocabulary := kb.Vocabulary()
	if _, err := tx.CopyFrom(ctx, pgx.Identifier{"kb_symptom"}, []string{"ordinal", "label"},
		pgx.CopyFromSlice(len(vocabulary), func(i int) ([]interface{}, error) {
			return []interface{}{i, vocabulary[i]}, nil
		}),
	); err != nil {
		return fmt.Errorf("copy vocabulary: %w", err)
	}

	return tx.Commit(ctx)
}
