package repositories

import (
	"context"
	"fmt"
	"github.com/maxaizer/scout-pipeline/internal/entities"
	"github.com/pkg/errors"
	"gorm.io/gorm"
	"strconv"
	"strings"
)

var ErrMissingCandidateKey = errors.New("query result has no source_key column")

const (
	candidateKeyColumn = "source_key"
	matchCountColumn   = "keyword_match_count"
)

// CandidateQuery runs generated filter queries against the candidate store.
type CandidateQuery struct {
	db *gorm.DB
}

func NewCandidateQuery(db *gorm.DB) *CandidateQuery {
	return &CandidateQuery{db: db}
}

// ExecuteAndPersist runs the query, upserts every returned candidate for the
// position and completes the run. Nothing is written if any step fails.
func (q *CandidateQuery) ExecuteAndPersist(ctx context.Context, query string, runID, positionID int) (entities.QueryResult, error) {
	var result entities.QueryResult

	err := q.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		if result, err = scanQuery(tx, query); err != nil {
			return err
		}
		if err = upsertPreserving(tx, positionID, result.Keys()); err != nil {
			return errors.Wrap(err, "couldn't upsert position candidates")
		}
		return markCompleted(tx, runID, len(result.Rows))
	})
	if err != nil {
		return entities.QueryResult{}, err
	}
	return result, nil
}

func scanQuery(tx *gorm.DB, query string) (entities.QueryResult, error) {
	rows, err := tx.Raw(query).Rows()
	if err != nil {
		return entities.QueryResult{}, errors.Wrap(err, "filter query failed")
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return entities.QueryResult{}, err
	}

	keyIndex, matchIndex := -1, -1
	for i, column := range columns {
		switch strings.ToLower(column) {
		case candidateKeyColumn:
			keyIndex = i
		case matchCountColumn:
			matchIndex = i
		}
	}
	if keyIndex < 0 {
		return entities.QueryResult{}, ErrMissingCandidateKey
	}

	result := entities.QueryResult{Columns: columns, Rows: []entities.CandidateRow{}}
	for rows.Next() {
		values := make([]any, len(columns))
		pointers := make([]any, len(columns))
		for i := range values {
			pointers[i] = &values[i]
		}
		if err = rows.Scan(pointers...); err != nil {
			return entities.QueryResult{}, err
		}
		for i, v := range values {
			if b, ok := v.([]byte); ok {
				values[i] = string(b)
			}
		}

		key := stringify(values[keyIndex])
		if key == "" {
			return entities.QueryResult{}, errors.Wrapf(ErrMissingCandidateKey, "row %d", len(result.Rows)+1)
		}

		row := entities.CandidateRow{CandidateKey: key, Values: values}
		if matchIndex >= 0 {
			if n, convErr := strconv.Atoi(stringify(values[matchIndex])); convErr == nil {
				row.MatchCount = &n
			}
		}
		result.Rows = append(result.Rows, row)
	}

	if err = rows.Err(); err != nil {
		return entities.QueryResult{}, errors.Wrap(err, "filter query failed")
	}
	return result, nil
}

func stringify(v any) string {
	switch value := v.(type) {
	case nil:
		return ""
	case string:
		return value
	default:
		return fmt.Sprint(value)
	}
}
