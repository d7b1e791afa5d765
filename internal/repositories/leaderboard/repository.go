// Package leaderboard stores the final results of retired players
package leaderboard

//go:generate mockgen -destination=mock/mock_repository.go -package=leaderboardmock github.com/KirkDiggler/dogstory-api/internal/repositories/leaderboard Repository

import (
	"context"
	"strings"
	"time"

	"github.com/KirkDiggler/dogstory-api/internal/errors"
)

// MaxListLimit caps how many records one List call returns
const MaxListLimit = 100

// Record is one retired player's result
type Record struct {
	ID       string
	Name     string
	Score    int
	PlayTime time.Duration
}

// Less orders records by score descending, then play time ascending, then name
func Less(a, b Record) bool {
	if a.Score != b.Score {
		return a.Score > b.Score
	}
	if a.PlayTime != b.PlayTime {
		return a.PlayTime < b.PlayTime
	}
	if a.Name != b.Name {
		return a.Name < b.Name
	}
	return a.ID < b.ID
}

// Repository defines leaderboard persistence
type Repository interface {
	// Save appends records. Saving an identical record twice stores it once,
	// so a retried save never duplicates rows.
	// Returns errors.InvalidArgument for records without an ID or with negative values
	// Returns a Persistence error when storage is unreachable
	Save(ctx context.Context, input SaveInput) (*SaveOutput, error)

	// List returns records in rank order
	// Returns errors.InvalidArgument for a negative offset or a limit outside 1..MaxListLimit
	List(ctx context.Context, input ListInput) (*ListOutput, error)
}

// SaveInput defines the input for saving records
type SaveInput struct {
	Records []Record
}

// SaveOutput defines the output for saving records
type SaveOutput struct {
	Saved int
}

// ListInput defines the input for listing records
type ListInput struct {
	Offset int
	Limit  int
}

// ListOutput defines the output for listing records
type ListOutput struct {
	Records []Record
}

// Validate checks records before they reach storage
func (in *SaveInput) Validate() error {
	vb := errors.NewValidationBuilder()
	for i, rec := range in.Records {
		if strings.TrimSpace(rec.ID) == "" {
			vb.Fieldf("Records", "record %d has no id", i)
		}
		if rec.Score < 0 {
			vb.Fieldf("Records", "record %d has a negative score", i)
		}
		if rec.PlayTime < 0 {
			vb.Fieldf("Records", "record %d has a negative play time", i)
		}
	}
	return vb.Build()
}

// Validate checks paging parameters
func (in *ListInput) Validate() error {
	vb := errors.NewValidationBuilder()
	errors.ValidateNonNegative("Offset", in.Offset, vb)
	errors.ValidateRange("Limit", in.Limit, 1, MaxListLimit, vb)
	return vb.Build()
}
