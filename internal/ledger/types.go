// Package ledger records every calculation the service performs: what was asked and
// what was answered. It is the audit trail behind estimates, reconciliations,
// incentive payouts, bill splits and payment initiations.
package ledger

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Kind identifies the calculation an entry records.
type Kind string

const (
	KindEstimate       Kind = "estimate"
	KindAdjudication   Kind = "adjudication"
	KindReconciliation Kind = "reconciliation"
	KindIncentive      Kind = "incentive"
	KindSplit          Kind = "split"
	KindPayment        Kind = "payment"
)

// IsValid checks if the kind is one of the recorded calculation kinds
func (k Kind) IsValid() bool {
	switch k {
	case KindEstimate, KindAdjudication, KindReconciliation, KindIncentive, KindSplit, KindPayment:
		return true
	default:
		return false
	}
}

// Entry is one recorded calculation.
type Entry struct {
	ID        string          `json:"id"`
	Kind      Kind            `json:"kind"`
	RequestID string          `json:"request_id,omitempty"`
	Request   json.RawMessage `json:"request"`
	Result    json.RawMessage `json:"result"`
	CreatedAt time.Time       `json:"created_at"`
}

// NewEntry marshals request and result into a new entry with a fresh id.
func NewEntry(kind Kind, requestID string, request, result interface{}) (*Entry, error) {
	if !kind.IsValid() {
		return nil, fmt.Errorf("invalid ledger kind: %q", kind)
	}
	req, err := json.Marshal(request)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}
	res, err := json.Marshal(result)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal result: %w", err)
	}
	return &Entry{
		ID:        uuid.New().String(),
		Kind:      kind,
		RequestID: requestID,
		Request:   req,
		Result:    res,
	}, nil
}

// Store defines the interface for ledger storage operations.
type Store interface {
	// Record appends an entry. CreatedAt is set by the store.
	Record(ctx context.Context, entry *Entry) error

	// Get retrieves an entry by id. A missing entry returns an error matching domain.ErrNotFound.
	Get(ctx context.Context, id string) (*Entry, error)

	// List returns entries newest first. An empty kind lists every kind.
	List(ctx context.Context, kind Kind, limit, offset int) ([]*Entry, error)

	// Count returns the number of entries of kind, or of all kinds when kind is empty.
	Count(ctx context.Context, kind Kind) (int64, error)

	// Delete removes an entry by id.
	Delete(ctx context.Context, id string) error

	// Close closes the store and releases resources.
	Close() error
}

// scanner is an interface for sql.Row and sql.Rows
type scanner interface {
	Scan(dest ...interface{}) error
}

func scanEntry(s scanner) (*Entry, error) {
	e := &Entry{}
	var kind string
	var request, result []byte

	if err := s.Scan(&e.ID, &kind, &e.RequestID, &request, &result, &e.CreatedAt); err != nil {
		return nil, err
	}

	e.Kind = Kind(kind)
	e.Request = json.RawMessage(request)
	e.Result = json.RawMessage(result)
	return e, nil
}
