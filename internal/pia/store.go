package pia

import "context"

// Store persists assessments. The table is append-only; there is no
// update or delete path.
type Store interface {
	Insert(ctx context.Context, assessment Assessment) error
	List(ctx context.Context) ([]Assessment, error)
}
