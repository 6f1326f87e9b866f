package repository

import (
	"fmt"

	"cloud.google.com/go/firestore"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

const countersCollection = "counters"

// nextSequence reads and bumps a counter document inside tx. It performs a read, so it
// must run before any other write of the same transaction.
func nextSequence(tx *firestore.Transaction, ref *firestore.DocumentRef) (int64, error) {
	var current int64

	snap, err := tx.Get(ref)
	if err != nil && status.Code(err) != codes.NotFound {
		return 0, err
	}
	if err == nil && snap.Exists() {
		value, err := snap.DataAt("next")
		if err != nil {
			return 0, err
		}
		n, ok := value.(int64)
		if !ok {
			return 0, fmt.Errorf("counter %s holds %T, want int64", ref.ID, value)
		}
		current = n
	}

	next := current + 1
	if err := tx.Set(ref, map[string]interface{}{"next": next}); err != nil {
		return 0, err
	}
	return next, nil
}
