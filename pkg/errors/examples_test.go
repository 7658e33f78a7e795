package errors_test

import (
	"fmt"

	"github.com/agentstation/catalogsync/pkg/errors"
)

// Example demonstrates basic error creation and checking.
func Example() {
	err := &errors.ReferenceNotFoundError{
		Category:  "categories",
		Key:       "shoes",
		Predicate: `externalId="shoes"`,
	}

	if errors.IsNotFound(err) {
		fmt.Println("Reference not found")
	}

	// Output: Reference not found
}

// Example_conflict demonstrates detecting a version conflict.
func Example_conflict() {
	err := errors.WrapResource("update", "product", "p-1", errors.NewConflictError("products", "p-1", 4))

	if errors.IsConflict(err) {
		fmt.Println("refetch and retry")
	}

	// Output: refetch and retry
}
