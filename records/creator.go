package records

import (
	"context"
	"fmt"
)

type ErrorCode string

const ERROR_CODE_ENTITY_NOT_FOUND ErrorCode = "ENTITY_NOT_FOUND"
const ERROR_CODE_VALIDATION_REJECTED ErrorCode = "VALIDATION_REJECTED"
const ERROR_CODE_TRANSIENT ErrorCode = "TRANSIENT"

type CreateError struct {
	Code    ErrorCode
	Message string
}

func (e CreateError) Error() string {
	return fmt.Sprintf("record creation failed [%s]: %s", e.Code, e.Message)
}

// Creator is the downstream record-creation boundary. Success means the
// store returned a created record id. The call is observed, never
// transactionally coupled to the run ledger; the idempotency key bounds
// the at-least-once risk under retries.
type Creator interface {
	Create(ctx context.Context, tenant string, entityLogicalName string, data map[string]any, idempotencyKey string) (string, error)
}
