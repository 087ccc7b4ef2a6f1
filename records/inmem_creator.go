package records

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
)

// InMemCreator backs the memory storage profile and tests. It honors the
// idempotency key: a repeated key returns the originally created id
// without creating a second record.
type InMemCreator struct {
	mu        sync.Mutex
	byIdemKey map[string]string
	records   map[string][]map[string]any
}

func NewInMemCreator() *InMemCreator {
	return &InMemCreator{
		byIdemKey: make(map[string]string),
		records:   make(map[string][]map[string]any),
	}
}

func (c *InMemCreator) Create(ctx context.Context, tenant string, entityLogicalName string, data map[string]any, idempotencyKey string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	key := fmt.Sprintf("%s:%s", tenant, idempotencyKey)
	if id, ok := c.byIdemKey[key]; ok && idempotencyKey != "" {
		return id, nil
	}
	id := uuid.New().String()
	c.byIdemKey[key] = id
	entityKey := fmt.Sprintf("%s:%s", tenant, entityLogicalName)
	c.records[entityKey] = append(c.records[entityKey], data)
	return id, nil
}

// Records returns the data objects created for an entity, in order.
func (c *InMemCreator) Records(tenant string, entityLogicalName string) []map[string]any {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.records[fmt.Sprintf("%s:%s", tenant, entityLogicalName)]
}
