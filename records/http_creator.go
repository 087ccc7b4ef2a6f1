package records

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

type httpCreator struct {
	baseUrl string
	client  *http.Client
}

// NewHttpCreator talks to the runtime record store over REST. The client
// timeout bounds the call so a stuck downstream cannot hold an attempt
// past its deadline.
func NewHttpCreator(baseUrl string, timeout time.Duration) *httpCreator {
	return &httpCreator{
		baseUrl: baseUrl,
		client:  &http.Client{Timeout: timeout},
	}
}

type createResponse struct {
	RecordId string `json:"record_id"`
}

func (c *httpCreator) Create(ctx context.Context, tenant string, entityLogicalName string, data map[string]any, idempotencyKey string) (string, error) {
	body, err := json.Marshal(data)
	if err != nil {
		return "", CreateError{Code: ERROR_CODE_VALIDATION_REJECTED, Message: err.Error()}
	}
	url := fmt.Sprintf("%s/entities/%s/records", c.baseUrl, entityLogicalName)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", CreateError{Code: ERROR_CODE_TRANSIENT, Message: err.Error()}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Tenant-ID", tenant)
	req.Header.Set("Idempotency-Key", idempotencyKey)
	resp, err := c.client.Do(req)
	if err != nil {
		return "", CreateError{Code: ERROR_CODE_TRANSIENT, Message: err.Error()}
	}
	defer resp.Body.Close()
	switch {
	case resp.StatusCode == http.StatusOK || resp.StatusCode == http.StatusCreated:
		var cr createResponse
		if err := json.NewDecoder(resp.Body).Decode(&cr); err != nil {
			return "", CreateError{Code: ERROR_CODE_TRANSIENT, Message: err.Error()}
		}
		if cr.RecordId == "" {
			return "", CreateError{Code: ERROR_CODE_TRANSIENT, Message: "record store returned no record id"}
		}
		return cr.RecordId, nil
	case resp.StatusCode == http.StatusNotFound:
		return "", CreateError{Code: ERROR_CODE_ENTITY_NOT_FOUND, Message: fmt.Sprintf("entity %s not found", entityLogicalName)}
	case resp.StatusCode == http.StatusBadRequest || resp.StatusCode == http.StatusUnprocessableEntity:
		return "", CreateError{Code: ERROR_CODE_VALIDATION_REJECTED, Message: fmt.Sprintf("record store rejected data with status %d", resp.StatusCode)}
	default:
		return "", CreateError{Code: ERROR_CODE_TRANSIENT, Message: fmt.Sprintf("record store returned status %d", resp.StatusCode)}
	}
}
