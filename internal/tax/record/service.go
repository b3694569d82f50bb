// Copyright (c) 2026 FileMyTax. All rights reserved.

package record

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"github.com/filemytax/filemytax/internal/platform/apperr"
)

// Service implements the saved-return use cases.
type Service struct {
	repository Repository
}

// NewService constructs a new [Service] with its storage dependency.
func NewService(repository Repository) *Service {
	return &Service{repository: repository}
}

/*
Load returns the filer's saved return, nil when they have never saved.

Parameters:
  - context: context.Context
  - userID: string

Returns:
  - json.RawMessage: Stored document or nil
  - err: Retrieval failures
*/
func (service *Service) Load(context context.Context, userID string) (json.RawMessage, error) {
	data, err := service.repository.Get(context, userID)
	if err != nil {
		return nil, fmt.Errorf("record_service_load_failed: %w", err)
	}
	return data, nil
}

/*
Save replaces the filer's saved return with a new document.

Description: The document must be a JSON object; anything else (array, string,
number, null) is rejected before touching storage.

Parameters:
  - context: context.Context
  - userID: string
  - data: json.RawMessage

Returns:
  - err: Validation or persistence failures
*/
func (service *Service) Save(context context.Context, userID string, data json.RawMessage) error {
	if !isJSONObject(data) {
		return apperr.ValidationError("data must be a JSON object")
	}

	if err := service.repository.Upsert(context, userID, data); err != nil {
		return fmt.Errorf("record_service_save_failed: %w", err)
	}

	return nil
}

// isJSONObject reports whether raw holds a valid top-level JSON object.
func isJSONObject(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return false
	}
	return json.Valid(trimmed)
}
