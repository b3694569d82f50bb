// Copyright (c) 2026 FileMyTax. All rights reserved.

/*
Package record stores each filer's saved tax return.

The return is an opaque JSON document owned entirely by the SPA: the server
persists and replays it without interpreting its contents. Each filer has at
most one record, replaced wholesale on every save.
*/
package record

import (
	"context"
	"encoding/json"
	"time"
)

// Record is a filer's saved tax return document.
type Record struct {
	UserID    string          `json:"userId"`
	Data      json.RawMessage `json:"data"`
	UpdatedAt time.Time       `json:"updatedAt"`
}

// Repository defines the data access contract for saved returns.
type Repository interface {

	/*
		Get returns the saved document for a filer.

		Parameters:
		  - context: context.Context
		  - userID: string

		Returns:
		  - json.RawMessage: The document, or nil when the filer has never saved
		  - error: Database retrieval failures
	*/
	Get(context context.Context, userID string) (json.RawMessage, error)

	/*
		Upsert replaces the filer's document, creating the row on first save.

		Parameters:
		  - context: context.Context
		  - userID: string
		  - data: json.RawMessage

		Returns:
		  - error: Persistence failures
	*/
	Upsert(context context.Context, userID string, data json.RawMessage) error
}
