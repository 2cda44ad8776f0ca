// Package documents tracks which identity documents an application has on
// file. Upload and storage happen elsewhere; this registry only records
// references and answers completeness for the pre-review.
package documents

import (
	"context"
	"database/sql"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"kycflow/internal/kyc/ports"
	id "kycflow/pkg/domain"
	dErrors "kycflow/pkg/domain-errors"
)

// Type is a document kind.
type Type string

const (
	TypeIDFront Type = "id_front"
	TypeIDBack  Type = "id_back"
	TypeSelfie  Type = "selfie"
)

// DefaultRequired is the set every application must have before automatic
// approval is possible.
var DefaultRequired = []Type{TypeIDFront, TypeIDBack, TypeSelfie}

func (t Type) Valid() bool {
	return slices.Contains([]Type{TypeIDFront, TypeIDBack, TypeSelfie}, t)
}

// Document is a stored reference to an uploaded file.
type Document struct {
	ApplicationID id.ApplicationID
	Type          Type
	StorageRef    string
	UploadedAt    time.Time
}

func validate(doc Document) error {
	if doc.ApplicationID.IsNil() {
		return dErrors.New(dErrors.CodeValidation, "application id is required")
	}
	if !doc.Type.Valid() {
		return dErrors.Newf(dErrors.CodeValidation, "unsupported document type %q", doc.Type)
	}
	if doc.StorageRef == "" {
		return dErrors.New(dErrors.CodeValidation, "storage reference is required")
	}
	return nil
}

// Postgres stores references in kyc_documents.
type Postgres struct {
	db       *sql.DB
	required []Type
}

var _ ports.DocumentRegistry = (*Postgres)(nil)

func NewPostgres(db *sql.DB, required ...Type) *Postgres {
	if len(required) == 0 {
		required = DefaultRequired
	}
	return &Postgres{db: db, required: required}
}

// Register records an uploaded document.
func (r *Postgres) Register(ctx context.Context, doc Document) error {
	if err := validate(doc); err != nil {
		return err
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO kyc_documents (id, application_id, document_type, storage_ref, uploaded_at)
		VALUES ($1, $2, $3, $4, $5)
	`, uuid.New(), uuid.UUID(doc.ApplicationID), string(doc.Type), doc.StorageRef, doc.UploadedAt)
	if err != nil {
		return fmt.Errorf("register document: %w", err)
	}
	return nil
}

// HasRequiredDocuments reports whether every required type has at least one
// reference on file.
func (r *Postgres) HasRequiredDocuments(ctx context.Context, applicationID id.ApplicationID) (bool, error) {
	types := make([]string, len(r.required))
	for i, t := range r.required {
		types[i] = string(t)
	}
	var present int
	err := r.db.QueryRowContext(ctx, `
		SELECT COUNT(DISTINCT document_type)
		FROM kyc_documents
		WHERE application_id = $1 AND document_type = ANY($2::text[])
	`, uuid.UUID(applicationID), pq.Array(types)).Scan(&present)
	if err != nil {
		return false, fmt.Errorf("count documents: %w", err)
	}
	return present == len(r.required), nil
}

// InMemory is the registry used without a database.
type InMemory struct {
	mu       sync.RWMutex
	docs     map[id.ApplicationID]map[Type]Document
	required []Type
}

var _ ports.DocumentRegistry = (*InMemory)(nil)

func NewInMemory(required ...Type) *InMemory {
	if len(required) == 0 {
		required = DefaultRequired
	}
	return &InMemory{docs: make(map[id.ApplicationID]map[Type]Document), required: required}
}

func (r *InMemory) Register(_ context.Context, doc Document) error {
	if err := validate(doc); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	byType, ok := r.docs[doc.ApplicationID]
	if !ok {
		byType = make(map[Type]Document)
		r.docs[doc.ApplicationID] = byType
	}
	byType[doc.Type] = doc
	return nil
}

func (r *InMemory) HasRequiredDocuments(_ context.Context, applicationID id.ApplicationID) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	byType := r.docs[applicationID]
	for _, t := range r.required {
		if _, ok := byType[t]; !ok {
			return false, nil
		}
	}
	return true, nil
}
