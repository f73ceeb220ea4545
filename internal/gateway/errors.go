package gateway

import (
	"errors"
	"net/http"

	"github.com/pxr-io/block-gateway/internal/model"
)

// Kind identifies a failure class in the gateway pipeline. Every collaborator
// failure is mapped to exactly one Kind at the boundary where it occurs.
type Kind string

const (
	KindValidation               Kind = "validation_failure"
	KindPathFormat               Kind = "path_format_invalid"
	KindUnknownService           Kind = "unknown_service"
	KindCatalogNotFound          Kind = "catalog_not_found"
	KindNotABlockCatalog         Kind = "not_a_block_catalog"
	KindUnauthorized             Kind = "unauthorized"
	KindSessionInvalid           Kind = "session_invalid"
	KindPermissionDenied         Kind = "permission_denied"
	KindTokenCertification       Kind = "token_certification_failed"
	KindOperatorServiceFailure   Kind = "operator_service_failure"
	KindCatalogServiceFailure    Kind = "catalog_service_failure"
	KindCatalogUnreachable       Kind = "catalog_service_unreachable"
	KindAccessControlFailure     Kind = "access_control_service_failure"
	KindAccessControlUnreachable Kind = "access_control_unreachable"
	KindDownstreamUnreachable    Kind = "downstream_unreachable"
)

// Error is the typed error surfaced by every pipeline stage. Status is the
// HTTP status rendered to the client; Reasons carries per-field detail for
// validation failures.
type Error struct {
	Kind    Kind
	Status  int
	Message string
	Reasons []model.FieldReason
	cause   error
}

func (e *Error) Error() string {
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.cause
}

// Envelope renders the error as the client-facing JSON body.
func (e *Error) Envelope() model.ErrorResponse {
	if len(e.Reasons) > 0 {
		return model.ErrorResponse{Status: e.Status, Reasons: e.Reasons}
	}
	return model.ErrorResponse{Status: e.Status, Message: e.Message}
}

func newError(kind Kind, status int, message string) *Error {
	return &Error{Kind: kind, Status: status, Message: message}
}

// wrapError types a transport-level failure. An error that is already typed
// passes through unchanged, so no stage ever double-wraps.
func wrapError(err error, kind Kind, status int, message string) *Error {
	var ge *Error
	if errors.As(err, &ge) {
		return ge
	}
	return &Error{Kind: kind, Status: status, Message: message, cause: err}
}

func validationError(reasons ...model.FieldReason) *Error {
	return &Error{
		Kind:    KindValidation,
		Status:  http.StatusBadRequest,
		Message: "request validation failed",
		Reasons: reasons,
	}
}

// AsError extracts the typed gateway error from err, if any.
func AsError(err error) (*Error, bool) {
	var ge *Error
	if errors.As(err, &ge) {
		return ge, true
	}
	return nil, false
}
