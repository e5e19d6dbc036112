// Package errors provides structured error handling for Absentia services.
package errors

import "net/http"

// Code is a machine-readable error code.
type Code string

const (
	// CodeUnknown represents an unknown error.
	CodeUnknown Code = "UNKNOWN"

	// Auth errors
	CodeAuthInvalidCredentials Code = "AUTH_INVALID_CREDENTIALS"
	CodeAuthEmailEmpty         Code = "AUTH_EMAIL_EMPTY"
	CodeAuthPasswordEmpty      Code = "AUTH_PASSWORD_EMPTY"
	CodeAuthEmailInUse         Code = "AUTH_EMAIL_IN_USE"
	CodeAuthSignInInFlight     Code = "AUTH_SIGN_IN_IN_FLIGHT"
	CodeSessionExpired         Code = "SESSION_EXPIRED"

	// Tenant context errors
	CodeProfileNotFound       Code = "PROFILE_NOT_FOUND"
	CodeContextNotEstablished Code = "CONTEXT_NOT_ESTABLISHED"

	// Company errors
	CodeCompanyNameEmpty    Code = "COMPANY_NAME_EMPTY"
	CodeCompanyNotSpecified Code = "COMPANY_NOT_SPECIFIED"

	// Profile errors
	CodeProfileEmptyUserID Code = "PROFILE_EMPTY_USER_ID"
	CodeProfileEmptyEmail  Code = "PROFILE_EMPTY_EMAIL"
	CodeProfileInvalidRole Code = "PROFILE_INVALID_ROLE"

	// Employee errors
	CodeEmployeeEmptyName      Code = "EMPLOYEE_EMPTY_NAME"
	CodeEmployeeEmptyCompanyID Code = "EMPLOYEE_EMPTY_COMPANY_ID"

	// Absence errors
	CodeAbsenceEmptyEmployeeID Code = "ABSENCE_EMPTY_EMPLOYEE_ID"
	CodeAbsenceInvalidKind     Code = "ABSENCE_INVALID_KIND"
	CodeAbsenceInvalidRange    Code = "ABSENCE_INVALID_RANGE"

	// Storage errors
	CodeNotFound Code = "NOT_FOUND"

	// Availability errors
	CodeServiceUnavailable Code = "SERVICE_UNAVAILABLE"
)

// HTTPStatus maps domain codes to HTTP status codes.
func (c Code) HTTPStatus() int {
	switch c {
	case CodeAuthEmailEmpty,
		CodeAuthPasswordEmpty,
		CodeCompanyNameEmpty,
		CodeCompanyNotSpecified,
		CodeProfileEmptyUserID,
		CodeProfileEmptyEmail,
		CodeProfileInvalidRole,
		CodeEmployeeEmptyName,
		CodeEmployeeEmptyCompanyID,
		CodeAbsenceEmptyEmployeeID,
		CodeAbsenceInvalidKind,
		CodeAbsenceInvalidRange:
		return http.StatusBadRequest

	case CodeAuthInvalidCredentials, CodeSessionExpired:
		return http.StatusUnauthorized

	case CodeContextNotEstablished:
		return http.StatusForbidden

	case CodeNotFound, CodeProfileNotFound:
		return http.StatusNotFound

	case CodeAuthEmailInUse, CodeAuthSignInInFlight:
		return http.StatusConflict

	case CodeServiceUnavailable:
		return http.StatusServiceUnavailable

	default:
		return http.StatusInternalServerError
	}
}
