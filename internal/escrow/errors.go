package escrow

import (
	"errors"
	"fmt"
)

// ErrorCode identifies one failure kind of an escrow operation.
type ErrorCode string

const (
	// Validation errors.
	CodeInvalidAmount    ErrorCode = "INVALID_AMOUNT"
	CodeInvalidPurpose   ErrorCode = "INVALID_PURPOSE"
	CodeInvalidRecipient ErrorCode = "INVALID_RECIPIENT"
	CodeInvalidIdentity  ErrorCode = "INVALID_IDENTITY"
	CodeFeeTooHigh       ErrorCode = "FEE_TOO_HIGH"

	// Authorization errors.
	CodeUnauthorized ErrorCode = "UNAUTHORIZED"

	// State errors.
	CodeRemittanceNotFound     ErrorCode = "REMITTANCE_NOT_FOUND"
	CodeRemittanceClosed       ErrorCode = "REMITTANCE_CLOSED"
	CodeTargetNotMet           ErrorCode = "TARGET_NOT_MET"
	CodeRemittanceNotCancelled ErrorCode = "REMITTANCE_NOT_CANCELLED"
	CodeNoContribution         ErrorCode = "NO_CONTRIBUTION"
	CodeRefundAlreadyClaimed   ErrorCode = "REFUND_ALREADY_CLAIMED"
	CodeContractPaused         ErrorCode = "CONTRACT_PAUSED"

	// Arithmetic errors.
	CodeArithmeticOverflow ErrorCode = "ARITHMETIC_OVERFLOW"

	// Execution errors.
	CodeTransferFailed ErrorCode = "TRANSFER_FAILED"
	CodeGasExhausted   ErrorCode = "GAS_EXHAUSTED"
)

// Codes lists every error code.
var Codes = []ErrorCode{
	CodeInvalidAmount, CodeInvalidPurpose, CodeInvalidRecipient, CodeInvalidIdentity, CodeFeeTooHigh,
	CodeUnauthorized,
	CodeRemittanceNotFound, CodeRemittanceClosed, CodeTargetNotMet, CodeRemittanceNotCancelled,
	CodeNoContribution, CodeRefundAlreadyClaimed, CodeContractPaused,
	CodeArithmeticOverflow,
	CodeTransferFailed, CodeGasExhausted,
}

// Known reports whether c is one of Codes.
func (c ErrorCode) Known() bool {
	for _, k := range Codes {
		if c == k {
			return true
		}
	}
	return false
}

// Category groups error codes by the taxonomy callers react to.
type Category string

const (
	CategoryValidation    Category = "validation"
	CategoryAuthorization Category = "authorization"
	CategoryState         Category = "state"
	CategoryArithmetic    Category = "arithmetic"
	CategoryExecution     Category = "execution"
)

// Category returns the taxonomy group of the code.
func (c ErrorCode) Category() Category {
	switch c {
	case CodeInvalidAmount, CodeInvalidPurpose, CodeInvalidRecipient, CodeInvalidIdentity, CodeFeeTooHigh:
		return CategoryValidation
	case CodeUnauthorized:
		return CategoryAuthorization
	case CodeArithmeticOverflow:
		return CategoryArithmetic
	case CodeTransferFailed, CodeGasExhausted:
		return CategoryExecution
	default:
		return CategoryState
	}
}

// Error is returned by every escrow operation that aborts. An aborted
// operation leaves no trace: nothing is written and no event is emitted.
//
// Error values compare equal under errors.Is when their codes match, so
// callers can test against the sentinel values below even after wrapping:
//
//	if errors.Is(err, escrow.ErrRefundAlreadyClaimed) { ... }
type Error struct {
	// Code identifies the failure kind.
	Code ErrorCode

	// Op is the operation that failed (e.g. "release_funds").
	Op string

	// RemittanceID is set when the failure concerns one remittance.
	RemittanceID uint64

	// Message is a human-readable description.
	Message string
}

// Error implements the error interface.
func (e *Error) Error() string {
	switch {
	case e.Op != "" && e.RemittanceID != 0:
		return fmt.Sprintf("%s: %s: %s (remittance=%d)", e.Op, e.Code, e.Message, e.RemittanceID)
	case e.Op != "":
		return fmt.Sprintf("%s: %s: %s", e.Op, e.Code, e.Message)
	default:
		return fmt.Sprintf("%s: %s", e.Code, e.Message)
	}
}

// Is reports whether target is an *Error with the same code.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return t.Code == e.Code
}

// Sentinel errors for errors.Is matching.
var (
	ErrInvalidAmount          = &Error{Code: CodeInvalidAmount, Message: "amount must be greater than zero"}
	ErrInvalidPurpose         = &Error{Code: CodeInvalidPurpose, Message: "purpose must be 1-256 bytes"}
	ErrInvalidRecipient       = &Error{Code: CodeInvalidRecipient, Message: "recipient is not a well-formed identity"}
	ErrInvalidIdentity        = &Error{Code: CodeInvalidIdentity, Message: "identity is not well-formed"}
	ErrFeeTooHigh             = &Error{Code: CodeFeeTooHigh, Message: "platform fee exceeds maximum"}
	ErrUnauthorized           = &Error{Code: CodeUnauthorized, Message: "caller is not authorized"}
	ErrRemittanceNotFound     = &Error{Code: CodeRemittanceNotFound, Message: "remittance does not exist"}
	ErrRemittanceClosed       = &Error{Code: CodeRemittanceClosed, Message: "remittance is released or cancelled"}
	ErrTargetNotMet           = &Error{Code: CodeTargetNotMet, Message: "target amount not met"}
	ErrRemittanceNotCancelled = &Error{Code: CodeRemittanceNotCancelled, Message: "remittance is not cancelled"}
	ErrNoContribution         = &Error{Code: CodeNoContribution, Message: "caller has no contribution"}
	ErrRefundAlreadyClaimed   = &Error{Code: CodeRefundAlreadyClaimed, Message: "refund already claimed"}
	ErrContractPaused         = &Error{Code: CodeContractPaused, Message: "contract is paused"}
	ErrArithmeticOverflow     = &Error{Code: CodeArithmeticOverflow, Message: "arithmetic overflow"}
	ErrTransferFailed         = &Error{Code: CodeTransferFailed, Message: "value transfer failed"}
	ErrGasExhausted           = &Error{Code: CodeGasExhausted, Message: "operation exceeded its access budget"}
)

// NewError creates an Error for op with a formatted message.
func NewError(code ErrorCode, op string, remittanceID uint64, format string, args ...any) *Error {
	return &Error{
		Code:         code,
		Op:           op,
		RemittanceID: remittanceID,
		Message:      fmt.Sprintf(format, args...),
	}
}

// CodeOf extracts the error code from err.
// Returns "" if err is nil or not an escrow error.
func CodeOf(err error) ErrorCode {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// IsEscrowError returns true if err carries an escrow error code.
// Errors without a code are infrastructure failures (storage, context).
func IsEscrowError(err error) bool {
	return CodeOf(err) != ""
}
