package escrow

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorIsMatchesByCode(t *testing.T) {
	err := NewError(CodeUnauthorized, "release_funds", 7, "caller %s is not the recipient", "x")
	wrapped := fmt.Errorf("exec: %w", err)

	assert.ErrorIs(t, wrapped, ErrUnauthorized)
	assert.False(t, errors.Is(wrapped, ErrRemittanceClosed))
	assert.Equal(t, CodeUnauthorized, CodeOf(wrapped))
	assert.True(t, IsEscrowError(wrapped))
}

func TestErrorMessageFormat(t *testing.T) {
	err := NewError(CodeTargetNotMet, "release_funds", 3, "have %d of %d", 50, 100)
	assert.Equal(t, "release_funds: TARGET_NOT_MET: have 50 of 100 (remittance=3)", err.Error())

	err = NewError(CodeContractPaused, "contribute", 0, "paused")
	assert.Equal(t, "contribute: CONTRACT_PAUSED: paused", err.Error())

	assert.Equal(t, "FEE_TOO_HIGH: platform fee exceeds maximum", ErrFeeTooHigh.Error())
}

func TestCodeOfNonEscrowError(t *testing.T) {
	assert.Equal(t, ErrorCode(""), CodeOf(nil))
	assert.Equal(t, ErrorCode(""), CodeOf(errors.New("disk full")))
	assert.False(t, IsEscrowError(errors.New("disk full")))
}

func TestErrorCodeCategory(t *testing.T) {
	assert.Equal(t, CategoryValidation, CodeInvalidPurpose.Category())
	assert.Equal(t, CategoryValidation, CodeFeeTooHigh.Category())
	assert.Equal(t, CategoryAuthorization, CodeUnauthorized.Category())
	assert.Equal(t, CategoryState, CodeRefundAlreadyClaimed.Category())
	assert.Equal(t, CategoryState, CodeContractPaused.Category())
	assert.Equal(t, CategoryArithmetic, CodeArithmeticOverflow.Category())
	assert.Equal(t, CategoryExecution, CodeTransferFailed.Category())
	assert.Equal(t, CategoryExecution, CodeGasExhausted.Category())
}

func TestErrorCode_Known(t *testing.T) {
	for _, c := range Codes {
		assert.True(t, c.Known(), c)
		assert.NotEmpty(t, c.Category(), c)
	}
	assert.False(t, ErrorCode("NOT_A_CODE").Known())
	assert.False(t, ErrorCode("").Known())
}
