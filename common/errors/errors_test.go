package errors

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDomainError(t *testing.T) {
	err := New(ErrCodeOutOfStock, "need more stock")
	assert.Equal(t, "[OUT_OF_STOCK] need more stock", err.Error())
	assert.True(t, HasCode(err, ErrCodeOutOfStock))

	cause := fmt.Errorf("driver: bad connection")
	wrapped := Wrap(ErrCodeDatabaseError, "failed to save order", cause)
	assert.Equal(t, "[DATABASE_ERROR] failed to save order: driver: bad connection", wrapped.Error())
	assert.Equal(t, cause, wrapped.Unwrap())
}

func TestCode(t *testing.T) {
	assert.Equal(t, ErrCodeConflict, Code(New(ErrCodeConflict, "x")))
	assert.Equal(t, ErrCodeUnknownError, Code(fmt.Errorf("plain error")))
}

func TestClassification(t *testing.T) {
	assert.True(t, IsBusinessError(New(ErrCodeAlreadyCanceled, "x")))
	assert.True(t, IsBusinessError(New(ErrCodeDuplicateMember, "x")))
	assert.False(t, IsBusinessError(New(ErrCodeDatabaseError, "x")))

	assert.True(t, IsRetryable(New(ErrCodeDatabaseError, "x")))
	assert.False(t, IsRetryable(New(ErrCodeOutOfStock, "x")))
}
