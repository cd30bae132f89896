package errors

import "fmt"

// ErrorCode 에러 코드 정의
type ErrorCode string

const (
	// Business Errors
	ErrCodeOutOfStock       ErrorCode = "OUT_OF_STOCK"
	ErrCodeAlreadyDelivered ErrorCode = "ALREADY_DELIVERED"
	ErrCodeAlreadyCanceled  ErrorCode = "ALREADY_CANCELED"
	ErrCodeDuplicateMember  ErrorCode = "DUPLICATE_MEMBER"
	ErrCodeDuplicateRequest ErrorCode = "DUPLICATE_REQUEST"
	ErrCodeInvalidOrder     ErrorCode = "INVALID_ORDER"
	ErrCodeNotFound         ErrorCode = "NOT_FOUND"
	ErrCodeConflict         ErrorCode = "CONFLICT"

	// Technical Errors
	ErrCodeDataIntegrity      ErrorCode = "DATA_INTEGRITY"
	ErrCodeDatabaseError      ErrorCode = "DATABASE_ERROR"
	ErrCodeSerializationError ErrorCode = "SERIALIZATION_ERROR"
	ErrCodeUnknownError       ErrorCode = "UNKNOWN_ERROR"
)

// DomainError 도메인 에러 구조체
type DomainError struct {
	Code    ErrorCode
	Message string
	Cause   error
}

func (e *DomainError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

func (e *DomainError) Unwrap() error {
	return e.Cause
}

// New 새로운 도메인 에러 생성
func New(code ErrorCode, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
	}
}

// Newf 포맷 메시지로 도메인 에러 생성
func Newf(code ErrorCode, format string, args ...interface{}) *DomainError {
	return &DomainError{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
	}
}

// Wrap 기존 에러를 래핑한 도메인 에러 생성
func Wrap(code ErrorCode, message string, cause error) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

// Code 에러에서 에러 코드 추출 (도메인 에러가 아니면 UNKNOWN_ERROR)
func Code(err error) ErrorCode {
	if domainErr, ok := err.(*DomainError); ok {
		return domainErr.Code
	}
	return ErrCodeUnknownError
}

// HasCode 해당 에러 코드인지 판단
func HasCode(err error, code ErrorCode) bool {
	return Code(err) == code
}

// IsBusinessError 비즈니스 에러인지 판단 (재시도 불필요)
func IsBusinessError(err error) bool {
	switch Code(err) {
	case ErrCodeOutOfStock, ErrCodeAlreadyDelivered, ErrCodeAlreadyCanceled,
		ErrCodeDuplicateMember, ErrCodeDuplicateRequest, ErrCodeInvalidOrder,
		ErrCodeNotFound, ErrCodeConflict:
		return true
	}
	return false
}

// IsRetryable 재시도 가능한 에러인지 판단
func IsRetryable(err error) bool {
	return Code(err) == ErrCodeDatabaseError
}
