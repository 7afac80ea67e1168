package errors

// ErrorCode represents a unique error code for identifying different error types.
type ErrorCode int

const (
	// General errors (1-99)
	ErrCodeUnknown ErrorCode = 1

	// Validation errors (100-199)
	ErrCodeInvalidParameter     ErrorCode = 100
	ErrCodeInvalidConfiguration ErrorCode = 101
	ErrCodeInvalidPeriod        ErrorCode = 102
	ErrCodeMissingParameter     ErrorCode = 104
	ErrCodeInvalidChannel       ErrorCode = 105
	ErrCodeInvalidTimeframe     ErrorCode = 106
	ErrCodeInvalidSymbol        ErrorCode = 107

	// Subscription errors (200-299)
	ErrCodeSubscribeFailed   ErrorCode = 200
	ErrCodeUnsubscribeFailed ErrorCode = 201
	ErrCodeFrameSendFailed   ErrorCode = 202

	// Chart data errors (300-399)
	ErrCodeFetchFailed    ErrorCode = 300
	ErrCodeLoadInProgress ErrorCode = 302
	ErrCodeNoMoreHistory  ErrorCode = 303
	ErrCodeNoBarsLoaded   ErrorCode = 304
	ErrCodeNotReady       ErrorCode = 305

	// Indicator errors (400-499)
	ErrCodeIndicatorCalculation ErrorCode = 401

	// Transport errors (500-599)
	ErrCodeConnectionClosed ErrorCode = 500
	ErrCodeRequestTimeout   ErrorCode = 501
	ErrCodeDecodeFailed     ErrorCode = 502
	ErrCodeWriteFailed      ErrorCode = 503
	ErrCodeRemoteError      ErrorCode = 504
)
