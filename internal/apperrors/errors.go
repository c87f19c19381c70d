package apperrors

import "errors"

// Domain entity errors represent missing or invalid entities.
var (
	// ErrHoldingNotFound indicates that no holding with the given ID exists in the snapshot.
	ErrHoldingNotFound = errors.New("holding not found")

	// ErrEmptyID indicates that a required ID parameter is empty or missing.
	ErrEmptyID = errors.New("ID cannot be empty")

	// ErrInvalidID indicates an ID that cannot be used as a path segment.
	ErrInvalidID = errors.New("invalid ID format")
)

// Input errors are raised locally, before any request reaches the portfolio service.
var (
	// ErrInvalidTicker indicates an empty or malformed ticker symbol.
	ErrInvalidTicker = errors.New("ticker symbol cannot be empty")

	// ErrInvalidShares indicates a non-positive share count.
	ErrInvalidShares = errors.New("number of shares must be positive")

	// ErrInvalidDate indicates a purchase date that is missing or not YYYY-MM-DD.
	ErrInvalidDate = errors.New("invalid date format, use YYYY-MM-DD")

	// ErrFutureDate indicates a purchase date after today.
	ErrFutureDate = errors.New("purchase date cannot be in the future")

	// ErrNegativeAmount indicates that a price field has an invalid negative value.
	ErrNegativeAmount = errors.New("amount cannot be negative")

	// ErrEmptyQuestion indicates an advisor question that is empty or whitespace only.
	ErrEmptyQuestion = errors.New("question cannot be empty")
)

// State errors indicate that an operation is not permitted in the current state.
var (
	// ErrSyncInProgress indicates that a loading or refreshing operation is running
	// and mutations are rejected until it completes.
	ErrSyncInProgress = errors.New("portfolio is loading, try again when it finishes")

	// ErrQuestionPending indicates that the advisor has not yet answered the previous question.
	ErrQuestionPending = errors.New("previous question is still awaiting an answer")

	// ErrClosed indicates that the store or session has been torn down.
	ErrClosed = errors.New("session closed")
)

// Operation failure errors wrap lower-level failures with context for logs.
var (
	ErrFailedToLoadPortfolio   = errors.New("failed to load portfolio data")
	ErrFailedToLoadSectors     = errors.New("failed to load sector breakdown")
	ErrFailedToLoadHistory     = errors.New("failed to load portfolio history")
	ErrFailedToRefreshPrices   = errors.New("failed to refresh prices")
	ErrFailedToAddHolding      = errors.New("failed to add holding")
	ErrFailedToDeleteHolding   = errors.New("failed to delete holding")
	ErrFailedToAskAdvisor      = errors.New("failed to get an answer from the advisor")
	ErrFailedToLoadSuggestions = errors.New("failed to load suggestions")
)

// Data integrity errors represent malformed payloads from the portfolio service.
var (
	// ErrMalformedResponse indicates a response body that could not be decoded.
	ErrMalformedResponse = errors.New("malformed response from portfolio service")

	// ErrMissingRequiredField indicates that a required field is missing or empty.
	ErrMissingRequiredField = errors.New("missing required field")
)
