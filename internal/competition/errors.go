package competition

import (
	"fmt"

	apperrors "github.com/abrezinsky/rafflehouse/internal/errors"
)

// Error is a rejected competition operation. Errors compare equal under
// errors.Is when their codes match, so details and purposes may differ.
type Error struct {
	Code    string
	Kind    apperrors.Kind
	Detail  string
	Purpose Purpose
}

func (e *Error) Error() string {
	msg := e.Code
	if e.Purpose != "" {
		msg += " (" + string(e.Purpose) + ")"
	}
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	return msg
}

func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Code == e.Code
}

// ErrorKind classifies the error for the transport layer
func (e *Error) ErrorKind() apperrors.Kind {
	return e.Kind
}

func (e *Error) withDetail(format string, args ...any) *Error {
	cp := *e
	cp.Detail = fmt.Sprintf(format, args...)
	return &cp
}

func (e *Error) forPurpose(p Purpose) *Error {
	cp := *e
	cp.Purpose = p
	return &cp
}

func newError(code string, kind apperrors.Kind) *Error {
	return &Error{Code: code, Kind: kind}
}

// Parameter validation
var ErrInvalidParameter = newError("InvalidParameter", apperrors.ErrValidation)

// Authorization
var (
	ErrNotOrganizer    = newError("NotOrganizer", apperrors.ErrUnauthorized)
	ErrNotWinner       = newError("NotWinner", apperrors.ErrUnauthorized)
	ErrNotOracle       = newError("NotOracle", apperrors.ErrUnauthorized)
	ErrNotTicketHolder = newError("NotTicketHolder", apperrors.ErrNotOwner)
)

// State preconditions
var (
	ErrInvalidStatus  = newError("InvalidStatus", apperrors.ErrInvalidState)
	ErrCannotExecute  = newError("CannotExecute", apperrors.ErrInvalidState)
	ErrDrawPending    = newError("DrawPending", apperrors.ErrConflict)
	ErrUnknownRequest = newError("UnknownRequest", apperrors.ErrValidation)
	ErrNoRandomWords  = newError("NoRandomWords", apperrors.ErrValidation)
)

// Funding preconditions
var (
	ErrInsufficientAllowance = newError("InsufficientAllowance", apperrors.ErrInsufficientFunds)
	ErrInsufficientBalance   = newError("InsufficientBalance", apperrors.ErrInsufficientFunds)
	ErrInsufficientReward    = newError("InsufficientReward", apperrors.ErrInsufficientFunds)
	ErrInvalidPaymentAmount  = newError("InvalidPaymentAmount", apperrors.ErrValidation)
)

// Supply and limit violations
var (
	ErrCannotBuyNothing      = newError("CannotBuyNothing", apperrors.ErrLimitExceeded)
	ErrNoMoreTickets         = newError("NoMoreTickets", apperrors.ErrLimitExceeded)
	ErrCompetitionOver       = newError("CompetitionOver", apperrors.ErrLimitExceeded)
	ErrWalletLimitExceeded   = newError("WalletLimitExceeded", apperrors.ErrLimitExceeded)
	ErrNoTicketsSpecified    = newError("NoTicketsSpecified", apperrors.ErrValidation)
	ErrDuplicateTicket       = newError("DuplicateTicket", apperrors.ErrValidation)
	ErrInvalidTicketReceiver = newError("InvalidTicketReceiver", apperrors.ErrValidation)
	ErrTicketNotFound        = newError("TicketNotFound", apperrors.ErrNotFound)
)

// Payouts
var (
	ErrAlreadyTransferred = newError("AlreadyTransferred", apperrors.ErrAlreadyPaid)
	ErrTransferFailed     = newError("TransferFailed", apperrors.ErrInternal)
	ErrRandomnessRequest  = newError("RandomnessRequestFailed", apperrors.ErrInternal)
)

// TransferError wraps a collaborator failure during an outgoing or incoming transfer
type TransferError struct {
	Op  string
	Err error
}

func (e *TransferError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *TransferError) Unwrap() error {
	return e.Err
}

func (e *TransferError) Is(target error) bool {
	return target == ErrTransferFailed
}

func (e *TransferError) ErrorKind() apperrors.Kind {
	return apperrors.ErrInternal
}
