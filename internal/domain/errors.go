package domain

import (
	"errors"
	"fmt"
)

// Booking flow taxonomy. Callers match these with errors.Is; the typed
// errors below decide the HTTP status.
var (
	ErrInvalidLocation        = errors.New("localidade não encontrada")
	ErrLookupFailure          = errors.New("falha ao consultar viagens")
	ErrSelectionLimitExceeded = errors.New("limite de poltronas da volta atingido")
	ErrSeatCountMismatch      = errors.New("quantidade de poltronas da volta difere da ida")
	ErrMissingPassengerName   = errors.New("nome do passageiro obrigatório")
	ErrPaymentFailure         = errors.New("pagamento recusado")
	ErrInvalidTransition      = errors.New("operação inválida para a etapa atual")
	ErrNoSeatsSelected        = errors.New("nenhuma poltrona selecionada")
	ErrNotAuthenticated       = errors.New("identificação necessária")
	ErrSessionBusy            = errors.New("sessão ocupada, tente novamente")
	ErrStorageDisabled        = errors.New("armazenamento de arquivos indisponível")
)

// DomainError carries a taxonomy code next to the wrapped cause.
type DomainError struct {
	Code string
	Err  error
}

func (e DomainError) Error() string {
	if e.Err == nil {
		return e.Code
	}
	if e.Code == "" {
		return e.Err.Error()
	}
	return fmt.Sprintf("%s: %v", e.Code, e.Err)
}

func (e DomainError) Unwrap() error {
	return e.Err
}

type NotFoundError struct {
	Resource string
	Err      error
}

func (e NotFoundError) Error() string {
	if e.Resource == "" {
		return "não encontrado"
	}
	return fmt.Sprintf("%s não encontrado", e.Resource)
}

func (e NotFoundError) Unwrap() error { return e.Err }

type ValidationError struct {
	Field string
	Msg   string
	Err   error
}

func (e ValidationError) Error() string {
	if e.Msg != "" && e.Field != "" {
		return fmt.Sprintf("%s: %s", e.Field, e.Msg)
	}
	if e.Msg != "" {
		return e.Msg
	}
	if e.Err != nil && e.Field != "" {
		return fmt.Sprintf("%s: %v", e.Field, e.Err)
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	if e.Field != "" {
		return fmt.Sprintf("%s inválido", e.Field)
	}
	return "dados inválidos"
}

func (e ValidationError) Unwrap() error { return e.Err }

type ConflictError struct {
	Resource string
	Msg      string
	Err      error
}

func (e ConflictError) Error() string {
	switch {
	case e.Msg != "" && e.Resource != "":
		return fmt.Sprintf("%s: %s", e.Resource, e.Msg)
	case e.Msg != "":
		return e.Msg
	case e.Err != nil:
		return e.Err.Error()
	case e.Resource != "":
		return fmt.Sprintf("conflito em %s", e.Resource)
	default:
		return "conflito"
	}
}

func (e ConflictError) Unwrap() error { return e.Err }

// UpstreamError wraps failures of an external collaborator (reservation
// system, payment gateway, file storage).
type UpstreamError struct {
	Service string
	Err     error
}

func (e UpstreamError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s indisponível", e.Service)
	}
	return fmt.Sprintf("%s: %v", e.Service, e.Err)
}

func (e UpstreamError) Unwrap() error { return e.Err }

type InternalError struct {
	Msg string
	Err error
}

func (e InternalError) Error() string {
	if e.Msg != "" {
		return e.Msg
	}
	return "erro interno"
}

func (e InternalError) Unwrap() error { return e.Err }

func IsNotFound(err error) bool {
	var target NotFoundError
	return errors.As(err, &target)
}

func IsValidation(err error) bool {
	var target ValidationError
	return errors.As(err, &target)
}

func IsConflict(err error) bool {
	var target ConflictError
	return errors.As(err, &target)
}

func IsUpstream(err error) bool {
	var target UpstreamError
	return errors.As(err, &target)
}

// Code returns the taxonomy code for err, or "" when none applies.
func Code(err error) string {
	var de DomainError
	if errors.As(err, &de) && de.Code != "" {
		return de.Code
	}
	switch {
	case errors.Is(err, ErrInvalidLocation):
		return "invalid_location"
	case errors.Is(err, ErrLookupFailure):
		return "lookup_failure"
	case errors.Is(err, ErrSelectionLimitExceeded):
		return "selection_limit_exceeded"
	case errors.Is(err, ErrSeatCountMismatch):
		return "seat_count_mismatch"
	case errors.Is(err, ErrMissingPassengerName):
		return "missing_passenger_name"
	case errors.Is(err, ErrPaymentFailure):
		return "payment_failure"
	case errors.Is(err, ErrInvalidTransition):
		return "invalid_transition"
	case errors.Is(err, ErrNoSeatsSelected):
		return "no_seats_selected"
	case errors.Is(err, ErrNotAuthenticated):
		return "not_authenticated"
	case errors.Is(err, ErrSessionBusy):
		return "session_busy"
	case errors.Is(err, ErrStorageDisabled):
		return "storage_disabled"
	}
	return ""
}
