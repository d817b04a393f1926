package status

import (
	"strings"

	"github.com/rideline/ridewatch/internal/ride"
)

// Category is the semantic classification of a raw dispatch status string.
type Category int

const (
	Other Category = iota
	AwaitingDriver
	DriverAssigned
	InProgress
	NoDriverFound
	CanceledByDriver
	CanceledOther
	Finished
)

func (c Category) String() string {
	switch c {
	case AwaitingDriver:
		return "awaiting_driver"
	case DriverAssigned:
		return "driver_assigned"
	case InProgress:
		return "in_progress"
	case NoDriverFound:
		return "no_driver"
	case CanceledByDriver:
		return "canceled_by_driver"
	case CanceledOther:
		return "canceled"
	case Finished:
		return "finished"
	default:
		return "other"
	}
}

// Upstream status phrases, matched verbatim after trim + lowercase.
// "cancelado pelo adiministrador" is misspelled upstream; the platform is
// the source of truth, so both spellings are first-class matches.
const (
	phraseAwaiting        = "aguardando motorista"
	phraseInProgress      = "em viagem"
	phraseExceeded        = "excedeu tentativas"
	phraseNoDriverPrefix  = "nenhum motorista disponível"
	phraseCanceledAdmMiss = "cancelado pelo adiministrador"
	phraseCanceledAdmin   = "cancelado pelo administrador"
	phraseCanceledClient  = "cancelado pelo cliente"
	phraseCanceledSystem  = "cancelado pelo sistema"
	phraseCanceledDriver  = "cancelado pelo motorista"
	phraseFinished        = "viagem finalizada"
)

// Normalize trims and lower-cases a raw status for comparison.
func Normalize(raw string) string {
	return strings.ToLower(strings.TrimSpace(raw))
}

// Classify maps one poll snapshot to a Category. An empty or unknown status
// yields Other; it never fails. A stage >= 2 with full driver details counts
// as an assignment even when the status text says something else.
func Classify(snap ride.StageSnapshot) Category {
	s := Normalize(snap.RawStatus)

	switch {
	case snap.Finished || s == phraseFinished:
		return Finished
	case s == phraseCanceledDriver:
		return CanceledByDriver
	case IsCanceledOther(s):
		return CanceledOther
	case IsNoDriver(s):
		return NoDriverFound
	case s == phraseInProgress:
		return InProgress
	case s == phraseAwaiting:
		return AwaitingDriver
	case snap.HasDriverDetails() && snap.Stage >= 2:
		return DriverAssigned
	default:
		return Other
	}
}

// IndicatesAssignment reports whether a snapshot means a driver has been
// matched to the request. The upstream signals this two ways: the
// "aguardando motorista" phrase, or full driver details with stage >= 2
// regardless of what the status text says. The second form matters when the
// first observed poll already shows a later status such as "em viagem".
func IndicatesAssignment(snap ride.StageSnapshot) bool {
	return Normalize(snap.RawStatus) == phraseAwaiting ||
		(snap.HasDriverDetails() && snap.Stage >= 2)
}

// IsNoDriver reports whether a normalized status means no driver was found.
func IsNoDriver(s string) bool {
	return s == phraseExceeded || strings.HasPrefix(s, phraseNoDriverPrefix)
}

// IsCanceledOther reports whether a normalized status is a cancellation by
// admin, customer, or the platform itself (driver cancellations excluded).
func IsCanceledOther(s string) bool {
	switch s {
	case phraseCanceledAdmMiss, phraseCanceledAdmin, phraseCanceledClient, phraseCanceledSystem:
		return true
	}
	return false
}

// IsAnyCancellation reports whether a normalized status ends the ride
// without completion: no driver, generic cancellation, or driver cancel.
func IsAnyCancellation(s string) bool {
	return IsNoDriver(s) || IsCanceledOther(s) || s == phraseCanceledDriver
}

// reservedPhrases are statuses covered by a dedicated rich notification.
// The generic "status updated" notice is suppressed for these so the
// operator is never told the same event twice.
var reservedPhrases = map[string]struct{}{
	phraseAwaiting:        {},
	phraseInProgress:      {},
	phraseExceeded:        {},
	phraseCanceledAdmMiss: {},
	phraseCanceledAdmin:   {},
	phraseCanceledClient:  {},
	phraseCanceledSystem:  {},
	phraseCanceledDriver:  {},
	phraseFinished:        {},
	"nenhum motorista disponível. por favor tente novamente.": {},
}

// IsReserved reports whether a normalized status has a dedicated notice.
func IsReserved(s string) bool {
	_, ok := reservedPhrases[s]
	return ok
}
