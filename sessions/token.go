package sessions

import (
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/NivethaMadhavan/Attendance/config"
	"github.com/NivethaMadhavan/Attendance/models"
)

// generator produces attendance token values. It is pure over the state it is
// handed: the caller decides whether to install the result as active.
type generator struct {
	mode string
}

// next returns a token guaranteed different from current. In counter mode the
// value is the decimal rendering of counter; in random mode it is a fresh
// uuid. issuedAt is stamped by the caller's clock.
func (g generator) next(current models.Token, counter uint64, now time.Time) models.Token {
	tok := models.Token{IssuedAt: now.UnixMilli()}
	switch g.mode {
	case config.TokenModeRandom:
		tok.Value = uuid.NewString()
		for tok.Value == current.Value {
			tok.Value = uuid.NewString()
		}
	default:
		tok.Value = strconv.FormatUint(counter, 10)
	}
	return tok
}

// parseable reports whether a submitted token value is well-formed for this
// generator mode. Counter-mode tokens must be decimal integers; random-mode
// tokens are opaque non-empty strings.
func (g generator) parseable(value string) bool {
	if value == "" {
		return false
	}
	if g.mode == config.TokenModeCounter {
		_, err := strconv.ParseUint(value, 10, 64)
		return err == nil
	}
	return true
}
