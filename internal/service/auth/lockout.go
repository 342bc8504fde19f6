package auth

import (
	"time"

	"github.com/mzalewski/secadmin-api/internal/model"
)

// applyFailedAttempt runs the wrong-password transition of the lockout state
// machine on an unlocked account. It reports whether this attempt opened a
// new lockout window and, if not, how many attempts remain. When attempt
// limiting is disabled the counter is not tracked and nothing changes.
//
// Opening a window resets the counter: once the window elapses the account
// starts over at zero failures.
func applyFailedAttempt(u *model.User, p *model.PasswordPolicy, now time.Time) (locked bool, remaining int) {
	if !p.LockoutEnabled() {
		return false, 0
	}

	u.FailedLoginAttempts++
	if u.FailedLoginAttempts >= p.MaxLoginAttempts {
		until := now.Add(p.LockoutDuration())
		u.LockedUntil = &until
		u.FailedLoginAttempts = 0
		return true, 0
	}
	return false, p.MaxLoginAttempts - u.FailedLoginAttempts
}

// clearLockout resets the account to Unlocked(0). Called on every correct-
// password login and, lazily, when an elapsed lockout window is observed.
func clearLockout(u *model.User) {
	u.FailedLoginAttempts = 0
	u.LockedUntil = nil
}

// markSuccessfulLogin runs the correct-password transition: counters reset
// and password expiry is evaluated, honouring a per-account override of the
// policy's expiration days.
func markSuccessfulLogin(u *model.User, p *model.PasswordPolicy, now time.Time) {
	clearLockout(u)

	expDays := p.PasswordExpirationDays
	if u.PasswordExpirationDays != nil {
		expDays = *u.PasswordExpirationDays
	}
	if expDays > 0 && u.PasswordLastSet != nil &&
		now.After(u.PasswordLastSet.AddDate(0, 0, expDays)) {
		u.MustChangePassword = true
	}
}
