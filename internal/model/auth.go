package model

import (
	"time"

	"github.com/google/uuid"
)

// LoginRequest represents login form parameters
type LoginRequest struct {
	Username     string `json:"username" binding:"required"`
	Password     string `json:"password" binding:"required"`
	CaptchaToken string `json:"captcha_token"`
}

// OTPRequest carries the answer to a previously issued challenge.
type OTPRequest struct {
	ChallengeID uuid.UUID `json:"challenge_id" binding:"required"`
	Answer      string    `json:"answer" binding:"required"`
}

// ChangePasswordRequest represents the self-service password change form.
type ChangePasswordRequest struct {
	OldPassword string `json:"old_password" binding:"required"`
	NewPassword string `json:"new_password" binding:"required"`
}

// SessionClaims is the identity attached to an established session. Username
// and role are its only two claims; everything authorization-relevant is
// re-fetched from the account store per request.
type SessionClaims struct {
	SessionID uuid.UUID `json:"sid"`
	Username  string    `json:"username"`
	Role      string    `json:"role"`
}

// OTPChallenge is the ephemeral context of a pending second-factor login.
// A is the length of the username, X a random integer from [100, 1000). The
// pair is generated exactly once when the challenge is issued and must not be
// regenerated before verification, or the expected answer changes underneath
// the user. Consumed on the first verification attempt, pass or fail.
type OTPChallenge struct {
	ID        uuid.UUID `json:"id"`
	Username  string    `json:"username"`
	A         int       `json:"a"`
	X         int       `json:"x"`
	CreatedAt time.Time `json:"created_at"`
}

// LoginOutcome is the result of a successful Authenticate or CompleteOTP
// call. Either Challenge is set (second factor pending, no session yet) or
// Token carries the established session.
type LoginOutcome struct {
	OTPRequired        bool          `json:"otp_required"`
	Challenge          *OTPChallenge `json:"challenge,omitempty"`
	Token              string        `json:"token,omitempty"`
	MustChangePassword bool          `json:"must_change_password"`
	User               *User         `json:"user,omitempty"`
}
