// Package credential composes the token service and the user DAO into
// the signup-completion and password-reset flows. Each flow is three
// steps: request a token, present it back, commit. Tokens are never
// persisted; a stale token stays syntactically valid until it expires
// but turns inert once its precondition no longer holds.
package credential

import (
	"context"
	"net/url"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"backoffice-service/internal/apierr"
	"backoffice-service/internal/dao"
	"backoffice-service/internal/mail"
	"backoffice-service/internal/model"
	"backoffice-service/internal/token"
)

// MinPasswordLen is the shortest password the commit steps accept.
const MinPasswordLen = 6

// Config carries the mail link bases, passed by constructor.
type Config struct {
	SignupURL string
	ForgotURL string
}

// Orchestrator drives the credential flows.
type Orchestrator struct {
	tokens *token.Service
	users  *dao.UserDAO
	mailer mail.Mailer
	cfg    Config
	log    *zap.Logger
}

func NewOrchestrator(tokens *token.Service, users *dao.UserDAO, mailer mail.Mailer, cfg Config, log *zap.Logger) *Orchestrator {
	return &Orchestrator{tokens: tokens, users: users, mailer: mailer, cfg: cfg, log: log}
}

// RequestSignup issues a signup token and hands it to the mail
// collaborator. Whether the address is already registered is only
// checked at commit time.
func (o *Orchestrator) RequestSignup(ctx context.Context, email string) error {
	if !dao.ValidEmail(email) {
		return apierr.Validation("the email is not valid",
			apierr.Violation{Field: "email", Expected: "email", Actual: email})
	}

	tok, err := o.tokens.IssueDataToken(token.DataPayload{Email: email}, 0)
	if err != nil {
		return apierr.Infrastructure("token issuance failed", err)
	}

	link := joinLink(o.cfg.SignupURL, tok)
	if err := o.mailer.Send(ctx, mail.KindConfirmation, email, map[string]string{"url": link}); err != nil {
		return apierr.Infrastructure("mail dispatch failed", err)
	}
	o.log.Info("signup requested", zap.String("email", email))
	return nil
}

// ValidateSignupToken opens the token and checks the email is still
// unregistered.
func (o *Orchestrator) ValidateSignupToken(ctx context.Context, opaque string) (token.DataPayload, error) {
	payload, err := o.tokens.OpenDataToken(opaque)
	if err != nil {
		return payload, err
	}
	if err := o.tokens.CheckExpiration(payload); err != nil {
		return payload, err
	}
	if _, err := o.users.FindByEmail(ctx, payload.Email); err == nil {
		return payload, apierr.Conflict("the user is already registered")
	} else if !apierr.IsKind(err, apierr.KindNotFound) {
		return payload, err
	}
	return payload, nil
}

// CompleteSignup commits the flow: the token is re-validated, the
// password is hashed and the user record is created with the token's
// email. There is no partial commit.
func (o *Orchestrator) CompleteSignup(ctx context.Context, opaque string, candidate *model.User, password string) (*model.User, error) {
	payload, err := o.ValidateSignupToken(ctx, opaque)
	if err != nil {
		return nil, err
	}
	if len(password) < MinPasswordLen {
		return nil, apierr.Validation("the password must be at least 6 characters",
			apierr.Violation{Field: "password", Expected: "min length 6", Actual: "shorter"})
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, apierr.Infrastructure("password hashing failed", err)
	}

	candidate.Email = payload.Email
	candidate.Password = string(hashed)
	created, err := o.users.Register(ctx, candidate)
	if err != nil {
		return nil, err
	}
	o.log.Info("signup committed", zap.String("id", created.ID), zap.String("email", created.Email))
	return created, nil
}

// RequestForgot issues a recovery token for an existing active account.
func (o *Orchestrator) RequestForgot(ctx context.Context, email string) error {
	if !dao.ValidEmail(email) {
		return apierr.Validation("the email is not valid",
			apierr.Violation{Field: "email", Expected: "email", Actual: email})
	}

	user, err := o.users.FindByEmail(ctx, email)
	if err != nil {
		return err
	}

	tok, err := o.tokens.IssueDataToken(token.DataPayload{Email: email}, 0)
	if err != nil {
		return apierr.Infrastructure("token issuance failed", err)
	}

	link := joinLink(o.cfg.ForgotURL, tok)
	if err := o.mailer.Send(ctx, mail.KindForgot, email, map[string]string{
		"name": user.Name,
		"url":  link,
	}); err != nil {
		return apierr.Infrastructure("mail dispatch failed", err)
	}
	o.log.Info("password recovery requested", zap.String("email", email))
	return nil
}

// ValidateForgotToken opens the token and checks the account still
// exists. Deactivated accounts are invisible to the lookup, so their
// tokens turn inert the same way a missing account's do. The returned
// record carries no password.
func (o *Orchestrator) ValidateForgotToken(ctx context.Context, opaque string) (*model.User, error) {
	payload, err := o.tokens.OpenDataToken(opaque)
	if err != nil {
		return nil, err
	}

	user, err := o.users.FindByEmail(ctx, payload.Email)
	if err != nil {
		if apierr.IsKind(err, apierr.KindNotFound) {
			return nil, apierr.Token("invalid token", nil)
		}
		return nil, err
	}
	if err := o.tokens.CheckExpiration(payload); err != nil {
		return nil, err
	}
	return user.Redacted(), nil
}

// ResetPassword commits the recovery flow with a new password hash.
func (o *Orchestrator) ResetPassword(ctx context.Context, opaque, newPassword string) error {
	user, err := o.ValidateForgotToken(ctx, opaque)
	if err != nil {
		return err
	}
	if len(newPassword) < MinPasswordLen {
		return apierr.Validation("the new password must be at least 6 characters",
			apierr.Violation{Field: "password", Expected: "min length 6", Actual: "shorter"})
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return apierr.Infrastructure("password hashing failed", err)
	}
	if err := o.users.SetPassword(ctx, user.ID, string(hashed)); err != nil {
		return err
	}
	o.log.Info("password reset", zap.String("id", user.ID))
	return nil
}

func joinLink(base, tok string) string {
	u, err := url.Parse(base)
	if err != nil {
		return base + "/" + tok
	}
	return u.JoinPath(tok).String()
}
