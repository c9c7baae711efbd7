package chainAuth

import (
	"context"
	"strconv"
	"strings"
	"time"
)

// CleanupIncompleteRegistrations deletes users that have not completed
// registration and were created more than olderThan ago, together with the
// passcode history of their emails.
func (e *Engine) CleanupIncompleteRegistrations(ctx context.Context, olderThan time.Duration) (*CleanupResult, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}
	if olderThan <= 0 {
		return nil, ErrInvalidCleanupAge
	}

	cutoff := e.now().UTC().Add(-olderThan)
	emails, err := e.store.DeleteIncompleteBefore(ctx, cutoff)
	if err != nil {
		return nil, mapStoreError(err)
	}
	if len(emails) > 0 {
		if err := e.store.DeleteOTPsByEmail(ctx, emails...); err != nil {
			return nil, mapStoreError(err)
		}
	}

	e.metricAdd(MetricCleanupRemoved, len(emails))
	e.emitAudit(ctx, auditEventRegistrationsCleanedUp, true, "", "", nil, func() map[string]string {
		return map[string]string{
			"deleted":    strconv.Itoa(len(emails)),
			"older_than": olderThan.String(),
		}
	})
	if len(emails) > 0 {
		e.logger.WithField("deleted", len(emails)).Info("cleaned up incomplete registrations")
	}

	return &CleanupResult{DeletedUsers: len(emails), Emails: emails}, nil
}

// CleanupRegistrationByEmail removes one incomplete registration so the
// email can be registered again. Completed accounts are never touched.
func (e *Engine) CleanupRegistrationByEmail(ctx context.Context, email string) error {
	if err := e.ready(); err != nil {
		return err
	}
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return ErrMissingEmail
	}

	deleted, err := e.store.DeleteIncompleteByEmail(ctx, email)
	if err != nil {
		return mapStoreError(err)
	}
	if !deleted {
		return ErrNoIncompleteFound
	}
	if err := e.store.DeleteOTPsByEmail(ctx, email); err != nil {
		return mapStoreError(err)
	}

	e.metricInc(MetricCleanupRemoved)
	e.emitAudit(ctx, auditEventRegistrationsCleanedUp, true, "", "", nil, func() map[string]string {
		return map[string]string{"deleted": "1", "email": email}
	})
	return nil
}

// IncompleteRegistrationCount returns the number of users that have not
// completed registration.
func (e *Engine) IncompleteRegistrationCount(ctx context.Context) (int64, error) {
	if err := e.ready(); err != nil {
		return 0, err
	}
	n, err := e.store.CountIncomplete(ctx)
	if err != nil {
		return 0, mapStoreError(err)
	}
	return n, nil
}

// RunCleanupLoop sweeps incomplete registrations every Cleanup.Interval until
// ctx is done. It returns immediately when the interval is zero.
func (e *Engine) RunCleanupLoop(ctx context.Context) {
	if e == nil || e.config.Cleanup.Interval <= 0 || e.config.Cleanup.IncompleteAfter <= 0 {
		return
	}

	ticker := time.NewTicker(e.config.Cleanup.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := e.CleanupIncompleteRegistrations(ctx, e.config.Cleanup.IncompleteAfter); err != nil {
				e.logger.WithError(err).Warn("incomplete registration sweep failed")
			}
		}
	}
}
