package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/noah-isme/school-admin-api/internal/models"
)

type recipientLookup interface {
	FirstActiveByRole(ctx context.Context, role models.Role, className string) (*models.UserProfile, error)
}

// ResolveRecipient picks the reviewer of a new submission. A teacher with a
// class goes to that class's head, falling back to a director; everyone else
// goes to a director. It returns nil without error when nobody qualifies.
func ResolveRecipient(ctx context.Context, lookup recipientLookup, submitter models.UserProfile) (*models.UserProfile, error) {
	if submitter.Role == models.RoleTeacher && submitter.HasClass() {
		head, err := firstActive(ctx, lookup, models.RoleHeadOfClass, strings.TrimSpace(*submitter.ClassName))
		if err != nil || head != nil {
			return head, err
		}
	}
	return firstActive(ctx, lookup, models.RoleDirector, "")
}

func firstActive(ctx context.Context, lookup recipientLookup, role models.Role, className string) (*models.UserProfile, error) {
	profile, err := lookup.FirstActiveByRole(ctx, role, className)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return profile, nil
}
