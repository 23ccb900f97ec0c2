package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	apperrors "editorial-cache/internal/common/errors"
	"editorial-cache/internal/common/utils"
	"editorial-cache/internal/common/validation"
	"editorial-cache/internal/storage"
)

// GetInstitution returns the institution registered for an email domain.
func (a *Adapter) GetInstitution(ctx context.Context, domain string) (*storage.Institution, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.getInstitution(ctx, normalizeDomain(domain))
}

func (a *Adapter) getInstitution(ctx context.Context, domain string) (*storage.Institution, error) {
	var (
		inst        storage.Institution
		lastUpdated string
	)
	err := a.db.QueryRowContext(ctx,
		`SELECT domain, institution_name, country, last_updated FROM institutions WHERE domain = ?`, domain,
	).Scan(&inst.Domain, &inst.Name, &inst.Country, &lastUpdated)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get institution %s: %w", domain, err)
	}
	if inst.LastUpdated, err = parseTime(lastUpdated); err != nil {
		return nil, err
	}
	return &inst, nil
}

// SaveInstitution inserts or replaces the institution for inst.Domain.
func (a *Adapter) SaveInstitution(ctx context.Context, inst storage.Institution) error {
	inst.Domain = normalizeDomain(inst.Domain)
	if err := validation.Struct(inst); err != nil {
		return err
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	_, err := a.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO institutions (domain, institution_name, country, last_updated) VALUES (?, ?, ?, ?)`,
		inst.Domain, strings.TrimSpace(inst.Name), strings.TrimSpace(inst.Country), formatTime(a.now()),
	)
	if err != nil {
		return apperrors.StorageError("failed to save institution", err).WithContext("domain", inst.Domain)
	}
	return nil
}

// InstitutionForEmail resolves the institution of an email address by its
// domain, falling back to parent domains (math.umd.edu, then umd.edu).
func (a *Adapter) InstitutionForEmail(ctx context.Context, email string) (*storage.Institution, error) {
	domain := utils.EmailDomain(email)
	if domain == "" {
		return nil, apperrors.ValidationError("email has no domain").WithContext("email", email)
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	for domain != "" {
		inst, err := a.getInstitution(ctx, domain)
		if err == nil {
			return inst, nil
		}
		if !errors.Is(err, storage.ErrNotFound) {
			return nil, err
		}
		dot := strings.Index(domain, ".")
		if dot < 0 || !strings.Contains(domain[dot+1:], ".") {
			break
		}
		domain = domain[dot+1:]
	}
	return nil, storage.ErrNotFound
}

func normalizeDomain(domain string) string {
	return strings.TrimPrefix(strings.ToLower(strings.TrimSpace(domain)), "@")
}
