// Package store is the Postgres-backed durable side of the domain
// registry. It persists exactly what internal/registry needs to rebuild
// its in-memory state on startup and to survive a restart between
// verification ticks.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	_ "github.com/jackc/pgx/v5/stdlib" // registers the "pgx" database/sql driver

	"github.com/cybertemp/dnsauthd/internal/models"
)

// Store wraps a connection pool to the domains table.
type Store struct {
	db *sqlx.DB
}

// Open connects to databaseURL and caps the pool at 5 connections, matching
// the original daemon's PgPoolOptions::max_connections(5) - this daemon
// issues a handful of queries per verification/sync tick, not a request-per-
// connection web workload, so a small pool is enough.
func Open(ctx context.Context, databaseURL string) (*Store, error) {
	db, err := sql.Open("pgx", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(5)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	return &Store{db: sqlx.NewDb(db, "pgx")}, nil
}

// Close releases the connection pool.
func (s *Store) Close() error {
	return s.db.Close()
}

type domainRow struct {
	Domain          string         `db:"domain"`
	IPAddress       string         `db:"ip_address"`
	Enabled         bool           `db:"enabled"`
	Verified        bool           `db:"verified"`
	LastVerified    sql.NullTime   `db:"last_verified"`
	Nameservers     sqlStringArray `db:"nameservers"`
	CreatedAt       time.Time      `db:"created_at"`
	Discord         bool           `db:"discord"`
	GracePeriodEnds sql.NullTime   `db:"grace_period_ends"`
	PendingNSCheck  bool           `db:"pending_ns_check"`
}

func (r domainRow) toRecord() models.DomainRecord {
	rec := models.DomainRecord{
		Domain:         r.Domain,
		IP:             r.IPAddress,
		Enabled:        r.Enabled,
		CreatedAt:      r.CreatedAt,
		Nameservers:    []string(r.Nameservers),
		Discord:        r.Discord,
		PendingNSCheck: r.PendingNSCheck,
	}
	if r.LastVerified.Valid {
		t := r.LastVerified.Time
		rec.LastVerified = &t
	}

	switch {
	case r.GracePeriodEnds.Valid:
		rec.Status = models.Grace(r.GracePeriodEnds.Time)
	case r.Verified:
		rec.Status = models.Verified()
	default:
		rec.Status = models.Pending()
	}
	return rec
}

// GetAllDomains returns every enabled domain, ordered by name, matching
// database.rs's get_all_domains query.
func (s *Store) GetAllDomains(ctx context.Context) ([]models.DomainRecord, error) {
	var rows []domainRow
	err := s.db.SelectContext(ctx, &rows, `
		SELECT domain, ip_address::text AS ip_address, enabled, verified,
		       last_verified, nameservers, created_at, discord,
		       grace_period_ends, pending_ns_check
		FROM domains
		WHERE enabled = true
		ORDER BY domain
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query domains: %w", err)
	}

	records := make([]models.DomainRecord, 0, len(rows))
	for _, r := range rows {
		records = append(records, r.toRecord())
	}
	return records, nil
}

// GetDomain looks up a single enabled domain by name.
func (s *Store) GetDomain(ctx context.Context, domain string) (*models.DomainRecord, error) {
	var row domainRow
	err := s.db.GetContext(ctx, &row, `
		SELECT domain, ip_address::text AS ip_address, enabled, verified,
		       last_verified, nameservers, created_at, discord,
		       grace_period_ends, pending_ns_check
		FROM domains
		WHERE domain = $1 AND enabled = true
	`, domain)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query domain %s: %w", domain, err)
	}

	rec := row.toRecord()
	return &rec, nil
}

// AddDomain inserts a new domain or updates its IP/discord flag if it
// already exists, matching database.rs's add_domain upsert. The name is
// lowercased before it is stored.
func (s *Store) AddDomain(ctx context.Context, domain, ip string, discord bool) error {
	domain = strings.ToLower(domain)
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO domains (domain, ip_address, discord)
		VALUES ($1, $2::inet, $3)
		ON CONFLICT (domain) DO UPDATE
		SET ip_address = $2::inet, discord = $3, updated_at = NOW()
	`, domain, ip, discord)
	if err != nil {
		return fmt.Errorf("failed to add domain %s: %w", domain, err)
	}
	return nil
}

// RemoveDomain soft-disables a domain rather than deleting its row, so
// historical verification data survives removal.
func (s *Store) RemoveDomain(ctx context.Context, domain string) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE domains SET enabled = false, updated_at = NOW() WHERE domain = $1
	`, domain)
	if err != nil {
		return fmt.Errorf("failed to remove domain %s: %w", domain, err)
	}
	return nil
}

// UpdateVerification persists the outcome of a verification pass: the
// observed nameservers, the resulting status, and - when the status is
// Grace - the deadline computed by internal/verifier.
func (s *Store) UpdateVerification(ctx context.Context, domain string, status models.VerificationStatus, nameservers []string) error {
	var graceEnd *time.Time
	if end, ok := status.GracePeriodEnds(); ok {
		graceEnd = &end
	}

	_, err := s.db.ExecContext(ctx, `
		UPDATE domains
		SET verified = $1, last_verified = NOW(), nameservers = $2,
		    enabled = $3, grace_period_ends = $4, updated_at = NOW()
		WHERE domain = $5
	`, status.IsVerified(), sqlStringArray(nameservers), !status.IsFailed(), graceEnd, domain)
	if err != nil {
		return fmt.Errorf("failed to update verification for domain %s: %w", domain, err)
	}
	return nil
}
