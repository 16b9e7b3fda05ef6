// tenantvault - Tenant Data Protection Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tenantvault

package backup

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"time"

	"github.com/tomtom215/tenantvault/internal/logging"
	"github.com/tomtom215/tenantvault/internal/metrics"
)

// ComputeHash returns the hex SHA-256 digest of data.
func ComputeHash(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// Verifier recomputes snapshot digests and compares them to the stored hash.
// It never mutates a Backup.
type Verifier struct {
	blobs  BlobStore
	ledger *Ledger
	now    func() time.Time
}

// NewVerifier creates a Verifier.
func NewVerifier(blobs BlobStore, ledger *Ledger) *Verifier {
	return &Verifier{blobs: blobs, ledger: ledger, now: time.Now}
}

// Verify reads the stored snapshot and checks it against b.DataHash.
// A mismatch is reported through VerifyResult.IsValid, not as an error.
// Every call appends a verified entry to the ledger.
func (v *Verifier) Verify(ctx context.Context, b *Backup, performedBy string) (*VerifyResult, error) {
	result, _, err := v.VerifyAndRead(ctx, b, performedBy)
	return result, err
}

// VerifyAndRead is Verify that also returns the stored bytes it hashed.
func (v *Verifier) VerifyAndRead(ctx context.Context, b *Backup, performedBy string) (*VerifyResult, []byte, error) {
	log := logging.Ctx(ctx).With().Str("backup_id", b.ID).Str("owner_id", b.OwnerID).Logger()

	data, err := v.blobs.Read(ctx, b.Filename)
	if err != nil {
		readErr := &IOFailure{Op: "read snapshot " + b.Filename, Err: err}
		metrics.RecordVerification("error")
		if lerr := v.ledger.Record(ctx, b, ActionVerified, StatusFailed, performedBy, nil, readErr); lerr != nil {
			log.Error().Err(lerr).Msg("Failed to record verification failure")
		}
		return nil, nil, readErr
	}

	result := &VerifyResult{
		BackupID:   b.ID,
		ActualHash: ComputeHash(data),
		SizeBytes:  int64(len(data)),
		VerifiedAt: v.now().UTC(),
	}

	switch {
	case b.DataHash == nil:
		result.IsValid = true
		result.Vacuous = true
		metrics.RecordVerification("vacuous")
		log.Warn().Msg("Backup has no stored hash; accepted without comparison")
	default:
		result.ExpectedHash = *b.DataHash
		result.IsValid = result.ExpectedHash == result.ActualHash
		if result.IsValid {
			metrics.RecordVerification("valid")
		} else {
			metrics.RecordVerification("invalid")
			log.Warn().
				Str("expected", result.ExpectedHash).
				Str("actual", result.ActualHash).
				Msg("Backup integrity mismatch")
		}
	}

	status := StatusSuccess
	var cause error
	if !result.IsValid {
		status = StatusFailed
		cause = &IntegrityError{BackupID: b.ID, Expected: result.ExpectedHash, Actual: result.ActualHash}
	}
	details := map[string]interface{}{
		"expected_hash": result.ExpectedHash,
		"actual_hash":   result.ActualHash,
		"size_bytes":    result.SizeBytes,
		"vacuous":       result.Vacuous,
	}
	if err := v.ledger.Record(ctx, b, ActionVerified, status, performedBy, details, cause); err != nil {
		return nil, nil, err
	}

	return result, data, nil
}
