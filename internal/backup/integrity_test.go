// tenantvault - Tenant Data Protection Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tenantvault

package backup

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"
)

func TestComputeHash(t *testing.T) {
	t.Parallel()

	// SHA-256 of the empty input
	const empty = "e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855"
	if got := ComputeHash(nil); got != empty {
		t.Errorf("ComputeHash(nil) = %s", got)
	}
	if ComputeHash([]byte("a")) == ComputeHash([]byte("b")) {
		t.Error("different inputs hashed equal")
	}
}

func TestVerify_FreshBackupIsValid(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	ctx := context.Background()

	b := env.mustCreate(t, "tenant-a", CreateOptions{Compress: true})
	result, err := env.manager.VerifyBackup(ctx, "tenant-a", b.ID, "auditor")
	if err != nil {
		t.Fatalf("VerifyBackup: %v", err)
	}
	if !result.IsValid || result.Vacuous {
		t.Errorf("result = %+v, want valid", result)
	}
	if result.ExpectedHash != *b.DataHash || result.ActualHash != *b.DataHash {
		t.Errorf("hashes = %s / %s", result.ExpectedHash, result.ActualHash)
	}
	if result.SizeBytes != b.SizeBytes {
		t.Errorf("SizeBytes = %d, want %d", result.SizeBytes, b.SizeBytes)
	}

	history, _ := env.manager.Ledger().List(ctx, b.ID)
	last := history[len(history)-1]
	if last.Action != ActionVerified || last.Status != StatusSuccess || last.PerformedBy != "auditor" {
		t.Errorf("last entry = %+v", last)
	}
}

func TestVerify_TamperedBackupIsInvalid(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	ctx := context.Background()

	b := env.mustCreate(t, "tenant-a", CreateOptions{})
	data, _ := env.blobs.Read(ctx, b.Filename)
	data[0] ^= 0xFF
	if err := env.blobs.Write(ctx, b.Filename, data); err != nil {
		t.Fatalf("Write: %v", err)
	}

	result, err := env.manager.VerifyBackup(ctx, "tenant-a", b.ID, "")
	if err != nil {
		t.Fatalf("VerifyBackup returned error for mismatch: %v", err)
	}
	if result.IsValid {
		t.Error("tampered backup reported valid")
	}
	if result.ActualHash == result.ExpectedHash {
		t.Error("actual hash equals expected hash")
	}

	history, _ := env.manager.Ledger().List(ctx, b.ID)
	last := history[len(history)-1]
	if last.Action != ActionVerified || last.Status != StatusFailed {
		t.Errorf("last entry = %s/%s", last.Action, last.Status)
	}
	if !strings.Contains(last.Error, "integrity check failed") {
		t.Errorf("Error = %q", last.Error)
	}

	stored, _ := env.store.GetBackup(ctx, b.ID)
	if *stored.DataHash != *b.DataHash {
		t.Error("verification mutated the stored hash")
	}
}

func TestVerify_MissingObject(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	ctx := context.Background()

	b := env.mustCreate(t, "tenant-a", CreateOptions{})
	_ = env.blobs.Delete(ctx, b.Filename)

	_, err := env.manager.VerifyBackup(ctx, "tenant-a", b.ID, "")
	var ioErr *IOFailure
	if !errors.As(err, &ioErr) {
		t.Fatalf("error = %v, want *IOFailure", err)
	}

	history, _ := env.manager.Ledger().List(ctx, b.ID)
	if countActions(history, ActionVerified, StatusFailed) != 1 {
		t.Errorf("history = %+v", history)
	}
}

func TestVerify_NullHashIsVacuouslyValid(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	ctx := context.Background()

	legacy := &Backup{
		ID:         "legacy-1",
		OwnerID:    "tenant-a",
		Filename:   "tenant-a/legacy.json",
		Format:     "json",
		BackupType: TypeManual,
		CreatedAt:  time.Now().UTC(),
		ExpiresAt:  time.Now().UTC().AddDate(0, 0, 30),
	}
	if err := env.store.CommitBackup(ctx, legacy, nil); err != nil {
		t.Fatalf("CommitBackup: %v", err)
	}
	_ = env.blobs.Write(ctx, legacy.Filename, []byte(`{"legacy":true}`))

	result, err := env.manager.VerifyBackup(ctx, "tenant-a", legacy.ID, "")
	if err != nil {
		t.Fatalf("VerifyBackup: %v", err)
	}
	if !result.IsValid || !result.Vacuous {
		t.Errorf("result = %+v, want vacuously valid", result)
	}
	if result.ExpectedHash != "" {
		t.Errorf("ExpectedHash = %q, want empty", result.ExpectedHash)
	}
}

func TestVerifyAndRead_ReturnsHashedBytes(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	ctx := context.Background()

	b := env.mustCreate(t, "tenant-a", CreateOptions{})
	result, data, err := env.manager.Verifier().VerifyAndRead(ctx, b, "")
	if err != nil {
		t.Fatalf("VerifyAndRead: %v", err)
	}
	if ComputeHash(data) != result.ActualHash {
		t.Error("returned bytes differ from hashed bytes")
	}
}
