// tenantvault - Tenant Data Protection Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tenantvault

package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/tenantvault/internal/backup"
	"github.com/tomtom215/tenantvault/internal/restore"
	"github.com/tomtom215/tenantvault/internal/validation"
)

func createBackup(t *testing.T, e *testEnv, tenant string, body interface{}) *backup.Backup {
	t.Helper()
	code, env := e.do(t, http.MethodPost, "/api/v1/backups", tenant, body)
	if code != http.StatusCreated {
		t.Fatalf("create backup = %d %+v", code, env.Error)
	}
	var b backup.Backup
	decodeData(t, env, &b)
	return &b
}

func TestBackupLifecycle(t *testing.T) {
	t.Parallel()

	e := newTestEnv(t, nil)
	b := createBackup(t, e, "tenant-a", map[string]interface{}{"kind": "FULL", "expires_in_days": 7})
	if b.OwnerID != "tenant-a" || b.BackupType != backup.TypeManual || b.DataHash == nil {
		t.Fatalf("backup = %+v", b)
	}

	code, env := e.do(t, http.MethodGet, "/api/v1/backups/"+b.ID, "tenant-a", nil)
	if code != http.StatusOK {
		t.Fatalf("get = %d", code)
	}
	var details backup.BackupDetails
	decodeData(t, env, &details)
	if details.Backup.ID != b.ID || len(details.History) != 1 || details.History[0].Action != backup.ActionCreated {
		t.Errorf("details = %+v", details)
	}

	code, env = e.do(t, http.MethodPost, "/api/v1/backups/"+b.ID+"/verify", "tenant-a", nil)
	if code != http.StatusOK {
		t.Fatalf("verify = %d", code)
	}
	var verify backup.VerifyResult
	decodeData(t, env, &verify)
	if !verify.IsValid || verify.Vacuous {
		t.Errorf("verify = %+v", verify)
	}

	code, env = e.do(t, http.MethodGet, "/api/v1/backups/stats", "tenant-a", nil)
	if code != http.StatusOK {
		t.Fatalf("stats = %d", code)
	}
	var stats backup.Statistics
	decodeData(t, env, &stats)
	if stats.TotalBackups != 1 || stats.ManualBackups != 1 {
		t.Errorf("stats = %+v", stats)
	}

	if code, _ := e.do(t, http.MethodDelete, "/api/v1/backups/"+b.ID, "tenant-a", nil); code != http.StatusOK {
		t.Fatalf("delete = %d", code)
	}
	code, env = e.do(t, http.MethodGet, "/api/v1/backups/"+b.ID, "tenant-a", nil)
	if code != http.StatusNotFound || errorCode(env) != codeNotFound {
		t.Errorf("get after delete = %d %s, want 404", code, errorCode(env))
	}
}

func TestBackupTenantIsolation(t *testing.T) {
	t.Parallel()

	e := newTestEnv(t, nil)
	b := createBackup(t, e, "tenant-a", nil)

	tests := []struct {
		method, path string
	}{
		{http.MethodGet, "/api/v1/backups/" + b.ID},
		{http.MethodDelete, "/api/v1/backups/" + b.ID},
		{http.MethodPost, "/api/v1/backups/" + b.ID + "/verify"},
	}
	for _, tt := range tests {
		code, _ := e.do(t, tt.method, tt.path, "tenant-b", nil)
		if code != http.StatusNotFound {
			t.Errorf("%s %s as tenant-b = %d, want 404", tt.method, tt.path, code)
		}
	}

	code, env := e.do(t, http.MethodGet, "/api/v1/backups", "tenant-b", nil)
	if code != http.StatusOK || string(env.Data) != "[]" {
		t.Errorf("tenant-b list = %d %s, want empty", code, env.Data)
	}
}

func TestCreateBackup_Errors(t *testing.T) {
	t.Parallel()

	e := newTestEnv(t, nil)
	tests := []struct {
		name     string
		tenant   string
		body     interface{}
		wantCode int
		wantErr  string
	}{
		{"unknown kind", "tenant-a", map[string]string{"kind": "PARTIAL"}, http.StatusBadRequest, codeValidation},
		{"expiry too long", "tenant-a", map[string]int{"expires_in_days": 400}, http.StatusBadRequest, codeValidation},
		{"malformed json", "tenant-a", "{", http.StatusBadRequest, codeValidation},
		{"unknown tenant", "tenant-z", nil, http.StatusNotFound, codeNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, env := e.do(t, http.MethodPost, "/api/v1/backups", tt.tenant, tt.body)
			if code != tt.wantCode || errorCode(env) != tt.wantErr {
				t.Errorf("POST = %d %s, want %d %s", code, errorCode(env), tt.wantCode, tt.wantErr)
			}
		})
	}
}

func TestListBackups_Pagination(t *testing.T) {
	t.Parallel()

	e := newTestEnv(t, nil)
	for i := 0; i < 3; i++ {
		createBackup(t, e, "tenant-a", nil)
	}

	code, env := e.do(t, http.MethodGet, "/api/v1/backups", "tenant-a", nil)
	if code != http.StatusOK {
		t.Fatalf("list = %d", code)
	}
	var page []backup.BackupSummary
	decodeData(t, env, &page)
	if len(page) != 2 || env.Metadata.Pagination == nil || !env.Metadata.Pagination.HasMore {
		t.Errorf("first page: %d items, pagination %+v", len(page), env.Metadata.Pagination)
	}
	if page[0].LastAction != backup.ActionCreated {
		t.Errorf("LastAction = %q", page[0].LastAction)
	}

	_, env = e.do(t, http.MethodGet, "/api/v1/backups?offset=2", "tenant-a", nil)
	decodeData(t, env, &page)
	if len(page) != 1 || env.Metadata.Pagination.HasMore {
		t.Errorf("second page: %d items, pagination %+v", len(page), env.Metadata.Pagination)
	}

	for _, q := range []string{"limit=abc", "offset=-1", "type=hourly"} {
		if code, _ := e.do(t, http.MethodGet, "/api/v1/backups?"+q, "tenant-a", nil); code != http.StatusBadRequest {
			t.Errorf("list ?%s = %d, want 400", q, code)
		}
	}
}

func TestCleanupBackups(t *testing.T) {
	t.Parallel()

	e := newTestEnv(t, nil)
	for i := 0; i < 3; i++ {
		createBackup(t, e, "tenant-a", nil)
	}
	e.Manager.Wait()

	code, env := e.do(t, http.MethodPost, "/api/v1/backups/cleanup", "tenant-a", map[string]int{"keep_count": 1})
	if code != http.StatusOK {
		t.Fatalf("cleanup = %d %+v", code, env.Error)
	}
	var resp CleanupResponse
	decodeData(t, env, &resp)
	if resp.Deleted != 2 || resp.KeepCount != 1 {
		t.Errorf("cleanup = %+v, want 2 deleted", resp)
	}

	if code, _ := e.do(t, http.MethodPost, "/api/v1/backups/cleanup", "tenant-a", map[string]int{"keep_count": -1}); code != http.StatusBadRequest {
		t.Errorf("negative keep_count = %d, want 400", code)
	}
}

func TestSchedules(t *testing.T) {
	t.Parallel()

	e := newTestEnv(t, nil)
	code, env := e.do(t, http.MethodPost, "/api/v1/schedules", "tenant-a", map[string]interface{}{
		"name":        "nightly",
		"frequency":   "DAILY",
		"time_of_day": "02:00",
		"backup_type": "FULL",
	})
	if code != http.StatusCreated {
		t.Fatalf("create schedule = %d %+v", code, env.Error)
	}
	var sched backup.Schedule
	decodeData(t, env, &sched)
	if sched.OwnerID != "tenant-a" || !sched.IsEnabled || sched.Options.RetentionDays != 30 || sched.NextRun == nil {
		t.Errorf("schedule = %+v", sched)
	}

	path := "/api/v1/schedules/" + sched.ID
	if code, _ := e.do(t, http.MethodGet, path, "tenant-b", nil); code != http.StatusNotFound {
		t.Errorf("tenant-b get = %d, want 404", code)
	}
	_, env = e.do(t, http.MethodGet, "/api/v1/schedules", "tenant-b", nil)
	if string(env.Data) != "[]" {
		t.Errorf("tenant-b list = %s, want []", env.Data)
	}

	code, env = e.do(t, http.MethodPost, path+"/run", "tenant-a", nil)
	if code != http.StatusOK {
		t.Fatalf("run = %d %+v", code, env.Error)
	}
	decodeData(t, env, &sched)
	if sched.LastRun == nil {
		t.Error("LastRun not set after run")
	}
	_, env = e.do(t, http.MethodGet, "/api/v1/backups?type=automatic", "tenant-a", nil)
	var automatic []backup.BackupSummary
	decodeData(t, env, &automatic)
	if len(automatic) != 1 {
		t.Errorf("automatic backups = %d, want 1", len(automatic))
	}

	code, env = e.do(t, http.MethodPatch, path, "tenant-a", map[string]interface{}{"is_enabled": false, "time_of_day": "05:30"})
	if code != http.StatusOK {
		t.Fatalf("patch = %d %+v", code, env.Error)
	}
	decodeData(t, env, &sched)
	if sched.IsEnabled || sched.TimeOfDay != "05:30" {
		t.Errorf("patched schedule = %+v", sched)
	}

	if code, _ := e.do(t, http.MethodDelete, path, "tenant-a", nil); code != http.StatusOK {
		t.Fatalf("delete = %d", code)
	}
	if code, _ := e.do(t, http.MethodGet, path, "tenant-a", nil); code != http.StatusNotFound {
		t.Errorf("get after delete = %d, want 404", code)
	}
}

func TestCreateSchedule_Validation(t *testing.T) {
	t.Parallel()

	e := newTestEnv(t, nil)
	tests := []map[string]interface{}{
		{"frequency": "HOURLY", "time_of_day": "02:00", "backup_type": "FULL"},
		{"frequency": "DAILY", "time_of_day": "24:00", "backup_type": "FULL"},
		{"frequency": "DAILY", "time_of_day": "02:00", "backup_type": "DIFF"},
		{"frequency": "DAILY", "time_of_day": "02:00", "backup_type": "FULL", "options": map[string]int{"retention_days": 400}},
	}
	for i, body := range tests {
		code, env := e.do(t, http.MethodPost, "/api/v1/schedules", "tenant-a", body)
		if code != http.StatusBadRequest || errorCode(env) != codeValidation {
			t.Errorf("case %d: = %d %s, want 400 %s", i, code, errorCode(env), codeValidation)
		}
	}
}

func TestRestoreFlow(t *testing.T) {
	t.Parallel()

	e := newTestEnv(t, nil)
	b := createBackup(t, e, "tenant-a", map[string]interface{}{"compress": false})

	code, env := e.do(t, http.MethodGet, "/api/v1/restore-points", "tenant-a", nil)
	if code != http.StatusOK {
		t.Fatalf("list points = %d", code)
	}
	var points []backup.RestorePoint
	decodeData(t, env, &points)
	if len(points) != 1 || points[0].BackupID != b.ID {
		t.Fatalf("points = %+v", points)
	}
	pointID := points[0].ID

	if code, _ := e.do(t, http.MethodGet, "/api/v1/restore-points/"+pointID, "tenant-b", nil); code != http.StatusNotFound {
		t.Errorf("tenant-b get point = %d, want 404", code)
	}

	code, env = e.do(t, http.MethodPost, "/api/v1/restores/dry-run", "tenant-a", map[string]string{"restore_point_id": pointID})
	if code != http.StatusOK {
		t.Fatalf("dry run = %d %+v", code, env.Error)
	}
	var dry backup.RestoreResult
	decodeData(t, env, &dry)
	if !dry.DryRun || !dry.Success || dry.Targets[0].Applied {
		t.Errorf("dry run = %+v", dry)
	}
	if e.importer.imported["tenant-a"] != 0 {
		t.Error("dry run imported records")
	}

	code, env = e.do(t, http.MethodPost, "/api/v1/restores", "tenant-a", map[string]string{"restore_point_id": pointID})
	if code != http.StatusOK {
		t.Fatalf("restore = %d %+v", code, env.Error)
	}
	var applied backup.RestoreResult
	decodeData(t, env, &applied)
	if !applied.Success || !applied.IntegrityChecked || !applied.IntegrityValid || applied.ItemsRestored() != 3 {
		t.Errorf("restore = %+v", applied)
	}

	code, env = e.do(t, http.MethodPost, "/api/v1/restore-points/"+pointID+"/test", "tenant-a", nil)
	if code != http.StatusOK {
		t.Fatalf("test restore = %d", code)
	}
	var tested restore.TestResult
	decodeData(t, env, &tested)
	if !tested.Restorable() {
		t.Errorf("test restore = %+v", tested)
	}

	_, env = e.do(t, http.MethodGet, "/api/v1/restores", "tenant-a", nil)
	var results []backup.RestoreResult
	decodeData(t, env, &results)
	if len(results) != 2 {
		t.Errorf("restore results = %d, want 2", len(results))
	}

	_, env = e.do(t, http.MethodGet, "/api/v1/restores/stats", "tenant-a", nil)
	var stats restore.Statistics
	decodeData(t, env, &stats)
	if stats.Attempts != 1 || stats.DryRuns != 1 || stats.Successes != 1 || stats.ItemsRestored != 3 {
		t.Errorf("restore stats = %+v", stats)
	}
}

func TestPointInTimeRestore(t *testing.T) {
	t.Parallel()

	e := newTestEnv(t, nil)
	createBackup(t, e, "tenant-a", nil)

	code, env := e.do(t, http.MethodPost, "/api/v1/restores/point-in-time", "tenant-a", map[string]interface{}{
		"timestamp": time.Now().Add(time.Hour).UTC(),
		"dry_run":   true,
	})
	if code != http.StatusOK {
		t.Fatalf("point in time = %d %+v", code, env.Error)
	}

	code, env = e.do(t, http.MethodPost, "/api/v1/restores/point-in-time", "tenant-a", map[string]interface{}{
		"timestamp": time.Now().Add(-24 * time.Hour).UTC(),
	})
	if code != http.StatusNotFound {
		t.Errorf("point before any backup = %d %s, want 404", code, errorCode(env))
	}

	if code, _ := e.do(t, http.MethodPost, "/api/v1/restores/point-in-time", "tenant-a", map[string]interface{}{}); code != http.StatusBadRequest {
		t.Errorf("missing timestamp = %d, want 400", code)
	}
}

func TestRestore_IntegrityFailure(t *testing.T) {
	t.Parallel()

	e := newTestEnv(t, nil)
	b := createBackup(t, e, "tenant-a", nil)
	point := e.RestorePointFor(t, "tenant-a", b.ID)
	e.Tamper(t, b)

	code, env := e.do(t, http.MethodPost, "/api/v1/restores", "tenant-a", map[string]string{"restore_point_id": point.ID})
	if code != http.StatusUnprocessableEntity || errorCode(env) != codeIntegrity {
		t.Errorf("restore tampered = %d %s, want 422 %s", code, errorCode(env), codeIntegrity)
	}
	if e.importer.imported["tenant-a"] != 0 {
		t.Error("tampered snapshot was imported")
	}

	code, env = e.do(t, http.MethodPost, "/api/v1/restores", "tenant-a", map[string]string{})
	if code != http.StatusBadRequest {
		t.Errorf("missing point id = %d %s, want 400", code, errorCode(env))
	}
}

func TestRespondDomainError(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		err      error
		wantCode int
		wantErr  string
	}{
		{"validation", backup.NewValidation("f", "bad"), http.StatusBadRequest, codeValidation},
		{"request validation", validation.ValidateStruct(&struct {
			Name string `validate:"required"`
		}{}), http.StatusBadRequest, codeValidation},
		{"scheduling", &backup.SchedulingError{Message: "bad trigger"}, http.StatusBadRequest, codeScheduling},
		{"not found", backup.NewNotFound("backup", "x"), http.StatusNotFound, codeNotFound},
		{"wrapped not found", fmt.Errorf("load: %w", backup.NewNotFound("backup", "x")), http.StatusNotFound, codeNotFound},
		{"conflict", &backup.ConflictError{OwnerID: "a", Operation: "backup"}, http.StatusConflict, codeConflict},
		{"integrity", &backup.IntegrityError{BackupID: "x"}, http.StatusUnprocessableEntity, codeIntegrity},
		{"export", &backup.ExportFailure{OwnerID: "a", Err: errors.New("db down")}, http.StatusBadGateway, codeExport},
		{"storage", &backup.IOFailure{Op: "write snapshot", Err: errors.New("503")}, http.StatusBadGateway, codeStorage},
		{"deadline", fmt.Errorf("restore: %w", context.DeadlineExceeded), http.StatusGatewayTimeout, codeTimeout},
		{"unknown", errors.New("boom"), http.StatusInternalServerError, codeInternal},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			rec := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			respondDomainError(rec, req, tt.err)
			if rec.Code != tt.wantCode {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantCode)
			}
			var env envelope
			_ = json.Unmarshal(rec.Body.Bytes(), &env)
			if errorCode(env) != tt.wantErr {
				t.Errorf("code = %q, want %q", errorCode(env), tt.wantErr)
			}
		})
	}
}
