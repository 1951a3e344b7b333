package server

import (
	"fmt"
	"net/http"
	"time"

	"github.com/onnwee/dolt-app/db"
	"github.com/onnwee/dolt-app/telemetry"
)

type testDoltResponse struct {
	Status     string `json:"status"`
	Message    string `json:"message"`
	TestResult *int64 `json:"test_result"`
	Host       string `json:"host"`
	Port       int    `json:"port"`
}

type databasesResponse struct {
	Status    string   `json:"status"`
	Databases []string `json:"databases"`
}

type messageResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

// doltError builds the client-facing failure, always naming the configured server.
func (h *Handlers) doltError(kind ErrorKind, prefix string, err error) *Error {
	return &Error{
		Kind:    kind,
		Message: fmt.Sprintf("%s: %v. Host: %s, Port: %d", prefix, err, h.cfg.DoltHost, h.cfg.DoltPort),
		Cause:   err,
	}
}

// HandleTestDolt runs SELECT 1 against Dolt.
func (h *Handlers) HandleTestDolt(w http.ResponseWriter, r *http.Request) {
	ctx, span := telemetry.StartSpan(r.Context(), "dolt", "SELECT 1", telemetry.UpstreamAttr(telemetry.UpstreamDolt))
	start := time.Now()
	v, err := func() (*int64, error) {
		dbx, err := h.app.Dolt()
		if err != nil {
			return nil, err
		}
		return db.TestQuery(ctx, dbx)
	}()
	telemetry.EndUpstreamSpan(span, telemetry.UpstreamDolt, start, err)
	if err != nil {
		writeError(w, r, h.doltError(Classify(err), "Dolt connection failed", err))
		return
	}
	writeJSON(w, http.StatusOK, testDoltResponse{
		Status:     "success",
		Message:    "Dolt connection successful",
		TestResult: v,
		Host:       h.cfg.DoltHost,
		Port:       h.cfg.DoltPort,
	})
}

// HandleListDatabases returns SHOW DATABASES in server order.
func (h *Handlers) HandleListDatabases(w http.ResponseWriter, r *http.Request) {
	ctx, span := telemetry.StartSpan(r.Context(), "dolt", "SHOW DATABASES", telemetry.UpstreamAttr(telemetry.UpstreamDolt))
	start := time.Now()
	names, err := func() ([]string, error) {
		dbx, err := h.app.Dolt()
		if err != nil {
			return nil, err
		}
		return db.ListDatabases(ctx, dbx)
	}()
	telemetry.EndUpstreamSpan(span, telemetry.UpstreamDolt, start, err)
	if err != nil {
		writeError(w, r, h.doltError(Classify(err), "Failed to list databases", err))
		return
	}
	writeJSON(w, http.StatusOK, databasesResponse{Status: "success", Databases: names})
}

// HandleCreateDatabase runs CREATE DATABASE IF NOT EXISTS for the {name} path segment.
// Names are validated and quoted; anything that is not a plain identifier gets a 400.
func (h *Handlers) HandleCreateDatabase(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	ctx, span := telemetry.StartSpan(r.Context(), "dolt", "CREATE DATABASE", telemetry.UpstreamAttr(telemetry.UpstreamDolt))
	start := time.Now()
	err := func() error {
		if err := db.ValidateName(name); err != nil {
			return err
		}
		dbx, err := h.app.Dolt()
		if err != nil {
			return err
		}
		return db.CreateDatabase(ctx, dbx, name)
	}()
	telemetry.EndUpstreamSpan(span, telemetry.UpstreamDolt, start, err)
	if err != nil {
		writeError(w, r, h.doltError(ClassifyStatement(err), "Failed to create database", err))
		return
	}
	writeJSON(w, http.StatusOK, messageResponse{
		Status:  "success",
		Message: fmt.Sprintf("Database '%s' created successfully", name),
	})
}
