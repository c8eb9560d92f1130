package model

import "time"

// PipelineState tracks where a run is in its phase sequence.
type PipelineState string

const (
	StateIdle        PipelineState = "IDLE"
	StateExtracting  PipelineState = "EXTRACTING"
	StateResolving   PipelineState = "RESOLVING"
	StateDimSync     PipelineState = "DIMENSION_SYNC"
	StateFactLoading PipelineState = "FACT_LOADING"
	StateDone        PipelineState = "DONE"
	StateAborted     PipelineState = "ABORTED"
)

// BatchStats summarizes one resolver batch. Processed is always
// Success + Errors.
type BatchStats struct {
	Processed int
	Success   int
	Errors    int

	// Entities created during the batch (not total counts).
	Direcciones   int
	Beneficiarios int
	Asociaciones  int
	TiposCultivo  int
	Beneficios    int
}

// Add accumulates another batch into this one.
func (s *BatchStats) Add(o BatchStats) {
	s.Processed += o.Processed
	s.Success += o.Success
	s.Errors += o.Errors
	s.Direcciones += o.Direcciones
	s.Beneficiarios += o.Beneficiarios
	s.Asociaciones += o.Asociaciones
	s.TiposCultivo += o.TiposCultivo
	s.Beneficios += o.Beneficios
}

// RecordError is one record-level failure surfaced in the run report.
type RecordError struct {
	Program  Program `json:"program"`
	RecordID int64   `json:"record_id"`
	Reason   string  `json:"reason"`
}

// DimCounts holds post-sync dimension totals.
type DimCounts struct {
	Personas       int64 `json:"personas"`
	Ubicaciones    int64 `json:"ubicaciones"`
	Organizaciones int64 `json:"organizaciones"`
	Tiempos        int64 `json:"tiempos"`
	Cultivos       int64 `json:"cultivos"`
}

// RunReport aggregates the outcome of one pipeline run for operational
// monitoring.
type RunReport struct {
	RunID        string          `json:"run_id"`
	State        PipelineState   `json:"state"`
	StartedAt    time.Time       `json:"started_at"`
	Duration     time.Duration   `json:"duration"`
	Resolved     BatchStats      `json:"resolved"`
	Dimensions   DimCounts       `json:"dimensions"`
	FactsLoaded  int64           `json:"facts_loaded"`
	FactsSkipped int64           `json:"facts_skipped"`
	Errors       []RecordError   `json:"errors,omitempty"`
	RunError     string          `json:"run_error,omitempty"`
}
