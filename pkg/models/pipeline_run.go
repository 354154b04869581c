package models

import (
	"time"

	"github.com/google/uuid"
)

// CleaningReport summarizes the corrections and diagnostics of one cleaning run.
type CleaningReport struct {
	Rows                   int        `json:"rows"`
	NullTimestamps         int        `json:"null_timestamps"`
	UnparsedTimezones      int        `json:"unparsed_timezones"`
	WrappedOffsets         int        `json:"wrapped_offsets"`
	CountryCodeCorrections int        `json:"country_code_corrections"`
	CountryCodesNulled     int        `json:"country_codes_nulled"`
	UnresolvedCountryCodes int        `json:"unresolved_country_codes"`
	CountryNameMismatches  int        `json:"country_name_mismatches"`
	VoyageListMismatches   int        `json:"voyage_list_mismatches"`
	Issues                 []RowIssue `json:"issues,omitempty"`
}

// RowIssue flags one cell that needed correction or could not be reconciled.
type RowIssue struct {
	ID     int64  `json:"id"`
	Column string `json:"column"`
	Issue  string `json:"issue"`
	Raw    string `json:"raw,omitempty"`
}

// PipelineRun records one execution of the cleaning pipeline.
type PipelineRun struct {
	ID         uuid.UUID `json:"id"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
	Source     string    `json:"source"`
	InputRows  int       `json:"input_rows"`
	LoadedRows int64     `json:"loaded_rows"`
	Target     string    `json:"target,omitempty"`
	// SnapshotChecksum is the hex xxh3 hash of the NDJSON snapshot; two runs
	// that produced identical tables share it.
	SnapshotChecksum string          `json:"snapshot_checksum"`
	Report           *CleaningReport `json:"report"`
}
