package manifest

import "time"

// Entry records one artifact published by the compiler
type Entry struct {
	// Fingerprint is the digest segment embedded in the artifact name
	Fingerprint string `json:"fingerprint"`

	// SourcePath is the absolute path of the compiled source
	SourcePath string `json:"source_path"`

	// OutputPath is the absolute path of the artifact, and the record key
	OutputPath string `json:"output_path"`

	// LogicalPath is the caller-facing path returned for the artifact
	LogicalPath string `json:"logical_path"`

	// Compiler is the source extension of the spec used
	Compiler string `json:"compiler"`

	// Size of the artifact in bytes when it was recorded
	Size int64 `json:"size"`

	// Timestamp when the artifact was published
	Timestamp time.Time `json:"timestamp"`
}
