package logging

// Canonical field names. Using one spelling per concept keeps the stream
// filterable; new call sites should reuse these instead of inventing
// variants.
const (
	FieldService   = "service"
	FieldVersion   = "version"
	FieldComponent = "component"
	FieldRun       = "run_id"
	FieldJoint     = "joint"
	FieldDriver    = "driver"
	FieldFile      = "file"
	FieldDuration  = "duration_ms"
	FieldCount     = "count"
	FieldAddr      = "addr"
	FieldPath      = "path"
	FieldStatus    = "status"
)
