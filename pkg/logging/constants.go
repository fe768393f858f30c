package logging

// Field names for structured logging.
const (
	FieldFile       = "file_path"
	FieldLedger     = "ledger_file"
	FieldRecordKind = "record_kind"
	FieldRecord     = "record"
	FieldTargetMode = "target_mode"
	FieldRoutingKey = "routing_key"
	FieldTemplate   = "template"
	FieldIndex      = "index"
	FieldCount      = "count"
	FieldError      = "error"
	FieldOperation  = "operation"
)
