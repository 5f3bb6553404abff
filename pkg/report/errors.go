package report

import "errors"

var (
	ErrNilStore       = errors.New("report.nil_store")
	ErrBuildFailed    = errors.New("report.build_failed")
	ErrUnknownFormat  = errors.New("report.unknown_format")
	ErrWriteFailed    = errors.New("report.write_failed")
	ErrInvalidConfig  = errors.New("report.invalid_config")
	ErrExportFailed   = errors.New("report.export_failed")
	ErrAccessDenied   = errors.New("report.access_denied")
	ErrBucketNotFound = errors.New("report.bucket_not_found")
	ErrExportTimeout  = errors.New("report.export_timeout")
	ErrExportCanceled = errors.New("report.export_canceled")
	ErrIndexRejected  = errors.New("report.index_rejected")
)
