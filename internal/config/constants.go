package config

import (
	"time"

	"counterviz/pkg/contracts"
)

// Application constants
const (
	AppName    = "counterviz"
	AppVersion = contracts.Version

	// TR_J1 exports carry a 13 row header block above the column names.
	DefaultHeaderRows = 13

	// Rate limiting
	DefaultRateLimit = 20 // requests per second
	DefaultBurstSize = 40

	// Timeouts
	DefaultRequestTimeout = 2 * time.Minute
	S3ListTimeout         = 30 * time.Second

	// Uploads
	DefaultMaxUploadBytes = 64 << 20
	MaxUploadFiles        = 50

	// Paths
	DefaultReportsDir = "data/reports"
	DefaultExportDir  = "data/exports"
	DefaultLogFile    = "logs/counterviz.log"

	// Every six hours, on the hour.
	DefaultLibrarySchedule = "0 0 */6 * * *"
)
