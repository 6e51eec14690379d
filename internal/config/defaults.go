package config

const (
	defaultWorkingDir            = "~/pdfwhacker"
	defaultLogDir                = "~/.local/share/pdfwhacker/logs"
	defaultLogRetentionDays      = 30
	defaultLogFormat             = "console"
	defaultLogLevel              = "info"
	defaultGhostscriptBinary     = "gs"
	defaultCompatibilityLevel    = "1.7"
	defaultPDFSettings           = "/ebook"
	defaultThresholdPercent      = 95.0
	defaultMergeOutputName       = "merged.pdf"
	defaultMergeMinFiles         = 2
	defaultPollIntervalMS        = 250
	defaultSettlePolls           = 1
	defaultNotifyRequestTimeout  = 10
	defaultHistoryFileName       = "history.db"
	defaultCompressionInputName  = "CompressionInput"
	defaultCompressionOrigName   = "CompressionOriginal"
	defaultCompressionOutputName = "CompressionOutput"
	defaultMergeInputName        = "MergeInput"
	defaultMergeOrigName         = "MergeOriginal"
	defaultMergeOutputDirName    = "MergeOutput"
)

var defaultPasswordMarkers = []string{
	"This file requires a password for access",
	"requires a password",
}

// Default returns a Config populated with repository defaults.
func Default() Config {
	markers := make([]string, len(defaultPasswordMarkers))
	copy(markers, defaultPasswordMarkers)
	return Config{
		Paths: Paths{
			WorkingDir: defaultWorkingDir,
			LogDir:     defaultLogDir,
		},
		Folders: Folders{
			CompressionInput:    defaultCompressionInputName,
			CompressionOriginal: defaultCompressionOrigName,
			CompressionOutput:   defaultCompressionOutputName,
			MergeInput:          defaultMergeInputName,
			MergeOriginal:       defaultMergeOrigName,
			MergeOutput:         defaultMergeOutputDirName,
		},
		Ghostscript: Ghostscript{
			Binary:             defaultGhostscriptBinary,
			CompatibilityLevel: defaultCompatibilityLevel,
			PDFSettings:        defaultPDFSettings,
			PasswordMarkers:    markers,
		},
		Compression: Compression{
			ThresholdPercent: defaultThresholdPercent,
		},
		Merge: Merge{
			OutputName: defaultMergeOutputName,
			MinFiles:   defaultMergeMinFiles,
			OnStartup:  true,
		},
		Readiness: Readiness{
			PollIntervalMS: defaultPollIntervalMS,
			SettlePolls:    defaultSettlePolls,
		},
		Notifications: Notifications{
			RequestTimeout: defaultNotifyRequestTimeout,
		},
		Logging: Logging{
			Format:        defaultLogFormat,
			Level:         defaultLogLevel,
			RetentionDays: defaultLogRetentionDays,
		},
		History: History{
			Enabled: true,
		},
	}
}
