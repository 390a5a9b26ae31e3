package model

// Report type codes, as assigned by the platform's ApplicationErrorReport.
const (
	TypeNone           = 0
	TypeCrash          = 1
	TypeANR            = 2
	TypeBattery        = 3
	TypeRunningService = 5
)

// ErrorReport is a structured error report handed over by the OS.
// Only the sub-structure matching Type is expected to be set.
type ErrorReport struct {
	Type                 int    `json:"type"`
	PackageName          string `json:"packageName"`
	PackageVersion       int64  `json:"packageVersion"`
	InstallerPackageName string `json:"installerPackageName,omitempty"`
	ProcessName          string `json:"processName"`
	Time                 int64  `json:"time,omitempty"`
	SystemApp            bool   `json:"systemApp,omitempty"`

	CrashInfo          *CrashInfo          `json:"crashInfo,omitempty"`
	AnrInfo            *AnrInfo            `json:"anrInfo,omitempty"`
	BatteryInfo        *BatteryInfo        `json:"batteryInfo,omitempty"`
	RunningServiceInfo *RunningServiceInfo `json:"runningServiceInfo,omitempty"`
}

type CrashInfo struct {
	ExceptionClassName      string `json:"exceptionClassName,omitempty"`
	ExceptionMessage        string `json:"exceptionMessage,omitempty"`
	ThrowFileName           string `json:"throwFileName,omitempty"`
	ThrowClassName          string `json:"throwClassName,omitempty"`
	ThrowMethodName         string `json:"throwMethodName,omitempty"`
	ThrowLineNumber         int    `json:"throwLineNumber,omitempty"`
	StackTrace              string `json:"stackTrace"`
	ProcessUptimeMs         int64  `json:"processUptimeMs,omitempty"`
	ProcessStartupLatencyMs int64  `json:"processStartupLatencyMs,omitempty"`
}

type AnrInfo struct {
	Activity       string  `json:"activity,omitempty"`
	Cause          string  `json:"cause,omitempty"`
	Info           string  `json:"info,omitempty"`
	TracesFilePath *string `json:"tracesFilePath,omitempty"`
}

type BatteryInfo struct {
	UsagePercent   int    `json:"usagePercent"`
	DurationMicros int64  `json:"durationMicros"`
	UsageDetails   string `json:"usageDetails,omitempty"`
	CheckinDetails string `json:"checkinDetails,omitempty"`
}

type RunningServiceInfo struct {
	DurationMillis int64  `json:"durationMillis"`
	ServiceDetails string `json:"serviceDetails,omitempty"`
}

// TimestampedFile pairs a path with the modification time (unix millis)
// observed when the file was selected. Reads of Path are only valid while
// the file still reports the same time.
type TimestampedFile struct {
	Path         string
	LastModified int64
}
