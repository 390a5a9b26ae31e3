package formatter

import (
	"fmt"
	"strings"

	"github.com/penwyp/go-logviewer/internal/core/host"
	"github.com/penwyp/go-logviewer/internal/core/model"
	"github.com/penwyp/go-logviewer/internal/util"
)

const (
	nativeCrashMarker = "\nProcess uptime: "
	backtraceMarker   = "backtrace:"
	anrDumpTitle      = "\nAnrInfo dump:"
)

// Lines kept from the header block of a native crash.
var nativeCrashKeepPrefixes = []string{"signal ", "Abort message: "}

// ReportFormatter turns structured error reports into display text.
type ReportFormatter struct {
	host     host.Host
	readFile func(path string) (string, bool)
}

// NewReportFormatter creates a ReportFormatter asking h about the device.
func NewReportFormatter(h host.Host) *ReportFormatter {
	return &ReportFormatter{
		host:     h,
		readFile: util.ReadFileAsString,
	}
}

// TypeLabel names a report type code.
func TypeLabel(reportType int) string {
	switch reportType {
	case model.TypeCrash:
		return "crash"
	case model.TypeANR:
		return "ANR"
	case model.TypeBattery:
		return "battery"
	case model.TypeRunningService:
		return "running_service"
	default:
		return fmt.Sprintf("unknown (%d)", reportType)
	}
}

// FormatBody renders the body of r. It reports false for unknown types and
// for reports missing the sub-structure their type requires.
func (f *ReportFormatter) FormatBody(r *model.ErrorReport) (string, bool) {
	if r == nil {
		return "", false
	}

	var sb strings.Builder
	switch r.Type {
	case model.TypeCrash:
		if r.CrashInfo == nil {
			return "", false
		}
		return FilterNativeCrash(r.CrashInfo.StackTrace), true

	case model.TypeANR:
		info := r.AnrInfo
		if info == nil {
			return "", false
		}
		if info.TracesFilePath != nil {
			if traces, ok := f.readFile(*info.TracesFilePath); ok {
				writeLine(&sb, traces)
			}
		}
		writeLine(&sb, anrDumpTitle)
		dumpAnrInfo(&sb, info)

	case model.TypeBattery:
		if r.BatteryInfo == nil {
			return "", false
		}
		dumpBatteryInfo(&sb, r.BatteryInfo)

	case model.TypeRunningService:
		if r.RunningServiceInfo == nil {
			return "", false
		}
		dumpRunningServiceInfo(&sb, r.RunningServiceInfo)

	default:
		return "", false
	}
	return sb.String(), true
}

// FilterNativeCrash strips the header block of a native crash stack trace
// down to its signal and abort message lines followed by the backtrace.
// A stack trace without the native crash marker is returned as is.
//
// Prefix lines are matched anywhere after the marker; inside the backtrace
// they are emitted twice.
func FilterNativeCrash(stackTrace string) string {
	idx := strings.Index(stackTrace, nativeCrashMarker)
	if idx <= 0 {
		return stackTrace
	}

	var sb strings.Builder
	backtraceStarted := false
	for _, line := range splitLines(stackTrace[idx:]) {
		if backtraceStarted {
			writeLine(&sb, line)
		}
		for _, prefix := range nativeCrashKeepPrefixes {
			if strings.HasPrefix(line, prefix) {
				writeLine(&sb, line)
			}
		}
		if strings.HasPrefix(line, backtraceMarker) {
			sb.WriteByte('\n')
			writeLine(&sb, line)
			backtraceStarted = true
		}
	}
	return sb.String()
}

// FormatHeader renders the metadata lines for r. The osVersion line is left
// out when includeOSVersion is false, typically because the body already
// carries the build fingerprint.
func (f *ReportFormatter) FormatHeader(r *model.ErrorReport, includeOSVersion bool) string {
	lines := []string{"type: " + TypeLabel(r.Type)}
	if includeOSVersion {
		lines = append(lines, "osVersion: "+f.host.Fingerprint())
	}
	lines = f.AppendDeviceLines(lines)
	lines = append(lines,
		fmt.Sprintf("package: %s:%d", r.PackageName, r.PackageVersion),
		"process: "+r.ProcessName,
	)
	if r.Type == model.TypeCrash && r.CrashInfo != nil && r.CrashInfo.ProcessUptimeMs > 0 {
		lines = append(lines, fmt.Sprintf("processUptime: %d + %d ms",
			r.CrashInfo.ProcessUptimeMs, r.CrashInfo.ProcessStartupLatencyMs))
	}
	if r.PackageName != "" {
		if installer, ok := f.host.InstallerPackage(r.PackageName); ok {
			lines = append(lines, "installer: "+installer)
		}
	}
	return strings.Join(lines, "\n")
}

// AppendDeviceLines adds the user type and device flag lines, when they apply.
func (f *ReportFormatter) AppendDeviceLines(lines []string) []string {
	if userType := f.host.UserType(); userType != "" {
		lines = append(lines, "userType: "+userType)
	}

	var flags []string
	if f.host.BootloaderUnlocked() {
		flags = append(flags, "bootloader unlocked")
	}
	if f.host.DevOptionsEnabled() {
		flags = append(flags, "dev options enabled")
	}
	if len(flags) > 0 {
		lines = append(lines, "flags: "+strings.Join(flags, ", "))
	}
	return lines
}

func dumpAnrInfo(sb *strings.Builder, info *model.AnrInfo) {
	writeLine(sb, "activity: "+info.Activity)
	writeLine(sb, "cause: "+info.Cause)
	writeLine(sb, "info: "+info.Info)
}

func dumpBatteryInfo(sb *strings.Builder, info *model.BatteryInfo) {
	writeLine(sb, fmt.Sprintf("usagePercent: %d", info.UsagePercent))
	writeLine(sb, fmt.Sprintf("durationMicros: %d", info.DurationMicros))
	writeLine(sb, "usageDetails: "+info.UsageDetails)
	writeLine(sb, "checkinDetails: "+info.CheckinDetails)
}

func dumpRunningServiceInfo(sb *strings.Builder, info *model.RunningServiceInfo) {
	writeLine(sb, fmt.Sprintf("durationMillis: %d", info.DurationMillis))
	writeLine(sb, "serviceDetails: "+info.ServiceDetails)
}

func writeLine(sb *strings.Builder, s string) {
	sb.WriteString(s)
	sb.WriteByte('\n')
}

// splitLines splits on newlines and drops trailing empty lines.
func splitLines(s string) []string {
	lines := strings.Split(s, "\n")
	for len(lines) > 0 && lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	return lines
}
