package constants

// User-facing messages
const (
	ErrorReportTitleFormat  = "%s error report"
	MsgUnableToShowMoreInfo = "Unable to show more info"
	MsgUnableToOpenFile     = "Unable to open file"
	MsgUnableToSaveFile     = "Unable to save file"
	MsgSavedAsFormat        = "Saved as %s"
	MsgMoreInfoAvailable    = "More info is available, rerun with --more-info"
	MsgUnableToDisplay      = "Unable to display report"
	MsgInvalidReport        = "Invalid error report"
	MsgNoMatchingTombstone  = "No matching tombstone"
)
