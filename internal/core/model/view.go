package model

// DisplayModel is what gets shown for one inbound event. It is built once
// and never mutated afterwards.
type DisplayModel struct {
	SourcePackage     *string `json:"sourcePackage,omitempty"`
	Title             string  `json:"title"`
	Header            string  `json:"header"`
	Body              string  `json:"body"`
	ShowReportButton  bool    `json:"showReportButton,omitempty"`
	MoreInfoAvailable bool    `json:"moreInfoAvailable,omitempty"`
}

// Text joins header and body the way they are displayed and exported.
func (m *DisplayModel) Text() string {
	if m.Header == "" {
		return m.Body
	}
	return m.Header + "\n\n" + m.Body
}

// Snapshot is the serialized form of a DisplayModel, held only while an
// export is pending.
type Snapshot struct {
	ID        string
	FileName  string
	MimeType  string
	TextBytes []byte
}
