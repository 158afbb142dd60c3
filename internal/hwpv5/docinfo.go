package hwpv5

// DocInfo holds the document-wide properties this package uses.
type DocInfo struct {
	SectionCount int
}

// parseDocInfo picks DOCUMENT_PROPERTIES out of the DocInfo records.
// Everything else in the stream (fonts, styles, bin data) is ignored.
func parseDocInfo(recs []Rec) DocInfo {
	var info DocInfo
	for _, rec := range recs {
		if p, ok := rec.(RecDocumentProperties); ok {
			info.SectionCount = int(p.SectionCount)
			break
		}
	}
	return info
}
