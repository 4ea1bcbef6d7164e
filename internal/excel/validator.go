package excel

// RequiredHeaders are the fixed columns every result sheet must carry.
var RequiredHeaders = []string{
	"Name",
	"Roll Number",
	"Total Marks",
	"Obtain Marks",
	"Percentage",
	"Status",
	"Grade",
	"Academic Year",
	"Class",
}

// MissingHeaders returns the required headers absent from the sheet, in
// RequiredHeaders order. Matching is exact and case-sensitive.
func MissingHeaders(sheet *Sheet) []string {
	var missing []string
	for _, h := range RequiredHeaders {
		if !sheet.HasHeader(h) {
			missing = append(missing, h)
		}
	}
	return missing
}

func IsRequiredHeader(name string) bool {
	for _, h := range RequiredHeaders {
		if h == name {
			return true
		}
	}
	return false
}
