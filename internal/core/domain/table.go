package domain

type TableSubtype string

const (
	SubtypeDosingPediatric TableSubtype = "dosing_pediatric"
	SubtypeDosingAdult     TableSubtype = "dosing_adult"
	SubtypeDecision        TableSubtype = "decision"
	SubtypeRegimen         TableSubtype = "regimen"
	SubtypeTimeline        TableSubtype = "timeline"
	SubtypeInteraction     TableSubtype = "interaction"
	SubtypeToxicity        TableSubtype = "toxicity"
	SubtypeGeneric         TableSubtype = "generic"
)

// RowIndexKey is the logical-row key carrying the declared row index through.
const RowIndexKey = "_row"

// RawTable is an attachment as read from disk: generic column identifiers and
// the rows keyed by them. RowIndex holds the declared index of each row, or 0
// when the attachment has no row index column or the cell is not numeric.
type RawTable struct {
	Columns  []string
	Rows     []map[string]string
	RowIndex []int
}

// LogicalTable is the header-relabelled view of a RawTable.
type LogicalTable struct {
	Headers []string
	Rows    []map[string]string
}

// TableRendering is what a subtype renderer produces for one table chunk.
type TableRendering struct {
	Subtype TableSubtype
	Text    string
	Debug   map[string]any
}
