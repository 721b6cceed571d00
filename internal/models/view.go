package models

// SortMode is the tri-state per-column date sort.
type SortMode string

const (
	SortNone       SortMode = "none"
	SortAscending  SortMode = "ascending"
	SortDescending SortMode = "descending"
)

// Next cycles none → ascending → descending → none.
func (m SortMode) Next() SortMode {
	switch m {
	case SortAscending:
		return SortDescending
	case SortDescending:
		return SortNone
	default:
		return SortAscending
	}
}

// Valid reports whether m is a known mode.
func (m SortMode) Valid() bool {
	switch m {
	case SortNone, SortAscending, SortDescending:
		return true
	}
	return false
}

// ViewState is the transient filter and sort applied when displaying a board.
type ViewState struct {
	Query string              `json:"query"`
	Sort  map[Column]SortMode `json:"sort"`
}

// SortFor returns the mode for c, defaulting to SortNone.
func (v ViewState) SortFor(c Column) SortMode {
	if m, ok := v.Sort[c]; ok && m.Valid() {
		return m
	}
	return SortNone
}

// PreferencesVersion is the current layout of ViewPreferences.
const PreferencesVersion = 1

// ViewPreferences are the view settings that survive restarts.
type ViewPreferences struct {
	Version          int                 `json:"version"`
	FocusModeEnabled bool                `json:"focusModeEnabled"`
	FocusColumn      Column              `json:"focusColumn"`
	SortMode         map[Column]SortMode `json:"sortMode"`
}

// DefaultPreferences returns focus mode on the NEW column with no sorting.
func DefaultPreferences() ViewPreferences {
	sort := make(map[Column]SortMode, len(Columns))
	for _, c := range Columns {
		sort[c] = SortNone
	}
	return ViewPreferences{
		Version:          PreferencesVersion,
		FocusModeEnabled: true,
		FocusColumn:      ColumnNew,
		SortMode:         sort,
	}
}
