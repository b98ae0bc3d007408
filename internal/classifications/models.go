package classifications

// Hierarchy names published by the World Bank FMR structure service.
const (
	HierarchyRefAreaGroups = "H_REF_AREA_GROUPS"
	HierarchyRegions       = "H_WB_REGIONS"
	HierarchyIncome        = "H_WB_INCOME"
)

// Defaults for the published hierarchy versions. The grouping version tracks
// the fiscal year ("38.0" is FY26); the region and income hierarchies are
// versioned independently.
const (
	DefaultBaseURL         = "https://fmr.worldbank.org/FMR/sdmx/v2/structure/"
	DefaultGroupingVersion = "38.0"
	DefaultRegionVersion   = "2.0"
	DefaultIncomeVersion   = "2.0"
)

// DefaultTypeToKeep is the default set of classification groups projected
// into the wide table.
var DefaultTypeToKeep = []string{"CONTINENT", "REGION", "INCOME"}

// HierarchyNode is a single code in a fusion-json hierarchy response. Nested
// codes are optional; incomplete entries legitimately omit them.
type HierarchyNode struct {
	ID    string          `json:"id"`
	URN   string          `json:"urn"`
	Codes []HierarchyNode `json:"codes,omitempty"`
}

// hierarchyRoot is the first element of the top-level "Hierarchy" array.
type hierarchyRoot struct {
	Codes []HierarchyNode `json:"codes"`
}

// HierarchyDocument mirrors the fusion-json envelope returned by the FMR
// structure service.
type HierarchyDocument struct {
	Hierarchy []hierarchyRoot `json:"Hierarchy"`
}

// CodeRecord is one flattened classification entry: the dotted URN path
// split into its (group, value, ISO3) segments. This is the long form, one
// record per leaf URN.
type CodeRecord struct {
	Group string `json:"group"`
	Value string `json:"value"`
	ISO3  string `json:"ISO3"`
}

// WideTable is the pivoted form: one row per distinct ISO3, one column per
// classification group. A cell holds the sorted, comma-joined set of distinct
// values observed for that (ISO3, group) pair; a pair never observed is an
// absent map key.
type WideTable struct {
	Columns []string            `json:"columns"`
	Rows    []map[string]string `json:"rows"`
}

// StrictOptions configures ClassificationsStrict. Zero values fall back to
// the published defaults above.
type StrictOptions struct {
	GroupingVersion string
	RegionVersion   string
	IncomeVersion   string
	TypeToKeep      []string
}

func (o StrictOptions) withDefaults() StrictOptions {
	if o.GroupingVersion == "" {
		o.GroupingVersion = DefaultGroupingVersion
	}
	if o.RegionVersion == "" {
		o.RegionVersion = DefaultRegionVersion
	}
	if o.IncomeVersion == "" {
		o.IncomeVersion = DefaultIncomeVersion
	}
	if o.TypeToKeep == nil {
		o.TypeToKeep = DefaultTypeToKeep
	}
	return o
}
