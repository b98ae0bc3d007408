// Package classifications fetches World Bank country-classification
// hierarchies (region, income, continent) from the FMR SDMX structure
// service and reshapes them into tabular mappings keyed by ISO3 code.
//
// The package is responsible for:
//   - Fetching a published hierarchy version as fusion-json
//   - Flattening the nested code tree into leaf URNs
//   - Splitting URNs into (group, value, ISO3) records (long form)
//   - Pivoting records into one column per classification type (wide form),
//     filtered against the region/income validity whitelists
//
// All fetch and parse errors propagate to the caller unmodified; there is no
// retry, no caching and no local state.
package classifications

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"sort"
	"strings"
	"time"
)

// FMRAPIClient defines the interface for fetching hierarchies from the FMR
// structure service. This allows for easier testing and decoupling.
type FMRAPIClient interface {
	GetHierarchy(name string, version string) (*HierarchyDocument, error)
}

// HTTPFMRClient is an implementation of FMRAPIClient using HTTP.
type HTTPFMRClient struct {
	BaseURL    string
	HttpClient *http.Client
}

// NewHTTPFMRClient creates a new client for the FMR structure service. The
// service sets no timeout of its own, so the client applies a fixed one.
func NewHTTPFMRClient(baseURL string) *HTTPFMRClient {
	return &HTTPFMRClient{
		BaseURL:    baseURL,
		HttpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// GetHierarchy fetches one published hierarchy version as fusion-json.
func (c *HTTPFMRClient) GetHierarchy(name string, version string) (*HierarchyDocument, error) {
	url := fmt.Sprintf("%shierarchy/WB/%s/%s?format=fusion-json", c.BaseURL, name, version)
	resp, err := c.HttpClient.Get(url)
	if err != nil {
		return nil, &RemoteFetchError{URL: url, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &RemoteFetchError{URL: url, StatusCode: resp.StatusCode}
	}

	var doc HierarchyDocument
	if err := json.NewDecoder(resp.Body).Decode(&doc); err != nil {
		return nil, &RemoteFetchError{URL: url, Err: fmt.Errorf("failed to decode hierarchy response: %w", err)}
	}
	if len(doc.Hierarchy) == 0 {
		return nil, &MalformedResponseError{URL: url, Reason: "missing or empty Hierarchy array"}
	}
	return &doc, nil
}

// trimURN takes the dotted path after the parenthesized prefix, e.g.
// "urn:sdmx:...CL_REF_AREA(2.0).REGION.SAS.IND" -> ".REGION.SAS.IND".
func trimURN(urn string) string {
	if idx := strings.LastIndex(urn, ")"); idx != -1 {
		return urn[idx+1:]
	}
	return urn
}

// leafURNs walks the ref-area-groups hierarchy three levels deep and collects
// the URN of every leaf. Second-level nodes without a nested codes list are
// incomplete entries, expected in practice; they are skipped and logged, not
// treated as leaves.
func leafURNs(doc *HierarchyDocument) []string {
	var urns []string
	skipped := 0
	for _, item := range doc.Hierarchy[0].Codes {
		for _, sub := range item.Codes {
			if sub.Codes == nil {
				skipped++
				continue
			}
			for _, sub2 := range sub.Codes {
				urns = append(urns, trimURN(sub2.URN))
			}
		}
	}
	if skipped > 0 {
		log.Printf("Skipped %d hierarchy entries without nested codes while flattening %s", skipped, HierarchyRefAreaGroups)
	}
	return urns
}

// secondLevelIDs collects the id of every second-level node. Used for the
// region hierarchy, where valid region codes sit one level below the roots.
func secondLevelIDs(doc *HierarchyDocument) []string {
	var ids []string
	for _, item := range doc.Hierarchy[0].Codes {
		for _, sub := range item.Codes {
			ids = append(ids, sub.ID)
		}
	}
	return ids
}

// topLevelIDs collects the id of every top-level node. Used for the income
// hierarchy, where the income groups are the roots themselves.
func topLevelIDs(doc *HierarchyDocument) []string {
	var ids []string
	for _, item := range doc.Hierarchy[0].Codes {
		ids = append(ids, item.ID)
	}
	return ids
}

// splitURN splits a trimmed URN on "." and maps the segments onto a
// CodeRecord. Segment 0 is a structural prefix and is discarded.
func splitURN(urn string) (CodeRecord, error) {
	parts := strings.Split(urn, ".")
	if len(parts) < 4 {
		return CodeRecord{}, &MalformedCodeError{URN: urn, Segments: len(parts)}
	}
	return CodeRecord{Group: parts[1], Value: parts[2], ISO3: parts[3]}, nil
}

// ClassificationService extracts official World Bank region and income
// classifications from the FMR structure service.
type ClassificationService struct {
	fmrClient FMRAPIClient
}

// NewClassificationService creates a new ClassificationService.
func NewClassificationService(client FMRAPIClient) *ClassificationService {
	return &ClassificationService{fmrClient: client}
}

// Classifications fetches the reference-area-groups hierarchy and returns the
// long-form table: one CodeRecord per leaf URN. An empty version falls back
// to DefaultGroupingVersion.
func (s *ClassificationService) Classifications(groupingVersion string) ([]CodeRecord, error) {
	if groupingVersion == "" {
		groupingVersion = DefaultGroupingVersion
	}
	doc, err := s.fmrClient.GetHierarchy(HierarchyRefAreaGroups, groupingVersion)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch %s version %s: %w", HierarchyRefAreaGroups, groupingVersion, err)
	}

	urns := leafURNs(doc)
	records := make([]CodeRecord, 0, len(urns))
	for _, urn := range urns {
		rec, err := splitURN(urn)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	log.Printf("Flattened %d classification records from %s version %s", len(records), HierarchyRefAreaGroups, groupingVersion)
	return records, nil
}

// ClassificationsStrict fetches the reference-area-groups hierarchy together
// with the region and income hierarchies, drops long-form rows whose REGION
// or INCOME value is not in the corresponding validity whitelist, and pivots
// the survivors into a wide table: one row per ISO3, one column per requested
// classification group. Groups without a whitelist (e.g. CONTINENT) are never
// filtered. Requested groups absent from the pivoted table are silently
// dropped; callers may request a superset of possible classification types.
func (s *ClassificationService) ClassificationsStrict(opts StrictOptions) (*WideTable, error) {
	opts = opts.withDefaults()

	long, err := s.Classifications(opts.GroupingVersion)
	if err != nil {
		return nil, err
	}

	regionDoc, err := s.fmrClient.GetHierarchy(HierarchyRegions, opts.RegionVersion)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch %s version %s: %w", HierarchyRegions, opts.RegionVersion, err)
	}
	incomeDoc, err := s.fmrClient.GetHierarchy(HierarchyIncome, opts.IncomeVersion)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch %s version %s: %w", HierarchyIncome, opts.IncomeVersion, err)
	}

	whitelists := map[string]map[string]bool{
		"REGION": toSet(secondLevelIDs(regionDoc)),
		"INCOME": toSet(topLevelIDs(incomeDoc)),
	}

	filtered := FilterByWhitelists(long, whitelists)
	return Pivot(filtered, opts.TypeToKeep), nil
}

// FilterByWhitelists removes records whose group has a whitelist entry and
// whose value is not in it. Records of groups without a whitelist pass
// through unchanged. Filtering is idempotent.
func FilterByWhitelists(records []CodeRecord, whitelists map[string]map[string]bool) []CodeRecord {
	kept := make([]CodeRecord, 0, len(records))
	for _, rec := range records {
		if valid, ok := whitelists[rec.Group]; ok && !valid[rec.Value] {
			continue
		}
		kept = append(kept, rec)
	}
	return kept
}

// Pivot groups records by (ISO3, group), aggregates each cell into the
// sorted, deduplicated, comma-joined value set, and projects the result onto
// ["ISO3"] + typeToKeep, keeping only groups actually present. Rows are
// sorted by ISO3.
func Pivot(records []CodeRecord, typeToKeep []string) *WideTable {
	// ISO3 -> group -> distinct values
	cells := make(map[string]map[string]map[string]bool)
	present := make(map[string]bool)
	for _, rec := range records {
		byGroup, ok := cells[rec.ISO3]
		if !ok {
			byGroup = make(map[string]map[string]bool)
			cells[rec.ISO3] = byGroup
		}
		if byGroup[rec.Group] == nil {
			byGroup[rec.Group] = make(map[string]bool)
		}
		byGroup[rec.Group][rec.Value] = true
		present[rec.Group] = true
	}

	columns := []string{"ISO3"}
	for _, group := range typeToKeep {
		if present[group] {
			columns = append(columns, group)
		}
	}

	iso3s := make([]string, 0, len(cells))
	for iso3 := range cells {
		iso3s = append(iso3s, iso3)
	}
	sort.Strings(iso3s)

	rows := make([]map[string]string, 0, len(iso3s))
	for _, iso3 := range iso3s {
		row := map[string]string{"ISO3": iso3}
		for _, group := range columns[1:] {
			if values, ok := cells[iso3][group]; ok {
				row[group] = joinSorted(values)
			}
		}
		rows = append(rows, row)
	}
	return &WideTable{Columns: columns, Rows: rows}
}

func toSet(values []string) map[string]bool {
	set := make(map[string]bool, len(values))
	for _, v := range values {
		set[v] = true
	}
	return set
}

func joinSorted(values map[string]bool) string {
	list := make([]string, 0, len(values))
	for v := range values {
		list = append(list, v)
	}
	sort.Strings(list)
	return strings.Join(list, ",")
}
