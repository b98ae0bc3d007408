package classifications

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- Mock FMRAPIClient ---
type MockFMRClient struct {
	GetHierarchyFunc func(name string, version string) (*HierarchyDocument, error)
	RequestedNames   []string
}

func (m *MockFMRClient) GetHierarchy(name string, version string) (*HierarchyDocument, error) {
	m.RequestedNames = append(m.RequestedNames, name)
	if m.GetHierarchyFunc != nil {
		return m.GetHierarchyFunc(name, version)
	}
	return nil, fmt.Errorf("GetHierarchyFunc not implemented")
}

// newDoc builds a HierarchyDocument whose first Hierarchy element holds the
// given top-level codes.
func newDoc(codes ...HierarchyNode) *HierarchyDocument {
	return &HierarchyDocument{Hierarchy: []hierarchyRoot{{Codes: codes}}}
}

// leaf builds a third-level node carrying a URN in the real FMR format: a
// parenthesized prefix followed by the dotted path.
func leaf(group, value, iso3 string) HierarchyNode {
	return HierarchyNode{
		ID:  iso3,
		URN: fmt.Sprintf("urn:sdmx:org.sdmx.infomodel.codelist.Code=WB:CL_REF_AREA(1.0).%s.%s.%s", group, value, iso3),
	}
}

func refAreaGroupsDoc() *HierarchyDocument {
	return newDoc(
		HierarchyNode{ID: "WLD", Codes: []HierarchyNode{
			{ID: "REGION_SAS", Codes: []HierarchyNode{
				leaf("REGION", "SAS", "IND"),
				leaf("REGION", "SAS", "PAK"),
			}},
			{ID: "INCOME_LMC", Codes: []HierarchyNode{
				leaf("INCOME", "LMC", "IND"),
			}},
			{ID: "CONTINENT_AS", Codes: []HierarchyNode{
				leaf("CONTINENT", "AS", "IND"),
				leaf("CONTINENT", "AS", "PAK"),
			}},
			// Incomplete entry without nested codes: skipped, not a leaf.
			{ID: "DANGLING"},
		}},
	)
}

func TestGetHierarchy(t *testing.T) {
	t.Run("Successful fetch", func(t *testing.T) {
		var gotPath, gotQuery string
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			gotPath = r.URL.Path
			gotQuery = r.URL.RawQuery
			w.Header().Set("Content-Type", "application/json")
			fmt.Fprint(w, `{"Hierarchy":[{"codes":[{"id":"WLD","urn":"(ALL).GROUP.X.WLD"}]}]}`)
		}))
		defer server.Close()

		client := NewHTTPFMRClient(server.URL + "/")
		doc, err := client.GetHierarchy(HierarchyRefAreaGroups, "38.0")

		require.NoError(t, err)
		assert.Equal(t, "/hierarchy/WB/H_REF_AREA_GROUPS/38.0", gotPath)
		assert.Equal(t, "format=fusion-json", gotQuery)
		require.Len(t, doc.Hierarchy, 1)
		require.Len(t, doc.Hierarchy[0].Codes, 1)
		assert.Equal(t, "WLD", doc.Hierarchy[0].Codes[0].ID)
	})

	t.Run("Non-OK status is a hard failure", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "no such version", http.StatusNotFound)
		}))
		defer server.Close()

		client := NewHTTPFMRClient(server.URL + "/")
		_, err := client.GetHierarchy(HierarchyRegions, "99.0")

		var fetchErr *RemoteFetchError
		require.ErrorAs(t, err, &fetchErr)
		assert.Equal(t, http.StatusNotFound, fetchErr.StatusCode)
	})

	t.Run("Non-JSON body", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			fmt.Fprint(w, "<html>maintenance</html>")
		}))
		defer server.Close()

		client := NewHTTPFMRClient(server.URL + "/")
		_, err := client.GetHierarchy(HierarchyIncome, "2.0")

		var fetchErr *RemoteFetchError
		require.ErrorAs(t, err, &fetchErr)
	})

	t.Run("Missing Hierarchy key", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			fmt.Fprint(w, `{"Error":"not a hierarchy"}`)
		}))
		defer server.Close()

		client := NewHTTPFMRClient(server.URL + "/")
		_, err := client.GetHierarchy(HierarchyIncome, "2.0")

		var respErr *MalformedResponseError
		require.ErrorAs(t, err, &respErr)
	})
}

func TestClassifications(t *testing.T) {
	mockClient := &MockFMRClient{
		GetHierarchyFunc: func(name, version string) (*HierarchyDocument, error) {
			return refAreaGroupsDoc(), nil
		},
	}
	service := NewClassificationService(mockClient)

	records, err := service.Classifications("")
	require.NoError(t, err)

	// One row per leaf URN; the DANGLING entry contributes none.
	require.Len(t, records, 5)
	assert.Equal(t, CodeRecord{Group: "REGION", Value: "SAS", ISO3: "IND"}, records[0])
	assert.Equal(t, CodeRecord{Group: "REGION", Value: "SAS", ISO3: "PAK"}, records[1])
	assert.Equal(t, CodeRecord{Group: "INCOME", Value: "LMC", ISO3: "IND"}, records[2])
	assert.Equal(t, []string{HierarchyRefAreaGroups}, mockClient.RequestedNames)
}

func TestClassifications_MalformedURN(t *testing.T) {
	mockClient := &MockFMRClient{
		GetHierarchyFunc: func(name, version string) (*HierarchyDocument, error) {
			return newDoc(HierarchyNode{ID: "WLD", Codes: []HierarchyNode{
				{ID: "GRP", Codes: []HierarchyNode{
					{ID: "SAS", URN: "(ALL).REGION.SAS"}, // only 3 dot-segments after the prefix
				}},
			}}), nil
		},
	}
	service := NewClassificationService(mockClient)

	_, err := service.Classifications("38.0")

	var codeErr *MalformedCodeError
	require.ErrorAs(t, err, &codeErr)
	assert.Equal(t, 3, codeErr.Segments)
}

func TestSplitURN_WorkedExample(t *testing.T) {
	rec, err := splitURN(trimURN("(ALL).REGION.SAS.IND"))
	require.NoError(t, err)
	assert.Equal(t, CodeRecord{Group: "REGION", Value: "SAS", ISO3: "IND"}, rec)
}

func strictMock(t *testing.T) *MockFMRClient {
	t.Helper()
	return &MockFMRClient{
		GetHierarchyFunc: func(name, version string) (*HierarchyDocument, error) {
			switch name {
			case HierarchyRefAreaGroups:
				return refAreaGroupsDoc(), nil
			case HierarchyRegions:
				// Valid region codes sit at the second level.
				return newDoc(HierarchyNode{ID: "WLD", Codes: []HierarchyNode{
					{ID: "SAS"}, {ID: "SSF"},
				}}), nil
			case HierarchyIncome:
				// Valid income codes are the top-level nodes.
				return newDoc(HierarchyNode{ID: "LMC"}, HierarchyNode{ID: "HIC"}), nil
			}
			return nil, fmt.Errorf("unexpected hierarchy %s", name)
		},
	}
}

func TestClassificationsStrict(t *testing.T) {
	service := NewClassificationService(strictMock(t))

	wide, err := service.ClassificationsStrict(StrictOptions{TypeToKeep: []string{"REGION", "INCOME"}})
	require.NoError(t, err)

	assert.Equal(t, []string{"ISO3", "REGION", "INCOME"}, wide.Columns)
	require.Len(t, wide.Rows, 2)

	ind := wide.Rows[0]
	assert.Equal(t, "IND", ind["ISO3"])
	assert.Equal(t, "SAS", ind["REGION"])
	assert.Equal(t, "LMC", ind["INCOME"])

	pak := wide.Rows[1]
	assert.Equal(t, "PAK", pak["ISO3"])
	assert.Equal(t, "SAS", pak["REGION"])
	_, hasIncome := pak["INCOME"]
	assert.False(t, hasIncome, "PAK has no income classification; the cell must be absent")
}

func TestClassificationsStrict_FiltersInvalidValues(t *testing.T) {
	mockClient := strictMock(t)
	base := mockClient.GetHierarchyFunc
	mockClient.GetHierarchyFunc = func(name, version string) (*HierarchyDocument, error) {
		if name == HierarchyRefAreaGroups {
			doc := refAreaGroupsDoc()
			// Stray region code not present in the region hierarchy.
			doc.Hierarchy[0].Codes[0].Codes = append(doc.Hierarchy[0].Codes[0].Codes, HierarchyNode{
				ID: "BOGUS", Codes: []HierarchyNode{leaf("REGION", "XXX", "IND")},
			})
			return doc, nil
		}
		return base(name, version)
	}
	service := NewClassificationService(mockClient)

	wide, err := service.ClassificationsStrict(StrictOptions{TypeToKeep: []string{"REGION"}})
	require.NoError(t, err)

	for _, row := range wide.Rows {
		assert.NotContains(t, row["REGION"], "XXX")
	}
}

func TestClassificationsStrict_AbsentRequestedTypeIsDropped(t *testing.T) {
	service := NewClassificationService(strictMock(t))

	wide, err := service.ClassificationsStrict(StrictOptions{TypeToKeep: []string{"REGION", "LENDING"}})
	require.NoError(t, err)

	assert.Equal(t, []string{"ISO3", "REGION"}, wide.Columns)
}

func TestFilterByWhitelists_Idempotent(t *testing.T) {
	records := []CodeRecord{
		{Group: "REGION", Value: "SAS", ISO3: "IND"},
		{Group: "REGION", Value: "XXX", ISO3: "IND"},
		{Group: "CONTINENT", Value: "AS", ISO3: "IND"},
	}
	whitelists := map[string]map[string]bool{"REGION": {"SAS": true}}

	once := FilterByWhitelists(records, whitelists)
	twice := FilterByWhitelists(once, whitelists)

	require.Len(t, once, 2)
	assert.Equal(t, once, twice)
}

func TestPivot_RoundTripRecoversTriples(t *testing.T) {
	records := []CodeRecord{
		{Group: "REGION", Value: "SAS", ISO3: "IND"},
		{Group: "REGION", Value: "SAS", ISO3: "IND"}, // row-level duplicate, lost by design
		{Group: "REGION", Value: "MNA", ISO3: "IND"},
		{Group: "INCOME", Value: "LMC", ISO3: "IND"},
		{Group: "REGION", Value: "SAS", ISO3: "PAK"},
	}

	wide := Pivot(records, []string{"REGION", "INCOME"})

	// Re-expand: one triple per ISO3 x group x comma-separated value.
	var got []string
	for _, row := range wide.Rows {
		for _, group := range wide.Columns[1:] {
			cell, ok := row[group]
			if !ok {
				continue
			}
			for _, value := range strings.Split(cell, ",") {
				got = append(got, fmt.Sprintf("%s|%s|%s", row["ISO3"], group, value))
			}
		}
	}
	sort.Strings(got)

	want := []string{
		"IND|INCOME|LMC",
		"IND|REGION|MNA",
		"IND|REGION|SAS",
		"PAK|REGION|SAS",
	}
	assert.Equal(t, want, got)
}
